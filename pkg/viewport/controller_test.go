package viewport

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/flame"
	"github.com/matzehuels/bbflame/pkg/observability"
)

type testSource struct {
	roots   []*flame.Node
	symbols map[uint64]string
}

func (s *testSource) Roots() []*flame.Node                  { return s.roots }
func (s *testSource) Children(n *flame.Node) []*flame.Node { return n.Children }
func (s *testSource) SymbolFor(addr uint64) (flame.Symbol, bool) {
	name, ok := s.symbols[addr]
	return flame.Symbol{Name: name}, ok
}

func newTestSource() *testSource {
	return &testSource{
		roots: []*flame.Node{
			{Addr: flame.RootAddr, Size: 100, Children: []*flame.Node{{Addr: 0x401000, Size: 40}}},
			{Addr: flame.RootAddr, Size: 30, Children: []*flame.Node{{Addr: 0x401000, Size: 10}, {Addr: 0x402000, Size: 5}}},
		},
		symbols: map[uint64]string{0x401000: "main"},
	}
}

func TestSelectRoot(t *testing.T) {
	buf := &FrameBuffer{}
	c := New(newTestSource(), WithPresenter(buf), WithWidth(100), WithSeed(1))

	if c.Active() != -1 {
		t.Fatalf("Active() before selection = %d, want -1", c.Active())
	}

	f, err := c.SelectRoot(0)
	if err != nil {
		t.Fatalf("SelectRoot(0) error: %v", err)
	}
	if buf.Count() != 1 {
		t.Errorf("presented %d frames, want 1", buf.Count())
	}
	if got := f.Rows[1]; len(got) != 1 || got[0].X0 != 1 || got[0].X1 != 41 || got[0].Name != "main" {
		t.Errorf("row 1 = %+v, want main at [1,41)", got)
	}
	if got := f.Rows[0][0]; got.Name != flame.RootLabel || got.X1 != 100 {
		t.Errorf("row 0 = %+v, want (root) at [0,100)", got)
	}
	if f.Depth() != 2 {
		t.Errorf("Depth() = %d, want 2", f.Depth())
	}
}

func TestSelectRootResetsOffset(t *testing.T) {
	c := New(newTestSource(), WithWidth(20))
	if _, err := c.SelectRoot(0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ScrollBy(35); err != nil {
		t.Fatal(err)
	}
	if c.Offset() != 35 {
		t.Fatalf("Offset() = %d, want 35", c.Offset())
	}

	f, err := c.SelectRoot(1)
	if err != nil {
		t.Fatal(err)
	}
	if c.Offset() != 0 || f.Offset != 0 {
		t.Errorf("offset after SelectRoot = %d (frame %d), want 0", c.Offset(), f.Offset)
	}
	if f.RootIndex != 1 || f.RootSize != 30 {
		t.Errorf("frame root = %d size %d, want 1 size 30", f.RootIndex, f.RootSize)
	}
}

func TestSelectRootNoData(t *testing.T) {
	tests := []struct {
		name  string
		src   *testSource
		index int
	}{
		{"empty forest", &testSource{}, 0},
		{"negative index", newTestSource(), -1},
		{"index past end", newTestSource(), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &FrameBuffer{}
			c := New(tt.src, WithPresenter(buf))
			if _, err := c.SelectRoot(tt.index); !errors.Is(err, errors.ErrCodeNoTraceData) {
				t.Errorf("SelectRoot(%d) error = %v, want %v", tt.index, err, errors.ErrCodeNoTraceData)
			}
			if buf.Count() != 0 {
				t.Error("a failed selection must not present a frame")
			}
			if c.Active() != -1 {
				t.Errorf("Active() = %d, want -1", c.Active())
			}
		})
	}
}

func TestScrollBy(t *testing.T) {
	tests := []struct {
		name   string
		deltas []int64
		want   int64
	}{
		{"right", []int64{50}, 50},
		{"right then back", []int64{50, -20}, 30},
		{"clamped at zero", []int64{-1000}, 0},
		{"clamped after moving", []int64{10, -11}, 0},
		{"no right bound", []int64{500}, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(newTestSource(), WithWidth(50))
			if _, err := c.SelectRoot(0); err != nil {
				t.Fatal(err)
			}
			var f Frame
			for _, d := range tt.deltas {
				var err error
				if f, err = c.ScrollBy(d); err != nil {
					t.Fatalf("ScrollBy(%d) error: %v", d, err)
				}
			}
			if c.Offset() != tt.want || f.Offset != tt.want {
				t.Errorf("Offset() = %d (frame %d), want %d", c.Offset(), f.Offset, tt.want)
			}
		})
	}
}

func TestScrollScenario(t *testing.T) {
	c := New(newTestSource(), WithWidth(50))
	if _, err := c.SelectRoot(0); err != nil {
		t.Fatal(err)
	}

	f, err := c.ScrollBy(50)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.Rows[1]; ok {
		t.Errorf("row 1 = %+v, want no row", f.Rows[1])
	}
	if got := f.Rows[0]; len(got) != 1 || got[0].X0 != 0 || got[0].X1 != 50 {
		t.Errorf("row 0 = %+v, want [0,50)", got)
	}

	f, err = c.ScrollBy(-1000)
	if err != nil {
		t.Fatal(err)
	}
	if f.Offset != 0 {
		t.Errorf("Offset after ScrollBy(-1000) = %d, want 0", f.Offset)
	}
	if got := f.Rows[1]; len(got) != 1 || got[0].X0 != 1 {
		t.Errorf("row 1 after rewinding = %+v, want main at column 1", got)
	}
}

func TestScrollBeforeSelect(t *testing.T) {
	c := New(newTestSource())
	if _, err := c.ScrollBy(10); !errors.Is(err, errors.ErrCodeNoTraceData) {
		t.Errorf("ScrollBy() error = %v, want %v", err, errors.ErrCodeNoTraceData)
	}
	if _, err := c.Redraw(10); !errors.Is(err, errors.ErrCodeNoTraceData) {
		t.Errorf("Redraw() error = %v, want %v", err, errors.ErrCodeNoTraceData)
	}
}

func TestSteps(t *testing.T) {
	c := New(newTestSource(), WithWidth(20), WithStep(10))
	if _, err := c.SelectRoot(0); err != nil {
		t.Fatal(err)
	}

	var offsets []int64
	for _, step := range []func() (Frame, error){c.StepRight, c.StepRight, c.StepLeft, c.StepLeft, c.StepLeft} {
		if _, err := step(); err != nil {
			t.Fatal(err)
		}
		offsets = append(offsets, c.Offset())
	}
	if want := []int64{10, 20, 10, 0, 0}; !slices.Equal(offsets, want) {
		t.Errorf("offsets = %v, want %v", offsets, want)
	}
}

func TestRedrawRejectsInvertedWindow(t *testing.T) {
	buf := &FrameBuffer{}
	c := New(newTestSource(), WithPresenter(buf), WithWidth(10))
	if _, err := c.SelectRoot(0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Redraw(-5); !errors.Is(err, errors.ErrCodeInvalidWindow) {
		t.Errorf("Redraw(-5) error = %v, want %v", err, errors.ErrCodeInvalidWindow)
	}
	if _, err := c.Resize(-1); !errors.Is(err, errors.ErrCodeInvalidWindow) {
		t.Errorf("Resize(-1) error = %v, want %v", err, errors.ErrCodeInvalidWindow)
	}
	if c.Width() != 10 || buf.Count() != 1 {
		t.Errorf("rejected windows changed state: width %d, %d frames", c.Width(), buf.Count())
	}
}

func TestRedrawEmptyWidth(t *testing.T) {
	c := New(newTestSource())
	f, err := c.SelectRoot(0)
	if err != nil {
		t.Fatal(err)
	}
	if f.Rows.Len() != 0 {
		t.Errorf("zero-width frame has %d boxes", f.Rows.Len())
	}
}

func TestResize(t *testing.T) {
	buf := &FrameBuffer{}
	c := New(newTestSource(), WithPresenter(buf))

	if _, err := c.Resize(30); err != nil {
		t.Fatalf("Resize() before selection error: %v", err)
	}
	if buf.Count() != 0 {
		t.Error("Resize() before selection should not present")
	}

	if _, err := c.SelectRoot(0); err != nil {
		t.Fatal(err)
	}
	f, err := c.Resize(60)
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 60 || f.Rows[0][0].X1 != 60 {
		t.Errorf("frame after Resize(60) = width %d, root [0,%d)", f.Width, f.Rows[0][0].X1)
	}
}

func TestRootSwitchResetsColors(t *testing.T) {
	src := &testSource{
		roots: []*flame.Node{
			{Addr: flame.RootAddr, Size: 100, Children: []*flame.Node{{Addr: 0x401000, Size: 40}}},
			{Addr: flame.RootAddr, Size: 30, Children: []*flame.Node{{Addr: 0x402000, Size: 10}}},
		},
	}
	made := 0
	c := New(src, WithWidth(100), WithColorFactory(func() *flame.ColorCache {
		made++
		return flame.NewSeededColorCache(7)
	}))

	first, err := c.SelectRoot(0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SelectRoot(1); err != nil {
		t.Fatal(err)
	}
	colors := c.Engine().Colors()
	if _, ok := colors.Lookup(0x401000); ok {
		t.Error("color of 0x401000 carried over to root 1")
	}
	if colors.Len() != 2 {
		t.Errorf("colors after switch = %d, want 2", colors.Len())
	}

	again, err := c.SelectRoot(0)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := again.Rows[1][0].Color, first.Rows[1][0].Color; got != want {
		t.Errorf("reseeded color = %+v, want %+v", got, want)
	}
	if made != 4 {
		t.Errorf("color caches created = %d, want 4", made)
	}
	if c.Generation() != 3 {
		t.Errorf("Generation() = %d, want 3", c.Generation())
	}
}

func TestSelectRootAt(t *testing.T) {
	h := &countingHooks{}
	observability.SetLayoutHooks(h)
	defer observability.Reset()

	c := New(newTestSource(), WithSeed(1))
	f, err := c.SelectRootAt(0, 20, 30)
	if err != nil {
		t.Fatalf("SelectRootAt() error: %v", err)
	}
	if f.Offset != 20 || f.Width != 30 || c.Offset() != 20 || c.Width() != 30 {
		t.Errorf("frame window = [%d,+%d), controller = [%d,+%d), want [20,+30)", f.Offset, f.Width, c.Offset(), c.Width())
	}
	if got := f.Rows[1]; len(got) != 1 || got[0].X0 != 0 || got[0].X1 != 21 {
		t.Errorf("row 1 = %+v, want main at [0,21)", got)
	}
	if h.passes != 1 {
		t.Errorf("layout passes = %d, want 1", h.passes)
	}

	tests := []struct {
		name          string
		index         int
		offset, width int64
		code          errors.Code
	}{
		{"bad root", 5, 0, 10, errors.ErrCodeNoTraceData},
		{"negative offset", 0, -1, 10, errors.ErrCodeInvalidWindow},
		{"inverted", 0, 10, -5, errors.ErrCodeInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.SelectRootAt(tt.index, tt.offset, tt.width); !errors.Is(err, tt.code) {
				t.Errorf("SelectRootAt() error = %v, want %s", err, tt.code)
			}
			if c.Active() != 0 || c.Offset() != 20 {
				t.Errorf("failed selection changed state: active=%d offset=%d", c.Active(), c.Offset())
			}
		})
	}
}

func TestPresenterError(t *testing.T) {
	c := New(newTestSource(), WithPresenter(PresenterFunc(func(Frame) error {
		return fmt.Errorf("screen gone")
	})))
	if _, err := c.SelectRoot(0); err == nil {
		t.Error("SelectRoot() should report presenter errors")
	}
}

func TestRootLabels(t *testing.T) {
	c := New(newTestSource())
	if got, want := c.RootLabels(), []string{"0: 64", "1: 1e"}; !slices.Equal(got, want) {
		t.Errorf("RootLabels() = %v, want %v", got, want)
	}
}

type countingHooks struct {
	observability.NoopLayoutHooks
	selected []int
	passes   int
}

func (h *countingHooks) OnRootSelected(index int) { h.selected = append(h.selected, index) }
func (h *countingHooks) OnLayoutPass(uint64, int, int, int, time.Duration) {
	h.passes++
}

func TestHooks(t *testing.T) {
	h := &countingHooks{}
	observability.SetLayoutHooks(h)
	defer observability.Reset()

	c := New(newTestSource(), WithWidth(10))
	if _, err := c.SelectRoot(1); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ScrollBy(5); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(h.selected, []int{1}) {
		t.Errorf("selected = %v, want [1]", h.selected)
	}
	if h.passes != 2 {
		t.Errorf("layout passes = %d, want 2", h.passes)
	}
}
