package flame

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func scenarioTree() *Node {
	return &Node{Addr: RootAddr, Size: 100, Children: []*Node{{Addr: 0x401000, Size: 40}}}
}

func mainResolver() *Resolver {
	return NewResolver(SymbolFunc(func(addr uint64) (Symbol, bool) {
		if addr == 0x401000 {
			return Symbol{Name: "main"}, true
		}
		return Symbol{}, false
	}), nil)
}

func TestLayoutScenarios(t *testing.T) {
	tests := []struct {
		name       string
		minX, maxX int64
		want       map[int][]Box
	}{
		{
			name: "full window",
			minX: 0, maxX: 100,
			want: map[int][]Box{
				0: {{Addr: 0, X0: 0, X1: 100, Name: "(root)", Category: CategoryRoot}},
				1: {{Addr: 0x401000, X0: 1, X1: 41, Name: "main", Category: CategoryResolved}},
			},
		},
		{
			name: "child scrolled out",
			minX: 50, maxX: 100,
			want: map[int][]Box{
				0: {{Addr: 0, X0: 0, X1: 50, Name: "(root)", Category: CategoryRoot}},
			},
		},
		{
			name: "child clipped on the left",
			minX: 20, maxX: 60,
			want: map[int][]Box{
				0: {{Addr: 0, X0: 0, X1: 40, Name: "(root)", Category: CategoryRoot}},
				1: {{Addr: 0x401000, X0: 0, X1: 21, Name: "main", Category: CategoryResolved}},
			},
		},
		{
			name: "window past the right edge",
			minX: 90, maxX: 130,
			want: map[int][]Box{
				0: {{Addr: 0, X0: 0, X1: 10, Name: "(root)", Category: CategoryRoot}},
			},
		},
		{
			name: "window beyond the tree",
			minX: 100, maxX: 140,
			want: map[int][]Box{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil, mainResolver(), NewSeededColorCache(1))
			got := e.Layout(scenarioTree(), tt.minX, tt.maxX)

			if len(got.Depths()) != len(tt.want) {
				t.Fatalf("Layout() rows = %v, want %d rows", got.Depths(), len(tt.want))
			}
			for depth, wantRow := range tt.want {
				row := got[depth]
				if len(row) != len(wantRow) {
					t.Fatalf("row %d has %d boxes, want %d", depth, len(row), len(wantRow))
				}
				for i, w := range wantRow {
					b := row[i]
					if b.Addr != w.Addr || b.X0 != w.X0 || b.X1 != w.X1 || b.Name != w.Name || b.Category != w.Category {
						t.Errorf("row %d box %d = %+v, want %+v", depth, i, b, w)
					}
					if b.Depth != depth {
						t.Errorf("row %d box %d Depth = %d", depth, i, b.Depth)
					}
				}
			}
		})
	}
}

func TestLayoutRootIsRed(t *testing.T) {
	e := NewEngine(nil, mainResolver(), NewSeededColorCache(3))
	rows := e.Layout(scenarioTree(), 0, 100)

	root := rows[0][0]
	if root.Color.R < 200 || root.Color.G != root.Color.B {
		t.Errorf("root color = %+v, want red theme", root.Color)
	}
	child := rows[1][0]
	if child.Color.R != child.Color.B || child.Color.R < 190 {
		t.Errorf("resolved child color = %+v, want purple theme", child.Color)
	}
}

func TestLayoutEmptyWindow(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	for _, w := range [][2]int64{{10, 10}, {30, 20}} {
		rows := e.Layout(scenarioTree(), w[0], w[1])
		if rows.Len() != 0 {
			t.Errorf("Layout(%d, %d) returned %d boxes, want 0", w[0], w[1], rows.Len())
		}
	}
	if e.Colors().Len() != 0 {
		t.Errorf("empty windows drew %d colors, want 0", e.Colors().Len())
	}
	if rows := e.Layout(nil, 0, 10); rows.Len() != 0 {
		t.Errorf("Layout(nil) returned %d boxes", rows.Len())
	}
}

func TestLayoutZeroWidthNodes(t *testing.T) {
	// The zero-width node emits nothing but its zero-width child is still
	// reached, and the sized sibling after it starts where it started.
	root := &Node{Size: 10, Children: []*Node{
		{Addr: 1, Size: 0, Children: []*Node{{Addr: 2, Size: 0}}},
		{Addr: 3, Size: 4},
	}}
	e := NewEngine(nil, nil, NewSeededColorCache(1))

	var visited []uint64
	e.Walk(root, 0, 10, func(v Visit) {
		visited = append(visited, v.Node.Addr)
		if v.Node.Size == 0 && v.Visible {
			t.Errorf("zero-width node %d produced a box", v.Node.Addr)
		}
	})
	if want := []uint64{0, 1, 3, 2}; !slices.Equal(visited, want) {
		t.Errorf("visit order = %v, want %v", visited, want)
	}

	rows := e.Layout(root, 0, 10)
	if got := rows[1]; len(got) != 1 || got[0].Addr != 3 || got[0].X0 != 1 || got[0].X1 != 5 {
		t.Errorf("row 1 = %+v, want one box [1,5) for addr 3", got)
	}
	if _, ok := e.Colors().Lookup(1); ok {
		t.Error("zero-width node should not draw a color")
	}
}

func TestLayoutRowOrder(t *testing.T) {
	root := &Node{Size: 30, Children: []*Node{
		{Addr: 1, Size: 10, Children: []*Node{{Addr: 4, Size: 3}, {Addr: 5, Size: 3}}},
		{Addr: 2, Size: 10, Children: []*Node{{Addr: 6, Size: 5}}},
		{Addr: 3, Size: 5},
	}}
	e := NewEngine(nil, nil, nil)
	rows := e.Layout(root, 0, 30)

	if got := rows.Depths(); !slices.Equal(got, []int{0, 1, 2}) {
		t.Fatalf("Depths() = %v, want [0 1 2]", got)
	}
	wantAddrs := map[int][]uint64{0: {0}, 1: {1, 2, 3}, 2: {4, 5, 6}}
	for depth, want := range wantAddrs {
		var got []uint64
		for i, b := range rows[depth] {
			got = append(got, b.Addr)
			if i > 0 && rows[depth][i-1].X1 > b.X0 {
				t.Errorf("row %d boxes overlap: %+v then %+v", depth, rows[depth][i-1], b)
			}
		}
		if !slices.Equal(got, want) {
			t.Errorf("row %d addrs = %v, want %v", depth, got, want)
		}
	}
	if rows.Len() != 7 {
		t.Errorf("Len() = %d, want 7", rows.Len())
	}
}

func TestRowMapAt(t *testing.T) {
	e := NewEngine(nil, mainResolver(), nil)
	rows := e.Layout(scenarioTree(), 0, 100)

	tests := []struct {
		col     int64
		depth   int
		want    uint64
		wantHit bool
	}{
		{0, 0, 0, true},
		{99, 0, 0, true},
		{100, 0, 0, false},
		{0, 1, 0, false},
		{1, 1, 0x401000, true},
		{40, 1, 0x401000, true},
		{41, 1, 0, false},
		{5, 2, 0, false},
	}
	for _, tt := range tests {
		b, ok := rows.At(tt.col, tt.depth)
		if ok != tt.wantHit || (ok && b.Addr != tt.want) {
			t.Errorf("At(%d, %d) = %#x, %v, want %#x, %v", tt.col, tt.depth, b.Addr, ok, tt.want, tt.wantHit)
		}
	}
}

func TestLayoutPassStats(t *testing.T) {
	e := NewEngine(nil, mainResolver(), nil)
	e.Layout(scenarioTree(), 50, 100)

	got := e.LastPass()
	if got.Visited != 2 || got.Culled != 1 || got.Boxes != 1 {
		t.Errorf("LastPass() = %+v, want 2 visited, 1 culled, 1 box", got)
	}
}

func TestLayoutCullsSubtree(t *testing.T) {
	// Everything under the culled child must never be dequeued.
	deep := &Node{Addr: 1, Size: 10}
	cur := deep
	for i := range 50 {
		next := &Node{Addr: uint64(100 + i), Size: cur.Size - 1}
		if next.Size <= 0 {
			break
		}
		cur.Children = []*Node{next}
		cur = next
	}
	root := &Node{Size: 100, Children: []*Node{deep}}

	e := NewEngine(nil, nil, nil)
	e.Layout(root, 50, 100)
	if got := e.LastPass(); got.Visited != 2 {
		t.Errorf("Visited = %d, want 2 (root and the culled child)", got.Visited)
	}
}

func TestLayoutIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	root := randomTree(rng, 500, 6)
	e := NewEngine(nil, nil, NewSeededColorCache(5))

	first := e.Layout(root, 40, 260)
	second := e.Layout(root, 40, 260)
	if !rowsEqual(first, second, true) {
		t.Error("repeated Layout() with the same window differs")
	}
}

func TestLayoutColorStability(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 22))
	root := randomTree(rng, 800, 7)
	e := NewEngine(nil, nil, nil)

	seen := map[uint64]RGB{}
	for minX := int64(0); minX < 800; minX += 37 {
		rows := e.Layout(root, minX, minX+120)
		for _, row := range rows {
			for _, b := range row {
				if c, ok := seen[b.Addr]; ok && c != b.Color {
					t.Fatalf("addr %#x changed color from %+v to %+v", b.Addr, c, b.Color)
				}
				seen[b.Addr] = b.Color
			}
		}
	}
}

func TestLayoutContainment(t *testing.T) {
	rng := rand.New(rand.NewPCG(31, 32))
	root := randomTree(rng, 1000, 8)
	e := NewEngine(nil, nil, nil)

	for _, w := range [][2]int64{{0, 1000}, {0, 80}, {333, 411}, {950, 2000}, {999, 1000}} {
		minX, maxX := w[0], w[1]
		rows := e.Layout(root, minX, maxX)
		for depth, row := range rows {
			for _, b := range row {
				if b.X0 < 0 || b.X1 > maxX-minX || b.X1 <= b.X0 {
					t.Errorf("window [%d,%d) row %d: box %+v escapes the window", minX, maxX, depth, b)
				}
			}
		}
	}
}

func TestLayoutPruningMatchesNaive(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7))
		root := randomTree(rng, 300+rng.Int64N(700), 9)
		e := NewEngine(nil, nil, nil)

		for range 10 {
			minX := rng.Int64N(root.Size + 50)
			maxX := minX + 1 + rng.Int64N(200)
			got := e.Layout(root, minX, maxX)
			want := naiveLayout(root, minX, maxX)
			if !rowsEqual(got, want, false) {
				t.Fatalf("seed %d window [%d,%d): pruned layout differs from naive filter", seed, minX, maxX)
			}
		}
	}
}

// naiveLayout places every node without culling and keeps what intersects.
func naiveLayout(root *Node, minX, maxX int64) RowMap {
	rows := make(RowMap)
	var place func(n *Node, x int64, depth int)
	place = func(n *Node, x int64, depth int) {
		x0 := max(0, x-minX)
		x1 := min(maxX-minX, x-minX+n.Size)
		if x1 > x0 {
			rows[depth] = append(rows[depth], Box{Addr: n.Addr, X0: x0, X1: x1, Depth: depth, Size: n.Size})
		}
		cx := x + n.ChildOffset()
		for _, c := range n.Children {
			place(c, cx, depth+1)
			cx += c.Size
		}
	}
	place(root, 0, 0)
	for _, row := range rows {
		slices.SortStableFunc(row, func(a, b Box) int {
			switch {
			case a.X0 < b.X0:
				return -1
			case a.X0 > b.X0:
				return 1
			}
			return 0
		})
	}
	return rows
}

func rowsEqual(a, b RowMap, withColor bool) bool {
	if !slices.Equal(a.Depths(), b.Depths()) {
		return false
	}
	for _, d := range a.Depths() {
		ra, rb := a[d], b[d]
		if len(ra) != len(rb) {
			return false
		}
		for i := range ra {
			x, y := ra[i], rb[i]
			if x.Addr != y.Addr || x.X0 != y.X0 || x.X1 != y.X1 || x.Depth != y.Depth || x.Size != y.Size {
				return false
			}
			if withColor && (x.Color != y.Color || x.Name != y.Name) {
				return false
			}
		}
	}
	return true
}

// randomTree builds a tree of the given size whose children respect the
// containment rule. Addresses repeat on purpose, as in real traces.
func randomTree(rng *rand.Rand, size int64, depth int) *Node {
	root := &Node{Addr: RootAddr, Size: size}
	fill(rng, root, depth)
	return root
}

func fill(rng *rand.Rand, n *Node, depth int) {
	if depth == 0 || n.Size < 2 {
		return
	}
	room := n.Size - n.ChildOffset()
	for room > 0 && rng.IntN(5) != 0 {
		size := rng.Int64N(room) + 1
		if rng.IntN(10) == 0 {
			size = 0
		}
		c := &Node{Addr: 0x400000 + uint64(rng.IntN(64))*0x10, Size: size}
		n.Children = append(n.Children, c)
		room -= size
		fill(rng, c, depth-1)
	}
}
