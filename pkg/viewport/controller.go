package viewport

import (
	"fmt"

	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/flame"
	"github.com/matzehuels/bbflame/pkg/observability"
)

// DefaultStep is the number of columns StepLeft and StepRight pan by.
const DefaultStep int64 = 10

// Source supplies the trees a controller can show.
type Source interface {
	flame.ChildSource
	Roots() []*flame.Node
}

// Option configures a Controller.
type Option func(*Controller)

// WithSymbols sets the profiling symbol table used to name nodes.
// Sources that implement flame.SymbolTable are used automatically.
func WithSymbols(s flame.SymbolTable) Option { return func(c *Controller) { c.symbols = s } }

// WithHostNames sets the user labels that take precedence over symbols.
func WithHostNames(h flame.HostNames) Option { return func(c *Controller) { c.host = h } }

// WithPresenter sets where frames are delivered.
func WithPresenter(p Presenter) Option { return func(c *Controller) { c.presenter = p } }

// WithSeed makes colors reproducible. Every root switch starts again from
// the same seed.
func WithSeed(seed uint64) Option {
	return func(c *Controller) {
		c.newColors = func() *flame.ColorCache { return flame.NewSeededColorCache(seed) }
	}
}

// WithColorFactory sets how the color cache of each root is created. The
// factory is called once per SelectRoot and must return a fresh cache.
func WithColorFactory(fn func() *flame.ColorCache) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newColors = fn
		}
	}
}

// WithStep sets the pan distance of StepLeft and StepRight.
func WithStep(columns int64) Option {
	return func(c *Controller) {
		if columns > 0 {
			c.step = columns
		}
	}
}

// WithWidth sets the initial view width in columns.
func WithWidth(columns int64) Option { return func(c *Controller) { c.width = columns } }

// Controller holds the state of one view: the active root, the scroll
// offset and the width of the window, all in columns.
type Controller struct {
	src       Source
	symbols   flame.SymbolTable
	host      flame.HostNames
	newColors func() *flame.ColorCache
	presenter Presenter
	resolver  *flame.Resolver
	engine    *flame.Engine

	active     int
	generation int
	offset int64
	width  int64
	step   int64
	last   Frame
}

// New creates a controller over src. No root is active until SelectRoot.
func New(src Source, opts ...Option) *Controller {
	c := &Controller{src: src, active: -1, step: DefaultStep, newColors: defaultColors}
	if st, ok := src.(flame.SymbolTable); ok {
		c.symbols = st
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.presenter == nil {
		c.presenter = Discard
	}
	c.resolver = flame.NewResolver(c.symbols, c.host)
	c.engine = flame.NewEngine(src, c.resolver, c.newColors())
	return c
}

func defaultColors() *flame.ColorCache { return flame.NewColorCache(nil) }

// Roots returns the trees the controller can show.
func (c *Controller) Roots() []*flame.Node {
	if c.src == nil {
		return nil
	}
	return c.src.Roots()
}

// RootLabels returns one "index: size" label per root, size in hex.
func (c *Controller) RootLabels() []string {
	roots := c.Roots()
	labels := make([]string, len(roots))
	for i, r := range roots {
		labels[i] = RootLabel(i, r)
	}
	return labels
}

// RootLabel formats the selector label of a root.
func RootLabel(index int, root *flame.Node) string {
	return fmt.Sprintf("%d: %x", index, root.Size)
}

// Active returns the index of the active root, or -1 before the first
// SelectRoot.
func (c *Controller) Active() int { return c.active }

// Offset returns the left edge of the window.
func (c *Controller) Offset() int64 { return c.offset }

// Width returns the window width.
func (c *Controller) Width() int64 { return c.width }

// Engine returns the layout engine of the active root. SelectRoot replaces
// it, so callers should not hold on to it across root switches.
func (c *Controller) Engine() *flame.Engine { return c.engine }

// Generation counts root selections. Colors drawn under one generation
// never change until the next SelectRoot.
func (c *Controller) Generation() int { return c.generation }

// Last returns the most recently presented frame.
func (c *Controller) Last() Frame { return c.last }

// SelectRoot makes root index active, rewinds the view and redraws. The
// root gets a fresh color cache.
func (c *Controller) SelectRoot(index int) (Frame, error) {
	return c.SelectRootAt(index, 0, c.width)
}

// SelectRootAt is SelectRoot with the window [offset, offset+width) laid
// out directly, in one pass.
func (c *Controller) SelectRootAt(index int, offset, width int64) (Frame, error) {
	if err := errors.ValidateRootIndex(index, len(c.Roots())); err != nil {
		return Frame{}, err
	}
	if err := errors.ValidateWindow(offset, offset+width); err != nil {
		return Frame{}, err
	}
	c.active = index
	c.offset = offset
	c.generation++
	c.engine = flame.NewEngine(c.src, c.resolver, c.newColors())
	observability.Layout().OnRootSelected(index)
	return c.Redraw(width)
}

// ScrollBy pans the view by delta columns. The offset never goes below 0;
// there is no right bound.
func (c *Controller) ScrollBy(delta int64) (Frame, error) {
	if c.active < 0 {
		return Frame{}, errNoRoot()
	}
	c.offset = max(0, c.offset+delta)
	return c.Redraw(c.width)
}

// StepLeft pans one step towards the start.
func (c *Controller) StepLeft() (Frame, error) { return c.ScrollBy(-c.step) }

// StepRight pans one step towards the end.
func (c *Controller) StepRight() (Frame, error) { return c.ScrollBy(c.step) }

// Resize changes the window width and redraws when a root is active.
func (c *Controller) Resize(width int64) (Frame, error) {
	if err := errors.ValidateWindow(c.offset, c.offset+width); err != nil {
		return Frame{}, err
	}
	c.width = width
	if c.active < 0 {
		return Frame{}, nil
	}
	return c.Redraw(width)
}

// Redraw lays out the window [offset, offset+width) of the active root and
// presents the result.
func (c *Controller) Redraw(width int64) (Frame, error) {
	if c.active < 0 {
		return Frame{}, errNoRoot()
	}
	minX, maxX := c.offset, c.offset+width
	if err := errors.ValidateWindow(minX, maxX); err != nil {
		return Frame{}, err
	}
	c.width = width

	root := c.Roots()[c.active]
	rows := c.engine.Layout(root, minX, maxX)
	f := Frame{
		RootIndex: c.active,
		RootAddr:  root.Addr,
		RootSize:  root.Size,
		Offset:    minX,
		Width:     width,
		Rows:      rows,
		Stats:     c.engine.LastPass(),
	}
	c.last = f
	if err := c.presenter.Present(f); err != nil {
		return f, fmt.Errorf("present frame: %w", err)
	}
	return f, nil
}

func errNoRoot() error {
	return errors.New(errors.ErrCodeNoTraceData, "no trace data: no root selected")
}
