package flame

import (
	"slices"
	"time"

	"github.com/matzehuels/bbflame/pkg/observability"
)

// Box is one on-screen interval. X0 and X1 are window-relative columns and
// X1 > X0 always holds.
type Box struct {
	Addr     uint64
	X0, X1   int64
	Depth    int
	Size     int64
	Color    RGB
	Name     string
	Category Category
}

// Width returns the number of columns the box covers.
func (b Box) Width() int64 { return b.X1 - b.X0 }

// RowMap holds the boxes of one layout pass by depth, each row ordered by X0.
type RowMap map[int][]Box

// Depths returns the non-empty depths in ascending order.
func (m RowMap) Depths() []int {
	depths := make([]int, 0, len(m))
	for d, row := range m {
		if len(row) > 0 {
			depths = append(depths, d)
		}
	}
	slices.Sort(depths)
	return depths
}

// Len returns the total number of boxes.
func (m RowMap) Len() int {
	n := 0
	for _, row := range m {
		n += len(row)
	}
	return n
}

// At returns the box covering window column col on row depth.
func (m RowMap) At(col int64, depth int) (Box, bool) {
	row := m[depth]
	i, found := slices.BinarySearchFunc(row, col, func(b Box, c int64) int {
		switch {
		case b.X1 <= c:
			return -1
		case b.X0 > c:
			return 1
		default:
			return 0
		}
	})
	if !found {
		return Box{}, false
	}
	return row[i], true
}

// Visit describes one node that survived the cull test of a walk.
type Visit struct {
	Node   *Node
	Parent *Node
	X      int64 // absolute left column
	Depth  int
	// Box is set when the node covers at least one visible column.
	Box     Box
	Visible bool
}

// PassStats describes the most recent layout pass of an engine.
type PassStats struct {
	Visited  int
	Culled   int
	Boxes    int
	Duration time.Duration
}

// Engine lays out trees of one node source. It owns the color cache of the
// view it serves, so colors stay put between passes.
type Engine struct {
	src      ChildSource
	resolver *Resolver
	colors   *ColorCache
	last     PassStats
}

// NewEngine creates an engine. A nil src reads Node.Children directly, a nil
// resolver names everything with placeholders and a nil colors gets a fresh
// randomly seeded cache.
func NewEngine(src ChildSource, resolver *Resolver, colors *ColorCache) *Engine {
	if src == nil {
		src = &Forest{}
	}
	if resolver == nil {
		resolver = NewResolver(nil, nil)
	}
	if colors == nil {
		colors = NewColorCache(nil)
	}
	return &Engine{src: src, resolver: resolver, colors: colors}
}

// Colors returns the engine's color cache.
func (e *Engine) Colors() *ColorCache { return e.colors }

// Resolver returns the engine's name resolver.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// LastPass returns statistics of the most recent Layout or Walk.
func (e *Engine) LastPass() PassStats { return e.last }

// Layout returns the boxes of root that intersect the window [minX, maxX).
// The window is trusted: an empty or inverted one yields an empty RowMap.
func (e *Engine) Layout(root *Node, minX, maxX int64) RowMap {
	rows := make(RowMap)
	e.Walk(root, minX, maxX, func(v Visit) {
		if v.Visible {
			rows[v.Depth] = append(rows[v.Depth], v.Box)
		}
	})
	return rows
}

// Walk visits, breadth-first, every node of root whose span intersects the
// window, calling fn in row order and left to right within a row. A node
// outside the window is skipped together with its subtree.
func (e *Engine) Walk(root *Node, minX, maxX int64, fn func(Visit)) {
	start := time.Now()
	stats := PassStats{}
	defer func() {
		stats.Duration = time.Since(start)
		e.last = stats
		var addr uint64
		if root != nil {
			addr = root.Addr
		}
		observability.Layout().OnLayoutPass(addr, stats.Visited, stats.Culled, stats.Boxes, stats.Duration)
	}()

	if root == nil || minX >= maxX {
		return
	}

	type item struct {
		node, parent *Node
		x            int64
		depth        int
	}
	queue := []item{{node: root}}
	for head := 0; head < len(queue); head++ {
		it := queue[head]
		n := it.node
		stats.Visited++

		width := n.Size
		if it.x+width <= minX || it.x >= maxX {
			stats.Culled++
			continue
		}

		v := Visit{Node: n, Parent: it.parent, X: it.x, Depth: it.depth}
		x0 := max(0, it.x-minX)
		x1 := min(maxX-minX, it.x-minX+width)
		if x1 > x0 {
			name, cat := e.resolver.Resolve(n.Addr)
			v.Box = Box{
				Addr:     n.Addr,
				X0:       x0,
				X1:       x1,
				Depth:    it.depth,
				Size:     n.Size,
				Color:    e.colors.ColorFor(n.Addr, cat.Theme()),
				Name:     name,
				Category: cat,
			}
			v.Visible = true
			stats.Boxes++
		}
		fn(v)

		x := it.x + n.ChildOffset()
		for _, c := range e.src.Children(n) {
			queue = append(queue, item{node: c, parent: n, x: x, depth: it.depth + 1})
			x += c.Size
		}
	}
}
