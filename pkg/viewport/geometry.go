package viewport

import "github.com/matzehuels/bbflame/pkg/flame"

// DefaultCell is the side of one cell in pixels.
const DefaultCell = 20

// Geometry maps columns and depths to pixels.
type Geometry struct {
	CellWidth int
	RowHeight int
}

// DefaultGeometry returns square 20px cells.
func DefaultGeometry() Geometry {
	return Geometry{CellWidth: DefaultCell, RowHeight: DefaultCell}
}

func (g Geometry) normalized() Geometry {
	if g.CellWidth <= 0 {
		g.CellWidth = DefaultCell
	}
	if g.RowHeight <= 0 {
		g.RowHeight = DefaultCell
	}
	return g
}

// Columns returns the window width for a canvas of the given pixel width.
// A partially visible last cell counts as a column.
func (g Geometry) Columns(pixels int) int64 {
	g = g.normalized()
	if pixels <= 0 {
		return 0
	}
	return int64((pixels + g.CellWidth) / g.CellWidth)
}

// Rect is a box in pixel space.
type Rect struct {
	X, Y, W, H int
}

// Rect returns the pixel rectangle of b, leaving a one pixel gutter on the
// right and bottom edge.
func (g Geometry) Rect(b flame.Box) Rect {
	g = g.normalized()
	return Rect{
		X: 1 + int(b.X0)*g.CellWidth,
		Y: 1 + b.Depth*g.RowHeight,
		W: int(b.Width())*g.CellWidth - 1,
		H: g.RowHeight - 1,
	}
}

// Size returns the canvas size needed for f.
func (g Geometry) Size(f Frame) (width, height int) {
	g = g.normalized()
	return int(f.Width)*g.CellWidth + 1, f.Depth()*g.RowHeight + 1
}
