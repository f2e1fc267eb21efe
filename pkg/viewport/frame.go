package viewport

import "github.com/matzehuels/bbflame/pkg/flame"

// Frame is the outcome of one redraw.
type Frame struct {
	RootIndex int
	RootAddr  uint64
	RootSize  int64
	Offset    int64
	Width     int64
	Rows      flame.RowMap
	Stats     flame.PassStats
}

// Depth returns the number of rows needed to show every box.
func (f Frame) Depth() int {
	depths := f.Rows.Depths()
	if len(depths) == 0 {
		return 0
	}
	return depths[len(depths)-1] + 1
}

// AtEnd reports whether the window reaches past the right edge of the root.
func (f Frame) AtEnd() bool { return f.Offset+f.Width >= f.RootSize }

// Presenter receives every frame a controller draws.
type Presenter interface {
	Present(Frame) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Frame) error

func (f PresenterFunc) Present(fr Frame) error { return f(fr) }

// Discard drops every frame.
var Discard Presenter = PresenterFunc(func(Frame) error { return nil })

// FrameBuffer keeps the last frame it was given.
type FrameBuffer struct {
	frame Frame
	count int
}

func (b *FrameBuffer) Present(f Frame) error {
	b.frame = f
	b.count++
	return nil
}

// Frame returns the last presented frame.
func (b *FrameBuffer) Frame() Frame { return b.frame }

// Count returns how many frames were presented.
func (b *FrameBuffer) Count() int { return b.count }
