// Package viewport drives a flame graph view: which root is shown, how far
// the view is panned, and how wide it is.
//
// A [Controller] owns one [flame.Engine] and so one color cache. Every state
// change (root selection, scrolling, resizing) triggers a layout pass over
// the visible window and hands the result, a [Frame], to a [Presenter].
// Presenters are the only thing that differs between the terminal viewer,
// the HTTP viewer and one-shot rendering.
//
// [Geometry] converts between columns and pixels the way the canvas lays
// cells out: one fixed-size cell per column and one band per depth, with a
// one pixel gutter between neighbours.
//
// A Controller is not safe for concurrent use. Callers serving several
// goroutines (the HTTP viewer) guard each controller with their own lock.
package viewport
