// Package sink renders flame graph frames to output formats.
//
// Every renderer takes a [viewport.Frame], the result of one layout pass,
// and draws it the way the interactive canvas does: one cell per column,
// one band per depth, a one pixel gutter between boxes and the routine name
// written inside its box when it fits.
//
// # Formats
//
//   - [RenderSVG]: standalone SVG, optionally with hover highlighting of
//     every box that belongs to the same routine
//   - [RenderPNG]: raster image drawn with fogleman/gg
//   - [RenderJSON]: the frame's boxes for programmatic consumers
//
// Cell sizes come from a [viewport.Geometry]; the default is 20px square
// cells.
package sink
