// Package render turns laid out trace frames into files.
//
// # Flame Frames
//
// The [sink] subpackage renders a [viewport.Frame] as SVG, PNG or JSON,
// drawing boxes on the same cell grid as the interactive viewers.
//
//	svg := sink.RenderSVG(frame, sink.WithInteraction())
//	png, err := sink.RenderPNG(frame)
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage renders the visible subtree as a Graphviz
// diagram, keeping the flame colors.
//
//	dot := nodelink.ToDOT(engine, root, minX, maxX, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// [sink]: github.com/matzehuels/bbflame/pkg/render/sink
// [nodelink]: github.com/matzehuels/bbflame/pkg/render/nodelink
// [viewport.Frame]: github.com/matzehuels/bbflame/pkg/viewport#Frame
package render
