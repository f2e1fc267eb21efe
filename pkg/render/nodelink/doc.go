// Package nodelink renders the visible part of a trace tree as a node-link
// diagram.
//
// # Overview
//
// Where the flame view shows nesting as stacked boxes, this package shows
// the same routines as a top-down tree of boxes connected by call edges. It
// walks the tree with the layout engine, so exactly the nodes visible in the
// window [minX, maxX) become graph nodes, filled with their flame colors.
//
// # Usage
//
//	dot := nodelink.ToDOT(engine, root, 0, 200, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
//	png, err := nodelink.RenderPNG(dot)
//
// # Options
//
//   - Detailed: labels also show the address and the size of each node
//   - MaxNodes: stop adding nodes after this many (0 means no limit)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process rendering.
package nodelink
