package pipeline

import (
	"fmt"

	"github.com/matzehuels/bbflame/pkg/flame"
	"github.com/matzehuels/bbflame/pkg/render/nodelink"
	"github.com/matzehuels/bbflame/pkg/render/sink"
	"github.com/matzehuels/bbflame/pkg/viewport"
)

// Render encodes frame in every format of opts. The engine is needed for
// node-link diagrams, which walk the tree again.
func Render(e *flame.Engine, root *flame.Node, frame viewport.Frame, opts Options) (map[string][]byte, error) {
	if opts.IsNodelink() {
		return renderNodelink(e, root, frame, opts)
	}
	return renderFlame(frame, opts)
}

func renderFlame(frame viewport.Frame, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = sink.RenderSVG(frame, sink.WithGeometry(opts.Geometry), sink.WithInteraction())
		case FormatPNG:
			data, err = sink.RenderPNG(frame, sink.WithPNGGeometry(opts.Geometry))
		case FormatJSON:
			data, err = sink.RenderJSON(frame, sink.WithJSONGeometry(opts.Geometry), sink.WithJSONStats())
		default:
			return nil, fmt.Errorf("unsupported flame format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func renderNodelink(e *flame.Engine, root *flame.Node, frame viewport.Frame, opts Options) (map[string][]byte, error) {
	dot := nodelink.ToDOT(e, root, frame.Offset, frame.Offset+frame.Width, nodelink.Options{
		Detailed: opts.Detailed,
		MaxNodes: opts.MaxNodes,
	})

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = nodelink.RenderSVG(dot)
		case FormatPNG:
			data, err = nodelink.RenderPNG(dot)
		default:
			return nil, fmt.Errorf("unsupported nodelink format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
