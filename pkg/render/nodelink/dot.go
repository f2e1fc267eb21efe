package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/bbflame/pkg/flame"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the address and size to node labels.
	Detailed bool
	// MaxNodes caps the number of nodes; 0 means no limit.
	MaxNodes int
}

// ToDOT converts the part of root visible in [minX, maxX) to Graphviz DOT.
// Nodes are identified by visiting order because addresses repeat.
func ToDOT(e *flame.Engine, root *flame.Node, minX, maxX int64, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"monospace\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	ids := make(map[*flame.Node]string)
	var edges []string
	e.Walk(root, minX, maxX, func(v flame.Visit) {
		if !v.Visible {
			return
		}
		if opts.MaxNodes > 0 && len(ids) >= opts.MaxNodes {
			return
		}
		id := "n" + strconv.Itoa(len(ids))
		ids[v.Node] = id

		label := fmtLabel(v.Box, opts.Detailed)
		fmt.Fprintf(&buf, "  %s [label=%q, fillcolor=%q];\n", id, label, v.Box.Color.Hex())
		if parent, ok := ids[v.Parent]; ok && v.Parent != nil {
			edges = append(edges, fmt.Sprintf("  %s -> %s;\n", parent, id))
		}
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(b flame.Box, detailed bool) string {
	if !detailed {
		return b.Name
	}
	parts := []string{b.Name, fmt.Sprintf("0x%x", b.Addr), fmt.Sprintf("size: %d", b.Size)}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	data, err := render(dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(data), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG)
}

func render(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a plain
// pixel viewBox so the diagram scales like the flame SVG.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
