// Package pkg provides the core libraries for bbflame trace visualization.
//
// # Overview
//
// bbflame renders a profiled execution trace, a forest of nested
// call and basic-block intervals, as a scrollable flame graph: one row per
// nesting depth, one box per interval, panned horizontally across a canvas
// much wider than the screen. The pkg directory is organized into:
//
//  1. [flame] - Layout engine, name resolution and color assignment
//  2. [viewport] - Active root, scroll offset and cell geometry
//  3. [trace] - Trace documents, symbol tables and host label files
//  4. [render] - SVG, PNG, JSON and Graphviz output
//  5. [pipeline] - Orchestration (load → layout → render → cache)
//  6. [cache], [session], [server], [observability] - Infrastructure
//
// # Architecture
//
//	Trace document (JSON / YAML, optionally LZ4 framed)
//	         ↓
//	    [trace] package (validated forest + symbols)
//	         ↓
//	    [viewport] package (select root, scroll, resize)
//	         ↓
//	    [flame] package (cull, clip, name, color)
//	         ↓
//	    terminal viewer, HTTP viewer or SVG/PNG/JSON/DOT files
//
// # Quick Start
//
//	src, _ := trace.Load("run.json.lz4")
//	ctrl := viewport.New(src, viewport.WithSymbols(src), viewport.WithSeed(1))
//	frame, _ := ctrl.SelectRoot(0)
//	frame, _ = ctrl.Resize(120)
//	svg := sink.RenderSVG(frame)
//
// Layout passes only visit nodes that intersect the window, so panning a
// trace with millions of intervals stays proportional to what is visible.
//
// [flame]: github.com/matzehuels/bbflame/pkg/flame
// [viewport]: github.com/matzehuels/bbflame/pkg/viewport
// [trace]: github.com/matzehuels/bbflame/pkg/trace
// [render]: github.com/matzehuels/bbflame/pkg/render
// [pipeline]: github.com/matzehuels/bbflame/pkg/pipeline
// [cache]: github.com/matzehuels/bbflame/pkg/cache
// [session]: github.com/matzehuels/bbflame/pkg/session
// [server]: github.com/matzehuels/bbflame/pkg/server
// [observability]: github.com/matzehuels/bbflame/pkg/observability
package pkg
