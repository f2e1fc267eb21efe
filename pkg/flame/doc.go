// Package flame lays out profiled execution traces as flame graphs.
//
// # Overview
//
// A trace is a forest of weighted interval nodes: every [Node] is one
// call or basic-block occurrence with an address and a size (sample or
// instruction count). Children are ordered by their offset inside the parent
// and are packed left to right, one column inward from the parent's left
// edge. A flame graph draws one row per nesting depth and one box per node.
//
// The package turns a root plus a visible column window into the minimal set
// of on-screen boxes:
//
//	engine := flame.NewEngine(forest, flame.NewResolver(symbols, labels), flame.NewColorCache(nil))
//	rows := engine.Layout(forest.Roots[0], 0, 120)
//	for _, depth := range rows.Depths() {
//	    for _, box := range rows[depth] {
//	        fmt.Println(depth, box.X0, box.X1, box.Name)
//	    }
//	}
//
// # Culling
//
// [Engine.Layout] walks the tree breadth-first. A node whose span
// [x, x+size) misses the window is dropped together with its whole subtree.
// This is correct because every child span lies inside
// [parent.x+1, parent.x+parent.size); [Forest.Validate] rejects traces that
// break this containment, so the cull never hides a visible descendant. The
// cost of a pass is bounded by the visible nodes and their ancestors, not by
// the size of the trace.
//
// # Names and Colors
//
// A [Resolver] names each node from the host's labels first, then the
// trace's symbol table, then a "proc_<HEX>" placeholder; it never fails. The
// node's [Category] (root, resolved, unresolved) picks a [Theme], and the
// [ColorCache] draws one random color per address on first sight and keeps
// it for the cache's lifetime so repeated draws do not flicker.
//
// # Concurrency
//
// An [Engine] and its [ColorCache] belong to one view and are not safe for
// concurrent use. Nodes are only read during layout, so several engines may
// share one [Forest].
package flame
