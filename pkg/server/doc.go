// Package server serves an interactive flame view of one trace over HTTP.
//
// Each browser tab creates a view session and then drives it with small
// requests: pick a root, scroll, fetch the current frame as SVG, PNG or
// JSON. Sessions own their controller, so two tabs looking at the same
// trace scroll independently and keep their own colors.
//
// # Routes
//
//	GET    /api/roots                       root summaries of the trace
//	POST   /api/sessions                    create a session (?root=&width=)
//	GET    /api/sessions/{id}               session state
//	DELETE /api/sessions/{id}               end a session
//	POST   /api/sessions/{id}/root/{index}  select a root
//	POST   /api/sessions/{id}/scroll        pan by ?delta= or ?step=left|right
//	GET    /api/sessions/{id}/frame.{fmt}   current frame (?width=)
//	GET    /metrics                         Prometheus metrics, when enabled
//	GET    /healthz                         liveness and build info
//
// Rendered frames are cached per session through a [cache.ScopedKeyer], so
// flipping back and forth between windows skips layout and rendering.
// Errors are returned as JSON with the [errors.Code] of the failure.
package server
