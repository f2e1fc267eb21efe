// Package trace loads profiled execution traces and the labels users attach
// to them.
//
// A trace document lists the root intervals of a run and, optionally, the
// symbols the profiler knew about:
//
//	{
//	  "roots": [
//	    {"addr": 0, "size": 100, "children": [
//	      {"addr": "0x401000", "size": 40}
//	    ]}
//	  ],
//	  "symbols": [{"addr": "0x401000", "name": "main", "module": "app.exe"}]
//	}
//
// Documents are JSON or YAML, chosen by file extension, and may be wrapped
// in an LZ4 frame (trace.json.lz4). Addresses are either integers or hex
// strings with an optional 0x prefix.
//
// Every document is validated on load; see [flame.Forest.Validate]. A
// [Source] is therefore always safe to hand to the layout engine.
//
// Labels are user supplied names stored in TOML:
//
//	[labels]
//	"0x401000" = "decrypt_loop"
//
// They take precedence over profiler symbols when naming boxes.
package trace
