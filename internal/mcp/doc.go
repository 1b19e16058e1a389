// Package mcp implements the Model Context Protocol (MCP) server for gatestub.
//
// The MCP server exposes four tools to AI coding assistants:
//   - scan_gateways: Classify the stubs a directory needs, without writing
//   - render_stub: Render the stub text of one gateway file
//   - get_status: Show the latest recorded scan of a directory
//   - find_symbol: List the gateways exporting a symbol
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The MCP server is started via the serve command:
//
//	gatestub serve
//
// # Tool: scan_gateways
//
//	Request:
//	{
//	  "name": "scan_gateways",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "include_unchanged": false,
//	    "record": true
//	  }
//	}
//
//	Response:
//	{
//	  "path": "/path/to/project",
//	  "counts": {"create": 1, "overwrite": 0, "unchanged": 4},
//	  "create": [{"stub_path": "app/__init__.pyi", "symbols": 3}],
//	  "overwrite": [],
//	  "duration_ms": 41,
//	  "run_id": 12
//	}
//
// Only one scan runs at a time; a second request while one is in progress
// fails with ErrorCodeScanInProgress instead of waiting.
//
// # Tool: render_stub
//
//	Request:
//	{
//	  "name": "render_stub",
//	  "arguments": {"path": "/path/to/project/app/__init__.py"}
//	}
//
// The response carries the stub body, its symbols and the bucket it would
// land in. Unparseable gateways and gateways without exported symbols fail
// with ErrorCodeNotRenderable.
//
// # Tool: get_status and find_symbol
//
// Both read run history and fail with ErrorCodeHistoryDisabled when the
// server was started with --no-history. find_symbol answers from the latest
// recorded scan of the path:
//
//	Request:
//	{
//	  "name": "find_symbol",
//	  "arguments": {"path": "/path/to/project", "symbol": "Model"}
//	}
//
//	Response:
//	{
//	  "symbol": "Model",
//	  "run_id": 12,
//	  "matches": [{"init_path": ".../app/__init__.py", "stub_path": ".../app/__init__.pyi", "bucket": "create"}],
//	  "cache_hit": false
//	}
//
// # Error Codes
//
//	-32602  Invalid params (missing, relative or non-existent path)
//	-32603  Internal error
//	-32002  Scan in progress
//	-32003  Directory not scanned
//	-32004  Gateway not renderable
//	-32005  History disabled
//	-32006  Configuration of the directory could not be loaded
package mcp
