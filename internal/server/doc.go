// Package server implements an MCP (Model Context Protocol) server for the
// two-stop tool.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// Logs go to stderr; stdout carries only protocol messages.
//
// # Available Tools
//
// Image information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_crop: Extract and magnify a region
//
// Processing:
//   - twostop_process: Run provider, transform and sink for one source
//   - twostop_sample: Show the source block behind chosen output pixels
//
// Inspection:
//   - image_histogram: Channel statistics
//   - image_preview: Downscaled two-stop or bypass rendition
//   - image_compare: Bypass vs two-stop composite and colour difference
//
// # Image Caching
//
// Decoded image files are cached by path for the lifetime of the server.
// twostop_process evicts the file it writes so later calls see the new
// result.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
package server
