// Package mcp implements the Model Context Protocol (MCP) server for filechunk.
//
// The MCP server exposes three tools:
//   - split_file: Split a file into numbered chunk files
//   - list_chunks: List the chunks of the last split of a file
//   - get_status: Manifest statistics, optionally for one file
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport. Stdout carries the
// protocol, so the server logs to stderr only.
//
// # Basic Usage
//
//	filechunk serve
//
// # Tool: split_file
//
//	Request:
//	{
//	  "name": "split_file",
//	  "arguments": {
//	    "path": "/data/access.log",
//	    "output_dir": "/data/chunks",
//	    "max_bytes": "32MB",
//	    "oversized_token": "fail"
//	  }
//	}
//
//	Response:
//	{
//	  "split": true,
//	  "skipped": false,
//	  "mode": "bytes",
//	  "run_id": "5f0c...",
//	  "chunks_created": 4,
//	  "chunks": [
//	    {"sequence": 0, "path": "/data/chunks/0", "offset": 0, "size": 33554421},
//	    ...
//	  ]
//	}
//
// Exactly one of max_lines and max_bytes may be given. When neither is, the
// limits from FILECHUNK_MAX_LINES or FILECHUNK_MAX_BYTES apply. Only one
// split runs at a time; a second call fails with ErrorCodeRunInProgress.
//
// # Error Codes
//
//   - -32602: Invalid parameters
//   - -32603: Internal error
//   - -32001: Source file missing or unreadable
//   - -32002: Split already in progress
//   - -32003: Source not chunked
//   - -32004: Token longer than max_bytes
package mcp
