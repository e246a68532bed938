package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// splitFileTool returns the tool definition for split_file
func splitFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "split_file",
		Description: "Split a file into numbered chunk files, either by line count or by byte size without breaking words",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the source file",
				},
				"output_dir": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to an existing directory that receives chunk files named 0, 1, 2, ...",
				},
				"max_lines": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum lines per chunk. Mutually exclusive with max_bytes",
					"minimum":     1,
				},
				"max_bytes": map[string]interface{}{
					"type":        []string{"integer", "string"},
					"description": "Maximum bytes per chunk, as a number or a size such as \"32MB\". Mutually exclusive with max_lines",
				},
				"oversized_token": map[string]interface{}{
					"type":        "string",
					"description": "What to do when a single token is longer than max_bytes: fail the run, or split the token",
					"enum":        []string{"fail", "split"},
					"default":     "fail",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-chunk even when the previous output is still current",
					"default":     false,
				},
			},
			Required: []string{"path", "output_dir"},
		},
	}
}

// listChunksTool returns the tool definition for list_chunks
func listChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_chunks",
		Description: "List the chunk files produced by the last successful split of a source file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the source file",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query manifest statistics, optionally for one source file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a source file (optional)",
				},
			},
		},
	}
}
