package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/filechunk/internal/chunker"
	"github.com/dshills/filechunk/internal/config"
	"github.com/dshills/filechunk/internal/splitter"
	"github.com/dshills/filechunk/internal/storage"
	"github.com/dshills/filechunk/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeSourceNotFound = -32001 // Source file missing or unreadable
	ErrorCodeRunInProgress  = -32002 // Another split is already running
	ErrorCodeNotChunked     = -32003 // Source has no manifest entry
	ErrorCodeTokenTooLarge  = -32004 // A token is longer than max_bytes
)

// maxListedChunks bounds the chunk list in tool responses
const maxListedChunks = 100

// handleSplitFile handles the split_file tool invocation
func (s *Server) handleSplitFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args, "path", false)
	if err != nil {
		return nil, err
	}
	outputDir, err := requirePath(args, "output_dir", true)
	if err != nil {
		return nil, err
	}

	strategy, err := s.strategyFromArgs(args)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid chunking parameters", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	force := getBoolDefault(args, "force", false)

	// Reject overlapping runs
	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeRunInProgress, "another split is already in progress", nil)
	}
	defer s.lock.Release()

	startTime := time.Now()
	result, err := s.splitter.SplitFile(ctx, path, outputDir, strategy, force)
	if err != nil {
		return nil, splitError(err)
	}

	var bytesWritten int64
	for _, c := range result.Chunks {
		bytesWritten += c.Size
	}

	// Format response
	response := map[string]interface{}{
		"split":          true,
		"skipped":        result.Skipped,
		"path":           result.Source.Path,
		"output_dir":     result.Source.OutputDir,
		"mode":           string(result.Source.Mode),
		"run_id":         result.Source.RunID,
		"chunks_created": len(result.Chunks),
		"bytes_written":  bytesWritten,
		"duration_ms":    time.Since(startTime).Milliseconds(),
	}
	addChunkList(response, result.Chunks)

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListChunks handles the list_chunks tool invocation
func (s *Server) handleListChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}

	source, chunks, err := s.splitter.Chunks(ctx, path)
	if errors.Is(err, splitter.ErrNotChunked) {
		return nil, newMCPError(ErrorCodeNotChunked, "source not chunked. Use split_file tool to chunk this file.", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list chunks", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"path":            source.Path,
		"output_dir":      source.OutputDir,
		"mode":            string(source.Mode),
		"run_id":          source.RunID,
		"chunk_count":     source.ChunkCount,
		"last_chunked_at": source.LastChunkedAt.Format(time.RFC3339),
	}
	addChunkList(response, chunks)

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok && request.Params.Arguments != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"running": s.lock.Running(),
		"statistics": map[string]interface{}{
			"sources_count":    status.SourcesCount,
			"chunks_count":     status.ChunksCount,
			"chunk_bytes":      status.ChunkBytes,
			"manifest_size_mb": fmt.Sprintf("%.2f", status.DBSizeMB),
		},
		"build_mode": storage.BuildMode,
	}
	if !status.LastChunkedAt.IsZero() {
		response["last_chunked_at"] = status.LastChunkedAt.Format(time.RFC3339)
	}

	path := getStringDefault(args, "path", "")
	if path == "" {
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	source, err := s.storage.GetSource(ctx, filepath.Clean(path))
	if errors.Is(err, storage.ErrNotFound) {
		response["source"] = map[string]interface{}{
			"path":    path,
			"chunked": false,
			"message": "Source not chunked. Use split_file tool to chunk this file.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get source status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response["source"] = map[string]interface{}{
		"path":            source.Path,
		"chunked":         true,
		"mode":            string(source.Mode),
		"max_lines":       source.MaxLines,
		"max_bytes":       source.MaxBytes,
		"oversized_token": source.Oversized,
		"output_dir":      source.OutputDir,
		"chunk_count":     source.ChunkCount,
		"size_bytes":      source.SizeBytes,
		"run_id":          source.RunID,
		"last_chunked_at": source.LastChunkedAt.Format(time.RFC3339),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// strategyFromArgs builds the chunking strategy of a request. When the
// request sets neither limit the configured default applies.
func (s *Server) strategyFromArgs(args map[string]interface{}) (chunker.Strategy, error) {
	oversized, err := chunker.ParseOversizedPolicy(getStringDefault(args, "oversized_token", s.cfg.Oversized.String()))
	if err != nil {
		return nil, err
	}

	_, hasLines := args["max_lines"]
	_, hasBytes := args["max_bytes"]
	if !hasLines && !hasBytes {
		return chunker.NewStrategy(s.cfg.MaxLines, s.cfg.MaxBytes, oversized)
	}

	maxLines := getIntDefault(args, "max_lines", 0)
	maxBytes, err := getSizeDefault(args, "max_bytes", 0)
	if err != nil {
		return nil, err
	}
	return chunker.NewStrategy(maxLines, maxBytes, oversized)
}

// splitError maps a splitter failure to an MCP error
func splitError(err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, types.ErrInvalidConfiguration):
		return newMCPError(ErrorCodeInvalidParams, "invalid chunking parameters", data)
	case errors.Is(err, types.ErrSourceOpen), errors.Is(err, types.ErrSourceRead):
		return newMCPError(ErrorCodeSourceNotFound, "source file is not readable", data)
	case errors.Is(err, types.ErrTokenTooLarge):
		return newMCPError(ErrorCodeTokenTooLarge, "token longer than max_bytes; retry with oversized_token=split", data)
	default:
		return newMCPError(ErrorCodeInternalError, "split failed", data)
	}
}

// addChunkList adds up to maxListedChunks chunk entries to a response
func addChunkList(response map[string]interface{}, chunks []*types.Chunk) {
	listed := chunks
	if len(listed) > maxListedChunks {
		listed = listed[:maxListedChunks]
		response["truncated"] = true
	}

	entries := make([]map[string]interface{}, 0, len(listed))
	for _, c := range listed {
		entry := map[string]interface{}{
			"sequence": c.Sequence,
			"path":     c.OutputPath,
			"offset":   c.Offset,
			"size":     c.Size,
		}
		if c.Mode == types.ModeLines {
			entry["line_start"] = c.LineStart
			entry["line_end"] = c.LineEnd
		}
		entries = append(entries, entry)
	}
	response["chunks"] = entries
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requirePath extracts an absolute path parameter and checks that it names
// an existing regular file, or an existing directory when wantDir is set
func requirePath(args map[string]interface{}, key string, wantDir bool) (string, error) {
	path, ok := args[key].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path, wantDir); err != nil {
		code := ErrorCodeInvalidParams
		if !wantDir && (errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrPathNotReadable)) {
			code = ErrorCodeSourceNotFound
		}
		return "", newMCPError(code, "invalid "+key, map[string]interface{}{
			"param":  key,
			"reason": err.Error(),
		})
	}
	return path, nil
}

// validatePath checks if a path exists and is accessible
func validatePath(path string, wantDir bool) error {
	if path == "" {
		return ErrPathRequired
	}

	// Check if path is absolute
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	// Check if path exists
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if wantDir {
		if !info.IsDir() {
			return ErrNotDirectory
		}
		return nil
	}

	if !info.Mode().IsRegular() {
		return ErrNotRegularFile
	}

	// Check if file is readable
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getSizeDefault extracts a byte size given as a number or a string with units
func getSizeDefault(args map[string]interface{}, key string, defaultValue int) (int, error) {
	if val, ok := args[key].(string); ok {
		return config.ParseSize(val)
	}
	return getIntDefault(args, key, defaultValue), nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNotRegularFile  = errors.New("path is not a regular file")
)
