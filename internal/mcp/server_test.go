package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/dshills/filechunk/internal/chunker"
	"github.com/dshills/filechunk/internal/config"
)

type toolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ServerTestSuite exercises the tool handlers against a real manifest
type ServerTestSuite struct {
	suite.Suite
	server *Server
	ctx    context.Context
	dir    string
	outDir string
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

// SetupTest creates a fresh server for each test
func (s *ServerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	s.outDir = filepath.Join(s.dir, "out")
	s.Require().NoError(os.Mkdir(s.outDir, 0755))

	server, err := NewServer(&config.Config{
		DBPath:  filepath.Join(s.dir, "db"),
		Workers: 2,
	})
	s.Require().NoError(err)
	s.server = server
}

// TearDownTest closes the manifest
func (s *ServerTestSuite) TearDownTest() {
	if s.server != nil {
		_ = s.server.Close()
	}
}

func (s *ServerTestSuite) writeSource(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0644))
	return path
}

func (s *ServerTestSuite) call(handler toolHandler, args map[string]interface{}) (map[string]interface{}, error) {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args

	result, err := handler(s.ctx, request)
	if err != nil {
		return nil, err
	}

	s.Require().NotNil(result)
	s.Require().Len(result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	s.Require().True(ok, "result should be text content")

	var response map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(text.Text), &response))
	return response, nil
}

func (s *ServerTestSuite) requireCode(err error, code int) {
	s.Require().Error(err)
	var mcpErr *MCPError
	s.Require().True(errors.As(err, &mcpErr), "expected MCPError, got %T: %v", err, err)
	s.Equal(code, mcpErr.Code, mcpErr.Message)
}

func lines(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "record %d\n", i)
	}
	return sb.String()
}

func (s *ServerTestSuite) TestServerComponents() {
	s.NotNil(s.server.mcp, "MCP server should be initialized")
	s.NotNil(s.server.storage, "Storage should be initialized")
	s.NotNil(s.server.splitter, "Splitter should be initialized")
	s.FileExists(filepath.Join(s.dir, "db", config.DBFileName))
}

func (s *ServerTestSuite) TestSplitFile_Lines() {
	src := s.writeSource("a.log", lines(2500))

	response, err := s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
		"max_lines":  float64(1000),
	})
	s.Require().NoError(err)

	s.Equal(true, response["split"])
	s.Equal(false, response["skipped"])
	s.Equal("lines", response["mode"])
	s.Equal(float64(3), response["chunks_created"])
	s.NotEmpty(response["run_id"])

	chunks, ok := response["chunks"].([]interface{})
	s.Require().True(ok)
	s.Require().Len(chunks, 3)
	last := chunks[2].(map[string]interface{})
	s.Equal(float64(2000), last["line_start"])
	s.Equal(float64(2500), last["line_end"])
	s.Equal(filepath.Join(s.outDir, "2"), last["path"])

	// Unchanged input is skipped
	response, err = s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
		"max_lines":  float64(1000),
	})
	s.Require().NoError(err)
	s.Equal(true, response["skipped"])

	// force re-runs
	response, err = s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
		"max_lines":  float64(1000),
		"force":      true,
	})
	s.Require().NoError(err)
	s.Equal(false, response["skipped"])
}

func (s *ServerTestSuite) TestSplitFile_BytesWithUnits() {
	src := s.writeSource("words.txt", strings.Repeat("lorem ipsum dolor sit amet ", 100))

	response, err := s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
		"max_bytes":  "1KiB",
	})
	s.Require().NoError(err)

	s.Equal("bytes", response["mode"])
	s.Equal(float64(2700), response["bytes_written"])
	for _, entry := range response["chunks"].([]interface{}) {
		chunk := entry.(map[string]interface{})
		s.LessOrEqual(chunk["size"].(float64), float64(1024))
		s.NotContains(chunk, "line_start")
	}
}

func (s *ServerTestSuite) TestSplitFile_TokenTooLarge() {
	src := s.writeSource("token.txt", "a "+strings.Repeat("x", 64)+" b")

	_, err := s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
		"max_bytes":  float64(16),
	})
	s.requireCode(err, ErrorCodeTokenTooLarge)

	response, err := s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":            src,
		"output_dir":      s.outDir,
		"max_bytes":       float64(16),
		"oversized_token": "split",
	})
	s.Require().NoError(err)
	s.Equal(float64(68), response["bytes_written"])
}

func (s *ServerTestSuite) TestSplitFile_Validation() {
	src := s.writeSource("a.log", "one\ntwo\n")

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{
			name: "missing path",
			args: map[string]interface{}{"output_dir": s.outDir, "max_lines": float64(1)},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "relative path",
			args: map[string]interface{}{"path": "a.log", "output_dir": s.outDir, "max_lines": float64(1)},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "source does not exist",
			args: map[string]interface{}{"path": filepath.Join(s.dir, "nope"), "output_dir": s.outDir, "max_lines": float64(1)},
			code: ErrorCodeSourceNotFound,
		},
		{
			name: "source is a directory",
			args: map[string]interface{}{"path": s.outDir, "output_dir": s.outDir, "max_lines": float64(1)},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "output dir missing",
			args: map[string]interface{}{"path": src, "output_dir": filepath.Join(s.dir, "missing"), "max_lines": float64(1)},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "output dir is a file",
			args: map[string]interface{}{"path": src, "output_dir": src, "max_lines": float64(1)},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "both limits",
			args: map[string]interface{}{"path": src, "output_dir": s.outDir, "max_lines": float64(1), "max_bytes": float64(1)},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "no limit and no default",
			args: map[string]interface{}{"path": src, "output_dir": s.outDir},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "zero max_lines",
			args: map[string]interface{}{"path": src, "output_dir": s.outDir, "max_lines": float64(0)},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "bad size",
			args: map[string]interface{}{"path": src, "output_dir": s.outDir, "max_bytes": "huge"},
			code: ErrorCodeInvalidParams,
		},
		{
			name: "bad oversized policy",
			args: map[string]interface{}{"path": src, "output_dir": s.outDir, "max_bytes": float64(8), "oversized_token": "truncate"},
			code: ErrorCodeInvalidParams,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.call(s.server.handleSplitFile, tt.args)
			s.requireCode(err, tt.code)
		})
	}

	// Nothing above touched the output directory
	entries, err := os.ReadDir(s.outDir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ServerTestSuite) TestSplitFile_DefaultStrategy() {
	s.server.cfg.MaxLines = 2
	src := s.writeSource("a.log", lines(5))

	response, err := s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
	})
	s.Require().NoError(err)
	s.Equal(float64(3), response["chunks_created"])
}

func (s *ServerTestSuite) TestSplitFile_RunInProgress() {
	src := s.writeSource("a.log", lines(5))

	s.Require().True(s.server.lock.TryAcquire())
	_, err := s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
		"max_lines":  float64(1),
	})
	s.requireCode(err, ErrorCodeRunInProgress)

	s.server.lock.Release()
	_, err = s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
		"max_lines":  float64(1),
	})
	s.NoError(err)
	s.False(s.server.lock.Running())
}

func (s *ServerTestSuite) TestListChunks() {
	src := s.writeSource("a.log", lines(30))

	_, err := s.call(s.server.handleListChunks, map[string]interface{}{"path": src})
	s.requireCode(err, ErrorCodeNotChunked)

	_, err = s.call(s.server.handleListChunks, map[string]interface{}{"path": "relative.log"})
	s.requireCode(err, ErrorCodeInvalidParams)

	_, err = s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
		"max_lines":  float64(10),
	})
	s.Require().NoError(err)

	response, err := s.call(s.server.handleListChunks, map[string]interface{}{"path": src})
	s.Require().NoError(err)
	s.Equal(src, response["path"])
	s.Equal(s.outDir, response["output_dir"])
	s.Equal(float64(3), response["chunk_count"])
	s.Len(response["chunks"], 3)
}

func (s *ServerTestSuite) TestGetStatus() {
	response, err := s.call(s.server.handleGetStatus, map[string]interface{}{})
	s.Require().NoError(err)
	stats := response["statistics"].(map[string]interface{})
	s.Equal(float64(0), stats["sources_count"])
	s.NotContains(response, "last_chunked_at")

	src := s.writeSource("a.log", lines(30))
	_, err = s.call(s.server.handleSplitFile, map[string]interface{}{
		"path":       src,
		"output_dir": s.outDir,
		"max_lines":  float64(10),
	})
	s.Require().NoError(err)

	response, err = s.call(s.server.handleGetStatus, map[string]interface{}{"path": src})
	s.Require().NoError(err)
	stats = response["statistics"].(map[string]interface{})
	s.Equal(float64(1), stats["sources_count"])
	s.Equal(float64(3), stats["chunks_count"])
	s.Contains(response, "last_chunked_at")

	source := response["source"].(map[string]interface{})
	s.Equal(true, source["chunked"])
	s.Equal(float64(10), source["max_lines"])

	response, err = s.call(s.server.handleGetStatus, map[string]interface{}{"path": filepath.Join(s.dir, "other.log")})
	s.Require().NoError(err)
	source = response["source"].(map[string]interface{})
	s.Equal(false, source["chunked"])
}

func TestNewServer_RequiresConfig(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}

func TestSplitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "invalid config", err: chunker.LineBounded{}.Validate(), code: ErrorCodeInvalidParams},
		{name: "other", err: errors.New("disk on fire"), code: ErrorCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mcpErr *MCPError
			require.True(t, errors.As(splitError(tt.err), &mcpErr))
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.ErrorIs(t, validatePath("", false), ErrPathRequired)
	assert.ErrorIs(t, validatePath("rel", false), ErrPathNotAbsolute)
	assert.ErrorIs(t, validatePath(filepath.Join(dir, "missing"), false), ErrPathNotFound)
	assert.ErrorIs(t, validatePath(dir, false), ErrNotRegularFile)
	assert.ErrorIs(t, validatePath(file, true), ErrNotDirectory)
	assert.NoError(t, validatePath(file, false))
	assert.NoError(t, validatePath(dir, true))
}
