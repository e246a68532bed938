package mcp

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/filechunk/internal/config"
	"github.com/dshills/filechunk/internal/splitter"
	"github.com/dshills/filechunk/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "filechunk"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	cfg      *config.Config
	storage  storage.Storage
	splitter *splitter.Splitter

	// Only one split runs at a time; others are rejected, not queued
	lock splitter.RunLock
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(cfg.DBPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Initialize storage
	store, err := storage.NewSQLiteStorage(cfg.DBFile())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		cfg:      cfg,
		storage:  store,
		splitter: splitter.New(store),
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	log.Printf("Manifest database: %s (%s build)", s.cfg.DBFile(), storage.BuildMode)
	return server.ServeStdio(s.mcp)
}

// Close releases the manifest database
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Register split_file tool
	s.mcp.AddTool(splitFileTool(), s.handleSplitFile)

	// Register list_chunks tool
	s.mcp.AddTool(listChunksTool(), s.handleListChunks)

	// Register get_status tool
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}
