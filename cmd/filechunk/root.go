package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/filechunk/internal/config"
	"github.com/dshills/filechunk/internal/mcp"
	"github.com/dshills/filechunk/internal/storage"
)

var (
	flagDB      string
	flagEnvFile string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "filechunk",
	Short: "Split large files into line- or size-bounded chunk files",
	Long: `filechunk splits a file into numbered chunk files, either by line count or
by byte size without breaking words, and records every run in a manifest.

Run without a subcommand to serve the MCP protocol on stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagEnvFile)
		if err != nil {
			return err
		}
		if flagDB != "" {
			cfg.DBPath = flagDB
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP protocol on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "manifest directory (default $FILECHUNK_DB_PATH or ~/.filechunk)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env", ".env", "environment file to load if present")
	rootCmd.AddCommand(serveCmd)
}

// runServe runs the MCP server until stdin closes or a signal arrives
func runServe(ctx context.Context) error {
	log.Printf("filechunk MCP server %s starting...", version)
	log.Printf("Build Mode: %s, Driver: %s", storage.BuildMode, storage.DriverName)

	server, err := mcp.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		log.Printf("Received %v, shutting down gracefully...", context.Cause(ctx))
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Println("Server stopped")
	return nil
}

// openStore opens the manifest database named by the configuration
func openStore() (*storage.SQLiteStorage, error) {
	if err := os.MkdirAll(cfg.DBPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.DBFile())
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	return store, nil
}
