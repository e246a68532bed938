// Package config loads runtime settings from an optional .env file and the
// process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/dshills/filechunk/internal/chunker"
)

const (
	// DefaultDBPath is the default directory holding the manifest database
	DefaultDBPath = "~/.filechunk"
	// DBFileName is the manifest database file inside the DB path
	DBFileName = "manifest.db"
)

// Environment variable names
const (
	EnvDBPath    = "FILECHUNK_DB_PATH"
	EnvWorkers   = "FILECHUNK_WORKERS"
	EnvMaxLines  = "FILECHUNK_MAX_LINES"
	EnvMaxBytes  = "FILECHUNK_MAX_BYTES"
	EnvOversized = "FILECHUNK_OVERSIZED"
)

// Config holds the application settings
type Config struct {
	// DBPath is the directory of the manifest database
	DBPath string
	// Workers bounds how many sources are chunked concurrently
	Workers int

	// Default policy for requests that set neither limit
	MaxLines  int
	MaxBytes  int
	Oversized chunker.OversizedPolicy
}

// Load reads envFilePath if it exists, then the environment. A missing
// .env file is not an error.
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	dbPath, err := expandHome(getEnv(EnvDBPath, DefaultDBPath))
	if err != nil {
		return nil, err
	}

	workers, err := getEnvAsInt(EnvWorkers, runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, fmt.Errorf("%s must be >= 1, got %d", EnvWorkers, workers)
	}

	maxLines, err := getEnvAsInt(EnvMaxLines, 0)
	if err != nil {
		return nil, err
	}

	maxBytes, err := getEnvAsBytes(EnvMaxBytes, 0)
	if err != nil {
		return nil, err
	}

	oversized, err := chunker.ParseOversizedPolicy(getEnv(EnvOversized, ""))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvOversized, err)
	}

	cfg := &Config{
		DBPath:    dbPath,
		Workers:   workers,
		MaxLines:  maxLines,
		MaxBytes:  maxBytes,
		Oversized: oversized,
	}
	return cfg, nil
}

// DBFile returns the path of the manifest database file
func (c *Config) DBFile() string {
	return filepath.Join(c.DBPath, DBFileName)
}

// DefaultStrategy builds the strategy used when a request sets no limit.
// It fails when the environment configures neither or both limits.
func (c *Config) DefaultStrategy() (chunker.Strategy, error) {
	return chunker.NewStrategy(c.MaxLines, c.MaxBytes, c.Oversized)
}

// ParseSize parses a byte size such as "4096", "150k" or "32MB"
func ParseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > uint64(maxInt) {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// getEnv returns the value of key, or defaultValue when it is unset or empty
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns the integer value of key
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

// getEnvAsBytes returns the byte size value of key
func getEnvAsBytes(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := ParseSize(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
