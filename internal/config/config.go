// Package config loads docsearch settings from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	EnvConfigFile = "DOCSEARCH_CONFIG"
	EnvDBPath     = "DOCSEARCH_DB_PATH"
	EnvWorkers    = "DOCSEARCH_WORKERS"
	EnvHTTPAddr   = "DOCSEARCH_HTTP_ADDR"
	EnvCacheSize  = "DOCSEARCH_CACHE_SIZE"
)

const (
	DefaultDBDir     = "~/.docsearch"
	DefaultDBFile    = "docsearch.db"
	DefaultCacheSize = 128
	DefaultCacheTTL  = 10 * time.Minute
	DefaultHTTPAddr  = ":8088"
)

// Config holds the settings shared by every front end
type Config struct {
	// DBPath is a directory holding DefaultDBFile, or a path ending in .db
	DBPath    string        `yaml:"db_path"`
	Workers   int           `yaml:"workers"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	HTTPAddr  string        `yaml:"http_addr"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		DBPath:    DefaultDBDir,
		Workers:   runtime.NumCPU(),
		CacheSize: DefaultCacheSize,
		CacheTTL:  DefaultCacheTTL,
		HTTPAddr:  DefaultHTTPAddr,
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// DOCSEARCH_CONFIG variable is consulted, and a missing variable means no
// file. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvWorkers, v, err)
		}
		c.Workers = n
	}
	if v := os.Getenv(EnvCacheSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCacheSize, v, err)
		}
		c.CacheSize = n
	}
	return nil
}

// Validate reports the first unusable setting
func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("db_path cannot be empty")
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.CacheSize < 1:
		return fmt.Errorf("cache_size must be at least 1, got %d", c.CacheSize)
	case c.CacheTTL <= 0:
		return fmt.Errorf("cache_ttl must be positive, got %s", c.CacheTTL)
	case c.HTTPAddr == "":
		return errors.New("http_addr cannot be empty")
	}
	return nil
}

// DatabaseFile resolves DBPath to the SQLite file, expanding a leading ~
// and creating the parent directory. ":memory:" is returned unchanged.
func (c *Config) DatabaseFile() (string, error) {
	if c.DBPath == ":memory:" {
		return c.DBPath, nil
	}

	path, err := expandHome(c.DBPath)
	if err != nil {
		return "", err
	}

	dir := path
	if filepath.Ext(path) == ".db" {
		dir = filepath.Dir(path)
	} else {
		path = filepath.Join(path, DefaultDBFile)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !hasHomePrefix(path) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func hasHomePrefix(path string) bool {
	return len(path) > 1 && path[0] == '~' && path[1] == filepath.Separator
}
