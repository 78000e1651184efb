// docsearch indexes and queries the static search data that documentation
// generators emit, and serves it to AI agents over MCP.
//
// Usage:
//
//	docsearch index /path/to/docs
//	docsearch search /path/to/docs getX
//	docsearch export /path/to/docs --category functions --format js
//	docsearch status
//	docsearch serve
//	docsearch http --addr :8088
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/docsearch-mcp/internal/config"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// options holds the global flags
type options struct {
	configPath string
	dbPath     string
	debug      bool
	outputFmt  string
}

// app is the state shared by every subcommand once flags are parsed
type app struct {
	opts   options
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Index and search generated documentation symbols",
		Long: `docsearch loads the searchData files a documentation generator writes
under html/search/, stores them as snapshots and answers symbol lookups.

Prefix matches are listed before substring matches, each in the order the
generator wrote them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("docsearch %s\nBuild Time: %s\nBuild Mode: %s\nSQLite Driver: %s\n",
		version, buildTime, storage.BuildMode, storage.DriverName))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "Path to a YAML config file (default $"+config.EnvConfigFile+")")
	flags.StringVar(&a.opts.dbPath, "db", "", "Database directory or .db file (overrides config)")
	flags.BoolVar(&a.opts.debug, "debug", false, "Enable debug logging")
	flags.StringVarP(&a.opts.outputFmt, "output", "o", "table", "Output format: table, json, yaml")

	rootCmd.AddCommand(indexCmd(a))
	rootCmd.AddCommand(searchCmd(a))
	rootCmd.AddCommand(exportCmd(a))
	rootCmd.AddCommand(sectionsCmd(a))
	rootCmd.AddCommand(statusCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(httpCmd(a))

	return rootCmd
}

// setup loads the configuration and builds the logger
func (a *app) setup() error {
	switch a.opts.outputFmt {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", a.opts.outputFmt)
	}

	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.dbPath != "" {
		cfg.DBPath = a.opts.dbPath
	}
	a.cfg = cfg

	logger, err := newLogger(a.opts.debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger
	return nil
}

// openStore opens the configured database. Callers close it.
func (a *app) openStore() (storage.Storage, error) {
	path, err := a.cfg.DatabaseFile()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("opening database", zap.String("path", path), zap.String("driver", storage.DriverName))

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// newLogger writes to stderr since stdout carries MCP messages and command
// output
func newLogger(debug bool) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	if debug {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConfig.OutputPaths = []string{"stderr"}
	logConfig.ErrorOutputPaths = []string{"stderr"}
	return logConfig.Build()
}
