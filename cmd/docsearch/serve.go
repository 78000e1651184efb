package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docsearch-mcp/internal/httpapi"
	"github.com/dshills/docsearch-mcp/internal/mcp"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

func serveCmd(a *app) *cobra.Command {
	var withHTTP bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Run the MCP server on stdio. Logs go to stderr.

With --http the HTTP API is served alongside on the configured address and
shares the MCP server's table cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			server, err := mcp.NewServer(a.cfg, store, a.logger.Named("mcp"))
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a.logger.Info("docsearch MCP server starting",
				zap.String("version", version),
				zap.String("build_mode", storage.BuildMode),
				zap.String("driver", storage.DriverName),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				// ServeStdio returns on EOF or its own signal handling
				defer cancel()
				return server.Serve(gctx)
			})
			if withHTTP {
				api := httpapi.New(store, server.Searcher(), a.logger.Named("http"))
				g.Go(func() error {
					return api.ListenAndServe(gctx, a.cfg.HTTPAddr)
				})
			}

			err = g.Wait()
			a.logger.Info("server stopped")
			return err
		},
	}

	cmd.Flags().BoolVar(&withHTTP, "http", false, "Also serve the HTTP API")

	return cmd
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
