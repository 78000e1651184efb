package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/httpapi"
	"github.com/dshills/docsearch-mcp/internal/searcher"
)

func httpCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the HTTP search API",
		Long: `Serve GET /healthz, /api/search and /api/status until interrupted.

Examples:
  docsearch http
  docsearch http --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			srch := searcher.NewSearcher(store, a.logger.Named("searcher"), searcher.Options{
				CacheSize: a.cfg.CacheSize,
				CacheTTL:  a.cfg.CacheTTL,
			})
			api := httpapi.New(store, srch, a.logger.Named("http"))

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return api.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}
