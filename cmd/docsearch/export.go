package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/docsearch-mcp/internal/parser"
	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

func exportCmd(a *app) *cobra.Command {
	var (
		category string
		format   string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "export <docs-root>",
		Short: "Write one stored category back out as search data",
		Long: `Write the stored entries of one category either in the generator's
searchData format (js) or as JSON [key, [name, [[anchor, owner], ...]]] tuples.

Examples:
  docsearch export ./docs --category functions > functions_0.js
  docsearch export ./docs --format json --out all.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "js" && format != "json" {
				return fmt.Errorf("unknown export format %q (want js or json)", format)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			srch := searcher.NewSearcher(store, a.logger.Named("searcher"), searcher.Options{CacheSize: 1})
			table, resolved, err := srch.LoadTable(cmd.Context(), args[0], types.Category(category))
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			switch format {
			case "js":
				err = parser.Encode(&buf, table.Entries())
			case "json":
				var data []byte
				data, err = json.Marshal(table)
				if err == nil {
					err = json.Indent(&buf, data, "", "  ")
					buf.WriteByte('\n')
				}
			}
			if err != nil {
				return fmt.Errorf("failed to encode %s entries: %w", resolved, err)
			}

			a.logger.Debug("exporting",
				zap.String("category", string(resolved)),
				zap.Int("entries", table.Len()),
				zap.String("format", format),
			)

			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			return os.WriteFile(outPath, buf.Bytes(), 0644)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category to export (default: all, then functions)")
	cmd.Flags().StringVar(&format, "format", "js", "Export format: js, json")
	cmd.Flags().StringVar(&outPath, "out", "", "Write to this file instead of stdout")

	return cmd
}
