package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

func sectionsCmd(a *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "sections <docs-root>",
		Short: "List the first-letter runs of one stored category",
		Long: `List where each first letter starts in a category's stored order, the
way a viewer builds its letter index.

Examples:
  docsearch sections ./docs
  docsearch sections ./docs --category classes -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			return outputResult(cmd.OutOrStdout(), SectionsResult{
				DocsRoot: args[0],
				Category: string(resolved),
				Entries:  table.Len(),
				Sections: table.Sections(),
			}, a.opts.outputFmt)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category to inspect (default: all, then functions)")

	return cmd
}
