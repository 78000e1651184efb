package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/indexer"
	"github.com/dshills/docsearch-mcp/internal/parser"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

func indexCmd(a *app) *cobra.Command {
	var (
		force      bool
		workers    int
		categories []string
	)

	cmd := &cobra.Command{
		Use:   "index <docs-root>",
		Short: "Index the search data of a documentation tree",
		Long: `Index the searchData files under <docs-root>/search, <docs-root>/html/search
or <docs-root> itself. Unchanged files are skipped on later runs.

Examples:
  # Index everything
  docsearch index ./docs

  # Only functions and classes, rebuilt from scratch
  docsearch index ./docs --category functions --category classes --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := parseCategories(categories)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = a.cfg.Workers
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve docs root: %w", err)
			}

			idx := indexer.New(store, a.logger.Named("indexer"))
			stats, err := idx.IndexDocs(cmd.Context(), root, &indexer.Config{
				Workers:    workers,
				Categories: cats,
				Force:      force,
			})
			if err != nil {
				return err
			}

			return outputResult(cmd.OutOrStdout(), IndexResult{
				DocsRoot:      root,
				SearchDir:     stats.SearchDir,
				FilesIndexed:  stats.FilesIndexed,
				FilesSkipped:  stats.FilesSkipped,
				FilesFailed:   stats.FilesFailed,
				FilesRemoved:  stats.FilesRemoved,
				EntriesStored: stats.EntriesStored,
				DurationMS:    stats.Duration.Milliseconds(),
				Errors:        stats.ErrorMessages,
			}, a.opts.outputFmt)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Discard the stored snapshot and rebuild it")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent parse workers (default from config)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Only index these categories (repeatable)")

	return cmd
}

// parseCategories rejects names that cannot prefix a search index file
func parseCategories(names []string) ([]types.Category, error) {
	cats := make([]types.Category, 0, len(names))
	for _, name := range names {
		if !parser.IsCategoryName(name) {
			return nil, fmt.Errorf("invalid category %q", name)
		}
		cats = append(cats, types.Category(name))
	}
	return cats, nil
}
