package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

func searchCmd(a *app) *cobra.Command {
	var (
		category   string
		limit      int
		prefixOnly bool
		owner      string
	)

	cmd := &cobra.Command{
		Use:   "search <docs-root> [query]",
		Short: "Look up documented symbols by name",
		Long: `Look up symbols whose name contains the query, ignoring case. Prefix
matches come first. Without a query the whole category is listed.

Examples:
  docsearch search ./docs getX
  docsearch search ./docs scale --category functions -o json
  docsearch search ./docs get --owner SoundInfo --limit 5`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 1 {
				query = args[1]
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
			resp, err := srch.Search(cmd.Context(), searcher.SearchRequest{
				DocsRoot:   args[0],
				Query:      query,
				Category:   types.Category(strings.ToLower(category)),
				Limit:      limit,
				PrefixOnly: prefixOnly,
				Owner:      owner,
			})
			if err != nil {
				return err
			}

			result := SearchResult{
				Query:    query,
				Category: string(resp.Category),
				Total:    resp.TotalMatches,
				Results:  make([]EntryInfo, len(resp.Results)),
			}
			for i, r := range resp.Results {
				result.Results[i] = entryInfo(r)
			}
			return outputResult(cmd.OutOrStdout(), result, a.opts.outputFmt)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Search index section (default: all, then functions)")
	cmd.Flags().IntVarP(&limit, "limit", "n", searcher.DefaultLimit, "Maximum number of results")
	cmd.Flags().BoolVar(&prefixOnly, "prefix-only", false, "Drop substring matches")
	cmd.Flags().StringVar(&owner, "owner", "", "Keep occurrences whose owner starts with this")

	return cmd
}

func entryInfo(r types.SearchResult) EntryInfo {
	info := EntryInfo{
		Rank:        r.Rank,
		Key:         r.Entry.Key,
		Name:        r.Entry.DisplayName,
		Match:       string(r.Match),
		Owners:      r.Entry.Owners(),
		Occurrences: make([]OccurrenceInfo, len(r.Entry.Occurrences)),
	}
	for i, o := range r.Entry.Occurrences {
		info.Occurrences[i] = OccurrenceInfo{
			Anchor:   o.Anchor,
			Page:     o.Page(),
			Fragment: o.Fragment(),
			Owner:    o.Owner,
		}
	}
	return info
}
