package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/storage"
)

func statusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [docs-root]",
		Short: "Show indexed docs roots and their statistics",
		Long: `Show every indexed docs root, or just one.

Examples:
  docsearch status
  docsearch status ./docs -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()

			var snapshots []*storage.Snapshot
			if len(args) == 1 {
				root, err := filepath.Abs(args[0])
				if err != nil {
					return fmt.Errorf("failed to resolve docs root: %w", err)
				}
				snapshot, err := store.GetSnapshot(ctx, root)
				if err != nil {
					return fmt.Errorf("docs root %s: %w", root, err)
				}
				snapshots = append(snapshots, snapshot)
			} else {
				snapshots, err = store.ListSnapshots(ctx)
				if err != nil {
					return fmt.Errorf("failed to list snapshots: %w", err)
				}
			}

			dbPath, err := a.cfg.DatabaseFile()
			if err != nil {
				return err
			}
			result := StatusResult{
				Database:  dbPath,
				Driver:    storage.DriverName,
				Snapshots: make([]SnapshotInfo, 0, len(snapshots)),
			}

			for _, snapshot := range snapshots {
				status, err := store.GetStatus(ctx, snapshot.ID)
				if err != nil {
					return fmt.Errorf("failed to get status of %s: %w", snapshot.RootPath, err)
				}
				result.IndexSizeBytes = status.IndexSizeBytes

				categories := make(map[string]int, len(status.Categories))
				for c, n := range status.Categories {
					categories[string(c)] = n
				}
				result.Snapshots = append(result.Snapshots, SnapshotInfo{
					DocsRoot:         snapshot.RootPath,
					SearchDir:        snapshot.SearchDir,
					IndexVersion:     snapshot.IndexVersion,
					LastIndexedAt:    snapshot.LastIndexedAt,
					IndexDurationMS:  snapshot.IndexDuration.Milliseconds(),
					FilesCount:       status.FilesCount,
					FailedFiles:      status.FailedFiles,
					EntriesCount:     status.EntriesCount,
					OccurrencesCount: status.OccurrencesCount,
					Categories:       categories,
				})
			}

			return outputResult(cmd.OutOrStdout(), result, a.opts.outputFmt)
		},
	}

	return cmd
}
