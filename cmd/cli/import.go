package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dsjohal14/tourstack/internal/streamlite"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		chunk   int
		workers int
	)
	cmd := &cobra.Command{
		Use:   "import [dir]",
		Short: "Load seed files into the API (default dir from SEED_DIR)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.SeedDir
			if len(args) == 1 {
				dir = args[0]
			}

			conn := streamlite.NewFileConnector(dir)
			if err := conn.Start(); err != nil {
				return err
			}
			defer func() { _ = conn.Stop() }()

			batches, err := conn.Read(cmd.Context())
			if err != nil {
				return err
			}
			if a.parsedKind != "" {
				kept := batches[:0]
				for _, b := range batches {
					if b.Kind == a.parsedKind {
						kept = append(kept, b)
					}
				}
				batches = kept
			}

			stats, err := streamlite.Sync(cmd.Context(), batches, a.client, chunk, workers)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d created, %d updated, %d rejected %s\n",
				titleStyle.Render("imported"),
				stats.Created, stats.Updated, stats.Rejected,
				mutedStyle.Render(fmt.Sprintf("(%d batches from %s)", stats.Jobs, dir)))
			return err
		},
	}
	cmd.Flags().IntVar(&chunk, "chunk", streamlite.DefaultChunkSize, "items per ingest request")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent ingest requests")
	return cmd
}
