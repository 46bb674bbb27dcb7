package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/NovoNihilo/clipforge/internal/cleanup"
	"github.com/NovoNihilo/clipforge/internal/clips"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var purgeFailed bool
	var purgeSources bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Report disk usage and reclaim space from finished clips",
		Long: "Without flags cleanup reports what the pipeline holds on disk. " +
			"With --failed it removes the working files of failed clips, and " +
			"with --sources it removes source videos of packaged clips older " +
			"than the configured retention. Clip rows are never deleted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *clips.Store) error {
				out := cmd.OutOrStdout()

				if purgeFailed {
					result, err := cleanup.PurgeFailed(cmd.Context(), store, cfg)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed files for %d failed clips (%s freed)\n",
						result.Clips, humanize.IBytes(uint64(result.FreedBytes)))
				}
				if purgeSources {
					result, err := cleanup.PurgeOldSources(cmd.Context(), store, cfg, time.Now())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d expired source videos (%s freed)\n",
						result.Clips, humanize.IBytes(uint64(result.FreedBytes)))
				}
				if purgeFailed || purgeSources {
					return nil
				}

				usage, err := cleanup.Report(cmd.Context(), store, cfg)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Artifacts", "Size"},
					[][]string{
						{"Source videos", humanize.IBytes(uint64(usage.SourceBytes))},
						{"Rendered verticals", humanize.IBytes(uint64(usage.RenderedBytes))},
						{"Working tree", humanize.IBytes(uint64(usage.WorkBytes))},
						{"Outputs", humanize.IBytes(uint64(usage.OutputBytes))},
						{"Archives", humanize.IBytes(uint64(usage.ArchiveBytes))},
						{"Total", humanize.IBytes(uint64(usage.TotalBytes()))},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&purgeFailed, "failed", false, "Remove working files of failed clips")
	cmd.Flags().BoolVar(&purgeSources, "sources", false, "Remove source videos past the retention window")
	return cmd
}
