package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NovoNihilo/clipforge/internal/archive"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Move publish packs from outputs into the dated archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := archive.Rotate(cfg, ctx.profileSlug(), time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Archived == 0 {
				fmt.Fprintln(out, "No packs to archive")
				return nil
			}
			fmt.Fprintf(out, "Archived %d packs to %s\n", result.Archived, result.Dest)
			return nil
		},
	}
}
