package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/NovoNihilo/clipforge/internal/cleanup"
	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/deps"
	"github.com/NovoNihilo/clipforge/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment, storage, and clip pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range dependencyLines(preflight.CheckSystemDeps(cfg), colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)

			return ctx.withStore(func(store *clips.Store) error {
				usage, err := cleanup.Report(cmd.Context(), store, cfg)
				if err != nil {
					return err
				}
				for _, line := range renderSectionHeader("Storage", colorize) {
					fmt.Fprintln(out, line)
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
				fmt.Fprintln(out)

				slug := ctx.profileSlug()
				profile, err := store.GetProfileBySlug(cmd.Context(), slug)
				if err != nil {
					return err
				}
				var profileID int64
				title := "Clips"
				if profile != nil {
					profileID = profile.ID
					title = fmt.Sprintf("Clips (%s)", profile.Slug)
				}
				for _, line := range renderSectionHeader(title, colorize) {
					fmt.Fprintln(out, line)
				}
				if profile == nil {
					fmt.Fprintln(out, renderStatusLine("Profile", statusWarn,
						fmt.Sprintf("%s not seeded; showing all clips", slug), colorize))
				}

				stats, err := store.Stats(cmd.Context(), profileID)
				if err != nil {
					return err
				}
				rows := buildClipStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(out, "No clips yet")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if location := strings.TrimSpace(dep.Detail); location != "" {
				message = fmt.Sprintf("Ready (%s)", location)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn,
			fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}
