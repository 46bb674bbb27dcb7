package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/discovery"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/preflight"
	"github.com/NovoNihilo/clipforge/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipDiscover bool
	var maxPerCreator int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once for the selected profile",
		Long: "Run executes one full pipeline pass: archive previous outputs, " +
			"discover fresh clips, download, transcribe, decide, render, select " +
			"the top clips, and package them for publishing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, skipDiscover, maxPerCreator)
		},
	}

	cmd.Flags().BoolVar(&skipDiscover, "skip-discover", false, "Skip platform discovery and drain already queued clips")
	cmd.Flags().IntVar(&maxPerCreator, "max-per-creator", 0, "Override the profile's per-creator discovery cap")
	return cmd
}

func runPipeline(cmd *cobra.Command, ctx *commandContext, skipDiscover bool, maxPerCreator int) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("clipforge-%s.log", stamp))
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warn: unable to update clipforge.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "clipforge-*.log", Exclude: []string{logPath}},
	)

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if err := gatePreflight(signalCtx, cfg, out, colorize); err != nil {
		return err
	}

	return ctx.withStore(func(store *clips.Store) error {
		profile, _, err := ctx.resolveProfile(signalCtx, store)
		if err != nil {
			return err
		}

		runner, err := workflow.Build(cfg, store, profile, logger)
		if err != nil {
			return err
		}
		if skipDiscover {
			runner.SkipDiscovery()
		}
		if maxPerCreator > 0 {
			runner.LimitPerCreator(maxPerCreator)
		}

		summary, err := runner.Run(signalCtx)
		if err != nil {
			return err
		}
		printRunSummary(out, summary, colorize)
		return nil
	})
}

func gatePreflight(ctx context.Context, cfg *config.Config, out io.Writer, colorize bool) error {
	results := preflight.RunAll(ctx, cfg)
	failures := 0
	for _, result := range results {
		if result.Passed {
			continue
		}
		failures++
		fmt.Fprintln(out, renderStatusLine(result.Name, statusError, result.Detail, colorize))
	}
	if failures > 0 {
		return fmt.Errorf("%d preflight check(s) failed", failures)
	}
	return nil
}

func printRunSummary(out io.Writer, summary *workflow.Summary, colorize bool) {
	for _, line := range renderSectionHeader("Run Summary", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Profile", statusInfo, summary.Profile, colorize))
	fmt.Fprintln(out, renderStatusLine("Run ID", statusInfo, summary.RunID, colorize))
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, summary.Duration.Round(time.Second).String(), colorize))
	if summary.ArchivedPacks > 0 {
		fmt.Fprintln(out, renderStatusLine("Archived packs", statusInfo, fmt.Sprintf("%d", summary.ArchivedPacks), colorize))
	}
	if summary.Discovery != (discovery.Summary{}) {
		detail := fmt.Sprintf("%d creators scanned, %d new, %d duplicates, %d filtered",
			summary.Discovery.CreatorsScanned,
			summary.Discovery.Inserted,
			summary.Discovery.Duplicates,
			summary.Discovery.Filtered,
		)
		if summary.Discovery.Failures > 0 {
			detail += fmt.Sprintf(", %d creators failed", summary.Discovery.Failures)
		}
		fmt.Fprintln(out, renderStatusLine("Discovery", statusInfo, detail, colorize))
	}

	if len(summary.Stages) > 0 {
		rows := make([][]string, 0, len(summary.Stages))
		for _, st := range summary.Stages {
			rows = append(rows, []string{
				formatStatusLabel(st.Name),
				fmt.Sprintf("%d", st.Processed),
				fmt.Sprintf("%d", st.Advanced),
				fmt.Sprintf("%d", st.Failed),
				fmt.Sprintf("%d", st.Skipped),
				st.Duration.Round(time.Millisecond).String(),
			})
		}
		stageTable := renderTable(
			[]string{"Stage", "Processed", "Advanced", "Failed", "Skipped", "Duration"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
		)
		fmt.Fprintln(out, stageTable)
	}

	kind := statusOK
	if summary.Failed > 0 {
		kind = statusWarn
	}
	result := fmt.Sprintf("%d packaged, %d kept, %d cut, %d failed",
		summary.Packaged, summary.Kept, summary.Cut, summary.Failed)
	fmt.Fprintln(out, renderStatusLine("Result", kind, result, colorize))
}

// ensureCurrentLogPointer keeps clipforge.log pointing at the newest run
// log. Falls back to a hard link on filesystems without symlinks.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "clipforge.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	err := os.Link(target, current)
	if err == nil {
		return nil
	}
	return fmt.Errorf("link log pointer: %w", err)
}
