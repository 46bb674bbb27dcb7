package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NovoNihilo/clipforge/internal/archive"
	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/discovery"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/ranking"
	"github.com/NovoNihilo/clipforge/internal/services"
	"github.com/NovoNihilo/clipforge/internal/stage"
)

// Summary reports what one pipeline run did.
type Summary struct {
	RunID         string
	Profile       string
	StartedAt     time.Time
	Duration      time.Duration
	ArchivedPacks int
	Discovery     discovery.Summary
	Stages        []StageSummary
	// Kept and Cut report the top-N selection over rendered clips.
	Kept int
	Cut  int
	// Packaged counts clips that reached PACKAGED this run. Failed counts
	// clips that landed in FAILED, including those cut by selection;
	// packaging errors are not included because those clips stay RENDERED.
	Packaged int
	Failed   int
}

// StageSummary reports one stage's batch outcome.
type StageSummary struct {
	Name      string
	Processed int
	Advanced  int
	Failed    int
	// Skipped counts clips whose status changed under the runner's feet,
	// usually a concurrent retry or manual intervention.
	Skipped  int
	Duration time.Duration
}

type clipOutcome int

const (
	outcomeAdvanced clipOutcome = iota
	outcomeFailed
	outcomeSkipped
)

// Run executes one full pipeline pass: archive previous outputs, discover
// fresh clips, walk every waiting clip through the stages, select the top
// N rendered clips, and package the survivors. The per-profile file lock
// makes concurrent runs fail fast instead of interleaving.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	wallStart := time.Now()
	logger := r.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldProfile, r.profile.Slug),
	)

	lock := r.newLock()
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another run is already processing profile %s", r.profile.Slug)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	if err := r.checkStageHealth(ctx, logger); err != nil {
		return nil, err
	}

	summary := &Summary{RunID: runID, Profile: r.profile.Slug, StartedAt: r.now()}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("stages", len(r.stages)),
	)

	rotated, err := archive.Rotate(r.cfg, r.profile.Slug, summary.StartedAt)
	if err != nil {
		return nil, err
	}
	summary.ArchivedPacks = rotated.Archived
	if rotated.Archived > 0 {
		logger.Info("archived previous outputs",
			logging.Int("packs", rotated.Archived),
			logging.String("dest", rotated.Dest),
		)
	}

	if r.skipDiscovery {
		logger.Info("discovery skipped, draining queued clips")
	} else {
		maxPerCreator := r.rules.MaxClipsPerCreatorPerRun
		if r.maxPerCreator > 0 {
			maxPerCreator = r.maxPerCreator
		}
		disc, err := r.discover.DiscoverProfile(ctx, r.profile, r.rules, maxPerCreator)
		if err != nil {
			return nil, err
		}
		summary.Discovery = disc
		logger.Info("discovery completed",
			logging.Int("creators", disc.CreatorsScanned),
			logging.Int("candidates", disc.Candidates),
			logging.Int("inserted", disc.Inserted),
			logging.Int("duplicates", disc.Duplicates),
			logging.Int("filtered", disc.Filtered),
			logging.Int("failures", disc.Failures),
		)
	}

	for _, handler := range r.stages {
		if handler.To() == clips.StatusPackaged {
			selection, err := ranking.SelectTopN(ctx, r.store, r.profile, r.rules.TopNPerRun)
			if err != nil {
				return summary, err
			}
			summary.Kept = len(selection.Kept)
			summary.Cut = len(selection.Cut)
			summary.Failed += summary.Cut
			logger.Info("selection completed",
				logging.Int("kept", summary.Kept),
				logging.Int("cut", summary.Cut),
				logging.Int("top_n", r.rules.TopNPerRun),
			)

			stageSummary, err := r.runPackageStage(ctx, logger, handler, selection.Kept)
			summary.Stages = append(summary.Stages, stageSummary)
			summary.Packaged = stageSummary.Advanced
			if err != nil {
				return summary, err
			}
			continue
		}

		stageSummary, err := r.runStage(ctx, logger, handler)
		summary.Stages = append(summary.Stages, stageSummary)
		summary.Failed += stageSummary.Failed
		if err != nil {
			return summary, err
		}
	}

	summary.Duration = time.Since(wallStart)
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("packaged", summary.Packaged),
		logging.Int("failed", summary.Failed),
		logging.Int("cut", summary.Cut),
		logging.Duration("duration", summary.Duration),
	)
	if err := r.notifier.NotifyRunCompleted(ctx, r.profile.Slug, summary.Packaged, summary.Failed, summary.Duration); err != nil {
		logger.Debug("run completion notification failed", logging.Error(err))
	}
	return summary, nil
}

func (r *Runner) checkStageHealth(ctx context.Context, logger *slog.Logger) error {
	checks := make([]stage.Health, 0, len(r.stages))
	for _, handler := range r.stages {
		health := handler.HealthCheck(ctx)
		if health.Ready {
			logger.Debug("stage ready", logging.String(logging.FieldStage, health.Name))
		} else {
			logger.Error("stage not ready",
				logging.String(logging.FieldStage, health.Name),
				logging.String("detail", health.Detail),
				logging.String(logging.FieldErrorHint, "fix the reported issue and rerun"),
			)
		}
		checks = append(checks, health)
	}
	if bad, found := stage.FirstUnhealthy(checks); found {
		return fmt.Errorf("%w: %s: %s", stage.ErrNotReady, bad.Name, bad.Detail)
	}
	return nil
}

// runStage processes every clip waiting at the handler's From status.
// Transcription fans out across the worker pool; other stages run one
// clip at a time. A clip failure marks that clip FAILED and the batch
// keeps going; only database errors and cancellation abort the stage.
func (r *Runner) runStage(ctx context.Context, logger *slog.Logger, handler stage.Handler) (StageSummary, error) {
	stageStart := time.Now()
	summary := StageSummary{Name: handler.Name()}

	waiting, err := r.store.ListForProfile(ctx, r.profile.ID, handler.From())
	if err != nil {
		return summary, err
	}
	if len(waiting) == 0 {
		logger.Debug("no clips waiting", logging.String(logging.FieldStage, handler.Name()))
		return summary, nil
	}

	workers := 1
	if handler.Name() == "transcribe" && r.transcribeWorkers > 1 {
		workers = r.transcribeWorkers
	}
	if workers > len(waiting) {
		workers = len(waiting)
	}

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, handler.Name()),
		logging.Int("clips", len(waiting)),
		logging.Int("workers", workers),
	)

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	jobs := make(chan *clips.Clip)
	abort := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	aborted := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for clip := range jobs {
				if aborted() || ctx.Err() != nil {
					continue
				}
				outcome, err := r.processClip(ctx, logger, handler, clip)
				if err != nil {
					abort(err)
					continue
				}
				mu.Lock()
				summary.Processed++
				switch outcome {
				case outcomeAdvanced:
					summary.Advanced++
				case outcomeFailed:
					summary.Failed++
				case outcomeSkipped:
					summary.Skipped++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, clip := range waiting {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- clip:
		}
	}
	close(jobs)
	wg.Wait()

	summary.Duration = time.Since(stageStart)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if firstErr != nil {
		return summary, firstErr
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, handler.Name()),
		logging.Int("advanced", summary.Advanced),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// processClip runs one clip through a fail-path stage and persists the
// resulting transition. The returned error is fatal for the whole stage;
// per-clip failures come back as outcomeFailed with a nil error.
func (r *Runner) processClip(ctx context.Context, logger *slog.Logger, handler stage.Handler, clip *clips.Clip) (clipOutcome, error) {
	clipStart := time.Now()
	clipLogger := logger.With(
		logging.String(logging.FieldStage, handler.Name()),
		logging.Int64(logging.FieldClipID, clip.ID),
		logging.String(logging.FieldClipKey, clip.Key()),
		logging.String("request_id", uuid.NewString()),
	)

	execErr := handler.Execute(ctx, clip)
	if ctx.Err() != nil {
		clipLogger.Debug("stage interrupted by cancellation")
		return outcomeSkipped, ctx.Err()
	}

	if execErr != nil {
		reason := services.FailureReason(execErr, handler.Name()+"_failed")
		clipLogger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Alert("stage_failure"),
			logging.String(logging.FieldFailReason, reason),
			logging.Error(execErr),
		)
		r.notifyStageError(ctx, handler.Name(), clip, execErr)

		result, err := r.store.FailFrom(ctx, clip, reason)
		if err != nil {
			return outcomeFailed, err
		}
		if !result.Advanced {
			clipLogger.Warn("clip changed status concurrently, failure not recorded",
				logging.String(logging.FieldStatus, string(clip.Status)),
			)
			return outcomeSkipped, nil
		}
		return outcomeFailed, nil
	}

	result, err := r.store.AdvanceFrom(ctx, clip, handler.To())
	if err != nil {
		return outcomeSkipped, err
	}
	if !result.Advanced {
		clipLogger.Warn("clip changed status concurrently, skipping",
			logging.String(logging.FieldStatus, string(clip.Status)),
		)
		return outcomeSkipped, nil
	}
	clipLogger.Info("stage advanced clip",
		logging.String(logging.FieldStatus, string(handler.To())),
		logging.Duration("duration", time.Since(clipStart)),
	)
	return outcomeAdvanced, nil
}

// runPackageStage packages the selection survivors. Packaging failures
// are logged and notified but never demote the clip: it stays RENDERED so
// the next run can retry with the artifacts already on disk.
func (r *Runner) runPackageStage(ctx context.Context, logger *slog.Logger, handler stage.Handler, kept []*clips.Clip) (StageSummary, error) {
	stageStart := time.Now()
	summary := StageSummary{Name: handler.Name()}
	if len(kept) == 0 {
		logger.Debug("no clips to package")
		summary.Duration = time.Since(stageStart)
		return summary, nil
	}

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, handler.Name()),
		logging.Int("clips", len(kept)),
	)

	for _, clip := range kept {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(stageStart)
			return summary, err
		}
		clipLogger := logger.With(
			logging.String(logging.FieldStage, handler.Name()),
			logging.Int64(logging.FieldClipID, clip.ID),
			logging.String(logging.FieldClipKey, clip.Key()),
		)
		summary.Processed++

		if execErr := handler.Execute(ctx, clip); execErr != nil {
			if ctx.Err() != nil {
				summary.Duration = time.Since(stageStart)
				return summary, ctx.Err()
			}
			clipLogger.Error("packaging failed, clip left rendered for retry",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.Alert("stage_failure"),
				logging.Error(execErr),
			)
			r.notifyStageError(ctx, handler.Name(), clip, execErr)
			summary.Failed++
			continue
		}

		result, err := r.store.AdvanceFrom(ctx, clip, handler.To())
		if err != nil {
			summary.Duration = time.Since(stageStart)
			return summary, err
		}
		if !result.Advanced {
			clipLogger.Warn("clip changed status concurrently, skipping",
				logging.String(logging.FieldStatus, string(clip.Status)),
			)
			summary.Skipped++
			continue
		}
		summary.Advanced++
		clipLogger.Info("clip packaged",
			logging.String("pack", clip.Paths.PublishPack),
		)
		if err := r.notifier.NotifyClipPackaged(ctx, clip.Title(), clip.Metadata.CreatorName); err != nil {
			clipLogger.Debug("packaged notification failed", logging.Error(err))
		}
	}

	summary.Duration = time.Since(stageStart)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, handler.Name()),
		logging.Int("advanced", summary.Advanced),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (r *Runner) notifyStageError(ctx context.Context, stageName string, clip *clips.Clip, stageErr error) {
	if r.notifier == nil || stageErr == nil {
		return
	}
	label := fmt.Sprintf("%s (clip #%d)", stageName, clip.ID)
	if err := r.notifier.NotifyError(ctx, stageErr, label); err != nil {
		if errors.Is(err, context.Canceled) {
			r.logger.Debug("run cancelled, could not send error notification")
		} else {
			r.logger.Debug("stage error notification failed", logging.Error(err))
		}
	}
}
