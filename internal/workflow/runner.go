package workflow

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/decide"
	"github.com/NovoNihilo/clipforge/internal/discovery"
	"github.com/NovoNihilo/clipforge/internal/download"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/notifications"
	"github.com/NovoNihilo/clipforge/internal/packaging"
	"github.com/NovoNihilo/clipforge/internal/profiles"
	"github.com/NovoNihilo/clipforge/internal/render"
	"github.com/NovoNihilo/clipforge/internal/services/llm"
	"github.com/NovoNihilo/clipforge/internal/stage"
	"github.com/NovoNihilo/clipforge/internal/transcribe"
)

const defaultTranscribeWorkers = 2

// Discoverer feeds fresh clip rows into the store before the per-clip
// stages run. The concrete discovery.Service satisfies it; tests inject
// fakes.
type Discoverer interface {
	DiscoverProfile(ctx context.Context, profile *clips.Profile, rules profiles.Rules, maxPerCreator int) (discovery.Summary, error)
}

// Runner executes one pipeline run for a single profile.
type Runner struct {
	cfg      *config.Config
	store    *clips.Store
	profile  *clips.Profile
	rules    profiles.Rules
	discover Discoverer
	stages   []stage.Handler
	notifier notifications.Service
	logger   *slog.Logger

	now               func() time.Time
	transcribeWorkers int
	skipDiscovery     bool
	maxPerCreator     int
}

// SkipDiscovery makes Run work from whatever clips are already queued
// instead of hitting the platform APIs.
func (r *Runner) SkipDiscovery() {
	r.skipDiscovery = true
}

// LimitPerCreator overrides the profile's per-creator discovery quota for
// this runner. Values below one keep the profile rules.
func (r *Runner) LimitPerCreator(n int) {
	r.maxPerCreator = n
}

// Deps carries the collaborators a Runner needs beyond the store. Tests
// swap individual fields for fakes; production wiring comes from Build.
type Deps struct {
	Discoverer Discoverer
	// Stages are the per-clip handlers in pipeline order. The final
	// handler must be the packaging stage (From RENDERED): the runner
	// treats it specially so packaging failures never demote a rendered
	// clip.
	Stages   []stage.Handler
	Notifier notifications.Service
	Clock    func() time.Time
}

// NewRunner assembles a runner from explicit dependencies.
func NewRunner(cfg *config.Config, store *clips.Store, profile *clips.Profile, rules profiles.Rules, logger *slog.Logger, deps Deps) (*Runner, error) {
	if cfg == nil || store == nil || profile == nil {
		return nil, errors.New("workflow runner requires config, store, and profile")
	}
	if deps.Discoverer == nil {
		return nil, errors.New("workflow runner requires a discoverer")
	}
	if len(deps.Stages) == 0 {
		return nil, errors.New("workflow runner requires at least one stage")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	workers := cfg.Transcribe.Workers
	if workers < 1 {
		workers = defaultTranscribeWorkers
	}
	return &Runner{
		cfg:               cfg,
		store:             store,
		profile:           profile,
		rules:             rules,
		discover:          deps.Discoverer,
		stages:            deps.Stages,
		notifier:          deps.Notifier,
		logger:            logging.NewComponentLogger(logger, "workflow-runner"),
		now:               deps.Clock,
		transcribeWorkers: workers,
	}, nil
}

// Build wires the production pipeline for a profile: platform discovery
// clients, the yt-dlp-style fetcher, WhisperX transcription, the
// OpenRouter decider, the ffmpeg renderer, and the packager.
func Build(cfg *config.Config, store *clips.Store, profile *clips.Profile, logger *slog.Logger) (*Runner, error) {
	rules, err := profiles.Parse(profile.RulesJSON)
	if err != nil {
		return nil, err
	}

	clients := map[string]discovery.Client{
		"twitch": discovery.NewTwitchClient(cfg, logger),
		"kick":   discovery.NewKickClient(cfg, logger),
	}
	svc := discovery.NewService(store, clients, logger)

	completer := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(cfg.LLM.MaxAttempts))

	engine := transcribe.NewWhisperXEngine(cfg, logger)
	diarizer := transcribe.NewDiarizer(cfg, logger)

	stages := []stage.Handler{
		download.NewStage(cfg, download.NewHTTPFetcher(cfg, logger), logger),
		transcribe.NewStage(engine, rules, logger),
		decide.NewStage(completer, rules, profile.Slug, logger),
		render.NewStage(cfg, render.NewFFmpegEngine(cfg, logger), diarizer, logger),
		packaging.NewStage(cfg, store, profile.Slug, logger),
	}

	return NewRunner(cfg, store, profile, rules, logger, Deps{
		Discoverer: svc,
		Stages:     stages,
		Notifier:   notifications.NewService(cfg),
	})
}

// lockPath is where the per-profile run lock lives. Using the log dir
// keeps lock files out of the data tree that cleanup walks.
func (r *Runner) lockPath() string {
	return filepath.Join(r.cfg.Paths.LogDir, "clipforge-"+r.profile.Slug+".lock")
}

func (r *Runner) newLock() *flock.Flock {
	return flock.New(r.lockPath())
}
