package render

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/NovoNihilo/clipforge/internal/captions"
	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/decide"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/media"
	"github.com/NovoNihilo/clipforge/internal/media/ffprobe"
	"github.com/NovoNihilo/clipforge/internal/moderation"
	"github.com/NovoNihilo/clipforge/internal/services"
	"github.com/NovoNihilo/clipforge/internal/stage"
	"github.com/NovoNihilo/clipforge/internal/transcribe"
)

const (
	renderedFileName = "rendered.mp4"
	// minOutputBytes guards against ffmpeg exiting zero after writing a
	// header-only file.
	minOutputBytes = 1000
)

var probeOutput = ffprobe.Inspect

// Stage moves DECIDED clips to RENDERED. It compiles the caption cues,
// assigns speakers, maps bleeps, picks a music bed, and hands the resulting
// spec to the engine; the finished file is validated by size and probe
// before the clip advances.
type Stage struct {
	cfg      *config.Config
	engine   Engine
	diarizer transcribe.Diarizer
	logger   *slog.Logger
}

// NewStage wires the render stage. The diarizer may be nil; captions then
// keep the default speaker color.
func NewStage(cfg *config.Config, engine Engine, diarizer transcribe.Diarizer, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:      cfg,
		engine:   engine,
		diarizer: diarizer,
		logger:   logging.NewComponentLogger(logger, "render-stage"),
	}
}

func (s *Stage) Name() string       { return "render" }
func (s *Stage) From() clips.Status { return clips.StatusDecided }
func (s *Stage) To() clips.Status   { return clips.StatusRendered }

// HealthCheck verifies the media tools are reachable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s == nil || s.engine == nil {
		return stage.Unhealthy(s.Name(), "render engine not configured")
	}
	for _, binary := range []string{s.cfg.FFmpegBinary(), s.cfg.FFprobeBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(s.Name(), binary+" not found in PATH")
		}
	}
	return stage.Healthy(s.Name())
}

// Execute renders one clip. Diarization failures degrade to the default
// speaker; a missing music library just renders without a bed. Only the
// engine and the output checks can fail the clip.
func (s *Stage) Execute(ctx context.Context, clip *clips.Clip) error {
	if _, err := stage.RequireArtifact(s.Name(), "source", clip.Paths.Source); err != nil {
		return services.WithFailReason(err, "render_failed")
	}
	if _, err := stage.RequireArtifact(s.Name(), "edit decision", clip.Paths.EditDecision); err != nil {
		return services.WithFailReason(err, "render_failed")
	}
	if _, err := stage.RequireArtifact(s.Name(), "transcript", clip.Paths.Transcript); err != nil {
		return services.WithFailReason(err, "render_failed")
	}

	decision, err := decide.Load(clip.Paths.EditDecision)
	if err != nil {
		wrapped := services.Wrap(services.ErrDataIntegrity, s.Name(), "load edit decision",
			"Recorded edit decision is unreadable", err)
		return services.WithFailReason(wrapped, "render_failed")
	}
	if err := decision.Validate(); err != nil {
		wrapped := services.Wrap(services.ErrDataIntegrity, s.Name(), "validate edit decision",
			"Recorded edit decision is unusable", err)
		return services.WithFailReason(wrapped, "render_failed")
	}

	transcript, err := media.LoadTranscript(clip.Paths.Transcript)
	if err != nil {
		wrapped := services.Wrap(services.ErrDataIntegrity, s.Name(), "load transcript",
			"Recorded transcript is unreadable", err)
		return services.WithFailReason(wrapped, "render_failed")
	}

	window := media.Segment{Start: decision.Segment.Start, End: decision.Segment.End}
	spec := s.buildSpec(ctx, clip, decision, transcript, window)

	s.logger.Info("rendering clip",
		logging.Int64(logging.FieldClipID, clip.ID),
		logging.String(logging.FieldClipKey, clip.Key()),
		logging.Float64("segment_start", window.Start),
		logging.Float64("segment_end", window.End),
		logging.Int("cues", len(spec.Cues)),
		logging.Int("bleeps", len(spec.Bleeps)),
		logging.Bool("music", spec.MusicPath != ""),
	)

	renderCtx := ctx
	if s.cfg.Render.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.Render.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	if err := s.engine.Render(renderCtx, Job{Spec: spec, WorkDir: filepath.Dir(spec.OutputPath)}); err != nil {
		return services.WithFailReason(err, "render_failed")
	}

	size, err := stage.RequireArtifact(s.Name(), "rendered output", spec.OutputPath)
	if err != nil {
		return services.WithFailReason(err, "render_output_invalid")
	}
	if size < minOutputBytes {
		wrapped := services.Wrap(services.ErrDataIntegrity, s.Name(), "validate output",
			"Rendered file is implausibly small", nil)
		return services.WithFailReason(wrapped, "render_output_invalid")
	}
	probe, err := probeOutput(ctx, s.cfg.FFprobeBinary(), spec.OutputPath)
	if err != nil {
		wrapped := services.Wrap(services.ErrDataIntegrity, s.Name(), "probe output",
			"Rendered file is unreadable", err)
		return services.WithFailReason(wrapped, "render_output_invalid")
	}
	video, ok := probe.PrimaryVideo()
	if !ok {
		wrapped := services.Wrap(services.ErrDataIntegrity, s.Name(), "probe output",
			"Rendered file has no video stream", nil)
		return services.WithFailReason(wrapped, "render_output_invalid")
	}

	clip.Paths.Rendered = spec.OutputPath
	s.logger.Info("rendered clip",
		logging.Int64(logging.FieldClipID, clip.ID),
		logging.String(logging.FieldClipKey, clip.Key()),
		logging.Int("width", video.Width),
		logging.Int("height", video.Height),
		logging.Int64("bytes", size),
		logging.Float64("duration_sec", spec.Duration()),
	)
	return nil
}

// buildSpec assembles the declarative render instructions for one clip.
func (s *Stage) buildSpec(ctx context.Context, clip *clips.Clip, decision *decide.Decision, transcript *media.Transcript, window media.Segment) Spec {
	var cues []captions.Cue
	if decision.Captions.Enabled {
		var turns []media.Turn
		if s.diarizer != nil {
			var err error
			turns, err = s.diarizer.Diarize(ctx, clip.Paths.Source, window)
			if err != nil {
				s.logger.Warn("diarization unavailable, using default speaker",
					logging.Int64(logging.FieldClipID, clip.ID),
					logging.Error(err),
				)
				turns = nil
			}
		}
		words := captions.AssignSpeakers(transcript.Words, turns, window.Start, window.End)
		cues = captions.Compile(transcript, window, decision.Captions.MaxWords, words)
		for i := range cues {
			cues[i].Text = moderation.CensorText(cues[i].Text)
		}
	}

	var musicPath string
	if s.cfg.Render.MusicEnabled {
		if musicPath = PickTrack(s.cfg.MusicDir(), DefaultMood); musicPath != "" {
			s.logger.Info("music bed selected",
				logging.Int64(logging.FieldClipID, clip.ID),
				logging.String("track", filepath.Base(musicPath)),
			)
		}
	}

	return Spec{
		SourcePath: clip.Paths.Source,
		OutputPath: filepath.Join(filepath.Dir(clip.Paths.Source), renderedFileName),
		MusicPath:  musicPath,
		Segment:    window,
		Cues:       cues,
		TitleLines: captions.WrapTitle(overlayTitle(decision, clip)),
		Bleeps:     moderation.BleepMap(transcript, window.Start, window.End),
		FontFile:   s.cfg.Render.FontFile,
	}
}

// overlayTitle picks the burned-in title: the first non-empty post-copy
// title in destination order, then the platform title.
func overlayTitle(decision *decide.Decision, clip *clips.Clip) string {
	for _, dest := range decide.Destinations() {
		if title := strings.TrimSpace(decision.PostCopy[dest].Title); title != "" {
			return title
		}
	}
	return clip.Title()
}
