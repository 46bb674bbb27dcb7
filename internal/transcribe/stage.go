package transcribe

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/gates"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/profiles"
	"github.com/NovoNihilo/clipforge/internal/services"
	"github.com/NovoNihilo/clipforge/internal/stage"
)

const transcriptFileName = "transcript.json"

// Stage transcribes DOWNLOADED clips and applies the quality gates. A clip
// that speaks too late, is mostly silence, or falls outside the length band
// fails here with the gate's reason; everything else advances to
// TRANSCRIBED with a transcript.json recorded beside its source.
type Stage struct {
	engine Engine
	rules  profiles.Rules
	logger *slog.Logger
}

// NewStage wires the transcription stage for one profile's rules.
func NewStage(engine Engine, rules profiles.Rules, logger *slog.Logger) *Stage {
	return &Stage{
		engine: engine,
		rules:  rules,
		logger: logging.NewComponentLogger(logger, "transcribe-stage"),
	}
}

func (s *Stage) Name() string       { return "transcribe" }
func (s *Stage) From() clips.Status { return clips.StatusDownloaded }
func (s *Stage) To() clips.Status   { return clips.StatusTranscribed }

// HealthCheck reports whether the speech engine can serve this run.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s == nil || s.engine == nil {
		return stage.Unhealthy("transcribe", "transcription engine not configured")
	}
	return stage.HealthFromError("transcribe", s.engine.Ready(ctx))
}

// Execute transcribes one clip. The transcript path is recorded on the clip
// before the gates run, so gate rejections still persist the transcript for
// inspection.
func (s *Stage) Execute(ctx context.Context, clip *clips.Clip) error {
	if _, err := stage.RequireArtifact(s.Name(), "source", clip.Paths.Source); err != nil {
		return services.WithFailReason(err, "source_missing")
	}

	transcript, err := s.engine.Transcribe(ctx, clip.Paths.Source)
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, s.Name(), "transcribe clip",
			"Speech-to-text failed", err)
		return services.WithFailReason(wrapped, "transcription_error:"+err.Error())
	}

	transcriptPath := filepath.Join(filepath.Dir(clip.Paths.Source), transcriptFileName)
	if err := transcript.Save(transcriptPath); err != nil {
		wrapped := services.Wrap(services.ErrTransient, s.Name(), "save transcript",
			"Could not write transcript", err)
		return services.WithFailReason(wrapped, "transcription_error:"+err.Error())
	}
	clip.Paths.Transcript = transcriptPath

	if result := gates.Evaluate(transcript, s.rules); !result.Passed {
		s.logger.Info("quality gate rejected clip",
			logging.Int64(logging.FieldClipID, clip.ID),
			logging.String(logging.FieldClipKey, clip.Key()),
			logging.String(logging.FieldFailReason, result.Reason),
		)
		return services.WithFailReason(nil, result.Reason)
	}

	s.logger.Info("transcribed clip",
		logging.Int64(logging.FieldClipID, clip.ID),
		logging.String(logging.FieldClipKey, clip.Key()),
		logging.Int("segments", len(transcript.Segments)),
		logging.Int("words", len(transcript.Words)),
		logging.Float64("duration_sec", transcript.Duration),
	)
	return nil
}
