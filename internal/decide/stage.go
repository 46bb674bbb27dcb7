package decide

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/media"
	"github.com/NovoNihilo/clipforge/internal/moderation"
	"github.com/NovoNihilo/clipforge/internal/profiles"
	"github.com/NovoNihilo/clipforge/internal/services"
	"github.com/NovoNihilo/clipforge/internal/services/llm"
	"github.com/NovoNihilo/clipforge/internal/stage"
)

const decisionFileName = "edit_decision.json"

// Completer is the model client surface the stage needs. The concrete
// services/llm client satisfies it; tests inject fakes.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Stage moves TRANSCRIBED clips to DECIDED. The lexical pre-filter screens
// the transcript before any model call; the model verdict then supplies the
// segment, viral score, safety judgment, and post copy, and the validated
// decision lands in edit_decision.json beside the source.
type Stage struct {
	client      Completer
	rules       profiles.Rules
	profileSlug string
	logger      *slog.Logger
}

// NewStage wires the decision stage for one profile.
func NewStage(client Completer, rules profiles.Rules, profileSlug string, logger *slog.Logger) *Stage {
	return &Stage{
		client:      client,
		rules:       rules,
		profileSlug: profileSlug,
		logger:      logging.NewComponentLogger(logger, "decide-stage"),
	}
}

func (s *Stage) Name() string       { return "decide" }
func (s *Stage) From() clips.Status { return clips.StatusTranscribed }
func (s *Stage) To() clips.Status   { return clips.StatusDecided }

// HealthCheck verifies the model endpoint answers before a run spends
// anything on it.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s == nil || s.client == nil {
		return stage.Unhealthy(s.Name(), "LLM client not configured")
	}
	return stage.HealthFromError(s.Name(), s.client.HealthCheck(ctx))
}

// Execute decides one clip. Rejections are ordered cheapest first: missing
// transcript, lexical pre-filter, then the model call and its verdict gates.
func (s *Stage) Execute(ctx context.Context, clip *clips.Clip) error {
	if _, err := stage.RequireArtifact(s.Name(), "transcript", clip.Paths.Transcript); err != nil {
		return services.WithFailReason(err, "transcript_missing")
	}

	transcript, err := media.LoadTranscript(clip.Paths.Transcript)
	if err != nil {
		wrapped := services.Wrap(services.ErrDataIntegrity, s.Name(), "load transcript",
			"Recorded transcript is unreadable", err)
		return services.WithFailReason(wrapped, "transcript_missing")
	}

	if result := moderation.PreFilter(transcript.FullText); !result.Passed {
		s.logger.Info("pre-filter rejected clip",
			logging.Int64(logging.FieldClipID, clip.ID),
			logging.String(logging.FieldClipKey, clip.Key()),
			logging.String(logging.FieldFailReason, result.Reason),
		)
		wrapped := services.Wrap(services.ErrContentPolicy, s.Name(), "screen transcript",
			"Lexical pre-filter rejected clip", nil)
		return services.WithFailReason(wrapped, result.Reason)
	}

	content, err := s.client.CompleteJSON(ctx, systemPrompt(s.rules), userPrompt(clip, transcript, s.rules))
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, s.Name(), "request edit decision",
			"Model call failed after retries", err)
		return services.WithFailReason(wrapped, "llm_call_failed")
	}

	var v verdict
	if err := llm.DecodeJSON(content, &v); err != nil {
		wrapped := services.Wrap(services.ErrValidation, s.Name(), "parse edit decision",
			"Model response is not a usable decision", err)
		return services.WithFailReason(wrapped, "edit_decision_invalid:"+err.Error())
	}

	decision, err := buildDecision(v, clip, s.rules, s.profileSlug, transcript.Duration)
	if err != nil {
		wrapped := services.Wrap(services.ErrValidation, s.Name(), "build edit decision",
			"Model verdict does not form a valid decision", err)
		return services.WithFailReason(wrapped, "edit_decision_invalid:"+err.Error())
	}

	if !v.safe() {
		flag := strings.TrimSpace(v.ContentFlag)
		if flag == "" {
			flag = "unspecified"
		}
		s.logger.Info("model flagged clip unsafe",
			logging.Int64(logging.FieldClipID, clip.ID),
			logging.String(logging.FieldClipKey, clip.Key()),
			logging.String("content_flag", flag),
		)
		wrapped := services.Wrap(services.ErrContentPolicy, s.Name(), "apply safety verdict",
			"Model judged content unsafe", nil)
		return services.WithFailReason(wrapped, "content_unsafe:"+flag)
	}

	score := decision.ViralScore
	clip.ViralScore = &score
	if score < s.rules.MinViralScore {
		s.logger.Info("viral score below profile floor",
			logging.Int64(logging.FieldClipID, clip.ID),
			logging.String(logging.FieldClipKey, clip.Key()),
			logging.Int("viral_score", score),
			logging.Int("min_viral_score", s.rules.MinViralScore),
		)
		return services.WithFailReason(nil, fmt.Sprintf("low_viral_score:%d", score))
	}

	decisionPath := filepath.Join(filepath.Dir(clip.Paths.Transcript), decisionFileName)
	if err := decision.Save(decisionPath); err != nil {
		wrapped := services.Wrap(services.ErrTransient, s.Name(), "save edit decision",
			"Could not write edit decision", err)
		return services.WithFailReason(wrapped, "edit_decision_invalid:"+err.Error())
	}
	clip.Paths.EditDecision = decisionPath

	s.logger.Info("decided clip",
		logging.Int64(logging.FieldClipID, clip.ID),
		logging.String(logging.FieldClipKey, clip.Key()),
		logging.Int("viral_score", score),
		logging.Float64("segment_start", decision.Segment.Start),
		logging.Float64("segment_end", decision.Segment.End),
		logging.String("hook", decision.HookDescription),
	)
	return nil
}
