package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/media"
	"github.com/NovoNihilo/clipforge/internal/media/ffprobe"
	"github.com/NovoNihilo/clipforge/internal/services"
)

const (
	uvxCommand = "uvx"

	whisperXPypiIndexURL = "https://pypi.org/simple"
	whisperXCUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	whisperXOutputFormat = "json"

	vadMethodSilero   = "silero"
	vadMethodPyannote = "pyannote"

	cpuDevice      = "cpu"
	cudaDevice     = "cuda"
	cpuComputeType = "float32"

	defaultModel = "base"
)

// WhisperXEngine transcribes clips by invoking WhisperX through uvx, so the
// Python toolchain stays isolated from the host environment. The JSON output
// carries word-level timestamps, which is what the caption compiler wants.
type WhisperXEngine struct {
	cfg           config.Transcribe
	ffprobeBinary string
	logger        *slog.Logger

	run   CommandRunner
	probe func(ctx context.Context, path string) (float64, error)

	readyOnce sync.Once
	readyErr  error
}

// NewWhisperXEngine builds the engine from repository configuration.
func NewWhisperXEngine(cfg *config.Config, logger *slog.Logger) *WhisperXEngine {
	engine := &WhisperXEngine{
		cfg:           cfg.Transcribe,
		ffprobeBinary: cfg.FFprobeBinary(),
		logger:        logging.NewComponentLogger(logger, "whisperx"),
		run:           defaultCommandRunner,
	}
	engine.probe = engine.probeDuration
	return engine
}

// Ready verifies uvx is installed and pyannote VAD has a token before the
// first batch. The check runs once per engine.
func (e *WhisperXEngine) Ready(ctx context.Context) error {
	if e == nil {
		return services.Wrap(services.ErrConfiguration, "transcribe", "ready", "Transcription engine unavailable", nil)
	}
	e.readyOnce.Do(func() {
		if _, err := exec.LookPath(uvxCommand); err != nil {
			e.readyErr = services.Wrap(services.ErrConfiguration, "transcribe", "ready",
				"uvx not found on PATH; install uv to run WhisperX", err)
			return
		}
		if e.vadMethod() == vadMethodPyannote && strings.TrimSpace(e.cfg.HFToken) == "" {
			e.readyErr = services.Wrap(services.ErrConfiguration, "transcribe", "ready",
				"pyannote VAD selected but no Hugging Face token configured (set transcribe.hf_token)", nil)
			return
		}
	})
	return e.readyErr
}

// Transcribe runs WhisperX against the source file and converts its JSON
// output into the repository transcript shape. Total media duration comes
// from ffprobe because WhisperX only reports speech spans.
func (e *WhisperXEngine) Transcribe(ctx context.Context, sourcePath string) (*media.Transcript, error) {
	outputDir, err := os.MkdirTemp("", "clipforge-whisperx-")
	if err != nil {
		return nil, fmt.Errorf("whisperx output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	start := time.Now()
	args := e.buildArgs(sourcePath, outputDir)
	if err := e.run(ctx, uvxCommand, args...); err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	transcript, err := parseWhisperXJSON(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return nil, err
	}

	duration, err := e.probe(ctx, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("probe duration: %w", err)
	}
	if duration <= 0 {
		// Containers without a duration header: fall back to the speech span.
		for _, seg := range transcript.Segments {
			if seg.End > duration {
				duration = seg.End
			}
		}
	}
	transcript.Duration = duration

	e.logger.Debug("transcription complete",
		logging.String("source", sourcePath),
		logging.Int("segments", len(transcript.Segments)),
		logging.Int("words", len(transcript.Words)),
		logging.Float64("duration_sec", transcript.Duration),
		logging.Duration("elapsed", time.Since(start)),
	)
	return transcript, nil
}

func (e *WhisperXEngine) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 24)
	if e.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", whisperXCUDAIndexURL,
			"--extra-index-url", whisperXPypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", whisperXPypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", e.model(),
		"--output_dir", outputDir,
		"--output_format", whisperXOutputFormat,
	)

	vad := e.vadMethod()
	args = append(args, "--vad_method", vad)
	if vad == vadMethodPyannote {
		if token := strings.TrimSpace(e.cfg.HFToken); token != "" {
			args = append(args, "--hf_token", token)
		}
	}

	if lang := strings.TrimSpace(e.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if e.cfg.CUDAEnabled {
		args = append(args, "--device", cudaDevice)
	} else {
		args = append(args, "--device", cpuDevice, "--compute_type", cpuComputeType)
	}
	return args
}

func (e *WhisperXEngine) model() string {
	if model := strings.TrimSpace(e.cfg.Model); model != "" {
		return model
	}
	return defaultModel
}

func (e *WhisperXEngine) vadMethod() string {
	switch strings.ToLower(strings.TrimSpace(e.cfg.VADMethod)) {
	case vadMethodPyannote:
		return vadMethodPyannote
	default:
		return vadMethodSilero
	}
}

func (e *WhisperXEngine) probeDuration(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, e.ffprobeBinary, path)
	if err != nil {
		return 0, err
	}
	return result.DurationSeconds(), nil
}

type whisperXWord struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type whisperXSegment struct {
	Start   float64        `json:"start"`
	End     float64        `json:"end"`
	Text    string         `json:"text"`
	Speaker string         `json:"speaker"`
	Words   []whisperXWord `json:"words"`
}

type whisperXPayload struct {
	Segments []whisperXSegment `json:"segments"`
	Language string            `json:"language"`
}

func parseWhisperXJSON(path string) (*media.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whisperx output: %w", err)
	}
	payload, err := decodeWhisperXPayload(data)
	if err != nil {
		return nil, err
	}
	return payloadToTranscript(payload), nil
}

func decodeWhisperXPayload(data []byte) (whisperXPayload, error) {
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return whisperXPayload{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}

func payloadToTranscript(payload whisperXPayload) *media.Transcript {
	transcript := &media.Transcript{Language: strings.TrimSpace(payload.Language)}

	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		transcript.Segments = append(transcript.Segments, media.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
		for _, w := range seg.Words {
			// Alignment omits timing for digits and symbols; drop untimed words.
			if w.Start == 0 && w.End == 0 {
				continue
			}
			transcript.Words = append(transcript.Words, media.Word{
				Text:    strings.TrimSpace(w.Word),
				Start:   w.Start,
				End:     w.End,
				Speaker: strings.TrimSpace(w.Speaker),
			})
		}
	}
	transcript.RebuildFullText()
	return transcript
}

// WhisperXDiarizer produces speaker turns by running WhisperX with its
// pyannote diarization pass enabled. Turns keep source-absolute timestamps;
// only those overlapping the requested window are returned.
type WhisperXDiarizer struct {
	cfg    config.Transcribe
	logger *slog.Logger
	run    CommandRunner

	readyOnce sync.Once
	readyErr  error
}

// NewDiarizer returns the configured diarization backend: WhisperX+pyannote
// when a Hugging Face token is present, otherwise the no-op.
func NewDiarizer(cfg *config.Config, logger *slog.Logger) Diarizer {
	if strings.TrimSpace(cfg.Transcribe.HFToken) == "" {
		return NoopDiarizer{}
	}
	return &WhisperXDiarizer{
		cfg:    cfg.Transcribe,
		logger: logging.NewComponentLogger(logger, "diarizer"),
		run:    defaultCommandRunner,
	}
}

func (d *WhisperXDiarizer) Ready(ctx context.Context) error {
	if d == nil {
		return services.Wrap(services.ErrConfiguration, "transcribe", "diarizer ready", "Diarizer unavailable", nil)
	}
	d.readyOnce.Do(func() {
		if _, err := exec.LookPath(uvxCommand); err != nil {
			d.readyErr = services.Wrap(services.ErrConfiguration, "transcribe", "diarizer ready",
				"uvx not found on PATH; install uv to run WhisperX", err)
			return
		}
		if strings.TrimSpace(d.cfg.HFToken) == "" {
			d.readyErr = services.Wrap(services.ErrConfiguration, "transcribe", "diarizer ready",
				"diarization requires a Hugging Face token (set transcribe.hf_token)", nil)
		}
	})
	return d.readyErr
}

func (d *WhisperXDiarizer) Diarize(ctx context.Context, sourcePath string, window media.Segment) ([]media.Turn, error) {
	outputDir, err := os.MkdirTemp("", "clipforge-diarize-")
	if err != nil {
		return nil, fmt.Errorf("diarize output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	args := d.buildArgs(sourcePath, outputDir)
	if err := d.run(ctx, uvxCommand, args...); err != nil {
		return nil, fmt.Errorf("whisperx diarize: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	data, err := os.ReadFile(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("read diarize output: %w", err)
	}
	payload, err := decodeWhisperXPayload(data)
	if err != nil {
		return nil, err
	}

	turns := turnsFromPayload(payload, window)
	d.logger.Debug("diarization complete",
		logging.String("source", sourcePath),
		logging.Int("turns", len(turns)),
		logging.Int("speakers", countSpeakers(turns)),
	)
	return turns, nil
}

func (d *WhisperXDiarizer) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 24)
	if d.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", whisperXCUDAIndexURL,
			"--extra-index-url", whisperXPypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", whisperXPypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", defaultModel,
		"--output_dir", outputDir,
		"--output_format", whisperXOutputFormat,
		"--diarize",
		"--hf_token", strings.TrimSpace(d.cfg.HFToken),
	)

	if lang := strings.TrimSpace(d.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if d.cfg.CUDAEnabled {
		args = append(args, "--device", cudaDevice)
	} else {
		args = append(args, "--device", cpuDevice, "--compute_type", cpuComputeType)
	}
	return args
}

// turnsFromPayload converts speaker-labeled segments into turns, keeping
// only those that overlap the edit window. Timestamps stay absolute.
func turnsFromPayload(payload whisperXPayload, window media.Segment) []media.Turn {
	var turns []media.Turn
	for _, seg := range payload.Segments {
		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			continue
		}
		if seg.End <= window.Start || seg.Start >= window.End {
			continue
		}
		turns = append(turns, media.Turn{
			Start:   seg.Start,
			End:     seg.End,
			Speaker: speaker,
		})
	}
	return turns
}

func countSpeakers(turns []media.Turn) int {
	seen := make(map[string]struct{}, 2)
	for _, t := range turns {
		seen[t.Speaker] = struct{}{}
	}
	return len(seen)
}
