package render

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/services"
)

// Filter scripts are written to disk because the programs routinely exceed
// comfortable command-line length.
const (
	filterScriptName   = "filter_script.txt"
	fallbackScriptName = "filter_fallback.txt"
)

// Engine executes a render job. The bundled implementation shells out to
// ffmpeg; tests substitute fakes.
type Engine interface {
	Render(ctx context.Context, job Job) error
}

// CommandRunner executes an external tool. Tests substitute this to avoid
// invoking ffmpeg for real.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 800 {
			detail = detail[len(detail)-800:]
		}
		return services.Wrap(services.ErrExternalTool, "render", "run "+name,
			name+" "+strings.Join(args, " ")+" failed: "+detail, err)
	}
	return nil
}

// FFmpegEngine renders through ffmpeg, degrading through the layout ladder
// when a rung's filter graph fails: full blur layout with music, then
// scale+pad with overlays, then geometry alone. Bleep mutes and loudness
// normalization ride the audio chain on every rung.
type FFmpegEngine struct {
	binary string
	run    CommandRunner
	logger *slog.Logger
}

// NewFFmpegEngine wires the renderer against the configured ffmpeg binary.
func NewFFmpegEngine(cfg *config.Config, logger *slog.Logger) *FFmpegEngine {
	return &FFmpegEngine{
		binary: cfg.FFmpegBinary(),
		run:    defaultCommandRunner,
		logger: logging.NewComponentLogger(logger, "render-engine"),
	}
}

// SetCommandRunner substitutes the external process runner, for tests.
func (e *FFmpegEngine) SetCommandRunner(run CommandRunner) {
	if run != nil {
		e.run = run
	}
}

// Render walks the fallback ladder until a rung succeeds. Context
// cancellation stops the ladder immediately; the last rung's error is
// returned when everything fails.
func (e *FFmpegEngine) Render(ctx context.Context, job Job) error {
	rungs := []struct {
		name  string
		build func(Job) ([]string, error)
	}{
		{"full", e.fullArgs},
		{"simple", e.simpleArgs},
		{"bare", e.bareArgs},
	}

	var lastErr error
	for _, rung := range rungs {
		if err := ctx.Err(); err != nil {
			return err
		}
		args, err := rung.build(job)
		if err != nil {
			return err
		}
		if err := e.run(ctx, e.binary, args...); err != nil {
			lastErr = err
			e.logger.Warn("render rung failed",
				logging.String("rung", rung.name),
				logging.String("output", job.Spec.OutputPath),
				logging.Error(err),
			)
			continue
		}
		if rung.name != "full" {
			e.logger.Warn("rendered with degraded layout",
				logging.String("rung", rung.name),
				logging.String("output", job.Spec.OutputPath),
			)
		}
		return nil
	}
	return lastErr
}

func (e *FFmpegEngine) fullArgs(job Job) ([]string, error) {
	scriptPath := filepath.Join(job.WorkDir, filterScriptName)
	if err := os.WriteFile(scriptPath, []byte(fullProgram(job.Spec)), 0o644); err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "write filter script",
			"Could not write filter program", err)
	}

	args := []string{
		"-y",
		"-ss", formatSeconds(job.Spec.Segment.Start),
		"-i", job.Spec.SourcePath,
	}
	if job.Spec.MusicPath != "" {
		args = append(args, "-i", job.Spec.MusicPath)
	}
	args = append(args,
		"-t", formatSeconds(job.Spec.Duration()),
		"-filter_complex_script", scriptPath,
		"-map", "[vout]",
		"-map", "[aout]",
	)
	return append(args, encoderArgs(job.Spec.OutputPath)...), nil
}

func (e *FFmpegEngine) simpleArgs(job Job) ([]string, error) {
	scriptPath := filepath.Join(job.WorkDir, fallbackScriptName)
	if err := os.WriteFile(scriptPath, []byte(simpleVideoChain(job.Spec)), 0o644); err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "write filter script",
			"Could not write fallback filter program", err)
	}

	args := []string{
		"-y",
		"-ss", formatSeconds(job.Spec.Segment.Start),
		"-i", job.Spec.SourcePath,
		"-t", formatSeconds(job.Spec.Duration()),
		"-filter_script:v", scriptPath,
		"-af", speechFilter(job.Spec),
	}
	return append(args, encoderArgs(job.Spec.OutputPath)...), nil
}

func (e *FFmpegEngine) bareArgs(job Job) ([]string, error) {
	args := []string{
		"-y",
		"-ss", formatSeconds(job.Spec.Segment.Start),
		"-i", job.Spec.SourcePath,
		"-t", formatSeconds(job.Spec.Duration()),
		"-vf", bareVideoChain(),
		"-af", speechFilter(job.Spec),
	}
	return append(args, encoderArgs(job.Spec.OutputPath)...), nil
}

func encoderArgs(outputPath string) []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-movflags", "+faststart",
		outputPath,
	}
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
