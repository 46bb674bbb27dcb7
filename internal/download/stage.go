package download

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/services"
	"github.com/NovoNihilo/clipforge/internal/stage"
)

const sourceFileName = "source.mp4"

// CommandRunner executes an external tool. Tests substitute this to avoid
// invoking ffmpeg for real.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Stage fetches a DISCOVERED clip's media into its working directory.
type Stage struct {
	cfg     *config.Config
	fetcher Fetcher
	run     CommandRunner
	logger  *slog.Logger
}

// NewStage builds the download stage around the given fetcher.
func NewStage(cfg *config.Config, fetcher Fetcher, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:     cfg,
		fetcher: fetcher,
		run:     defaultCommandRunner,
		logger:  logging.NewComponentLogger(logger, "download-stage"),
	}
}

func (s *Stage) Name() string { return "download" }

func (s *Stage) From() clips.Status { return clips.StatusDiscovered }

func (s *Stage) To() clips.Status { return clips.StatusDownloaded }

// HealthCheck verifies the remux tool is reachable; direct MP4 downloads
// would survive without it, but HLS sources would quietly fail every clip.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(s.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(s.Name(), fmt.Sprintf("%s not found in PATH", s.cfg.FFmpegBinary()))
	}
	return stage.Healthy(s.Name())
}

// Execute downloads the clip's media to <work dir>/source.mp4 and records the
// path. MP4 URLs stream directly; anything else is treated as a playlist and
// remuxed through ffmpeg. Every failure carries the download_failed reason.
func (s *Stage) Execute(ctx context.Context, clip *clips.Clip) error {
	mediaURL := strings.TrimSpace(clip.Metadata.MediaURL)
	if mediaURL == "" {
		return services.WithFailReason(
			services.Wrap(services.ErrValidation, s.Name(), "resolve url", "Clip carries no media URL", nil),
			"download_failed")
	}

	workDir := s.cfg.ClipWorkDir(clip.Platform, clip.ClipKey)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.WithFailReason(
			services.Wrap(services.ErrConfiguration, s.Name(), "prepare", fmt.Sprintf("Cannot create %s", workDir), err),
			"download_failed")
	}
	dest := filepath.Join(workDir, sourceFileName)

	s.logger.Info("downloading clip media",
		logging.String(logging.FieldClipKey, clip.ClipKey),
		logging.String(logging.FieldPlatform, clip.Platform))

	var err error
	if directDownload(mediaURL) {
		err = s.fetcher.FetchMedia(ctx, mediaURL, dest)
	} else {
		err = s.remux(ctx, mediaURL, dest)
	}
	if err != nil {
		return services.WithFailReason(err, "download_failed")
	}

	size, err := stage.RequireArtifact(s.Name(), "source media", dest)
	if err != nil {
		return services.WithFailReason(err, "download_failed")
	}

	clip.Paths.Source = dest
	s.logger.Info("clip media downloaded",
		logging.String(logging.FieldClipKey, clip.ClipKey),
		logging.Int64("bytes", size))
	return nil
}

// remux pulls an HLS playlist into an MP4 container without re-encoding.
// The ADTS-to-ASC filter rewrites the AAC framing HLS segments use into the
// form MP4 expects.
func (s *Stage) remux(ctx context.Context, mediaURL, dest string) error {
	args := []string{
		"-y",
		"-i", mediaURL,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		dest,
	}
	if err := s.run(ctx, s.cfg.FFmpegBinary(), args...); err != nil {
		return services.Wrap(services.ErrExternalTool, s.Name(), "remux", "HLS remux failed", err)
	}
	return nil
}

// directDownload reports whether the URL already points at an MP4 file.
func directDownload(mediaURL string) bool {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return strings.HasSuffix(mediaURL, ".mp4")
	}
	return strings.HasSuffix(strings.ToLower(parsed.Path), ".mp4")
}
