package packaging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/decide"
	"github.com/NovoNihilo/clipforge/internal/fileutil"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/services"
	"github.com/NovoNihilo/clipforge/internal/stage"
)

// thumbnailAt is where in the rendered clip the thumbnail frame is grabbed;
// one second in skips any fade or black lead-in.
const thumbnailAt = "1.0"

// CreatorResolver looks up the tracked creator a clip belongs to.
type CreatorResolver interface {
	GetCreatorByID(ctx context.Context, id int64) (*clips.Creator, error)
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
		return services.Wrap(services.ErrExternalTool, "package", "run "+name,
			name+" "+strings.Join(args, " ")+" failed: "+detail, err)
	}
	return nil
}

// Stage moves RENDERED clips to PACKAGED by building the publish pack. A
// packaging error never demotes the clip: the rendered artifact is intact
// and the pack can be rebuilt on the next run.
type Stage struct {
	cfg         *config.Config
	creators    CreatorResolver
	profileSlug string
	run         CommandRunner
	logger      *slog.Logger
}

// NewStage wires the packaging stage for one profile.
func NewStage(cfg *config.Config, creators CreatorResolver, profileSlug string, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:         cfg,
		creators:    creators,
		profileSlug: profileSlug,
		run:         defaultCommandRunner,
		logger:      logging.NewComponentLogger(logger, "package-stage"),
	}
}

// SetCommandRunner substitutes the external process runner, for tests.
func (s *Stage) SetCommandRunner(run CommandRunner) {
	if run != nil {
		s.run = run
	}
}

func (s *Stage) Name() string       { return "package" }
func (s *Stage) From() clips.Status { return clips.StatusRendered }
func (s *Stage) To() clips.Status   { return clips.StatusPackaged }

// HealthCheck verifies the thumbnail extractor and the outputs tree.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s == nil || s.creators == nil {
		return stage.Unhealthy(s.Name(), "creator catalog not configured")
	}
	if _, err := exec.LookPath(s.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(s.Name(), s.cfg.FFmpegBinary()+" not found in PATH")
	}
	if err := os.MkdirAll(s.cfg.Paths.OutputsDir, 0o755); err != nil {
		return stage.Unhealthy(s.Name(), "outputs directory not writable: "+err.Error())
	}
	return stage.Healthy(s.Name())
}

// Execute builds the publish pack for one rendered clip.
func (s *Stage) Execute(ctx context.Context, clip *clips.Clip) error {
	if _, err := stage.RequireArtifact(s.Name(), "rendered video", clip.Paths.Rendered); err != nil {
		return err
	}

	decision, err := s.loadDecision(clip)
	if err != nil {
		return err
	}

	creator, err := s.creators.GetCreatorByID(ctx, clip.CreatorID)
	if err != nil {
		return services.Wrap(services.ErrDataIntegrity, s.Name(), "resolve creator",
			"Clip references an unknown creator", err)
	}

	packDir := filepath.Join(s.cfg.Paths.OutputsDir, s.profileSlug, packDirName(clip))
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "create pack dir",
			"Could not create the publish pack directory", err)
	}

	videoPath := filepath.Join(packDir, packVideoName)
	if err := fileutil.CopyFileVerified(clip.Paths.Rendered, videoPath); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "copy rendered video",
			"Could not copy the rendered video into the pack", err)
	}

	thumbOK := s.extractThumbnail(ctx, videoPath, filepath.Join(packDir, packThumbName))
	if !thumbOK {
		s.logger.Warn("thumbnail extraction failed",
			logging.Int64(logging.FieldClipID, clip.ID),
			logging.String("pack", packDir),
		)
	}

	postCopy := buildPostCopy(decision)
	if err := writePackJSON(filepath.Join(packDir, packPostCopyName), postCopy); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "write post copy", "", err)
	}

	meta := s.buildMetadata(clip, creator, decision, thumbOK)
	if err := writePackJSON(filepath.Join(packDir, packMetadataName), meta); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "write metadata", "", err)
	}

	readme := renderReadme(meta, postCopy)
	if err := os.WriteFile(filepath.Join(packDir, packReadmeName), []byte(readme), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "write readme", "", err)
	}

	clip.Paths.PublishPack = packDir
	s.logger.Info("packaged clip",
		logging.Int64(logging.FieldClipID, clip.ID),
		logging.String(logging.FieldClipKey, clip.Key()),
		logging.String("pack", packDir),
		logging.Int("files", countEntries(packDir)),
	)
	return nil
}

// loadDecision reads the clip's edit decision when one was recorded. A clip
// without a decision still packages; it just ships without post copy.
func (s *Stage) loadDecision(clip *clips.Clip) (*decide.Decision, error) {
	path := strings.TrimSpace(clip.Paths.EditDecision)
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	decision, err := decide.Load(path)
	if err != nil {
		return nil, services.Wrap(services.ErrDataIntegrity, s.Name(), "load edit decision",
			"Recorded edit decision is unreadable", err)
	}
	return decision, nil
}

func (s *Stage) extractThumbnail(ctx context.Context, videoPath, thumbPath string) bool {
	err := s.run(ctx, s.cfg.FFmpegBinary(),
		"-y",
		"-ss", thumbnailAt,
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		thumbPath,
	)
	if err != nil {
		return false
	}
	info, err := os.Stat(thumbPath)
	return err == nil && info.Size() > 0
}

func (s *Stage) buildMetadata(clip *clips.Clip, creator *clips.Creator, decision *decide.Decision, thumbOK bool) Metadata {
	meta := Metadata{
		ClipID:              clip.ClipKey,
		Platform:            clip.Platform,
		Creator:             creator.DisplayName,
		CreatorURL:          creator.ChannelURL,
		Title:               clip.Metadata.Title,
		OriginalDurationSec: clip.Metadata.DurationSec,
		ViewCount:           clip.Metadata.ViewCount,
		BroadcastedAt:       clip.Metadata.BroadcastedAt,
		Profile:             s.profileSlug,
		ViralScore:          clip.ViralScore,
		Files:               PackFiles{Video: packVideoName},
	}
	if decision != nil {
		meta.Segment = SegmentInfo{Start: decision.Segment.Start, End: decision.Segment.End}
	}
	if thumbOK {
		thumb := packThumbName
		meta.Files.Thumbnail = &thumb
	}
	return meta
}

func writePackJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func countEntries(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	return len(entries)
}
