package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/media"
)

// Engine produces a transcript for a local media file. Implementations own
// their model lifecycle behind Ready, which the runner calls once before a
// batch; Transcribe must be safe for concurrent use by the worker pool.
type Engine interface {
	Ready(ctx context.Context) error
	Transcribe(ctx context.Context, sourcePath string) (*media.Transcript, error)
}

// Diarizer labels who-spoke-when across a media file, returning only the
// turns overlapping the requested window with absolute timestamps. A nil
// turn list is a valid answer: callers fall back to the default speaker, so
// diarization being unavailable never fails a clip.
type Diarizer interface {
	Ready(ctx context.Context) error
	Diarize(ctx context.Context, sourcePath string, window media.Segment) ([]media.Turn, error)
}

// CommandRunner executes an external tool. Tests substitute this to avoid
// invoking uvx for real.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	// Torch 2.6 changed torch.load default to weights_only=true, breaking
	// WhisperX/pyannote checkpoint loading. Force legacy behavior.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// NoopDiarizer is used when no Hugging Face token is configured: every
// Diarize call reports no turns, leaving captions single-speaker.
type NoopDiarizer struct{}

func (NoopDiarizer) Ready(context.Context) error { return nil }

func (NoopDiarizer) Diarize(context.Context, string, media.Segment) ([]media.Turn, error) {
	return nil, nil
}
