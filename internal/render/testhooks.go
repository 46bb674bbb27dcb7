package render

import (
	"context"

	"github.com/NovoNihilo/clipforge/internal/media/ffprobe"
)

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	previous := probeOutput
	probeOutput = fn
	return func() {
		probeOutput = previous
	}
}
