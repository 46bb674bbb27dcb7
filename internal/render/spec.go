package render

import (
	"github.com/NovoNihilo/clipforge/internal/captions"
	"github.com/NovoNihilo/clipforge/internal/media"
	"github.com/NovoNihilo/clipforge/internal/moderation"
)

// Target frame for every destination.
const (
	FrameWidth  = 1080
	FrameHeight = 1920
)

// Spec is the declarative instruction set for one render. The stage builds
// it from the edit decision, transcript, and moderation scan; the engine
// serializes it into a filter program. Cue times are relative to the cut
// window, bleep spans keep absolute source timestamps.
type Spec struct {
	SourcePath string
	OutputPath string
	MusicPath  string

	Segment media.Segment

	Cues       []captions.Cue
	TitleLines []string
	Bleeps     []moderation.BleepSpan

	FontFile string
}

// Duration returns the cut window length in seconds.
func (s Spec) Duration() float64 {
	return s.Segment.Duration()
}

// Job hands a spec to an engine along with the directory where filter
// scripts may be written.
type Job struct {
	Spec    Spec
	WorkDir string
}
