package gates

import (
	"fmt"

	"github.com/NovoNihilo/clipforge/internal/media"
	"github.com/NovoNihilo/clipforge/internal/profiles"
)

// silenceEpsilon absorbs float error when comparing silence ratios.
const silenceEpsilon = 0.001

// wayTooLongFactor marks the point past the length band where trimming in the
// edit decision can no longer save a clip.
const wayTooLongFactor = 3

// Result reports a gate evaluation. Reason is a machine-readable fail code
// and empty when the transcript passed.
type Result struct {
	Passed bool
	Reason string
}

func pass() Result {
	return Result{Passed: true}
}

func reject(reason string) Result {
	return Result{Passed: false, Reason: reason}
}

// Evaluate runs the quality gates in fixed order; the first failure wins.
// Order: hook, silence, length.
func Evaluate(transcript *media.Transcript, rules profiles.Rules) Result {
	for _, gate := range []func(*media.Transcript, profiles.Rules) Result{
		hookGate,
		silenceGate,
		lengthGate,
	} {
		if result := gate(transcript, rules); !result.Passed {
			return result
		}
	}
	return pass()
}

// hookGate rejects clips where nothing is said early. Viewers scroll away if
// nothing happens in the first couple of seconds.
func hookGate(transcript *media.Transcript, rules profiles.Rules) Result {
	if len(transcript.Segments) == 0 {
		return reject("no_speech_detected")
	}
	firstStart := transcript.Segments[0].Start
	if firstStart > rules.HookMaxDelaySec {
		return reject(fmt.Sprintf("hook_too_late:%.1fs>(max %gs)", firstStart, rules.HookMaxDelaySec))
	}
	return pass()
}

// silenceGate rejects clips that are mostly dead air:
// silence_ratio = 1 - speech_duration/total_duration.
func silenceGate(transcript *media.Transcript, rules profiles.Rules) Result {
	total := transcript.Duration
	if total <= 0 {
		return reject("zero_duration")
	}
	ratio := 1.0 - transcript.SpeechDuration()/total
	if ratio > rules.SilenceRatioMax+silenceEpsilon {
		return reject(fmt.Sprintf("too_silent:%s>(max %s)", formatPercent(ratio), formatPercent(rules.SilenceRatioMax)))
	}
	return pass()
}

// lengthGate rejects clips outside the profile's length band. Long clips pass
// up to 3x the band maximum since the edit decision trims them; beyond that
// there is no usable highlight window.
func lengthGate(transcript *media.Transcript, rules profiles.Rules) Result {
	dur := transcript.Duration
	minLen := rules.MinLengthSec()
	maxLen := rules.MaxLengthSec()

	if dur < minLen {
		return reject(fmt.Sprintf("too_short:%.0fs<(min %gs)", dur, minLen))
	}
	if limit := maxLen * wayTooLongFactor; dur > limit {
		return reject(fmt.Sprintf("way_too_long:%.0fs>(max %gs)", dur, limit))
	}
	return pass()
}

// formatPercent renders a ratio as a whole percentage, e.g. 0.30 -> "30%".
func formatPercent(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}
