package captions

import (
	"math"

	"github.com/NovoNihilo/clipforge/internal/media"
)

// DefaultSpeaker is the label applied when diarization is absent or no turn
// claims a word.
const DefaultSpeaker = "SPEAKER_00"

// AssignSpeakers labels each word inside [segStart, segEnd) with the speaker
// whose diarization turn overlaps it most. When no turn overlaps at all, the
// turn containing the word's midpoint wins; otherwise the default speaker.
// The input slice is not mutated. Without turns every word gets the default,
// so captions still render single-colored.
func AssignSpeakers(words []media.Word, turns []media.Turn, segStart, segEnd float64) []media.Word {
	out := make([]media.Word, len(words))
	copy(out, words)

	if len(turns) == 0 {
		for i := range out {
			out[i].Speaker = DefaultSpeaker
		}
		return out
	}

	for i := range out {
		w := &out[i]
		if w.End <= segStart || w.Start >= segEnd {
			continue
		}

		mid := (w.Start + w.End) / 2
		best := DefaultSpeaker
		bestOverlap := 0.0
		for _, turn := range turns {
			overlap := math.Min(w.End, turn.End) - math.Max(w.Start, turn.Start)
			if overlap > bestOverlap {
				bestOverlap = overlap
				best = turn.Speaker
			}
			// Midpoint containment as a backup while no overlap has landed.
			if bestOverlap == 0 && turn.Start <= mid && mid <= turn.End {
				best = turn.Speaker
			}
		}
		w.Speaker = best
	}
	return out
}
