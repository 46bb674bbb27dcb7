package moderation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/media"
)

const (
	// maxBleepWords is the most bleep-worthy words a clip may carry before
	// the whole clip is rejected.
	maxBleepWords = 8
	// maxProfanityDensity caps bleepable words relative to total word count.
	maxProfanityDensity = 0.12
	// bleepReplacement is the caption text substituted for a bleeped word.
	bleepReplacement = "[BLEEP]"
)

// Result reports a pre-filter verdict. Reason is a machine-readable
// hard_reject code and empty when the text passed.
type Result struct {
	Passed bool
	Reason string
}

// BleepSpan marks one word to mute in audio and replace in captions.
type BleepSpan struct {
	Start       float64
	End         float64
	Word        string
	Replacement string
}

// PreFilter scans the transcript text before any model call. Pattern sets run
// in order (slurs, gambling, explicit sexual content), then the bleep
// vocabulary is counted against the absolute and density caps.
func PreFilter(fullText string) Result {
	lowered := strings.ToLower(fullText)

	checks := []struct {
		patterns []*regexp.Regexp
		reason   string
	}{
		{slurPatterns, "hard_reject:slur_detected"},
		{gamblingPatterns, "hard_reject:gambling_content"},
		{sexualExplicitPatterns, "hard_reject:explicit_sexual_content"},
	}
	for _, check := range checks {
		for _, pattern := range check.patterns {
			if pattern.MatchString(lowered) {
				return Result{Passed: false, Reason: check.reason}
			}
		}
	}

	words := strings.Fields(lowered)
	if len(words) > 0 {
		bleepCount := 0
		for _, word := range words {
			if _, ok := bleepWords[cleanWord(word)]; ok {
				bleepCount++
			}
		}
		if bleepCount > maxBleepWords {
			return Result{Passed: false, Reason: fmt.Sprintf("hard_reject:too_many_profanities(%d)", bleepCount)}
		}
		if density := float64(bleepCount) / float64(len(words)); density > maxProfanityDensity {
			return Result{Passed: false, Reason: fmt.Sprintf("hard_reject:profanity_density(%.0f%%)", density*100)}
		}
	}

	return Result{Passed: true}
}

// BleepMap scans word-level timestamps and returns the words to bleep inside
// the edit window. Without word timing there is nothing to mute precisely, so
// the map is empty.
func BleepMap(transcript *media.Transcript, segmentStart, segmentEnd float64) []BleepSpan {
	if transcript == nil || len(transcript.Words) == 0 {
		return nil
	}

	var spans []BleepSpan
	for _, word := range transcript.WordsInWindow(segmentStart, segmentEnd) {
		if _, ok := bleepWords[cleanWord(word.Text)]; ok {
			spans = append(spans, BleepSpan{
				Start:       word.Start,
				End:         word.End,
				Word:        word.Text,
				Replacement: bleepReplacement,
			})
		}
	}
	return spans
}

// CensorText replaces bleep-worthy words in a caption string with [BLEEP].
func CensorText(text string) string {
	words := strings.Fields(text)
	for i, word := range words {
		if _, ok := bleepWords[cleanWord(word)]; ok {
			words[i] = bleepReplacement
		}
	}
	return strings.Join(words, " ")
}

// cleanWord strips everything except letters so punctuation and casing do not
// hide a match.
func cleanWord(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
