package captions

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/media"
)

const (
	// tailPad holds a caption on screen briefly after the last word ends so
	// it does not vanish mid-syllable.
	tailPad = 0.15
	// minCueDuration keeps cues readable when word timing collapses.
	minCueDuration = 0.1
	// defaultMaxWords bounds words per cue when the profile leaves it unset.
	defaultMaxWords = 3

	titleWrapWidth = 25
	titleMaxLines  = 3
)

// primaryColor is the cue color when no speaker data exists.
const primaryColor = "white"

// speakerPalette maps diarization speaker indices to caption colors. The
// numeric suffix of SPEAKER_NN indexes into it modulo its length, so
// SPEAKER_00 keeps the primary color.
var speakerPalette = []string{primaryColor, "yellow", "cyan", "lime"}

// Cue is one caption with timing relative to the edit window start. Cues are
// ordered and never overlap.
type Cue struct {
	Start float64
	End   float64
	Text  string
	Color string
}

// Compile turns speech timing into an ordered cue list for an edit window.
//
// With word timestamps (words should already carry speaker labels) cues hug
// the words: consecutive chunks of maxWords, each starting at its first word
// and ending at its last word plus a small tail pad, clamped so a cue never
// bleeds into the next chunk or the silence before it. Without word timing it
// falls back to distributing each transcript segment's text evenly across
// that segment's own span, so captions still never cover inter-segment
// silence.
func Compile(transcript *media.Transcript, window media.Segment, maxWords int, words []media.Word) []Cue {
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}
	if len(words) > 0 {
		return compileFromWords(words, window, maxWords)
	}
	if transcript == nil {
		return nil
	}
	return compileFromSegments(transcript.Segments, window, maxWords)
}

func compileFromWords(words []media.Word, window media.Segment, maxWords int) []Cue {
	segWords := make([]media.Word, 0, len(words))
	for _, w := range words {
		if w.End > window.Start && w.Start < window.End {
			segWords = append(segWords, w)
		}
	}

	var cues []Cue
	for i := 0; i < len(segWords); i += maxWords {
		end := i + maxWords
		if end > len(segWords) {
			end = len(segWords)
		}
		chunk := segWords[i:end]

		cueStart := chunk[0].Start - window.Start
		cueEnd := chunk[len(chunk)-1].End - window.Start + tailPad
		if cueStart < 0 {
			cueStart = 0
		}
		if cueEnd < cueStart+minCueDuration {
			cueEnd = cueStart + minCueDuration
		}
		// Never bleed into the next chunk's start.
		if end < len(segWords) {
			if next := segWords[end].Start - window.Start; cueEnd > next {
				cueEnd = next
			}
		}

		texts := make([]string, len(chunk))
		for j, w := range chunk {
			texts[j] = strings.TrimSpace(w.Text)
		}
		cues = append(cues, Cue{
			Start: cueStart,
			End:   cueEnd,
			Text:  strings.Join(texts, " "),
			Color: SpeakerColor(chunk[0].Speaker),
		})
	}
	return cues
}

func compileFromSegments(segments []media.Segment, window media.Segment, maxWords int) []Cue {
	var cues []Cue
	for _, seg := range segments {
		if seg.End <= window.Start || seg.Start >= window.End {
			continue
		}

		segStart := seg.Start
		if segStart < window.Start {
			segStart = window.Start
		}
		segEnd := seg.End
		if segEnd > window.End {
			segEnd = window.End
		}
		relStart := segStart - window.Start
		relEnd := segEnd - window.Start

		words := strings.Fields(seg.Text)
		if len(words) == 0 {
			continue
		}

		var chunks []string
		for i := 0; i < len(words); i += maxWords {
			end := i + maxWords
			if end > len(words) {
				end = len(words)
			}
			chunks = append(chunks, strings.Join(words[i:end], " "))
		}

		// Even distribution across this segment's clamped span only, so the
		// silence between segments stays caption-free.
		chunkDuration := (relEnd - relStart) / float64(len(chunks))
		for i, chunk := range chunks {
			cues = append(cues, Cue{
				Start: relStart + float64(i)*chunkDuration,
				End:   relStart + float64(i+1)*chunkDuration,
				Text:  chunk,
				Color: primaryColor,
			})
		}
	}
	return cues
}

// SpeakerColor maps a diarization label to a caption color. Labels follow
// SPEAKER_NN; anything else gets the primary color.
func SpeakerColor(speaker string) string {
	speaker = strings.TrimSpace(speaker)
	idx := strings.LastIndex(speaker, "_")
	if idx < 0 || idx == len(speaker)-1 {
		return primaryColor
	}
	n, err := strconv.Atoi(speaker[idx+1:])
	if err != nil || n < 0 {
		return primaryColor
	}
	return speakerPalette[n%len(speakerPalette)]
}

var emojiPattern = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2702}-\x{27B0}\x{24C2}-\x{1F251}\x{1F900}-\x{1F9FF}\x{1FA00}-\x{1FA6F}\x{1FA70}-\x{1FAFF}\x{2600}-\x{26FF}\x{FE0F}\x{200D}]+`)

// StripEmoji removes emoji and trims the result; drawtext renders them as
// tofu boxes otherwise.
func StripEmoji(text string) string {
	return strings.TrimSpace(emojiPattern.ReplaceAllString(text, ""))
}

// WrapTitle prepares a title overlay: emoji stripped, greedily word-wrapped
// at 25 columns, at most 3 lines. Returns nil when nothing remains.
func WrapTitle(title string) []string {
	title = StripEmoji(strings.TrimSpace(title))
	if title == "" {
		return nil
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(title) {
		// Hard-split words longer than the wrap width.
		for len(word) > titleWrapWidth {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
			lines = append(lines, word[:titleWrapWidth])
			word = word[titleWrapWidth:]
		}
		if word == "" {
			continue
		}
		switch {
		case current.Len() == 0:
			current.WriteString(word)
		case current.Len()+1+len(word) <= titleWrapWidth:
			current.WriteByte(' ')
			current.WriteString(word)
		default:
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	if len(lines) > titleMaxLines {
		lines = lines[:titleMaxLines]
	}
	return lines
}
