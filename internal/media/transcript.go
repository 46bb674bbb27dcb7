package media

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Word is a single spoken word with precise timing. Speaker is filled in by
// diarization when available.
type Word struct {
	Text    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// Segment is one contiguous span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Turn is one diarization span attributing audio to a speaker label
// (SPEAKER_00, SPEAKER_01, ...). Derived per render, never persisted.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Transcript is the immutable speech record written beside a clip's source
// file. Segments are always present after a successful transcription; Words
// carry word-level timing when the engine provides it.
type Transcript struct {
	Segments            []Segment `json:"segments"`
	Words               []Word    `json:"words,omitempty"`
	Language            string    `json:"language"`
	LanguageProbability float64   `json:"language_probability,omitempty"`
	Duration            float64   `json:"duration"`
	FullText            string    `json:"full_text"`
}

// SpeechDuration sums the length of every recognized segment.
func (t *Transcript) SpeechDuration() float64 {
	var total float64
	for _, seg := range t.Segments {
		total += seg.Duration()
	}
	return total
}

// WordsInWindow returns the words overlapping [start, end).
func (t *Transcript) WordsInWindow(start, end float64) []Word {
	var out []Word
	for _, w := range t.Words {
		if w.End > start && w.Start < end {
			out = append(out, w)
		}
	}
	return out
}

// SegmentsInWindow returns the segments overlapping [start, end).
func (t *Transcript) SegmentsInWindow(start, end float64) []Segment {
	var out []Segment
	for _, seg := range t.Segments {
		if seg.End > start && seg.Start < end {
			out = append(out, seg)
		}
	}
	return out
}

// RebuildFullText recomputes FullText from the segment texts.
func (t *Transcript) RebuildFullText() {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	t.FullText = strings.Join(parts, " ")
}

// LoadTranscript reads a transcript.json artifact.
func LoadTranscript(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	return &transcript, nil
}

// Save writes the transcript beside the clip source as indented JSON.
func (t *Transcript) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
