package decide

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/profiles"
)

// Destination names for the post-copy and output maps. Every decision carries
// all three.
const (
	DestinationShorts = "shorts"
	DestinationTikTok = "tiktok"
	DestinationReels  = "reels"
)

// Destinations returns the destination keys in their canonical order.
func Destinations() []string {
	return []string{DestinationShorts, DestinationTikTok, DestinationReels}
}

// Per-destination output length ceilings in seconds.
const (
	shortsMaxLenSec = 60
	tiktokMaxLenSec = 60
	reelsMaxLenSec  = 90
)

// Segment is the half-open time window to cut from the source clip.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the window length in seconds.
func (s Segment) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Layout fixes how the horizontal source maps onto the vertical frame.
type Layout struct {
	Mode   string `json:"mode"`
	Target string `json:"target"`
}

// CaptionConfig carries the caption settings the renderer burns in.
type CaptionConfig struct {
	Enabled  bool   `json:"enabled"`
	Style    string `json:"style"`
	Position string `json:"position"`
	MaxWords int    `json:"max_words"`
}

// AudioConfig carries the audio treatment flags.
type AudioConfig struct {
	Normalize bool `json:"normalize"`
}

// OutputSpec bounds one destination's rendered length.
type OutputSpec struct {
	MaxLenSec float64 `json:"max_len_sec"`
}

// PlatformCopy is the post text drafted for one destination.
type PlatformCopy struct {
	Title    string   `json:"title"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// Decision is the edit decision persisted as edit_decision.json once a clip
// reaches DECIDED. It is the renderer's and packager's sole input besides
// the transcript and source media.
type Decision struct {
	ProfileSlug     string                  `json:"profile_slug"`
	ClipKey         string                  `json:"clip_id"`
	Segment         Segment                 `json:"segment"`
	Layout          Layout                  `json:"layout"`
	Captions        CaptionConfig           `json:"captions"`
	Audio           AudioConfig             `json:"audio"`
	Outputs         map[string]OutputSpec   `json:"outputs"`
	PostCopy        map[string]PlatformCopy `json:"post_copy"`
	ViralScore      int                     `json:"viral_score"`
	ViralReason     string                  `json:"viral_reason,omitempty"`
	HookDescription string                  `json:"hook_description,omitempty"`
}

// verdict is the wire shape the model is instructed to emit. ContentSafe is a
// pointer so an omitted field reads as safe rather than as a rejection; the
// lexical pre-filter already screened the transcript deterministically.
type verdict struct {
	SegmentStart    float64                `json:"segment_start"`
	SegmentEnd      float64                `json:"segment_end"`
	ViralScore      int                    `json:"viral_score"`
	ViralReason     string                 `json:"viral_reason"`
	HookDescription string                 `json:"hook_description"`
	ContentSafe     *bool                  `json:"content_safe"`
	ContentFlag     string                 `json:"content_flag"`
	PostCopy        map[string]verdictCopy `json:"post_copy"`
}

type verdictCopy struct {
	Title    string   `json:"title"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

func (v verdict) safe() bool {
	return v.ContentSafe == nil || *v.ContentSafe
}

// buildDecision assembles a Decision from the model verdict, filling gaps
// with profile defaults and clamping the segment into the clip's real span.
// An unusable segment or out-of-range score is reported as an error; cosmetic
// gaps (missing titles, empty hashtag lists) are repaired silently, matching
// how sparse model output is tolerated elsewhere.
func buildDecision(v verdict, clip *clips.Clip, rules profiles.Rules, profileSlug string, clipDuration float64) (*Decision, error) {
	seg := Segment{Start: v.SegmentStart, End: v.SegmentEnd}
	if seg.Start < 0 {
		seg.Start = 0
	}
	if seg.End <= 0 && clipDuration > 0 {
		seg.End = clipDuration
	}
	if clipDuration > 0 && seg.End > clipDuration {
		seg.End = clipDuration
	}
	if seg.End <= seg.Start {
		return nil, fmt.Errorf("segment %.2f-%.2f is empty", seg.Start, seg.End)
	}
	if v.ViralScore < 1 || v.ViralScore > 10 {
		return nil, fmt.Errorf("viral_score %d out of range 1-10", v.ViralScore)
	}

	postCopy := make(map[string]PlatformCopy, 3)
	for _, dest := range Destinations() {
		raw := v.PostCopy[dest]
		copyForDest := PlatformCopy{
			Title:    strings.TrimSpace(raw.Title),
			Caption:  strings.TrimSpace(raw.Caption),
			Hashtags: raw.Hashtags,
		}
		if copyForDest.Title == "" {
			copyForDest.Title = clip.Title()
		}
		if len(copyForDest.Hashtags) == 0 {
			copyForDest.Hashtags = rules.Hashtags(5)
		}
		postCopy[dest] = copyForDest
	}

	return &Decision{
		ProfileSlug: profileSlug,
		ClipKey:     clip.ClipKey,
		Segment:     seg,
		Layout:      Layout{Mode: "center_crop", Target: "9:16"},
		Captions: CaptionConfig{
			Enabled:  true,
			Style:    rules.CaptionStyle,
			Position: rules.CaptionPosition,
			MaxWords: rules.CaptionMaxWords,
		},
		Audio: AudioConfig{Normalize: true},
		Outputs: map[string]OutputSpec{
			DestinationShorts: {MaxLenSec: shortsMaxLenSec},
			DestinationTikTok: {MaxLenSec: tiktokMaxLenSec},
			DestinationReels:  {MaxLenSec: reelsMaxLenSec},
		},
		PostCopy:        postCopy,
		ViralScore:      v.ViralScore,
		ViralReason:     strings.TrimSpace(v.ViralReason),
		HookDescription: strings.TrimSpace(v.HookDescription),
	}, nil
}

// Validate reports structural problems that would break rendering or
// packaging downstream.
func (d *Decision) Validate() error {
	if d == nil {
		return fmt.Errorf("decision is nil")
	}
	if d.Segment.Duration() <= 0 {
		return fmt.Errorf("segment %.2f-%.2f is empty", d.Segment.Start, d.Segment.End)
	}
	if d.Segment.Start < 0 {
		return fmt.Errorf("segment start %.2f is negative", d.Segment.Start)
	}
	if d.ViralScore < 1 || d.ViralScore > 10 {
		return fmt.Errorf("viral_score %d out of range 1-10", d.ViralScore)
	}
	for _, dest := range Destinations() {
		if _, ok := d.PostCopy[dest]; !ok {
			return fmt.Errorf("post_copy missing destination %q", dest)
		}
		if _, ok := d.Outputs[dest]; !ok {
			return fmt.Errorf("outputs missing destination %q", dest)
		}
	}
	return nil
}

// Save writes the decision as indented JSON.
func (d *Decision) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal edit decision: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write edit decision: %w", err)
	}
	return nil
}

// Load reads an edit_decision.json artifact.
func Load(path string) (*Decision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read edit decision: %w", err)
	}
	var decision Decision
	if err := json.Unmarshal(data, &decision); err != nil {
		return nil, fmt.Errorf("parse edit decision: %w", err)
	}
	return &decision, nil
}
