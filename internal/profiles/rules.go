package profiles

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/NovoNihilo/clipforge/internal/language"
)

// DefaultSlug and DefaultName identify the profile installed by the seed
// command.
const (
	DefaultSlug = "funny-streamers"
	DefaultName = "Funny Livestreamers"
)

// Rules is the ruleset stored in profiles.rules_json. Discovery filters by
// category and language, the quality gates compare against the length band
// and hook/silence limits, the decider and renderer take the caption
// settings, and selection takes its quotas from the same document.
type Rules struct {
	Niche                    string    `json:"niche"`
	Categories               []string  `json:"categories"`
	Languages                []string  `json:"languages"`
	LengthBandSec            []float64 `json:"length_band_sec"`
	HookMaxDelaySec          float64   `json:"hook_max_delay_sec"`
	SilenceRatioMax          float64   `json:"silence_ratio_max"`
	CaptionStyle             string    `json:"caption_style"`
	CaptionPosition          string    `json:"caption_position"`
	CaptionMaxWords          int       `json:"caption_max_words"`
	HashtagBank              []string  `json:"hashtag_bank"`
	PostTitleTemplate        string    `json:"post_title_template"`
	MaxClipsPerCreatorPerRun int       `json:"max_clips_per_creator_per_run"`
	TopNPerRun               int       `json:"top_n_per_run"`
	MinViralScore            int       `json:"min_viral_score"`
}

// Default returns the ruleset seeded for the funny-livestreamer profile.
func Default() Rules {
	return Rules{
		Niche:           "funny livestreamers",
		Categories:      []string{"Just Chatting", "IRL", "Grand Theft Auto V", "Fortnite"},
		Languages:       []string{"en"},
		LengthBandSec:   []float64{12, 40},
		HookMaxDelaySec: 2.0,
		SilenceRatioMax: 0.20,
		CaptionStyle:    "bold_white",
		CaptionPosition: "bottom_center",
		CaptionMaxWords: 3,
		HashtagBank: []string{
			"#shorts", "#funny", "#streamer", "#viral", "#twitch",
			"#kick", "#livestream", "#clips", "#gaming", "#lol",
		},
		PostTitleTemplate:        "{title} 😂 #{creator}",
		MaxClipsPerCreatorPerRun: 3,
		TopNPerRun:               3,
		MinViralScore:            4,
	}
}

// Parse loads a ruleset from JSON. Blank input returns the default ruleset,
// and fields absent from the document keep their default values.
func Parse(raw string) (Rules, error) {
	rules := Default()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return rules, nil
	}
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return Rules{}, fmt.Errorf("parse profile rules: %w", err)
	}
	rules.Languages = language.NormalizeList(rules.Languages)
	return rules, nil
}

// Encode serialises the ruleset to JSON for persistence.
func (r Rules) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode profile rules: %w", err)
	}
	return string(data), nil
}

// MinLengthSec returns the lower bound of the target length band.
func (r Rules) MinLengthSec() float64 {
	if len(r.LengthBandSec) < 2 {
		return 0
	}
	return r.LengthBandSec[0]
}

// MaxLengthSec returns the upper bound of the target length band.
func (r Rules) MaxLengthSec() float64 {
	if len(r.LengthBandSec) < 2 {
		return 0
	}
	return r.LengthBandSec[1]
}

// MatchesCategory reports whether a game or category name is in the
// profile's category list. An empty list accepts everything.
func (r Rules) MatchesCategory(name string) bool {
	if len(r.Categories) == 0 {
		return true
	}
	name = strings.TrimSpace(name)
	for _, category := range r.Categories {
		if strings.EqualFold(strings.TrimSpace(category), name) {
			return true
		}
	}
	return false
}

// MatchesLanguage reports whether a language code is in the profile's
// language list. Both sides normalize to ISO 639-1 first, so "en-US" and
// "eng" satisfy a profile listing "en". An empty list accepts everything.
func (r Rules) MatchesLanguage(code string) bool {
	if len(r.Languages) == 0 {
		return true
	}
	code = language.Normalize(code)
	for _, lang := range r.Languages {
		if language.Normalize(lang) == code {
			return true
		}
	}
	return false
}

// RenderPostTitle expands the post title template for one clip, substituting
// {title} and {creator}. A blank template falls back to the clip title.
func (r Rules) RenderPostTitle(title, creator string) string {
	template := strings.TrimSpace(r.PostTitleTemplate)
	if template == "" {
		return strings.TrimSpace(title)
	}
	out := strings.ReplaceAll(template, "{title}", title)
	out = strings.ReplaceAll(out, "{creator}", creator)
	return strings.TrimSpace(out)
}

// Hashtags returns up to limit entries from the hashtag bank.
func (r Rules) Hashtags(limit int) []string {
	if limit <= 0 || len(r.HashtagBank) == 0 {
		return nil
	}
	if limit > len(r.HashtagBank) {
		limit = len(r.HashtagBank)
	}
	return slices.Clone(r.HashtagBank[:limit])
}

// Validate reports every structural problem with the ruleset.
func (r Rules) Validate() error {
	var issues []string
	if strings.TrimSpace(r.Niche) == "" {
		issues = append(issues, "niche must be set")
	}
	if len(r.LengthBandSec) != 2 {
		issues = append(issues, "length_band_sec must hold exactly [min, max]")
	} else {
		if r.LengthBandSec[0] <= 0 {
			issues = append(issues, "length_band_sec min must be positive")
		}
		if r.LengthBandSec[1] <= r.LengthBandSec[0] {
			issues = append(issues, "length_band_sec max must exceed min")
		}
	}
	if r.HookMaxDelaySec < 0 {
		issues = append(issues, "hook_max_delay_sec must not be negative")
	}
	if r.SilenceRatioMax < 0 || r.SilenceRatioMax > 1 {
		issues = append(issues, "silence_ratio_max must be between 0 and 1")
	}
	if r.CaptionMaxWords < 1 {
		issues = append(issues, "caption_max_words must be at least 1")
	}
	if r.MaxClipsPerCreatorPerRun < 1 {
		issues = append(issues, "max_clips_per_creator_per_run must be at least 1")
	}
	if r.TopNPerRun < 1 {
		issues = append(issues, "top_n_per_run must be at least 1")
	}
	if r.MinViralScore < 1 || r.MinViralScore > 10 {
		issues = append(issues, "min_viral_score must be between 1 and 10")
	}
	if len(issues) > 0 {
		return fmt.Errorf("invalid profile rules: %s", strings.Join(issues, "; "))
	}
	return nil
}
