package decide

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/media"
	"github.com/NovoNihilo/clipforge/internal/profiles"
)

const systemPromptTemplate = `You are an expert short-form video editor for social media.
You analyze clip transcripts and metadata to make edit decisions for viral shorts.

Your job:
1. Pick the BEST segment (start_sec, end_sec) that would make the most engaging short
2. Score its viral potential (1-10)
3. Judge whether the clip is brand-safe for YouTube Shorts, TikTok, and Instagram Reels
4. Write platform-specific post copy

Rules:
- The segment MUST start with a strong hook (funny moment, shocking statement, or energy shift)
- Prefer segments where speech starts within the first 1-2 seconds
- Target length: %[1]g-%[2]g seconds (the segment you pick must be within this range)
- If the entire clip is good, use the full duration
- If the clip is longer than %[2]gs, find the best %[2]gs window
- Set content_safe to false for hate, harassment, sexual content, or dangerous acts; casual profanity is fine (it gets bleeped)
- Post copy should be short, punchy, and use the creator's voice/energy
- Hashtags should mix niche tags with broad viral tags

You MUST respond with ONLY a JSON object (no markdown, no backticks, no explanation).
The JSON must have exactly this structure:

{
  "segment_start": <float>,
  "segment_end": <float>,
  "viral_score": <int 1-10>,
  "viral_reason": "<1 sentence why this would go viral>",
  "hook_description": "<what happens in the first 2 seconds>",
  "content_safe": <bool>,
  "content_flag": "<short reason when unsafe, empty string when safe>",
  "post_copy": {
    "shorts": {
      "title": "<YouTube Shorts title, max 100 chars>",
      "caption": "<YouTube description, 1-2 sentences>",
      "hashtags": ["#tag1", "#tag2", "#tag3", "#tag4", "#tag5"]
    },
    "tiktok": {
      "title": "<TikTok caption, max 150 chars with hashtags inline>",
      "caption": "",
      "hashtags": ["#tag1", "#tag2", "#tag3"]
    },
    "reels": {
      "title": "<Instagram Reels caption, max 125 chars>",
      "caption": "",
      "hashtags": ["#tag1", "#tag2", "#tag3", "#tag4"]
    }
  }
}`

// systemPrompt renders the editing brief with the profile's length band
// substituted in.
func systemPrompt(rules profiles.Rules) string {
	return fmt.Sprintf(systemPromptTemplate, rules.MinLengthSec(), rules.MaxLengthSec())
}

// userPrompt renders the clip facts and the timestamped transcript the model
// decides from.
func userPrompt(clip *clips.Clip, transcript *media.Transcript, rules profiles.Rules) string {
	var segments strings.Builder
	for _, seg := range transcript.Segments {
		fmt.Fprintf(&segments, "  [%.1fs - %.1fs] %s\n", seg.Start, seg.End, strings.TrimSpace(seg.Text))
	}

	category := strings.TrimSpace(clip.Metadata.Category)
	if category == "" {
		category = "Just Chatting"
	}

	return fmt.Sprintf(`Analyze this clip and make an edit decision.

CLIP INFO:
- Title: %s
- Creator: %s
- Platform: %s
- Duration: %.1fs
- Views: %s
- Category: %s

PROFILE NICHE: %s
TARGET LENGTH: %g-%g seconds

TRANSCRIPT (with timestamps):
%s
FULL TEXT: %s

Pick the best segment and generate post copy. Respond with ONLY JSON.`,
		clip.Title(),
		clip.Metadata.CreatorName,
		clip.Platform,
		transcript.Duration,
		humanize.Comma(clip.Metadata.ViewCount),
		category,
		rules.Niche,
		rules.MinLengthSec(), rules.MaxLengthSec(),
		segments.String(),
		transcript.FullText,
	)
}
