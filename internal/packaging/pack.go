package packaging

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/decide"
)

// Pack file names. Fixed so downstream scripts can address a pack without
// reading metadata first.
const (
	packVideoName    = "rendered.mp4"
	packThumbName    = "thumbnail.jpg"
	packPostCopyName = "post_copy.json"
	packMetadataName = "metadata.json"
	packReadmeName   = "README.md"
)

// maxSafeIDLen caps the clip key's contribution to the pack directory name.
const maxSafeIDLen = 50

// PostCopyEntry is one destination's paste-ready upload copy.
type PostCopyEntry struct {
	Title        string   `json:"title"`
	Caption      string   `json:"caption"`
	Hashtags     []string `json:"hashtags"`
	ReadyToPaste string   `json:"ready_to_paste"`
}

// SegmentInfo records the cut window the pack's video was rendered from.
type SegmentInfo struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// PackFiles names the media files inside the pack. Thumbnail is null when
// extraction failed; the pack ships anyway.
type PackFiles struct {
	Video     string  `json:"video"`
	Thumbnail *string `json:"thumbnail"`
}

// Metadata is the pack's metadata.json payload.
type Metadata struct {
	ClipID              string      `json:"clip_id"`
	Platform            string      `json:"platform"`
	Creator             string      `json:"creator"`
	CreatorURL          string      `json:"creator_url"`
	Title               string      `json:"title"`
	OriginalDurationSec float64     `json:"original_duration_sec"`
	ViewCount           int64       `json:"view_count"`
	BroadcastedAt       string      `json:"broadcasted_at,omitempty"`
	Profile             string      `json:"profile"`
	ViralScore          *int        `json:"viral_score,omitempty"`
	Segment             SegmentInfo `json:"segment"`
	Files               PackFiles   `json:"files"`
}

// packDirName derives the pack folder name from the clip identity. Long
// platform keys are truncated and path separators neutralized so the key can
// never escape the outputs tree.
func packDirName(clip *clips.Clip) string {
	safeID := clip.ClipKey
	if len(safeID) > maxSafeIDLen {
		safeID = safeID[:maxSafeIDLen]
	}
	safeID = strings.ReplaceAll(safeID, "/", "_")
	return clip.Platform + "_" + safeID
}

// buildPostCopy flattens the edit decision's per-destination copy into the
// post_copy.json shape, assembling the ready_to_paste block. A nil decision
// produces an empty map; the pack still ships.
func buildPostCopy(decision *decide.Decision) map[string]PostCopyEntry {
	entries := make(map[string]PostCopyEntry)
	if decision == nil {
		return entries
	}
	for dest, copyForDest := range decision.PostCopy {
		entries[dest] = PostCopyEntry{
			Title:    copyForDest.Title,
			Caption:  copyForDest.Caption,
			Hashtags: copyForDest.Hashtags,
			ReadyToPaste: strings.TrimSpace(fmt.Sprintf("%s\n\n%s\n\n%s",
				copyForDest.Title,
				copyForDest.Caption,
				strings.Join(copyForDest.Hashtags, " "),
			)),
		}
	}
	return entries
}

// renderReadme produces the pack's human-readable summary: clip facts up
// top, then a fenced ready-to-paste block per destination in canonical
// order.
func renderReadme(meta Metadata, postCopy map[string]PostCopyEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", meta.Title)
	fmt.Fprintf(&b, "**Creator:** [%s](%s) (%s)\n", meta.Creator, meta.CreatorURL, meta.Platform)
	fmt.Fprintf(&b, "**Views:** %s\n", humanize.Comma(meta.ViewCount))
	fmt.Fprintf(&b, "**Segment:** %.1fs → %.1fs\n\n", meta.Segment.Start, meta.Segment.End)

	for _, dest := range decide.Destinations() {
		entry, ok := postCopy[dest]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", strings.ToUpper(dest))
		b.WriteString("```\n")
		b.WriteString(entry.ReadyToPaste)
		b.WriteString("\n```\n\n")
	}
	return b.String()
}
