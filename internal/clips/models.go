package clips

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a clip in the pipeline.
type Status string

const (
	StatusDiscovered  Status = "discovered"
	StatusDownloaded  Status = "downloaded"
	StatusTranscribed Status = "transcribed"
	StatusDecided     Status = "decided"
	StatusRendered    Status = "rendered"
	StatusPackaged    Status = "packaged"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusDiscovered,
	StatusDownloaded,
	StatusTranscribed,
	StatusDecided,
	StatusRendered,
	StatusPackaged,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// validTransitions encodes every legal forward edge in the lifecycle.
// FAILED is reachable from any non-terminal state; it never appears as a
// source here because failed clips re-enter only through RetryFailed.
var validTransitions = map[Status][]Status{
	StatusDiscovered:  {StatusDownloaded, StatusFailed},
	StatusDownloaded:  {StatusTranscribed, StatusFailed},
	StatusTranscribed: {StatusDecided, StatusFailed},
	StatusDecided:     {StatusRendered, StatusFailed},
	StatusRendered:    {StatusPackaged, StatusFailed},
	StatusPackaged:    {},
	StatusFailed:      {},
}

// AllStatuses returns every status in pipeline order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a raw status string from user input or storage.
func ParseStatus(raw string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := statusSet[candidate]; !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return candidate, nil
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusPackaged || s == StatusFailed
}

// Display renders the status the way operator-facing surfaces show it.
func (s Status) Display() string {
	return strings.ToUpper(string(s))
}

// ClipMetadata carries the platform payload captured at discovery time.
// It round-trips through metadata_json; SQL never reaches inside it.
type ClipMetadata struct {
	Title          string  `json:"title,omitempty"`
	CreatorName    string  `json:"creator_name,omitempty"`
	ViewCount      int64   `json:"view_count,omitempty"`
	DurationSec    float64 `json:"duration_sec,omitempty"`
	Language       string  `json:"language,omitempty"`
	Category       string  `json:"category,omitempty"`
	ClipURL        string  `json:"clip_url,omitempty"`
	MediaURL       string  `json:"media_url,omitempty"`
	ThumbnailURL   string  `json:"thumbnail_url,omitempty"`
	BroadcastedAt  string  `json:"broadcasted_at,omitempty"`
	SourcePlatform string  `json:"source_platform,omitempty"`
}

// ArtifactPaths names every file a clip accumulates while moving through the
// pipeline. Stored as paths_json and merged, never replaced, on transitions.
type ArtifactPaths struct {
	Source       string `json:"source,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
	EditDecision string `json:"edit_decision,omitempty"`
	Rendered     string `json:"rendered,omitempty"`
	PublishPack  string `json:"publish_pack,omitempty"`
}

// Merge overlays non-empty fields from other onto a copy of p.
func (p ArtifactPaths) Merge(other ArtifactPaths) ArtifactPaths {
	merged := p
	if other.Source != "" {
		merged.Source = other.Source
	}
	if other.Transcript != "" {
		merged.Transcript = other.Transcript
	}
	if other.EditDecision != "" {
		merged.EditDecision = other.EditDecision
	}
	if other.Rendered != "" {
		merged.Rendered = other.Rendered
	}
	if other.PublishPack != "" {
		merged.PublishPack = other.PublishPack
	}
	return merged
}

// Clip represents a clip row persisted in SQLite.
type Clip struct {
	ID         int64
	ProfileID  int64
	CreatorID  int64
	Platform   string
	ClipKey    string
	Status     Status
	ViralScore *int
	FailReason string
	Metadata   ClipMetadata
	Paths      ArtifactPaths
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key returns the platform-qualified identity used for dedupe and logging.
func (c *Clip) Key() string {
	return c.Platform + ":" + c.ClipKey
}

// Title resolves the display title, falling back to the platform key.
func (c *Clip) Title() string {
	if title := strings.TrimSpace(c.Metadata.Title); title != "" {
		return title
	}
	return c.ClipKey
}

// Creator represents a tracked channel on a source platform.
type Creator struct {
	ID             int64
	Platform       string
	PlatformUserID string
	DisplayName    string
	ChannelURL     string
	CreatedAt      time.Time
}

// Profile represents a named ruleset row; Rules stays encoded until the
// profiles package parses it.
type Profile struct {
	ID        int64
	Slug      string
	Name      string
	RulesJSON string
	CreatedAt time.Time
}

// Cursor tracks per-creator discovery progress.
type Cursor struct {
	CreatorID      int64
	LastFetchedAt  time.Time
	PlatformCursor string
	UpdatedAt      time.Time
}

// TransitionResult reports the outcome of a conditional status update.
type TransitionResult struct {
	Advanced bool
	From     Status
	To       Status
}
