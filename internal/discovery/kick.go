package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/services"
)

const (
	kickDefaultBaseURL = "https://kick.com/api/v2"
	kickMaxPages       = 3
	kickUserAgent      = "clipforge/1.0"
)

// KickClient fetches clips from the Kick channel API. Kick has no server-side
// time filter, so the client pulls recent pages and discards anything at or
// before the requested watermark itself.
type KickClient struct {
	cfg    config.Kick
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewKickClient builds a Kick client from the discovery configuration.
func NewKickClient(cfg *config.Config, logger *slog.Logger) *KickClient {
	kick := cfg.Kick
	if strings.TrimSpace(kick.BaseURL) == "" {
		kick.BaseURL = kickDefaultBaseURL
	}
	timeout := defaultDiscoveryHTTPTimeout
	if kick.RequestTimeout > 0 {
		timeout = time.Duration(kick.RequestTimeout) * time.Second
	}
	return &KickClient{
		cfg:    kick,
		http:   &http.Client{Timeout: timeout},
		logger: logging.NewComponentLogger(logger, "discovery-kick"),
		now:    time.Now,
	}
}

// FetchRecentClips returns clips created strictly after since for the channel
// named by the creator's platform user ID. Clips whose timestamps cannot be
// parsed are kept rather than silently lost. A zero since falls back to the
// configured lookback window.
func (c *KickClient) FetchRecentClips(ctx context.Context, creator *clips.Creator, since time.Time) ([]Candidate, error) {
	if since.IsZero() {
		since = c.now().UTC().Add(-c.lookback())
	}

	var candidates []Candidate
	cursor := ""
	for page := 0; page < kickMaxPages; page++ {
		batch, next, err := c.fetchClipsPage(ctx, creator.PlatformUserID, cursor)
		if err != nil {
			return nil, err
		}
		kept := 0
		for _, candidate := range batch {
			if !candidate.CreatedAt.IsZero() && !candidate.CreatedAt.After(since) {
				continue
			}
			candidates = append(candidates, candidate)
			kept++
		}
		// Pages arrive newest first: once a whole page is at or before the
		// watermark, older pages cannot contain anything new.
		if next == "" || len(batch) == 0 || kept == 0 {
			break
		}
		cursor = next
	}
	c.logger.Debug("kick clips fetched",
		logging.String(logging.FieldCreator, creator.PlatformUserID),
		logging.Int("candidates", len(candidates)))
	return candidates, nil
}

func (c *KickClient) fetchClipsPage(ctx context.Context, slug, cursor string) ([]Candidate, string, error) {
	params := url.Values{}
	params.Set("sort", "date")
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/channels/" + url.PathEscape(slug) + "/clips?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "discovery", "kick clips", "Failed to build clips request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", kickUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "discovery", "kick clips", "Clips request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "discovery", "kick clips", "Failed to read clips response", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, "", services.Wrap(services.ErrNotFound, "discovery", "kick clips",
			fmt.Sprintf("Kick channel %q not found", slug), nil)
	}
	if resp.StatusCode >= 400 {
		marker := services.ErrExternalTool
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			marker = services.ErrTransient
		}
		return nil, "", services.Wrap(marker, "discovery", "kick clips",
			fmt.Sprintf("Kick returned %s: %s", resp.Status, trimBody(body)), nil)
	}

	var batch []Candidate
	gjson.GetBytes(body, "clips").ForEach(func(_, entry gjson.Result) bool {
		if candidate, ok := kickCandidate(entry, slug); ok {
			batch = append(batch, candidate)
		}
		return true
	})
	return batch, gjson.GetBytes(body, "nextCursor").String(), nil
}

func (c *KickClient) lookback() time.Duration {
	if c.cfg.LookbackHours > 0 {
		return time.Duration(c.cfg.LookbackHours) * time.Hour
	}
	return defaultLookback
}

// kickCandidate normalizes one Kick clip object. Field names drifted across
// Kick API revisions, so the view count and media URL each try the variants
// seen in the wild. Kick does not report clip language; "en" is assumed.
func kickCandidate(entry gjson.Result, slug string) (Candidate, bool) {
	id := entry.Get("id").String()
	if id == "" {
		return Candidate{}, false
	}

	views := entry.Get("views").Int()
	if views == 0 {
		views = entry.Get("view_count").Int()
	}
	mediaURL := entry.Get("clip_url").String()
	if mediaURL == "" {
		mediaURL = entry.Get("video_url").String()
	}
	creatorName := entry.Get("creator.username").String()
	if creatorName == "" {
		creatorName = slug
	}

	return Candidate{
		ClipKey:   id,
		Platform:  PlatformKick,
		CreatedAt: parsePlatformTime(entry.Get("created_at").String()),
		Metadata: clips.ClipMetadata{
			Title:          entry.Get("title").String(),
			CreatorName:    creatorName,
			ViewCount:      views,
			DurationSec:    entry.Get("duration").Float(),
			Language:       "en",
			Category:       entry.Get("category.name").String(),
			ClipURL:        mediaURL,
			MediaURL:       mediaURL,
			ThumbnailURL:   entry.Get("thumbnail_url").String(),
			BroadcastedAt:  entry.Get("created_at").String(),
			SourcePlatform: PlatformKick,
		},
	}, true
}
