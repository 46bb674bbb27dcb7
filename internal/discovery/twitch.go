package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/services"
)

const (
	helixDefaultBaseURL = "https://api.twitch.tv/helix"
	helixDefaultAuthURL = "https://id.twitch.tv/oauth2/token"

	helixDefaultPageSize = 20
	helixMaxPageSize     = 100
	helixMaxPages        = 5

	// helixTokenMargin refreshes app tokens a minute before Twitch would
	// reject them, so a token never expires mid-pagination.
	helixTokenMargin     = time.Minute
	helixDefaultTokenTTL = time.Hour

	defaultLookback = 24 * time.Hour

	defaultDiscoveryHTTPTimeout = 15 * time.Second
)

// TwitchClient fetches clips from the Twitch Helix API using the app-token
// client-credentials flow. The token is cached until shortly before expiry
// and shared across calls; TwitchClient is safe for concurrent use.
type TwitchClient struct {
	cfg    config.Twitch
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewTwitchClient builds a Helix client from the discovery configuration.
func NewTwitchClient(cfg *config.Config, logger *slog.Logger) *TwitchClient {
	twitch := cfg.Twitch
	if strings.TrimSpace(twitch.BaseURL) == "" {
		twitch.BaseURL = helixDefaultBaseURL
	}
	if strings.TrimSpace(twitch.AuthURL) == "" {
		twitch.AuthURL = helixDefaultAuthURL
	}
	timeout := defaultDiscoveryHTTPTimeout
	if twitch.RequestTimeout > 0 {
		timeout = time.Duration(twitch.RequestTimeout) * time.Second
	}
	return &TwitchClient{
		cfg:    twitch,
		http:   &http.Client{Timeout: timeout},
		logger: logging.NewComponentLogger(logger, "discovery-twitch"),
		now:    time.Now,
	}
}

// FetchRecentClips returns clips created strictly after since for the
// broadcaster named by the creator's platform user ID. A zero since falls
// back to the configured lookback window.
func (c *TwitchClient) FetchRecentClips(ctx context.Context, creator *clips.Creator, since time.Time) ([]Candidate, error) {
	token, err := c.appToken(ctx)
	if err != nil {
		return nil, err
	}
	if since.IsZero() {
		since = c.now().UTC().Add(-c.lookback())
	}

	var candidates []Candidate
	after := ""
	for page := 0; page < helixMaxPages; page++ {
		batch, cursor, err := c.fetchClipsPage(ctx, token, creator.PlatformUserID, since, after)
		if err != nil {
			return nil, err
		}
		for _, candidate := range batch {
			// started_at already bounds the query server-side; the
			// strictly-after check catches boundary replays.
			if !candidate.CreatedAt.IsZero() && !candidate.CreatedAt.After(since) {
				continue
			}
			candidates = append(candidates, candidate)
		}
		if cursor == "" || len(batch) == 0 {
			break
		}
		after = cursor
	}
	c.logger.Debug("twitch clips fetched",
		logging.String(logging.FieldCreator, creator.PlatformUserID),
		logging.Int("candidates", len(candidates)))
	return candidates, nil
}

// appToken returns a cached app access token, refreshing it via the client
// credentials flow when absent or near expiry.
func (c *TwitchClient) appToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-helixTokenMargin)) {
		return c.token, nil
	}
	if strings.TrimSpace(c.cfg.ClientID) == "" || strings.TrimSpace(c.cfg.ClientSecret) == "" {
		return "", services.Wrap(services.ErrConfiguration, "discovery", "twitch auth",
			"Twitch discovery requires twitch client_id and client_secret", nil)
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "discovery", "twitch auth", "Failed to build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "discovery", "twitch auth", "Token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "discovery", "twitch auth", "Failed to read token response", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", services.Wrap(services.ErrConfiguration, "discovery", "twitch auth",
			fmt.Sprintf("Twitch rejected app credentials (%s)", resp.Status), nil)
	case resp.StatusCode >= 400:
		return "", services.Wrap(services.ErrTransient, "discovery", "twitch auth",
			fmt.Sprintf("Token endpoint returned %s: %s", resp.Status, trimBody(body)), nil)
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return "", services.Wrap(services.ErrExternalTool, "discovery", "twitch auth", "Token response carried no access_token", nil)
	}
	ttl := helixDefaultTokenTTL
	if expires := gjson.GetBytes(body, "expires_in").Int(); expires > 0 {
		ttl = time.Duration(expires) * time.Second
	}
	c.token = token
	c.tokenExpiry = c.now().Add(ttl)
	c.logger.Debug("twitch app token acquired", logging.Duration("ttl", ttl))
	return c.token, nil
}

// ResolveUserIDs maps Twitch login names to broadcaster IDs via the Helix
// users endpoint. Logins Twitch does not recognize are absent from the
// result; the caller decides whether that is fatal.
func (c *TwitchClient) ResolveUserIDs(ctx context.Context, logins []string) (map[string]string, error) {
	if len(logins) == 0 {
		return map[string]string{}, nil
	}
	token, err := c.appToken(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	for _, login := range logins {
		login = strings.ToLower(strings.TrimSpace(login))
		if login != "" {
			params.Add("login", login)
		}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/users?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "discovery", "twitch users", "Failed to build users request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", c.cfg.ClientID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "discovery", "twitch users", "Users request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "discovery", "twitch users", "Failed to read users response", err)
	}
	if resp.StatusCode >= 400 {
		marker := services.ErrExternalTool
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "discovery", "twitch users",
			fmt.Sprintf("Helix returned %s: %s", resp.Status, trimBody(body)), nil)
	}

	resolved := make(map[string]string)
	gjson.GetBytes(body, "data").ForEach(func(_, entry gjson.Result) bool {
		login := strings.ToLower(entry.Get("login").String())
		if id := entry.Get("id").String(); login != "" && id != "" {
			resolved[login] = id
		}
		return true
	})
	c.logger.Debug("twitch logins resolved",
		logging.Int("requested", len(logins)),
		logging.Int("resolved", len(resolved)))
	return resolved, nil
}

func (c *TwitchClient) fetchClipsPage(ctx context.Context, token, broadcasterID string, since time.Time, after string) ([]Candidate, string, error) {
	params := url.Values{}
	params.Set("broadcaster_id", broadcasterID)
	params.Set("started_at", since.UTC().Format(time.RFC3339))
	params.Set("first", strconv.Itoa(c.pageSize()))
	if after != "" {
		params.Set("after", after)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/clips?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "discovery", "twitch clips", "Failed to build clips request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", c.cfg.ClientID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "discovery", "twitch clips", "Clips request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "discovery", "twitch clips", "Failed to read clips response", err)
	}
	if resp.StatusCode >= 400 {
		marker := services.ErrExternalTool
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			marker = services.ErrTransient
		}
		return nil, "", services.Wrap(marker, "discovery", "twitch clips",
			fmt.Sprintf("Helix returned %s: %s", resp.Status, trimBody(body)), nil)
	}

	var batch []Candidate
	gjson.GetBytes(body, "data").ForEach(func(_, entry gjson.Result) bool {
		if candidate, ok := helixCandidate(entry); ok {
			batch = append(batch, candidate)
		}
		return true
	})
	return batch, gjson.GetBytes(body, "pagination.cursor").String(), nil
}

func (c *TwitchClient) pageSize() int {
	size := c.cfg.PageSize
	if size <= 0 {
		size = helixDefaultPageSize
	}
	if size > helixMaxPageSize {
		size = helixMaxPageSize
	}
	return size
}

func (c *TwitchClient) lookback() time.Duration {
	if c.cfg.LookbackHours > 0 {
		return time.Duration(c.cfg.LookbackHours) * time.Hour
	}
	return defaultLookback
}

// helixCandidate normalizes one Helix clip object. The derived MP4 URL is
// written back into the payload first so every field, including the one
// Helix does not provide, is read off the same document.
func helixCandidate(entry gjson.Result) (Candidate, bool) {
	raw := []byte(entry.Raw)
	if mediaURL := mediaURLFromThumbnail(entry.Get("thumbnail_url").String()); mediaURL != "" {
		if annotated, err := sjson.SetBytes(raw, "media_url", mediaURL); err == nil {
			raw = annotated
		}
	}

	id := gjson.GetBytes(raw, "id").String()
	if id == "" {
		return Candidate{}, false
	}
	language := gjson.GetBytes(raw, "language").String()
	if language == "" {
		language = "en"
	}
	return Candidate{
		ClipKey:   id,
		Platform:  PlatformTwitch,
		CreatedAt: parsePlatformTime(gjson.GetBytes(raw, "created_at").String()),
		Metadata: clips.ClipMetadata{
			Title:          gjson.GetBytes(raw, "title").String(),
			CreatorName:    gjson.GetBytes(raw, "broadcaster_name").String(),
			ViewCount:      gjson.GetBytes(raw, "view_count").Int(),
			DurationSec:    gjson.GetBytes(raw, "duration").Float(),
			Language:       language,
			Category:       gjson.GetBytes(raw, "game_id").String(),
			ClipURL:        gjson.GetBytes(raw, "url").String(),
			MediaURL:       gjson.GetBytes(raw, "media_url").String(),
			ThumbnailURL:   gjson.GetBytes(raw, "thumbnail_url").String(),
			BroadcastedAt:  gjson.GetBytes(raw, "created_at").String(),
			SourcePlatform: PlatformTwitch,
		},
	}, true
}

// mediaURLFromThumbnail recovers a clip's MP4 URL from its thumbnail URL.
// Helix does not expose download URLs; the thumbnail shares the video's
// asset path with a "-preview-<dims>.jpg" suffix in place of ".mp4".
func mediaURLFromThumbnail(thumb string) string {
	if thumb == "" {
		return ""
	}
	if idx := strings.Index(thumb, "-preview-"); idx >= 0 {
		return thumb[:idx] + ".mp4"
	}
	// Older asset hosts skip the -preview- marker; fall back to the first
	// dash-delimited token of the file name.
	slash := strings.LastIndex(thumb, "/")
	if slash < 0 {
		return ""
	}
	name := thumb[slash+1:]
	if cut := strings.Index(name, "-"); cut >= 0 {
		name = name[:cut]
	}
	return thumb[:slash+1] + name + ".mp4"
}

func trimBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512]
	}
	return text
}
