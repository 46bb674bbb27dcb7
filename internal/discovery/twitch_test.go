package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/logging"
	"github.com/NovoNihilo/clipforge/internal/services"
)

func twitchTestConfig(serverURL string) *config.Config {
	cfg := config.Default()
	cfg.Twitch = config.Twitch{
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		BaseURL:        serverURL,
		AuthURL:        serverURL + "/oauth2/token",
		PageSize:       2,
		LookbackHours:  24,
		RequestTimeout: 5,
	}
	return &cfg
}

func TestMediaURLFromThumbnail(t *testing.T) {
	cases := []struct {
		name  string
		thumb string
		want  string
	}{
		{
			name:  "preview marker",
			thumb: "https://clips-media-assets2.twitch.tv/AT-cm%7C123-preview-480x272.jpg",
			want:  "https://clips-media-assets2.twitch.tv/AT-cm%7C123.mp4",
		},
		{
			name:  "no marker falls back to first token",
			thumb: "https://assets.twitch.tv/clip/ABC-offset-12.jpg",
			want:  "https://assets.twitch.tv/clip/ABC.mp4",
		},
		{
			name:  "empty",
			thumb: "",
			want:  "",
		},
		{
			name:  "no path separator",
			thumb: "not-a-url",
			want:  "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mediaURLFromThumbnail(tc.thumb); got != tc.want {
				t.Fatalf("mediaURLFromThumbnail(%q) = %q, want %q", tc.thumb, got, tc.want)
			}
		})
	}
}

func TestHelixCandidate(t *testing.T) {
	entry := gjson.Parse(`{
		"id": "GrumpyClip123",
		"url": "https://clips.twitch.tv/GrumpyClip123",
		"broadcaster_name": "streamer",
		"title": "unreal reaction",
		"view_count": 420,
		"duration": 27.5,
		"created_at": "2026-02-10T10:00:00Z",
		"thumbnail_url": "https://clips-media-assets2.twitch.tv/AT-cm%7C999-preview-480x272.jpg",
		"game_id": "509658"
	}`)

	candidate, ok := helixCandidate(entry)
	if !ok {
		t.Fatal("helixCandidate rejected a well-formed entry")
	}
	if candidate.ClipKey != "GrumpyClip123" || candidate.Platform != PlatformTwitch {
		t.Fatalf("identity = %s/%s", candidate.Platform, candidate.ClipKey)
	}
	want := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	if !candidate.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt = %v, want %v", candidate.CreatedAt, want)
	}
	meta := candidate.Metadata
	if meta.MediaURL != "https://clips-media-assets2.twitch.tv/AT-cm%7C999.mp4" {
		t.Fatalf("MediaURL = %q", meta.MediaURL)
	}
	if meta.Language != "en" {
		t.Fatalf("Language = %q, want default en", meta.Language)
	}
	if meta.Category != "509658" || meta.ViewCount != 420 || meta.DurationSec != 27.5 {
		t.Fatalf("metadata = %+v", meta)
	}

	if _, ok := helixCandidate(gjson.Parse(`{"title":"no id"}`)); ok {
		t.Fatal("helixCandidate accepted an entry without an id")
	}
}

func TestTwitchFetchRecentClipsPaginatesAndFilters(t *testing.T) {
	since := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	tokenCalls := 0
	clipCalls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			tokenCalls++
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse token form: %v", err)
			}
			if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
				t.Errorf("grant_type = %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
		case "/clips":
			clipCalls++
			if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.Header.Get("Client-Id"); got != "client-id" {
				t.Errorf("Client-Id = %q", got)
			}
			q := r.URL.Query()
			if got := q.Get("broadcaster_id"); got != "12345" {
				t.Errorf("broadcaster_id = %q", got)
			}
			if got := q.Get("started_at"); got != "2026-02-10T09:00:00Z" {
				t.Errorf("started_at = %q", got)
			}
			if got := q.Get("first"); got != "2" {
				t.Errorf("first = %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			if q.Get("after") == "" {
				w.Write([]byte(`{
					"data": [
						{"id":"new-1","created_at":"2026-02-10T10:00:00Z","thumbnail_url":"https://a/x-preview-480x272.jpg"},
						{"id":"stale-1","created_at":"2026-02-10T08:30:00Z","thumbnail_url":"https://a/y-preview-480x272.jpg"}
					],
					"pagination": {"cursor": "page-2"}
				}`))
				return
			}
			if got := q.Get("after"); got != "page-2" {
				t.Errorf("after = %q", got)
			}
			w.Write([]byte(`{
				"data": [
					{"id":"new-2","created_at":"2026-02-10T09:30:00Z","thumbnail_url":"https://a/z-preview-480x272.jpg"}
				],
				"pagination": {}
			}`))
		default:
			t.Errorf("unexpected request path %q", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewTwitchClient(twitchTestConfig(server.URL), logging.NewNop())
	creator := &clips.Creator{Platform: PlatformTwitch, PlatformUserID: "12345", DisplayName: "streamer"}

	candidates, err := client.FetchRecentClips(context.Background(), creator, since)
	if err != nil {
		t.Fatalf("FetchRecentClips: %v", err)
	}
	if tokenCalls != 1 {
		t.Fatalf("token fetched %d times, want 1", tokenCalls)
	}
	if clipCalls != 2 {
		t.Fatalf("clips fetched %d times, want 2 pages", clipCalls)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2 (stale clip filtered)", len(candidates))
	}
	if candidates[0].ClipKey != "new-1" || candidates[1].ClipKey != "new-2" {
		t.Fatalf("candidate keys = %s, %s", candidates[0].ClipKey, candidates[1].ClipKey)
	}
}

func TestTwitchResolveUserIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			w.Write([]byte(`{"access_token":"tok-users","expires_in":3600}`))
		case "/users":
			logins := r.URL.Query()["login"]
			if len(logins) != 3 {
				t.Errorf("login params = %v, want 3", logins)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"data": [
					{"id":"71092938","login":"xqc","display_name":"xQc"},
					{"id":"42","login":"jinnytty","display_name":"jinnytty"}
				]
			}`))
		default:
			t.Errorf("unexpected request path %q", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewTwitchClient(twitchTestConfig(server.URL), logging.NewNop())
	resolved, err := client.ResolveUserIDs(context.Background(), []string{"xQc", "jinnytty", "no-such-login"})
	if err != nil {
		t.Fatalf("ResolveUserIDs: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("resolved %d logins, want 2", len(resolved))
	}
	if resolved["xqc"] != "71092938" || resolved["jinnytty"] != "42" {
		t.Fatalf("resolved = %v", resolved)
	}
	if _, ok := resolved["no-such-login"]; ok {
		t.Fatal("unknown login should be absent from the result")
	}
}

func TestTwitchAppTokenCachedUntilNearExpiry(t *testing.T) {
	tokenCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			http.NotFound(w, r)
			return
		}
		tokenCalls++
		w.Write([]byte(`{"access_token":"tok-cache","expires_in":3600}`))
	}))
	defer server.Close()

	client := NewTwitchClient(twitchTestConfig(server.URL), logging.NewNop())
	current := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return current }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.appToken(ctx); err != nil {
			t.Fatalf("appToken call %d: %v", i+1, err)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("token fetched %d times while fresh, want 1", tokenCalls)
	}

	// A minute before expiry the margin kicks in and forces a refresh.
	current = current.Add(time.Hour - 30*time.Second)
	if _, err := client.appToken(ctx); err != nil {
		t.Fatalf("appToken after expiry window: %v", err)
	}
	if tokenCalls != 2 {
		t.Fatalf("token fetched %d times after expiry window, want 2", tokenCalls)
	}
}

func TestTwitchAppTokenRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Twitch.BaseURL = "http://127.0.0.1:0"
	cfg.Twitch.AuthURL = "http://127.0.0.1:0/oauth2/token"

	client := NewTwitchClient(&cfg, logging.NewNop())
	_, err := client.appToken(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("appToken without credentials = %v, want configuration error", err)
	}
}
