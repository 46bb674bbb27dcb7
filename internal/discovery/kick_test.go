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

func kickTestClient(serverURL string) *KickClient {
	cfg := config.Default()
	cfg.Kick = config.Kick{
		BaseURL:        serverURL,
		LookbackHours:  24,
		RequestTimeout: 5,
	}
	return NewKickClient(&cfg, logging.NewNop())
}

func kickCreator(slug string) *clips.Creator {
	return &clips.Creator{Platform: PlatformKick, PlatformUserID: slug, DisplayName: slug}
}

func TestKickCandidate(t *testing.T) {
	entry := gjson.Parse(`{
		"id": 123456,
		"title": "wild moment",
		"duration": 31.2,
		"views": 900,
		"created_at": "2026-02-10T10:00:00.000Z",
		"thumbnail_url": "https://cdn.kick.com/thumb.jpg",
		"clip_url": "https://clips.kick.com/clip.mp4",
		"category": {"name": "Just Chatting"},
		"creator": {"username": "streamer"}
	}`)

	candidate, ok := kickCandidate(entry, "fallback-slug")
	if !ok {
		t.Fatal("kickCandidate rejected a well-formed entry")
	}
	if candidate.ClipKey != "123456" || candidate.Platform != PlatformKick {
		t.Fatalf("identity = %s/%s", candidate.Platform, candidate.ClipKey)
	}
	meta := candidate.Metadata
	if meta.CreatorName != "streamer" {
		t.Fatalf("CreatorName = %q", meta.CreatorName)
	}
	if meta.ViewCount != 900 || meta.Category != "Just Chatting" || meta.Language != "en" {
		t.Fatalf("metadata = %+v", meta)
	}
	if meta.MediaURL != "https://clips.kick.com/clip.mp4" {
		t.Fatalf("MediaURL = %q", meta.MediaURL)
	}

	sparse, ok := kickCandidate(gjson.Parse(`{"id":"clip_01","view_count":15,"video_url":"https://clips.kick.com/v.mp4"}`), "channel-slug")
	if !ok {
		t.Fatal("kickCandidate rejected sparse entry")
	}
	if sparse.Metadata.CreatorName != "channel-slug" {
		t.Fatalf("sparse CreatorName = %q, want channel slug fallback", sparse.Metadata.CreatorName)
	}
	if sparse.Metadata.ViewCount != 15 || sparse.Metadata.MediaURL != "https://clips.kick.com/v.mp4" {
		t.Fatalf("sparse metadata = %+v", sparse.Metadata)
	}

	if _, ok := kickCandidate(gjson.Parse(`{"title":"no id"}`), "slug"); ok {
		t.Fatal("kickCandidate accepted an entry without an id")
	}
}

func TestKickFetchFiltersBySince(t *testing.T) {
	since := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/channels/streamer/clips" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"clips": [
				{"id":"fresh","created_at":"2026-02-10T10:02:00Z"},
				{"id":"stale","created_at":"2026-02-10T09:58:00Z"},
				{"id":"mangled","created_at":"not a timestamp"}
			]
		}`))
	}))
	defer server.Close()

	client := kickTestClient(server.URL)
	candidates, err := client.FetchRecentClips(context.Background(), kickCreator("streamer"), since)
	if err != nil {
		t.Fatalf("FetchRecentClips: %v", err)
	}
	if requests != 1 {
		t.Fatalf("requests = %d, want 1", requests)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want fresh + unparseable kept", len(candidates))
	}
	if candidates[0].ClipKey != "fresh" || candidates[1].ClipKey != "mangled" {
		t.Fatalf("candidate keys = %s, %s", candidates[0].ClipKey, candidates[1].ClipKey)
	}
}

func TestKickFetchPaginates(t *testing.T) {
	since := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	var cursors []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)
		if cursor == "" {
			w.Write([]byte(`{"clips":[{"id":"k-1","created_at":"2026-02-10T11:00:00Z"}],"nextCursor":"c2"}`))
			return
		}
		w.Write([]byte(`{"clips":[{"id":"k-2","created_at":"2026-02-10T10:30:00Z"}]}`))
	}))
	defer server.Close()

	client := kickTestClient(server.URL)
	candidates, err := client.FetchRecentClips(context.Background(), kickCreator("streamer"), since)
	if err != nil {
		t.Fatalf("FetchRecentClips: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if len(cursors) != 2 || cursors[0] != "" || cursors[1] != "c2" {
		t.Fatalf("cursor sequence = %q", cursors)
	}
}

func TestKickFetchStopsWhenPageGoesStale(t *testing.T) {
	since := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{
			"clips": [{"id":"old","created_at":"2026-02-09T12:00:00Z"}],
			"nextCursor": "more"
		}`))
	}))
	defer server.Close()

	client := kickTestClient(server.URL)
	candidates, err := client.FetchRecentClips(context.Background(), kickCreator("streamer"), since)
	if err != nil {
		t.Fatalf("FetchRecentClips: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("got %d candidates, want 0", len(candidates))
	}
	if requests != 1 {
		t.Fatalf("requests = %d, want pagination to stop after a stale page", requests)
	}
}

func TestKickFetchChannelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := kickTestClient(server.URL)
	_, err := client.FetchRecentClips(context.Background(), kickCreator("ghost"), time.Now())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing channel error = %v, want not-found class", err)
	}
}
