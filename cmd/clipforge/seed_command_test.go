package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NovoNihilo/clipforge/internal/profiles"
)

func TestCLISeedResolvesTwitchCreators(t *testing.T) {
	clearCredentialEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/oauth2/token":
			fmt.Fprint(w, `{"access_token":"app-token","expires_in":3600}`)
		case r.Method == http.MethodGet && r.URL.Path == "/users":
			fmt.Fprint(w, `{"data":[{"id":"71092938","login":"xqc"},{"id":"207813352","login":"jasontheween"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	extra := fmt.Sprintf(
		"\n[twitch]\nclient_id = \"seed-client\"\nclient_secret = \"seed-secret\"\nbase_url = %q\nauth_url = %q\n",
		server.URL,
		server.URL+"/oauth2/token",
	)
	env := setupCLITestEnv(t, extra)

	out, _, err := runCLI(t, env, "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "Seeded profile Funny Livestreamers (funny-streamers)") {
		t.Fatalf("missing profile line: %q", out)
	}
	if !strings.Contains(out, "Tracked Creators") {
		t.Fatalf("missing creators section: %q", out)
	}
	if !strings.Contains(out, "https://twitch.tv/xqc") || !strings.Contains(out, "https://kick.com/adinross") {
		t.Fatalf("creator URLs missing: %q", out)
	}
	if !strings.Contains(out, `twitch login "braeden" not found, skipped`) {
		t.Fatalf("expected skip warning for unresolved login: %q", out)
	}

	ctx := context.Background()
	profile, err := env.store.GetProfileBySlug(ctx, profiles.DefaultSlug)
	if err != nil {
		t.Fatalf("GetProfileBySlug: %v", err)
	}
	if profile == nil {
		t.Fatal("expected seeded profile")
	}
	rules, err := profiles.Parse(profile.RulesJSON)
	if err != nil {
		t.Fatalf("Parse seeded rules: %v", err)
	}
	if rules.TopNPerRun != profiles.Default().TopNPerRun {
		t.Fatalf("expected default ruleset, got top_n=%d", rules.TopNPerRun)
	}

	creators, err := env.store.EnabledCreators(ctx, profile.ID)
	if err != nil {
		t.Fatalf("EnabledCreators: %v", err)
	}
	if len(creators) != 9 {
		t.Fatalf("expected 2 resolved twitch + 7 kick creators, got %d", len(creators))
	}
	twitchByID := map[string]bool{}
	for _, creator := range creators {
		if creator.Platform == "twitch" {
			twitchByID[creator.PlatformUserID] = true
		}
	}
	if !twitchByID["71092938"] || !twitchByID["207813352"] {
		t.Fatalf("expected resolved broadcaster IDs tracked, got %v", twitchByID)
	}
}

func TestCLISeedWithoutTwitchCredentials(t *testing.T) {
	clearCredentialEnv(t)
	env := setupCLITestEnv(t, "")

	out, _, err := runCLI(t, env, "seed")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "credentials missing; skipping 10 Twitch creators") {
		t.Fatalf("expected twitch skip warning: %q", out)
	}
	if !strings.Contains(out, "https://kick.com/xqc") {
		t.Fatalf("expected kick creators tracked: %q", out)
	}

	ctx := context.Background()
	profile, err := env.store.GetProfileBySlug(ctx, profiles.DefaultSlug)
	if err != nil {
		t.Fatalf("GetProfileBySlug: %v", err)
	}
	if profile == nil {
		t.Fatal("expected seeded profile")
	}
	creators, err := env.store.EnabledCreators(ctx, profile.ID)
	if err != nil {
		t.Fatalf("EnabledCreators: %v", err)
	}
	if len(creators) != 7 {
		t.Fatalf("expected kick-only roster, got %d creators", len(creators))
	}
	for _, creator := range creators {
		if creator.Platform != "kick" {
			t.Fatalf("expected only kick creators, found %s/%s", creator.Platform, creator.DisplayName)
		}
	}
}

func TestCLISeedIsIdempotent(t *testing.T) {
	clearCredentialEnv(t)
	env := setupCLITestEnv(t, "")

	if _, _, err := runCLI(t, env, "seed"); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if _, _, err := runCLI(t, env, "seed"); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	ctx := context.Background()
	profile, err := env.store.GetProfileBySlug(ctx, profiles.DefaultSlug)
	if err != nil || profile == nil {
		t.Fatalf("GetProfileBySlug: %v, %v", profile, err)
	}
	creators, err := env.store.EnabledCreators(ctx, profile.ID)
	if err != nil {
		t.Fatalf("EnabledCreators: %v", err)
	}
	if len(creators) != 7 {
		t.Fatalf("reseeding duplicated creators: got %d", len(creators))
	}
}

func TestProfileDisplayName(t *testing.T) {
	cases := []struct {
		slug string
		want string
	}{
		{profiles.DefaultSlug, profiles.DefaultName},
		{"gaming-moments", "Gaming Moments"},
		{"late_night", "Late Night"},
		{"irl", "Irl"},
	}
	for _, tc := range cases {
		if got := profileDisplayName(tc.slug); got != tc.want {
			t.Errorf("profileDisplayName(%q) = %q, want %q", tc.slug, got, tc.want)
		}
	}
}
