package testsupport

import (
	"context"
	"fmt"
	"testing"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/profiles"
)

// MustOpenStore opens a clips.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *clips.Store {
	t.Helper()

	store, err := clips.Open(cfg)
	if err != nil {
		t.Fatalf("clips.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedProfile creates the default ruleset profile for tests.
func SeedProfile(t testing.TB, store *clips.Store) *clips.Profile {
	t.Helper()

	rules, err := profiles.Default().Encode()
	if err != nil {
		t.Fatalf("encode rules: %v", err)
	}
	profile, err := store.UpsertProfile(context.Background(), profiles.DefaultSlug, profiles.DefaultName, rules)
	if err != nil {
		t.Fatalf("store.UpsertProfile: %v", err)
	}
	return profile
}

// SeedCreator creates a creator linked to the profile for tests.
func SeedCreator(t testing.TB, store *clips.Store, profileID int64, platform, login string) *clips.Creator {
	t.Helper()

	ctx := context.Background()
	creator, err := store.UpsertCreator(ctx, &clips.Creator{
		Platform:       platform,
		PlatformUserID: login,
		DisplayName:    login,
	})
	if err != nil {
		t.Fatalf("store.UpsertCreator: %v", err)
	}
	if err := store.LinkCreator(ctx, profileID, creator.ID, true); err != nil {
		t.Fatalf("store.LinkCreator: %v", err)
	}
	return creator
}

// SeedClip inserts a discovered clip for tests with a unique platform key.
func SeedClip(t testing.TB, store *clips.Store, profileID, creatorID int64, key string) *clips.Clip {
	t.Helper()

	clip := &clips.Clip{
		ProfileID: profileID,
		CreatorID: creatorID,
		Platform:  "twitch",
		ClipKey:   key,
		Metadata: clips.ClipMetadata{
			Title:       fmt.Sprintf("Test Clip %s", key),
			DurationSec: 28,
			Language:    "en",
		},
	}
	inserted, err := store.InsertDiscovered(context.Background(), clip)
	if err != nil {
		t.Fatalf("store.InsertDiscovered: %v", err)
	}
	if !inserted {
		t.Fatalf("clip %s already present", key)
	}
	return clip
}

// AdvanceTo walks a clip forward through lifecycle edges until it reaches the
// requested status.
func AdvanceTo(t testing.TB, store *clips.Store, clip *clips.Clip, target clips.Status) {
	t.Helper()

	order := []clips.Status{
		clips.StatusDiscovered,
		clips.StatusDownloaded,
		clips.StatusTranscribed,
		clips.StatusDecided,
		clips.StatusRendered,
		clips.StatusPackaged,
	}
	ctx := context.Background()
	for i := 0; i < len(order)-1; i++ {
		if clip.Status == target {
			return
		}
		if clip.Status != order[i] {
			continue
		}
		result, err := store.AdvanceFrom(ctx, clip, order[i+1])
		if err != nil {
			t.Fatalf("advance %s -> %s: %v", order[i], order[i+1], err)
		}
		if !result.Advanced {
			t.Fatalf("advance %s -> %s: not advanced", order[i], order[i+1])
		}
	}
	if clip.Status != target {
		t.Fatalf("clip stuck at %s, wanted %s", clip.Status, target)
	}
}
