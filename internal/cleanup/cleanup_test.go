package cleanup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NovoNihilo/clipforge/internal/cleanup"
	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/testsupport"
)

type fixture struct {
	cfg       *config.Config
	store     *clips.Store
	profileID int64
	creatorID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	profile := testsupport.SeedProfile(t, store)
	creator := testsupport.SeedCreator(t, store, profile.ID, "twitch", "streamdude")
	return &fixture{cfg: cfg, store: store, profileID: profile.ID, creatorID: creator.ID}
}

func (f *fixture) seedWithSource(t *testing.T, key string, target clips.Status, sourceBytes int64) *clips.Clip {
	t.Helper()
	clip := testsupport.SeedClip(t, f.store, f.profileID, f.creatorID, key)
	source := filepath.Join(f.cfg.ClipWorkDir(clip.Platform, clip.ClipKey), "source.mp4")
	testsupport.WriteFile(t, source, sourceBytes)
	clip.Paths.Source = source
	if err := f.store.Update(context.Background(), clip); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
	testsupport.AdvanceTo(t, f.store, clip, target)
	return clip
}

func TestReportSumsArtifactClasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedWithSource(t, "DownloadedClip", clips.StatusDownloaded, 1000)
	rendered := f.seedWithSource(t, "RenderedClip", clips.StatusRendered, 500)
	renderedPath := filepath.Join(f.cfg.ClipWorkDir(rendered.Platform, rendered.ClipKey), "rendered.mp4")
	testsupport.WriteFile(t, renderedPath, 2000)
	rendered.Paths.Rendered = renderedPath
	if err := f.store.Update(ctx, rendered); err != nil {
		t.Fatalf("store.Update: %v", err)
	}

	testsupport.WriteFile(t, filepath.Join(f.cfg.Paths.OutputsDir, "default", "twitch_x", "rendered.mp4"), 300)
	testsupport.WriteFile(t, filepath.Join(f.cfg.Paths.ArchivesDir, "default", "2026-08-25", "twitch_y", "rendered.mp4"), 700)

	usage, err := cleanup.Report(ctx, f.store, f.cfg)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if usage.Clips[clips.StatusDownloaded] != 1 || usage.Clips[clips.StatusRendered] != 1 {
		t.Fatalf("clip counts = %v", usage.Clips)
	}
	if usage.SourceBytes != 1500 {
		t.Errorf("SourceBytes = %d, want 1500", usage.SourceBytes)
	}
	if usage.RenderedBytes != 2000 {
		t.Errorf("RenderedBytes = %d, want 2000", usage.RenderedBytes)
	}
	// Work tree holds both sources plus the rendered file.
	if usage.WorkBytes != 3500 {
		t.Errorf("WorkBytes = %d, want 3500", usage.WorkBytes)
	}
	if usage.OutputBytes != 300 {
		t.Errorf("OutputBytes = %d, want 300", usage.OutputBytes)
	}
	if usage.ArchiveBytes != 700 {
		t.Errorf("ArchiveBytes = %d, want 700", usage.ArchiveBytes)
	}
	if got, want := usage.TotalBytes(), int64(3500+300+700); got != want {
		t.Errorf("TotalBytes = %d, want %d", got, want)
	}
}

func TestPurgeFailedRemovesFilesButKeepsRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	failed := f.seedWithSource(t, "FailedClip", clips.StatusDownloaded, 4096)
	if _, err := f.store.FailFrom(ctx, failed, "no_speech_detected"); err != nil {
		t.Fatalf("FailFrom: %v", err)
	}
	// Failed before download: row only, no working directory.
	bare := testsupport.SeedClip(t, f.store, f.profileID, f.creatorID, "BareFailedClip")
	if _, err := f.store.FailFrom(ctx, bare, "download_failed"); err != nil {
		t.Fatalf("FailFrom: %v", err)
	}
	healthy := f.seedWithSource(t, "HealthyClip", clips.StatusDownloaded, 128)

	result, err := cleanup.PurgeFailed(ctx, f.store, f.cfg)
	if err != nil {
		t.Fatalf("PurgeFailed: %v", err)
	}
	if result.Clips != 1 {
		t.Fatalf("purged clips = %d, want 1", result.Clips)
	}
	if result.FreedBytes != 4096 {
		t.Fatalf("freed = %d, want 4096", result.FreedBytes)
	}

	if _, err := os.Stat(f.cfg.ClipWorkDir(failed.Platform, failed.ClipKey)); !os.IsNotExist(err) {
		t.Fatalf("failed clip work dir should be gone (err=%v)", err)
	}
	if _, err := os.Stat(healthy.Paths.Source); err != nil {
		t.Fatalf("healthy clip source should survive: %v", err)
	}

	reloaded, err := f.store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != clips.StatusFailed || reloaded.FailReason != "no_speech_detected" {
		t.Fatalf("row changed: status=%s reason=%q", reloaded.Status, reloaded.FailReason)
	}
}

func TestPurgeOldSourcesHonorsRetention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clip := f.seedWithSource(t, "PackagedClip", clips.StatusPackaged, 1500)
	renderedPath := filepath.Join(f.cfg.ClipWorkDir(clip.Platform, clip.ClipKey), "rendered.mp4")
	testsupport.WriteFile(t, renderedPath, 2048)

	fresh, err := cleanup.PurgeOldSources(ctx, f.store, f.cfg, time.Now())
	if err != nil {
		t.Fatalf("PurgeOldSources: %v", err)
	}
	if fresh.Clips != 0 {
		t.Fatalf("fresh clip purged: %+v", fresh)
	}

	future := time.Now().AddDate(0, 0, f.cfg.Cleanup.SourceRetentionDays+7)
	aged, err := cleanup.PurgeOldSources(ctx, f.store, f.cfg, future)
	if err != nil {
		t.Fatalf("PurgeOldSources: %v", err)
	}
	if aged.Clips != 1 || aged.FreedBytes != 1500 {
		t.Fatalf("aged purge = %+v, want 1 clip / 1500 bytes", aged)
	}

	if _, err := os.Stat(clip.Paths.Source); !os.IsNotExist(err) {
		t.Fatalf("source should be removed (err=%v)", err)
	}
	if _, err := os.Stat(renderedPath); err != nil {
		t.Fatalf("rendered file should survive: %v", err)
	}
	reloaded, err := f.store.GetByID(ctx, clip.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != clips.StatusPackaged {
		t.Fatalf("status = %s, want packaged", reloaded.Status)
	}
	if reloaded.Paths.Source != "" {
		t.Fatalf("source path should be cleared, got %q", reloaded.Paths.Source)
	}
}

func TestPurgeOldSourcesDisabledByZeroRetention(t *testing.T) {
	f := newFixture(t)
	f.cfg.Cleanup.SourceRetentionDays = 0
	f.seedWithSource(t, "KeptForever", clips.StatusPackaged, 900)

	result, err := cleanup.PurgeOldSources(context.Background(), f.store, f.cfg, time.Now().AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("PurgeOldSources: %v", err)
	}
	if result.Clips != 0 || result.FreedBytes != 0 {
		t.Fatalf("purge should be disabled, got %+v", result)
	}
}
