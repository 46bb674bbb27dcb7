package archive_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NovoNihilo/clipforge/internal/archive"
	"github.com/NovoNihilo/clipforge/internal/testsupport"
)

var rotateTime = time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

func writePack(t *testing.T, outputsDir, profile, name string) string {
	t.Helper()
	dir := filepath.Join(outputsDir, profile, name)
	testsupport.WriteFile(t, filepath.Join(dir, "rendered.mp4"), 2048)
	testsupport.WriteFile(t, filepath.Join(dir, "metadata.json"), 64)
	return dir
}

func TestRotateMovesPacksIntoDatedDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writePack(t, cfg.Paths.OutputsDir, "default", "twitch_FirstClip")
	writePack(t, cfg.Paths.OutputsDir, "default", "kick_SecondClip")

	res, err := archive.Rotate(cfg, "default", rotateTime)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res.Archived != 2 {
		t.Fatalf("archived = %d, want 2", res.Archived)
	}
	want := filepath.Join(cfg.Paths.ArchivesDir, "default", "2026-08-25")
	if res.Dest != want {
		t.Fatalf("dest = %q, want %q", res.Dest, want)
	}
	for _, name := range []string{"twitch_FirstClip", "kick_SecondClip"} {
		if _, err := os.Stat(filepath.Join(want, name, "rendered.mp4")); err != nil {
			t.Fatalf("archived pack %s missing video: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(cfg.Paths.OutputsDir, "default", name)); !os.IsNotExist(err) {
			t.Fatalf("pack %s still present in outputs (err=%v)", name, err)
		}
	}
}

func TestRotateSuffixesWhenDayAlreadyArchived(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	writePack(t, cfg.Paths.OutputsDir, "default", "twitch_RunOne")
	first, err := archive.Rotate(cfg, "default", rotateTime)
	if err != nil {
		t.Fatalf("first rotate: %v", err)
	}
	if filepath.Base(first.Dest) != "2026-08-25" {
		t.Fatalf("first dest = %q", first.Dest)
	}

	writePack(t, cfg.Paths.OutputsDir, "default", "twitch_RunTwo")
	second, err := archive.Rotate(cfg, "default", rotateTime)
	if err != nil {
		t.Fatalf("second rotate: %v", err)
	}
	if filepath.Base(second.Dest) != "2026-08-25-2" {
		t.Fatalf("second dest = %q, want 2026-08-25-2", second.Dest)
	}

	writePack(t, cfg.Paths.OutputsDir, "default", "twitch_RunThree")
	third, err := archive.Rotate(cfg, "default", rotateTime)
	if err != nil {
		t.Fatalf("third rotate: %v", err)
	}
	if filepath.Base(third.Dest) != "2026-08-25-3" {
		t.Fatalf("third dest = %q, want 2026-08-25-3", third.Dest)
	}
	if _, err := os.Stat(filepath.Join(third.Dest, "twitch_RunThree", "metadata.json")); err != nil {
		t.Fatalf("third pack not archived: %v", err)
	}
}

func TestRotateIgnoresLooseFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	loose := filepath.Join(cfg.Paths.OutputsDir, "default", "notes.txt")
	testsupport.WriteFile(t, loose, 16)

	res, err := archive.Rotate(cfg, "default", rotateTime)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res.Archived != 0 || res.Dest != "" {
		t.Fatalf("expected noop, got %+v", res)
	}
	if _, err := os.Stat(loose); err != nil {
		t.Fatalf("loose file should survive rotation: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.ArchivesDir, "default")); !os.IsNotExist(err) {
		t.Fatalf("no archive dir should be created for a noop (err=%v)", err)
	}
}

func TestRotateWithoutOutputsDirIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	res, err := archive.Rotate(cfg, "missing-profile", rotateTime)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res.Archived != 0 {
		t.Fatalf("archived = %d, want 0", res.Archived)
	}
}
