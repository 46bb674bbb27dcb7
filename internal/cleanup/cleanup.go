// Package cleanup reclaims disk space from clips the pipeline is done
// with. It only ever deletes files: clip rows stay in the database
// forever so dedupe by clip key keeps working across runs.
package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/NovoNihilo/clipforge/internal/clips"
	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/services"
)

// Usage summarizes what the pipeline currently holds on disk.
type Usage struct {
	// Clips counts database rows by status.
	Clips map[clips.Status]int
	// SourceBytes is the total size of downloaded source videos still
	// present on disk.
	SourceBytes int64
	// RenderedBytes is the total size of rendered verticals still
	// present on disk.
	RenderedBytes int64
	// WorkBytes is the size of the whole working tree (sources,
	// transcripts, edit decisions, renders).
	WorkBytes int64
	// OutputBytes is the size of the outputs directory (unarchived packs).
	OutputBytes int64
	// ArchiveBytes is the size of the archives directory.
	ArchiveBytes int64
}

// TotalBytes is the combined footprint of working files, outputs, and
// archives.
func (u Usage) TotalBytes() int64 {
	return u.WorkBytes + u.OutputBytes + u.ArchiveBytes
}

// PurgeResult reports what a purge removed.
type PurgeResult struct {
	Clips      int
	FreedBytes int64
}

// Report walks the data, outputs, and archives directories and cross
// references clip rows to produce a disk usage summary.
func Report(ctx context.Context, store *clips.Store, cfg *config.Config) (Usage, error) {
	stats, err := store.Stats(ctx, 0)
	if err != nil {
		return Usage{}, err
	}
	usage := Usage{Clips: stats}

	all, err := store.List(ctx)
	if err != nil {
		return Usage{}, err
	}
	for _, clip := range all {
		usage.SourceBytes += fileSize(clip.Paths.Source)
		usage.RenderedBytes += fileSize(clip.Paths.Rendered)
	}

	usage.WorkBytes = dirSize(cfg.Paths.DataDir)
	usage.OutputBytes = dirSize(cfg.Paths.OutputsDir)
	usage.ArchiveBytes = dirSize(cfg.Paths.ArchivesDir)
	return usage, nil
}

// PurgeFailed removes the working directories of failed clips. The rows
// keep their failed status and reason; only files go.
func PurgeFailed(ctx context.Context, store *clips.Store, cfg *config.Config) (PurgeResult, error) {
	failed, err := store.ListByStatus(ctx, clips.StatusFailed)
	if err != nil {
		return PurgeResult{}, err
	}

	var result PurgeResult
	for _, clip := range failed {
		workDir := cfg.ClipWorkDir(clip.Platform, clip.ClipKey)
		size := dirSize(workDir)
		if size == 0 {
			if _, statErr := os.Stat(workDir); errors.Is(statErr, fs.ErrNotExist) {
				continue
			}
		}
		if err := os.RemoveAll(workDir); err != nil {
			return result, services.Wrap(services.ErrTransient, "cleanup", "purge failed clip", "Could not remove a failed clip's working directory", err)
		}
		result.Clips++
		result.FreedBytes += size
	}
	return result, nil
}

// PurgeOldSources deletes source videos of packaged clips whose last
// update is older than the configured retention window. The rendered
// file and the rest of the working directory stay, and the row's source
// path is cleared so status output does not point at a ghost file.
//
// A non-positive retention disables the purge.
func PurgeOldSources(ctx context.Context, store *clips.Store, cfg *config.Config, now time.Time) (PurgeResult, error) {
	days := cfg.Cleanup.SourceRetentionDays
	if days <= 0 {
		return PurgeResult{}, nil
	}
	cutoff := now.AddDate(0, 0, -days)

	packaged, err := store.ListByStatus(ctx, clips.StatusPackaged)
	if err != nil {
		return PurgeResult{}, err
	}

	var result PurgeResult
	for _, clip := range packaged {
		if clip.Paths.Source == "" || !clip.UpdatedAt.Before(cutoff) {
			continue
		}
		size := fileSize(clip.Paths.Source)
		if size == 0 {
			continue
		}
		if err := os.Remove(clip.Paths.Source); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return result, services.Wrap(services.ErrTransient, "cleanup", "purge old source", "Could not remove an expired source video", err)
		}
		clip.Paths.Source = ""
		if err := store.Update(ctx, clip); err != nil {
			return result, err
		}
		result.Clips++
		result.FreedBytes += size
	}
	return result, nil
}

func fileSize(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}
