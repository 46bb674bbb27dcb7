// Package archive rotates finished publish packs out of the outputs
// directory so each pipeline run starts with a clean slate. Packs are
// moved under archives/<profile>/<date>, never deleted.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/NovoNihilo/clipforge/internal/config"
	"github.com/NovoNihilo/clipforge/internal/fileutil"
	"github.com/NovoNihilo/clipforge/internal/services"
)

// Result reports what a rotation did.
type Result struct {
	// Archived is the number of packs moved.
	Archived int
	// Dest is the dated archive directory packs were moved into.
	// Empty when nothing was archived.
	Dest string
}

// Rotate moves every pack directory under outputs/<profileSlug> into a
// dated directory under archives/<profileSlug>. When the dated directory
// already exists (multiple runs on the same day) a numeric suffix is
// appended: 2026-08-25, 2026-08-25-2, 2026-08-25-3, and so on.
//
// Loose files in the outputs directory are left alone; only
// subdirectories count as packs. A missing outputs directory is not an
// error, it just means there is nothing to rotate.
func Rotate(cfg *config.Config, profileSlug string, now time.Time) (Result, error) {
	outDir := filepath.Join(cfg.Paths.OutputsDir, profileSlug)
	entries, err := os.ReadDir(outDir)
	if errors.Is(err, fs.ErrNotExist) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "archive", "read outputs", "Could not read the outputs directory", err)
	}

	var packs []string
	for _, entry := range entries {
		if entry.IsDir() {
			packs = append(packs, entry.Name())
		}
	}
	if len(packs) == 0 {
		return Result{}, nil
	}

	dest := nextArchiveDir(filepath.Join(cfg.Paths.ArchivesDir, profileSlug), now)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "archive", "create archive dir", "Could not create the archive directory", err)
	}

	moved := 0
	for _, name := range packs {
		if err := movePack(filepath.Join(outDir, name), filepath.Join(dest, name)); err != nil {
			return Result{Archived: moved, Dest: dest}, services.Wrap(services.ErrTransient, "archive", "move pack", fmt.Sprintf("Could not archive pack %s", name), err)
		}
		moved++
	}
	return Result{Archived: moved, Dest: dest}, nil
}

// nextArchiveDir picks the first free dated directory under root.
func nextArchiveDir(root string, now time.Time) string {
	day := now.Format("2006-01-02")
	dest := filepath.Join(root, day)
	for counter := 2; ; counter++ {
		if _, err := os.Stat(dest); errors.Is(err, fs.ErrNotExist) {
			return dest
		}
		dest = filepath.Join(root, fmt.Sprintf("%s-%d", day, counter))
	}
}

// movePack renames a pack directory, falling back to copy-and-remove
// when outputs and archives live on different filesystems.
func movePack(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && linkErr.Err == syscall.EXDEV {
		if err := copyTree(src, dst); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}
	return err
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return fileutil.CopyFile(path, target)
	})
}
