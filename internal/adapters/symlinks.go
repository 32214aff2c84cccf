package adapters

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// RepairSymlinks rewrites absolute symlinks under root whose target
// exists when rebased onto root, e.g. usr/lib/x -> /lib/x becomes
// usr/lib/x -> ../../lib/x. Links whose rebased target is missing and
// relative links are left alone, so running it twice changes nothing.
// Entries that cannot be inspected or rewritten are logged and skipped.
// It returns the number of rewritten links.
func RepairSymlinks(ctx context.Context, root string) int {
	repaired := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		changed, err := repairSymlink(root, path)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("failed to repair symlink")
			return nil
		}
		if changed {
			repaired++
		}
		return nil
	})
	return repaired
}

func repairSymlink(root string, path string) (bool, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return false, err
	}
	if !filepath.IsAbs(target) {
		return false, nil
	}
	// Clean first: on the real root "/.." is "/", so the rebased path
	// never climbs above root.
	rebased := filepath.Join(root, filepath.Clean(target))
	if _, err := os.Stat(rebased); err != nil {
		return false, nil
	}
	relative, err := filepath.Rel(filepath.Dir(path), rebased)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	if err := os.Symlink(relative, path); err != nil {
		return false, err
	}
	return true, nil
}
