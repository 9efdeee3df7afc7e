package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// Discover expands the given paths into payslip files. Directories are walked
// recursively (hidden entries skipped if requested); plain files are kept when
// their extension is allowed. The result is sorted and free of duplicates.
func Discover(paths []string, skipHidden bool) ([]string, DirStats, error) {
	var stats DirStats
	seen := map[string]struct{}{}
	var out []string

	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
		stats.Matched++
	}

	for _, root := range paths {
		if strings.TrimSpace(root) == "" {
			continue
		}
		st, err := os.Stat(root)
		if err != nil {
			return out, stats, fmt.Errorf("stat %s: %w", root, err)
		}
		if !st.IsDir() {
			stats.Scanned++
			if !AllowedExt(filepath.Ext(root)) {
				return out, stats, fmt.Errorf("unsupported file %s", root)
			}
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			stats.Scanned++
			if walkErr != nil {
				stats.Failed++
				return nil // continue walking
			}
			// skip hidden dirs/files if requested
			if skipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return out, stats, fmt.Errorf("walk: %w", err)
		}
	}

	if len(out) == 0 {
		return nil, stats, errors.New("no payslip files found")
	}
	sort.Strings(out)
	return out, stats, nil
}
