package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type DirStats struct {
	Scanned int
	Matched int
	Skipped int
	Failed  int
}

// Discover expands roots into the list of documents to process. A root that
// is a file is taken as is, so an unsupported file given explicitly is still
// reported by the pipeline. Directories are walked (recursively if asked)
// and filtered by the supported extensions. Each root's files are sorted;
// roots keep their order and duplicates are dropped.
func Discover(roots []string, recursive, skipHidden bool) ([]string, DirStats, error) {
	var (
		stats DirStats
		out   []string
		seen  = map[string]struct{}{}
	)
	add := func(p string) {
		key := filepath.Clean(p)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}

	if len(roots) == 0 {
		return nil, stats, errors.New("no input paths")
	}

	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		info, err := os.Stat(root)
		if err != nil {
			return out, stats, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			stats.Scanned++
			stats.Matched++
			add(root)
			continue
		}

		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				slog.Warn("ingest.walk.error", "path", path, "error", walkErr)
				stats.Failed++
				return nil // continue walking
			}
			if d.IsDir() {
				if path == root {
					return nil
				}
				if !recursive || (skipHidden && IsHidden(path)) {
					return filepath.SkipDir
				}
				return nil
			}
			stats.Scanned++
			if skipHidden && IsHidden(path) {
				stats.Skipped++
				return nil
			}
			if !AllowedExt(filepath.Ext(path)) {
				stats.Skipped++
				return nil
			}
			stats.Matched++
			found = append(found, path)
			return nil
		})
		if err != nil {
			return out, stats, fmt.Errorf("walk %s: %w", root, err)
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return out, stats, nil
}
