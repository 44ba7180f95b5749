// Package ingest scans a source directory for questionnaire images.
package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"markscan/constants"
)

// DirStats summarizes one directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// ScanDirectory walks root, skips hidden entries if requested, and
// collects every file with an accepted image extension. The result is
// sorted by path so batch output order is deterministic. An empty match
// set is an error: the directory holds no images, or none in an
// accepted format.
func ScanDirectory(root string, skipHidden bool) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("source directory is required")
	}

	var paths []string
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk %s: %w", root, err)
	}

	if len(paths) == 0 {
		return nil, stats, fmt.Errorf("no images found in %s; accepted formats: %s",
			root, strings.Join(acceptedExts(), ", "))
	}

	sort.Strings(paths)
	return paths, stats, nil
}

func acceptedExts() []string {
	exts := make([]string, 0, len(constants.AllowedExtensions))
	for e := range constants.AllowedExtensions {
		exts = append(exts, "."+e)
	}
	sort.Strings(exts)
	return exts
}
