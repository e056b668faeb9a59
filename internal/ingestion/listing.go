package ingestion

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	"node_modules": true,
}

// IgnoredDir reports whether a directory named name is skipped when listing.
func IgnoredDir(name string) bool {
	return skipDirs[name] || strings.HasPrefix(name, ".")
}

// IsTranscriptFile reports whether name looks like a transcript List would
// return.
func IsTranscriptFile(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && SupportedExtensions[strings.ToLower(filepath.Ext(base))]
}

// List walks root and returns every transcript laid out as
// <bank>/<fiscal_year>/<quarter>/<document>.<ext>. Files that do not fit the
// layout are skipped with a warning. The result is sorted by path.
func List(root string, logger *slog.Logger) ([]types.TranscriptSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve transcripts root: %w", err)
	}

	var sources []types.TranscriptSource
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != absRoot && IgnoredDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsTranscriptFile(name) {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		key, err := ParseKey(rel)
		if err != nil {
			logger.Warn("skipping transcript outside expected layout", "path", rel, "error", err)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn("skipping unreadable transcript", "path", rel, "error", err)
			return nil
		}
		sources = append(sources, types.TranscriptSource{
			Key:     key,
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts in %s: %w", root, err)
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, nil
}

// ParseKey derives the identity key from a path relative to the transcripts
// root.
func ParseKey(rel string) (types.IdentityKey, error) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 4 {
		return types.IdentityKey{}, fmt.Errorf("expected bank/year/quarter/file, got %d path segments", len(parts))
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return types.IdentityKey{}, fmt.Errorf("invalid fiscal year %q", parts[1])
	}
	file := parts[3]
	key := types.IdentityKey{
		BankName:      parts[0],
		FiscalYear:    year,
		FiscalQuarter: strings.ToUpper(parts[2]),
		DocumentName:  strings.TrimSuffix(file, filepath.Ext(file)),
	}
	if err := key.Validate(); err != nil {
		return types.IdentityKey{}, err
	}
	return key, nil
}
