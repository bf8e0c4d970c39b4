package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
)

var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
)

// ErrMissingSubdirs is returned by Merge when a language directory is absent.
var ErrMissingSubdirs = errors.New("required subdirectories missing")

// ErrNoEntries is returned by Merge when no source file yields an entry.
var ErrNoEntries = errors.New("no valid JSON data to write")

// MergeOptions describes the source layout: {Dir}/{lang}/{name}_{lang}.json.
type MergeOptions struct {
	Dir       string
	Languages []string
	Names     []string
}

// DefaultMergeOptions mirrors the layout of the website's data directory.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		Dir:       "data",
		Languages: []string{"en", "ru"},
		Names: []string{
			"base", "ftdna", "order", "hg", "archeology", "history",
			"projects", "tree", "genealogy", "general", "miscellaneous",
		},
	}
}

// MergeResult reports what Merge read.
type MergeResult struct {
	Store   *Store
	Added   []string
	Skipped []string
}

// RemoveTrailingCommas drops commas directly before a closing } or ].
func RemoveTrailingCommas(data []byte) []byte {
	data = trailingCommaObject.ReplaceAll(data, []byte("}"))
	return trailingCommaArray.ReplaceAll(data, []byte("]"))
}

// Merge combines the per-language JSON files into one store. Missing,
// unreadable, invalid, or non-object files are skipped with a warning.
// Later files override the text of titles seen earlier. When every file is
// skipped, or all are empty objects, Merge fails with ErrNoEntries.
func Merge(opts MergeOptions, logger *zap.Logger) (*MergeResult, error) {
	if err := checkSubdirs(opts, logger); err != nil {
		return nil, err
	}

	result := &MergeResult{}
	var entries []Entry
	for _, lang := range opts.Languages {
		for _, name := range opts.Names {
			path := filepath.Join(opts.Dir, lang, fmt.Sprintf("%s_%s.json", name, lang))
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("skipping knowledge file", zap.String("path", path), zap.Error(err))
				result.Skipped = append(result.Skipped, path)
				continue
			}
			parsed, err := Parse(bytes.NewReader(RemoveTrailingCommas(data)))
			if err != nil {
				logger.Warn("skipping invalid knowledge file", zap.String("path", path), zap.Error(err))
				result.Skipped = append(result.Skipped, path)
				continue
			}
			entries = append(entries, parsed.entries...)
			result.Added = append(result.Added, path)
			logger.Info("added knowledge file", zap.String("path", path), zap.Int("entries", parsed.Len()))
		}
	}

	if len(entries) == 0 {
		logger.Warn("no valid knowledge data found", zap.Int("skipped", len(result.Skipped)))
		return nil, ErrNoEntries
	}

	result.Store = NewStore(entries)
	return result, nil
}

// WriteFile writes the store as indented JSON.
func WriteFile(path string, s *Store) error {
	raw, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func checkSubdirs(opts MergeOptions, logger *zap.Logger) error {
	if info, err := os.Stat(opts.Dir); err != nil || !info.IsDir() {
		logger.Error("input directory does not exist", zap.String("dir", opts.Dir))
		return fmt.Errorf("%w: %s is not a directory", ErrMissingSubdirs, opts.Dir)
	}

	var missing []string
	for _, lang := range opts.Languages {
		sub := filepath.Join(opts.Dir, lang)
		if info, err := os.Stat(sub); err != nil || !info.IsDir() {
			logger.Error("missing required subdir", zap.String("dir", sub))
			missing = append(missing, sub)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingSubdirs, missing)
	}
	return nil
}
