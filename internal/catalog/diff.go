// Package catalog decides which transcripts need work and writes processed
// transcripts to the relational catalog one identity key at a time.
package catalog

import (
	"log/slog"
	"sort"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// Plan is the outcome of comparing the filesystem with the catalog.
type Plan struct {
	ToProcess []types.TranscriptSource
	ToDelete  []types.IdentityKey
	Unchanged int
}

// Removed returns the keys to delete that are not being reprocessed.
func (p *Plan) Removed() []types.IdentityKey {
	processing := make(map[types.IdentityKey]bool, len(p.ToProcess))
	for _, src := range p.ToProcess {
		processing[src.Key] = true
	}
	var out []types.IdentityKey
	for _, key := range p.ToDelete {
		if !processing[key] {
			out = append(out, key)
		}
	}
	return out
}

// Empty reports whether the plan has nothing to do.
func (p *Plan) Empty() bool {
	return len(p.ToProcess) == 0 && len(p.ToDelete) == 0
}

// NormalizeTime maps t to the resolution the catalog stores.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Diff compares the sources found on disk with the catalog entries. A source
// is processed when it is new or its size or modification time changed;
// catalog keys without a source, and keys about to be reprocessed, are
// scheduled for deletion. Output is sorted by key.
func Diff(sources []types.TranscriptSource, entries []types.CatalogEntry) *Plan {
	current := latestSources(sources)

	recorded := make(map[types.IdentityKey]types.CatalogEntry, len(entries))
	inconsistent := make(map[types.IdentityKey]bool)
	for _, e := range entries {
		if prev, ok := recorded[e.Key]; ok && !sameMetadata(prev, e.FileSize, e.FileModified) {
			inconsistent[e.Key] = true
		}
		recorded[e.Key] = e
	}

	plan := &Plan{}
	for key, src := range current {
		entry, ok := recorded[key]
		switch {
		case !ok:
			plan.ToProcess = append(plan.ToProcess, src)
		case inconsistent[key] || !sameMetadata(entry, src.Size, src.ModTime):
			plan.ToProcess = append(plan.ToProcess, src)
			plan.ToDelete = append(plan.ToDelete, key)
		default:
			plan.Unchanged++
		}
	}
	for key := range recorded {
		if _, ok := current[key]; !ok {
			plan.ToDelete = append(plan.ToDelete, key)
		}
	}

	sort.Slice(plan.ToProcess, func(i, j int) bool {
		return plan.ToProcess[i].Key.String() < plan.ToProcess[j].Key.String()
	})
	sort.Slice(plan.ToDelete, func(i, j int) bool {
		return plan.ToDelete[i].String() < plan.ToDelete[j].String()
	})
	return plan
}

func sameMetadata(e types.CatalogEntry, size int64, modified time.Time) bool {
	return e.FileSize == size && NormalizeTime(e.FileModified).Equal(NormalizeTime(modified))
}

// latestSources keeps one source per key, the most recently modified.
func latestSources(sources []types.TranscriptSource) map[types.IdentityKey]types.TranscriptSource {
	out := make(map[types.IdentityKey]types.TranscriptSource, len(sources))
	for _, src := range sources {
		prev, ok := out[src.Key]
		if !ok {
			out[src.Key] = src
			continue
		}
		winner := prev
		if src.ModTime.After(prev.ModTime) || (src.ModTime.Equal(prev.ModTime) && src.Path < prev.Path) {
			winner = src
		}
		slog.Warn("duplicate transcript sources for one key, keeping the newest",
			"transcript", src.Key.String(), "kept", winner.Path, "paths", []string{prev.Path, src.Path})
		out[src.Key] = winner
	}
	return out
}
