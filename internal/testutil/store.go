package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/alexwday/aegis-project-sub000/internal/catalog"
	"github.com/alexwday/aegis-project-sub000/internal/monitor"
	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// ErrTxDone is returned by a MemoryTx used after Commit or Rollback.
var ErrTxDone = errors.New("transaction already finished")

// MemoryStore is a thread-safe in-memory catalog.Store and monitor.Sink.
// Set the *Err fields to make the matching operation fail.
type MemoryStore struct {
	mu sync.Mutex

	Sections map[types.IdentityKey][]catalog.SectionRow
	Chunks   map[types.IdentityKey][]catalog.ChunkRow
	Stages   []monitor.StageRecord

	ListErr          error
	BeginErr         error
	DeleteErr        error
	InsertSectionErr error
	InsertChunkErr   error
	CommitErr        error
	InsertStageErr   error

	Commits   int
	Rollbacks int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Sections: make(map[types.IdentityKey][]catalog.SectionRow),
		Chunks:   make(map[types.IdentityKey][]catalog.ChunkRow),
	}
}

// ListEntries returns one entry per key, taken from its section rows.
func (m *MemoryStore) ListEntries(_ context.Context) ([]types.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []types.CatalogEntry
	for key, rows := range m.Sections {
		if len(rows) == 0 {
			continue
		}
		out = append(out, types.CatalogEntry{Key: key, FileSize: rows[0].FileSize, FileModified: rows[0].FileModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out, nil
}

// BeginTx starts a transaction that stages changes until Commit.
func (m *MemoryStore) BeginTx(_ context.Context) (catalog.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	return &MemoryTx{store: m}, nil
}

// Keys returns every key with section rows.
func (m *MemoryStore) Keys() []types.IdentityKey {
	entries, _ := m.ListEntries(context.Background())
	keys := make([]types.IdentityKey, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// InsertStageRecords implements monitor.Sink.
func (m *MemoryStore) InsertStageRecords(_ context.Context, records []monitor.StageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertStageErr != nil {
		return m.InsertStageErr
	}
	m.Stages = append(m.Stages, records...)
	return nil
}

// MemoryTx is a MemoryStore transaction.
type MemoryTx struct {
	store *MemoryStore
	done  bool

	deletes  []types.IdentityKey
	sections []catalog.SectionRow
	chunks   []catalog.ChunkRow
}

func (tx *MemoryTx) DeleteTranscript(_ context.Context, key types.IdentityKey) (int64, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.done {
		return 0, ErrTxDone
	}
	if tx.store.DeleteErr != nil {
		return 0, tx.store.DeleteErr
	}
	tx.deletes = append(tx.deletes, key)
	return int64(len(tx.store.Sections[key]) + len(tx.store.Chunks[key])), nil
}

func (tx *MemoryTx) InsertSections(_ context.Context, rows []catalog.SectionRow) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	if tx.store.InsertSectionErr != nil {
		return tx.store.InsertSectionErr
	}
	tx.sections = append(tx.sections, rows...)
	return nil
}

func (tx *MemoryTx) InsertChunks(_ context.Context, rows []catalog.ChunkRow) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	if tx.store.InsertChunkErr != nil {
		return tx.store.InsertChunkErr
	}
	tx.chunks = append(tx.chunks, rows...)
	return nil
}

func (tx *MemoryTx) Commit(_ context.Context) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	if s.CommitErr != nil {
		return s.CommitErr
	}
	for _, key := range tx.deletes {
		delete(s.Sections, key)
		delete(s.Chunks, key)
	}
	for _, r := range tx.sections {
		s.Sections[r.Key] = append(s.Sections[r.Key], r)
	}
	for _, r := range tx.chunks {
		s.Chunks[r.Key] = append(s.Chunks[r.Key], r)
	}
	tx.done = true
	s.Commits++
	return nil
}

func (tx *MemoryTx) Rollback(_ context.Context) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	if tx.done {
		return nil
	}
	tx.done = true
	tx.store.Rollbacks++
	return nil
}

var (
	_ catalog.Store = (*MemoryStore)(nil)
	_ monitor.Sink  = (*MemoryStore)(nil)
)
