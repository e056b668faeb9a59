package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// DefaultSyncTimeout bounds a single Sync or Remove.
const DefaultSyncTimeout = 60 * time.Second

// Sync operations, reported in SyncError.Op.
const (
	OpValidate       = "validate"
	OpBegin          = "begin"
	OpDelete         = "delete"
	OpInsertSections = "insert_sections"
	OpInsertChunks   = "insert_chunks"
	OpCommit         = "commit"
)

// SyncResult describes a committed write.
type SyncResult struct {
	Key         types.IdentityKey
	DeletedRows int64
	SectionRows int
	ChunkRows   int
}

// Synchronizer replaces a transcript's catalog rows in one transaction.
type Synchronizer struct {
	store   Store
	timeout time.Duration
	logger  *slog.Logger
}

// NewSynchronizer creates a synchronizer. A non-positive timeout uses
// DefaultSyncTimeout.
func NewSynchronizer(store Store, timeout time.Duration, logger *slog.Logger) *Synchronizer {
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{store: store, timeout: timeout, logger: logger}
}

// Sync deletes the key's rows and inserts the new section and chunk rows.
func (s *Synchronizer) Sync(ctx context.Context, pt *types.ProcessedTranscript) (*SyncResult, error) {
	key := pt.Source.Key
	if err := pt.Source.Validate(); err != nil {
		return nil, &SyncError{Key: key, Op: OpValidate, Cause: err}
	}
	sections, chunks := BuildRows(pt)

	var deleted int64
	err := s.inTx(ctx, key, func(ctx context.Context, tx Tx) (string, error) {
		var err error
		if deleted, err = tx.DeleteTranscript(ctx, key); err != nil {
			return OpDelete, err
		}
		if err := tx.InsertSections(ctx, sections); err != nil {
			return OpInsertSections, err
		}
		if err := tx.InsertChunks(ctx, chunks); err != nil {
			return OpInsertChunks, err
		}
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("synced transcript",
		"transcript", key.String(), "deleted_rows", deleted, "sections", len(sections), "chunks", len(chunks))
	return &SyncResult{Key: key, DeletedRows: deleted, SectionRows: len(sections), ChunkRows: len(chunks)}, nil
}

// Remove deletes every row of key.
func (s *Synchronizer) Remove(ctx context.Context, key types.IdentityKey) (int64, error) {
	var deleted int64
	err := s.inTx(ctx, key, func(ctx context.Context, tx Tx) (string, error) {
		var err error
		deleted, err = tx.DeleteTranscript(ctx, key)
		return OpDelete, err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("removed transcript", "transcript", key.String(), "deleted_rows", deleted)
	return deleted, nil
}

// inTx runs fn in a transaction bounded by the sync timeout. fn returns the
// op that failed alongside its error.
func (s *Synchronizer) inTx(ctx context.Context, key types.IdentityKey, fn func(context.Context, Tx) (string, error)) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return &SyncError{Key: key, Op: OpBegin, Cause: err}
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			s.logger.Error("rollback failed", "transcript", key.String(), "error", rbErr)
		}
	}()

	if op, err := fn(ctx, tx); err != nil {
		return &SyncError{Key: key, Op: op, Cause: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &SyncError{Key: key, Op: OpCommit, Cause: err}
	}
	committed = true
	return nil
}
