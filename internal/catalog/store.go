package catalog

import (
	"context"

	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// Store is the relational catalog as seen by the differ and synchronizer.
type Store interface {
	// ListEntries returns the file metadata recorded for every key.
	ListEntries(ctx context.Context) ([]types.CatalogEntry, error)
	// BeginTx starts a transaction.
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a catalog transaction. Rollback after Commit is a no-op.
type Tx interface {
	// DeleteTranscript removes every section and chunk row of key and
	// returns the number of rows removed.
	DeleteTranscript(ctx context.Context, key types.IdentityKey) (int64, error)
	InsertSections(ctx context.Context, rows []SectionRow) error
	InsertChunks(ctx context.Context, rows []ChunkRow) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
