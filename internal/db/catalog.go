package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexwday/aegis-project-sub000/internal/catalog"
	"github.com/alexwday/aegis-project-sub000/internal/types"
	"github.com/jackc/pgx/v5"
)

var sectionColumns = []string{
	"bank_name", "fiscal_year", "fiscal_quarter", "document_name", "file_size", "file_modified",
	"section_id", "section_type", "section_name", "section_summary", "section_content",
	"section_order", "chunk_count",
}

var chunkColumns = []string{
	"bank_name", "fiscal_year", "fiscal_quarter", "document_name", "file_size", "file_modified",
	"chunk_id", "section_id", "section_name", "section_type", "section_summary", "section_order",
	"sentence_ids", "speaker", "content", "tags", "topics", "related_chunk_ids",
	"additional_context", "embedding",
}

// ListEntries returns the file metadata recorded for every transcript.
func (db *DB) ListEntries(ctx context.Context) ([]types.CatalogEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT DISTINCT bank_name, fiscal_year, fiscal_quarter, document_name, file_size, file_modified
		 FROM transcript_sections
		 ORDER BY bank_name, fiscal_year, fiscal_quarter, document_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []types.CatalogEntry
	for rows.Next() {
		var e types.CatalogEntry
		if err := rows.Scan(&e.Key.BankName, &e.Key.FiscalYear, &e.Key.FiscalQuarter, &e.Key.DocumentName,
			&e.FileSize, &e.FileModified); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	return entries, nil
}

// BeginTx starts a catalog transaction.
func (db *DB) BeginTx(ctx context.Context) (catalog.Tx, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &catalogTx{tx: tx}, nil
}

type catalogTx struct {
	tx pgx.Tx
}

func (c *catalogTx) DeleteTranscript(ctx context.Context, key types.IdentityKey) (int64, error) {
	var total int64
	for _, table := range []string{TableChunks, TableSections} {
		tag, err := c.tx.Exec(ctx,
			`DELETE FROM `+table+`
			 WHERE bank_name = $1 AND fiscal_year = $2 AND fiscal_quarter = $3 AND document_name = $4`,
			key.BankName, key.FiscalYear, key.FiscalQuarter, key.DocumentName)
		if err != nil {
			return 0, fmt.Errorf("failed to delete %s rows: %w", table, err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

func (c *catalogTx) InsertSections(ctx context.Context, rows []catalog.SectionRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := c.tx.CopyFrom(ctx, pgx.Identifier{TableSections}, sectionColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{
				r.Key.BankName, r.Key.FiscalYear, r.Key.FiscalQuarter, r.Key.DocumentName,
				r.FileSize, r.FileModified,
				r.SectionID, string(r.SectionType), r.SectionName, r.SectionSummary, r.SectionContent,
				r.SectionOrder, r.ChunkCount,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("failed to copy section rows: %w", err)
	}
	return nil
}

func (c *catalogTx) InsertChunks(ctx context.Context, rows []catalog.ChunkRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := c.tx.CopyFrom(ctx, pgx.Identifier{TableChunks}, chunkColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			notes, err := json.Marshal(r.AdditionalContext)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal context notes for chunk %d: %w", r.ChunkID, err)
			}
			return []any{
				r.Key.BankName, r.Key.FiscalYear, r.Key.FiscalQuarter, r.Key.DocumentName,
				r.FileSize, r.FileModified,
				r.ChunkID, r.SectionID, r.SectionName, string(r.SectionType), r.SectionSummary, r.SectionOrder,
				int32s(r.SentenceIDs), r.Speaker, r.Content, r.Tags, r.Topics, int32s(r.RelatedChunkIDs),
				notes, r.Embedding,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("failed to copy chunk rows: %w", err)
	}
	return nil
}

func (c *catalogTx) Commit(ctx context.Context) error {
	if err := c.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *catalogTx) Rollback(ctx context.Context) error {
	if err := c.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func int32s(in []int) []int32 {
	if in == nil {
		return nil
	}
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

var _ catalog.Store = (*DB)(nil)
