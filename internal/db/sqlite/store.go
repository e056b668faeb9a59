// Package sqlite is an embedded catalog backend on modernc.org/sqlite, used
// for local runs and tests. It mirrors the PostgreSQL tables, storing arrays
// as JSON text and timestamps as UTC RFC 3339 text.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/catalog"
	"github.com/alexwday/aegis-project-sub000/internal/monitor"
	"github.com/alexwday/aegis-project-sub000/internal/types"
	_ "modernc.org/sqlite"
)

// timeLayout keeps microseconds, the catalog's resolution.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite catalog.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" opens a
// private in-memory database.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer; transactions serialize on the single connection
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the catalog tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ListEntries returns the file metadata recorded for every transcript.
func (s *Store) ListEntries(ctx context.Context) ([]types.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT bank_name, fiscal_year, fiscal_quarter, document_name, file_size, file_modified
		FROM transcript_sections
		ORDER BY bank_name, fiscal_year, fiscal_quarter, document_name
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []types.CatalogEntry
	for rows.Next() {
		var e types.CatalogEntry
		var modified string
		if err := rows.Scan(&e.Key.BankName, &e.Key.FiscalYear, &e.Key.FiscalQuarter, &e.Key.DocumentName,
			&e.FileSize, &modified); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		if e.FileModified, err = parseTime(modified); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// BeginTx starts a catalog transaction.
func (s *Store) BeginTx(ctx context.Context) (catalog.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &catalogTx{tx: tx}, nil
}

type catalogTx struct {
	tx *sql.Tx
}

func (c *catalogTx) DeleteTranscript(ctx context.Context, key types.IdentityKey) (int64, error) {
	var total int64
	for _, table := range []string{"transcript_chunks", "transcript_sections"} {
		res, err := c.tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE bank_name = ? AND fiscal_year = ? AND fiscal_quarter = ? AND document_name = ?`,
			key.BankName, key.FiscalYear, key.FiscalQuarter, key.DocumentName)
		if err != nil {
			return 0, fmt.Errorf("delete %s rows: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete %s rows: %w", table, err)
		}
		total += n
	}
	return total, nil
}

func (c *catalogTx) InsertSections(ctx context.Context, rows []catalog.SectionRow) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := c.tx.PrepareContext(ctx, `
		INSERT INTO transcript_sections (bank_name, fiscal_year, fiscal_quarter, document_name, file_size,
			file_modified, section_id, section_type, section_name, section_summary, section_content,
			section_order, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare section insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.Key.BankName, r.Key.FiscalYear, r.Key.FiscalQuarter, r.Key.DocumentName, r.FileSize,
			formatTime(r.FileModified), r.SectionID, string(r.SectionType), r.SectionName, r.SectionSummary,
			r.SectionContent, r.SectionOrder, r.ChunkCount,
		); err != nil {
			return fmt.Errorf("insert section %d: %w", r.SectionID, err)
		}
	}
	return nil
}

func (c *catalogTx) InsertChunks(ctx context.Context, rows []catalog.ChunkRow) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := c.tx.PrepareContext(ctx, `
		INSERT INTO transcript_chunks (bank_name, fiscal_year, fiscal_quarter, document_name, file_size,
			file_modified, chunk_id, section_id, section_name, section_type, section_summary, section_order,
			sentence_ids, speaker, content, tags, topics, related_chunk_ids, additional_context, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		sentenceIDs, err := json.Marshal(r.SentenceIDs)
		if err != nil {
			return fmt.Errorf("encode chunk %d: %w", r.ChunkID, err)
		}
		var encErr error
		args := []any{
			r.Key.BankName, r.Key.FiscalYear, r.Key.FiscalQuarter, r.Key.DocumentName, r.FileSize,
			formatTime(r.FileModified), r.ChunkID, r.SectionID, r.SectionName, string(r.SectionType),
			r.SectionSummary, r.SectionOrder, string(sentenceIDs), r.Speaker, r.Content,
			jsonText(&encErr, r.Tags), jsonText(&encErr, r.Topics), jsonText(&encErr, r.RelatedChunkIDs),
			jsonText(&encErr, r.AdditionalContext), jsonText(&encErr, r.Embedding),
		}
		if encErr != nil {
			return fmt.Errorf("encode chunk %d: %w", r.ChunkID, encErr)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert chunk %d: %w", r.ChunkID, err)
		}
	}
	return nil
}

func (c *catalogTx) Commit(_ context.Context) error {
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (c *catalogTx) Rollback(_ context.Context) error {
	if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("roll back transaction: %w", err)
	}
	return nil
}

// InsertStageRecords writes a run's stage records in one transaction.
func (s *Store) InsertStageRecords(ctx context.Context, records []monitor.StageRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		var errMsg sql.NullString
		if r.Error != "" {
			errMsg = sql.NullString{String: r.Error, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO process_monitor (run_uuid, transcript, stage_name, stage_start_time, stage_end_time,
				duration_ms, api_calls, prompt_tokens, completion_tokens, total_cost, status, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.RunID, r.Transcript, r.Stage, formatTime(r.StartedAt), formatTime(r.EndedAt),
			r.Duration.Milliseconds(), r.Calls, r.PromptTokens, r.CompletionTokens, r.Cost,
			string(r.Status), errMsg,
		); err != nil {
			return fmt.Errorf("insert stage record: %w", err)
		}
	}
	return tx.Commit()
}

// ListStageRecords returns a run's stage records in insertion order.
func (s *Store) ListStageRecords(ctx context.Context, runID string) ([]monitor.StageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transcript, stage_name, stage_start_time, stage_end_time, duration_ms,
			api_calls, prompt_tokens, completion_tokens, total_cost, status, error_message
		FROM process_monitor
		WHERE run_uuid = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stage records: %w", err)
	}
	defer rows.Close()

	var records []monitor.StageRecord
	for rows.Next() {
		r := monitor.StageRecord{RunID: runID}
		var started, ended, status string
		var durationMs int64
		var errMsg sql.NullString
		if err := rows.Scan(&r.Transcript, &r.Stage, &started, &ended, &durationMs,
			&r.Calls, &r.PromptTokens, &r.CompletionTokens, &r.Cost, &status, &errMsg); err != nil {
			return nil, fmt.Errorf("scan stage record: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.EndedAt, err = parseTime(ended); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Status = monitor.Status(status)
		r.Error = errMsg.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// ChunkRows returns the stored chunk rows of key in chunk order. It is the
// read path used by operators and tests.
func (s *Store) ChunkRows(ctx context.Context, key types.IdentityKey) ([]catalog.ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_size, file_modified, chunk_id, section_id, section_name, section_type, section_summary,
			section_order, sentence_ids, speaker, content, tags, topics, related_chunk_ids,
			additional_context, embedding
		FROM transcript_chunks
		WHERE bank_name = ? AND fiscal_year = ? AND fiscal_quarter = ? AND document_name = ?
		ORDER BY chunk_id
	`, key.BankName, key.FiscalYear, key.FiscalQuarter, key.DocumentName)
	if err != nil {
		return nil, fmt.Errorf("query chunk rows: %w", err)
	}
	defer rows.Close()

	var out []catalog.ChunkRow
	for rows.Next() {
		r := catalog.ChunkRow{Key: key}
		var modified, sectionType, sentenceIDs string
		var tags, topics, related, notes, embedding sql.NullString
		if err := rows.Scan(&r.FileSize, &modified, &r.ChunkID, &r.SectionID, &r.SectionName, &sectionType,
			&r.SectionSummary, &r.SectionOrder, &sentenceIDs, &r.Speaker, &r.Content,
			&tags, &topics, &related, &notes, &embedding); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		if r.FileModified, err = parseTime(modified); err != nil {
			return nil, err
		}
		r.SectionType = types.SectionType(sectionType)
		if err := errors.Join(
			decode(sql.NullString{String: sentenceIDs, Valid: true}, &r.SentenceIDs),
			decode(tags, &r.Tags), decode(topics, &r.Topics), decode(related, &r.RelatedChunkIDs),
			decode(notes, &r.AdditionalContext), decode(embedding, &r.Embedding),
		); err != nil {
			return nil, fmt.Errorf("decode chunk %d: %w", r.ChunkID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SectionRows returns the stored section rows of key in section order.
func (s *Store) SectionRows(ctx context.Context, key types.IdentityKey) ([]catalog.SectionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_size, file_modified, section_id, section_type, section_name, section_summary,
			section_content, section_order, chunk_count
		FROM transcript_sections
		WHERE bank_name = ? AND fiscal_year = ? AND fiscal_quarter = ? AND document_name = ?
		ORDER BY section_order
	`, key.BankName, key.FiscalYear, key.FiscalQuarter, key.DocumentName)
	if err != nil {
		return nil, fmt.Errorf("query section rows: %w", err)
	}
	defer rows.Close()

	var out []catalog.SectionRow
	for rows.Next() {
		r := catalog.SectionRow{Key: key}
		var modified, sectionType string
		if err := rows.Scan(&r.FileSize, &modified, &r.SectionID, &sectionType, &r.SectionName,
			&r.SectionSummary, &r.SectionContent, &r.SectionOrder, &r.ChunkCount); err != nil {
			return nil, fmt.Errorf("scan section row: %w", err)
		}
		if r.FileModified, err = parseTime(modified); err != nil {
			return nil, err
		}
		r.SectionType = types.SectionType(sectionType)
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return catalog.NormalizeTime(t).Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// jsonText encodes v as JSON text, or NULL for a nil slice. The first
// encoding failure is kept in *errp and later calls return NULL.
func jsonText[T any](errp *error, v []T) any {
	if v == nil || *errp != nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		*errp = err
		return nil
	}
	return string(b)
}

func decode(s sql.NullString, dst any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}

var (
	_ catalog.Store = (*Store)(nil)
	_ monitor.Sink  = (*Store)(nil)
)
