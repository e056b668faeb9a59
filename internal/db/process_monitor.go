package db

import (
	"context"
	"fmt"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/monitor"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertStageRecords writes a run's stage records in one batch.
func (db *DB) InsertStageRecords(ctx context.Context, records []monitor.StageRecord) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		runID, err := uuid.Parse(r.RunID)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", r.RunID, err)
		}
		var errMsg *string
		if r.Error != "" {
			errMsg = &r.Error
		}
		batch.Queue(
			`INSERT INTO process_monitor (run_uuid, transcript, stage_name, stage_start_time, stage_end_time,
			     duration_ms, api_calls, prompt_tokens, completion_tokens, total_cost, status, error_message)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			runID, r.Transcript, r.Stage, r.StartedAt, r.EndedAt, r.Duration.Milliseconds(),
			r.Calls, r.PromptTokens, r.CompletionTokens, r.Cost, string(r.Status), errMsg,
		)
	}

	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert stage records: %w", err)
	}
	return nil
}

// ListStageRecords returns a run's stage records in insertion order.
func (db *DB) ListStageRecords(ctx context.Context, runID string) ([]monitor.StageRecord, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT transcript, stage_name, stage_start_time, stage_end_time, duration_ms,
		        api_calls, prompt_tokens, completion_tokens, total_cost, status, error_message
		 FROM process_monitor
		 WHERE run_uuid = $1
		 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage records: %w", err)
	}
	defer rows.Close()

	var records []monitor.StageRecord
	for rows.Next() {
		r := monitor.StageRecord{RunID: runID}
		var durationMs int64
		var status string
		var errMsg *string
		if err := rows.Scan(&r.Transcript, &r.Stage, &r.StartedAt, &r.EndedAt, &durationMs,
			&r.Calls, &r.PromptTokens, &r.CompletionTokens, &r.Cost, &status, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan stage record: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Status = monitor.Status(status)
		if errMsg != nil {
			r.Error = *errMsg
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stage records: %w", err)
	}
	return records, nil
}

var _ monitor.Sink = (*DB)(nil)
