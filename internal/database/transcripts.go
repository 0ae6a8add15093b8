package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TranscriptRow is the input for inserting a transcript.
type TranscriptRow struct {
	CallID         int64
	Segments       json.RawMessage // labeled speaker turns with text
	FullText       string
	Mode           string // "segment" or "full"
	SegmentCount   int
	FailedSegments int
	DurationMs     int
	Analysis       json.RawMessage // optional LLM analysis, nil when not run
}

// TranscriptAPI is the transcript representation for API responses.
type TranscriptAPI struct {
	ID             int64           `json:"id"`
	CallID         int64           `json:"call_id"`
	Segments       json.RawMessage `json:"segments"`
	FullText       string          `json:"full_text"`
	Mode           string          `json:"mode"`
	SegmentCount   int             `json:"segment_count"`
	FailedSegments int             `json:"failed_segments"`
	DurationMs     int             `json:"duration_ms"`
	Analysis       json.RawMessage `json:"analysis,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// InsertTranscript inserts a transcript. A call keeps at most one
// transcript; a re-run replaces the previous one in the same transaction.
func (db *DB) InsertTranscript(ctx context.Context, row *TranscriptRow) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM transcripts WHERE call_id = $1`, row.CallID)
	if err != nil {
		return 0, fmt.Errorf("clear previous transcript: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO transcripts (
			call_id, segments, full_text, mode,
			segment_count, failed_segments, duration_ms, analysis
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		row.CallID, row.Segments, row.FullText, row.Mode,
		row.SegmentCount, row.FailedSegments, row.DurationMs, row.Analysis,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transcript: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return id, nil
}

// GetTranscriptByCall returns the transcript for a call, or pgx.ErrNoRows.
func (db *DB) GetTranscriptByCall(ctx context.Context, callID int64) (*TranscriptAPI, error) {
	var t TranscriptAPI
	err := db.Pool.QueryRow(ctx, `
		SELECT id, call_id, segments, full_text, mode,
			segment_count, failed_segments, duration_ms, analysis, created_at
		FROM transcripts
		WHERE call_id = $1
	`, callID).Scan(
		&t.ID, &t.CallID, &t.Segments, &t.FullText, &t.Mode,
		&t.SegmentCount, &t.FailedSegments, &t.DurationMs, &t.Analysis, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
