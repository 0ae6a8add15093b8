package database

import (
	"context"
	"fmt"
	"time"
)

// Call status values, kept in sync with the task runner.
const (
	CallStatusQueued  = "QUEUED"
	CallStatusRunning = "RUNNING"
	CallStatusSuccess = "SUCCESS"
	CallStatusFail    = "FAIL"
)

// CallRow is the input for inserting a call.
type CallRow struct {
	AudioKey    string
	Filename    string
	ContentType string
	Language    string
	NumSpeakers int
}

// CallAPI is the call representation for API responses.
type CallAPI struct {
	ID           int64     `json:"id"`
	AudioKey     string    `json:"audio_key"`
	Filename     string    `json:"filename,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	Language     string    `json:"language,omitempty"`
	NumSpeakers  int       `json:"num_speakers"`
	Status       string    `json:"status"`
	Detail       string    `json:"detail,omitempty"`
	DiarizeJobID string    `json:"diarize_job_id,omitempty"`
	DurationMs   int       `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InsertCall inserts a new call with status QUEUED and returns its id.
func (db *DB) InsertCall(ctx context.Context, row *CallRow) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO calls (audio_key, filename, content_type, language, num_speakers)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, row.AudioKey, row.Filename, row.ContentType, row.Language, row.NumSpeakers).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert call: %w", err)
	}
	return id, nil
}

// UpdateCallStatus transitions a call's status and records a detail string
// (failure reason or empty).
func (db *DB) UpdateCallStatus(ctx context.Context, callID int64, status, detail string) error {
	valid := map[string]bool{
		CallStatusQueued: true, CallStatusRunning: true,
		CallStatusSuccess: true, CallStatusFail: true,
	}
	if !valid[status] {
		return fmt.Errorf("invalid call status: %s", status)
	}

	_, err := db.Pool.Exec(ctx, `
		UPDATE calls SET status = $2, detail = $3, updated_at = now()
		WHERE id = $1
	`, callID, status, detail)
	return err
}

// SetCallJobID records the diarization provider's job id on a call.
func (db *DB) SetCallJobID(ctx context.Context, callID int64, jobID string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE calls SET diarize_job_id = $2, updated_at = now()
		WHERE id = $1
	`, callID, jobID)
	return err
}

// SetCallDuration records the decoded audio duration on a call.
func (db *DB) SetCallDuration(ctx context.Context, callID int64, durationMs int) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE calls SET duration_ms = $2, updated_at = now()
		WHERE id = $1
	`, callID, durationMs)
	return err
}

// GetCall returns a single call by id.
func (db *DB) GetCall(ctx context.Context, callID int64) (*CallAPI, error) {
	var c CallAPI
	err := db.Pool.QueryRow(ctx, `
		SELECT id, audio_key, filename, content_type, language, num_speakers,
			status, detail, diarize_job_id, duration_ms, created_at, updated_at
		FROM calls
		WHERE id = $1
	`, callID).Scan(
		&c.ID, &c.AudioKey, &c.Filename, &c.ContentType, &c.Language, &c.NumSpeakers,
		&c.Status, &c.Detail, &c.DiarizeJobID, &c.DurationMs, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCalls returns recent calls, newest first. An empty status matches all.
func (db *DB) ListCalls(ctx context.Context, status string, limit, offset int) ([]CallAPI, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, audio_key, filename, content_type, language, num_speakers,
			status, detail, diarize_job_id, duration_ms, created_at, updated_at
		FROM calls
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CallAPI
	for rows.Next() {
		var c CallAPI
		if err := rows.Scan(
			&c.ID, &c.AudioKey, &c.Filename, &c.ContentType, &c.Language, &c.NumSpeakers,
			&c.Status, &c.Detail, &c.DiarizeJobID, &c.DurationMs, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if result == nil {
		result = []CallAPI{}
	}
	return result, rows.Err()
}

// RequeueStuckCalls resets calls left RUNNING by a crashed worker back to
// QUEUED so the task runner picks them up again on startup.
func (db *DB) RequeueStuckCalls(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE calls SET status = 'QUEUED', detail = '', updated_at = now()
		WHERE status = 'RUNNING'
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListQueuedCalls returns QUEUED calls oldest first, for startup recovery.
func (db *DB) ListQueuedCalls(ctx context.Context, limit int) ([]CallAPI, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, audio_key, filename, content_type, language, num_speakers,
			status, detail, diarize_job_id, duration_ms, created_at, updated_at
		FROM calls
		WHERE status = 'QUEUED'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CallAPI
	for rows.Next() {
		var c CallAPI
		if err := rows.Scan(
			&c.ID, &c.AudioKey, &c.Filename, &c.ContentType, &c.Language, &c.NumSpeakers,
			&c.Status, &c.Detail, &c.DiarizeJobID, &c.DurationMs, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
