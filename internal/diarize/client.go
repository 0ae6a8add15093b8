package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Status is a job status reported by the diarization provider.
// HTTP-level rejections (400/402/429) are folded into the same space so the
// caller classifies every outcome through one type.
type Status string

const (
	StatusPending         Status = "pending"
	StatusCreated         Status = "created"
	StatusRunning         Status = "running"
	StatusSucceeded       Status = "succeeded"
	StatusFailed          Status = "failed"
	StatusCanceled        Status = "canceled"
	StatusInvalidRequest  Status = "invalid_request"
	StatusTooManyRequests Status = "too_many_requests"
	StatusPaymentRequired Status = "payment_required"
	StatusUnknown         Status = "unknown"
)

// InProgress reports whether the job is still being processed and should be
// polled again.
func (s Status) InProgress() bool {
	return s == StatusPending || s == StatusCreated || s == StatusRunning
}

// Segment is a single speaker turn from the diarization output.
type Segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"` // seconds
	End     float64 `json:"end"`   // seconds
}

// Job is the full poll response for a diarization job. Raw preserves the
// provider payload for failure diagnostics.
type Job struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
	Output *struct {
		Diarization []Segment `json:"diarization"`
	} `json:"output"`
	Raw json.RawMessage `json:"-"`
}

// Payload errors for a succeeded job missing expected fields. Each gets its
// own sentinel so pipeline failure reasons stay distinguishable.
var (
	ErrNoOutput      = errors.New("diarization payload has no output field")
	ErrNoDiarization = errors.New("diarization payload has no output.diarization field")
)

// Segments extracts the diarization segments from a succeeded job.
func (j *Job) Segments() ([]Segment, error) {
	if j.Output == nil {
		return nil, ErrNoOutput
	}
	if j.Output.Diarization == nil {
		return nil, ErrNoDiarization
	}
	return j.Output.Diarization, nil
}

// Client calls a pyannote-compatible diarization API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a diarization API client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	URL         string `json:"url"`
	NumSpeakers int    `json:"numSpeakers"`
}

type submitResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// Submit sends an audio URL for diarization. Quota, validation and rate-limit
// rejections are returned as a status with an empty job id, not an error; the
// caller treats a missing job id as a fatal submission failure.
func (c *Client) Submit(ctx context.Context, audioURL string, numSpeakers int) (Status, string, error) {
	body, err := json.Marshal(submitRequest{URL: audioURL, NumSpeakers: numSpeakers})
	if err != nil {
		return StatusUnknown, "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/diarize", bytes.NewReader(body))
	if err != nil {
		return StatusUnknown, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return StatusUnknown, "", fmt.Errorf("diarize submit: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return StatusUnknown, "", fmt.Errorf("read response: %w", err)
	}

	if st, rejected := rejectionStatus(resp.StatusCode); rejected {
		return st, "", nil
	}

	var sr submitResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return StatusUnknown, "", fmt.Errorf("decode response: %w", err)
	}

	return parseStatus(sr.Status), sr.JobID, nil
}

// Poll fetches the current state of a diarization job. The returned Job is
// nil for HTTP-level rejections.
func (c *Client) Poll(ctx context.Context, jobID string) (Status, *Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return StatusUnknown, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return StatusUnknown, nil, fmt.Errorf("diarize poll: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return StatusUnknown, nil, fmt.Errorf("read response: %w", err)
	}

	if st, rejected := rejectionStatus(resp.StatusCode); rejected {
		return st, nil, nil
	}

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return StatusUnknown, nil, fmt.Errorf("decode response: %w", err)
	}
	job.Raw = raw

	return parseStatus(job.Status), &job, nil
}

// rejectionStatus maps terminal-without-job HTTP codes to statuses.
func rejectionStatus(code int) (Status, bool) {
	switch code {
	case http.StatusBadRequest:
		return StatusInvalidRequest, true
	case http.StatusPaymentRequired:
		return StatusPaymentRequired, true
	case http.StatusTooManyRequests:
		return StatusTooManyRequests, true
	}
	return "", false
}

func parseStatus(s string) Status {
	switch st := Status(strings.ToLower(s)); st {
	case StatusPending, StatusCreated, StatusRunning,
		StatusSucceeded, StatusFailed, StatusCanceled:
		return st
	}
	return StatusUnknown
}
