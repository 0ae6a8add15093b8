// Package task runs queued calls through the transcription pipeline with a
// bounded worker pool.
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/callscribe/internal/database"
	"github.com/snarg/callscribe/internal/events"
	"github.com/snarg/callscribe/internal/metrics"
	"github.com/snarg/callscribe/internal/pipeline"
	"github.com/snarg/callscribe/internal/storage"
)

// Job represents a queued call waiting for the pipeline.
type Job struct {
	CallID      int64
	AudioKey    string
	Language    string
	NumSpeakers int
}

// QueueStats reports the current state of the task queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Options configures the task runner.
type Options struct {
	DB         *database.DB
	Store      storage.AudioStore
	Pipeline   *pipeline.Orchestrator
	Events     *events.Publisher
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	Log        zerolog.Logger
}

// Runner manages pipeline workers.
type Runner struct {
	jobs   chan Job
	db     *database.DB
	store  storage.AudioStore
	pipe   *pipeline.Orchestrator
	events *events.Publisher
	opts   Options
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	completed atomic.Int64
	failed    atomic.Int64
}

// NewRunner creates a task runner.
func NewRunner(opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 64
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		jobs:   make(chan Job, opts.QueueSize),
		db:     opts.DB,
		store:  opts.Store,
		pipe:   opts.Pipeline,
		events: opts.Events,
		opts:   opts,
		log:    opts.Log.With().Str("component", "task").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (r *Runner) Start() {
	for i := 0; i < r.opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.log.Info().Int("workers", r.opts.Workers).Int("queue_size", r.opts.QueueSize).Msg("task runner started")
}

// Stop signals workers to drain and waits for completion.
func (r *Runner) Stop() {
	close(r.jobs)
	r.wg.Wait()
	r.cancel()
	r.log.Info().
		Int64("completed", r.completed.Load()).
		Int64("failed", r.failed.Load()).
		Msg("task runner stopped")
}

// Enqueue adds a job to the queue. Returns false if the queue is full.
func (r *Runner) Enqueue(j Job) bool {
	select {
	case r.jobs <- j:
		metrics.QueueDepth.Set(float64(len(r.jobs)))
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (r *Runner) Stats() QueueStats {
	return QueueStats{
		Pending:   len(r.jobs),
		Completed: r.completed.Load(),
		Failed:    r.failed.Load(),
	}
}

// Recover requeues calls left RUNNING by a previous crash and re-enqueues
// everything still QUEUED. Called once on startup, before Start.
func (r *Runner) Recover(ctx context.Context) error {
	n, err := r.db.RequeueStuckCalls(ctx)
	if err != nil {
		return fmt.Errorf("requeue stuck calls: %w", err)
	}
	if n > 0 {
		r.log.Info().Int64("calls", n).Msg("requeued calls interrupted by restart")
	}

	queued, err := r.db.ListQueuedCalls(ctx, r.opts.QueueSize)
	if err != nil {
		return fmt.Errorf("list queued calls: %w", err)
	}
	for _, c := range queued {
		if !r.Enqueue(Job{CallID: c.ID, AudioKey: c.AudioKey, Language: c.Language, NumSpeakers: c.NumSpeakers}) {
			r.log.Warn().Int64("call_id", c.ID).Msg("queue full during recovery, call stays QUEUED")
			break
		}
	}
	return nil
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()
	log := r.log.With().Int("worker", id).Logger()

	for job := range r.jobs {
		metrics.QueueDepth.Set(float64(len(r.jobs)))
		if err := r.processJob(log, job); err != nil {
			r.failed.Add(1)
			metrics.CallsProcessedTotal.WithLabelValues("fail").Inc()
			log.Warn().Err(err).Int64("call_id", job.CallID).Msg("call processing failed")
		} else {
			r.completed.Add(1)
			metrics.CallsProcessedTotal.WithLabelValues("success").Inc()
		}
	}
}

func (r *Runner) processJob(log zerolog.Logger, job Job) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.ctx, r.opts.JobTimeout)
	defer cancel()

	if err := r.db.UpdateCallStatus(ctx, job.CallID, database.CallStatusRunning, ""); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	r.events.PublishProgress(job.CallID, database.CallStatusRunning, "")

	audioURL, err := r.store.URL(ctx, job.AudioKey)
	if err != nil {
		return r.failCall(ctx, job.CallID, fmt.Errorf("audio URL: %w", err))
	}
	if audioURL == "" {
		return r.failCall(ctx, job.CallID,
			errors.New("no audio URL available; configure PUBLIC_BASE_URL or S3"))
	}

	audioPath, cleanup, err := r.localAudio(ctx, job.AudioKey)
	if err != nil {
		return r.failCall(ctx, job.CallID, fmt.Errorf("fetch audio: %w", err))
	}
	defer cleanup()

	progress := func(st pipeline.State, detail string) {
		r.events.PublishProgress(job.CallID, string(st), detail)
	}

	res, err := r.pipe.Run(ctx, pipeline.Input{
		CallID:      job.CallID,
		AudioPath:   audioPath,
		AudioURL:    audioURL,
		Language:    job.Language,
		NumSpeakers: job.NumSpeakers,
	}, progress)
	if err != nil {
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			metrics.PipelineStageFailuresTotal.WithLabelValues(string(perr.Stage)).Inc()
		}
		return r.failCall(ctx, job.CallID, err)
	}

	segments, err := json.Marshal(res.Segments)
	if err != nil {
		return r.failCall(ctx, job.CallID, fmt.Errorf("marshal segments: %w", err))
	}

	durationMs := int(res.DurationSec * 1000)
	row := &database.TranscriptRow{
		CallID:         job.CallID,
		Segments:       segments,
		FullText:       res.FullText,
		Mode:           res.Mode,
		SegmentCount:   len(res.Segments),
		FailedSegments: res.FailedSegments,
		DurationMs:     durationMs,
		Analysis:       res.Analysis,
	}
	if _, err := r.db.InsertTranscript(ctx, row); err != nil {
		return r.failCall(ctx, job.CallID, fmt.Errorf("store transcript: %w", err))
	}
	if err := r.db.SetCallDuration(ctx, job.CallID, durationMs); err != nil {
		log.Warn().Err(err).Int64("call_id", job.CallID).Msg("failed to record call duration")
	}
	if err := r.db.UpdateCallStatus(ctx, job.CallID, database.CallStatusSuccess, ""); err != nil {
		return fmt.Errorf("mark success: %w", err)
	}

	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	metrics.SegmentTranscriptionsFailedTotal.Add(float64(res.FailedSegments))
	r.events.PublishProgress(job.CallID, database.CallStatusSuccess, "")

	log.Debug().
		Int64("call_id", job.CallID).
		Str("mode", res.Mode).
		Int("segments", len(res.Segments)).
		Int("failed_segments", res.FailedSegments).
		Dur("elapsed", time.Since(start)).
		Msg("call processed")

	return nil
}

// failCall records a FAIL status with the failure reason and returns the
// original error so the worker counts it.
func (r *Runner) failCall(ctx context.Context, callID int64, cause error) error {
	detail := cause.Error()
	if err := r.db.UpdateCallStatus(ctx, callID, database.CallStatusFail, detail); err != nil {
		r.log.Error().Err(err).Int64("call_id", callID).Msg("failed to mark call FAIL")
	}
	r.events.PublishProgress(callID, database.CallStatusFail, detail)
	return cause
}

// localAudio returns a local filesystem path for the audio key. When the
// store is remote the object is downloaded to a temp file that cleanup
// removes.
func (r *Runner) localAudio(ctx context.Context, key string) (string, func(), error) {
	if path := r.store.LocalPath(key); path != "" {
		return path, func() {}, nil
	}

	rc, err := r.store.Open(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "callscribe-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	path := tmp.Name()
	return path, func() { os.Remove(path) }, nil
}
