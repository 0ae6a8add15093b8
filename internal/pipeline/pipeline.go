package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/callscribe/internal/audio"
	"github.com/snarg/callscribe/internal/diarize"
	"github.com/snarg/callscribe/internal/metrics"
	"github.com/snarg/callscribe/internal/transcribe"
	"github.com/snarg/callscribe/internal/transcript"
)

// Diarizer submits recordings for diarization and polls job status.
// Satisfied by *diarize.Client; tests substitute fakes.
type Diarizer interface {
	Submit(ctx context.Context, audioURL string, numSpeakers int) (diarize.Status, string, error)
	Poll(ctx context.Context, jobID string) (diarize.Status, *diarize.Job, error)
}

// FullTranscriber transcribes a whole recording with timestamps.
// Satisfied by *transcribe.FullClient.
type FullTranscriber interface {
	TranscribeFull(ctx context.Context, wavData []byte, language string) (*transcribe.FullResult, error)
}

// Analyzer is the external analysis collaborator the final transcript is
// handed to.
type Analyzer interface {
	AnalyzeConversation(ctx context.Context, segments []transcript.Labeled) (json.RawMessage, error)
}

// Options configures an Orchestrator. Full is optional: when set, the
// pipeline transcribes the entire recording once and aligns tokens onto
// diarization windows instead of cutting and fanning out segments.
type Options struct {
	Diarizer     Diarizer
	Fanout       *transcribe.Fanout
	Full         FullTranscriber
	Analyzer     Analyzer
	NumSpeakers  int
	PollInterval time.Duration
	PollTimeout  time.Duration
	Log          zerolog.Logger

	// OnJobCreated is called once per run with the provider job id, before
	// polling starts. Optional.
	OnJobCreated func(callID int64, jobID string)
}

// Orchestrator drives one recording through
// submit → poll → segment → transcribe → align.
type Orchestrator struct {
	opts Options
}

// Input identifies the recording to process. AudioURL must be fetchable by
// the diarization provider; AudioPath is the same audio on local disk.
// NumSpeakers overrides the configured default when positive.
type Input struct {
	CallID      int64
	AudioPath   string
	AudioURL    string
	Language    string
	NumSpeakers int
}

// Result is the finished pipeline output: the speaker-labeled transcript
// plus whatever the analysis collaborator returned.
type Result struct {
	Segments       []transcript.Labeled
	FullText       string
	FailedSegments int
	Mode           string // "segment" or "full"
	DurationSec    float64
	Analysis       json.RawMessage
}

// New creates an orchestrator. PollInterval defaults to 1s when unset.
func New(opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Orchestrator{opts: opts}
}

// Run executes the full pipeline for one recording. Any stage failure stops
// the run and is returned as a *Error; no stage is retried.
func (o *Orchestrator) Run(ctx context.Context, in Input, progress ProgressFunc) (*Result, error) {
	log := o.opts.Log.With().Int64("call_id", in.CallID).Logger()
	report := func(st State, detail string) {
		log.Debug().Str("state", string(st)).Msg(detail)
		if progress != nil {
			progress(st, detail)
		}
	}

	// Submit
	report(StateSubmitting, "submitting audio for diarization")
	speakers := o.opts.NumSpeakers
	if in.NumSpeakers > 0 {
		speakers = in.NumSpeakers
	}
	status, jobID, err := o.opts.Diarizer.Submit(ctx, in.AudioURL, speakers)
	if err != nil {
		return nil, fail(StateSubmitting, "diarization submit failed", err)
	}
	if jobID == "" {
		return nil, fail(StateSubmitting, fmt.Sprintf("diarization submit rejected with status %q", status), nil)
	}
	log.Debug().Str("job_id", jobID).Msg("diarization job created")
	if o.opts.OnJobCreated != nil {
		o.opts.OnJobCreated(in.CallID, jobID)
	}

	// Poll until terminal
	report(StatePolling, "audio submitted, waiting for diarization")
	job, err := o.awaitDiarization(ctx, jobID)
	if err != nil {
		return nil, err
	}
	segs, err := job.Segments()
	if err != nil {
		return nil, fail(StatePolling, "diarization payload incomplete", err)
	}
	log.Debug().Int("segments", len(segs)).Msg("diarization complete")

	// Plan windows and decode audio
	report(StateSegmenting, "planning speaker segments")
	windows := transcript.Merge(toWindows(segs))
	pcm, err := audio.Decode(ctx, in.AudioPath)
	if err != nil {
		return nil, fail(StateSegmenting, "audio decode failed", err)
	}

	// Transcribe
	res := &Result{DurationSec: pcm.Duration()}
	var labeled []transcript.Labeled
	if o.opts.Full != nil {
		report(StateTranscribing, "transcribing full audio")
		full, err := o.opts.Full.TranscribeFull(ctx, audio.EncodeWAV(pcm.Data, pcm.Rate), in.Language)
		if err != nil {
			return nil, fail(StateTranscribing, "full-audio transcription failed", err)
		}
		res.Mode = "full"
		res.FullText = full.Text

		report(StateAligning, "aligning transcript with speakers")
		labeled = transcript.Align(windows, full.Tokens, full.Text, pcm.Duration())
	} else {
		report(StateTranscribing, "transcribing speaker segments")
		buffers := audio.Extract(pcm, windows)
		texts, failed := o.opts.Fanout.TranscribeAll(ctx, buffers)
		res.Mode = "segment"
		res.FailedSegments = failed

		report(StateAligning, "aligning transcript with speakers")
		labeled = zip(windows, texts)
		if len(labeled) == 0 {
			labeled = transcript.Align(nil, nil, "", pcm.Duration())
		}
		labeled = transcript.MergeLabeled(labeled)
		res.FullText = joinTexts(labeled)
	}
	res.Segments = labeled

	// Hand off to the analysis collaborator
	if o.opts.Analyzer != nil {
		report(StateAligning, "generating analysis")
		analysis, err := o.opts.Analyzer.AnalyzeConversation(ctx, labeled)
		if err != nil {
			return nil, fail(StateAligning, "conversation analysis failed", err)
		}
		res.Analysis = analysis
	}

	report(StateDone, "transcript ready")
	return res, nil
}

// awaitDiarization polls at a fixed interval until the job reaches a
// terminal status or the poll ceiling expires. A stuck remote job therefore
// cannot hang a worker indefinitely.
func (o *Orchestrator) awaitDiarization(ctx context.Context, jobID string) (*diarize.Job, error) {
	pollCtx := ctx
	if o.opts.PollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, o.opts.PollTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		metrics.DiarizePollsTotal.Inc()
		status, job, err := o.opts.Diarizer.Poll(pollCtx, jobID)
		if err != nil {
			return nil, fail(StatePolling, "diarization poll failed", err)
		}
		if !status.InProgress() {
			if status != diarize.StatusSucceeded {
				reason := fmt.Sprintf("diarization ended with status %q", status)
				if job != nil && len(job.Raw) > 0 {
					reason += ": " + string(job.Raw)
				}
				return nil, fail(StatePolling, reason, nil)
			}
			return job, nil
		}

		select {
		case <-pollCtx.Done():
			return nil, fail(StatePolling, "diarization poll timed out", pollCtx.Err())
		case <-ticker.C:
		}
	}
}

func toWindows(segs []diarize.Segment) []transcript.Segment {
	out := make([]transcript.Segment, len(segs))
	for i, s := range segs {
		out[i] = transcript.Segment{Speaker: s.Speaker, Start: s.Start, End: s.End}
	}
	return out
}

func zip(windows []transcript.Segment, texts []string) []transcript.Labeled {
	out := make([]transcript.Labeled, len(windows))
	for i, w := range windows {
		text := ""
		if i < len(texts) {
			text = texts[i]
		}
		out[i] = transcript.Labeled{Speaker: w.Speaker, Start: w.Start, End: w.End, Text: text}
	}
	return out
}

func joinTexts(segs []transcript.Labeled) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}
