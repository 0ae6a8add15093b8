package transcribe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Fanout transcribes a batch of audio segments concurrently with bounded
// parallelism.
type Fanout struct {
	tr      SegmentTranscriber
	workers int
	log     zerolog.Logger
}

// NewFanout creates a fanout over the given transcriber. workers bounds the
// number of in-flight STT calls; values < 1 fall back to 1.
func NewFanout(tr SegmentTranscriber, workers int, log zerolog.Logger) *Fanout {
	if workers < 1 {
		workers = 1
	}
	return &Fanout{tr: tr, workers: workers, log: log}
}

// TranscribeAll transcribes every segment and returns the texts in input
// order regardless of completion order, plus the number of failed segments.
// A per-segment failure records empty text for that slot; it never aborts
// the batch. Each worker writes only to its own result index, so no locking
// is needed beyond the WaitGroup.
func (f *Fanout) TranscribeAll(ctx context.Context, segments [][]byte) ([]string, int) {
	results := make([]string, len(segments))
	if len(segments) == 0 {
		return results, 0
	}

	sem := make(chan struct{}, f.workers)
	var wg sync.WaitGroup
	var failed atomic.Int64

	for i, seg := range segments {
		wg.Add(1)
		go func(idx int, data []byte) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			text, err := f.tr.TranscribeSegment(ctx, data, fmt.Sprintf("segment_%d", idx))
			if err != nil {
				failed.Add(1)
				f.log.Warn().Err(err).Int("segment", idx).Msg("segment transcription failed")
				return
			}
			results[idx] = text
		}(i, seg)
	}
	wg.Wait()

	if n := failed.Load(); n > 0 {
		f.log.Warn().Int64("failed", n).Int("total", len(segments)).Msg("batch completed with failed segments")
	}
	return results, int(failed.Load())
}
