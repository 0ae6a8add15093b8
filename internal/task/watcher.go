package task

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/callscribe/internal/database"
	"github.com/snarg/callscribe/internal/storage"
)

// processedDir is where ingested files are moved so a restart does not
// re-ingest them.
const processedDir = "processed"

var audioExts = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// Watcher monitors a drop directory for new audio files and enqueues them as
// calls. This provides an alternative to HTTP upload for bulk ingestion from
// a PBX recording export.
type Watcher struct {
	runner   *Runner
	db       *database.DB
	store    storage.AudioStore
	watchDir string
	language string
	speakers int
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	filesIngested atomic.Int64
	filesSkipped  atomic.Int64
}

// NewWatcher creates a drop-directory watcher. language and speakers are the
// defaults applied to every ingested file.
func NewWatcher(runner *Runner, db *database.DB, store storage.AudioStore, watchDir, language string, speakers int, log zerolog.Logger) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		runner:         runner,
		db:             db,
		store:          store,
		watchDir:       watchDir,
		language:       language,
		speakers:       speakers,
		log:            log.With().Str("component", "watcher").Logger(),
		ctx:            ctx,
		cancel:         cancel,
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Start begins watching. Files already present in the directory are ingested
// first, oldest by name.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(filepath.Join(w.watchDir, processedDir), 0o755); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw

	if err := fw.Add(w.watchDir); err != nil {
		fw.Close()
		return err
	}

	w.log.Info().Str("watch_dir", w.watchDir).Msg("drop-directory watcher started")
	go w.watchLoop()
	go w.sweepExisting()
	return nil
}

// Stop closes the watcher.
func (w *Watcher) Stop() {
	w.cancel()
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().
		Int64("files_ingested", w.filesIngested.Load()).
		Int64("files_skipped", w.filesSkipped.Load()).
		Msg("watcher stopped")
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, ok := audioExts[strings.ToLower(filepath.Ext(event.Name))]; !ok {
				continue
			}
			w.scheduleIngest(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleIngest debounces by 500ms so the file is fully written before
// reading.
func (w *Watcher) scheduleIngest(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(500 * time.Millisecond)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.ingestFile(path)
	})
}

// sweepExisting ingests files left in the drop directory across restarts.
func (w *Watcher) sweepExisting() {
	entries, err := os.ReadDir(w.watchDir)
	if err != nil {
		w.log.Warn().Err(err).Msg("failed to scan watch directory")
		return
	}
	for _, e := range entries {
		if w.ctx.Err() != nil {
			return
		}
		if e.IsDir() {
			continue
		}
		if _, ok := audioExts[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		w.ingestFile(filepath.Join(w.watchDir, e.Name()))
	}
}

func (w *Watcher) ingestFile(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := audioExts[ext]
	if !ok {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to read dropped file")
		w.filesSkipped.Add(1)
		return
	}
	if len(data) == 0 {
		w.filesSkipped.Add(1)
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, 60*time.Second)
	defer cancel()

	key := "calls/" + uuid.NewString() + ext
	if err := w.store.Save(ctx, key, data, contentType); err != nil {
		w.log.Error().Err(err).Str("path", path).Msg("failed to store dropped file")
		return
	}

	callID, err := w.db.InsertCall(ctx, &database.CallRow{
		AudioKey:    key,
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Language:    w.language,
		NumSpeakers: w.speakers,
	})
	if err != nil {
		w.log.Error().Err(err).Str("path", path).Msg("failed to insert call for dropped file")
		return
	}

	if !w.runner.Enqueue(Job{CallID: callID, AudioKey: key, Language: w.language, NumSpeakers: w.speakers}) {
		w.log.Warn().Int64("call_id", callID).Msg("queue full, call stays QUEUED for recovery")
	}

	// Move out of the drop directory so it is not ingested twice.
	dest := filepath.Join(w.watchDir, processedDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to move ingested file")
	}

	w.filesIngested.Add(1)
	w.log.Info().Int64("call_id", callID).Str("file", filepath.Base(path)).Msg("dropped file ingested")
}
