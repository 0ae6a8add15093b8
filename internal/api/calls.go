package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/callscribe/internal/audio"
	"github.com/snarg/callscribe/internal/database"
	"github.com/snarg/callscribe/internal/storage"
	"github.com/snarg/callscribe/internal/task"
)

// maxUploadBytes caps call recording uploads at 100MB.
const maxUploadBytes = 100 << 20

var contentTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// CallsHandler handles call upload and retrieval.
type CallsHandler struct {
	db              *database.DB
	store           storage.AudioStore
	runner          *task.Runner
	defaultLanguage string
	defaultSpeakers int
	log             zerolog.Logger
}

// NewCallsHandler creates a calls handler. language and speakers are applied
// to uploads that don't specify their own.
func NewCallsHandler(db *database.DB, store storage.AudioStore, runner *task.Runner, language string, speakers int, log zerolog.Logger) *CallsHandler {
	return &CallsHandler{
		db:              db,
		store:           store,
		runner:          runner,
		defaultLanguage: language,
		defaultSpeakers: speakers,
		log:             log.With().Str("handler", "calls").Logger(),
	}
}

// Routes registers the call endpoints.
func (h *CallsHandler) Routes(r chi.Router) {
	r.Post("/calls", h.Create)
	r.Get("/calls", h.List)
	r.Get("/calls/{id}", h.Get)
	r.Get("/calls/{id}/transcript", h.GetTranscript)
	r.Get("/queue", h.QueueStats)
}

// Create handles POST /api/v1/calls. Accepts a multipart form with an
// "audio" file plus optional "language" and "num_speakers" fields. The call
// is stored, queued, and returned with status QUEUED; processing happens
// asynchronously.
func (h *CallsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing audio file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "empty audio file")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := contentTypes[ext]; !ok {
		// No usable extension, sniff the container format
		if kind := audio.Identify(bytes.NewReader(data)); kind != "" {
			ext = "." + kind
		} else {
			ext = ".wav"
		}
	}
	contentType := contentTypes[ext]
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	language := r.FormValue("language")
	if language == "" {
		language = h.defaultLanguage
	}
	speakers := h.defaultSpeakers
	if v := r.FormValue("num_speakers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "invalid num_speakers")
			return
		}
		speakers = n
	}

	key := "calls/" + uuid.NewString() + ext
	if err := h.store.Save(r.Context(), key, data, contentType); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("audio store failed")
		WriteError(w, http.StatusInternalServerError, "failed to store audio")
		return
	}

	callID, err := h.db.InsertCall(r.Context(), &database.CallRow{
		AudioKey:    key,
		Filename:    header.Filename,
		ContentType: contentType,
		Language:    language,
		NumSpeakers: speakers,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("call insert failed")
		WriteError(w, http.StatusInternalServerError, "failed to create call")
		return
	}

	if !h.runner.Enqueue(task.Job{CallID: callID, AudioKey: key, Language: language, NumSpeakers: speakers}) {
		// Call stays QUEUED in the DB; startup recovery will pick it up
		h.log.Warn().Int64("call_id", callID).Msg("queue full, call deferred")
	}

	call, err := h.db.GetCall(r.Context(), callID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load call")
		return
	}
	WriteJSON(w, http.StatusAccepted, call)
}

// Get handles GET /api/v1/calls/{id}.
func (h *CallsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PathInt64(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid call id")
		return
	}

	call, err := h.db.GetCall(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "call not found")
			return
		}
		h.log.Error().Err(err).Int64("call_id", id).Msg("call lookup failed")
		WriteError(w, http.StatusInternalServerError, "failed to load call")
		return
	}
	WriteJSON(w, http.StatusOK, call)
}

// List handles GET /api/v1/calls with optional ?status= filter.
func (h *CallsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	calls, err := h.db.ListCalls(r.Context(), r.URL.Query().Get("status"), p.Limit, p.Offset)
	if err != nil {
		h.log.Error().Err(err).Msg("call list failed")
		WriteError(w, http.StatusInternalServerError, "failed to list calls")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"calls": calls, "count": len(calls)})
}

// GetTranscript handles GET /api/v1/calls/{id}/transcript.
func (h *CallsHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id, err := PathInt64(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid call id")
		return
	}

	t, err := h.db.GetTranscriptByCall(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "transcript not found")
			return
		}
		h.log.Error().Err(err).Int64("call_id", id).Msg("transcript lookup failed")
		WriteError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

// QueueStats handles GET /api/v1/queue.
func (h *CallsHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.runner.Stats())
}
