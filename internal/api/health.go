package api

import (
	"net/http"
	"time"

	"github.com/snarg/callscribe/internal/database"
	"github.com/snarg/callscribe/internal/events"
	"github.com/snarg/callscribe/internal/task"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
	Queue         *task.QueueStats  `json:"queue,omitempty"`
}

type HealthHandler struct {
	db        *database.DB
	events    *events.Publisher
	runner    *task.Runner
	version   string
	startTime time.Time
}

func NewHealthHandler(db *database.DB, ev *events.Publisher, runner *task.Runner, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		events:    ev,
		runner:    runner,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.HealthCheck(r.Context()); err != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.events != nil {
		if h.events.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}
	if h.runner != nil {
		stats := h.runner.Stats()
		resp.Queue = &stats
	}

	WriteJSON(w, httpStatus, resp)
}
