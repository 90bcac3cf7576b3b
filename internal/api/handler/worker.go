package handler

import (
	"net/http"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/api/response"
	"github.com/pulsewatch/pulsewatch/internal/scheduler"
	"github.com/pulsewatch/pulsewatch/internal/worker"
)

// WorkerHandler exposes the execution worker over the API. Status is read
// from the realtime bus mirror when a separate worker process publishes it,
// falling back to the in-process tracker.
type WorkerHandler struct {
	feed    *worker.StatusFeed
	tracker *worker.StatusTracker
	runner  *scheduler.Runner
}

// NewWorkerHandler creates a new WorkerHandler. feed and runner may be nil
// when the deployment runs without the corresponding component.
func NewWorkerHandler(feed *worker.StatusFeed, tracker *worker.StatusTracker, runner *scheduler.Runner) *WorkerHandler {
	return &WorkerHandler{feed: feed, tracker: tracker, runner: runner}
}

type workerStatusPayload struct {
	worker.Status

	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Status handles GET /api/v1/worker/status.
func (h *WorkerHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.feed != nil {
		if status, at, ok := h.feed.Latest(); ok {
			response.Success(w, r, workerStatusPayload{Status: status, UpdatedAt: &at})
			return
		}
	}
	if h.tracker != nil {
		response.Success(w, r, workerStatusPayload{Status: h.tracker.Snapshot()})
		return
	}
	response.Success(w, r, workerStatusPayload{})
}

// Trigger handles POST /api/v1/worker/trigger. Runs a scheduling pass
// immediately instead of waiting for the next tick.
func (h *WorkerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		response.Failure(w, r, http.StatusServiceUnavailable, "scheduler is not running in this process")
		return
	}
	h.runner.TickNow(r.Context())
	response.Success(w, r, map[string]string{"triggered": time.Now().UTC().Format(time.RFC3339)})
}
