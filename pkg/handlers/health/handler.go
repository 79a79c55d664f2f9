package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/models/api"
)

// SchedulerStatus exposes the scheduler's live entry count.
type SchedulerStatus interface {
	ScheduledCount() int
}

// Handler handles health check requests
type Handler struct {
	scheduler SchedulerStatus
	logger    *logger.Logger
}

func NewHandler(scheduler SchedulerStatus, log *logger.Logger) *Handler {
	return &Handler{scheduler: scheduler, logger: log}
}

// HealthCheck handles the /health endpoint
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	response := api.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Scheduled: h.scheduler.ScheduledCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error().
			Err(err).
			Str("action", "health_check_failed").
			Str("endpoint", "/health").
			Msg("Failed to encode health response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	h.logger.Debug().
		Str("action", "health_check").
		Str("endpoint", "/health").
		Str("method", r.Method).
		Str("remote_addr", r.RemoteAddr).
		Dur("duration", time.Since(start)).
		Msg("Health check completed")
}
