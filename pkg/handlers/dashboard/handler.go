package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/metrics"
	"github.com/reportops/core/pkg/models"
	"github.com/reportops/core/pkg/models/api"
	"github.com/reportops/core/pkg/store"
)

type Handler struct {
	metrics   *store.MetricStore
	collector *metrics.Collector
	runner    metrics.ValueRunner
	logger    *logger.Logger
}

func NewHandler(ms *store.MetricStore, collector *metrics.Collector, runner metrics.ValueRunner, log *logger.Logger) *Handler {
	return &Handler{metrics: ms, collector: collector, runner: runner, logger: log}
}

// Metrics handles /api/dashboard/metrics
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		configs := h.metrics.FindAll()
		writeJSON(w, h.logger, http.StatusOK, api.Response{
			Success: true,
			Data:    configs,
			Meta:    map[string]any{"total": len(configs)},
		})
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var cfg models.MetricConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(cfg.SQLQuery) == "" {
		http.Error(w, "SQL query is required", http.StatusBadRequest)
		return
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	if err := h.metrics.Save(cfg); err != nil {
		h.logger.WithError(err).Error().
			Str("action", "metric_save_failed").
			Str("metric_id", cfg.ID).
			Msg("Failed to save metric")
		http.Error(w, "Failed to save metric", http.StatusInternalServerError)
		return
	}

	// Seed the history so the dashboard shows a point right away.
	go h.collector.CollectOne(context.Background(), cfg.ID)

	writeJSON(w, h.logger, http.StatusCreated, api.Response{Success: true, Data: cfg})
}

// MetricItem handles DELETE /api/dashboard/metrics/{id}
func (h *Handler) MetricItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/dashboard/metrics/")
	if id == "" {
		http.Error(w, "Metric ID is required", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.metrics.DeleteByID(id); err != nil {
		http.Error(w, "Failed to delete metric", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/dashboard/history/{id}
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/dashboard/history/")
	if id == "" {
		http.Error(w, "Metric ID is required", http.StatusBadRequest)
		return
	}

	samples, err := h.metrics.History(id)
	if err != nil {
		http.Error(w, "Failed to load metric history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, api.Response{
		Success: true,
		Data:    samples,
		Meta:    map[string]any{"total": len(samples)},
	})
}

// Data handles GET /api/dashboard/data/{id}: sample the metric live instead
// of reading history.
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/dashboard/data/")
	cfg, err := h.metrics.FindByID(id)
	if err != nil {
		http.Error(w, "Metric not found", http.StatusNotFound)
		return
	}

	value, err := h.runner.QueryValue(r.Context(), models.TargetPrimary, cfg.SQLQuery)
	if err != nil {
		h.logger.WithError(err).Error().
			Str("action", "metric_query_failed").
			Str("metric_id", id).
			Msg("Live metric query failed")
		http.Error(w, "Metric query failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.Response{
		Success: true,
		Data:    map[string]any{"metric_id": id, "value": value},
	})
}

func writeJSON(w http.ResponseWriter, log *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error().
			Str("action", "encode_failed").
			Msg("Failed to encode response")
	}
}
