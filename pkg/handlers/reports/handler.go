package reports

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/models"
	"github.com/reportops/core/pkg/models/api"
	"github.com/reportops/core/pkg/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	reports *store.ReportStore
	logger  *logger.Logger
}

func NewHandler(reports *store.ReportStore, log *logger.Logger) *Handler {
	return &Handler{reports: reports, logger: log}
}

// List handles GET /api/reports with optional start_date/end_date filters
// (unix milliseconds). Records come back newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.reports.FindAll()
	if err != nil {
		h.logger.WithError(err).Error().
			Str("action", "reports_load_failed").
			Msg("Failed to load execution records")
		http.Error(w, "Failed to load reports", http.StatusInternalServerError)
		return
	}

	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		records = filter(records, func(rec models.ExecutionRecord) bool { return rec.JobID == jobID })
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		if start, err := strconv.ParseInt(v, 10, 64); err == nil {
			records = filter(records, func(rec models.ExecutionRecord) bool { return rec.GeneratedAt >= start })
		}
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		if end, err := strconv.ParseInt(v, 10, 64); err == nil {
			records = filter(records, func(rec models.ExecutionRecord) bool { return rec.GeneratedAt <= end })
		}
	}

	writeJSON(w, h.logger, http.StatusOK, api.Response{
		Success: true,
		Data:    records,
		Meta:    map[string]any{"total": len(records)},
	})
}

// Item handles /api/reports/{id} and /api/reports/{id}/download
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "Report ID is required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.get(w, id)
	case action == "" && r.Method == http.MethodDelete:
		h.delete(w, id)
	case action == "download" && r.Method == http.MethodGet:
		h.download(w, r, id)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (h *Handler) get(w http.ResponseWriter, id string) {
	record, err := h.reports.FindByID(id)
	if err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, api.Response{Success: true, Data: record})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, id string) {
	record, err := h.reports.FindByID(id)
	if err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}
	if record.FilePath == "" {
		http.Error(w, "Report has no artifact", http.StatusNotFound)
		return
	}
	if _, err := os.Stat(record.FilePath); err != nil {
		h.logger.Error().
			Str("action", "artifact_missing").
			Str("report_id", id).
			Str("path", record.FilePath).
			Msg("Report file not found on disk")
		http.Error(w, "Report file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+record.FileName+`"`)
	http.ServeFile(w, r, record.FilePath)
}

// delete removes both the artifact file and the record. A missing file is
// not an error; the record still goes.
func (h *Handler) delete(w http.ResponseWriter, id string) {
	record, err := h.reports.FindByID(id)
	if err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	if record.FilePath != "" {
		if err := os.Remove(record.FilePath); err != nil && !os.IsNotExist(err) {
			h.logger.WithError(err).Warn().
				Str("action", "artifact_delete_failed").
				Str("report_id", id).
				Msg("Could not delete report file")
		}
	}

	if err := h.reports.DeleteByID(id); err != nil {
		http.Error(w, "Failed to delete report", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func filter(records []models.ExecutionRecord, keep func(models.ExecutionRecord) bool) []models.ExecutionRecord {
	out := records[:0:0]
	for _, rec := range records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
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
