package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/reportops/core/pkg/execution"
	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/models"
	"github.com/reportops/core/pkg/models/api"
	"github.com/reportops/core/pkg/store"
)

// Scheduler is the slice of the cron scheduler the job API needs.
type Scheduler interface {
	Schedule(job models.JobDefinition) error
	Cancel(jobID string)
	IsScheduled(jobID string) bool
	RunNow(jobID string)
}

// Resender re-sends the last successful report email for a job.
type Resender interface {
	ResendLastNotification(ctx context.Context, jobID string) error
}

type Handler struct {
	jobs      *store.JobStore
	sqlSource *store.SQLSourceStore
	scheduler Scheduler
	resender  Resender
	logger    *logger.Logger
}

func NewHandler(jobs *store.JobStore, sqlSource *store.SQLSourceStore, sched Scheduler, resender Resender, log *logger.Logger) *Handler {
	return &Handler{
		jobs:      jobs,
		sqlSource: sqlSource,
		scheduler: sched,
		resender:  resender,
		logger:    log,
	}
}

// Collection handles /api/jobs
func (h *Handler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.createOrUpdate(w, r, "")
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Item handles /api/jobs/{id} and its action sub-paths (toggle, execute,
// email, schedule).
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "toggle":
		h.requireMethod(w, r, http.MethodPatch, func() { h.toggle(w, r, id) })
	case "execute":
		h.requireMethod(w, r, http.MethodPost, func() { h.execute(w, r, id) })
	case "email":
		h.requireMethod(w, r, http.MethodPost, func() { h.resend(w, r, id) })
	case "schedule":
		h.requireMethod(w, r, http.MethodGet, func() { h.scheduleStatus(w, r, id) })
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (h *Handler) requireMethod(w http.ResponseWriter, r *http.Request, method string, fn func()) {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fn()
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all := h.jobs.FindAll()
	writeJSON(w, h.logger, http.StatusOK, api.Response{
		Success: true,
		Data:    all,
		Meta:    map[string]any{"total": len(all)},
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.jobs.FindByID(id)
	if err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, api.Response{Success: true, Data: job})
}

// createOrUpdate persists a definition and refreshes its schedule. With a
// forcedID the payload's ID is overridden (PUT semantics); otherwise a blank
// ID gets a generated one.
func (h *Handler) createOrUpdate(w http.ResponseWriter, r *http.Request, forcedID string) {
	var job models.JobDefinition
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if forcedID != "" {
		job.ID = forcedID
	} else if job.ID == "" {
		job.ID = uuid.NewString()
	}

	if err := job.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Inline SQL content is persisted to the source store and referenced
	// by file name from here on.
	if strings.TrimSpace(job.SQLContent) != "" {
		fileName, err := h.sqlSource.SaveContent(job.ID, job.SQLContent)
		if err != nil {
			h.logger.WithError(err).Error().
				Str("action", "sql_save_failed").
				Str("job_id", job.ID).
				Msg("Failed to persist SQL content")
			http.Error(w, "Failed to persist SQL content", http.StatusInternalServerError)
			return
		}
		job.SQLFileName = fileName
	}

	if err := h.jobs.Save(job); err != nil {
		h.logger.WithError(err).Error().
			Str("action", "job_save_failed").
			Str("job_id", job.ID).
			Msg("Failed to save job")
		http.Error(w, "Failed to save job", http.StatusInternalServerError)
		return
	}

	h.reschedule(job)
	writeJSON(w, h.logger, http.StatusOK, api.Response{Success: true, Data: job})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.jobs.FindByID(id); err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	h.createOrUpdate(w, r, id)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, id string) {
	h.scheduler.Cancel(id)
	if err := h.jobs.DeleteByID(id); err != nil {
		h.logger.WithError(err).Error().
			Str("action", "job_delete_failed").
			Str("job_id", id).
			Msg("Failed to delete job")
		http.Error(w, "Failed to delete job", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.jobs.FindByID(id)
	if err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	job.Enabled = !job.Enabled
	if err := h.jobs.Save(*job); err != nil {
		http.Error(w, "Failed to save job", http.StatusInternalServerError)
		return
	}

	h.reschedule(*job)
	writeJSON(w, h.logger, http.StatusOK, api.Response{Success: true, Data: job})
}

// execute fires the job immediately, outside the scheduler's worker pool.
// The run is fire-and-forget; the response only acknowledges the dispatch.
func (h *Handler) execute(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.jobs.FindByID(id); err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	h.scheduler.RunNow(id)
	writeJSON(w, h.logger, http.StatusAccepted, api.Response{Success: true, Message: "Job execution started"})
}

func (h *Handler) resend(w http.ResponseWriter, r *http.Request, id string) {
	err := h.resender.ResendLastNotification(r.Context(), id)
	if err == nil {
		writeJSON(w, h.logger, http.StatusOK, api.Response{Success: true, Message: "Report email resent"})
		return
	}

	switch execution.KindOf(err) {
	case execution.KindNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case execution.KindPrecondition:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case execution.KindUnavailable:
		http.Error(w, "Email authentication failed. Please check the mail server settings.", http.StatusBadGateway)
	default:
		http.Error(w, "Failed to resend report email", http.StatusInternalServerError)
	}
}

func (h *Handler) scheduleStatus(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.jobs.FindByID(id); err != nil && errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, api.ScheduleStatusResponse{
		JobID:     id,
		Scheduled: h.scheduler.IsScheduled(id),
	})
}

// reschedule cancels any live entry and installs a fresh one when the job is
// schedulable. A bad cron expression leaves the job unscheduled; the
// definition itself is already saved.
func (h *Handler) reschedule(job models.JobDefinition) {
	h.scheduler.Cancel(job.ID)
	if !job.Schedulable() {
		return
	}
	if err := h.scheduler.Schedule(job); err != nil {
		h.logger.WithError(err).Warn().
			Str("action", "schedule_failed").
			Str("job_id", job.ID).
			Str("cron", job.CronExpression).
			Msg("Job saved but left unscheduled")
	}
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
