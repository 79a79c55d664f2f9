package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/reportops/core/pkg/execution"
	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/models"
	"github.com/reportops/core/pkg/models/api"
	"github.com/reportops/core/pkg/store"
)

type fakeScheduler struct {
	scheduled map[string]bool
	ranNow    []string
	schedErr  error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[string]bool{}}
}

func (s *fakeScheduler) Schedule(job models.JobDefinition) error {
	if s.schedErr != nil {
		return s.schedErr
	}
	s.scheduled[job.ID] = true
	return nil
}

func (s *fakeScheduler) Cancel(jobID string)           { delete(s.scheduled, jobID) }
func (s *fakeScheduler) IsScheduled(jobID string) bool { return s.scheduled[jobID] }
func (s *fakeScheduler) RunNow(jobID string)           { s.ranNow = append(s.ranNow, jobID) }

type fakeResender struct{ err error }

func (r *fakeResender) ResendLastNotification(ctx context.Context, jobID string) error {
	return r.err
}

type fixture struct {
	handler   *Handler
	jobs      *store.JobStore
	sqlDir    string
	scheduler *fakeScheduler
	resender  *fakeResender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	jobStore, err := store.NewJobStore(filepath.Join(dir, "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}
	sqlDir := filepath.Join(dir, "sql")
	f := &fixture{
		jobs:      jobStore,
		sqlDir:    sqlDir,
		scheduler: newFakeScheduler(),
		resender:  &fakeResender{},
	}
	f.handler = NewHandler(jobStore, store.NewSQLSourceStore(sqlDir), f.scheduler, f.resender, logger.New("jobs-test"))
	return f
}

func (f *fixture) seed(t *testing.T, job models.JobDefinition) {
	t.Helper()
	if err := f.jobs.Save(job); err != nil {
		t.Fatal(err)
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestCreateJobPersistsSQLAndSchedules(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.handler.Collection, "/api/jobs", models.JobDefinition{
		Name:           "Daily Orders",
		CronExpression: "0 9 * * *",
		SQLContent:     "SELECT 1 AS X",
		Enabled:        true,
		TargetDatabase: "PRIMARY",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp api.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(resp.Data)
	var job models.JobDefinition
	if err := json.Unmarshal(raw, &job); err != nil {
		t.Fatal(err)
	}

	if job.ID == "" {
		t.Error("expected a generated job ID")
	}
	if job.SQLFileName != job.ID+".sql" {
		t.Errorf("sql file name = %q", job.SQLFileName)
	}
	if _, err := os.Stat(filepath.Join(f.sqlDir, job.SQLFileName)); err != nil {
		t.Errorf("SQL content not persisted: %v", err)
	}
	if !f.scheduler.IsScheduled(job.ID) {
		t.Error("enabled job with cron should be scheduled")
	}
}

func TestCreateJobValidation(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.handler.Collection, "/api/jobs", models.JobDefinition{
		Name:         "",
		EmailEnabled: true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateJobBadCronStillSaves(t *testing.T) {
	f := newFixture(t)
	f.scheduler.schedErr = context.DeadlineExceeded // any error

	rec := postJSON(t, f.handler.Collection, "/api/jobs", models.JobDefinition{
		ID:             "j1",
		Name:           "Broken schedule",
		CronExpression: "not a cron",
		Enabled:        true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even with bad cron", rec.Code)
	}
	if _, err := f.jobs.FindByID("j1"); err != nil {
		t.Error("job should be saved despite scheduling failure")
	}
	if f.scheduler.IsScheduled("j1") {
		t.Error("job with bad cron must stay unscheduled")
	}
}

func TestUpdateJobReschedules(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.JobDefinition{ID: "j1", Name: "Old", CronExpression: "0 9 * * *", Enabled: true})
	f.scheduler.scheduled["j1"] = true

	payload, _ := json.Marshal(models.JobDefinition{Name: "New", CronExpression: "0 10 * * *", Enabled: false})
	req := httptest.NewRequest(http.MethodPut, "/api/jobs/j1", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	f.handler.Item(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	job, err := f.jobs.FindByID("j1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Name != "New" {
		t.Errorf("name = %q, want New", job.Name)
	}
	// Disabled on update: entry removed.
	if f.scheduler.IsScheduled("j1") {
		t.Error("disabled job must not stay scheduled")
	}
}

func TestUpdateMissingJob(t *testing.T) {
	f := newFixture(t)

	payload, _ := json.Marshal(models.JobDefinition{Name: "X"})
	req := httptest.NewRequest(http.MethodPut, "/api/jobs/ghost", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	f.handler.Item(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteJobCancelsSchedule(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.JobDefinition{ID: "j1", Name: "Doomed"})
	f.scheduler.scheduled["j1"] = true

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/j1", nil)
	rec := httptest.NewRecorder()
	f.handler.Item(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if f.scheduler.IsScheduled("j1") {
		t.Error("delete must cancel the schedule")
	}
	if _, err := f.jobs.FindByID("j1"); err == nil {
		t.Error("job should be gone")
	}
}

func TestToggleFlipsEnabledAndSchedule(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.JobDefinition{ID: "j1", Name: "Toggler", CronExpression: "0 9 * * *", Enabled: false})

	req := httptest.NewRequest(http.MethodPatch, "/api/jobs/j1/toggle", nil)
	rec := httptest.NewRecorder()
	f.handler.Item(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	job, _ := f.jobs.FindByID("j1")
	if !job.Enabled {
		t.Error("toggle should enable the job")
	}
	if !f.scheduler.IsScheduled("j1") {
		t.Error("enabling should schedule the job")
	}

	// Toggle back.
	rec = httptest.NewRecorder()
	f.handler.Item(rec, httptest.NewRequest(http.MethodPatch, "/api/jobs/j1/toggle", nil))
	job, _ = f.jobs.FindByID("j1")
	if job.Enabled || f.scheduler.IsScheduled("j1") {
		t.Error("second toggle should disable and unschedule")
	}
}

func TestExecuteDispatchesRun(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.JobDefinition{ID: "j1", Name: "Manual"})

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/j1/execute", nil)
	rec := httptest.NewRecorder()
	f.handler.Item(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if len(f.scheduler.ranNow) != 1 || f.scheduler.ranNow[0] != "j1" {
		t.Errorf("ranNow = %v", f.scheduler.ranNow)
	}
}

func TestExecuteMissingJob(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/ghost/execute", nil)
	rec := httptest.NewRecorder()
	f.handler.Item(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(f.scheduler.ranNow) != 0 {
		t.Error("missing job must not be dispatched")
	}
}

func TestResendStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"not found", &execution.Error{Kind: execution.KindNotFound, Message: "job not found"}, http.StatusNotFound},
		{"precondition", &execution.Error{Kind: execution.KindPrecondition, Message: "no successful reports"}, http.StatusBadRequest},
		{"auth", &execution.Error{Kind: execution.KindUnavailable, Message: "rejected"}, http.StatusBadGateway},
		{"internal", &execution.Error{Kind: execution.KindInternal, Message: "boom"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.resender.err = tt.err

			req := httptest.NewRequest(http.MethodPost, "/api/jobs/j1/email", nil)
			rec := httptest.NewRecorder()
			f.handler.Item(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestScheduleStatus(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.JobDefinition{ID: "j1", Name: "Status"})
	f.scheduler.scheduled["j1"] = true

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/j1/schedule", nil)
	rec := httptest.NewRecorder()
	f.handler.Item(rec, req)

	var resp api.ScheduleStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Scheduled || resp.JobID != "j1" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestListJobs(t *testing.T) {
	f := newFixture(t)
	f.seed(t, models.JobDefinition{ID: "j1", Name: "One"})
	f.seed(t, models.JobDefinition{ID: "j2", Name: "Two"})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	f.handler.Collection(rec, req)

	var resp api.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data, ok := resp.Data.([]any)
	if !ok || len(data) != 2 {
		t.Errorf("data = %#v, want 2 jobs", resp.Data)
	}
}
