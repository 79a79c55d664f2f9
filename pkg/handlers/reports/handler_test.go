package reports

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/models"
	"github.com/reportops/core/pkg/models/api"
	"github.com/reportops/core/pkg/store"
)

func newTestHandler(t *testing.T) (*Handler, *store.ReportStore, string) {
	t.Helper()
	dir := t.TempDir()
	rs := store.NewReportStore(filepath.Join(dir, "reports.json"))
	return NewHandler(rs, logger.New("reports-test")), rs, dir
}

func seed(t *testing.T, rs *store.ReportStore, record models.ExecutionRecord) {
	t.Helper()
	if err := rs.SaveReport(record); err != nil {
		t.Fatal(err)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	h, rs, _ := newTestHandler(t)
	seed(t, rs, models.ExecutionRecord{ID: "r1", JobID: "j1", GeneratedAt: 1000, Status: models.StatusSuccess})
	seed(t, rs, models.ExecutionRecord{ID: "r2", JobID: "j2", GeneratedAt: 2000, Status: models.StatusFailed})
	seed(t, rs, models.ExecutionRecord{ID: "r3", JobID: "j1", GeneratedAt: 3000, Status: models.StatusSuccess})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/reports?start_date=1500&end_date=2500", nil))

	var resp api.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data := resp.Data.([]any)
	if len(data) != 1 {
		t.Fatalf("got %d records, want 1", len(data))
	}
	first := data[0].(map[string]any)
	if first["id"] != "r2" {
		t.Errorf("id = %v, want r2", first["id"])
	}

	// job_id filter
	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/reports?job_id=j1", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data = resp.Data.([]any)
	if len(data) != 2 {
		t.Fatalf("got %d records for j1, want 2", len(data))
	}
	// Newest first.
	if data[0].(map[string]any)["id"] != "r3" {
		t.Errorf("first record = %v, want r3", data[0].(map[string]any)["id"])
	}
}

func TestGetReport(t *testing.T) {
	h, rs, _ := newTestHandler(t)
	seed(t, rs, models.ExecutionRecord{ID: "r1", JobID: "j1", Status: models.StatusSuccess})

	rec := httptest.NewRecorder()
	h.Item(rec, httptest.NewRequest(http.MethodGet, "/api/reports/r1", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Item(rec, httptest.NewRequest(http.MethodGet, "/api/reports/ghost", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDownload(t *testing.T) {
	h, rs, dir := newTestHandler(t)
	path := filepath.Join(dir, "daily-orders_20250314_092653.xlsx")
	if err := os.WriteFile(path, []byte("spreadsheet"), 0o644); err != nil {
		t.Fatal(err)
	}
	seed(t, rs, models.ExecutionRecord{
		ID: "r1", JobID: "j1", Status: models.StatusSuccess,
		FileName: filepath.Base(path), FilePath: path,
	})

	rec := httptest.NewRecorder()
	h.Item(rec, httptest.NewRequest(http.MethodGet, "/api/reports/r1/download", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="daily-orders_20250314_092653.xlsx"` {
		t.Errorf("content disposition = %q", got)
	}
	if rec.Body.String() != "spreadsheet" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDownloadMissingFile(t *testing.T) {
	h, rs, dir := newTestHandler(t)
	seed(t, rs, models.ExecutionRecord{
		ID: "r1", JobID: "j1", Status: models.StatusSuccess,
		FileName: "gone.xlsx", FilePath: filepath.Join(dir, "gone.xlsx"),
	})

	rec := httptest.NewRecorder()
	h.Item(rec, httptest.NewRequest(http.MethodGet, "/api/reports/r1/download", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteRemovesFileAndRecord(t *testing.T) {
	h, rs, dir := newTestHandler(t)
	path := filepath.Join(dir, "report.xlsx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	seed(t, rs, models.ExecutionRecord{ID: "r1", JobID: "j1", Status: models.StatusSuccess, FilePath: path})

	rec := httptest.NewRecorder()
	h.Item(rec, httptest.NewRequest(http.MethodDelete, "/api/reports/r1", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact file should be deleted")
	}
	if _, err := rs.FindByID("r1"); err == nil {
		t.Error("record should be deleted")
	}
}
