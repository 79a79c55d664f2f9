package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/reportops/core/pkg/models"
)

func newTestReportStore(t *testing.T) *ReportStore {
	t.Helper()
	return NewReportStore(filepath.Join(t.TempDir(), "reports.json"))
}

func TestReportStore_SaveReportIsUpsert(t *testing.T) {
	s := newTestReportStore(t)

	record := models.ExecutionRecord{ID: "r1", JobID: "j1", Status: models.StatusSuccess}
	if err := s.SaveReport(record); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	record.Note = "Report generated, but email delivery failed."
	if err := s.SaveReport(record); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	all, err := s.FindAll()
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record after upsert, got %d", len(all))
	}
	if all[0].Note == "" {
		t.Error("expected updated note on upserted record")
	}
}

func TestReportStore_FindByJobIDSortsNewestFirst(t *testing.T) {
	s := newTestReportStore(t)

	records := []models.ExecutionRecord{
		{ID: "r1", JobID: "j1", GeneratedAt: 100, Status: models.StatusSuccess},
		{ID: "r2", JobID: "j1", GeneratedAt: 300, Status: models.StatusFailed},
		{ID: "r3", JobID: "j2", GeneratedAt: 200, Status: models.StatusSuccess},
		{ID: "r4", JobID: "j1", GeneratedAt: 200, Status: models.StatusSuccess},
	}
	for _, r := range records {
		if err := s.SaveReport(r); err != nil {
			t.Fatalf("SaveReport() error = %v", err)
		}
	}

	got, err := s.FindByJobID("j1")
	if err != nil {
		t.Fatalf("FindByJobID() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records for j1, got %d", len(got))
	}
	wantOrder := []string{"r2", "r4", "r1"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("position %d: got %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestReportStore_ConcurrentSaves(t *testing.T) {
	s := newTestReportStore(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := models.ExecutionRecord{
				ID:     fmt.Sprintf("r%d", i),
				JobID:  "j1",
				Status: models.StatusSuccess,
			}
			if err := s.SaveReport(record); err != nil {
				t.Errorf("SaveReport() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	all, err := s.FindAll()
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != n {
		t.Errorf("expected %d records after concurrent saves, got %d", n, len(all))
	}
}

func TestReportStore_DeleteByID(t *testing.T) {
	s := newTestReportStore(t)

	if err := s.SaveReport(models.ExecutionRecord{ID: "r1", JobID: "j1"}); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if err := s.DeleteByID("r1"); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}
	if _, err := s.FindByID("r1"); err != ErrNotFound {
		t.Errorf("FindByID() after delete error = %v, want ErrNotFound", err)
	}
}
