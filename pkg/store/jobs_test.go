package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/reportops/core/pkg/models"
)

func newTestJobStore(t *testing.T) *JobStore {
	t.Helper()
	s, err := NewJobStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatalf("NewJobStore() error = %v", err)
	}
	return s
}

func TestJobStore_SaveIsUpsert(t *testing.T) {
	s := newTestJobStore(t)

	job := models.JobDefinition{ID: "j1", Name: "Daily Orders", Enabled: true}
	if err := s.Save(job); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	job.Name = "Daily Orders v2"
	if err := s.Save(job); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	all := s.FindAll()
	if len(all) != 1 {
		t.Fatalf("expected 1 job after upsert, got %d", len(all))
	}
	if all[0].Name != "Daily Orders v2" {
		t.Errorf("expected updated name, got %q", all[0].Name)
	}
}

func TestJobStore_SaveDropsSQLContent(t *testing.T) {
	s := newTestJobStore(t)

	job := models.JobDefinition{ID: "j1", Name: "Daily Orders", SQLContent: "SELECT 1"}
	if err := s.Save(job); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.FindByID("j1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.SQLContent != "" {
		t.Errorf("SQL content should not be persisted on the job, got %q", got.SQLContent)
	}
}

func TestJobStore_FindByID(t *testing.T) {
	s := newTestJobStore(t)

	if _, err := s.FindByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Save(models.JobDefinition{ID: "j1", Name: "n"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.FindByID("j1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.ID != "j1" {
		t.Errorf("got id %q, want j1", got.ID)
	}
}

func TestJobStore_DeleteByID(t *testing.T) {
	s := newTestJobStore(t)

	if err := s.Save(models.JobDefinition{ID: "j1", Name: "n"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.DeleteByID("j1"); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}
	if len(s.FindAll()) != 0 {
		t.Error("expected empty store after delete")
	}

	// Deleting again is a no-op.
	if err := s.DeleteByID("j1"); err != nil {
		t.Errorf("second DeleteByID() error = %v", err)
	}
}

func TestJobStore_ReloadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	s1, err := NewJobStore(path)
	if err != nil {
		t.Fatalf("NewJobStore() error = %v", err)
	}
	if err := s1.Save(models.JobDefinition{ID: "j1", Name: "persisted"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A fresh store over the same file sees the saved job.
	s2, err := NewJobStore(path)
	if err != nil {
		t.Fatalf("NewJobStore() error = %v", err)
	}
	got, err := s2.FindByID("j1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Name != "persisted" {
		t.Errorf("got name %q, want persisted", got.Name)
	}
}
