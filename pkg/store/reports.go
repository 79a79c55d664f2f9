package store

import (
	"sort"
	"sync"

	"github.com/reportops/core/pkg/models"
)

// ReportStore persists execution records in a single JSON file. Unlike the
// job store it reloads from disk on every read so other processes inspecting
// the file see a consistent view; writes are load-modify-save under a lock.
type ReportStore struct {
	path string
	mu   sync.Mutex
}

func NewReportStore(path string) *ReportStore {
	return &ReportStore{path: path}
}

func (s *ReportStore) load() ([]models.ExecutionRecord, error) {
	var records []models.ExecutionRecord
	if err := readJSONFile(s.path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveReport upserts the record by id.
func (s *ReportStore) SaveReport(record models.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range records {
		if records[i].ID == record.ID {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}

	return writeJSONFile(s.path, records)
}

// FindAll returns all records, newest first.
func (s *ReportStore) FindAll() ([]models.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	sortByGeneratedAtDesc(records)
	return records, nil
}

// FindByID returns the record with the given id, or ErrNotFound.
func (s *ReportStore) FindByID(id string) (*models.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			record := records[i]
			return &record, nil
		}
	}
	return nil, ErrNotFound
}

// FindByJobID returns the job's records, newest first.
func (s *ReportStore) FindByJobID(jobID string) ([]models.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	var out []models.ExecutionRecord
	for _, r := range records {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	sortByGeneratedAtDesc(out)
	return out, nil
}

// DeleteByID removes the record. Deleting an absent id is a no-op.
func (s *ReportStore) DeleteByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}

	return writeJSONFile(s.path, kept)
}

func sortByGeneratedAtDesc(records []models.ExecutionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].GeneratedAt > records[j].GeneratedAt
	})
}
