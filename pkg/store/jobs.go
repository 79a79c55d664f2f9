package store

import (
	"fmt"
	"sync"

	"github.com/reportops/core/pkg/models"
)

// ErrNotFound is returned when a record does not exist in a store.
var ErrNotFound = fmt.Errorf("record not found")

// JobStore persists job definitions in a single JSON file. The collection is
// cached in memory; every mutation rewrites the file under a writer lock.
type JobStore struct {
	path string

	mu   sync.Mutex
	jobs []models.JobDefinition
}

// NewJobStore loads the job collection from path, creating an empty file on
// first use.
func NewJobStore(path string) (*JobStore, error) {
	s := &JobStore{path: path}
	if err := readJSONFile(path, &s.jobs); err != nil {
		return nil, err
	}
	return s, nil
}

// FindAll returns a copy of every job definition.
func (s *JobStore) FindAll() []models.JobDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.JobDefinition, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// FindByID returns the job with the given id, or ErrNotFound.
func (s *JobStore) FindByID(id string) (*models.JobDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			job := s.jobs[i]
			return &job, nil
		}
	}
	return nil, ErrNotFound
}

// Save upserts the job by id and persists the collection.
func (s *JobStore) Save(job models.JobDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// SQL content is a create/update payload, never stored alongside the job.
	job.SQLContent = ""

	replaced := false
	for i := range s.jobs {
		if s.jobs[i].ID == job.ID {
			s.jobs[i] = job
			replaced = true
			break
		}
	}
	if !replaced {
		s.jobs = append(s.jobs, job)
	}

	return writeJSONFile(s.path, s.jobs)
}

// DeleteByID removes the job and persists the collection. Deleting an absent
// id is a no-op.
func (s *JobStore) DeleteByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.jobs[:0]
	for _, j := range s.jobs {
		if j.ID != id {
			kept = append(kept, j)
		}
	}
	s.jobs = kept

	return writeJSONFile(s.path, s.jobs)
}
