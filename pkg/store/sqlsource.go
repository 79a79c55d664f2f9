package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SQLSourceStore keeps raw query text as files in a flat directory. Jobs
// reference a source by file name; inline content submitted with a job is
// persisted under a name derived from the job id.
type SQLSourceStore struct {
	dir string
}

func NewSQLSourceStore(dir string) *SQLSourceStore {
	return &SQLSourceStore{dir: dir}
}

// Read returns the query text for the given file name.
func (s *SQLSourceStore) Read(fileName string) (string, error) {
	path, err := s.resolve(fileName)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read SQL source %s: %w", fileName, err)
	}
	return string(data), nil
}

// SaveContent persists inline query text under a name derived from the job
// id and returns the file name to store on the job definition.
func (s *SQLSourceStore) SaveContent(jobID, content string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create SQL source directory: %w", err)
	}

	fileName := jobID + ".sql"
	path, err := s.resolve(fileName)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write SQL source %s: %w", fileName, err)
	}
	return fileName, nil
}

// resolve joins the file name onto the store directory, rejecting names that
// would escape it.
func (s *SQLSourceStore) resolve(fileName string) (string, error) {
	name := strings.TrimSpace(fileName)
	if name == "" {
		return "", fmt.Errorf("SQL source file name is empty")
	}
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid SQL source file name %q", fileName)
	}
	return filepath.Join(s.dir, name), nil
}
