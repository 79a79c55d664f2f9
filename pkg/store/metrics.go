package store

import (
	"sync"

	"github.com/reportops/core/pkg/models"
)

// MetricStore persists metric configurations and their sampled history in
// two JSON files next to each other.
type MetricStore struct {
	configPath  string
	historyPath string

	mu      sync.Mutex
	configs []models.MetricConfig
}

func NewMetricStore(configPath, historyPath string) (*MetricStore, error) {
	s := &MetricStore{configPath: configPath, historyPath: historyPath}
	if err := readJSONFile(configPath, &s.configs); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MetricStore) FindAll() []models.MetricConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MetricConfig, len(s.configs))
	copy(out, s.configs)
	return out
}

func (s *MetricStore) FindByID(id string) (*models.MetricConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.configs {
		if s.configs[i].ID == id {
			cfg := s.configs[i]
			return &cfg, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MetricStore) Save(cfg models.MetricConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.configs {
		if s.configs[i].ID == cfg.ID {
			s.configs[i] = cfg
			replaced = true
			break
		}
	}
	if !replaced {
		s.configs = append(s.configs, cfg)
	}

	return writeJSONFile(s.configPath, s.configs)
}

func (s *MetricStore) DeleteByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.configs[:0]
	for _, c := range s.configs {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.configs = kept

	return writeJSONFile(s.configPath, s.configs)
}

// AddSample appends one collected data point to the history file.
func (s *MetricStore) AddSample(sample models.MetricSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []models.MetricSample
	if err := readJSONFile(s.historyPath, &history); err != nil {
		return err
	}
	history = append(history, sample)
	return writeJSONFile(s.historyPath, history)
}

// History returns the samples collected for one metric, oldest first.
func (s *MetricStore) History(metricID string) ([]models.MetricSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []models.MetricSample
	if err := readJSONFile(s.historyPath, &history); err != nil {
		return nil, err
	}

	var out []models.MetricSample
	for _, h := range history {
		if h.MetricID == metricID {
			out = append(out, h)
		}
	}
	return out, nil
}
