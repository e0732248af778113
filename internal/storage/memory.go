package storage

import (
	"context"
	"errors"
	"sync"

	"sirsim/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	scenarios   map[string]model.ScenarioRecord
	series      map[string]model.SeriesRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.scenarios = make(map[string]model.ScenarioRecord)
	s.series = make(map[string]model.SeriesRecord)
	return nil
}

func (s *MemoryStore) SaveScenario(_ context.Context, record model.ScenarioRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.scenarios[record.ID] = record
	return nil
}

func (s *MemoryStore) GetScenario(_ context.Context, id string) (model.ScenarioRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.ScenarioRecord{}, false, errNotInitialized
	}
	record, ok := s.scenarios[id]
	return record, ok, nil
}

func (s *MemoryStore) ListScenarios(_ context.Context) ([]model.ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	records := make([]model.ScenarioRecord, 0, len(s.scenarios))
	for _, record := range s.scenarios {
		records = append(records, record)
	}
	sortScenarios(records)
	return records, nil
}

func (s *MemoryStore) SaveSeries(_ context.Context, series model.SeriesRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.series[series.RunID] = cloneSeries(series)
	return nil
}

func (s *MemoryStore) GetSeries(_ context.Context, runID string) (model.SeriesRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.SeriesRecord{}, false, errNotInitialized
	}
	series, ok := s.series[runID]
	if !ok {
		return model.SeriesRecord{}, false, nil
	}
	return cloneSeries(series), true, nil
}

func (s *MemoryStore) DeleteScenario(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	delete(s.scenarios, id)
	delete(s.series, id)
	return nil
}
