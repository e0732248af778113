package storage

import (
	"context"

	"sirsim/internal/model"
)

// Store persists finished scenario results. Simulation state is never
// stored; a scenario is recomputed from its record by re-running it.
type Store interface {
	Init(ctx context.Context) error
	SaveScenario(ctx context.Context, record model.ScenarioRecord) error
	GetScenario(ctx context.Context, id string) (model.ScenarioRecord, bool, error)
	// ListScenarios returns records newest first.
	ListScenarios(ctx context.Context) ([]model.ScenarioRecord, error)
	SaveSeries(ctx context.Context, series model.SeriesRecord) error
	GetSeries(ctx context.Context, runID string) (model.SeriesRecord, bool, error)
	// DeleteScenario removes the record and its series.
	DeleteScenario(ctx context.Context, id string) error
}
