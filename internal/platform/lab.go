// Package platform runs scenarios end to end: it assigns run ids, drives the
// simulation, and persists the summary, series and on-disk artifacts.
package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"sirsim/internal/model"
	"sirsim/internal/sim"
	"sirsim/internal/stats"
	"sirsim/internal/storage"
)

var (
	ErrNotStarted  = errors.New("lab is not initialized")
	ErrRunActive   = errors.New("run id already active")
	ErrUnknownRun  = errors.New("run not found")
	ErrRunCanceled = errors.New("run canceled")
)

type Config struct {
	Store storage.Store
	// ArtifactsDir receives one directory per run plus the run index. Empty
	// disables artifact output.
	ArtifactsDir string
	Logger       *log.Logger
	Now          func() time.Time
}

// RunReport is the outcome of one stored scenario.
type RunReport struct {
	RunID   string
	RunDir  string
	Config  sim.Config
	Result  sim.Result
	Summary stats.Summary
	Record  model.ScenarioRecord
}

type Lab struct {
	store        storage.Store
	artifactsDir string
	logger       *log.Logger
	now          func() time.Time

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelFunc
}

func NewLab(cfg Config) *Lab {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Lab{
		store:        cfg.Store,
		artifactsDir: cfg.ArtifactsDir,
		logger:       logger,
		now:          now,
		runs:         make(map[string]context.CancelFunc),
	}
}

func (l *Lab) Init(ctx context.Context) error {
	if l.store == nil {
		return fmt.Errorf("store is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if err := l.store.Init(ctx); err != nil {
		return err
	}
	l.started = true
	return nil
}

// Stop cancels active runs and marks the lab stopped.
func (l *Lab) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, cancel := range l.runs {
		cancel()
	}
	l.runs = make(map[string]context.CancelFunc)
	l.started = false
}

func (l *Lab) Started() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started
}

func (l *Lab) Store() storage.Store { return l.store }

func (l *Lab) ArtifactsDir() string { return l.artifactsDir }

// ActiveRuns lists the ids of runs currently executing.
func (l *Lab) ActiveRuns() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.runs))
	for id := range l.runs {
		ids = append(ids, id)
	}
	return ids
}

// CancelRun stops an active run; Run then returns ErrRunCanceled.
func (l *Lab) CancelRun(runID string) error {
	l.mu.RLock()
	cancel, ok := l.runs[runID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	cancel()
	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return "run-" + uuid.NewString()
}

// Run simulates cfg, stores the scenario record and series, and writes the
// run artifacts. An empty runID is replaced by NewRunID.
func (l *Lab) Run(ctx context.Context, cfg sim.Config, runID string) (RunReport, error) {
	if !l.Started() {
		return RunReport{}, ErrNotStarted
	}
	if runID == "" {
		runID = NewRunID()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := l.registerRun(runID, cancel); err != nil {
		return RunReport{}, err
	}
	defer l.unregisterRun(runID)

	if cfg.Logger == nil {
		cfg.Logger = l.logger.With("run_id", runID)
	}
	cfg = normalizeConfig(cfg)

	started := l.now()
	result, err := sim.Simulate(runCtx, cfg)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			return RunReport{}, fmt.Errorf("%w: %s", ErrRunCanceled, runID)
		}
		return RunReport{}, err
	}
	summary, err := stats.Summarize(result.Mean, result.InfectedStd, result.Size)
	if err != nil {
		return RunReport{}, err
	}
	summary.RunID = runID

	createdAt := started.UTC().Format(time.RFC3339)
	record := scenarioRecord(runID, cfg, summary, createdAt)
	if err := l.store.SaveScenario(ctx, record); err != nil {
		return RunReport{}, fmt.Errorf("save scenario %s: %w", runID, err)
	}
	if err := l.store.SaveSeries(ctx, seriesRecord(runID, result)); err != nil {
		return RunReport{}, fmt.Errorf("save series %s: %w", runID, err)
	}

	report := RunReport{RunID: runID, Config: cfg, Result: result, Summary: summary, Record: record}
	if l.artifactsDir != "" {
		runDir, err := stats.WriteRunArtifacts(l.artifactsDir, stats.RunArtifacts{
			Config:      runConfig(runID, cfg),
			Summary:     summary,
			Mean:        result.Mean,
			InfectedStd: result.InfectedStd,
			Villages:    result.Villages,
		})
		if err != nil {
			return RunReport{}, fmt.Errorf("write artifacts %s: %w", runID, err)
		}
		if err := stats.AppendRunIndex(l.artifactsDir, runIndexEntry(record, cfg.Workers)); err != nil {
			return RunReport{}, fmt.Errorf("append run index %s: %w", runID, err)
		}
		report.RunDir = runDir
	}

	l.logger.Info("run stored",
		"run_id", runID,
		"topology", record.Topology,
		"peak_infected", summary.PeakInfected,
		"attack_rate", summary.AttackRate,
		"elapsed", l.now().Sub(started).Round(time.Millisecond),
	)
	return report, nil
}

// Scenario returns a stored record and its series.
func (l *Lab) Scenario(ctx context.Context, runID string) (model.ScenarioRecord, model.SeriesRecord, bool, error) {
	if !l.Started() {
		return model.ScenarioRecord{}, model.SeriesRecord{}, false, ErrNotStarted
	}
	record, ok, err := l.store.GetScenario(ctx, runID)
	if err != nil || !ok {
		return model.ScenarioRecord{}, model.SeriesRecord{}, ok, err
	}
	series, ok, err := l.store.GetSeries(ctx, runID)
	if err != nil {
		return model.ScenarioRecord{}, model.SeriesRecord{}, false, err
	}
	if !ok {
		return model.ScenarioRecord{}, model.SeriesRecord{}, false, fmt.Errorf("series missing for stored scenario %s", runID)
	}
	return record, series, true, nil
}

func (l *Lab) Scenarios(ctx context.Context) ([]model.ScenarioRecord, error) {
	if !l.Started() {
		return nil, ErrNotStarted
	}
	return l.store.ListScenarios(ctx)
}

func (l *Lab) DeleteScenario(ctx context.Context, runID string) error {
	if !l.Started() {
		return ErrNotStarted
	}
	return l.store.DeleteScenario(ctx, runID)
}

// Replay re-runs a run from its stored config.json under a new run id. With
// the same seed the mean series is identical to the original.
func (l *Lab) Replay(ctx context.Context, runID string) (RunReport, error) {
	if l.artifactsDir == "" {
		return RunReport{}, fmt.Errorf("replay requires an artifacts directory")
	}
	rc, ok, err := stats.ReadRunConfig(l.artifactsDir, runID)
	if err != nil {
		return RunReport{}, err
	}
	if !ok {
		return RunReport{}, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return l.Run(ctx, ConfigFromRun(rc), "")
}

func (l *Lab) registerRun(runID string, cancel context.CancelFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.runs[runID]; exists {
		return fmt.Errorf("%w: %s", ErrRunActive, runID)
	}
	l.runs[runID] = cancel
	return nil
}

func (l *Lab) unregisterRun(runID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.runs, runID)
}
