// Package sirsim is the public entry point for running stochastic SIR
// scenarios, parameter sweeps and topology comparisons, and for browsing the
// stored results.
package sirsim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"sirsim/internal/model"
	"sirsim/internal/platform"
	"sirsim/internal/plot"
	"sirsim/internal/scenario"
	"sirsim/internal/sim"
	"sirsim/internal/stats"
	"sirsim/internal/storage"
	"sirsim/internal/topology"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "sirsim.db"
)

type (
	Config  = sim.Config
	Point   = model.Point
	Summary = stats.Summary
)

var (
	ErrInvalidConfig      = model.ErrInvalidConfig
	ErrInvariantViolation = model.ErrInvariantViolation
)

// DefaultConfig returns the reference well-mixed scenario.
func DefaultConfig() Config { return sim.DefaultConfig() }

// Preset returns a named built-in scenario.
func Preset(name string) (Config, error) { return scenario.Lookup(name) }

// LoadScenario reads a YAML or JSON scenario file.
func LoadScenario(path string) (Config, error) { return scenario.Load(path) }

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *log.Logger
}

type Client struct {
	store  storage.Store
	lab    *platform.Lab
	logger *log.Logger

	artifactsDir string
	exportsDir   string
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Summary      Summary
	Mean         []Point
	InfectedStd  []float64
	Villages     [][]Point
}

type SweepRatesRequest struct {
	Base   Config
	Betas  []float64
	Gammas []float64
}

type SweepVaccinationRequest struct {
	Base          Config
	Probabilities []float64
}

type CompareRequest struct {
	Base Config
	// Topologies are names accepted by topology.ParseKind. The base layout
	// is kept for its own kind; a lattice is otherwise sized from the
	// population and villages use the default grouping.
	Topologies []string
}

type SweepItem struct {
	Label          string
	RunID          string
	Value          float64
	Beta           float64
	Gamma          float64
	PeakInfected   float64
	PeakStep       int
	FinalRecovered float64
	AttackRate     float64
}

type SweepSummary struct {
	SweepID string
	Kind    string
	Points  []SweepItem
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID                  string
	CreatedAtUTC           string
	Label                  string
	Topology               string
	Kernel                 string
	Population             int
	Beta                   float64
	Gamma                  float64
	VaccinationProbability float64
	Steps                  int
	Runs                   int
	Seed                   int64
	PeakInfected           float64
	AttackRate             float64
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

type RunDetail struct {
	RunID       string
	Config      stats.RunConfig
	Summary     Summary
	Mean        []Point
	InfectedStd []float64
	Villages    [][]Point
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type PlotRequest struct {
	RunID  string
	Latest bool
	// SweepID overlays the infected curve of every point of a sweep instead
	// of plotting a single run.
	SweepID string
	// Villages plots the infected curve of each village of a village run.
	Villages bool
	Out      string
	Width    int
	Height   int
}

type PlotSummary struct {
	RunID   string
	SweepID string
	Path    string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	if c.lab != nil {
		c.lab.Stop()
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureLab(ctx)
	return err
}

// Simulate runs one scenario of cfg.Runs Monte Carlo runs and stores it.
func (c *Client) Simulate(ctx context.Context, cfg Config) (RunSummary, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	report, err := lab.Run(ctx, cfg, "")
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:        report.RunID,
		ArtifactsDir: report.RunDir,
		Summary:      report.Summary,
		Mean:         report.Result.Mean,
		InfectedStd:  report.Result.InfectedStd,
		Villages:     report.Result.Villages,
	}, nil
}

// Replay re-runs a stored run from its recorded configuration.
func (c *Client) Replay(ctx context.Context, runID string) (RunSummary, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	report, err := lab.Replay(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:        report.RunID,
		ArtifactsDir: report.RunDir,
		Summary:      report.Summary,
		Mean:         report.Result.Mean,
		InfectedStd:  report.Result.InfectedStd,
		Villages:     report.Result.Villages,
	}, nil
}

func (c *Client) SweepRates(ctx context.Context, req SweepRatesRequest) (SweepSummary, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return SweepSummary{}, err
	}
	record, _, err := lab.SweepRates(ctx, req.Base, req.Betas, req.Gammas)
	if err != nil {
		return SweepSummary{}, err
	}
	return sweepSummary(record), nil
}

func (c *Client) SweepVaccination(ctx context.Context, req SweepVaccinationRequest) (SweepSummary, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return SweepSummary{}, err
	}
	probabilities := req.Probabilities
	if len(probabilities) == 0 {
		probabilities = scenario.VaccinationSweep
	}
	record, _, err := lab.SweepVaccination(ctx, req.Base, probabilities)
	if err != nil {
		return SweepSummary{}, err
	}
	return sweepSummary(record), nil
}

// CompareTopologies runs the same scenario on each named topology.
func (c *Client) CompareTopologies(ctx context.Context, req CompareRequest) (SweepSummary, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return SweepSummary{}, err
	}
	names := req.Topologies
	if len(names) == 0 {
		names = []string{string(topology.KindComplete), string(topology.KindLattice)}
	}
	topologies := make([]topology.Config, 0, len(names))
	for _, name := range names {
		kind, err := topology.ParseKind(name)
		if err != nil {
			return SweepSummary{}, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
		}
		topologies = append(topologies, compareTopology(req.Base.Population.Topology, kind))
	}
	record, _, err := lab.CompareTopologies(ctx, req.Base, topologies)
	if err != nil {
		return SweepSummary{}, err
	}
	return sweepSummary(record), nil
}

// Runs lists indexed runs, newest first.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:                  e.RunID,
			CreatedAtUTC:           e.CreatedAtUTC,
			Label:                  e.Label,
			Topology:               e.Topology,
			Kernel:                 e.Kernel,
			Population:             e.Population,
			Beta:                   e.Beta,
			Gamma:                  e.Gamma,
			VaccinationProbability: e.VaccinationProbability,
			Steps:                  e.Steps,
			Runs:                   e.Runs,
			Seed:                   e.Seed,
			PeakInfected:           e.PeakInfected,
			AttackRate:             e.AttackRate,
		})
	}
	return out, nil
}

// Show loads the stored configuration, summary and series of one run.
func (c *Client) Show(_ context.Context, req ShowRequest) (RunDetail, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return RunDetail{}, err
	}
	rc, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if !ok {
		return RunDetail{}, fmt.Errorf("%w: %s", platform.ErrUnknownRun, runID)
	}
	summary, _, err := stats.ReadSummary(c.artifactsDir, runID)
	if err != nil {
		return RunDetail{}, err
	}
	mean, infectedStd, _, err := stats.ReadSeries(c.artifactsDir, runID)
	if err != nil {
		return RunDetail{}, err
	}
	villages, _, err := stats.ReadVillageSeries(c.artifactsDir, runID)
	if err != nil {
		return RunDetail{}, err
	}
	return RunDetail{
		RunID:       runID,
		Config:      rc,
		Summary:     summary,
		Mean:        mean,
		InfectedStd: infectedStd,
		Villages:    villages,
	}, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Plot renders a run's mean curves, its per-village infected curves, or the
// infected curves of a sweep to PNG.
func (c *Client) Plot(ctx context.Context, req PlotRequest) (PlotSummary, error) {
	opts := plot.Options{Width: req.Width, Height: req.Height}
	if req.SweepID != "" {
		if req.RunID != "" || req.Latest {
			return PlotSummary{}, errors.New("use either sweep id or run id")
		}
		return c.plotSweep(ctx, req.SweepID, req.Out, opts)
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return PlotSummary{}, err
	}
	mean, _, ok, err := stats.ReadSeries(c.artifactsDir, runID)
	if err != nil {
		return PlotSummary{}, err
	}
	if !ok {
		return PlotSummary{}, fmt.Errorf("%w: %s", platform.ErrUnknownRun, runID)
	}
	out := req.Out
	if out == "" {
		out = stats.PlotPath(c.artifactsDir, runID)
	}
	opts.Title = runID

	if req.Villages {
		villages, ok, err := stats.ReadVillageSeries(c.artifactsDir, runID)
		if err != nil {
			return PlotSummary{}, err
		}
		if !ok || len(villages) == 0 {
			return PlotSummary{}, fmt.Errorf("run %s has no village series", runID)
		}
		labels := make([]string, len(villages))
		for g := range villages {
			labels[g] = fmt.Sprintf("village %d", g)
		}
		err = plot.WriteFile(out, func(w io.Writer) error {
			return plot.Overlay(w, labels, villages, model.Infected, opts)
		})
		if err != nil {
			return PlotSummary{}, err
		}
		return PlotSummary{RunID: runID, Path: out}, nil
	}

	if err := plot.WriteFile(out, func(w io.Writer) error { return plot.Curves(w, mean, opts) }); err != nil {
		return PlotSummary{}, err
	}
	return PlotSummary{RunID: runID, Path: out}, nil
}

func (c *Client) plotSweep(_ context.Context, sweepID, out string, opts plot.Options) (PlotSummary, error) {
	record, ok, err := stats.ReadSweep(c.artifactsDir, sweepID)
	if err != nil {
		return PlotSummary{}, err
	}
	if !ok {
		return PlotSummary{}, fmt.Errorf("sweep not found: %s", sweepID)
	}
	labels := make([]string, 0, len(record.Points))
	series := make([][]model.Point, 0, len(record.Points))
	for _, point := range record.Points {
		mean, _, ok, err := stats.ReadSeries(c.artifactsDir, point.RunID)
		if err != nil {
			return PlotSummary{}, err
		}
		if !ok {
			return PlotSummary{}, fmt.Errorf("%w: %s", platform.ErrUnknownRun, point.RunID)
		}
		labels = append(labels, point.Label)
		series = append(series, mean)
	}
	if out == "" {
		out = filepath.Join(c.artifactsDir, "sweeps", sweepID+".png")
	}
	opts.Title = fmt.Sprintf("%s (%s)", sweepID, record.Kind)
	err = plot.WriteFile(out, func(w io.Writer) error {
		return plot.Overlay(w, labels, series, model.Infected, opts)
	})
	if err != nil {
		return PlotSummary{}, err
	}
	return PlotSummary{SweepID: sweepID, Path: out}, nil
}

// Sweeps lists recorded sweeps, newest first.
func (c *Client) Sweeps(_ context.Context) ([]SweepSummary, error) {
	records, err := stats.ListSweeps(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	out := make([]SweepSummary, 0, len(records))
	for _, record := range records {
		out = append(out, sweepSummary(record))
	}
	return out, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID == "" && !latest {
		return "", errors.New("run id or latest is required")
	}
	if !latest {
		return strings.TrimSpace(runID), nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensureLab(ctx context.Context) (*platform.Lab, error) {
	if c.lab != nil {
		return c.lab, nil
	}
	lab := platform.NewLab(platform.Config{
		Store:        c.store,
		ArtifactsDir: c.artifactsDir,
		Logger:       c.logger,
	})
	if err := lab.Init(ctx); err != nil {
		return nil, err
	}
	c.lab = lab
	return c.lab, nil
}

func sweepSummary(record stats.SweepRecord) SweepSummary {
	out := SweepSummary{SweepID: record.ID, Kind: string(record.Kind), Points: make([]SweepItem, 0, len(record.Points))}
	for _, p := range record.Points {
		out.Points = append(out.Points, SweepItem{
			Label:          p.Label,
			RunID:          p.RunID,
			Value:          p.Value,
			Beta:           p.Beta,
			Gamma:          p.Gamma,
			PeakInfected:   p.Summary.PeakInfected,
			PeakStep:       p.Summary.PeakStep,
			FinalRecovered: p.Summary.FinalRecovered,
			AttackRate:     p.Summary.AttackRate,
		})
	}
	return out
}

func compareTopology(base topology.Config, kind topology.Kind) topology.Config {
	if base.Kind == kind || (base.Kind == "" && kind == topology.KindComplete) {
		base.Kind = kind
		return base
	}
	if kind == topology.KindLattice {
		return topology.Config{Kind: kind}
	}
	return topology.DefaultConfig(kind)
}
