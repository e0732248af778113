package platform

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"sirsim/internal/model"
	"sirsim/internal/sim"
	"sirsim/internal/stats"
	"sirsim/internal/topology"
)

// SweepPoint is one scenario of a sweep.
type SweepPoint struct {
	Label  string
	Value  float64
	Config sim.Config
}

// RatePoints zips betas and gammas into one scenario per pair.
func RatePoints(base sim.Config, betas, gammas []float64) ([]SweepPoint, error) {
	if len(betas) == 0 {
		return nil, fmt.Errorf("%w: at least one beta is required", model.ErrInvalidConfig)
	}
	if len(betas) != len(gammas) {
		return nil, fmt.Errorf("%w: %d betas and %d gammas cannot be paired", model.ErrInvalidConfig, len(betas), len(gammas))
	}
	points := make([]SweepPoint, 0, len(betas))
	for i := range betas {
		cfg := base
		cfg.Rates.Beta = betas[i]
		cfg.Rates.Gamma = gammas[i]
		points = append(points, SweepPoint{
			Label:  "beta=" + formatValue(betas[i]) + ",gamma=" + formatValue(gammas[i]),
			Value:  betas[i],
			Config: cfg,
		})
	}
	return points, nil
}

// VaccinationPoints yields one scenario per vaccination probability.
func VaccinationPoints(base sim.Config, probabilities []float64) ([]SweepPoint, error) {
	if len(probabilities) == 0 {
		return nil, fmt.Errorf("%w: at least one vaccination probability is required", model.ErrInvalidConfig)
	}
	points := make([]SweepPoint, 0, len(probabilities))
	for _, p := range probabilities {
		cfg := base
		cfg.Population.Vaccination.Probability = p
		points = append(points, SweepPoint{Label: "p=" + formatValue(p), Value: p, Config: cfg})
	}
	return points, nil
}

// TopologyPoints yields one scenario per topology with otherwise identical
// parameters. The contact mode falls back to each topology's default.
func TopologyPoints(base sim.Config, topologies []topology.Config) ([]SweepPoint, error) {
	if len(topologies) == 0 {
		return nil, fmt.Errorf("%w: at least one topology is required", model.ErrInvalidConfig)
	}
	points := make([]SweepPoint, 0, len(topologies))
	for _, topo := range topologies {
		cfg := base
		cfg.Population.Topology = topo
		cfg.Kernel.Contacts = ""
		if topo.Kind != topology.KindVillages {
			cfg.Population.SeedVillage = 0
			cfg.Population.Vaccination.Villages = nil
		}
		label := string(topo.Kind)
		if label == "" {
			label = string(topology.KindComplete)
		}
		points = append(points, SweepPoint{Label: label, Config: cfg})
	}
	return points, nil
}

// Sweep runs every point in order with its own run id and records the sweep.
// Each point keeps its configured seed, so points differ only in the swept
// parameter.
func (l *Lab) Sweep(ctx context.Context, kind stats.SweepKind, points []SweepPoint) (stats.SweepRecord, []RunReport, error) {
	if len(points) == 0 {
		return stats.SweepRecord{}, nil, fmt.Errorf("%w: sweep has no points", model.ErrInvalidConfig)
	}
	for i, point := range points {
		if err := point.Config.Validate(); err != nil {
			return stats.SweepRecord{}, nil, fmt.Errorf("sweep point %d (%s): %w", i, point.Label, err)
		}
	}

	record := stats.SweepRecord{
		ID:           "sweep-" + uuid.NewString(),
		Kind:         kind,
		StartedAtUTC: l.now().UTC().Format(time.RFC3339),
		Points:       make([]stats.SweepPoint, 0, len(points)),
	}
	l.logger.Info("sweep started", "sweep_id", record.ID, "kind", kind, "points", len(points))

	reports := make([]RunReport, 0, len(points))
	for i, point := range points {
		cfg := point.Config
		if cfg.Label == "" {
			cfg.Label = point.Label
		}
		report, err := l.Run(ctx, cfg, "")
		if err != nil {
			return stats.SweepRecord{}, nil, fmt.Errorf("sweep point %d (%s): %w", i, point.Label, err)
		}
		reports = append(reports, report)
		record.Points = append(record.Points, stats.SweepPoint{
			Label:   point.Label,
			RunID:   report.RunID,
			Beta:    cfg.Rates.Beta,
			Gamma:   cfg.Rates.Gamma,
			Value:   point.Value,
			Summary: report.Summary,
		})
	}
	record.CompletedAtUTC = l.now().UTC().Format(time.RFC3339)

	if l.artifactsDir != "" {
		if err := stats.WriteSweep(l.artifactsDir, record); err != nil {
			return stats.SweepRecord{}, nil, fmt.Errorf("write sweep %s: %w", record.ID, err)
		}
	}
	l.logger.Info("sweep finished", "sweep_id", record.ID, "runs", len(reports))
	return record, reports, nil
}

func (l *Lab) SweepRates(ctx context.Context, base sim.Config, betas, gammas []float64) (stats.SweepRecord, []RunReport, error) {
	points, err := RatePoints(base, betas, gammas)
	if err != nil {
		return stats.SweepRecord{}, nil, err
	}
	return l.Sweep(ctx, stats.SweepRates, points)
}

func (l *Lab) SweepVaccination(ctx context.Context, base sim.Config, probabilities []float64) (stats.SweepRecord, []RunReport, error) {
	points, err := VaccinationPoints(base, probabilities)
	if err != nil {
		return stats.SweepRecord{}, nil, err
	}
	return l.Sweep(ctx, stats.SweepVaccination, points)
}

func (l *Lab) CompareTopologies(ctx context.Context, base sim.Config, topologies []topology.Config) (stats.SweepRecord, []RunReport, error) {
	points, err := TopologyPoints(base, topologies)
	if err != nil {
		return stats.SweepRecord{}, nil, err
	}
	return l.Sweep(ctx, stats.SweepTopology, points)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
