package platform

import (
	"context"
	"errors"
	"testing"

	"sirsim/internal/model"
	"sirsim/internal/stats"
	"sirsim/internal/topology"
)

func TestRatePointsZip(t *testing.T) {
	points, err := RatePoints(quickConfig(), []float64{0.3, 0.6}, []float64{0.1, 0.2})
	if err != nil {
		t.Fatalf("rate points: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[1].Config.Rates.Beta != 0.6 || points[1].Config.Rates.Gamma != 0.2 {
		t.Fatalf("unexpected second point: %+v", points[1].Config.Rates)
	}
	if points[0].Label != "beta=0.3,gamma=0.1" {
		t.Fatalf("unexpected label: %s", points[0].Label)
	}
	if _, err := RatePoints(quickConfig(), []float64{0.3}, []float64{0.1, 0.2}); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for mismatched lists, got %v", err)
	}
	if _, err := RatePoints(quickConfig(), nil, nil); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for empty lists, got %v", err)
	}
}

func TestTopologyPointsResetContactMode(t *testing.T) {
	base := quickConfig()
	base.Population.Size = 90
	base.Kernel.Contacts = "neighbors"
	points, err := TopologyPoints(base, []topology.Config{
		{Kind: topology.KindComplete},
		{Kind: topology.KindVillages, Villages: 3},
	})
	if err != nil {
		t.Fatalf("topology points: %v", err)
	}
	for _, p := range points {
		if p.Config.Kernel.Contacts != "" {
			t.Fatalf("%s: expected contact mode reset, got %q", p.Label, p.Config.Kernel.Contacts)
		}
	}
	if points[1].Label != "villages" {
		t.Fatalf("unexpected label: %s", points[1].Label)
	}
}

func TestLabSweepVaccinationRecordsEveryPoint(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	lab := newTestLab(t, dir)

	record, reports, err := lab.SweepVaccination(ctx, quickConfig(), []float64{0, 0.5, 1})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if record.Kind != stats.SweepVaccination || len(record.Points) != 3 || len(reports) != 3 {
		t.Fatalf("unexpected sweep: %+v", record)
	}
	for i, point := range record.Points {
		if point.RunID != reports[i].RunID {
			t.Fatalf("point %d run id mismatch", i)
		}
		if reports[i].Config.Population.Vaccination.Probability != point.Value {
			t.Fatalf("point %d ran with p=%v, recorded %v", i, reports[i].Config.Population.Vaccination.Probability, point.Value)
		}
		if reports[i].Config.Label != point.Label {
			t.Fatalf("point %d: expected label %q, got %q", i, point.Label, reports[i].Config.Label)
		}
	}

	stored, ok, err := stats.ReadSweep(dir, record.ID)
	if err != nil || !ok {
		t.Fatalf("read sweep: ok=%t err=%v", ok, err)
	}
	if len(stored.RunIDs()) != 3 {
		t.Fatalf("unexpected stored sweep: %+v", stored)
	}
	index, err := stats.ListRunIndex(dir)
	if err != nil || len(index) != 3 {
		t.Fatalf("expected 3 indexed runs: %v %+v", err, index)
	}
}

func TestLabCompareTopologies(t *testing.T) {
	lab := newTestLab(t, "")
	base := quickConfig()
	base.Population.Size = 100
	record, reports, err := lab.CompareTopologies(context.Background(), base, []topology.Config{
		{Kind: topology.KindComplete},
		{Kind: topology.KindLattice, Rows: 10, Cols: 10},
	})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if record.Kind != stats.SweepTopology || len(reports) != 2 {
		t.Fatalf("unexpected comparison: %+v", record)
	}
	if reports[0].Record.Topology != "complete" || reports[1].Record.Topology != "lattice" {
		t.Fatalf("unexpected topologies: %s %s", reports[0].Record.Topology, reports[1].Record.Topology)
	}
}

func TestLabSweepValidatesBeforeRunning(t *testing.T) {
	lab := newTestLab(t, "")
	_, _, err := lab.SweepRates(context.Background(), quickConfig(), []float64{0.3, 2}, []float64{0.1, 0.1})
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	list, err := lab.Scenarios(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no runs stored after a rejected sweep, got %d", len(list))
	}
}
