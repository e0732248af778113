package stats

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"sirsim/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		Config: RunConfig{
			RunID:           runID,
			Topology:        "villages",
			Villages:        2,
			Kernel:          "infected-sweep",
			Population:      4,
			InitialInfected: 1,
			Beta:            0.5,
			Gamma:           0.1,
			Steps:           2,
			Runs:            3,
			Seed:            1,
			Workers:         2,
		},
		Summary: Summary{RunID: runID, Population: 4, PeakInfected: 2.5, PeakStep: 1},
		Mean: []model.Point{
			{S: 3, I: 1, R: 0},
			{S: 1.25, I: 2.5, R: 0.25},
			{S: 1, I: 1.5, R: 1.5},
		},
		InfectedStd: []float64{0, 0.5, 1.0 / 3},
		Villages: [][]model.Point{
			{{S: 1, I: 1, R: 0}, {S: 0, I: 2, R: 0}, {S: 0, I: 1, R: 1}},
			{{S: 2, I: 0, R: 0}, {S: 1.25, I: 0.5, R: 0.25}, {S: 1, I: 0.5, R: 0.5}},
		},
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts(runID))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	for _, file := range []string{"config.json", "summary.json", "series.csv", "villages.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range []string{"config.json", "summary.json", "series.csv", "villages.csv"} {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
	if _, err := os.Stat(filepath.Join(exportedDir, "curves.png")); !os.IsNotExist(err) {
		t.Fatalf("expected no plot in export, got %v", err)
	}

	if err := os.WriteFile(PlotPath(baseDir, runID), []byte("png"), 0o644); err != nil {
		t.Fatalf("write plot: %v", err)
	}
	exportedWithPlot, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts with plot: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportedWithPlot, "curves.png")); err != nil {
		t.Fatalf("expected exported plot: %v", err)
	}
}

func TestRunArtifactsWithoutVillagesSkipVillageFile(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := sampleArtifacts("run-flat")
	artifacts.Villages = nil
	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if _, err := os.Stat(filepath.Join(runDir, "villages.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected no village file, got %v", err)
	}
	if _, ok, err := ReadVillageSeries(baseDir, "run-flat"); err != nil || ok {
		t.Fatalf("expected missing village series; ok=%t err=%v", ok, err)
	}
	if _, err := ExportRunArtifacts(baseDir, "run-flat", t.TempDir()); err != nil {
		t.Fatalf("export without villages: %v", err)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
	if _, err := ExportRunArtifacts(t.TempDir(), "", t.TempDir()); err == nil {
		t.Fatal("expected error for missing run id on export")
	}
}

func TestReadBackRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	want := sampleArtifacts("run-read")
	if _, err := WriteRunArtifacts(baseDir, want); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	cfg, ok, err := ReadRunConfig(baseDir, "run-read")
	if err != nil || !ok {
		t.Fatalf("read config: ok=%t err=%v", ok, err)
	}
	if !reflect.DeepEqual(cfg, want.Config) {
		t.Fatalf("unexpected config: got=%+v want=%+v", cfg, want.Config)
	}

	summary, ok, err := ReadSummary(baseDir, "run-read")
	if err != nil || !ok {
		t.Fatalf("read summary: ok=%t err=%v", ok, err)
	}
	if summary != want.Summary {
		t.Fatalf("unexpected summary: got=%+v want=%+v", summary, want.Summary)
	}

	mean, std, ok, err := ReadSeries(baseDir, "run-read")
	if err != nil || !ok {
		t.Fatalf("read series: ok=%t err=%v", ok, err)
	}
	if !reflect.DeepEqual(mean, want.Mean) || !reflect.DeepEqual(std, want.InfectedStd) {
		t.Fatalf("unexpected series: mean=%+v std=%+v", mean, std)
	}

	villages, ok, err := ReadVillageSeries(baseDir, "run-read")
	if err != nil || !ok {
		t.Fatalf("read village series: ok=%t err=%v", ok, err)
	}
	if !reflect.DeepEqual(villages, want.Villages) {
		t.Fatalf("unexpected village series: %+v", villages)
	}

	if _, ok, err := ReadRunConfig(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing config; ok=%t err=%v", ok, err)
	}
	if _, _, ok, err := ReadSeries(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing series; ok=%t err=%v", ok, err)
	}
}

func TestReadSeriesRejectsShortRows(t *testing.T) {
	baseDir := t.TempDir()
	runDir := filepath.Join(baseDir, "bad")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "series.csv"), []byte("t,S,I\n0,1,2\n"), 0o644); err != nil {
		t.Fatalf("write series: %v", err)
	}
	if _, _, _, err := ReadSeries(baseDir, "bad"); err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	err := AppendRunIndex(baseDir, RunIndexEntry{
		RunID:        "run-1",
		Topology:     "complete",
		Kernel:       "infected-sweep",
		Population:   50,
		Beta:         0.5,
		Gamma:        0.1,
		Steps:        100,
		Runs:         200,
		Seed:         1,
		Workers:      2,
		AttackRate:   0.80,
		CreatedAtUTC: "2026-02-10T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-1: %v", err)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:        "run-2",
		Topology:     "lattice",
		Kernel:       "infected-sweep",
		Population:   100,
		Beta:         0.3,
		Gamma:        0.1,
		Steps:        50,
		Runs:         200,
		Seed:         2,
		Workers:      2,
		AttackRate:   0.82,
		CreatedAtUTC: "2026-02-10T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-2: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:        "run-1",
		Topology:     "complete",
		Population:   50,
		AttackRate:   0.90,
		CreatedAtUTC: "2026-02-10T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", len(entries))
	}
	if entries[0].RunID != "run-1" || entries[0].AttackRate != 0.90 {
		t.Fatalf("unexpected upsert result: %+v", entries[0])
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}

func TestListRunIndexEmpty(t *testing.T) {
	entries, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty index, got %+v", entries)
	}
}
