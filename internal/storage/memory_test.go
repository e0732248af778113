package storage

import (
	"context"
	"errors"
	"testing"

	"sirsim/internal/model"
)

func newMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func TestMemoryStoreScenarioRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	input := model.ScenarioRecord{
		VersionedRecord: CurrentVersion(),
		ID:              "run-1",
		Topology:        "complete",
		Population:      50,
		AttackRate:      0.98,
	}
	if err := store.SaveScenario(ctx, input); err != nil {
		t.Fatalf("save scenario: %v", err)
	}
	output, ok, err := store.GetScenario(ctx, "run-1")
	if err != nil {
		t.Fatalf("get scenario: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted scenario")
	}
	if output != input {
		t.Fatalf("unexpected scenario: %+v", output)
	}
	if _, ok, err := store.GetScenario(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing scenario; ok=%t err=%v", ok, err)
	}
}

func TestMemoryStoreSeriesIsCopied(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	input := model.SeriesRecord{
		VersionedRecord: CurrentVersion(),
		RunID:           "run-1",
		Mean:            []model.Point{{S: 2, I: 1}, {S: 1, I: 2}},
		Villages:        [][]model.Point{{{S: 2, I: 1}, {S: 1, I: 2}}},
	}
	if err := store.SaveSeries(ctx, input); err != nil {
		t.Fatalf("save series: %v", err)
	}
	input.Mean[0].I = 99
	input.Villages[0][0].I = 99

	output, ok, err := store.GetSeries(ctx, "run-1")
	if err != nil {
		t.Fatalf("get series: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted series")
	}
	if output.Mean[0].I != 1 || output.Villages[0][0].I != 1 {
		t.Fatalf("stored series aliased caller slices: %+v", output)
	}
	output.Mean[1].I = 42
	again, _, _ := store.GetSeries(ctx, "run-1")
	if again.Mean[1].I != 2 {
		t.Fatalf("returned series aliased stored slices: %+v", again)
	}
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)

	for _, record := range []model.ScenarioRecord{
		{ID: "run-a", CreatedAtUTC: "2026-03-01T10:00:00Z"},
		{ID: "run-c", CreatedAtUTC: "2026-03-01T11:00:00Z"},
		{ID: "run-b", CreatedAtUTC: "2026-03-01T11:00:00Z"},
	} {
		if err := store.SaveScenario(ctx, record); err != nil {
			t.Fatalf("save %s: %v", record.ID, err)
		}
	}
	if err := store.SaveSeries(ctx, model.SeriesRecord{RunID: "run-a"}); err != nil {
		t.Fatalf("save series: %v", err)
	}

	list, err := store.ListScenarios(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "run-b" || list[1].ID != "run-c" || list[2].ID != "run-a" {
		t.Fatalf("unexpected order: %+v", list)
	}

	if err := store.DeleteScenario(ctx, "run-a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.GetScenario(ctx, "run-a"); ok {
		t.Fatal("expected scenario to be deleted")
	}
	if _, ok, _ := store.GetSeries(ctx, "run-a"); ok {
		t.Fatal("expected series to be deleted with its scenario")
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveScenario(context.Background(), model.ScenarioRecord{ID: "x"}); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
	if _, err := store.ListScenarios(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
}
