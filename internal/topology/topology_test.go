package topology

import (
	"errors"
	"sort"
	"testing"

	"sirsim/internal/model"
	"sirsim/internal/rng"
)

func TestCompleteNeighborsExcludeSelf(t *testing.T) {
	topo := NewComplete(5)
	got := topo.Neighbors(2)
	want := []int{0, 1, 3, 4}
	if !equalInts(got, want) {
		t.Fatalf("unexpected neighbors: got=%v want=%v", got, want)
	}
}

func TestCompleteSampleContactNeverSelf(t *testing.T) {
	topo := NewComplete(4)
	src := rng.New(1, 0)
	seen := make(map[int]bool)
	for k := 0; k < 500; k++ {
		j, ok := topo.SampleContact(1, src)
		if !ok {
			t.Fatal("expected contact")
		}
		if j == 1 {
			t.Fatal("sampled self")
		}
		seen[j] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected all 3 partners sampled, got %v", seen)
	}
	if _, ok := NewComplete(1).SampleContact(0, src); ok {
		t.Fatal("single agent has nobody to contact")
	}
}

func TestLatticeClippedEdges(t *testing.T) {
	topo := NewLattice(3, 3, false)
	cases := []struct {
		i    int
		want []int
	}{
		{i: 0, want: []int{1, 3}},
		{i: 1, want: []int{0, 2, 4}},
		{i: 4, want: []int{1, 3, 5, 7}},
		{i: 8, want: []int{5, 7}},
	}
	for _, tc := range cases {
		got := sorted(topo.Neighbors(tc.i))
		if !equalInts(got, tc.want) {
			t.Fatalf("cell %d: got=%v want=%v", tc.i, got, tc.want)
		}
	}
}

func TestLatticeWrapGivesFourNeighbors(t *testing.T) {
	topo := NewLattice(4, 4, true)
	for i := 0; i < topo.Size(); i++ {
		neighbors := topo.Neighbors(i)
		if len(neighbors) != 4 {
			t.Fatalf("cell %d: expected 4 neighbors, got %v", i, neighbors)
		}
	}
	got := sorted(topo.Neighbors(0))
	want := []int{1, 3, 4, 12}
	if !equalInts(got, want) {
		t.Fatalf("corner wrap: got=%v want=%v", got, want)
	}
}

func TestLatticeWrapOnTinyGridDeduplicates(t *testing.T) {
	topo := NewLattice(2, 1, true)
	got := topo.Neighbors(0)
	if !equalInts(got, []int{1}) {
		t.Fatalf("unexpected neighbors: %v", got)
	}
	single := NewLattice(1, 1, true)
	if n := single.Neighbors(0); len(n) != 0 {
		t.Fatalf("1x1 lattice must have no neighbors, got %v", n)
	}
}

func TestVillagesNeighborsStayInVillage(t *testing.T) {
	topo, err := NewVillages(9, 3, 0.1)
	if err != nil {
		t.Fatalf("new villages: %v", err)
	}
	got := topo.Neighbors(4)
	if !equalInts(got, []int{3, 5}) {
		t.Fatalf("unexpected neighbors: %v", got)
	}
	if topo.Group(8) != 2 || topo.Group(0) != 0 {
		t.Fatalf("unexpected grouping")
	}
}

func TestVillagesSampleContactWithoutLeakStaysHome(t *testing.T) {
	topo, err := NewVillages(30, 3, 0)
	if err != nil {
		t.Fatalf("new villages: %v", err)
	}
	src := rng.New(9, 0)
	for k := 0; k < 1000; k++ {
		j, ok := topo.SampleContact(12, src)
		if !ok {
			t.Fatal("expected contact")
		}
		if j == 12 || topo.Group(j) != 1 {
			t.Fatalf("contact %d left village 1 or hit self", j)
		}
	}
}

func TestVillagesSampleContactFullLeakAlwaysLeaves(t *testing.T) {
	topo, err := NewVillages(30, 3, 1)
	if err != nil {
		t.Fatalf("new villages: %v", err)
	}
	src := rng.New(9, 1)
	seen := make(map[int]int)
	for k := 0; k < 1000; k++ {
		j, _ := topo.SampleContact(3, src)
		if topo.Group(j) == 0 {
			t.Fatalf("contact %d stayed in the home village", j)
		}
		seen[topo.Group(j)]++
	}
	if seen[1] == 0 || seen[2] == 0 {
		t.Fatalf("expected both foreign villages chosen, got %v", seen)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		n    int
	}{
		{name: "empty population", cfg: Config{Kind: KindComplete}, n: 0},
		{name: "lattice mismatch", cfg: Config{Kind: KindLattice, Rows: 10, Cols: 10}, n: 50},
		{name: "lattice not square", cfg: Config{Kind: KindLattice}, n: 50},
		{name: "villages do not divide", cfg: Config{Kind: KindVillages, Villages: 3}, n: 50},
		{name: "leak out of range", cfg: Config{Kind: KindVillages, Villages: 2, InterVillageProbability: 1.5}, n: 50},
		{name: "unknown kind", cfg: Config{Kind: "ring"}, n: 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg, tc.n)
			if !errors.Is(err, model.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNewDerivesLatticeDims(t *testing.T) {
	topo, err := New(Config{Kind: KindLattice}, 100)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lattice := topo.(*Lattice)
	if lattice.Rows() != 10 || lattice.Cols() != 10 {
		t.Fatalf("unexpected dims %dx%d", lattice.Rows(), lattice.Cols())
	}
	topo, err = New(Config{Kind: KindLattice, Cols: 5}, 50)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if topo.(*Lattice).Rows() != 10 {
		t.Fatalf("expected 10 rows, got %d", topo.(*Lattice).Rows())
	}
}

func TestParseKindAliases(t *testing.T) {
	cases := map[string]Kind{
		"all_to_all":     KindComplete,
		"Complete Graph": KindComplete,
		"grid":           KindLattice,
		"metapopulation": KindVillages,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got=%s want=%s", in, got, want)
		}
	}
	if _, err := ParseKind("ring"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestNeighborsNeverContainSelf(t *testing.T) {
	villages, err := NewVillages(12, 4, 0.2)
	if err != nil {
		t.Fatalf("new villages: %v", err)
	}
	topos := []Topology{NewComplete(12), NewLattice(3, 4, false), NewLattice(3, 4, true), villages}
	for _, topo := range topos {
		for i := 0; i < topo.Size(); i++ {
			for _, j := range topo.Neighbors(i) {
				if j == i {
					t.Fatalf("%s: agent %d is its own neighbor", topo.Kind(), i)
				}
			}
		}
	}
}

func sorted(values []int) []int {
	out := append([]int(nil), values...)
	sort.Ints(out)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
