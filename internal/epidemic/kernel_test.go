package epidemic

import (
	"errors"
	"testing"

	"sirsim/internal/model"
	"sirsim/internal/population"
	"sirsim/internal/rng"
	"sirsim/internal/topology"
)

func newPopulation(t *testing.T, spec population.Spec, seed int64) *population.Population {
	t.Helper()
	pop, err := population.New(spec, rng.New(seed, 0))
	if err != nil {
		t.Fatalf("new population: %v", err)
	}
	return pop
}

func newKernel(t *testing.T, cfg Config, rates Rates, kind topology.Kind) Kernel {
	t.Helper()
	k, err := New(cfg, rates, kind)
	if err != nil {
		t.Fatalf("new kernel: %v", err)
	}
	return k
}

func specFor(kind topology.Kind, n, infected int) population.Spec {
	return population.Spec{
		Size:            n,
		InitialInfected: infected,
		Topology:        topology.DefaultConfig(kind),
		Vaccination:     population.DefaultVaccination(),
	}
}

type scenario struct {
	name string
	kind topology.Kind
	n    int
	cfg  Config
}

func scenarios() []scenario {
	return []scenario{
		{name: "complete sweep", kind: topology.KindComplete, n: 40, cfg: DefaultConfig(topology.KindComplete)},
		{name: "lattice sweep", kind: topology.KindLattice, n: 100, cfg: DefaultConfig(topology.KindLattice)},
		{name: "villages sampled", kind: topology.KindVillages, n: 60, cfg: Config{Kind: KernelInfectedSweep, Contacts: ContactSampled, ContactsPerStep: 3}},
		{name: "villages neighbors", kind: topology.KindVillages, n: 60, cfg: Config{Kind: KernelInfectedSweep, Contacts: ContactNeighbors}},
		{name: "complete random pair", kind: topology.KindComplete, n: 40, cfg: Config{Kind: KernelRandomPair, PairsPerStep: 20}},
		{name: "lattice random pair", kind: topology.KindLattice, n: 100, cfg: Config{Kind: KernelRandomPair, PairsPerStep: 20}},
	}
}

func TestConservationAndMonotoneOrder(t *testing.T) {
	for _, sc := range scenarios() {
		t.Run(sc.name, func(t *testing.T) {
			pop := newPopulation(t, specFor(sc.kind, sc.n, 2), 7)
			k := newKernel(t, sc.cfg, Rates{Beta: 0.4, Gamma: 0.2}, sc.kind)
			src := rng.New(7, 1)
			prev := pop.States()
			for step := 0; step < 60; step++ {
				if err := k.Step(pop, src); err != nil {
					t.Fatalf("step %d: %v", step, err)
				}
				counts := pop.Counts()
				if counts.Total() != sc.n {
					t.Fatalf("step %d: counts %+v do not sum to %d", step, counts, sc.n)
				}
				cur := pop.States()
				for i := range cur {
					if !model.CanTransition(prev[i], cur[i]) {
						t.Fatalf("step %d: agent %d moved %s -> %s", step, i, prev[i], cur[i])
					}
				}
				prev = cur
			}
		})
	}
}

func TestZeroBetaNeverInfects(t *testing.T) {
	for _, sc := range scenarios() {
		t.Run(sc.name, func(t *testing.T) {
			pop := newPopulation(t, specFor(sc.kind, sc.n, 3), 3)
			initial := pop.States()
			k := newKernel(t, sc.cfg, Rates{Beta: 0, Gamma: 0.1}, sc.kind)
			src := rng.New(3, 1)
			lastInfected := pop.Counts().I
			for step := 0; step < 50; step++ {
				if err := k.Step(pop, src); err != nil {
					t.Fatalf("step %d: %v", step, err)
				}
				counts := pop.Counts()
				if counts.I > lastInfected {
					t.Fatalf("step %d: infected grew from %d to %d", step, lastInfected, counts.I)
				}
				lastInfected = counts.I
				for i, c := range initial {
					if c == model.Susceptible && pop.State(i) != model.Susceptible {
						t.Fatalf("step %d: susceptible agent %d became %s", step, i, pop.State(i))
					}
				}
			}
		})
	}
}

func TestCertainRecoveryWithinOneStep(t *testing.T) {
	for _, sc := range []scenario{scenarios()[0], scenarios()[1], scenarios()[2]} {
		t.Run(sc.name, func(t *testing.T) {
			pop := newPopulation(t, specFor(sc.kind, sc.n, 2), 5)
			k := newKernel(t, sc.cfg, Rates{Beta: 0.5, Gamma: 1}, sc.kind)
			src := rng.New(5, 1)
			for step := 0; step < 20; step++ {
				before := append([]int(nil), pop.Infected()...)
				if err := k.Step(pop, src); err != nil {
					t.Fatalf("step %d: %v", step, err)
				}
				for _, i := range before {
					if pop.State(i) != model.Recovered {
						t.Fatalf("step %d: agent %d infected last step is %s", step, i, pop.State(i))
					}
				}
			}
		})
	}
}

func TestVillageIsolationWithoutLeak(t *testing.T) {
	spec := population.Spec{
		Size:            90,
		InitialInfected: 2,
		Topology:        topology.Config{Kind: topology.KindVillages, Villages: 3, InterVillageProbability: 0},
		Vaccination:     population.DefaultVaccination(),
		SeedVillage:     0,
	}
	configs := []Config{
		{Kind: KernelInfectedSweep, Contacts: ContactSampled, ContactsPerStep: 4},
		{Kind: KernelInfectedSweep, Contacts: ContactNeighbors},
		{Kind: KernelRandomPair, PairsPerStep: 30},
	}
	for _, cfg := range configs {
		pop := newPopulation(t, spec, 21)
		k := newKernel(t, cfg, Rates{Beta: 0.9, Gamma: 0.05}, topology.KindVillages)
		src := rng.New(21, 1)
		for step := 0; step < 200; step++ {
			if err := k.Step(pop, src); err != nil {
				t.Fatalf("%s step %d: %v", k.Name(), step, err)
			}
			villages := pop.VillageCounts()
			if villages[1].I != 0 || villages[2].I != 0 || villages[1].R != 0 || villages[2].R != 0 {
				t.Fatalf("%s step %d: infection escaped village 0: %+v", k.Name(), step, villages)
			}
		}
	}
}

func TestLeakReachesOtherVillages(t *testing.T) {
	spec := population.Spec{
		Size:            90,
		InitialInfected: 3,
		Topology:        topology.Config{Kind: topology.KindVillages, Villages: 3, InterVillageProbability: 0.5},
		Vaccination:     population.DefaultVaccination(),
	}
	pop := newPopulation(t, spec, 4)
	k := newKernel(t, Config{Kind: KernelInfectedSweep, Contacts: ContactSampled, ContactsPerStep: 5}, Rates{Beta: 1, Gamma: 0.05}, topology.KindVillages)
	src := rng.New(4, 1)
	for step := 0; step < 30; step++ {
		if err := k.Step(pop, src); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
	}
	villages := pop.VillageCounts()
	if villages[1].S == 30 && villages[2].S == 30 {
		t.Fatalf("expected leakage to reach other villages: %+v", villages)
	}
}

func TestCertainInfectionOnCompleteGraph(t *testing.T) {
	pop := newPopulation(t, specFor(topology.KindComplete, 10, 1), 1)
	k := newKernel(t, DefaultConfig(topology.KindComplete), Rates{Beta: 1, Gamma: 0}, topology.KindComplete)
	if err := k.Step(pop, rng.New(1, 1)); err != nil {
		t.Fatalf("step: %v", err)
	}
	if counts := pop.Counts(); counts.I != 10 {
		t.Fatalf("expected everyone infected after one step, got %+v", counts)
	}
}

func TestNoCascadeWithinStep(t *testing.T) {
	line := population.Spec{
		Size:            9,
		InitialInfected: 1,
		Topology:        topology.Config{Kind: topology.KindLattice, Rows: 1, Cols: 9},
		Vaccination:     population.DefaultVaccination(),
	}
	pop := newPopulation(t, line, 2)
	k := newKernel(t, DefaultConfig(topology.KindLattice), Rates{Beta: 1, Gamma: 0}, topology.KindLattice)
	src := rng.New(2, 1)
	for step := 1; step <= 3; step++ {
		before := pop.Counts().I
		if err := k.Step(pop, src); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		// A line spreads at most one cell per side per step.
		if grown := pop.Counts().I - before; grown > 2 {
			t.Fatalf("step %d: infection cascaded within a step (+%d)", step, grown)
		}
	}
}

func TestVaccinationProtectsTargets(t *testing.T) {
	spec := specFor(topology.KindComplete, 30, 1)
	spec.Vaccination = population.Vaccination{Probability: 1, BetaDivisor: 1e9, GammaMultiplier: 1}
	pop := newPopulation(t, spec, 8)
	k := newKernel(t, DefaultConfig(topology.KindComplete), Rates{Beta: 1, Gamma: 0}, topology.KindComplete)
	src := rng.New(8, 1)
	for step := 0; step < 10; step++ {
		if err := k.Step(pop, src); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
	}
	if counts := pop.Counts(); counts.I > 2 {
		t.Fatalf("expected vaccinated population to resist infection, got %+v", counts)
	}
}

func TestNewRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name  string
		cfg   Config
		rates Rates
	}{
		{name: "beta high", cfg: Config{}, rates: Rates{Beta: 1.1, Gamma: 0.1}},
		{name: "gamma negative", cfg: Config{}, rates: Rates{Beta: 0.1, Gamma: -0.1}},
		{name: "contact mode", cfg: Config{Contacts: "broadcast"}, rates: Rates{Beta: 0.1, Gamma: 0.1}},
		{name: "contacts per step", cfg: Config{ContactsPerStep: -1}, rates: Rates{Beta: 0.1, Gamma: 0.1}},
		{name: "pairs per step", cfg: Config{Kind: KernelRandomPair, PairsPerStep: -2}, rates: Rates{Beta: 0.1, Gamma: 0.1}},
		{name: "kind", cfg: Config{Kind: "gillespie"}, rates: Rates{Beta: 0.1, Gamma: 0.1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg, tc.rates, topology.KindComplete); !errors.Is(err, model.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDefaultConfigPerTopology(t *testing.T) {
	if got := DefaultConfig(topology.KindVillages).Contacts; got != ContactSampled {
		t.Fatalf("villages default contact mode: %s", got)
	}
	if got := DefaultConfig(topology.KindLattice).Contacts; got != ContactNeighbors {
		t.Fatalf("lattice default contact mode: %s", got)
	}
}
