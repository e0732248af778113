package scenario

import (
	"fmt"
	"sort"
	"strings"

	"sirsim/internal/epidemic"
	"sirsim/internal/model"
	"sirsim/internal/population"
	"sirsim/internal/sim"
	"sirsim/internal/topology"
)

type Preset struct {
	Name        string
	Description string
	Config      sim.Config
}

// VaccinationSweep is the probability grid the vaccination preset is usually
// swept over.
var VaccinationSweep = []float64{0, 0.25, 0.5, 0.75, 1}

var presets = map[string]Preset{
	"well-mixed": {
		Name:        "well-mixed",
		Description: "N=50 complete graph, one random encounter per step",
		Config: sim.Config{
			Population: population.Spec{
				Size:            50,
				InitialInfected: 1,
				Topology:        topology.Config{Kind: topology.KindComplete},
				Vaccination:     population.DefaultVaccination(),
			},
			Rates:  epidemic.Rates{Beta: 0.5, Gamma: 0.1},
			Kernel: epidemic.Config{Kind: epidemic.KernelRandomPair, PairsPerStep: 1},
			Steps:  2000,
			Runs:   50,
		},
	},
	"vaccination": {
		Name:        "vaccination",
		Description: "well-mixed N=50 with half the population vaccinated (beta/3, 2*gamma)",
		Config: sim.Config{
			Population: population.Spec{
				Size:            50,
				InitialInfected: 1,
				Topology:        topology.Config{Kind: topology.KindComplete},
				Vaccination: population.Vaccination{
					Probability:     0.5,
					BetaDivisor:     population.DefaultVaccineBetaDivisor,
					GammaMultiplier: population.DefaultVaccineGammaMultiplier,
				},
			},
			Rates:  epidemic.Rates{Beta: 0.6, Gamma: 0.1},
			Kernel: epidemic.Config{Kind: epidemic.KernelRandomPair, PairsPerStep: 1},
			Steps:  2000,
			Runs:   10,
		},
	},
	"lattice": {
		Name:        "lattice",
		Description: "10x10 clipped lattice, every infected agent contacts its four neighbours",
		Config: sim.Config{
			Population: population.Spec{
				Size:            100,
				InitialInfected: 1,
				Topology:        topology.Config{Kind: topology.KindLattice, Rows: 10, Cols: 10},
				Vaccination:     population.DefaultVaccination(),
			},
			Rates:  epidemic.Rates{Beta: 0.3, Gamma: 0.1},
			Kernel: epidemic.Config{Kind: epidemic.KernelInfectedSweep},
			Steps:  50,
			Runs:   50,
		},
	},
	"all-to-all": {
		Name:        "all-to-all",
		Description: "N=100 complete graph, every infected agent contacts everyone",
		Config: sim.Config{
			Population: population.Spec{
				Size:            100,
				InitialInfected: 1,
				Topology:        topology.Config{Kind: topology.KindComplete},
				Vaccination:     population.DefaultVaccination(),
			},
			Rates:  epidemic.Rates{Beta: 0.3, Gamma: 0.1},
			Kernel: epidemic.Config{Kind: epidemic.KernelInfectedSweep},
			Steps:  50,
			Runs:   50,
		},
	},
	"villages": {
		Name:        "villages",
		Description: "three villages of 50, 10% of encounters cross villages, outbreak seeded in village 0",
		Config: sim.Config{
			Population: population.Spec{
				Size:            150,
				InitialInfected: 1,
				Topology: topology.Config{
					Kind:                    topology.KindVillages,
					Villages:                3,
					InterVillageProbability: 0.1,
				},
				Vaccination: population.DefaultVaccination(),
			},
			Rates:  epidemic.Rates{Beta: 0.6, Gamma: 0.1},
			Kernel: epidemic.Config{Kind: epidemic.KernelRandomPair, PairsPerStep: 1},
			Steps:  2500,
			Runs:   50,
		},
	},
	"vaccinated-village": {
		Name:        "vaccinated-village",
		Description: "villages preset with village 1 fully vaccinated (beta/2)",
		Config: sim.Config{
			Population: population.Spec{
				Size:            150,
				InitialInfected: 1,
				Topology: topology.Config{
					Kind:                    topology.KindVillages,
					Villages:                3,
					InterVillageProbability: 0.1,
				},
				Vaccination: population.Vaccination{
					BetaDivisor:     population.VillageVaccineBetaDivisor,
					GammaMultiplier: 1,
					Villages:        []int{1},
				},
			},
			Rates:  epidemic.Rates{Beta: 0.6, Gamma: 0.1},
			Kernel: epidemic.Config{Kind: epidemic.KernelRandomPair, PairsPerStep: 1},
			Steps:  2500,
			Runs:   50,
		},
	},
}

// Presets lists the built-in scenarios by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, name := range PresetNames() {
		out = append(out, presets[name])
	}
	return out
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a copy of the named preset's config with seed 42 and a
// single worker.
func Lookup(name string) (sim.Config, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return sim.Config{}, fmt.Errorf("%w: unknown preset %q (have %s)", model.ErrInvalidConfig, name, strings.Join(PresetNames(), ", "))
	}
	cfg := p.Config
	cfg.Label = p.Name
	cfg.Seed = 42
	cfg.Workers = 1
	cfg.Population.Vaccination.Villages = append([]int(nil), p.Config.Population.Vaccination.Villages...)
	return cfg, nil
}
