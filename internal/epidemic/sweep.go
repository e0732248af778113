package epidemic

import (
	"sirsim/internal/model"
	"sirsim/internal/population"
	"sirsim/internal/rng"
)

// InfectedSweep is the generation kernel: infection decisions for every
// start-of-step infected agent, then recovery decisions for the same agents.
//
// Draw order per step: for each infected i ascending, its contacts in
// neighbour order (or ContactsPerStep sampled partners, each consuming the
// topology's sampling draws) with one uniform draw per susceptible contact;
// then one recovery draw per infected i ascending.
type InfectedSweep struct {
	rates    Rates
	mode     ContactMode
	contacts int
}

func (k *InfectedSweep) Name() string { return string(KernelInfectedSweep) }

func (k *InfectedSweep) Step(pop *population.Population, src rng.Source) error {
	infected := pop.Infected()
	pop.Begin()

	topo := pop.Topology()
	tryInfect := func(j int) {
		if pop.State(j) != model.Susceptible {
			return
		}
		if src.Float64() < pop.EffectiveBeta(k.rates.Beta, j) {
			pop.Stage(j, model.Infected)
		}
	}

	for _, i := range infected {
		switch k.mode {
		case ContactSampled:
			for c := 0; c < k.contacts; c++ {
				if j, ok := topo.SampleContact(i, src); ok {
					tryInfect(j)
				}
			}
		default:
			topo.ForEachNeighbor(i, tryInfect)
		}
	}

	for _, i := range infected {
		if src.Float64() < pop.EffectiveGamma(k.rates.Gamma, i) {
			pop.Stage(i, model.Recovered)
		}
	}

	return pop.Commit()
}
