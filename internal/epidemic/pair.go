package epidemic

import (
	"sirsim/internal/model"
	"sirsim/internal/population"
	"sirsim/internal/rng"
)

// RandomPair performs PairsPerStep encounters per step. Each encounter picks a
// uniform agent a and a partner from the topology; when exactly one of them is
// infected and the other susceptible (start-of-step snapshot) the susceptible
// one is infected with its effective beta. Each encounter is followed by one
// uniform recovery candidate that recovers with its effective gamma if infected.
type RandomPair struct {
	rates Rates
	pairs int
}

func (k *RandomPair) Name() string { return string(KernelRandomPair) }

func (k *RandomPair) Step(pop *population.Population, src rng.Source) error {
	n := pop.Size()
	topo := pop.Topology()
	pop.Begin()

	for p := 0; p < k.pairs; p++ {
		a := src.IntN(n)
		if b, ok := topo.SampleContact(a, src); ok {
			target := -1
			switch {
			case pop.State(a) == model.Infected && pop.State(b) == model.Susceptible:
				target = b
			case pop.State(a) == model.Susceptible && pop.State(b) == model.Infected:
				target = a
			}
			if target >= 0 && src.Float64() < pop.EffectiveBeta(k.rates.Beta, target) {
				pop.Stage(target, model.Infected)
			}
		}

		r := src.IntN(n)
		if pop.State(r) == model.Infected && src.Float64() < pop.EffectiveGamma(k.rates.Gamma, r) {
			pop.Stage(r, model.Recovered)
		}
	}

	return pop.Commit()
}
