// Package population holds the per-run agent state: one compartment and one
// vaccination flag per agent in flat arrays, plus the run's topology.
package population

import (
	"fmt"

	"sirsim/internal/model"
	"sirsim/internal/rng"
	"sirsim/internal/topology"
)

type Population struct {
	topo   topology.Topology
	groups topology.Grouped

	state      []model.Compartment
	next       []model.Compartment
	vaccinated []bool
	staging    bool

	betaDivisor     float64
	gammaMultiplier float64

	infected []int
}

// New builds the topology from spec and a fresh population on it.
func New(spec Spec, src rng.Source) (*Population, error) {
	topo, err := topology.New(spec.Topology, spec.Size)
	if err != nil {
		return nil, err
	}
	return NewWithTopology(spec, topo, src)
}

// NewWithTopology builds a fresh population on an existing topology.
// Topologies are immutable, so one instance can back many runs.
//
// Draw order: initial infections first (partial Fisher-Yates over the seed
// pool), then one vaccination draw per initially susceptible agent in index
// order when Probability > 0. Initially infected agents are never vaccinated.
func NewWithTopology(spec Spec, topo topology.Topology, src rng.Source) (*Population, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if topo.Size() != spec.Size {
		return nil, fmt.Errorf("%w: topology holds %d agents, population is %d", model.ErrInvalidConfig, topo.Size(), spec.Size)
	}

	p := &Population{
		topo:            topo,
		state:           make([]model.Compartment, spec.Size),
		next:            make([]model.Compartment, spec.Size),
		vaccinated:      make([]bool, spec.Size),
		betaDivisor:     spec.Vaccination.BetaDivisor,
		gammaMultiplier: spec.Vaccination.GammaMultiplier,
		infected:        make([]int, 0, spec.Size),
	}
	if grouped, ok := topo.(topology.Grouped); ok {
		p.groups = grouped
	}

	pool, err := p.seedPool(spec)
	if err != nil {
		return nil, err
	}
	if spec.InitialInfected > len(pool) {
		return nil, fmt.Errorf("%w: %d initial infections do not fit in a seed pool of %d", model.ErrInvalidConfig, spec.InitialInfected, len(pool))
	}
	for k := 0; k < spec.InitialInfected; k++ {
		pick := k + src.IntN(len(pool)-k)
		pool[k], pool[pick] = pool[pick], pool[k]
		p.state[pool[k]] = model.Infected
	}

	if err := p.vaccinate(spec.Vaccination, src); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Population) seedPool(spec Spec) ([]int, error) {
	lo, hi := 0, spec.Size
	if p.groups != nil {
		if spec.SeedVillage < 0 || spec.SeedVillage >= p.groups.Groups() {
			return nil, fmt.Errorf("%w: seed village must be in [0,%d), got %d", model.ErrInvalidConfig, p.groups.Groups(), spec.SeedVillage)
		}
		lo, hi = -1, -1
		for i := 0; i < spec.Size; i++ {
			if p.groups.Group(i) != spec.SeedVillage {
				continue
			}
			if lo < 0 {
				lo = i
			}
			hi = i + 1
		}
	}
	pool := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		pool = append(pool, i)
	}
	return pool, nil
}

func (p *Population) vaccinate(v Vaccination, src rng.Source) error {
	whole := make(map[int]bool, len(v.Villages))
	for _, g := range v.Villages {
		if p.groups == nil {
			return fmt.Errorf("%w: vaccinated villages require a village topology", model.ErrInvalidConfig)
		}
		if g < 0 || g >= p.groups.Groups() {
			return fmt.Errorf("%w: vaccinated village must be in [0,%d), got %d", model.ErrInvalidConfig, p.groups.Groups(), g)
		}
		whole[g] = true
	}
	for i := range p.state {
		if p.state[i] != model.Susceptible {
			continue
		}
		if p.groups != nil && whole[p.groups.Group(i)] {
			p.vaccinated[i] = true
			continue
		}
		if v.Probability > 0 && src.Float64() < v.Probability {
			p.vaccinated[i] = true
		}
	}
	return nil
}

func (p *Population) Size() int { return len(p.state) }

func (p *Population) Topology() topology.Topology { return p.topo }

// Groups returns the village count, or 0 when the topology is not grouped.
func (p *Population) Groups() int {
	if p.groups == nil {
		return 0
	}
	return p.groups.Groups()
}

// Group returns the village of agent i, or 0 when the topology is not grouped.
func (p *Population) Group(i int) int {
	if p.groups == nil {
		return 0
	}
	return p.groups.Group(i)
}

// State returns the committed compartment of agent i. During a step this is
// the start-of-step snapshot.
func (p *Population) State(i int) model.Compartment { return p.state[i] }

func (p *Population) States() []model.Compartment {
	return append([]model.Compartment(nil), p.state...)
}

func (p *Population) Vaccinated(i int) bool { return p.vaccinated[i] }

func (p *Population) VaccinatedCount() int {
	n := 0
	for _, v := range p.vaccinated {
		if v {
			n++
		}
	}
	return n
}

// EffectiveBeta is the infection probability for susceptible target j.
func (p *Population) EffectiveBeta(beta float64, j int) float64 {
	if p.vaccinated[j] {
		return beta / p.betaDivisor
	}
	return beta
}

// EffectiveGamma is the recovery probability for infected agent i.
func (p *Population) EffectiveGamma(gamma float64, i int) float64 {
	if !p.vaccinated[i] {
		return gamma
	}
	g := gamma * p.gammaMultiplier
	if g > 1 {
		return 1
	}
	return g
}

// Infected returns the currently infected indices in ascending order. The
// slice is reused by the next call.
func (p *Population) Infected() []int {
	p.infected = p.infected[:0]
	for i, c := range p.state {
		if c == model.Infected {
			p.infected = append(p.infected, i)
		}
	}
	return p.infected
}

func (p *Population) Counts() model.Counts {
	var c model.Counts
	for _, comp := range p.state {
		c.Add(comp)
	}
	return c
}

// VillageCounts returns per-village counts, or nil when not grouped.
func (p *Population) VillageCounts() []model.Counts {
	if p.groups == nil {
		return nil
	}
	out := make([]model.Counts, p.groups.Groups())
	for i, comp := range p.state {
		out[p.groups.Group(i)].Add(comp)
	}
	return out
}

// CheckConservation verifies S+I+R == N.
func (p *Population) CheckConservation() error {
	if total := p.Counts().Total(); total != len(p.state) {
		return fmt.Errorf("%w: compartments sum to %d, population is %d", model.ErrInvariantViolation, total, len(p.state))
	}
	return nil
}
