package population

import (
	"fmt"

	"sirsim/internal/model"
)

// Begin opens a step: the next-state buffer starts as a copy of the committed
// state. Reads through State keep returning the start-of-step snapshot until
// Commit.
func (p *Population) Begin() {
	copy(p.next, p.state)
	p.staging = true
}

// Stage records agent i's compartment for the next state.
func (p *Population) Stage(i int, c model.Compartment) {
	p.next[i] = c
}

// Staged returns agent i's compartment in the next-state buffer.
func (p *Population) Staged(i int) model.Compartment {
	return p.next[i]
}

// Commit installs the next-state buffer after checking that every agent moved
// along S -> I -> R by at most one stage and that the population is conserved.
func (p *Population) Commit() error {
	if !p.staging {
		return fmt.Errorf("%w: commit without begin", model.ErrInvariantViolation)
	}
	p.staging = false
	for i := range p.next {
		if !model.CanTransition(p.state[i], p.next[i]) {
			return fmt.Errorf("%w: agent %d moved %s -> %s", model.ErrInvariantViolation, i, p.state[i], p.next[i])
		}
	}
	p.state, p.next = p.next, p.state
	return p.CheckConservation()
}
