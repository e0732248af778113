// Package topology defines who an agent may contact during a time step.
package topology

import (
	"errors"
	"fmt"
	"strings"

	"sirsim/internal/model"
	"sirsim/internal/rng"
)

type Kind string

const (
	KindComplete Kind = "complete"
	KindLattice  Kind = "lattice"
	KindVillages Kind = "villages"
)

var ErrUnknownKind = errors.New("unknown topology kind")

// Topology is immutable for the lifetime of a run. Neighbor sets never
// contain the agent itself and do not depend on randomness; any randomness is
// resolved in SampleContact.
type Topology interface {
	Kind() Kind
	Size() int
	Neighbors(i int) []int
	ForEachNeighbor(i int, fn func(j int))
	// SampleContact draws one contact partner for i. It reports false when i
	// has nobody to contact.
	SampleContact(i int, src rng.Source) (int, bool)
}

// Grouped is implemented by topologies that partition agents into villages.
type Grouped interface {
	Groups() int
	Group(i int) int
}

type Config struct {
	Kind                    Kind    `json:"kind" yaml:"kind"`
	Rows                    int     `json:"rows,omitempty" yaml:"rows,omitempty"`
	Cols                    int     `json:"cols,omitempty" yaml:"cols,omitempty"`
	Wrap                    bool    `json:"wrap,omitempty" yaml:"wrap,omitempty"`
	Villages                int     `json:"villages,omitempty" yaml:"villages,omitempty"`
	InterVillageProbability float64 `json:"inter_village_probability,omitempty" yaml:"inter_village_probability,omitempty"`
}

const (
	DefaultLatticeSide             = 10
	DefaultVillages                = 3
	DefaultInterVillageProbability = 0.1
)

// DefaultConfig returns the per-kind defaults: a clipped 10x10 lattice, or
// three villages with 10% leakage.
func DefaultConfig(kind Kind) Config {
	cfg := Config{Kind: kind}
	switch kind {
	case KindLattice:
		cfg.Rows = DefaultLatticeSide
		cfg.Cols = DefaultLatticeSide
	case KindVillages:
		cfg.Villages = DefaultVillages
		cfg.InterVillageProbability = DefaultInterVillageProbability
	}
	return cfg
}

// ParseKind canonicalizes topology names and common aliases.
func ParseKind(name string) (Kind, error) {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	switch normalized {
	case "complete", "complete-graph", "all-to-all", "all", "well-mixed":
		return KindComplete, nil
	case "lattice", "grid", "lattice-2d":
		return KindLattice, nil
	case "villages", "village", "metapopulation":
		return KindVillages, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// New builds the topology described by cfg for a population of n agents.
func New(cfg Config, n int) (Topology, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: population size must be > 0, got %d", model.ErrInvalidConfig, n)
	}
	switch cfg.Kind {
	case KindComplete, "":
		return NewComplete(n), nil
	case KindLattice:
		rows, cols, err := latticeDims(cfg.Rows, cfg.Cols, n)
		if err != nil {
			return nil, err
		}
		return NewLattice(rows, cols, cfg.Wrap), nil
	case KindVillages:
		return NewVillages(n, cfg.Villages, cfg.InterVillageProbability)
	default:
		return nil, fmt.Errorf("%w: %w: %q", model.ErrInvalidConfig, ErrUnknownKind, cfg.Kind)
	}
}

// latticeDims reconciles grid dimensions with the population size. Missing
// dimensions are derived from n; an explicit mismatch is rejected.
func latticeDims(rows, cols, n int) (int, int, error) {
	if rows < 0 || cols < 0 {
		return 0, 0, fmt.Errorf("%w: lattice dimensions must be >= 0, got %dx%d", model.ErrInvalidConfig, rows, cols)
	}
	switch {
	case rows == 0 && cols == 0:
		side := intSqrt(n)
		if side*side != n {
			return 0, 0, fmt.Errorf("%w: population %d does not tile a square lattice; set rows and cols", model.ErrInvalidConfig, n)
		}
		rows, cols = side, side
	case rows == 0:
		if n%cols != 0 {
			return 0, 0, fmt.Errorf("%w: population %d is not a multiple of %d columns", model.ErrInvalidConfig, n, cols)
		}
		rows = n / cols
	case cols == 0:
		if n%rows != 0 {
			return 0, 0, fmt.Errorf("%w: population %d is not a multiple of %d rows", model.ErrInvalidConfig, n, rows)
		}
		cols = n / rows
	}
	if rows*cols != n {
		return 0, 0, fmt.Errorf("%w: lattice %dx%d holds %d agents, population is %d", model.ErrInvalidConfig, rows, cols, rows*cols, n)
	}
	return rows, cols, nil
}

func intSqrt(n int) int {
	r := 0
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
