// Package epidemic implements the per-time-step SIR transition kernels.
package epidemic

import (
	"fmt"
	"strings"

	"sirsim/internal/model"
	"sirsim/internal/population"
	"sirsim/internal/rng"
	"sirsim/internal/topology"
)

type KernelKind string

const (
	// KernelInfectedSweep lets every infected agent contact its neighbours
	// (or sampled partners), then gives every infected agent a recovery draw.
	KernelInfectedSweep KernelKind = "infected-sweep"
	// KernelRandomPair performs a fixed number of random encounters and
	// recovery checks per step, as in classic agent-based mixing models.
	KernelRandomPair KernelKind = "random-pair"
)

type ContactMode string

const (
	ContactNeighbors ContactMode = "neighbors"
	ContactSampled   ContactMode = "sampled"
)

// Rates are the global transition probabilities.
type Rates struct {
	Beta  float64 `json:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

func (r Rates) Validate() error {
	if r.Beta < 0 || r.Beta > 1 {
		return fmt.Errorf("%w: beta must be in [0,1], got %v", model.ErrInvalidConfig, r.Beta)
	}
	if r.Gamma < 0 || r.Gamma > 1 {
		return fmt.Errorf("%w: gamma must be in [0,1], got %v", model.ErrInvalidConfig, r.Gamma)
	}
	return nil
}

type Config struct {
	Kind            KernelKind  `json:"kind" yaml:"kind"`
	Contacts        ContactMode `json:"contacts,omitempty" yaml:"contacts,omitempty"`
	ContactsPerStep int         `json:"contacts_per_step,omitempty" yaml:"contacts_per_step,omitempty"`
	PairsPerStep    int         `json:"pairs_per_step,omitempty" yaml:"pairs_per_step,omitempty"`
}

// DefaultConfig returns the infected-sweep kernel with the per-topology
// contact default: every neighbour once for static topologies, one sampled
// contact per infected agent for villages.
func DefaultConfig(kind topology.Kind) Config {
	cfg := Config{Kind: KernelInfectedSweep, Contacts: ContactNeighbors, ContactsPerStep: 1, PairsPerStep: 1}
	if kind == topology.KindVillages {
		cfg.Contacts = ContactSampled
	}
	return cfg
}

// Kernel advances a population by exactly one time step.
type Kernel interface {
	Name() string
	Step(pop *population.Population, src rng.Source) error
}

// New validates cfg and rates and returns the kernel. Zero-valued fields fall
// back to DefaultConfig for the topology kind.
func New(cfg Config, rates Rates, kind topology.Kind) (Kernel, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	def := DefaultConfig(kind)
	if cfg.Kind == "" {
		cfg.Kind = def.Kind
	}
	if cfg.Contacts == "" {
		cfg.Contacts = def.Contacts
	}
	if cfg.ContactsPerStep == 0 {
		cfg.ContactsPerStep = def.ContactsPerStep
	}
	if cfg.PairsPerStep == 0 {
		cfg.PairsPerStep = def.PairsPerStep
	}

	switch cfg.Kind {
	case KernelInfectedSweep:
		if cfg.Contacts != ContactNeighbors && cfg.Contacts != ContactSampled {
			return nil, fmt.Errorf("%w: unknown contact mode %q", model.ErrInvalidConfig, cfg.Contacts)
		}
		if cfg.ContactsPerStep < 1 {
			return nil, fmt.Errorf("%w: contacts per step must be >= 1, got %d", model.ErrInvalidConfig, cfg.ContactsPerStep)
		}
		return &InfectedSweep{rates: rates, mode: cfg.Contacts, contacts: cfg.ContactsPerStep}, nil
	case KernelRandomPair:
		if cfg.PairsPerStep < 1 {
			return nil, fmt.Errorf("%w: pairs per step must be >= 1, got %d", model.ErrInvalidConfig, cfg.PairsPerStep)
		}
		return &RandomPair{rates: rates, pairs: cfg.PairsPerStep}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kernel %q", model.ErrInvalidConfig, cfg.Kind)
	}
}

// ParseKernelKind accepts the canonical names and underscore variants.
func ParseKernelKind(name string) (KernelKind, error) {
	switch strings.ReplaceAll(strings.TrimSpace(strings.ToLower(name)), "_", "-") {
	case "", "infected-sweep", "sweep":
		return KernelInfectedSweep, nil
	case "random-pair", "pair", "pairwise":
		return KernelRandomPair, nil
	default:
		return "", fmt.Errorf("%w: unknown kernel %q", model.ErrInvalidConfig, name)
	}
}
