package population

import (
	"fmt"

	"sirsim/internal/model"
	"sirsim/internal/topology"
)

const (
	DefaultVaccineBetaDivisor     = 3.0
	VillageVaccineBetaDivisor     = 2.0
	DefaultVaccineGammaMultiplier = 2.0
)

// Vaccination configures per-agent rate modifiers. A vaccinated susceptible is
// infected with beta/BetaDivisor; a vaccinated infected recovers with
// gamma*GammaMultiplier (capped at 1).
type Vaccination struct {
	Probability     float64 `json:"probability" yaml:"probability"`
	BetaDivisor     float64 `json:"beta_divisor" yaml:"beta_divisor"`
	GammaMultiplier float64 `json:"gamma_multiplier" yaml:"gamma_multiplier"`
	// Villages lists villages whose members are all vaccinated.
	Villages []int `json:"villages,omitempty" yaml:"villages,omitempty"`
}

func DefaultVaccination() Vaccination {
	return Vaccination{
		BetaDivisor:     DefaultVaccineBetaDivisor,
		GammaMultiplier: DefaultVaccineGammaMultiplier,
	}
}

// Spec describes how to build a fresh population for one run.
type Spec struct {
	Size            int             `json:"size" yaml:"size"`
	InitialInfected int             `json:"initial_infected" yaml:"initial_infected"`
	Topology        topology.Config `json:"topology" yaml:"topology"`
	Vaccination     Vaccination     `json:"vaccination" yaml:"vaccination"`
	// SeedVillage is the village receiving the initial infections when the
	// topology is grouped.
	SeedVillage int `json:"seed_village,omitempty" yaml:"seed_village,omitempty"`
}

func (s Spec) Validate() error {
	if s.Size <= 0 {
		return fmt.Errorf("%w: population size must be > 0, got %d", model.ErrInvalidConfig, s.Size)
	}
	if s.InitialInfected < 0 || s.InitialInfected > s.Size {
		return fmt.Errorf("%w: initial infected must be in [0,%d], got %d", model.ErrInvalidConfig, s.Size, s.InitialInfected)
	}
	v := s.Vaccination
	if v.Probability < 0 || v.Probability > 1 {
		return fmt.Errorf("%w: vaccination probability must be in [0,1], got %v", model.ErrInvalidConfig, v.Probability)
	}
	if v.BetaDivisor <= 0 {
		return fmt.Errorf("%w: vaccine beta divisor must be > 0, got %v", model.ErrInvalidConfig, v.BetaDivisor)
	}
	if v.GammaMultiplier < 0 {
		return fmt.Errorf("%w: vaccine gamma multiplier must be >= 0, got %v", model.ErrInvalidConfig, v.GammaMultiplier)
	}
	return nil
}
