package sim

import (
	"fmt"

	"github.com/charmbracelet/log"

	"sirsim/internal/epidemic"
	"sirsim/internal/model"
	"sirsim/internal/population"
	"sirsim/internal/topology"
)

// Config describes one scenario: a population spec, rates, kernel, and the
// Monte Carlo run count.
type Config struct {
	Label      string          `json:"label,omitempty" yaml:"label,omitempty"`
	Population population.Spec `json:"population" yaml:"population"`
	Rates      epidemic.Rates  `json:"rates" yaml:"rates"`
	Kernel     epidemic.Config `json:"kernel" yaml:"kernel"`
	Steps      int             `json:"steps" yaml:"steps"`
	Runs       int             `json:"runs" yaml:"runs"`
	Seed       int64           `json:"seed" yaml:"seed"`
	Workers    int             `json:"workers,omitempty" yaml:"workers,omitempty"`
	KeepRuns   bool            `json:"keep_runs,omitempty" yaml:"keep_runs,omitempty"`
	Logger     *log.Logger     `json:"-" yaml:"-"`
	Observe    ObserveFunc     `json:"-" yaml:"-"`
}

// ObserveFunc is called with the committed population at t=0 and after every
// step. With more than one worker it is called concurrently from different
// runs.
type ObserveFunc func(run, step int, pop *population.Population)

// DefaultConfig is the single-infection complete-graph scenario: N=50,
// beta=0.5, gamma=0.1, T=100, M=200, seed 42. Kernel contact settings are
// left zero so the topology's defaults apply.
func DefaultConfig() Config {
	return Config{
		Population: population.Spec{
			Size:            50,
			InitialInfected: 1,
			Topology:        topology.DefaultConfig(topology.KindComplete),
			Vaccination:     population.DefaultVaccination(),
		},
		Rates:   epidemic.Rates{Beta: 0.5, Gamma: 0.1},
		Kernel:  epidemic.Config{Kind: epidemic.KernelInfectedSweep},
		Steps:   100,
		Runs:    200,
		Seed:    42,
		Workers: 1,
	}
}

func (c Config) Validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("%w: steps must be > 0, got %d", model.ErrInvalidConfig, c.Steps)
	}
	if c.Runs < 1 {
		return fmt.Errorf("%w: runs must be >= 1, got %d", model.ErrInvalidConfig, c.Runs)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", model.ErrInvalidConfig, c.Workers)
	}
	if err := c.Rates.Validate(); err != nil {
		return err
	}
	return c.Population.Validate()
}
