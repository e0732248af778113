package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"sirsim/internal/epidemic"
	"sirsim/internal/model"
	"sirsim/internal/topology"
	"sirsim/pkg/sirsim"
)

// scenarioFlags build a scenario from a file, a preset or the defaults, then
// apply only the flags that were set explicitly.
type scenarioFlags struct {
	configPath             *string
	preset                 *string
	label                  *string
	size                   *int
	infected               *int
	topology               *string
	rows                   *int
	cols                   *int
	wrap                   *bool
	villages               *int
	leak                   *float64
	seedVillage            *int
	kernel                 *string
	contacts               *string
	contactsPerStep        *int
	pairsPerStep           *int
	beta                   *float64
	gamma                  *float64
	vaccination            *float64
	vaccineBetaDivisor     *float64
	vaccineGammaMultiplier *float64
	vaccinatedVillages     intList
	steps                  *int
	runs                   *int
	seed                   *int64
	workers                *int
}

func addScenarioFlags(fs *flag.FlagSet) *scenarioFlags {
	def := sirsim.DefaultConfig()
	s := &scenarioFlags{
		configPath:             fs.String("config", "", "scenario file (.yaml, .yml or .json)"),
		preset:                 fs.String("preset", "", "built-in scenario name (see presets)"),
		label:                  fs.String("label", "", "free-form run label"),
		size:                   fs.Int("n", def.Population.Size, "population size"),
		infected:               fs.Int("infected", def.Population.InitialInfected, "initially infected agents"),
		topology:               fs.String("topology", string(topology.KindComplete), "contact topology: complete|lattice|villages"),
		rows:                   fs.Int("rows", 0, "lattice rows (0 derives from n)"),
		cols:                   fs.Int("cols", 0, "lattice columns (0 derives from n)"),
		wrap:                   fs.Bool("wrap", false, "wrap lattice edges into a torus"),
		villages:               fs.Int("villages", topology.DefaultVillages, "village count"),
		leak:                   fs.Float64("leak", topology.DefaultInterVillageProbability, "inter-village contact probability"),
		seedVillage:            fs.Int("seed-village", 0, "village receiving the initial infections"),
		kernel:                 fs.String("kernel", string(def.Kernel.Kind), "step kernel: infected-sweep|random-pair"),
		contacts:               fs.String("contacts", "", "infected-sweep contact mode: neighbors|sampled (default per topology)"),
		contactsPerStep:        fs.Int("contacts-per-step", 1, "sampled contacts per infected agent per step"),
		pairsPerStep:           fs.Int("pairs-per-step", 1, "random-pair encounters per step"),
		beta:                   fs.Float64("beta", def.Rates.Beta, "per-contact infection probability"),
		gamma:                  fs.Float64("gamma", def.Rates.Gamma, "per-step recovery probability"),
		vaccination:            fs.Float64("vaccination", 0, "probability that a susceptible agent is vaccinated"),
		vaccineBetaDivisor:     fs.Float64("vaccine-beta-divisor", def.Population.Vaccination.BetaDivisor, "infection probability divisor for vaccinated agents"),
		vaccineGammaMultiplier: fs.Float64("vaccine-gamma-multiplier", def.Population.Vaccination.GammaMultiplier, "recovery probability multiplier for vaccinated agents"),
		steps:                  fs.Int("steps", def.Steps, "time steps per run"),
		runs:                   fs.Int("runs", def.Runs, "Monte Carlo runs"),
		seed:                   fs.Int64("seed", def.Seed, "rng seed"),
		workers:                fs.Int("workers", def.Workers, "worker count"),
	}
	fs.Var(&s.vaccinatedVillages, "vaccinated-villages", "comma-separated villages whose members are all vaccinated")
	return s
}

func (s *scenarioFlags) build(fs *flag.FlagSet) (sirsim.Config, error) {
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	if *s.configPath != "" && *s.preset != "" {
		return sirsim.Config{}, errors.New("use either --config or --preset, not both")
	}
	cfg := sirsim.DefaultConfig()
	var err error
	switch {
	case *s.configPath != "":
		cfg, err = sirsim.LoadScenario(*s.configPath)
	case *s.preset != "":
		cfg, err = sirsim.Preset(*s.preset)
	}
	if err != nil {
		return sirsim.Config{}, err
	}

	if setFlags["label"] {
		cfg.Label = *s.label
	}
	if setFlags["n"] {
		cfg.Population.Size = *s.size
	}
	if setFlags["infected"] {
		cfg.Population.InitialInfected = *s.infected
	}
	if setFlags["topology"] {
		kind, err := topology.ParseKind(*s.topology)
		if err != nil {
			return sirsim.Config{}, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
		}
		if kind != cfg.Population.Topology.Kind {
			cfg.Population.Topology = topology.DefaultConfig(kind)
			if kind == topology.KindLattice {
				cfg.Population.Topology = topology.Config{Kind: kind}
			}
			cfg.Kernel.Contacts = ""
			if kind != topology.KindVillages {
				cfg.Population.SeedVillage = 0
				cfg.Population.Vaccination.Villages = nil
			}
		}
	}
	topo := &cfg.Population.Topology
	if setFlags["rows"] {
		topo.Rows = *s.rows
	}
	if setFlags["cols"] {
		topo.Cols = *s.cols
	}
	if setFlags["wrap"] {
		topo.Wrap = *s.wrap
	}
	if setFlags["villages"] {
		topo.Villages = *s.villages
	}
	if setFlags["leak"] {
		topo.InterVillageProbability = *s.leak
	}
	if setFlags["seed-village"] {
		cfg.Population.SeedVillage = *s.seedVillage
	}
	if setFlags["kernel"] {
		kind, err := epidemic.ParseKernelKind(*s.kernel)
		if err != nil {
			return sirsim.Config{}, err
		}
		cfg.Kernel.Kind = kind
	}
	if setFlags["contacts"] {
		switch mode := epidemic.ContactMode(strings.ToLower(strings.TrimSpace(*s.contacts))); mode {
		case epidemic.ContactNeighbors, epidemic.ContactSampled:
			cfg.Kernel.Contacts = mode
		default:
			return sirsim.Config{}, fmt.Errorf("%w: unknown contact mode %q", model.ErrInvalidConfig, *s.contacts)
		}
	}
	if setFlags["contacts-per-step"] {
		cfg.Kernel.ContactsPerStep = *s.contactsPerStep
	}
	if setFlags["pairs-per-step"] {
		cfg.Kernel.PairsPerStep = *s.pairsPerStep
	}
	if setFlags["beta"] {
		cfg.Rates.Beta = *s.beta
	}
	if setFlags["gamma"] {
		cfg.Rates.Gamma = *s.gamma
	}
	vac := &cfg.Population.Vaccination
	if setFlags["vaccination"] {
		vac.Probability = *s.vaccination
	}
	if setFlags["vaccine-beta-divisor"] {
		vac.BetaDivisor = *s.vaccineBetaDivisor
	}
	if setFlags["vaccine-gamma-multiplier"] {
		vac.GammaMultiplier = *s.vaccineGammaMultiplier
	}
	if setFlags["vaccinated-villages"] {
		vac.Villages = append([]int(nil), s.vaccinatedVillages...)
	}
	if setFlags["steps"] {
		cfg.Steps = *s.steps
	}
	if setFlags["runs"] {
		cfg.Runs = *s.runs
	}
	if setFlags["seed"] {
		cfg.Seed = *s.seed
	}
	if setFlags["workers"] {
		cfg.Workers = *s.workers
	}
	return cfg, nil
}

// floatList is a comma-separated list of floats; repeated flags append.
type floatList []float64

func (l *floatList) String() string {
	parts := make([]string, 0, len(*l))
	for _, v := range *l {
		parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

func (l *floatList) Set(value string) error {
	for _, part := range splitList(value) {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", part)
		}
		*l = append(*l, v)
	}
	return nil
}

type intList []int

func (l *intList) String() string {
	parts := make([]string, 0, len(*l))
	for _, v := range *l {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(value string) error {
	for _, part := range splitList(value) {
		v, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid integer %q", part)
		}
		*l = append(*l, v)
	}
	return nil
}

func splitList(value string) []string {
	fields := strings.Split(value, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
