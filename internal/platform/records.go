package platform

import (
	"sirsim/internal/epidemic"
	"sirsim/internal/model"
	"sirsim/internal/population"
	"sirsim/internal/sim"
	"sirsim/internal/stats"
	"sirsim/internal/storage"
	"sirsim/internal/topology"
)

// normalizeConfig fills the implicit defaults so that stored configs replay
// to the same kernel.
func normalizeConfig(cfg sim.Config) sim.Config {
	if cfg.Population.Topology.Kind == "" {
		cfg.Population.Topology.Kind = topology.KindComplete
	}
	def := epidemic.DefaultConfig(cfg.Population.Topology.Kind)
	if cfg.Kernel.Kind == "" {
		cfg.Kernel.Kind = def.Kind
	}
	if cfg.Kernel.Contacts == "" {
		cfg.Kernel.Contacts = def.Contacts
	}
	if cfg.Kernel.ContactsPerStep == 0 {
		cfg.Kernel.ContactsPerStep = def.ContactsPerStep
	}
	if cfg.Kernel.PairsPerStep == 0 {
		cfg.Kernel.PairsPerStep = def.PairsPerStep
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg
}

func scenarioRecord(runID string, cfg sim.Config, summary stats.Summary, createdAt string) model.ScenarioRecord {
	return model.ScenarioRecord{
		VersionedRecord:        storage.CurrentVersion(),
		ID:                     runID,
		Label:                  cfg.Label,
		Topology:               string(cfg.Population.Topology.Kind),
		Kernel:                 string(cfg.Kernel.Kind),
		Population:             cfg.Population.Size,
		InitialInfected:        cfg.Population.InitialInfected,
		Villages:               cfg.Population.Topology.Villages,
		Beta:                   cfg.Rates.Beta,
		Gamma:                  cfg.Rates.Gamma,
		VaccinationProbability: cfg.Population.Vaccination.Probability,
		VaccineBetaDivisor:     cfg.Population.Vaccination.BetaDivisor,
		Steps:                  cfg.Steps,
		Runs:                   cfg.Runs,
		Seed:                   cfg.Seed,
		PeakInfected:           summary.PeakInfected,
		PeakStep:               summary.PeakStep,
		FinalSusceptible:       summary.FinalSusceptible,
		FinalInfected:          summary.FinalInfected,
		FinalRecovered:         summary.FinalRecovered,
		AttackRate:             summary.AttackRate,
		HalfInfectedStep:       summary.HalfInfectedStep,
		CreatedAtUTC:           createdAt,
	}
}

func seriesRecord(runID string, result sim.Result) model.SeriesRecord {
	return model.SeriesRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           runID,
		Mean:            result.Mean,
		InfectedStd:     result.InfectedStd,
		Villages:        result.Villages,
	}
}

func runIndexEntry(record model.ScenarioRecord, workers int) stats.RunIndexEntry {
	return stats.RunIndexEntry{
		RunID:                  record.ID,
		Label:                  record.Label,
		Topology:               record.Topology,
		Kernel:                 record.Kernel,
		Population:             record.Population,
		Beta:                   record.Beta,
		Gamma:                  record.Gamma,
		VaccinationProbability: record.VaccinationProbability,
		Steps:                  record.Steps,
		Runs:                   record.Runs,
		Seed:                   record.Seed,
		Workers:                workers,
		PeakInfected:           record.PeakInfected,
		AttackRate:             record.AttackRate,
		CreatedAtUTC:           record.CreatedAtUTC,
	}
}

func runConfig(runID string, cfg sim.Config) stats.RunConfig {
	topo := cfg.Population.Topology
	vac := cfg.Population.Vaccination
	return stats.RunConfig{
		RunID:                   runID,
		Label:                   cfg.Label,
		Topology:                string(topo.Kind),
		Rows:                    topo.Rows,
		Cols:                    topo.Cols,
		Wrap:                    topo.Wrap,
		Villages:                topo.Villages,
		InterVillageProbability: topo.InterVillageProbability,
		SeedVillage:             cfg.Population.SeedVillage,
		Kernel:                  string(cfg.Kernel.Kind),
		Contacts:                string(cfg.Kernel.Contacts),
		ContactsPerStep:         cfg.Kernel.ContactsPerStep,
		PairsPerStep:            cfg.Kernel.PairsPerStep,
		Population:              cfg.Population.Size,
		InitialInfected:         cfg.Population.InitialInfected,
		Beta:                    cfg.Rates.Beta,
		Gamma:                   cfg.Rates.Gamma,
		VaccinationProbability:  vac.Probability,
		VaccineBetaDivisor:      vac.BetaDivisor,
		VaccineGammaMultiplier:  vac.GammaMultiplier,
		VaccinatedVillages:      append([]int(nil), vac.Villages...),
		Steps:                   cfg.Steps,
		Runs:                    cfg.Runs,
		Seed:                    cfg.Seed,
		Workers:                 cfg.Workers,
	}
}

// ConfigFromRun rebuilds the simulation config recorded in a run's
// config.json.
func ConfigFromRun(rc stats.RunConfig) sim.Config {
	return sim.Config{
		Label: rc.Label,
		Population: population.Spec{
			Size:            rc.Population,
			InitialInfected: rc.InitialInfected,
			Topology: topology.Config{
				Kind:                    topology.Kind(rc.Topology),
				Rows:                    rc.Rows,
				Cols:                    rc.Cols,
				Wrap:                    rc.Wrap,
				Villages:                rc.Villages,
				InterVillageProbability: rc.InterVillageProbability,
			},
			Vaccination: population.Vaccination{
				Probability:     rc.VaccinationProbability,
				BetaDivisor:     rc.VaccineBetaDivisor,
				GammaMultiplier: rc.VaccineGammaMultiplier,
				Villages:        append([]int(nil), rc.VaccinatedVillages...),
			},
			SeedVillage: rc.SeedVillage,
		},
		Rates: epidemic.Rates{Beta: rc.Beta, Gamma: rc.Gamma},
		Kernel: epidemic.Config{
			Kind:            epidemic.KernelKind(rc.Kernel),
			Contacts:        epidemic.ContactMode(rc.Contacts),
			ContactsPerStep: rc.ContactsPerStep,
			PairsPerStep:    rc.PairsPerStep,
		},
		Steps:   rc.Steps,
		Runs:    rc.Runs,
		Seed:    rc.Seed,
		Workers: rc.Workers,
	}
}
