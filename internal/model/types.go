package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ScenarioRecord is the persisted description and outcome of one averaged
// simulation (one parameter combination, M runs).
type ScenarioRecord struct {
	VersionedRecord
	ID                     string  `json:"id"`
	Label                  string  `json:"label,omitempty"`
	Topology               string  `json:"topology"`
	Kernel                 string  `json:"kernel"`
	Population             int     `json:"population"`
	InitialInfected        int     `json:"initial_infected"`
	Villages               int     `json:"villages,omitempty"`
	Beta                   float64 `json:"beta"`
	Gamma                  float64 `json:"gamma"`
	VaccinationProbability float64 `json:"vaccination_probability"`
	VaccineBetaDivisor     float64 `json:"vaccine_beta_divisor"`
	Steps                  int     `json:"steps"`
	Runs                   int     `json:"runs"`
	Seed                   int64   `json:"seed"`
	PeakInfected           float64 `json:"peak_infected"`
	PeakStep               int     `json:"peak_step"`
	FinalSusceptible       float64 `json:"final_susceptible"`
	FinalInfected          float64 `json:"final_infected"`
	FinalRecovered         float64 `json:"final_recovered"`
	AttackRate             float64 `json:"attack_rate"`
	HalfInfectedStep       int     `json:"half_infected_step"`
	CreatedAtUTC           string  `json:"created_at_utc"`
}

// SeriesRecord holds the averaged time series of a scenario.
type SeriesRecord struct {
	VersionedRecord
	RunID       string    `json:"run_id"`
	Mean        []Point   `json:"mean"`
	InfectedStd []float64 `json:"infected_std,omitempty"`
	Villages    [][]Point `json:"villages,omitempty"`
}
