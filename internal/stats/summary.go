package stats

import (
	"fmt"
	"math"

	"sirsim/internal/model"
)

// Summary condenses a mean S/I/R series into headline numbers.
type Summary struct {
	RunID            string  `json:"run_id,omitempty"`
	Population       int     `json:"population"`
	Steps            int     `json:"steps"`
	PeakInfected     float64 `json:"peak_infected"`
	PeakStep         int     `json:"peak_step"`
	FinalSusceptible float64 `json:"final_susceptible"`
	FinalInfected    float64 `json:"final_infected"`
	FinalRecovered   float64 `json:"final_recovered"`
	AttackRate       float64 `json:"attack_rate"`
	// HalfInfectedStep is the first t where mean I+R reaches N/2, or -1.
	HalfInfectedStep int     `json:"half_infected_step"`
	MeanInfectedStd  float64 `json:"mean_infected_std"`
}

// Summarize computes the summary of a mean series over a population of size
// agents. The earliest step wins ties for the peak.
func Summarize(mean []model.Point, infectedStd []float64, size int) (Summary, error) {
	if len(mean) == 0 {
		return Summary{}, fmt.Errorf("series must not be empty")
	}
	if size <= 0 {
		return Summary{}, fmt.Errorf("population size must be > 0, got %d", size)
	}
	out := Summary{
		Population:       size,
		Steps:            len(mean) - 1,
		PeakInfected:     mean[0].I,
		HalfInfectedStep: -1,
	}
	half := float64(size) / 2
	for t, p := range mean {
		if p.I > out.PeakInfected {
			out.PeakInfected = p.I
			out.PeakStep = t
		}
		if out.HalfInfectedStep < 0 && p.I+p.R >= half {
			out.HalfInfectedStep = t
		}
	}
	final := mean[len(mean)-1]
	out.FinalSusceptible = final.S
	out.FinalInfected = final.I
	out.FinalRecovered = final.R
	out.AttackRate = final.R / float64(size)
	if len(infectedStd) > 0 {
		out.MeanInfectedStd, _ = Avg(infectedStd)
	}
	return out, nil
}

func Avg(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values)), nil
}

// Std returns population standard deviation.
func Std(values []float64) (float64, error) {
	mean, err := Avg(values)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, value := range values {
		diff := mean - value
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values))), nil
}

// Column extracts one compartment from a series.
func Column(series []model.Point, c model.Compartment) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		switch c {
		case model.Susceptible:
			out[i] = p.S
		case model.Infected:
			out[i] = p.I
		case model.Recovered:
			out[i] = p.R
		}
	}
	return out
}
