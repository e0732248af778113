package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"sirsim/internal/model"
)

const (
	runIndexFile    = "run_index.json"
	configFile      = "config.json"
	summaryFile     = "summary.json"
	seriesFile      = "series.csv"
	villageFile     = "villages.csv"
	defaultPlotFile = "curves.png"
)

type RunConfig struct {
	RunID                   string  `json:"run_id"`
	Label                   string  `json:"label,omitempty"`
	Topology                string  `json:"topology"`
	Rows                    int     `json:"rows,omitempty"`
	Cols                    int     `json:"cols,omitempty"`
	Wrap                    bool    `json:"wrap,omitempty"`
	Villages                int     `json:"villages,omitempty"`
	InterVillageProbability float64 `json:"inter_village_probability,omitempty"`
	SeedVillage             int     `json:"seed_village,omitempty"`
	Kernel                  string  `json:"kernel"`
	Contacts                string  `json:"contacts,omitempty"`
	ContactsPerStep         int     `json:"contacts_per_step,omitempty"`
	PairsPerStep            int     `json:"pairs_per_step,omitempty"`
	Population              int     `json:"population"`
	InitialInfected         int     `json:"initial_infected"`
	Beta                    float64 `json:"beta"`
	Gamma                   float64 `json:"gamma"`
	VaccinationProbability  float64 `json:"vaccination_probability"`
	VaccineBetaDivisor      float64 `json:"vaccine_beta_divisor"`
	VaccineGammaMultiplier  float64 `json:"vaccine_gamma_multiplier"`
	VaccinatedVillages      []int   `json:"vaccinated_villages,omitempty"`
	Steps                   int     `json:"steps"`
	Runs                    int     `json:"runs"`
	Seed                    int64   `json:"seed"`
	Workers                 int     `json:"workers"`
}

type RunArtifacts struct {
	Config      RunConfig       `json:"config"`
	Summary     Summary         `json:"summary"`
	Mean        []model.Point   `json:"mean"`
	InfectedStd []float64       `json:"infected_std"`
	Villages    [][]model.Point `json:"villages,omitempty"`
}

type RunIndexEntry struct {
	RunID                  string  `json:"run_id"`
	Label                  string  `json:"label,omitempty"`
	Topology               string  `json:"topology"`
	Kernel                 string  `json:"kernel"`
	Population             int     `json:"population"`
	Beta                   float64 `json:"beta"`
	Gamma                  float64 `json:"gamma"`
	VaccinationProbability float64 `json:"vaccination_probability"`
	Steps                  int     `json:"steps"`
	Runs                   int     `json:"runs"`
	Seed                   int64   `json:"seed"`
	Workers                int     `json:"workers"`
	PeakInfected           float64 `json:"peak_infected"`
	AttackRate             float64 `json:"attack_rate"`
	CreatedAtUTC           string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	if err := WriteSeries(runDir, artifacts.Mean, artifacts.InfectedStd); err != nil {
		return "", err
	}
	if len(artifacts.Villages) > 0 {
		if err := WriteVillageSeries(runDir, artifacts.Villages); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory into outDir/<runID>. Optional
// files (village series, rendered plots) are copied when present.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, summaryFile, seriesFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	for _, file := range []string{villageFile, defaultPlotFile} {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	return dst, nil
}

// PlotPath is where a run's default chart is rendered.
func PlotPath(baseDir, runID string) string {
	return filepath.Join(baseDir, runID, defaultPlotFile)
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadSummary(baseDir, runID string) (Summary, bool, error) {
	var summary Summary
	ok, err := readJSON(filepath.Join(baseDir, runID, summaryFile), &summary)
	return summary, ok, err
}

// WriteSeries writes series.csv with columns t,S,I,R,I_std.
func WriteSeries(runDir string, mean []model.Point, infectedStd []float64) error {
	file, err := os.Create(filepath.Join(runDir, seriesFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"t", "S", "I", "R", "I_std"}); err != nil {
		return err
	}
	for t, p := range mean {
		std := 0.0
		if t < len(infectedStd) {
			std = infectedStd[t]
		}
		if err := writer.Write([]string{
			strconv.Itoa(t),
			formatFloat(p.S),
			formatFloat(p.I),
			formatFloat(p.R),
			formatFloat(std),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadSeries(baseDir, runID string) ([]model.Point, []float64, bool, error) {
	rows, ok, err := readCSV(filepath.Join(baseDir, runID, seriesFile), 5)
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	mean := make([]model.Point, 0, len(rows))
	std := make([]float64, 0, len(rows))
	for _, row := range rows {
		mean = append(mean, model.Point{S: row[1], I: row[2], R: row[3]})
		std = append(std, row[4])
	}
	return mean, std, true, nil
}

// WriteVillageSeries writes villages.csv in long form: t,village,S,I,R.
func WriteVillageSeries(runDir string, villages [][]model.Point) error {
	file, err := os.Create(filepath.Join(runDir, villageFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"t", "village", "S", "I", "R"}); err != nil {
		return err
	}
	steps := 0
	if len(villages) > 0 {
		steps = len(villages[0])
	}
	for t := 0; t < steps; t++ {
		for g, series := range villages {
			p := series[t]
			if err := writer.Write([]string{
				strconv.Itoa(t),
				strconv.Itoa(g),
				formatFloat(p.S),
				formatFloat(p.I),
				formatFloat(p.R),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadVillageSeries(baseDir, runID string) ([][]model.Point, bool, error) {
	rows, ok, err := readCSV(filepath.Join(baseDir, runID, villageFile), 5)
	if err != nil || !ok {
		return nil, ok, err
	}
	var villages [][]model.Point
	for _, row := range rows {
		t, g := int(row[0]), int(row[1])
		for len(villages) <= g {
			villages = append(villages, nil)
		}
		if t != len(villages[g]) {
			return nil, false, fmt.Errorf("village series out of order at t=%d village=%d", t, g)
		}
		villages[g] = append(villages[g], model.Point{S: row[2], I: row[3], R: row[4]})
	}
	return villages, true, nil
}

func readCSV(path string, columns int) ([][]float64, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return [][]float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < columns {
		return nil, false, fmt.Errorf("%s header must have at least %d columns", filepath.Base(path), columns)
	}

	rows := make([][]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < columns {
			return nil, false, fmt.Errorf("%s row must have at least %d columns", filepath.Base(path), columns)
		}
		row := make([]float64, columns)
		for i := 0; i < columns; i++ {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, false, err
			}
			row[i] = value
		}
		rows = append(rows, row)
	}
	return rows, true, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
