package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const sweepsDir = "sweeps"

type SweepKind string

const (
	SweepRates       SweepKind = "rates"
	SweepVaccination SweepKind = "vaccination"
	SweepTopology    SweepKind = "topology"
)

// SweepPoint is one scenario of a sweep and the run that realised it.
type SweepPoint struct {
	Label   string  `json:"label"`
	RunID   string  `json:"run_id"`
	Beta    float64 `json:"beta"`
	Gamma   float64 `json:"gamma"`
	Value   float64 `json:"value,omitempty"`
	Summary Summary `json:"summary"`
}

type SweepRecord struct {
	ID             string       `json:"id"`
	Kind           SweepKind    `json:"kind"`
	Notes          string       `json:"notes,omitempty"`
	StartedAtUTC   string       `json:"started_at_utc,omitempty"`
	CompletedAtUTC string       `json:"completed_at_utc,omitempty"`
	Points         []SweepPoint `json:"points"`
}

func (r SweepRecord) RunIDs() []string {
	ids := make([]string, 0, len(r.Points))
	for _, p := range r.Points {
		ids = append(ids, p.RunID)
	}
	return ids
}

func WriteSweep(baseDir string, record SweepRecord) error {
	if record.ID == "" {
		return fmt.Errorf("sweep id is required")
	}
	path := sweepPath(baseDir, record.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, record)
}

func ReadSweep(baseDir, id string) (SweepRecord, bool, error) {
	if id == "" {
		return SweepRecord{}, false, fmt.Errorf("sweep id is required")
	}
	var record SweepRecord
	ok, err := readJSON(sweepPath(baseDir, id), &record)
	return record, ok, err
}

// ListSweeps returns sweeps newest first; sweeps without a start time sort
// last.
func ListSweeps(baseDir string) ([]SweepRecord, error) {
	root := filepath.Join(baseDir, sweepsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []SweepRecord{}, nil
		}
		return nil, err
	}

	records := make([]SweepRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		var record SweepRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("decode %s: %w", entry.Name(), err)
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		switch {
		case records[i].StartedAtUTC == records[j].StartedAtUTC:
			return records[i].ID < records[j].ID
		case records[i].StartedAtUTC == "":
			return false
		case records[j].StartedAtUTC == "":
			return true
		default:
			return records[i].StartedAtUTC > records[j].StartedAtUTC
		}
	})
	return records, nil
}

func sweepPath(baseDir, id string) string {
	return filepath.Join(baseDir, sweepsDir, id+".json")
}
