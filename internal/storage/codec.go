package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"sirsim/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion stamps a record with the versions this build writes.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeScenario(r model.ScenarioRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeScenario(data []byte) (model.ScenarioRecord, error) {
	var record model.ScenarioRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.ScenarioRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.ScenarioRecord{}, err
	}
	return record, nil
}

func EncodeSeries(s model.SeriesRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSeries(data []byte) (model.SeriesRecord, error) {
	var series model.SeriesRecord
	if err := json.Unmarshal(data, &series); err != nil {
		return model.SeriesRecord{}, err
	}
	if err := checkVersion(series.VersionedRecord); err != nil {
		return model.SeriesRecord{}, err
	}
	return series, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func sortScenarios(records []model.ScenarioRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAtUTC == records[j].CreatedAtUTC {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAtUTC > records[j].CreatedAtUTC
	})
}

func cloneSeries(s model.SeriesRecord) model.SeriesRecord {
	out := s
	out.Mean = append([]model.Point(nil), s.Mean...)
	out.InfectedStd = append([]float64(nil), s.InfectedStd...)
	if s.Villages != nil {
		out.Villages = make([][]model.Point, len(s.Villages))
		for g, series := range s.Villages {
			out.Villages[g] = append([]model.Point(nil), series...)
		}
	}
	return out
}
