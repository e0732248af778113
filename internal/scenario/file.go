// Package scenario loads simulation configs from YAML or JSON files and
// provides the built-in presets.
package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"sirsim/internal/model"
	"sirsim/internal/sim"
)

// document is the on-disk layout: a sim.Config, optionally layered over a
// named preset.
type document struct {
	Preset     string `json:"preset,omitempty" yaml:"preset,omitempty"`
	sim.Config `yaml:",inline"`
}

type format int

const (
	formatYAML format = iota
	formatJSON
)

func formatFor(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".json":
		return formatJSON, nil
	default:
		return 0, fmt.Errorf("%w: unsupported scenario file extension %q (use .yaml, .yml or .json)", model.ErrInvalidConfig, filepath.Ext(path))
	}
}

// Load reads a scenario file. Fields absent from the file keep the values of
// the named preset, or of sim.DefaultConfig when no preset is given. Unknown
// fields are rejected.
func Load(path string) (sim.Config, error) {
	f, err := formatFor(path)
	if err != nil {
		return sim.Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.Config{}, err
	}
	cfg, err := Decode(data, f == formatJSON)
	if err != nil {
		return sim.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a scenario document in JSON (isJSON) or YAML.
func Decode(data []byte, isJSON bool) (sim.Config, error) {
	var head document
	if isJSON {
		if err := json.Unmarshal(data, &head); err != nil {
			return sim.Config{}, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
		}
	} else if err := yaml.Unmarshal(data, &head); err != nil {
		return sim.Config{}, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}

	base := sim.DefaultConfig()
	if head.Preset != "" {
		preset, err := Lookup(head.Preset)
		if err != nil {
			return sim.Config{}, err
		}
		base = preset
	}

	doc := document{Config: base}
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return sim.Config{}, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return sim.Config{}, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
		}
	}
	if err := doc.Config.Validate(); err != nil {
		return sim.Config{}, err
	}
	return doc.Config, nil
}

// Save writes cfg in the format implied by the path's extension.
func Save(path string, cfg sim.Config) error {
	f, err := formatFor(path)
	if err != nil {
		return err
	}
	var data []byte
	switch f {
	case formatJSON:
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	default:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
