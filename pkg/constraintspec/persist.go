package constraintspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfig is the on-disk, reproducible description of a run: a compiled
// spec's hash, the simulation parameters, and the random seed that together
// deterministically reproduce its scenario sequence and resulting
// portfolio.
type RunConfig struct {
	SpecHash     string    `yaml:"spec_hash" json:"spec_hash"`
	SimParams    SimParams `yaml:"sim_params" json:"sim_params"`
	RandomSeed   int64     `yaml:"random_seed" json:"random_seed"`
	NumScenarios int       `yaml:"num_scenarios" json:"num_scenarios"`
}

// SaveRunConfig writes a RunConfig to a YAML file, the same
// marshal-then-write shape the teacher's config.Save uses.
func SaveRunConfig(rc *RunConfig, path string) error {
	data, err := yaml.Marshal(rc)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run config: %w", err)
	}
	return nil
}

// LoadRunConfig reads a RunConfig back from a YAML file.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config: %w", err)
	}
	var rc RunConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("failed to parse run config: %w", err)
	}
	return &rc, nil
}
