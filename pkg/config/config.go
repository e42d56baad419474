// Package config loads engine configuration from YAML with environment
// variable expansion, following the same Load/Save/Validate/DefaultConfig
// shape used throughout this codebase's ancestry.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
	Solver     SolverConfig     `yaml:"solver"`
	Run        RunConfig        `yaml:"run"`
	Reporting  ReportingConfig  `yaml:"reporting"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// EngineConfig contains general engine settings.
type EngineConfig struct {
	Version   string `yaml:"version"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ScenarioConfig controls the scenario engine's defaults.
type ScenarioConfig struct {
	// RNGSeedDefault seeds scenario generation when a request omits
	// random_seed.
	RNGSeedDefault int64 `yaml:"rng_seed_default"`

	// Threads is the configured scenario thread count (SCENARIO_THREADS),
	// validated to be at least 1. The scenario engine generates a run's
	// scenarios sequentially on one goroutine; this value does not set or
	// bound its concurrency.
	Threads int `yaml:"scenario_threads"`

	// MaxRegimeResamples caps the bounded regime-resample loop (spec: ~5)
	// before a scenario is rejected as SCENARIO_INFEASIBLE_REGIME.
	MaxRegimeResamples int `yaml:"max_regime_resamples"`

	// MinScenarios is the floor below which the Tail Objective Builder
	// downgrades from a tail objective to an EV surrogate with a warning.
	MinScenarios int `yaml:"min_scenarios"`

	// MaxRejectionRate is the ceiling on kernel-rejected-scenarios /
	// scenarios-attempted before a run aborts with KERNEL_REJECTION_EXCESSIVE
	// (spec: 2%).
	MaxRejectionRate float64 `yaml:"max_rejection_rate"`
}

// SolverConfig controls the lineup solver's resource limits.
type SolverConfig struct {
	TimeLimitMS    int     `yaml:"solver_time_limit_ms"`
	OptimalityGap  float64 `yaml:"optimality_gap"`
	MaxPortfolioRelaxations int `yaml:"max_portfolio_relaxations"`
}

// RunConfig controls run-level timeouts.
type RunConfig struct {
	TimeoutMS int `yaml:"run_timeout_ms"`
}

// ReportingConfig contains output/persistence settings.
type ReportingConfig struct {
	OutputDir string `yaml:"output_dir"`
	KeepLastN int    `yaml:"keep_last_n"`
}

// PrometheusConfig controls the metrics registry listener, when the engine
// is run as a long-lived service rather than a one-shot CLI invocation.
type PrometheusConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns the engine's built-in defaults, used whenever no
// config file is present.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Version:   "v1",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Scenario: ScenarioConfig{
			RNGSeedDefault:     42,
			Threads:            4,
			MaxRegimeResamples: 5,
			MinScenarios:       2000,
			MaxRejectionRate:   0.02,
		},
		Solver: SolverConfig{
			TimeLimitMS:             10_000,
			OptimalityGap:           0.001,
			MaxPortfolioRelaxations: 3,
		},
		Run: RunConfig{
			TimeoutMS: 120_000,
		},
		Reporting: ReportingConfig{
			OutputDir: "./runs",
			KeepLastN: 100,
		},
		Prometheus: PrometheusConfig{
			ListenAddr: ":9090",
		},
	}
}

// Load reads configuration from a YAML file, expanding environment
// variables of the form ${VAR} or $VAR before parsing. If path does not
// exist, DefaultConfig is returned unmodified.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("RNG_SEED_DEFAULT"); v != "" {
		var seed int64
		if _, err := fmt.Sscanf(v, "%d", &seed); err == nil {
			cfg.Scenario.RNGSeedDefault = seed
		}
	}
	if v := os.Getenv("SCENARIO_THREADS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			cfg.Scenario.Threads = n
		}
	}
	if v := os.Getenv("SOLVER_TIME_LIMIT_MS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			cfg.Solver.TimeLimitMS = n
		}
	}
	if v := os.Getenv("RUN_TIMEOUT_MS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			cfg.Run.TimeoutMS = n
		}
	}

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Scenario.Threads < 1 {
		return fmt.Errorf("scenario.scenario_threads must be at least 1")
	}
	if c.Scenario.MinScenarios < 1 {
		return fmt.Errorf("scenario.min_scenarios must be at least 1")
	}
	if c.Scenario.MaxRejectionRate <= 0 || c.Scenario.MaxRejectionRate > 1 {
		return fmt.Errorf("scenario.max_rejection_rate must be in (0,1]")
	}
	if c.Solver.TimeLimitMS < 1 {
		return fmt.Errorf("solver.solver_time_limit_ms must be positive")
	}
	if c.Run.TimeoutMS < 1 {
		return fmt.Errorf("run.run_timeout_ms must be positive")
	}
	if c.Reporting.OutputDir == "" {
		return fmt.Errorf("reporting.output_dir is required")
	}
	return nil
}

// RunTimeout returns the configured run timeout as a duration.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Run.TimeoutMS) * time.Millisecond
}

// SolverTimeLimit returns the per-call solver time budget.
func (c *Config) SolverTimeLimit() time.Duration {
	return time.Duration(c.Solver.TimeLimitMS) * time.Millisecond
}
