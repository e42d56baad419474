package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zax-lab/nascar-dfs-engine/pkg/config"
)

// TestLoad_MissingFileReturnsDefaults verifies Load falls back to
// DefaultConfig when no file exists at path, per the teacher's Load shape.
func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig(), cfg)
}

// TestSaveLoad_RoundTrips verifies a saved config reloads with identical
// field values.
func TestSaveLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	original := config.DefaultConfig()
	original.Scenario.RNGSeedDefault = 1234
	original.Solver.TimeLimitMS = 5000
	original.Reporting.OutputDir = "/tmp/runs"

	require.NoError(t, original.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, original, loaded)
}

// TestLoad_EnvVarsOverrideFileValues verifies the four core-visible env
// vars named in spec.md §6 take precedence over the file's values.
func TestLoad_EnvVarsOverrideFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.DefaultConfig().Save(path))

	t.Setenv("RNG_SEED_DEFAULT", "777")
	t.Setenv("SCENARIO_THREADS", "16")
	t.Setenv("SOLVER_TIME_LIMIT_MS", "9999")
	t.Setenv("RUN_TIMEOUT_MS", "60000")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 777, cfg.Scenario.RNGSeedDefault)
	require.Equal(t, 16, cfg.Scenario.Threads)
	require.Equal(t, 9999, cfg.Solver.TimeLimitMS)
	require.Equal(t, 60000, cfg.Run.TimeoutMS)
}

// TestLoad_ExpandsEnvVarsInFile verifies ${VAR} substitution happens before
// YAML parsing, so a config file can reference the environment.
func TestLoad_ExpandsEnvVarsInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reporting:\n  output_dir: ${RUN_OUTPUT_DIR}\n  keep_last_n: 10\n"), 0644))

	t.Setenv("RUN_OUTPUT_DIR", "/var/dfs/runs")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/dfs/runs", cfg.Reporting.OutputDir)
}

// TestValidate_RejectsInvalidFields verifies Validate catches the
// non-positive fields a YAML file could plausibly set.
func TestValidate_RejectsInvalidFields(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scenario.Threads = 0
	require.Error(t, cfg.Validate())

	cfg = config.DefaultConfig()
	cfg.Solver.TimeLimitMS = 0
	require.Error(t, cfg.Validate())

	cfg = config.DefaultConfig()
	cfg.Reporting.OutputDir = ""
	require.Error(t, cfg.Validate())
}

// TestValidate_AcceptsDefaults verifies the built-in defaults are
// internally consistent.
func TestValidate_AcceptsDefaults(t *testing.T) {
	require.NoError(t, config.DefaultConfig().Validate())
}

// TestSolverTimeLimit_ConvertsMillisecondsToDuration verifies the
// convenience accessor used by pkg/core to size solver.Problem.TimeLimit.
func TestSolverTimeLimit_ConvertsMillisecondsToDuration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Solver.TimeLimitMS = 2500
	require.Equal(t, 2500*1e6, float64(cfg.SolverTimeLimit()))
}
