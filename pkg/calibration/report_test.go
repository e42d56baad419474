package calibration_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zax-lab/nascar-dfs-engine/pkg/calibration"
	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/kernel"
)

// TestGenerateReport_WritesMarkdownWithAllSections verifies the rendered
// file contains each section and skips the r_hat/ess lines when the
// convergence method is heuristic rather than mcmc.
func TestGenerateReport_WritesMarkdownWithAllSections(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.md")

	report := calibration.Report{
		RunID:          "run-123",
		GeneratedAt:    time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		TrackArchetype: constraintspec.ArchetypeSuperspeedway,
		MetricsByTarget: map[string]calibration.Metrics{
			"laps_led": {CRPS: 1.25, LogScore: 2.0, Coverage50: 0.5, Coverage80: 0.8, Coverage95: 0.95},
		},
		Events: map[string]calibration.EventResult{
			"dominator_wins": {Name: "dominator_wins", EmpiricalFrequency: 0.42, ReferenceFrequency: 0.4, CalibrationError: 0.02},
		},
		Convergence: calibration.ConvergenceReport{CalibrationMethod: "heuristic"},
		RejectionCounts: map[kernel.ReasonCode]uint64{
			kernel.ReasonOK:           100,
			kernel.ReasonSalaryCap:    3,
		},
	}

	require.NoError(t, calibration.GenerateReport(report, outputPath))

	contents, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	body := string(contents)

	require.Contains(t, body, "run-123")
	require.Contains(t, body, "laps_led")
	require.Contains(t, body, "dominator_wins")
	require.Contains(t, body, "Method: heuristic")
	require.NotContains(t, body, "R-hat:")
	require.Contains(t, body, "Total validations: 103")
	require.Contains(t, body, string(kernel.ReasonSalaryCap))
	require.Contains(t, body, "Track archetype: superspeedway")
}

// TestGenerateReport_IncludesConvergenceStatsForMCMC verifies the r_hat/ess
// lines render when the convergence method is mcmc.
func TestGenerateReport_IncludesConvergenceStatsForMCMC(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.md")

	report := calibration.Report{
		RunID:       "run-456",
		GeneratedAt: time.Now().UTC(),
		Convergence: calibration.ConvergenceReport{CalibrationMethod: "mcmc", RHat: 1.01, ESS: 500},
	}

	require.NoError(t, calibration.GenerateReport(report, outputPath))

	contents, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	body := string(contents)

	require.Contains(t, body, "Method: mcmc")
	require.Contains(t, body, "R-hat:")
	require.Contains(t, body, "ESS:")
}
