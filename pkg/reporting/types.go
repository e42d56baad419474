package reporting

import "time"

// ArtifactKind names one of the four files persisted per run, per spec's
// run_id/{run_config.bin, scenarios.bin, portfolio.json, diagnostics.json}
// layout.
type ArtifactKind string

const (
	ArtifactRunConfig   ArtifactKind = "run_config"
	ArtifactScenarios   ArtifactKind = "scenarios"
	ArtifactPortfolio   ArtifactKind = "portfolio"
	ArtifactDiagnostics ArtifactKind = "diagnostics"
)

// fileExt returns the on-disk extension for a kind: the two structured,
// human-inspectable artifacts are JSON; the two potentially large,
// machine-only ones are gob-encoded binary, matching the .bin/.json split
// spec.md's persisted-state layout names.
func (k ArtifactKind) fileExt() string {
	switch k {
	case ArtifactPortfolio, ArtifactDiagnostics:
		return "json"
	default:
		return "bin"
	}
}

// RunSummary is the lightweight index entry returned by Storage.ListRuns.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
}
