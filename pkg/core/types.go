// Package core implements the Core API (CA): the run lifecycle that wires
// together ConstraintSpec compilation, the Scenario Engine, the Tail
// Objective Builder, the Lineup Solver, and the Portfolio Generator behind
// submit_run/get_status/get_result/cancel_run.
package core

import (
	"time"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/objective"
	"github.com/zax-lab/nascar-dfs-engine/pkg/portfolio"
)

// RunStatus is the run's coarse lifecycle state.
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// RunPhase is the run's current stage within StatusRunning.
type RunPhase string

const (
	PhaseCompile  RunPhase = "compile"
	PhaseSimulate RunPhase = "simulate"
	PhaseOptimize RunPhase = "optimize"
	PhaseFinalize RunPhase = "finalize"
)

// SubmitRequest is the input to submit_run.
type SubmitRequest struct {
	Slate          constraintspec.SlateInput
	SimParams      constraintspec.SimParams
	RandomSeed     int64
	NumScenarios   int
	ObjectiveKind  objective.Kind
	TailQ          float64 // q ∈ (0,1); defaults to 0.01 for cvar_upside
	PortfolioSize  int
	ExposureCaps   map[string]float64 // driver_id -> max fraction of lineups
	OverlapCapMax  int                // max shared drivers between any two lineups
}

// RunResult is the terminal, user-visible outcome of a run, shaped after
// spec.md §6's PortfolioResult.
type RunResult struct {
	RunID         string               `json:"run_id"`
	SpecHash      string               `json:"spec_hash,omitempty"`
	Status        RunStatus            `json:"status"`
	StartTime     time.Time            `json:"start_time"`
	EndTime       time.Time            `json:"end_time"`
	Duration      string               `json:"duration"`
	LineupCount   int                  `json:"lineup_count"`
	Partial       bool                 `json:"partial"`
	Portfolio     *portfolio.Portfolio `json:"portfolio,omitempty"`
	Diagnostics   *ResultDiagnostics   `json:"diagnostics,omitempty"`
	FailureReason FailureReason        `json:"failure_reason,omitempty"`
	Message       string               `json:"message,omitempty"`
}

// ResultDiagnostics is the response-facing diagnostics bundle spec.md §6
// names explicitly, derived from the run's internal RunDiagnostics plus
// the objective and portfolio artifacts once a run reaches finalize.
type ResultDiagnostics struct {
	NScenariosGenerated   int                   `json:"n_scenarios_generated"`
	NScenariosAccepted    int                   `json:"n_scenarios_accepted"`
	RejectionRate         float64               `json:"rejection_rate"`
	TopVetoReasons        []VetoReasonCount     `json:"top_veto_reasons,omitempty"`
	TailEffectiveSampleSize int                 `json:"tail_effective_sample_size"`
	Calibration           map[string]CalibrationSummary `json:"calibration,omitempty"`
	ExposureTrajectory    map[string]int        `json:"exposure_trajectory,omitempty"`
}

// VetoReasonCount is one kernel rejection reason and how often it fired,
// truncated to the top 5 per spec.md §6.
type VetoReasonCount struct {
	Reason string `json:"reason"`
	Count  uint64 `json:"count"`
}

// CalibrationSummary is the optional per-track-archetype calibration block.
// The Core API run path does not populate it: SubmitRequest carries no
// calibration input and buildResultDiagnostics never sets it, so it stays
// nil on every RunResult this package produces.
type CalibrationSummary struct {
	CRPS       float64 `json:"crps"`
	LogScore   float64 `json:"log_score"`
	Coverage50 float64 `json:"coverage_50"`
	Coverage80 float64 `json:"coverage_80"`
	Coverage95 float64 `json:"coverage_95"`
}

// RunDiagnostics accumulates the event log and kernel-rejection counters
// produced over the life of a run, persisted as diagnostics.json.
type RunDiagnostics struct {
	RunID             string            `json:"run_id"`
	Events            []DiagnosticEvent `json:"events"`
	ScenariosDrawn    int               `json:"scenarios_drawn"`
	ScenariosRejected int               `json:"scenarios_rejected"`
	RegimeResamples   int               `json:"regime_resamples"`
}

// DiagnosticEvent is one structured entry in a run's audit trail.
type DiagnosticEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Phase     RunPhase  `json:"phase"`
	Message   string    `json:"message"`
}
