// Package portfolio implements the Portfolio Generator (PG): an iterative
// loop over the Lineup Solver that produces a diversified set of lineups
// under exposure and overlap caps while preserving the tail objective.
package portfolio

import (
	"time"

	"github.com/zax-lab/nascar-dfs-engine/pkg/solver"
)

// SolverStats is the per-lineup solve diagnostic spec.md §6 requires under
// diagnostics.solver_stats.
type SolverStats struct {
	Status solver.Status `json:"status"`
	Gap    float64       `json:"gap"`
	Time   time.Duration `json:"time"`
}

// Lineup is one emitted, already K-validated lineup.
type Lineup struct {
	LineupIndex    int         `json:"lineup_index"`
	DriverIDs      []string    `json:"driver_ids"`
	TotalSalary    int         `json:"total_salary"`
	ObjectiveValue float64     `json:"objective_value"`
	OverlapCap     int         `json:"overlap_cap"`
	Solver         SolverStats `json:"solver_stats"`
}

// ExposureTrajectoryPoint is every driver's running exposure count after a
// given lineup index, for diagnostics.
type ExposureTrajectoryPoint struct {
	LineupIndex int            `json:"lineup_index"`
	Counts      map[string]int `json:"counts"`
}

// Portfolio is the full emitted set plus PG's diagnostics.
type Portfolio struct {
	Lineups     []Lineup                   `json:"lineups"`
	Exposure    map[string]int             `json:"exposure"`
	Trajectory  []ExposureTrajectoryPoint  `json:"trajectory"`
	Incomplete  bool                       `json:"incomplete"`
	StopReason  string                     `json:"stop_reason,omitempty"`
	StopClass   solver.InfeasibilityClass `json:"stop_class,omitempty"`
	// KernelRejected is set when the stop was caused by K.validate_lineup
	// rejecting an LS-emitted lineup rather than by ordinary solver
	// infeasibility or exposure/overlap exhaustion. A solver-emitted
	// lineup failing K's own invariants is a bug, not an expected stop
	// condition, and the caller must fail the run rather than report it
	// as a partial portfolio.
	KernelRejected bool `json:"kernel_rejected,omitempty"`
}

// ExposureCap is one driver's maximum share of the portfolio, as an
// absolute lineup count (ceil(exposure_max_i * N_lineups) is the caller's
// job to compute before building Params).
type ExposureCap struct {
	DriverID string
	Max      int
}

// Params configures one Generate call.
type Params struct {
	NumLineups      int
	BaseOverlapCap  int // typical o = 4
	OverlapCeiling  int // relax +1 up to this ceiling before giving up
	ExposureCaps    map[string]int
}
