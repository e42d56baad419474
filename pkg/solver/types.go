// Package solver implements the Lineup Solver (LS): a from-scratch 0/1
// branch-and-bound search over driver selections. No MILP/ILP library
// (golp, glpk, highs, gonum/optimize has no ILP type) appears anywhere in
// the retrieved example pack, so this is built directly on sort + the
// problem's own feasibility checks rather than an external solver.
package solver

import (
	"time"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/objective"
)

// Status is the outcome of one Solve call.
type Status string

const (
	StatusOptimal            Status = "optimal"
	StatusFeasibleTimeLimit  Status = "feasible_time_limit"
	StatusInfeasible         Status = "infeasible"
)

// InfeasibilityClass classifies why a Solve call found no feasible lineup,
// so pkg/portfolio can decide whether to relax and retry.
type InfeasibilityClass string

const (
	InfeasNone     InfeasibilityClass = ""
	InfeasSalary   InfeasibilityClass = "INFEAS_SALARY"
	InfeasTeamCap  InfeasibilityClass = "INFEAS_TEAM_CAP"
	InfeasExposure InfeasibilityClass = "INFEAS_EXPOSURE"
	InfeasNoGoods  InfeasibilityClass = "INFEAS_NO_GOODS"
)

// OverlapCap bounds how many drivers a candidate lineup may share with one
// previously emitted lineup.
type OverlapCap struct {
	Lineup []string
	Max    int
}

// Constraints carries the portfolio-level additions PG layers on top of
// CS's hard constraints for one Solve call: drivers forbidden this
// iteration (vetoed, or already at their exposure cap), overlap caps
// against specific prior lineups, and no-good cuts against exact prior
// lineups.
type Constraints struct {
	Forbidden   map[string]bool
	OverlapCaps []OverlapCap
	NoGoods     [][]string
}

// Problem is one fully specified Solve call.
type Problem struct {
	CS            *constraintspec.ConstraintSpec
	Matrix        *objective.Matrix
	IR            *objective.IR
	Extra         Constraints
	TimeLimit     time.Duration
	OptimalityGap float64
}

// Result is one Solve call's outcome.
type Result struct {
	Status             Status
	DriverIDs          []string
	ObjectiveValue      float64
	InfeasibilityClass InfeasibilityClass
	Message            string
	NodesExplored      int
	Gap                float64       // 0 unless StatusFeasibleTimeLimit, then the configured Problem.OptimalityGap (no bound is computed)
	TimeTaken          time.Duration
}
