package portfolio

import (
	"sort"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/emergency"
	"github.com/zax-lab/nascar-dfs-engine/pkg/objective"
	"github.com/zax-lab/nascar-dfs-engine/pkg/solver"
)

// LineupValidator is the subset of kernel.Validator PG needs for its final
// validation pass, kept as an interface so this package doesn't import
// pkg/kernel directly.
type LineupValidator interface {
	Valid(cs *constraintspec.ConstraintSpec, driverIDs []string) (bool, string)
}

// Generate runs the PG loop: repeatedly call LS with refreshed exposure and
// overlap constraints, relaxing the overlap cap on exposure/no-good
// infeasibility, until NumLineups lineups are emitted or the loop must stop
// early.
func Generate(cs *constraintspec.ConstraintSpec, matrix *objective.Matrix, ir *objective.IR, solverParams solver.Problem, params Params, validator LineupValidator, cancel *emergency.Controller) Portfolio {
	exposureCount := make(map[string]int)
	var emitted []Lineup
	var trajectory []ExposureTrajectoryPoint

	overlapCap := params.BaseOverlapCap
	if overlapCap <= 0 {
		overlapCap = 4
	}
	ceiling := params.OverlapCeiling
	if ceiling <= 0 {
		ceiling = overlapCap + 3
	}

	portfolio := Portfolio{Exposure: exposureCount}

	for j := 1; j <= params.NumLineups; j++ {
		if cancel != nil && cancel.Cancelled() {
			portfolio.Incomplete = true
			portfolio.StopReason = "cancelled: " + cancel.Reason()
			break
		}

		forbidden := make(map[string]bool)
		for driverID, cap := range params.ExposureCaps {
			if exposureCount[driverID] >= cap {
				forbidden[driverID] = true
			}
		}

		var res solver.Result
		currentOverlap := overlapCap
		for {
			problem := solverParams
			problem.CS = cs
			problem.Matrix = matrix
			problem.IR = ir
			problem.Extra = solver.Constraints{
				Forbidden:   forbidden,
				OverlapCaps: overlapCapsFor(emitted, currentOverlap),
				NoGoods:     noGoodsFor(emitted),
			}

			res = solver.Solve(problem)
			if res.Status != solver.StatusInfeasible {
				break
			}
			if (res.InfeasibilityClass == solver.InfeasExposure || res.InfeasibilityClass == solver.InfeasNoGoods) && currentOverlap < ceiling {
				currentOverlap++
				continue
			}
			break
		}

		if res.Status == solver.StatusInfeasible {
			portfolio.Incomplete = true
			portfolio.StopClass = res.InfeasibilityClass
			portfolio.StopReason = res.Message
			break
		}

		if valid, reason := validator.Valid(cs, res.DriverIDs); !valid {
			portfolio.Incomplete = true
			portfolio.KernelRejected = true
			portfolio.StopReason = "K.validate_lineup rejected a solver-emitted lineup: " + reason
			break
		}

		totalSalary := 0
		for _, id := range res.DriverIDs {
			if dc, found := cs.DriverByID(id); found {
				totalSalary += dc.Salary
			}
		}

		lineup := Lineup{
			LineupIndex:    j,
			DriverIDs:      res.DriverIDs,
			TotalSalary:    totalSalary,
			ObjectiveValue: res.ObjectiveValue,
			OverlapCap:     currentOverlap,
			Solver: SolverStats{
				Status: res.Status,
				Gap:    res.Gap,
				Time:   res.TimeTaken,
			},
		}
		emitted = append(emitted, lineup)

		for _, id := range res.DriverIDs {
			exposureCount[id]++
		}
		snapshot := make(map[string]int, len(exposureCount))
		for id, c := range exposureCount {
			snapshot[id] = c
		}
		trajectory = append(trajectory, ExposureTrajectoryPoint{LineupIndex: j, Counts: snapshot})
	}

	portfolio.Lineups = emitted
	portfolio.Trajectory = trajectory
	return portfolio
}

func overlapCapsFor(emitted []Lineup, cap int) []solver.OverlapCap {
	caps := make([]solver.OverlapCap, 0, len(emitted))
	for _, l := range emitted {
		caps = append(caps, solver.OverlapCap{Lineup: l.DriverIDs, Max: cap})
	}
	return caps
}

func noGoodsFor(emitted []Lineup) [][]string {
	goods := make([][]string, 0, len(emitted))
	for _, l := range emitted {
		ids := append([]string(nil), l.DriverIDs...)
		sort.Strings(ids)
		goods = append(goods, ids)
	}
	return goods
}
