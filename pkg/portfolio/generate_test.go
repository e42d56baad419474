package portfolio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/emergency"
	"github.com/zax-lab/nascar-dfs-engine/pkg/objective"
	"github.com/zax-lab/nascar-dfs-engine/pkg/portfolio"
	"github.com/zax-lab/nascar-dfs-engine/pkg/solver"
)

// alwaysValid approves every lineup LS emits, standing in for a
// kernel.Validator whose own invariants are exercised in pkg/kernel.
type alwaysValid struct{}

func (alwaysValid) Valid(cs *constraintspec.ConstraintSpec, driverIDs []string) (bool, string) {
	return true, ""
}

// rejectingValidator fails every lineup, simulating K rejecting a
// solver-emitted lineup so PG must stop rather than emit it.
type rejectingValidator struct{}

func (rejectingValidator) Valid(cs *constraintspec.ConstraintSpec, driverIDs []string) (bool, string) {
	return false, "simulated rejection"
}

func fiveDriverSpec() *constraintspec.ConstraintSpec {
	return &constraintspec.ConstraintSpec{
		Track: constraintspec.TrackConstraint{SalaryCap: 1000000, MaxPerTeam: 5, LineupSize: 2},
		Drivers: []constraintspec.DriverConstraint{
			{DriverID: "d1", Team: "t1", Salary: 1000},
			{DriverID: "d2", Team: "t2", Salary: 1000},
			{DriverID: "d3", Team: "t3", Salary: 1000},
			{DriverID: "d4", Team: "t4", Salary: 1000},
			{DriverID: "d5", Team: "t5", Salary: 1000},
		},
	}
}

func flatMatrix(cs *constraintspec.ConstraintSpec, scores ...float64) *objective.Matrix {
	ids := make([]string, len(cs.Drivers))
	for i, d := range cs.Drivers {
		ids[i] = d.DriverID
	}
	return &objective.Matrix{DriverIDs: ids, Scores: [][]float64{scores}}
}

// TestGenerate_ProducesRequestedLineupCount verifies a generous driver pool
// with no tight caps produces exactly NumLineups distinct lineups.
func TestGenerate_ProducesRequestedLineupCount(t *testing.T) {
	cs := fiveDriverSpec()
	matrix := flatMatrix(cs, 10, 9, 8, 7, 6)
	ir := &objective.IR{Kind: objective.KindExpectedValue}

	pf := portfolio.Generate(cs, matrix, ir, solver.Problem{}, portfolio.Params{
		NumLineups: 3, BaseOverlapCap: 1, OverlapCeiling: 2,
	}, alwaysValid{}, nil)

	require.False(t, pf.Incomplete)
	require.Len(t, pf.Lineups, 3)
	require.Len(t, pf.Trajectory, 3)
	for i, l := range pf.Lineups {
		require.Equal(t, i+1, l.LineupIndex)
	}
}

// TestGenerate_NoGoodExcludesExactRepeat verifies the second lineup is never
// an exact repeat of the first, since every emitted lineup becomes a
// no-good cut for subsequent iterations.
func TestGenerate_NoGoodExcludesExactRepeat(t *testing.T) {
	cs := fiveDriverSpec()
	matrix := flatMatrix(cs, 10, 9, 8, 7, 6)
	ir := &objective.IR{Kind: objective.KindExpectedValue}

	pf := portfolio.Generate(cs, matrix, ir, solver.Problem{}, portfolio.Params{
		NumLineups: 2, BaseOverlapCap: 4, OverlapCeiling: 4,
	}, alwaysValid{}, nil)

	require.False(t, pf.Incomplete)
	require.Len(t, pf.Lineups, 2)
	require.NotEqual(t, pf.Lineups[0].DriverIDs, pf.Lineups[1].DriverIDs)
}

// TestGenerate_ExposureCapForbidsDriver verifies a driver at its exposure
// cap is excluded from subsequent lineups even though it would otherwise
// still be the top scorer.
func TestGenerate_ExposureCapForbidsDriver(t *testing.T) {
	cs := fiveDriverSpec()
	matrix := flatMatrix(cs, 100, 9, 8, 7, 6) // d1 dominates every lineup's score

	ir := &objective.IR{Kind: objective.KindExpectedValue}

	pf := portfolio.Generate(cs, matrix, ir, solver.Problem{}, portfolio.Params{
		NumLineups: 3, BaseOverlapCap: 4, OverlapCeiling: 4,
		ExposureCaps: map[string]int{"d1": 1},
	}, alwaysValid{}, nil)

	require.False(t, pf.Incomplete)
	require.Len(t, pf.Lineups, 3)
	count := 0
	for _, l := range pf.Lineups {
		for _, id := range l.DriverIDs {
			if id == "d1" {
				count++
			}
		}
	}
	require.Equal(t, 1, count)
	require.Equal(t, 1, pf.Exposure["d1"])
}

// TestGenerate_StopsIncompleteWhenPoolExhausted verifies the loop reports
// portfolio_incomplete once the driver pool can no longer support a fresh,
// non-repeating lineup.
func TestGenerate_StopsIncompleteWhenPoolExhausted(t *testing.T) {
	cs := fiveDriverSpec() // only C(5,2)=10 distinct pairs exist
	matrix := flatMatrix(cs, 10, 9, 8, 7, 6)
	ir := &objective.IR{Kind: objective.KindExpectedValue}

	pf := portfolio.Generate(cs, matrix, ir, solver.Problem{}, portfolio.Params{
		NumLineups: 50, BaseOverlapCap: 1, OverlapCeiling: 1,
	}, alwaysValid{}, nil)

	require.True(t, pf.Incomplete)
	require.Less(t, len(pf.Lineups), 50)
	require.NotEmpty(t, pf.StopReason)
}

// TestGenerate_KernelRejection_StopsPortfolio verifies a K.validate_lineup
// rejection on a solver-emitted lineup halts generation rather than
// emitting a lineup K considers invalid.
func TestGenerate_KernelRejection_StopsPortfolio(t *testing.T) {
	cs := fiveDriverSpec()
	matrix := flatMatrix(cs, 10, 9, 8, 7, 6)
	ir := &objective.IR{Kind: objective.KindExpectedValue}

	pf := portfolio.Generate(cs, matrix, ir, solver.Problem{}, portfolio.Params{
		NumLineups: 3, BaseOverlapCap: 4, OverlapCeiling: 4,
	}, rejectingValidator{}, nil)

	require.True(t, pf.Incomplete)
	require.True(t, pf.KernelRejected)
	require.Empty(t, pf.Lineups)
	require.Contains(t, pf.StopReason, "K.validate_lineup rejected")
}

// TestGenerate_CancellationStopsEarly verifies a pre-cancelled controller
// halts the loop before emitting any lineup.
func TestGenerate_CancellationStopsEarly(t *testing.T) {
	cs := fiveDriverSpec()
	matrix := flatMatrix(cs, 10, 9, 8, 7, 6)
	ir := &objective.IR{Kind: objective.KindExpectedValue}

	cancel := emergency.New()
	cancel.Cancel("test cancellation")

	pf := portfolio.Generate(cs, matrix, ir, solver.Problem{}, portfolio.Params{
		NumLineups: 3, BaseOverlapCap: 4, OverlapCeiling: 4,
	}, alwaysValid{}, cancel)

	require.True(t, pf.Incomplete)
	require.Empty(t, pf.Lineups)
	require.Contains(t, pf.StopReason, "cancelled")
}
