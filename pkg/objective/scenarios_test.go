package objective_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/objective"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scoring"
)

func testSpec() *constraintspec.ConstraintSpec {
	return &constraintspec.ConstraintSpec{
		Drivers: []constraintspec.DriverConstraint{
			{DriverID: "d1", StartPosition: 5},
			{DriverID: "d2", StartPosition: 10},
		},
	}
}

// TestBuildMatrix_ScoresEveryDriverEveryScenario verifies the matrix has one
// row per scenario and one column per compiled driver, in compiled order.
func TestBuildMatrix_ScoresEveryDriverEveryScenario(t *testing.T) {
	cs := testSpec()
	coeffs := scoring.Resolve(cs)
	scenarios := []scenario.ScenarioComponents{
		{Outcomes: []scenario.DriverOutcome{
			{DriverID: "d1", FinishPos: 1},
			{DriverID: "d2", FinishPos: 2},
		}},
		{Outcomes: []scenario.DriverOutcome{
			{DriverID: "d1", FinishPos: 3},
			{DriverID: "d2", FinishPos: 4},
		}},
	}

	m := objective.BuildMatrix(coeffs, cs, scenarios)
	require.Equal(t, []string{"d1", "d2"}, m.DriverIDs)
	require.Len(t, m.Scores, 2)
	require.Len(t, m.Scores[0], 2)
	require.Greater(t, m.Scores[0][0], m.Scores[1][0]) // d1 finished better in scenario 0
}

// TestBuildMatrix_MissingOutcomeScoresZero verifies a driver absent from a
// scenario's outcomes (should not normally happen, but the realizer's
// contract does not guarantee it) scores zero rather than panicking.
func TestBuildMatrix_MissingOutcomeScoresZero(t *testing.T) {
	cs := testSpec()
	coeffs := scoring.Resolve(cs)
	scenarios := []scenario.ScenarioComponents{
		{Outcomes: []scenario.DriverOutcome{{DriverID: "d1", FinishPos: 1}}},
	}

	m := objective.BuildMatrix(coeffs, cs, scenarios)
	require.Equal(t, 0.0, m.Scores[0][1])
}

// TestColumnIndex verifies lookup and the -1 not-found sentinel.
func TestColumnIndex(t *testing.T) {
	m := &objective.Matrix{DriverIDs: []string{"d1", "d2", "d3"}}
	require.Equal(t, 0, m.ColumnIndex("d1"))
	require.Equal(t, 2, m.ColumnIndex("d3"))
	require.Equal(t, -1, m.ColumnIndex("nope"))
}

// TestLineupScore_SumsSelectedColumns verifies LineupScore sums only the
// requested columns in one scenario row.
func TestLineupScore_SumsSelectedColumns(t *testing.T) {
	m := &objective.Matrix{Scores: [][]float64{{1, 2, 3, 4}}}
	require.Equal(t, 6.0, m.LineupScore(0, []int{1, 3}))
	require.Equal(t, 10.0, m.LineupScore(0, []int{0, 1, 2, 3}))
}
