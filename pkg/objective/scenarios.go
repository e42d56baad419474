package objective

import (
	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scoring"
)

// Matrix is S[N_scenarios][N_drivers] = DK_points, plus the driver_id order
// its columns are indexed by.
type Matrix struct {
	DriverIDs []string
	Scores    [][]float64 // Scores[k][i]
}

// ColumnIndex returns the column index of driverID, or -1 if absent.
func (m *Matrix) ColumnIndex(driverID string) int {
	for i, id := range m.DriverIDs {
		if id == driverID {
			return i
		}
	}
	return -1
}

// LineupScore returns σ_k(L): the summed DK points of the selected drivers
// in scenario k.
func (m *Matrix) LineupScore(k int, columns []int) float64 {
	total := 0.0
	for _, c := range columns {
		total += m.Scores[k][c]
	}
	return total
}

// BuildMatrix scores every driver in every realized scenario under a single
// resolved scoring.Coefficients, producing the scenario matrix TO builds
// objectives from.
func BuildMatrix(coeffs scoring.Coefficients, cs *constraintspec.ConstraintSpec, scenarios []scenario.ScenarioComponents) *Matrix {
	driverIDs := make([]string, len(cs.Drivers))
	startPos := make(map[string]int, len(cs.Drivers))
	for i, d := range cs.Drivers {
		driverIDs[i] = d.DriverID
		startPos[d.DriverID] = d.StartPosition
	}

	scores := make([][]float64, len(scenarios))
	for k, sc := range scenarios {
		byDriver := make(map[string]scenario.DriverOutcome, len(sc.Outcomes))
		for _, o := range sc.Outcomes {
			byDriver[o.DriverID] = o
		}

		row := make([]float64, len(driverIDs))
		for i, id := range driverIDs {
			o, ok := byDriver[id]
			if !ok {
				continue
			}
			row[i] = scoring.Score(coeffs, startPos[id], o)
		}
		scores[k] = row
	}

	return &Matrix{DriverIDs: driverIDs, Scores: scores}
}
