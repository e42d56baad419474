package scoring

import (
	"math"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
)

// Coefficients is the resolved set of scoring constants for one
// ConstraintSpec, after applying any ScoringOverride.
type Coefficients struct {
	FinishTable []float64
	Alpha       float64
	Beta        float64
	Gamma       float64
	DNFPenalty  float64
}

// Resolve builds the effective Coefficients for a compiled spec, falling
// back to the package defaults for any field the slate did not override.
func Resolve(cs *constraintspec.ConstraintSpec) Coefficients {
	c := Coefficients{
		FinishTable: FinishTable,
		Alpha:       Alpha,
		Beta:        Beta,
		Gamma:       Gamma,
		DNFPenalty:  DNFPenalty,
	}

	o := cs.Scoring
	if len(o.FinishTable) > 0 {
		c.FinishTable = o.FinishTable
	}
	if o.Alpha != nil {
		c.Alpha = *o.Alpha
	}
	if o.Beta != nil {
		c.Beta = *o.Beta
	}
	if o.Gamma != nil {
		c.Gamma = *o.Gamma
	}
	if o.DNFPenalty != nil {
		c.DNFPenalty = *o.DNFPenalty
	}

	return c
}

// Score computes a single driver's DK fantasy points for one realized
// outcome, given the driver's compiled start position.
func Score(c Coefficients, startPosition int, o scenario.DriverOutcome) float64 {
	points := FinishPoints(c.FinishTable, o.FinishPos)

	placeDiff := c.Alpha * float64(startPosition-o.FinishPos)
	placeDiff = math.Max(-PlaceDiffCap, math.Min(PlaceDiffCap, placeDiff))
	points += placeDiff

	points += c.Beta * float64(o.LapsLed)
	points += c.Gamma * float64(o.FastestLaps)

	if o.DNFLap > 0 {
		points -= c.DNFPenalty
	}

	return points
}

// ScoreLineup sums a lineup's six driver scores for one scenario's outcomes.
func ScoreLineup(c Coefficients, cs *constraintspec.ConstraintSpec, driverIDs []string, outcomes map[string]scenario.DriverOutcome) float64 {
	total := 0.0
	for _, id := range driverIDs {
		dc, ok := cs.DriverByID(id)
		if !ok {
			continue
		}
		o, ok := outcomes[id]
		if !ok {
			continue
		}
		total += Score(c, dc.StartPosition, o)
	}
	return total
}
