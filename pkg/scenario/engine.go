package scenario

import (
	"fmt"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/emergency"
)

// Validator is the subset of kernel.Validator the engine needs, kept as an
// interface here so pkg/scenario doesn't import pkg/kernel directly and
// create a dependency cycle risk as both packages grow.
type Validator interface {
	ValidateState(cs *constraintspec.ConstraintSpec, regime RaceFlowRegime) ValidationResult
	ValidateRealized(cs *constraintspec.ConstraintSpec, regime RaceFlowRegime, outcomes []DriverOutcome) ValidationResult
}

// ValidationResult mirrors kernel.Result's shape without importing it.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// Engine generates scenarios for one run.
type Engine struct {
	MaxRegimeResamples int
}

// NewEngine creates a scenario Engine with the given resample budget.
func NewEngine(maxRegimeResamples int) *Engine {
	if maxRegimeResamples <= 0 {
		maxRegimeResamples = 5
	}
	return &Engine{MaxRegimeResamples: maxRegimeResamples}
}

// GenerateOne realizes a single scenario at scenarioIndex, retrying the
// regime draw up to MaxRegimeResamples times if validation rejects it.
func (e *Engine) GenerateOne(cs *constraintspec.ConstraintSpec, fields []DriverField, paceCorrelation map[string]float64, v Validator, runSeed int64, scenarioIndex int) (ScenarioComponents, error) {
	var lastReason string

	for attempt := 0; attempt <= e.MaxRegimeResamples; attempt++ {
		rng := NewRNG(runSeed, scenarioIndex*1000+attempt)

		regime := DrawRegime(rng, RegimeParams{
			RaceLengthLaps: cs.Track.RaceLengthLaps,
			CautionRate:    cs.Track.CautionRate,
			Archetype:      cs.Track.Archetype,
			Fields:         fields,
		})

		if res := v.ValidateState(cs, regime); !res.Valid {
			lastReason = res.Reason
			continue
		}

		lapsLed := AllocateLapsLed(rng, regime, fields)
		fastestLaps := AllocateFastestLaps(rng, regime, fields, lapsLed, paceCorrelation)
		finish := RealizeFinish(rng, cs.Track.Archetype, fields)
		incidents := RealizeIncidents(rng, regime, fields)
		finish = ApplyDNFDemotion(finish, incidents, fields)

		outcomes := make([]DriverOutcome, 0, len(fields))
		for _, f := range fields {
			ir := incidents[f.DriverID]
			outcomes = append(outcomes, DriverOutcome{
				DriverID:    f.DriverID,
				FinishPos:   finish[f.DriverID],
				LapsLed:     lapsLed[f.DriverID],
				FastestLaps: fastestLaps[f.DriverID],
				Incident:    ir.Incident,
				DNFLap:      ir.DNFLap,
			})
		}

		if res := v.ValidateRealized(cs, regime, outcomes); !res.Valid {
			lastReason = res.Reason
			continue
		}

		return ScenarioComponents{
			ScenarioIndex:   scenarioIndex,
			Regime:          regime,
			Outcomes:        outcomes,
			RegimeResamples: attempt,
		}, nil
	}

	return ScenarioComponents{}, fmt.Errorf("SCENARIO_INFEASIBLE_REGIME: exceeded %d regime resamples, last rejection: %s", e.MaxRegimeResamples, lastReason)
}

// GenerateMany realizes numScenarios scenarios in order, checking for
// cooperative cancellation after each one. On cancellation it returns the
// scenarios generated so far and a nil error, leaving the caller to decide
// whether a partial set is usable.
func (e *Engine) GenerateMany(cs *constraintspec.ConstraintSpec, fields []DriverField, paceCorrelation map[string]float64, v Validator, cancel *emergency.Controller, runSeed int64, numScenarios int) ([]ScenarioComponents, int, error) {
	results := make([]ScenarioComponents, 0, numScenarios)
	rejected := 0

	for i := 0; i < numScenarios; i++ {
		if cancel != nil && cancel.Cancelled() {
			return results, rejected, nil
		}

		sc, err := e.GenerateOne(cs, fields, paceCorrelation, v, runSeed, i)
		if err != nil {
			rejected++
			continue
		}
		results = append(results, sc)
	}

	return results, rejected, nil
}
