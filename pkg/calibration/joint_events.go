package calibration

import (
	"fmt"
	"math"

	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
)

// JointEvent is a named predicate over one scenario's realized outcomes,
// paired with the reference frequency it's expected to occur at (e.g. from
// historical data). The dispatch-by-name shape here is adapted from the
// teacher's criterion-type switch in its failure detector.
type JointEvent struct {
	Name              string
	Predicate         func(archetype map[string]scenario.Archetype, outcomes []scenario.DriverOutcome) bool
	ReferenceFrequency float64
}

// EventResult is the per-event evaluation outcome, mirroring the teacher's
// CriterionResult shape (evaluations/failures/message) but scored against a
// reference frequency instead of a pass/fail threshold.
type EventResult struct {
	Name               string
	Evaluations        int
	Occurrences        int
	EmpiricalFrequency float64
	ReferenceFrequency float64
	CalibrationError   float64 // |empirical - reference|
	Message            string
}

// JointEventValidation evaluates each event against every scenario and
// returns a calibration-error table keyed by event name.
func JointEventValidation(archetype map[string]scenario.Archetype, scenarios []scenario.ScenarioComponents, events []JointEvent) map[string]EventResult {
	results := make(map[string]EventResult, len(events))

	for _, ev := range events {
		occurrences := 0
		for _, s := range scenarios {
			if ev.Predicate(archetype, s.Outcomes) {
				occurrences++
			}
		}

		n := len(scenarios)
		freq := 0.0
		if n > 0 {
			freq = float64(occurrences) / float64(n)
		}
		calErr := math.Abs(freq - ev.ReferenceFrequency)

		results[ev.Name] = EventResult{
			Name:               ev.Name,
			Evaluations:        n,
			Occurrences:        occurrences,
			EmpiricalFrequency: freq,
			ReferenceFrequency: ev.ReferenceFrequency,
			CalibrationError:   calErr,
			Message:            fmt.Sprintf("empirical %.4f vs reference %.4f", freq, ev.ReferenceFrequency),
		}
	}

	return results
}

// DominatorWinsEvent builds a JointEvent checking whether any driver tagged
// as a dominator in archetype finished first.
func DominatorWinsEvent(referenceFrequency float64) JointEvent {
	return JointEvent{
		Name:               "dominator_wins",
		ReferenceFrequency: referenceFrequency,
		Predicate: func(archetype map[string]scenario.Archetype, outcomes []scenario.DriverOutcome) bool {
			for _, o := range outcomes {
				if o.FinishPos == 1 && archetype[o.DriverID] == scenario.ArchetypeDominator {
					return true
				}
			}
			return false
		},
	}
}
