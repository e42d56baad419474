package kernel

import (
	"sort"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
)

// Validator evaluates the pure K predicates and records acceptance /
// rejection counts. It holds no scenario or lineup state of its own beyond
// the counters, so a single Validator is safely shared across the
// concurrent scenario-generation goroutines of one run.
type Validator struct {
	instrumentation *Instrumentation
}

// New creates a Validator backed by its own Instrumentation registry.
func New(instr *Instrumentation) *Validator {
	if instr == nil {
		instr = NewInstrumentation(nil)
	}
	return &Validator{instrumentation: instr}
}

// ValidateState checks a drawn RaceFlowRegime for internal consistency
// before any per-driver components are realized from it.
func (v *Validator) ValidateState(cs *constraintspec.ConstraintSpec, regime scenario.RaceFlowRegime) Result {
	res := v.validateState(cs, regime)
	v.instrumentation.record(res)
	return res
}

func (v *Validator) validateState(cs *constraintspec.ConstraintSpec, regime scenario.RaceFlowRegime) Result {
	if regime.GreenLaps+regime.CautionLaps != regime.RaceLengthLaps {
		return reject(ReasonLapsLedConservation, "green_laps + caution_laps must equal race_length_laps")
	}
	if regime.RaceLengthLaps != cs.Track.RaceLengthLaps {
		return reject(ReasonLapsLedConservation, "regime race length does not match track constraint")
	}
	return ok()
}

// ValidateRealized checks one scenario's fully realized DriverOutcome set
// against the kernel invariants: laps_led conservation, fastest_laps
// budget, and finish-position permutation validity.
func (v *Validator) ValidateRealized(cs *constraintspec.ConstraintSpec, regime scenario.RaceFlowRegime, outcomes []scenario.DriverOutcome) Result {
	res := v.validateRealized(cs, regime, outcomes)
	v.instrumentation.record(res)
	return res
}

func (v *Validator) validateRealized(cs *constraintspec.ConstraintSpec, regime scenario.RaceFlowRegime, outcomes []scenario.DriverOutcome) Result {
	lapsLedSum := 0
	fastestLapsSum := 0
	positions := make([]int, 0, len(outcomes))

	for _, o := range outcomes {
		dc, found := cs.DriverByID(o.DriverID)
		if !found {
			return reject(ReasonPositionPermutation, "outcome references unknown driver_id "+o.DriverID)
		}
		if o.LapsLed < dc.MinLapsLed || o.LapsLed > dc.MaxLapsLed {
			return reject(ReasonLapsLedConservation, "driver "+o.DriverID+" laps_led outside [min,max]")
		}
		lapsLedSum += o.LapsLed
		fastestLapsSum += o.FastestLaps
		positions = append(positions, o.FinishPos)
	}

	if lapsLedSum != regime.RaceLengthLaps {
		return reject(ReasonLapsLedConservation, "sum(laps_led) must equal race_length_laps exactly")
	}
	if fastestLapsSum > regime.GreenLaps {
		return reject(ReasonFastestLapsBudget, "sum(fastest_laps) exceeds green_laps")
	}
	if !isPermutation(positions) {
		return reject(ReasonPositionPermutation, "finish positions are not a permutation of 1..N")
	}

	return ok()
}

// ValidateLineup checks a candidate lineup against the hard constraints:
// exact size, salary cap, per-team cap, and any per-driver veto rules.
func (v *Validator) ValidateLineup(cs *constraintspec.ConstraintSpec, driverIDs []string) Result {
	res := v.validateLineup(cs, driverIDs)
	v.instrumentation.record(res)
	return res
}

func (v *Validator) validateLineup(cs *constraintspec.ConstraintSpec, driverIDs []string) Result {
	if len(driverIDs) != cs.Track.LineupSize {
		return reject(ReasonLineupSize, "lineup does not have exactly lineup_size drivers")
	}

	seen := make(map[string]bool, len(driverIDs))
	salary := 0
	teamCounts := make(map[string]int)

	for _, id := range driverIDs {
		if seen[id] {
			return reject(ReasonLineupSize, "duplicate driver "+id+" in lineup")
		}
		seen[id] = true

		dc, found := cs.DriverByID(id)
		if !found {
			return reject(ReasonLineupSize, "lineup references unknown driver_id "+id)
		}
		if dc.VetoRule != "" {
			return reject(ReasonVetoRule, "driver "+id+" is vetoed: "+dc.VetoRule)
		}

		salary += dc.Salary
		teamCounts[dc.Team]++
	}

	if salary > cs.Track.SalaryCap {
		return reject(ReasonSalaryCap, "lineup salary exceeds salary_cap")
	}
	for team, count := range teamCounts {
		if count > cs.Track.MaxPerTeam {
			return reject(ReasonTeamCap, "team "+team+" exceeds max_per_team")
		}
	}

	return ok()
}

// Valid is a thin adapter over ValidateLineup so pkg/portfolio can depend on
// a small interface instead of importing pkg/kernel directly.
func (v *Validator) Valid(cs *constraintspec.ConstraintSpec, driverIDs []string) (bool, string) {
	res := v.ValidateLineup(cs, driverIDs)
	return res.Valid, string(res.Reason) + ": " + res.Detail
}

// isPermutation reports whether positions is exactly {1, ..., len(positions)}.
func isPermutation(positions []int) bool {
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)
	for i, p := range sorted {
		if p != i+1 {
			return false
		}
	}
	return true
}
