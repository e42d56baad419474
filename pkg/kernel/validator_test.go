package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/kernel"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
)

func testSpec() *constraintspec.ConstraintSpec {
	return &constraintspec.ConstraintSpec{
		Track: constraintspec.TrackConstraint{
			RaceLengthLaps: 200,
			SalaryCap:      50000,
			MaxPerTeam:     2,
			LineupSize:     2,
		},
		Drivers: []constraintspec.DriverConstraint{
			{DriverID: "d1", Team: "t1", Salary: 10000, MinLapsLed: 0, MaxLapsLed: 100},
			{DriverID: "d2", Team: "t1", Salary: 9000, MinLapsLed: 0, MaxLapsLed: 100},
			{DriverID: "d3", Team: "t2", Salary: 8000, MinLapsLed: 0, MaxLapsLed: 100, VetoRule: "weather"},
		},
	}
}

func validRegime() scenario.RaceFlowRegime {
	return scenario.RaceFlowRegime{GreenLaps: 180, CautionLaps: 20, RaceLengthLaps: 200}
}

// TestValidateState_AcceptsConsistentRegime verifies a regime whose
// green+caution laps sum to race_length_laps, matching the track, passes.
func TestValidateState_AcceptsConsistentRegime(t *testing.T) {
	v := kernel.New(nil)
	res := v.ValidateState(testSpec(), validRegime())
	require.True(t, res.Valid)
	require.Equal(t, kernel.ReasonOK, res.Reason)
}

// TestValidateState_RejectsLapConservationViolation verifies green+caution
// laps not summing to race_length_laps is rejected.
func TestValidateState_RejectsLapConservationViolation(t *testing.T) {
	v := kernel.New(nil)
	regime := validRegime()
	regime.GreenLaps = 150 // 150+20 != 200
	res := v.ValidateState(testSpec(), regime)
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonLapsLedConservation, res.Reason)
}

// TestValidateState_RejectsTrackMismatch verifies a regime whose race
// length disagrees with the compiled track is rejected even if internally
// self-consistent.
func TestValidateState_RejectsTrackMismatch(t *testing.T) {
	v := kernel.New(nil)
	regime := scenario.RaceFlowRegime{GreenLaps: 90, CautionLaps: 10, RaceLengthLaps: 100}
	res := v.ValidateState(testSpec(), regime)
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonLapsLedConservation, res.Reason)
}

func validOutcomes() []scenario.DriverOutcome {
	return []scenario.DriverOutcome{
		{DriverID: "d1", FinishPos: 1, LapsLed: 100, FastestLaps: 10},
		{DriverID: "d2", FinishPos: 2, LapsLed: 100, FastestLaps: 5},
	}
}

// TestValidateRealized_AcceptsConsistentOutcomes verifies laps_led summing
// to race_length, fastest_laps within green_laps budget, and a valid
// finish-position permutation all pass together.
func TestValidateRealized_AcceptsConsistentOutcomes(t *testing.T) {
	cs := testSpec()
	cs.Drivers = cs.Drivers[:2]
	v := kernel.New(nil)
	res := v.ValidateRealized(cs, validRegime(), validOutcomes())
	require.True(t, res.Valid)
}

// TestValidateRealized_RejectsLapsLedOutOfDriverRange verifies a driver's
// realized laps_led outside its own [min,max] is rejected before the
// aggregate conservation check runs.
func TestValidateRealized_RejectsLapsLedOutOfDriverRange(t *testing.T) {
	cs := testSpec()
	cs.Drivers = cs.Drivers[:2]
	cs.Drivers[0].MaxLapsLed = 50
	v := kernel.New(nil)
	res := v.ValidateRealized(cs, validRegime(), validOutcomes())
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonLapsLedConservation, res.Reason)
}

// TestValidateRealized_RejectsLapsLedConservationViolation verifies the
// cross-driver laps_led sum must equal race_length_laps exactly.
func TestValidateRealized_RejectsLapsLedConservationViolation(t *testing.T) {
	cs := testSpec()
	cs.Drivers = cs.Drivers[:2]
	v := kernel.New(nil)
	outcomes := validOutcomes()
	outcomes[0].LapsLed = 50 // 50+100=150 != 200
	res := v.ValidateRealized(cs, validRegime(), outcomes)
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonLapsLedConservation, res.Reason)
}

// TestValidateRealized_RejectsFastestLapsOverBudget verifies
// sum(fastest_laps) may not exceed the regime's green_laps.
func TestValidateRealized_RejectsFastestLapsOverBudget(t *testing.T) {
	cs := testSpec()
	cs.Drivers = cs.Drivers[:2]
	v := kernel.New(nil)
	regime := validRegime()
	regime.GreenLaps = 10
	outcomes := validOutcomes() // fastest_laps sum = 15 > 10
	res := v.ValidateRealized(cs, regime, outcomes)
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonFastestLapsBudget, res.Reason)
}

// TestValidateRealized_RejectsNonPermutationFinish verifies duplicate or
// out-of-range finish positions are rejected.
func TestValidateRealized_RejectsNonPermutationFinish(t *testing.T) {
	cs := testSpec()
	cs.Drivers = cs.Drivers[:2]
	v := kernel.New(nil)
	outcomes := validOutcomes()
	outcomes[1].FinishPos = 1 // duplicate of outcomes[0]
	res := v.ValidateRealized(cs, validRegime(), outcomes)
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonPositionPermutation, res.Reason)
}

// TestValidateRealized_RejectsUnknownDriver verifies an outcome referencing
// a driver_id absent from the compiled spec is rejected.
func TestValidateRealized_RejectsUnknownDriver(t *testing.T) {
	cs := testSpec()
	cs.Drivers = cs.Drivers[:2]
	v := kernel.New(nil)
	outcomes := validOutcomes()
	outcomes[0].DriverID = "ghost"
	res := v.ValidateRealized(cs, validRegime(), outcomes)
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonPositionPermutation, res.Reason)
}

// TestValidateLineup_AcceptsWithinCaps verifies a correctly sized lineup
// under salary and team caps, with no vetoed drivers, passes.
func TestValidateLineup_AcceptsWithinCaps(t *testing.T) {
	v := kernel.New(nil)
	res := v.ValidateLineup(testSpec(), []string{"d1", "d2"})
	require.True(t, res.Valid)
}

// TestValidateLineup_RejectsWrongSize verifies a lineup not matching
// lineup_size exactly is rejected.
func TestValidateLineup_RejectsWrongSize(t *testing.T) {
	v := kernel.New(nil)
	res := v.ValidateLineup(testSpec(), []string{"d1"})
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonLineupSize, res.Reason)
}

// TestValidateLineup_RejectsDuplicateDriver verifies the same driver_id
// appearing twice is rejected even if the slice length matches.
func TestValidateLineup_RejectsDuplicateDriver(t *testing.T) {
	v := kernel.New(nil)
	res := v.ValidateLineup(testSpec(), []string{"d1", "d1"})
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonLineupSize, res.Reason)
}

// TestValidateLineup_RejectsVetoedDriver verifies a driver with a non-empty
// VetoRule can never appear in a valid lineup.
func TestValidateLineup_RejectsVetoedDriver(t *testing.T) {
	v := kernel.New(nil)
	res := v.ValidateLineup(testSpec(), []string{"d1", "d3"})
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonVetoRule, res.Reason)
}

// TestValidateLineup_RejectsSalaryCapViolation verifies a lineup whose
// combined salary exceeds salary_cap is rejected.
func TestValidateLineup_RejectsSalaryCapViolation(t *testing.T) {
	cs := testSpec()
	cs.Track.SalaryCap = 15000 // d1+d2 = 19000
	v := kernel.New(nil)
	res := v.ValidateLineup(cs, []string{"d1", "d2"})
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonSalaryCap, res.Reason)
}

// TestValidateLineup_RejectsTeamCapViolation verifies a lineup exceeding
// max_per_team for any one team is rejected.
func TestValidateLineup_RejectsTeamCapViolation(t *testing.T) {
	cs := testSpec()
	cs.Track.MaxPerTeam = 1 // d1 and d2 share team t1
	v := kernel.New(nil)
	res := v.ValidateLineup(cs, []string{"d1", "d2"})
	require.False(t, res.Valid)
	require.Equal(t, kernel.ReasonTeamCap, res.Reason)
}

// TestValid_AdapterMatchesValidateLineup verifies the pkg/portfolio-facing
// Valid adapter reports the same verdict as ValidateLineup.
func TestValid_AdapterMatchesValidateLineup(t *testing.T) {
	v := kernel.New(nil)
	ok, _ := v.Valid(testSpec(), []string{"d1", "d2"})
	require.True(t, ok)

	ok, reason := v.Valid(testSpec(), []string{"d1", "d3"})
	require.False(t, ok)
	require.Contains(t, reason, string(kernel.ReasonVetoRule))
}

// TestInstrumentation_CountsAcceptanceAndRejection verifies the shared
// Instrumentation registry tallies both valid and invalid calls, and
// attributes rejections to their reason code.
func TestInstrumentation_CountsAcceptanceAndRejection(t *testing.T) {
	instr := kernel.NewInstrumentation(nil)
	v := kernel.New(instr)

	v.ValidateLineup(testSpec(), []string{"d1", "d2"}) // valid
	v.ValidateLineup(testSpec(), []string{"d1"})       // invalid: wrong size

	require.EqualValues(t, 2, instr.TotalValidated())
	require.EqualValues(t, 1, instr.TotalRejected())
	require.EqualValues(t, 1, instr.RejectionCounts()[kernel.ReasonLineupSize])
}
