package scenario_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/emergency"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
)

// alwaysValid is a scenario.Validator stub that accepts everything, so
// engine tests exercise only the realizers' feasible-by-construction
// allocation, not the kernel's independent checks (those are kernel_test's
// job).
type alwaysValid struct{}

func (alwaysValid) ValidateState(*constraintspec.ConstraintSpec, scenario.RaceFlowRegime) scenario.ValidationResult {
	return scenario.ValidationResult{Valid: true}
}

func (alwaysValid) ValidateRealized(*constraintspec.ConstraintSpec, scenario.RaceFlowRegime, []scenario.DriverOutcome) scenario.ValidationResult {
	return scenario.ValidationResult{Valid: true}
}

func testTrack() constraintspec.TrackConstraint {
	return constraintspec.TrackConstraint{
		Archetype:      constraintspec.ArchetypeIntermediate,
		RaceLengthLaps: 200,
		CautionRate:    0.05,
		SalaryCap:      50000,
		MaxPerTeam:     2,
		LineupSize:     6,
	}
}

func testFields(n int) []scenario.DriverField {
	archetypes := []scenario.Archetype{
		scenario.ArchetypeDominator, scenario.ArchetypeContender,
		scenario.ArchetypeMidpack, scenario.ArchetypeBackmarker,
	}
	fields := make([]scenario.DriverField, n)
	for i := 0; i < n; i++ {
		fields[i] = scenario.DriverField{
			DriverID:      idFor(i),
			Archetype:     archetypes[i%len(archetypes)],
			StartPosition: i + 1,
			ShadowRisk:    0.02 + 0.01*float64(i%5),
			Aggression:    0.3 + 0.05*float64(i%7),
			MinLapsLed:    0,
			MaxLapsLed:    200,
			PaceRank:      float64(i),
		}
	}
	return fields
}

func idFor(i int) string {
	letters := "abcdefghijklmnopqrstuvwxyz"
	return string(letters[i%26]) + string(rune('0'+i/26))
}

func testSpecWithFields(fields []scenario.DriverField) *constraintspec.ConstraintSpec {
	drivers := make([]constraintspec.DriverConstraint, len(fields))
	for i, f := range fields {
		drivers[i] = constraintspec.DriverConstraint{
			DriverID:   f.DriverID,
			MinLapsLed: f.MinLapsLed,
			MaxLapsLed: f.MaxLapsLed,
		}
	}
	return &constraintspec.ConstraintSpec{Track: testTrack(), Drivers: drivers}
}

// TestGenerateOne_ConservesLapsLedExactly verifies the sum of realized
// laps_led always equals race_length_laps, the invariant spec.md §8.1
// requires of every scenario.
func TestGenerateOne_ConservesLapsLedExactly(t *testing.T) {
	fields := testFields(40)
	cs := testSpecWithFields(fields)
	e := scenario.NewEngine(5)

	for idx := 0; idx < 20; idx++ {
		sc, err := e.GenerateOne(cs, fields, nil, alwaysValid{}, 42, idx)
		require.NoError(t, err)

		total := 0
		for _, o := range sc.Outcomes {
			total += o.LapsLed
		}
		require.Equal(t, cs.Track.RaceLengthLaps, total, "scenario %d", idx)
	}
}

// TestGenerateOne_RespectsFastestLapsBudget verifies sum(fastest_laps)
// never exceeds the regime's green_laps.
func TestGenerateOne_RespectsFastestLapsBudget(t *testing.T) {
	fields := testFields(40)
	cs := testSpecWithFields(fields)
	e := scenario.NewEngine(5)

	for idx := 0; idx < 20; idx++ {
		sc, err := e.GenerateOne(cs, fields, nil, alwaysValid{}, 7, idx)
		require.NoError(t, err)

		total := 0
		for _, o := range sc.Outcomes {
			total += o.FastestLaps
		}
		require.LessOrEqual(t, total, sc.Regime.GreenLaps)
	}
}

// TestGenerateOne_FinishIsPermutation verifies finish positions across the
// field form a permutation of [1..field_size] with no duplicates.
func TestGenerateOne_FinishIsPermutation(t *testing.T) {
	fields := testFields(40)
	cs := testSpecWithFields(fields)
	e := scenario.NewEngine(5)

	sc, err := e.GenerateOne(cs, fields, nil, alwaysValid{}, 99, 0)
	require.NoError(t, err)

	positions := make([]int, 0, len(sc.Outcomes))
	for _, o := range sc.Outcomes {
		positions = append(positions, o.FinishPos)
	}
	sort.Ints(positions)
	for i, p := range positions {
		require.Equal(t, i+1, p)
	}
}

// TestGenerateOne_RespectsPerDriverLapsLedBounds verifies every driver's
// realized laps_led stays within its own [min,max] compiled bound.
func TestGenerateOne_RespectsPerDriverLapsLedBounds(t *testing.T) {
	fields := testFields(10)
	fields[0].MinLapsLed = 20
	fields[0].MaxLapsLed = 40
	cs := testSpecWithFields(fields)
	e := scenario.NewEngine(5)

	sc, err := e.GenerateOne(cs, fields, nil, alwaysValid{}, 13, 0)
	require.NoError(t, err)

	for _, o := range sc.Outcomes {
		if o.DriverID == fields[0].DriverID {
			require.GreaterOrEqual(t, o.LapsLed, 20)
			require.LessOrEqual(t, o.LapsLed, 40)
		}
	}
}

// TestGenerateOne_Deterministic verifies identical (run seed, scenario
// index) inputs produce byte-identical outcomes, per spec.md §8.7.
func TestGenerateOne_Deterministic(t *testing.T) {
	fields := testFields(30)
	cs := testSpecWithFields(fields)
	e := scenario.NewEngine(5)

	a, err := e.GenerateOne(cs, fields, nil, alwaysValid{}, 555, 3)
	require.NoError(t, err)
	b, err := e.GenerateOne(cs, fields, nil, alwaysValid{}, 555, 3)
	require.NoError(t, err)

	require.Equal(t, a, b)
}

// TestGenerateMany_StopsOnCancellation verifies GenerateMany acknowledges
// cancellation within one scenario boundary and returns the partial set.
func TestGenerateMany_StopsOnCancellation(t *testing.T) {
	fields := testFields(20)
	cs := testSpecWithFields(fields)
	e := scenario.NewEngine(5)

	cancel := emergency.New()
	cancel.Cancel("stop")

	scenarios, rejected, err := e.GenerateMany(cs, fields, nil, alwaysValid{}, cancel, 1, 1000)
	require.NoError(t, err)
	require.Empty(t, scenarios)
	require.Equal(t, 0, rejected)
}

// TestGenerateMany_GeneratesAscendingScenarioIndices verifies scenarios are
// produced in ascending scenario_index order.
func TestGenerateMany_GeneratesAscendingScenarioIndices(t *testing.T) {
	fields := testFields(20)
	cs := testSpecWithFields(fields)
	e := scenario.NewEngine(5)

	scenarios, rejected, err := e.GenerateMany(cs, fields, nil, alwaysValid{}, nil, 3, 15)
	require.NoError(t, err)
	require.Equal(t, 0, rejected)
	require.Len(t, scenarios, 15)
	for i, sc := range scenarios {
		require.Equal(t, i, sc.ScenarioIndex)
	}
}
