package scenario_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"github.com/zax-lab/nascar-dfs-engine/pkg/scenario"
)

// TestDrawRegime_DominatorSetSizeMatchesProfile verifies every draw's
// dominator set has between 1 and 3 distinct drivers, and that the count
// agrees with the drawn dominator_profile: 1 for concentrated, 2 for mixed,
// 3 for fragmented, per spec.md §8 scenario 2.
func TestDrawRegime_DominatorSetSizeMatchesProfile(t *testing.T) {
	fields := testFields(40)
	rng := scenario.NewRNG(2024, 0)

	for i := 0; i < 200; i++ {
		regime := scenario.DrawRegime(rng, scenario.RegimeParams{
			RaceLengthLaps: 200,
			CautionRate:    0.05,
			Archetype:      constraintspec.ArchetypeIntermediate,
			Fields:         fields,
		})

		require.GreaterOrEqual(t, len(regime.Dominators), 1)
		require.LessOrEqual(t, len(regime.Dominators), 3)

		seen := make(map[string]bool, len(regime.Dominators))
		for _, id := range regime.Dominators {
			require.False(t, seen[id], "duplicate dominator %s", id)
			seen[id] = true
		}

		switch regime.DominatorProfile {
		case scenario.DominatorProfileConcentrated:
			require.Len(t, regime.Dominators, 1)
		case scenario.DominatorProfileMixed:
			require.Len(t, regime.Dominators, 2)
		case scenario.DominatorProfileFragmented:
			require.Len(t, regime.Dominators, 3)
		default:
			t.Fatalf("unexpected dominator_profile %q", regime.DominatorProfile)
		}
	}
}

// TestDrawRegime_CautionLapLengthVariesByArchetype verifies
// expected_laps_per_caution is parameterized by track archetype: averaged
// over many draws with the same caution count, a superspeedway burns more
// caution laps per caution than a short track does.
func TestDrawRegime_CautionLapLengthVariesByArchetype(t *testing.T) {
	fields := testFields(10)

	avgLapsPerCaution := func(archetype constraintspec.TrackArchetype) float64 {
		totalCautionLaps, totalCautions := 0, 0
		for i := 0; i < 300; i++ {
			regime := scenario.DrawRegime(scenario.NewRNG(int64(i), i), scenario.RegimeParams{
				RaceLengthLaps: 500,
				CautionRate:    0.08,
				Archetype:      archetype,
				Fields:         fields,
			})
			totalCautionLaps += regime.CautionLaps
			totalCautions += regime.NCautions
		}
		require.Greater(t, totalCautions, 0)
		return float64(totalCautionLaps) / float64(totalCautions)
	}

	superspeedway := avgLapsPerCaution(constraintspec.ArchetypeSuperspeedway)
	shortTrack := avgLapsPerCaution(constraintspec.ArchetypeShortTrack)

	require.Greater(t, superspeedway, shortTrack)
}
