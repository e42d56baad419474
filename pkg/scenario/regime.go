package scenario

import (
	"math"
	"math/rand"
	"sort"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultPaceCorrelation is the archetype-keyed pace-correlation table used
// when a run's sim_params doesn't override it — spec.md's Open Question on
// this constant (see DESIGN.md for the decision).
var DefaultPaceCorrelation = map[Archetype]float64{
	ArchetypeDominator:  0.85,
	ArchetypeContender:  0.55,
	ArchetypeMidpack:    0.25,
	ArchetypeBackmarker: 0.05,
}

// cautionLapLengthByArchetype is expected_laps_per_caution: how many laps a
// single caution period burns under caution-flag speed, which depends on
// track size and layout far more than on caution frequency itself.
// Superspeedways and road courses run long caution periods (pack racing,
// debris cleanup over a longer circuit); short tracks and flat tracks clear
// cautions fastest.
var cautionLapLengthByArchetype = map[constraintspec.TrackArchetype]int{
	constraintspec.ArchetypeSuperspeedway: 6,
	constraintspec.ArchetypeIntermediate:  5,
	constraintspec.ArchetypeShortTrack:    3,
	constraintspec.ArchetypeRoadCourse:    5,
	constraintspec.ArchetypeFlat:          4,
}

// dominatorProfilePriorByArchetype gives each track archetype a
// probability distribution over {concentrated, mixed, fragmented}.
// Superspeedway pack racing spreads laps led across whoever threads the
// draft, so fragmented is most likely there; short tracks and intermediate
// ovals let one strong car check out, so concentrated dominates.
var dominatorProfilePriorByArchetype = map[constraintspec.TrackArchetype][3]float64{
	// [concentrated, mixed, fragmented]
	constraintspec.ArchetypeSuperspeedway: {0.10, 0.30, 0.60},
	constraintspec.ArchetypeIntermediate:  {0.45, 0.35, 0.20},
	constraintspec.ArchetypeShortTrack:    {0.55, 0.30, 0.15},
	constraintspec.ArchetypeRoadCourse:    {0.35, 0.40, 0.25},
	constraintspec.ArchetypeFlat:          {0.40, 0.35, 0.25},
}

var defaultDominatorProfilePrior = [3]float64{0.35, 0.35, 0.30}

// RegimeParams are the track-level inputs to DrawRegime.
type RegimeParams struct {
	RaceLengthLaps int
	CautionRate    float64
	Archetype      constraintspec.TrackArchetype
	Fields         []DriverField
}

// DrawRegime samples one RaceFlowRegime: the number of caution-flag laps
// (via a Gamma-Poisson negative-binomial mixture, clamped to the spec's
// bound), the resulting green-flag lap count, a pit strategy label, and the
// dominator set drawn from the fastest-pace drivers, all parameterized by
// the track's archetype.
func DrawRegime(rng *rand.Rand, p RegimeParams) RaceFlowRegime {
	meanCautions := float64(p.RaceLengthLaps) * p.CautionRate
	maxCautions := int(math.Ceil(float64(p.RaceLengthLaps) * 2 * p.CautionRate))

	nCautions := sampleNegBinCautions(rng, meanCautions, maxCautions)
	cautionLaps := nCautions * cautionLapLength(p.Archetype)
	if cautionLaps > p.RaceLengthLaps {
		cautionLaps = p.RaceLengthLaps
	}
	greenLaps := p.RaceLengthLaps - cautionLaps

	strategy := pitStrategyFor(nCautions)
	profile, dominators := selectDominators(rng, p.Archetype, p.Fields)

	return RaceFlowRegime{
		NCautions:        nCautions,
		CautionLaps:      cautionLaps,
		GreenLaps:        greenLaps,
		PitStrategy:      strategy,
		DominatorProfile: profile,
		Dominators:       dominators,
		RaceLengthLaps:   p.RaceLengthLaps,
	}
}

// sampleNegBinCautions draws n_cautions via a Gamma-Poisson mixture
// (equivalent to a negative binomial with the given mean and moderate
// overdispersion) and clamps to [0, maxCautions].
func sampleNegBinCautions(rng *rand.Rand, mean float64, maxCautions int) int {
	if mean <= 0 {
		return 0
	}
	const dispersion = 2.0 // shape parameter; lower = more overdispersed
	gamma := distuv.Gamma{Alpha: dispersion, Beta: dispersion / mean, Src: rng}
	lambda := gamma.Rand()
	pois := distuv.Poisson{Lambda: lambda, Src: rng}
	n := int(math.Round(pois.Rand()))

	if n < 0 {
		n = 0
	}
	if n > maxCautions {
		n = maxCautions
	}
	return n
}

// cautionLapLength is expected_laps_per_caution for the given track
// archetype, falling back to the intermediate default for an archetype not
// in the table.
func cautionLapLength(archetype constraintspec.TrackArchetype) int {
	if n, ok := cautionLapLengthByArchetype[archetype]; ok {
		return n
	}
	return cautionLapLengthByArchetype[constraintspec.ArchetypeIntermediate]
}

func pitStrategyFor(nCautions int) PitStrategy {
	switch {
	case nCautions == 0:
		return PitStrategyGreenFlagCycleOrDefault()
	case nCautions <= 2:
		return PitStrategyStageBreak
	default:
		return PitStrategyCautionBunched
	}
}

// PitStrategyGreenFlagCycleOrDefault names the zero-caution case explicitly
// so pitStrategyFor's switch reads as a total function over nCautions.
func PitStrategyGreenFlagCycleOrDefault() PitStrategy {
	return PitStrategyGreenFlag
}

// selectDominators draws a dominator_profile from the track archetype's
// prior over {concentrated, mixed, fragmented} and picks that many drivers
// (1, 2, or 3) from the fastest-pace end of the field to form the
// dominator set.
func selectDominators(rng *rand.Rand, archetype constraintspec.TrackArchetype, fields []DriverField) (DominatorProfile, []string) {
	prior, ok := dominatorProfilePriorByArchetype[archetype]
	if !ok {
		prior = defaultDominatorProfilePrior
	}

	profile, n := drawDominatorProfile(rng, prior)
	if n > len(fields) {
		n = len(fields)
	}

	sorted := append([]DriverField(nil), fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PaceRank < sorted[j].PaceRank })

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, sorted[i].DriverID)
	}
	return profile, ids
}

// drawDominatorProfile samples a profile from prior = [P(concentrated),
// P(mixed), P(fragmented)] and returns it alongside the dominator-set size
// it implies: 1 for concentrated, 2 for mixed, 3 for fragmented.
func drawDominatorProfile(rng *rand.Rand, prior [3]float64) (DominatorProfile, int) {
	u := rng.Float64()
	switch {
	case u < prior[0]:
		return DominatorProfileConcentrated, 1
	case u < prior[0]+prior[1]:
		return DominatorProfileMixed, 2
	default:
		return DominatorProfileFragmented, 3
	}
}
