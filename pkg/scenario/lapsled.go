// Each realizer (laps led, fastest laps, finish position, incidents) is
// dispatched in sequence by Engine, the same per-concern dispatch shape
// the teacher used for per-fault-type injection.
package scenario

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// AllocateLapsLed splits regime.GreenLaps + regime.CautionLaps worth of
// race laps across the field, concentrated on the dominator set via a
// Dirichlet draw, then rounds to integers with largest-remainder
// apportionment so the sum is exact, clamped to each driver's
// [min_laps_led, max_laps_led] with residual reallocation to the remaining
// headroom.
func AllocateLapsLed(rng *rand.Rand, regime RaceFlowRegime, fields []DriverField) map[string]int {
	raceLaps := regime.RaceLengthLaps
	weights := dominatorWeights(fields, regime.Dominators, regime.DominatorProfile)

	shares := dirichlet(rng, weights)
	raw := make([]float64, len(fields))
	for i, s := range shares {
		raw[i] = s * float64(raceLaps)
	}

	allocated := largestRemainderRound(raw, raceLaps)

	result := make(map[string]int, len(fields))
	for i, f := range fields {
		result[f.DriverID] = allocated[i]
	}

	clampAndReallocate(result, fields, raceLaps)
	return result
}

// dominatorShareByProfile is the dominator-set driver's weight relative to
// the 0.5 baseline every other driver gets. A concentrated profile (one
// dominator) hoards laps led more aggressively than a fragmented one (three
// dominators, each with a smaller weight: 6 rather than 14).
var dominatorShareByProfile = map[DominatorProfile]float64{
	DominatorProfileConcentrated: 14.0,
	DominatorProfileMixed:        9.0,
	DominatorProfileFragmented:   6.0,
}

// dominatorWeights gives each dominator-set driver a large shared weight and
// every other driver a small baseline weight, so the Dirichlet draw
// concentrates laps led on the dominator set without zeroing anyone else out.
func dominatorWeights(fields []DriverField, dominators []string, profile DominatorProfile) []float64 {
	isDominator := make(map[string]bool, len(dominators))
	for _, id := range dominators {
		isDominator[id] = true
	}

	share, ok := dominatorShareByProfile[profile]
	if !ok {
		share = 10.0
	}

	weights := make([]float64, len(fields))
	for i, f := range fields {
		if isDominator[f.DriverID] {
			weights[i] = share
		} else {
			weights[i] = 0.5
		}
	}
	return weights
}

// dirichlet draws a Dirichlet(alpha) sample via independent Gamma draws
// normalized to sum to 1 — the standard construction, and the only one
// gonum's distribution set supports directly (it has no Dirichlet type).
func dirichlet(rng *rand.Rand, alpha []float64) []float64 {
	draws := make([]float64, len(alpha))
	for i, a := range alpha {
		g := distuv.Gamma{Alpha: a, Beta: 1.0, Src: rng}
		draws[i] = g.Rand()
	}
	sum := floats.Sum(draws)
	if sum == 0 {
		for i := range draws {
			draws[i] = 1.0 / float64(len(draws))
		}
		return draws
	}
	for i := range draws {
		draws[i] /= sum
	}
	return draws
}

// largestRemainderRound rounds raw values to integers summing exactly to
// total, using the largest-remainder (Hamilton) apportionment method.
func largestRemainderRound(raw []float64, total int) []int {
	floor := make([]int, len(raw))
	remainders := make([]float64, len(raw))
	floorSum := 0

	for i, v := range raw {
		f := int(v)
		floor[i] = f
		remainders[i] = v - float64(f)
		floorSum += f
	}

	deficit := total - floorSum
	order := make([]int, len(raw))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return remainders[order[i]] > remainders[order[j]] })

	for i := 0; i < deficit && i < len(order); i++ {
		floor[order[i]]++
	}

	return floor
}

// clampAndReallocate enforces each driver's [min,max] laps-led bound,
// redistributing any laps taken from over-allocated drivers to
// under-allocated ones until the allocation is feasible or no further
// headroom exists.
func clampAndReallocate(alloc map[string]int, fields []DriverField, total int) {
	bounds := make(map[string][2]int, len(fields))
	for _, f := range fields {
		bounds[f.DriverID] = [2]int{f.MinLapsLed, f.MaxLapsLed}
	}

	for pass := 0; pass < len(fields)+1; pass++ {
		excess := 0
		for id, v := range alloc {
			b := bounds[id]
			if v > b[1] {
				excess += v - b[1]
				alloc[id] = b[1]
			} else if v < b[0] {
				excess -= b[0] - v
				alloc[id] = b[0]
			}
		}
		if excess == 0 {
			break
		}

		ids := make([]string, 0, len(alloc))
		for id := range alloc {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		if excess > 0 {
			for _, id := range ids {
				b := bounds[id]
				headroom := b[1] - alloc[id]
				if headroom <= 0 {
					continue
				}
				take := min(headroom, excess)
				alloc[id] += take
				excess -= take
				if excess == 0 {
					break
				}
			}
		} else {
			need := -excess
			for _, id := range ids {
				b := bounds[id]
				headroom := alloc[id] - b[0]
				if headroom <= 0 {
					continue
				}
				give := min(headroom, need)
				alloc[id] -= give
				need -= give
				if need == 0 {
					break
				}
			}
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
