package scenario

import (
	"math/rand"
	"sort"

)

// AllocateFastestLaps distributes fastest-lap credits across the field by
// sampling each driver a latent clean-air pace score: a weighted blend of
// their laps-led share and independent uniform noise, where the blend
// weight is that driver's pace correlation. A driver with correlation near
// 1 posts fastest laps almost exactly where they led laps; one near 0 posts
// them essentially independent of laps led. The allocation is capped so the
// total never exceeds the regime's green-flag lap count.
func AllocateFastestLaps(rng *rand.Rand, regime RaceFlowRegime, fields []DriverField, lapsLed map[string]int, paceCorrelation map[string]float64) map[string]int {
	budget := regime.GreenLaps / 3 // fastest laps are a minority of green laps
	if budget <= 0 {
		result := make(map[string]int, len(fields))
		for _, f := range fields {
			result[f.DriverID] = 0
		}
		return result
	}

	totalLapsLed := 0
	for _, v := range lapsLed {
		totalLapsLed += v
	}

	latent := make([]float64, len(fields))
	totalLatent := 0.0
	for i, f := range fields {
		corr, ok := paceCorrelation[f.DriverID]
		if !ok {
			corr = DefaultPaceCorrelation[f.Archetype]
		}
		lapsShare := 0.0
		if totalLapsLed > 0 {
			lapsShare = float64(lapsLed[f.DriverID]) / float64(totalLapsLed)
		}
		noise := rng.Float64() / float64(len(fields)) // independent draw on the same order of magnitude as a laps share
		score := corr*lapsShare + (1-corr)*noise
		latent[i] = score + 0.001 // keeps zero-latent drivers eligible for the apportionment
		totalLatent += latent[i]
	}

	raw := make([]float64, len(fields))
	for i, w := range latent {
		raw[i] = w / totalLatent * float64(budget)
	}

	allocated := largestRemainderRound(raw, budget)

	result := make(map[string]int, len(fields))
	for i, f := range fields {
		result[f.DriverID] = allocated[i]
	}

	if sumInts(result) > regime.GreenLaps {
		trimToFit(result, fields, regime.GreenLaps)
	}

	return result
}

func sumInts(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// trimToFit removes excess fastest laps from drivers in descending driver_id
// order, for determinism, until the total fits; laps led is not considered.
func trimToFit(alloc map[string]int, fields []DriverField, cap int) {
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.DriverID)
	}
	sort.Strings(ids)

	excess := sumInts(alloc) - cap
	for i := len(ids) - 1; i >= 0 && excess > 0; i-- {
		id := ids[i]
		take := min(alloc[id], excess)
		alloc[id] -= take
		excess -= take
	}
}
