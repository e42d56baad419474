package scenario

import (
	"hash/fnv"
	"math/rand"
)

// SeedFor derives a deterministic RNG seed from a run's random seed and a
// scenario index, so the same (run seed, index) pair always produces the
// same scenario regardless of which goroutine or host generates it.
func SeedFor(runSeed int64, scenarioIndex int) int64 {
	h := fnv.New64a()
	var buf [16]byte
	putInt64(buf[0:8], runSeed)
	putInt64(buf[8:16], int64(scenarioIndex))
	h.Write(buf[:])
	return int64(h.Sum64())
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

// NewRNG builds the deterministic source used by every sampler in one
// scenario's realization. gonum's stat/distuv distributions accept this
// directly via their Src field (rand.Source there resolves to the same
// math/rand.Source interface).
func NewRNG(runSeed int64, scenarioIndex int) *rand.Rand {
	return rand.New(rand.NewSource(SeedFor(runSeed, scenarioIndex)))
}
