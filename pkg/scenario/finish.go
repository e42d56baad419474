package scenario

import (
	"math/rand"
	"sort"

	"github.com/zax-lab/nascar-dfs-engine/pkg/constraintspec"
	"gonum.org/v1/gonum/stat/distuv"
)

// noiseStdByArchetype sets each driver archetype's finish-position noise
// standard deviation: dominators finish close to their latent rank more reliably than
// backmarkers, whose finishes are noisier.
var noiseStdByArchetype = map[Archetype]float64{
	ArchetypeDominator:  0.5,
	ArchetypeContender:  1.0,
	ArchetypeMidpack:    1.75,
	ArchetypeBackmarker: 2.5,
}

// trackNoiseMultiplier scales the driver-archetype noise std by the track's
// own archetype: superspeedway pack racing and road-course attrition add
// variance on top of a driver's own consistency, while short tracks (fewer
// passing lanes, the leader controls the pace) dampen it.
var trackNoiseMultiplier = map[constraintspec.TrackArchetype]float64{
	constraintspec.ArchetypeSuperspeedway: 1.6,
	constraintspec.ArchetypeIntermediate:  1.0,
	constraintspec.ArchetypeShortTrack:    0.6,
	constraintspec.ArchetypeRoadCourse:    1.4,
	constraintspec.ArchetypeFlat:          1.0,
}

// RealizeFinish assigns finish positions by perturbing each driver's
// PaceRank with archetype-scaled Gaussian noise — scaled once by the
// driver's own archetype and again by the track's — then competitively
// sorting the perturbed scores into a strict 1..N permutation; ties are
// broken by driver_id for determinism.
func RealizeFinish(rng *rand.Rand, trackArchetype constraintspec.TrackArchetype, fields []DriverField) map[string]int {
	type scored struct {
		id    string
		score float64
	}

	trackMul, ok := trackNoiseMultiplier[trackArchetype]
	if !ok {
		trackMul = 1.0
	}

	scores := make([]scored, len(fields))
	for i, f := range fields {
		std := noiseStdByArchetype[f.Archetype]
		if std == 0 {
			std = 1.5
		}
		std *= trackMul
		noise := distuv.Normal{Mu: 0, Sigma: std, Src: rng}.Rand()
		scores[i] = scored{id: f.DriverID, score: f.PaceRank + noise}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score < scores[j].score
		}
		return scores[i].id < scores[j].id
	})

	result := make(map[string]int, len(fields))
	for i, s := range scores {
		result[s.id] = i + 1
	}
	return result
}
