package scenario

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// IncidentResult is one driver's incident outcome before finish-position
// demotion is applied.
type IncidentResult struct {
	Incident bool
	DNF      bool
	DNFLap   int
}

// RealizeIncidents draws a Bernoulli incident indicator per driver, with
// probability scaled by the driver's shadow_risk and aggression and the
// regime's caution density (more cautions correlate with more incidents
// league-wide). A fraction of incidents escalate to a DNF at a lap drawn
// uniformly within the race.
func RealizeIncidents(rng *rand.Rand, regime RaceFlowRegime, fields []DriverField) map[string]IncidentResult {
	cautionDensity := 0.0
	if regime.RaceLengthLaps > 0 {
		cautionDensity = float64(regime.CautionLaps) / float64(regime.RaceLengthLaps)
	}

	result := make(map[string]IncidentResult, len(fields))
	for _, f := range fields {
		p := f.ShadowRisk * (0.5 + 0.5*f.Aggression) * (1.0 + cautionDensity)
		if p > 0.95 {
			p = 0.95
		}
		if p < 0 {
			p = 0
		}

		incident := (distuv.Bernoulli{P: p, Src: rng}).Rand() == 1

		ir := IncidentResult{Incident: incident}
		if incident {
			dnfProb := 0.3 + 0.3*f.Aggression
			if (distuv.Bernoulli{P: dnfProb, Src: rng}).Rand() == 1 {
				ir.DNF = true
				ir.DNFLap = 1 + rng.Intn(regime.RaceLengthLaps)
			}
		}
		result[f.DriverID] = ir
	}
	return result
}

// ApplyDNFDemotion pushes every DNF driver to the back of the finishing
// order, ordered among themselves by DNF lap (earlier DNF finishes worse),
// preserving the relative order of drivers who finished the race.
func ApplyDNFDemotion(finish map[string]int, incidents map[string]IncidentResult, fields []DriverField) map[string]int {
	type entry struct {
		id     string
		finish int
		dnf    bool
		dnfLap int
	}

	entries := make([]entry, 0, len(fields))
	for _, f := range fields {
		ir := incidents[f.DriverID]
		entries = append(entries, entry{id: f.DriverID, finish: finish[f.DriverID], dnf: ir.DNF, dnfLap: ir.DNFLap})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.dnf != b.dnf {
			return !a.dnf // finishers sort before DNFs
		}
		if a.dnf && b.dnf {
			if a.dnfLap != b.dnfLap {
				return a.dnfLap < b.dnfLap // earlier DNF finishes worse (later in order) -- see below
			}
			return a.id < b.id
		}
		return a.finish < b.finish
	})

	// Drivers who DNF'd earlier should finish worse, so reverse the DNF
	// sub-ordering within the tail of the field.
	dnfStart := 0
	for i, e := range entries {
		if !e.dnf {
			dnfStart = i + 1
		}
	}
	for i, j := dnfStart, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	result := make(map[string]int, len(entries))
	for i, e := range entries {
		result[e.id] = i + 1
	}
	return result
}
