package objective

import (
	"fmt"
	"sort"
)

// Params configures one TO build.
type Params struct {
	Kind         Kind
	Quantile     float64 // q, e.g. 0.25 for "top 25%"
	Threshold    float64 // T, used by chance/expected_payout; 0 means "derive from pool"
	MinScenarios int     // floor below which tail objectives downgrade to expected_value
	TailFloor    int     // floor below which TO downgrades to expected_value with a warning
}

// DefaultParams fills in the spec's stated defaults for any zero fields.
func DefaultParams(p Params) Params {
	if p.Quantile <= 0 {
		p.Quantile = 0.25
	}
	if p.MinScenarios <= 0 {
		p.MinScenarios = 2000
	}
	if p.TailFloor <= 0 {
		p.TailFloor = 200
	}
	return p
}

// Build constructs the solver-agnostic IR for matrix under the given
// parameters. It enforces the minimum scenario count for tail objectives:
// with fewer than MinScenarios scenarios it downgrades to expected_value
// with Downgraded=true rather than emit noise; at or above MinScenarios it
// also downgrades when the effective tail sample falls below TailFloor.
// EffectiveTail records the tail sample size (n for a non-tail objective or
// a build downgraded for falling below MinScenarios).
func Build(matrix *Matrix, p Params) (*IR, error) {
	p = DefaultParams(p)
	n := len(matrix.Scores)
	if n == 0 {
		return nil, fmt.Errorf("TAIL_SAMPLE_TOO_SMALL: zero scenarios in matrix")
	}

	kind := p.Kind
	downgraded := false
	reason := ""

	tailSample := n
	if kind != KindExpectedValue {
		if n < p.MinScenarios {
			downgraded = true
			reason = fmt.Sprintf("N_scenarios %d below required minimum %d for tail objectives; downgraded to expected_value", n, p.MinScenarios)
			kind = KindExpectedValue
		} else {
			tailSample = effectiveTailSample(matrix, p)
			if tailSample < p.TailFloor {
				downgraded = true
				reason = fmt.Sprintf("effective tail sample %d below floor %d; downgraded to expected_value", tailSample, p.TailFloor)
				kind = KindExpectedValue
			}
		}
	}

	ir := &IR{
		Kind:            kind,
		Vars:            varsFor(matrix.DriverIDs),
		LinearTerms:     map[string]float64{},
		NScenarios:      n,
		Quantile:        p.Quantile,
		Threshold:       p.Threshold,
		EffectiveTail:   tailSample,
		Downgraded:      downgraded,
		DowngradeReason: reason,
	}

	switch kind {
	case KindCVaRUpside:
		ir.AuxVars = []Var{{Name: "tau", Kind: VarContinuous}}
		for k := 0; k < n; k++ {
			ir.AuxVars = append(ir.AuxVars, Var{Name: fmt.Sprintf("z_%d", k), Kind: VarContinuous})
			ir.Constraints = append(ir.Constraints, Constraint{
				Name:  fmt.Sprintf("cvar_slack_%d", k),
				Terms: map[string]float64{fmt.Sprintf("z_%d", k): 1, "tau": -1},
				Sense: SenseGE,
				RHS:   0, // z_k >= sigma_k(L) - tau; sigma_k(L) is substituted at evaluation time
			})
		}
	case KindChance:
		if ir.Threshold == 0 {
			ir.Threshold = derivePoolThreshold(matrix, p.Quantile)
		}
	case KindExpectedPayout:
		if ir.Threshold == 0 {
			ir.Threshold = derivePoolThreshold(matrix, p.Quantile)
		}
	case KindExpectedValue:
		// no auxiliary structure; objective is the plain scenario mean.
	}

	return ir, nil
}

func varsFor(driverIDs []string) []Var {
	vars := make([]Var, len(driverIDs))
	for i, id := range driverIDs {
		vars[i] = Var{Name: id, Kind: VarBinary}
	}
	return vars
}

// effectiveTailSample counts scenarios whose full-field total score sits at
// or above the pool's (1-q) quantile -- an estimate of how many scenarios
// actually inform the tail objective's gradient, independent of which
// lineup is ultimately chosen.
func effectiveTailSample(matrix *Matrix, p Params) int {
	totals := poolTotals(matrix)
	if len(totals) == 0 {
		return 0
	}
	threshold := quantileOf(totals, 1-p.Quantile)
	count := 0
	for _, t := range totals {
		if t >= threshold {
			count++
		}
	}
	return count
}

// derivePoolThreshold computes T as the empirical (1-q)-quantile of the
// full-field scenario totals, the spec's stated default when no per-slate
// threshold is configured.
func derivePoolThreshold(matrix *Matrix, q float64) float64 {
	totals := poolTotals(matrix)
	if len(totals) == 0 {
		return 0
	}
	return quantileOf(totals, 1-q)
}

func poolTotals(matrix *Matrix) []float64 {
	totals := make([]float64, len(matrix.Scores))
	for k, row := range matrix.Scores {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		totals[k] = sum
	}
	return totals
}

func quantileOf(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
