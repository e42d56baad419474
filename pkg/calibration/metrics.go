// Package calibration implements the Calibration Harness (CH): scoring-rule
// metrics (CRPS, log score, coverage), joint-event validation, an optional
// MCMC convergence check, and a Markdown calibration report.
package calibration

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Metrics bundles the scoring-rule results for one target variable against
// its ensemble of scenario-drawn values.
type Metrics struct {
	CRPS       float64
	LogScore   float64
	Coverage50 float64
	Coverage80 float64
	Coverage95 float64
}

// ComputeMetrics scores an ensemble of simulated draws against the observed
// (realized or held-out) value for one target.
func ComputeMetrics(ensemble []float64, observed float64) Metrics {
	return Metrics{
		CRPS:       crps(ensemble, observed),
		LogScore:   logScore(ensemble, observed),
		Coverage50: coverageAt(ensemble, observed, 0.25, 0.75),
		Coverage80: coverageAt(ensemble, observed, 0.10, 0.90),
		Coverage95: coverageAt(ensemble, observed, 0.025, 0.975),
	}
}

// crps computes the empirical continuous ranked probability score of an
// ensemble against an observed value, using the standard pairwise-distance
// estimator: CRPS ≈ E|X - y| - 0.5*E|X - X'|.
func crps(ensemble []float64, observed float64) float64 {
	n := len(ensemble)
	if n == 0 {
		return math.NaN()
	}

	termA := 0.0
	for _, x := range ensemble {
		termA += math.Abs(x - observed)
	}
	termA /= float64(n)

	if n == 1 {
		return termA
	}

	termB := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			termB += math.Abs(ensemble[i] - ensemble[j])
		}
	}
	termB /= float64(n * n)

	return termA - 0.5*termB
}

// logScore fits a Gaussian to the ensemble via its mean/stddev and returns
// the negative log-density at the observed value — the standard proper
// scoring rule for a continuous forecast, here approximated parametrically
// rather than via a full kernel density estimate.
func logScore(ensemble []float64, observed float64) float64 {
	if len(ensemble) < 2 {
		return math.NaN()
	}
	mean, std := stat.MeanStdDev(ensemble, nil)
	if std == 0 {
		std = 1e-6
	}
	dist := distuv.Normal{Mu: mean, Sigma: std}
	return -dist.LogProb(observed)
}

// coverageAt reports 1 if observed falls within the [lowerQ, upperQ]
// empirical quantile interval of ensemble, else 0 — intended to be averaged
// across many (ensemble, observed) pairs by the caller to get an actual
// coverage rate.
func coverageAt(ensemble []float64, observed, lowerQ, upperQ float64) float64 {
	if len(ensemble) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), ensemble...)
	sort.Float64s(sorted)

	lo := stat.Quantile(lowerQ, stat.Empirical, sorted, nil)
	hi := stat.Quantile(upperQ, stat.Empirical, sorted, nil)

	if observed >= lo && observed <= hi {
		return 1
	}
	return 0
}

// AverageCoverage reduces a slice of per-pair 0/1 coverage indicators (as
// produced by repeated ComputeMetrics calls) to an overall rate.
func AverageCoverage(indicators []float64) float64 {
	if len(indicators) == 0 {
		return math.NaN()
	}
	return floats.Sum(indicators) / float64(len(indicators))
}
