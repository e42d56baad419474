package calibration

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ConvergenceReport is the result of mcmc_convergence. The scenario engine
// draws scenarios independently rather than via an MCMC chain, so most runs
// have no chains to assess; CalibrationMethod is set to "heuristic" in that
// case rather than reporting a misleading r_hat, per spec.md's Open
// Question on this point.
type ConvergenceReport struct {
	CalibrationMethod string  `json:"calibration_method"`
	RHat              float64 `json:"r_hat,omitempty"`
	ESS               float64 `json:"ess,omitempty"`
}

// MCMCConvergence computes the Gelman-Rubin R-hat and effective sample size
// across chains of equal length. With fewer than two chains it returns the
// heuristic fallback instead of a statistic gonum can't meaningfully
// estimate.
func MCMCConvergence(chains [][]float64) ConvergenceReport {
	if len(chains) < 2 {
		return ConvergenceReport{CalibrationMethod: "heuristic"}
	}

	m := len(chains)
	n := len(chains[0])
	for _, c := range chains {
		if len(c) != n || n < 2 {
			return ConvergenceReport{CalibrationMethod: "heuristic"}
		}
	}

	chainMeans := make([]float64, m)
	chainVars := make([]float64, m)
	for i, c := range chains {
		mean, std := stat.MeanStdDev(c, nil)
		chainMeans[i] = mean
		chainVars[i] = std * std
	}

	grandMean, _ := stat.MeanStdDev(chainMeans, nil)

	// Between-chain variance B and within-chain variance W.
	b := 0.0
	for _, cm := range chainMeans {
		b += (cm - grandMean) * (cm - grandMean)
	}
	b = b * float64(n) / float64(m-1)

	w := 0.0
	for _, v := range chainVars {
		w += v
	}
	w /= float64(m)

	varHat := (float64(n-1)/float64(n))*w + b/float64(n)
	rHat := math.NaN()
	if w > 0 {
		rHat = math.Sqrt(varHat / w)
	}

	ess := float64(m*n) / math.Max(rHat, 1.0)

	return ConvergenceReport{
		CalibrationMethod: "mcmc",
		RHat:              rHat,
		ESS:               ess,
	}
}
