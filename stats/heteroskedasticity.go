package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// HeteroskedasticityResult holds the break-variance test.
type HeteroskedasticityResult struct {
	Statistic float64 // H: sum of squares of the last third over the first third
	PValue    float64 // Two-sided, F(h, h)
	H         int     // Size of each subsample
}

// Heteroskedasticity compares the residual variance of the last third of the
// sample with the first third. The null hypothesis is constant variance.
func Heteroskedasticity(residuals []float64) *HeteroskedasticityResult {
	n := len(residuals)
	h := int(math.Round(float64(n) / 3))
	if h < 2 {
		return nil
	}

	numer, denom := 0.0, 0.0
	for _, r := range residuals[n-h:] {
		numer += r * r
	}
	for _, r := range residuals[:h] {
		denom += r * r
	}
	if denom == 0 {
		return nil
	}

	statistic := numer / denom
	f := distuv.F{D1: float64(h), D2: float64(h)}
	p := 2 * math.Min(f.CDF(statistic), f.Survival(statistic))

	return &HeteroskedasticityResult{
		Statistic: statistic,
		PValue:    math.Min(p, 1),
		H:         h,
	}
}
