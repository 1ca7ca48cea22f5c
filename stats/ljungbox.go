package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult represents the result of a Ljung-Box test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int // Degrees of freedom
}

// LjungBox performs the Ljung-Box test for autocorrelation in residuals.
// The null hypothesis is that there is no autocorrelation up to lag h.
// fitdf is the number of estimated parameters that reduce the degrees of freedom.
func LjungBox(residuals []float64, lags, fitdf int) *LjungBoxResult {
	n := len(residuals)
	if n < 3 || lags < 1 {
		return nil
	}

	if lags >= n {
		lags = n - 1
	}

	acf := ACF(residuals, lags)
	if acf == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	return &LjungBoxResult{
		Statistic: q,
		PValue:    chiSquaredSurvival(q, dof),
		Lags:      lags,
		DOF:       dof,
	}
}

// BoxPierceResult represents the result of a Box-Pierce test.
type BoxPierceResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// BoxPierce performs the Box-Pierce test for autocorrelation.
func BoxPierce(residuals []float64, lags, fitdf int) *BoxPierceResult {
	n := len(residuals)
	if n < 3 || lags < 1 {
		return nil
	}

	if lags >= n {
		lags = n - 1
	}

	acf := ACF(residuals, lags)
	if acf == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += acf[k] * acf[k]
	}
	q *= float64(n)

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	return &BoxPierceResult{
		Statistic: q,
		PValue:    chiSquaredSurvival(q, dof),
		Lags:      lags,
		DOF:       dof,
	}
}

// DurbinWatson calculates the Durbin-Watson statistic for first-order autocorrelation.
// Values near 2 indicate no autocorrelation. Returns NaN for degenerate input.
func DurbinWatson(residuals []float64) float64 {
	n := len(residuals)
	if n < 2 {
		return nan
	}

	numerator := 0.0
	denominator := residuals[0] * residuals[0]
	for i := 1; i < n; i++ {
		diff := residuals[i] - residuals[i-1]
		numerator += diff * diff
		denominator += residuals[i] * residuals[i]
	}

	if denominator == 0 {
		return nan
	}
	return numerator / denominator
}

func chiSquaredSurvival(x float64, dof int) float64 {
	if x <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: float64(dof)}.Survival(x)
}
