package statespace

import "math"

// ConstrainStationary maps unconstrained values to the coefficients of a
// stationary autoregressive polynomial 1 - phi_1 L - ... - phi_p L^p.
//
// Each value becomes a partial autocorrelation u/sqrt(1+u^2) in (-1, 1) and
// the Durbin-Levinson recursion turns the partial autocorrelations into
// coefficients.
func ConstrainStationary(unconstrained []float64) []float64 {
	n := len(unconstrained)
	phi := make([]float64, n)
	prev := make([]float64, n)
	for k, u := range unconstrained {
		r := u / math.Sqrt(1+u*u)
		copy(prev, phi[:k])
		for i := 0; i < k; i++ {
			phi[i] = prev[i] - r*prev[k-1-i]
		}
		phi[k] = r
	}
	return phi
}

// UnconstrainStationary inverts ConstrainStationary. Coefficients outside
// the stationary region have a partial autocorrelation at or beyond one in
// magnitude and come back infinite or NaN.
func UnconstrainStationary(constrained []float64) []float64 {
	pacf := partialAutocorrelations(constrained)
	out := make([]float64, len(pacf))
	for k, r := range pacf {
		out[k] = r / math.Sqrt(1-r*r)
	}
	return out
}

// IsStationaryAR reports whether 1 - phi_1 L - ... - phi_p L^p has every
// root outside the unit circle.
func IsStationaryAR(phi []float64) bool {
	for _, r := range partialAutocorrelations(phi) {
		if !(math.Abs(r) < 1) {
			return false
		}
	}
	return true
}

// partialAutocorrelations runs the Durbin-Levinson recursion backwards.
func partialAutocorrelations(phi []float64) []float64 {
	n := len(phi)
	cur := append([]float64(nil), phi...)
	pacf := make([]float64, n)
	for k := n - 1; k >= 0; k-- {
		r := cur[k]
		pacf[k] = r
		if !(math.Abs(r) < 1) {
			// The lower orders are meaningless past this point.
			for j := 0; j < k; j++ {
				pacf[j] = math.NaN()
			}
			break
		}
		next := make([]float64, k)
		for i := 0; i < k; i++ {
			next[i] = (cur[i] + r*cur[k-1-i]) / (1 - r*r)
		}
		cur = next
	}
	return pacf
}
