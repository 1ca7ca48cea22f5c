package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// minUnitRootObs is the shortest series the unit-root tests accept.
const minUnitRootObs = 10

// ADFResult holds an augmented Dickey-Fuller test with a constant.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int // Rows in the test regression
	CriticalVals map[string]float64
	IsStationary bool // Unit root rejected at 5%
}

// ADF tests the null of a unit root by regressing the first difference on a
// constant, the lagged level and lags lagged differences. A non-positive lags
// selects floor((n-1)^(1/3)). Returns nil when the series is too short or
// the regression is singular.
func ADF(values []float64, lags int) *ADFResult {
	n := len(values)
	if n < minUnitRootObs {
		return nil
	}
	if lags <= 0 {
		lags = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	lags = min(lags, n-2)

	diff := difference(values)
	nObs := n - lags - 1
	if nObs < minUnitRootObs {
		return nil
	}

	k := 2 + lags
	x := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + lags
		y.SetVec(i, diff[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, values[t])
		for j := 1; j <= lags; j++ {
			x.Set(i, 1+j, diff[t-j])
		}
	}

	coef, se, ok := ols(x, y)
	if !ok || se[1] == 0 {
		return nil
	}

	tStat := coef[1] / se[1]
	crit := map[string]float64{"1%": -3.43, "5%": -2.86, "10%": -2.57}
	return &ADFResult{
		Statistic:    tStat,
		PValue:       adfPValue(tStat),
		Lags:         lags,
		NObs:         nObs,
		CriticalVals: crit,
		IsStationary: tStat < crit["5%"],
	}
}

// ols returns least squares coefficients and their standard errors.
func ols(x *mat.Dense, y *mat.VecDense) (coef, se []float64, ok bool) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil, false
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, nil, false
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(x, &beta)
	resid.SubVec(y, &fitted)
	sigma2 := mat.Dot(&resid, &resid) / float64(n-k)

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var chol mat.Cholesky
	if !chol.Factorize(&xtx) {
		return nil, nil, false
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, nil, false
	}

	coef = make([]float64, k)
	se = make([]float64, k)
	for i := range coef {
		coef[i] = beta.AtVec(i)
		se[i] = math.Sqrt(sigma2 * inv.At(i, i))
	}
	return coef, se, true
}

// adfPValue interpolates the asymptotic MacKinnon critical values for the
// constant-only case.
func adfPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}

// Deterministic terms removed before the KPSS test.
const (
	KPSSLevel = "c"
	KPSSTrend = "ct"
)

// KPSSResult holds a Kwiatkowski-Phillips-Schmidt-Shin test.
type KPSSResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool // Stationarity not rejected at 5%
}

// KPSS tests the null of level (KPSSLevel) or trend (KPSSTrend) stationarity
// with a Bartlett-weighted long-run variance. A non-positive lags selects
// ceil(12 (n/100)^(1/4)).
func KPSS(values []float64, regression string, lags int) *KPSSResult {
	n := len(values)
	if n < minUnitRootObs {
		return nil
	}
	if lags <= 0 {
		lags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	lags = min(lags, n-1)

	resid := make([]float64, n)
	if regression == KPSSTrend {
		t := make([]float64, n)
		floats.Span(t, 0, float64(n-1))
		a, b := stat.LinearRegression(t, values, nil, false)
		for i, v := range values {
			resid[i] = v - a - b*t[i]
		}
	} else {
		copy(resid, values)
		floats.AddConst(-stat.Mean(values, nil), resid)
	}

	s2 := floats.Dot(resid, resid) / float64(n)
	for l := 1; l <= lags; l++ {
		cov := floats.Dot(resid[l:], resid[:n-l]) / float64(n)
		s2 += 2 * (1 - float64(l)/float64(lags+1)) * cov
	}
	if s2 <= 0 {
		return nil
	}

	cum := make([]float64, n)
	floats.CumSum(cum, resid)
	kpss := floats.Dot(cum, cum) / (float64(n) * float64(n) * s2)

	crit := map[string]float64{"10%": 0.347, "5%": 0.463, "2.5%": 0.574, "1%": 0.739}
	if regression == KPSSTrend {
		crit = map[string]float64{"10%": 0.119, "5%": 0.146, "2.5%": 0.176, "1%": 0.216}
	}
	return &KPSSResult{
		Statistic:    kpss,
		PValue:       kpssPValue(kpss, crit),
		Lags:         lags,
		CriticalVals: crit,
		IsStationary: kpss <= crit["5%"],
	}
}

// kpssLevels are the table significance levels, largest first.
var kpssLevels = []struct {
	key string
	p   float64
}{{"10%", 0.10}, {"5%", 0.05}, {"2.5%", 0.025}, {"1%", 0.01}}

// kpssPValue interpolates linearly in the critical value table. The table
// only spans [0.01, 0.10], so p-values are clamped to that range.
func kpssPValue(stat float64, crit map[string]float64) float64 {
	first, last := kpssLevels[0], kpssLevels[len(kpssLevels)-1]
	if stat <= crit[first.key] {
		return first.p
	}
	if stat >= crit[last.key] {
		return last.p
	}
	for i := 1; i < len(kpssLevels); i++ {
		lo, hi := kpssLevels[i-1], kpssLevels[i]
		if stat <= crit[hi.key] {
			w := (stat - crit[lo.key]) / (crit[hi.key] - crit[lo.key])
			return lo.p + w*(hi.p-lo.p)
		}
	}
	return last.p
}

func difference(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	floats.SubTo(out, values[1:], values[:len(values)-1])
	return out
}
