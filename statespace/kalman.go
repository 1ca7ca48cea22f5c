package statespace

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MinForecastVariance is the floor applied to the one-step forecast error
// variance. A model whose variances are all zero can otherwise produce a
// zero variance and an undefined likelihood. Periods at the floor still enter
// the likelihood but do not update the state.
const MinForecastVariance = 1e-12

// FilterResult holds the output of the Kalman filter.
//
// PredictedState[t] and PredictedCov[t] describe x(t) given y(0..t-1); they
// have NObs+1 entries, the last one being the first out-of-sample state.
type FilterResult struct {
	NObs int
	Burn int

	PredictedState []*mat.VecDense
	PredictedCov   []*mat.SymDense
	FilteredState  []*mat.VecDense
	FilteredCov    []*mat.SymDense

	Forecasts        []float64 // Z a(t) + d
	ForecastErrors   []float64 // NaN for missing periods
	ForecastErrorVar []float64
	Gain             []*mat.VecDense // P(t) Z' / F(t), zero for missing periods
	Missing          []bool
	Degenerate       []bool // Forecast variance at the floor; no update

	LoglikeObs    []float64
	LogLikelihood float64 // Sum of LoglikeObs from Burn on
}

// NObsEffective returns the number of observed periods after the burn-in.
func (f *FilterResult) NObsEffective() int {
	n := 0
	for t := f.Burn; t < f.NObs; t++ {
		if !f.Missing[t] {
			n++
		}
	}
	return n
}

// StandardizedErrors returns v(t)/sqrt(F(t)) for observed periods after the burn-in.
func (f *FilterResult) StandardizedErrors() []float64 {
	out := make([]float64, 0, f.NObs)
	for t := f.Burn; t < f.NObs; t++ {
		if f.Missing[t] {
			continue
		}
		out = append(out, f.ForecastErrors[t]/math.Sqrt(f.ForecastErrorVar[t]))
	}
	return out
}

// Filter runs the Kalman filter over rep.Endog.
func Filter(rep *Representation) (*FilterResult, error) {
	if err := rep.Validate(); err != nil {
		return nil, err
	}

	a, p, err := rep.Initialization.Initial(rep)
	if err != nil {
		return nil, err
	}

	n := rep.NObs()
	burn := rep.LoglikelihoodBurn
	if burn > n {
		burn = n
	}

	res := &FilterResult{
		NObs:             n,
		Burn:             burn,
		PredictedState:   make([]*mat.VecDense, n+1),
		PredictedCov:     make([]*mat.SymDense, n+1),
		FilteredState:    make([]*mat.VecDense, n),
		FilteredCov:      make([]*mat.SymDense, n),
		Forecasts:        make([]float64, n),
		ForecastErrors:   make([]float64, n),
		ForecastErrorVar: make([]float64, n),
		Gain:             make([]*mat.VecDense, n),
		Missing:          make([]bool, n),
		Degenerate:       make([]bool, n),
		LoglikeObs:       make([]float64, n),
	}

	z := rep.design()
	h := rep.obsVariance()
	rqr := rep.selectedStateCov()
	k := rep.KStates

	for t := 0; t < n; t++ {
		res.PredictedState[t] = a
		res.PredictedCov[t] = p

		var pz mat.VecDense
		pz.MulVec(p, z)

		f := mat.Dot(z, a) + rep.ObsIntercept
		fvar := mat.Dot(z, &pz) + h
		if !(fvar > MinForecastVariance) {
			fvar = MinForecastVariance
			res.Degenerate[t] = true
		}
		res.Forecasts[t] = f
		res.ForecastErrorVar[t] = fvar

		y := rep.Endog[t]
		res.Missing[t] = math.IsNaN(y)
		res.Gain[t] = mat.NewVecDense(k, nil)
		res.FilteredState[t] = a
		res.FilteredCov[t] = p

		if res.Missing[t] {
			res.ForecastErrors[t] = math.NaN()
		} else {
			v := y - f
			res.ForecastErrors[t] = v
			res.LoglikeObs[t] = -0.5 * (math.Log(2*math.Pi) + math.Log(fvar) + v*v/fvar)

			if !res.Degenerate[t] {
				res.Gain[t].ScaleVec(1/fvar, &pz)

				af := mat.NewVecDense(k, nil)
				af.AddScaledVec(a, v, res.Gain[t])
				pf := mat.NewSymDense(k, nil)
				pf.SymRankOne(p, -1/fvar, &pz)

				res.FilteredState[t] = af
				res.FilteredCov[t] = pf
			}
		}

		a, p = predict(rep, res.FilteredState[t], res.FilteredCov[t], rqr)
	}

	res.PredictedState[n] = a
	res.PredictedCov[n] = p

	for t := burn; t < n; t++ {
		res.LogLikelihood += res.LoglikeObs[t]
	}

	return res, nil
}

// predict advances a filtered state one period: T a + c, T P T' + R Q R'.
func predict(rep *Representation, a *mat.VecDense, p *mat.SymDense, rqr *mat.SymDense) (*mat.VecDense, *mat.SymDense) {
	next := mat.NewVecDense(rep.KStates, nil)
	next.MulVec(rep.Transition, a)
	next.AddVec(next, rep.StateIntercept)

	cov := quadForm(rep.Transition, p)
	cov.AddSym(cov, rqr)
	return next, cov
}

// Loglike returns the log-likelihood of model at the constrained params.
func Loglike(model Model, params []float64) (float64, error) {
	if err := model.Update(params); err != nil {
		return 0, err
	}
	res, err := Filter(model.SSM())
	if err != nil {
		return 0, err
	}
	return res.LogLikelihood, nil
}
