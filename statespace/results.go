package statespace

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/gostatespace/stats"
)

var (
	// ErrInvalidAlpha is returned when a confidence level is outside (0, 1).
	ErrInvalidAlpha = errors.New("alpha must be in (0, 1)")
	// ErrNotFitted is returned when results are missing filter or smoother output.
	ErrNotFitted = errors.New("model has not been fitted")
)

// Results holds a fitted state-space model.
type Results struct {
	ModelName  string
	ParamNames []string
	Params     []float64     // Constrained estimates
	Cov        *mat.SymDense // Approximate covariance of Params, nil if unavailable
	Bse        []float64     // Standard errors (NaN if unavailable)
	ZValues    []float64
	PValues    []float64

	LogLik float64
	AIC    float64
	AICc   float64
	BIC    float64
	HQIC   float64

	NObs          int
	NObsEffective int // Observed periods after the burn-in

	Method          string
	Converged       bool
	Status          string
	Iterations      int
	FuncEvaluations int

	Filtered *FilterResult
	Smoothed *SmootherResult

	ssm *Representation
}

// Prediction holds point predictions and a symmetric confidence band.
type Prediction struct {
	Mean     []float64
	Variance []float64
	Lower    []float64
	Upper    []float64
	Alpha    float64
}

func (r *Results) setInformationCriteria(llf float64) {
	ic := stats.CalculateIC(llf, r.NObsEffective, len(r.Params))
	r.LogLik = ic.LogLik
	r.AIC = ic.AIC
	r.AICc = ic.AICc
	r.BIC = ic.BIC
	r.HQIC = ic.HQIC
}

// SSM returns the representation at the estimated parameters.
func (r *Results) SSM() *Representation {
	return r.ssm
}

// Residuals returns the standardized one-step forecast errors after the burn-in.
func (r *Results) Residuals() []float64 {
	return r.Filtered.StandardizedErrors()
}

// FilteredState returns the filtered path of state i.
func (r *Results) FilteredState(i int) []float64 {
	out := make([]float64, len(r.Filtered.FilteredState))
	for t, v := range r.Filtered.FilteredState {
		out[t] = v.AtVec(i)
	}
	return out
}

// SmoothedState returns the smoothed path of state i.
func (r *Results) SmoothedState(i int) []float64 {
	return r.Smoothed.State(i)
}

// Predict returns in-sample one-step-ahead predictions with a 1-alpha band.
func (r *Results) Predict(alpha float64) (*Prediction, error) {
	q, err := normalQuantile(alpha)
	if err != nil {
		return nil, err
	}

	n := r.Filtered.NObs
	pred := newPrediction(n, alpha)
	for t := 0; t < n; t++ {
		pred.set(t, r.Filtered.Forecasts[t], r.Filtered.ForecastErrorVar[t], q)
	}
	return pred, nil
}

// Forecast returns out-of-sample forecasts for the next steps periods.
func (r *Results) Forecast(steps int, alpha float64) (*Prediction, error) {
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}
	q, err := normalQuantile(alpha)
	if err != nil {
		return nil, err
	}

	n := r.Filtered.NObs
	return r.project(r.Filtered.PredictedState[n], r.Filtered.PredictedCov[n], steps, alpha, q), nil
}

// PredictDynamic returns predictions for periods start through NObs-1 that
// use observations before start only: from start on, each prediction feeds
// the next instead of the data.
func (r *Results) PredictDynamic(start int, alpha float64) (*Prediction, error) {
	n := r.Filtered.NObs
	if start < 0 || start >= n {
		return nil, fmt.Errorf("dynamic start %d outside [0, %d)", start, n)
	}
	q, err := normalQuantile(alpha)
	if err != nil {
		return nil, err
	}
	return r.project(r.Filtered.PredictedState[start], r.Filtered.PredictedCov[start], n-start, alpha, q), nil
}

// project runs the prediction step steps times from state a with covariance p.
func (r *Results) project(a *mat.VecDense, p *mat.SymDense, steps int, alpha, q float64) *Prediction {
	rep := r.ssm
	z := rep.design()
	h := rep.obsVariance()
	rqr := rep.selectedStateCov()

	pred := newPrediction(steps, alpha)
	for i := 0; i < steps; i++ {
		var pz mat.VecDense
		pz.MulVec(p, z)
		pred.set(i, mat.Dot(z, a)+rep.ObsIntercept, mat.Dot(z, &pz)+h, q)

		a, p = predict(rep, a, p, rqr)
	}
	return pred
}

func newPrediction(n int, alpha float64) *Prediction {
	return &Prediction{
		Mean:     make([]float64, n),
		Variance: make([]float64, n),
		Lower:    make([]float64, n),
		Upper:    make([]float64, n),
		Alpha:    alpha,
	}
}

func (p *Prediction) set(i int, mean, variance, q float64) {
	se := math.Sqrt(math.Max(variance, 0))
	p.Mean[i] = mean
	p.Variance[i] = variance
	p.Lower[i] = mean - q*se
	p.Upper[i] = mean + q*se
}

func normalQuantile(alpha float64) (float64, error) {
	if !(alpha > 0 && alpha < 1) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	return distuv.UnitNormal.Quantile(1 - alpha/2), nil
}
