package arima

import (
	"context"
	"errors"
	"fmt"

	"github.com/sartorproj/gostatespace/statespace"
	"github.com/sartorproj/gostatespace/stats"
	"github.com/sartorproj/gostatespace/timeseries"
)

// ErrNotFitted is returned by methods that need a fitted model.
var ErrNotFitted = errors.New("model must be fitted before prediction")

// Model represents an ARIMA model.
type Model struct {
	Order Order
	// Trend defaults to TrendConstant without differencing and TrendNone
	// with it.
	Trend     string
	FitConfig *statespace.FitConfig // nil selects statespace.DefaultFitConfig

	ARCoeffs  []float64 // AR coefficients (phi)
	MACoeffs  []float64 // MA coefficients (theta)
	Intercept float64
	Variance  float64 // Innovation variance
	AIC       float64
	AICc      float64 // Corrected AIC for small sample sizes
	BIC       float64
	HQIC      float64
	LogLik    float64
	Results   *statespace.Results

	ssm *StateSpace
}

// New creates a new ARIMA model with the specified order.
func New(p, d, q int) *Model {
	return &Model{
		Order:    Order{P: p, D: d, Q: q},
		ARCoeffs: make([]float64, max(p, 0)),
		MACoeffs: make([]float64, max(q, 0)),
	}
}

// Spec returns the state-space specification Fit uses.
func (m *Model) Spec() Spec {
	trend := m.Trend
	if trend == "" {
		trend = TrendNone
		if m.Order.D == 0 {
			trend = TrendConstant
		}
	}
	return Spec{Order: m.Order, Trend: trend}
}

// Fit estimates the model on series by exact maximum likelihood.
func (m *Model) Fit(ctx context.Context, series *timeseries.Series) error {
	spec := m.Spec()
	if err := spec.Validate(); err != nil {
		return err
	}
	if series == nil || series.Len() < spec.minObservations() {
		return ErrInsufficientData
	}

	ss, err := NewStateSpace(series, spec)
	if err != nil {
		return err
	}
	res, err := ss.Fit(ctx, m.FitConfig)
	if err != nil {
		return fmt.Errorf("fitting ARIMA%v: %w", m.Order, err)
	}

	c, err := ss.Coefficients(res.Params)
	if err != nil {
		return err
	}
	m.ARCoeffs, m.MACoeffs = c.AR, c.MA
	m.Intercept, m.Variance = c.Intercept, c.Sigma2
	m.AIC, m.AICc, m.BIC, m.HQIC, m.LogLik = res.AIC, res.AICc, res.BIC, res.HQIC, res.LogLik
	m.Results = res
	m.ssm = ss
	return nil
}

// StateSpace returns the model fitted by the last call to Fit.
func (m *Model) StateSpace() *StateSpace {
	return m.ssm
}

// Predict generates forecasts for the specified number of steps ahead, on
// the scale of the original series.
func (m *Model) Predict(steps int) ([]float64, error) {
	if m.Results == nil {
		return nil, ErrNotFitted
	}
	pred, err := m.Results.Forecast(steps, 0.05)
	if err != nil {
		return nil, err
	}
	return pred.Mean, nil
}

// PredictWithInterval returns forecasts with a confidence band at the given
// level, e.g. 0.95.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if m.Results == nil {
		return nil, nil, nil, ErrNotFitted
	}
	pred, err := m.Results.Forecast(steps, 1-confidence)
	if err != nil {
		return nil, nil, nil, err
	}
	return pred.Mean, pred.Lower, pred.Upper, nil
}

// Residuals returns the one-step-ahead forecast errors after the burn-in,
// NaN for missing observations.
func (m *Model) Residuals() []float64 {
	if m.Results == nil {
		return nil
	}
	f := m.Results.Filtered
	return append([]float64(nil), f.ForecastErrors[f.Burn:]...)
}

// FittedValues returns the one-step-ahead predictions for every period.
func (m *Model) FittedValues() []float64 {
	if m.Results == nil {
		return nil
	}
	return append([]float64(nil), m.Results.Filtered.Forecasts...)
}

// Summary describes a fitted model.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64 // Corrected AIC
	BIC       float64
	LogLik    float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
	Details   *statespace.Summary // Parameter table and residual diagnostics
}

// Summary returns a summary of the fitted model, or nil before Fit.
func (m *Model) Summary() *Summary {
	if m.Results == nil {
		return nil
	}
	return &Summary{
		Order:     m.Order,
		ARCoeffs:  m.ARCoeffs,
		MACoeffs:  m.MACoeffs,
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.Results.NObs,
		LjungBox:  stats.LjungBox(m.Results.Residuals(), 10, m.Order.P+m.Order.Q),
		Details:   m.Results.Summary(),
	}
}
