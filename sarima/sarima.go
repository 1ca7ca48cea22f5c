package sarima

import (
	"context"
	"fmt"

	"github.com/sartorproj/gostatespace/arima"
	"github.com/sartorproj/gostatespace/statespace"
	"github.com/sartorproj/gostatespace/stats"
	"github.com/sartorproj/gostatespace/timeseries"
)

// Order represents SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P int `json:"p" yaml:"p"` // Non-seasonal AR order
	D int `json:"d" yaml:"d"` // Non-seasonal differencing order
	Q int `json:"q" yaml:"q"` // Non-seasonal MA order
	// Seasonal components
	SP int `json:"sp" yaml:"sp"` // Seasonal AR order
	SD int `json:"sd" yaml:"sd"` // Seasonal differencing order
	SQ int `json:"sq" yaml:"sq"` // Seasonal MA order
	M  int `json:"m" yaml:"m"`   // Seasonal period (e.g., 12 for monthly data with yearly seasonality)
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

// Model represents a SARIMA model.
type Model struct {
	Order Order
	// Trend defaults to TrendConstant without any differencing and
	// TrendNone otherwise.
	Trend string
	// SimpleDifferencing fits the differenced series; forecasts are then
	// of the differenced series too.
	SimpleDifferencing bool
	FitConfig          *statespace.FitConfig // nil selects statespace.DefaultFitConfig

	ARCoeffs  []float64 // Non-seasonal AR coefficients
	MACoeffs  []float64 // Non-seasonal MA coefficients
	SARCoeffs []float64 // Seasonal AR coefficients
	SMACoeffs []float64 // Seasonal MA coefficients
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64 // Corrected AIC for small sample sizes
	BIC       float64
	HQIC      float64
	LogLik    float64
	Results   *statespace.Results

	// Standard errors for coefficients
	ARStdErrors  []float64
	MAStdErrors  []float64
	SARStdErrors []float64
	SMAStdErrors []float64

	ssm *arima.StateSpace
}

// New creates a new SARIMA model with the specified order.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return &Model{
		Order: Order{
			P: p, D: d, Q: q,
			SP: sp, SD: sd, SQ: sq, M: m,
		},
		ARCoeffs:  make([]float64, max(p, 0)),
		MACoeffs:  make([]float64, max(q, 0)),
		SARCoeffs: make([]float64, max(sp, 0)),
		SMACoeffs: make([]float64, max(sq, 0)),
	}
}

// Spec returns the state-space specification Fit uses.
func (m *Model) Spec() arima.Spec {
	o := m.Order
	trend := m.Trend
	if trend == "" {
		trend = arima.TrendNone
		if o.D == 0 && o.SD == 0 {
			trend = arima.TrendConstant
		}
	}
	return arima.Spec{
		Order:              arima.Order{P: o.P, D: o.D, Q: o.Q},
		Seasonal:           arima.SeasonalOrder{P: o.SP, D: o.SD, Q: o.SQ, S: o.M},
		Trend:              trend,
		SimpleDifferencing: m.SimpleDifferencing,
	}
}

// Fit fits the SARIMA model to the given time series data by exact maximum
// likelihood.
func (m *Model) Fit(ctx context.Context, series *timeseries.Series) error {
	spec := m.Spec()
	if err := spec.Validate(); err != nil {
		return err
	}
	o := m.Order
	if series == nil || series.Len() < o.P+o.Q+o.D+(o.SP+o.SQ+o.SD)*o.M+10 {
		return arima.ErrInsufficientData
	}

	ss, err := arima.NewStateSpace(series, spec)
	if err != nil {
		return err
	}
	res, err := ss.Fit(ctx, m.FitConfig)
	if err != nil {
		return fmt.Errorf("fitting SARIMA%v: %w", o, err)
	}

	est, err := ss.Coefficients(res.Params)
	if err != nil {
		return err
	}
	se, err := ss.Coefficients(res.Bse)
	if err != nil {
		return err
	}

	m.ARCoeffs, m.MACoeffs = est.AR, est.MA
	m.SARCoeffs, m.SMACoeffs = est.SeasonalAR, est.SeasonalMA
	m.Intercept, m.Variance = est.Intercept, est.Sigma2
	m.ARStdErrors, m.MAStdErrors = se.AR, se.MA
	m.SARStdErrors, m.SMAStdErrors = se.SeasonalAR, se.SeasonalMA
	m.AIC, m.AICc, m.BIC, m.HQIC, m.LogLik = res.AIC, res.AICc, res.BIC, res.HQIC, res.LogLik
	m.Results = res
	m.ssm = ss
	return nil
}

// StateSpace returns the model fitted by the last call to Fit.
func (m *Model) StateSpace() *arima.StateSpace {
	return m.ssm
}

// Predict generates forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	forecasts, _, _, err := m.PredictWithInterval(steps, 0.95)
	return forecasts, err
}

// PredictWithInterval generates forecasts with prediction intervals.
// Returns point forecasts, lower bounds, and upper bounds at the given
// confidence level; a level outside (0, 1) selects 0.95.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if m.Results == nil {
		return nil, nil, nil, arima.ErrNotFitted
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	pred, err := m.Results.Forecast(steps, 1-confidence)
	if err != nil {
		return nil, nil, nil, err
	}
	return pred.Mean, pred.Lower, pred.Upper, nil
}

// Residuals returns the one-step-ahead forecast errors after the burn-in.
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
	Order        Order
	ARCoeffs     []float64
	MACoeffs     []float64
	SARCoeffs    []float64
	SMACoeffs    []float64
	ARStdErrors  []float64
	MAStdErrors  []float64
	SARStdErrors []float64
	SMAStdErrors []float64
	Intercept    float64
	Variance     float64
	AIC          float64
	AICc         float64 // Corrected AIC
	BIC          float64
	LogLik       float64
	NObs         int
	LjungBox     *stats.LjungBoxResult
	Details      *statespace.Summary
}

// Summary returns a summary of the fitted model, or nil before Fit.
func (m *Model) Summary() *Summary {
	if m.Results == nil {
		return nil
	}
	o := m.Order
	return &Summary{
		Order:        o,
		ARCoeffs:     m.ARCoeffs,
		MACoeffs:     m.MACoeffs,
		SARCoeffs:    m.SARCoeffs,
		SMACoeffs:    m.SMACoeffs,
		ARStdErrors:  m.ARStdErrors,
		MAStdErrors:  m.MAStdErrors,
		SARStdErrors: m.SARStdErrors,
		SMAStdErrors: m.SMAStdErrors,
		Intercept:    m.Intercept,
		Variance:     m.Variance,
		AIC:          m.AIC,
		AICc:         m.AICc,
		BIC:          m.BIC,
		LogLik:       m.LogLik,
		NObs:         m.Results.NObs,
		LjungBox:     stats.LjungBox(m.Results.Residuals(), 10, o.P+o.Q+o.SP+o.SQ),
		Details:      m.Results.Summary(),
	}
}
