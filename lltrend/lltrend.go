package lltrend

import (
	"context"
	"math"

	"github.com/sartorproj/gostatespace/statespace"
	"github.com/sartorproj/gostatespace/timeseries"
)

const (
	kStates  = 2
	kPosdef  = 2
	nParams  = 3
	modelTag = "local linear trend"
)

// Indices into the state vector.
const (
	LevelState = 0
	TrendState = 1
)

var paramNames = []string{"sigma2.measurement", "sigma2.level", "sigma2.trend"}

// Model is a local linear trend model bound to one series.
type Model struct {
	series *timeseries.Series
	ssm    *statespace.Representation
}

// New creates a local linear trend model for series. Missing values are NaN.
func New(series *timeseries.Series) (*Model, error) {
	if series == nil || series.Len() == 0 {
		return nil, statespace.ErrEmptyEndog
	}

	rep, err := statespace.NewRepresentation(series.Values, kStates, kPosdef)
	if err != nil {
		return nil, err
	}

	rep.Design.Set(0, 0, 1)
	rep.Transition.Set(0, 0, 1)
	rep.Transition.Set(0, 1, 1)
	rep.Transition.Set(1, 1, 1)
	rep.Selection.Set(0, 0, 1)
	rep.Selection.Set(1, 1, 1)

	rep.Initialization = statespace.ApproximateDiffuse(statespace.DefaultDiffuseVariance)
	rep.LoglikelihoodBurn = kStates

	return &Model{series: series, ssm: rep}, nil
}

// Name identifies the model in summaries.
func (m *Model) Name() string {
	return modelTag
}

// Series returns the series the model was built from.
func (m *Model) Series() *timeseries.Series {
	return m.series
}

// SSM returns the underlying representation.
func (m *Model) SSM() *statespace.Representation {
	return m.ssm
}

// ParamNames returns the parameter labels in order.
func (m *Model) ParamNames() []string {
	return append([]string(nil), paramNames...)
}

// StartParams returns the population standard deviation of the observed
// values, once per parameter.
func (m *Model) StartParams() []float64 {
	std := m.series.PopStd()
	return []float64{std, std, std}
}

// TransformParams squares each unconstrained value.
func (m *Model) TransformParams(unconstrained []float64) []float64 {
	out := make([]float64, len(unconstrained))
	for i, v := range unconstrained {
		out[i] = v * v
	}
	return out
}

// UntransformParams takes the square root of each constrained value.
func (m *Model) UntransformParams(constrained []float64) []float64 {
	out := make([]float64, len(constrained))
	for i, v := range constrained {
		out[i] = math.Sqrt(v)
	}
	return out
}

// Update writes (sigma2.measurement, sigma2.level, sigma2.trend) into the
// observation and state covariances. The structural matrices are not touched.
func (m *Model) Update(params []float64) error {
	if err := statespace.CheckParams(params, nParams); err != nil {
		return err
	}
	m.ssm.ObsCov.SetSym(0, 0, params[0])
	m.ssm.StateCov.SetSym(0, 0, params[1])
	m.ssm.StateCov.SetSym(1, 1, params[2])
	m.ssm.StateCov.SetSym(0, 1, 0)
	return nil
}

// Fit estimates the variances by maximum likelihood.
func (m *Model) Fit(ctx context.Context, cfg *statespace.FitConfig) (*statespace.Results, error) {
	return statespace.Fit(ctx, m, cfg)
}

// Smooth filters and smooths the series at fixed variances.
func (m *Model) Smooth(params []float64) (*statespace.Results, error) {
	return statespace.SmoothAt(m, params)
}
