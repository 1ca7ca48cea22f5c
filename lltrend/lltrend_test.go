package lltrend

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/gostatespace/simulate"
	"github.com/sartorproj/gostatespace/statespace"
	"github.com/sartorproj/gostatespace/timeseries"
)

func newModel(t *testing.T, values []float64) *Model {
	t.Helper()
	m, err := New(timeseries.New(values))
	require.NoError(t, err)
	return m
}

func assertStructure(t *testing.T, rep *statespace.Representation) {
	t.Helper()
	assert.True(t, mat.Equal(rep.Design, mat.NewDense(1, 2, []float64{1, 0})), "design")
	assert.True(t, mat.Equal(rep.Transition, mat.NewDense(2, 2, []float64{1, 1, 0, 1})), "transition")
	assert.True(t, mat.Equal(rep.Selection, mat.NewDense(2, 2, []float64{1, 0, 0, 1})), "selection")
}

func TestNew(t *testing.T) {
	m := newModel(t, []float64{1, 2, 3, 4, 5})
	rep := m.SSM()

	assert.Equal(t, 2, rep.KStates)
	assert.Equal(t, 2, rep.KPosdef)
	assert.Equal(t, 2, rep.LoglikelihoodBurn)
	assert.Equal(t, statespace.InitApproximateDiffuse, rep.Initialization.Kind)
	assert.Equal(t, 1e6, rep.Initialization.DiffuseVariance)
	assertStructure(t, rep)
	assert.Equal(t, "local linear trend", m.Name())
}

func TestNewEmpty(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, statespace.ErrEmptyEndog)

	_, err = New(timeseries.New(nil))
	assert.ErrorIs(t, err, statespace.ErrEmptyEndog)
}

func TestParamNames(t *testing.T) {
	m := newModel(t, []float64{1, 2})
	assert.Equal(t, []string{"sigma2.measurement", "sigma2.level", "sigma2.trend"}, m.ParamNames())

	// Callers cannot mutate the labels.
	m.ParamNames()[0] = "x"
	assert.Equal(t, "sigma2.measurement", m.ParamNames()[0])
}

func TestStartParams(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"population std", []float64{1, 2, 3, 4}, math.Sqrt(1.25)},
		{"ignores missing", []float64{1, math.NaN(), 3}, 1},
		{"constant", []float64{4, 4, 4}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := newModel(t, tt.values).StartParams()
			require.Len(t, start, 3)
			for _, v := range start {
				assert.InDelta(t, tt.want, v, 1e-12)
			}
		})
	}
}

func TestTransformRoundTrip(t *testing.T) {
	m := newModel(t, []float64{1, 2})

	constrained := []float64{0, 1e-8, 0.25, 1, 3.7, 1e6}
	back := m.TransformParams(m.UntransformParams(constrained))
	for i, v := range constrained {
		assert.InDelta(t, v, back[i], 1e-12*math.Max(1, v))
	}

	unconstrained := []float64{-3, -0.5, 0, 0.5, 2, 1e3}
	abs := m.UntransformParams(m.TransformParams(unconstrained))
	for i, u := range unconstrained {
		assert.InDelta(t, math.Abs(u), abs[i], 1e-12*math.Max(1, math.Abs(u)))
	}

	for _, v := range m.TransformParams(unconstrained) {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestUpdate(t *testing.T) {
	m := newModel(t, []float64{1, 2, 3})
	require.NoError(t, m.Update([]float64{0.5, 1.5, 2.5}))

	rep := m.SSM()
	assert.Equal(t, 0.5, rep.ObsCov.At(0, 0))
	assert.Equal(t, 1.5, rep.StateCov.At(0, 0))
	assert.Equal(t, 2.5, rep.StateCov.At(1, 1))
	assert.Equal(t, 0.0, rep.StateCov.At(0, 1))
	assert.Equal(t, 0.0, rep.StateCov.At(1, 0))
}

func TestUpdateIdempotent(t *testing.T) {
	m := newModel(t, []float64{1, 2, 3})
	params := []float64{0.1, 0.2, 0.3}

	require.NoError(t, m.Update(params))
	first := m.SSM().Clone()
	require.NoError(t, m.Update(params))

	rep := m.SSM()
	assert.True(t, mat.Equal(first.ObsCov, rep.ObsCov))
	assert.True(t, mat.Equal(first.StateCov, rep.StateCov))
	assert.True(t, mat.Equal(first.Transition, rep.Transition))
}

func TestUpdateWrongLength(t *testing.T) {
	m := newModel(t, []float64{1, 2, 3})
	for _, params := range [][]float64{nil, {1}, {1, 2}, {1, 2, 3, 4}} {
		assert.ErrorIs(t, m.Update(params), statespace.ErrParamsLength)
	}
}

func TestStructureInvariantUnderUpdate(t *testing.T) {
	m := newModel(t, []float64{1, 2, 3})
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 25; i++ {
		params := []float64{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10}
		require.NoError(t, m.Update(params))
		assertStructure(t, m.SSM())
	}
	_, err := statespace.Loglike(m, []float64{1, 1, 1})
	require.NoError(t, err)
	assertStructure(t, m.SSM())
}

func TestStationaryInitializationUndefined(t *testing.T) {
	m := newModel(t, []float64{1, 2, 3, 4})
	require.NoError(t, m.Update([]float64{1, 1, 1}))

	rep := m.SSM().Clone()
	rep.Initialization = statespace.Stationary()
	_, err := statespace.Filter(rep)
	assert.ErrorIs(t, err, statespace.ErrNonStationary)
}

func TestFitConstantTwoPoints(t *testing.T) {
	const k = 7.5
	m := newModel(t, []float64{k, k})

	res, err := m.Fit(context.Background(), nil)
	require.NoError(t, err)

	for i, p := range res.Params {
		assert.Less(t, p, 0.01, "%s", res.ParamNames[i])
		assert.GreaterOrEqual(t, p, 0.0)
	}
	level := res.FilteredState(LevelState)
	assert.InDelta(t, k, level[1], 1e-3*k)
	assert.InDelta(t, k, res.SmoothedState(LevelState)[1], 1e-3*k)
}

func TestFitNoiseFreeLinearTrend(t *testing.T) {
	const (
		n         = 20
		intercept = 3.0
		slope     = 0.5
	)
	values := make([]float64, n)
	for i := range values {
		values[i] = intercept + slope*float64(i)
	}
	m := newModel(t, values)

	res, err := m.Fit(context.Background(), nil)
	require.NoError(t, err)

	trend := res.FilteredState(TrendState)
	assert.InDelta(t, slope, trend[n-1], 1e-3)
	assert.InDelta(t, slope, res.SmoothedState(TrendState)[n-1], 1e-3)

	fc, err := res.Forecast(3, 0.05)
	require.NoError(t, err)
	for h, got := range fc.Mean {
		assert.InDelta(t, intercept+slope*float64(n+h), got, 1e-2)
	}
}

func TestFitSimulated(t *testing.T) {
	src := rand.NewSource(20240601)
	values := simulate.LocalLinearTrend(src, 200, simulate.Params{
		Level0:           10,
		Slope0:           0.2,
		SigmaMeasurement: 1,
		SigmaLevel:       0.5,
		SigmaTrend:       0.05,
	})
	m := newModel(t, values)

	res, err := m.Fit(context.Background(), statespace.DefaultFitConfig())
	require.NoError(t, err)

	assert.Equal(t, 198, res.NObsEffective)
	for _, p := range res.Params {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.False(t, math.IsNaN(p))
	}
	// Measurement noise dominates the data.
	assert.Greater(t, res.Params[0], res.Params[2])

	startLLF, err := statespace.Loglike(m, m.StartParams())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.LogLik, startLLF)

	fc, err := res.Forecast(10, 0.05)
	require.NoError(t, err)
	assert.Len(t, fc.Mean, 10)
	for i := 1; i < 10; i++ {
		assert.Greater(t, fc.Variance[i], fc.Variance[i-1])
	}
}

func TestFitWithMissingValues(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 1 + 0.3*float64(i) + 0.1*math.Sin(float64(i))
	}
	values[10] = math.NaN()
	values[25] = math.NaN()

	res, err := newModel(t, values).Fit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 36, res.NObsEffective)
	assert.Len(t, res.Residuals(), 36)
	assert.False(t, math.IsNaN(res.SmoothedState(LevelState)[10]))
}

func TestSmooth(t *testing.T) {
	m := newModel(t, []float64{1, 2, 4, 7, 11})
	res, err := m.Smooth([]float64{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, res.Params)
	assert.Len(t, res.SmoothedState(TrendState), 5)
}
