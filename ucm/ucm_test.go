package ucm

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

func seasonalConfig() Config {
	return Config{FreqSeasonals: []FreqSeasonal{
		{Period: 10, Harmonics: 3},
		{Period: 100, Harmonics: 2},
	}}
}

func TestNewFreqSeasonal(t *testing.T) {
	m, err := New(timeseries.New(make([]float64, 50)), seasonalConfig())
	require.NoError(t, err)

	rep := m.SSM()
	assert.Equal(t, 11, rep.KStates)
	assert.Equal(t, 10, rep.KPosdef)
	assert.Equal(t, 11, rep.LoglikelihoodBurn)
	assert.Equal(t, []string{"sigma2.freq_seasonal_10(3)", "sigma2.freq_seasonal_100(2)"}, m.ParamNames())

	want := []float64{1, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0}
	assert.Equal(t, want, mat.Row(nil, 0, rep.Design))

	lambda := 2 * math.Pi * 2 / 10
	assert.InDelta(t, math.Cos(lambda), rep.Transition.At(3, 3), 1e-15)
	assert.InDelta(t, math.Sin(lambda), rep.Transition.At(3, 4), 1e-15)
	assert.InDelta(t, -math.Sin(lambda), rep.Transition.At(4, 3), 1e-15)
	assert.Equal(t, 1.0, rep.Transition.At(0, 0))
}

func TestDefaultHarmonics(t *testing.T) {
	m, err := New(timeseries.New(make([]float64, 30)), Config{
		Irregular:     true,
		FreqSeasonals: []FreqSeasonal{{Period: 12}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sigma2.irregular", "sigma2.freq_seasonal_12(6)"}, m.ParamNames())
	assert.Equal(t, 13, m.SSM().KStates)
}

func TestConfigErrors(t *testing.T) {
	series := timeseries.New([]float64{1, 2, 3})
	tests := []struct {
		name string
		cfg  Config
	}{
		{"nothing stochastic", Config{}},
		{"seasonal of one", Config{Seasonal: 1}},
		{"negative seasonal", Config{Seasonal: -3}},
		{"period one", Config{FreqSeasonals: []FreqSeasonal{{Period: 1}}}},
		{"no harmonics", Config{FreqSeasonals: []FreqSeasonal{{Period: 1.5}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(series, tt.cfg)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	_, err := New(timeseries.New(nil), Config{Irregular: true})
	assert.ErrorIs(t, err, statespace.ErrEmptyEndog)
}

func TestIrregularOnly(t *testing.T) {
	m, err := New(timeseries.New([]float64{1, 2, 3, 2, 1}), Config{Irregular: true})
	require.NoError(t, err)
	assert.Equal(t, 1, m.SSM().KStates)
	require.NoError(t, m.Update([]float64{0.7}))
	assert.Equal(t, 0.7, m.SSM().ObsCov.At(0, 0))
}

func TestUpdate(t *testing.T) {
	m, err := New(timeseries.New(make([]float64, 20)), Config{
		Irregular:     true,
		Seasonal:      4,
		FreqSeasonals: []FreqSeasonal{{Period: 10, Harmonics: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, m.Update([]float64{1, 2, 3}))

	rep := m.SSM()
	assert.Equal(t, 1.0, rep.ObsCov.At(0, 0))
	assert.Equal(t, 2.0, rep.StateCov.At(0, 0))
	for i := 1; i <= 4; i++ {
		assert.Equal(t, 3.0, rep.StateCov.At(i, i))
	}
	assert.Equal(t, 0.0, rep.StateCov.At(1, 2))

	assert.ErrorIs(t, m.Update([]float64{1, 2}), statespace.ErrParamsLength)
}

func TestDummySeasonalStructure(t *testing.T) {
	m, err := New(timeseries.New(make([]float64, 20)), Config{Seasonal: 4})
	require.NoError(t, err)

	rep := m.SSM()
	require.Equal(t, 4, rep.KStates)
	assert.Equal(t, []float64{-1, -1, -1}, []float64{rep.Transition.At(1, 1), rep.Transition.At(1, 2), rep.Transition.At(1, 3)})
	assert.Equal(t, 1.0, rep.Transition.At(2, 1))
	assert.Equal(t, 1.0, rep.Transition.At(3, 2))
	assert.Equal(t, 1.0, rep.Selection.At(1, 0))
}

func TestTrigBlockIsPeriodic(t *testing.T) {
	m, err := New(timeseries.New(make([]float64, 20)), Config{FreqSeasonals: []FreqSeasonal{{Period: 10, Harmonics: 3}}})
	require.NoError(t, err)

	var power mat.Dense
	power.Pow(m.SSM().Transition, 10)

	k := m.SSM().KStates
	eye := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		eye.Set(i, i, 1)
	}
	assert.True(t, mat.EqualApprox(&power, eye, 1e-12))
}

func TestComponentsSumToSignal(t *testing.T) {
	ms, err := simulate.Seasonal(rand.NewSource(5), 100, 4, []simulate.SeasonalSpec{
		{Period: 10, Harmonics: 2, NoiseStd: 1},
	})
	require.NoError(t, err)

	m, err := New(timeseries.New(ms.Total), Config{
		Irregular:     true,
		FreqSeasonals: []FreqSeasonal{{Period: 10, Harmonics: 2}},
	})
	require.NoError(t, err)

	res, err := statespace.SmoothAt(m, []float64{0.1, 1})
	require.NoError(t, err)

	comps, err := m.Components(res)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, "level", comps[0].Name)
	assert.Equal(t, "freq_seasonal_10(2)", comps[1].Name)

	row := mat.Row(nil, 0, res.SSM().Design)
	z := mat.NewVecDense(len(row), row)
	for i := range ms.Total {
		signal := mat.Dot(z, res.Smoothed.SmoothedState[i])
		assert.InDelta(t, signal, comps[0].Smoothed[i]+comps[1].Smoothed[i], 1e-9)
	}

	_, err = m.Components(nil)
	assert.ErrorIs(t, err, statespace.ErrNotFitted)
}

func TestFitFreqSeasonal(t *testing.T) {
	ms, err := simulate.Seasonal(rand.NewSource(8678309), 300, 10, []simulate.SeasonalSpec{
		{Period: 10, Harmonics: 3, NoiseStd: 2},
		{Period: 100, Harmonics: 2, NoiseStd: 3},
	})
	require.NoError(t, err)

	m, err := New(timeseries.New(ms.Total), seasonalConfig())
	require.NoError(t, err)

	res, err := m.Fit(context.Background(), statespace.DefaultFitConfig())
	require.NoError(t, err)

	require.Len(t, res.Params, 2)
	assert.InDelta(t, 4, res.Params[0], 3)
	assert.InDelta(t, 9, res.Params[1], 6)

	comps, err := m.Components(res)
	require.NoError(t, err)
	require.Len(t, comps, 3)

	// Smoothed seasonal terms track the simulated ones.
	for i, term := range ms.Terms {
		var sse, sst float64
		for j, v := range term {
			d := comps[i+1].Smoothed[j] - v
			sse += d * d
			sst += v * v
		}
		assert.Less(t, sse, sst, "component %s", comps[i+1].Name)
	}
}

func TestFitDummySeasonal(t *testing.T) {
	pattern := []float64{3, -1, -2, 0}
	rng := rand.New(rand.NewSource(17))
	values := make([]float64, 80)
	for i := range values {
		values[i] = 50 + pattern[i%4] + 0.3*rng.NormFloat64()
	}

	m, err := New(timeseries.New(values), Config{Irregular: true, Seasonal: 4})
	require.NoError(t, err)

	res, err := m.Fit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 76, res.NObsEffective)

	comps, err := m.Components(res)
	require.NoError(t, err)
	level := comps[0].Smoothed
	assert.InDelta(t, 50, level[len(level)-1], 0.5)
}

func TestTrendSpecifications(t *testing.T) {
	series := timeseries.New(make([]float64, 30))
	tests := []struct {
		level   string
		names   []string
		kStates int
	}{
		{"local level", []string{"sigma2.irregular", "sigma2.level"}, 1},
		{"rwalk", []string{"sigma2.level"}, 1},
		{"dconstant", []string{"sigma2.irregular"}, 1},
		{"dtrend", []string{"sigma2.irregular"}, 2},
		{"rwdrift", []string{"sigma2.level"}, 2},
		{"Local Linear Trend", []string{"sigma2.irregular", "sigma2.level", "sigma2.trend"}, 2},
		{"smooth trend", []string{"sigma2.irregular", "sigma2.trend"}, 2},
		{"rtrend", []string{"sigma2.trend"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			// The named specification replaces the component flags.
			m, err := New(series, Config{Level: tt.level, Irregular: true, StochasticTrend: true})
			require.NoError(t, err)
			assert.Equal(t, tt.names, m.ParamNames())
			assert.Equal(t, tt.kStates, m.SSM().KStates)
		})
	}

	for _, bad := range []Config{{Level: "quadratic"}, {Level: "fixed slope"}, {Level: "irregular"}} {
		_, err := New(series, bad)
		assert.ErrorIs(t, err, ErrConfig, bad.Level)
	}
}

func TestLocalLinearTrendStructure(t *testing.T) {
	m, err := New(timeseries.New(make([]float64, 20)), Config{
		Irregular:       true,
		StochasticLevel: true,
		Trend:           true,
		StochasticTrend: true,
	})
	require.NoError(t, err)
	require.NoError(t, m.Update([]float64{1, 2, 3}))

	rep := m.SSM()
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 1, 0, 1}), rep.Transition))
	assert.True(t, mat.Equal(mat.NewDense(1, 2, []float64{1, 0}), rep.Design))
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{1, 0, 0, 1}), rep.Selection))
	assert.Equal(t, 1.0, rep.ObsCov.At(0, 0))
	assert.Equal(t, 2.0, rep.StateCov.At(0, 0))
	assert.Equal(t, 3.0, rep.StateCov.At(1, 1))
}

func TestCycleStructure(t *testing.T) {
	m, err := New(timeseries.New(make([]float64, 40)), Config{
		Irregular:       true,
		Cycle:           true,
		StochasticCycle: true,
		DampedCycle:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sigma2.irregular", "sigma2.cycle", "frequency.cycle", "damping.cycle"}, m.ParamNames())

	lo, hi := m.CycleFrequencyBounds()
	assert.InDelta(t, 2*math.Pi/40, lo, 1e-12)
	assert.InDelta(t, math.Pi, hi, 1e-12)

	require.NoError(t, m.Update([]float64{1, 2, 0.5, 0.9}))
	rep := m.SSM()
	assert.Equal(t, 3, rep.KStates)
	assert.Equal(t, []float64{1, 1, 0}, mat.Row(nil, 0, rep.Design))
	assert.InDelta(t, 0.9*math.Cos(0.5), rep.Transition.At(1, 1), 1e-15)
	assert.InDelta(t, 0.9*math.Sin(0.5), rep.Transition.At(1, 2), 1e-15)
	assert.InDelta(t, -0.9*math.Sin(0.5), rep.Transition.At(2, 1), 1e-15)
	assert.InDelta(t, 0.9*math.Cos(0.5), rep.Transition.At(2, 2), 1e-15)
	assert.Equal(t, 2.0, rep.StateCov.At(0, 0))
	assert.Equal(t, 2.0, rep.StateCov.At(1, 1))
	assert.Equal(t, 1.0, rep.Selection.At(2, 1))

	_, err = New(timeseries.New(make([]float64, 40)), Config{Irregular: true, Cycle: true, CyclePeriodBounds: [2]float64{12, 6}})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestCycleTransform(t *testing.T) {
	m, err := New(timeseries.New(make([]float64, 60)), Config{
		Irregular:         true,
		Cycle:             true,
		StochasticCycle:   true,
		DampedCycle:       true,
		CyclePeriodBounds: [2]float64{6, 48},
	})
	require.NoError(t, err)
	lo, hi := m.CycleFrequencyBounds()

	for _, u := range [][]float64{{0.5, -2, -8, -3}, {2, 1, 8, 3}, {-1, 0.1, 0, 0}} {
		c := m.TransformParams(u)
		assert.Greater(t, c[2], lo)
		assert.Less(t, c[2], hi)
		assert.GreaterOrEqual(t, c[3], 0.0)
		assert.Less(t, c[3], 1.0)
		back := m.UntransformParams(c)
		assert.InDelta(t, u[2], back[2], 1e-9)
		assert.InDelta(t, math.Abs(u[3]), back[3], 1e-9)
	}
}

func TestStartFrequency(t *testing.T) {
	n := 200
	values := make([]float64, n)
	for i := range values {
		values[i] = 5 + 0.01*float64(i) + 3*math.Sin(2*math.Pi*float64(i)/20)
	}
	m, err := New(timeseries.New(values), Config{Irregular: true, Cycle: true})
	require.NoError(t, err)

	start := m.StartParams()
	require.Len(t, start, 2)
	assert.InDelta(t, 2*math.Pi/20, start[1], 1e-9)
}

func TestAutoregressiveStructure(t *testing.T) {
	m, err := New(timeseries.New(make([]float64, 30)), Config{Level: "rwalk", Autoregressive: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"sigma2.level", "sigma2.ar", "ar.L1", "ar.L2"}, m.ParamNames())

	require.NoError(t, m.Update([]float64{0.5, 1.5, 0.6, -0.2}))
	rep := m.SSM()
	assert.True(t, mat.Equal(mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 0.6, -0.2,
		0, 1, 0,
	}), rep.Transition))
	assert.Equal(t, []float64{1, 1, 0}, mat.Row(nil, 0, rep.Design))
	assert.Equal(t, 1.0, rep.Selection.At(1, 1))
	assert.Equal(t, 1.5, rep.StateCov.At(1, 1))

	c := m.TransformParams([]float64{1, 1, 3, -4})
	assert.True(t, statespace.IsStationaryAR(c[2:]))
	assert.InDeltaSlice(t, []float64{1, 1, 3, -4}, m.UntransformParams(c), 1e-8)

	_, err = New(timeseries.New(make([]float64, 30)), Config{Irregular: true, Autoregressive: -1})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestFitLocalLevel(t *testing.T) {
	values := simulate.LocalLinearTrend(rand.NewSource(51), 400, simulate.Params{
		Level0:           10,
		SigmaMeasurement: 1,
		SigmaLevel:       0.5,
	})
	m, err := New(timeseries.New(values), Config{Level: "llevel"})
	require.NoError(t, err)

	res, err := m.Fit(context.Background(), nil)
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Params[0], 0.4)
	assert.InDelta(t, 0.25, res.Params[1], 0.15)

	comps, err := m.Components(res)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, "level", comps[0].Name)
}

func TestFitDampedCycle(t *testing.T) {
	if testing.Short() {
		t.Skip("cycle fit")
	}
	n := 500
	rho, lambda := 0.95, 2*math.Pi/25
	rng := rand.New(rand.NewSource(52))
	values := make([]float64, n)
	c, cs := 0.0, 0.0
	for i := range values {
		values[i] = c + 0.5*rng.NormFloat64()
		c, cs = rho*(math.Cos(lambda)*c+math.Sin(lambda)*cs)+rng.NormFloat64(),
			rho*(-math.Sin(lambda)*c+math.Cos(lambda)*cs)+rng.NormFloat64()
	}

	m, err := New(timeseries.New(values), Config{
		Level:           "irregular",
		Cycle:           true,
		StochasticCycle: true,
		DampedCycle:     true,
	})
	require.NoError(t, err)

	res, err := m.Fit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sigma2.irregular", "sigma2.cycle", "frequency.cycle", "damping.cycle"}, res.ParamNames)
	assert.InDelta(t, lambda, res.Params[2], 0.05)
	assert.InDelta(t, rho, res.Params[3], 0.05)

	comps, err := m.Components(res)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, "cycle", comps[0].Name)
}

func TestComponentsOrder(t *testing.T) {
	values := simulate.LocalLinearTrend(rand.NewSource(53), 80, simulate.Params{
		Level0: 3, Slope0: 0.1, SigmaMeasurement: 0.3, SigmaLevel: 0.1,
	})
	m, err := New(timeseries.New(values), Config{
		Level:          "lldtrend",
		Seasonal:       4,
		Cycle:          true,
		Autoregressive: 1,
	})
	require.NoError(t, err)

	res, err := statespace.SmoothAt(m, []float64{0.1, 0.01, 0.01, 0.3, 0.2, 0.5})
	require.NoError(t, err)
	comps, err := m.Components(res)
	require.NoError(t, err)

	names := make([]string, len(comps))
	for i, c := range comps {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"level", "trend", "seasonal(4)", "cycle", "autoregressive"}, names)
}
