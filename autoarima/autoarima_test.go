package autoarima

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/sartorproj/gostatespace/simulate"
	"github.com/sartorproj/gostatespace/stats"
	"github.com/sartorproj/gostatespace/timeseries"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 5, config.MaxP)
	assert.Equal(t, 2, config.MaxD)
	assert.Equal(t, 5, config.MaxQ)
	assert.Equal(t, CriterionAIC, config.Criterion)
	assert.Equal(t, stats.UnitRootKPSS, config.StationTest)
	assert.True(t, config.Stepwise)
	assert.NoError(t, config.validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative order", func(c *Config) { c.MaxP = -1 }},
		{"unknown criterion", func(c *Config) { c.Criterion = "mse" }},
		{"unknown test", func(c *Config) { c.StationTest = "pp" }},
		{"seasonal without period", func(c *Config) { c.Seasonal = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			_, err := AutoARIMA(context.Background(), timeseries.New(make([]float64, 50)), config)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestAutoARIMAStationary(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(31), 300, 40, []float64{0.6}, nil, 1)
	config := DefaultConfig()
	config.MaxP = 3
	config.MaxQ = 3

	result, err := AutoARIMA(context.Background(), timeseries.New(values), config)
	require.NoError(t, err)

	assert.Equal(t, 0, result.D)
	assert.False(t, result.IsSeasonal)
	require.NotNil(t, result.Model)
	assert.Nil(t, result.SeasonalModel)
	assert.GreaterOrEqual(t, result.P+result.Q, 1)
	assert.GreaterOrEqual(t, result.ModelsEvaluated, 5)
	assert.Equal(t, result.AIC, result.Criterion)
	assert.Equal(t, result.Model.AIC, result.AIC)
	assert.Contains(t, result.String(), "ARIMA(")

	// The selected model is refitted with standard errors.
	for _, se := range result.Results().Bse {
		assert.False(t, math.IsNaN(se))
	}
}

func TestAutoARIMANonStationary(t *testing.T) {
	values := simulate.Integrate(simulate.ARMA(rand.NewSource(32), 300, 0, []float64{0.4}, nil, 1), 100)
	config := DefaultConfig()
	config.MaxP = 2
	config.MaxQ = 2

	result, err := AutoARIMA(context.Background(), timeseries.New(values), config)
	require.NoError(t, err)
	assert.Equal(t, 1, result.D)
}

func TestAutoARIMASeasonal(t *testing.T) {
	if testing.Short() {
		t.Skip("seasonal search")
	}
	n, period := 144, 12
	noise := simulate.ARMA(rand.NewSource(33), n, 0, []float64{0.3}, nil, 1)
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 15*math.Sin(2*math.Pi*float64(i)/float64(period)) + noise[i]
	}

	config := DefaultConfig()
	config.Seasonal = true
	config.SeasonalM = period
	config.MaxP = 2
	config.MaxQ = 2
	config.MaxSP = 1
	config.MaxSQ = 1

	result, err := AutoARIMA(context.Background(), timeseries.New(values), config)
	require.NoError(t, err)
	assert.True(t, result.IsSeasonal)
	require.NotNil(t, result.SeasonalModel)
	assert.Nil(t, result.Model)
	assert.Equal(t, period, result.M)
	assert.Equal(t, 1, result.SD)
	assert.Contains(t, result.String(), "[12]")

	forecasts, err := result.Predict(period)
	require.NoError(t, err)
	require.Len(t, forecasts, period)
	// The forecast keeps the seasonal swing.
	assert.Greater(t, floatsMax(forecasts)-floatsMin(forecasts), 15.0)
}

func TestAutoARIMAPredict(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(34), 200, 10, []float64{0.5}, nil, 1)
	config := DefaultConfig()
	config.MaxP = 2
	config.MaxQ = 2

	result, err := AutoARIMA(context.Background(), timeseries.New(values), config)
	require.NoError(t, err)

	forecasts, err := result.Predict(10)
	require.NoError(t, err)
	assert.Len(t, forecasts, 10)

	mean, lower, upper, err := result.PredictWithInterval(10, 0.9)
	require.NoError(t, err)
	assert.Equal(t, forecasts, mean)
	for i := range mean {
		assert.Less(t, lower[i], mean[i])
		assert.Greater(t, upper[i], mean[i])
	}

	assert.Len(t, result.Residuals(), len(values))
}

func TestAutoARIMACriteria(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(35), 250, 0, []float64{0.5}, []float64{0.3}, 1)
	series := timeseries.New(values)

	for _, name := range []string{CriterionAICc, CriterionBIC, CriterionHQIC} {
		t.Run(name, func(t *testing.T) {
			config := DefaultConfig()
			config.MaxP = 2
			config.MaxQ = 2
			config.Criterion = name

			result, err := AutoARIMA(context.Background(), series, config)
			require.NoError(t, err)
			assert.Equal(t, criterion(result.Results(), name), result.Criterion)
		})
	}
}

func TestAutoARIMAExhaustiveSearch(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(36), 200, 0, []float64{0.6}, nil, 1)
	config := DefaultConfig()
	config.MaxP = 2
	config.MaxQ = 1
	config.Stepwise = false
	config.Parallelism = 2

	result, err := AutoARIMA(context.Background(), timeseries.New(values), config)
	require.NoError(t, err)
	// Every (p, q) in the grid is fitted exactly once.
	assert.LessOrEqual(t, result.ModelsEvaluated, 6)
	assert.GreaterOrEqual(t, result.ModelsEvaluated, 5)
}

func TestAutoARIMAADFTest(t *testing.T) {
	values := simulate.Integrate(simulate.ARMA(rand.NewSource(37), 250, 0, nil, nil, 1), 0)
	config := DefaultConfig()
	config.MaxP = 1
	config.MaxQ = 1
	config.StationTest = stats.UnitRootADF

	result, err := AutoARIMA(context.Background(), timeseries.New(values), config)
	require.NoError(t, err)
	assert.Equal(t, 1, result.D)
}

func TestAutoARIMANilConfig(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(38), 100, 100, nil, nil, 1)

	result, err := AutoARIMA(context.Background(), timeseries.New(values), nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	_, err = AutoARIMA(context.Background(), timeseries.New(nil), nil)
	assert.Error(t, err)
}

func TestAutoARIMACancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	values := simulate.ARMA(rand.NewSource(39), 100, 0, []float64{0.5}, nil, 1)

	_, err := AutoARIMA(ctx, timeseries.New(values), nil)
	assert.Error(t, err)
}

func TestDetermineDifferencing(t *testing.T) {
	stationary := simulate.ARMA(rand.NewSource(40), 200, 0, []float64{0.3}, nil, 1)
	assert.Equal(t, 0, determineDifferencing(stationary, 2, stats.UnitRootKPSS))

	walk := simulate.Integrate(simulate.ARMA(rand.NewSource(41), 200, 0, nil, nil, 1), 0)
	assert.Equal(t, 1, determineDifferencing(walk, 2, stats.UnitRootKPSS))

	assert.Equal(t, 0, determineDifferencing(walk, 0, stats.UnitRootKPSS))
}

func TestDetermineSeasonalDifferencing(t *testing.T) {
	period := 12
	values := make([]float64, 120)
	for i := range values {
		values[i] = 100 + 20*math.Sin(2*math.Pi*float64(i)/float64(period))
	}
	assert.Equal(t, 1, determineSeasonalDifferencing(values, 1, period))
	assert.Equal(t, 0, determineSeasonalDifferencing(values, 0, period))

	noise := simulate.ARMA(rand.NewSource(42), 120, 0, nil, nil, 1)
	assert.Equal(t, 0, determineSeasonalDifferencing(noise, 1, period))
}

func TestNeighbors(t *testing.T) {
	s := &searcher{config: DefaultConfig()}
	assert.Len(t, s.neighbors(candidate{p: 1, q: 1}), 6)
	assert.False(t, s.allowed(candidate{p: -1}))
	assert.False(t, s.allowed(candidate{p: 6}))
	assert.False(t, s.allowed(candidate{sp: 1}))

	s.seasonal = true
	assert.Len(t, s.neighbors(candidate{1, 1, 1, 1}), 8)
	assert.True(t, s.allowed(candidate{sp: 1, sq: 2}))
	assert.False(t, s.allowed(candidate{sp: 3}))
}

func floatsMax(v []float64) float64 {
	m := math.Inf(-1)
	for _, x := range v {
		m = math.Max(m, x)
	}
	return m
}

func floatsMin(v []float64) float64 {
	m := math.Inf(1)
	for _, x := range v {
		m = math.Min(m, x)
	}
	return m
}
