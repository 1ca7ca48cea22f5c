package arima

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/sartorproj/gostatespace/simulate"
	"github.com/sartorproj/gostatespace/timeseries"
)

func TestNewARIMA(t *testing.T) {
	model := New(2, 1, 1)

	assert.Equal(t, Order{P: 2, D: 1, Q: 1}, model.Order)
	assert.Len(t, model.ARCoeffs, 2)
	assert.Len(t, model.MACoeffs, 1)
	assert.Equal(t, TrendNone, model.Spec().Trend)
	assert.Equal(t, TrendConstant, New(1, 0, 0).Spec().Trend)
}

func TestARIMAFitAR1(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(21), 1000, 1, []float64{0.6}, nil, 1)
	model := New(1, 0, 0)

	require.NoError(t, model.Fit(context.Background(), timeseries.New(values)))

	require.Len(t, model.ARCoeffs, 1)
	assert.InDelta(t, 0.6, model.ARCoeffs[0], 0.1)
	assert.InDelta(t, 1, model.Intercept, 0.3)
	assert.InDelta(t, 1, model.Variance, 0.15)
	assert.True(t, model.Results.Converged)
	assert.Equal(t, []string{"intercept", "ar.L1", "sigma2"}, model.Results.ParamNames)
	for _, se := range model.Results.Bse {
		assert.Greater(t, se, 0.0)
	}

	residuals := model.Residuals()
	assert.Len(t, residuals, len(values))
}

func TestARIMAFitMA1(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(22), 1000, 100, nil, []float64{0.5}, 1)
	model := New(0, 0, 1)

	require.NoError(t, model.Fit(context.Background(), timeseries.New(values)))

	assert.InDelta(t, 0.5, model.MACoeffs[0], 0.1)
	assert.InDelta(t, 100, model.Intercept, 0.3)
}

func TestARIMAFitWithDifferencing(t *testing.T) {
	// ARIMA(1,1,0) with drift 0.2/(1-0.5) per period.
	diffs := simulate.ARMA(rand.NewSource(23), 600, 0.2, []float64{0.5}, nil, 1)
	series := timeseries.New(simulate.Integrate(diffs, 100))

	model := New(1, 1, 0)
	model.Trend = TrendConstant
	require.NoError(t, model.Fit(context.Background(), series))

	assert.InDelta(t, 0.5, model.ARCoeffs[0], 0.1)
	assert.InDelta(t, 0.2, model.Intercept, 0.15)
	assert.Equal(t, 1, model.Results.Filtered.Burn)
	assert.Len(t, model.Residuals(), series.Len()-1)
}

func TestARIMAPredict(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = 100 + float64(i)/10 + float64(i%7-3)/2
	}
	model := New(1, 1, 0)
	require.NoError(t, model.Fit(context.Background(), timeseries.New(values)))

	forecasts, err := model.Predict(5)
	require.NoError(t, err)
	require.Len(t, forecasts, 5)
	for _, f := range forecasts {
		assert.InDelta(t, values[len(values)-1], f, 10)
	}

	mean, lower, upper, err := model.PredictWithInterval(5, 0.95)
	require.NoError(t, err)
	assert.Equal(t, forecasts, mean)
	for i := range mean {
		assert.Less(t, lower[i], mean[i])
		assert.Greater(t, upper[i], mean[i])
		if i > 0 {
			assert.Greater(t, upper[i]-lower[i], upper[i-1]-lower[i-1])
		}
	}

	_, err = model.Predict(0)
	assert.Error(t, err)
}

func TestARIMARandomWalkForecast(t *testing.T) {
	values := simulate.Integrate(simulate.ARMA(rand.NewSource(24), 200, 0, nil, nil, 2), 10)
	model := New(0, 1, 0)
	require.NoError(t, model.Fit(context.Background(), timeseries.New(values)))

	assert.InDelta(t, 4, model.Variance, 1)
	pred, err := model.Results.Forecast(4, 0.05)
	require.NoError(t, err)
	last := values[len(values)-1]
	for h, f := range pred.Mean {
		assert.InDelta(t, last, f, 1e-6)
		assert.InEpsilon(t, float64(h+1)*model.Variance, pred.Variance[h], 1e-4)
	}
}

func TestARIMASummary(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(25), 300, 0, []float64{0.4}, []float64{0.3}, 1)
	model := New(1, 0, 1)
	assert.Nil(t, model.Summary())

	require.NoError(t, model.Fit(context.Background(), timeseries.New(values)))
	s := model.Summary()
	require.NotNil(t, s)

	assert.Equal(t, model.Order, s.Order)
	assert.Equal(t, 300, s.NObs)
	assert.Equal(t, model.AIC, s.AIC)
	assert.Less(t, s.AIC, s.BIC)
	require.NotNil(t, s.LjungBox)
	assert.Greater(t, s.LjungBox.PValue, 0.01)
	require.NotNil(t, s.Details)
	assert.Contains(t, s.Details.String(), "ma.L1")
	assert.Equal(t, "SARIMAX(1,0,1)", s.Details.Model)
}

func TestARIMAInsufficientData(t *testing.T) {
	model := New(2, 1, 2)
	err := model.Fit(context.Background(), timeseries.New([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
	assert.ErrorIs(t, err, ErrInsufficientData)

	assert.ErrorIs(t, New(-1, 0, 0).Fit(context.Background(), timeseries.New(make([]float64, 50))), ErrOrder)
}

func TestARIMANotFitted(t *testing.T) {
	model := New(1, 0, 0)
	_, err := model.Predict(3)
	assert.ErrorIs(t, err, ErrNotFitted)
	_, _, _, err = model.PredictWithInterval(3, 0.9)
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.Nil(t, model.Residuals())
	assert.Nil(t, model.FittedValues())
}

func TestARIMAFittedValues(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(26), 120, 5, []float64{0.5}, nil, 1)
	model := New(1, 0, 0)
	require.NoError(t, model.Fit(context.Background(), timeseries.New(values)))

	fitted := model.FittedValues()
	residuals := model.Residuals()
	require.Len(t, fitted, len(values))
	for i := range values {
		assert.InDelta(t, values[i], fitted[i]+residuals[i], 1e-9)
	}
}

func TestARIMAMissingValues(t *testing.T) {
	values := simulate.ARMA(rand.NewSource(27), 200, 0, []float64{0.7}, nil, 1)
	values[50], values[51] = math.NaN(), math.NaN()
	model := New(1, 0, 0)
	model.Trend = TrendNone
	require.NoError(t, model.Fit(context.Background(), timeseries.New(values)))

	assert.InDelta(t, 0.7, model.ARCoeffs[0], 0.15)
	assert.Equal(t, 198, model.Results.NObsEffective)
	assert.True(t, math.IsNaN(model.Residuals()[50]))
}

func TestARIMAMultipleOrders(t *testing.T) {
	if testing.Short() {
		t.Skip("fits several orders")
	}
	values := simulate.ARMA(rand.NewSource(28), 300, 0, []float64{0.5, 0.2}, nil, 1)
	series := timeseries.New(values)

	orders := []Order{{1, 0, 0}, {2, 0, 0}, {0, 0, 1}, {1, 0, 1}, {2, 0, 2}}
	aic := make(map[Order]float64, len(orders))
	for _, o := range orders {
		model := New(o.P, o.D, o.Q)
		require.NoError(t, model.Fit(context.Background(), series), "order %v", o)
		assert.False(t, math.IsNaN(model.AIC))
		aic[o] = model.AIC
	}
	// The true order beats pure moving average.
	assert.Less(t, aic[Order{2, 0, 0}], aic[Order{0, 0, 1}])
}
