// Package sarima implements Seasonal ARIMA (SARIMA) models for time series with seasonality.
//
// SARIMA models extend ARIMA to handle seasonal patterns. A SARIMA(p,d,q)(P,D,Q)[m] model includes:
//   - Non-seasonal components: AR(p), I(d), MA(q)
//   - Seasonal components: SAR(P), SI(D), SMA(Q) at seasonal period m
//
// The model is the state-space form from the arima package, so estimation
// is exact maximum likelihood and standard errors come from the numerical
// Hessian.
//
// # Basic Usage
//
// Create and fit a SARIMA model for quarterly data (m=4):
//
//	// SARIMA(1,0,0)(1,1,0)[4]
//	model := sarima.New(1, 0, 0, 1, 1, 0, 4)
//
//	if err := model.Fit(ctx, series); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Generate forecasts for next 8 quarters
//	forecasts, lower, upper, _ := model.PredictWithInterval(8, 0.95)
//
// # Common Models
//
// Popular SARIMA configurations:
//
//	// Airline Model: SARIMA(0,1,1)(0,1,1)[12] for monthly data
//	model := sarima.New(0, 1, 1, 0, 1, 1, 12)
//
//	// Quarterly with seasonal AR: SARIMA(1,0,0)(1,1,0)[4]
//	model := sarima.New(1, 0, 0, 1, 1, 0, 4)
//
// Set SimpleDifferencing to estimate on the differenced series, which is
// faster for long seasonal periods; forecasts are then of the differenced
// series.
//
// # Seasonal Periods
//
// Common seasonal periods:
//   - Monthly data with yearly seasonality: m = 12
//   - Quarterly data: m = 4
//   - Weekly data with yearly seasonality: m = 52
//   - Daily data with weekly seasonality: m = 7
//
// For automatic seasonal model selection, use autoarima with Seasonal=true.
package sarima
