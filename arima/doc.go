// Package arima implements AutoRegressive Integrated Moving Average (ARIMA)
// models as state-space models estimated by exact maximum likelihood.
//
// An ARIMA(p,d,q) model combines:
//   - AR(p): AutoRegressive component with p lags
//   - I(d): Integration (differencing) of order d
//   - MA(q): Moving Average component with q lags
//
// StateSpace is the general seasonal form SARIMA(p,d,q)x(P,D,Q,s) with an
// optional constant. It implements statespace.Model, so the Kalman filter
// evaluates the likelihood, handles missing values and produces forecasts
// with exact prediction intervals. The autoregressive and moving average
// blocks are kept stationary and invertible during estimation.
//
// # Basic Usage
//
//	// Create ARIMA(1,1,0) model
//	model := arima.New(1, 1, 0)
//
//	// Fit the model to data
//	if err := model.Fit(ctx, series); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Get model summary
//	summary := model.Summary()
//	fmt.Printf("AIC: %.2f, BIC: %.2f\n", summary.AIC, summary.BIC)
//	fmt.Println(summary.Details)
//
//	// Generate forecasts
//	forecasts, _ := model.Predict(10)
//
// # State-Space Form
//
// For full control, including seasonal terms and differencing ahead of
// estimation, build the state-space model directly:
//
//	spec := arima.Spec{
//	    Order:              arima.Order{P: 2, D: 1},
//	    Seasonal:           arima.SeasonalOrder{P: 1, D: 1, S: 12},
//	    SimpleDifferencing: true,
//	}
//	ss, err := arima.NewStateSpace(series, spec)
//	res, err := ss.Fit(ctx, statespace.DefaultFitConfig())
//	dynamic, err := res.PredictDynamic(100, 0.05)
//
// # Model Selection
//
// Use information criteria (AIC, AICc, BIC) to compare models fitted to the
// same series with the same differencing. Lower is better.
//
// For seasonal data, use the sarima package.
// For automatic model selection, use the autoarima package.
package arima
