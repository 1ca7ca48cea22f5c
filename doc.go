// Package gostatespace provides linear Gaussian state-space models for
// univariate time series, estimated by maximum likelihood through the
// Kalman filter.
//
// The centerpiece is a custom local linear trend model written against the
// generic state-space machinery, showing how a new model plugs into the
// filter, smoother and fitting driver by supplying its own parameter
// transforms and system matrices.
//
// # Packages
//
//   - statespace: representation, initialization, Kalman filter and
//     smoother, the Model contract, the fitting driver and fitted Results
//   - lltrend: the local linear trend model
//   - ucm: unobserved components (trend specifications, seasonal terms,
//     cycle, autoregressive irregular)
//   - arima, sarima: seasonal ARIMA models in state-space form
//   - autoarima: automatic ARIMA order selection
//   - simulate: seeded simulators for seasonal, trend and ARMA processes
//   - dataset: tabular data and CSV, text table, xlsx and archive loaders
//   - timeseries: the Series type
//   - stats: residual diagnostics, unit-root tests, information criteria
//
// # Quick Start
//
// Fit a local linear trend to log fatalities and forecast:
//
//	series := timeseries.NewAnnual(1970, values).Log()
//	model, err := lltrend.New(series)
//	if err != nil {
//		return err
//	}
//	res, err := model.Fit(ctx, statespace.DefaultFitConfig())
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Summary())
//	fc, err := res.Forecast(5, 0.05)
//
// Any type implementing statespace.Model can be fitted the same way with
// statespace.Fit.
package gostatespace
