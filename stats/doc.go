// Package stats provides the tests and criteria used to diagnose fitted
// state-space models and the series fed to them.
//
// # Residual Diagnostics
//
// Standardized forecast errors of a well specified model are white noise:
//
//	lb := stats.LjungBox(residuals, 10, 0)
//	jb := stats.JarqueBera(residuals)
//	h := stats.Heteroskedasticity(residuals)
//
// Each result carries the statistic and its p-value. Box-Pierce and
// Durbin-Watson are available as well.
//
// # Autocorrelation
//
//	acf := stats.ACF(values, 20)
//	res := stats.ACFWithConfidence(values, 20)
//	significant := stats.SignificantLags(res.Values, res.ConfBounds)
//
// # Stationarity
//
// Before fitting, the unit-root tests tell how integrated a series is. A
// series needing two differences is a candidate for a local linear trend:
//
//	adf := stats.ADF(values, 0)                    // H0: unit root
//	kpss := stats.KPSS(values, stats.KPSSLevel, 0) // H0: stationary
//	d := stats.NDiffs(values, 2, stats.UnitRootKPSS)
//
// # Model Selection
//
//	ic := stats.CalculateIC(logLik, nObs, nParams)
//	// ic.AIC, ic.AICc, ic.BIC, ic.HQIC
package stats
