// Package autoarima implements automatic ARIMA model selection.
//
// Auto-ARIMA selects the best ARIMA or SARIMA model by searching through
// combinations of model orders and comparing information criteria. The
// differencing orders are chosen first with unit-root tests, so every
// candidate is compared on the same differenced likelihood.
//
// # Basic Usage
//
//	config := autoarima.DefaultConfig()
//	result, err := autoarima.AutoARIMA(ctx, series, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Best model: %s\n", result)
//	fmt.Printf("AIC: %.2f, Models evaluated: %d\n",
//	    result.AIC, result.ModelsEvaluated)
//
//	forecasts, _ := result.Predict(10)
//
// # Seasonal Model Selection
//
//	config := autoarima.DefaultConfig()
//	config.Seasonal = true
//	config.SeasonalM = 12  // Monthly data with yearly seasonality
//
// # Search Methods
//
// Two search methods are available:
//   - Stepwise (default): start from a few simple models and move to the
//     best neighbouring order until nothing improves
//   - Grid: exhaustive search over all combinations (set Stepwise=false)
//
// Candidates of one search step are fitted concurrently, at most
// Config.Parallelism at a time. Only the selected model is refitted with
// standard errors.
package autoarima
