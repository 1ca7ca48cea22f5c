// Package lltrend implements the local linear trend model:
//
//	y(t)      = mu(t) + e(t),               e(t) ~ N(0, sigma2.measurement)
//	mu(t+1)   = mu(t) + beta(t) + u(t),     u(t) ~ N(0, sigma2.level)
//	beta(t+1) = beta(t) + w(t),             w(t) ~ N(0, sigma2.trend)
//
// The state is (mu, beta). The process has no stationary distribution, so
// the first state is approximately diffuse and the first two periods are
// left out of the log-likelihood.
//
// # Basic Usage
//
//	model, err := lltrend.New(series)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := model.Fit(ctx, statespace.DefaultFitConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(res.Summary())
//	slope := res.SmoothedState(lltrend.TrendState)
//
// The optimizer works on standard deviations; TransformParams squares them
// into variances, so estimates are never negative.
package lltrend
