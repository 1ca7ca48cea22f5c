// Package statespace implements univariate linear Gaussian state-space models.
//
// A model is described by a Representation:
//
//	y(t)   = Z x(t) + d + e(t),      e(t) ~ N(0, H)
//	x(t+1) = T x(t) + c + R u(t),    u(t) ~ N(0, Q)
//
// Filter runs the Kalman filter and Smooth the Durbin-Koopman smoother over
// it. Missing observations are NaN and skip the update step.
//
// # Estimation
//
// A type that implements Model maps a parameter vector into its
// representation. Fit searches an unconstrained space with gonum/optimize,
// mapping each proposal through TransformParams and Update before filtering:
//
//	model, err := lltrend.New(series)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := statespace.Fit(ctx, model, statespace.DefaultFitConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Summary())
//
//	fc, _ := res.Forecast(10, 0.05)
//
// # Initialization
//
// The first state is drawn from an Initialization: Known, ApproximateDiffuse
// (a zero mean and a large variance, paired with a log-likelihood burn-in),
// or Stationary, which solves the discrete Lyapunov equation and fails with
// ErrNonStationary when the transition matrix is not stable.
package statespace
