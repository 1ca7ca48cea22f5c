package statespace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrUnknownMethod is returned for an unsupported optimization method.
var ErrUnknownMethod = errors.New("unknown optimization method")

// Optimization methods accepted by FitConfig.Method.
const (
	MethodNelderMead = "nm"
	MethodBFGS       = "bfgs"
	MethodLBFGS      = "lbfgs"
)

// Numerical gradients are never exactly zero. A gradient method stops once
// the infinity norm falls below gradientThreshold; a point whose central
// difference gradient is below stationaryTolerance (relative to the
// objective) counts as converged however the method stopped.
const (
	gradientThreshold   = 1e-5
	stationaryTolerance = 1e-4
)

var centralDiff = &fd.Settings{Formula: fd.Central}

// FitConfig holds configuration for maximum likelihood estimation.
type FitConfig struct {
	Method         string    // "nm" (default), "bfgs" or "lbfgs"
	MaxIterations  int       // Major iteration limit (default: 500, 0 = unlimited)
	MaxEvaluations int       // Function evaluation limit (0 = unlimited)
	StartParams    []float64 // Constrained starting point (default: model.StartParams())
	SkipCovariance bool      // Skip the numerical Hessian
	Logger         logr.Logger
}

// DefaultFitConfig returns the default fit configuration.
func DefaultFitConfig() *FitConfig {
	return &FitConfig{
		Method:        MethodNelderMead,
		MaxIterations: 500,
		Logger:        logr.Discard(),
	}
}

func (c *FitConfig) method() (optimize.Method, bool, error) {
	switch strings.ToLower(c.Method) {
	case "", MethodNelderMead, "nelder-mead":
		return &optimize.NelderMead{}, false, nil
	case MethodBFGS:
		return &optimize.BFGS{}, true, nil
	case MethodLBFGS:
		return &optimize.LBFGS{}, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownMethod, c.Method)
	}
}

// Fit estimates the parameters of model by maximum likelihood.
//
// The log-likelihood is maximized over the unconstrained space. Failure to
// converge is not an error: the best point found is used, Converged is false
// and a message is logged.
func Fit(ctx context.Context, model Model, cfg *FitConfig) (*Results, error) {
	if cfg == nil {
		cfg = DefaultFitConfig()
	}
	log := cfg.Logger

	rep := model.SSM()
	if err := rep.Validate(); err != nil {
		return nil, err
	}

	names := model.ParamNames()
	start := cfg.StartParams
	if start == nil {
		start = model.StartParams()
	}
	if err := CheckParams(start, len(names)); err != nil {
		return nil, fmt.Errorf("start params: %w", err)
	}

	method, needsGrad, err := cfg.method()
	if err != nil {
		return nil, err
	}

	log.Info("fitting state-space model",
		"method", strings.ToLower(cfg.Method), "nobs", rep.NObs(), "params", names, "start", start)

	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if ctx.Err() != nil {
				return math.Inf(1)
			}
			llf, err := Loglike(model, model.TransformParams(x))
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			if math.IsNaN(llf) {
				return math.Inf(1)
			}
			return -llf
		},
	}
	if needsGrad {
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, problem.Func, x, centralDiff)
		}
	}

	settings := &optimize.Settings{
		MajorIterations: cfg.MaxIterations,
		FuncEvaluations: cfg.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Relative:   1e-9,
			Iterations: 50,
		},
		Recorder: &iterationRecorder{ctx: ctx, log: log},
	}
	if needsGrad {
		settings.GradientThreshold = gradientThreshold
	}

	x0 := model.UntransformParams(start)
	result, optErr := optimize.Minimize(problem, x0, settings, method)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("fit cancelled: %w", ctxErr)
	}
	if result == nil {
		if evalErr != nil {
			return nil, fmt.Errorf("evaluating log-likelihood: %w", evalErr)
		}
		return nil, fmt.Errorf("optimization failed: %w", optErr)
	}

	converged := optErr == nil && isConverged(result.Status)
	if !converged && needsGrad && atStationaryPoint(problem.Func, result.Location.X) {
		log.V(1).Info("optimizer stopped at a stationary point",
			"status", result.Status.String(), "error", optErr)
		converged = true
	}
	if !converged {
		log.Info("maximum likelihood optimization failed to converge",
			"status", result.Status.String(), "error", optErr)
	}

	params := model.TransformParams(result.Location.X)
	res, err := newResults(model, params, cfg)
	if err != nil {
		return nil, err
	}
	res.Method = strings.ToLower(cfg.Method)
	if res.Method == "" {
		res.Method = MethodNelderMead
	}
	res.Converged = converged
	res.Status = result.Status.String()
	res.Iterations = result.Stats.MajorIterations
	res.FuncEvaluations = result.Stats.FuncEvaluations

	log.Info("fitted state-space model",
		"params", params, "llf", res.LogLik, "converged", converged, "iterations", res.Iterations)

	return res, nil
}

// SmoothAt runs the filter and smoother at fixed constrained params, without estimation.
func SmoothAt(model Model, params []float64) (*Results, error) {
	if err := CheckParams(params, len(model.ParamNames())); err != nil {
		return nil, err
	}
	cfg := DefaultFitConfig()
	cfg.SkipCovariance = true
	res, err := newResults(model, params, cfg)
	if err != nil {
		return nil, err
	}
	res.Method = "none"
	res.Converged = true
	return res, nil
}

func newResults(model Model, params []float64, cfg *FitConfig) (*Results, error) {
	if err := model.Update(params); err != nil {
		return nil, err
	}
	rep := model.SSM().Clone()

	filtered, err := Filter(rep)
	if err != nil {
		return nil, err
	}
	smoothed, err := Smooth(rep, filtered)
	if err != nil {
		return nil, err
	}

	k := len(params)
	res := &Results{
		ParamNames:    append([]string(nil), model.ParamNames()...),
		Params:        append([]float64(nil), params...),
		Bse:           nanSlice(k),
		ZValues:       nanSlice(k),
		PValues:       nanSlice(k),
		NObs:          rep.NObs(),
		NObsEffective: filtered.NObsEffective(),
		Filtered:      filtered,
		Smoothed:      smoothed,
		ssm:           rep,
	}
	if n, ok := model.(interface{ Name() string }); ok {
		res.ModelName = n.Name()
	}
	res.setInformationCriteria(filtered.LogLikelihood)

	if !cfg.SkipCovariance {
		res.Cov = paramCovariance(model, params, cfg.Logger)
		// The Hessian perturbs the model; restore the estimate.
		if err := model.Update(params); err != nil {
			return nil, err
		}
		res.setInference()
	}

	return res, nil
}

// paramCovariance inverts the numerical Hessian of the negative
// log-likelihood over the unconstrained parameters and maps it to the
// constrained ones with the delta method, J cov J' where J is the Jacobian
// of TransformParams. The model only ever sees transformed proposals, so a
// variance estimated at zero is never perturbed below it.
func paramCovariance(model Model, params []float64, log logr.Logger) *mat.SymDense {
	k := len(params)
	u := model.UntransformParams(params)
	negLL := func(x []float64) float64 {
		llf, err := Loglike(model, model.TransformParams(x))
		if err != nil {
			return math.NaN()
		}
		return -llf
	}

	hess := mat.NewSymDense(k, nil)
	fd.Hessian(hess, negLL, u, nil)

	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		log.V(1).Info("hessian is not positive definite; standard errors unavailable")
		return nil
	}
	covU := mat.NewSymDense(k, nil)
	if err := chol.InverseTo(covU); err != nil {
		log.V(1).Info("inverting hessian failed", "error", err)
		return nil
	}

	jac := mat.NewDense(k, k, nil)
	fd.Jacobian(jac, func(dst, x []float64) {
		copy(dst, model.TransformParams(x))
	}, u, &fd.JacobianSettings{Formula: fd.Central})
	return quadForm(jac, covU)
}

func (r *Results) setInference() {
	if r.Cov == nil {
		return
	}
	for i, p := range r.Params {
		v := r.Cov.At(i, i)
		if !(v > 0) {
			continue
		}
		r.Bse[i] = math.Sqrt(v)
		r.ZValues[i] = p / r.Bse[i]
		r.PValues[i] = 2 * distuv.UnitNormal.Survival(math.Abs(r.ZValues[i]))
	}
}

func isConverged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.FunctionThreshold, optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// atStationaryPoint reports whether the central difference gradient of f
// vanishes at x.
func atStationaryPoint(f func([]float64) float64, x []float64) bool {
	fx := f(x)
	if math.IsNaN(fx) || math.IsInf(fx, 0) {
		return false
	}
	grad := make([]float64, len(x))
	fd.Gradient(grad, f, x, centralDiff)
	return floats.Norm(grad, math.Inf(1)) <= stationaryTolerance*math.Max(1, math.Abs(fx))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// iterationRecorder logs optimizer progress and stops on context cancellation.
type iterationRecorder struct {
	ctx context.Context
	log logr.Logger
}

func (r *iterationRecorder) Init() error {
	return r.ctx.Err()
}

func (r *iterationRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if op&optimize.MajorIteration == 0 {
		return nil
	}
	r.log.V(2).Info("optimizer iteration",
		"iteration", stats.MajorIterations, "evaluations", stats.FuncEvaluations, "negllf", loc.F)
	return nil
}
