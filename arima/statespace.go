package arima

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/gostatespace/statespace"
	"github.com/sartorproj/gostatespace/stats"
	"github.com/sartorproj/gostatespace/timeseries"
)

// maStart is the starting value of every moving average coefficient.
const maStart = 0.1

// StateSpace is a SARIMA model in Harvey's state-space form, bound to one
// series. For ARMA orders p* and q* after multiplying out the seasonal
// polynomials the first r = max(p*, q*+1) states follow
//
//	a(t+1) = T a(t) + c e1 + R e(t)
//
// with phi* down the first column of T, ones on its superdiagonal and
// R = (1, theta*_1, ..., theta*_(r-1))'. The observation is the first
// state. When the series is not differenced up front, d + D*s more states
// carry past levels so that y(t) = a1(t) + sum delta_i y(t-i).
//
// The ARMA states start from their unconditional distribution; carried
// levels start diffuse and are left out of the log-likelihood.
type StateSpace struct {
	spec   Spec
	series *timeseries.Series
	ssm    *statespace.Representation
	names  []string
}

// NewStateSpace builds the state-space form of spec for series. Missing
// values are NaN.
func NewStateSpace(series *timeseries.Series, spec Spec) (*StateSpace, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if series == nil || series.Len() == 0 {
		return nil, statespace.ErrEmptyEndog
	}

	so := spec.Seasonal
	endog := series.Values
	integrated := spec.diffOrder()
	if spec.SimpleDifferencing && integrated > 0 {
		endog = Difference(series.Values, spec.Order.D, so.D, so.S)
		if len(endog) == 0 {
			return nil, fmt.Errorf("%w: %d observations for %v", ErrInsufficientData, series.Len(), spec)
		}
		integrated = 0
	}

	r := max(spec.arOrder(), spec.maOrder()+1)
	rep, err := statespace.NewRepresentation(endog, r+integrated, 1)
	if err != nil {
		return nil, err
	}

	rep.Design.Set(0, 0, 1)
	for i := 0; i < r-1; i++ {
		rep.Transition.Set(i, i+1, 1)
	}
	rep.Selection.Set(0, 0, 1)

	if integrated > 0 {
		delta := differencingWeights(spec.Order.D, so.D, so.S)
		for i, w := range delta {
			rep.Design.Set(0, r+i, w)
			rep.Transition.Set(r, r+i, w)
		}
		rep.Transition.Set(r, 0, 1)
		for j := 1; j < integrated; j++ {
			rep.Transition.Set(r+j, r+j-1, 1)
		}
		rep.Initialization = statespace.Mixed(r, statespace.DefaultDiffuseVariance)
		rep.LoglikelihoodBurn = integrated
	} else {
		rep.Initialization = statespace.Stationary()
	}

	return &StateSpace{
		spec:   spec,
		series: series,
		ssm:    rep,
		names:  paramNames(spec),
	}, nil
}

func paramNames(spec Spec) []string {
	var names []string
	if spec.hasConstant() {
		names = append(names, "intercept")
	}
	for i := 1; i <= spec.Order.P; i++ {
		names = append(names, fmt.Sprintf("ar.L%d", i))
	}
	for i := 1; i <= spec.Order.Q; i++ {
		names = append(names, fmt.Sprintf("ma.L%d", i))
	}
	for i := 1; i <= spec.Seasonal.P; i++ {
		names = append(names, fmt.Sprintf("ar.S.L%d", i*spec.Seasonal.S))
	}
	for i := 1; i <= spec.Seasonal.Q; i++ {
		names = append(names, fmt.Sprintf("ma.S.L%d", i*spec.Seasonal.S))
	}
	return append(names, "sigma2")
}

// coefficients is a parameter vector split by role. The slices alias the
// vector they were split from.
type coefficients struct {
	intercept float64
	ar, ma    []float64
	sar, sma  []float64
	sigma2    float64
}

func (m *StateSpace) split(params []float64) coefficients {
	var c coefficients
	p := params
	if m.spec.hasConstant() {
		c.intercept, p = p[0], p[1:]
	}
	take := func(n int) []float64 {
		out := p[:n:n]
		p = p[n:]
		return out
	}
	c.ar = take(m.spec.Order.P)
	c.ma = take(m.spec.Order.Q)
	c.sar = take(m.spec.Seasonal.P)
	c.sma = take(m.spec.Seasonal.Q)
	c.sigma2 = p[0]
	return c
}

// Coefficients is a parameter vector split by role.
type Coefficients struct {
	Intercept  float64
	AR         []float64
	MA         []float64
	SeasonalAR []float64
	SeasonalMA []float64
	Sigma2     float64
}

// Coefficients splits a vector laid out like ParamNames, such as estimates
// or their standard errors.
func (m *StateSpace) Coefficients(params []float64) (Coefficients, error) {
	if err := statespace.CheckParams(params, len(m.names)); err != nil {
		return Coefficients{}, err
	}
	c := m.split(params)
	return Coefficients{
		Intercept:  c.intercept,
		AR:         append([]float64(nil), c.ar...),
		MA:         append([]float64(nil), c.ma...),
		SeasonalAR: append([]float64(nil), c.sar...),
		SeasonalMA: append([]float64(nil), c.sma...),
		Sigma2:     c.sigma2,
	}, nil
}

// Name identifies the model in summaries.
func (m *StateSpace) Name() string {
	return m.spec.String()
}

// Spec returns the model specification.
func (m *StateSpace) Spec() Spec {
	return m.spec
}

// Series returns the series the model was built from.
func (m *StateSpace) Series() *timeseries.Series {
	return m.series
}

// SSM returns the underlying representation.
func (m *StateSpace) SSM() *statespace.Representation {
	return m.ssm
}

// ParamNames returns intercept, ar, ma, seasonal ar, seasonal ma and sigma2
// labels, in that order.
func (m *StateSpace) ParamNames() []string {
	return append([]string(nil), m.names...)
}

// StartParams returns Yule-Walker autoregressive coefficients, small moving
// average coefficients and the implied innovation variance, all computed on
// the differenced series.
func (m *StateSpace) StartParams() []float64 {
	spec := m.spec
	so := spec.Seasonal
	w := observed(Difference(m.series.Values, spec.Order.D, so.D, so.S))

	out := make([]float64, len(m.names))
	c := m.split(out)
	for i := range c.ma {
		c.ma[i] = maStart
	}
	for i := range c.sma {
		c.sma[i] = maStart
	}

	if len(w) < 2 {
		out[len(out)-1] = 1
		return out
	}
	mean := stat.Mean(w, nil)
	gamma0 := stat.PopVariance(w, nil)
	acf := stats.ACF(w, max(spec.Order.P, so.P*so.S))

	sigma2 := gamma0
	if acf != nil {
		if ar := yuleWalker(acf, spec.Order.P); statespace.IsStationaryAR(ar) {
			copy(c.ar, ar)
			for i, v := range ar {
				sigma2 -= gamma0 * v * acf[i+1]
			}
		}
		if so.P > 0 && len(acf) > so.P*so.S {
			seasonal := make([]float64, so.P+1)
			for i := range seasonal {
				seasonal[i] = acf[i*so.S]
			}
			if sar := yuleWalker(seasonal, so.P); statespace.IsStationaryAR(sar) {
				copy(c.sar, sar)
			}
		}
	}
	if !(sigma2 > 0) {
		sigma2 = gamma0
	}
	if !(sigma2 > 0) {
		sigma2 = 1
	}

	if spec.hasConstant() {
		out[0] = mean * (1 - floats.Sum(reducedAR(c.ar, c.sar, so.S)))
	}
	out[len(out)-1] = sigma2
	return out
}

// TransformParams maps each autoregressive block into the stationary
// region, each moving average block into the invertible region and squares
// the innovation standard deviation. The intercept is unconstrained.
func (m *StateSpace) TransformParams(unconstrained []float64) []float64 {
	out := append([]float64(nil), unconstrained...)
	src, dst := m.split(unconstrained), m.split(out)
	copy(dst.ar, statespace.ConstrainStationary(src.ar))
	copy(dst.sar, statespace.ConstrainStationary(src.sar))
	copy(dst.ma, invertible(src.ma))
	copy(dst.sma, invertible(src.sma))
	out[len(out)-1] = src.sigma2 * src.sigma2
	return out
}

// UntransformParams inverts TransformParams.
func (m *StateSpace) UntransformParams(constrained []float64) []float64 {
	out := append([]float64(nil), constrained...)
	src, dst := m.split(constrained), m.split(out)
	copy(dst.ar, statespace.UnconstrainStationary(src.ar))
	copy(dst.sar, statespace.UnconstrainStationary(src.sar))
	copy(dst.ma, uninvertible(src.ma))
	copy(dst.sma, uninvertible(src.sma))
	out[len(out)-1] = math.Sqrt(src.sigma2)
	return out
}

// invertible maps to theta with 1 + theta_1 L + ... invertible, the mirror
// image of a stationary autoregression.
func invertible(u []float64) []float64 {
	theta := statespace.ConstrainStationary(u)
	floats.Scale(-1, theta)
	return theta
}

func uninvertible(theta []float64) []float64 {
	neg := append([]float64(nil), theta...)
	floats.Scale(-1, neg)
	return statespace.UnconstrainStationary(neg)
}

// Update writes the reduced-form coefficients, intercept and innovation
// variance into the representation.
func (m *StateSpace) Update(params []float64) error {
	if err := statespace.CheckParams(params, len(m.names)); err != nil {
		return err
	}
	c := m.split(params)
	s := m.spec.Seasonal.S

	rep := m.ssm
	for i, v := range reducedAR(c.ar, c.sar, s) {
		rep.Transition.Set(i, 0, v)
	}
	for i, v := range reducedMA(c.ma, c.sma, s) {
		rep.Selection.Set(i+1, 0, v)
	}
	rep.StateIntercept.SetVec(0, c.intercept)
	rep.StateCov.SetSym(0, 0, c.sigma2)
	return nil
}

// Fit estimates the parameters by maximum likelihood.
func (m *StateSpace) Fit(ctx context.Context, cfg *statespace.FitConfig) (*statespace.Results, error) {
	return statespace.Fit(ctx, m, cfg)
}

// Smooth filters and smooths the series at fixed parameters.
func (m *StateSpace) Smooth(params []float64) (*statespace.Results, error) {
	return statespace.SmoothAt(m, params)
}

// yuleWalker solves the Yule-Walker equations for order AR coefficients
// with the Levinson-Durbin recursion. acf starts at lag 0. A singular
// system stops the recursion early and leaves the remaining coefficients
// at zero.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order || acf[0] == 0 {
		return nil
	}

	phi := make([]float64, order)
	prev := make([]float64, order)
	v := 1.0
	for k := 0; k < order; k++ {
		num := acf[k+1] / acf[0]
		for j := 0; j < k; j++ {
			num -= prev[j] * acf[k-j] / acf[0]
		}
		r := num / v
		if !(math.Abs(r) < 1) {
			break
		}
		for j := 0; j < k; j++ {
			phi[j] = prev[j] - r*prev[k-1-j]
		}
		phi[k] = r
		v *= 1 - r*r
		copy(prev, phi[:k+1])
	}
	return phi
}
