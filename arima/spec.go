package arima

import (
	"errors"
	"fmt"
	"math"
)

// Trend specifications.
const (
	TrendNone     = "n" // No deterministic term
	TrendConstant = "c" // Intercept in the ARMA equation (a drift once differenced)
)

var (
	// ErrOrder is returned for a negative or otherwise unusable order.
	ErrOrder = errors.New("invalid ARIMA order")
	// ErrInsufficientData is returned when the series is too short for the order.
	ErrInsufficientData = errors.New("insufficient data points for the specified order")
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int `json:"p" yaml:"p"` // AR order (number of autoregressive terms)
	D int `json:"d" yaml:"d"` // Differencing order
	Q int `json:"q" yaml:"q"` // MA order (number of moving average terms)
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// SeasonalOrder is the (P, D, Q, s) part of a seasonal model. The lag
// polynomials are in L^s.
type SeasonalOrder struct {
	P int `json:"p" yaml:"p"`
	D int `json:"d" yaml:"d"`
	Q int `json:"q" yaml:"q"`
	S int `json:"s" yaml:"s"` // Period, 0 for none
}

func (o SeasonalOrder) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", o.P, o.D, o.Q, o.S)
}

func (o SeasonalOrder) empty() bool {
	return o.P == 0 && o.D == 0 && o.Q == 0
}

// Spec describes a SARIMA(p,d,q)x(P,D,Q,s) model:
//
//	phi(L) Phi(L^s) (1-L)^d (1-L^s)^D y(t) = c + theta(L) Theta(L^s) e(t)
//
// With SimpleDifferencing the differenced series is modelled directly and
// the first d + D*s observations are dropped; otherwise the levels are
// carried in the state vector and predictions are on the original scale.
type Spec struct {
	Order              Order         `json:"order" yaml:"order"`
	Seasonal           SeasonalOrder `json:"seasonal_order" yaml:"seasonal_order"`
	Trend              string        `json:"trend" yaml:"trend"`
	SimpleDifferencing bool          `json:"simple_differencing" yaml:"simple_differencing"`
}

func (s Spec) String() string {
	out := "SARIMAX" + s.Order.String()
	if !s.Seasonal.empty() {
		out += "x" + s.Seasonal.String()
	}
	return out
}

// Validate checks the orders and trend.
func (s Spec) Validate() error {
	o, so := s.Order, s.Seasonal
	if o.P < 0 || o.D < 0 || o.Q < 0 || so.P < 0 || so.D < 0 || so.Q < 0 || so.S < 0 {
		return fmt.Errorf("%w: negative order in %v", ErrOrder, s)
	}
	if !so.empty() && so.S < 2 {
		return fmt.Errorf("%w: seasonal terms need a period of at least 2, got %d", ErrOrder, so.S)
	}
	switch s.Trend {
	case "", TrendNone, TrendConstant:
	default:
		return fmt.Errorf("%w: unknown trend %q", ErrOrder, s.Trend)
	}
	return nil
}

func (s Spec) hasConstant() bool {
	return s.Trend == TrendConstant
}

// arOrder and maOrder are the degrees of the multiplied polynomials.
func (s Spec) arOrder() int {
	return s.Order.P + s.Seasonal.P*s.Seasonal.S
}

func (s Spec) maOrder() int {
	return s.Order.Q + s.Seasonal.Q*s.Seasonal.S
}

// diffOrder is the degree of (1-L)^d (1-L^s)^D.
func (s Spec) diffOrder() int {
	return s.Order.D + s.Seasonal.D*s.Seasonal.S
}

// minObservations is the shortest series the order can be fitted to.
func (s Spec) minObservations() int {
	return s.arOrder() + s.maOrder() + s.diffOrder() + 10
}

// polyMul multiplies lag polynomials stored lowest degree first.
func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// lagPolynomial returns 1 + sign*(c_1 L^step + c_2 L^(2 step) + ...).
func lagPolynomial(coeffs []float64, step int, sign float64) []float64 {
	out := make([]float64, len(coeffs)*step+1)
	out[0] = 1
	for i, c := range coeffs {
		out[(i+1)*step] = sign * c
	}
	return out
}

// reducedAR multiplies phi(L) Phi(L^s) and returns the coefficients of the
// product in the y(t) = sum phi*_i y(t-i) convention.
func reducedAR(ar, sar []float64, s int) []float64 {
	poly := polyMul(lagPolynomial(ar, 1, -1), lagPolynomial(sar, max(s, 1), -1))
	out := make([]float64, len(poly)-1)
	for i := range out {
		out[i] = -poly[i+1]
	}
	return out
}

// reducedMA multiplies theta(L) Theta(L^s).
func reducedMA(ma, sma []float64, s int) []float64 {
	poly := polyMul(lagPolynomial(ma, 1, 1), lagPolynomial(sma, max(s, 1), 1))
	return poly[1:]
}

// differencingWeights returns delta with
// (1-L)^d (1-L^s)^D y(t) = y(t) - sum delta_i y(t-i).
func differencingWeights(d, sd, s int) []float64 {
	poly := []float64{1}
	for i := 0; i < d; i++ {
		poly = polyMul(poly, []float64{1, -1})
	}
	if sd > 0 {
		seasonal := make([]float64, s+1)
		seasonal[0], seasonal[s] = 1, -1
		for i := 0; i < sd; i++ {
			poly = polyMul(poly, seasonal)
		}
	}
	out := make([]float64, len(poly)-1)
	for i := range out {
		out[i] = -poly[i+1]
	}
	return out
}

// Difference applies (1-L)^d (1-L^s)^D to values. The result is shorter by
// d + D*s; a missing input makes every output it touches missing.
func Difference(values []float64, d, sd, s int) []float64 {
	delta := differencingWeights(d, sd, s)
	k := len(delta)
	if len(values) <= k {
		return nil
	}
	out := make([]float64, len(values)-k)
	for t := range out {
		v := values[t+k]
		for i, w := range delta {
			v -= w * values[t+k-i-1]
		}
		out[t] = v
	}
	return out
}

// observed drops missing values.
func observed(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
