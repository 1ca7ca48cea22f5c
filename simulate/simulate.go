// Package simulate generates synthetic series from state-space processes.
//
// Every generator takes an explicit random source so results are
// reproducible:
//
//	src := rand.NewSource(8678309)
//	term, err := simulate.SeasonalTerm(src, 10, 30, 2, 3)
package simulate

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// burnInFactor is how many times the requested duration is simulated
// before the tail is kept.
const burnInFactor = 100

// ErrDuration is returned when periodicity times cycles is not a positive integer.
var ErrDuration = errors.New("periodicity * total cycles must be a positive integer")

// SeasonalTerm simulates a trigonometric seasonal component: harmonics
// pairs rotating at 2*pi*j/periodicity, each hit by Gaussian noise with
// standard deviation noiseStd. A non-positive harmonics selects
// floor(periodicity/2).
func SeasonalTerm(src rand.Source, periodicity, totalCycles, noiseStd float64, harmonics int) ([]float64, error) {
	if periodicity <= 0 {
		return nil, fmt.Errorf("periodicity must be positive, got %v", periodicity)
	}
	d := periodicity * totalCycles
	if d < 1 || d != math.Trunc(d) {
		return nil, fmt.Errorf("%w: %v * %v", ErrDuration, periodicity, totalCycles)
	}
	duration := int(d)
	if harmonics <= 0 {
		harmonics = int(math.Floor(periodicity / 2))
	}
	if harmonics < 1 {
		return nil, fmt.Errorf("periodicity %v leaves no harmonics", periodicity)
	}

	noise := distuv.Normal{Mu: 0, Sigma: noiseStd, Src: src}
	lambda := 2 * math.Pi / periodicity

	gamma := make([]float64, harmonics)
	gammaStar := make([]float64, harmonics)
	for j := range gamma {
		gamma[j] = noise.Rand()
	}
	for j := range gammaStar {
		gammaStar[j] = noise.Rand()
	}

	total := burnInFactor * duration
	series := make([]float64, total)
	next := make([]float64, harmonics)
	nextStar := make([]float64, harmonics)
	for t := 0; t < total; t++ {
		for j := 0; j < harmonics; j++ {
			cos, sin := math.Cos(lambda*float64(j+1)), math.Sin(lambda*float64(j+1))
			next[j] = gamma[j]*cos + gammaStar[j]*sin + noise.Rand()
			nextStar[j] = -gamma[j]*sin + gammaStar[j]*cos + noise.Rand()
		}
		series[t] = floats.Sum(next)
		gamma, next = next, gamma
		gammaStar, nextStar = nextStar, gammaStar
	}

	return series[total-duration:], nil
}

// SeasonalSpec describes one term of a multi-seasonal series.
type SeasonalSpec struct {
	Period    float64
	Harmonics int
	NoiseStd  float64
}

// MultiSeasonal is a fixed level plus several seasonal terms.
type MultiSeasonal struct {
	Total []float64
	Level []float64
	Terms [][]float64
}

// Seasonal simulates duration periods of level plus one SeasonalTerm per spec.
func Seasonal(src rand.Source, duration int, level float64, specs []SeasonalSpec) (*MultiSeasonal, error) {
	if duration < 1 {
		return nil, fmt.Errorf("%w: duration %d", ErrDuration, duration)
	}

	out := &MultiSeasonal{
		Total: make([]float64, duration),
		Level: make([]float64, duration),
	}
	for i := range out.Level {
		out.Level[i] = level
	}
	copy(out.Total, out.Level)

	for _, spec := range specs {
		term, err := SeasonalTerm(src, spec.Period, float64(duration)/spec.Period, spec.NoiseStd, spec.Harmonics)
		if err != nil {
			return nil, fmt.Errorf("seasonal term %v(%d): %w", spec.Period, spec.Harmonics, err)
		}
		floats.Add(out.Total, term)
		out.Terms = append(out.Terms, term)
	}
	return out, nil
}

// Params configures LocalLinearTrend.
type Params struct {
	Level0           float64
	Slope0           float64
	SigmaMeasurement float64
	SigmaLevel       float64
	SigmaTrend       float64
}

// LocalLinearTrend simulates n observations of a local linear trend process.
func LocalLinearTrend(src rand.Source, n int, p Params) []float64 {
	if n < 1 {
		return nil
	}
	norm := distuv.UnitNormal
	norm.Src = src

	out := make([]float64, n)
	level, slope := p.Level0, p.Slope0
	for t := range out {
		out[t] = level + p.SigmaMeasurement*norm.Rand()
		level += slope + p.SigmaLevel*norm.Rand()
		slope += p.SigmaTrend * norm.Rand()
	}
	return out
}

// armaBurnIn is how many leading draws ARMA discards.
const armaBurnIn = 500

// ARMA simulates n observations of
//
//	y(t) = c + phi_1 y(t-1) + ... + phi_p y(t-p) + e(t) + theta_1 e(t-1) + ... + theta_q e(t-q)
//
// with e(t) ~ N(0, sigma^2), starting from zeros and discarding a burn-in so
// a stationary process has forgotten its start.
func ARMA(src rand.Source, n int, c float64, ar, ma []float64, sigma float64) []float64 {
	if n < 1 {
		return nil
	}
	norm := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}

	total := n + armaBurnIn
	y := make([]float64, total)
	e := make([]float64, total)
	for t := range y {
		e[t] = norm.Rand()
		v := c + e[t]
		for i, phi := range ar {
			if t-i-1 >= 0 {
				v += phi * y[t-i-1]
			}
		}
		for i, theta := range ma {
			if t-i-1 >= 0 {
				v += theta * e[t-i-1]
			}
		}
		y[t] = v
	}
	return y[armaBurnIn:]
}

// Integrate returns the running sum of values started from level, undoing
// one difference.
func Integrate(values []float64, level float64) []float64 {
	out := make([]float64, len(values))
	floats.CumSum(out, values)
	floats.AddConst(level, out)
	return out
}
