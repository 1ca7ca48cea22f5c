// Package ucm implements unobserved components models: a level with an
// optional slope, stochastic seasonal terms, a cycle and an autoregressive
// irregular, each adding its states to one state-space representation.
//
// The trend is specified either by name through Config.Level or component by
// component through the Irregular, StochasticLevel, Trend and
// StochasticTrend flags. With neither, the level is a fixed intercept.
//
// Seasonal terms come in two forms. A time-domain term of period s keeps s-1
// dummy states whose sum over a full period is zero up to noise. A
// frequency-domain term of period s and h harmonics keeps h rotating pairs:
//
//	g(j,t+1)  =  g(j,t) cos(l_j) + g*(j,t) sin(l_j) + w(j,t)
//	g*(j,t+1) = -g(j,t) sin(l_j) + g*(j,t) cos(l_j) + w*(j,t)
//
// with l_j = 2*pi*j/s. The seasonal effect is the sum of the g(j,t). All
// 2h disturbances of one term share a single variance.
//
// The cycle is one such pair with an estimated frequency, scaled by a
// damping factor in (0, 1) when damped.
package ucm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/gostatespace/statespace"
	"github.com/sartorproj/gostatespace/timeseries"
)

// ErrConfig is returned for an invalid component specification.
var ErrConfig = errors.New("invalid unobserved components configuration")

// Starting values for the cycle damping and the autoregressive coefficients.
const (
	dampingStart = 0.7
	arStart      = 0.0
)

// FreqSeasonal is a frequency-domain seasonal term. Zero Harmonics selects
// floor(Period/2).
type FreqSeasonal struct {
	Period    float64 `json:"period" yaml:"period"`
	Harmonics int     `json:"harmonics" yaml:"harmonics"`
}

// Config selects the components of the model.
type Config struct {
	// Level names a trend specification such as "local level", "lltrend" or
	// "random walk with drift". When set it replaces Irregular,
	// StochasticLevel, Trend and StochasticTrend.
	Level           string `json:"level" yaml:"level"`
	Irregular       bool   `json:"irregular" yaml:"irregular"`
	StochasticLevel bool   `json:"stochastic_level" yaml:"stochastic_level"`
	Trend           bool   `json:"trend" yaml:"trend"`
	StochasticTrend bool   `json:"stochastic_trend" yaml:"stochastic_trend"`

	Seasonal      int            `json:"seasonal" yaml:"seasonal"` // Time-domain period, 0 for none
	FreqSeasonals []FreqSeasonal `json:"freq_seasonal" yaml:"freq_seasonal"`

	Cycle           bool `json:"cycle" yaml:"cycle"`
	StochasticCycle bool `json:"stochastic_cycle" yaml:"stochastic_cycle"`
	DampedCycle     bool `json:"damped_cycle" yaml:"damped_cycle"`
	// CyclePeriodBounds limits the cycle period; the zero value selects
	// [2, number of observations].
	CyclePeriodBounds [2]float64 `json:"cycle_period_bounds" yaml:"cycle_period_bounds"`

	Autoregressive int `json:"autoregressive" yaml:"autoregressive"` // AR order of the irregular
}

// trendSpec is a resolved trend specification.
type trendSpec struct {
	irregular       bool
	level           bool
	stochasticLevel bool
	trend           bool
	stochasticTrend bool
}

// trendSpecs maps the named specifications and their short forms.
var trendSpecs = map[string]trendSpec{
	"irregular":                        {irregular: true},
	"fixed intercept":                  {level: true},
	"deterministic constant":           {irregular: true, level: true},
	"dconstant":                        {irregular: true, level: true},
	"local level":                      {irregular: true, level: true, stochasticLevel: true},
	"llevel":                           {irregular: true, level: true, stochasticLevel: true},
	"random walk":                      {level: true, stochasticLevel: true},
	"rwalk":                            {level: true, stochasticLevel: true},
	"fixed slope":                      {level: true, trend: true},
	"deterministic trend":              {irregular: true, level: true, trend: true},
	"dtrend":                           {irregular: true, level: true, trend: true},
	"local linear deterministic trend": {irregular: true, level: true, stochasticLevel: true, trend: true},
	"lldtrend":                         {irregular: true, level: true, stochasticLevel: true, trend: true},
	"random walk with drift":           {level: true, stochasticLevel: true, trend: true},
	"rwdrift":                          {level: true, stochasticLevel: true, trend: true},
	"local linear trend":               {irregular: true, level: true, stochasticLevel: true, trend: true, stochasticTrend: true},
	"lltrend":                          {irregular: true, level: true, stochasticLevel: true, trend: true, stochasticTrend: true},
	"smooth trend":                     {irregular: true, level: true, trend: true, stochasticTrend: true},
	"strend":                           {irregular: true, level: true, trend: true, stochasticTrend: true},
	"random trend":                     {level: true, trend: true, stochasticTrend: true},
	"rtrend":                           {level: true, trend: true, stochasticTrend: true},
}

func (c Config) trendSpec() (trendSpec, error) {
	if c.Level == "" {
		return trendSpec{
			irregular:       c.Irregular,
			level:           true,
			stochasticLevel: c.StochasticLevel,
			trend:           c.Trend,
			stochasticTrend: c.StochasticTrend,
		}, nil
	}
	s, ok := trendSpecs[strings.ToLower(strings.TrimSpace(c.Level))]
	if !ok {
		return trendSpec{}, fmt.Errorf("%w: unknown level specification %q", ErrConfig, c.Level)
	}
	return s, nil
}

// block locates one seasonal term in the state vector.
type block struct {
	name      string
	start     int // First state
	states    int
	harmonics int // Frequency-domain pairs, 0 for time-domain
	period    float64
}

type paramKind int

const (
	paramVariance paramKind = iota
	paramFrequency
	paramDamping
	paramAR
)

// param is one entry of the parameter vector.
type param struct {
	name  string
	kind  paramKind
	obs   bool  // Irregular variance
	noise []int // Disturbances sharing a state variance
	lag   int   // AR lag, from 1
}

// Model is an unobserved components model bound to one series.
type Model struct {
	series *timeseries.Series
	ssm    *statespace.Representation
	cfg    Config
	spec   trendSpec
	blocks []block
	params []param

	// First state of each optional component, -1 when absent.
	levelState int
	trendState int
	cycleState int
	arState    int

	freqBounds [2]float64
}

// New builds the model for series.
func New(series *timeseries.Series, cfg Config) (*Model, error) {
	if series == nil || series.Len() == 0 {
		return nil, statespace.ErrEmptyEndog
	}
	if cfg.Seasonal == 1 || cfg.Seasonal < 0 {
		return nil, fmt.Errorf("%w: seasonal period %d", ErrConfig, cfg.Seasonal)
	}
	if cfg.Autoregressive < 0 {
		return nil, fmt.Errorf("%w: autoregressive order %d", ErrConfig, cfg.Autoregressive)
	}
	spec, err := cfg.trendSpec()
	if err != nil {
		return nil, err
	}

	m := &Model{
		series:     series,
		cfg:        cfg,
		spec:       spec,
		levelState: -1,
		trendState: -1,
		cycleState: -1,
		arState:    -1,
	}

	// selection pairs each disturbance with the state it enters.
	var selection [][2]int
	kStates, kPosdef := 0, 0
	addVariance := func(name string, states ...int) {
		p := param{name: name}
		for _, s := range states {
			p.noise = append(p.noise, kPosdef)
			selection = append(selection, [2]int{s, kPosdef})
			kPosdef++
		}
		m.params = append(m.params, p)
	}

	if spec.irregular {
		m.params = append(m.params, param{name: "sigma2.irregular", obs: true})
	}
	if spec.level {
		m.levelState = kStates
		kStates++
		if spec.trend {
			m.trendState = kStates
			kStates++
		}
		if spec.stochasticLevel {
			addVariance("sigma2.level", m.levelState)
		}
		if spec.stochasticTrend && spec.trend {
			addVariance("sigma2.trend", m.trendState)
		}
	}

	if s := cfg.Seasonal; s > 0 {
		b := block{name: fmt.Sprintf("seasonal(%d)", s), start: kStates, states: s - 1}
		m.blocks = append(m.blocks, b)
		addVariance("sigma2.seasonal", b.start)
		kStates += b.states
	}
	for _, fs := range cfg.FreqSeasonals {
		h := fs.Harmonics
		if h <= 0 {
			h = int(math.Floor(fs.Period / 2))
		}
		if !(fs.Period > 1) || h < 1 {
			return nil, fmt.Errorf("%w: freq_seasonal period %v with %d harmonics", ErrConfig, fs.Period, fs.Harmonics)
		}
		label := fmt.Sprintf("freq_seasonal_%s(%d)", strconv.FormatFloat(fs.Period, 'g', -1, 64), h)
		b := block{name: label, start: kStates, states: 2 * h, harmonics: h, period: fs.Period}
		m.blocks = append(m.blocks, b)
		states := make([]int, b.states)
		for j := range states {
			states[j] = b.start + j
		}
		addVariance("sigma2."+label, states...)
		kStates += b.states
	}

	if cfg.Cycle {
		lower, upper := cfg.CyclePeriodBounds[0], cfg.CyclePeriodBounds[1]
		if lower == 0 && upper == 0 {
			lower, upper = 2, float64(series.Len())
		}
		if lower < 2 || !(upper > lower) {
			return nil, fmt.Errorf("%w: cycle period bounds [%v, %v]", ErrConfig, lower, upper)
		}
		m.freqBounds = [2]float64{2 * math.Pi / upper, 2 * math.Pi / lower}

		m.cycleState = kStates
		kStates += 2
		if cfg.StochasticCycle {
			addVariance("sigma2.cycle", m.cycleState, m.cycleState+1)
		}
		m.params = append(m.params, param{name: "frequency.cycle", kind: paramFrequency})
		if cfg.DampedCycle {
			m.params = append(m.params, param{name: "damping.cycle", kind: paramDamping})
		}
	}

	if p := cfg.Autoregressive; p > 0 {
		m.arState = kStates
		kStates += p
		addVariance("sigma2.ar", m.arState)
		for lag := 1; lag <= p; lag++ {
			m.params = append(m.params, param{name: fmt.Sprintf("ar.L%d", lag), kind: paramAR, lag: lag})
		}
	}

	if !m.hasVariance() {
		return nil, fmt.Errorf("%w: no stochastic components", ErrConfig)
	}
	if kStates == 0 {
		return nil, fmt.Errorf("%w: no state components", ErrConfig)
	}

	// A representation needs at least one disturbance; a model with only an
	// irregular gets an inert one.
	rep, err := statespace.NewRepresentation(series.Values, kStates, max(kPosdef, 1))
	if err != nil {
		return nil, err
	}

	if l := m.levelState; l >= 0 {
		rep.Design.Set(0, l, 1)
		rep.Transition.Set(l, l, 1)
		if tr := m.trendState; tr >= 0 {
			rep.Transition.Set(l, tr, 1)
			rep.Transition.Set(tr, tr, 1)
		}
	}
	for _, b := range m.blocks {
		if b.harmonics == 0 {
			setDummyBlock(rep, b)
		} else {
			setTrigBlock(rep, b)
		}
	}
	if c := m.cycleState; c >= 0 {
		rep.Design.Set(0, c, 1)
		setRotation(rep, c, m.startFrequency(), 1)
	}
	if a := m.arState; a >= 0 {
		rep.Design.Set(0, a, 1)
		for i := 1; i < cfg.Autoregressive; i++ {
			rep.Transition.Set(a+i, a+i-1, 1)
		}
	}
	for _, s := range selection {
		rep.Selection.Set(s[0], s[1], 1)
	}

	rep.Initialization = statespace.ApproximateDiffuse(statespace.DefaultDiffuseVariance)
	rep.LoglikelihoodBurn = kStates
	m.ssm = rep
	return m, nil
}

func (m *Model) hasVariance() bool {
	for _, p := range m.params {
		if p.kind == paramVariance {
			return true
		}
	}
	return false
}

func setDummyBlock(rep *statespace.Representation, b block) {
	rep.Design.Set(0, b.start, 1)
	for j := 0; j < b.states; j++ {
		rep.Transition.Set(b.start, b.start+j, -1)
		if j > 0 {
			rep.Transition.Set(b.start+j, b.start+j-1, 1)
		}
	}
}

func setTrigBlock(rep *statespace.Representation, b block) {
	for j := 0; j < b.harmonics; j++ {
		i := b.start + 2*j
		rep.Design.Set(0, i, 1)
		setRotation(rep, i, 2*math.Pi*float64(j+1)/b.period, 1)
	}
}

// setRotation writes a rotation by lambda, scaled by rho, into the 2x2
// transition block starting at state i.
func setRotation(rep *statespace.Representation, i int, lambda, rho float64) {
	cos, sin := rho*math.Cos(lambda), rho*math.Sin(lambda)
	rep.Transition.Set(i, i, cos)
	rep.Transition.Set(i, i+1, sin)
	rep.Transition.Set(i+1, i, -sin)
	rep.Transition.Set(i+1, i+1, cos)
}

// startFrequency is the periodogram peak of the linearly detrended observed
// values within the cycle frequency bounds.
func (m *Model) startFrequency() float64 {
	lo, hi := m.freqBounds[0], m.freqBounds[1]
	best := (lo + hi) / 2

	obs := m.series.Observed()
	n := len(obs)
	if n < 4 {
		return best
	}
	x := make([]float64, n)
	floats.Span(x, 0, float64(n-1))
	a, b := stat.LinearRegression(x, obs, nil, false)
	resid := make([]float64, n)
	for i, v := range obs {
		resid[i] = v - a - b*x[i]
	}

	fft := fourier.NewFFT(n)
	coef := fft.Coefficients(nil, resid)
	power := -1.0
	for k := 1; k < len(coef); k++ {
		w := 2 * math.Pi * fft.Freq(k)
		if w <= lo || w >= hi {
			continue
		}
		if p := cmplx.Abs(coef[k]); p > power {
			best, power = w, p
		}
	}
	return best
}

// Name identifies the model in summaries.
func (m *Model) Name() string {
	return "unobserved components"
}

// SSM returns the underlying representation.
func (m *Model) SSM() *statespace.Representation {
	return m.ssm
}

// ParamNames returns the parameter labels: irregular, level, trend and
// seasonal variances, then the cycle and autoregressive parameters.
func (m *Model) ParamNames() []string {
	out := make([]string, len(m.params))
	for i, p := range m.params {
		out[i] = p.name
	}
	return out
}

// StartParams uses the population variance of the observed values for every
// variance and the periodogram peak for the cycle frequency.
func (m *Model) StartParams() []float64 {
	v := m.series.PopVariance()
	out := make([]float64, len(m.params))
	for i, p := range m.params {
		switch p.kind {
		case paramVariance:
			out[i] = v
		case paramFrequency:
			out[i] = m.startFrequency()
		case paramDamping:
			out[i] = dampingStart
		case paramAR:
			out[i] = arStart
		}
	}
	return out
}

// arBlock returns the index of ar.L1 in the parameter vector, or -1.
func (m *Model) arBlock() int {
	for i, p := range m.params {
		if p.kind == paramAR {
			return i
		}
	}
	return -1
}

// TransformParams squares variances, maps the frequency into its bounds,
// the damping into (0, 1) and the AR coefficients into the stationary
// region.
func (m *Model) TransformParams(unconstrained []float64) []float64 {
	out := make([]float64, len(unconstrained))
	lo, hi := m.freqBounds[0], m.freqBounds[1]
	for i, u := range unconstrained {
		if i >= len(m.params) {
			out[i] = u
			continue
		}
		switch m.params[i].kind {
		case paramVariance:
			out[i] = u * u
		case paramFrequency:
			out[i] = lo + (hi-lo)/(1+math.Exp(-u))
		case paramDamping:
			out[i] = u * u / (1 + u*u)
		}
	}
	if a := m.arBlock(); a >= 0 && a+m.cfg.Autoregressive <= len(unconstrained) {
		copy(out[a:], statespace.ConstrainStationary(unconstrained[a:a+m.cfg.Autoregressive]))
	}
	return out
}

// UntransformParams inverts TransformParams.
func (m *Model) UntransformParams(constrained []float64) []float64 {
	out := make([]float64, len(constrained))
	lo, hi := m.freqBounds[0], m.freqBounds[1]
	for i, c := range constrained {
		if i >= len(m.params) {
			out[i] = c
			continue
		}
		switch m.params[i].kind {
		case paramVariance:
			out[i] = math.Sqrt(c)
		case paramFrequency:
			x := (c - lo) / (hi - lo)
			out[i] = math.Log(x / (1 - x))
		case paramDamping:
			out[i] = math.Sqrt(c / (1 - c))
		}
	}
	if a := m.arBlock(); a >= 0 && a+m.cfg.Autoregressive <= len(constrained) {
		copy(out[a:], statespace.UnconstrainStationary(constrained[a:a+m.cfg.Autoregressive]))
	}
	return out
}

// Update writes the parameters into the covariances and the cycle and
// autoregressive transition blocks.
func (m *Model) Update(params []float64) error {
	if err := statespace.CheckParams(params, len(m.params)); err != nil {
		return err
	}

	frequency, damping := 0.0, 1.0
	for i, p := range m.params {
		v := params[i]
		switch p.kind {
		case paramVariance:
			if p.obs {
				m.ssm.ObsCov.SetSym(0, 0, v)
				continue
			}
			for _, n := range p.noise {
				m.ssm.StateCov.SetSym(n, n, v)
			}
		case paramFrequency:
			frequency = v
		case paramDamping:
			damping = v
		case paramAR:
			m.ssm.Transition.Set(m.arState, m.arState+p.lag-1, v)
		}
	}
	if c := m.cycleState; c >= 0 {
		setRotation(m.ssm, c, frequency, damping)
	}
	return nil
}

// Fit estimates the parameters by maximum likelihood.
func (m *Model) Fit(ctx context.Context, cfg *statespace.FitConfig) (*statespace.Results, error) {
	return statespace.Fit(ctx, m, cfg)
}

// Component is the contribution of one component to the observations.
type Component struct {
	Name     string
	Filtered []float64
	Smoothed []float64
}

// Components splits fitted states into the level, the slope, each seasonal
// term, the cycle and the autoregressive irregular, in that order. The
// slope is reported as a state; it enters the observations through the
// level.
func (m *Model) Components(res *statespace.Results) ([]Component, error) {
	if res == nil || res.Filtered == nil || res.Smoothed == nil {
		return nil, statespace.ErrNotFitted
	}
	if res.NObs != m.ssm.NObs() {
		return nil, fmt.Errorf("results cover %d periods, model has %d", res.NObs, m.ssm.NObs())
	}

	var out []Component
	single := func(name string, state int) {
		out = append(out, Component{
			Name:     name,
			Filtered: res.FilteredState(state),
			Smoothed: res.SmoothedState(state),
		})
	}
	if m.levelState >= 0 {
		single("level", m.levelState)
	}
	if m.trendState >= 0 {
		single("trend", m.trendState)
	}
	for _, b := range m.blocks {
		c := Component{
			Name:     b.name,
			Filtered: make([]float64, res.NObs),
			Smoothed: make([]float64, res.NObs),
		}
		step := 2
		if b.harmonics == 0 {
			step = b.states
		}
		for i := b.start; i < b.start+b.states; i += step {
			floats.Add(c.Filtered, res.FilteredState(i))
			floats.Add(c.Smoothed, res.SmoothedState(i))
		}
		out = append(out, c)
	}
	if m.cycleState >= 0 {
		single("cycle", m.cycleState)
	}
	if m.arState >= 0 {
		single("autoregressive", m.arState)
	}
	return out, nil
}

// CycleFrequencyBounds returns the admissible cycle frequencies in radians
// per period.
func (m *Model) CycleFrequencyBounds() (lower, upper float64) {
	return m.freqBounds[0], m.freqBounds[1]
}
