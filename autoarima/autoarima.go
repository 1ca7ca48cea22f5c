package autoarima

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/gostatespace/arima"
	"github.com/sartorproj/gostatespace/sarima"
	"github.com/sartorproj/gostatespace/statespace"
	"github.com/sartorproj/gostatespace/stats"
	"github.com/sartorproj/gostatespace/timeseries"
)

// Information criteria accepted by Config.Criterion.
const (
	CriterionAIC  = "aic"
	CriterionAICc = "aicc"
	CriterionBIC  = "bic"
	CriterionHQIC = "hqic"
)

var (
	// ErrConfig is returned for an invalid search configuration.
	ErrConfig = errors.New("invalid auto ARIMA configuration")
	// ErrNoModel is returned when no candidate could be fitted.
	ErrNoModel = errors.New("no candidate model could be fitted")
)

// Config holds configuration for auto ARIMA search.
type Config struct {
	MaxP        int    `json:"max_p" yaml:"max_p" validate:"gte=0"`   // Maximum AR order (default: 5)
	MaxD        int    `json:"max_d" yaml:"max_d" validate:"gte=0"`   // Maximum differencing order (default: 2)
	MaxQ        int    `json:"max_q" yaml:"max_q" validate:"gte=0"`   // Maximum MA order (default: 5)
	MaxSP       int    `json:"max_sp" yaml:"max_sp" validate:"gte=0"` // Maximum seasonal AR order (default: 2)
	MaxSD       int    `json:"max_sd" yaml:"max_sd" validate:"gte=0"` // Maximum seasonal differencing order (default: 1)
	MaxSQ       int    `json:"max_sq" yaml:"max_sq" validate:"gte=0"` // Maximum seasonal MA order (default: 2)
	Seasonal    bool   `json:"seasonal" yaml:"seasonal"`              // Whether to consider seasonal models
	SeasonalM   int    `json:"seasonal_m" yaml:"seasonal_m"`          // Seasonal period (required if Seasonal=true)
	Stepwise    bool   `json:"stepwise" yaml:"stepwise"`              // Use stepwise search instead of exhaustive
	Criterion   string `json:"criterion" yaml:"criterion" validate:"omitempty,oneof=aic aicc bic hqic"`
	Trace       bool   `json:"trace" yaml:"trace"` // Log every candidate at info level
	StationTest string `json:"station_test" yaml:"station_test" validate:"omitempty,oneof=kpss adf"`
	Parallelism int    `json:"parallelism" yaml:"parallelism" validate:"gte=0"` // Concurrent fits (default: GOMAXPROCS)

	// FitConfig estimates every candidate; covariance is only computed for
	// the selected model.
	FitConfig *statespace.FitConfig `json:"-" yaml:"-"`
	Logger    logr.Logger           `json:"-" yaml:"-"`
}

// DefaultConfig returns the default auto ARIMA configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxP:        5,
		MaxD:        2,
		MaxQ:        5,
		MaxSP:       2,
		MaxSD:       1,
		MaxSQ:       2,
		Seasonal:    false,
		Stepwise:    true,
		Criterion:   CriterionAIC,
		StationTest: stats.UnitRootKPSS,
		Logger:      logr.Discard(),
	}
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if c.Seasonal && c.SeasonalM < 2 {
		return fmt.Errorf("%w: seasonal search needs SeasonalM >= 2, got %d", ErrConfig, c.SeasonalM)
	}
	return nil
}

// fitConfig returns the estimation settings for candidates, or for the
// selected model when final is set.
func (c *Config) fitConfig(final bool) *statespace.FitConfig {
	fc := statespace.DefaultFitConfig()
	if c.FitConfig != nil {
		copied := *c.FitConfig
		fc = &copied
	}
	fc.Logger = c.Logger.V(2)
	if !final {
		fc.SkipCovariance = true
	}
	return fc
}

// Result represents the result of auto ARIMA model selection.
type Result struct {
	// Non-seasonal model (if no seasonality)
	Model *arima.Model
	// Seasonal model (if seasonal)
	SeasonalModel *sarima.Model

	// Best parameters found
	P  int
	D  int
	Q  int
	SP int
	SD int
	SQ int
	M  int

	// Model metrics
	AIC       float64
	BIC       float64
	LogLik    float64
	Criterion float64

	// Search information
	ModelsEvaluated int
	IsSeasonal      bool
}

func (r *Result) String() string {
	if r.IsSeasonal {
		return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d)[%d]", r.P, r.D, r.Q, r.SP, r.SD, r.SQ, r.M)
	}
	return fmt.Sprintf("ARIMA(%d,%d,%d)", r.P, r.D, r.Q)
}

// AutoARIMA automatically selects the best ARIMA or SARIMA model. A nil
// config selects DefaultConfig.
func AutoARIMA(ctx context.Context, series *timeseries.Series, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	if series == nil || series.Len() == 0 {
		return nil, statespace.ErrEmptyEndog
	}
	log := config.Logger

	values := series.Observed()
	seasonal := config.Seasonal

	// Determine seasonal differencing first, then the differencing order of
	// the seasonally differenced series.
	sd := 0
	if seasonal {
		sd = determineSeasonalDifferencing(values, config.MaxSD, config.SeasonalM)
	}
	d := determineDifferencing(arima.Difference(values, 0, sd, config.SeasonalM), config.MaxD, config.StationTest)
	log.Info("Selected differencing", "d", d, "D", sd, "test", config.StationTest)

	s := &searcher{
		series:   series,
		d:        d,
		sd:       sd,
		config:   config,
		seasonal: seasonal,
		visited:  make(map[candidate]bool),
		log:      log,
	}
	var best *fitted
	var err error
	if config.Stepwise {
		best, err = s.stepwise(ctx)
	} else {
		best, err = s.grid(ctx)
	}
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, ErrNoModel
	}

	// Refit the winner with the full configuration for standard errors.
	final, err := s.fit(ctx, best.cand, config.fitConfig(true))
	if err != nil {
		return nil, fmt.Errorf("refitting selected model: %w", err)
	}
	res := final.results()
	result := &Result{
		Model:           final.arima,
		SeasonalModel:   final.sarima,
		P:               best.cand.p,
		D:               d,
		Q:               best.cand.q,
		AIC:             res.AIC,
		BIC:             res.BIC,
		LogLik:          res.LogLik,
		Criterion:       criterion(res, config.Criterion),
		ModelsEvaluated: s.evaluated,
		IsSeasonal:      seasonal,
	}
	if seasonal {
		result.SP, result.SD, result.SQ, result.M = best.cand.sp, sd, best.cand.sq, config.SeasonalM
	}
	log.Info("Selected model", "model", result.String(), "criterion", config.Criterion,
		"value", result.Criterion, "evaluated", result.ModelsEvaluated)
	return result, nil
}

// determineDifferencing determines the optimal differencing order.
// With KPSS it also consults ADF for more robust detection.
func determineDifferencing(values []float64, maxD int, testType string) int {
	current := values

	for d := 0; d < maxD; d++ {
		isStationary := false

		if testType == stats.UnitRootADF {
			// ADF test: H0 = non-stationary, reject if p < 0.05
			result := stats.ADF(current, 0)
			isStationary = result != nil && result.IsStationary
		} else {
			// KPSS: H0 = stationary. Accept when ADF agrees, or when KPSS
			// is at the top of its table.
			kpssResult := stats.KPSS(current, stats.KPSSLevel, 0)
			adfResult := stats.ADF(current, 0)

			kpssStationary := kpssResult != nil && kpssResult.IsStationary
			adfStationary := adfResult != nil && adfResult.IsStationary
			isStationary = kpssStationary && (adfStationary || kpssResult.PValue >= 0.1)
		}

		if isStationary {
			return d
		}

		current = arima.Difference(current, 1, 0, 0)
		if len(current) < 10 {
			return d
		}
	}

	return maxD
}

// determineSeasonalDifferencing determines optimal seasonal differencing.
func determineSeasonalDifferencing(values []float64, maxSD int, period int) int {
	if maxSD < 1 {
		return 0
	}
	acf := stats.ACF(values, period*2)
	if acf == nil {
		return 0
	}

	// If strong autocorrelation at seasonal lag, likely need seasonal differencing
	if len(acf) > period && math.Abs(acf[period]) > 0.5 {
		return 1
	}

	return 0
}

// candidate is one order tried by the search; seasonal orders are zero in
// a non-seasonal search.
type candidate struct {
	p, q, sp, sq int
}

// fitted is a candidate with its estimated model.
type fitted struct {
	cand      candidate
	arima     *arima.Model
	sarima    *sarima.Model
	criterion float64
}

func (f *fitted) results() *statespace.Results {
	if f.sarima != nil {
		return f.sarima.Results
	}
	return f.arima.Results
}

func criterion(res *statespace.Results, name string) float64 {
	switch name {
	case CriterionAICc:
		return res.AICc
	case CriterionBIC:
		return res.BIC
	case CriterionHQIC:
		return res.HQIC
	default:
		return res.AIC
	}
}

type searcher struct {
	series   *timeseries.Series
	d, sd    int
	config   *Config
	seasonal bool
	log      logr.Logger

	visited   map[candidate]bool
	evaluated int
}

func (s *searcher) allowed(c candidate) bool {
	cfg := s.config
	if c.p < 0 || c.p > cfg.MaxP || c.q < 0 || c.q > cfg.MaxQ {
		return false
	}
	if !s.seasonal {
		return c.sp == 0 && c.sq == 0
	}
	return c.sp >= 0 && c.sp <= cfg.MaxSP && c.sq >= 0 && c.sq <= cfg.MaxSQ
}

func (s *searcher) fit(ctx context.Context, c candidate, fc *statespace.FitConfig) (*fitted, error) {
	out := &fitted{cand: c}
	if s.seasonal {
		m := sarima.New(c.p, s.d, c.q, c.sp, s.sd, c.sq, s.config.SeasonalM)
		m.FitConfig = fc
		if err := m.Fit(ctx, s.series); err != nil {
			return nil, err
		}
		out.sarima = m
	} else {
		m := arima.New(c.p, s.d, c.q)
		m.FitConfig = fc
		if err := m.Fit(ctx, s.series); err != nil {
			return nil, err
		}
		out.arima = m
	}
	out.criterion = criterion(out.results(), s.config.Criterion)
	return out, nil
}

// evaluate fits the unseen, allowed candidates concurrently and returns the
// best of them. Candidates that fail to fit are skipped.
func (s *searcher) evaluate(ctx context.Context, cands []candidate) (*fitted, error) {
	var todo []candidate
	for _, c := range cands {
		if s.allowed(c) && !s.visited[c] {
			s.visited[c] = true
			todo = append(todo, c)
		}
	}

	limit := s.config.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	out := make([]*fitted, len(todo))
	fc := s.config.fitConfig(false)
	var mu sync.Mutex
	for i, c := range todo {
		g.Go(func() error {
			f, err := s.fit(gctx, c, fc)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.log.V(1).Info("Skipping candidate", "order", c, "error", err.Error())
				return nil
			}
			s.trace(f)
			mu.Lock()
			out[i] = f
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var best *fitted
	for _, f := range out {
		if f == nil {
			continue
		}
		s.evaluated++
		if best == nil || f.criterion < best.criterion {
			best = f
		}
	}
	return best, nil
}

func (s *searcher) trace(f *fitted) {
	log := s.log.V(1)
	if s.config.Trace {
		log = s.log
	}
	log.Info("Fitted candidate", "p", f.cand.p, "d", s.d, "q", f.cand.q,
		"P", f.cand.sp, "D", s.sd, "Q", f.cand.sq, s.config.Criterion, f.criterion)
}

// stepwise starts from a few simple models and moves to the best
// neighbour until no neighbour improves the criterion.
func (s *searcher) stepwise(ctx context.Context) (*fitted, error) {
	start := []candidate{
		{0, 0, 0, 0}, {1, 0, 0, 0}, {0, 1, 0, 0}, {1, 1, 0, 0}, {2, 2, 0, 0},
	}
	if s.seasonal {
		start = []candidate{
			{0, 0, 0, 0}, {1, 0, 1, 0}, {0, 1, 0, 1}, {1, 1, 1, 1}, {2, 2, 1, 1},
		}
	}

	best, err := s.evaluate(ctx, start)
	if err != nil || best == nil {
		return best, err
	}

	for {
		next, err := s.evaluate(ctx, s.neighbors(best.cand))
		if err != nil {
			return nil, err
		}
		if next == nil || next.criterion >= best.criterion {
			return best, nil
		}
		best = next
	}
}

func (s *searcher) neighbors(c candidate) []candidate {
	if s.seasonal {
		return []candidate{
			{c.p + 1, c.q, c.sp, c.sq},
			{c.p - 1, c.q, c.sp, c.sq},
			{c.p, c.q + 1, c.sp, c.sq},
			{c.p, c.q - 1, c.sp, c.sq},
			{c.p, c.q, c.sp + 1, c.sq},
			{c.p, c.q, c.sp - 1, c.sq},
			{c.p, c.q, c.sp, c.sq + 1},
			{c.p, c.q, c.sp, c.sq - 1},
		}
	}
	return []candidate{
		{c.p + 1, c.q, 0, 0},
		{c.p - 1, c.q, 0, 0},
		{c.p, c.q + 1, 0, 0},
		{c.p, c.q - 1, 0, 0},
		{c.p + 1, c.q + 1, 0, 0},
		{c.p - 1, c.q - 1, 0, 0},
	}
}

// grid fits every allowed order.
func (s *searcher) grid(ctx context.Context) (*fitted, error) {
	var all []candidate
	maxSP, maxSQ := 0, 0
	if s.seasonal {
		maxSP, maxSQ = s.config.MaxSP, s.config.MaxSQ
	}
	for p := 0; p <= s.config.MaxP; p++ {
		for q := 0; q <= s.config.MaxQ; q++ {
			for sp := 0; sp <= maxSP; sp++ {
				for sq := 0; sq <= maxSQ; sq++ {
					all = append(all, candidate{p, q, sp, sq})
				}
			}
		}
	}
	return s.evaluate(ctx, all)
}

// Predict generates forecasts using the selected model.
func (r *Result) Predict(steps int) ([]float64, error) {
	if r.IsSeasonal && r.SeasonalModel != nil {
		return r.SeasonalModel.Predict(steps)
	}
	if r.Model != nil {
		return r.Model.Predict(steps)
	}
	return nil, arima.ErrNotFitted
}

// PredictWithInterval generates forecasts with a band at the given
// confidence level.
func (r *Result) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if r.IsSeasonal && r.SeasonalModel != nil {
		return r.SeasonalModel.PredictWithInterval(steps, confidence)
	}
	if r.Model != nil {
		return r.Model.PredictWithInterval(steps, confidence)
	}
	return nil, nil, nil, arima.ErrNotFitted
}

// Residuals returns the model residuals.
func (r *Result) Residuals() []float64 {
	if r.IsSeasonal && r.SeasonalModel != nil {
		return r.SeasonalModel.Residuals()
	}
	if r.Model != nil {
		return r.Model.Residuals()
	}
	return nil
}

// Results returns the state-space results of the selected model.
func (r *Result) Results() *statespace.Results {
	if r.IsSeasonal && r.SeasonalModel != nil {
		return r.SeasonalModel.Results
	}
	if r.Model != nil {
		return r.Model.Results
	}
	return nil
}
