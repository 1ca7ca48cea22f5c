package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/sartorproj/gostatespace/arima"
	"github.com/sartorproj/gostatespace/autoarima"
	"github.com/sartorproj/gostatespace/dataset"
	"github.com/sartorproj/gostatespace/internal/metrics"
	"github.com/sartorproj/gostatespace/lltrend"
	"github.com/sartorproj/gostatespace/simulate"
	"github.com/sartorproj/gostatespace/statespace"
	"github.com/sartorproj/gostatespace/stats"
	"github.com/sartorproj/gostatespace/timeseries"
	"github.com/sartorproj/gostatespace/ucm"
)

// env is shared by every scenario of one run.
type env struct {
	cfg    *Config
	log    logr.Logger
	rec    *metrics.Recorder
	client *http.Client
}

// scenario is one end-to-end fit.
type scenario struct {
	name string
	run  func(ctx context.Context, e *env) (*ScenarioResult, error)
}

const (
	trendName    = "trend"
	seasonalName = "seasonal"
	arimaName    = "arima"
)

var (
	trendScenario    = scenario{name: trendName, run: runTrend}
	seasonalScenario = scenario{name: seasonalName, run: runSeasonal}
	arimaScenario    = scenario{name: arimaName, run: runARIMA}
)

// Simulated stand-in for the annual Finnish fatalities series, in logs.
var simulatedTrend = simulate.Params{
	Level0:           7.0,
	Slope0:           -0.03,
	SigmaMeasurement: 0.05,
	SigmaLevel:       0.01,
	SigmaTrend:       0.005,
}

const simulatedTrendYears = 34

// Two-component seasonal simulation.
var seasonalSpecs = []simulate.SeasonalSpec{
	{Period: 10, Harmonics: 3, NoiseStd: 2},
	{Period: 100, Harmonics: 2, NoiseStd: 3},
}

const (
	seasonalDuration = 300
	seasonalLevel    = 10
)

// Simulated ARIMA(1,1,1) for the order search.
var (
	arimaAR = []float64{0.6}
	arimaMA = []float64{0.3}
)

const (
	arimaObservations = 240
	arimaLevel        = 50
	arimaMaxOrder     = 3
)

// fitConfig builds the fitting options for one scenario.
func (e *env) fitConfig(name string) *statespace.FitConfig {
	cfg := statespace.DefaultFitConfig()
	cfg.Method = e.cfg.Method
	cfg.Logger = e.log.WithValues("scenario", name)
	return cfg
}

// fit runs and times one fit, recording the outcome.
func (e *env) fit(ctx context.Context, name string, model statespace.Model) (*statespace.Results, error) {
	start := time.Now()
	res, err := statespace.Fit(ctx, model, e.fitConfig(name))
	e.rec.ObserveFit(name, res, time.Since(start), err)
	return res, err
}

// runTrend fits the local linear trend to loaded or simulated data.
func runTrend(ctx context.Context, e *env) (*ScenarioResult, error) {
	series, source, err := loadSeries(ctx, e)
	if err != nil {
		return nil, err
	}
	n := series.Len()
	e.log.Info("Loaded series", "source", source, "observations", n, "missing", series.NMissing())

	result := &ScenarioResult{
		Name:        trendName,
		Source:      source,
		NObs:        n,
		Data:        nullable(series.Values),
		Diagnostics: diagnose(series),
	}
	if series.HasTimestamps() {
		result.Start = series.Timestamps[0].Format("2006-01-02")
	}

	// Score forecasts on a held-out tail before fitting the full series.
	if h := e.cfg.Holdout; h > 0 && n-h >= 10 {
		train := series.Slice(0, n-h)
		test := series.Slice(n-h, n)
		model, err := lltrend.New(train)
		if err != nil {
			return nil, err
		}
		res, err := e.fit(ctx, "trend-holdout", model)
		if err != nil {
			return nil, fmt.Errorf("holdout fit: %w", err)
		}
		fc, err := res.Forecast(h, e.cfg.Alpha)
		if err != nil {
			return nil, err
		}
		result.Holdout = accuracy(test.Values, fc.Mean)
	}

	model, err := lltrend.New(series)
	if err != nil {
		return nil, err
	}
	res, err := e.fit(ctx, trendName, model)
	if err != nil {
		return nil, err
	}
	if err := result.setFit(res, e.cfg.Steps, e.cfg.Alpha); err != nil {
		return nil, err
	}
	result.Components = []ComponentResult{
		{Name: "level", Smoothed: res.SmoothedState(lltrend.LevelState)},
		{Name: "trend", Smoothed: res.SmoothedState(lltrend.TrendState)},
	}
	return result, nil
}

// runSeasonal fits a fixed intercept with two trigonometric seasonal terms
// to a simulated series and compares the recovered terms with the truth.
func runSeasonal(ctx context.Context, e *env) (*ScenarioResult, error) {
	src := rand.NewSource(e.cfg.Seed)
	sim, err := simulate.Seasonal(src, seasonalDuration, seasonalLevel, seasonalSpecs)
	if err != nil {
		return nil, err
	}
	series := timeseries.New(sim.Total)
	series.Name = "simulated seasonal"

	cfg := ucm.Config{}
	for _, s := range seasonalSpecs {
		cfg.FreqSeasonals = append(cfg.FreqSeasonals, ucm.FreqSeasonal{Period: s.Period, Harmonics: s.Harmonics})
	}
	model, err := ucm.New(series, cfg)
	if err != nil {
		return nil, err
	}
	res, err := e.fit(ctx, seasonalName, model)
	if err != nil {
		return nil, err
	}

	result := &ScenarioResult{
		Name:        seasonalName,
		Source:      fmt.Sprintf("simulated (seed %d)", e.cfg.Seed),
		NObs:        series.Len(),
		Data:        nullable(series.Values),
		Diagnostics: diagnose(series),
	}
	if err := result.setFit(res, e.cfg.Steps, e.cfg.Alpha); err != nil {
		return nil, err
	}

	comps, err := model.Components(res)
	if err != nil {
		return nil, err
	}
	truth := append([][]float64{sim.Level}, sim.Terms...)
	for i, c := range comps {
		cr := ComponentResult{Name: c.Name, Smoothed: c.Smoothed}
		if i < len(truth) {
			cr.RMSE = finite(rmse(truth[i], c.Smoothed))
		}
		result.Components = append(result.Components, cr)
	}
	return result, nil
}

// runARIMA searches ARIMA orders for a simulated integrated series, scores
// the selected order on a held-out tail and forecasts from the full fit.
func runARIMA(ctx context.Context, e *env) (*ScenarioResult, error) {
	src := rand.NewSource(e.cfg.Seed)
	series := timeseries.New(simulate.Integrate(simulate.ARMA(src, arimaObservations, 0, arimaAR, arimaMA, 1), arimaLevel))
	series.Name = "simulated ARIMA(1,1,1)"
	n := series.Len()

	search := autoarima.DefaultConfig()
	search.MaxP = arimaMaxOrder
	search.MaxQ = arimaMaxOrder
	search.FitConfig = e.fitConfig(arimaName)
	search.Logger = e.log.WithValues("scenario", arimaName)

	start := time.Now()
	selected, err := autoarima.AutoARIMA(ctx, series, search)
	var res *statespace.Results
	if err == nil {
		res = selected.Results()
	}
	e.rec.ObserveFit(arimaName, res, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	e.log.Info("Selected order", "model", selected.String(), "evaluated", selected.ModelsEvaluated)

	result := &ScenarioResult{
		Name:        arimaName,
		Source:      fmt.Sprintf("simulated (seed %d), selected %s", e.cfg.Seed, selected),
		NObs:        n,
		Data:        nullable(series.Values),
		Diagnostics: diagnose(series),
	}

	if h := e.cfg.Holdout; h > 0 && n-h >= 10 {
		model := arima.New(selected.P, selected.D, selected.Q)
		model.FitConfig = e.fitConfig("arima-holdout")
		start := time.Now()
		err := model.Fit(ctx, series.Slice(0, n-h))
		e.rec.ObserveFit("arima-holdout", model.Results, time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("holdout fit: %w", err)
		}
		fc, err := model.Predict(h)
		if err != nil {
			return nil, err
		}
		result.Holdout = accuracy(series.Slice(n-h, n).Values, fc)
	}

	if err := result.setFit(res, e.cfg.Steps, e.cfg.Alpha); err != nil {
		return nil, err
	}
	return result, nil
}

// loadSeries returns the trend scenario's series and a description of where
// it came from.
func loadSeries(ctx context.Context, e *env) (*timeseries.Series, string, error) {
	cfg := e.cfg
	var (
		frame  *dataset.Frame
		source string
		err    error
	)
	switch {
	case cfg.URL != "":
		source = cfg.URL + "#" + cfg.Member
		var body []byte
		body, err = dataset.FetchArchiveMember(ctx, e.client, cfg.URL, cfg.Member)
		if err == nil {
			frame, err = dataset.ReadTable(bytes.NewReader(body), tableOptions(cfg))
		}
	case cfg.Data != "":
		source = cfg.Data
		frame, err = loadFile(cfg)
	default:
		src := rand.NewSource(cfg.Seed)
		s := timeseries.NewAnnual(1970, simulate.LocalLinearTrend(src, simulatedTrendYears, simulatedTrend))
		s.Name = "simulated log fatalities"
		return s, fmt.Sprintf("simulated (seed %d)", cfg.Seed), nil
	}
	if err != nil {
		return nil, source, fmt.Errorf("loading %s: %w", source, err)
	}

	dateColumn := cfg.DateColumn
	if !slices.Contains(frame.Names(), dateColumn) {
		dateColumn = ""
	}
	series, err := frame.Series(cfg.Column, dateColumn)
	if err != nil {
		return nil, source, err
	}
	if cfg.Log {
		series = series.Log()
	}
	return series, source, nil
}

func tableOptions(cfg *Config) *dataset.TableOptions {
	return &dataset.TableOptions{Names: cfg.Names, SkipRows: cfg.SkipRows}
}

// loadFile picks a reader by file extension.
func loadFile(cfg *Config) (*dataset.Frame, error) {
	switch strings.ToLower(filepath.Ext(cfg.Data)) {
	case ".csv":
		return dataset.LoadCSV(cfg.Data, nil)
	case ".xlsx":
		f, err := os.Open(cfg.Data)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return dataset.ReadExcel(f, nil)
	default:
		f, err := os.Open(cfg.Data)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return dataset.ReadTable(f, tableOptions(cfg))
	}
}

// diagnose runs the pre-fit checks on the observed values.
func diagnose(series *timeseries.Series) *Diagnostics {
	obs := series.Observed()
	lags := min(10, len(obs)/2)
	d := &Diagnostics{NDiffs: stats.NDiffs(obs, 2, stats.UnitRootKPSS)}
	if acf := stats.ACFWithConfidence(obs, lags); acf != nil {
		d.ACF = acf.Values
		d.SignificantLags = stats.SignificantLags(acf.Values, acf.ConfBounds)
	}
	if bp := stats.BoxPierce(obs, lags, 0); bp != nil {
		d.BoxPierceStatistic = finite(bp.Statistic)
		d.BoxPiercePValue = finite(bp.PValue)
	}
	if adf := stats.ADF(obs, 0); adf != nil {
		d.ADFStatistic = finite(adf.Statistic)
		d.ADFPValue = finite(adf.PValue)
	}
	if kpss := stats.KPSS(obs, stats.KPSSLevel, 0); kpss != nil {
		d.KPSSStatistic = finite(kpss.Statistic)
	}
	return d
}

// accuracy scores predictions, skipping missing actuals. MAPE also skips
// zero actuals.
func accuracy(actual, predicted []float64) *Accuracy {
	var sse, sae, sape float64
	var n, nPct int
	for i := 0; i < len(actual) && i < len(predicted); i++ {
		if math.IsNaN(actual[i]) {
			continue
		}
		err := actual[i] - predicted[i]
		sse += err * err
		sae += math.Abs(err)
		n++
		if actual[i] != 0 {
			sape += math.Abs(err / actual[i])
			nPct++
		}
	}
	if n == 0 {
		return nil
	}
	acc := &Accuracy{
		RMSE: math.Sqrt(sse / float64(n)),
		MAE:  sae / float64(n),
	}
	if nPct > 0 {
		acc.MAPE = finite(100 * sape / float64(nPct))
	}
	return acc
}

func rmse(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	return floats.Distance(a, b, 2) / math.Sqrt(float64(len(a)))
}
