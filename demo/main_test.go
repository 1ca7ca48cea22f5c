package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/gostatespace/internal/metrics"
)

func parseConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse(args))
	return loadConfig(fs)
}

func quietConfig(t *testing.T, args ...string) *Config {
	t.Helper()
	cfg, err := parseConfig(t, append([]string{"--quiet"}, args...)...)
	require.NoError(t, err)
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(t)
	require.NoError(t, err)

	assert.Equal(t, "ff", cfg.Column)
	assert.Equal(t, []string{"date", "nf", "ff"}, cfg.Names)
	assert.Equal(t, 5, cfg.Steps)
	assert.Equal(t, "nm", cfg.Method)
	assert.Equal(t, uint64(8678309), cfg.Seed)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Log)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps: 7\nformat: yaml\nmethod: lbfgs\n"), 0o644))

	t.Setenv("GOSTATESPACE_METHOD", "bfgs")
	cfg, err := parseConfig(t, "--config", path, "--alpha", "0.1")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Steps)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "bfgs", cfg.Method) // env beats the file
	assert.Equal(t, 0.1, cfg.Alpha)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"alpha", []string{"--alpha", "1.5"}, "alpha"},
		{"steps", []string{"--steps", "0"}, "steps"},
		{"method", []string{"--method", "newton"}, "method"},
		{"format", []string{"--format", "xml"}, "format"},
		{"member", []string{"--url", "http://example.com/a.zip"}, "member"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	_, err := parseConfig(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestAccuracy(t *testing.T) {
	acc := accuracy([]float64{1, math.NaN(), 4, 0}, []float64{2, 9, 2, 1})
	require.NotNil(t, acc)
	assert.InDelta(t, math.Sqrt(2), acc.RMSE, 1e-12)
	assert.InDelta(t, 4.0/3, acc.MAE, 1e-12)
	require.NotNil(t, acc.MAPE)
	assert.InDelta(t, 75, *acc.MAPE, 1e-12)

	assert.Nil(t, accuracy([]float64{math.NaN()}, []float64{1}))
}

func TestRunTrendSimulated(t *testing.T) {
	cfg := quietConfig(t)
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, []scenario{trendScenario}, &stdout, &bytes.Buffer{}))

	out := stdout.String()
	assert.Contains(t, out, "local linear trend")
	assert.Contains(t, out, "sigma2.measurement")
	assert.Contains(t, out, "Holdout:")
}

func TestRunTrendFromTable(t *testing.T) {
	var b strings.Builder
	b.WriteString("Norway Finland\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "%d %d %d\n", 1970+i, 500-5*i, 1000-20*i+(i%3)*7)
	}
	path := filepath.Join(t.TempDir(), "NorwayFinland.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	cfg := quietConfig(t, "--data", path)
	e := &env{cfg: cfg, log: logr.Discard(), rec: metrics.NewRecorder()}
	res, err := runTrend(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, path, res.Source)
	assert.Equal(t, 30, res.NObs)
	assert.Equal(t, "1970-01-01", res.Start)
	require.NotNil(t, res.Data[0])
	assert.InDelta(t, math.Log(1000), *res.Data[0], 1e-12)
	assert.Len(t, res.Params, 3)
	assert.Len(t, res.Forecast.Mean, 5)
	assert.NotNil(t, res.Holdout)
	require.Len(t, res.Components, 2)
	assert.Equal(t, "trend", res.Components[1].Name)

	d := res.Diagnostics
	assert.Len(t, d.ACF, 11)
	assert.Contains(t, d.SignificantLags, 1)
	require.NotNil(t, d.BoxPiercePValue)
	assert.Less(t, *d.BoxPiercePValue, 0.01)
}

func TestRunTrendMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("year,y\n2000,1\n2001,2\n"), 0o644))

	cfg := quietConfig(t, "--data", path)
	_, err := runTrend(context.Background(), &env{cfg: cfg, log: logr.Discard(), rec: metrics.NewRecorder()})
	assert.Error(t, err)
}

func TestRunARIMA(t *testing.T) {
	cfg := quietConfig(t, "--steps", "4")
	rec := metrics.NewRecorder()
	res, err := runARIMA(context.Background(), &env{cfg: cfg, log: logr.Discard(), rec: rec})
	require.NoError(t, err)

	assert.Equal(t, arimaName, res.Name)
	assert.Equal(t, arimaObservations, res.NObs)
	assert.Contains(t, res.Source, "ARIMA(")
	assert.True(t, strings.HasPrefix(res.Model, "SARIMAX("))
	assert.Equal(t, "sigma2", res.Params[len(res.Params)-1].Name)
	assert.Len(t, res.Forecast.Mean, 4)
	require.NotNil(t, res.Holdout)
	assert.GreaterOrEqual(t, res.Diagnostics.NDiffs, 1)

	prom := filepath.Join(t.TempDir(), "fits.prom")
	require.NoError(t, rec.WriteTextfile(prom))
	text, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(text), `scenario="arima"`)
	assert.Contains(t, string(text), `scenario="arima-holdout"`)
}

func TestRunAllExports(t *testing.T) {
	if testing.Short() {
		t.Skip("fits the seasonal model")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "results.json")
	prom := filepath.Join(dir, "fits.prom")
	cfg := quietConfig(t, "--out", out, "--metrics-file", prom, "--steps", "3")

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, []scenario{trendScenario, seasonalScenario}, &stdout, &bytes.Buffer{}))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var got Output
	require.NoError(t, json.Unmarshal(raw, &got))
	_, err = uuid.Parse(got.RunID)
	assert.NoError(t, err)
	require.Len(t, got.Scenarios, 2)
	assert.Equal(t, "trend", got.Scenarios[0].Name)
	assert.Equal(t, "seasonal", got.Scenarios[1].Name)
	assert.Len(t, got.Scenarios[1].Forecast.Mean, 3)
	assert.Len(t, got.Scenarios[1].Components, 3)

	metricsText, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), `gostatespace_fits_total{scenario="seasonal"`)
}

func TestWriteOutputYAML(t *testing.T) {
	v := 1.5
	out := &Output{
		RunID: "run",
		Scenarios: []*ScenarioResult{{
			Name:   "trend",
			Data:   []*float64{&v, nil},
			LogLik: &v,
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "yaml", out))

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "run", back["run_id"])

	assert.Error(t, writeOutput(&buf, "xml", out))
}
