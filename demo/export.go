package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/gostatespace/statespace"
)

// Output is the exported record of one demo run.
type Output struct {
	RunID     string            `json:"run_id" yaml:"run_id"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	Config    *Config           `json:"config" yaml:"config"`
	Scenarios []*ScenarioResult `json:"scenarios" yaml:"scenarios"`
}

// ScenarioResult holds everything reported for one scenario. Values that may
// be undefined are pointers so they export as null.
type ScenarioResult struct {
	Name       string            `json:"name" yaml:"name"`
	Source     string            `json:"source" yaml:"source"`
	Start      string            `json:"start,omitempty" yaml:"start,omitempty"`
	NObs       int               `json:"n_obs" yaml:"n_obs"`
	Data       []*float64        `json:"data" yaml:"data"`
	Model      string            `json:"model" yaml:"model"`
	Converged  bool              `json:"converged" yaml:"converged"`
	LogLik     *float64          `json:"loglik" yaml:"loglik"`
	AIC        *float64          `json:"aic" yaml:"aic"`
	BIC        *float64          `json:"bic" yaml:"bic"`
	Params     []Estimate        `json:"params" yaml:"params"`
	Forecast   *Forecast         `json:"forecast" yaml:"forecast"`
	Holdout    *Accuracy         `json:"holdout,omitempty" yaml:"holdout,omitempty"`
	Components []ComponentResult `json:"components,omitempty" yaml:"components,omitempty"`

	Diagnostics *Diagnostics `json:"diagnostics" yaml:"diagnostics"`

	report string
}

// Estimate is one fitted parameter.
type Estimate struct {
	Name   string   `json:"name" yaml:"name"`
	Value  float64  `json:"value" yaml:"value"`
	StdErr *float64 `json:"std_err" yaml:"std_err"`
}

// Forecast holds out-of-sample predictions with their band.
type Forecast struct {
	Alpha float64   `json:"alpha" yaml:"alpha"`
	Mean  []float64 `json:"mean" yaml:"mean"`
	Lower []float64 `json:"lower" yaml:"lower"`
	Upper []float64 `json:"upper" yaml:"upper"`
}

// Accuracy scores forecasts against held-out observations.
type Accuracy struct {
	RMSE float64  `json:"rmse" yaml:"rmse"`
	MAE  float64  `json:"mae" yaml:"mae"`
	MAPE *float64 `json:"mape" yaml:"mape"`
}

// ComponentResult is one smoothed component; RMSE is measured against the
// simulated truth when there is one.
type ComponentResult struct {
	Name     string    `json:"name" yaml:"name"`
	Smoothed []float64 `json:"smoothed" yaml:"smoothed"`
	RMSE     *float64  `json:"rmse,omitempty" yaml:"rmse,omitempty"`
}

// Diagnostics are the pre-fit checks.
type Diagnostics struct {
	NDiffs             int       `json:"ndiffs" yaml:"ndiffs"`
	ADFStatistic       *float64  `json:"adf_statistic" yaml:"adf_statistic"`
	ADFPValue          *float64  `json:"adf_pvalue" yaml:"adf_pvalue"`
	KPSSStatistic      *float64  `json:"kpss_statistic" yaml:"kpss_statistic"`
	BoxPierceStatistic *float64  `json:"box_pierce_statistic" yaml:"box_pierce_statistic"`
	BoxPiercePValue    *float64  `json:"box_pierce_pvalue" yaml:"box_pierce_pvalue"`
	ACF                []float64 `json:"acf" yaml:"acf"`
	SignificantLags    []int     `json:"significant_lags" yaml:"significant_lags"`
}

// setFit copies the estimates, the summary and a forecast from res.
func (r *ScenarioResult) setFit(res *statespace.Results, steps int, alpha float64) error {
	r.Model = res.ModelName
	r.Converged = res.Converged
	r.LogLik = finite(res.LogLik)
	r.AIC = finite(res.AIC)
	r.BIC = finite(res.BIC)
	for i, name := range res.ParamNames {
		r.Params = append(r.Params, Estimate{Name: name, Value: res.Params[i], StdErr: finite(res.Bse[i])})
	}

	fc, err := res.Forecast(steps, alpha)
	if err != nil {
		return err
	}
	r.Forecast = &Forecast{Alpha: alpha, Mean: fc.Mean, Lower: fc.Lower, Upper: fc.Upper}
	r.report = res.Summary().String()
	return nil
}

// Report renders the scenario for the terminal.
func (r *ScenarioResult) Report() string {
	s := fmt.Sprintf("%s: %s, %d observations\n\n%s\n", r.Name, r.Source, r.NObs, r.report)
	if r.Forecast != nil {
		s += fmt.Sprintf("Forecast (%.0f%% band):\n", 100*(1-r.Forecast.Alpha))
		for i, m := range r.Forecast.Mean {
			s += fmt.Sprintf("  h=%-3d %12.4f  [%.4f, %.4f]\n", i+1, m, r.Forecast.Lower[i], r.Forecast.Upper[i])
		}
	}
	if r.Holdout != nil {
		s += fmt.Sprintf("Holdout: RMSE=%.4f MAE=%.4f\n", r.Holdout.RMSE, r.Holdout.MAE)
	}
	for _, c := range r.Components {
		if c.RMSE != nil {
			s += fmt.Sprintf("Component %s: RMSE vs simulated = %.4f\n", c.Name, *c.RMSE)
		}
	}
	return s
}

// writeOutput encodes out as JSON or YAML.
func writeOutput(w io.Writer, format string, out *Output) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		return multierr.Append(enc.Encode(out), enc.Close())
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// saveOutput writes out to path.
func saveOutput(path, format string, out *Output) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return writeOutput(f, format, out)
}

// nullable maps missing values to nil.
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = finite(v)
	}
	return out
}

// finite returns nil for NaN and infinities.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
