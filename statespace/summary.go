package statespace

import (
	"fmt"
	"math"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/gostatespace/stats"
)

// ParamSummary is one row of the parameter table.
type ParamSummary struct {
	Name   string
	Coef   float64
	StdErr float64
	Z      float64
	P      float64
	Lower  float64 // 95% interval
	Upper  float64
}

// Summary describes a fitted model and its residual diagnostics.
type Summary struct {
	Model         string
	Method        string
	Converged     bool
	NObs          int
	NObsEffective int
	LogLik        float64
	AIC           float64
	AICc          float64
	BIC           float64
	HQIC          float64
	Params        []ParamSummary

	LjungBox           *stats.LjungBoxResult
	JarqueBera         *stats.JarqueBeraResult
	Heteroskedasticity *stats.HeteroskedasticityResult
	DurbinWatson       float64
}

// Summary returns the parameter table and residual diagnostics.
func (r *Results) Summary() *Summary {
	s := &Summary{
		Model:         r.ModelName,
		Method:        r.Method,
		Converged:     r.Converged,
		NObs:          r.NObs,
		NObsEffective: r.NObsEffective,
		LogLik:        r.LogLik,
		AIC:           r.AIC,
		AICc:          r.AICc,
		BIC:           r.BIC,
		HQIC:          r.HQIC,
	}

	q := distuv.UnitNormal.Quantile(0.975)
	for i, name := range r.ParamNames {
		row := ParamSummary{
			Name:   name,
			Coef:   r.Params[i],
			StdErr: r.Bse[i],
			Z:      r.ZValues[i],
			P:      r.PValues[i],
			Lower:  r.Params[i] - q*r.Bse[i],
			Upper:  r.Params[i] + q*r.Bse[i],
		}
		s.Params = append(s.Params, row)
	}

	resid := r.Residuals()
	if n := len(resid); n > 1 {
		lags := 10
		if n-1 < lags {
			lags = n - 1
		}
		s.LjungBox = stats.LjungBox(resid, lags, 0)
	}
	s.JarqueBera = stats.JarqueBera(resid)
	s.Heteroskedasticity = stats.Heteroskedasticity(resid)
	s.DurbinWatson = stats.DurbinWatson(resid)

	return s
}

// String renders the summary as a plain-text table.
func (s *Summary) String() string {
	var b strings.Builder

	name := s.Model
	if name == "" {
		name = "state-space model"
	}
	fmt.Fprintf(&b, "%s\n", name)
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 72))

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Method:\t%s\tLog Likelihood:\t%s\n", s.Method, num(s.LogLik))
	fmt.Fprintf(w, "Converged:\t%v\tAIC:\t%s\n", s.Converged, num(s.AIC))
	fmt.Fprintf(w, "No. Observations:\t%d\tAICc:\t%s\n", s.NObs, num(s.AICc))
	fmt.Fprintf(w, "Effective Obs.:\t%d\tBIC:\t%s\n", s.NObsEffective, num(s.BIC))
	fmt.Fprintf(w, "\t\tHQIC:\t%s\n", num(s.HQIC))
	_ = w.Flush()

	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 72))
	w = tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "\tcoef\tstd err\tz\tP>|z|\t[0.025\t0.975]\t\n")
	for _, p := range s.Params {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.Name, num(p.Coef), num(p.StdErr), num(p.Z), num(p.P), num(p.Lower), num(p.Upper))
	}
	_ = w.Flush()

	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 72))
	w = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	if lb := s.LjungBox; lb != nil {
		fmt.Fprintf(w, "Ljung-Box (L%d) (Q):\t%s\tProb(Q):\t%s\n", lb.Lags, num(lb.Statistic), num(lb.PValue))
	}
	if jb := s.JarqueBera; jb != nil {
		fmt.Fprintf(w, "Jarque-Bera (JB):\t%s\tProb(JB):\t%s\n", num(jb.Statistic), num(jb.PValue))
		fmt.Fprintf(w, "Skew:\t%s\tKurtosis:\t%s\n", num(jb.Skew), num(jb.Kurtosis))
	}
	if h := s.Heteroskedasticity; h != nil {
		fmt.Fprintf(w, "Heteroskedasticity (H):\t%s\tProb(H) (two-sided):\t%s\n", num(h.Statistic), num(h.PValue))
	}
	fmt.Fprintf(w, "Durbin-Watson:\t%s\t\t\n", num(s.DurbinWatson))
	_ = w.Flush()
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 72))

	return b.String()
}

func num(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 0):
		return fmt.Sprintf("%v", v)
	case v != 0 && (math.Abs(v) < 1e-3 || math.Abs(v) >= 1e6):
		return fmt.Sprintf("%.3e", v)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}
