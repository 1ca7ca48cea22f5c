// Package metrics records fit outcomes as Prometheus metrics on a private
// registry that the demo writes out in the textfile exposition format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sartorproj/gostatespace/statespace"
)

// Fit statuses used as the status label.
const (
	StatusConverged = "converged"
	StatusStopped   = "stopped"
	StatusFailed    = "failed"
)

// Recorder holds the fit metrics.
type Recorder struct {
	registry       *prometheus.Registry
	fitsTotal      *prometheus.CounterVec
	fitDuration    *prometheus.HistogramVec
	logLikGauge    *prometheus.GaugeVec
	iterationGauge *prometheus.GaugeVec
	paramGauge     *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gostatespace_fits_total",
				Help: "Number of maximum likelihood fits by outcome",
			},
			[]string{"scenario", "status"},
		),
		fitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gostatespace_fit_duration_seconds",
				Help:    "Wall time of maximum likelihood fits",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"scenario"},
		),
		logLikGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gostatespace_loglikelihood",
				Help: "Log-likelihood at the estimated parameters",
			},
			[]string{"scenario"},
		),
		iterationGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gostatespace_fit_iterations",
				Help: "Optimizer iterations used by the last fit",
			},
			[]string{"scenario"},
		),
		paramGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gostatespace_param_estimate",
				Help: "Estimated parameter values",
			},
			[]string{"scenario", "param", "index"},
		),
	}
	r.registry.MustRegister(r.fitsTotal, r.fitDuration, r.logLikGauge, r.iterationGauge, r.paramGauge)
	return r
}

// Registry exposes the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveFit records one fit. res may be nil when err is set.
func (r *Recorder) ObserveFit(scenario string, res *statespace.Results, elapsed time.Duration, err error) {
	r.fitDuration.WithLabelValues(scenario).Observe(elapsed.Seconds())

	status := StatusFailed
	switch {
	case err != nil || res == nil:
	case res.Converged:
		status = StatusConverged
	default:
		status = StatusStopped
	}
	r.fitsTotal.WithLabelValues(scenario, status).Inc()
	if status == StatusFailed {
		return
	}

	r.logLikGauge.WithLabelValues(scenario).Set(res.LogLik)
	r.iterationGauge.WithLabelValues(scenario).Set(float64(res.Iterations))
	for i, name := range res.ParamNames {
		r.paramGauge.WithLabelValues(scenario, name, strconv.Itoa(i)).Set(res.Params[i])
	}
}

// WriteTextfile writes every metric to path for the node exporter textfile
// collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
