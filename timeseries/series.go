package timeseries

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrLengthMismatch is returned when timestamps and values differ in length.
var ErrLengthMismatch = errors.New("timestamps and values must have the same length")

// Series represents a time series with optional timestamps.
// Missing observations are stored as NaN.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a new time series from values without timestamps.
func New(values []float64) *Series {
	return &Series{Values: values}
}

// NewWithTimestamps creates a time series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, ErrLengthMismatch
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// NewAnnual creates a yearly series whose first observation is January 1st of startYear.
func NewAnnual(startYear int, values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = time.Date(startYear+i, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// HasTimestamps reports whether every value carries a timestamp.
func (s *Series) HasTimestamps() bool {
	return len(s.Values) > 0 && len(s.Timestamps) == len(s.Values)
}

// Observed returns the non-missing values in order.
func (s *Series) Observed() []float64 {
	out := make([]float64, 0, len(s.Values))
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// NMissing returns the number of NaN values.
func (s *Series) NMissing() int {
	return len(s.Values) - len(s.Observed())
}

// Mean calculates the arithmetic mean of the observed values.
func (s *Series) Mean() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return 0
	}
	return stat.Mean(obs, nil)
}

// Variance calculates the sample variance (n-1 denominator) of the observed values.
func (s *Series) Variance() float64 {
	obs := s.Observed()
	if len(obs) < 2 {
		return 0
	}
	return stat.Variance(obs, nil)
}

// Std calculates the sample standard deviation of the observed values.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// PopVariance calculates the population variance (n denominator) of the observed values.
func (s *Series) PopVariance() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(obs, nil)
	return v
}

// PopStd calculates the population standard deviation of the observed values.
func (s *Series) PopStd() float64 {
	return math.Sqrt(s.PopVariance())
}

// Min returns the minimum observed value.
func (s *Series) Min() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return math.NaN()
	}
	return floats.Min(obs)
}

// Max returns the maximum observed value.
func (s *Series) Max() float64 {
	obs := s.Observed()
	if len(obs) == 0 {
		return math.NaN()
	}
	return floats.Max(obs)
}

// Diff calculates the first difference of the series.
func (s *Series) Diff() *Series {
	if len(s.Values) <= 1 {
		return &Series{Values: []float64{}, Name: s.Name + "_diff"}
	}

	result := make([]float64, len(s.Values)-1)
	floats.SubTo(result, s.Values[1:], s.Values[:len(s.Values)-1])

	out := &Series{Values: result, Name: s.Name + "_diff"}
	if s.HasTimestamps() {
		out.Timestamps = append([]time.Time(nil), s.Timestamps[1:]...)
	}
	return out
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}, Name: s.Name}
	}

	out := &Series{
		Values: append([]float64(nil), s.Values[start:end]...),
		Name:   s.Name,
	}
	if s.HasTimestamps() {
		out.Timestamps = append([]time.Time(nil), s.Timestamps[start:end]...)
	}
	return out
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	out := &Series{
		Values: append([]float64(nil), s.Values...),
		Name:   s.Name,
	}
	if s.Timestamps != nil {
		out.Timestamps = append([]time.Time(nil), s.Timestamps...)
	}
	return out
}

// Log applies natural logarithm transformation. Non-positive values become NaN.
func (s *Series) Log() *Series {
	out := s.Copy()
	out.Name = s.Name + "_log"
	for i, v := range out.Values {
		if v > 0 {
			out.Values[i] = math.Log(v)
		} else {
			out.Values[i] = math.NaN()
		}
	}
	return out
}

// Scale multiplies every value by factor.
func (s *Series) Scale(factor float64) *Series {
	out := s.Copy()
	floats.Scale(factor, out.Values)
	return out
}
