package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

var nan = math.NaN()

// JarqueBeraResult holds the Jarque-Bera normality test.
type JarqueBeraResult struct {
	Statistic float64
	PValue    float64
	Skew      float64
	Kurtosis  float64 // Raw (non-excess) kurtosis
}

// JarqueBera tests the null hypothesis that values are normally distributed,
// using population skewness and kurtosis.
func JarqueBera(values []float64) *JarqueBeraResult {
	n := len(values)
	if n < 3 {
		return nil
	}

	m2 := stat.Moment(2, values, nil)
	if m2 == 0 {
		return nil
	}
	skew := stat.Moment(3, values, nil) / math.Pow(m2, 1.5)
	kurt := stat.Moment(4, values, nil) / (m2 * m2)

	jb := float64(n) / 6 * (skew*skew + (kurt-3)*(kurt-3)/4)

	return &JarqueBeraResult{
		Statistic: jb,
		PValue:    chiSquaredSurvival(jb, 2),
		Skew:      skew,
		Kurtosis:  kurt,
	}
}
