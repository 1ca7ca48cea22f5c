package stats

import "math"

// InformationCriteria holds likelihood-based model selection criteria.
type InformationCriteria struct {
	AIC    float64
	AICc   float64 // Corrected AIC for small sample sizes
	BIC    float64
	HQIC   float64
	LogLik float64
}

// CalculateIC calculates all information criteria.
// logLik is the log-likelihood, nObs is the number of observations that
// contributed to it, nParams is the number of estimated parameters.
func CalculateIC(logLik float64, nObs int, nParams int) *InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	ic := &InformationCriteria{
		AIC:    -2*logLik + 2*k,
		LogLik: logLik,
		AICc:   math.Inf(1),
		BIC:    nan,
		HQIC:   nan,
	}

	if nObs > 0 {
		ic.BIC = -2*logLik + k*math.Log(n)
	}
	if nObs > 1 {
		ic.HQIC = -2*logLik + 2*k*math.Log(math.Log(n))
	}
	if n-k-1 > 0 {
		ic.AICc = ic.AIC + 2*k*(k+1)/(n-k-1)
	}

	return ic
}
