package stats

// Unit-root tests accepted by NDiffs.
const (
	UnitRootKPSS = "kpss"
	UnitRootADF  = "adf"
)

// NDiffs returns how many first differences make values stationary
// according to test, capped at maxD (default 2). The local linear trend is
// the natural model for series that need two.
func NDiffs(values []float64, maxD int, test string) int {
	if maxD <= 0 {
		maxD = 2
	}

	current := values
	for d := 0; d < maxD; d++ {
		if isStationary(current, test) {
			return d
		}
		current = difference(current)
		if len(current) < minUnitRootObs {
			return d
		}
	}
	return maxD
}

func isStationary(values []float64, test string) bool {
	if test == UnitRootADF {
		r := ADF(values, 0)
		return r != nil && r.IsStationary
	}
	r := KPSS(values, KPSSLevel, 0)
	return r != nil && r.IsStationary
}
