package statespace

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// SmootherResult holds fixed-interval smoothed states, x(t) given all observations.
type SmootherResult struct {
	SmoothedState []*mat.VecDense
	SmoothedCov   []*mat.SymDense
}

// State returns the smoothed path of state i.
func (s *SmootherResult) State(i int) []float64 {
	out := make([]float64, len(s.SmoothedState))
	for t, v := range s.SmoothedState {
		out[t] = v.AtVec(i)
	}
	return out
}

// Smooth runs the Durbin-Koopman backward recursion over a filter pass:
//
//	r(t-1) = Z' v(t)/F(t) + L(t)' r(t)
//	N(t-1) = Z'Z/F(t) + L(t)' N(t) L(t)
//
// with L(t) = T - T K(t) Z. Only the scalar F(t) is inverted.
func Smooth(rep *Representation, filtered *FilterResult) (*SmootherResult, error) {
	if filtered == nil || filtered.NObs != rep.NObs() {
		return nil, errors.New("filter result does not match representation")
	}

	n := filtered.NObs
	k := rep.KStates
	z := rep.design()
	tr := rep.Transition

	res := &SmootherResult{
		SmoothedState: make([]*mat.VecDense, n),
		SmoothedCov:   make([]*mat.SymDense, n),
	}

	r := mat.NewVecDense(k, nil)
	nMat := mat.NewDense(k, k, nil)

	for t := n - 1; t >= 0; t-- {
		rPrev := mat.NewVecDense(k, nil)
		nPrev := mat.NewDense(k, k, nil)

		if filtered.Missing[t] || filtered.Degenerate[t] {
			rPrev.MulVec(tr.T(), r)
			var tn mat.Dense
			tn.Mul(tr.T(), nMat)
			nPrev.Mul(&tn, tr)
		} else {
			fvar := filtered.ForecastErrorVar[t]
			v := filtered.ForecastErrors[t]

			var kt mat.VecDense
			kt.MulVec(tr, filtered.Gain[t])

			var l mat.Dense
			l.Outer(-1, &kt, z)
			l.Add(&l, tr)

			var lr mat.VecDense
			lr.MulVec(l.T(), r)
			rPrev.AddScaledVec(&lr, v/fvar, z)

			var ln, lnl mat.Dense
			ln.Mul(l.T(), nMat)
			lnl.Mul(&ln, &l)
			nPrev.Outer(1/fvar, z, z)
			nPrev.Add(nPrev, &lnl)
		}

		a := filtered.PredictedState[t]
		p := filtered.PredictedCov[t]

		state := mat.NewVecDense(k, nil)
		var pr mat.VecDense
		pr.MulVec(p, rPrev)
		state.AddVec(a, &pr)

		var pn, pnp mat.Dense
		pn.Mul(p, nPrev)
		pnp.Mul(&pn, p)
		var cov mat.Dense
		cov.Sub(p, &pnp)

		res.SmoothedState[t] = state
		res.SmoothedCov[t] = symmetrize(&cov)

		r, nMat = rPrev, nPrev
	}

	return res, nil
}
