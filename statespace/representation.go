package statespace

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensions is returned when a representation has inconsistent matrix shapes.
	ErrDimensions = errors.New("state-space matrices have inconsistent dimensions")
	// ErrEmptyEndog is returned when there are no observations to filter.
	ErrEmptyEndog = errors.New("endogenous series is empty")
)

// Representation is a univariate linear Gaussian state-space model:
//
//	y(t)   = Z x(t) + d + e(t),      e(t) ~ N(0, H)
//	x(t+1) = T x(t) + c + R u(t),    u(t) ~ N(0, Q)
//
// Z is Design, d ObsIntercept, H ObsCov, T Transition, c StateIntercept,
// R Selection and Q StateCov. Missing observations in Endog are NaN.
type Representation struct {
	Endog   []float64
	KStates int
	KPosdef int

	Design         *mat.Dense    // 1 x KStates
	ObsIntercept   float64       // d
	ObsCov         *mat.SymDense // 1 x 1
	Transition     *mat.Dense    // KStates x KStates
	StateIntercept *mat.VecDense // KStates
	Selection      *mat.Dense    // KStates x KPosdef
	StateCov       *mat.SymDense // KPosdef x KPosdef

	Initialization Initialization

	// LoglikelihoodBurn is the number of leading periods excluded from the
	// log-likelihood.
	LoglikelihoodBurn int
}

// NewRepresentation creates a representation with every matrix zero-filled.
func NewRepresentation(endog []float64, kStates, kPosdef int) (*Representation, error) {
	if kStates < 1 || kPosdef < 1 {
		return nil, fmt.Errorf("%w: k_states=%d k_posdef=%d", ErrDimensions, kStates, kPosdef)
	}
	if len(endog) == 0 {
		return nil, ErrEmptyEndog
	}

	return &Representation{
		Endog:          append([]float64(nil), endog...),
		KStates:        kStates,
		KPosdef:        kPosdef,
		Design:         mat.NewDense(1, kStates, nil),
		ObsCov:         mat.NewSymDense(1, nil),
		Transition:     mat.NewDense(kStates, kStates, nil),
		StateIntercept: mat.NewVecDense(kStates, nil),
		Selection:      mat.NewDense(kStates, kPosdef, nil),
		StateCov:       mat.NewSymDense(kPosdef, nil),
		Initialization: ApproximateDiffuse(DefaultDiffuseVariance),
	}, nil
}

// NObs returns the number of periods, including missing ones.
func (r *Representation) NObs() int {
	return len(r.Endog)
}

// Validate checks that every matrix matches KStates and KPosdef.
func (r *Representation) Validate() error {
	if len(r.Endog) == 0 {
		return ErrEmptyEndog
	}
	k, p := r.KStates, r.KPosdef

	check := func(name string, m mat.Matrix, rows, cols int) error {
		if m == nil {
			return fmt.Errorf("%w: %s is nil", ErrDimensions, name)
		}
		rr, cc := m.Dims()
		if rr != rows || cc != cols {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrDimensions, name, rr, cc, rows, cols)
		}
		return nil
	}

	if err := check("design", r.Design, 1, k); err != nil {
		return err
	}
	if err := check("obs_cov", r.ObsCov, 1, 1); err != nil {
		return err
	}
	if err := check("transition", r.Transition, k, k); err != nil {
		return err
	}
	if err := check("selection", r.Selection, k, p); err != nil {
		return err
	}
	if err := check("state_cov", r.StateCov, p, p); err != nil {
		return err
	}
	if r.StateIntercept == nil || r.StateIntercept.Len() != k {
		return fmt.Errorf("%w: state_intercept must have length %d", ErrDimensions, k)
	}
	if r.LoglikelihoodBurn < 0 {
		return fmt.Errorf("%w: negative loglikelihood burn", ErrDimensions)
	}
	return nil
}

// Clone returns a deep copy, so fitted results keep the matrices they were
// computed with even if the model is updated again.
func (r *Representation) Clone() *Representation {
	out := *r
	out.Endog = append([]float64(nil), r.Endog...)
	out.Design = mat.DenseCopyOf(r.Design)
	out.ObsCov = cloneSym(r.ObsCov)
	out.Transition = mat.DenseCopyOf(r.Transition)
	out.StateIntercept = mat.VecDenseCopyOf(r.StateIntercept)
	out.Selection = mat.DenseCopyOf(r.Selection)
	out.StateCov = cloneSym(r.StateCov)
	out.Initialization = r.Initialization.clone()
	return &out
}

// obsVariance returns H.
func (r *Representation) obsVariance() float64 {
	return r.ObsCov.At(0, 0)
}

// design returns Z as a vector.
func (r *Representation) design() *mat.VecDense {
	return mat.NewVecDense(r.KStates, append([]float64(nil), r.Design.RawRowView(0)...))
}

// selectedStateCov returns R Q R'.
func (r *Representation) selectedStateCov() *mat.SymDense {
	var rq mat.Dense
	rq.Mul(r.Selection, r.StateCov)
	var rqr mat.Dense
	rqr.Mul(&rq, r.Selection.T())
	return symmetrize(&rqr)
}
