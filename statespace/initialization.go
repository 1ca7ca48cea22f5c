package statespace

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// DefaultDiffuseVariance is the prior variance used by approximate diffuse
// initialization.
const DefaultDiffuseVariance = 1e6

// ErrNonStationary is returned by stationary initialization when the
// transition matrix has an eigenvalue on or outside the unit circle.
var ErrNonStationary = errors.New("transition matrix is not stable; stationary initialization is undefined")

// InitializationKind selects how the distribution of the first state is set.
type InitializationKind int

const (
	// InitApproximateDiffuse uses a zero mean and a very large variance.
	InitApproximateDiffuse InitializationKind = iota
	// InitKnown uses a caller-supplied mean and covariance.
	InitKnown
	// InitStationary uses the unconditional distribution of a stable process.
	InitStationary
	// InitMixed is stationary on the leading states and approximately diffuse
	// on the rest.
	InitMixed
)

func (k InitializationKind) String() string {
	switch k {
	case InitApproximateDiffuse:
		return "approximate_diffuse"
	case InitKnown:
		return "known"
	case InitStationary:
		return "stationary"
	case InitMixed:
		return "mixed"
	default:
		return fmt.Sprintf("InitializationKind(%d)", int(k))
	}
}

// Initialization describes the distribution of the first state.
type Initialization struct {
	Kind             InitializationKind
	Mean             []float64
	Cov              *mat.SymDense
	DiffuseVariance  float64
	StationaryStates int // Leading stationary states, InitMixed only
}

// ApproximateDiffuse returns a zero-mean initialization with variance on
// every state. A non-positive variance selects DefaultDiffuseVariance.
func ApproximateDiffuse(variance float64) Initialization {
	if variance <= 0 {
		variance = DefaultDiffuseVariance
	}
	return Initialization{Kind: InitApproximateDiffuse, DiffuseVariance: variance}
}

// Known returns an initialization with a fixed mean and covariance.
func Known(mean []float64, cov mat.Symmetric) Initialization {
	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)
	return Initialization{
		Kind: InitKnown,
		Mean: append([]float64(nil), mean...),
		Cov:  c,
	}
}

// Stationary returns an initialization from the unconditional distribution.
func Stationary() Initialization {
	return Initialization{Kind: InitStationary}
}

// Mixed returns an initialization whose first n states take their
// unconditional distribution while the remaining states are approximately
// diffuse, uncorrelated with the first block. The first n states must not
// load on the others through the transition matrix. A non-positive variance
// selects DefaultDiffuseVariance.
func Mixed(n int, variance float64) Initialization {
	if variance <= 0 {
		variance = DefaultDiffuseVariance
	}
	return Initialization{Kind: InitMixed, StationaryStates: n, DiffuseVariance: variance}
}

func (i Initialization) clone() Initialization {
	out := i
	out.Mean = append([]float64(nil), i.Mean...)
	out.Cov = cloneSym(i.Cov)
	return out
}

// Initial returns the mean and covariance of the first state for rep.
func (i Initialization) Initial(rep *Representation) (*mat.VecDense, *mat.SymDense, error) {
	k := rep.KStates

	switch i.Kind {
	case InitApproximateDiffuse:
		variance := i.DiffuseVariance
		if variance <= 0 {
			variance = DefaultDiffuseVariance
		}
		cov := mat.NewSymDense(k, nil)
		for j := 0; j < k; j++ {
			cov.SetSym(j, j, variance)
		}
		return mat.NewVecDense(k, nil), cov, nil

	case InitKnown:
		if len(i.Mean) != k || i.Cov == nil || i.Cov.SymmetricDim() != k {
			return nil, nil, fmt.Errorf("%w: known initialization does not match %d states", ErrDimensions, k)
		}
		return mat.NewVecDense(k, append([]float64(nil), i.Mean...)), cloneSym(i.Cov), nil

	case InitStationary:
		return stationaryMoments(rep.Transition, rep.StateIntercept, rep.selectedStateCov())

	case InitMixed:
		return mixedMoments(rep, i.StationaryStates, i.DiffuseVariance)

	default:
		return nil, nil, fmt.Errorf("unknown initialization kind %v", i.Kind)
	}
}

// mixedMoments combines the stationary moments of the leading n states
// with a diffuse block for the rest.
func mixedMoments(rep *Representation, n int, variance float64) (*mat.VecDense, *mat.SymDense, error) {
	k := rep.KStates
	if n < 0 || n > k {
		return nil, nil, fmt.Errorf("%w: %d stationary states of %d", ErrDimensions, n, k)
	}
	if variance <= 0 {
		variance = DefaultDiffuseVariance
	}
	for r := 0; r < n; r++ {
		for c := n; c < k; c++ {
			if rep.Transition.At(r, c) != 0 {
				return nil, nil, fmt.Errorf("stationary state %d depends on diffuse state %d", r, c)
			}
		}
	}

	mean := mat.NewVecDense(k, nil)
	cov := mat.NewSymDense(k, nil)
	if n > 0 {
		rqr := rep.selectedStateCov()
		q := mat.NewSymDense(n, nil)
		for r := 0; r < n; r++ {
			for c := r; c < n; c++ {
				q.SetSym(r, c, rqr.At(r, c))
			}
		}
		m, p, err := stationaryMoments(rep.Transition.Slice(0, n, 0, n), rep.StateIntercept.SliceVec(0, n), q)
		if err != nil {
			return nil, nil, err
		}
		for r := 0; r < n; r++ {
			mean.SetVec(r, m.AtVec(r))
			for c := r; c < n; c++ {
				cov.SetSym(r, c, p.At(r, c))
			}
		}
	}
	for j := n; j < k; j++ {
		cov.SetSym(j, j, variance)
	}
	return mean, cov, nil
}

// stationaryMoments solves x = (I-T)^-1 c and P = T P T' + Q.
func stationaryMoments(t mat.Matrix, c mat.Vector, q mat.Symmetric) (*mat.VecDense, *mat.SymDense, error) {
	k, _ := t.Dims()

	var eig mat.Eigen
	if ok := eig.Factorize(t, mat.EigenNone); !ok {
		return nil, nil, errors.New("eigendecomposition of transition matrix failed")
	}
	for _, v := range eig.Values(nil) {
		if cmplx.Abs(v) >= 1-1e-10 {
			return nil, nil, ErrNonStationary
		}
	}

	var imt mat.Dense
	imt.Sub(identity(k), t)
	mean := mat.NewVecDense(k, nil)
	if err := mean.SolveVec(&imt, c); err != nil {
		return nil, nil, fmt.Errorf("stationary mean: %w", err)
	}

	cov, err := solveDiscreteLyapunov(t, q)
	if err != nil {
		return nil, nil, err
	}
	return mean, cov, nil
}

// solveDiscreteLyapunov solves P = A P A' + Q by the doubling algorithm.
func solveDiscreteLyapunov(a mat.Matrix, q mat.Symmetric) (*mat.SymDense, error) {
	const (
		maxIter   = 100
		tolerance = 1e-14
	)

	p := mat.DenseCopyOf(q)
	ak := mat.DenseCopyOf(a)

	for iter := 0; iter < maxIter; iter++ {
		var ap, apa mat.Dense
		ap.Mul(ak, p)
		apa.Mul(&ap, ak.T())

		change := mat.Norm(&apa, math.Inf(1))
		p.Add(p, &apa)

		var next mat.Dense
		next.Mul(ak, ak)
		ak = &next

		if change <= tolerance*math.Max(1, mat.Norm(p, math.Inf(1))) {
			return symmetrize(p), nil
		}
	}
	return nil, errors.New("discrete Lyapunov equation did not converge")
}
