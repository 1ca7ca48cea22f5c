package statespace

import (
	"errors"
	"fmt"
)

// ErrParamsLength is returned when a parameter vector has the wrong length.
var ErrParamsLength = errors.New("parameter vector has the wrong length")

// Model is a parameterized state-space model that Fit can estimate.
//
// The optimizer searches an unconstrained space. Each proposal is mapped with
// TransformParams and written into the representation with Update before the
// Kalman filter evaluates the log-likelihood.
type Model interface {
	// SSM returns the representation that Update writes into.
	SSM() *Representation
	// StartParams returns the constrained starting point.
	StartParams() []float64
	// ParamNames labels the parameters, in order.
	ParamNames() []string
	// TransformParams maps unconstrained values to constrained values.
	TransformParams(unconstrained []float64) []float64
	// UntransformParams maps constrained values to unconstrained values.
	UntransformParams(constrained []float64) []float64
	// Update writes constrained params into the representation.
	Update(params []float64) error
}

// CheckParams returns ErrParamsLength unless len(params) == want.
func CheckParams(params []float64, want int) error {
	if len(params) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrParamsLength, len(params), want)
	}
	return nil
}
