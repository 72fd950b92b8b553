package forward

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors for forward-operator composition and evaluation.
var (
	// ErrDimensionMismatch indicates a model or data vector whose length does
	// not match what the operator expects.
	ErrDimensionMismatch = errors.New("forward: dimension mismatch")

	// ErrComputation indicates that the underlying physics is undefined for
	// the given parameter values (e.g. a singular simulation). External
	// operators should wrap this sentinel so callers can match it.
	ErrComputation = errors.New("forward: forward computation failed")

	// ErrBadMapping indicates an invalid parameter index mapping for a
	// combined operator.
	ErrBadMapping = errors.New("forward: invalid parameter index mapping")
)

// Operator is the capability every physical forward simulator exposes to the
// inversion engine.
//
// Both methods must be deterministic and pure: no observable state mutation
// across calls beyond internal caching. Jacobian must be consistent with
// Response to first order.
type Operator interface {
	// Response evaluates the simulated data for the given model vector.
	// Returns ErrDimensionMismatch if len(model) != ParamCount(), and
	// ErrComputation (possibly wrapped) when the physics is undefined.
	Response(model []float64) ([]float64, error)

	// Jacobian evaluates ∂data/∂model at the given model, as a dense
	// DataCount() × ParamCount() matrix.
	Jacobian(model []float64) (*mat.Dense, error)

	// ParamCount reports the expected model-vector length.
	ParamCount() int

	// DataCount reports the produced data-vector length.
	DataCount() int
}

// Linear wraps a fixed matrix G as an Operator: Response is G·m and the
// Jacobian is G itself. It is the standard collaborator for tests and for
// physics that is genuinely linear in the (transformed) parameters.
type Linear struct {
	g    *mat.Dense
	rows int
	cols int
}

// NewLinear builds a linear operator around g. The matrix is not copied;
// callers must not mutate it afterwards.
func NewLinear(g *mat.Dense) *Linear {
	r, c := g.Dims()

	return &Linear{g: g, rows: r, cols: c}
}

// Response returns G·model.
func (l *Linear) Response(model []float64) ([]float64, error) {
	if len(model) != l.cols {
		return nil, ErrDimensionMismatch
	}

	out := make([]float64, l.rows)
	v := mat.NewVecDense(l.rows, out)
	v.MulVec(l.g, mat.NewVecDense(l.cols, model))

	return out, nil
}

// Jacobian returns a fresh copy of G; it does not depend on the model.
func (l *Linear) Jacobian(model []float64) (*mat.Dense, error) {
	if len(model) != l.cols {
		return nil, ErrDimensionMismatch
	}

	out := mat.NewDense(l.rows, l.cols, nil)
	out.Copy(l.g)

	return out, nil
}

// ParamCount reports the number of columns of G.
func (l *Linear) ParamCount() int { return l.cols }

// DataCount reports the number of rows of G.
func (l *Linear) DataCount() int { return l.rows }
