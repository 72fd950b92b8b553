package forward

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Finite-difference step defaults, chosen so that truncation and rounding
// errors of a forward difference balance for double precision. Cross-checked
// against analytic Jacobians in the tests.
const (
	// DefaultRelativeStep scales the perturbation with the parameter value.
	DefaultRelativeStep = 1e-4

	// DefaultAbsoluteStep floors the perturbation for near-zero parameters.
	DefaultAbsoluteStep = 1e-6
)

// BruteForceOption configures the finite-difference Jacobian.
type BruteForceOption func(*bruteForceConfig)

type bruteForceConfig struct {
	relStep float64
	absStep float64
}

// WithRelativeStep overrides the relative perturbation (must be > 0).
// Panics on a non-positive or non-finite value (programmer error).
func WithRelativeStep(h float64) BruteForceOption {
	if h <= 0 || math.IsInf(h, 0) || math.IsNaN(h) {
		panic("forward: WithRelativeStep: step must be finite and positive")
	}

	return func(c *bruteForceConfig) { c.relStep = h }
}

// WithAbsoluteStep overrides the absolute perturbation floor (must be > 0).
// Panics on a non-positive or non-finite value (programmer error).
func WithAbsoluteStep(h float64) BruteForceOption {
	if h <= 0 || math.IsInf(h, 0) || math.IsNaN(h) {
		panic("forward: WithAbsoluteStep: step must be finite and positive")
	}

	return func(c *bruteForceConfig) { c.absStep = h }
}

// BruteForce computes a forward-difference Jacobian of op at model:
//
//	J[i,j] ≈ (response(m + h_j e_j)[i] - response(m)[i]) / h_j
//
// with h_j = max(relStep·|m_j|, absStep). One base response plus one
// perturbed response per parameter: ParamCount()+1 forward runs in total.
//
// Returns ErrDimensionMismatch when the model length is wrong and propagates
// any response error unchanged.
func BruteForce(op Operator, model []float64, opts ...BruteForceOption) (*mat.Dense, error) {
	if len(model) != op.ParamCount() {
		return nil, fmt.Errorf("model length %d != %d: %w", len(model), op.ParamCount(), ErrDimensionMismatch)
	}

	cfg := bruteForceConfig{relStep: DefaultRelativeStep, absStep: DefaultAbsoluteStep}
	for _, opt := range opts {
		opt(&cfg)
	}

	base, err := op.Response(model)
	if err != nil {
		return nil, err
	}
	if len(base) != op.DataCount() {
		return nil, fmt.Errorf("response length %d, declared %d: %w", len(base), op.DataCount(), ErrDimensionMismatch)
	}

	rows, cols := op.DataCount(), op.ParamCount()
	jac := mat.NewDense(rows, cols, nil)
	work := make([]float64, cols)
	copy(work, model)

	for j := 0; j < cols; j++ {
		h := cfg.relStep * math.Abs(model[j])
		if h < cfg.absStep {
			h = cfg.absStep
		}

		work[j] = model[j] + h
		pert, errResp := op.Response(work)
		work[j] = model[j]
		if errResp != nil {
			return nil, fmt.Errorf("perturbed response at parameter %d: %w", j, errResp)
		}

		for i := 0; i < rows; i++ {
			jac.Set(i, j, (pert[i]-base[i])/h)
		}
	}

	return jac, nil
}
