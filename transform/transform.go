package transform

import (
	"errors"
	"math"
)

// Sentinel errors for transform operations.
var (
	// ErrDomain indicates a value outside the transform's valid domain
	// (e.g. a non-positive resistivity passed to Log).
	ErrDomain = errors.New("transform: value outside transform domain")

	// ErrBadBounds indicates LogLU bounds with lo >= hi.
	ErrBadBounds = errors.New("transform: lower bound must be below upper bound")
)

// Transform maps a physical model parameter into an optimization domain.
//
// Forward and Inverse are exact mathematical inverses on the domain;
// Derivative is d Forward/dx and is strictly positive on the domain.
type Transform interface {
	// Forward maps a physical value into transformed space.
	// Returns ErrDomain if x is outside the valid domain.
	Forward(x float64) (float64, error)

	// Inverse maps a transformed value back to physical space.
	// Defined for every finite input; the result always lies in the domain.
	Inverse(y float64) float64

	// Derivative returns d Forward/dx at x.
	// Returns ErrDomain if x is outside the valid domain.
	Derivative(x float64) (float64, error)
}

// Identity is the no-op transform: optimization runs in physical units.
type Identity struct{}

// Forward returns x unchanged.
func (Identity) Forward(x float64) (float64, error) { return x, nil }

// Inverse returns y unchanged.
func (Identity) Inverse(y float64) float64 { return y }

// Derivative returns 1 for every x.
func (Identity) Derivative(float64) (float64, error) { return 1.0, nil }

// Log is the natural-logarithm transform for strictly positive parameters.
type Log struct{}

// Forward returns ln(x); ErrDomain if x <= 0.
func (Log) Forward(x float64) (float64, error) {
	if x <= 0 {
		return 0, ErrDomain
	}

	return math.Log(x), nil
}

// Inverse returns exp(y).
func (Log) Inverse(y float64) float64 { return math.Exp(y) }

// Derivative returns 1/x; ErrDomain if x <= 0.
func (Log) Derivative(x float64) (float64, error) {
	if x <= 0 {
		return 0, ErrDomain
	}

	return 1.0 / x, nil
}

// LogLU is the bounded logarithmic transform ln((x-lo)/(hi-x)).
// It confines a parameter to the open interval (lo, hi): the transformed
// value sweeps the whole real line while the physical value stays bounded.
type LogLU struct {
	lo, hi float64
}

// NewLogLU constructs a bounded-log transform for the open interval (lo, hi).
// Returns ErrBadBounds when lo >= hi or a bound is not finite.
func NewLogLU(lo, hi float64) (LogLU, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo >= hi {
		return LogLU{}, ErrBadBounds
	}

	return LogLU{lo: lo, hi: hi}, nil
}

// Bounds returns the open interval (lo, hi) enforced by the transform.
func (t LogLU) Bounds() (lo, hi float64) { return t.lo, t.hi }

// Forward returns ln((x-lo)/(hi-x)); ErrDomain unless lo < x < hi.
func (t LogLU) Forward(x float64) (float64, error) {
	if x <= t.lo || x >= t.hi {
		return 0, ErrDomain
	}

	return math.Log((x - t.lo) / (t.hi - x)), nil
}

// Inverse returns lo + (hi-lo)/(1+exp(-y)); the result is always in (lo, hi).
func (t LogLU) Inverse(y float64) float64 {
	return t.lo + (t.hi-t.lo)/(1.0+math.Exp(-y))
}

// Derivative returns 1/(x-lo) + 1/(hi-x); ErrDomain unless lo < x < hi.
func (t LogLU) Derivative(x float64) (float64, error) {
	if x <= t.lo || x >= t.hi {
		return 0, ErrDomain
	}

	return 1.0/(x-t.lo) + 1.0/(t.hi-x), nil
}

// ForwardVector applies t.Forward to every element of xs and returns a fresh
// slice. The first out-of-domain element aborts with ErrDomain.
func ForwardVector(t Transform, xs []float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		y, err := t.Forward(x)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}

	return out, nil
}

// InverseVector applies t.Inverse to every element of ys into a fresh slice.
func InverseVector(t Transform, ys []float64) []float64 {
	out := make([]float64, len(ys))
	for i, y := range ys {
		out[i] = t.Inverse(y)
	}

	return out
}
