package inversion

import (
	"errors"
	"io"
	"math"
)

// Sentinel errors returned by the inversion engine.
var (
	// ErrNilArgument indicates a nil operator or region manager at binding.
	ErrNilArgument = errors.New("inversion: operator and region manager must be non-nil")

	// ErrDimensionMismatch indicates inconsistent lengths between operator,
	// data, error or model vectors at binding or during a step.
	ErrDimensionMismatch = errors.New("inversion: dimension mismatch")

	// ErrBadDataError indicates a per-datum error estimate that is not
	// strictly positive and finite (the data weighting is its inverse square).
	ErrBadDataError = errors.New("inversion: data error must be finite and positive")

	// ErrNotRunnable indicates OneStep/Run invoked on an engine in a
	// terminal state (Converged or Failed). The model is not mutated.
	ErrNotRunnable = errors.New("inversion: engine is not in a runnable state")

	// ErrSingularSystem indicates a normal-equation matrix that is not
	// positive definite; the engine transitions to Failed. Callers may
	// rebuild with a larger damping factor as an explicit recovery policy.
	ErrSingularSystem = errors.New("inversion: singular normal equations")

	// ErrNonFinite indicates a NaN or ±Inf in a response or model update.
	ErrNonFinite = errors.New("inversion: non-finite value encountered")

	// ErrBadOption indicates an invalid runtime reconfiguration value
	// (e.g. SetMaxIter below 1).
	ErrBadOption = errors.New("inversion: invalid option value")
)

// State enumerates the engine lifecycle:
// Uninitialized → Configured → Running → Converged | Failed.
type State int

const (
	// Uninitialized is the zero value; New never returns an engine in it.
	Uninitialized State = iota
	// Configured means operator, regions, data and errors are bound.
	Configured
	// Running means at least one step completed and more may follow.
	Running
	// Converged is terminal: the misfit drop fell below DeltaPhi or
	// MaxIter was reached.
	Converged
	// Failed is terminal: singular system, non-finite response, or a
	// propagated forward-computation error.
	Failed
)

// String reports the state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Configured:
		return "Configured"
	case Running:
		return "Running"
	case Converged:
		return "Converged"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the state admits no further steps.
func (s State) Terminal() bool { return s == Converged || s == Failed }

// Defaults for engine options.
const (
	// DefaultLambda is the initial Marquardt damping factor.
	DefaultLambda = 20.0

	// DefaultLambdaDecay keeps λ constant across iterations.
	DefaultLambdaDecay = 1.0

	// DefaultMaxIter caps the number of Gauss-Newton steps.
	DefaultMaxIter = 20

	// DefaultDeltaPhi is the relative chi² drop below which the engine
	// declares convergence. Zero disables the misfit criterion entirely
	// (only MaxIter terminates), which is what a coupling controller wants
	// when it drives steps one at a time.
	DefaultDeltaPhi = 0.01
)

// Options configures an inversion engine.
//
// Lambda      – Marquardt damping factor λ scaling the constraint term.
// LambdaDecay – multiplicative λ cooling applied after every step (≤ 1).
// MaxIter     – maximum number of steps before Converged.
// DeltaPhi    – relative misfit-drop convergence tolerance; 0 disables.
// LineSearch  – if true, try halved steps and keep the best misfit.
// Verbose     – when non-nil, one summary line per step is written here.
type Options struct {
	Lambda      float64
	LambdaDecay float64
	MaxIter     int
	DeltaPhi    float64
	LineSearch  bool
	Verbose     io.Writer
}

// Option is a functional option for configuring the engine.
type Option func(*Options)

// WithLambda sets the initial damping factor. Must be non-negative and
// finite; panics otherwise (programmer error).
func WithLambda(lambda float64) Option {
	if lambda < 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		panic("inversion: WithLambda: lambda must be finite and non-negative")
	}

	return func(o *Options) { o.Lambda = lambda }
}

// WithLambdaDecay sets the per-step multiplicative λ cooling, in (0, 1].
// Panics on values outside that interval.
func WithLambdaDecay(decay float64) Option {
	if decay <= 0 || decay > 1 || math.IsNaN(decay) {
		panic("inversion: WithLambdaDecay: decay must be in (0, 1]")
	}

	return func(o *Options) { o.LambdaDecay = decay }
}

// WithMaxIter caps the number of steps. Panics on values below 1.
func WithMaxIter(n int) Option {
	if n < 1 {
		panic("inversion: WithMaxIter: must allow at least one step")
	}

	return func(o *Options) { o.MaxIter = n }
}

// WithDeltaPhi sets the relative misfit-drop tolerance; 0 disables the
// criterion. Panics on negative or non-finite values.
func WithDeltaPhi(tol float64) Option {
	if tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		panic("inversion: WithDeltaPhi: tolerance must be finite and non-negative")
	}

	return func(o *Options) { o.DeltaPhi = tol }
}

// WithLineSearch enables the halving line search on the model update.
func WithLineSearch() Option {
	return func(o *Options) { o.LineSearch = true }
}

// WithVerbose writes a one-line summary per step to w.
func WithVerbose(w io.Writer) Option {
	return func(o *Options) { o.Verbose = w }
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Lambda:      DefaultLambda,
		LambdaDecay: DefaultLambdaDecay,
		MaxIter:     DefaultMaxIter,
		DeltaPhi:    DefaultDeltaPhi,
		LineSearch:  false,
		Verbose:     nil,
	}
}
