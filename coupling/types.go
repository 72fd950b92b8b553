package coupling

import (
	"errors"
	"io"
	"math"
)

// Sentinel errors for coupling configuration and execution.
var (
	// ErrNilArgument indicates a nil engine at binding.
	ErrNilArgument = errors.New("coupling: both engines must be non-nil")

	// ErrBadTargets indicates coupled constraint-row target lists that are
	// empty, of unequal length, out of bounds, or duplicated.
	ErrBadTargets = errors.New("coupling: invalid constraint-row targets")

	// ErrNotRunnable indicates Round/Run invoked on a controller whose
	// engines are already terminal or whose round budget is spent.
	ErrNotRunnable = errors.New("coupling: controller is not in a runnable state")

	// ErrEngineFailed indicates that one of the coupled engines transitioned
	// to Failed during a round; the step error is wrapped alongside.
	ErrEngineFailed = errors.New("coupling: coupled engine failed")
)

// Defaults for controller options.
const (
	// DefaultConstant is the coupling constant a of the weight function
	// w(r) = a/(|r|+a) + a.
	DefaultConstant = 0.1

	// DefaultMaxRounds caps the number of alternating coupling rounds.
	DefaultMaxRounds = 10

	// DefaultStopTolerance is the relative change in the summed chi² of both
	// engines below which the alternation stops.
	DefaultStopTolerance = 0.01
)

// Options configures a structural-coupling controller.
//
// Constant        – coupling constant a; small a means aggressive coupling
//                   (weights far below 1 at structured interfaces).
// MaxRounds       – alternating-round cap.
// StopTolerance   – relative total-chi² stabilization threshold; 0 disables.
// UncoupledRounds – rounds run with all-one weights before coupling starts,
//                   letting both models develop structure to exchange.
// TargetsA/B      – paired constraint-row indices: engine A's row TargetsA[i]
//                   is weighted by engine B's roughness at row TargetsB[i]
//                   and vice versa. Nil pairs every row, requiring equal
//                   interface counts.
// Verbose         – when non-nil, one summary line per round is written here.
type Options struct {
	Constant        float64
	MaxRounds       int
	StopTolerance   float64
	UncoupledRounds int
	TargetsA        []int
	TargetsB        []int
	Verbose         io.Writer
}

// Option is a functional option for configuring the controller.
type Option func(*Options)

// WithConstant sets the coupling constant a. Must be positive and finite;
// panics otherwise (programmer error).
func WithConstant(a float64) Option {
	if a <= 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		panic("coupling: WithConstant: constant must be finite and positive")
	}

	return func(o *Options) { o.Constant = a }
}

// WithMaxRounds caps the number of rounds. Panics on values below 1.
func WithMaxRounds(n int) Option {
	if n < 1 {
		panic("coupling: WithMaxRounds: must allow at least one round")
	}

	return func(o *Options) { o.MaxRounds = n }
}

// WithStopTolerance sets the relative total-chi² stabilization threshold;
// 0 disables the criterion. Panics on negative or non-finite values.
func WithStopTolerance(tol float64) Option {
	if tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		panic("coupling: WithStopTolerance: tolerance must be finite and non-negative")
	}

	return func(o *Options) { o.StopTolerance = tol }
}

// WithUncoupledRounds runs the first n rounds without weight exchange.
// Panics on negative values.
func WithUncoupledRounds(n int) Option {
	if n < 0 {
		panic("coupling: WithUncoupledRounds: must be non-negative")
	}

	return func(o *Options) { o.UncoupledRounds = n }
}

// WithTargets pairs the coupled constraint rows of the two engines.
// Both lists must have the same length; validation of bounds and duplicates
// happens at controller construction, where the engines are known.
func WithTargets(rowsA, rowsB []int) Option {
	return func(o *Options) {
		o.TargetsA = append([]int(nil), rowsA...)
		o.TargetsB = append([]int(nil), rowsB...)
	}
}

// WithVerbose writes a one-line summary per round to w.
func WithVerbose(w io.Writer) Option {
	return func(o *Options) { o.Verbose = w }
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Constant:        DefaultConstant,
		MaxRounds:       DefaultMaxRounds,
		StopTolerance:   DefaultStopTolerance,
		UncoupledRounds: 0,
		TargetsA:        nil,
		TargetsB:        nil,
		Verbose:         nil,
	}
}

// Weight maps a roughness value to a constraint weight through
// w(r) = a/(|r|+a) + a: flat structure (r = 0) yields 1+a, strong structure
// drives the weight toward a, loosening the smoothness constraint there.
func Weight(r, a float64) float64 {
	return a/(math.Abs(r)+a) + a
}

// WeightVector applies Weight to every roughness entry.
func WeightVector(rough []float64, a float64) []float64 {
	out := make([]float64, len(rough))
	for i, r := range rough {
		out[i] = Weight(r, a)
	}

	return out
}
