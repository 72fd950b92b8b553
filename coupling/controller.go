package coupling

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/joinvert/inversion"
)

// Controller alternates two inversion engines, feeding each engine's
// roughness into the other engine's constraint weights so that structure
// found by one dataset loosens smoothing in the other.
//
// The controller drives the engines step by step; each engine's own
// iteration cap is raised to the round budget at binding so that rounds are
// terminated by the controller, not by the engines.
type Controller struct {
	a, b      *inversion.Engine
	opts      Options
	round     int
	lastTotal float64
	done      bool
}

// RoundSummary reports the outcome of one alternating round.
type RoundSummary struct {
	Round   int     // 1-based round counter
	Coupled bool    // false during the uncoupled warm-up rounds
	Chi2A   float64 // engine A misfit after its step
	Chi2B   float64 // engine B misfit after its step
	Total   float64 // Chi2A + Chi2B, the stop-criterion quantity
}

// New binds two engines for structural coupling.
//
// Without explicit targets both engines must control the same number of
// interfaces and every constraint row is paired positionally. Explicit
// targets must be non-empty, of equal length, within bounds, and free of
// duplicates on each side. Returns ErrNilArgument or ErrBadTargets.
func New(a, b *inversion.Engine, opts ...Option) (*Controller, error) {
	if a == nil || b == nil {
		return nil, ErrNilArgument
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	na := a.Manager().InterfaceCount()
	nb := b.Manager().InterfaceCount()
	if o.TargetsA == nil && o.TargetsB == nil {
		if na != nb {
			return nil, fmt.Errorf("interface counts %d and %d differ, explicit targets required: %w",
				na, nb, ErrBadTargets)
		}
		o.TargetsA = sequence(na)
		o.TargetsB = sequence(nb)
	}
	if err := validateTargets(o.TargetsA, na); err != nil {
		return nil, fmt.Errorf("engine A: %w", err)
	}
	if err := validateTargets(o.TargetsB, nb); err != nil {
		return nil, fmt.Errorf("engine B: %w", err)
	}
	if len(o.TargetsA) != len(o.TargetsB) {
		return nil, fmt.Errorf("target lengths %d and %d differ: %w",
			len(o.TargetsA), len(o.TargetsB), ErrBadTargets)
	}

	// Rounds, not engine caps, terminate the alternation.
	if err := a.SetMaxIter(o.MaxRounds + o.UncoupledRounds + 1); err != nil {
		return nil, err
	}
	if err := b.SetMaxIter(o.MaxRounds + o.UncoupledRounds + 1); err != nil {
		return nil, err
	}

	return &Controller{a: a, b: b, opts: o}, nil
}

// EngineA exposes the first coupled engine.
func (c *Controller) EngineA() *inversion.Engine { return c.a }

// EngineB exposes the second coupled engine.
func (c *Controller) EngineB() *inversion.Engine { return c.b }

// Rounds reports the number of completed rounds.
func (c *Controller) Rounds() int { return c.round }

// Done reports whether the alternation has terminated.
func (c *Controller) Done() bool { return c.done }

// Round performs one alternating round: both weight vectors are derived
// from the partners' current roughness and applied first (the weight barrier
// precedes every step of the round), then A steps, then B. During the
// warm-up rounds both weight vectors stay at their defaults.
//
// Returns ErrNotRunnable once terminated and ErrEngineFailed (wrapping the
// step error) when a step fails; a convergence stop of either engine
// terminates the alternation cleanly.
func (c *Controller) Round() (RoundSummary, error) {
	if c.done {
		return RoundSummary{}, ErrNotRunnable
	}
	if c.round >= c.opts.MaxRounds+c.opts.UncoupledRounds {
		c.done = true

		return RoundSummary{}, ErrNotRunnable
	}

	coupled := c.round >= c.opts.UncoupledRounds
	if coupled {
		if err := c.exchange(c.b, c.a, c.opts.TargetsB, c.opts.TargetsA); err != nil {
			c.done = true

			return RoundSummary{}, err
		}
		if err := c.exchange(c.a, c.b, c.opts.TargetsA, c.opts.TargetsB); err != nil {
			c.done = true

			return RoundSummary{}, err
		}
	}
	if stop, err := c.step(c.a); stop || err != nil {
		return RoundSummary{}, err
	}
	if stop, err := c.step(c.b); stop || err != nil {
		return RoundSummary{}, err
	}

	c.round++
	sum := RoundSummary{
		Round:   c.round,
		Coupled: coupled,
		Chi2A:   c.a.Chi2(),
		Chi2B:   c.b.Chi2(),
	}
	sum.Total = sum.Chi2A + sum.Chi2B

	if c.opts.Verbose != nil {
		fmt.Fprintf(c.opts.Verbose, "round %2d coupled=%t: chi2A=%.4g chi2B=%.4g total=%.4g\n",
			sum.Round, sum.Coupled, sum.Chi2A, sum.Chi2B, sum.Total)
	}

	if c.round >= c.opts.MaxRounds+c.opts.UncoupledRounds {
		c.done = true
	} else if c.opts.StopTolerance > 0 && c.round > 1 {
		if math.Abs(c.lastTotal-sum.Total) <= c.opts.StopTolerance*c.lastTotal {
			c.done = true
		}
	}
	c.lastTotal = sum.Total

	return sum, nil
}

// Run repeats Round until termination and reports the first failure.
func (c *Controller) Run() error {
	for !c.done {
		if _, err := c.Round(); err != nil {
			return err
		}
	}

	return nil
}

// exchange rewrites dst's constraint weights from src's current roughness.
// Untargeted rows are restored to 1.
func (c *Controller) exchange(dst, src *inversion.Engine, dstRows, srcRows []int) error {
	rough := src.Roughness()
	w := make([]float64, dst.Manager().InterfaceCount())
	for i := range w {
		w[i] = 1.0
	}
	for i, row := range dstRows {
		w[row] = Weight(rough[srcRows[i]], c.opts.Constant)
	}

	return dst.Manager().SetConstraintWeight(w)
}

// step advances one engine by one iteration. A clean convergence stop
// terminates the alternation (stop=true, nil error); a failure terminates it
// with ErrEngineFailed.
func (c *Controller) step(e *inversion.Engine) (stop bool, err error) {
	stepErr := e.OneStep()
	if stepErr == nil {
		return false, nil
	}
	c.done = true
	if errors.Is(stepErr, inversion.ErrNotRunnable) && e.State() == inversion.Converged {
		return true, nil
	}

	return false, fmt.Errorf("%w: %v", ErrEngineFailed, stepErr)
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}

func validateTargets(rows []int, n int) error {
	if len(rows) == 0 {
		return fmt.Errorf("empty target list: %w", ErrBadTargets)
	}
	seen := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if r < 0 || r >= n {
			return fmt.Errorf("row %d outside [0,%d): %w", r, n, ErrBadTargets)
		}
		if _, dup := seen[r]; dup {
			return fmt.Errorf("row %d duplicated: %w", r, ErrBadTargets)
		}
		seen[r] = struct{}{}
	}

	return nil
}
