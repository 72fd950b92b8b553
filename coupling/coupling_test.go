package coupling_test

import (
	"bytes"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/joinvert/coupling"
	"github.com/katalvlaran/joinvert/forward"
	"github.com/katalvlaran/joinvert/inversion"
	"github.com/katalvlaran/joinvert/region"
	"github.com/katalvlaran/joinvert/synth"
	"github.com/katalvlaran/joinvert/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityOp(n int) *forward.Linear {
	g := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		g.Set(i, i, 1)
	}

	return forward.NewLinear(g)
}

// smoothEngine binds an identity operator over n cells with first-order
// smoothing, flat start model 1, and the given data and damping.
func smoothEngine(t *testing.T, data []float64, lambda float64) *inversion.Engine {
	t.Helper()
	n := len(data)
	mgr, err := region.NewManager(n, []region.Region{
		{ID: 0, Start: 0, End: n, Order: region.OrderFirst, StartValue: 1},
	})
	require.NoError(t, err)

	errs := make([]float64, n)
	for i := range errs {
		errs[i] = 0.1
	}
	eng, err := inversion.New(identityOp(n), mgr, data, errs,
		inversion.WithLambda(lambda), inversion.WithDeltaPhi(0))
	require.NoError(t, err)

	return eng
}

// TestWeight pins the weight function: 1+a on flat structure, falling toward
// a as the roughness grows, symmetric in the sign of r.
func TestWeight(t *testing.T) {
	const a = 0.1
	assert.InDelta(t, 1.1, coupling.Weight(0, a), 1e-12)
	assert.InDelta(t, a, coupling.Weight(100, a), 1e-3)
	assert.Equal(t, coupling.Weight(3, a), coupling.Weight(-3, a))

	// Strictly decreasing in |r|.
	prev := coupling.Weight(0, a)
	for _, r := range []float64{0.1, 1, 10, 1000} {
		w := coupling.Weight(r, a)
		assert.Less(t, w, prev, "r=%g", r)
		assert.Greater(t, w, a, "never reaches the asymptote")
		prev = w
	}

	ws := coupling.WeightVector([]float64{0, 100}, a)
	require.Len(t, ws, 2)
	assert.InDelta(t, 1.1, ws[0], 1e-12)
}

// TestNew_Validation covers nil engines and every target failure mode.
func TestNew_Validation(t *testing.T) {
	a := smoothEngine(t, []float64{1, 2, 3}, 1)
	b := smoothEngine(t, []float64{1, 2, 3}, 1)

	_, err := coupling.New(nil, b)
	assert.ErrorIs(t, err, coupling.ErrNilArgument)
	_, err = coupling.New(a, nil)
	assert.ErrorIs(t, err, coupling.ErrNilArgument)

	// Different interface counts demand explicit targets.
	short := smoothEngine(t, []float64{1, 2}, 1)
	_, err = coupling.New(a, short)
	assert.ErrorIs(t, err, coupling.ErrBadTargets)

	// Explicit pairing of a subset works across different counts.
	_, err = coupling.New(a, short, coupling.WithTargets([]int{0}, []int{0}))
	assert.NoError(t, err)

	// Out-of-bounds, duplicate, empty and unequal-length targets fail.
	_, err = coupling.New(a, b, coupling.WithTargets([]int{5}, []int{0}))
	assert.ErrorIs(t, err, coupling.ErrBadTargets)
	_, err = coupling.New(a, b, coupling.WithTargets([]int{0, 0}, []int{0, 1}))
	assert.ErrorIs(t, err, coupling.ErrBadTargets)
	_, err = coupling.New(a, b, coupling.WithTargets([]int{}, []int{}))
	assert.ErrorIs(t, err, coupling.ErrBadTargets)
	_, err = coupling.New(a, b, coupling.WithTargets([]int{0, 1}, []int{0}))
	assert.ErrorIs(t, err, coupling.ErrBadTargets)
}

// TestRound_WeightExchange runs two rounds and checks that the structure
// engine A found in round one (a jump between cells 2 and 3) shows up as a
// depressed constraint weight on the matching row of engine B in round two.
func TestRound_WeightExchange(t *testing.T) {
	a := smoothEngine(t, []float64{1, 1, 1, 9, 9}, 0.1)
	b := smoothEngine(t, []float64{1, 1, 1, 3, 3}, 50)

	var log bytes.Buffer
	c, err := coupling.New(a, b,
		coupling.WithMaxRounds(2), coupling.WithStopTolerance(0), coupling.WithVerbose(&log))
	require.NoError(t, err)

	// Round one: both start models are flat, so the exchanged weights stay
	// at their near-unity flat-structure value 1+a.
	sum, err := c.Round()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Round)
	assert.True(t, sum.Coupled)
	assert.InDelta(t, sum.Chi2A+sum.Chi2B, sum.Total, 1e-12)
	assert.InDeltaSlice(t, []float64{1.1, 1.1, 1.1, 1.1}, b.Manager().Weights(), 1e-9)
	assert.NotEmpty(t, log.String())

	// Engine A fit its sharp data; the jump row dominates its roughness.
	roughA := a.Roughness()
	require.Len(t, roughA, 4)
	assert.Greater(t, math.Abs(roughA[2]), 4.0)

	// Round two exchanges that roughness into B's weights before B steps.
	_, err = c.Round()
	require.NoError(t, err)
	wb := b.Manager().Weights()
	require.Len(t, wb, 4)
	assert.Less(t, wb[2], 0.2, "structured interface is loosened")
	for _, i := range []int{0, 1, 3} {
		assert.Greater(t, wb[i], 1.0, "flat interfaces keep full smoothing (row %d)", i)
	}

	// The round budget is spent: the controller is done.
	assert.True(t, c.Done())
	_, err = c.Round()
	assert.ErrorIs(t, err, coupling.ErrNotRunnable)
}

// TestCoupling_SharpensStructure is the core property: under identical heavy
// smoothing, a coupled engine develops a sharper contrast at the interface
// its partner resolved than an uncoupled engine ever does.
func TestCoupling_SharpensStructure(t *testing.T) {
	dataB := []float64{1, 1, 1, 3, 3}

	// Baseline: two heavily smoothed steps without coupling.
	alone := smoothEngine(t, dataB, 50)
	require.NoError(t, alone.OneStep())
	require.NoError(t, alone.OneStep())
	roughAlone := alone.Roughness()

	// Coupled: partner A resolves the jump sharply in round one, and round
	// two steps B with the exchanged weights.
	a := smoothEngine(t, []float64{1, 1, 1, 9, 9}, 0.1)
	b := smoothEngine(t, dataB, 50)
	c, err := coupling.New(a, b,
		coupling.WithMaxRounds(2), coupling.WithStopTolerance(0))
	require.NoError(t, err)
	require.NoError(t, c.Run())
	roughCoupled := b.Roughness()

	assert.Greater(t, math.Abs(roughCoupled[2]), math.Abs(roughAlone[2]),
		"coupling must sharpen the shared interface")
}

// TestUncoupledWarmup: warm-up rounds exchange nothing.
func TestUncoupledWarmup(t *testing.T) {
	a := smoothEngine(t, []float64{1, 1, 9}, 0.1)
	b := smoothEngine(t, []float64{1, 1, 3}, 10)
	c, err := coupling.New(a, b,
		coupling.WithUncoupledRounds(1), coupling.WithMaxRounds(1), coupling.WithStopTolerance(0))
	require.NoError(t, err)

	sum, err := c.Round()
	require.NoError(t, err)
	assert.False(t, sum.Coupled)
	assert.Equal(t, []float64{1, 1}, b.Manager().Weights(), "no exchange during warm-up")

	sum, err = c.Round()
	require.NoError(t, err)
	assert.True(t, sum.Coupled)
	assert.NotEqual(t, []float64{1, 1}, b.Manager().Weights())
	assert.Equal(t, 2, c.Rounds())
	assert.True(t, c.Done())
}

// TestRun_StopsOnStableTotal: data-dominated linear engines reach their
// optimum in round one, the weight exchange barely moves it afterwards, and
// the total-chi² criterion ends the alternation long before the round cap.
func TestRun_StopsOnStableTotal(t *testing.T) {
	a := smoothEngine(t, []float64{1, 1, 9}, 1)
	b := smoothEngine(t, []float64{1, 1, 3}, 1)
	c, err := coupling.New(a, b, coupling.WithMaxRounds(50))
	require.NoError(t, err)

	require.NoError(t, c.Run())
	assert.True(t, c.Done())
	assert.GreaterOrEqual(t, c.Rounds(), 2)
	assert.Less(t, c.Rounds(), 10, "stable totals stop the alternation early")
}

// TestRun_EngineConvergenceStopsCleanly: engines with their own misfit
// criterion converge and the controller terminates without error.
func TestRun_EngineConvergenceStopsCleanly(t *testing.T) {
	mk := func(data []float64) *inversion.Engine {
		t.Helper()
		n := len(data)
		mgr, err := region.NewManager(n, []region.Region{
			{ID: 0, Start: 0, End: n, Order: region.OrderFirst, StartValue: 1},
		})
		require.NoError(t, err)
		eng, err := inversion.New(identityOp(n), mgr, data, []float64{0.1, 0.1, 0.1},
			inversion.WithLambda(0.1)) // default DeltaPhi stays active
		require.NoError(t, err)

		return eng
	}

	c, err := coupling.New(mk([]float64{1, 2, 3}), mk([]float64{3, 2, 1}),
		coupling.WithMaxRounds(50), coupling.WithStopTolerance(0))
	require.NoError(t, err)

	require.NoError(t, c.Run())
	assert.True(t, c.Done())
	assert.Less(t, c.Rounds(), 50)
}

// blur builds a linear operator that sees each cell smeared over its
// neighbours, a stand-in physics with tunable intrinsic resolution.
func blur(n, halfWidth int) *forward.Linear {
	g := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		total := 0.0
		for j := i - halfWidth; j <= i+halfWidth; j++ {
			if j < 0 || j >= n {
				continue
			}
			w := float64(halfWidth + 1 - absInt(i-j))
			g.Set(i, j, w)
			total += w
		}
		for j := 0; j < n; j++ {
			g.Set(i, j, g.At(i, j)/total)
		}
	}

	return forward.NewLinear(g)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}

	return x
}

func peakToBackground(rough []float64, peak int) float64 {
	bg := 0.0
	for i, r := range rough {
		if i == peak {
			continue
		}
		bg += math.Abs(r)
	}
	bg /= float64(len(rough) - 1)

	return math.Abs(rough[peak]) / (bg + 1e-12)
}

// TestJointScenario_TwoMethods is the end-to-end property: two noisy
// synthetic soundings over a two-layer profile (contrast at cell 6), one
// well-resolving and one badly smeared, run one uncoupled warm-up round plus
// ten coupled rounds in log-model space. The coupled run must locate the
// boundary and sharpen it beyond the uncoupled baseline.
func TestJointScenario_TwoMethods(t *testing.T) {
	const n = 12
	trueModel := make([]float64, n)
	for i := range trueModel {
		if i < 6 {
			trueModel[i] = 100
		} else {
			trueModel[i] = 500
		}
	}

	opA := blur(n, 1)
	opB := blur(n, 3)
	cleanA, err := opA.Response(trueModel)
	require.NoError(t, err)
	cleanB, err := opB.Response(trueModel)
	require.NoError(t, err)

	// 3% Gaussian noise, reproducible.
	dataA, errsA, err := synth.Contaminate(cleanA, 0.03, 0, 11)
	require.NoError(t, err)
	dataB, errsB, err := synth.Contaminate(cleanB, 0.03, 0, 12)
	require.NoError(t, err)

	logEngine := func(op forward.Operator, data, errs []float64, lambda float64) *inversion.Engine {
		mgr, mErr := region.NewManager(n, []region.Region{
			{ID: 0, Start: 0, End: n, Order: region.OrderFirst, StartValue: 300, Trans: transform.Log{}},
		})
		require.NoError(t, mErr)
		eng, eErr := inversion.New(op, mgr, data, errs,
			inversion.WithLambda(lambda), inversion.WithDeltaPhi(0))
		require.NoError(t, eErr)

		return eng
	}

	// Uncoupled baseline: method B alone for the same number of steps.
	alone := logEngine(opB, dataB, errsB, 5000)
	require.NoError(t, alone.SetMaxIter(11))
	require.NoError(t, alone.Run())

	// Joint run: 1 warm-up + 10 coupled rounds.
	c, err := coupling.New(
		logEngine(opA, dataA, errsA, 10),
		logEngine(opB, dataB, errsB, 5000),
		coupling.WithUncoupledRounds(1), coupling.WithMaxRounds(10),
		coupling.WithStopTolerance(0))
	require.NoError(t, err)
	require.NoError(t, c.Run())
	assert.True(t, c.Done())
	assert.Equal(t, 11, c.Rounds())

	roughAlone := alone.Roughness()
	roughCoupled := c.EngineB().Roughness()

	// The coupled image puts its strongest contrast at the true boundary.
	peak := 0
	for i, r := range roughCoupled {
		if math.Abs(r) > math.Abs(roughCoupled[peak]) {
			peak = i
		}
	}
	assert.Equal(t, 5, peak, "boundary recovered between cells 5 and 6")

	// Coupling sharpens: a stronger jump and a higher peak-to-background
	// ratio than the uncoupled baseline.
	assert.Greater(t, math.Abs(roughCoupled[5]), math.Abs(roughAlone[5]))
	assert.Greater(t, peakToBackground(roughCoupled, 5), peakToBackground(roughAlone, 5))
}

// TestRound_EngineFailure wraps a failing step in ErrEngineFailed.
func TestRound_EngineFailure(t *testing.T) {
	a := smoothEngine(t, []float64{1, 2}, 0.1)

	// Rank-deficient operator without damping: the step cannot solve.
	mgr, err := region.NewManager(2, []region.Region{
		{ID: 0, Start: 0, End: 2, Order: region.OrderFirst, StartValue: 1},
	})
	require.NoError(t, err)
	g := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	broken, err := inversion.New(forward.NewLinear(g), mgr, []float64{1, 2}, []float64{1, 1},
		inversion.WithLambda(0))
	require.NoError(t, err)

	c, err := coupling.New(a, broken)
	require.NoError(t, err)

	_, err = c.Round()
	assert.ErrorIs(t, err, coupling.ErrEngineFailed)
	assert.Equal(t, inversion.Failed, broken.State())
	assert.True(t, c.Done())

	_, err = c.Round()
	assert.ErrorIs(t, err, coupling.ErrNotRunnable)
}
