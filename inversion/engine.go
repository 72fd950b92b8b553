package inversion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/joinvert/forward"
	"github.com/katalvlaran/joinvert/region"
)

// lineSearchFactors are the step fractions tried when LineSearch is enabled;
// the candidate with the lowest chi² wins. Without line search only the full
// step is taken.
var lineSearchFactors = []float64{1.0, 0.5, 0.25}

// Engine runs the damped iterative fit for one (possibly combined) operator.
// It is not safe for concurrent use; the coupling controller serializes
// weight updates and steps by construction.
type Engine struct {
	op   forward.Operator
	mgr  *region.Manager
	data []float64
	wd   []float64 // inverse-variance data weights 1/err²
	c    *mat.Dense

	model  []float64 // physical units
	tmodel []float64 // transformed space
	resp   []float64
	rough  []float64
	chi2   float64
	iter   int
	lambda float64
	state  State
	opts   Options
}

// New binds operator, region manager, data and absolute per-datum errors,
// validates all dimension relations and evaluates the transformed start
// model. On success the engine is Configured.
//
// Errors: ErrNilArgument, ErrDimensionMismatch, ErrBadDataError, and any
// transform domain error raised by the start model.
func New(op forward.Operator, mgr *region.Manager, data, errs []float64, opts ...Option) (*Engine, error) {
	if op == nil || mgr == nil {
		return nil, ErrNilArgument
	}
	if op.ParamCount() != mgr.ModelLen() {
		return nil, fmt.Errorf("operator expects %d parameters, regions cover %d: %w",
			op.ParamCount(), mgr.ModelLen(), ErrDimensionMismatch)
	}
	if len(data) != op.DataCount() || len(errs) != len(data) {
		return nil, fmt.Errorf("operator yields %d data, got %d values and %d errors: %w",
			op.DataCount(), len(data), len(errs), ErrDimensionMismatch)
	}

	wd := make([]float64, len(errs))
	for i, e := range errs {
		if e <= 0 || math.IsNaN(e) || math.IsInf(e, 0) {
			return nil, fmt.Errorf("error[%d]=%g: %w", i, e, ErrBadDataError)
		}
		wd[i] = 1.0 / (e * e)
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	model := mgr.StartModel()
	tmodel, err := mgr.ForwardModel(model)
	if err != nil {
		return nil, fmt.Errorf("start model: %w", err)
	}
	rough, err := mgr.Roughness(tmodel)
	if err != nil {
		return nil, err
	}

	return &Engine{
		op:     op,
		mgr:    mgr,
		data:   append([]float64(nil), data...),
		wd:     wd,
		c:      mgr.ConstraintMatrix(),
		model:  model,
		tmodel: tmodel,
		rough:  rough,
		chi2:   math.NaN(),
		lambda: o.Lambda,
		state:  Configured,
		opts:   o,
	}, nil
}

// State reports the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Iteration reports the number of completed steps.
func (e *Engine) Iteration() int { return e.iter }

// Chi2 reports the weighted misfit after the last step (NaN before any step).
func (e *Engine) Chi2() float64 { return e.chi2 }

// Lambda reports the current damping factor.
func (e *Engine) Lambda() float64 { return e.lambda }

// Manager exposes the bound region manager; the coupling controller uses it
// to rewrite constraint weights between steps.
func (e *Engine) Manager() *region.Manager { return e.mgr }

// Model returns a copy of the current physical model vector.
func (e *Engine) Model() []float64 { return append([]float64(nil), e.model...) }

// Response returns a copy of the last forward response (nil before any step).
func (e *Engine) Response() []float64 {
	if e.resp == nil {
		return nil
	}

	return append([]float64(nil), e.resp...)
}

// Roughness returns a copy of the constraint-operator image C·m of the
// current transformed model, one entry per controlled interface.
func (e *Engine) Roughness() []float64 { return append([]float64(nil), e.rough...) }

// SetMaxIter rewrites the step cap, enabling external single-step control:
// a coupling controller binds a large cap and drives OneStep itself.
func (e *Engine) SetMaxIter(n int) error {
	if n < 1 {
		return fmt.Errorf("max iter %d: %w", n, ErrBadOption)
	}
	e.opts.MaxIter = n

	return nil
}

// fail transitions to Failed and wraps the cause.
func (e *Engine) fail(cause error) error {
	e.state = Failed

	return cause
}

// OneStep performs exactly one Gauss-Newton step. Valid only in Configured
// or Running; a terminal engine returns ErrNotRunnable without touching the
// model. On numerical failure the engine transitions to Failed and the
// pre-step model is preserved.
func (e *Engine) OneStep() error {
	if e.state != Configured && e.state != Running {
		return fmt.Errorf("state %s: %w", e.state, ErrNotRunnable)
	}

	resp, err := e.op.Response(e.model)
	if err != nil {
		return e.fail(fmt.Errorf("response: %w", err))
	}
	if len(resp) != len(e.data) {
		return e.fail(fmt.Errorf("response length %d != %d: %w", len(resp), len(e.data), ErrDimensionMismatch))
	}
	if !allFinite(resp) {
		return e.fail(fmt.Errorf("response: %w", ErrNonFinite))
	}
	prevChi2 := e.weightedMisfit(resp)

	jac, err := e.op.Jacobian(e.model)
	if err != nil {
		return e.fail(fmt.Errorf("jacobian: %w", err))
	}
	nd, n := jac.Dims()
	if nd != len(e.data) || n != e.mgr.ModelLen() {
		return e.fail(fmt.Errorf("jacobian %dx%d, expected %dx%d: %w",
			nd, n, len(e.data), e.mgr.ModelLen(), ErrDimensionMismatch))
	}

	// Chain rule into transformed space: ∂d/∂mᵗ_j = (∂d/∂m_j) / (dFwd/dx)(m_j).
	deriv, err := e.mgr.DerivativeModel(e.model)
	if err != nil {
		return e.fail(err)
	}
	for j := 0; j < n; j++ {
		d := deriv[j]
		for i := 0; i < nd; i++ {
			jac.Set(i, j, jac.At(i, j)/d)
		}
	}

	dm, err := e.solveNormalEquations(jac, resp)
	if err != nil {
		return e.fail(err)
	}

	best, err := e.applyStep(dm)
	if err != nil {
		return e.fail(err)
	}

	e.tmodel = best.tmodel
	e.model = best.model
	e.resp = best.resp
	e.chi2 = best.chi2
	e.rough, err = e.mgr.Roughness(e.tmodel)
	if err != nil {
		return e.fail(err)
	}
	e.iter++
	e.lambda *= e.opts.LambdaDecay

	if e.opts.Verbose != nil {
		fmt.Fprintf(e.opts.Verbose, "it %2d: chi2=%.4g (was %.4g) lambda=%.3g tau=%.3g\n",
			e.iter, e.chi2, prevChi2, e.lambda, best.tau)
	}

	e.state = Running
	if e.iter >= e.opts.MaxIter {
		e.state = Converged

		return nil
	}
	if e.opts.DeltaPhi > 0 && e.iter > 1 {
		drop := (prevChi2 - e.chi2) / prevChi2
		if drop >= 0 && drop < e.opts.DeltaPhi {
			e.state = Converged
		}
	}

	return nil
}

// Run repeats OneStep until a terminal state and reports the first error.
func (e *Engine) Run() error {
	for !e.state.Terminal() {
		if err := e.OneStep(); err != nil {
			return err
		}
	}

	return nil
}

// solveNormalEquations assembles (JᵗWdJ + λCᵗWcC) Δm = JᵗWd(d−f) − λCᵗWcC·mᵗ
// and solves via Cholesky. jac must already be chain-ruled into transformed
// space. Returns ErrSingularSystem when the system is not positive definite.
func (e *Engine) solveNormalEquations(jac *mat.Dense, resp []float64) ([]float64, error) {
	nd, n := jac.Dims()

	// JᵗWdJ through a row-scaled copy of J.
	wj := mat.NewDense(nd, n, nil)
	for i := 0; i < nd; i++ {
		for j := 0; j < n; j++ {
			wj.Set(i, j, e.wd[i]*jac.At(i, j))
		}
	}
	var a mat.Dense
	a.Mul(jac.T(), wj)

	// JᵗWd(d − f).
	rhs := make([]float64, nd)
	for i := range rhs {
		rhs[i] = e.wd[i] * (e.data[i] - resp[i])
	}
	b := mat.NewVecDense(n, nil)
	b.MulVec(jac.T(), mat.NewVecDense(nd, rhs))

	if e.c != nil && e.lambda > 0 {
		rows, _ := e.c.Dims()
		weights := e.mgr.Weights()

		wc := mat.NewDense(rows, n, nil)
		for i := 0; i < rows; i++ {
			s := e.lambda * weights[i]
			for j := 0; j < n; j++ {
				wc.Set(i, j, s*e.c.At(i, j))
			}
		}
		var reg mat.Dense
		reg.Mul(e.c.T(), wc)
		a.Add(&a, &reg)

		// λCᵗWcC·mᵗ, subtracted from the right-hand side.
		cm := mat.NewVecDense(rows, nil)
		cm.MulVec(e.c, mat.NewVecDense(n, e.tmodel))
		for i := 0; i < rows; i++ {
			cm.SetVec(i, e.lambda*weights[i]*cm.AtVec(i))
		}
		breg := mat.NewVecDense(n, nil)
		breg.MulVec(e.c.T(), cm)
		b.SubVec(b, breg)
	}

	// Symmetrize against rounding before the SPD factorization.
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}

	var ch mat.Cholesky
	if !ch.Factorize(sym) {
		return nil, ErrSingularSystem
	}
	dm := mat.NewVecDense(n, nil)
	if err := ch.SolveVecTo(dm, b); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrSingularSystem)
	}

	out := make([]float64, n)
	copy(out, dm.RawVector().Data)

	return out, nil
}

// stepResult carries one evaluated step candidate.
type stepResult struct {
	tau    float64
	tmodel []float64
	model  []float64
	resp   []float64
	chi2   float64
}

// applyStep updates the transformed model by τ·Δm, taking the full step or,
// under line search, the best of the halved candidates. A candidate whose
// response fails or is non-finite is skipped; if every candidate fails the
// last error is returned and the engine fails.
func (e *Engine) applyStep(dm []float64) (stepResult, error) {
	factors := lineSearchFactors
	if !e.opts.LineSearch {
		factors = lineSearchFactors[:1]
	}

	var best stepResult
	var lastErr error
	found := false
	for _, tau := range factors {
		mt := floats.AddScaledTo(make([]float64, len(e.tmodel)), e.tmodel, tau, dm)
		if !allFinite(mt) {
			lastErr = fmt.Errorf("model update: %w", ErrNonFinite)

			continue
		}
		m := e.mgr.InverseModel(mt)
		resp, err := e.op.Response(m)
		if err != nil {
			lastErr = fmt.Errorf("response at tau=%g: %w", tau, err)

			continue
		}
		if !allFinite(resp) {
			lastErr = fmt.Errorf("response at tau=%g: %w", tau, ErrNonFinite)

			continue
		}
		c2 := e.weightedMisfit(resp)
		if !found || c2 < best.chi2 {
			best = stepResult{tau: tau, tmodel: mt, model: m, resp: resp, chi2: c2}
			found = true
		}
	}
	if !found {
		return stepResult{}, lastErr
	}

	return best, nil
}

// weightedMisfit computes chi² = (1/N) Σ wd_i (d_i − f_i)².
func (e *Engine) weightedMisfit(resp []float64) float64 {
	sum := 0.0
	for i := range e.data {
		r := e.data[i] - resp[i]
		sum += e.wd[i] * r * r
	}

	return sum / float64(len(e.data))
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}

	return true
}
