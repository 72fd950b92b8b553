package forward

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Mapping lists, for each parameter of a child operator, the index of the
// global model entry it reads. Mappings of different children may overlap
// (shared parameters, classical joint inversion) and a single mapping may
// repeat an index (several child parameters bound to one global parameter).
type Mapping []int

// Identity returns the trivial mapping [0, 1, ..., n-1] for a child whose
// parameters coincide with the full global model.
func Identity(n int) Mapping {
	m := make(Mapping, n)
	for i := range m {
		m[i] = i
	}

	return m
}

// Range returns the contiguous mapping [start, end).
func Range(start, end int) Mapping {
	m := make(Mapping, 0, end-start)
	for i := start; i < end; i++ {
		m = append(m, i)
	}

	return m
}

// CombinedOption configures a Combined operator.
type CombinedOption func(*Combined)

// WithParallel evaluates the children of one Response/Jacobian call
// concurrently. Children must be safe for concurrent use with distinct
// model slices; the assembly order of the result stays construction order.
func WithParallel() CombinedOption {
	return func(c *Combined) { c.parallel = true }
}

// Combined composes N child operators into one Operator. Its response is the
// concatenation of child responses in construction order; its Jacobian is the
// block assembly of child Jacobians with rows at each child's data offset and
// columns given by its mapping. Immutable after construction.
type Combined struct {
	children   []Operator
	mappings   []Mapping
	offsets    []int // data-row offset per child
	paramCount int
	dataCount  int
	parallel   bool
}

// NewCombined validates the children/mapping pairs against the global
// parameter count and builds the combined operator.
//
// Validation (fail-fast, construction-time):
//   - at least one child, len(children) == len(mappings);
//   - every mapping length equals its child's ParamCount();
//   - every mapped index lies in [0, paramCount).
//
// Returns ErrBadMapping or ErrDimensionMismatch accordingly.
func NewCombined(paramCount int, children []Operator, mappings []Mapping, opts ...CombinedOption) (*Combined, error) {
	if paramCount <= 0 {
		return nil, fmt.Errorf("paramCount %d: %w", paramCount, ErrDimensionMismatch)
	}
	if len(children) == 0 || len(children) != len(mappings) {
		return nil, fmt.Errorf("%d children, %d mappings: %w", len(children), len(mappings), ErrBadMapping)
	}

	c := &Combined{
		children:   children,
		mappings:   mappings,
		offsets:    make([]int, len(children)),
		paramCount: paramCount,
	}
	for i, child := range children {
		if len(mappings[i]) != child.ParamCount() {
			return nil, fmt.Errorf("child %d: mapping length %d != ParamCount %d: %w",
				i, len(mappings[i]), child.ParamCount(), ErrBadMapping)
		}
		for _, idx := range mappings[i] {
			if idx < 0 || idx >= paramCount {
				return nil, fmt.Errorf("child %d: index %d outside [0,%d): %w", i, idx, paramCount, ErrBadMapping)
			}
		}
		if child.DataCount() <= 0 {
			return nil, fmt.Errorf("child %d: DataCount %d: %w", i, child.DataCount(), ErrDimensionMismatch)
		}
		c.offsets[i] = c.dataCount
		c.dataCount += child.DataCount()
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ParamCount reports the global model-vector length.
func (c *Combined) ParamCount() int { return c.paramCount }

// DataCount reports the total concatenated data length.
func (c *Combined) DataCount() int { return c.dataCount }

// DataOffset returns the row offset of child i's data slice within the
// combined data vector, and its length.
func (c *Combined) DataOffset(i int) (offset, length int) {
	return c.offsets[i], c.children[i].DataCount()
}

// gather extracts the child's sub-model from the global model via its mapping.
func gather(model []float64, m Mapping) []float64 {
	sub := make([]float64, len(m))
	for i, idx := range m {
		sub[i] = model[idx]
	}

	return sub
}

// Response concatenates the child responses in construction order.
// Invariant: len(result) == sum over children of DataCount().
func (c *Combined) Response(model []float64) ([]float64, error) {
	if len(model) != c.paramCount {
		return nil, fmt.Errorf("model length %d != %d: %w", len(model), c.paramCount, ErrDimensionMismatch)
	}

	out := make([]float64, c.dataCount)
	run := func(i int) error {
		resp, err := c.children[i].Response(gather(model, c.mappings[i]))
		if err != nil {
			return fmt.Errorf("child %d response: %w", i, err)
		}
		if len(resp) != c.children[i].DataCount() {
			return fmt.Errorf("child %d returned %d data, declared %d: %w",
				i, len(resp), c.children[i].DataCount(), ErrDimensionMismatch)
		}
		copy(out[c.offsets[i]:], resp)

		return nil
	}

	if err := c.forEach(run); err != nil {
		return nil, err
	}

	return out, nil
}

// Jacobian assembles the block-sparse combined Jacobian: child i's Jacobian
// fills rows [offset_i, offset_i+len_i) and the columns named by its mapping;
// entries mapped to the same global column accumulate additively.
func (c *Combined) Jacobian(model []float64) (*mat.Dense, error) {
	if len(model) != c.paramCount {
		return nil, fmt.Errorf("model length %d != %d: %w", len(model), c.paramCount, ErrDimensionMismatch)
	}

	jacs := make([]*mat.Dense, len(c.children))
	run := func(i int) error {
		jc, err := c.children[i].Jacobian(gather(model, c.mappings[i]))
		if err != nil {
			return fmt.Errorf("child %d jacobian: %w", i, err)
		}
		r, cc := jc.Dims()
		if r != c.children[i].DataCount() || cc != c.children[i].ParamCount() {
			return fmt.Errorf("child %d jacobian %dx%d, declared %dx%d: %w",
				i, r, cc, c.children[i].DataCount(), c.children[i].ParamCount(), ErrDimensionMismatch)
		}
		jacs[i] = jc

		return nil
	}
	if err := c.forEach(run); err != nil {
		return nil, err
	}

	// Assembly stays sequential and in construction order for determinism.
	out := mat.NewDense(c.dataCount, c.paramCount, nil)
	for i, jc := range jacs {
		mapping := c.mappings[i]
		for r := 0; r < c.children[i].DataCount(); r++ {
			row := c.offsets[i] + r
			for k, col := range mapping {
				out.Set(row, col, out.At(row, col)+jc.At(r, k))
			}
		}
	}

	return out, nil
}

// forEach runs fn over all child indices, sequentially or concurrently.
// The first error wins; all goroutines are always drained.
func (c *Combined) forEach(fn func(i int) error) error {
	if !c.parallel || len(c.children) == 1 {
		for i := range c.children {
			if err := fn(i); err != nil {
				return err
			}
		}

		return nil
	}

	errs := make(chan error, len(c.children))
	for i := range c.children {
		go func(i int) { errs <- fn(i) }(i)
	}

	var first error
	for range c.children {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}

	return first
}
