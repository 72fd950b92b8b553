package region

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/joinvert/transform"
)

// Sentinel errors for region configuration and weight handling.
var (
	// ErrPartition indicates region ranges that do not exactly tile the
	// model vector (gap, overlap, or out-of-bounds range).
	ErrPartition = errors.New("region: ranges must partition the model vector")

	// ErrBadOrder indicates a constraint order outside {0, 1, 2}.
	ErrBadOrder = errors.New("region: constraint order must be 0, 1 or 2")

	// ErrDuplicateRegion indicates two regions configured with the same ID.
	ErrDuplicateRegion = errors.New("region: duplicate region id")

	// ErrUnknownRegion indicates a region ID that does not exist.
	ErrUnknownRegion = errors.New("region: unknown region id")

	// ErrDimensionMismatch indicates a weight vector whose length does not
	// match the number of controlled interfaces.
	ErrDimensionMismatch = errors.New("region: dimension mismatch")

	// ErrBadWeight indicates a non-finite or negative constraint weight.
	ErrBadWeight = errors.New("region: constraint weight must be finite and non-negative")
)

// Constraint orders.
const (
	// OrderDamping disables smoothness: pure Marquardt damping rows.
	OrderDamping = 0
	// OrderFirst penalizes first differences between adjacent parameters.
	OrderFirst = 1
	// OrderSecond penalizes second differences (curvature).
	OrderSecond = 2
)

// Region is a labeled contiguous partition [Start, End) of the model vector.
// Trans defaults to transform.Identity when nil.
type Region struct {
	ID         int
	Start, End int
	Trans      transform.Transform
	Order      int
	StartValue float64
}

func (r Region) size() int { return r.End - r.Start }

// rowCount reports how many constraint rows the region contributes.
func (r Region) rowCount() int {
	switch r.Order {
	case OrderDamping:
		return r.size()
	case OrderFirst:
		return r.size() - 1
	default: // OrderSecond, validated at construction
		n := r.size() - 2
		if n < 0 {
			n = 0
		}

		return n
	}
}

// Manager owns the ordered region list, the constraint operator and the
// per-row constraint weights.
type Manager struct {
	regions  []Region
	modelLen int
	byID     map[int]int // region ID -> slice index

	c       *constraintMatrix
	rowSpan [][2]int  // constraint-row range per region (slice order)
	weights []float64 // one per constraint row, default 1
}

// NewManager validates that regions, in the given order, partition
// [0, modelLen) and builds the constraint operator.
//
// Returns ErrPartition, ErrBadOrder or ErrDuplicateRegion on invalid
// configurations; nothing is allocated on failure.
func NewManager(modelLen int, regions []Region) (*Manager, error) {
	if modelLen <= 0 {
		return nil, fmt.Errorf("model length %d: %w", modelLen, ErrPartition)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("no regions for model length %d: %w", modelLen, ErrPartition)
	}

	byID := make(map[int]int, len(regions))
	next := 0
	for i, r := range regions {
		if r.Start != next || r.End <= r.Start || r.End > modelLen {
			return nil, fmt.Errorf("region %d range [%d,%d): %w", r.ID, r.Start, r.End, ErrPartition)
		}
		if r.Order < OrderDamping || r.Order > OrderSecond {
			return nil, fmt.Errorf("region %d order %d: %w", r.ID, r.Order, ErrBadOrder)
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("region id %d: %w", r.ID, ErrDuplicateRegion)
		}
		byID[r.ID] = i
		next = r.End
	}
	if next != modelLen {
		return nil, fmt.Errorf("ranges cover [0,%d) of [0,%d): %w", next, modelLen, ErrPartition)
	}

	m := &Manager{
		regions:  append([]Region(nil), regions...),
		modelLen: modelLen,
		byID:     byID,
	}
	for i := range m.regions {
		if m.regions[i].Trans == nil {
			m.regions[i].Trans = transform.Identity{}
		}
	}
	m.rebuildConstraints()

	return m, nil
}

// ModelLen reports the model-vector length the manager partitions.
func (m *Manager) ModelLen() int { return m.modelLen }

// RegionCount reports the number of regions.
func (m *Manager) RegionCount() int { return len(m.regions) }

// Region returns a copy of the region with the given ID.
func (m *Manager) Region(id int) (Region, error) {
	i, ok := m.byID[id]
	if !ok {
		return Region{}, fmt.Errorf("id %d: %w", id, ErrUnknownRegion)
	}

	return m.regions[i], nil
}

// SetTransform replaces a region's parameter transform.
// Must be called before an engine binds the manager.
func (m *Manager) SetTransform(id int, t transform.Transform) error {
	i, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("id %d: %w", id, ErrUnknownRegion)
	}
	if t == nil {
		t = transform.Identity{}
	}
	m.regions[i].Trans = t

	return nil
}

// SetStartValue replaces a region's starting value.
func (m *Manager) SetStartValue(id int, v float64) error {
	i, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("id %d: %w", id, ErrUnknownRegion)
	}
	m.regions[i].StartValue = v

	return nil
}

// SetConstraintOrder replaces a region's constraint order and rebuilds the
// constraint operator; all weights are reset to 1 because the row layout
// changes. Must be called before an engine binds the manager.
func (m *Manager) SetConstraintOrder(id, order int) error {
	i, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("id %d: %w", id, ErrUnknownRegion)
	}
	if order < OrderDamping || order > OrderSecond {
		return fmt.Errorf("order %d: %w", order, ErrBadOrder)
	}
	m.regions[i].Order = order
	m.rebuildConstraints()

	return nil
}

// StartModel assembles the starting model vector from region start values.
func (m *Manager) StartModel() []float64 {
	out := make([]float64, m.modelLen)
	for _, r := range m.regions {
		for i := r.Start; i < r.End; i++ {
			out[i] = r.StartValue
		}
	}

	return out
}

// ForwardModel maps a physical model into transformed space, region by region.
func (m *Manager) ForwardModel(model []float64) ([]float64, error) {
	if len(model) != m.modelLen {
		return nil, fmt.Errorf("model length %d != %d: %w", len(model), m.modelLen, ErrDimensionMismatch)
	}

	out := make([]float64, m.modelLen)
	for _, r := range m.regions {
		for i := r.Start; i < r.End; i++ {
			y, err := r.Trans.Forward(model[i])
			if err != nil {
				return nil, fmt.Errorf("region %d parameter %d: %w", r.ID, i, err)
			}
			out[i] = y
		}
	}

	return out, nil
}

// InverseModel maps a transformed model back to physical space.
func (m *Manager) InverseModel(tmodel []float64) []float64 {
	out := make([]float64, len(tmodel))
	for _, r := range m.regions {
		for i := r.Start; i < r.End; i++ {
			out[i] = r.Trans.Inverse(tmodel[i])
		}
	}

	return out
}

// DerivativeModel evaluates d Forward/dx per parameter of a physical model,
// used by the engine to chain-rule Jacobian columns into transformed space.
func (m *Manager) DerivativeModel(model []float64) ([]float64, error) {
	if len(model) != m.modelLen {
		return nil, fmt.Errorf("model length %d != %d: %w", len(model), m.modelLen, ErrDimensionMismatch)
	}

	out := make([]float64, m.modelLen)
	for _, r := range m.regions {
		for i := r.Start; i < r.End; i++ {
			d, err := r.Trans.Derivative(model[i])
			if err != nil {
				return nil, fmt.Errorf("region %d parameter %d: %w", r.ID, i, err)
			}
			out[i] = d
		}
	}

	return out, nil
}

// InterfaceCount reports the total number of constraint rows (roughness
// entries) over all regions.
func (m *Manager) InterfaceCount() int { return m.c.rows }

// RegionRows returns the constraint-row range [start, end) contributed by
// the region with the given ID. Coupling targets are expressed in these rows.
func (m *Manager) RegionRows(id int) (start, end int, err error) {
	i, ok := m.byID[id]
	if !ok {
		return 0, 0, fmt.Errorf("id %d: %w", id, ErrUnknownRegion)
	}

	return m.rowSpan[i][0], m.rowSpan[i][1], nil
}

// SetConstraintWeight overwrites the full constraint-weight vector.
// The length must equal InterfaceCount; every entry must be finite and
// non-negative.
func (m *Manager) SetConstraintWeight(w []float64) error {
	if len(w) != m.c.rows {
		return fmt.Errorf("weight length %d != %d interfaces: %w", len(w), m.c.rows, ErrDimensionMismatch)
	}
	if err := validateWeights(w); err != nil {
		return err
	}
	copy(m.weights, w)

	return nil
}

// SetRegionConstraintWeight overwrites the weight slice of a single region,
// leaving all other rows untouched.
func (m *Manager) SetRegionConstraintWeight(id int, w []float64) error {
	start, end, err := m.RegionRows(id)
	if err != nil {
		return err
	}
	if len(w) != end-start {
		return fmt.Errorf("weight length %d != %d region rows: %w", len(w), end-start, ErrDimensionMismatch)
	}
	if err = validateWeights(w); err != nil {
		return err
	}
	copy(m.weights[start:end], w)

	return nil
}

// ResetConstraintWeights restores the default weight 1 on every row.
func (m *Manager) ResetConstraintWeights() {
	for i := range m.weights {
		m.weights[i] = 1.0
	}
}

// Weights returns a copy of the current constraint-weight vector.
func (m *Manager) Weights() []float64 {
	return append([]float64(nil), m.weights...)
}

func validateWeights(w []float64) error {
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("weight[%d]=%g: %w", i, v, ErrBadWeight)
		}
	}

	return nil
}
