package region

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// constraintMatrix is the assembled roughness operator C. A manager whose
// regions contribute no rows (e.g. a single one-cell region of order 1)
// carries rows == 0 and a nil dense matrix.
type constraintMatrix struct {
	rows  int
	dense *mat.Dense // rows × modelLen, nil when rows == 0
}

// rebuildConstraints assembles C from the current region orders and resets
// all constraint weights to 1.
func (m *Manager) rebuildConstraints() {
	total := 0
	m.rowSpan = make([][2]int, len(m.regions))
	for i, r := range m.regions {
		n := r.rowCount()
		m.rowSpan[i] = [2]int{total, total + n}
		total += n
	}

	c := &constraintMatrix{rows: total}
	if total > 0 {
		c.dense = mat.NewDense(total, m.modelLen, nil)
		for i, r := range m.regions {
			row := m.rowSpan[i][0]
			switch r.Order {
			case OrderDamping:
				for p := r.Start; p < r.End; p++ {
					c.dense.Set(row, p, 1)
					row++
				}
			case OrderFirst:
				for p := r.Start; p < r.End-1; p++ {
					c.dense.Set(row, p, -1)
					c.dense.Set(row, p+1, 1)
					row++
				}
			case OrderSecond:
				for p := r.Start + 1; p < r.End-1; p++ {
					c.dense.Set(row, p-1, 1)
					c.dense.Set(row, p, -2)
					c.dense.Set(row, p+1, 1)
					row++
				}
			}
		}
	}

	m.c = c
	m.weights = make([]float64, total)
	for i := range m.weights {
		m.weights[i] = 1.0
	}
}

// ConstraintMatrix returns a copy of the constraint operator C
// (InterfaceCount × ModelLen), or nil when no region contributes a row.
func (m *Manager) ConstraintMatrix() *mat.Dense {
	if m.c.rows == 0 {
		return nil
	}

	out := mat.NewDense(m.c.rows, m.modelLen, nil)
	out.Copy(m.c.dense)

	return out
}

// Roughness computes the roughness vector C·model for a (transformed) model.
// Returns an empty slice when the manager contributes no constraint rows.
func (m *Manager) Roughness(model []float64) ([]float64, error) {
	if len(model) != m.modelLen {
		return nil, fmt.Errorf("model length %d != %d: %w", len(model), m.modelLen, ErrDimensionMismatch)
	}
	if m.c.rows == 0 {
		return []float64{}, nil
	}

	out := make([]float64, m.c.rows)
	mat.NewVecDense(m.c.rows, out).MulVec(m.c.dense, mat.NewVecDense(m.modelLen, model))

	return out, nil
}
