// Package blockmodel lays out 1D layered-earth block models as flat model
// vectors: n−1 layer thicknesses followed by one n-cell block per physical
// property. The layout produces the matching region partition so that
// thicknesses and each property carry their own transform, constraint order
// and start value.
package blockmodel

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/joinvert/region"
	"github.com/katalvlaran/joinvert/transform"
)

// Sentinel errors for block-model layouts.
var (
	// ErrBadLayout indicates fewer than two layers or no properties.
	ErrBadLayout = errors.New("blockmodel: need at least two layers and one property")

	// ErrBadProperty indicates a property index outside the layout.
	ErrBadProperty = errors.New("blockmodel: unknown property index")

	// ErrDimensionMismatch indicates a model vector whose length does not
	// match the layout.
	ErrDimensionMismatch = errors.New("blockmodel: dimension mismatch")
)

// Region IDs produced by Layout.Regions: thicknesses are region 0 and
// property i becomes region 1+i.
const ThicknessRegionID = 0

// Layout describes a block model of n layers and p properties. The model
// vector is [t_1 … t_{n−1}, prop⁰_1 … prop⁰_n, …, propᵖ⁻¹_1 … propᵖ⁻¹_n],
// the bottom layer extending to infinity.
type Layout struct {
	nLayers int
	nProps  int
}

// NewLayout validates the layer and property counts.
func NewLayout(nLayers, nProps int) (Layout, error) {
	if nLayers < 2 || nProps < 1 {
		return Layout{}, fmt.Errorf("%d layers, %d properties: %w", nLayers, nProps, ErrBadLayout)
	}

	return Layout{nLayers: nLayers, nProps: nProps}, nil
}

// NLayers reports the number of layers.
func (l Layout) NLayers() int { return l.nLayers }

// PropertyCount reports the number of per-layer properties.
func (l Layout) PropertyCount() int { return l.nProps }

// ModelLen reports the flat model-vector length, (p+1)·n − 1.
func (l Layout) ModelLen() int { return (l.nProps+1)*l.nLayers - 1 }

// ThicknessRange reports the index range [start, end) of the thicknesses.
func (l Layout) ThicknessRange() (start, end int) { return 0, l.nLayers - 1 }

// PropertyRange reports the index range [start, end) of property i.
func (l Layout) PropertyRange(i int) (start, end int, err error) {
	if i < 0 || i >= l.nProps {
		return 0, 0, fmt.Errorf("property %d of %d: %w", i, l.nProps, ErrBadProperty)
	}
	start = l.nLayers - 1 + i*l.nLayers

	return start, start + l.nLayers, nil
}

// Block configures one region of the layout: the shared transform,
// constraint order and start value of its cells. A nil Trans means identity.
type Block struct {
	Trans      transform.Transform
	Order      int
	StartValue float64
}

// Regions builds the region partition matching the layout: the thickness
// block as region 0 and property i as region 1+i. len(props) must equal
// PropertyCount.
func (l Layout) Regions(thick Block, props []Block) (*region.Manager, error) {
	if len(props) != l.nProps {
		return nil, fmt.Errorf("%d property blocks for %d properties: %w",
			len(props), l.nProps, ErrDimensionMismatch)
	}

	regs := make([]region.Region, 0, 1+l.nProps)
	ts, te := l.ThicknessRange()
	regs = append(regs, region.Region{
		ID: ThicknessRegionID, Start: ts, End: te,
		Trans: thick.Trans, Order: thick.Order, StartValue: thick.StartValue,
	})
	for i, p := range props {
		start, end, err := l.PropertyRange(i)
		if err != nil {
			return nil, err
		}
		regs = append(regs, region.Region{
			ID: ThicknessRegionID + 1 + i, Start: start, End: end,
			Trans: p.Trans, Order: p.Order, StartValue: p.StartValue,
		})
	}

	return region.NewManager(l.ModelLen(), regs)
}

// Thicknesses extracts a copy of the n−1 layer thicknesses.
func (l Layout) Thicknesses(model []float64) ([]float64, error) {
	if len(model) != l.ModelLen() {
		return nil, fmt.Errorf("model length %d != %d: %w", len(model), l.ModelLen(), ErrDimensionMismatch)
	}
	_, end := l.ThicknessRange()

	return append([]float64(nil), model[:end]...), nil
}

// Depths accumulates thicknesses into the n−1 layer-bottom depths.
func (l Layout) Depths(model []float64) ([]float64, error) {
	th, err := l.Thicknesses(model)
	if err != nil {
		return nil, err
	}

	sum := 0.0
	for i, t := range th {
		sum += t
		th[i] = sum
	}

	return th, nil
}

// Property extracts a copy of the n values of property i.
func (l Layout) Property(model []float64, i int) ([]float64, error) {
	if len(model) != l.ModelLen() {
		return nil, fmt.Errorf("model length %d != %d: %w", len(model), l.ModelLen(), ErrDimensionMismatch)
	}
	start, end, err := l.PropertyRange(i)
	if err != nil {
		return nil, err
	}

	return append([]float64(nil), model[start:end]...), nil
}
