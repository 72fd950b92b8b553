package blockmodel_test

import (
	"testing"

	"github.com/katalvlaran/joinvert/blockmodel"
	"github.com/katalvlaran/joinvert/region"
	"github.com/katalvlaran/joinvert/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLayout_Indexing pins the flat-vector layout for 4 layers and 2
// properties: 3 thicknesses, then two blocks of 4.
func TestLayout_Indexing(t *testing.T) {
	l, err := blockmodel.NewLayout(4, 2)
	require.NoError(t, err)

	assert.Equal(t, 11, l.ModelLen())
	assert.Equal(t, 4, l.NLayers())
	assert.Equal(t, 2, l.PropertyCount())

	start, end := l.ThicknessRange()
	assert.Equal(t, [2]int{0, 3}, [2]int{start, end})

	start, end, err = l.PropertyRange(0)
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 7}, [2]int{start, end})

	start, end, err = l.PropertyRange(1)
	require.NoError(t, err)
	assert.Equal(t, [2]int{7, 11}, [2]int{start, end})

	_, _, err = l.PropertyRange(2)
	assert.ErrorIs(t, err, blockmodel.ErrBadProperty)
	_, _, err = l.PropertyRange(-1)
	assert.ErrorIs(t, err, blockmodel.ErrBadProperty)
}

func TestNewLayout_Validation(t *testing.T) {
	_, err := blockmodel.NewLayout(1, 1)
	assert.ErrorIs(t, err, blockmodel.ErrBadLayout)
	_, err = blockmodel.NewLayout(3, 0)
	assert.ErrorIs(t, err, blockmodel.ErrBadLayout)
}

// TestRegions verifies that the generated partition tiles the model vector
// and carries the per-block configuration through.
func TestRegions(t *testing.T) {
	l, err := blockmodel.NewLayout(4, 2)
	require.NoError(t, err)

	mgr, err := l.Regions(
		blockmodel.Block{Trans: transform.Log{}, Order: region.OrderDamping, StartValue: 5},
		[]blockmodel.Block{
			{Trans: transform.Log{}, Order: region.OrderFirst, StartValue: 100},
			{Order: region.OrderDamping, StartValue: 0.25},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, 11, mgr.ModelLen())
	assert.Equal(t, 3, mgr.RegionCount())

	r, err := mgr.Region(blockmodel.ThicknessRegionID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, r.StartValue)
	assert.IsType(t, transform.Log{}, r.Trans)

	// Start model: thicknesses 5, resistivities 100, second property 0.25.
	assert.Equal(t, []float64{5, 5, 5, 100, 100, 100, 100, 0.25, 0.25, 0.25, 0.25},
		mgr.StartModel())

	// Property-count mismatch.
	_, err = l.Regions(blockmodel.Block{StartValue: 5}, []blockmodel.Block{{}})
	assert.ErrorIs(t, err, blockmodel.ErrDimensionMismatch)
}

// TestExtraction covers thickness, depth and property slicing.
func TestExtraction(t *testing.T) {
	l, err := blockmodel.NewLayout(4, 2)
	require.NoError(t, err)

	model := []float64{2, 3, 4, 10, 20, 30, 40, 1, 2, 3, 4}

	th, err := l.Thicknesses(model)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, th)

	depths, err := l.Depths(model)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5, 9}, depths)

	p0, err := l.Property(model, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40}, p0)

	p1, err := l.Property(model, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, p1)

	_, err = l.Thicknesses(model[:5])
	assert.ErrorIs(t, err, blockmodel.ErrDimensionMismatch)
	_, err = l.Property(model[:5], 0)
	assert.ErrorIs(t, err, blockmodel.ErrDimensionMismatch)

	// Extracted slices are copies.
	th[0] = 99
	assert.Equal(t, 2.0, model[0])
}
