package synth_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/joinvert/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	errs, err := synth.Errors([]float64{10, -20, 0}, 0.03, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.8, 1.1, 0.5}, errs)

	_, err = synth.Errors([]float64{1}, -0.1, 0)
	assert.ErrorIs(t, err, synth.ErrBadNoise)
	_, err = synth.Errors([]float64{1}, 0, 0)
	assert.ErrorIs(t, err, synth.ErrBadNoise)
	_, err = synth.Errors([]float64{1}, math.NaN(), 1)
	assert.ErrorIs(t, err, synth.ErrBadNoise)
}

// TestContaminate_Reproducible: the same seed yields the same realization,
// different seeds differ.
func TestContaminate_Reproducible(t *testing.T) {
	data := []float64{100, 200, 300}

	a, errsA, err := synth.Contaminate(data, 0.05, 0, 42)
	require.NoError(t, err)
	b, errsB, err := synth.Contaminate(data, 0.05, 0, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, errsA, errsB)

	c, _, err := synth.Contaminate(data, 0.05, 0, 43)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	// Clean data is never returned untouched.
	assert.NotEqual(t, data, a)
	assert.Equal(t, []float64{100, 200, 300}, data, "input stays intact")
}

// TestContaminate_Statistics: normalized residuals of a large sample behave
// like a standard normal.
func TestContaminate_Statistics(t *testing.T) {
	n := 20000
	data := make([]float64, n)
	for i := range data {
		data[i] = 50
	}

	noisy, errs, err := synth.Contaminate(data, 0.02, 0, 7)
	require.NoError(t, err)

	mean, m2 := 0.0, 0.0
	for i := range data {
		z := (noisy[i] - data[i]) / errs[i]
		mean += z
		m2 += z * z
	}
	mean /= float64(n)
	std := math.Sqrt(m2/float64(n) - mean*mean)

	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 1, std, 0.05)
}
