// Package synth produces synthetic datasets for inversion studies: clean
// responses contaminated with reproducible Gaussian noise and the matching
// absolute error estimates the engine weights data with.
package synth

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sentinel errors for synthetic-data generation.
var (
	// ErrBadNoise indicates a negative, non-finite, or all-zero noise level.
	ErrBadNoise = errors.New("synth: noise level must be finite, non-negative, and not entirely zero")
)

// Errors builds the absolute per-datum error vector
// err_i = relError·|data_i| + absError.
func Errors(data []float64, relError, absError float64) ([]float64, error) {
	if err := validateNoise(relError, absError); err != nil {
		return nil, err
	}

	out := make([]float64, len(data))
	for i, d := range data {
		out[i] = relError*math.Abs(d) + absError
	}

	return out, nil
}

// Contaminate perturbs every datum with zero-mean Gaussian noise whose
// standard deviation is the datum's error estimate. The same seed always
// yields the same realization.
//
// Returns the noisy data and the error vector the engine should be bound to.
func Contaminate(data []float64, relError, absError float64, seed uint64) (noisy, errs []float64, err error) {
	errs, err = Errors(data, relError, absError)
	if err != nil {
		return nil, nil, err
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	noisy = make([]float64, len(data))
	for i, d := range data {
		noisy[i] = d + errs[i]*normal.Rand()
	}

	return noisy, errs, nil
}

func validateNoise(relError, absError float64) error {
	for _, v := range []float64{relError, absError} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("rel=%g abs=%g: %w", relError, absError, ErrBadNoise)
		}
	}
	if relError == 0 && absError == 0 {
		return fmt.Errorf("rel=0 abs=0: %w", ErrBadNoise)
	}

	return nil
}
