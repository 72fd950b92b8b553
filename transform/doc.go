// Package transform provides bijective scalar reparameterizations applied to
// model parameters during inversion.
//
// Optimizing directly in physical units is numerically fragile: resistivities
// span orders of magnitude, water contents live in a narrow physical interval.
// A Transform maps a physical parameter into an unbounded optimization domain
// and back, and exposes the derivative needed to chain-rule a Jacobian from
// physical into transformed space.
//
// Provided transforms:
//
//   - Identity — no-op mapping, valid everywhere.
//   - Log     — natural logarithm, domain x > 0. The standard choice for
//     positive quantities such as resistivity or slowness.
//   - LogLU   — bounded logarithm ln((x-lo)/(hi-x)), domain lo < x < hi.
//     Confines a parameter to a physical interval (e.g. porosity in (0,0.4)).
//
// Contract: Inverse(Forward(x)) == x within floating tolerance for every x in
// the transform's domain, and Derivative(x) is d Forward/dx, strictly positive
// on the domain.
//
// Errors (sentinel):
//
//	– ErrDomain    if Forward or Derivative is invoked outside the valid domain.
//	– ErrBadBounds if LogLU is constructed with lo >= hi.
package transform
