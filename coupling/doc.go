// Package coupling implements structural coupling between two inversion
// engines working on the same subsurface with different physics.
//
// The mechanism alternates the engines round by round. At the start of every
// round the constraint weight of each coupled interface is recomputed from
// the OTHER engine's roughness at the paired interface, both weight vectors
// are applied, and only then do the engines step:
//
//	w(r) = a / (|r| + a) + a
//
// with the coupling constant a (DefaultConstant 0.1). Where the other model
// is flat (r → 0) the weight approaches 1+a and smoothing stays essentially
// intact; where the other model has developed a sharp contrast (|r| large)
// the weight drops toward a, loosening the smoothness penalty so this model
// may form an interface in the same place. Neither engine's data vector ever
// crosses over; only structure does.
//
// Termination: the alternation stops when the summed chi² of both engines
// stabilizes (relative change below StopTolerance), when MaxRounds is spent,
// when either engine converges on its own criterion, or with ErrEngineFailed
// when a step fails. An optional uncoupled warm-up lets both models develop
// structure before the exchange starts.
package coupling
