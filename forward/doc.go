// Package forward defines the forward-operator capability consumed by the
// inversion engine, and the machinery to compose several operators into one.
//
// Overview:
//
//   - Operator is the boundary to the physics: a deterministic pair
//     Response(model) → data and Jacobian(model) → ∂data/∂model. Concrete
//     simulators (DC resistivity, EM, MRS, GPR, ...) live outside this module
//     and plug in by implementing Operator over their own parameterization.
//   - Combined presents N child operators as a single Operator whose response
//     is the concatenation of the children's responses, and whose Jacobian is
//     block-structured: child i occupies the rows of its data slice and the
//     columns named by its explicit parameter mapping. Children may share
//     global parameters (classical joint inversion): overlapping mappings are
//     legal and contributions into shared columns superpose additively.
//   - BruteForce computes a finite-difference Jacobian for operators without
//     an analytic one. Step sizing is a free parameter of the method; the
//     defaults (relative 1e-4, absolute floor 1e-6) are documented below and
//     validated against analytic Jacobians in the tests.
//
// Index mappings are explicit and validated at construction, never inferred
// from positional layout: a Mapping lists, for each child parameter, the
// index of the global model entry it reads.
//
// Errors (sentinel):
//
//	– ErrDimensionMismatch  model/data length inconsistent with the operator.
//	– ErrComputation        the underlying physics is undefined for the given
//	                        parameters; external operators wrap this sentinel.
//	– ErrBadMapping         a combined mapping is empty, out of range, or does
//	                        not match its child's parameter count.
//
// Thread safety: Combined is immutable after construction; concurrent calls
// with distinct model slices are safe provided the children are. With
// WithParallel, children of one call evaluate concurrently against the same
// model snapshot.
package forward
