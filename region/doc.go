// Package region partitions the model vector into labeled regions and builds
// the roughness (constraint) operator the inversion engine regularizes with.
//
// Overview:
//
//   - A Region is a contiguous slice [Start, End) of the model vector with its
//     own parameter transform, constraint order and starting value. Region
//     ranges must partition [0, modelLen) without gaps or overlaps; violating
//     configurations fail construction.
//   - The Manager owns the ordered region list, assembles the constraint
//     matrix C such that C·m is the roughness vector (one entry per controlled
//     interface), dispatches per-region transforms over the partition, and
//     holds the per-row constraint weights the structural coupling rewrites
//     between inversion steps.
//
// Constraint orders:
//
//	0 — minimum-norm (Marquardt) damping: one identity row per parameter.
//	1 — first-order smoothness: one (-1, +1) row per adjacent in-region pair.
//	2 — second-order smoothness: one (1, -2, 1) row per interior parameter.
//
// Lifecycle: regions (transforms, orders, start values) are configured before
// the engine binds the manager and are immutable afterwards; only constraint
// weights may be rewritten between steps, which is exactly the mutation the
// coupling controller performs once per round.
//
// Errors (sentinel):
//
//	– ErrPartition          region ranges leave a gap or overlap.
//	– ErrBadOrder           constraint order outside {0, 1, 2}.
//	– ErrDuplicateRegion    two regions share an ID.
//	– ErrUnknownRegion      a referenced region ID does not exist.
//	– ErrDimensionMismatch  a weight vector of the wrong length.
//	– ErrBadWeight          a non-finite or negative constraint weight.
package region
