// Package inversion implements the damped Gauss-Newton (Marquardt) engine
// that fits a model to data through a forward operator under per-region
// transforms and roughness regularization.
//
// Overview:
//
//   - An Engine binds one forward.Operator (possibly a forward.Combined),
//     one region.Manager, a data vector and per-datum absolute error
//     estimates. Binding validates every length relation up front and yields
//     a Configured engine; nothing else is checked lazily.
//   - OneStep performs exactly one iteration: evaluate response and Jacobian,
//     chain-rule the Jacobian columns into transformed model space, assemble
//     and solve the damped regularized normal equations
//
//     (Jᵗ W_d J + λ Cᵗ W_c C) Δm = Jᵗ W_d (d − f(m)) − λ Cᵗ W_c C·m
//
//     with W_d the inverse-variance data weighting, C the region constraint
//     operator, W_c the current constraint weights and λ the damping factor,
//     then update the transformed model, map it back to physical units, and
//     recompute roughness and chi² for the bookkeeping the structural
//     coupling reads.
//   - Run repeats OneStep until a terminal state.
//
// State machine: Uninitialized → Configured → Running → Converged | Failed.
// Converged is entered when the relative chi² drop falls below DeltaPhi or
// MaxIter is reached; Failed on a non-positive-definite system, a non-finite
// response, or a propagated forward error. OneStep on a terminal engine
// fails fast with ErrNotRunnable and never mutates the model.
//
// The linear solve uses a Cholesky factorization: positive definiteness of
// the normal-equation matrix is exactly the solvability condition, and its
// failure maps to ErrSingularSystem. Numerically marginal (near-singular but
// factorizable) systems are not specially handled; that sensitivity is left
// to the solver's native behavior by design of the method.
//
// Chi² convention: chi² = (1/N) Σ ((d_i − f_i)/err_i)², so a value near 1
// means the fit is within the noise estimate.
package inversion
