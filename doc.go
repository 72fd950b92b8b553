// Package joinvert is your in-memory toolbox for single-method and joint
// geophysical inversion — damped Gauss-Newton fitting of layered and
// cell-based models, with structural coupling between methods.
//
// 🚀 What is joinvert?
//
//	A focused, pure-Go inversion library that brings together:
//		• Parameter transforms: identity, log, and bounded log (range constraints)
//		• Model regions: per-zone transforms, start values & constraint orders
//		• Forward-operator composition: block Jacobians over shared parameters
//		• The engine: damped, regularized Gauss-Newton with line search
//		• Structural coupling: two inversions exchanging roughness-derived weights
//		• Block models: 1D layered-earth layouts over the same machinery
//		• Scenarios: declarative YAML setup for regions, engine & coupling
//
// ✨ Why choose joinvert?
//
//   - Explicit state machine – Configured → Running → Converged | Failed,
//     no silent no-ops, every failure carries a sentinel error
//   - Physics-agnostic – plug any Operator: analytic Jacobians, linear
//     kernels, or brute-force finite differences
//   - Composable – combine operators over one model vector and invert
//     mixed datasets in a single run
//   - Built on gonum – dense linear algebra and Cholesky solves, no cgo
//
// Everything is organized under small single-purpose packages:
//
//	transform/  — model parameter transforms & their derivatives
//	region/     — model partitioning, constraint operator & weights
//	forward/    — Operator contract, combined operators, brute-force Jacobians
//	inversion/  — the damped Gauss-Newton engine
//	coupling/   — structural coupling controller for joint inversion
//	blockmodel/ — 1D layered-earth model layouts
//	config/     — YAML scenario loading
//	synth/      — reproducible synthetic data for studies & tests
//
// Quick sketch of a coupled run:
//
//	engA, _ := inversion.New(opA, mgrA, dataA, errsA)
//	engB, _ := inversion.New(opB, mgrB, dataB, errsB)
//	ctrl, _ := coupling.New(engA, engB)
//	_ = ctrl.Run() // alternate, exchanging structure every round
//
// See examples/ for a complete joint-inversion walkthrough.
package joinvert
