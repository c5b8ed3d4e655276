// Package units provides unit inference and dimensional-consistency checking for
// arithmetic expression trees.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - unit.go: the immutable Unit value and its algebra (Multiply, Divide, Power, Equivalent)
//   - registry.go: the Registry that owns dimensions and named units
//   - infer.go: the post-order walk and the per-node-kind rules
//
// # Architecture
//
// The package owns the host-tree contract (Node and its capability interfaces in
// node.go); a concrete tree lives in sub-package units/expr. A Checker walks any tree
// satisfying the contract, computes one *Unit per node bottom-up and stops at the
// first inconsistency:
//
//	reg := units.NewRegistry()
//	m := reg.MustLookup("meter")
//	u, err := units.NewChecker(reg).InferUnits(expr.Sum(expr.U(m), expr.U(m)))
//
// Every Unit is bound to the Registry that created it. Registries are never global:
// create one per checking session and thread it through every unit literal.
//
// # Errors
//
// All errors produced by the engine match ErrUnits through errors.Is. Use errors.As
// with *InconsistentUnitsError, *UnitsError, *UndefinedUnitError, *DuplicateUnitError
// or *UnsupportedNodeError to reach the structured context.
package units
