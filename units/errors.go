package units

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below matches ErrUnits plus its own sentinel.
var (
	// ErrUnits is the class of every error produced by this package.
	ErrUnits = errors.New("units error")

	// ErrUndefinedUnit marks a unit or dimension name unknown to the registry.
	ErrUndefinedUnit = errors.New("undefined unit")

	// ErrDuplicateUnit marks an attempt to rebind an existing unit or dimension name.
	ErrDuplicateUnit = errors.New("duplicate unit")

	// ErrInconsistentUnits marks two combined subexpressions with non-equivalent units.
	ErrInconsistentUnits = errors.New("inconsistent units")

	// ErrUnsupportedNode marks a node kind or function name with no unit rule.
	ErrUnsupportedNode = errors.New("unsupported node")

	// ErrForeignRegistry marks a unit created by a registry other than the checker's.
	ErrForeignRegistry = errors.New("unit belongs to a different registry")
)

// UndefinedUnitError reports a name the registry cannot resolve.
type UndefinedUnitError struct {
	Name string
	Kind string // "unit" or "dimension"
}

func (e *UndefinedUnitError) Error() string {
	return fmt.Sprintf("units: undefined %s %q", kindOrUnit(e.Kind), e.Name)
}

func (e *UndefinedUnitError) Is(target error) bool {
	return target == ErrUnits || target == ErrUndefinedUnit
}

// DuplicateUnitError reports a registration whose name is already bound.
type DuplicateUnitError struct {
	Name string
	Kind string // "unit" or "dimension"
}

func (e *DuplicateUnitError) Error() string {
	return fmt.Sprintf("units: %s %q is already defined", kindOrUnit(e.Kind), e.Name)
}

func (e *DuplicateUnitError) Is(target error) bool {
	return target == ErrUnits || target == ErrDuplicateUnit
}

// InconsistentUnitsError reports the first pair of non-equivalent units found
// under a node. Left and Right are unit renderings; Node renders the parent.
type InconsistentUnitsError struct {
	Node  string
	Left  string
	Right string
}

func (e *InconsistentUnitsError) Error() string {
	return fmt.Sprintf("units: %s not compatible with %s in expression: %s", e.Left, e.Right, e.Node)
}

func (e *InconsistentUnitsError) Is(target error) bool {
	return target == ErrUnits || target == ErrInconsistentUnits
}

// UnitsError is the general policy violation: a dimensioned exponent, a non-fixed
// exponent on a dimensioned base, wrong argument units for a function, malformed
// linear terms, bad definitions. Err optionally carries a more specific sentinel.
type UnitsError struct {
	Node   string
	Reason string
	Err    error
}

func (e *UnitsError) Error() string {
	if e.Node == "" {
		return "units: " + e.Reason
	}
	return fmt.Sprintf("units: %s in expression: %s", e.Reason, e.Node)
}

func (e *UnitsError) Is(target error) bool {
	return target == ErrUnits
}

func (e *UnitsError) Unwrap() error {
	return e.Err
}

// UnsupportedNodeError reports a node kind or unary function name that has no
// unit rule. Unknown operators are never treated as dimensionless.
type UnsupportedNodeError struct {
	Node     string
	Kind     NodeKind
	Function string
}

func (e *UnsupportedNodeError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("units: unhandled unary function %q in expression: %s", e.Function, e.Node)
	}
	return fmt.Sprintf("units: unhandled expression node kind %s in expression: %s", e.Kind, e.Node)
}

func (e *UnsupportedNodeError) Is(target error) bool {
	return target == ErrUnits || target == ErrUnsupportedNode
}

func kindOrUnit(kind string) string {
	if kind == "" {
		return "unit"
	}
	return kind
}

func policyError(n Node, format string, args ...any) error {
	return &UnitsError{Node: render(n), Reason: fmt.Sprintf(format, args...)}
}

func render(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}
