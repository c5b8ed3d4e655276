package units

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// DefaultTolerance bounds the relative scale difference under which two units with
// equal dimensions are treated as the same unit.
const DefaultTolerance = 1e-12

// Checker infers units over host expression trees against one registry.
// A Checker holds no per-call state; each call is one complete traversal.
type Checker struct {
	reg       *Registry
	tolerance float64
	observer  func(Node, *Unit)
}

// Option configures a Checker.
type Option func(*Checker)

// WithTolerance sets the equivalence tolerance. Non-positive values are ignored.
func WithTolerance(eps float64) Option {
	return func(c *Checker) {
		if eps > 0 {
			c.tolerance = eps
		}
	}
}

// WithObserver registers fn to receive every node together with its inferred unit,
// children before parents.
func WithObserver(fn func(Node, *Unit)) Option {
	return func(c *Checker) { c.observer = fn }
}

// NewChecker creates a checker bound to reg. Panics if reg is nil.
func NewChecker(reg *Registry, opts ...Option) *Checker {
	if reg == nil {
		panic("units: NewChecker requires a registry")
	}
	c := &Checker{reg: reg, tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the checker resolves units against.
func (c *Checker) Registry() *Registry { return c.reg }

// Tolerance returns the equivalence tolerance in effect.
func (c *Checker) Tolerance() float64 { return c.tolerance }

// InferUnits returns the unit of root, checking every subexpression along the way.
// The first violation aborts the traversal.
func (c *Checker) InferUnits(root Node) (*Unit, error) {
	u, err := c.walk(root)
	if err != nil {
		logrus.WithFields(logrus.Fields{"node": render(root), "error": err}).Debug("unit inference failed")
		return nil, err
	}
	return u, nil
}

// CheckConsistency reports whether root is dimensionally consistent. With
// suppressErrors, any units error becomes (false, nil); errors raised by the host
// tree itself are returned either way.
func (c *Checker) CheckConsistency(root Node, suppressErrors bool) (bool, error) {
	_, err := c.InferUnits(root)
	switch {
	case err == nil:
		return true, nil
	case suppressErrors && errors.Is(err, ErrUnits):
		return false, nil
	default:
		return false, err
	}
}

// Annotation pairs a node with its inferred unit.
type Annotation struct {
	Node Node
	Unit *Unit
}

// Annotate returns the unit of every node under root in post-order; the last entry
// is root itself. On error the annotations collected so far are returned with it.
func (c *Checker) Annotate(root Node) ([]Annotation, error) {
	var out []Annotation
	inner := *c
	inner.observer = func(n Node, u *Unit) {
		out = append(out, Annotation{Node: n, Unit: u})
		if c.observer != nil {
			c.observer(n, u)
		}
	}
	_, err := inner.InferUnits(root)
	return out, err
}

// InferUnits is NewChecker(reg).InferUnits(root).
func InferUnits(reg *Registry, root Node) (*Unit, error) {
	return NewChecker(reg).InferUnits(root)
}

// CheckConsistency is NewChecker(reg).CheckConsistency(root, suppressErrors).
func CheckConsistency(reg *Registry, root Node, suppressErrors bool) (bool, error) {
	return NewChecker(reg).CheckConsistency(root, suppressErrors)
}
