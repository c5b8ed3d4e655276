package units

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// walk infers the unit of n post-order: every child first, in order, then n.
// Linear nodes are the exception; their terms come from the LinearNode accessors.
func (c *Checker) walk(n Node) (*Unit, error) {
	if n == nil {
		_, err := Classify(nil)
		return nil, err
	}
	var children []*Unit
	if n.Kind() != KindLinear {
		args := n.Args()
		children = make([]*Unit, len(args))
		for i, arg := range args {
			u, err := c.walk(arg)
			if err != nil {
				return nil, err
			}
			children[i] = u
		}
	}
	u, err := c.exitNode(n, children)
	if err != nil {
		return nil, err
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.WithFields(logrus.Fields{"node": n.String(), "unit": u.String()}).Trace("inferred unit")
	}
	if c.observer != nil {
		c.observer(n, u)
	}
	return u, nil
}

// exitNode applies the rule for n's kind to the units of its children.
func (c *Checker) exitNode(n Node, children []*Unit) (*Unit, error) {
	kind, err := Classify(n)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindUnit:
		return c.unitLeaf(n.(UnitNode))
	case KindNumber, KindLeaf:
		return c.reg.dimensionless, nil
	case KindEquality, KindInequality, KindRanged, KindSum:
		return c.equivalentChildren(n, children)
	case KindProduct, KindMonomial:
		return c.product(children), nil
	case KindReciprocal:
		if c.isDimensionless(children[0]) {
			return children[0], nil
		}
		return children[0].Reciprocal(), nil
	case KindNegation, KindAbs:
		return children[0], nil
	case KindPow:
		return c.pow(n, children)
	case KindUnaryFunction:
		return c.unaryFunction(n.(FunctionNode), children[0])
	case KindExprIf:
		return c.exprIf(n, children)
	case KindExternalFunction, KindGetItem:
		return c.dimensionlessChildren(n, children)
	case KindLinear:
		return c.linear(n.(LinearNode))
	case KindInvalid:
	}
	return nil, &UnsupportedNodeError{Node: render(n), Kind: kind}
}

func (c *Checker) unitLeaf(n UnitNode) (*Unit, error) {
	u := n.Unit()
	if u.reg == nil {
		return nil, policyError(n, "unit leaf carries a unit that belongs to no registry")
	}
	if u.reg != c.reg {
		return nil, &UnitsError{
			Node:   render(n),
			Reason: fmt.Sprintf("unit %s was created by registry %s, not %s", u, u.reg.ID(), c.reg.ID()),
			Err:    ErrForeignRegistry,
		}
	}
	return u, nil
}

func (c *Checker) isDimensionless(u *Unit) bool {
	return u.Equivalent(c.reg.dimensionless, c.tolerance)
}

func (c *Checker) equivalentChildren(n Node, children []*Unit) (*Unit, error) {
	first := children[0]
	for _, u := range children[1:] {
		if !first.Equivalent(u, c.tolerance) {
			return nil, &InconsistentUnitsError{Node: render(n), Left: first.String(), Right: u.String()}
		}
	}
	return first, nil
}

// product multiplies the dimensioned children left to right, skipping
// dimensionless ones so that coefficients do not pollute the symbol.
func (c *Checker) product(children []*Unit) *Unit {
	var out *Unit
	for _, u := range children {
		if c.isDimensionless(u) {
			continue
		}
		if out == nil {
			out = u
			continue
		}
		out = out.Multiply(u)
	}
	if out == nil {
		return c.reg.dimensionless
	}
	return out
}

func (c *Checker) pow(n Node, children []*Unit) (*Unit, error) {
	base, exponent := children[0], children[1]
	if !c.isDimensionless(exponent) {
		return nil, policyError(n, "exponents in a pow expression must be dimensionless, found %s", exponent)
	}
	if c.isDimensionless(base) {
		return c.reg.dimensionless, nil
	}
	node := n.Args()[1]
	fixed, ok := node.(FixedNode)
	if !ok || !fixed.IsFixed() {
		return nil, policyError(n, "the base of an exponent has units %s, but the exponent is not a fixed numerical value", base)
	}
	v, err := fixed.Value()
	if err != nil {
		return nil, fmt.Errorf("evaluating exponent %s: %w", render(node), err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, policyError(n, "exponent evaluates to %v", v)
	}
	return base.Power(v), nil
}

func (c *Checker) unaryFunction(n FunctionNode, arg *Unit) (*Unit, error) {
	name := n.FunctionName()
	f, ok := ParseFunction(name)
	if !ok {
		return nil, &UnsupportedNodeError{Node: render(n), Kind: KindUnaryFunction, Function: name}
	}
	switch f {
	case FuncLog, FuncLog10, FuncExp:
		if !c.isDimensionless(arg) {
			return nil, policyError(n, "expected dimensionless units, but found %s", arg)
		}
		return c.reg.dimensionless, nil
	case FuncSin, FuncCos, FuncTan, FuncSinh, FuncCosh, FuncTanh:
		radian, err := c.reg.LookupOrCreate("radian")
		if err != nil {
			return nil, err
		}
		if !arg.Equivalent(radian, c.tolerance) {
			return nil, policyError(n, "expected radians in argument to function, but found %s", arg)
		}
		return c.reg.dimensionless, nil
	case FuncAsin, FuncAcos, FuncAtan, FuncAsinh, FuncAcosh, FuncAtanh:
		if !c.isDimensionless(arg) {
			return nil, policyError(n, "expected dimensionless argument to function, but found %s", arg)
		}
		return c.reg.LookupOrCreate("radian")
	case FuncSqrt:
		if c.isDimensionless(arg) {
			return c.reg.dimensionless, nil
		}
		return arg.Power(0.5), nil
	case FuncCeil, FuncFloor:
		return arg, nil
	case FuncUnknown:
	}
	return nil, &UnsupportedNodeError{Node: render(n), Kind: KindUnaryFunction, Function: name}
}

// exprIf requires then and else to agree. The condition was already checked for
// internal consistency when it was walked; its own unit is unconstrained.
func (c *Checker) exprIf(n Node, children []*Unit) (*Unit, error) {
	then, els := children[1], children[2]
	if !then.Equivalent(els, c.tolerance) {
		return nil, &InconsistentUnitsError{Node: render(n), Left: then.String(), Right: els.String()}
	}
	return then, nil
}

// dimensionlessChildren is the conservative rule for opaque calls: without a
// signature, every argument must be dimensionless and so is the result.
func (c *Checker) dimensionlessChildren(n Node, children []*Unit) (*Unit, error) {
	for _, u := range children {
		if !c.isDimensionless(u) {
			return nil, policyError(n, "expected dimensionless units, but found %s", u)
		}
	}
	return c.reg.dimensionless, nil
}

func (c *Checker) linear(n LinearNode) (*Unit, error) {
	coefs, vars := n.Coefficients(), n.Variables()
	if len(coefs) != len(vars) {
		return nil, policyError(n, "linear expression has %d coefficients but %d variables", len(coefs), len(vars))
	}
	terms := make([]*Unit, 0, len(vars)+1)
	if constant := n.Constant(); constant != nil {
		u, err := c.walk(constant)
		if err != nil {
			return nil, err
		}
		// A zero constant takes the units of the terms.
		if !isZero(constant) || len(vars) == 0 {
			terms = append(terms, u)
		}
	}
	for i := range vars {
		cu, err := c.walk(coefs[i])
		if err != nil {
			return nil, err
		}
		vu, err := c.walk(vars[i])
		if err != nil {
			return nil, err
		}
		switch {
		case c.isDimensionless(cu):
			terms = append(terms, vu)
		case c.isDimensionless(vu):
			terms = append(terms, cu)
		default:
			terms = append(terms, cu.Multiply(vu))
		}
	}
	if len(terms) == 0 {
		return nil, policyError(n, "linear expression has no terms")
	}
	return c.equivalentChildren(n, terms)
}

func isZero(n Node) bool {
	f, ok := n.(FixedNode)
	if !ok || !f.IsFixed() {
		return false
	}
	v, err := f.Value()
	return err == nil && v == 0
}
