// Package expr is a small host expression tree for the units engine: numeric
// constants, unit literals, variables, parameters and the operators an algebraic
// modeling layer builds from them. Every node implements units.Node, and the nodes
// that can be evaluated implement units.FixedNode.
//
// Models can be written in Go with the constructors below or loaded from YAML with
// LoadModel.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/inference-sim/dimcheck/units"
)

// ErrNotFixed is returned by Value on a node whose value is not currently known.
var ErrNotFixed = errors.New("expression is not fixed")

// Number is a numeric constant.
type Number struct {
	value float64
}

// Num returns a numeric constant.
func Num(v float64) *Number { return &Number{value: v} }

func (n *Number) Kind() units.NodeKind    { return units.KindNumber }
func (n *Number) Args() []units.Node      { return nil }
func (n *Number) String() string          { return formatNumber(n.value) }
func (n *Number) IsFixed() bool           { return true }
func (n *Number) Value() (float64, error) { return n.value, nil }

// UnitLeaf is a unit literal. As a number it evaluates to the unit's
// MagnitudeAsConstant.
type UnitLeaf struct {
	unit *units.Unit
}

// U wraps a unit as an expression leaf.
func U(u *units.Unit) *UnitLeaf { return &UnitLeaf{unit: u} }

func (n *UnitLeaf) Kind() units.NodeKind { return units.KindUnit }
func (n *UnitLeaf) Args() []units.Node   { return nil }
func (n *UnitLeaf) Unit() *units.Unit    { return n.unit }
func (n *UnitLeaf) IsFixed() bool        { return n.unit != nil }

func (n *UnitLeaf) String() string {
	if n.unit == nil {
		return "<no unit>"
	}
	return n.unit.String()
}

func (n *UnitLeaf) Value() (float64, error) {
	if n.unit == nil {
		return 0, ErrNotFixed
	}
	return n.unit.MagnitudeAsConstant(), nil
}

// Variable is a decision variable. A fixed variable has a known value.
type Variable struct {
	name  string
	fixed bool
	value float64
}

// Var returns a free variable.
func Var(name string) *Variable { return &Variable{name: name} }

// FixedVar returns a variable fixed at value.
func FixedVar(name string, value float64) *Variable {
	return &Variable{name: name, fixed: true, value: value}
}

// Fix fixes v at value.
func (v *Variable) Fix(value float64) {
	v.fixed = true
	v.value = value
}

// Unfix frees v.
func (v *Variable) Unfix() { v.fixed = false }

func (v *Variable) Name() string         { return v.name }
func (v *Variable) Kind() units.NodeKind { return units.KindLeaf }
func (v *Variable) Args() []units.Node   { return nil }
func (v *Variable) String() string       { return v.name }
func (v *Variable) IsFixed() bool        { return v.fixed }

func (v *Variable) Value() (float64, error) {
	if !v.fixed {
		return 0, fmt.Errorf("variable %s: %w", v.name, ErrNotFixed)
	}
	return v.value, nil
}

// Parameter is a named constant; always fixed.
type Parameter struct {
	name  string
	value float64
}

// Param returns a parameter.
func Param(name string, value float64) *Parameter { return &Parameter{name: name, value: value} }

func (p *Parameter) Name() string            { return p.name }
func (p *Parameter) Kind() units.NodeKind    { return units.KindLeaf }
func (p *Parameter) Args() []units.Node      { return nil }
func (p *Parameter) String() string          { return p.name }
func (p *Parameter) IsFixed() bool           { return true }
func (p *Parameter) Value() (float64, error) { return p.value, nil }

// Template is the placeholder index of an indexed expression template. It has no
// value.
type Template struct {
	name string
}

// IndexTemplate returns an index placeholder.
func IndexTemplate(name string) *Template { return &Template{name: name} }

func (t *Template) Kind() units.NodeKind { return units.KindLeaf }
func (t *Template) Args() []units.Node   { return nil }
func (t *Template) String() string       { return "{" + t.name + "}" }

type op int

const (
	opSum op = iota
	opProduct
	opMonomial
	opReciprocal
	opNeg
	opAbs
	opPow
	opFunc
	opEq
	opLe
	opLt
	opRanged
	opIf
	opExternal
	opIndex
)

var opKinds = map[op]units.NodeKind{
	opSum:        units.KindSum,
	opProduct:    units.KindProduct,
	opMonomial:   units.KindMonomial,
	opReciprocal: units.KindReciprocal,
	opNeg:        units.KindNegation,
	opAbs:        units.KindAbs,
	opPow:        units.KindPow,
	opFunc:       units.KindUnaryFunction,
	opEq:         units.KindEquality,
	opLe:         units.KindInequality,
	opLt:         units.KindInequality,
	opRanged:     units.KindRanged,
	opIf:         units.KindExprIf,
	opExternal:   units.KindExternalFunction,
	opIndex:      units.KindGetItem,
}

// Operator is every interior node except linear expressions.
type Operator struct {
	op   op
	args []units.Node
	name string // function name for func/external, base name for index
}

func newOperator(o op, name string, args ...units.Node) *Operator {
	return &Operator{op: o, args: args, name: name}
}

// Sum returns a + b + ...
func Sum(args ...units.Node) *Operator { return newOperator(opSum, "", args...) }

// Sub returns a - b, a sum with a negated second term.
func Sub(a, b units.Node) *Operator { return Sum(a, Neg(b)) }

// Mul returns a * b * ...
func Mul(args ...units.Node) *Operator { return newOperator(opProduct, "", args...) }

// Monomial returns coef * v.
func Monomial(coef, v units.Node) *Operator { return newOperator(opMonomial, "", coef, v) }

// Div returns a / b, a product with the reciprocal of b.
func Div(a, b units.Node) *Operator { return Mul(a, Reciprocal(b)) }

// Reciprocal returns 1/a.
func Reciprocal(a units.Node) *Operator { return newOperator(opReciprocal, "", a) }

// Neg returns -a.
func Neg(a units.Node) *Operator { return newOperator(opNeg, "", a) }

// Abs returns |a|.
func Abs(a units.Node) *Operator { return newOperator(opAbs, "", a) }

// Pow returns base**exponent.
func Pow(base, exponent units.Node) *Operator { return newOperator(opPow, "", base, exponent) }

// Func applies a named unary function such as "sin" or "log".
func Func(name string, arg units.Node) *Operator { return newOperator(opFunc, name, arg) }

// Eq returns a == b == ...
func Eq(args ...units.Node) *Operator { return newOperator(opEq, "", args...) }

// Le returns a <= b <= ...
func Le(args ...units.Node) *Operator { return newOperator(opLe, "", args...) }

// Lt returns a < b < ...
func Lt(args ...units.Node) *Operator { return newOperator(opLt, "", args...) }

// Ranged returns lo <= body <= hi.
func Ranged(lo, body, hi units.Node) *Operator { return newOperator(opRanged, "", lo, body, hi) }

// If returns cond ? then : els.
func If(cond, then, els units.Node) *Operator { return newOperator(opIf, "", cond, then, els) }

// External calls an opaque external function.
func External(name string, args ...units.Node) *Operator {
	return newOperator(opExternal, name, args...)
}

// Index looks up name[args...] in an indexed component.
func Index(name string, args ...units.Node) *Operator { return newOperator(opIndex, name, args...) }

func (o *Operator) Kind() units.NodeKind { return opKinds[o.op] }
func (o *Operator) Args() []units.Node   { return o.args }
func (o *Operator) FunctionName() string { return o.name }

// IsFixed reports whether every leaf under o is fixed. External calls and indexed
// lookups are opaque and never fixed.
func (o *Operator) IsFixed() bool {
	if o.op == opExternal || o.op == opIndex {
		return false
	}
	for _, a := range o.args {
		if !isFixed(a) {
			return false
		}
	}
	return true
}

// Value evaluates o. Relational nodes evaluate to 1 or 0.
func (o *Operator) Value() (float64, error) {
	if o.op == opExternal || o.op == opIndex {
		return 0, fmt.Errorf("%s: %w", o, ErrNotFixed)
	}
	vals := make([]float64, len(o.args))
	for i, a := range o.args {
		v, err := valueOf(a)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	switch o.op {
	case opSum:
		var s float64
		for _, v := range vals {
			s += v
		}
		return s, nil
	case opProduct, opMonomial:
		p := 1.0
		for _, v := range vals {
			p *= v
		}
		return p, nil
	case opReciprocal:
		if vals[0] == 0 {
			return 0, fmt.Errorf("%s: division by zero", o)
		}
		return 1 / vals[0], nil
	case opNeg:
		return -vals[0], nil
	case opAbs:
		return math.Abs(vals[0]), nil
	case opPow:
		return math.Pow(vals[0], vals[1]), nil
	case opFunc:
		return evalFunction(o.name, vals[0])
	case opEq:
		return chain(vals, func(a, b float64) bool { return a == b }), nil
	case opLe, opRanged:
		return chain(vals, func(a, b float64) bool { return a <= b }), nil
	case opLt:
		return chain(vals, func(a, b float64) bool { return a < b }), nil
	case opIf:
		if vals[0] != 0 {
			return vals[1], nil
		}
		return vals[2], nil
	}
	return 0, fmt.Errorf("%s: cannot evaluate", o)
}

func chain(vals []float64, rel func(a, b float64) bool) float64 {
	for i := 1; i < len(vals); i++ {
		if !rel(vals[i-1], vals[i]) {
			return 0
		}
	}
	return 1
}

func evalFunction(name string, x float64) (float64, error) {
	f, ok := units.ParseFunction(name)
	if !ok {
		return 0, fmt.Errorf("unknown function %q", name)
	}
	switch f {
	case units.FuncLog:
		return math.Log(x), nil
	case units.FuncLog10:
		return math.Log10(x), nil
	case units.FuncExp:
		return math.Exp(x), nil
	case units.FuncSin:
		return math.Sin(x), nil
	case units.FuncCos:
		return math.Cos(x), nil
	case units.FuncTan:
		return math.Tan(x), nil
	case units.FuncSinh:
		return math.Sinh(x), nil
	case units.FuncCosh:
		return math.Cosh(x), nil
	case units.FuncTanh:
		return math.Tanh(x), nil
	case units.FuncAsin:
		return math.Asin(x), nil
	case units.FuncAcos:
		return math.Acos(x), nil
	case units.FuncAtan:
		return math.Atan(x), nil
	case units.FuncAsinh:
		return math.Asinh(x), nil
	case units.FuncAcosh:
		return math.Acosh(x), nil
	case units.FuncAtanh:
		return math.Atanh(x), nil
	case units.FuncSqrt:
		return math.Sqrt(x), nil
	case units.FuncCeil:
		return math.Ceil(x), nil
	case units.FuncFloor:
		return math.Floor(x), nil
	case units.FuncUnknown:
	}
	return 0, fmt.Errorf("unknown function %q", name)
}

// LinearExpr is constant + Σ coefs[i]*vars[i]. Its terms are reached through the
// units.LinearNode accessors, not Args.
type LinearExpr struct {
	constant units.Node
	coefs    []units.Node
	vars     []units.Node
}

// Linear builds a linear expression. constant may be nil.
func Linear(constant units.Node, coefs, vars []units.Node) *LinearExpr {
	return &LinearExpr{constant: constant, coefs: coefs, vars: vars}
}

func (l *LinearExpr) Kind() units.NodeKind       { return units.KindLinear }
func (l *LinearExpr) Args() []units.Node         { return nil }
func (l *LinearExpr) Constant() units.Node       { return l.constant }
func (l *LinearExpr) Coefficients() []units.Node { return l.coefs }
func (l *LinearExpr) Variables() []units.Node    { return l.vars }

func (l *LinearExpr) IsFixed() bool {
	if len(l.coefs) != len(l.vars) {
		return false
	}
	if l.constant != nil && !isFixed(l.constant) {
		return false
	}
	for i := range l.vars {
		if !isFixed(l.coefs[i]) || !isFixed(l.vars[i]) {
			return false
		}
	}
	return true
}

func (l *LinearExpr) Value() (float64, error) {
	if len(l.coefs) != len(l.vars) {
		return 0, fmt.Errorf("%s: %d coefficients for %d variables", l, len(l.coefs), len(l.vars))
	}
	var s float64
	if l.constant != nil {
		v, err := valueOf(l.constant)
		if err != nil {
			return 0, err
		}
		s = v
	}
	for i := range l.vars {
		c, err := valueOf(l.coefs[i])
		if err != nil {
			return 0, err
		}
		x, err := valueOf(l.vars[i])
		if err != nil {
			return 0, err
		}
		s += c * x
	}
	return s, nil
}

func (l *LinearExpr) String() string {
	var parts []string
	if l.constant != nil {
		parts = append(parts, l.constant.String())
	}
	for i := range l.vars {
		term := "?"
		if i < len(l.coefs) {
			term = wrap(l.coefs[i], precProduct) + "*" + wrap(l.vars[i], precProduct)
		}
		parts = append(parts, term)
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " + ")
}

func isFixed(n units.Node) bool {
	f, ok := n.(units.FixedNode)
	return ok && f.IsFixed()
}

func valueOf(n units.Node) (float64, error) {
	f, ok := n.(units.FixedNode)
	if !ok || !f.IsFixed() {
		return 0, fmt.Errorf("%s: %w", n, ErrNotFixed)
	}
	return f.Value()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
