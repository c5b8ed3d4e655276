package units

import "fmt"

// NodeKind is the semantic tag a host assigns to each expression node.
type NodeKind int

const (
	KindInvalid NodeKind = iota

	// Leaves.
	KindNumber // numeric constant
	KindUnit   // unit literal; the node implements UnitNode
	KindLeaf   // variable, parameter, index template or any other leaf

	// Relational and additive nodes: children must share one unit.
	KindEquality
	KindInequality
	KindRanged
	KindSum

	KindProduct
	KindMonomial // coefficient * variable
	KindReciprocal
	KindNegation
	KindAbs
	KindPow
	KindUnaryFunction // implements FunctionNode
	KindExprIf        // if, then, else
	KindExternalFunction
	KindGetItem
	KindLinear // implements LinearNode; Args is not consulted
)

var nodeKindNames = map[NodeKind]string{
	KindInvalid:          "invalid",
	KindNumber:           "number",
	KindUnit:             "unit",
	KindLeaf:             "leaf",
	KindEquality:         "equality",
	KindInequality:       "inequality",
	KindRanged:           "ranged",
	KindSum:              "sum",
	KindProduct:          "product",
	KindMonomial:         "monomial",
	KindReciprocal:       "reciprocal",
	KindNegation:         "negation",
	KindAbs:              "abs",
	KindPow:              "pow",
	KindUnaryFunction:    "unary-function",
	KindExprIf:           "expr-if",
	KindExternalFunction: "external-function",
	KindGetItem:          "get-item",
	KindLinear:           "linear",
}

func (k NodeKind) String() string {
	if s, ok := nodeKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Node is the read-only view of a host expression node. The engine never mutates a
// node.
type Node interface {
	Kind() NodeKind
	Args() []Node
	String() string
}

// UnitNode is a unit literal leaf.
type UnitNode interface {
	Node
	Unit() *Unit
}

// FunctionNode names the function applied by a unary-function or external node.
type FunctionNode interface {
	Node
	FunctionName() string
}

// LinearNode is constant + Σ coefficient_i * variable_i, exposed through parallel
// sequences instead of Args. Constant returns nil when there is no constant term.
type LinearNode interface {
	Node
	Constant() Node
	Coefficients() []Node
	Variables() []Node
}

// FixedNode reports whether a subexpression currently resolves to a known number.
// Nodes that do not implement it are never fixed.
type FixedNode interface {
	IsFixed() bool
	Value() (float64, error)
}

// Classify returns the node kind after checking that the node has the operand
// count its kind requires and implements the capability interface the kind
// depends on.
func Classify(n Node) (NodeKind, error) {
	if n == nil {
		return KindInvalid, &UnitsError{Node: "<nil>", Reason: "nil expression node"}
	}
	kind := n.Kind()
	nargs := len(n.Args())
	switch kind {
	case KindNumber, KindLeaf:
		return kind, arity(n, kind, nargs, 0, 0)
	case KindUnit:
		un, ok := n.(UnitNode)
		if !ok {
			return kind, capability(n, kind, "UnitNode")
		}
		if un.Unit() == nil {
			return kind, policyError(n, "unit leaf carries no unit")
		}
		return kind, arity(n, kind, nargs, 0, 0)
	case KindEquality, KindInequality, KindRanged, KindSum:
		return kind, arity(n, kind, nargs, 1, -1)
	case KindProduct, KindMonomial:
		return kind, arity(n, kind, nargs, 2, -1)
	case KindReciprocal, KindNegation, KindAbs:
		return kind, arity(n, kind, nargs, 1, 1)
	case KindPow:
		return kind, arity(n, kind, nargs, 2, 2)
	case KindUnaryFunction:
		if _, ok := n.(FunctionNode); !ok {
			return kind, capability(n, kind, "FunctionNode")
		}
		return kind, arity(n, kind, nargs, 1, 1)
	case KindExprIf:
		return kind, arity(n, kind, nargs, 3, 3)
	case KindExternalFunction, KindGetItem:
		return kind, nil
	case KindLinear:
		if _, ok := n.(LinearNode); !ok {
			return kind, capability(n, kind, "LinearNode")
		}
		return kind, nil
	}
	return kind, &UnsupportedNodeError{Node: render(n), Kind: kind}
}

// arity checks lo <= nargs <= hi; hi < 0 means unbounded.
func arity(n Node, kind NodeKind, nargs, lo, hi int) error {
	if nargs >= lo && (hi < 0 || nargs <= hi) {
		return nil
	}
	var want string
	switch {
	case lo == hi:
		want = fmt.Sprintf("exactly %d", lo)
	case hi < 0:
		want = fmt.Sprintf("at least %d", lo)
	default:
		want = fmt.Sprintf("%d to %d", lo, hi)
	}
	return policyError(n, "%s node expects %s operands, got %d", kind, want, nargs)
}

func capability(n Node, kind NodeKind, iface string) error {
	return &UnsupportedNodeError{Node: fmt.Sprintf("%s (%s node does not implement %s)", render(n), kind, iface), Kind: kind}
}
