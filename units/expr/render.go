package expr

import (
	"strings"

	"github.com/inference-sim/dimcheck/units"
)

// Binding strength of each rendered form; a child binding looser than its context
// is parenthesized.
const (
	precRelational = iota + 1
	precSum
	precProduct
	precUnary
	precPow
	precAtom
)

func (o *Operator) String() string {
	var b strings.Builder
	switch o.op {
	case opSum:
		for i, a := range o.args {
			if neg, ok := a.(*Operator); ok && neg.op == opNeg && i > 0 {
				b.WriteString(" - ")
				b.WriteString(wrap(neg.args[0], precProduct))
				continue
			}
			if i > 0 {
				b.WriteString(" + ")
			}
			b.WriteString(wrap(a, precSum))
		}
	case opProduct:
		for i, a := range o.args {
			if rec, ok := a.(*Operator); ok && rec.op == opReciprocal && i > 0 {
				b.WriteString("/")
				b.WriteString(wrap(rec.args[0], precUnary))
				continue
			}
			if i > 0 {
				b.WriteString("*")
			}
			b.WriteString(wrap(a, precProduct))
		}
	case opMonomial:
		b.WriteString(wrap(o.args[0], precProduct) + "*" + wrap(o.args[1], precProduct))
	case opReciprocal:
		b.WriteString("1/" + wrap(o.args[0], precUnary))
	case opNeg:
		b.WriteString("-" + wrap(o.args[0], precProduct))
	case opAbs:
		b.WriteString("abs(" + o.args[0].String() + ")")
	case opPow:
		b.WriteString(wrap(o.args[0], precAtom) + "**" + wrap(o.args[1], precPow))
	case opFunc, opExternal:
		b.WriteString(o.name + "(" + join(o.args, ", ") + ")")
	case opIndex:
		b.WriteString(o.name + "[" + join(o.args, ", ") + "]")
	case opEq:
		b.WriteString(relational(o.args, " == "))
	case opLe, opRanged:
		b.WriteString(relational(o.args, " <= "))
	case opLt:
		b.WriteString(relational(o.args, " < "))
	case opIf:
		b.WriteString("if(" + o.args[0].String() + ", then=" + o.args[1].String() + ", else=" + o.args[2].String() + ")")
	}
	return b.String()
}

func relational(args []units.Node, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = wrap(a, precSum)
	}
	return strings.Join(parts, sep)
}

func join(args []units.Node, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, sep)
}

func wrap(n units.Node, ctx int) string {
	if n == nil {
		return "<nil>"
	}
	if precedence(n) < ctx {
		return "(" + n.String() + ")"
	}
	return n.String()
}

func precedence(n units.Node) int {
	switch n := n.(type) {
	case *Operator:
		switch n.op {
		case opEq, opLe, opLt, opRanged:
			return precRelational
		case opSum:
			return precSum
		case opProduct, opMonomial, opReciprocal:
			return precProduct
		case opNeg:
			return precUnary
		case opPow:
			return precPow
		}
	case *LinearExpr:
		return precSum
	case *Number:
		if n.value < 0 {
			return precUnary
		}
	case *UnitLeaf:
		if strings.ContainsAny(n.String(), "·/^") {
			return precProduct
		}
	}
	return precAtom
}
