package expr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/dimcheck/units"
)

// Model is a set of named expressions over shared variables and parameters,
// optionally extending the registry with its own unit definitions.
// Loaded from YAML via LoadModel(path).
type Model struct {
	Definitions *units.Definitions `yaml:"definitions,omitempty"`
	Vars        map[string]VarSpec `yaml:"vars,omitempty"`
	Params      map[string]float64 `yaml:"params,omitempty"`
	Expressions []ExpressionSpec   `yaml:"expressions"`
}

// VarSpec declares a variable; a fixed variable carries its value.
type VarSpec struct {
	Fixed bool     `yaml:"fixed,omitempty"`
	Value *float64 `yaml:"value,omitempty"`
}

// ExpressionSpec is one named expression tree in YAML form.
type ExpressionSpec struct {
	Name string    `yaml:"name"`
	Expr yaml.Node `yaml:"expr"`
}

// Expression is a compiled, named expression tree.
type Expression struct {
	Name string
	Root units.Node
}

// LoadModel reads and parses a YAML model file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseModel parses a YAML model with strict field checking.
func ParseModel(data []byte) (*Model, error) {
	var m Model
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing model: empty document")
		}
		return nil, fmt.Errorf("parsing model: %w", err)
	}
	return &m, nil
}

// Validate checks the declarations without building any tree.
func (m *Model) Validate() error {
	if len(m.Expressions) == 0 {
		return fmt.Errorf("at least one expression required")
	}
	if m.Definitions != nil {
		if err := m.Definitions.Validate(); err != nil {
			return fmt.Errorf("definitions: %w", err)
		}
	}
	for name, v := range m.Vars {
		if v.Fixed && v.Value == nil {
			return fmt.Errorf("var %q: fixed variables require a value", name)
		}
		if !v.Fixed && v.Value != nil {
			return fmt.Errorf("var %q: value given but fixed is false", name)
		}
		if _, clash := m.Params[name]; clash {
			return fmt.Errorf("%q is declared as both a var and a param", name)
		}
	}
	seen := make(map[string]bool, len(m.Expressions))
	for i, e := range m.Expressions {
		if e.Name == "" {
			return fmt.Errorf("expressions[%d]: name is required", i)
		}
		if seen[e.Name] {
			return fmt.Errorf("expressions[%d]: duplicate name %q", i, e.Name)
		}
		seen[e.Name] = true
		if e.Expr.Kind == 0 {
			return fmt.Errorf("expressions[%d] %q: expr is required", i, e.Name)
		}
	}
	return nil
}

// Compile validates m, applies its definitions to reg, and builds every
// expression. Variables and parameters are shared across expressions.
func (m *Model) Compile(reg *units.Registry) ([]Expression, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Definitions != nil {
		if err := m.Definitions.Apply(reg); err != nil {
			return nil, fmt.Errorf("definitions: %w", err)
		}
	}
	b := &builder{
		reg:       reg,
		vars:      make(map[string]*Variable, len(m.Vars)),
		params:    make(map[string]*Parameter, len(m.Params)),
		templates: make(map[string]*Template),
	}
	for name, v := range m.Vars {
		b.vars[name] = Var(name)
		if v.Fixed {
			b.vars[name].Fix(*v.Value)
		}
	}
	for name, v := range m.Params {
		b.params[name] = Param(name, v)
	}
	out := make([]Expression, 0, len(m.Expressions))
	for _, e := range m.Expressions {
		root, err := b.build(&e.Expr)
		if err != nil {
			return nil, fmt.Errorf("expression %q: %w", e.Name, err)
		}
		out = append(out, Expression{Name: e.Name, Root: root})
	}
	logrus.WithFields(logrus.Fields{"expressions": len(out), "vars": len(b.vars), "params": len(b.params)}).Debug("compiled model")
	return out, nil
}

type builder struct {
	reg       *units.Registry
	vars      map[string]*Variable
	params    map[string]*Parameter
	templates map[string]*Template
}

// arities of the keys whose value is a list of operands; -1 is "one or more".
var listKeys = map[string]int{
	"sum":      -1,
	"mul":      -1,
	"eq":       -1,
	"le":       -1,
	"lt":       -1,
	"sub":      2,
	"monomial": 2,
	"div":      2,
	"pow":      2,
	"ranged":   3,
	"if":       3,
}

var otherKeys = []string{
	"num", "unit", "var", "param", "index_template",
	"reciprocal", "neg", "abs", "func", "external", "index", "linear",
}

func validKeys() string {
	keys := append([]string(nil), otherKeys...)
	for k := range listKeys {
		keys = append(keys, k)
	}
	keys = append(keys, units.FunctionNames()...)
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func (b *builder) build(n *yaml.Node) (units.Node, error) {
	if n.Kind == yaml.ScalarNode {
		v, err := scalarFloat(n)
		if err != nil {
			return nil, err
		}
		return Num(v), nil
	}
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, fmt.Errorf("line %d: expression must be a number or a single-key mapping", n.Line)
	}
	key, val := n.Content[0].Value, n.Content[1]

	if want, ok := listKeys[key]; ok {
		args, err := b.buildList(key, val, want)
		if err != nil {
			return nil, err
		}
		switch key {
		case "sum":
			return Sum(args...), nil
		case "mul":
			return Mul(args...), nil
		case "eq":
			return Eq(args...), nil
		case "le":
			return Le(args...), nil
		case "lt":
			return Lt(args...), nil
		case "sub":
			return Sub(args[0], args[1]), nil
		case "monomial":
			return Monomial(args[0], args[1]), nil
		case "div":
			return Div(args[0], args[1]), nil
		case "pow":
			return Pow(args[0], args[1]), nil
		case "ranged":
			return Ranged(args[0], args[1], args[2]), nil
		case "if":
			return If(args[0], args[1], args[2]), nil
		}
	}

	switch key {
	case "num":
		v, err := scalarFloat(val)
		if err != nil {
			return nil, err
		}
		return Num(v), nil
	case "unit":
		s, err := scalarString(val)
		if err != nil {
			return nil, err
		}
		u, err := b.reg.ParseUnit(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", val.Line, err)
		}
		return U(u), nil
	case "var":
		s, err := scalarString(val)
		if err != nil {
			return nil, err
		}
		v, ok := b.vars[s]
		if !ok {
			return nil, fmt.Errorf("line %d: undeclared var %q", val.Line, s)
		}
		return v, nil
	case "param":
		s, err := scalarString(val)
		if err != nil {
			return nil, err
		}
		p, ok := b.params[s]
		if !ok {
			return nil, fmt.Errorf("line %d: undeclared param %q", val.Line, s)
		}
		return p, nil
	case "index_template":
		s, err := scalarString(val)
		if err != nil {
			return nil, err
		}
		t, ok := b.templates[s]
		if !ok {
			t = IndexTemplate(s)
			b.templates[s] = t
		}
		return t, nil
	case "reciprocal", "neg", "abs":
		arg, err := b.build(val)
		if err != nil {
			return nil, err
		}
		switch key {
		case "reciprocal":
			return Reciprocal(arg), nil
		case "neg":
			return Neg(arg), nil
		}
		return Abs(arg), nil
	case "func":
		f, err := fields(val, "name", "arg")
		if err != nil {
			return nil, err
		}
		name, err := requiredString(val, f, "name")
		if err != nil {
			return nil, err
		}
		argNode, ok := f["arg"]
		if !ok {
			return nil, fmt.Errorf("line %d: func requires arg", val.Line)
		}
		arg, err := b.build(argNode)
		if err != nil {
			return nil, err
		}
		return Func(name, arg), nil
	case "external", "index":
		nameKey := "name"
		if key == "index" {
			nameKey = "base"
		}
		f, err := fields(val, nameKey, "args")
		if err != nil {
			return nil, err
		}
		name, err := requiredString(val, f, nameKey)
		if err != nil {
			return nil, err
		}
		var args []units.Node
		if argsNode, ok := f["args"]; ok {
			if args, err = b.buildList(key, argsNode, 0); err != nil {
				return nil, err
			}
		}
		if key == "index" {
			return Index(name, args...), nil
		}
		return External(name, args...), nil
	case "linear":
		return b.buildLinear(val)
	}

	if _, ok := units.ParseFunction(key); ok {
		arg, err := b.build(val)
		if err != nil {
			return nil, err
		}
		return Func(key, arg), nil
	}
	return nil, fmt.Errorf("line %d: unknown expression key %q; valid: %s", n.Content[0].Line, key, validKeys())
}

// buildList builds the operands of a list key. want > 0 is an exact count, -1
// requires at least one, 0 accepts any number.
func (b *builder) buildList(key string, n *yaml.Node, want int) ([]units.Node, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: %s expects a list", n.Line, key)
	}
	switch {
	case want > 0 && len(n.Content) != want:
		return nil, fmt.Errorf("line %d: %s expects %d operands, got %d", n.Line, key, want, len(n.Content))
	case want < 0 && len(n.Content) == 0:
		return nil, fmt.Errorf("line %d: %s expects at least one operand", n.Line, key)
	}
	args := make([]units.Node, len(n.Content))
	for i, c := range n.Content {
		arg, err := b.build(c)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return args, nil
}

func (b *builder) buildLinear(n *yaml.Node) (units.Node, error) {
	f, err := fields(n, "constant", "coefs", "vars")
	if err != nil {
		return nil, err
	}
	var constant units.Node
	if c, ok := f["constant"]; ok {
		if constant, err = b.build(c); err != nil {
			return nil, err
		}
	}
	var coefs, vars []units.Node
	if c, ok := f["coefs"]; ok {
		if coefs, err = b.buildList("coefs", c, 0); err != nil {
			return nil, err
		}
	}
	if v, ok := f["vars"]; ok {
		if vars, err = b.buildList("vars", v, 0); err != nil {
			return nil, err
		}
	}
	return Linear(constant, coefs, vars), nil
}

// fields reads a mapping node, rejecting keys not in allowed.
func fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping with keys %s", n.Line, strings.Join(allowed, ", "))
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		ok := false
		for _, a := range allowed {
			if k.Value == a {
				ok = true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("line %d: unknown field %q; valid: %s", k.Line, k.Value, strings.Join(allowed, ", "))
		}
		out[k.Value] = n.Content[i+1]
	}
	return out, nil
}

func requiredString(parent *yaml.Node, f map[string]*yaml.Node, key string) (string, error) {
	n, ok := f[key]
	if !ok {
		return "", fmt.Errorf("line %d: %s is required", parent.Line, key)
	}
	return scalarString(n)
}

func scalarString(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode || n.Value == "" {
		return "", fmt.Errorf("line %d: expected a non-empty string", n.Line)
	}
	return n.Value, nil
}

func scalarFloat(n *yaml.Node) (float64, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: expected a number", n.Line)
	}
	v, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: expected a number, got %q", n.Line, n.Value)
	}
	return v, nil
}
