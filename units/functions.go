package units

import "sort"

// Function is a unary function with a unit rule.
type Function int

const (
	FuncUnknown Function = iota
	FuncLog
	FuncLog10
	FuncExp
	FuncSin
	FuncCos
	FuncTan
	FuncSinh
	FuncCosh
	FuncTanh
	FuncAsin
	FuncAcos
	FuncAtan
	FuncAsinh
	FuncAcosh
	FuncAtanh
	FuncSqrt
	FuncCeil
	FuncFloor
)

var functionsByName = map[string]Function{
	"log":   FuncLog,
	"log10": FuncLog10,
	"exp":   FuncExp,
	"sin":   FuncSin,
	"cos":   FuncCos,
	"tan":   FuncTan,
	"sinh":  FuncSinh,
	"cosh":  FuncCosh,
	"tanh":  FuncTanh,
	"asin":  FuncAsin,
	"acos":  FuncAcos,
	"atan":  FuncAtan,
	"asinh": FuncAsinh,
	"acosh": FuncAcosh,
	"atanh": FuncAtanh,
	"sqrt":  FuncSqrt,
	"ceil":  FuncCeil,
	"floor": FuncFloor,
}

var functionNames = func() map[Function]string {
	m := make(map[Function]string, len(functionsByName))
	for name, f := range functionsByName {
		m[f] = name
	}
	return m
}()

// ParseFunction maps a function name to its Function. Names are case-sensitive.
func ParseFunction(name string) (Function, bool) {
	f, ok := functionsByName[name]
	return f, ok
}

func (f Function) String() string {
	if s, ok := functionNames[f]; ok {
		return s
	}
	return "unknown"
}

// FunctionNames returns the supported unary function names, sorted.
func FunctionNames() []string {
	names := make([]string, 0, len(functionsByName))
	for name := range functionsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
