package units

import (
	_ "embed"
	"sync"
)

//go:embed builtin_units.yaml
var builtinUnitsYAML []byte

// builtinDefinitions parses the embedded table once; every registry applies it.
var builtinDefinitions = sync.OnceValues(func() (*Definitions, error) {
	defs, err := ParseDefinitions(builtinUnitsYAML)
	if err != nil {
		return nil, err
	}
	return defs, defs.Validate()
})

type siPrefix struct {
	name    string
	symbols []string
	factor  float64
}

// siPrefixes is ordered so that two-letter symbols (da) are tried before their
// one-letter heads (d).
var siPrefixes = []siPrefix{
	{name: "yotta", symbols: []string{"Y"}, factor: 1e24},
	{name: "zetta", symbols: []string{"Z"}, factor: 1e21},
	{name: "exa", symbols: []string{"E"}, factor: 1e18},
	{name: "peta", symbols: []string{"P"}, factor: 1e15},
	{name: "tera", symbols: []string{"T"}, factor: 1e12},
	{name: "giga", symbols: []string{"G"}, factor: 1e9},
	{name: "mega", symbols: []string{"M"}, factor: 1e6},
	{name: "kilo", symbols: []string{"k"}, factor: 1e3},
	{name: "hecto", symbols: []string{"h"}, factor: 1e2},
	{name: "deca", symbols: []string{"da"}, factor: 1e1},
	{name: "deci", symbols: []string{"d"}, factor: 1e-1},
	{name: "centi", symbols: []string{"c"}, factor: 1e-2},
	{name: "milli", symbols: []string{"m"}, factor: 1e-3},
	{name: "micro", symbols: []string{"µ", "u"}, factor: 1e-6},
	{name: "nano", symbols: []string{"n"}, factor: 1e-9},
	{name: "pico", symbols: []string{"p"}, factor: 1e-12},
	{name: "femto", symbols: []string{"f"}, factor: 1e-15},
	{name: "atto", symbols: []string{"a"}, factor: 1e-18},
	{name: "zepto", symbols: []string{"z"}, factor: 1e-21},
	{name: "yocto", symbols: []string{"y"}, factor: 1e-24},
}
