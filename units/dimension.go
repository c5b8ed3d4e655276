package units

import (
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

// exponentTolerance absorbs round-off in fractional exponents, e.g. (m^(1/3))^3.
const exponentTolerance = 1e-9

// Dimension is an orthogonal physical quantity axis (length, mass, or one defined at
// runtime). Dimensions compare by identity only; two registries may both define a
// "length" and the two never match.
type Dimension struct {
	name     string
	baseUnit string
	ordinal  int
	reg      *Registry
}

// Name returns the dimension name as registered.
func (d *Dimension) Name() string { return d.name }

// BaseUnit returns the name of the unit with scale 1 along this dimension.
func (d *Dimension) BaseUnit() string { return d.baseUnit }

func (d *Dimension) String() string { return "[" + d.name + "]" }

type dimTerm struct {
	dim *Dimension
	exp float64
}

// dimVector is a sorted (by registration ordinal), zero-free list of dimension
// exponents. Values are never modified after construction.
type dimVector []dimTerm

func (v dimVector) add(w dimVector) dimVector {
	out := make(dimVector, 0, len(v)+len(w))
	i, j := 0, 0
	for i < len(v) || j < len(w) {
		switch {
		case j == len(w) || (i < len(v) && v[i].dim.ordinal < w[j].dim.ordinal):
			out = append(out, v[i])
			i++
		case i == len(v) || w[j].dim.ordinal < v[i].dim.ordinal:
			out = append(out, w[j])
			j++
		default:
			if exp := v[i].exp + w[j].exp; !isZeroExponent(exp) {
				out = append(out, dimTerm{dim: v[i].dim, exp: exp})
			}
			i++
			j++
		}
	}
	return out
}

func (v dimVector) scale(k float64) dimVector {
	if isZeroExponent(k) {
		return nil
	}
	out := make(dimVector, 0, len(v))
	for _, t := range v {
		if exp := t.exp * k; !isZeroExponent(exp) {
			out = append(out, dimTerm{dim: t.dim, exp: exp})
		}
	}
	return out
}

func (v dimVector) equal(w dimVector) bool {
	if len(v) != len(w) {
		return false
	}
	for i := range v {
		if v[i].dim != w[i].dim || !scalar.EqualWithinAbs(v[i].exp, w[i].exp, exponentTolerance) {
			return false
		}
	}
	return true
}

func (v dimVector) String() string {
	if len(v) == 0 {
		return "dimensionless"
	}
	parts := make([]string, len(v))
	for i, t := range v {
		parts[i] = t.dim.String()
		if exp := formatExponent(t.exp); exp != "1" {
			parts[i] += "^" + exp
		}
	}
	return strings.Join(parts, "·")
}

func isZeroExponent(exp float64) bool {
	return scalar.EqualWithinAbs(exp, 0, exponentTolerance)
}

func formatExponent(exp float64) string {
	if r := scalar.Round(exp, 9); scalar.EqualWithinAbs(exp, r, exponentTolerance) {
		exp = r
	}
	return strconv.FormatFloat(exp, 'g', -1, 64)
}
