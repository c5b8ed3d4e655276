package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

// Unit is one physical unit: a dimension vector plus the affine map to the base
// units of its registry (base = value*scale + offset).
//
// A Unit is immutable. Multiply, Divide, Reciprocal, Power and ScaledBy always return
// a new value and leave their operands untouched. A Unit deliberately has no numeric
// conversion; hosts that evaluate a unit leaf as a number use MagnitudeAsConstant.
type Unit struct {
	reg    *Registry
	dims   dimVector
	scale  float64
	offset float64
	symbol string
}

// Registry returns the registry that created u.
func (u *Unit) Registry() *Registry { return u.reg }

// Scale returns the multiplicative factor of u relative to its base units.
func (u *Unit) Scale() float64 { return u.scale }

// Offset returns the additive offset of u in base units; non-zero only for affine
// units such as degC.
func (u *Unit) Offset() float64 { return u.offset }

// Symbol returns the display symbol. Symbols are never compared.
func (u *Unit) Symbol() string { return u.symbol }

func (u *Unit) String() string { return u.symbol }

// Dimensionality renders the dimension vector, e.g. "[length]·[time]^-2".
func (u *Unit) Dimensionality() string { return u.dims.String() }

// MagnitudeAsConstant is the value a unit takes when a host evaluates it as part of a
// fixed numeric subexpression. It is always 1.
func (u *Unit) MagnitudeAsConstant() float64 { return 1.0 }

// Multiply returns u·b.
func (u *Unit) Multiply(b *Unit) *Unit {
	u.mustShareRegistry(b)
	symbol := u.symbol + "·" + wrapSymbol(b.symbol, "/")
	switch {
	case u == u.reg.dimensionless:
		symbol = b.symbol
	case b == u.reg.dimensionless:
		symbol = u.symbol
	}
	return &Unit{
		reg:    u.reg,
		dims:   u.dims.add(b.dims),
		scale:  u.scale * b.scale,
		symbol: symbol,
	}
}

// Divide returns u/b.
func (u *Unit) Divide(b *Unit) *Unit {
	u.mustShareRegistry(b)
	r := b.Reciprocal()
	symbol := u.symbol + "/" + wrapSymbol(b.symbol, "·/")
	switch {
	case u == u.reg.dimensionless:
		symbol = r.symbol
	case b == u.reg.dimensionless:
		symbol = u.symbol
	}
	return &Unit{
		reg:    u.reg,
		dims:   u.dims.add(r.dims),
		scale:  u.scale * r.scale,
		symbol: symbol,
	}
}

// Reciprocal returns 1/u. The reciprocal of the dimensionless unit is the
// dimensionless unit itself.
func (u *Unit) Reciprocal() *Unit {
	if u == u.reg.dimensionless {
		return u
	}
	return &Unit{
		reg:    u.reg,
		dims:   u.dims.scale(-1),
		scale:  1 / u.scale,
		symbol: "1/" + wrapSymbol(u.symbol, "·/"),
	}
}

// Power returns u raised to a real exponent. Fractional dimensions are legal
// (length^0.5). A zero exponent yields the dimensionless unit.
func (u *Unit) Power(exp float64) *Unit {
	if isZeroExponent(exp) || u == u.reg.dimensionless {
		return u.reg.dimensionless
	}
	return &Unit{
		reg:    u.reg,
		dims:   u.dims.scale(exp),
		scale:  math.Pow(u.scale, exp),
		symbol: wrapSymbol(u.symbol, "·/^") + "^" + formatExponent(exp),
	}
}

// ScaledBy returns a unit with the dimensions of u and f times its scale, the unit
// written "f·u" (100·yard).
func (u *Unit) ScaledBy(f float64) *Unit {
	symbol := strconv.FormatFloat(f, 'g', -1, 64)
	if u != u.reg.dimensionless {
		symbol += "·" + wrapSymbol(u.symbol, "/")
	}
	return &Unit{
		reg:    u.reg,
		dims:   u.dims,
		scale:  u.scale * f,
		symbol: symbol,
	}
}

// DimensionEqual reports whether u and b have the same dimension vector, ignoring
// scale.
func (u *Unit) DimensionEqual(b *Unit) bool {
	u.mustShareRegistry(b)
	return u.dims.equal(b.dims)
}

// IsDimensionless reports whether u is equivalent to its registry's dimensionless
// unit within DefaultTolerance. Scaled dimensionless units (percent) are not.
func (u *Unit) IsDimensionless() bool {
	return u.Equivalent(u.reg.dimensionless, DefaultTolerance)
}

// Equivalent reports whether u and b denote the same unit: identical values, or
// equal dimension vectors with scales (and affine offsets) agreeing within eps.
// Scales are compared as the ratio b/u against 1, so units far from the base
// magnitude (nm^3, Gm^3) keep full relative precision.
func (u *Unit) Equivalent(b *Unit, eps float64) bool {
	if u == b {
		return true
	}
	u.mustShareRegistry(b)
	if !u.dims.equal(b.dims) {
		return false
	}
	if !scalar.EqualWithinAbs(1, b.scale/u.scale, eps) {
		return false
	}
	return scalar.EqualWithinAbsOrRel(u.offset, b.offset, eps, eps)
}

func (u *Unit) mustShareRegistry(b *Unit) {
	if u.reg != b.reg {
		panic(fmt.Sprintf("units: cannot combine %s (registry %s) with %s (registry %s)",
			u.symbol, u.reg.ID(), b.symbol, b.reg.ID()))
	}
}

// wrapSymbol parenthesizes s when it contains any of the given operator runes.
func wrapSymbol(s, ops string) string {
	if strings.ContainsAny(s, ops) {
		return "(" + s + ")"
	}
	return s
}
