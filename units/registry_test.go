package units

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/dimcheck/internal/testutil"
)

func TestRegistry_LookupOrCreate_IsIdempotent(t *testing.T) {
	r := NewRegistry()
	// Exact names, symbols, aliases, prefixed and plural forms all memoize.
	for _, name := range []string{"meter", "m", "metre", "km", "kilometer", "yards", "kilometers", "mV"} {
		t.Run(name, func(t *testing.T) {
			first, err := r.LookupOrCreate(name)
			require.NoError(t, err)
			second, err := r.LookupOrCreate(name)
			require.NoError(t, err)
			assert.Same(t, first, second)
		})
	}
}

func TestRegistry_LookupOrCreate_Resolution(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name  string
		same  string  // resolves to the same unit as
		scale float64 // or has this scale (when same is empty)
	}{
		{name: "metre", same: "meter"},
		{name: "feet", same: "foot"},
		{name: "yards", same: "yard"},
		{name: "inches", same: "inch"},
		{name: "radians", same: "radian"},
		{name: "km", scale: 1e3},
		{name: "kilometer", scale: 1e3},
		{name: "kilometers", scale: 1e3},
		{name: "mg", scale: 1e-6},
		{name: "milligram", scale: 1e-6},
		{name: "µs", scale: 1e-6},
		{name: "us", scale: 1e-6},
		{name: "dam", scale: 10},
		{name: "dm", scale: 0.1},
		{name: "GHz", scale: 1e9},
		{name: "kWh", scale: 3.6e6},
		{name: "minutes", same: "minute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := r.LookupOrCreate(tt.name)
			require.NoError(t, err)
			if tt.same != "" {
				assert.Same(t, r.MustLookup(tt.same), u)
				return
			}
			assert.InEpsilon(t, tt.scale, u.Scale(), 1e-12)
		})
	}
}

func TestRegistry_LookupOrCreate_Undefined(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"furlong", "kdegC", "ms_", "ss", "kilom"} {
		t.Run(name, func(t *testing.T) {
			// GIVEN a name no rule can resolve
			_, err := r.LookupOrCreate(name)

			// THEN the error is an UndefinedUnitError naming it
			var undefined *UndefinedUnitError
			require.ErrorAs(t, err, &undefined)
			assert.Equal(t, name, undefined.Name)
			assert.ErrorIs(t, err, ErrUndefinedUnit)
			assert.ErrorIs(t, err, ErrUnits)
		})
	}
}

func TestRegistry_SymbolsDoNotTakePlurals(t *testing.T) {
	r := NewRegistry()
	// "ms" is millisecond, never plural "m"
	ms := r.MustLookup("ms")
	assert.InEpsilon(t, 1e-3, ms.Scale(), 1e-12)
	assert.Equal(t, "[time]", ms.Dimensionality())
}

func TestRegistry_NoPrefixOnAffineUnits(t *testing.T) {
	r := NewRegistry()
	_, err := r.LookupOrCreate("kilodegC")
	assert.ErrorIs(t, err, ErrUndefinedUnit)
}

func TestRegistry_DefineUnit_FootballField(t *testing.T) {
	r := NewRegistry()

	// GIVEN football_field = 100 yard
	require.NoError(t, r.DefineUnit("football_field", "yard", 100))

	// WHEN it is looked up
	field, err := r.LookupOrCreate("football_field")
	require.NoError(t, err)

	// THEN it is equivalent to 100·yard built from the algebra
	yard := r.MustLookup("yard")
	assert.True(t, field.Equivalent(yard.ScaledBy(100), DefaultTolerance))
	assert.True(t, field.Equivalent(yard.Power(1).ScaledBy(100), DefaultTolerance))
	assert.False(t, field.Equivalent(yard, DefaultTolerance))

	// AND its plural resolves to the same unit
	assert.Same(t, field, r.MustLookup("football_fields"))
}

func TestRegistry_DefineBaseDimension_CurrencyRoundTrip(t *testing.T) {
	r := NewRegistry()

	// GIVEN a new dimension and a unit scaled from its base
	require.NoError(t, r.DefineBaseDimension("Currency", "dollar"))
	require.NoError(t, r.DefineUnit("cent", "dollar", 0.01))

	dollar, cent := r.MustLookup("dollar"), r.MustLookup("cent")

	// THEN 100 cents are a dollar, and a dollar is orthogonal to everything built in
	assert.True(t, cent.ScaledBy(100).Equivalent(dollar.Power(1), DefaultTolerance))
	assert.True(t, dollar.Divide(cent).Equivalent(r.Dimensionless().ScaledBy(100), DefaultTolerance))
	assert.False(t, dollar.DimensionEqual(r.MustLookup("kg")))
	assert.Equal(t, "[Currency]", dollar.Dimensionality())

	d, err := r.Dimension("Currency")
	require.NoError(t, err)
	assert.Equal(t, "dollar", d.BaseUnit())
}

func TestRegistry_DefineAffineUnit(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.DefineAffineUnit("degRe", "kelvin", 1.25, 273.15))

	u := r.MustLookup("degRe")
	testutil.AssertFloat64Equal(t, "degRe scale", 1.25, u.Scale(), 1e-12)
	testutil.AssertFloat64Equal(t, "degRe offset", 273.15, u.Offset(), 1e-12)

	// degF is built in: 32 °F is 273.15 K
	degF := r.MustLookup("degF")
	testutil.AssertFloat64Equal(t, "32 degF in kelvin", 273.15, 32*degF.Scale()+degF.Offset(), 1e-9)
}

func TestRegistry_Redefinition(t *testing.T) {
	tests := []struct {
		name   string
		define func(r *Registry) error
	}{
		{"unit over unit", func(r *Registry) error { return r.DefineUnit("meter", "foot", 3) }},
		{"unit over symbol", func(r *Registry) error { return r.DefineUnit("m", "foot", 3) }},
		{"unit over alias", func(r *Registry) error { return r.DefineUnit("metre", "foot", 3) }},
		{"base unit over unit", func(r *Registry) error { return r.DefineBaseDimension("distance", "yard") }},
		{"dimension over dimension", func(r *Registry) error { return r.DefineBaseDimension("length", "league") }},
		{"unit over dimensionless", func(r *Registry) error { return r.DefineUnit("dimensionless", "radian", 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := tt.define(r)
			var dup *DuplicateUnitError
			require.ErrorAs(t, err, &dup)
			assert.ErrorIs(t, err, ErrDuplicateUnit)
			assert.ErrorIs(t, err, ErrUnits)
		})
	}
}

func TestRegistry_RedefinitionKeepsOriginalMeaning(t *testing.T) {
	r := NewRegistry()
	before := r.MustLookup("meter")

	_ = r.DefineUnit("meter", "foot", 3)

	assert.Same(t, before, r.MustLookup("meter"))
}

func TestRegistry_DefineRejectsResolvableNames(t *testing.T) {
	tests := []struct {
		name      string
		unit      string
		reference string
		factor    float64
		resolved  bool
	}{
		{"prefixed symbol already looked up", "km", "meter", 500, true},
		{"plural already looked up", "yards", "meter", 2, true},
		{"prefixed name never looked up", "kiloyard", "yard", 1000, false},
		{"plural never looked up", "inches", "meter", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()

			// GIVEN a name the prefix or plural rules already resolve
			var before *Unit
			if tt.resolved {
				before = r.MustLookup(tt.unit)
			}

			// WHEN it is defined with a different meaning
			err := r.DefineUnit(tt.unit, tt.reference, tt.factor)

			// THEN the definition is rejected and lookups keep their meaning
			var dup *DuplicateUnitError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tt.unit, dup.Name)
			after := r.MustLookup(tt.unit)
			if before != nil {
				assert.Same(t, before, after)
			}
			assert.True(t, after.DimensionEqual(r.MustLookup("m")))
		})
	}
}

func TestRegistry_DefineDimensionRejectsResolvableBaseUnit(t *testing.T) {
	r := NewRegistry()
	r.MustLookup("kilosecond")

	err := r.DefineBaseDimension("effort", "kilosecond")

	assert.ErrorIs(t, err, ErrDuplicateUnit)
	_, err = r.Dimension("effort")
	assert.ErrorIs(t, err, ErrUndefinedUnit)
}

func TestRegistry_Define_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		def  UnitDefinition
	}{
		{"zero factor", UnitDefinition{Name: "zap", Reference: "m", Factor: 0}},
		{"negative factor", UnitDefinition{Name: "zap", Reference: "m", Factor: -2}},
		{"NaN factor", UnitDefinition{Name: "zap", Reference: "m", Factor: math.NaN()}},
		{"infinite offset", UnitDefinition{Name: "zap", Reference: "K", Factor: 1, Offset: math.Inf(1)}},
		{"empty reference", UnitDefinition{Name: "zap", Factor: 1}},
		{"bad name", UnitDefinition{Name: "2fast", Reference: "m", Factor: 1}},
		{"bad alias", UnitDefinition{Name: "zap", Aliases: []string{"z p"}, Reference: "m", Factor: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Define(tt.def)
			var ue *UnitsError
			require.ErrorAs(t, err, &ue)
			assert.ErrorIs(t, err, ErrUnits)
		})
	}
}

func TestRegistry_Define_UnknownReference(t *testing.T) {
	r := NewRegistry()
	err := r.DefineUnit("zap", "furlong", 2)
	assert.ErrorIs(t, err, ErrUndefinedUnit)

	_, err = r.LookupOrCreate("zap")
	assert.ErrorIs(t, err, ErrUndefinedUnit, "failed definitions bind nothing")
}

func TestRegistry_Dimension_Undefined(t *testing.T) {
	r := NewRegistry()
	_, err := r.Dimension("charm")
	var undefined *UndefinedUnitError
	require.ErrorAs(t, err, &undefined)
	assert.Equal(t, "dimension", undefined.Kind)
	assert.Contains(t, err.Error(), `undefined dimension "charm"`)
}

func TestRegistry_Dimensions_InRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.DefineBaseDimension("currency", "dollar"))

	var names []string
	for _, d := range r.Dimensions() {
		names = append(names, d.Name())
	}
	want := []string{"length", "mass", "time", "current", "temperature", "substance", "luminosity", "currency"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("Dimensions() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_WithoutBuiltins(t *testing.T) {
	r := NewRegistry(WithoutBuiltins())

	if diff := cmp.Diff([]string{"dimensionless"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	_, err := r.LookupOrCreate("radian")
	assert.ErrorIs(t, err, ErrUndefinedUnit)

	require.NoError(t, r.DefineBaseDimension("length", "meter"))
	assert.Equal(t, "[length]", r.MustLookup("meter").Dimensionality())
}

func TestRegistry_Names_CanonicalOnly(t *testing.T) {
	r := NewRegistry()
	names := r.Names()
	assert.Contains(t, names, "meter")
	assert.Contains(t, names, "degC")
	assert.NotContains(t, names, "m")
	assert.NotContains(t, names, "metre")
	assert.IsIncreasing(t, names)
}

func TestRegistry_MustLookup_PanicsOnUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.MustLookup("furlong") })
}

func TestRegistry_IDsAreDistinct(t *testing.T) {
	assert.NotEqual(t, NewRegistry().ID(), NewRegistry().ID())
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	r := NewRegistry()
	names := []string{"km", "kilometers", "mg", "yards", "GHz", "m", "psi", "µs"}

	var wg sync.WaitGroup
	results := make([][]*Unit, 8)
	for g := range results {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range names {
				u, err := r.LookupOrCreate(name)
				if err != nil {
					t.Errorf("LookupOrCreate(%q): %v", name, err)
					return
				}
				results[g] = append(results[g], u)
			}
		}()
	}
	wg.Wait()

	// Every goroutine sees the identical memoized value for each name.
	for g := 1; g < len(results); g++ {
		for i := range names {
			assert.Same(t, results[0][i], results[g][i], "name %q", names[i])
		}
	}
}

func TestErrors_MessagesNameTheOffender(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&UndefinedUnitError{Name: "furlong"}, `units: undefined unit "furlong"`},
		{&DuplicateUnitError{Name: "meter", Kind: "unit"}, `units: unit "meter" is already defined`},
		{&InconsistentUnitsError{Node: "x + y", Left: "m", Right: "s"}, "units: m not compatible with s in expression: x + y"},
		{&UnitsError{Reason: "bad"}, "units: bad"},
		{&UnsupportedNodeError{Node: "erf(x)", Kind: KindUnaryFunction, Function: "erf"}, `units: unhandled unary function "erf" in expression: erf(x)`},
	}
	for _, tt := range tests {
		assert.EqualError(t, tt.err, tt.want)
		assert.True(t, errors.Is(tt.err, ErrUnits))
	}
}
