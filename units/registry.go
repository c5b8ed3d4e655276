package units

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Registry owns a set of base dimensions and named units. It is scoped to one model
// or checking session; there is no process-wide default.
//
// Registration (DefineBaseDimension, DefineUnit, DefineAffineUnit, Define) is the only
// mutator. Names, once bound, keep their meaning for the registry's lifetime.
// Lookups are memoized and safe for concurrent readers; concurrent registrations
// must be serialized by the caller.
type Registry struct {
	id uuid.UUID

	mu         sync.RWMutex
	dimensions map[string]*Dimension
	dimOrder   []*Dimension
	defs       map[string]*Unit // canonical names, symbols and aliases
	canonical  []string
	symbols    map[string]bool  // entries of defs that are symbols (km, not kilometer)
	resolved   map[string]*Unit // memoized prefix / plural resolutions
	loading    bool             // applying the built-in table

	dimensionless *Unit
}

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	builtins bool
}

// WithoutBuiltins creates a registry holding only the dimensionless unit.
func WithoutBuiltins() RegistryOption {
	return func(o *registryOptions) { o.builtins = false }
}

// NewRegistry creates a registry preloaded with the built-in SI base dimensions,
// their common derived units, and radian/degree/dimensionless.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{builtins: true}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Registry{
		id:         uuid.New(),
		dimensions: make(map[string]*Dimension),
		defs:       make(map[string]*Unit),
		symbols:    make(map[string]bool),
		resolved:   make(map[string]*Unit),
	}
	r.dimensionless = &Unit{reg: r, scale: 1, symbol: "dimensionless"}
	r.defs["dimensionless"] = r.dimensionless
	r.canonical = append(r.canonical, "dimensionless")

	if o.builtins {
		defs, err := builtinDefinitions()
		if err != nil {
			panic(fmt.Sprintf("units: invalid built-in definitions: %v", err))
		}
		r.loading = true
		if err := defs.Apply(r); err != nil {
			panic(fmt.Sprintf("units: applying built-in definitions: %v", err))
		}
		r.loading = false
	}
	return r
}

// ID identifies the registry in diagnostics.
func (r *Registry) ID() uuid.UUID { return r.id }

// Dimensionless returns the registry's dimensionless unit: empty dimension vector,
// scale 1.
func (r *Registry) Dimensionless() *Unit { return r.dimensionless }

// LookupOrCreate resolves a unit name, symbol or alias. Names not bound directly are
// tried as an SI prefix plus a known unit (full prefix with full name, symbol prefix
// with symbol: kilometer, km) and then as a plural (yards). Resolutions are
// memoized, so repeated lookups return the identical *Unit.
func (r *Registry) LookupOrCreate(name string) (*Unit, error) {
	r.mu.RLock()
	u, ok := r.defs[name]
	if !ok {
		u, ok = r.resolved[name]
	}
	r.mu.RUnlock()
	if ok {
		return u, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.resolved[name]; ok {
		return u, nil
	}
	u = r.resolveLocked(name)
	if u == nil {
		return nil, &UndefinedUnitError{Name: name, Kind: "unit"}
	}
	if r.defs[name] != u {
		r.resolved[name] = u
	}
	return u, nil
}

// Lookup is LookupOrCreate.
func (r *Registry) Lookup(name string) (*Unit, error) {
	return r.LookupOrCreate(name)
}

// MustLookup is like LookupOrCreate but panics if the name is unknown. It is meant
// for built-in names known to exist.
func (r *Registry) MustLookup(name string) *Unit {
	u, err := r.LookupOrCreate(name)
	if err != nil {
		panic(err)
	}
	return u
}

// Dimension returns the dimension registered under name.
func (r *Registry) Dimension(name string) (*Dimension, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dimensions[name]
	if !ok {
		return nil, &UndefinedUnitError{Name: name, Kind: "dimension"}
	}
	return d, nil
}

// Dimensions returns the registered dimensions in registration order.
func (r *Registry) Dimensions() []*Dimension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Dimension(nil), r.dimOrder...)
}

// Names returns the sorted canonical unit names (symbols and aliases excluded).
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := append([]string(nil), r.canonical...)
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// DimensionDefinition describes a new base dimension and its base unit.
type DimensionDefinition struct {
	Name     string   `yaml:"name"`
	BaseUnit string   `yaml:"base_unit"`
	Symbol   string   `yaml:"symbol,omitempty"`
	Aliases  []string `yaml:"aliases,omitempty"`
}

// UnitDefinition describes a derived unit: reference = value*Factor + Offset.
// Reference may be any unit expression accepted by ParseUnit.
type UnitDefinition struct {
	Name      string
	Symbol    string
	Aliases   []string
	Reference string
	Factor    float64
	Offset    float64
}

// DefineBaseDimension introduces a new orthogonal dimension whose base unit has
// scale 1.
func (r *Registry) DefineBaseDimension(dimensionName, baseUnitName string) error {
	return r.DefineDimension(DimensionDefinition{Name: dimensionName, BaseUnit: baseUnitName})
}

// DefineDimension is DefineBaseDimension with a symbol and aliases for the base unit.
func (r *Registry) DefineDimension(def DimensionDefinition) error {
	if !validIdentifier(def.Name) {
		return &UnitsError{Reason: fmt.Sprintf("invalid dimension name %q", def.Name)}
	}
	names, err := unitNames(def.BaseUnit, def.Symbol, def.Aliases)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dimensions[def.Name]; ok {
		return &DuplicateUnitError{Name: def.Name, Kind: "dimension"}
	}
	if err := r.checkUnboundLocked(names); err != nil {
		return err
	}
	d := &Dimension{name: def.Name, baseUnit: def.BaseUnit, ordinal: len(r.dimOrder), reg: r}
	r.dimensions[def.Name] = d
	r.dimOrder = append(r.dimOrder, d)
	u := &Unit{reg: r, dims: dimVector{{dim: d, exp: 1}}, scale: 1, symbol: def.BaseUnit}
	r.bindLocked(u, def.Symbol, names)

	logrus.WithFields(logrus.Fields{"dimension": def.Name, "unit": def.BaseUnit}).Debug("defined base dimension")
	return nil
}

// DefineUnit introduces name such that reference = value*factor.
func (r *Registry) DefineUnit(name, reference string, factor float64) error {
	return r.Define(UnitDefinition{Name: name, Reference: reference, Factor: factor})
}

// DefineAffineUnit introduces name such that reference = value*factor + offset. The
// offset is expressed in the reference unit and applied after the factor.
func (r *Registry) DefineAffineUnit(name, reference string, factor, offset float64) error {
	return r.Define(UnitDefinition{Name: name, Reference: reference, Factor: factor, Offset: offset})
}

// Define registers a derived unit together with its symbol and aliases.
func (r *Registry) Define(def UnitDefinition) error {
	names, err := unitNames(def.Name, def.Symbol, def.Aliases)
	if err != nil {
		return err
	}
	if math.IsNaN(def.Factor) || math.IsInf(def.Factor, 0) || def.Factor <= 0 {
		return &UnitsError{Reason: fmt.Sprintf("unit %q: factor must be positive and finite, got %v", def.Name, def.Factor)}
	}
	if math.IsNaN(def.Offset) || math.IsInf(def.Offset, 0) {
		return &UnitsError{Reason: fmt.Sprintf("unit %q: offset must be finite, got %v", def.Name, def.Offset)}
	}
	if strings.TrimSpace(def.Reference) == "" {
		return &UnitsError{Reason: fmt.Sprintf("unit %q: reference unit is required", def.Name)}
	}

	// Resolve the reference before taking the write lock; lookups lock internally.
	ref, err := r.ParseUnit(def.Reference)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUnboundLocked(names); err != nil {
		return err
	}
	u := &Unit{
		reg:    r,
		dims:   ref.dims,
		scale:  ref.scale * def.Factor,
		offset: ref.scale*def.Offset + ref.offset,
		symbol: def.Name,
	}
	r.bindLocked(u, def.Symbol, names)

	logrus.WithFields(logrus.Fields{
		"unit":      def.Name,
		"reference": def.Reference,
		"factor":    def.Factor,
		"offset":    def.Offset,
	}).Debug("defined unit")
	return nil
}

// checkUnboundLocked rejects names that already mean something: exact bindings,
// memoized resolutions, and names the prefix or plural rules would resolve. The
// built-in table only checks exact bindings, since some built-in symbols (cd, min)
// also read as a prefixed unit.
func (r *Registry) checkUnboundLocked(names []string) error {
	for _, n := range names {
		if _, ok := r.defs[n]; ok {
			return &DuplicateUnitError{Name: n, Kind: "unit"}
		}
		if r.loading {
			continue
		}
		if _, ok := r.resolved[n]; ok || r.resolveLocked(n) != nil {
			return &DuplicateUnitError{Name: n, Kind: "unit"}
		}
	}
	return nil
}

// bindLocked binds u under names; names[0] is the canonical name.
func (r *Registry) bindLocked(u *Unit, symbol string, names []string) {
	for _, n := range names {
		r.defs[n] = u
		delete(r.resolved, n)
	}
	if symbol != "" {
		r.symbols[symbol] = true
	}
	r.canonical = append(r.canonical, names[0])
}

func (r *Registry) resolveLocked(name string) *Unit {
	if u, ok := r.defs[name]; ok {
		return u
	}
	if u := r.resolvePrefixedLocked(name, true); u != nil {
		return u
	}
	// Plurals only apply to full names (yards, kilometers), never to symbols.
	for _, suffix := range []string{"s", "es"} {
		singular, ok := strings.CutSuffix(name, suffix)
		if !ok || len(singular) < 3 {
			continue
		}
		if u, ok := r.defs[singular]; ok && !r.symbols[singular] {
			return u
		}
		if u := r.resolvePrefixedLocked(singular, false); u != nil {
			return u
		}
	}
	return nil
}

func (r *Registry) resolvePrefixedLocked(name string, symbolPrefixes bool) *Unit {
	for _, p := range siPrefixes {
		if rest, ok := strings.CutPrefix(name, p.name); ok && rest != "" {
			if u, ok := r.defs[rest]; ok && !r.symbols[rest] && u.offset == 0 {
				return r.prefixed(u, p, name)
			}
		}
		if !symbolPrefixes {
			continue
		}
		for _, sym := range p.symbols {
			if rest, ok := strings.CutPrefix(name, sym); ok && rest != "" {
				if u, ok := r.defs[rest]; ok && r.symbols[rest] && u.offset == 0 {
					return r.prefixed(u, p, name)
				}
			}
		}
	}
	return nil
}

func (r *Registry) prefixed(u *Unit, p siPrefix, name string) *Unit {
	return &Unit{reg: r, dims: u.dims, scale: u.scale * p.factor, symbol: name}
}

// unitNames validates and collects the names a unit is bound under, canonical first.
func unitNames(name, symbol string, aliases []string) ([]string, error) {
	names := []string{name}
	if symbol != "" && symbol != name {
		names = append(names, symbol)
	}
	for _, a := range aliases {
		if a != name && a != symbol {
			names = append(names, a)
		}
	}
	for _, n := range names {
		if !validIdentifier(n) {
			return nil, &UnitsError{Reason: fmt.Sprintf("invalid unit name %q", n)}
		}
	}
	return names, nil
}

// validIdentifier accepts names usable inside unit expressions: a letter or
// underscore followed by letters, digits or underscores.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case unicode.IsLetter(c) || c == '_':
		case i > 0 && unicode.IsDigit(c):
		default:
			return false
		}
	}
	return true
}
