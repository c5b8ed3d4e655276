package units

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Definitions is a unit definition file: new base dimensions followed by derived
// units, applied in order. Loaded from YAML via LoadDefinitions(path).
type Definitions struct {
	Version    string                `yaml:"version,omitempty"`
	Dimensions []DimensionDefinition `yaml:"dimensions,omitempty"`
	Units      []UnitEntry           `yaml:"units,omitempty"`
}

// UnitEntry is the YAML form of a UnitDefinition. A missing factor means 1 and a
// missing offset means 0.
type UnitEntry struct {
	Name      string   `yaml:"name"`
	Symbol    string   `yaml:"symbol,omitempty"`
	Aliases   []string `yaml:"aliases,omitempty"`
	Reference string   `yaml:"reference"`
	Factor    *float64 `yaml:"factor,omitempty"`
	Offset    *float64 `yaml:"offset,omitempty"`
}

// Definition converts the entry, filling in defaults.
func (e UnitEntry) Definition() UnitDefinition {
	def := UnitDefinition{
		Name:      e.Name,
		Symbol:    e.Symbol,
		Aliases:   e.Aliases,
		Reference: e.Reference,
		Factor:    1,
	}
	if e.Factor != nil {
		def.Factor = *e.Factor
	}
	if e.Offset != nil {
		def.Offset = *e.Offset
	}
	return def
}

// LoadDefinitions reads and parses a YAML unit definition file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading unit definitions: %w", err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseDefinitions parses YAML unit definitions with strict field checking.
// An empty document yields empty Definitions.
func ParseDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing unit definitions: %w", err)
	}
	return &defs, nil
}

// Validate checks names, references and conversion parameters without touching a
// registry. Name collisions with an existing registry are reported by Apply.
func (d *Definitions) Validate() error {
	if d.Version != "" && d.Version != "1" {
		return fmt.Errorf("unsupported definitions version %q; valid: 1", d.Version)
	}
	seen := make(map[string]string)
	claim := func(name, owner string) error {
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%s: name %q already used by %s", owner, name, prev)
		}
		seen[name] = owner
		return nil
	}
	dimSeen := make(map[string]bool)
	for i, dim := range d.Dimensions {
		prefix := fmt.Sprintf("dimensions[%d]", i)
		if !validIdentifier(dim.Name) {
			return fmt.Errorf("%s: invalid dimension name %q", prefix, dim.Name)
		}
		if dimSeen[dim.Name] {
			return fmt.Errorf("%s: dimension %q defined twice", prefix, dim.Name)
		}
		dimSeen[dim.Name] = true
		names, err := unitNames(dim.BaseUnit, dim.Symbol, dim.Aliases)
		if err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
		for _, n := range names {
			if err := claim(n, prefix); err != nil {
				return err
			}
		}
	}
	for i, u := range d.Units {
		prefix := fmt.Sprintf("units[%d]", i)
		def := u.Definition()
		names, err := unitNames(def.Name, def.Symbol, def.Aliases)
		if err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
		if def.Reference == "" {
			return fmt.Errorf("%s: unit %q requires a reference", prefix, def.Name)
		}
		if math.IsNaN(def.Factor) || math.IsInf(def.Factor, 0) || def.Factor <= 0 {
			return fmt.Errorf("%s: factor must be positive and finite, got %v", prefix, def.Factor)
		}
		if math.IsNaN(def.Offset) || math.IsInf(def.Offset, 0) {
			return fmt.Errorf("%s: offset must be finite, got %v", prefix, def.Offset)
		}
		for _, n := range names {
			if err := claim(n, prefix); err != nil {
				return err
			}
		}
	}
	return nil
}

// Apply registers every dimension and then every unit in r, stopping at the first
// failure. Errors keep their taxonomy type (errors.As still reaches
// *DuplicateUnitError or *UndefinedUnitError).
func (d *Definitions) Apply(r *Registry) error {
	for i, dim := range d.Dimensions {
		if err := r.DefineDimension(dim); err != nil {
			return fmt.Errorf("dimensions[%d]: %w", i, err)
		}
	}
	for i, u := range d.Units {
		if err := r.Define(u.Definition()); err != nil {
			return fmt.Errorf("units[%d]: %w", i, err)
		}
	}
	return nil
}

// ComposeDefinitions concatenates definition files in order and validates the
// result, so a name defined by two files is reported here rather than by Apply.
func ComposeDefinitions(defs []*Definitions) (*Definitions, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("at least one definitions file required")
	}
	merged := &Definitions{Version: "1"}
	for i, d := range defs {
		if d.Version != "" && d.Version != "1" {
			return nil, fmt.Errorf("definitions %d: unsupported version %q; valid: 1", i, d.Version)
		}
		merged.Dimensions = append(merged.Dimensions, d.Dimensions...)
		merged.Units = append(merged.Units, d.Units...)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
