// internal/registers/table.go
package registers

import (
	"fmt"
	"math"
	"strings"
)

// Table is an immutable, ordered set of definitions.
// Order is the order ReadAll walks the bus.
type Table struct {
	defs   []Definition
	byName map[string]int
}

// NewTable validates defs and builds a table. Names must be unique.
func NewTable(defs []Definition) (*Table, error) {
	t := &Table{
		defs:   make([]Definition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if err := checkDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("registers: duplicate variable %q", d.Name)
		}
		t.byName[d.Name] = len(t.defs)
		t.defs = append(t.defs, d)
	}
	return t, nil
}

func checkDefinition(d Definition) error {
	if d.Name == "" {
		return fmt.Errorf("registers: definition for id 0x%02x has no name", d.ID)
	}
	switch d.Type {
	case Temperature, FanSpeed, Decimal:
	case Bit:
		if d.Bit > 7 {
			return fmt.Errorf("registers: %q bit position %d out of range", d.Name, d.Bit)
		}
	default:
		return fmt.Errorf("registers: %q has unknown type %d", d.Name, d.Type)
	}
	if d.Divisor < 0 {
		return fmt.Errorf("registers: %q divisor must be >= 0", d.Name)
	}
	return nil
}

// Extend returns a new table with extra appended. A definition whose name
// already exists replaces the existing one in place.
func (t *Table) Extend(extra []Definition) (*Table, error) {
	defs := append([]Definition(nil), t.defs...)
	for _, d := range extra {
		if i, ok := t.byName[d.Name]; ok {
			defs[i] = d
			continue
		}
		defs = append(defs, d)
	}
	return NewTable(defs)
}

func (t *Table) Lookup(name string) (Definition, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Definition{}, false
	}
	return t.defs[i], true
}

// All returns a copy of the definitions in table order.
func (t *Table) All() []Definition {
	return append([]Definition(nil), t.defs...)
}

func (t *Table) Len() int { return len(t.defs) }

var boolTokens = map[string]bool{
	"true": true, "1": true, "on": true,
	"false": false, "0": false, "off": false,
}

// Canonical converts a user-supplied value into the type Decode produces for
// the variable: bool for Bit (from the tokens true/1/on/false/0/off), int
// for everything else.
func (t *Table) Canonical(name string, v any) (any, error) {
	d, ok := t.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	return canonical(d, v)
}

func canonical(d Definition, v any) (any, error) {
	if d.Type == Bit {
		b, ok := boolTokens[strings.ToLower(fmt.Sprint(v))]
		if !ok {
			return nil, fmt.Errorf("%w: %v is not a bool for %q", ErrValueType, v, d.Name)
		}
		return b, nil
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return nil, fmt.Errorf("%w: %d is out of range for %q", ErrValueType, n, d.Name)
		}
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint:
		return fromUnsigned(uint64(n), d)
	case uint32:
		return fromUnsigned(uint64(n), d)
	case uint64:
		return fromUnsigned(n, d)
	}
	return nil, fmt.Errorf("%w: %v (%T) is not an integer for %q", ErrValueType, v, v, d.Name)
}

func fromUnsigned(n uint64, d Definition) (any, error) {
	if n > math.MaxInt {
		return nil, fmt.Errorf("%w: %d is out of range for %q", ErrValueType, n, d.Name)
	}
	return int(n), nil
}

// ValidateWrite runs every check a write must pass before touching the bus
// and returns the definition plus the canonical value.
func (t *Table) ValidateWrite(name string, v any) (Definition, any, error) {
	d, ok := t.Lookup(name)
	if !ok {
		return Definition{}, nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	if d.ID == ForbiddenID {
		return d, nil, fmt.Errorf("%w: %q is register 0x%02x", ErrForbiddenRegister, name, d.ID)
	}
	if !d.Writable {
		return d, nil, fmt.Errorf("%w: %q", ErrReadOnly, name)
	}
	cv, err := canonical(d, v)
	if err != nil {
		return d, nil, err
	}
	return d, cv, nil
}
