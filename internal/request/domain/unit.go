package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// noneSelectedValue is what request forms submit when the unit picker is left
// on its placeholder option.
const noneSelectedValue = "-1"

type UnitKind uint8

const (
	// UnitUnspecified means no unit was submitted at all.
	UnitUnspecified UnitKind = iota
	// UnitNoneSelected means a unit picker was shown and left empty.
	UnitNoneSelected
	UnitNamed
)

// Unit is the packaging unit requested for a line item.
type Unit struct {
	kind UnitKind
	name string
}

func NoUnit() Unit { return Unit{} }

func NoneSelected() Unit { return Unit{kind: UnitNoneSelected} }

func NamedUnit(name string) Unit {
	name = strings.TrimSpace(name)
	if name == "" {
		return Unit{}
	}
	return Unit{kind: UnitNamed, name: name}
}

// ParseUnit maps a submitted form value onto a Unit.
func ParseUnit(raw string) Unit {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return NoUnit()
	case noneSelectedValue:
		return NoneSelected()
	default:
		return NamedUnit(raw)
	}
}

func (u Unit) Kind() UnitKind { return u.kind }

func (u Unit) Name() string { return u.name }

func (u Unit) IsNamed() bool { return u.kind == UnitNamed }

func (u Unit) IsNoneSelected() bool { return u.kind == UnitNoneSelected }

func (u Unit) String() string {
	switch u.kind {
	case UnitNamed:
		return u.name
	case UnitNoneSelected:
		return "(none selected)"
	default:
		return ""
	}
}

// Label renders the unit for a quantity, e.g. "1 flat" or "559 flats".
func (u Unit) Label(quantity int) string {
	if !u.IsNamed() {
		return ""
	}
	if quantity == 1 || strings.HasSuffix(u.name, "s") {
		return u.name
	}
	return u.name + "s"
}

// Value stores named units as text and everything else as NULL.
func (u Unit) Value() (driver.Value, error) {
	if !u.IsNamed() {
		return nil, nil
	}
	return u.name, nil
}

func (u *Unit) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*u = NoUnit()
	case string:
		*u = ParseUnit(v)
	case []byte:
		*u = ParseUnit(string(v))
	default:
		return fmt.Errorf("unsupported unit value %T", src)
	}
	return nil
}

func (u Unit) MarshalJSON() ([]byte, error) {
	if !u.IsNamed() {
		return []byte("null"), nil
	}
	return json.Marshal(u.name)
}

func (u *Unit) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*u = NoUnit()
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = ParseUnit(raw)
	return nil
}
