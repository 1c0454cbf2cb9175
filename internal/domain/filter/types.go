// Package filter translates loosely typed filter descriptions into composite queries.
//
// The pipeline is: Schema (allow-list) -> Registry (operator lookup) -> Coerce -> Escape -> Builder -> Compose.
// Every stage is pure; only an Executor touches storage.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OperatorTag names a comparison from the closed operator set.
type OperatorTag string

const (
	ExactText         OperatorTag = "exact_text" // case-insensitive by default
	TextContains      OperatorTag = "text_contains"
	TextStartsWith    OperatorTag = "text_starts_with"
	TextEndsWith      OperatorTag = "text_ends_with"
	ExactNumber       OperatorTag = "exact_number"
	NumberGreaterThan OperatorTag = "number_greater_than"
	NumberLessThan    OperatorTag = "number_less_than"
	ExactDate         OperatorTag = "exact_date"
	DateBefore        OperatorTag = "date_before" // strictly before
	DateAfter         OperatorTag = "date_after"  // strictly after
	InList            OperatorTag = "in_list"     // comma separated
	Range             OperatorTag = "range"       // gte and/or lte
)

// FieldKind is the storage type of a searchable field.
type FieldKind int

const (
	FieldText FieldKind = iota + 1
	FieldNumber
	FieldDate
)

func (k FieldKind) String() string {
	switch k {
	case FieldText:
		return "text"
	case FieldNumber:
		return "number"
	case FieldDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FilterField names an allow-listed record attribute.
type FilterField string

// FieldSpec binds a public field name to its column and kind.
type FieldSpec struct {
	Name   FilterField
	Column string
	Kind   FieldKind
}

// DateLayout is the canonical day/month/year layout.
const DateLayout = "02/01/2006"

// RawValue is untyped filter input: a scalar, a list (in_list) or a gte/lte pair (range).
type RawValue struct {
	Text  string
	List  []string
	Lower *string
	Upper *string
}

// Text wraps a scalar value.
func Text(s string) RawValue { return RawValue{Text: s} }

// List wraps list input.
func List(items ...string) RawValue { return RawValue{List: items} }

// Bounds wraps range input. Empty strings are treated as absent.
func Bounds(gte, lte string) RawValue {
	var v RawValue
	if gte != "" {
		v.Lower = &gte
	}
	if lte != "" {
		v.Upper = &lte
	}
	return v
}

// IsRange reports whether a gte or lte bound is present.
func (v RawValue) IsRange() bool { return v.Lower != nil || v.Upper != nil }

// UnmarshalJSON accepts a string, a number, an array of strings/numbers or a {gte, lte} object.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = RawValue{}
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			s, err := scalarString(item)
			if err != nil {
				return err
			}
			list = append(list, s)
		}
		*v = RawValue{List: list}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		var out RawValue
		for key, raw := range obj {
			s, err := scalarString(raw)
			if err != nil {
				return err
			}
			switch key {
			case "gte":
				out.Lower = &s
			case "lte":
				out.Upper = &s
			default:
				return fmt.Errorf("unknown range key %q", key)
			}
		}
		*v = out
	default:
		s, err := scalarString(data)
		if err != nil {
			return err
		}
		*v = RawValue{Text: s}
	}
	return nil
}

func scalarString(data json.RawMessage) (string, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return "", err
	}
	switch t := x.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return fmt.Sprint(t), nil
	default:
		return "", fmt.Errorf("expected scalar value, got %s", string(data))
	}
}

// ValueKind tags a CoercedValue.
type ValueKind int

const (
	ValueText ValueKind = iota + 1
	ValueNumber
	ValueDate
	ValueList
	ValueRange
)

// CoercedValue is a validated, typed filter value.
type CoercedValue struct {
	Kind   ValueKind
	Text   string
	Safe   SafeText
	Number int64
	Date   time.Time
	List   []any
	Lower  *CoercedValue
	Upper  *CoercedValue
}

// Scalar returns the native Go value for scalar kinds.
func (v CoercedValue) Scalar() any {
	switch v.Kind {
	case ValueNumber:
		return v.Number
	case ValueDate:
		return v.Date
	case ValueList:
		return v.List
	default:
		return v.Text
	}
}

// Item is one filter line: field, operator and raw value.
type Item struct {
	Field    string      `json:"field"`
	Operator OperatorTag `json:"operator"`
	Value    RawValue    `json:"value"`
}

// UnmarshalJSON also accepts field_name and operator_tag keys.
func (i *Item) UnmarshalJSON(data []byte) error {
	var aux struct {
		Field       string      `json:"field"`
		FieldName   string      `json:"field_name"`
		Operator    OperatorTag `json:"operator"`
		OperatorTag OperatorTag `json:"operator_tag"`
		Value       RawValue    `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.Field = aux.Field
	if i.Field == "" {
		i.Field = aux.FieldName
	}
	i.Operator = aux.Operator
	if i.Operator == "" {
		i.Operator = aux.OperatorTag
	}
	i.Value = aux.Value
	return nil
}

// Description is a parsed filter tree: conjunctive items plus OR groups, one level deep.
type Description struct {
	Items  []Item
	Groups [][]Item
}
