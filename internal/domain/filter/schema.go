package filter

import (
	"fmt"
	"strings"
)

// Schema is the immutable allow-list of searchable fields.
type Schema struct {
	fields map[FilterField]FieldSpec
	order  []FilterField
}

// NewSchema builds an allow-list. Names must be unique and non-empty.
func NewSchema(specs ...FieldSpec) (*Schema, error) {
	s := &Schema{fields: make(map[FilterField]FieldSpec, len(specs))}
	for _, spec := range specs {
		if spec.Name == "" || spec.Column == "" {
			return nil, fmt.Errorf("field spec %+v: name and column are required", spec)
		}
		if spec.Kind < FieldText || spec.Kind > FieldDate {
			return nil, fmt.Errorf("field %s: unknown kind %d", spec.Name, spec.Kind)
		}
		if _, dup := s.fields[spec.Name]; dup {
			return nil, fmt.Errorf("field %s declared twice", spec.Name)
		}
		s.fields[spec.Name] = spec
		s.order = append(s.order, spec.Name)
	}
	return s, nil
}

// MustSchema is NewSchema for static declarations.
func MustSchema(specs ...FieldSpec) *Schema {
	s, err := NewSchema(specs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Resolve maps a client-supplied name to its spec.
func (s *Schema) Resolve(name string) (FieldSpec, error) {
	spec, ok := s.fields[FilterField(strings.TrimSpace(name))]
	if !ok {
		return FieldSpec{}, newError(DisallowedField, name, "", "", "field is not searchable")
	}
	return spec, nil
}

// Restrict returns a narrower schema with only the named fields.
// An empty list returns the receiver.
func (s *Schema) Restrict(names []string) (*Schema, error) {
	if len(names) == 0 {
		return s, nil
	}
	specs := make([]FieldSpec, 0, len(names))
	for _, name := range names {
		spec, err := s.Resolve(name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return NewSchema(specs...)
}

// Fields returns specs in declaration order.
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

// Columns returns distinct backing columns in declaration order.
func (s *Schema) Columns() []string {
	seen := make(map[string]struct{}, len(s.order))
	out := make([]string, 0, len(s.order))
	for _, name := range s.order {
		col := s.fields[name].Column
		if _, ok := seen[col]; ok {
			continue
		}
		seen[col] = struct{}{}
		out = append(out, col)
	}
	return out
}

// Projection resolves field names to distinct columns. Empty input means all columns.
func (s *Schema) Projection(names []string) ([]string, error) {
	if len(names) == 0 {
		return s.Columns(), nil
	}
	narrowed, err := s.Restrict(names)
	if err != nil {
		return nil, err
	}
	return narrowed.Columns(), nil
}

// HasColumn reports whether a column backs any allow-listed field.
func (s *Schema) HasColumn(column string) bool {
	for _, spec := range s.fields {
		if spec.Column == column {
			return true
		}
	}
	return false
}
