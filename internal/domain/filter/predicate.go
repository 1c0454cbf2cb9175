package filter

import (
	"fmt"

	"github.com/Masterminds/squirrel"
)

// Comparator is the operator-specific comparison a predicate performs.
type Comparator string

const (
	CompareEqual          Comparator = "eq"
	CompareEqualFold      Comparator = "eq_fold"
	CompareMatch          Comparator = "match"
	CompareGreater        Comparator = "gt"
	CompareLess           Comparator = "lt"
	CompareGreaterOrEqual Comparator = "gte"
	CompareLessOrEqual    Comparator = "lte"
	CompareIn             Comparator = "in"
)

// CaseSensitivity controls text comparators. The zero value is case-insensitive.
type CaseSensitivity int

const (
	CaseInsensitive CaseSensitivity = iota
	CaseSensitive
)

// Anchor positions a match pattern.
type Anchor int

const (
	AnchorNone Anchor = iota
	AnchorStart
	AnchorEnd
)

// Predicate is one atomic condition on a single column.
type Predicate struct {
	Field      FilterField
	Column     string
	Comparator Comparator
	Value      any
	Pattern    SafeText
	Anchor     Anchor
	Case       CaseSensitivity
}

// Regexp returns the anchored pattern for CompareMatch predicates.
func (p Predicate) Regexp() string {
	switch p.Anchor {
	case AnchorStart:
		return "^" + string(p.Pattern)
	case AnchorEnd:
		return string(p.Pattern) + "$"
	default:
		return string(p.Pattern)
	}
}

// ToSql implements squirrel.Sqlizer.
func (p Predicate) ToSql() (string, []any, error) {
	switch p.Comparator {
	case CompareEqual:
		return squirrel.Eq{p.Column: p.Value}.ToSql()
	case CompareEqualFold:
		return squirrel.Expr("LOWER("+p.Column+") = LOWER(?)", p.Value).ToSql()
	case CompareMatch:
		op := "~*"
		if p.Case == CaseSensitive {
			op = "~"
		}
		return squirrel.Expr(p.Column+" "+op+" ?", p.Regexp()).ToSql()
	case CompareGreater:
		return squirrel.Gt{p.Column: p.Value}.ToSql()
	case CompareLess:
		return squirrel.Lt{p.Column: p.Value}.ToSql()
	case CompareGreaterOrEqual:
		return squirrel.GtOrEq{p.Column: p.Value}.ToSql()
	case CompareLessOrEqual:
		return squirrel.LtOrEq{p.Column: p.Value}.ToSql()
	case CompareIn:
		return squirrel.Eq{p.Column: p.Value}.ToSql()
	}
	return "", nil, fmt.Errorf("unknown comparator %q", p.Comparator)
}

// Builder turns coerced values into predicates.
type Builder struct {
	registry *Registry
	cs       CaseSensitivity
}

// NewBuilder creates a builder over the default registry.
func NewBuilder(cs CaseSensitivity) *Builder {
	return &Builder{registry: defaultRegistry, cs: cs}
}

// Build produces one or more predicates for a field. Pattern operators escape their text first.
func (b *Builder) Build(spec FieldSpec, tag OperatorTag, v CoercedValue) ([]Predicate, error) {
	op, err := b.registry.Lookup(tag)
	if err != nil {
		return nil, err
	}
	if !op.Supports(spec.Kind) {
		return nil, newError(UnsupportedOperator, string(spec.Name), tag, "",
			"operator %s does not apply to %s fields", tag, spec.Kind)
	}
	if op.Escapes {
		v.Safe = Escape(v.Text)
	}

	preds := op.build(spec, v, b.cs)
	if len(preds) == 0 {
		return nil, newError(UnsupportedOperator, string(spec.Name), tag, "", "operator %s produced no predicate", tag)
	}
	return preds, nil
}

func predicate(spec FieldSpec, cmp Comparator, value any) Predicate {
	return Predicate{Field: spec.Name, Column: spec.Column, Comparator: cmp, Value: value}
}

func buildExactText(spec FieldSpec, v CoercedValue, cs CaseSensitivity) []Predicate {
	cmp := CompareEqualFold
	if cs == CaseSensitive {
		cmp = CompareEqual
	}
	p := predicate(spec, cmp, v.Text)
	p.Case = cs
	return []Predicate{p}
}

func buildPattern(anchor Anchor) func(FieldSpec, CoercedValue, CaseSensitivity) []Predicate {
	return func(spec FieldSpec, v CoercedValue, cs CaseSensitivity) []Predicate {
		p := predicate(spec, CompareMatch, nil)
		p.Pattern = v.Safe
		p.Anchor = anchor
		p.Case = cs
		p.Value = p.Regexp()
		return []Predicate{p}
	}
}

func buildCompare(cmp Comparator) func(FieldSpec, CoercedValue, CaseSensitivity) []Predicate {
	return func(spec FieldSpec, v CoercedValue, _ CaseSensitivity) []Predicate {
		return []Predicate{predicate(spec, cmp, v.Scalar())}
	}
}

func buildIn(spec FieldSpec, v CoercedValue, _ CaseSensitivity) []Predicate {
	return []Predicate{predicate(spec, CompareIn, v.List)}
}

func buildRange(spec FieldSpec, v CoercedValue, _ CaseSensitivity) []Predicate {
	out := make([]Predicate, 0, 2)
	if v.Lower != nil {
		out = append(out, predicate(spec, CompareGreaterOrEqual, v.Lower.Scalar()))
	}
	if v.Upper != nil {
		out = append(out, predicate(spec, CompareLessOrEqual, v.Upper.Scalar()))
	}
	return out
}
