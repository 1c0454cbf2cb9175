package filter

import "sort"

type valueClass int

const (
	classText valueClass = iota + 1
	classNumber
	classDate
	classList
	classRange
)

// Operator pairs a tag with its coercion class, applicable field kinds and predicate builder.
type Operator struct {
	Tag     OperatorTag
	Kinds   []FieldKind
	Escapes bool

	class valueClass
	build func(spec FieldSpec, v CoercedValue, cs CaseSensitivity) []Predicate
}

// Supports reports whether the operator applies to fields of kind k.
func (o Operator) Supports(k FieldKind) bool {
	for _, kind := range o.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Registry maps the closed operator set to its implementations. Immutable after construction.
type Registry struct {
	ops map[OperatorTag]Operator
}

var defaultRegistry = newRegistry()

// DefaultRegistry returns the shared registry.
func DefaultRegistry() *Registry { return defaultRegistry }

func newRegistry() *Registry {
	text := []FieldKind{FieldText}
	number := []FieldKind{FieldNumber}
	date := []FieldKind{FieldDate}

	ops := []Operator{
		{Tag: ExactText, Kinds: text, class: classText, build: buildExactText},
		{Tag: TextContains, Kinds: text, class: classText, Escapes: true, build: buildPattern(AnchorNone)},
		{Tag: TextStartsWith, Kinds: text, class: classText, Escapes: true, build: buildPattern(AnchorStart)},
		{Tag: TextEndsWith, Kinds: text, class: classText, Escapes: true, build: buildPattern(AnchorEnd)},
		{Tag: ExactNumber, Kinds: number, class: classNumber, build: buildCompare(CompareEqual)},
		{Tag: NumberGreaterThan, Kinds: number, class: classNumber, build: buildCompare(CompareGreater)},
		{Tag: NumberLessThan, Kinds: number, class: classNumber, build: buildCompare(CompareLess)},
		{Tag: ExactDate, Kinds: date, class: classDate, build: buildCompare(CompareEqual)},
		{Tag: DateBefore, Kinds: date, class: classDate, build: buildCompare(CompareLess)},
		{Tag: DateAfter, Kinds: date, class: classDate, build: buildCompare(CompareGreater)},
		{Tag: InList, Kinds: []FieldKind{FieldText, FieldNumber, FieldDate}, class: classList, build: buildIn},
		{Tag: Range, Kinds: []FieldKind{FieldNumber, FieldDate}, class: classRange, build: buildRange},
	}

	r := &Registry{ops: make(map[OperatorTag]Operator, len(ops))}
	for _, op := range ops {
		r.ops[op.Tag] = op
	}
	return r
}

// Lookup resolves a tag. Unknown tags fail with UnsupportedOperator.
func (r *Registry) Lookup(tag OperatorTag) (Operator, error) {
	op, ok := r.ops[tag]
	if !ok {
		return Operator{}, newError(UnsupportedOperator, "", tag, "", "unknown operator %q", tag)
	}
	return op, nil
}

// Tags lists registered tags in sorted order.
func (r *Registry) Tags() []OperatorTag {
	out := make([]OperatorTag, 0, len(r.ops))
	for tag := range r.ops {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
