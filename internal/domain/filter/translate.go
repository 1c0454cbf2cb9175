package filter

import (
	"errors"
	"net/url"
	"strings"
)

// Translator drives the full pipeline for one schema. Safe for concurrent use.
type Translator struct {
	schema   *Schema
	registry *Registry
	builder  *Builder
}

// Option configures a Translator.
type Option func(*Translator)

// WithCaseSensitivity overrides the default case-insensitive text matching.
func WithCaseSensitivity(cs CaseSensitivity) Option {
	return func(t *Translator) {
		t.builder = &Builder{registry: t.registry, cs: cs}
	}
}

// NewTranslator creates a translator bound to an allow-list.
func NewTranslator(schema *Schema, opts ...Option) *Translator {
	t := &Translator{
		schema:   schema,
		registry: defaultRegistry,
		builder:  NewBuilder(CaseInsensitive),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Schema returns the allow-list the translator resolves fields against.
func (t *Translator) Schema() *Schema { return t.schema }

// Translate compiles a description. The first failure aborts the whole translation.
func (t *Translator) Translate(d Description) (CompositeQuery, error) {
	bounds := make(map[boundKey]struct{})

	conjuncts := make([]Predicate, 0, len(d.Items))
	for _, item := range d.Items {
		preds, err := t.item(item)
		if err != nil {
			return CompositeQuery{}, err
		}
		for _, p := range preds {
			if p.Comparator != CompareGreaterOrEqual && p.Comparator != CompareLessOrEqual {
				continue
			}
			key := boundKey{field: p.Field, cmp: p.Comparator}
			if _, dup := bounds[key]; dup {
				return CompositeQuery{}, newError(ConflictingFilter, string(p.Field), item.Operator, "",
					"range on %s already has a %s bound", p.Field, p.Comparator)
			}
			bounds[key] = struct{}{}
		}
		conjuncts = append(conjuncts, preds...)
	}

	groups := make([]DisjunctionGroup, 0, len(d.Groups))
	for _, items := range d.Groups {
		var g DisjunctionGroup
		for _, item := range items {
			preds, err := t.item(item)
			if err != nil {
				return CompositeQuery{}, err
			}
			// One OR level only: a two-bound range would need an AND inside the group.
			if len(preds) > 1 {
				return CompositeQuery{}, newError(UnsupportedOperator, item.Field, item.Operator, "",
					"range with both bounds is not allowed inside an OR group")
			}
			g.Predicates = append(g.Predicates, preds...)
		}
		groups = append(groups, g)
	}

	return Compose(conjuncts, groups), nil
}

type boundKey struct {
	field FilterField
	cmp   Comparator
}

// FromTriple compiles a single {field, operator, value} filter.
func (t *Translator) FromTriple(item Item) (CompositeQuery, error) {
	return t.Translate(Description{Items: []Item{item}})
}

// FromValues compiles the bracket-key query-string form.
func (t *Translator) FromValues(values url.Values) (CompositeQuery, error) {
	d, err := ParseValues(values, t.schema)
	if err != nil {
		return CompositeQuery{}, err
	}
	return t.Translate(d)
}

// AnyContains builds one OR group of text_contains over the given fields.
// Used by multi-field search and suggestions.
func (t *Translator) AnyContains(text string, fields []FilterField) (CompositeQuery, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return MatchAll(), nil
	}
	group := make([]Item, 0, len(fields))
	for _, f := range fields {
		group = append(group, Item{Field: string(f), Operator: TextContains, Value: Text(text)})
	}
	return t.Translate(Description{Groups: [][]Item{group}})
}

func (t *Translator) item(item Item) ([]Predicate, error) {
	spec, err := t.schema.Resolve(item.Field)
	if err != nil {
		return nil, err
	}
	if _, err := t.registry.Lookup(item.Operator); err != nil {
		return nil, withField(err, item.Field)
	}
	v, err := Coerce(item.Operator, spec.Kind, item.Value)
	if err != nil {
		return nil, withField(err, item.Field)
	}
	preds, err := t.builder.Build(spec, item.Operator, v)
	if err != nil {
		return nil, withField(err, item.Field)
	}
	return preds, nil
}

func withField(err error, field string) error {
	var fe *Error
	if errors.As(err, &fe) && fe.Field == "" {
		cp := *fe
		cp.Field = field
		return &cp
	}
	return err
}
