package filter

import "github.com/Masterminds/squirrel"

// DisjunctionGroup is an ordered list of predicates ORed together.
type DisjunctionGroup struct {
	Predicates []Predicate
}

// ToSql implements squirrel.Sqlizer.
func (g DisjunctionGroup) ToSql() (string, []any, error) {
	or := make(squirrel.Or, 0, len(g.Predicates))
	for _, p := range g.Predicates {
		or = append(or, p)
	}
	return or.ToSql()
}

// CompositeQuery ANDs conjunct predicates with every disjunction group.
type CompositeQuery struct {
	Conjuncts []Predicate
	Groups    []DisjunctionGroup
}

// Compose assembles a query. Empty groups are dropped; no input yields the match-all identity.
func Compose(conjuncts []Predicate, groups []DisjunctionGroup) CompositeQuery {
	q := CompositeQuery{}
	if len(conjuncts) > 0 {
		q.Conjuncts = append([]Predicate(nil), conjuncts...)
	}
	for _, g := range groups {
		if len(g.Predicates) == 0 {
			continue
		}
		q.Groups = append(q.Groups, DisjunctionGroup{Predicates: append([]Predicate(nil), g.Predicates...)})
	}
	return q
}

// MatchAll is the identity query.
func MatchAll() CompositeQuery { return CompositeQuery{} }

// IsMatchAll reports whether the query has no conditions.
func (q CompositeQuery) IsMatchAll() bool {
	return len(q.Conjuncts) == 0 && len(q.Groups) == 0
}

// Predicates returns all predicates, conjuncts first.
func (q CompositeQuery) Predicates() []Predicate {
	out := append([]Predicate(nil), q.Conjuncts...)
	for _, g := range q.Groups {
		out = append(out, g.Predicates...)
	}
	return out
}

// ToSql implements squirrel.Sqlizer. The identity renders as (1=1).
func (q CompositeQuery) ToSql() (string, []any, error) {
	and := make(squirrel.And, 0, len(q.Conjuncts)+len(q.Groups))
	for _, p := range q.Conjuncts {
		and = append(and, p)
	}
	for _, g := range q.Groups {
		and = append(and, g)
	}
	return and.ToSql()
}
