// Package memory evaluates composite queries over an in-memory record set using CEL.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"recordhub/internal/domain/filter"
)

var _ filter.Executor = (*Executor)(nil)

// Executor holds records and evaluates compiled predicates against each.
type Executor struct {
	schema      *filter.Schema
	defaultSort string
	env         *cel.Env
	prgCache    sync.Map // map[string]cel.Program

	mu      sync.RWMutex
	records []filter.Record
}

// NewExecutor creates an empty store. defaultSort is a column used when no order is requested.
func NewExecutor(schema *filter.Schema, defaultSort string) (*Executor, error) {
	env, err := cel.NewEnv(
		cel.Variable("r", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("p", cel.ListType(cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	return &Executor{schema: schema, defaultSort: defaultSort, env: env}, nil
}

// Add appends records. Nil values are dropped so absent and null compare the same.
func (e *Executor) Add(records ...filter.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range records {
		clean := make(filter.Record, len(rec))
		for k, v := range rec {
			if v != nil {
				clean[k] = v
			}
		}
		e.records = append(e.records, clean)
	}
}

// Len returns the number of stored records.
func (e *Executor) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}

// Ping reports ctx errors only; the store is in-process.
func (e *Executor) Ping(ctx context.Context) error {
	return ctx.Err()
}

// LoadJSON reads a JSON array of objects. Number and date columns are converted by field kind.
func (e *Executor) LoadJSON(r io.Reader) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}

	kinds := make(map[string]filter.FieldKind)
	for _, spec := range e.schema.Fields() {
		kinds[spec.Column] = spec.Kind
	}

	records := make([]filter.Record, 0, len(raw))
	for i, obj := range raw {
		rec := make(filter.Record, len(obj))
		for col, v := range obj {
			conv, err := convert(kinds[col], v)
			if err != nil {
				return fmt.Errorf("record %d column %s: %w", i, col, err)
			}
			rec[col] = conv
		}
		records = append(records, rec)
	}
	e.Add(records...)
	return nil
}

func convert(kind filter.FieldKind, v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	case string:
		if kind == filter.FieldDate {
			if d, ok := filter.ParseDate(x); ok {
				return d, nil
			}
			return nil, fmt.Errorf("invalid date %q", x)
		}
		if kind == filter.FieldNumber {
			return strconv.ParseInt(x, 10, 64)
		}
	}
	return v, nil
}

// Compile renders q as a CEL expression over r with bound parameters p.
func Compile(q filter.CompositeQuery) (string, []any) {
	if q.IsMatchAll() {
		return "true", nil
	}
	var params []any
	bind := func(v any) string {
		params = append(params, v)
		return fmt.Sprintf("p[%d]", len(params)-1)
	}

	parts := make([]string, 0, len(q.Conjuncts)+len(q.Groups))
	for _, p := range q.Conjuncts {
		parts = append(parts, expr(p, bind))
	}
	for _, g := range q.Groups {
		ors := make([]string, 0, len(g.Predicates))
		for _, p := range g.Predicates {
			ors = append(ors, expr(p, bind))
		}
		parts = append(parts, "("+strings.Join(ors, " || ")+")")
	}
	return strings.Join(parts, " && "), params
}

func expr(p filter.Predicate, bind func(any) string) string {
	col := strconv.Quote(p.Column)
	field := "r[" + col + "]"

	var cond string
	switch p.Comparator {
	case filter.CompareEqual:
		cond = field + " == " + bind(p.Value)
	case filter.CompareEqualFold:
		cond = "string(" + field + ").matches(" + bind("(?i)^"+regexp.QuoteMeta(fmt.Sprint(p.Value))+"$") + ")"
	case filter.CompareMatch:
		pattern := p.Regexp()
		if p.Case != filter.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		cond = "string(" + field + ").matches(" + bind(pattern) + ")"
	case filter.CompareGreater:
		cond = field + " > " + bind(p.Value)
	case filter.CompareLess:
		cond = field + " < " + bind(p.Value)
	case filter.CompareGreaterOrEqual:
		cond = field + " >= " + bind(p.Value)
	case filter.CompareLessOrEqual:
		cond = field + " <= " + bind(p.Value)
	case filter.CompareIn:
		cond = field + " in " + bind(p.Value)
	default:
		return "false"
	}
	return "(" + col + " in r && " + cond + ")"
}

func (e *Executor) program(expression string) (cel.Program, error) {
	if cached, ok := e.prgCache.Load(expression); ok {
		return cached.(cel.Program), nil
	}
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program construction error: %w", err)
	}
	e.prgCache.Store(expression, prg)
	return prg, nil
}

// Execute filters, sorts, pages and projects the stored records.
func (e *Executor) Execute(ctx context.Context, q filter.CompositeQuery, opts filter.ExecuteOptions) ([]filter.Record, error) {
	columns, err := e.schema.Projection(opts.Fields)
	if err != nil {
		return nil, err
	}
	sortCol, desc, err := filter.SortKey(e.schema, opts.OrderBy)
	if err != nil {
		return nil, err
	}
	if sortCol == "" {
		sortCol = e.defaultSort
	}

	expression, params := Compile(q)
	prg, err := e.program(expression)
	if err != nil {
		return nil, filter.NewExecutionError(err)
	}
	if params == nil {
		params = []any{}
	}

	e.mu.RLock()
	records := e.records
	e.mu.RUnlock()

	var matched []filter.Record
	for i, rec := range records {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, filter.NewExecutionError(err)
			}
		}
		out, _, err := prg.Eval(map[string]any{"r": map[string]any(rec), "p": params})
		if err != nil {
			return nil, filter.NewExecutionError(fmt.Errorf("eval error: %w", err))
		}
		if ok, _ := out.Value().(bool); ok {
			matched = append(matched, rec)
		}
	}

	if sortCol != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compare(matched[i][sortCol], matched[j][sortCol])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	matched = page(matched, opts.Offset, opts.Limit)
	result := make([]filter.Record, len(matched))
	for i, rec := range matched {
		proj := make(filter.Record, len(columns))
		for _, col := range columns {
			if v, ok := rec[col]; ok {
				proj[col] = v
			}
		}
		result[i] = proj
	}
	return result, nil
}

func page(recs []filter.Record, offset, limit int) []filter.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(recs) {
		return nil
	}
	recs = recs[offset:]
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}

// compare orders values of the same kind; absent values sort first.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			return cmpOrdered(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmpOrdered(x, y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
