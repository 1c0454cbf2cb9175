// Package elastic executes composite queries against an Elasticsearch index.
// Text fields must be mapped as keyword; dates use the yyyy-MM-dd format.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"recordhub/internal/domain/filter"
	"recordhub/pkg/logger"
)

const dateFormat = "2006-01-02"

var _ filter.Executor = (*Executor)(nil)

// Config holds the cluster connection.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// Executor runs composite queries as bool queries.
type Executor struct {
	client      *elasticsearch.Client
	index       string
	schema      *filter.Schema
	defaultSort string
}

// NewClient creates an Elasticsearch client.
func NewClient(cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return client, nil
}

// NewExecutor creates an executor over index. defaultSort is a column used when no order is requested.
func NewExecutor(client *elasticsearch.Client, index string, schema *filter.Schema, defaultSort string) *Executor {
	return &Executor{client: client, index: index, schema: schema, defaultSort: defaultSort}
}

// BuildQuery compiles q into the "query" clause.
func BuildQuery(q filter.CompositeQuery) map[string]any {
	if q.IsMatchAll() {
		return map[string]any{"match_all": map[string]any{}}
	}

	clauses := make([]any, 0, len(q.Conjuncts)+len(q.Groups))
	for _, p := range q.Conjuncts {
		clauses = append(clauses, clause(p))
	}
	for _, g := range q.Groups {
		should := make([]any, 0, len(g.Predicates))
		for _, p := range g.Predicates {
			should = append(should, clause(p))
		}
		clauses = append(clauses, map[string]any{
			"bool": map[string]any{
				"should":               should,
				"minimum_should_match": 1,
			},
		})
	}
	return map[string]any{"bool": map[string]any{"filter": clauses}}
}

// SearchBody builds the full request body with projection, paging and sort.
func (e *Executor) SearchBody(q filter.CompositeQuery, opts filter.ExecuteOptions) (map[string]any, error) {
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

	body := map[string]any{
		"query":   BuildQuery(q),
		"_source": columns,
	}
	if opts.Limit > 0 {
		body["size"] = opts.Limit
	}
	if opts.Offset > 0 {
		body["from"] = opts.Offset
	}
	if sortCol != "" {
		order := "asc"
		if desc {
			order = "desc"
		}
		body["sort"] = []any{map[string]any{sortCol: map[string]any{"order": order}}}
	}
	return body, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Execute runs the search and returns each hit's _source.
func (e *Executor) Execute(ctx context.Context, q filter.CompositeQuery, opts filter.ExecuteOptions) ([]filter.Record, error) {
	body, err := e.SearchBody(q, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, filter.NewExecutionError(fmt.Errorf("encode query: %w", err))
	}

	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, filter.NewExecutionError(fmt.Errorf("search request: %w", err))
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, filter.NewExecutionError(fmt.Errorf("search response: %s", res.String()))
	}

	var parsed searchResponse
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return nil, filter.NewExecutionError(fmt.Errorf("decode response: %w", err))
	}

	out := make([]filter.Record, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		rec := make(filter.Record, len(hit.Source))
		for k, v := range hit.Source {
			rec[k] = normalize(v)
		}
		out = append(out, rec)
	}

	logger.Debug(ctx, "elasticsearch search executed", "index", e.index, "hits", len(out))
	return out, nil
}

func clause(p filter.Predicate) map[string]any {
	switch p.Comparator {
	case filter.CompareEqual:
		return map[string]any{"term": map[string]any{p.Column: map[string]any{"value": value(p.Value)}}}
	case filter.CompareEqualFold:
		return map[string]any{"term": map[string]any{p.Column: map[string]any{
			"value":            value(p.Value),
			"case_insensitive": true,
		}}}
	case filter.CompareMatch:
		return map[string]any{"wildcard": map[string]any{p.Column: map[string]any{
			"value":            wildcard(p),
			"case_insensitive": p.Case != filter.CaseSensitive,
		}}}
	case filter.CompareGreater, filter.CompareLess, filter.CompareGreaterOrEqual, filter.CompareLessOrEqual:
		return map[string]any{"range": map[string]any{p.Column: map[string]any{string(p.Comparator): value(p.Value)}}}
	case filter.CompareIn:
		list, _ := p.Value.([]any)
		terms := make([]any, len(list))
		for i, v := range list {
			terms[i] = value(v)
		}
		return map[string]any{"terms": map[string]any{p.Column: terms}}
	}
	// Unknown comparators match nothing.
	return map[string]any{"bool": map[string]any{"must_not": map[string]any{"match_all": map[string]any{}}}}
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// wildcard renders the literal pattern with anchors expressed as surrounding stars.
func wildcard(p filter.Predicate) string {
	lit := wildcardEscaper.Replace(p.Pattern.Literal())
	switch p.Anchor {
	case filter.AnchorStart:
		return lit + "*"
	case filter.AnchorEnd:
		return "*" + lit
	default:
		return "*" + lit + "*"
	}
}

func value(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(dateFormat)
	}
	return v
}

func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Ping checks that the index exists and the cluster answers.
func (e *Executor) Ping(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{e.index}}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch index %s: %s", e.index, res.Status())
	}
	return nil
}
