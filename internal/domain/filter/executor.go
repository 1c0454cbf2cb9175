package filter

import (
	"context"
	"strings"
)

// Record is one result row keyed by column.
type Record map[string]any

// ExecuteOptions controls projection and paging.
type ExecuteOptions struct {
	// Fields restricts the projection to allow-listed field names. Empty means all.
	Fields  []string
	Limit   int
	Offset  int
	// OrderBy is a field name, optionally prefixed with "-" for descending.
	OrderBy string
}

// Executor runs a composite query against a data store.
type Executor interface {
	Execute(ctx context.Context, q CompositeQuery, opts ExecuteOptions) ([]Record, error)
}

// SortKey resolves an OrderBy value against the schema.
// Empty input returns an empty column.
func SortKey(schema *Schema, orderBy string) (column string, desc bool, err error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return "", false, nil
	}
	if strings.HasPrefix(orderBy, "-") {
		desc = true
		orderBy = orderBy[1:]
	}
	spec, err := schema.Resolve(orderBy)
	if err != nil {
		return "", false, err
	}
	return spec.Column, desc, nil
}
