package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"recordhub/internal/domain/filter"
	"recordhub/pkg/logger"
)

var _ filter.Executor = (*QueryExecutor)(nil)

// QueryExecutor runs composite queries against one table.
type QueryExecutor struct {
	txm           *TxManager
	table         string
	schema        *filter.Schema
	defaultSortBy string
}

// NewQueryExecutor creates an executor over table. defaultSortBy is a column used when no order is requested.
func NewQueryExecutor(txm *TxManager, table string, schema *filter.Schema, defaultSortBy string) *QueryExecutor {
	return &QueryExecutor{txm: txm, table: table, schema: schema, defaultSortBy: defaultSortBy}
}

// SelectQuery renders the SELECT statement without running it.
func (e *QueryExecutor) SelectQuery(q filter.CompositeQuery, opts filter.ExecuteOptions) (string, []any, error) {
	columns, err := e.schema.Projection(opts.Fields)
	if err != nil {
		return "", nil, err
	}
	sortCol, desc, err := filter.SortKey(e.schema, opts.OrderBy)
	if err != nil {
		return "", nil, err
	}
	if sortCol == "" {
		sortCol = e.defaultSortBy
	}

	builder := sq.Select(columns...).
		From(e.table).
		PlaceholderFormat(sq.Dollar)
	if !q.IsMatchAll() {
		builder = builder.Where(q)
	}
	if sortCol != "" {
		if desc {
			builder = builder.OrderBy(sortCol + " DESC")
		} else {
			builder = builder.OrderBy(sortCol)
		}
	}
	if opts.Limit > 0 {
		builder = builder.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		builder = builder.Offset(uint64(opts.Offset))
	}
	return builder.ToSql()
}

// Execute runs q in a read-only transaction and returns rows keyed by column.
func (e *QueryExecutor) Execute(ctx context.Context, q filter.CompositeQuery, opts filter.ExecuteOptions) ([]filter.Record, error) {
	sql, args, err := e.SelectQuery(q, opts)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "search.execute",
		trace.WithAttributes(
			attribute.String("db.table", e.table),
			attribute.Int("search.predicates", len(q.Predicates())),
		))
	defer span.End()

	start := time.Now()
	var rows []map[string]any
	err = e.txm.ReadOnly(ctx, func(ctx context.Context) error {
		return pgxscan.Select(ctx, e.txm.GetQuerier(ctx), &rows, sql, args...)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, filter.NewExecutionError(err)
	}

	logger.Debug(ctx, "search executed", "table", e.table, "rows", len(rows), "duration", time.Since(start))

	out := make([]filter.Record, len(rows))
	for i, r := range rows {
		out[i] = filter.Record(r)
	}
	return out, nil
}

// Ping checks the database behind the executor.
func (e *QueryExecutor) Ping(ctx context.Context) error {
	return e.txm.Ping(ctx)
}
