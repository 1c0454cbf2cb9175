package search

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordhub/internal/core/apperror"
	"recordhub/internal/domain/filter"
	"recordhub/internal/infrastructure/storage/memory"
)

type recordingExecutor struct {
	calls   int
	query   filter.CompositeQuery
	opts    filter.ExecuteOptions
	records []filter.Record
	err     error
}

func (e *recordingExecutor) Execute(_ context.Context, q filter.CompositeQuery, opts filter.ExecuteOptions) ([]filter.Record, error) {
	e.calls++
	e.query = q
	e.opts = opts
	return e.records, e.err
}

type countingObserver struct {
	translations map[string]int
	executions   int
}

func (o *countingObserver) ObserveTranslation(form, kind string) {
	o.translations[form+"/"+kind]++
}

func (o *countingObserver) ObserveExecution(time.Duration, error) {
	o.executions++
}

func testSchema() *filter.Schema {
	return filter.MustSchema(
		filter.FieldSpec{Name: "roll_no", Column: "roll_no", Kind: filter.FieldNumber},
		filter.FieldSpec{Name: "first_name", Column: "first_name", Kind: filter.FieldText},
		filter.FieldSpec{Name: "email", Column: "email", Kind: filter.FieldText},
		filter.FieldSpec{Name: "dob", Column: "dob", Kind: filter.FieldDate},
	)
}

func newTestService(exec filter.Executor, obs Observer) *Service {
	return NewService(filter.NewTranslator(testSchema()), exec, Config{
		NameFields:    []string{"first_name"},
		SuggestFields: []string{"first_name", "email"},
		MaxLimit:      100,
		OrderBy:       "roll_no",
	}, obs)
}

func assertSQL(t *testing.T, q filter.CompositeQuery, wantSQL string, wantArgs ...any) {
	t.Helper()
	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, wantSQL, sql)
	assert.Equal(t, wantArgs, args)
}

func TestService_Structured(t *testing.T) {
	exec := &recordingExecutor{records: []filter.Record{{"roll_no": int64(2)}}}
	obs := &countingObserver{translations: map[string]int{}}
	svc := newTestService(exec, obs)

	values := url.Values{
		"roll_no[gte]": {"2"},
		"limit":        {"1000"},
		"offset":       {"5"},
		"fields":       {"roll_no, email"},
	}
	records, err := svc.Structured(context.Background(), values)
	require.NoError(t, err)
	assert.Equal(t, []filter.Record{{"roll_no": int64(2)}}, records)

	assertSQL(t, exec.query, "(roll_no >= ?)", int64(2))
	assert.Equal(t, filter.ExecuteOptions{
		Fields:  []string{"roll_no", "email"},
		Limit:   100,
		Offset:  5,
		OrderBy: "roll_no",
	}, exec.opts)
	assert.Equal(t, 1, obs.translations["structured/"])
	assert.Equal(t, 1, obs.executions)
}

func TestService_StructuredRejectsBadPaging(t *testing.T) {
	exec := &recordingExecutor{}
	svc := newTestService(exec, nil)

	_, err := svc.Structured(context.Background(), url.Values{"limit": {"-1"}})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Zero(t, exec.calls)
}

func TestService_TranslationFailureSkipsExecutor(t *testing.T) {
	exec := &recordingExecutor{}
	obs := &countingObserver{translations: map[string]int{}}
	svc := newTestService(exec, obs)

	_, err := svc.Triple(context.Background(), filter.Item{
		Field:    "roll_no",
		Operator: filter.NumberGreaterThan,
		Value:    filter.Text("ten"),
	}, Page{})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.HTTPStatus)
	assert.Equal(t, string(filter.InvalidNumber), appErr.Details["kind"])
	assert.Equal(t, "roll_no", appErr.Details["field"])
	assert.Zero(t, exec.calls)
	assert.Equal(t, 1, obs.translations["triple/"+string(filter.InvalidNumber)])
}

func TestService_ExecutionFailure(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("connection reset")}
	svc := newTestService(exec, nil)

	_, err := svc.Triple(context.Background(), filter.Item{
		Field:    "email",
		Operator: filter.ExactText,
		Value:    filter.Text("ann@example.com"),
	}, Page{Limit: 10, OrderBy: "-dob"})
	assert.True(t, apperror.IsCode(err, apperror.CodeExecution))
	assert.Equal(t, 10, exec.opts.Limit)
	assert.Equal(t, "-dob", exec.opts.OrderBy)
}

func TestService_EmptyResultIsEmptySlice(t *testing.T) {
	svc := newTestService(&recordingExecutor{}, nil)
	records, err := svc.Structured(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestService_ByName(t *testing.T) {
	exec := &recordingExecutor{}
	svc := newTestService(exec, nil)

	_, err := svc.ByName(context.Background(), "  ", Page{})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.ByName(context.Background(), "jo+", Page{})
	require.NoError(t, err)
	assertSQL(t, exec.query, "((first_name ~* ?))", `jo\+`)
	assert.Equal(t, 50, exec.opts.Limit)
}

func TestService_Suggest(t *testing.T) {
	exec := &recordingExecutor{}
	svc := newTestService(exec, nil)

	_, err := svc.Suggest(context.Background(), "", 5)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Suggest(context.Background(), "ann", 5)
	require.NoError(t, err)
	assertSQL(t, exec.query, "((first_name ~* ? OR email ~* ?))", "ann", "ann")
	assert.Equal(t, []string{"first_name", "email"}, exec.opts.Fields)
	assert.Equal(t, 5, exec.opts.Limit)
}

func TestService_NegativePaging(t *testing.T) {
	schema := testSchema()
	exec, err := memory.NewExecutor(schema, "roll_no")
	require.NoError(t, err)
	require.NoError(t, exec.LoadJSON(strings.NewReader(`[{"roll_no": 1}, {"roll_no": 2}]`)))
	svc := NewService(filter.NewTranslator(schema), exec, Config{NameFields: []string{"first_name"}, OrderBy: "roll_no"}, nil)

	gt := filter.Item{Field: "roll_no", Operator: filter.NumberGreaterThan, Value: filter.Text("0")}

	tests := []struct {
		name  string
		page  Page
		field string
	}{
		{"negative offset", Page{Offset: -1}, "offset"},
		{"negative limit", Page{Limit: -5}, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, err = svc.Triple(context.Background(), gt, tt.page)
			})
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}

	_, err = svc.ByName(context.Background(), "a", Page{Offset: -1})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
