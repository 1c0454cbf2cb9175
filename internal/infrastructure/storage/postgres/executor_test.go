package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordhub/internal/domain/filter"
)

func executorSchema() *filter.Schema {
	return filter.MustSchema(
		filter.FieldSpec{Name: "roll_no", Column: "roll_no", Kind: filter.FieldNumber},
		filter.FieldSpec{Name: "first_name", Column: "first_name", Kind: filter.FieldText},
		filter.FieldSpec{Name: "name", Column: "first_name", Kind: filter.FieldText},
		filter.FieldSpec{Name: "email", Column: "email", Kind: filter.FieldText},
	)
}

func TestSelectQuery_MatchAll(t *testing.T) {
	e := NewQueryExecutor(nil, "students", executorSchema(), "roll_no")

	sql, args, err := e.SelectQuery(filter.MatchAll(), filter.ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT roll_no, first_name, email FROM students ORDER BY roll_no", sql)
	assert.Empty(t, args)
}

func TestSelectQuery_FilterPagingProjection(t *testing.T) {
	schema := executorSchema()
	e := NewQueryExecutor(nil, "students", schema, "roll_no")
	q, err := filter.NewTranslator(schema).FromTriple(filter.Item{
		Field: "roll_no", Operator: filter.NumberGreaterThan, Value: filter.Text("100"),
	})
	require.NoError(t, err)

	sql, args, err := e.SelectQuery(q, filter.ExecuteOptions{
		Fields:  []string{"name", "email"},
		Limit:   10,
		Offset:  20,
		OrderBy: "-name",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT first_name, email FROM students WHERE (roll_no > $1) ORDER BY first_name DESC LIMIT 10 OFFSET 20",
		sql)
	assert.Equal(t, []any{int64(100)}, args)
}

func TestSelectQuery_RejectsUnknownFields(t *testing.T) {
	e := NewQueryExecutor(nil, "students", executorSchema(), "")

	_, _, err := e.SelectQuery(filter.MatchAll(), filter.ExecuteOptions{Fields: []string{"password_hash"}})
	assert.ErrorIs(t, err, filter.ErrDisallowedField)

	_, _, err = e.SelectQuery(filter.MatchAll(), filter.ExecuteOptions{OrderBy: "password_hash"})
	assert.ErrorIs(t, err, filter.ErrDisallowedField)
}
