package filter

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return MustSchema(
		FieldSpec{Name: "roll_no", Column: "roll_no", Kind: FieldNumber},
		FieldSpec{Name: "first_name", Column: "first_name", Kind: FieldText},
		FieldSpec{Name: "name", Column: "first_name", Kind: FieldText},
		FieldSpec{Name: "email", Column: "email", Kind: FieldText},
		FieldSpec{Name: "dob", Column: "dob", Kind: FieldDate},
	)
}

func selectSQL(t *testing.T, q CompositeQuery) (string, []any) {
	t.Helper()
	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("roll_no").From("students").Where(q)
	sql, args, err := sb.ToSql()
	require.NoError(t, err)
	return sql, args
}

func TestCompose_Identity(t *testing.T) {
	q := Compose(nil, nil)
	assert.True(t, q.IsMatchAll())

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(1=1)", sql)
	assert.Empty(t, args)

	q = Compose([]Predicate{}, []DisjunctionGroup{{}, {}})
	assert.True(t, q.IsMatchAll())
}

func TestTranslate_TripleNumberGreaterThan(t *testing.T) {
	tr := NewTranslator(testSchema())

	q, err := tr.FromTriple(Item{Field: "roll_no", Operator: NumberGreaterThan, Value: Text("100")})
	require.NoError(t, err)
	require.Len(t, q.Conjuncts, 1)
	assert.Empty(t, q.Groups)

	p := q.Conjuncts[0]
	assert.Equal(t, FilterField("roll_no"), p.Field)
	assert.Equal(t, CompareGreater, p.Comparator)
	assert.Equal(t, int64(100), p.Value)

	sql, args := selectSQL(t, q)
	assert.Equal(t, "SELECT roll_no FROM students WHERE (roll_no > $1)", sql)
	assert.Equal(t, []any{int64(100)}, args)
}

func TestTranslate_StructuredOrGroup(t *testing.T) {
	tr := NewTranslator(testSchema())
	values, err := url.ParseQuery("or[0][email][contains]=foo&or[1][dob][gte]=2010-01-01")
	require.NoError(t, err)

	q, err := tr.FromValues(values)
	require.NoError(t, err)
	assert.Empty(t, q.Conjuncts)
	require.Len(t, q.Groups, 1)

	preds := q.Groups[0].Predicates
	require.Len(t, preds, 2)

	assert.Equal(t, FilterField("email"), preds[0].Field)
	assert.Equal(t, CompareMatch, preds[0].Comparator)
	assert.Equal(t, CaseInsensitive, preds[0].Case)
	assert.Equal(t, SafeText("foo"), preds[0].Pattern)

	assert.Equal(t, FilterField("dob"), preds[1].Field)
	assert.Equal(t, CompareGreaterOrEqual, preds[1].Comparator)
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), preds[1].Value)

	sql, args := selectSQL(t, q)
	assert.Equal(t, "SELECT roll_no FROM students WHERE ((email ~* $1 OR dob >= $2))", sql)
	assert.Equal(t, []any{"foo", time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)}, args)
}

func TestTranslate_ContainsIsEscaped(t *testing.T) {
	tr := NewTranslator(testSchema())

	q, err := tr.FromTriple(Item{Field: "name", Operator: TextContains, Value: Text("a.b*c")})
	require.NoError(t, err)
	require.Len(t, q.Conjuncts, 1)

	p := q.Conjuncts[0]
	assert.Equal(t, SafeText(`a\.b\*c`), p.Pattern)
	assert.Equal(t, "first_name", p.Column)

	sql, args := selectSQL(t, q)
	assert.Equal(t, "SELECT roll_no FROM students WHERE (first_name ~* $1)", sql)
	assert.Equal(t, []any{`a\.b\*c`}, args)
}

func TestTranslate_UnsupportedOperatorAborts(t *testing.T) {
	tr := NewTranslator(testSchema())
	exec := &countingExecutor{}

	_, err := translateAndRun(tr, exec, Item{Field: "name", Operator: "fuzzy_match", Value: Text("x")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedOperator))
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, UnsupportedOperator, kind)
	assert.Zero(t, exec.calls)
}

func TestTranslate_DisallowedField(t *testing.T) {
	tr := NewTranslator(testSchema())

	_, err := tr.FromTriple(Item{Field: "password_hash", Operator: ExactText, Value: Text("x")})
	assert.True(t, errors.Is(err, ErrDisallowedField))

	_, err = tr.FromValues(url.Values{"role": {"admin"}})
	assert.True(t, errors.Is(err, ErrDisallowedField))
}

func TestTranslate_Range(t *testing.T) {
	tr := NewTranslator(testSchema())

	q, err := tr.FromValues(url.Values{"roll_no[gte]": {"10"}})
	require.NoError(t, err)
	assert.Len(t, q.Conjuncts, 1)

	q, err = tr.FromValues(url.Values{"roll_no[gte]": {"10"}, "roll_no[lte]": {"20"}})
	require.NoError(t, err)
	require.Len(t, q.Conjuncts, 2)
	assert.Equal(t, CompareGreaterOrEqual, q.Conjuncts[0].Comparator)
	assert.Equal(t, CompareLessOrEqual, q.Conjuncts[1].Comparator)

	sql, args := selectSQL(t, q)
	assert.Equal(t, "SELECT roll_no FROM students WHERE (roll_no >= $1 AND roll_no <= $2)", sql)
	assert.Equal(t, []any{int64(10), int64(20)}, args)

	_, err = tr.FromValues(url.Values{"roll_no[gte]": {""}, "roll_no[lte]": {" "}})
	assert.True(t, errors.Is(err, ErrEmptyRange))
}

func TestTranslate_RangeBoundsNeverDuplicated(t *testing.T) {
	tr := NewTranslator(testSchema())
	d := Description{Items: []Item{
		{Field: "roll_no", Operator: Range, Value: Bounds("1", "")},
		{Field: "roll_no", Operator: Range, Value: Bounds("5", "")},
	}}
	_, err := tr.Translate(d)
	assert.True(t, errors.Is(err, ErrConflictingFilter), "got %v", err)
	assert.False(t, errors.Is(err, ErrUnsupportedOperator))

	// a two-bound range needs an AND, which an OR group cannot hold
	_, err = tr.FromValues(url.Values{"or[0][roll_no][gte]": {"1"}, "or[0][roll_no][lte]": {"9"}})
	assert.True(t, errors.Is(err, ErrUnsupportedOperator))

	q, err := tr.FromValues(url.Values{"or[0][roll_no][gte]": {"1"}, "or[1][roll_no][lte]": {"9"}})
	require.NoError(t, err)
	sql, _ := selectSQL(t, q)
	assert.Equal(t, "SELECT roll_no FROM students WHERE ((roll_no >= $1 OR roll_no <= $2))", sql)
}

func TestTranslate_RangeAndInListOnOneField(t *testing.T) {
	tr := NewTranslator(testSchema())
	q, err := tr.FromValues(url.Values{"roll_no[gte]": {"1"}, "roll_no[in]": {"2,3"}})
	require.NoError(t, err)

	sql, args := selectSQL(t, q)
	assert.Equal(t, "SELECT roll_no FROM students WHERE (roll_no >= $1 AND roll_no IN ($2,$3))", sql)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, args)
}

func TestTranslate_StructuredShapes(t *testing.T) {
	tr := NewTranslator(testSchema())

	tests := []struct {
		name     string
		query    string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "no filters",
			query:    "limit=5&offset=10",
			wantSQL:  "SELECT roll_no FROM students WHERE (1=1)",
			wantArgs: nil,
		},
		{
			name:     "exact by kind",
			query:    "email=A@B.com&roll_no=7",
			wantSQL:  "SELECT roll_no FROM students WHERE (LOWER(email) = LOWER($1) AND roll_no = $2)",
			wantArgs: []any{"A@B.com", int64(7)},
		},
		{
			name:     "starts and ends",
			query:    "email[ends_with]=.com&first_name[starts_with]=jo",
			wantSQL:  "SELECT roll_no FROM students WHERE (email ~* $1 AND first_name ~* $2)",
			wantArgs: []any{`\.com$`, "^jo"},
		},
		{
			name:     "date lt resolves to date_before",
			query:    "dob[lt]=01/01/2000",
			wantSQL:  "SELECT roll_no FROM students WHERE (dob < $1)",
			wantArgs: []any{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:     "full tag accepted",
			query:    "roll_no[number_less_than]=50",
			wantSQL:  "SELECT roll_no FROM students WHERE (roll_no < $1)",
			wantArgs: []any{int64(50)},
		},
		{
			name:     "two independent groups",
			query:    "or[0][email][contains]=x&or[1][first_name][contains]=y&or_b[0][roll_no]=1&or_b[1][roll_no]=2&dob[gt]=2001-02-03",
			wantSQL:  "SELECT roll_no FROM students WHERE (dob > $1 AND (email ~* $2 OR first_name ~* $3) AND (roll_no = $4 OR roll_no = $5))",
			wantArgs: []any{time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC), "x", "y", int64(1), int64(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			q, err := tr.FromValues(values)
			require.NoError(t, err)

			sql, args := selectSQL(t, q)
			assert.Equal(t, tt.wantSQL, sql)
			if len(tt.wantArgs) == 0 {
				assert.Empty(t, args)
				return
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestTranslate_StructuredErrors(t *testing.T) {
	tr := NewTranslator(testSchema())

	tests := []struct {
		query string
		want  error
	}{
		{"roll_no=abc", ErrInvalidNumber},
		{"dob=31/02/2024", ErrInvalidDate},
		{"email[gt]=a", ErrUnsupportedOperator},
		{"email[regex]=a", ErrUnsupportedOperator},
		{"roll_no[in]=,,", ErrEmptyList},
		{"or[0][email][contains][x]=a", ErrUnsupportedOperator},
		{"roll_no[gte=1", ErrDisallowedField},
		{"roll_no[range]=1,5&roll_no[gte]=3", ErrConflictingFilter},
		{"roll_no[lte]=9&roll_no[range]=1,5", ErrConflictingFilter},
		{"roll_no[gt]=1&roll_no[gt]=abc", ErrConflictingFilter},
		{"roll_no[gte]=1&roll_no[gte]=2", ErrConflictingFilter},
		{"roll_no=1&roll_no[eq]=2", ErrConflictingFilter},
		{"email[contains]=a&email[text_contains]=b", ErrConflictingFilter},
		{"or[0][email]=a&or[0][email]=b", ErrConflictingFilter},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			_, err = tr.FromValues(values)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTranslate_FieldAttachedToError(t *testing.T) {
	tr := NewTranslator(testSchema())
	_, err := tr.FromTriple(Item{Field: "roll_no", Operator: ExactNumber, Value: Text("x")})

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "roll_no", fe.Field)
	assert.Equal(t, ExactNumber, fe.Operator)
}

func TestTranslate_Deterministic(t *testing.T) {
	tr := NewTranslator(testSchema())
	values, err := url.ParseQuery("roll_no[lte]=9&email[contains]=a&dob[gte]=01/01/2000&or[1][first_name]=b&or[0][email]=c")
	require.NoError(t, err)

	first, firstArgs := selectSQL(t, mustValues(t, tr, values))
	for i := 0; i < 20; i++ {
		sql, args := selectSQL(t, mustValues(t, tr, values))
		assert.Equal(t, first, sql)
		assert.Equal(t, firstArgs, args)
	}
}

func TestTranslate_CaseSensitive(t *testing.T) {
	tr := NewTranslator(testSchema(), WithCaseSensitivity(CaseSensitive))
	values := url.Values{"email": {"X"}, "first_name[contains]": {"y"}}

	sql, _ := selectSQL(t, mustValues(t, tr, values))
	assert.Equal(t, "SELECT roll_no FROM students WHERE (email = $1 AND first_name ~ $2)", sql)
}

func TestTranslate_AnyContains(t *testing.T) {
	tr := NewTranslator(testSchema())

	q, err := tr.AnyContains("(x)", []FilterField{"first_name", "email"})
	require.NoError(t, err)
	sql, args := selectSQL(t, q)
	assert.Equal(t, "SELECT roll_no FROM students WHERE ((first_name ~* $1 OR email ~* $2))", sql)
	assert.Equal(t, []any{`\(x\)`, `\(x\)`}, args)

	q, err = tr.AnyContains("  ", []FilterField{"email"})
	require.NoError(t, err)
	assert.True(t, q.IsMatchAll())

	_, err = tr.AnyContains("x", []FilterField{"secret"})
	assert.True(t, errors.Is(err, ErrDisallowedField))
}

func TestItem_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		body string
		want Item
	}{
		{
			body: `{"field":"roll_no","operator":"number_greater_than","value":"100"}`,
			want: Item{Field: "roll_no", Operator: NumberGreaterThan, Value: Text("100")},
		},
		{
			body: `{"field_name":"roll_no","operator_tag":"exact_number","value":100}`,
			want: Item{Field: "roll_no", Operator: ExactNumber, Value: Text("100")},
		},
		{
			body: `{"field":"email","operator":"in_list","value":["a","b"]}`,
			want: Item{Field: "email", Operator: InList, Value: List("a", "b")},
		},
		{
			body: `{"field":"roll_no","operator":"range","value":{"gte":1,"lte":"5"}}`,
			want: Item{Field: "roll_no", Operator: Range, Value: Bounds("1", "5")},
		},
	}
	for _, tt := range tests {
		var got Item
		require.NoError(t, json.Unmarshal([]byte(tt.body), &got), tt.body)
		assert.Equal(t, tt.want, got, tt.body)
	}

	var bad Item
	assert.Error(t, json.Unmarshal([]byte(`{"field":"x","value":{"from":1}}`), &bad))
}

func mustValues(t *testing.T, tr *Translator, values url.Values) CompositeQuery {
	t.Helper()
	q, err := tr.FromValues(values)
	require.NoError(t, err)
	return q
}

type countingExecutor struct{ calls int }

func (c *countingExecutor) Execute(context.Context, CompositeQuery, ExecuteOptions) ([]Record, error) {
	c.calls++
	return nil, nil
}

func translateAndRun(tr *Translator, exec Executor, item Item) ([]Record, error) {
	q, err := tr.FromTriple(item)
	if err != nil {
		return nil, err
	}
	return exec.Execute(context.Background(), q, ExecuteOptions{})
}
