package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordhub/internal/core/apperror"
	"recordhub/internal/config"
	"recordhub/internal/domain/filter"
	"recordhub/internal/domain/student"
	"recordhub/internal/infrastructure/search/elastic"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestTranslate_Postgres(t *testing.T) {
	var out bytes.Buffer
	in := &filterInput{query: "roll_no[gte]=10&fields=roll_no,email&limit=5"}
	require.NoError(t, translate(&out, testConfig(t), config.BackendPostgres, in))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "SELECT roll_no, email FROM students WHERE (roll_no >= $1) ORDER BY roll_no LIMIT 5", lines[0])
	assert.Equal(t, "$1 = 10", lines[1])
}

func TestTranslate_ElasticAndMemory(t *testing.T) {
	in := &filterInput{triple: `{"field": "email", "operator": "text_contains", "value": "example"}`}

	var es bytes.Buffer
	require.NoError(t, translate(&es, testConfig(t), config.BackendElasticsearch, in))
	assert.Contains(t, es.String(), `"wildcard"`)
	assert.Contains(t, es.String(), `*example*`)

	var mem bytes.Buffer
	require.NoError(t, translate(&mem, testConfig(t), config.BackendMemory, in))
	assert.Contains(t, mem.String(), `.matches(p[0])`)
}

func TestTranslate_Errors(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	assert.Error(t, translate(&out, cfg, config.BackendPostgres, &filterInput{triple: "{}", query: "a=b"}))
	assert.Error(t, translate(&out, cfg, config.BackendPostgres, &filterInput{query: "password_hash=x"}))
	assert.Error(t, translate(&out, cfg, "oracle", &filterInput{query: "roll_no=1"}))
}

type fakeCreator struct {
	existing map[string]bool
}

func (f *fakeCreator) Create(_ context.Context, in student.Input) (*student.Student, error) {
	if f.existing[in.Email] {
		return nil, apperror.NewDuplicate("student", "email", in.Email)
	}
	if in.FirstName == "" {
		return nil, apperror.NewValidation("invalid student data")
	}
	f.existing[in.Email] = true
	return &student.Student{Email: in.Email}, nil
}

func TestSeed(t *testing.T) {
	svc := &fakeCreator{existing: map[string]bool{"bob@example.com": true}}

	created, skipped, err := seed(context.Background(), svc, strings.NewReader(`[
		{"first_name": "Ann", "email": "ann@example.com"},
		{"first_name": "Bob", "email": "bob@example.com"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, skipped)

	_, _, err = seed(context.Background(), svc, strings.NewReader(`[{"email": "x@example.com"}]`))
	assert.Error(t, err)

	_, _, err = seed(context.Background(), svc, strings.NewReader(`not json`))
	assert.Error(t, err)
}

type pagedSource struct {
	records []filter.Record
	calls   int
}

func (s *pagedSource) Execute(_ context.Context, _ filter.CompositeQuery, opts filter.ExecuteOptions) ([]filter.Record, error) {
	s.calls++
	if opts.Offset >= len(s.records) {
		return nil, nil
	}
	end := min(opts.Offset+opts.Limit, len(s.records))
	return s.records[opts.Offset:end], nil
}

type countingIndexer struct {
	seen int
}

func (c *countingIndexer) Index(_ context.Context, records []filter.Record) (elastic.IndexStats, error) {
	c.seen += len(records)
	return elastic.IndexStats{Indexed: uint64(len(records))}, nil
}

func TestReindex(t *testing.T) {
	src := &pagedSource{}
	for i := 1; i <= 5; i++ {
		src.records = append(src.records, filter.Record{"roll_no": int64(i)})
	}
	ix := &countingIndexer{}

	var out bytes.Buffer
	require.NoError(t, reindex(context.Background(), &out, src, ix, 2))
	assert.Equal(t, 5, ix.seen)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, "indexed 5, failed 0\n", out.String())

	assert.Error(t, reindex(context.Background(), &out, src, ix, 0))
}
