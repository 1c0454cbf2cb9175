package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"recordhub/internal/domain/filter"
	"recordhub/pkg/logger"
)

// Indexer copies records into the search index.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	schema *filter.Schema
	// IDColumn supplies the document _id.
	IDColumn string
}

// NewIndexer creates an indexer for the schema's columns.
func NewIndexer(client *elasticsearch.Client, index string, schema *filter.Schema, idColumn string) *Indexer {
	return &Indexer{client: client, index: index, schema: schema, IDColumn: idColumn}
}

// Mapping returns the index mapping: text as keyword, numbers as long, dates as yyyy-MM-dd.
func (ix *Indexer) Mapping() map[string]any {
	props := make(map[string]any)
	for _, spec := range ix.schema.Fields() {
		if _, ok := props[spec.Column]; ok {
			continue
		}
		switch spec.Kind {
		case filter.FieldNumber:
			props[spec.Column] = map[string]any{"type": "long"}
		case filter.FieldDate:
			props[spec.Column] = map[string]any{"type": "date", "format": "yyyy-MM-dd"}
		default:
			props[spec.Column] = map[string]any{"type": "keyword"}
		}
	}
	return map[string]any{"mappings": map[string]any{"properties": props}}
}

// EnsureIndex creates the index with Mapping when it does not exist.
func (ix *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{ix.index}}.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	body, err := json.Marshal(ix.Mapping())
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{Index: ix.index, Body: bytes.NewReader(body)}.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", ix.index, res.String())
	}
	logger.Info(ctx, "search index created", "index", ix.index)
	return nil
}

// IndexStats summarizes one bulk run.
type IndexStats struct {
	Indexed uint64
	Failed  uint64
}

// Index bulk-indexes records keyed by IDColumn. Columns outside the schema are dropped.
func (ix *Indexer) Index(ctx context.Context, records []filter.Record) (IndexStats, error) {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     ix.client,
		Index:      ix.index,
		NumWorkers: 2,
		OnError: func(ctx context.Context, err error) {
			logger.Error(ctx, "bulk indexer error", "error", err)
		},
	})
	if err != nil {
		return IndexStats{}, fmt.Errorf("bulk indexer: %w", err)
	}

	for _, rec := range records {
		data, err := json.Marshal(ix.document(rec))
		if err != nil {
			return IndexStats{}, err
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: fmt.Sprint(rec[ix.IDColumn]),
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err == nil {
					err = fmt.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
				}
				logger.Warn(ctx, "document not indexed", "id", item.DocumentID, "error", err)
			},
		})
		if err != nil {
			return IndexStats{}, fmt.Errorf("queue document: %w", err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return IndexStats{}, fmt.Errorf("flush bulk indexer: %w", err)
	}
	st := bi.Stats()
	return IndexStats{Indexed: st.NumIndexed, Failed: st.NumFailed}, nil
}

func (ix *Indexer) document(rec filter.Record) map[string]any {
	doc := make(map[string]any, len(rec))
	for col, v := range rec {
		if !ix.schema.HasColumn(col) {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.Format(dateFormat)
		}
		doc[col] = v
	}
	return doc
}
