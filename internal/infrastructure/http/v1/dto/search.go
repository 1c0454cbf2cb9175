package dto

import (
	"encoding/json"

	"recordhub/internal/domain/filter"
	"recordhub/internal/domain/search"
)

// TripleRequest is one {field, operator, value} filter with optional paging.
type TripleRequest struct {
	filter.Item
	Limit   int      `json:"limit" binding:"min=0"`
	Offset  int      `json:"offset" binding:"min=0"`
	OrderBy string   `json:"order_by"`
	Fields  []string `json:"fields"`
}

// UnmarshalJSON decodes the filter line and the paging keys separately,
// since the embedded Item has its own decoder.
func (r *TripleRequest) UnmarshalJSON(data []byte) error {
	if err := r.Item.UnmarshalJSON(data); err != nil {
		return err
	}
	var page struct {
		Limit   int      `json:"limit"`
		Offset  int      `json:"offset"`
		OrderBy string   `json:"order_by"`
		Fields  []string `json:"fields"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return err
	}
	r.Limit, r.Offset, r.OrderBy, r.Fields = page.Limit, page.Offset, page.OrderBy, page.Fields
	return nil
}

// Page returns the paging part.
func (r *TripleRequest) Page() search.Page {
	return search.Page{Limit: r.Limit, Offset: r.Offset, OrderBy: r.OrderBy, Fields: r.Fields}
}

// NameSearchRequest matches key_value anywhere in the name fields.
type NameSearchRequest struct {
	KeyValue string `json:"key_value"`
	Limit    int    `json:"limit" binding:"min=0"`
	Offset   int    `json:"offset" binding:"min=0"`
}

// SuggestionRequest binds the suggestion query.
type SuggestionRequest struct {
	Query string `form:"query"`
	Limit int    `form:"limit" binding:"min=0,max=100"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Items []filter.Record `json:"items"`
	Count int             `json:"count"`
}

// NewSearchResponse creates a search response.
func NewSearchResponse(records []filter.Record) SearchResponse {
	if records == nil {
		records = []filter.Record{}
	}
	return SearchResponse{Items: records, Count: len(records)}
}
