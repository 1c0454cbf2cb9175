// Package search runs filter descriptions against the configured executor.
package search

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"recordhub/internal/core/apperror"
	"recordhub/internal/domain/filter"
	"recordhub/pkg/logger"
)

// Config selects fields for the name, suggestion and paging flows.
type Config struct {
	NameFields    []string
	SuggestFields []string
	DefaultLimit  int
	MaxLimit      int
	OrderBy       string
}

// Observer receives translation and execution outcomes. Used for metrics.
type Observer interface {
	ObserveTranslation(form string, kind string)
	ObserveExecution(d time.Duration, err error)
}

// Page controls projection and paging of a search.
type Page struct {
	Limit   int
	Offset  int
	OrderBy string
	Fields  []string
}

func (p Page) validate() error {
	if p.Limit < 0 {
		return apperror.NewValidation("invalid limit").WithDetail("field", "limit")
	}
	if p.Offset < 0 {
		return apperror.NewValidation("invalid offset").WithDetail("field", "offset")
	}
	return nil
}

// Service translates and executes searches.
type Service struct {
	translator *filter.Translator
	executor   filter.Executor
	config     Config
	observer   Observer
}

// NewService creates a search service. observer may be nil.
func NewService(translator *filter.Translator, executor filter.Executor, config Config, observer Observer) *Service {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 50
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 500
	}
	return &Service{translator: translator, executor: executor, config: config, observer: observer}
}

// Structured runs the bracket-key form. Reserved keys control paging and projection.
func (s *Service) Structured(ctx context.Context, values url.Values) ([]filter.Record, error) {
	page, err := PageFromValues(values)
	if err != nil {
		return nil, err
	}
	q, err := s.translator.FromValues(values)
	if err != nil {
		return nil, s.translationFailed(ctx, "structured", err)
	}
	s.observeTranslation("structured", "")
	return s.run(ctx, q, page)
}

// Triple runs a single {field, operator, value} filter.
func (s *Service) Triple(ctx context.Context, item filter.Item, page Page) ([]filter.Record, error) {
	q, err := s.translator.FromTriple(item)
	if err != nil {
		return nil, s.translationFailed(ctx, "triple", err)
	}
	s.observeTranslation("triple", "")
	return s.run(ctx, q, page)
}

// ByName matches text anywhere in the name fields.
func (s *Service) ByName(ctx context.Context, text string, page Page) ([]filter.Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.NewValidation("key_value is required").WithDetail("field", "key_value")
	}
	return s.anyContains(ctx, "name", text, s.config.NameFields, page)
}

// Suggest matches text in the suggestion fields and projects only those fields.
func (s *Service) Suggest(ctx context.Context, text string, limit int) ([]filter.Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.NewValidation("query is required").WithDetail("field", "query")
	}
	page := Page{Limit: limit, Fields: s.config.SuggestFields}
	return s.anyContains(ctx, "suggestion", text, s.config.SuggestFields, page)
}

func (s *Service) anyContains(ctx context.Context, form, text string, fields []string, page Page) ([]filter.Record, error) {
	names := make([]filter.FilterField, 0, len(fields))
	for _, f := range fields {
		names = append(names, filter.FilterField(f))
	}
	q, err := s.translator.AnyContains(text, names)
	if err != nil {
		return nil, s.translationFailed(ctx, form, err)
	}
	s.observeTranslation(form, "")
	return s.run(ctx, q, page)
}

func (s *Service) run(ctx context.Context, q filter.CompositeQuery, page Page) ([]filter.Record, error) {
	if err := page.validate(); err != nil {
		return nil, err
	}
	opts := filter.ExecuteOptions{
		Fields:  page.Fields,
		Limit:   s.limit(page.Limit),
		Offset:  page.Offset,
		OrderBy: page.OrderBy,
	}
	if opts.OrderBy == "" {
		opts.OrderBy = s.config.OrderBy
	}

	start := time.Now()
	records, err := s.executor.Execute(ctx, q, opts)
	if s.observer != nil {
		s.observer.ObserveExecution(time.Since(start), err)
	}
	if err != nil {
		if kind, ok := filter.KindOf(err); ok && kind != filter.ExecutionFailed {
			return nil, toAppError(err)
		}
		logger.Error(ctx, "search execution failed", "error", err)
		return nil, apperror.NewExecution(err)
	}
	if records == nil {
		records = []filter.Record{}
	}
	return records, nil
}

func (s *Service) limit(requested int) int {
	switch {
	case requested <= 0:
		return s.config.DefaultLimit
	case requested > s.config.MaxLimit:
		return s.config.MaxLimit
	default:
		return requested
	}
}

func (s *Service) translationFailed(ctx context.Context, form string, err error) error {
	kind, _ := filter.KindOf(err)
	s.observeTranslation(form, string(kind))
	logger.Debug(ctx, "filter rejected", "form", form, "kind", kind, "error", err)
	return toAppError(err)
}

func (s *Service) observeTranslation(form, kind string) {
	if s.observer != nil {
		s.observer.ObserveTranslation(form, kind)
	}
}

// toAppError maps filter errors to client errors carrying details.kind.
func toAppError(err error) error {
	var fe *filter.Error
	if !errors.As(err, &fe) {
		return apperror.NewInternal(err)
	}
	if fe.Kind == filter.ExecutionFailed {
		return apperror.NewExecution(fe)
	}

	appErr := apperror.NewInvalidInput(string(fe.Kind), fe.Error()).
		WithDetail("kind", string(fe.Kind)).
		WithCause(fe)
	if fe.Field != "" {
		appErr.WithDetail("field", fe.Field)
	}
	if fe.Operator != "" {
		appErr.WithDetail("operator", string(fe.Operator))
	}
	if fe.Value != "" {
		appErr.WithDetail("value", fe.Value)
	}
	return appErr
}

// PageFromValues reads limit, offset, order_by and fields from reserved query keys.
func PageFromValues(values url.Values) (Page, error) {
	var p Page
	var err error
	if p.Limit, err = intParam(values, "limit"); err != nil {
		return Page{}, err
	}
	if p.Offset, err = intParam(values, "offset"); err != nil {
		return Page{}, err
	}
	p.OrderBy = strings.TrimSpace(values.Get("order_by"))
	if raw := values.Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				p.Fields = append(p.Fields, f)
			}
		}
	}
	return p, nil
}

func intParam(values url.Values, key string) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.NewValidation("invalid " + key).WithDetail("field", key)
	}
	return n, nil
}
