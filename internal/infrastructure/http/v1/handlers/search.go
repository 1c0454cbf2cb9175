package handlers

import (
	"context"
	"net/url"

	"github.com/gin-gonic/gin"

	"recordhub/internal/domain/filter"
	"recordhub/internal/domain/search"
	"recordhub/internal/infrastructure/http/v1/dto"
)

// SearchService is implemented by search.Service.
type SearchService interface {
	Structured(ctx context.Context, values url.Values) ([]filter.Record, error)
	Triple(ctx context.Context, item filter.Item, page search.Page) ([]filter.Record, error)
	ByName(ctx context.Context, text string, page search.Page) ([]filter.Record, error)
	Suggest(ctx context.Context, text string, limit int) ([]filter.Record, error)
}

// SearchHandler exposes the filter forms.
type SearchHandler struct {
	*BaseHandler
	service SearchService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(base *BaseHandler, service SearchService) *SearchHandler {
	return &SearchHandler{BaseHandler: base, service: service}
}

// Structured handles GET /search?roll_no[gte]=1&or[0][email][contains]=x
func (h *SearchHandler) Structured(c *gin.Context) {
	records, err := h.service.Structured(c.Request.Context(), c.Request.URL.Query())
	h.respond(c, records, err)
}

// Triple handles POST /search
func (h *SearchHandler) Triple(c *gin.Context) {
	var req dto.TripleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	records, err := h.service.Triple(c.Request.Context(), req.Item, req.Page())
	h.respond(c, records, err)
}

// ByName handles POST /search/name
func (h *SearchHandler) ByName(c *gin.Context) {
	var req dto.NameSearchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	page := search.Page{Limit: req.Limit, Offset: req.Offset}
	records, err := h.service.ByName(c.Request.Context(), req.KeyValue, page)
	h.respond(c, records, err)
}

// Suggestions handles GET /search/suggestions?query=
func (h *SearchHandler) Suggestions(c *gin.Context) {
	var req dto.SuggestionRequest
	if !h.BindQuery(c, &req) {
		return
	}
	records, err := h.service.Suggest(c.Request.Context(), req.Query, req.Limit)
	h.respond(c, records, err)
}

func (h *SearchHandler) respond(c *gin.Context, records []filter.Record, err error) {
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewSearchResponse(records))
}

// RegisterRoutes registers search routes.
func (h *SearchHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("", h.Structured)
	g.POST("", h.Triple)
	g.POST("/name", h.ByName)
	g.GET("/suggestions", h.Suggestions)
}
