package handlers

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"recordhub/internal/core/apperror"
	"recordhub/internal/domain/upload"
)

// UploadService is implemented by upload.Service.
type UploadService interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (*upload.Object, error)
	URL(ctx context.Context, key string) (string, error)
}

// UploadHandler passes multipart files to object storage.
type UploadHandler struct {
	*BaseHandler
	service UploadService
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(base *BaseHandler, service UploadService) *UploadHandler {
	return &UploadHandler{BaseHandler: base, service: service}
}

// Upload handles POST /uploads (multipart field "file").
func (h *UploadHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("file is required").WithDetail("field", "file"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.Error(c, apperror.NewValidation("unreadable file").WithCause(err))
		return
	}
	defer f.Close()

	obj, err := h.service.Upload(c.Request.Context(), fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, obj)
}

// URL handles GET /uploads/url?key=
func (h *UploadHandler) URL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		h.Error(c, apperror.NewValidation("key is required").WithDetail("field", "key"))
		return
	}
	u, err := h.service.URL(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"key": key, "url": u})
}

// RegisterRoutes registers upload routes.
func (h *UploadHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("", h.Upload)
	g.GET("/url", h.URL)
}
