package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"recordhub/internal/domain/student"
	"recordhub/internal/infrastructure/http/v1/dto"
)

// StudentService is implemented by student.Service.
type StudentService interface {
	Create(ctx context.Context, in student.Input) (*student.Student, error)
	Get(ctx context.Context, email string) (*student.Student, error)
	List(ctx context.Context, p student.ListParams) ([]*student.Student, error)
	Update(ctx context.Context, email string, in student.Input) (*student.Student, error)
	Delete(ctx context.Context, email string) error
}

// StudentHandler handles student CRUD.
type StudentHandler struct {
	*BaseHandler
	service StudentService
}

// NewStudentHandler creates a new student handler.
func NewStudentHandler(base *BaseHandler, service StudentService) *StudentHandler {
	return &StudentHandler{BaseHandler: base, service: service}
}

// Create handles POST /students
func (h *StudentHandler) Create(c *gin.Context) {
	var req dto.StudentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	st, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromStudent(st))
}

// List handles GET /students
func (h *StudentHandler) List(c *gin.Context) {
	var req dto.StudentListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	list, err := h.service.List(c.Request.Context(), req.ToParams())
	if err != nil {
		h.Error(c, err)
		return
	}
	items := dto.FromStudents(list)
	h.OK(c, dto.ListResponse{Items: items, Count: len(items), Limit: req.Limit, Offset: req.Offset})
}

// Get handles GET /students/:email
func (h *StudentHandler) Get(c *gin.Context) {
	st, err := h.service.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStudent(st))
}

// Update handles PUT /students/:email
func (h *StudentHandler) Update(c *gin.Context) {
	var req dto.StudentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	st, err := h.service.Update(c.Request.Context(), c.Param("email"), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStudent(st))
}

// Delete handles DELETE /students/:email
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("email")); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "student deleted")
}

// RegisterRoutes registers student routes. create may carry extra middleware such as idempotency.
func (h *StudentHandler) RegisterRoutes(g *gin.RouterGroup, create ...gin.HandlerFunc) {
	g.POST("", append(create, h.Create)...)
	g.GET("", h.List)
	g.GET("/:email", h.Get)
	g.PUT("/:email", h.Update)
	g.DELETE("/:email", h.Delete)
}
