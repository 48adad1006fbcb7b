package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type departmentService interface {
	List(ctx context.Context) ([]models.Department, error)
	Get(ctx context.Context, id string) (*models.Department, error)
	Save(ctx context.Context, req models.SaveDepartmentRequest) (*models.Department, error)
	Delete(ctx context.Context, id string) error
}

// DepartmentHandler exposes department management.
type DepartmentHandler struct {
	service departmentService
}

// NewDepartmentHandler constructs the handler.
func NewDepartmentHandler(svc departmentService) *DepartmentHandler {
	return &DepartmentHandler{service: svc}
}

// List returns every department.
func (h *DepartmentHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get returns one department.
func (h *DepartmentHandler) Get(c *gin.Context) {
	dept, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dept, nil)
}

// Create godoc
// @Summary Create department
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.SaveDepartmentRequest true "Department"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req models.SaveDepartmentRequest
	if !bindJSON(c, &req, "invalid department payload") {
		return
	}
	req.ID = ""
	dept, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dept)
}

// Rename updates a department's name.
func (h *DepartmentHandler) Rename(c *gin.Context) {
	var req models.SaveDepartmentRequest
	if !bindJSON(c, &req, "invalid department payload") {
		return
	}
	req.ID = c.Param("id")
	dept, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dept, nil)
}

// Delete godoc
// @Summary Delete department
// @Description Fails with DEPARTMENT_IN_USE while users or courses reference it
// @Tags Admin
// @Param id path string true "Department ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /admin/departments/{id} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
