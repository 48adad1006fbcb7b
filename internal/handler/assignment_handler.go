package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type assignmentService interface {
	CreateAssignment(ctx context.Context, actor *models.JWTClaims, req models.CreateAssignmentRequest) (*models.Assignment, error)
	UpdateAssignment(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateAssignmentRequest) (*models.Assignment, error)
	DeleteAssignment(ctx context.Context, actor *models.JWTClaims, id string) error
	BulkDelete(ctx context.Context, actor *models.JWTClaims, req models.BulkDeleteRequest) (int64, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Assignment, error)
	GetAssignmentsByDepartmentAndLevel(ctx context.Context, departmentID, level string) ([]models.Assignment, bool, error)
	ListForStudent(ctx context.Context, actor *models.JWTClaims) ([]models.Assignment, bool, error)
	ListForLecturer(ctx context.Context, actor *models.JWTClaims) ([]models.Assignment, bool, error)
	ListAll(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
}

// AssignmentHandler serves assignment authoring and listing.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Create godoc
// @Summary Create assignment
// @Description Creates an assignment for a course the lecturer teaches. action=draft keeps it hidden from students.
// @Tags Lecturer
// @Accept json
// @Produce json
// @Param payload body models.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lecturer/assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.CreateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.service.CreateAssignment(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Update edits an assignment owned by the caller.
func (h *AssignmentHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.UpdateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignment, err := h.service.UpdateAssignment(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete removes one assignment.
func (h *AssignmentHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.DeleteAssignment(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkDelete removes several assignments in one call.
func (h *AssignmentHandler) BulkDelete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.BulkDeleteRequest
	if !bindJSON(c, &req, "ids are required") {
		return
	}
	deleted, err := h.service.BulkDelete(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}

// Get returns one assignment.
func (h *AssignmentHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	assignment, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// ByDepartmentAndLevel godoc
// @Summary Published assignments for a department and level
// @Tags Assignments
// @Produce json
// @Param department_id query string true "Department ID"
// @Param level query string true "Level, matched exactly"
// @Success 200 {object} response.Envelope
// @Header 200 {string} X-Cache "HIT or MISS"
// @Router /assignments [get]
func (h *AssignmentHandler) ByDepartmentAndLevel(c *gin.Context) {
	departmentID, level := c.Query("department_id"), c.Query("level")
	if departmentID == "" || level == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "department_id and level are required"))
		return
	}
	items, hit, err := h.service.GetAssignmentsByDepartmentAndLevel(c.Request.Context(), departmentID, level)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, items, nil)
}

// Mine lists assignments visible to the caller: published work for students, authored work for lecturers.
func (h *AssignmentHandler) Mine(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var (
		items []models.Assignment
		hit   bool
		err   error
	)
	switch claims.Role {
	case models.RoleStudent:
		items, hit, err = h.service.ListForStudent(c.Request.Context(), claims)
	case models.RoleLecturer:
		items, hit, err = h.service.ListForLecturer(c.Request.Context(), claims)
	default:
		items, err = h.service.ListAll(c.Request.Context(), models.AssignmentFilter{})
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, items, nil)
}

// ListAll is the admin listing with optional filters.
func (h *AssignmentHandler) ListAll(c *gin.Context) {
	filter := models.AssignmentFilter{
		DepartmentID: c.Query("department_id"),
		Level:        c.Query("level"),
		CreatedBy:    c.Query("created_by"),
		CourseID:     c.Query("course_id"),
		Status:       models.AssignmentStatus(c.Query("status")),
	}
	items, err := h.service.ListAll(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
