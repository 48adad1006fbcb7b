package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	ListForLecturer(ctx context.Context, actor *models.JWTClaims) ([]models.Course, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, id string) error
	AssignLecturer(ctx context.Context, actor *models.JWTClaims, courseID, userID string) (*models.Course, error)
	RegisterCourse(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.RegisteredCourses, error)
	DropCourse(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.RegisteredCourses, error)
	ListRegistered(ctx context.Context, actor *models.JWTClaims) (*models.RegisteredCourses, error)
	CourseStudents(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.Course, []models.User, error)
}

type rosterExporter interface {
	Export(ctx context.Context, actor *models.JWTClaims, courseID string, format models.ExportFormat) (*models.RosterFile, error)
}

// CourseHandler exposes the course catalogue, registration and rosters.
type CourseHandler struct {
	service courseService
	roster  rosterExporter
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(svc courseService, roster rosterExporter) *CourseHandler {
	return &CourseHandler{service: svc, roster: roster}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param department_id query string false "Department filter"
// @Param search query string false "Name or code search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		DepartmentID: c.Query("department_id"),
		Search:       c.Query("search"),
		Page:         queryInt(c, "page"),
		PageSize:     queryInt(c, "page_size"),
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Mine lists the courses the calling lecturer teaches.
func (h *CourseHandler) Mine(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.service.ListForLecturer(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get returns one course.
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Router /admin/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req models.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update edits a course.
func (h *CourseHandler) Update(c *gin.Context) {
	var req models.UpdateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete removes a course.
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignLecturer godoc
// @Summary Assign a lecturer to a course
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.AssignLecturerRequest true "Lecturer"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/courses/{id}/lecturer [put]
func (h *CourseHandler) AssignLecturer(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.AssignLecturerRequest
	if !bindJSON(c, &req, "lecturer_id is required") {
		return
	}
	course, err := h.service.AssignLecturer(c.Request.Context(), claims, c.Param("id"), req.LecturerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Register godoc
// @Summary Register for a course
// @Description Adds the course to the student's registered set unless it would exceed 24 credit units
// @Tags Student
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /student/courses/{id}/register [post]
func (h *CourseHandler) Register(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	res, err := h.service.RegisterCourse(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Drop removes a course from the student's registered set.
func (h *CourseHandler) Drop(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	res, err := h.service.DropCourse(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Registered lists the student's registered courses with their credit total.
func (h *CourseHandler) Registered(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	res, err := h.service.ListRegistered(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Students lists the students of a course.
func (h *CourseHandler) Students(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	course, students, err := h.service.CourseStudents(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course": course, "students": students}, nil, map[string]interface{}{
		"total": len(students),
	})
}

// Export godoc
// @Summary Export a course roster
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /courses/{id}/students/export [get]
func (h *CourseHandler) Export(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	format := models.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ExportFormatCSV))))
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	file, err := h.roster.Export(c.Request.Context(), claims, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.FileName, file.ContentType, file.Body)
}
