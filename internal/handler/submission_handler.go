package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, assignmentID string, upload *models.Upload) (*models.Submission, error)
	Grade(ctx context.Context, actor *models.JWTClaims, submissionID string, req models.GradeSubmissionRequest) (*models.Submission, error)
	ListForAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) ([]models.Submission, error)
	ListForStudent(ctx context.Context, actor *models.JWTClaims) ([]models.Submission, error)
	GetForStudentAndAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) (*models.Submission, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Submission, error)
	DownloadURL(ctx context.Context, actor *models.JWTClaims, id string) (*models.SubmissionDownload, error)
	Download(token string) (*models.FileResource, error)
	LoadFileAsResource(filename string) (*models.FileResource, error)
	AverageForAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) (*models.GradeAverage, error)
	AverageForStudent(ctx context.Context, actor *models.JWTClaims, studentID string) (*models.GradeAverage, error)
}

// SubmissionHandler serves assignment submissions, grading and file downloads.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Submit godoc
// @Summary Submit an assignment
// @Description Uploads a PDF or Word document. Resubmitting replaces the previous file.
// @Tags Student
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Assignment ID"
// @Param file formData file true "Submission file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/assignments/{id}/submission [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	upload, done, err := formUpload(c, "file")
	defer done()
	if err != nil {
		response.Error(c, err)
		return
	}
	if upload == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	submission, err := h.service.Submit(c.Request.Context(), claims, c.Param("id"), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Grade godoc
// @Summary Grade a submission
// @Tags Lecturer
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body models.GradeSubmissionRequest true "Grade between 0 and 100"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lecturer/submissions/{id}/grade [put]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.GradeSubmissionRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	submission, err := h.service.Grade(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// ListForAssignment lists every submission to an assignment.
func (h *SubmissionHandler) ListForAssignment(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.service.ListForAssignment(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Mine lists the calling student's submissions.
func (h *SubmissionHandler) Mine(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.service.ListForStudent(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ForAssignment returns the calling student's submission to one assignment.
func (h *SubmissionHandler) ForAssignment(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	submission, err := h.service.GetForStudentAndAssignment(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Get returns one submission.
func (h *SubmissionHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	submission, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// DownloadURL godoc
// @Summary Signed download link for a submission file
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id}/download-url [get]
func (h *SubmissionHandler) DownloadURL(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	link, err := h.service.DownloadURL(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download streams a submission file addressed by a signed token.
func (h *SubmissionHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid download link"))
		return
	}
	res, err := h.service.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, res, true)
}

// LoadFile streams a stored submission file by name.
func (h *SubmissionHandler) LoadFile(c *gin.Context) {
	res, err := h.service.LoadFileAsResource(c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, res, false)
}

// AssignmentAverage returns the mean grade for an assignment.
func (h *SubmissionHandler) AssignmentAverage(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	avg, err := h.service.AverageForAssignment(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, avg, nil)
}

// StudentAverage returns the mean grade for a student.
func (h *SubmissionHandler) StudentAverage(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	avg, err := h.service.AverageForStudent(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, avg, nil)
}
