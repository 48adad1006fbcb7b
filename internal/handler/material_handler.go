package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type materialService interface {
	Upload(ctx context.Context, actor *models.JWTClaims, courseID, title string, upload *models.Upload) (*models.CourseMaterial, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseMaterial, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Download(ctx context.Context, actor *models.JWTClaims, id string) (*models.FileResource, error)
}

// MaterialHandler serves course material uploads and downloads.
type MaterialHandler struct {
	service materialService
}

// NewMaterialHandler constructs the handler.
func NewMaterialHandler(svc materialService) *MaterialHandler {
	return &MaterialHandler{service: svc}
}

// Upload godoc
// @Summary Upload course material
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param title formData string false "Title, defaults to the file name"
// @Param file formData file true "Material"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/materials [post]
func (h *MaterialHandler) Upload(c *gin.Context) {
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
	material, err := h.service.Upload(c.Request.Context(), claims, c.Param("id"), c.PostForm("title"), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// List returns the materials of a course.
func (h *MaterialHandler) List(c *gin.Context) {
	items, err := h.service.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Delete removes a material and its file.
func (h *MaterialHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, c.Param("materialId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download streams a material file.
func (h *MaterialHandler) Download(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	res, err := h.service.Download(c.Request.Context(), claims, c.Param("materialId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, res, true)
}
