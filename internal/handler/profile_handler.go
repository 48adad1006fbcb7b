package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type profileService interface {
	Me(ctx context.Context, actor *models.JWTClaims) (*models.User, error)
	UpdateStudentProfile(ctx context.Context, actor *models.JWTClaims, req models.StudentProfileUpdate, picture *models.Upload) (*models.User, error)
	UpdateStaffProfile(ctx context.Context, actor *models.JWTClaims, req models.StaffProfileUpdate, picture *models.Upload) (*models.User, error)
	LoadProfilePic(filename string) (*models.FileResource, error)
}

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Me returns the caller's profile.
func (h *ProfileHandler) Me(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	user, err := h.service.Me(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateStudent godoc
// @Summary Update student profile
// @Description Multipart form; the optional profilePic file replaces the current picture
// @Tags Student
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student/profile [put]
func (h *ProfileHandler) UpdateStudent(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.StudentProfileUpdate
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid profile payload"))
		return
	}
	picture, done, err := formUpload(c, "profilePic")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer done()

	user, err := h.service.UpdateStudentProfile(c.Request.Context(), claims, req, picture)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateStaff updates a lecturer's or admin's profile from a multipart form.
func (h *ProfileHandler) UpdateStaff(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.StaffProfileUpdate
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid profile payload"))
		return
	}
	picture, done, err := formUpload(c, "profilePic")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer done()

	user, err := h.service.UpdateStaffProfile(c.Request.Context(), claims, req, picture)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Picture streams a stored profile picture.
func (h *ProfileHandler) Picture(c *gin.Context) {
	res, err := h.service.LoadProfilePic(c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, res, false)
}
