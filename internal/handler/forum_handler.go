package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type forumService interface {
	Post(ctx context.Context, actor *models.JWTClaims, courseID string, req models.CreateForumPostRequest) (*models.ForumPost, error)
	List(ctx context.Context, courseID string, limit, offset int) ([]models.ForumPost, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
}

// ForumHandler serves per-course discussion threads.
type ForumHandler struct {
	service forumService
}

// NewForumHandler constructs the handler.
func NewForumHandler(svc forumService) *ForumHandler {
	return &ForumHandler{service: svc}
}

// List returns posts newest first.
func (h *ForumHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Param("id"), queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Post adds a message to a course forum.
func (h *ForumHandler) Post(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.CreateForumPostRequest
	if !bindJSON(c, &req, "content is required") {
		return
	}
	post, err := h.service.Post(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// Delete removes a post.
func (h *ForumHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, c.Param("postId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
