package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type scheduleService interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.ClassSchedule, error)
	Create(ctx context.Context, actor *models.JWTClaims, courseID string, req models.CreateScheduleRequest) (*models.ClassSchedule, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
}

// ScheduleHandler manages weekly class meetings of a course.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List returns the meetings of a course ordered by weekday and start time.
func (h *ScheduleHandler) List(c *gin.Context) {
	items, err := h.service.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Add a class meeting
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CreateScheduleRequest true "Meeting"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req models.CreateScheduleRequest
	if !bindJSON(c, &req, "invalid schedule payload") {
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Delete removes a meeting.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, c.Param("scheduleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
