package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type scheduleRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.ClassSchedule, error)
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
	Create(ctx context.Context, schedule *models.ClassSchedule) error
	Delete(ctx context.Context, id string) error
}

// ScheduleService manages weekly class meetings of a course.
type ScheduleService struct {
	repo      scheduleRepository
	courses   courseFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, courses courseFinder, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// ListByCourse returns a course's schedule ordered by weekday and start time.
func (s *ScheduleService) ListByCourse(ctx context.Context, courseID string) ([]models.ClassSchedule, error) {
	if _, err := loadCourse(ctx, s.courses, courseID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return nonNil(items), nil
}

// Create adds a weekly slot. Only admins and the course's lecturer may schedule it.
func (s *ScheduleService) Create(ctx context.Context, actor *models.JWTClaims, courseID string, req models.CreateScheduleRequest) (*models.ClassSchedule, error) {
	req.DayOfWeek = strings.ToUpper(strings.TrimSpace(req.DayOfWeek))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid schedule payload")
	}
	start, _ := time.Parse("15:04", req.StartTime)
	end, _ := time.Parse("15:04", req.EndTime)
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourseContent(actor, course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to schedule this course")
	}
	schedule := &models.ClassSchedule{
		CourseID:   course.ID,
		DayOfWeek:  req.DayOfWeek,
		StartTime:  start.Format("15:04"),
		EndTime:    end.Format("15:04"),
		Room:       strings.TrimSpace(req.Room),
		CourseName: course.Name,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return schedule, nil
}

// Delete removes a slot from its course.
func (s *ScheduleService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	course, err := loadCourse(ctx, s.courses, schedule.CourseID)
	if err != nil {
		return err
	}
	if !canManageCourseContent(actor, course) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to change this course's schedule")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

func loadCourse(ctx context.Context, courses courseFinder, id string) (*models.Course, error) {
	course, err := courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// canManageCourseContent is true for admins and the course's own lecturer.
func canManageCourseContent(actor *models.JWTClaims, course *models.Course) bool {
	if actor == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || (actor.Role == models.RoleLecturer && course.TaughtBy(actor.UserID))
}
