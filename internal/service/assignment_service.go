package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type assignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AssignmentService runs the lecturer assignment workflow and student assignment listings.
type AssignmentService struct {
	assignments assignmentRepository
	courses     courseFinder
	users       userFinder
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs the service. cache may be nil.
func NewAssignmentService(assignments assignmentRepository, courses courseFinder, users userFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{assignments: assignments, courses: courses, users: users, cache: cache, validator: validate, logger: logger}
}

// CreateAssignment publishes (or drafts) an assignment for a course the actor teaches. The
// assignment inherits the course's department.
func (s *AssignmentService) CreateAssignment(ctx context.Context, actor *models.JWTClaims, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	if !actor.Can(models.CapAuthorAssignments) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only lecturers can create assignments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid assignment payload")
	}
	courseID := strings.TrimSpace(req.CourseID)
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course is required")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.TaughtBy(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not the lecturer of this course")
	}

	title := strings.TrimSpace(req.Title)
	level := strings.TrimSpace(req.Level)
	switch {
	case title == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	case req.DueDate == nil || req.DueDate.IsZero():
		return nil, appErrors.Clone(appErrors.ErrValidation, "due date is required")
	case level == "":
		return nil, appErrors.Clone(appErrors.ErrValidation, "level is required")
	}

	assignment := &models.Assignment{
		Title:        title,
		Description:  req.Description,
		DueDate:      req.DueDate.UTC(),
		Level:        level,
		Status:       models.AssignmentStatusPublished,
		CreatedBy:    actor.UserID,
		DepartmentID: course.DepartmentID,
		CourseID:     course.ID,
		CourseName:   course.Name,
		CourseCode:   course.CourseCode,
	}
	if req.Action == models.AssignmentActionDraft {
		assignment.Status = models.AssignmentStatusDraft
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.invalidate(ctx)
	return assignment, nil
}

// UpdateAssignment lets the author edit an assignment. The publish action turns a draft live.
func (s *AssignmentService) UpdateAssignment(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateAssignmentRequest) (*models.Assignment, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid assignment payload")
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !assignment.OwnedBy(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can edit this assignment")
	}
	assignment.Title = req.Title
	assignment.Description = req.Description
	assignment.DueDate = req.DueDate.UTC()
	if req.Action == models.AssignmentActionPublish {
		assignment.Status = models.AssignmentStatusPublished
	}
	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	s.invalidate(ctx)
	return assignment, nil
}

// DeleteAssignment removes an assignment. Admins may delete any, lecturers only their own.
func (s *AssignmentService) DeleteAssignment(ctx context.Context, actor *models.JWTClaims, id string) error {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManageAssignment(actor, assignment) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this assignment")
	}
	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	s.invalidate(ctx)
	return nil
}

// BulkDelete removes several assignments after checking the actor may delete every one of them.
func (s *AssignmentService) BulkDelete(ctx context.Context, actor *models.JWTClaims, req models.BulkDeleteRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Invalid(err, "invalid bulk delete payload")
	}
	found, err := s.assignments.FindByIDs(ctx, req.IDs)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	ids := make([]string, 0, len(found))
	for i := range found {
		if !canManageAssignment(actor, &found[i]) {
			return 0, appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete assignment "+found[i].ID)
		}
		ids = append(ids, found[i].ID)
	}
	removed, err := s.assignments.DeleteMany(ctx, ids)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignments")
	}
	s.invalidate(ctx)
	return removed, nil
}

// Get returns an assignment. Drafts are only visible to their author and admins.
func (s *AssignmentService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Assignment, error) {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.Status == models.AssignmentStatusDraft && !canManageAssignment(actor, assignment) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return assignment, nil
}

// GetAssignmentsByDepartmentAndLevel lists published assignments whose course belongs to the
// department and whose level matches exactly. The bool reports a cache hit.
func (s *AssignmentService) GetAssignmentsByDepartmentAndLevel(ctx context.Context, departmentID, level string) ([]models.Assignment, bool, error) {
	departmentID = strings.TrimSpace(departmentID)
	if departmentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "department is required")
	}
	if strings.TrimSpace(level) == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "level is required")
	}
	return cached(ctx, s.cache, assignmentsByDepartmentKey(departmentID, level), func(ctx context.Context) ([]models.Assignment, error) {
		items, err := s.assignments.List(ctx, models.AssignmentFilter{DepartmentID: departmentID, Level: level, Status: models.AssignmentStatusPublished})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
		}
		return nonNil(items), nil
	})
}

// ListForStudent returns the published assignments for the student's department and level.
func (s *AssignmentService) ListForStudent(ctx context.Context, actor *models.JWTClaims) ([]models.Assignment, bool, error) {
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.DepartmentID == nil || strings.TrimSpace(user.Level) == "" {
		return []models.Assignment{}, false, nil
	}
	return s.GetAssignmentsByDepartmentAndLevel(ctx, *user.DepartmentID, user.Level)
}

// ListForLecturer returns every assignment the actor created, drafts included.
func (s *AssignmentService) ListForLecturer(ctx context.Context, actor *models.JWTClaims) ([]models.Assignment, bool, error) {
	return cached(ctx, s.cache, assignmentsByLecturerKey(actor.UserID), func(ctx context.Context) ([]models.Assignment, error) {
		items, err := s.assignments.List(ctx, models.AssignmentFilter{CreatedBy: actor.UserID})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
		}
		return nonNil(items), nil
	})
}

// ListAll returns every assignment for the admin console.
func (s *AssignmentService) ListAll(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error) {
	items, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return nonNil(items), nil
}

func (s *AssignmentService) load(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

func (s *AssignmentService) invalidate(ctx context.Context) {
	s.cache.invalidateAssignments(ctx)
}

func canManageAssignment(actor *models.JWTClaims, assignment *models.Assignment) bool {
	if actor == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || (actor.Role == models.RoleLecturer && assignment.OwnedBy(actor.UserID))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
