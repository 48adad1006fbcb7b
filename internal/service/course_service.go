package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	ListByLecturer(ctx context.Context, lecturerID string) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	AssignLecturer(ctx context.Context, courseID, lecturerID string) error
	Delete(ctx context.Context, id string) error
	ListRegistered(ctx context.Context, studentID string) ([]models.Course, error)
	Register(ctx context.Context, studentID, courseID string, maxCredits int) (bool, error)
	Drop(ctx context.Context, studentID, courseID string) error
}

type courseUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListStudentsByDepartment(ctx context.Context, departmentID string) ([]models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CourseService manages courses, lecturer assignment and student registration.
type CourseService struct {
	courses   courseRepository
	users     courseUserRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(courses courseRepository, users courseUserRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, users: users, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns courses, optionally restricted to a department or lecturer.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListForLecturer returns the courses taught by the actor.
func (s *CourseService) ListForLecturer(ctx context.Context, actor *models.JWTClaims) ([]models.Course, error) {
	courses, err := s.courses.ListByLecturer(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get returns a course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course to a department.
func (s *CourseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.CourseCode = strings.TrimSpace(req.CourseCode)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid course payload")
	}
	course := &models.Course{Name: req.Name, CourseCode: req.CourseCode, CreditUnits: req.CreditUnits, DepartmentID: req.DepartmentID}
	if err := s.courses.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrInUse) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return s.Get(ctx, course.ID)
}

// Update edits a course's name, code and credit units.
func (s *CourseService) Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.CourseCode = strings.TrimSpace(req.CourseCode)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Name = req.Name
	course.CourseCode = req.CourseCode
	course.CreditUnits = req.CreditUnits
	if err := s.courses.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course. Its assignments go with it, so cached listings are dropped.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.cache.invalidateAssignments(ctx)
	return nil
}

// AssignLecturer makes userID the lecturer of courseID. Users without the LECTURER role are rejected
// and the course is left unchanged.
func (s *CourseService) AssignLecturer(ctx context.Context, actor *models.JWTClaims, courseID, userID string) (*models.Course, error) {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer")
	}
	if user.Role != models.RoleLecturer {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selected user is not a lecturer")
	}
	if err := s.courses.AssignLecturer(ctx, course.ID, user.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign lecturer")
	}

	entry := &models.AuditLog{Action: models.AuditActionCourseAssign, Resource: "course", ResourceID: &course.ID,
		NewValues: []byte(fmt.Sprintf(`{"lecturer_id":%q}`, user.ID))}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if err := s.users.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record lecturer assignment audit log", zap.Error(err))
	}

	course.LecturerID = &user.ID
	course.LecturerName = &user.FullName
	return course, nil
}

// RegisterCourse adds a course to the student's registration set unless it would take them past
// models.MaxCreditUnits. Registering an already registered course is a no-op.
func (s *CourseService) RegisterCourse(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.RegisteredCourses, error) {
	if !actor.Can(models.CapRegisterCourses) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can register courses")
	}
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}

	inserted, err := s.courses.Register(ctx, actor.UserID, courseID, models.MaxCreditUnits)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCreditLimit):
			s.metrics.RecordRegistration(OutcomeRejected)
			return nil, appErrors.Clone(appErrors.ErrCreditLimit, fmt.Sprintf("registering this course would exceed %d credit units", models.MaxCreditUnits))
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		s.metrics.RecordRegistration(OutcomeError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register course")
	}

	result, err := s.ListRegistered(ctx, actor)
	if err != nil {
		return nil, err
	}
	if inserted {
		s.metrics.RecordRegistration(OutcomeSuccess)
	} else {
		s.metrics.RecordRegistration(OutcomeNoop)
		result.AlreadyRegistered = true
	}
	return result, nil
}

// DropCourse removes a course from the student's registration set.
func (s *CourseService) DropCourse(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.RegisteredCourses, error) {
	if !actor.Can(models.CapRegisterCourses) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can drop courses")
	}
	if err := s.courses.Drop(ctx, actor.UserID, courseID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop course")
	}
	return s.ListRegistered(ctx, actor)
}

// ListRegistered returns the actor's registered courses with their credit total.
func (s *CourseService) ListRegistered(ctx context.Context, actor *models.JWTClaims) (*models.RegisteredCourses, error) {
	courses, err := s.courses.ListRegistered(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registered courses")
	}
	total := 0
	for _, c := range courses {
		total += c.CreditUnits
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return &models.RegisteredCourses{Courses: courses, TotalCredits: total}, nil
}

// CourseStudents returns the students of the course's department. Lecturers may only list their
// own courses.
func (s *CourseService) CourseStudents(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.Course, []models.User, error) {
	if !actor.Can(models.CapViewCourseStudents) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view course students")
	}
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	if actor.Role == models.RoleLecturer && !course.TaughtBy(actor.UserID) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "course is taught by another lecturer")
	}
	students, err := s.users.ListStudentsByDepartment(ctx, course.DepartmentID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course students")
	}
	return course, students, nil
}
