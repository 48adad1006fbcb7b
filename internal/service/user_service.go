package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

const adminUserPageSize = 5

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	ListStudentsByDepartment(ctx context.Context, departmentID string) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles admin user management and student lookups.
type UserService struct {
	repo          userRepository
	cache         *CacheService
	resetPassword string
	logger        *zap.Logger
}

// NewUserService creates an instance of UserService. resetPassword is the value an admin reset assigns.
func NewUserService(repo userRepository, cache *CacheService, resetPassword string, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resetPassword == "" {
		resetPassword = "password123"
	}
	return &UserService{repo: repo, cache: cache, resetPassword: resetPassword, logger: logger}
}

// List returns a page of users, optionally restricted to one role. The admin console pages by five.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = adminUserPageSize
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListLecturers returns every lecturer, for course assignment pickers.
func (s *UserService) ListLecturers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.ListByRole(ctx, models.RoleLecturer)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lecturers")
	}
	return users, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// GetStudent returns a student's profile. Lecturers only see students of their own department.
func (s *UserService) GetStudent(ctx context.Context, actor *models.JWTClaims, id string) (*models.User, error) {
	if !actor.Can(models.CapViewStudentProfiles) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view student profiles")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if actor.Role == models.RoleLecturer {
		lecturer, err := s.Get(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if lecturer.DepartmentID == nil || !student.InDepartment(*lecturer.DepartmentID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another department")
		}
	}
	return student, nil
}

// ListDepartmentStudents returns the students of the actor's department.
func (s *UserService) ListDepartmentStudents(ctx context.Context, actor *models.JWTClaims) ([]models.User, error) {
	if !actor.Can(models.CapViewStudentProfiles) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view student profiles")
	}
	user, err := s.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user.DepartmentID == nil {
		return []models.User{}, nil
	}
	students, err := s.repo.ListStudentsByDepartment(ctx, *user.DepartmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Delete removes a user. Admins cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if actor != nil && actor.UserID == id {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		case errors.Is(err, repository.ErrInUse):
			return appErrors.Clone(appErrors.ErrConflict, "user is still referenced")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	// Assignments created by a deleted lecturer cascade away with the user row.
	s.cache.invalidateAssignments(ctx)
	s.audit(ctx, actor, models.AuditActionUserDelete, id, nil)
	return nil
}

// ResetPassword sets a user's password to the configured default and ends their sessions.
func (s *UserService) ResetPassword(ctx context.Context, actor *models.JWTClaims, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.resetPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after admin reset", zap.String("user_id", id), zap.Error(err))
	}
	s.audit(ctx, actor, models.AuditActionPasswordReset, id, []byte(`{"by":"admin"}`))
	return nil
}

func (s *UserService) audit(ctx context.Context, actor *models.JWTClaims, action, userID string, values []byte) {
	entry := &models.AuditLog{Action: action, Resource: "user", ResourceID: &userID, NewValues: values}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn(fmt.Sprintf("failed to record %s audit log", action), zap.Error(err))
	}
}
