package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

const fileKindMaterial = "material"

type materialRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseMaterial, error)
	FindByID(ctx context.Context, id string) (*models.CourseMaterial, error)
	Create(ctx context.Context, material *models.CourseMaterial) error
	Delete(ctx context.Context, id string) error
}

// MaterialService shares lecture files with the students of a course.
type MaterialService struct {
	repo      materialRepository
	courses   courseFinder
	users     userFinder
	files     fileStore
	maxUpload int64
	logger    *zap.Logger
}

// NewMaterialService instantiates MaterialService.
func NewMaterialService(repo materialRepository, courses courseFinder, users userFinder, files fileStore, maxUpload int64, logger *zap.Logger) *MaterialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &MaterialService{repo: repo, courses: courses, users: users, files: files, maxUpload: maxUpload, logger: logger}
}

// Upload stores a file against a course. Title defaults to the file name.
func (s *MaterialService) Upload(ctx context.Context, actor *models.JWTClaims, courseID, title string, upload *models.Upload) (*models.CourseMaterial, error) {
	if !actor.Can(models.CapUploadMaterials) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to upload materials")
	}
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourseContent(actor, course) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to upload materials for this course")
	}
	if upload == nil || upload.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrStorage, "failed to store empty file")
	}
	if upload.Size > s.maxUpload {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is too large")
	}

	stored, err := s.files.Store(fileKindMaterial, upload.FileName, io.LimitReader(upload.Content, s.maxUpload))
	if err != nil {
		return nil, storageError(err)
	}
	original := storage.SanitizeName(upload.FileName)
	if title = strings.TrimSpace(title); title == "" {
		title = original
	}
	uploader := actor.UserID
	material := &models.CourseMaterial{
		CourseID:         course.ID,
		Title:            title,
		FilePath:         stored,
		OriginalFileName: original,
		UploadedBy:       &uploader,
	}
	if err := s.repo.Create(ctx, material); err != nil {
		_ = s.files.Delete(stored)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save material")
	}
	return material, nil
}

// ListByCourse returns a course's materials, newest first.
func (s *MaterialService) ListByCourse(ctx context.Context, courseID string) ([]models.CourseMaterial, error) {
	if _, err := loadCourse(ctx, s.courses, courseID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	return nonNil(items), nil
}

// Delete removes a material and its file.
func (s *MaterialService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	material, course, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManageCourseContent(actor, course) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this material")
	}
	if err := s.repo.Delete(ctx, material.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete material")
	}
	if err := s.files.Delete(material.FilePath); err != nil {
		s.logger.Warn("failed to remove material file", zap.String("file", material.FilePath), zap.Error(err))
	}
	return nil
}

// Download opens a material for the course's staff or a student of its department.
func (s *MaterialService) Download(ctx context.Context, actor *models.JWTClaims, id string) (*models.FileResource, error) {
	material, course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageCourseContent(actor, course) {
		if actor == nil || actor.Role != models.RoleStudent {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to download this material")
		}
		user, err := s.users.FindByID(ctx, actor.UserID)
		if err != nil || !user.InDepartment(course.DepartmentID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to download this material")
		}
	}
	res, err := openStored(s.files, material.FilePath)
	if err != nil {
		return nil, err
	}
	res.Name = material.OriginalFileName
	return res, nil
}

func (s *MaterialService) load(ctx context.Context, id string) (*models.CourseMaterial, *models.Course, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	course, err := loadCourse(ctx, s.courses, material.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return material, course, nil
}
