package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

const (
	profilePicMaxSide = 512
	fileKindProfile   = "profile"
)

var (
	matricPattern      = regexp.MustCompile(`^\d{7}$`)
	profilePicNameRule = regexp.MustCompile(`^\d+_` + fileKindProfile + `_`)
)

type profileUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByMatricNumber(ctx context.Context, matric string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type departmentLookup interface {
	FindByName(ctx context.Context, name string) (*models.Department, error)
}

type fileStore interface {
	Store(kind, original string, r io.Reader) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

// ProfileService updates user profiles and manages profile pictures.
type ProfileService struct {
	users       profileUserRepository
	departments departmentLookup
	files       fileStore
	maxUpload   int64
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewProfileService constructs the service.
func NewProfileService(users profileUserRepository, departments departmentLookup, files fileStore, maxUpload int64, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &ProfileService{users: users, departments: departments, files: files, maxUpload: maxUpload, validator: validate, logger: logger}
}

// Me returns the actor's own profile.
func (s *ProfileService) Me(ctx context.Context, actor *models.JWTClaims) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.load(ctx, actor.UserID)
}

// UpdateStudentProfile overwrites a student's profile. The matric number must be seven digits and
// not held by another user. An unknown department name clears the department.
func (s *ProfileService) UpdateStudentProfile(ctx context.Context, actor *models.JWTClaims, req models.StudentProfileUpdate, picture *models.Upload) (*models.User, error) {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can edit a student profile")
	}
	req.MatricNumber = strings.TrimSpace(req.MatricNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid profile payload")
	}
	if !matricPattern.MatchString(req.MatricNumber) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "matric number must be exactly 7 digits")
	}

	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	holder, err := s.users.FindByMatricNumber(ctx, req.MatricNumber)
	switch {
	case err == nil && holder.ID != user.ID:
		return nil, appErrors.Clone(appErrors.ErrConflict, "matric number is already in use")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check matric number")
	}

	user.DepartmentID = nil
	user.DepartmentName = nil
	if name := strings.TrimSpace(req.DepartmentName); name != "" {
		dept, err := s.departments.FindByName(ctx, name)
		switch {
		case err == nil:
			user.DepartmentID = &dept.ID
			user.DepartmentName = &dept.Name
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve department")
		}
	}

	matric := req.MatricNumber
	user.FullName = strings.TrimSpace(req.FullName)
	user.Age = req.Age
	user.Level = strings.TrimSpace(req.Level)
	user.Email = strings.TrimSpace(req.Email)
	user.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	user.MatricNumber = &matric

	return s.save(ctx, user, picture)
}

// UpdateStaffProfile overwrites a lecturer's or admin's profile. Age is only kept for admins.
func (s *ProfileService) UpdateStaffProfile(ctx context.Context, actor *models.JWTClaims, req models.StaffProfileUpdate, picture *models.Upload) (*models.User, error) {
	if actor == nil || (actor.Role != models.RoleLecturer && actor.Role != models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can edit a staff profile")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid profile payload")
	}
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	user.FullName = strings.TrimSpace(req.FullName)
	user.Email = strings.TrimSpace(req.Email)
	user.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if actor.Role == models.RoleAdmin {
		user.Age = req.Age
	}
	return s.save(ctx, user, picture)
}

// LoadProfilePic opens a stored profile picture. Other stored kinds share the upload root and are
// reported as missing.
func (s *ProfileService) LoadProfilePic(filename string) (*models.FileResource, error) {
	if !profilePicNameRule.MatchString(filename) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return openStored(s.files, filename)
}

func (s *ProfileService) save(ctx context.Context, user *models.User, picture *models.Upload) (*models.User, error) {
	previous := user.ProfilePic
	if picture != nil {
		name, err := s.storePicture(picture)
		if err != nil {
			return nil, err
		}
		user.ProfilePic = name
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if picture != nil {
			_ = s.files.Delete(user.ProfilePic)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "matric number is already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	if picture != nil && previous != "" && previous != user.ProfilePic {
		if err := s.files.Delete(previous); err != nil {
			s.logger.Warn("failed to remove previous profile picture", zap.String("file", previous), zap.Error(err))
		}
	}
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{UserID: &user.ID, Action: models.AuditActionUserUpdate, Resource: "profile", ResourceID: &user.ID}); err != nil {
		s.logger.Warn("failed to record profile audit log", zap.Error(err))
	}
	return user, nil
}

// storePicture decodes the upload, scales it to fit 512x512 and stores the re-encoded image.
func (s *ProfileService) storePicture(upload *models.Upload) (string, error) {
	data, err := io.ReadAll(io.LimitReader(upload.Content, s.maxUpload+1))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read profile picture")
	}
	if len(data) == 0 {
		return "", appErrors.Clone(appErrors.ErrStorage, "failed to store empty file")
	}
	if int64(len(data)) > s.maxUpload {
		return "", appErrors.Clone(appErrors.ErrValidation, "profile picture is too large")
	}
	if detected := mimetype.Detect(data); !strings.HasPrefix(detected.String(), "image/") {
		return "", appErrors.Clone(appErrors.ErrValidation, "profile picture must be an image")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", appErrors.Invalid(err, "profile picture must be an image")
	}
	img = imaging.Fit(img, profilePicMaxSide, profilePicMaxSide, imaging.Lanczos)

	name := storage.SanitizeName(upload.FileName)
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		format = imaging.PNG
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to encode profile picture")
	}
	stored, err := s.files.Store(fileKindProfile, name, &buf)
	if err != nil {
		return "", storageError(err)
	}
	return stored, nil
}

func (s *ProfileService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// openStored resolves filename under the upload root.
func openStored(files fileStore, filename string) (*models.FileResource, error) {
	file, err := files.Open(filename)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidName):
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid file name")
		case errors.Is(err, storage.ErrNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "file could not be read")
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		_ = file.Close()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file could not be read")
	}
	return &models.FileResource{Name: filename, File: file, ModTime: info.ModTime()}, nil
}

func storageError(err error) error {
	if errors.Is(err, storage.ErrEmptyFile) {
		return appErrors.Clone(appErrors.ErrStorage, "failed to store empty file")
	}
	return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store file")
}
