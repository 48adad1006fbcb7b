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

type forumRepository interface {
	ListByCourse(ctx context.Context, courseID string, limit, offset int) ([]models.ForumPost, error)
	FindByID(ctx context.Context, id string) (*models.ForumPost, error)
	Create(ctx context.Context, post *models.ForumPost) error
	Delete(ctx context.Context, id string) error
}

// ForumService runs the per-course discussion boards.
type ForumService struct {
	repo      forumRepository
	courses   courseFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewForumService instantiates ForumService.
func NewForumService(repo forumRepository, courses courseFinder, validate *validator.Validate, logger *zap.Logger) *ForumService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForumService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// Post adds a message to a course board.
func (s *ForumService) Post(ctx context.Context, actor *models.JWTClaims, courseID string, req models.CreateForumPostRequest) (*models.ForumPost, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "post content is required")
	}
	course, err := loadCourse(ctx, s.courses, courseID)
	if err != nil {
		return nil, err
	}
	post := &models.ForumPost{CourseID: course.ID, AuthorID: actor.UserID, AuthorName: actor.FullName, Content: req.Content}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	return post, nil
}

// List returns a page of a course's posts, newest first.
func (s *ForumService) List(ctx context.Context, courseID string, limit, offset int) ([]models.ForumPost, error) {
	if _, err := loadCourse(ctx, s.courses, courseID); err != nil {
		return nil, err
	}
	posts, err := s.repo.ListByCourse(ctx, courseID, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	return nonNil(posts), nil
}

// Delete removes a post. Authors may delete their own; admins may delete any.
func (s *ForumService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	if actor == nil || (post.AuthorID != actor.UserID && !actor.Can(models.CapModerateForum)) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this post")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete post")
	}
	return nil
}
