package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const forumSelect = `SELECT p.id, p.course_id, p.author_id, u.full_name AS author_name, p.content, p.created_at
        FROM forum_posts p JOIN users u ON u.id = p.author_id`

// ForumRepository stores course discussion posts.
type ForumRepository struct {
	db *sqlx.DB
}

// NewForumRepository constructs the repository.
func NewForumRepository(db *sqlx.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

// ListByCourse returns posts for a course, newest first.
func (r *ForumRepository) ListByCourse(ctx context.Context, courseID string, limit, offset int) ([]models.ForumPost, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	query := forumSelect + " WHERE p.course_id = $1 ORDER BY p.created_at DESC, p.id LIMIT $2 OFFSET $3"
	var posts []models.ForumPost
	if err := r.db.SelectContext(ctx, &posts, query, courseID, limit, offset); err != nil {
		return nil, fmt.Errorf("list forum posts: %w", err)
	}
	return posts, nil
}

// FindByID returns a forum post.
func (r *ForumRepository) FindByID(ctx context.Context, id string) (*models.ForumPost, error) {
	var post models.ForumPost
	if err := r.db.GetContext(ctx, &post, forumSelect+" WHERE p.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get forum post: %w", err)
	}
	return &post, nil
}

// Create inserts a forum post.
func (r *ForumRepository) Create(ctx context.Context, post *models.ForumPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO forum_posts (id, course_id, author_id, content, created_at) VALUES (:id, :course_id, :author_id, :content, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create forum post: %w", classify(err))
	}
	return nil
}

// Delete removes a forum post.
func (r *ForumRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM forum_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete forum post: %w", err)
	}
	return expectAffected(res)
}
