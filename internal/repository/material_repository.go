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

const materialColumns = `id, course_id, title, file_path, original_file_name, uploaded_by, uploaded_at`

// MaterialRepository stores course material metadata. File bytes live in storage.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs the repository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// ListByCourse returns a course's materials, newest first.
func (r *MaterialRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseMaterial, error) {
	var materials []models.CourseMaterial
	query := "SELECT " + materialColumns + " FROM course_materials WHERE course_id = $1 ORDER BY uploaded_at DESC"
	if err := r.db.SelectContext(ctx, &materials, query, courseID); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// FindByID returns a material.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.CourseMaterial, error) {
	var material models.CourseMaterial
	if err := r.db.GetContext(ctx, &material, "SELECT "+materialColumns+" FROM course_materials WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return &material, nil
}

// Create inserts a material record.
func (r *MaterialRepository) Create(ctx context.Context, material *models.CourseMaterial) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	if material.UploadedAt.IsZero() {
		material.UploadedAt = time.Now().UTC()
	}
	query := "INSERT INTO course_materials (" + materialColumns + `) VALUES (:id, :course_id, :title, :file_path, :original_file_name, :uploaded_by, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", classify(err))
	}
	return nil
}

// Delete removes a material record.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return expectAffected(res)
}
