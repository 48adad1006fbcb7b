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

// DepartmentRepository manages departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns all departments ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, `SELECT id, name, created_at, updated_at FROM departments ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// FindByID returns a department.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	var department models.Department
	if err := r.db.GetContext(ctx, &department, `SELECT id, name, created_at, updated_at FROM departments WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &department, nil
}

// FindByName returns a department matched by exact name.
func (r *DepartmentRepository) FindByName(ctx context.Context, name string) (*models.Department, error) {
	var department models.Department
	if err := r.db.GetContext(ctx, &department, `SELECT id, name, created_at, updated_at FROM departments WHERE name = $1`, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get department by name: %w", err)
	}
	return &department, nil
}

// Create inserts a department.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	department.CreatedAt = now
	department.UpdatedAt = now
	const query = `INSERT INTO departments (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", classify(err))
	}
	return nil
}

// Rename changes a department's name.
func (r *DepartmentRepository) Rename(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE departments SET name = $2, updated_at = $3 WHERE id = $1`, id, name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rename department: %w", classify(err))
	}
	return expectAffected(res)
}

// Delete removes a department. References from users or courses yield ErrInUse.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", classify(err))
	}
	return expectAffected(res)
}

// Count returns the number of departments.
func (r *DepartmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM departments`); err != nil {
		return 0, fmt.Errorf("count departments: %w", err)
	}
	return total, nil
}
