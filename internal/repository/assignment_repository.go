package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const assignmentSelect = `SELECT a.id, a.title, a.description, a.due_date, a.level, a.status, a.created_by, a.department_id,
        a.course_id, c.name AS course_name, c.course_code, a.created_at, a.updated_at
        FROM assignments a JOIN courses c ON c.id = a.course_id`

// AssignmentRepository manages coursework.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns assignments matching filter ordered by due date. Department is resolved through the
// course so moved courses carry their assignments along.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error) {
	var conditions []string
	var args []interface{}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("c.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("a.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("a.created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("a.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	query := assignmentSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.due_date ASC, a.id"

	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// FindByID returns an assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, assignmentSelect+" WHERE a.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return &assignment, nil
}

// FindByIDs returns the assignments among ids that exist.
func (r *AssignmentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Assignment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, assignmentSelect+" WHERE a.id = ANY($1)", pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("get assignments: %w", err)
	}
	return assignments, nil
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, title, description, due_date, level, status, created_by, department_id, course_id, created_at, updated_at)
        VALUES (:id, :title, :description, :due_date, :level, :status, :created_by, :department_id, :course_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", classify(err))
	}
	return nil
}

// Update overwrites title, description, due date and status.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = :title, description = :description, due_date = :due_date, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an assignment and its submissions.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return expectAffected(res)
}

// DeleteMany removes the listed assignments in one statement and returns how many were removed.
func (r *AssignmentRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("bulk delete assignments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// Count returns the number of assignments.
func (r *AssignmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM assignments`); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return total, nil
}
