package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const courseSelect = `SELECT c.id, c.name, c.course_code, c.credit_units, c.department_id, d.name AS department_name,
        c.lecturer_id, l.full_name AS lecturer_name, c.created_at, c.updated_at
        FROM courses c
        JOIN departments d ON d.id = c.department_id
        LEFT JOIN users l ON l.id = c.lecturer_id`

// CourseRepository manages courses and student course registrations.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching filter with the total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conditions []string
	var args []interface{}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("c.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.LecturerID != "" {
		conditions = append(conditions, fmt.Sprintf("c.lecturer_id = $%d", len(args)+1))
		args = append(args, filter.LecturerID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.name) LIKE $%d OR LOWER(c.course_code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY c.course_code ASC, c.id LIMIT %d OFFSET %d", courseSelect, clause, size, (page-1)*size)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses c"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ListByLecturer returns every course taught by lecturerID.
func (r *CourseRepository) ListByLecturer(ctx context.Context, lecturerID string) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, courseSelect+" WHERE c.lecturer_id = $1 ORDER BY c.course_code ASC", lecturerID); err != nil {
		return nil, fmt.Errorf("list lecturer courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course with department and lecturer names.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, courseSelect+" WHERE c.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &course, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, course_code, credit_units, department_id, lecturer_id, created_at, updated_at)
        VALUES (:id, :name, :course_code, :credit_units, :department_id, :lecturer_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", classify(err))
	}
	return nil
}

// Update overwrites the descriptive fields of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, course_code = :course_code, credit_units = :credit_units, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", classify(err))
	}
	return expectAffected(res)
}

// AssignLecturer sets the lecturer of a course.
func (r *CourseRepository) AssignLecturer(ctx context.Context, courseID, lecturerID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE courses SET lecturer_id = $2, updated_at = $3 WHERE id = $1`, courseID, lecturerID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("assign lecturer: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a course together with its registrations and assignments.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", classify(err))
	}
	return expectAffected(res)
}

// Count returns the number of courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}

// ListRegistered returns the courses a student carries.
func (r *CourseRepository) ListRegistered(ctx context.Context, studentID string) ([]models.Course, error) {
	query := courseSelect + " JOIN course_registrations cr ON cr.course_id = c.id WHERE cr.student_id = $1 ORDER BY c.course_code ASC"
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list registered courses: %w", err)
	}
	return courses, nil
}

// Register adds the course to the student's registration set. The student row is locked while
// the current credit total is summed so concurrent registrations cannot pass maxCredits.
// Returns false without error when the course was already registered.
func (r *CourseRepository) Register(ctx context.Context, studentID, courseID string, maxCredits int) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin register course: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, err
		}
		return false, fmt.Errorf("lock student: %w", err)
	}

	var exists bool
	if err = tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM course_registrations WHERE student_id = $1 AND course_id = $2)`, studentID, courseID); err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	if exists {
		err = tx.Commit()
		if err != nil {
			return false, fmt.Errorf("commit register course: %w", err)
		}
		return false, nil
	}

	var credits int
	const sumQuery = `SELECT COALESCE(SUM(c.credit_units), 0) FROM course_registrations cr JOIN courses c ON c.id = cr.course_id WHERE cr.student_id = $1`
	if err = tx.GetContext(ctx, &credits, sumQuery, studentID); err != nil {
		return false, fmt.Errorf("sum registered credits: %w", err)
	}
	var units int
	if err = tx.GetContext(ctx, &units, `SELECT credit_units FROM courses WHERE id = $1`, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, err
		}
		return false, fmt.Errorf("get course credits: %w", err)
	}
	if credits+units > maxCredits {
		err = ErrCreditLimit
		return false, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO course_registrations (student_id, course_id, registered_at) VALUES ($1, $2, $3)`, studentID, courseID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("insert registration: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit register course: %w", err)
	}
	return true, nil
}

// Drop removes the course from the student's registration set. Missing registrations are ignored.
func (r *CourseRepository) Drop(ctx context.Context, studentID, courseID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM course_registrations WHERE student_id = $1 AND course_id = $2`, studentID, courseID); err != nil {
		return fmt.Errorf("drop course: %w", err)
	}
	return nil
}
