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

const submissionSelect = `SELECT s.id, s.student_id, s.assignment_id, s.submission_content, s.original_file_name, s.content_type,
        s.grade, s.feedback, s.submitted_at, s.graded_at, u.full_name AS student_name, u.matric_number, a.title AS assignment_title
        FROM submissions s
        JOIN users u ON u.id = s.student_id
        JOIN assignments a ON a.id = s.assignment_id`

// SubmissionRepository manages student submissions and grades.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Upsert records a submission for (student, assignment). A resubmission replaces the stored file
// reference and submission time and keeps any grade, which is scanned back into submission. The
// previous stored file name is returned so the caller can remove it; it is empty on first
// submission.
func (r *SubmissionRepository) Upsert(ctx context.Context, submission *models.Submission) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin upsert submission: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var previous string
	err = tx.GetContext(ctx, &previous, `SELECT submission_content FROM submissions WHERE student_id = $1 AND assignment_id = $2 FOR UPDATE`, submission.StudentID, submission.AssignmentID)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("find previous submission: %w", err)
	}

	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submissions (id, student_id, assignment_id, submission_content, original_file_name, content_type, submitted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (student_id, assignment_id) DO UPDATE SET submission_content = EXCLUDED.submission_content,
        original_file_name = EXCLUDED.original_file_name, content_type = EXCLUDED.content_type, submitted_at = EXCLUDED.submitted_at
        RETURNING id, grade, feedback, graded_at`
	row := tx.QueryRowxContext(ctx, query, submission.ID, submission.StudentID, submission.AssignmentID,
		submission.SubmissionContent, submission.OriginalFileName, submission.ContentType, submission.SubmittedAt)
	if err = row.Scan(&submission.ID, &submission.Grade, &submission.Feedback, &submission.GradedAt); err != nil {
		return "", fmt.Errorf("upsert submission: %w", classify(err))
	}
	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit upsert submission: %w", err)
	}
	return previous, nil
}

// FindByID returns a submission with student and assignment names.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, submissionSelect+" WHERE s.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &submission, nil
}

// FindByStudentAndAssignment returns the student's submission for an assignment.
func (r *SubmissionRepository) FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, submissionSelect+" WHERE s.student_id = $1 AND s.assignment_id = $2", studentID, assignmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get student submission: %w", err)
	}
	return &submission, nil
}

// ListByAssignment returns every submission for an assignment ordered by student name.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, submissionSelect+" WHERE s.assignment_id = $1 ORDER BY u.full_name ASC", assignmentID); err != nil {
		return nil, fmt.Errorf("list assignment submissions: %w", err)
	}
	return submissions, nil
}

// ListByStudent returns a student's submissions, newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, submissionSelect+" WHERE s.student_id = $1 ORDER BY s.submitted_at DESC", studentID); err != nil {
		return nil, fmt.Errorf("list student submissions: %w", err)
	}
	return submissions, nil
}

// Grade stores a mark and feedback. Regrading overwrites the previous values.
func (r *SubmissionRepository) Grade(ctx context.Context, id string, grade int, feedback string, gradedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE submissions SET grade = $2, feedback = $3, graded_at = $4 WHERE id = $1`, id, grade, feedback, gradedAt)
	if err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return expectAffected(res)
}

// AverageForAssignment returns the mean grade over graded submissions of an assignment.
func (r *SubmissionRepository) AverageForAssignment(ctx context.Context, assignmentID string) (*models.GradeAverage, error) {
	var avg models.GradeAverage
	const query = `SELECT AVG(grade)::float8 AS average, COUNT(grade) AS graded FROM submissions WHERE assignment_id = $1 AND grade IS NOT NULL`
	if err := r.db.GetContext(ctx, &avg, query, assignmentID); err != nil {
		return nil, fmt.Errorf("average assignment grade: %w", err)
	}
	return &avg, nil
}

// AverageForStudent returns the mean grade over a student's graded submissions.
func (r *SubmissionRepository) AverageForStudent(ctx context.Context, studentID string) (*models.GradeAverage, error) {
	var avg models.GradeAverage
	const query = `SELECT AVG(grade)::float8 AS average, COUNT(grade) AS graded FROM submissions WHERE student_id = $1 AND grade IS NOT NULL`
	if err := r.db.GetContext(ctx, &avg, query, studentID); err != nil {
		return nil, fmt.Errorf("average student grade: %w", err)
	}
	return &avg, nil
}

// SubmissionCounts is the number of submissions and graded submissions per assignment.
type SubmissionCounts struct {
	AssignmentID string `db:"assignment_id"`
	Submitted    int    `db:"submitted"`
	Graded       int    `db:"graded"`
}

// CountsByCreator aggregates submission counts for every assignment created by lecturerID.
func (r *SubmissionRepository) CountsByCreator(ctx context.Context, lecturerID string) ([]SubmissionCounts, error) {
	const query = `SELECT a.id AS assignment_id, COUNT(s.id) AS submitted, COUNT(s.grade) AS graded
        FROM assignments a LEFT JOIN submissions s ON s.assignment_id = a.id
        WHERE a.created_by = $1 GROUP BY a.id`
	var counts []SubmissionCounts
	if err := r.db.SelectContext(ctx, &counts, query, lecturerID); err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	return counts, nil
}

// Count returns the number of submissions.
func (r *SubmissionRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM submissions`); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return total, nil
}
