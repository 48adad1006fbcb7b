package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestUpsertSubmissionReturnsPreviousFile(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT submission_content FROM submissions WHERE student_id = $1 AND assignment_id = $2 FOR UPDATE")).
		WithArgs("s1", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"submission_content"}).AddRow("100_submission_old.pdf"))
	gradedAt := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, assignment_id) DO UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "grade", "feedback", "graded_at"}).AddRow("sub-existing", 70, "solid work", gradedAt))
	mock.ExpectCommit()

	sub := &models.Submission{StudentID: "s1", AssignmentID: "a1", SubmissionContent: "200_submission_new.pdf", OriginalFileName: "new.pdf"}
	previous, err := repo.Upsert(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "100_submission_old.pdf", previous)
	assert.Equal(t, "sub-existing", sub.ID)
	require.NotNil(t, sub.Grade)
	assert.Equal(t, 70, *sub.Grade)
	assert.Equal(t, "solid work", sub.Feedback)
	require.NotNil(t, sub.GradedAt)
	assert.True(t, gradedAt.Equal(*sub.GradedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSubmissionFirstTime(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT submission_content FROM submissions").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO submissions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "grade", "feedback", "graded_at"}).AddRow("sub-new", nil, "", nil))
	mock.ExpectCommit()

	sub := &models.Submission{StudentID: "s1", AssignmentID: "a1", SubmissionContent: "f.pdf"}
	previous, err := repo.Upsert(context.Background(), sub)
	require.NoError(t, err)
	assert.Empty(t, previous)
	assert.Equal(t, "sub-new", sub.ID)
	assert.Nil(t, sub.Grade)
	assert.Nil(t, sub.GradedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeSubmission(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET grade = $2, feedback = $3, graded_at = $4 WHERE id = $1")).
		WithArgs("sub1", 85, "good", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Grade(context.Background(), "sub1", 85, "good", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageForStudentWithoutGrades(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery("SELECT AVG\\(grade\\)").WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"average", "graded"}).AddRow(nil, 0))

	avg, err := repo.AverageForStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, avg.Average)
	assert.Equal(t, 0, avg.Graded)
}
