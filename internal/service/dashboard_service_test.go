package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type fixedCounter struct {
	n     int
	calls int
}

func (f *fixedCounter) Count(context.Context) (int, error) {
	f.calls++
	return f.n, nil
}

type fakeRoleCounter map[models.UserRole]int

func (f fakeRoleCounter) CountByRole(context.Context) (map[models.UserRole]int, error) {
	return f, nil
}

type fakeSubmissionStats struct {
	counts []repository.SubmissionCounts
	mine   []models.Submission
	avg    *models.GradeAverage
}

func (f *fakeSubmissionStats) CountsByCreator(context.Context, string) ([]repository.SubmissionCounts, error) {
	return f.counts, nil
}

func (f *fakeSubmissionStats) ListByStudent(context.Context, string) ([]models.Submission, error) {
	return f.mine, nil
}

func (f *fakeSubmissionStats) AverageForStudent(context.Context, string) (*models.GradeAverage, error) {
	return f.avg, nil
}

func TestDashboardAdminCachesTotals(t *testing.T) {
	cache := newMemoryCacheRepo()
	departments := &fixedCounter{n: 3}
	svc := NewDashboardService(DashboardServiceParams{
		Users:           fakeRoleCounter{models.RoleAdmin: 1, models.RoleLecturer: 4, models.RoleStudent: 40},
		Departments:     departments,
		CourseCounter:   &fixedCounter{n: 12},
		AssignmentCount: &fixedCounter{n: 7},
		SubmissionCount: &fixedCounter{n: 90},
		Cache:           NewCacheService(cache, nil, time.Minute, nil, true),
	})

	summary, hit, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 40, summary.Users.Students)
	assert.Equal(t, 4, summary.Users.Lecturers)
	assert.Equal(t, 3, summary.Departments)
	assert.Equal(t, 12, summary.Courses)
	assert.Equal(t, 7, summary.Assignments)
	assert.Equal(t, 90, summary.Submissions)

	summary, hit, err = svc.Admin(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 40, summary.Users.Students)
	assert.Equal(t, 1, departments.calls)
}

func TestDashboardLecturerJoinsCounts(t *testing.T) {
	f := newAssignmentFixture()
	courses := newMockCourseRepo(
		&models.Course{ID: "c1", Name: "Intro to Java", CreditUnits: 3, DepartmentID: "d1", LecturerID: strPtr("l1")},
	)
	stats := &fakeSubmissionStats{counts: []repository.SubmissionCounts{{AssignmentID: "as1", Submitted: 5, Graded: 2}}}
	svc := NewDashboardService(DashboardServiceParams{Courses: courses, Assignments: f.svc, Submissions: stats})

	resp, err := svc.Lecturer(context.Background(), claimsFor("l1", models.RoleLecturer))
	require.NoError(t, err)
	assert.Len(t, resp.Courses, 1)
	require.Len(t, resp.Assignments, 3)
	for _, a := range resp.Assignments {
		if a.ID == "as1" {
			assert.Equal(t, 5, a.SubmissionCount)
			assert.Equal(t, 2, a.GradedCount)
		} else {
			assert.Zero(t, a.SubmissionCount)
		}
	}

	_, err = svc.Lecturer(context.Background(), studentClaims("s1"))
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestDashboardStudentSummary(t *testing.T) {
	f := newAssignmentFixture()
	courses := newMockCourseRepo(
		&models.Course{ID: "c1", CreditUnits: 3, DepartmentID: "d1"},
		&models.Course{ID: "c2", CreditUnits: 4, DepartmentID: "d1"},
	)
	courses.registrations["s1"] = []string{"c1", "c2"}
	avg := 72.5
	stats := &fakeSubmissionStats{
		mine: []models.Submission{{AssignmentID: "as1"}},
		avg:  &models.GradeAverage{Average: &avg, Graded: 2},
	}
	svc := NewDashboardService(DashboardServiceParams{Courses: courses, Assignments: f.svc, Submissions: stats})

	resp, err := svc.Student(context.Background(), studentClaims("s1"))
	require.NoError(t, err)
	assert.Equal(t, "s1", resp.StudentID)
	require.Len(t, resp.Assignments, 1)
	assert.Equal(t, []string{"as1"}, resp.SubmittedAssignmentIDs)
	assert.Equal(t, 7, resp.TotalCredits)
	require.NotNil(t, resp.AverageGrade)
	assert.InDelta(t, 72.5, *resp.AverageGrade, 0.001)
}
