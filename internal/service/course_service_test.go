package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockCourseRepo struct {
	courses       map[string]*models.Course
	registrations map[string][]string
	assigned      map[string]string
}

func newMockCourseRepo(courses ...*models.Course) *mockCourseRepo {
	m := &mockCourseRepo{courses: map[string]*models.Course{}, registrations: map[string][]string{}, assigned: map[string]string{}}
	for _, c := range courses {
		m.courses[c.ID] = c
	}
	return m
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, c := range m.courses {
		if filter.DepartmentID == "" || c.DepartmentID == filter.DepartmentID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) ListByLecturer(ctx context.Context, lecturerID string) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.courses {
		if c.TaughtBy(lecturerID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	course.ID = "c-" + course.CourseCode
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = course
	return nil
}

func (m *mockCourseRepo) AssignLecturer(ctx context.Context, courseID, lecturerID string) error {
	m.assigned[courseID] = lecturerID
	m.courses[courseID].LecturerID = &lecturerID
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) ListRegistered(ctx context.Context, studentID string) ([]models.Course, error) {
	var out []models.Course
	for _, id := range m.registrations[studentID] {
		out = append(out, *m.courses[id])
	}
	return out, nil
}

func (m *mockCourseRepo) Register(ctx context.Context, studentID, courseID string, maxCredits int) (bool, error) {
	total := 0
	for _, id := range m.registrations[studentID] {
		if id == courseID {
			return false, nil
		}
		total += m.courses[id].CreditUnits
	}
	if total+m.courses[courseID].CreditUnits > maxCredits {
		return false, repository.ErrCreditLimit
	}
	m.registrations[studentID] = append(m.registrations[studentID], courseID)
	return true, nil
}

func (m *mockCourseRepo) Drop(ctx context.Context, studentID, courseID string) error {
	kept := m.registrations[studentID][:0]
	for _, id := range m.registrations[studentID] {
		if id != courseID {
			kept = append(kept, id)
		}
	}
	m.registrations[studentID] = kept
	return nil
}

func newCourseFixture() (*CourseService, *mockCourseRepo, *mockUserRepo) {
	courses := newMockCourseRepo(
		&models.Course{ID: "c1", Name: "Intro to Java", CourseCode: "CSC101", CreditUnits: 12, DepartmentID: "d1", LecturerID: strPtr("l1")},
		&models.Course{ID: "c2", Name: "Data Structures", CourseCode: "CSC201", CreditUnits: 10, DepartmentID: "d1"},
		&models.Course{ID: "c3", Name: "Algorithms", CourseCode: "CSC301", CreditUnits: 3, DepartmentID: "d1"},
	)
	users := newUserFixture()
	matric := "1234567"
	users.users["s1"].FullName = "Ada, \"Lovelace\""
	users.users["s1"].MatricNumber = &matric
	return NewCourseService(courses, users, nil, nil, nil, nil), courses, users
}

func TestRegisterCourseCreditCeiling(t *testing.T) {
	svc, courses, _ := newCourseFixture()
	student := studentClaims("s1")

	res, err := svc.RegisterCourse(context.Background(), student, "c1")
	require.NoError(t, err)
	assert.Equal(t, 12, res.TotalCredits)

	res, err = svc.RegisterCourse(context.Background(), student, "c2")
	require.NoError(t, err)
	assert.Equal(t, 22, res.TotalCredits)

	_, err = svc.RegisterCourse(context.Background(), student, "c3")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCreditLimit))
	assert.Len(t, courses.registrations["s1"], 2)

	res, err = svc.RegisterCourse(context.Background(), student, "c1")
	require.NoError(t, err)
	assert.True(t, res.AlreadyRegistered)
	assert.Equal(t, 22, res.TotalCredits)

	res, err = svc.DropCourse(context.Background(), student, "c2")
	require.NoError(t, err)
	assert.Equal(t, 12, res.TotalCredits)

	res, err = svc.RegisterCourse(context.Background(), student, "c3")
	require.NoError(t, err)
	assert.Equal(t, 15, res.TotalCredits)
}

func TestRegisterCourseRequiresStudent(t *testing.T) {
	svc, _, _ := newCourseFixture()
	_, err := svc.RegisterCourse(context.Background(), &models.JWTClaims{UserID: "l1", Role: models.RoleLecturer}, "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.RegisterCourse(context.Background(), studentClaims("s1"), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAssignLecturerRejectsNonLecturer(t *testing.T) {
	svc, courses, _ := newCourseFixture()
	admin := &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}

	_, err := svc.AssignLecturer(context.Background(), admin, "c2", "s1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Nil(t, courses.courses["c2"].LecturerID)

	_, err = svc.AssignLecturer(context.Background(), admin, "c2", "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	course, err := svc.AssignLecturer(context.Background(), admin, "c2", "l1")
	require.NoError(t, err)
	assert.True(t, course.TaughtBy("l1"))
	assert.Equal(t, "l1", courses.assigned["c2"])
}

func TestCourseStudentsOwnership(t *testing.T) {
	svc, _, _ := newCourseFixture()

	_, students, err := svc.CourseStudents(context.Background(), &models.JWTClaims{UserID: "l1", Role: models.RoleLecturer}, "c1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "s1", students[0].ID)

	_, _, err = svc.CourseStudents(context.Background(), &models.JWTClaims{UserID: "l1", Role: models.RoleLecturer}, "c2")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
