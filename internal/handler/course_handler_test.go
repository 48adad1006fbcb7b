package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type fakeCourseService struct {
	courseService
	registerErr  error
	lastFilter   models.CourseFilter
	lastCourseID string
}

func (f *fakeCourseService) List(_ context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.Course{{ID: "c1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeCourseService) RegisterCourse(_ context.Context, _ *models.JWTClaims, courseID string) (*models.RegisteredCourses, error) {
	f.lastCourseID = courseID
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.RegisteredCourses{Courses: []models.Course{{ID: courseID, CreditUnits: 3}}, TotalCredits: 3}, nil
}

type fakeRoster struct {
	lastFormat models.ExportFormat
}

func (f *fakeRoster) Export(_ context.Context, _ *models.JWTClaims, _ string, format models.ExportFormat) (*models.RosterFile, error) {
	f.lastFormat = format
	return &models.RosterFile{FileName: "CS101-students.csv", ContentType: "text/csv", Body: []byte("Full Name\nAda\n")}, nil
}

func TestCourseHandlerListPassesFilter(t *testing.T) {
	svc := &fakeCourseService{}
	handler := NewCourseHandler(svc, &fakeRoster{})

	c, rec := jsonContext(http.MethodGet, "/api/v1/courses?department_id=d1&search=alg&page=2&page_size=5", "")
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CourseFilter{DepartmentID: "d1", Search: "alg", Page: 2, PageSize: 5}, svc.lastFilter)
}

func TestCourseHandlerRegister(t *testing.T) {
	svc := &fakeCourseService{}
	handler := NewCourseHandler(svc, &fakeRoster{})

	c, rec := jsonContext(http.MethodPost, "/api/v1/student/courses/c1/register", "")
	c.AddParam("id", "c1")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	handler.Register(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", svc.lastCourseID)
	assert.Contains(t, rec.Body.String(), `"total_credits":3`)
}

func TestCourseHandlerRegisterOverCreditLimit(t *testing.T) {
	svc := &fakeCourseService{registerErr: appErrors.Clone(appErrors.ErrCreditLimit, "credit limit exceeded")}
	handler := NewCourseHandler(svc, &fakeRoster{})

	c, rec := jsonContext(http.MethodPost, "/api/v1/student/courses/c9/register", "")
	c.AddParam("id", "c9")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	handler.Register(c)

	assert.Equal(t, appErrors.ErrCreditLimit.Status, rec.Code)
}

func TestCourseHandlerRegisterWithoutClaims(t *testing.T) {
	handler := NewCourseHandler(&fakeCourseService{}, &fakeRoster{})

	c, rec := jsonContext(http.MethodPost, "/api/v1/student/courses/c1/register", "")
	handler.Register(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCourseHandlerExport(t *testing.T) {
	roster := &fakeRoster{}
	handler := NewCourseHandler(&fakeCourseService{}, roster)

	c, rec := jsonContext(http.MethodGet, "/api/v1/courses/c1/students/export", "")
	c.AddParam("id", "c1")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "l1", Role: models.RoleLecturer})
	handler.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExportFormatCSV, roster.lastFormat)
	assert.Equal(t, `attachment; filename="CS101-students.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Full Name\nAda\n", rec.Body.String())
}

func TestCourseHandlerExportRejectsUnknownFormat(t *testing.T) {
	handler := NewCourseHandler(&fakeCourseService{}, &fakeRoster{})

	c, rec := jsonContext(http.MethodGet, "/api/v1/courses/c1/students/export?format=xlsx", "")
	c.AddParam("id", "c1")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "l1", Role: models.RoleLecturer})
	handler.Export(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
