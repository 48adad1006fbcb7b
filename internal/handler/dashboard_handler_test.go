package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type fakeDashboardSrv struct {
	adminResp    *dto.AdminDashboardResponse
	adminErr     error
	adminHit     bool
	lecturerResp *dto.LecturerDashboardResponse
	studentResp  *dto.StudentDashboardResponse
	studentErr   error
	lastActor    *models.JWTClaims
}

func (f *fakeDashboardSrv) Admin(context.Context) (*dto.AdminDashboardResponse, bool, error) {
	return f.adminResp, f.adminHit, f.adminErr
}

func (f *fakeDashboardSrv) Lecturer(_ context.Context, actor *models.JWTClaims) (*dto.LecturerDashboardResponse, error) {
	f.lastActor = actor
	return f.lecturerResp, nil
}

func (f *fakeDashboardSrv) Student(_ context.Context, actor *models.JWTClaims) (*dto.StudentDashboardResponse, error) {
	f.lastActor = actor
	return f.studentResp, f.studentErr
}

func TestDashboardHandlerAdminSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{
		adminResp: &dto.AdminDashboardResponse{Departments: 3, Users: dto.AdminUserCounts{Students: 12}},
		adminHit:  true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)

	handler.Admin(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get(middleware.CacheHeader))
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.EqualValues(t, 3, envelope.Data["departments"])
}

func TestDashboardHandlerAdminError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{adminErr: appErrors.ErrInternal})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)

	handler.Admin(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardHandlerStudentRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/student/dashboard", nil)

	handler.Student(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerStudentSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{
		studentResp: &dto.StudentDashboardResponse{StudentID: "s1", TotalCredits: 9},
	}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/student/dashboard", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})

	handler.Student(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, service.lastActor)
	assert.Equal(t, "s1", service.lastActor.UserID)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.EqualValues(t, 9, envelope.Data["totalCredits"])
}

func TestDashboardHandlerLecturerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{
		lecturerResp: &dto.LecturerDashboardResponse{LecturerID: "l1"},
	}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/lecturer/dashboard", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "l1", Role: models.RoleLecturer})

	handler.Lecturer(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "l1", service.lastActor.UserID)
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error map[string]interface{} `json:"error"`
}
