package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type fakeAuthService struct {
	forgotErr  error
	lastBase   models.ResetLinkBase
	lastForgot models.ForgotPasswordRequest
	resetErr   error
	tokenErr   error
}

func (f *fakeAuthService) Register(context.Context, models.RegisterRequest) (*models.UserInfo, error) {
	return &models.UserInfo{ID: "u1"}, nil
}

func (f *fakeAuthService) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{}, nil
}

func (f *fakeAuthService) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{}, nil
}

func (f *fakeAuthService) Logout(context.Context, string, string, models.LoginRequest) error {
	return nil
}

func (f *fakeAuthService) ChangePassword(context.Context, string, models.ChangePasswordRequest) error {
	return nil
}

func (f *fakeAuthService) ForgotPassword(_ context.Context, req models.ForgotPasswordRequest, base models.ResetLinkBase) error {
	f.lastForgot, f.lastBase = req, base
	return f.forgotErr
}

func (f *fakeAuthService) GetByResetPasswordToken(context.Context, string) (*models.User, error) {
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &models.User{ID: "u1"}, nil
}

func (f *fakeAuthService) ResetPassword(context.Context, models.ConfirmResetPasswordRequest) error {
	return f.resetErr
}

func jsonContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestAuthHandlerForgotPasswordAccepted(t *testing.T) {
	svc := &fakeAuthService{}
	handler := NewAuthHandler(svc)

	c, rec := jsonContext(http.MethodPost, "/api/v1/forgot-password", `{"email":"ada@example.com"}`)
	c.Request.Host = "portal.example.com:8443"
	c.Request.Header.Set("X-Forwarded-Proto", "https")

	handler.ForgotPassword(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "ada@example.com", svc.lastForgot.Email)
	assert.Equal(t, models.ResetLinkBase{Scheme: "https", Host: "portal.example.com", Port: "8443"}, svc.lastBase)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Data["message"], "reset password link")
}

func TestAuthHandlerForgotPasswordUnknownEmail(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{forgotErr: appErrors.Clone(appErrors.ErrNotFound, "no account for that email")})

	c, rec := jsonContext(http.MethodPost, "/api/v1/forgot-password", `{"email":"ghost@example.com"}`)
	handler.ForgotPassword(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthHandlerRejectsMalformedJSON(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{})

	c, rec := jsonContext(http.MethodPost, "/api/v1/register", `{"username":`)
	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerResetPassword(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{})

	c, rec := jsonContext(http.MethodPost, "/api/v1/reset-password", `{"token":"abc","new_password":"secret99"}`)
	handler.ResetPassword(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "You have successfully changed your password.", envelope.Data["message"])
}

func TestAuthHandlerValidateResetTokenInvalid(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{tokenErr: appErrors.Clone(appErrors.ErrNotFound, "invalid or expired token")})

	c, rec := jsonContext(http.MethodGet, "/api/v1/reset-password?token=nope", "")
	handler.ValidateResetToken(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "invalid or expired token", envelope.Error["message"])
}
