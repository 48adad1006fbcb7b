package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/mail"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	createErr     error
	auditLogs     []*models.AuditLog
	revokedUsers  []string
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	m := &mockAuthRepo{users: map[string]*models.User{}, refreshTokens: map[string]*models.RefreshToken{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAuthRepo) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username })
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *mockAuthRepo) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	return m.find(func(u *models.User) bool {
		return u.ResetPasswordToken != nil && *u.ResetPasswordToken == token &&
			u.ResetPasswordTokenExpiry != nil && u.ResetPasswordTokenExpiry.After(now)
	})
}

func (m *mockAuthRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.ID == "" {
		user.ID = "user-" + user.Username
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) SetResetToken(ctx context.Context, id string, token *string, expiry *time.Time) error {
	if u, ok := m.users[id]; ok {
		u.ResetPasswordToken = token
		u.ResetPasswordTokenExpiry = expiry
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := m.refreshTokens[token]; ok {
		return rt, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, rt := range m.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type recordingMailer struct {
	to    []mail.Address
	links []string
}

func (r *recordingMailer) SendResetLink(ctx context.Context, to mail.Address, link string) error {
	r.to = append(r.to, to)
	r.links = append(r.links, link)
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestAuthService(repo *mockAuthRepo, mailer resetLinkSender) *AuthService {
	return NewAuthService(repo, mailer, nil, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		AdminCode:          "ADMIN123",
	})
}

func TestRegisterRoleFromAdminCode(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), nil)

	student, err := svc.Register(context.Background(), models.RegisterRequest{Username: "stud", Password: "secret1", FullName: "Stu Dent"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, student.Role)

	lecturer, err := svc.Register(context.Background(), models.RegisterRequest{Username: "lect", Password: "secret1", FullName: "Lec Turer", AdminCode: "ADMIN123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleLecturer, lecturer.Role)

	_, err = svc.Register(context.Background(), models.RegisterRequest{Username: "other", Password: "secret1", FullName: "Other", AdminCode: "WRONG"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Username: "taken"})
	svc := newTestAuthService(repo, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "taken", Password: "secret1", FullName: "Dup"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	repo.createErr = repository.ErrDuplicate
	_, err = svc.Register(context.Background(), models.RegisterRequest{Username: "race", Password: "secret1", FullName: "Race"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestLoginAndRefresh(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Username: "jdoe", PasswordHash: hashed(t, "password"), FullName: "John", Role: models.RoleStudent})
	svc := newTestAuthService(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "wrong"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "jdoe", claims.Username)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.refreshTokens[resp.RefreshToken].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: resp.RefreshToken})
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestForgotPasswordSendsLinkAndResetConsumesToken(t *testing.T) {
	user := &models.User{ID: "u1", Username: "jdoe", Email: "j@example.com", FullName: "John", PasswordHash: hashed(t, "old-password"), Role: models.RoleStudent}
	repo := newMockAuthRepo(user)
	mailer := &recordingMailer{}
	svc := newTestAuthService(repo, mailer)

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "j@example.com"}, models.ResetLinkBase{Scheme: "http", Host: "localhost", Port: "8080"})
	require.NoError(t, err)
	require.NotNil(t, user.ResetPasswordToken)
	require.Len(t, mailer.links, 1)
	assert.Equal(t, "http://localhost:8080/reset-password?token="+*user.ResetPasswordToken, mailer.links[0])
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *user.ResetPasswordTokenExpiry, time.Minute)

	token := *user.ResetPasswordToken
	require.NoError(t, svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{Token: token, NewPassword: "new-password"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password")))
	assert.Nil(t, user.ResetPasswordToken)
	assert.Contains(t, repo.revokedUsers, "u1")

	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{Token: token, NewPassword: "again-password"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), &recordingMailer{})

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "nobody@example.com"}, models.ResetLinkBase{Scheme: "http", Host: "localhost", Port: "8080"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestGetByResetPasswordTokenExpired(t *testing.T) {
	token := "expired-token"
	past := time.Now().Add(-time.Minute)
	repo := newMockAuthRepo(&models.User{ID: "u1", ResetPasswordToken: &token, ResetPasswordTokenExpiry: &past})
	svc := newTestAuthService(repo, nil)

	_, err := svc.GetByResetPasswordToken(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, "invalid or expired token", appErrors.FromError(err).Message)

	_, err = svc.GetByResetPasswordToken(context.Background(), "unknown")
	assert.Equal(t, "invalid or expired token", appErrors.FromError(err).Message)
}

func TestResetLinkWithoutPort(t *testing.T) {
	assert.Equal(t, "https://school.example/reset-password?token=abc", ResetLink(models.ResetLinkBase{Scheme: "https", Host: "school.example"}, "abc"))
}
