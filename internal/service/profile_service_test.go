package service

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

type mockProfileRepo struct {
	users   map[string]*models.User
	updated []*models.User
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) FindByMatricNumber(ctx context.Context, matric string) (*models.User, error) {
	for _, u := range m.users {
		if u.MatricNumber != nil && *u.MatricNumber == matric {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	m.updated = append(m.updated, user)
	m.users[user.ID] = user
	return nil
}

func (m *mockProfileRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

type mockDepartmentLookup map[string]*models.Department

func (m mockDepartmentLookup) FindByName(ctx context.Context, name string) (*models.Department, error) {
	if d, ok := m[name]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func newProfileFixture(t *testing.T) (*ProfileService, *mockProfileRepo, string) {
	t.Helper()
	taken := "7654321"
	repo := &mockProfileRepo{users: map[string]*models.User{
		"s1": {ID: "s1", Username: "stud", Role: models.RoleStudent},
		"s2": {ID: "s2", Username: "other", Role: models.RoleStudent, MatricNumber: &taken},
		"l1": {ID: "l1", Username: "lect", Role: models.RoleLecturer},
	}}
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	depts := mockDepartmentLookup{"Computer Science": {ID: "d1", Name: "Computer Science"}}
	return NewProfileService(repo, depts, files, 1<<20, nil, nil), repo, dir
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent}
}

func TestUpdateStudentProfileMatricRules(t *testing.T) {
	svc, _, _ := newProfileFixture(t)
	base := models.StudentProfileUpdate{FullName: "Stu Dent", Level: "100L", DepartmentName: "Computer Science"}

	for _, matric := range []string{"123456", "12345678", "12a4567", ""} {
		req := base
		req.MatricNumber = matric
		_, err := svc.UpdateStudentProfile(context.Background(), studentClaims("s1"), req, nil)
		assert.Truef(t, appErrors.Is(err, appErrors.ErrValidation), "matric %q", matric)
	}

	req := base
	req.MatricNumber = "7654321"
	_, err := svc.UpdateStudentProfile(context.Background(), studentClaims("s1"), req, nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	// keeping one's own matric number is not a conflict
	_, err = svc.UpdateStudentProfile(context.Background(), studentClaims("s2"), models.StudentProfileUpdate{FullName: "Other", MatricNumber: "7654321"}, nil)
	assert.NoError(t, err)
}

func TestUpdateStudentProfileResolvesDepartmentByName(t *testing.T) {
	svc, _, _ := newProfileFixture(t)

	user, err := svc.UpdateStudentProfile(context.Background(), studentClaims("s1"), models.StudentProfileUpdate{
		FullName: "Stu Dent", MatricNumber: "1234567", Level: "200L", DepartmentName: "Computer Science",
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, user.DepartmentID)
	assert.Equal(t, "d1", *user.DepartmentID)
	assert.Equal(t, "200L", user.Level)

	user, err = svc.UpdateStudentProfile(context.Background(), studentClaims("s1"), models.StudentProfileUpdate{
		FullName: "Stu Dent", MatricNumber: "1234567", DepartmentName: "Alchemy",
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, user.DepartmentID)
}

func TestUpdateStaffProfileScalesPicture(t *testing.T) {
	svc, repo, dir := newProfileFixture(t)

	img := image.NewRGBA(image.Rect(0, 0, 1024, 600))
	for x := 0; x < 1024; x++ {
		img.Set(x, x%600, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	lecturer := &models.JWTClaims{UserID: "l1", Role: models.RoleLecturer}
	user, err := svc.UpdateStaffProfile(context.Background(), lecturer, models.StaffProfileUpdate{FullName: "Dr Lect"},
		&models.Upload{FileName: "../avatar.png", ContentType: "image/png", Content: &buf})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(user.ProfilePic, "_profile_avatar.png"))
	assert.Equal(t, user.ProfilePic, repo.users["l1"].ProfilePic)

	stored, err := imaging.Open(filepath.Join(dir, user.ProfilePic))
	require.NoError(t, err)
	assert.Equal(t, 512, stored.Bounds().Dx())
	assert.LessOrEqual(t, stored.Bounds().Dy(), 512)

	res, err := svc.LoadProfilePic(user.ProfilePic)
	require.NoError(t, err)
	res.File.Close()
}

func TestUpdateStaffProfileRejectsNonImage(t *testing.T) {
	svc, _, _ := newProfileFixture(t)
	lecturer := &models.JWTClaims{UserID: "l1", Role: models.RoleLecturer}

	_, err := svc.UpdateStaffProfile(context.Background(), lecturer, models.StaffProfileUpdate{FullName: "Dr Lect"},
		&models.Upload{FileName: "notes.png", Content: strings.NewReader("plain text pretending")})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.UpdateStaffProfile(context.Background(), lecturer, models.StaffProfileUpdate{FullName: "Dr Lect"},
		&models.Upload{FileName: "empty.png", Content: strings.NewReader("")})
	assert.True(t, appErrors.Is(err, appErrors.ErrStorage))
}

func TestLoadProfilePicErrors(t *testing.T) {
	svc, _, _ := newProfileFixture(t)

	_, err := svc.LoadProfilePic("missing.png")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.LoadProfilePic("1700000000000_profile_../../etc/passwd")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.LoadProfilePic("../etc/passwd")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestLoadProfilePicRefusesOtherUploadKinds(t *testing.T) {
	svc, _, dir := newProfileFixture(t)
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	for _, kind := range []string{"submission", "material"} {
		name, err := files.Store(kind, "exam.pdf", strings.NewReader("%PDF-1.4 answers"))
		require.NoError(t, err)

		res, err := svc.LoadProfilePic(name)
		assert.Nil(t, res)
		assert.True(t, appErrors.Is(err, appErrors.ErrNotFound), kind)
	}
}
