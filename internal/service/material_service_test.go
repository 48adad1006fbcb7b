package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

type mockMaterialRepo struct {
	items map[string]*models.CourseMaterial
}

func (m *mockMaterialRepo) ListByCourse(ctx context.Context, courseID string) ([]models.CourseMaterial, error) {
	var out []models.CourseMaterial
	for _, item := range m.items {
		if item.CourseID == courseID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockMaterialRepo) FindByID(ctx context.Context, id string) (*models.CourseMaterial, error) {
	if item, ok := m.items[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMaterialRepo) Create(ctx context.Context, material *models.CourseMaterial) error {
	material.ID = "m" + string(rune('1'+len(m.items)))
	m.items[material.ID] = material
	return nil
}

func (m *mockMaterialRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func newMaterialFixture(t *testing.T) (*MaterialService, *mockMaterialRepo, *storage.LocalStorage) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := &mockMaterialRepo{items: map[string]*models.CourseMaterial{}}
	courses := newMockCourseRepo(
		&models.Course{ID: "c1", Name: "Intro to Java", DepartmentID: "d1", LecturerID: strPtr("l1")},
	)
	return NewMaterialService(repo, courses, newUserFixture(), files, 1<<20, nil), repo, files
}

func TestMaterialUploadAndDownload(t *testing.T) {
	svc, repo, _ := newMaterialFixture(t)
	ctx := context.Background()
	upload := func() *models.Upload {
		return &models.Upload{FileName: "week1.pdf", Size: 5, Content: strings.NewReader("slide")}
	}

	_, err := svc.Upload(ctx, claimsFor("l2", models.RoleLecturer), "c1", "", upload())
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	_, err = svc.Upload(ctx, studentClaims("s1"), "c1", "", upload())
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	material, err := svc.Upload(ctx, claimsFor("l1", models.RoleLecturer), "c1", "", upload())
	require.NoError(t, err)
	assert.Equal(t, "week1.pdf", material.Title)
	assert.Regexp(t, `^\d+_material_week1\.pdf$`, material.FilePath)
	assert.Len(t, repo.items, 1)

	res, err := svc.Download(ctx, studentClaims("s1"), material.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(res.File)
	require.NoError(t, err)
	require.NoError(t, res.File.Close())
	assert.Equal(t, "slide", string(body))
	assert.Equal(t, "week1.pdf", res.Name)

	_, err = svc.Download(ctx, studentClaims("s2"), material.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestMaterialDeleteRemovesFile(t *testing.T) {
	svc, repo, files := newMaterialFixture(t)
	ctx := context.Background()
	material, err := svc.Upload(ctx, claimsFor("a1", models.RoleAdmin), "c1", "Syllabus", &models.Upload{FileName: "s.pdf", Size: 4, Content: strings.NewReader("text")})
	require.NoError(t, err)
	assert.Equal(t, "Syllabus", material.Title)

	require.NoError(t, svc.Delete(ctx, claimsFor("l1", models.RoleLecturer), material.ID))
	assert.Empty(t, repo.items)
	_, err = files.Open(material.FilePath)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.Delete(ctx, claimsFor("l1", models.RoleLecturer), material.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestMaterialUploadRejectsEmptyFile(t *testing.T) {
	svc, repo, _ := newMaterialFixture(t)
	_, err := svc.Upload(context.Background(), claimsFor("l1", models.RoleLecturer), "c1", "", &models.Upload{FileName: "x.pdf", Content: strings.NewReader("")})
	assert.True(t, appErrors.Is(err, appErrors.ErrStorage))
	assert.Empty(t, repo.items)
}
