package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockForumRepo struct {
	posts     []*models.ForumPost
	lastLimit int
}

func (m *mockForumRepo) ListByCourse(ctx context.Context, courseID string, limit, offset int) ([]models.ForumPost, error) {
	m.lastLimit = limit
	var out []models.ForumPost
	for i := len(m.posts) - 1; i >= 0; i-- {
		if m.posts[i].CourseID == courseID {
			out = append(out, *m.posts[i])
		}
	}
	return out, nil
}

func (m *mockForumRepo) FindByID(ctx context.Context, id string) (*models.ForumPost, error) {
	for _, p := range m.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockForumRepo) Create(ctx context.Context, post *models.ForumPost) error {
	post.ID = "p" + string(rune('1'+len(m.posts)))
	m.posts = append(m.posts, post)
	return nil
}

func (m *mockForumRepo) Delete(ctx context.Context, id string) error {
	for i, p := range m.posts {
		if p.ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestForumPostListDelete(t *testing.T) {
	repo := &mockForumRepo{}
	courses := newMockCourseRepo(&models.Course{ID: "c1", Name: "Intro to Java", DepartmentID: "d1"})
	svc := NewForumService(repo, courses, nil, nil)
	ctx := context.Background()
	author := &models.JWTClaims{UserID: "s1", Role: models.RoleStudent, FullName: "Stu Dent"}

	_, err := svc.Post(ctx, author, "c1", models.CreateForumPostRequest{Content: "   "})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.Post(ctx, author, "nope", models.CreateForumPostRequest{Content: "hello"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	first, err := svc.Post(ctx, author, "c1", models.CreateForumPostRequest{Content: "first"})
	require.NoError(t, err)
	assert.Equal(t, "Stu Dent", first.AuthorName)
	_, err = svc.Post(ctx, claimsFor("l1", models.RoleLecturer), "c1", models.CreateForumPostRequest{Content: "second"})
	require.NoError(t, err)

	posts, err := svc.List(ctx, "c1", 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[0].Content)
	assert.Equal(t, 10, repo.lastLimit)

	err = svc.Delete(ctx, studentClaims("s2"), first.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	err = svc.Delete(ctx, claimsFor("l1", models.RoleLecturer), first.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	require.NoError(t, svc.Delete(ctx, author, first.ID))

	second := repo.posts[0]
	require.NoError(t, svc.Delete(ctx, claimsFor("a1", models.RoleAdmin), second.ID))
	assert.Empty(t, repo.posts)
}
