package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

func TestSaveDepartmentMapsConflicts(t *testing.T) {
	repo := &mockDepartmentRepo{createErr: repository.ErrDuplicate, deleteErr: repository.ErrInUse}
	svc := NewDepartmentService(repo, nil, nil)

	_, err := svc.Save(context.Background(), models.SaveDepartmentRequest{Name: "Physics"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	err = svc.Delete(context.Background(), "d1")
	require.Error(t, err)
	assert.Equal(t, "DEPARTMENT_IN_USE", appErrors.FromError(err).Code)
	assert.Equal(t, 409, appErrors.FromError(err).Status)
}

type mockDepartmentRepo struct {
	createErr error
	deleteErr error
}

func (m *mockDepartmentRepo) List(ctx context.Context) ([]models.Department, error) { return nil, nil }

func (m *mockDepartmentRepo) FindByID(ctx context.Context, id string) (*models.Department, error) {
	return &models.Department{ID: id, Name: "Renamed"}, nil
}

func (m *mockDepartmentRepo) Create(ctx context.Context, department *models.Department) error {
	return m.createErr
}

func (m *mockDepartmentRepo) Rename(ctx context.Context, id, name string) error { return nil }

func (m *mockDepartmentRepo) Delete(ctx context.Context, id string) error { return m.deleteErr }
