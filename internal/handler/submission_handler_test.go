package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type fakeSubmissionService struct {
	submissionService
	uploaded     []byte
	uploadedName string
	downloadFile string
	downloadErr  error
}

func (f *fakeSubmissionService) Submit(_ context.Context, actor *models.JWTClaims, assignmentID string, upload *models.Upload) (*models.Submission, error) {
	data, err := io.ReadAll(upload.Content)
	if err != nil {
		return nil, err
	}
	f.uploaded, f.uploadedName = data, upload.FileName
	return &models.Submission{ID: "sub-1", StudentID: actor.UserID, AssignmentID: assignmentID}, nil
}

func (f *fakeSubmissionService) Download(string) (*models.FileResource, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	file, err := os.Open(f.downloadFile)
	if err != nil {
		return nil, err
	}
	return &models.FileResource{Name: "essay.pdf", File: file, ModTime: time.Now()}, nil
}

func multipartContext(t *testing.T, target, field, name string, content []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, target, body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	return c, rec
}

func TestSubmissionHandlerSubmit(t *testing.T) {
	svc := &fakeSubmissionService{}
	handler := NewSubmissionHandler(svc)

	c, rec := multipartContext(t, "/api/v1/student/assignments/as1/submission", "file", "essay.pdf", []byte("%PDF-1.4 body"))
	c.AddParam("id", "as1")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})

	handler.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "essay.pdf", svc.uploadedName)
	assert.Equal(t, []byte("%PDF-1.4 body"), svc.uploaded)
}

func TestSubmissionHandlerSubmitRequiresFile(t *testing.T) {
	handler := NewSubmissionHandler(&fakeSubmissionService{})

	c, rec := multipartContext(t, "/api/v1/student/assignments/as1/submission", "", "", nil)
	c.AddParam("id", "as1")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})

	handler.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionHandlerDownloadWithoutToken(t *testing.T) {
	handler := NewSubmissionHandler(&fakeSubmissionService{})

	c, rec := jsonContext(http.MethodGet, "/api/v1/files/submissions/download", "")
	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubmissionHandlerDownloadExpired(t *testing.T) {
	handler := NewSubmissionHandler(&fakeSubmissionService{
		downloadErr: appErrors.Clone(appErrors.ErrForbidden, "download link has expired"),
	})

	c, rec := jsonContext(http.MethodGet, "/api/v1/files/submissions/download?token=old", "")
	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "download link has expired")
}

func TestSubmissionHandlerDownloadStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stored.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stored"), 0o600))
	handler := NewSubmissionHandler(&fakeSubmissionService{downloadFile: path})

	c, rec := jsonContext(http.MethodGet, "/api/v1/files/submissions/download?token=good", "")
	handler.Download(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="essay.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 stored", rec.Body.String())
}
