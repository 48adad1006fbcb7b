package service

import (
	"bytes"
	"context"
	"database/sql"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

type mockSubmissionRepo struct {
	items map[string]*models.Submission
}

func (m *mockSubmissionRepo) key(studentID, assignmentID string) string {
	return studentID + "/" + assignmentID
}

func (m *mockSubmissionRepo) Upsert(ctx context.Context, submission *models.Submission) (string, error) {
	k := m.key(submission.StudentID, submission.AssignmentID)
	if existing, ok := m.items[k]; ok {
		previous := existing.SubmissionContent
		existing.SubmissionContent = submission.SubmissionContent
		existing.OriginalFileName = submission.OriginalFileName
		existing.SubmittedAt = submission.SubmittedAt
		submission.ID = existing.ID
		submission.Grade, submission.Feedback, submission.GradedAt = existing.Grade, existing.Feedback, existing.GradedAt
		return previous, nil
	}
	submission.ID = "sub-" + k
	submission.Grade, submission.Feedback, submission.GradedAt = nil, "", nil
	clone := *submission
	m.items[k] = &clone
	return "", nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	for _, s := range m.items {
		if s.ID == id {
			clone := *s
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Submission, error) {
	if s, ok := m.items[m.key(studentID, assignmentID)]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	var out []models.Submission
	for _, s := range m.items {
		if s.AssignmentID == assignmentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	var out []models.Submission
	for _, s := range m.items {
		if s.StudentID == studentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) Grade(ctx context.Context, id string, grade int, feedback string, gradedAt time.Time) error {
	for _, s := range m.items {
		if s.ID == id {
			s.Grade = &grade
			s.Feedback = feedback
			s.GradedAt = &gradedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockSubmissionRepo) average(match func(*models.Submission) bool) *models.GradeAverage {
	var total, graded int
	for _, s := range m.items {
		if match(s) && s.Grade != nil {
			total += *s.Grade
			graded++
		}
	}
	if graded == 0 {
		return &models.GradeAverage{}
	}
	avg := float64(total) / float64(graded)
	return &models.GradeAverage{Average: &avg, Graded: graded}
}

func (m *mockSubmissionRepo) AverageForAssignment(ctx context.Context, assignmentID string) (*models.GradeAverage, error) {
	return m.average(func(s *models.Submission) bool { return s.AssignmentID == assignmentID }), nil
}

func (m *mockSubmissionRepo) AverageForStudent(ctx context.Context, studentID string) (*models.GradeAverage, error) {
	return m.average(func(s *models.Submission) bool { return s.StudentID == studentID }), nil
}

type recordingNotifier struct {
	sent []*models.Notification
}

func (r *recordingNotifier) Create(ctx context.Context, notification *models.Notification) error {
	r.sent = append(r.sent, notification)
	return nil
}

type submissionFixture struct {
	svc         *SubmissionService
	submissions *mockSubmissionRepo
	notifier    *recordingNotifier
	files       *storage.LocalStorage
}

func newSubmissionFixture(t *testing.T) submissionFixture {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assignments := newAssignmentFixture().assignments
	submissions := &mockSubmissionRepo{items: map[string]*models.Submission{}}
	notifier := &recordingNotifier{}
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	svc := NewSubmissionService(submissions, assignments, notifier, files, signer, nil, SubmissionConfig{MaxUpload: 1 << 20, DownloadPath: "/files/download"}, nil, nil)
	return submissionFixture{svc: svc, submissions: submissions, notifier: notifier, files: files}
}

func pdfUpload(name, body string) *models.Upload {
	return &models.Upload{FileName: name, ContentType: "application/pdf", Content: strings.NewReader(body)}
}

func TestSubmitStoresFileWithTimestampedName(t *testing.T) {
	f := newSubmissionFixture(t)

	sub, err := f.svc.Submit(context.Background(), studentClaims("s1"), "as1", pdfUpload("essay.pdf", "%PDF-1.4 body"))
	require.NoError(t, err)
	assert.Regexp(t, `^\d+_submission_essay\.pdf$`, sub.SubmissionContent)
	assert.Equal(t, "essay.pdf", sub.OriginalFileName)

	res, err := f.svc.LoadFileAsResource(sub.SubmissionContent)
	require.NoError(t, err)
	defer res.File.Close()
}

func TestResubmissionReplacesFileAndKeepsGrade(t *testing.T) {
	f := newSubmissionFixture(t)
	first, err := f.svc.Submit(context.Background(), studentClaims("s1"), "as1", pdfUpload("v1.pdf", "first"))
	require.NoError(t, err)

	grade := 70
	_, err = f.svc.Grade(context.Background(), claimsFor("l1", models.RoleLecturer), first.ID, models.GradeSubmissionRequest{Grade: &grade})
	require.NoError(t, err)

	second, err := f.svc.Submit(context.Background(), studentClaims("s1"), "as1", pdfUpload("v2.pdf", "second"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Grade)
	assert.Equal(t, 70, *second.Grade)
	assert.Len(t, f.submissions.items, 1)

	_, err = f.files.Open(first.SubmissionContent)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubmitRejections(t *testing.T) {
	f := newSubmissionFixture(t)

	_, err := f.svc.Submit(context.Background(), claimsFor("l1", models.RoleLecturer), "as1", pdfUpload("a.pdf", "x"))
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.Submit(context.Background(), studentClaims("s1"), "missing", pdfUpload("a.pdf", "x"))
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.Submit(context.Background(), studentClaims("s1"), "as3", pdfUpload("a.pdf", "x"))
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound), "drafts are not open for submission")

	_, err = f.svc.Submit(context.Background(), studentClaims("s1"), "as1", pdfUpload("a.pdf", ""))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStorage))
	assert.Equal(t, "failed to store empty file", appErrors.FromError(err).Message)

	_, err = f.svc.Submit(context.Background(), studentClaims("s1"), "as1", &models.Upload{FileName: "a.png", ContentType: "image/png", Content: strings.NewReader("png")})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.submissions.items)
}

func TestSubmitSniffsUndeclaredContentType(t *testing.T) {
	f := newSubmissionFixture(t)

	sub, err := f.svc.Submit(context.Background(), studentClaims("s1"), "as1", &models.Upload{FileName: "essay.pdf", Content: strings.NewReader("%PDF-1.7\n%âãÏÓ\n1 0 obj\n")})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", sub.ContentType)

	_, err = f.svc.Submit(context.Background(), studentClaims("s1"), "as2", &models.Upload{FileName: "notes.txt", Content: bytes.NewReader([]byte("plain text"))})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAcceptedSubmissionType(t *testing.T) {
	for _, ct := range []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	} {
		assert.True(t, acceptedSubmissionType(ct), ct)
	}
	assert.False(t, acceptedSubmissionType("image/jpeg"))
	assert.False(t, acceptedSubmissionType("text/plain"))
}

func TestGradeNotifiesStudentAndChecksAuthor(t *testing.T) {
	f := newSubmissionFixture(t)
	sub, err := f.svc.Submit(context.Background(), studentClaims("s1"), "as1", pdfUpload("a.pdf", "body"))
	require.NoError(t, err)

	grade := 101
	_, err = f.svc.Grade(context.Background(), claimsFor("l1", models.RoleLecturer), sub.ID, models.GradeSubmissionRequest{Grade: &grade})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	grade = 85
	_, err = f.svc.Grade(context.Background(), claimsFor("l2", models.RoleLecturer), sub.ID, models.GradeSubmissionRequest{Grade: &grade})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	graded, err := f.svc.Grade(context.Background(), claimsFor("l1", models.RoleLecturer), sub.ID, models.GradeSubmissionRequest{Grade: &grade, Feedback: "good"})
	require.NoError(t, err)
	assert.Equal(t, 85, *graded.Grade)
	require.NotNil(t, graded.GradedAt)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "s1", f.notifier.sent[0].RecipientID)
	assert.Contains(t, f.notifier.sent[0].Message, "85/100")

	grade = 90
	_, err = f.svc.Grade(context.Background(), claimsFor("a1", models.RoleAdmin), sub.ID, models.GradeSubmissionRequest{Grade: &grade})
	require.NoError(t, err)

	avg, err := f.svc.AverageForStudent(context.Background(), studentClaims("s1"), "s1")
	require.NoError(t, err)
	require.NotNil(t, avg.Average)
	assert.InDelta(t, 90.0, *avg.Average, 0.001)

	_, err = f.svc.AverageForStudent(context.Background(), studentClaims("s2"), "s1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestSubmissionVisibility(t *testing.T) {
	f := newSubmissionFixture(t)
	sub, err := f.svc.Submit(context.Background(), studentClaims("s1"), "as1", pdfUpload("a.pdf", "body"))
	require.NoError(t, err)

	for _, actor := range []*models.JWTClaims{studentClaims("s1"), claimsFor("l1", models.RoleLecturer), claimsFor("a1", models.RoleAdmin)} {
		_, err := f.svc.Get(context.Background(), actor, sub.ID)
		assert.NoError(t, err, actor.UserID)
	}
	_, err = f.svc.Get(context.Background(), studentClaims("s2"), sub.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.ListForAssignment(context.Background(), claimsFor("l2", models.RoleLecturer), "as1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	items, err := f.svc.ListForAssignment(context.Background(), claimsFor("l1", models.RoleLecturer), "as1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = f.svc.GetForStudentAndAssignment(context.Background(), studentClaims("s1"), "as2")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSignedDownloadRoundTrip(t *testing.T) {
	f := newSubmissionFixture(t)
	sub, err := f.svc.Submit(context.Background(), studentClaims("s1"), "as1", pdfUpload("a.pdf", "body"))
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(context.Background(), studentClaims("s2"), sub.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	link, err := f.svc.DownloadURL(context.Background(), claimsFor("l1", models.RoleLecturer), sub.ID)
	require.NoError(t, err)
	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, "/files/download", parsed.Path)

	res, err := f.svc.Download(parsed.Query().Get("token"))
	require.NoError(t, err)
	defer res.File.Close()
	assert.Equal(t, sub.SubmissionContent, res.Name)

	_, err = f.svc.Download(parsed.Query().Get("token") + "x")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
