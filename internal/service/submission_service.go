package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

const fileKindSubmission = "submission"

// Substrings a submission's content type must contain.
var acceptedSubmissionTypes = []string{"pdf", "word", "document", "msword"}

type submissionRepository interface {
	Upsert(ctx context.Context, submission *models.Submission) (string, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	Grade(ctx context.Context, id string, grade int, feedback string, gradedAt time.Time) error
	AverageForAssignment(ctx context.Context, assignmentID string) (*models.GradeAverage, error)
	AverageForStudent(ctx context.Context, studentID string) (*models.GradeAverage, error)
}

type assignmentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type downloadSigner interface {
	Sign(resourceID, name string) (string, time.Time, error)
	Verify(token string) (*storage.SignedToken, error)
}

// SubmissionConfig tunes upload limits and the public download endpoint.
type SubmissionConfig struct {
	MaxUpload    int64
	DownloadPath string
}

// SubmissionService handles assignment uploads, grading and submission downloads.
type SubmissionService struct {
	submissions   submissionRepository
	assignments   assignmentLookup
	notifications notificationWriter
	files         fileStore
	signer        downloadSigner
	metrics       *MetricsService
	cfg           SubmissionConfig
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewSubmissionService constructs the service. signer may be nil, which disables signed downloads.
func NewSubmissionService(submissions submissionRepository, assignments assignmentLookup, notifications notificationWriter, files fileStore, signer downloadSigner, metrics *MetricsService, cfg SubmissionConfig, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = 10 << 20
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/api/v1/files/submissions/download"
	}
	return &SubmissionService{
		submissions:   submissions,
		assignments:   assignments,
		notifications: notifications,
		files:         files,
		signer:        signer,
		metrics:       metrics,
		cfg:           cfg,
		validator:     validate,
		logger:        logger,
		now:           time.Now,
	}
}

// Submit stores the student's file for an assignment. Resubmitting replaces the stored file and
// keeps any grade already given.
func (s *SubmissionService) Submit(ctx context.Context, actor *models.JWTClaims, assignmentID string, upload *models.Upload) (*models.Submission, error) {
	if !actor.Can(models.CapSubmitAssignments) {
		s.metrics.RecordSubmission(OutcomeRejected)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit assignments")
	}
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		s.metrics.RecordSubmission(OutcomeRejected)
		return nil, err
	}
	if assignment.Status != models.AssignmentStatusPublished {
		s.metrics.RecordSubmission(OutcomeRejected)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	data, contentType, err := s.readUpload(upload)
	if err != nil {
		s.metrics.RecordSubmission(OutcomeRejected)
		return nil, err
	}

	stored, err := s.files.Store(fileKindSubmission, upload.FileName, bytes.NewReader(data))
	if err != nil {
		s.metrics.RecordSubmission(OutcomeError)
		return nil, storageError(err)
	}

	submission := &models.Submission{
		StudentID:         actor.UserID,
		AssignmentID:      assignment.ID,
		SubmissionContent: stored,
		OriginalFileName:  storage.SanitizeName(upload.FileName),
		ContentType:       contentType,
		SubmittedAt:       s.now().UTC(),
		AssignmentTitle:   assignment.Title,
	}
	previous, err := s.submissions.Upsert(ctx, submission)
	if err != nil {
		_ = s.files.Delete(stored)
		s.metrics.RecordSubmission(OutcomeError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
	}
	if previous != "" && previous != stored {
		if err := s.files.Delete(previous); err != nil {
			s.logger.Warn("failed to remove replaced submission file", zap.String("file", previous), zap.Error(err))
		}
	}
	s.metrics.RecordSubmission(OutcomeSuccess)
	s.logger.Info("assignment submitted",
		zap.String("assignment_id", assignment.ID),
		zap.String("student_id", actor.UserID),
		zap.Bool("resubmission", previous != ""),
	)
	return submission, nil
}

func (s *SubmissionService) readUpload(upload *models.Upload) ([]byte, string, error) {
	if upload == nil || upload.Content == nil {
		return nil, "", appErrors.Clone(appErrors.ErrStorage, "failed to store empty file")
	}
	data, err := io.ReadAll(io.LimitReader(upload.Content, s.cfg.MaxUpload+1))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to read upload")
	}
	if len(data) == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrStorage, "failed to store empty file")
	}
	if int64(len(data)) > s.cfg.MaxUpload {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "file is too large")
	}
	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	if !acceptedSubmissionType(contentType) {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "only PDF or Word documents are accepted")
	}
	return data, contentType, nil
}

func acceptedSubmissionType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	for _, accepted := range acceptedSubmissionTypes {
		if strings.Contains(contentType, accepted) {
			return true
		}
	}
	return false
}

// Grade records a mark on a submission and notifies the student. Grading again overwrites the
// previous mark.
func (s *SubmissionService) Grade(ctx context.Context, actor *models.JWTClaims, submissionID string, req models.GradeSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "grade must be between 0 and 100")
	}
	submission, err := s.load(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	assignment, err := s.loadAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !canManageAssignment(actor, assignment) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assignment's lecturer can grade it")
	}

	gradedAt := s.now().UTC()
	if err := s.submissions.Grade(ctx, submission.ID, *req.Grade, req.Feedback, gradedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}
	grade := *req.Grade
	submission.Grade = &grade
	submission.Feedback = req.Feedback
	submission.GradedAt = &gradedAt
	s.metrics.RecordGrade()

	note := &models.Notification{
		RecipientID: submission.StudentID,
		Message:     fmt.Sprintf("Your submission for %q has been graded: %d/100", assignment.Title, grade),
	}
	if err := s.notifications.Create(ctx, note); err != nil {
		s.logger.Warn("failed to notify student of grade", zap.String("submission_id", submission.ID), zap.Error(err))
	}
	return submission, nil
}

// ListForAssignment returns every submission to an assignment. Only its creator and admins may
// list them.
func (s *SubmissionService) ListForAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) ([]models.Submission, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !canManageAssignment(actor, assignment) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view these submissions")
	}
	items, err := s.submissions.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return nonNil(items), nil
}

// ListForStudent returns the actor's own submissions.
func (s *SubmissionService) ListForStudent(ctx context.Context, actor *models.JWTClaims) ([]models.Submission, error) {
	items, err := s.submissions.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return nonNil(items), nil
}

// GetForStudentAndAssignment returns the actor's submission to an assignment.
func (s *SubmissionService) GetForStudentAndAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) (*models.Submission, error) {
	submission, err := s.submissions.FindByStudentAndAssignment(ctx, actor.UserID, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

// Get returns a submission to its student, the assignment's creator or an admin.
func (s *SubmissionService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Submission, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.UserID == submission.StudentID {
		return submission, nil
	}
	assignment, err := s.loadAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !canManageAssignment(actor, assignment) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this submission")
	}
	return submission, nil
}

// DownloadURL returns a time-limited link to the submission's file.
func (s *SubmissionService) DownloadURL(ctx context.Context, actor *models.JWTClaims, id string) (*models.SubmissionDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "signed downloads are not configured")
	}
	submission, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Sign(submission.ID, submission.SubmissionContent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return &models.SubmissionDownload{
		URL:       s.cfg.DownloadPath + "?token=" + url.QueryEscape(token),
		ExpiresAt: expiresAt,
	}, nil
}

// Download opens the file named by a signed token.
func (s *SubmissionService) Download(token string) (*models.FileResource, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	signed, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link has expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	return openStored(s.files, signed.Name)
}

// LoadFileAsResource opens a stored submission file by name.
func (s *SubmissionService) LoadFileAsResource(filename string) (*models.FileResource, error) {
	return openStored(s.files, filename)
}

// AverageForAssignment returns the mean grade of graded submissions to an assignment.
func (s *SubmissionService) AverageForAssignment(ctx context.Context, actor *models.JWTClaims, assignmentID string) (*models.GradeAverage, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !canManageAssignment(actor, assignment) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view these grades")
	}
	avg, err := s.submissions.AverageForAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average")
	}
	return avg, nil
}

// AverageForStudent returns the mean of a student's graded submissions. Students may only ask
// about themselves.
func (s *SubmissionService) AverageForStudent(ctx context.Context, actor *models.JWTClaims, studentID string) (*models.GradeAverage, error) {
	if actor == nil || (actor.Role == models.RoleStudent && actor.UserID != studentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view these grades")
	}
	avg, err := s.submissions.AverageForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average")
	}
	return avg, nil
}

func (s *SubmissionService) load(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := s.submissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

func (s *SubmissionService) loadAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}
