package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type userCounter interface {
	CountByRole(ctx context.Context) (map[models.UserRole]int, error)
}

type entityCounter interface {
	Count(ctx context.Context) (int, error)
}

type lecturerCourseLister interface {
	ListByLecturer(ctx context.Context, lecturerID string) ([]models.Course, error)
	ListRegistered(ctx context.Context, studentID string) ([]models.Course, error)
}

type dashboardAssignments interface {
	ListForLecturer(ctx context.Context, actor *models.JWTClaims) ([]models.Assignment, bool, error)
	ListForStudent(ctx context.Context, actor *models.JWTClaims) ([]models.Assignment, bool, error)
}

type submissionStats interface {
	CountsByCreator(ctx context.Context, lecturerID string) ([]repository.SubmissionCounts, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	AverageForStudent(ctx context.Context, studentID string) (*models.GradeAverage, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the per-role dashboard payloads.
type DashboardService struct {
	users       userCounter
	departments entityCounter
	courseCount entityCounter
	assignCount entityCounter
	subCount    entityCounter
	courses     lecturerCourseLister
	assignments dashboardAssignments
	submissions submissionStats
	cache       *CacheService
	logger      *zap.Logger
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Users           userCounter
	Departments     entityCounter
	CourseCounter   entityCounter
	AssignmentCount entityCounter
	SubmissionCount entityCounter
	Courses         lecturerCourseLister
	Assignments     dashboardAssignments
	Submissions     submissionStats
	Cache           *CacheService
	Logger          *zap.Logger
	Config          DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		users:       params.Users,
		departments: params.Departments,
		courseCount: params.CourseCounter,
		assignCount: params.AssignmentCount,
		subCount:    params.SubmissionCount,
		courses:     params.Courses,
		assignments: params.Assignments,
		submissions: params.Submissions,
		cache:       params.Cache,
		logger:      logger,
		cfg:         cfg,
	}
}

// Admin returns institution-wide totals and indicates cache utilisation.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	var summary dto.AdminDashboardResponse
	if hit, _ := s.cache.Get(ctx, cacheKeyAdminDashboard, &summary); hit {
		return &summary, true, nil
	}

	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	summary.Users = dto.AdminUserCounts{
		Admins:    byRole[models.RoleAdmin],
		Lecturers: byRole[models.RoleLecturer],
		Students:  byRole[models.RoleStudent],
	}
	counters := []struct {
		counter entityCounter
		dest    *int
		label   string
	}{
		{s.departments, &summary.Departments, "departments"},
		{s.courseCount, &summary.Courses, "courses"},
		{s.assignCount, &summary.Assignments, "assignments"},
		{s.subCount, &summary.Submissions, "submissions"},
	}
	for _, c := range counters {
		n, err := c.counter.Count(ctx)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count "+c.label)
		}
		*c.dest = n
	}

	_ = s.cache.Set(ctx, cacheKeyAdminDashboard, summary, s.cfg.CacheTTL)
	return &summary, false, nil
}

// Lecturer returns the actor's courses and assignments with submission counters.
func (s *DashboardService) Lecturer(ctx context.Context, actor *models.JWTClaims) (*dto.LecturerDashboardResponse, error) {
	if actor == nil || actor.Role != models.RoleLecturer {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lecturer dashboard is for lecturers")
	}
	courses, err := s.courses.ListByLecturer(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	assignments, _, err := s.assignments.ListForLecturer(ctx, actor)
	if err != nil {
		return nil, err
	}
	counts, err := s.submissions.CountsByCreator(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}
	byAssignment := make(map[string]repository.SubmissionCounts, len(counts))
	for _, c := range counts {
		byAssignment[c.AssignmentID] = c
	}

	resp := &dto.LecturerDashboardResponse{
		LecturerID:  actor.UserID,
		Courses:     nonNil(courses),
		Assignments: make([]dto.LecturerAssignmentSummary, 0, len(assignments)),
	}
	for _, a := range assignments {
		c := byAssignment[a.ID]
		resp.Assignments = append(resp.Assignments, dto.LecturerAssignmentSummary{
			Assignment:      a,
			SubmissionCount: c.Submitted,
			GradedCount:     c.Graded,
		})
	}
	return resp, nil
}

// Student returns the actor's open assignments, registered courses and grade average.
func (s *DashboardService) Student(ctx context.Context, actor *models.JWTClaims) (*dto.StudentDashboardResponse, error) {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student dashboard is for students")
	}
	assignments, _, err := s.assignments.ListForStudent(ctx, actor)
	if err != nil {
		return nil, err
	}
	submissions, err := s.submissions.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	courses, err := s.courses.ListRegistered(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registered courses")
	}
	avg, err := s.submissions.AverageForStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average grade")
	}

	submitted := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		submitted = append(submitted, sub.AssignmentID)
	}
	sort.Strings(submitted)

	resp := &dto.StudentDashboardResponse{
		StudentID:              actor.UserID,
		Assignments:            nonNil(assignments),
		SubmittedAssignmentIDs: submitted,
		RegisteredCourses:      nonNil(courses),
	}
	for _, c := range courses {
		resp.TotalCredits += c.CreditUnits
	}
	if avg != nil {
		resp.AverageGrade = avg.Average
	}
	return resp, nil
}
