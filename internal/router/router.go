package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/handler"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-portal-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Profiles      *handler.ProfileHandler
	Departments   *handler.DepartmentHandler
	Courses       *handler.CourseHandler
	Assignments   *handler.AssignmentHandler
	Submissions   *handler.SubmissionHandler
	Notifications *handler.NotificationHandler
	Schedules     *handler.ScheduleHandler
	Materials     *handler.MaterialHandler
	Forum         *handler.ForumHandler
	Dashboard     *handler.DashboardHandler
	Metrics       *handler.MetricsHandler
}

// Options carries the cross-cutting dependencies of the router.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Tokens         middleware.TokenValidator
	Audit          middleware.AuditWriter
	Observer       middleware.RequestObserver
	Logger         *zap.Logger
}

// New builds the gin engine with the full route table.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(opts.Audit, opts.Logger, action, resource)
	}

	api := r.Group(opts.APIPrefix)

	api.POST("/register", h.Auth.Register)
	api.POST("/forgot-password", h.Auth.ForgotPassword)
	api.GET("/reset-password", h.Auth.ValidateResetToken)
	api.POST("/reset-password", h.Auth.ResetPassword)
	api.GET("/files/submissions/download", h.Submissions.Download)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/change-password", audit(models.AuditActionPasswordChange, "user"), h.Auth.ChangePassword)
	secured.GET("/me", h.Profiles.Me)
	secured.GET("/files/profile/:filename", h.Profiles.Picture)

	secured.GET("/departments", h.Departments.List)
	secured.GET("/departments/:id", h.Departments.Get)

	courses := secured.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.GET("/:id", h.Courses.Get)
	courses.GET("/:id/students", middleware.RequireCapability(models.CapViewCourseStudents), h.Courses.Students)
	courses.GET("/:id/students/export", middleware.RequireCapability(models.CapExportRoster), h.Courses.Export)
	courses.GET("/:id/schedules", h.Schedules.List)
	courses.POST("/:id/schedules", middleware.RequireCapability(models.CapManageSchedules), h.Schedules.Create)
	courses.DELETE("/:id/schedules/:scheduleId", middleware.RequireCapability(models.CapManageSchedules), h.Schedules.Delete)
	courses.GET("/:id/materials", h.Materials.List)
	courses.POST("/:id/materials", middleware.RequireCapability(models.CapUploadMaterials), h.Materials.Upload)
	courses.GET("/:id/materials/:materialId/download", h.Materials.Download)
	courses.DELETE("/:id/materials/:materialId", middleware.RequireCapability(models.CapUploadMaterials), h.Materials.Delete)

	forum := secured.Group("/forum")
	forum.GET("/courses/:id/posts", h.Forum.List)
	forum.POST("/courses/:id/posts", h.Forum.Post)
	forum.DELETE("/posts/:postId", h.Forum.Delete)

	secured.GET("/assignments", h.Assignments.ByDepartmentAndLevel)
	secured.GET("/assignments/mine", h.Assignments.Mine)
	secured.GET("/assignments/:id", h.Assignments.Get)
	secured.GET("/assignments/:id/average", middleware.RequireCapability(models.CapGradeSubmissions), h.Submissions.AssignmentAverage)
	secured.GET("/submissions/:id", h.Submissions.Get)
	secured.GET("/submissions/:id/download-url", h.Submissions.DownloadURL)
	secured.GET("/students/:id/average", h.Submissions.StudentAverage)

	notifications := secured.Group("/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.POST("", middleware.RequireCapability(models.CapPublishNotifications), h.Notifications.Create)
	notifications.PUT("/:id/read", h.Notifications.MarkRead)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/dashboard", h.Dashboard.Admin)
	admin.GET("/metrics", h.Metrics.Snapshot)
	admin.GET("/users", h.Users.List)
	admin.GET("/users/:id", h.Users.Get)
	admin.DELETE("/users/:id", audit(models.AuditActionUserDelete, "user"), h.Users.Delete)
	admin.POST("/users/:id/reset-password", audit(models.AuditActionPasswordReset, "user"), h.Users.ResetPassword)
	admin.GET("/lecturers", h.Users.Lecturers)
	admin.POST("/departments", h.Departments.Create)
	admin.PUT("/departments/:id", h.Departments.Rename)
	admin.DELETE("/departments/:id", audit(models.AuditActionDelete, "department"), h.Departments.Delete)
	admin.POST("/courses", h.Courses.Create)
	admin.PUT("/courses/:id", h.Courses.Update)
	admin.DELETE("/courses/:id", audit(models.AuditActionDelete, "course"), h.Courses.Delete)
	admin.PUT("/courses/:id/lecturer", audit(models.AuditActionCourseAssign, "course"), h.Courses.AssignLecturer)
	admin.GET("/assignments", h.Assignments.ListAll)
	admin.GET("/files/submissions/:filename", h.Submissions.LoadFile)
	admin.PUT("/profile", h.Profiles.UpdateStaff)

	lecturer := secured.Group("/lecturer")
	lecturer.Use(middleware.RequireRoles(models.RoleLecturer))
	lecturer.GET("/dashboard", h.Dashboard.Lecturer)
	lecturer.GET("/courses", h.Courses.Mine)
	lecturer.GET("/students", h.Users.DepartmentStudents)
	lecturer.GET("/students/:id", h.Users.Student)
	lecturer.POST("/assignments", h.Assignments.Create)
	lecturer.PUT("/assignments/:id", h.Assignments.Update)
	lecturer.DELETE("/assignments/:id", audit(models.AuditActionDelete, "assignment"), h.Assignments.Delete)
	lecturer.POST("/assignments/bulk-delete", h.Assignments.BulkDelete)
	lecturer.GET("/assignments/:id/submissions", h.Submissions.ListForAssignment)
	lecturer.PUT("/submissions/:id/grade", audit(models.AuditActionGrade, "submission"), h.Submissions.Grade)
	lecturer.PUT("/profile", h.Profiles.UpdateStaff)

	student := secured.Group("/student")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	student.GET("/dashboard", h.Dashboard.Student)
	student.GET("/courses", h.Courses.Registered)
	student.POST("/courses/:id/register", h.Courses.Register)
	student.DELETE("/courses/:id/register", h.Courses.Drop)
	student.GET("/submissions", h.Submissions.Mine)
	student.GET("/assignments/:id/submission", h.Submissions.ForAssignment)
	student.POST("/assignments/:id/submission", h.Submissions.Submit)
	student.PUT("/profile", h.Profiles.UpdateStudent)

	return r
}
