package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-portal-api/api/swagger"
	"github.com/noah-isme/school-portal-api/internal/handler"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/internal/router"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/cache"
	"github.com/noah-isme/school-portal-api/pkg/config"
	"github.com/noah-isme/school-portal-api/pkg/database"
	"github.com/noah-isme/school-portal-api/pkg/export"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/logger"
	"github.com/noah-isme/school-portal-api/pkg/mail"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

// @title School Portal API
// @version 1.0.0
// @description Course registration, coursework submission and grading for a small school.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := database.MigrateUp(db.DB); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	metrics := service.NewMetricsService()

	var (
		cacheRepo   service.CacheRepository
		redisClient *redis.Client
	)
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, read cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("prepare uploads dir: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	sender := mail.NewSendgridSender(cfg.Mail.SendgridAPIKey, mail.Address{Name: cfg.Mail.FromName, Email: cfg.Mail.FromAddress})
	mailSvc := service.NewMailService(sender, logr)
	mailQueue := jobs.NewQueue("mail", mailSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	mailQueue.Start(context.Background())
	mailSvc.UseQueue(mailQueue)
	metrics.TrackMailQueue(mailQueue)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	forumRepo := repository.NewForumRepository(db)

	authSvc := service.NewAuthService(userRepo, mailSvc, metrics, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		AdminCode:          cfg.Registration.AdminCode,
		ResetTokenTTL:      cfg.Registration.ResetTokenTTL,
	})
	userSvc := service.NewUserService(userRepo, cacheSvc, cfg.Registration.AdminResetPassword, logr)
	profileSvc := service.NewProfileService(userRepo, departmentRepo, files, cfg.Uploads.MaxFileSizeBytes, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, userRepo, cacheSvc, metrics, validate, logr)
	rosterSvc := service.NewRosterService(courseSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, courseRepo, userRepo, cacheSvc, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, notificationRepo, files, signer, metrics, service.SubmissionConfig{
		MaxUpload:    cfg.Uploads.MaxFileSizeBytes,
		DownloadPath: cfg.APIPrefix + "/files/submissions/download",
	}, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, courseRepo, validate, logr)
	materialSvc := service.NewMaterialService(materialRepo, courseRepo, userRepo, files, cfg.Uploads.MaxFileSizeBytes, logr)
	forumSvc := service.NewForumService(forumRepo, courseRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Users:           userRepo,
		Departments:     departmentRepo,
		CourseCounter:   courseRepo,
		AssignmentCount: assignmentRepo,
		SubmissionCount: submissionRepo,
		Courses:         courseRepo,
		Assignments:     assignmentSvc,
		Submissions:     submissionRepo,
		Cache:           cacheSvc,
		Logger:          logr,
		Config:          service.DashboardServiceConfig{CacheTTL: cfg.Cache.TTL},
	})

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine := router.New(router.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Profiles:      handler.NewProfileHandler(profileSvc),
		Departments:   handler.NewDepartmentHandler(departmentSvc),
		Courses:       handler.NewCourseHandler(courseSvc, rosterSvc),
		Assignments:   handler.NewAssignmentHandler(assignmentSvc),
		Submissions:   handler.NewSubmissionHandler(submissionSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Schedules:     handler.NewScheduleHandler(scheduleSvc),
		Materials:     handler.NewMaterialHandler(materialSvc),
		Forum:         handler.NewForumHandler(forumSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Metrics:       handler.NewMetricsHandler(metrics, checks),
	}, router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     !cfg.IsProduction(),
		Tokens:         authSvc,
		Audit:          userRepo,
		Observer:       metrics,
		Logger:         logr,
	})
	engine.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	mailQueue.Stop(shutdownCtx)
	return nil
}
