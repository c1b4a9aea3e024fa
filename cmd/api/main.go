package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/gestorescolar/tareas-api/api/swagger"
	"github.com/gestorescolar/tareas-api/internal/handler"
	"github.com/gestorescolar/tareas-api/internal/middleware"
	"github.com/gestorescolar/tareas-api/internal/models"
	"github.com/gestorescolar/tareas-api/internal/repository"
	"github.com/gestorescolar/tareas-api/internal/service"
	"github.com/gestorescolar/tareas-api/pkg/cache"
	"github.com/gestorescolar/tareas-api/pkg/config"
	"github.com/gestorescolar/tareas-api/pkg/database"
	"github.com/gestorescolar/tareas-api/pkg/export"
	"github.com/gestorescolar/tareas-api/pkg/logger"
	corsmiddleware "github.com/gestorescolar/tareas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/gestorescolar/tareas-api/pkg/middleware/requestid"
	"github.com/gestorescolar/tareas-api/pkg/storage"
)

// @title Tareas API
// @version 1.0.0
// @description Gestor escolar de tareas y servicio social
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	exportStore, err := storage.NewLocalStorage(cfg.Export.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	assignmentRepo := repository.NewGroupAssignmentRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	taskFileRepo := repository.NewTaskFileRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Export.StatsTTL, logr, true)
	authService := service.NewAuthService(userRepo, sessionRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		SessionTTL:        cfg.Session.TTL,
		InactivityTimeout: cfg.Session.InactivityTimeout,
		MaxLoginAttempts:  cfg.Lockout.MaxAttempts,
		LockoutWindow:     cfg.Lockout.Window,
	})
	userService := service.NewUserService(userRepo, statsRepo, validate, logr, cfg.Hours.RequiredDefault)
	groupService := service.NewGroupService(groupRepo, assignmentRepo, userRepo, validate, logr)
	taskService := service.NewTaskService(taskRepo, notificationRepo, groupRepo, assignmentRepo, userRepo, enrollmentRepo, taskFileRepo, exportStore, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, taskRepo, userRepo, validate, logr)
	notificationService := service.NewNotificationService(notificationRepo, validate, logr)
	chatService := service.NewChatService(messageRepo, validate, logr)
	projectService := service.NewProjectService(projectRepo, validate, logr)
	statsService := service.NewStatsService(statsRepo, cacheService, cfg.Export.StatsTTL, logr)
	exportService := service.NewExportService(userRepo, taskRepo, projectRepo, notificationRepo, messageRepo, groupRepo, assignmentRepo, export.NewCSVExporter(), export.NewPDFExporter(), exportStore, logr)

	if cfg.Seed.Enabled {
		seedService := service.NewSeedService(userRepo, taskRepo, notificationRepo, logr)
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := seedService.Run(seedCtx); err != nil {
			logr.Warn("demo data seeding failed", zap.Error(err))
		}
		cancel()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService, statsService)
	groupHandler := handler.NewGroupHandler(groupService)
	taskHandler := handler.NewTaskHandler(taskService, statsService, cfg.Uploads)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	chatHandler := handler.NewChatHandler(chatService)
	projectHandler := handler.NewProjectHandler(projectService)
	statsHandler := handler.NewStatsHandler(statsService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/password-strength", authHandler.PasswordStrength)

		authed := auth.Group("", middleware.JWT(authService))
		authed.POST("/logout", authHandler.Logout)
		authed.GET("/me", authHandler.Me)
		authed.PUT("/password", authHandler.ChangePassword)
		authed.PUT("/profile", authHandler.UpdateProfile)
	}

	protected := api.Group("", middleware.JWT(authService))

	admin := string(models.RoleAdministrador)
	maestro := string(models.RoleMaestro)
	estudiante := string(models.RoleEstudiante)

	users := protected.Group("/users")
	{
		users.GET("", middleware.RBAC(admin, maestro), userHandler.List)
		users.POST("", middleware.RBAC(admin), userHandler.Create)
		users.GET("/:matricula", middleware.RBAC(admin, maestro, "SELF"), userHandler.Get)
		users.PUT("/:matricula", middleware.RBAC(admin), userHandler.Update)
		users.DELETE("/:matricula", middleware.RBAC(admin), userHandler.Delete)
		users.DELETE("/:matricula/purge", middleware.RBAC(admin), middleware.Audit(userRepo, models.AuditActionUserPurge, "users"), userHandler.Purge)
		users.POST("/:matricula/horas", middleware.RBAC(admin, maestro), userHandler.CreditHours)
		users.GET("/:matricula/horas", middleware.RBAC(admin, maestro, "SELF"), userHandler.HoursSummary)
		users.GET("/:matricula/groups", middleware.RBAC(admin, maestro, "SELF"), groupHandler.GroupsByUser)
	}

	groups := protected.Group("/groups")
	{
		groups.GET("", groupHandler.List)
		groups.POST("", middleware.RBAC(admin, maestro), groupHandler.Create)
		groups.GET("/:id", groupHandler.Get)
		groups.PUT("/:id", middleware.RBAC(admin, maestro), groupHandler.Update)
		groups.DELETE("/:id", middleware.RBAC(admin, maestro), groupHandler.Delete)
		groups.GET("/:id/members", groupHandler.Members)
		groups.POST("/:id/members", middleware.RBAC(admin, maestro), groupHandler.AssignUser)
		groups.DELETE("/:id/members/:userId", middleware.RBAC(admin, maestro), groupHandler.RemoveUser)
	}

	tasks := protected.Group("/tasks")
	{
		tasks.GET("", taskHandler.List)
		tasks.POST("", middleware.RBAC(admin, maestro), taskHandler.Create)
		tasks.GET("/:id", taskHandler.Get)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.DELETE("/:id", middleware.RBAC(admin, maestro), taskHandler.Delete)
		tasks.POST("/:id/enroll", middleware.RBAC(estudiante), enrollmentHandler.Enroll)
		tasks.DELETE("/:id/enroll", middleware.RBAC(estudiante), enrollmentHandler.Unenroll)
		tasks.GET("/:id/enrollments", middleware.RBAC(admin, maestro), enrollmentHandler.ListByTask)
		tasks.GET("/:id/files", taskHandler.ListFiles)
		tasks.POST("/:id/files", taskHandler.AttachFile)
		tasks.DELETE("/:id/files/:fileId", taskHandler.RemoveFile)
		tasks.GET("/:id/submissions", middleware.RBAC(admin, maestro), taskHandler.SubmissionStats)
	}

	protected.GET("/enrollments", middleware.RBAC(estudiante), enrollmentHandler.ListMine)

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("", middleware.RBAC(admin, maestro), notificationHandler.Create)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.PUT("/read-all", notificationHandler.MarkAllRead)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
	}

	messages := protected.Group("/messages")
	{
		messages.GET("", chatHandler.List)
		messages.POST("", chatHandler.Post)
	}

	projects := protected.Group("/projects")
	{
		projects.GET("", projectHandler.List)
		projects.POST("", middleware.RBAC(admin, maestro), projectHandler.Create)
	}

	stats := protected.Group("/stats")
	{
		stats.GET("/admin", middleware.RBAC(admin), statsHandler.Admin)
		stats.GET("/teacher", middleware.RBAC(maestro), statsHandler.Teacher)
		stats.GET("/student", middleware.RBAC(estudiante), statsHandler.Student)
		stats.GET("/system", middleware.RBAC(admin), metricsHandler.Snapshot)
	}

	exports := protected.Group("/export", middleware.RBAC(admin))
	{
		exports.GET("", middleware.Audit(userRepo, models.AuditActionExport, "export"), exportHandler.Document)
		exports.GET("/horas", exportHandler.HoursReport)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
}
