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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/rotc-portal/grading-api/api/swagger"
	"github.com/rotc-portal/grading-api/internal/grading"
	"github.com/rotc-portal/grading-api/internal/handler"
	"github.com/rotc-portal/grading-api/internal/middleware"
	"github.com/rotc-portal/grading-api/internal/models"
	"github.com/rotc-portal/grading-api/internal/repository"
	"github.com/rotc-portal/grading-api/internal/service"
	"github.com/rotc-portal/grading-api/pkg/cache"
	"github.com/rotc-portal/grading-api/pkg/config"
	"github.com/rotc-portal/grading-api/pkg/database"
	"github.com/rotc-portal/grading-api/pkg/jobs"
	"github.com/rotc-portal/grading-api/pkg/logger"
	corsmiddleware "github.com/rotc-portal/grading-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rotc-portal/grading-api/pkg/middleware/requestid"
	"github.com/rotc-portal/grading-api/pkg/storage"
)

// @title ROTC Grading API
// @version 1.0.0
// @description Cadet roster, attendance aggregation and weighted grade computation
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// A broken grading policy must never reach request handling.
	policy, err := grading.PolicyFromConfig(cfg.Grading)
	if err != nil {
		log.Fatalf("invalid grading configuration: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, grade cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	localStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	// Repositories.
	cadetRepo := repository.NewCadetRepository(db)
	trainingDayRepo := repository.NewTrainingDayRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	conductRepo := repository.NewConductRepository(db)
	summaryRepo := repository.NewGradeSummaryRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	// Services.
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:          cfg.JWT.Secret,
		AccessTokenTTL:  cfg.JWT.Expiration,
		RefreshTokenTTL: cfg.JWT.RefreshExpiration,
		Issuer:          cfg.JWT.Issuer,
	})
	attendanceService := service.NewAttendanceService(attendanceRepo, cadetRepo, trainingDayRepo, summaryRepo, cacheRepo, metricsService, validate, logr)
	gradeService := service.NewGradeService(summaryRepo, cadetRepo, attendanceService, cacheRepo, metricsService, policy, cfg.Cache.TTL, validate, logr)
	conductService := service.NewConductService(conductRepo, cadetRepo, summaryRepo, cacheRepo, validate, logr)
	cadetService := service.NewCadetService(cadetRepo, cacheRepo, validate, logr)
	trainingDayService := service.NewTrainingDayService(trainingDayRepo, attendanceRepo, validate, logr)
	announcementService := service.NewAnnouncementService(announcementRepo, validate, logr)
	reportService := service.NewReportService(reportRepo, attendanceService, gradeService, localStorage, signer, metricsService, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	reportService.Start(ctx)
	defer reportService.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	cadetHandler := handler.NewCadetHandler(cadetService)
	trainingDayHandler := handler.NewTrainingDayHandler(trainingDayService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	conductHandler := handler.NewConductHandler(conductService)
	gradeHandler := handler.NewGradeHandler(gradeService)
	announcementHandler := handler.NewAnnouncementHandler(announcementService)
	reportHandler := handler.NewReportHandler(reportService)
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

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	admin := middleware.RequireRoles(models.RoleAdmin)
	staffOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleStaff), "SELF")

	cadets := protected.Group("/cadets")
	{
		cadets.GET("", staff, cadetHandler.List)
		cadets.POST("", staff, cadetHandler.Create)
		cadets.GET("/:id", staffOrSelf, cadetHandler.Get)
		cadets.PUT("/:id", staff, cadetHandler.Update)
		cadets.DELETE("/:id", admin, cadetHandler.Archive)
		cadets.GET("/:id/attendance", staffOrSelf, attendanceHandler.History)
		cadets.POST("/:id/attendance/recompute", staff, attendanceHandler.Recompute)
		cadets.GET("/:id/conduct", staffOrSelf, conductHandler.Summary)
		cadets.GET("/:id/grades", staffOrSelf, gradeHandler.CadetGrades)
		cadets.PUT("/:id/scores", staff, gradeHandler.UpdateScores)
	}

	trainingDays := protected.Group("/training-days")
	{
		trainingDays.GET("", trainingDayHandler.List)
		trainingDays.GET("/:id", trainingDayHandler.Get)
		trainingDays.POST("", staff, trainingDayHandler.Create)
		trainingDays.PUT("/:id", staff, trainingDayHandler.Update)
		trainingDays.DELETE("/:id", admin, trainingDayHandler.Delete)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.GET("", staff, attendanceHandler.List)
		attendance.POST("", staff, attendanceHandler.Mark)
		attendance.POST("/bulk", staff, attendanceHandler.BulkMark)
		attendance.GET("/audit", staff, attendanceHandler.Audit)
	}

	conduct := protected.Group("/conduct")
	{
		conduct.GET("", staff, conductHandler.List)
		conduct.POST("", staff, conductHandler.Create)
	}

	grades := protected.Group("/grades")
	{
		grades.GET("/sheet", staff, gradeHandler.GradeSheet)
		grades.GET("/policy", staff, gradeHandler.Policy)
		grades.POST("/recalculate", admin, gradeHandler.RecalculateAll)
	}

	announcements := protected.Group("/announcements")
	{
		announcements.GET("", announcementHandler.List)
		announcements.GET("/:id", announcementHandler.Get)
		announcements.POST("", staff, announcementHandler.Create)
		announcements.PUT("/:id", staff, announcementHandler.Update)
		announcements.DELETE("/:id", staff, announcementHandler.Delete)
	}

	reports := protected.Group("/reports")
	{
		reports.POST("", staff, reportHandler.Create)
		reports.GET("/:id", staff, reportHandler.Status)
	}
	// Downloads authenticate through the signed token itself.
	api.GET("/reports/download/:token", reportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
