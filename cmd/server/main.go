package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classtrack/attendance-api/api/swagger"
	"github.com/classtrack/attendance-api/internal/handler"
	"github.com/classtrack/attendance-api/internal/middleware"
	"github.com/classtrack/attendance-api/internal/repository"
	"github.com/classtrack/attendance-api/internal/service"
	"github.com/classtrack/attendance-api/pkg/cache"
	"github.com/classtrack/attendance-api/pkg/config"
	"github.com/classtrack/attendance-api/pkg/database"
	"github.com/classtrack/attendance-api/pkg/logger"
	corsmiddleware "github.com/classtrack/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classtrack/attendance-api/pkg/middleware/requestid"
)

// @title ClassTrack Attendance API
// @version 1.0.0
// @description Student roster and daily attendance tracking
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		logr.Sugar().Fatalw("failed to ensure schema", "error", err)
	}
	cancel()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	userRepo := repository.NewUserRepository(db)

	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, cacheSvc, metricsSvc, validate, logr)
	exportSvc := service.NewExportService(attendanceRepo, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	studentHandler := handler.NewStudentHandler(studentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, exportSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.StaticFile("/", "./web/static/index.html")
	r.Static("/static", "./web/static")

	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/logout-all", middleware.JWT(authSvc), authHandler.LogoutAll)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// When auth is disabled the API stays open, matching single-tenant
	// classroom deployments.
	guard := func() gin.HandlerFunc {
		if cfg.Auth.Enabled {
			return middleware.JWT(authSvc)
		}
		return middleware.OptionalJWT(authSvc)
	}()

	students := r.Group("/students")
	{
		students.GET("", studentHandler.List)
		students.GET("/:id", studentHandler.Get)
		students.POST("", guard, studentHandler.Create)
		students.PUT("/:id", guard, studentHandler.Update)
		students.DELETE("/:id", guard, studentHandler.Delete)
	}

	attendance := r.Group("/attendance")
	{
		attendance.GET("", attendanceHandler.List)
		attendance.POST("", guard, attendanceHandler.Mark)
		attendance.GET("/export", attendanceHandler.Export)
		attendance.GET("/student/:studentId", attendanceHandler.History)
		attendance.GET("/student/:studentId/summary", attendanceHandler.Summary)
		attendance.GET("/:studentId/:date", attendanceHandler.Get)
		attendance.PUT("/:studentId/:date", guard, attendanceHandler.UpdateStatus)
		attendance.DELETE("/:studentId/:date", guard, attendanceHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "auth", cfg.Auth.Enabled, "cache", cacheSvc.Enabled())
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
