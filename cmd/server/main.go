// Package main runs the classroom platform HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/veda-classroom/backend/config"
	"github.com/veda-classroom/backend/internal/admin"
	"github.com/veda-classroom/backend/internal/ai"
	"github.com/veda-classroom/backend/internal/analytics"
	"github.com/veda-classroom/backend/internal/auth"
	"github.com/veda-classroom/backend/internal/classes"
	"github.com/veda-classroom/backend/internal/livekit"
	"github.com/veda-classroom/backend/internal/middleware"
	"github.com/veda-classroom/backend/internal/quizzes"
	"github.com/veda-classroom/backend/internal/realtime"
	"github.com/veda-classroom/backend/internal/reports"
	"github.com/veda-classroom/backend/internal/worker"
	"github.com/veda-classroom/backend/pkg/database"
	"github.com/veda-classroom/backend/pkg/queue"
	"github.com/veda-classroom/backend/pkg/redis"
	"github.com/veda-classroom/backend/pkg/response"
	"github.com/veda-classroom/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Classes
	classRepo := classes.NewRepository(pool)

	// Reports (session summaries + attention logs)
	reportRepo := reports.NewRepository(pool)

	// Session coordinator: authoritative live room state in Redis.
	roomStore := realtime.NewRoomStore(realtime.NewRedisStore(rdb.Client), logger)
	coordinator := realtime.NewCoordinator(roomStore, classRepo, reportRepo, hub, cfg.Session, logger)

	classHandler := classes.NewHandler(classRepo, coordinator)

	// Quizzes
	quizRepo := quizzes.NewRepository(pool)
	quizHandler := quizzes.NewHandler(quizRepo, classRepo, hub)

	// AI question generation
	aiRepo := ai.NewRepository(pool)
	generator := ai.NewGeminiGenerator(cfg.AI, logger)
	aiHandler := ai.NewHandler(aiRepo, classRepo, generator, coordinator, logger)

	// Analytics + report export
	jobQueue := queue.NewQueue(rdb.Client, logger)
	analyticsHandler := analytics.NewHandler(reportRepo, classRepo, jobQueue, s3Client)
	exportProcessor := worker.NewReportExportProcessor(reportRepo, s3Client, jobQueue, logger)

	// Admin
	adminRepo := admin.NewRepository(pool)
	adminHandler := admin.NewHandler(adminRepo, authRepo, logger)

	// Media tokens
	livekitHandler := livekit.NewHandler(classRepo, cfg.LiveKit, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Classes
		api.GET("/classes", classHandler.List)
		api.POST("/classes", middleware.RequireRole("teacher"), classHandler.Create)
		api.GET("/classes/:id", classHandler.GetByID)
		api.PUT("/classes/:id", middleware.RequireRole("teacher"), classHandler.Update)
		api.POST("/classes/:id/start", middleware.RequireRole("teacher"), classHandler.Start)
		api.POST("/classes/:id/end", middleware.RequireRole("teacher"), classHandler.End)
		api.DELETE("/classes/:id", middleware.RequireRole("teacher"), classHandler.Delete)
		api.GET("/classes/:id/media-token", livekitHandler.GetToken)

		// Quizzes
		api.POST("/classes/:id/quizzes", middleware.RequireRole("teacher"), quizHandler.Create)
		api.GET("/classes/:id/quizzes", quizHandler.ListByClass)
		api.POST("/quizzes/:id/respond", middleware.RequireRole("student"), quizHandler.Respond)
		api.POST("/quizzes/:id/close", middleware.RequireRole("teacher"), quizHandler.Close)
		api.GET("/quizzes/:id/results", middleware.RequireRole("teacher"), quizHandler.Results)

		// AI question banks
		api.POST("/classes/:id/ai/generate", middleware.RequireRole("teacher"), aiHandler.Generate)
		api.GET("/classes/:id/ai/banks", middleware.RequireRole("teacher"), aiHandler.ListBanks)
		api.POST("/classes/:id/ai/banks/:bankId/start", middleware.RequireRole("teacher"), aiHandler.StartQuiz)
		api.DELETE("/classes/:id/ai/banks/:bankId", middleware.RequireRole("teacher"), aiHandler.DeleteBank)

		// Analytics
		api.GET("/classes/:id/report", middleware.RequireRole("teacher"), analyticsHandler.Report)
		api.POST("/classes/:id/report/export", middleware.RequireRole("teacher"), analyticsHandler.Export)
		api.GET("/classes/:id/report/download", middleware.RequireRole("teacher"), analyticsHandler.Download)
		api.POST("/classes/:id/attention", middleware.RequireRole("student"), analyticsHandler.LogAttention)

		// Admin
		adminGroup := api.Group("/admin", middleware.RequireRole("admin"))
		{
			adminGroup.POST("/teachers", adminHandler.CreateTeacher)
			adminGroup.GET("/teachers", adminHandler.ListTeachers)
			adminGroup.POST("/students", adminHandler.CreateStudent)
			adminGroup.GET("/students", adminHandler.ListStudents)
			adminGroup.POST("/students/:id/section", adminHandler.AssignSection)
			adminGroup.POST("/users/:id/reset-password", adminHandler.ResetPassword)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
			adminGroup.POST("/sections", adminHandler.CreateSection)
			adminGroup.GET("/sections", adminHandler.ListSections)
			adminGroup.DELETE("/sections/:id", adminHandler.DeleteSection)
		}
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, coordinator, aiRepo, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (report CSV export to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil {
		go exportProcessor.Run(workerCtx)
		logger.Info("report export worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
