package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/classmirror-api/internal/config"
	"github.com/noah-isme/classmirror-api/internal/database"
	"github.com/noah-isme/classmirror-api/internal/handler"
	"github.com/noah-isme/classmirror-api/internal/middleware"
	"github.com/noah-isme/classmirror-api/internal/repository"
	"github.com/noah-isme/classmirror-api/internal/router"
	"github.com/noah-isme/classmirror-api/internal/service"
	"github.com/noah-isme/classmirror-api/pkg/classroom"
	"github.com/noah-isme/classmirror-api/pkg/directory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	classroomClient := classroom.NewClient(cfg.ClassroomBaseURL, cfg.UpstreamTimeout, logger)
	tokenSource := classroom.NewTokenSource(cfg.TokenURL, cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.UpstreamTimeout, logger)
	directoryClient := directory.NewClient(cfg.DirectoryBaseURL, cfg.UpstreamTimeout, logger)

	principalRepo := repository.NewPrincipalRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	rosterRepo := repository.NewRosterRepository(db)

	tokenService := service.NewTokenService(credentialRepo, tokenSource, cfg.TokenRefreshMargin, logger)
	reconciler := service.NewCacheReconciler(courseRepo, assignmentRepo, submissionRepo, rosterRepo, principalRepo, logger)
	syncService := service.NewSyncService(classroomClient, tokenService, reconciler, logger)
	principalService := service.NewPrincipalService(principalRepo, credentialRepo, logger)
	progressService := service.NewProgressService(syncService, tokenService, principalRepo, directoryClient, redisClient, cfg.AnalyticsCacheTTL, logger)
	insightsService := service.NewInsightsService(courseRepo, assignmentRepo, submissionRepo, rosterRepo, principalRepo, logger)

	authHandler := handler.NewAuthHandler(principalService, cfg.JWTSecret, logger)
	classroomHandler := handler.NewClassroomHandler(syncService, logger)
	progressHandler := handler.NewProgressHandler(progressService, insightsService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:      authHandler,
		ClassroomHandler: classroomHandler,
		ProgressHandler:  progressHandler,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
