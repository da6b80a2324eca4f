package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/database"
	"github.com/invigilo/proctor-backend/internal/exam"
	"github.com/invigilo/proctor-backend/internal/handler"
	"github.com/invigilo/proctor-backend/internal/logger"
	"github.com/invigilo/proctor-backend/internal/pairing"
	"github.com/invigilo/proctor-backend/internal/question"
	"github.com/invigilo/proctor-backend/internal/registry"
	"github.com/invigilo/proctor-backend/internal/repository"
	"github.com/invigilo/proctor-backend/internal/router"
	"github.com/invigilo/proctor-backend/internal/service"
	"github.com/invigilo/proctor-backend/internal/validator"
	"github.com/invigilo/proctor-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("registry", cfg.RegistryBackend).
		Msg("Starting Proctor Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	examLogRepo := repository.NewExamLogRepository(pool)
	flagRepo := repository.NewFlagRepository(pool)

	// ─── Select Session Backends ───────────────────────────────────────
	// "memory" keeps everything in-process for single-node deployments;
	// "redis" survives restarts and supports multiple API replicas behind
	// one registry.
	var (
		reg          registry.Registry
		pairingStore pairing.Store
		control      exam.ControlSource
	)
	if cfg.RegistryBackend == "memory" {
		reg = registry.NewMemoryRegistry()
		pairingStore = pairing.NewMemoryStore()
		control = exam.NewMemoryControl()
	} else {
		reg = registry.NewRedisRegistry(rdb, log)
		pairingStore = pairing.NewRedisStore(rdb)
		control = exam.NewRedisControl(rdb)
	}

	bank := question.NewPostgresStore(pool)
	if err := bank.EnsureSeeded(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed question bank")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, adminRepo, authService)
	pairingService := pairing.NewService(pairingStore, log)
	sink := worker.NewRedisQueue(rdb)
	sessionManager := service.NewSessionManager(ctx, reg, control, bank, pairingService, sink, log)
	reportService := service.NewReportService(examLogRepo, studentRepo)
	mediaService := service.NewMediaService(cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService, studentService),
		Exam:         handler.NewExamHandler(sessionManager),
		Pairing:      handler.NewPairingHandler(pairingService, sessionManager),
		Question:     handler.NewQuestionHandler(bank),
		AdminSession: handler.NewAdminSessionHandler(sessionManager, studentService),
		Report:       handler.NewReportHandler(reportService, sessionManager),
		Media:        handler.NewMediaHandler(mediaService, sessionManager),
		Monitor:      handler.NewMonitorHandler(rdb, sessionManager, log),
		WS:           handler.NewWSHandler(sessionManager, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	examLogWorker := worker.NewExamLogWorker(examLogRepo, rdb, log)
	flagWorker := worker.NewFlagWorker(flagRepo, rdb, log)

	go examLogWorker.Start(workerCtx)
	go flagWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Submit live sessions so no in-flight exam is lost.
	sessionManager.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
