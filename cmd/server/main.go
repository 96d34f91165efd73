package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nagendrasomala/quizy-gateway/internal/config"
	"github.com/nagendrasomala/quizy-gateway/internal/database"
	"github.com/nagendrasomala/quizy-gateway/internal/handler"
	"github.com/nagendrasomala/quizy-gateway/internal/logger"
	"github.com/nagendrasomala/quizy-gateway/internal/router"
	"github.com/nagendrasomala/quizy-gateway/internal/session"
	"github.com/nagendrasomala/quizy-gateway/internal/store"
	"github.com/nagendrasomala/quizy-gateway/internal/upstream"
	"github.com/nagendrasomala/quizy-gateway/internal/validator"
	"github.com/nagendrasomala/quizy-gateway/internal/worker"
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
		Str("quiz_api", cfg.QuizAPIBaseURL).
		Msg("Starting Quizy Session Gateway")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Wire the Session Core ─────────────────────────────────────────
	quizAPI := upstream.New(cfg.QuizAPIBaseURL, cfg.QuizAPITimeout, log)
	answerStore := store.NewRedisStore(rdb)
	recorder := worker.NewRecorder(rdb, log)
	manager := session.NewManager(quizAPI, answerStore, recorder, cfg.ViolationLimit, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(manager),
		WS:      handler.NewWSHandler(manager, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	waitWorkers := worker.RunAll(workerCtx,
		worker.NewViolationWorker(pool, rdb, log),
		worker.NewSubmissionWorker(pool, rdb, log),
	)

	go manager.Sweep(workerCtx, time.Minute, 10*time.Minute)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

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

	// 2. Stop live session countdowns so no ticker acts on a dead server.
	manager.CloseAll()

	// 3. Stop background workers and wait for their drain passes to finish.
	workerCancel()
	waitWorkers()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
