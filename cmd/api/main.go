package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/talentexchange/backend/db/migrations"
	"github.com/talentexchange/backend/internal/auth"
	"github.com/talentexchange/backend/internal/config"
	"github.com/talentexchange/backend/internal/handlers"
	"github.com/talentexchange/backend/internal/middleware"
	"github.com/talentexchange/backend/internal/notify"
	"github.com/talentexchange/backend/internal/repository"
	"github.com/talentexchange/backend/internal/router"
	"github.com/talentexchange/backend/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	// Schema migrations (goose)
	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		slog.Error("Schema migrations failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Schema migrations applied")

	// River migrations (job tables)
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first (e.g. make dev-up)", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	proposalRepo := repository.NewProposalRepo(pool)
	txnRepo := repository.NewTransactionRepo(pool)
	reviewRepo := repository.NewReviewRepo(pool)
	notificationRepo := repository.NewNotificationRepo(pool)

	// Notification delivery worker
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewWorker(notificationRepo, cfg.PushURL))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Services
	ledger := services.NewLedger(userRepo, txnRepo)
	flow := services.NewTaskFlow(taskRepo, proposalRepo, ledger)
	catalog := services.NewTaskCatalog(taskRepo)
	registry := services.NewProposalRegistry(proposalRepo, taskRepo)
	reviews := services.NewReviewAggregator(reviewRepo, taskRepo, userRepo)
	coord := services.NewCoordinator(pool, flow, registry, reviews, ledger,
		userRepo, taskRepo, txnRepo, notify.NewPublisher(riverClient), logger)

	// Auth
	authSvc := auth.NewService(userRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	// HTTP surface
	taskHandler := &handlers.TaskHandler{Catalog: catalog, Registry: registry, Coord: coord, Logger: logger}
	userHandler := &handlers.UserHandler{Users: userRepo, Reviews: reviewRepo, Logger: logger}
	notificationHandler := &handlers.NotificationHandler{Store: notificationRepo, Logger: logger}

	mux := http.NewServeMux()
	mux.Handle("/api/", router.New(authHandler))
	RegisterV1Routes(mux, middleware.JWTAuth(authSvc), taskHandler, userHandler, notificationHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (delivers notifications)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
