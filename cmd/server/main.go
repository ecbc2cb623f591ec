package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careerlift/backend/internal/config"
	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/events"
	"github.com/careerlift/backend/internal/handler"
	"github.com/careerlift/backend/internal/logger"
	"github.com/careerlift/backend/internal/notify"
	"github.com/careerlift/backend/internal/repository"
	"github.com/careerlift/backend/internal/server"
	"github.com/careerlift/backend/internal/service"
	"github.com/careerlift/backend/pkg/mailer"
	"github.com/careerlift/backend/pkg/payment"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	loadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := repository.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("database connected and migrated")

	healthChecks := []handler.HealthCheck{{Name: "database", Ping: db.Ping}}

	// Events: Redis when configured, otherwise an in-process bus.
	var bus interface {
		events.Publisher
		events.Subscriber
	}
	if cfg.RedisURL != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		bus = events.NewRedisBus(rdb, log)
		healthChecks = append(healthChecks, handler.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		log.Info("redis connected")
	} else {
		bus = events.NewMemory(log)
		log.Warn("REDIS_URL not set, live feed limited to this instance")
	}

	// Notifications
	var mail notify.Mailer
	if cfg.Mail.Host != "" {
		mail = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	} else {
		mail = mailer.NewLogMailer(log)
		log.Warn("SMTP_HOST not set, emails are logged instead of sent")
	}
	dispatcher, err := notify.NewDispatcher(mail, log)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	policy, err := domain.NewTransitionPolicy(cfg.SubmissionTransitions)
	if err != nil {
		return fmt.Errorf("transition policy: %w", err)
	}
	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET not set, payment webhooks will be rejected")
	}
	gateway := payment.NewMockGateway(cfg.CheckoutBaseURL, cfg.WebhookSecret)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db, cfg.Timezone)
	submissionRepo := repository.NewSubmissionRepository(db)
	statsRepo := repository.NewStatsRepository(db, cfg.Timezone)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret, userRepo, log)
	subSvc := service.NewSubscriptionService(subRepo, userRepo, gateway, dispatcher, cfg.AdminEmail, log)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, subRepo, userRepo, submissionRepo, dispatcher, bus, log)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, policy, bus, log)
	statsSvc := service.NewStatsService(statsRepo)

	sweeper := service.NewExpirySweeper(subSvc, cfg.ExpirySweepSpec, log)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}
	defer sweeper.Stop()

	router := server.NewRouter(ctx, server.Deps{
		Log:            log,
		Auth:           authSvc,
		Subscriptions:  subSvc,
		Assignments:    assignmentSvc,
		Submissions:    submissionSvc,
		Stats:          statsSvc,
		Events:         bus,
		HealthChecks:   healthChecks,
		Location:       cfg.Location,
		CORSOrigins:    cfg.CORSOrigins,
		MetricsEnabled: cfg.MetricsEnabled,
		RateLimit:      20,
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout must be 0 for WebSocket connections (they are long-lived)
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("careerlift backend listening", "addr", addr, "env", cfg.Env, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// loadDotEnv reads a .env file if one exists. A missing file is normal outside
// local development.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}
}
