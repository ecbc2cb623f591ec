// Package server assembles the HTTP routes.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/events"
	"github.com/careerlift/backend/internal/handler"
	"github.com/careerlift/backend/internal/metrics"
	appMiddleware "github.com/careerlift/backend/internal/middleware"
	"github.com/careerlift/backend/internal/service"
	"github.com/careerlift/backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Deps are the services and settings the router is built from.
type Deps struct {
	Log            *slog.Logger
	Auth           *service.AuthService
	Subscriptions  *service.SubscriptionService
	Assignments    *service.AssignmentService
	Submissions    *service.SubmissionService
	Stats          *service.StatsService
	Events         events.Subscriber
	HealthChecks   []handler.HealthCheck
	Location       *time.Location
	CORSOrigins    []string
	MetricsEnabled bool

	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64
}

// NewRouter builds the HTTP handler. ctx bounds the rate limiter's
// background cleanup.
func NewRouter(ctx context.Context, d Deps) http.Handler {
	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Auth)
	paymentHandler := handler.NewPaymentHandler(d.Subscriptions)
	adminHandler := handler.NewAdminHandler(d.Subscriptions, d.Stats)
	assignmentHandler := handler.NewAssignmentHandler(d.Assignments, d.Submissions, d.Location)
	submissionHandler := handler.NewSubmissionHandler(d.Submissions)
	jobSeekerHandler := handler.NewJobSeekerHandler(d.Assignments, d.Submissions, d.Location)
	healthHandler := handler.NewHealthHandler(d.HealthChecks...)
	feedHandler := ws.NewFeedHandler(d.Auth, d.Events, d.Log)

	r := chi.NewRouter()

	r.Use(appMiddleware.Recovery(d.Log))
	r.Use(appMiddleware.Logger(d.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.SignatureHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if d.RateLimit > 0 {
		r.Use(appMiddleware.NewRateLimiter(ctx, d.RateLimit, int(2*d.RateLimit)).Middleware())
	}

	// Public
	r.Get("/health", healthHandler.Check)
	if d.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}
	r.Get("/api/plans", handler.ListPlans)
	r.Group(func(r chi.Router) {
		if d.RateLimit > 0 {
			r.Use(appMiddleware.StrictRateLimiter(ctx))
		}
		r.Post("/api/payment/webhook", paymentHandler.Webhook)
	})
	r.Get("/ws/submissions", feedHandler.Handle)

	// Session bootstrap: a valid token is enough, the user row may not exist yet.
	r.With(appMiddleware.RequireToken(d.Auth)).Post("/api/auth/session", authHandler.Session)

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.RequireRole(d.Auth, d.Log))
		r.Get("/api/auth/me", authHandler.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.RequireRole(d.Auth, d.Log, domain.RoleJobSeeker))
		r.Post("/api/payment/checkout", paymentHandler.CreateCheckout)
		r.Get("/api/payment/subscription", paymentHandler.GetSubscription)
		r.Get("/api/jobseeker/assignment", jobSeekerHandler.Assignment)
		r.Get("/api/jobseeker/submissions", jobSeekerHandler.Submissions)
		r.Get("/api/jobseeker/submissions/export", jobSeekerHandler.Export)
	})

	r.Route("/api/recruiter", func(r chi.Router) {
		r.Use(appMiddleware.RequireRole(d.Auth, d.Log, domain.RoleRecruiter))
		r.Get("/assignments", assignmentHandler.ListMine)
		r.Get("/assignments/{id}", assignmentHandler.GetMine)
		r.Get("/submissions", submissionHandler.List)
		r.Post("/submissions", submissionHandler.Create)
		r.Get("/submissions/{id}", submissionHandler.Get)
		r.Put("/submissions/{id}", submissionHandler.Update)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(appMiddleware.RequireRole(d.Auth, d.Log, domain.RoleAdmin))
		r.Get("/recruiter-assignments", assignmentHandler.List)
		r.Post("/recruiter-assignments", assignmentHandler.Create)
		r.Get("/recruiter-assignments/{id}", assignmentHandler.Get)
		r.Put("/recruiter-assignments/{id}", assignmentHandler.Update)
		r.Delete("/recruiter-assignments/{id}", assignmentHandler.Deactivate)
		r.Get("/recruiter-assignments/{id}/submissions/export", assignmentHandler.Export)
		r.Get("/subscriptions", adminHandler.Queue)
		r.Get("/users", userHandler.List)
		r.Put("/users/{id}/role", userHandler.UpdateRole)
		r.Get("/stats", adminHandler.GetStats)
		r.Post("/payment/simulate", paymentHandler.Simulate)
	})

	return r
}
