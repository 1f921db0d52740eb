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

	_ "github.com/conradkoh/jcep-sub000/docs" // This is for Swagger
	"github.com/conradkoh/jcep-sub000/internal/auth"
	"github.com/conradkoh/jcep-sub000/internal/config"
	"github.com/conradkoh/jcep-sub000/internal/database"
	"github.com/conradkoh/jcep-sub000/internal/email"
	"github.com/conradkoh/jcep-sub000/internal/handlers"
	"github.com/conradkoh/jcep-sub000/internal/logger"
	"github.com/conradkoh/jcep-sub000/internal/middleware"
	"github.com/conradkoh/jcep-sub000/internal/repository"
	"github.com/conradkoh/jcep-sub000/internal/scheduler"
	"github.com/conradkoh/jcep-sub000/internal/service"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title JCEP API
// @version 1.0
// @description Backend API for the Junior Commander Engagement Programme: public applications and rotation review forms

// @contact.name API Support
// @contact.email support@jcep.org

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	roleRepo := repository.NewRoleRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	applicationRepo := repository.NewApplicationRepository(db.DB)
	reviewFormRepo := repository.NewReviewFormRepository(db.DB)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	emailService := email.NewService(&cfg.Email)
	authSvc := service.NewAuthService(userRepo, roleRepo, sessionRepo, authService)
	applicationSvc := service.NewApplicationService(applicationRepo, auditRepo, emailService)
	reviewFormSvc := service.NewReviewFormService(reviewFormRepo, userRepo, auditRepo, emailService, &cfg.Review, &cfg.App)

	// Initialize scheduler
	sched := scheduler.New(&cfg.Reminder, reviewFormSvc, authSvc)
	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo, userRepo)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)
	auditMw := middleware.NewAuditMiddleware(db.DB)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, auditMw)
	applicationHandler := handlers.NewApplicationHandler(applicationSvc)
	reviewFormHandler := handlers.NewReviewFormHandler(reviewFormSvc)

	// Setup router
	mux := http.NewServeMux()

	// Auth routes
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.Handle("POST /api/v1/auth/logout", authMw.Authenticate(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/v1/auth/me", authMw.Authenticate(http.HandlerFunc(authHandler.Me)))

	// Application routes. Submission is public; everything else is admin.
	mux.HandleFunc("POST /api/v1/applications", applicationHandler.Submit)
	mux.Handle("GET /api/v1/applications",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(applicationHandler.List),
			),
		),
	)
	mux.Handle("GET /api/v1/applications/count-by-year",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(applicationHandler.CountByYear),
			),
		),
	)
	mux.Handle("GET /api/v1/applications/export",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(applicationHandler.Export),
			),
		),
	)
	mux.Handle("GET /api/v1/applications/{id}",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(applicationHandler.Get),
			),
		),
	)
	mux.Handle("POST /api/v1/applications/{id}/archive",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(applicationHandler.Archive),
			),
		),
	)
	mux.Handle("POST /api/v1/applications/{id}/unarchive",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(applicationHandler.Unarchive),
			),
		),
	)

	// Review form routes - authenticated sessions. Per-form permissions are
	// enforced in the service; routes only require a valid login.
	mux.Handle("POST /api/v1/review-forms",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(reviewFormHandler.Create),
			),
		),
	)
	mux.Handle("GET /api/v1/review-forms",
		authMw.Authenticate(http.HandlerFunc(reviewFormHandler.List)))
	mux.Handle("GET /api/v1/review-forms/rotation-years",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(reviewFormHandler.RotationYears),
			),
		),
	)
	mux.Handle("GET /api/v1/review-forms/{id}",
		authMw.Authenticate(http.HandlerFunc(reviewFormHandler.Get)))
	mux.Handle("DELETE /api/v1/review-forms/{id}",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(reviewFormHandler.Delete),
			),
		),
	)
	mux.Handle("PUT /api/v1/review-forms/{id}/particulars",
		authMw.Authenticate(http.HandlerFunc(reviewFormHandler.UpdateParticulars)))
	mux.Handle("PUT /api/v1/review-forms/{id}/buddy-evaluation",
		authMw.Authenticate(http.HandlerFunc(reviewFormHandler.UpdateBuddyEvaluation)))
	mux.Handle("PUT /api/v1/review-forms/{id}/jc-reflection",
		authMw.Authenticate(http.HandlerFunc(reviewFormHandler.UpdateJCReflection)))
	mux.Handle("PUT /api/v1/review-forms/{id}/jc-feedback",
		authMw.Authenticate(http.HandlerFunc(reviewFormHandler.UpdateJCFeedback)))
	mux.Handle("POST /api/v1/review-forms/{id}/submit",
		authMw.Authenticate(http.HandlerFunc(reviewFormHandler.Submit)))
	mux.Handle("PUT /api/v1/review-forms/{id}/visibility",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(reviewFormHandler.UpdateVisibility),
			),
		),
	)
	mux.Handle("POST /api/v1/review-forms/{id}/regenerate-tokens",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(reviewFormHandler.RegenerateTokens),
			),
		),
	)
	mux.Handle("GET /api/v1/review-forms/{id}/links",
		authMw.Authenticate(
			middleware.RequireRole("admin")(
				http.HandlerFunc(reviewFormHandler.GetLinks),
			),
		),
	)

	// Review form routes - anonymous access links. No session required; the
	// token itself scopes the caller to one form and one role.
	mux.HandleFunc("GET /api/v1/review-forms/token/{token}", reviewFormHandler.GetByToken)
	mux.HandleFunc("PUT /api/v1/review-forms/token/{token}/buddy-evaluation", reviewFormHandler.UpdateBuddyEvaluationByToken)
	mux.HandleFunc("PUT /api/v1/review-forms/token/{token}/jc-reflection", reviewFormHandler.UpdateJCReflectionByToken)
	mux.HandleFunc("PUT /api/v1/review-forms/token/{token}/jc-feedback", reviewFormHandler.UpdateJCFeedbackByToken)
	mux.HandleFunc("POST /api/v1/review-forms/token/{token}/submit", reviewFormHandler.SubmitByToken)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`)); err != nil {
				slog.Error("Failed to write health check response", "error", err)
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`)); err != nil {
			slog.Error("Failed to write health check response", "error", err)
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		corsMw.Handler(
			rateLimiter.Limit(mux),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
