package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/igorsal/bitbucket-notifier/api/handlers"
	"github.com/igorsal/bitbucket-notifier/api/middleware"
	"github.com/igorsal/bitbucket-notifier/internal/config"
	"github.com/igorsal/bitbucket-notifier/internal/interfaces"
	"github.com/igorsal/bitbucket-notifier/internal/services"
	"github.com/igorsal/bitbucket-notifier/io/slack"
	"github.com/igorsal/bitbucket-notifier/pkg/logger"
	"github.com/igorsal/bitbucket-notifier/pkg/metrics"
)

const (
	DefaultVersion  = "1.0.0"
	ShutdownTimeout = 30 * time.Second
	IdleTimeout     = 120 * time.Second
)

// Application holds all dependencies
type Application struct {
	config   *config.Config
	logger   interfaces.Logger
	metrics  interfaces.MetricsCollector
	router   *services.Router
	notifier interfaces.NotifierService
	server   *http.Server
}

func main() {
	app, err := initializeApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	app.logger.Info("Starting Bitbucket notifier",
		"version", DefaultVersion,
		"environment", os.Getenv("ENVIRONMENT"),
		"mapped_users", len(app.config.Notify.UserMapping),
		"mention_reviewers", app.config.Notify.MentionReviewers,
	)

	if err := app.run(); err != nil {
		app.logger.Fatal("Application failed to run", err)
	}
}

// initializeApplication wires configuration, clients and services
func initializeApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewAdapter(cfg.Logging.Level, cfg.Logging.Format)
	collector := metrics.NewPrometheusCollector()

	router := services.NewRouter(cfg.Notify, log)
	slackClient := slack.NewClient(cfg.Slack, log, collector)
	notifier := services.NewNotifierService(router, slackClient, log, collector)

	app := &Application{
		config:   cfg,
		logger:   log,
		metrics:  collector,
		router:   router,
		notifier: notifier,
	}

	app.setupServer()

	return app, nil
}

// setupServer configures the HTTP server with all routes and middleware
func (app *Application) setupServer() {
	healthHandler := handlers.NewHealthHandler(app.router, app.logger)
	webhookHandler := handlers.NewWebhookHandler(app.notifier, app.logger)

	router := mux.NewRouter()

	// Apply global middleware in order
	router.Use(middleware.PanicRecoveryMiddleware(app.logger))
	router.Use(middleware.MetricsMiddleware(app.metrics))
	router.Use(middleware.LoggingMiddleware(app.logger))

	router.HandleFunc("/health", healthHandler.Handle).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/webhook", webhookHandler.Handle).Methods("POST")
	router.HandleFunc("/invoke", webhookHandler.HandleInvocation).Methods("POST")

	app.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", app.config.Server.Host, app.config.Server.Port),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}
}

// run starts the application and handles graceful shutdown
func (app *Application) run() error {
	serverErrors := make(chan error, 1)

	go func() {
		app.logger.Info("Starting HTTP server",
			"host", app.config.Server.Host,
			"port", app.config.Server.Port,
			"tls", app.config.Server.TLSEnabled(),
		)

		var err error
		if app.config.Server.TLSEnabled() {
			err = app.server.ListenAndServeTLS(app.config.Server.TLSCertFile, app.config.Server.TLSKeyFile)
		} else {
			err = app.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)

	case <-ctx.Done():
		app.logger.Info("Shutdown signal received")
		return app.gracefulShutdown()
	}
}

// gracefulShutdown drains in-flight requests, forcing close after ShutdownTimeout
func (app *Application) gracefulShutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("Graceful shutdown failed", err)
		if closeErr := app.server.Close(); closeErr != nil {
			app.logger.Error("Force shutdown also failed", closeErr)
		}
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("Graceful shutdown completed successfully")
	return nil
}
