package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mediclin/platform/internal/dashboard"
	"github.com/mediclin/platform/internal/insight"
	"github.com/mediclin/platform/internal/measurement"
	"github.com/mediclin/platform/internal/patient"
	"github.com/mediclin/platform/internal/report"
	"github.com/mediclin/platform/internal/scoring"
	"github.com/mediclin/platform/internal/shared/config"
	"github.com/mediclin/platform/internal/shared/database"
	"github.com/mediclin/platform/internal/shared/logger"
	"github.com/mediclin/platform/internal/shared/metrics"
	secmiddleware "github.com/mediclin/platform/internal/shared/middleware"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *database.DB
	Log    *zap.Logger
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// The store is a local file, created on first run.
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to open database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.SQL); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	app := &App{Config: cfg, DB: db, Log: log}

	// Repositories and services
	patientRepo := patient.NewRepository(db.SQL)
	measurementRepo := measurement.NewRepository(db.SQL)
	insightRepo := insight.NewRepository(db.SQL)
	engine := scoring.NewEngine()
	insightService := insight.NewService(insightRepo, patientRepo, measurementRepo, engine, cfg.Scoring, log)

	patientHandler := patient.NewHandler(patientRepo, log)
	measurementHandler := measurement.NewHandler(measurementRepo, patientRepo, log)
	insightHandler := insight.NewHandler(insightRepo, patientRepo, insightService)
	reportHandler := report.NewHandler(patientRepo, insightRepo, log)

	dashboardHandler, err := dashboard.NewHandler(patientRepo, measurementRepo, insightRepo, insightService, log)
	if err != nil {
		log.Fatal("failed to build dashboard", zap.Error(err))
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(secmiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.InputSanitizer)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.RateLimiter(100, 200))

	// Health checks
	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// JSON API
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/patients", func(r chi.Router) {
			r.Get("/", patientHandler.ListPatients)
			r.Post("/", patientHandler.CreatePatient)

			r.Route("/{patientID}", func(r chi.Router) {
				r.Get("/", patientHandler.GetPatient)
				r.Put("/", patientHandler.UpdatePatient)
				r.Delete("/", patientHandler.DeletePatient)

				r.Mount("/measurements", measurementHandler.Routes())
				r.Post("/analyze", insightHandler.Analyze)
				r.Get("/insights", insightHandler.ListInsights)
			})
		})
		r.Mount("/reports", reportHandler.Routes())
		r.Get("/overview", dashboardHandler.OverviewJSON)
	})

	// HTML dashboard
	r.Mount("/", dashboardHandler.Routes())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	log.Info("mediclin started",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", srv.Addr),
		zap.String("database", cfg.Database.Path),
	)
	fmt.Printf("MediClin dashboard: http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("JSON API:           http://%s:%d/api/v1\n", cfg.Server.Host, cfg.Server.Port)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}

	<-done
	log.Info("server stopped")
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if err := app.DB.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
