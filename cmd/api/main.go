package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/chingu-finance/scheduler/internal/config"
	"github.com/chingu-finance/scheduler/internal/handler"
	"github.com/chingu-finance/scheduler/internal/integrations/gemini"
	"github.com/chingu-finance/scheduler/internal/repository"
	"github.com/chingu-finance/scheduler/internal/scheduler"
	"github.com/chingu-finance/scheduler/internal/service"
	"github.com/chingu-finance/scheduler/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	sender := email.NewSender(cfg, logger)
	summarizer := gemini.NewClient(cfg, logger)
	svc := service.NewService(repo, sender, summarizer, logger)
	h := handler.NewHandler(svc, cfg, logger)

	// Register periodic jobs
	sched := scheduler.New(scheduler.RetryPolicy{
		MaxAttempts: cfg.JobMaxAttempts,
		BaseDelay:   cfg.JobRetryBaseDelay,
	}, logger)
	jobs := []scheduler.Job{
		{
			ID:   "check-budget-alerts",
			Spec: "0 */6 * * *", // every 6 hours
			Run: func(ctx context.Context) error {
				return svc.CheckBudgetAlerts(ctx, time.Now())
			},
		},
		{
			ID:   "materialize-recurring",
			Spec: "0 0 * * *", // daily at midnight
			Run: func(ctx context.Context) error {
				return svc.MaterializeDueTemplates(ctx, time.Now())
			},
		},
		{
			ID:   "send-monthly-reports",
			Spec: "0 0 1 * *", // first of every month
			Run: func(ctx context.Context) error {
				return svc.SendMonthlyReports(ctx, time.Now())
			},
		},
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			logger.Fatalf("Failed to register job: %v", err)
		}
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	// Setup router
	r := mux.NewRouter()
	r.HandleFunc("/events/recurring/approval", h.ApproveRecurring).Methods("POST")
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
