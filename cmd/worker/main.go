package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/phi-gate/internal/config"
	"github.com/clinicore/phi-gate/internal/repository/postgres"
	auditService "github.com/clinicore/phi-gate/internal/service/audit"
	sessionService "github.com/clinicore/phi-gate/internal/service/session"
	"github.com/clinicore/phi-gate/internal/worker"
	"github.com/clinicore/phi-gate/pkg/alert"
	"github.com/clinicore/phi-gate/pkg/logger"
	"github.com/clinicore/phi-gate/pkg/metrics"
)

// workerConfig is read from the environment; the worker ships without
// a config file so it can run as a bare cron-style container.
type workerConfig struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"phigate"`
	DBPassword string `envconfig:"DB_PASSWORD" default:""`
	DBName     string `envconfig:"DB_NAME" default:"phigate"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	SessionTimeoutMinutes  int `envconfig:"SESSION_TIMEOUT_MINUTES" default:"30"`
	CleanupIntervalMinutes int `envconfig:"CLEANUP_INTERVAL_MINUTES" default:"5"`
	AuditRetentionDays     int `envconfig:"AUDIT_RETENTION_DAYS" default:"2190"`
	RetentionIntervalHours int `envconfig:"RETENTION_INTERVAL_HOURS" default:"24"`

	MetricsPort int `envconfig:"METRICS_PORT" default:"8081"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("PHIGATE", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("phi_gate_worker")

	baseRepo := postgres.NewBaseRepository(db)
	sessionRepo := postgres.NewSessionRepository(baseRepo)
	lockoutRepo := postgres.NewLockoutRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)

	auditSvc := auditService.NewService(auditRepo, alert.NopNotifier{}, appLogger, m)
	sessionSvc := sessionService.NewService(sessionRepo, lockoutRepo, auditSvc, sessionService.Config{
		Timeout:         time.Duration(cfg.SessionTimeoutMinutes) * time.Minute,
		CleanupInterval: time.Duration(cfg.CleanupIntervalMinutes) * time.Minute,
	}, m)

	go serveHealth(cfg.MetricsPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down...")
		cancel()
	}()

	go worker.NewAuditRetentionWorker(
		auditRepo,
		cfg.AuditRetentionDays,
		time.Duration(cfg.RetentionIntervalHours)*time.Hour,
		appLogger,
	).Start(ctx)

	worker.NewSessionCleanupWorker(
		sessionSvc,
		time.Duration(cfg.CleanupIntervalMinutes)*time.Minute,
		appLogger,
	).Start(ctx)
}

func serveHealth(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + strconv.Itoa(port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		appLogger.Error(err, "health server failed")
	}
}
