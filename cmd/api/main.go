package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	accessHandler "github.com/clinicore/phi-gate/internal/handler/access"
	auditHandler "github.com/clinicore/phi-gate/internal/handler/audit"
	authHandler "github.com/clinicore/phi-gate/internal/handler/auth"
	consentHandler "github.com/clinicore/phi-gate/internal/handler/consent"
	healthHandler "github.com/clinicore/phi-gate/internal/handler/health"
	"github.com/clinicore/phi-gate/internal/middleware"
	"github.com/clinicore/phi-gate/internal/repository/postgres"
	"github.com/clinicore/phi-gate/internal/router"
	accessService "github.com/clinicore/phi-gate/internal/service/access"
	auditService "github.com/clinicore/phi-gate/internal/service/audit"
	authService "github.com/clinicore/phi-gate/internal/service/auth"
	consentService "github.com/clinicore/phi-gate/internal/service/consent"
	mfaService "github.com/clinicore/phi-gate/internal/service/mfa"
	sessionService "github.com/clinicore/phi-gate/internal/service/session"
	"github.com/clinicore/phi-gate/internal/worker"

	"github.com/clinicore/phi-gate/internal/config"
	"github.com/clinicore/phi-gate/pkg/alert"
	"github.com/clinicore/phi-gate/pkg/logger"
	"github.com/clinicore/phi-gate/pkg/metrics"
	"github.com/clinicore/phi-gate/pkg/ratelimit"
	"github.com/clinicore/phi-gate/pkg/security"
	"github.com/clinicore/phi-gate/pkg/token"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	m := metrics.NewMetrics("phi_gate")

	var notifier alert.Notifier = alert.NopNotifier{}
	if cfg.Alerts.SMTPHost != "" && len(cfg.Alerts.To) > 0 {
		notifier = alert.NewMailer(alert.Config{
			Host:     cfg.Alerts.SMTPHost,
			Port:     cfg.Alerts.SMTPPort,
			Username: cfg.Alerts.Username,
			Password: cfg.Alerts.Password,
			From:     cfg.Alerts.From,
			To:       cfg.Alerts.To,
		})
	}

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db)
	principalRepo := postgres.NewPrincipalRepository(baseRepo)
	sessionRepo := postgres.NewSessionRepository(baseRepo)
	attemptRepo := postgres.NewLoginAttemptRepository(baseRepo)
	lockoutRepo := postgres.NewLockoutRepository(baseRepo)
	consentRepo := postgres.NewConsentRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)
	relationshipRepo := postgres.NewRelationshipRepository(baseRepo)

	// Initialize services
	auditSvc := auditService.NewService(auditRepo, notifier, appLogger, m)
	consentSvc := consentService.NewService(consentRepo, auditSvc, relationshipRepo)
	sessionSvc := sessionService.NewService(sessionRepo, lockoutRepo, auditSvc, sessionService.Config{
		Timeout:         time.Duration(cfg.Session.TimeoutMinutes) * time.Minute,
		MaxConcurrent:   cfg.Session.MaxConcurrent,
		AllowConcurrent: cfg.Session.AllowConcurrent,
		CleanupInterval: 5 * time.Minute,
	}, m)

	limiter := ratelimit.NewRedisLimiter(redisClient, ratelimit.DefaultPolicies())

	phiCipher, err := security.NewPHICipherFromBase64(cfg.Encryption.KeyBase64)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize field cipher")
	}

	mfaSvc := mfaService.NewService(
		mfaService.NewTOTPVerifier(principalRepo, phiCipher, m),
		limiter,
		auditSvc,
		mfaService.Config{GracePeriod: time.Duration(cfg.MFA.GracePeriodDays) * 24 * time.Hour},
		m,
	)

	tokenSvc := token.NewService(token.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessExpiry:  time.Duration(cfg.JWT.AccessExpiryMinutes) * time.Minute,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryMinutes) * time.Minute,
		Issuer:        cfg.JWT.Issuer,
	})

	authSvc := authService.NewService(
		principalRepo,
		attemptRepo,
		lockoutRepo,
		sessionSvc,
		mfaSvc,
		tokenSvc,
		security.NewBcryptHasher(cfg.Auth.BcryptCost),
		limiter,
		auditSvc,
		authService.Config{
			MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
			FailureWindow:     time.Duration(cfg.Auth.FailureWindowMinutes) * time.Minute,
			LockoutDuration:   time.Duration(cfg.Auth.LockoutMinutes) * time.Minute,
		},
		m,
	)

	engine := accessService.NewEngine(consentSvc, relationshipRepo, auditSvc, appLogger, m)

	// Initialize middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(sessionSvc, principalRepo)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc, sessionSvc),
		accessHandler.NewHandler(engine),
		consentHandler.NewHandler(consentSvc),
		auditHandler.NewHandler(auditSvc),
		healthHandler.NewHandler(db),
	)
	r.Setup(cfg.Server.RequestsPerSecond, cfg.Server.RequestBurst)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	// In-process session sweeper; the standalone worker covers
	// deployments that scale the API horizontally.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	go worker.NewSessionCleanupWorker(sessionSvc, 5*time.Minute, appLogger).Start(workerCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	appLogger.Info("server started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")
	cancelWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
