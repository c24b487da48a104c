package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arkadem/campus-platform-iam/internal/core/port"
	"github.com/arkadem/campus-platform-iam/internal/infra/config"
	"github.com/arkadem/campus-platform-iam/internal/infra/database"
	kafkainfra "github.com/arkadem/campus-platform-iam/internal/infra/kafka"
	"github.com/arkadem/campus-platform-iam/internal/infra/logger"
	"github.com/arkadem/campus-platform-iam/internal/infra/mail"
	authmetrics "github.com/arkadem/campus-platform-iam/internal/infra/metrics"
	redisinfra "github.com/arkadem/campus-platform-iam/internal/infra/redis"
	"github.com/arkadem/campus-platform-iam/internal/infra/security"
	postgresrepo "github.com/arkadem/campus-platform-iam/internal/repository/postgres"
	redisrepo "github.com/arkadem/campus-platform-iam/internal/repository/redis"
	"github.com/arkadem/campus-platform-iam/internal/transport/http/middleware"
	"github.com/arkadem/campus-platform-iam/internal/transport/http/routes"
	"github.com/arkadem/campus-platform-iam/internal/usecase"
)

// Application owns the process-wide resources and the HTTP server.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New wires the full service graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	signer, err := security.NewJWTSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init jwt signer: %w", err)
	}

	notifier, err := mail.NewSMTPNotifier(cfg.SMTP, log)
	if err != nil {
		return nil, fmt.Errorf("init smtp notifier: %w", err)
	}

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	accountRepo := postgresrepo.NewAccountRepository(pool)
	transientStore := redisrepo.NewTransientStore(redisClient.Client())
	profileCache := redisrepo.NewAccountCache(redisClient.Client(), cfg.Redis.AccountCachePrefix, cfg.Redis.AccountCacheTTL)

	verification := usecase.NewVerificationService(transientStore, notifier, usecase.VerificationConfig{
		RegisterCodeTTL:     cfg.Auth.RegisterCodeTTL,
		RegisterCodeRateTTL: cfg.Auth.RegisterCodeRateTTL,
		ResetCodeTTL:        cfg.Auth.ResetCodeTTL,
		ResetCodeRateTTL:    cfg.Auth.ResetCodeRateTTL,
	}, log)

	guard := usecase.NewLoginGuard(transientStore, eventPublisher, usecase.LoginGuardConfig{
		FailWindow: cfg.Auth.LoginFailWindow,
		LockTTL:    cfg.Auth.LoginLockTTL,
		MaxFails:   cfg.Auth.LoginMaxFails,
	}, log)

	tokens := usecase.NewSessionTokenService(transientStore, signer, cfg.JWT.RefreshTokenTTL)

	authService := usecase.NewAuthService(accountRepo, profileCache, verification, guard, tokens, eventPublisher, usecase.AuthConfig{
		EmailSuffix:          cfg.Auth.EmailSuffix,
		ReactivationCooldown: cfg.Auth.ReactivationCooldown,
		MinPasswordScore:     cfg.Auth.MinPasswordScore,
	}, log)

	accountService := usecase.NewAccountService(accountRepo, profileCache, tokens, cfg.Auth.MinPasswordScore, eventPublisher, log)

	lifecycleMetrics, err := authmetrics.NewAuthMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("init auth metrics: %w", err)
	}
	verification.WithMetrics(lifecycleMetrics)
	guard.WithMetrics(lifecycleMetrics)
	authService.WithMetrics(lifecycleMetrics)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Signer:   signer,
		Metrics:  metrics,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Auth:     authService,
			Accounts: accountService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting IAM API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
