// Package main is the entry point for the API server.
// It loads configuration, wires repositories, clients and services,
// and serves HTTP until SIGINT or SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wyse/internal/clients/mindsdb"
	monoclient "wyse/internal/clients/mono"
	"wyse/internal/config"
	"wyse/internal/events"
	"wyse/internal/handlers"
	"wyse/internal/logger"
	"wyse/internal/middleware"
	"wyse/internal/repositories"
	"wyse/internal/repositories/cache"
	"wyse/internal/routes"
	"wyse/internal/scheduler"
	"wyse/internal/services/auth"
	"wyse/internal/services/knowledge"
	"wyse/internal/services/mono"
	"wyse/internal/services/notification"
	"wyse/internal/services/otp"
	"wyse/internal/services/user"
	"wyse/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.Init(config.IsProduction())
		logger.Log.Fatal("invalid configuration", zap.Error(err))
	}
	logger.Init(cfg.IsProduction())
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repositories.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			logger.Log.Warn("failed to close database connection", zap.Error(err))
		}
	}()
	if err := repositories.Migrate(ctx, db); err != nil {
		logger.Log.Fatal("failed to apply migrations", zap.Error(err))
	}
	logger.Log.Info("connected to database with connection pooling")

	cacheService := cache.NewCacheService(cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), 15*time.Minute)
	defer func() {
		stats := cacheService.GetStats()
		logger.Log.Info("redis pool stats",
			zap.Uint32("hits", stats.Hits),
			zap.Uint32("misses", stats.Misses),
			zap.Uint32("timeouts", stats.Timeouts),
			zap.Uint32("total_conns", stats.TotalConns),
		)
		if err := cacheService.Close(); err != nil {
			logger.Log.Warn("failed to close redis connection", zap.Error(err))
		}
	}()
	var userCache repositories.UserCache
	if err := cacheService.HealthCheck(ctx); err != nil {
		logger.Log.Warn("redis unavailable; user cache disabled", zap.Error(err))
	} else {
		userCache = cacheService
	}

	publisher := events.NewPublisher(cfg.RabbitMQURL)
	defer publisher.Close()

	mailer := newMailer(cfg)

	users := repositories.NewUserRepository(db, userCache)
	accounts := repositories.NewLinkedAccountRepository(db)
	transactions := repositories.NewTransactionRepository(db)
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)

	otpService := otp.NewService(repositories.NewOTPRepository(db), otp.Config{
		Expiry:      time.Duration(cfg.OTPExpiryMinutes) * time.Minute,
		MaxAttempts: cfg.OTPMaxAttempts,
	})
	authService := auth.NewService(auth.Deps{
		Users:     users,
		OTPs:      otpService,
		Mailer:    mailer,
		Tokens:    tokens,
		Publisher: publisher,
	}, auth.Config{BcryptCost: cfg.BcryptRounds})

	mindsClient := mindsdb.NewClient(cfg.MindsDBURL())
	if err := mindsClient.Connect(ctx); err != nil {
		logger.Log.Warn("mindsdb not available; will connect on first use", zap.Error(err))
	}
	var markers knowledge.Markers
	if userCache != nil {
		markers = cacheService
	}
	kb := knowledge.NewService(mindsClient, markers, knowledge.Config{
		GeminiAPIKey:   cfg.GeminiAPIKey,
		ModelEngine:    cfg.MindsDBDefaultEngine,
		SourceDatabase: cfg.MindsDBSourceDB,
	})

	monoService := mono.NewService(mono.Deps{
		Aggregator:   monoclient.NewClient(cfg.MonoBaseURL, cfg.MonoSecretKey),
		Accounts:     accounts,
		Transactions: transactions,
		Mirror:       kb,
		Publisher:    publisher,
	}, mono.Config{MaxPages: cfg.MonoTxMaxPages})

	jobs := scheduler.New(otpService, cfg.OTPCleanupSchedule)
	if err := jobs.Start(); err != nil {
		logger.Log.Fatal("failed to start scheduler", zap.Error(err))
	}

	app := routes.NewApp(routes.Options{
		Production:      cfg.IsProduction(),
		CORSOrigin:      cfg.CORSOrigin,
		RateLimitWindow: cfg.RateLimitWindow,
		RateLimitMax:    cfg.RateLimitMax,
		AccessLog:       true,
	})
	routes.SetupRoutes(app, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		User:   handlers.NewUserHandler(user.NewService(users, accounts)),
		Mono:   handlers.NewMonoHandler(monoService, cfg.MonoTxMaxPages),
		AI:     handlers.NewAIHandler(kb),
		Health: handlers.NewHealthHandler(cfg.Env, healthChecks(db, cacheService, mindsClient)),
	}, middleware.NewAuthMiddleware(tokens, users))

	go func() {
		logger.Log.Info("wyse api listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	<-jobs.Stop().Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Log.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newMailer(cfg *config.Config) notification.Mailer {
	if cfg.EmailHost == "" {
		logger.Log.Warn("EMAIL_HOST not set; emails will be logged instead of sent")
		return notification.LogMailer{RevealCodes: !cfg.IsProduction()}
	}
	svc, err := notification.NewService(notification.SMTPConfig{
		Host:          cfg.EmailHost,
		Port:          cfg.EmailPort,
		Username:      cfg.EmailUser,
		Password:      cfg.EmailPass,
		From:          cfg.EmailFrom,
		ExpiryMinutes: cfg.OTPExpiryMinutes,
	})
	if err != nil {
		logger.Log.Fatal("failed to configure email", zap.Error(err))
	}
	return svc
}

func healthChecks(db *gorm.DB, cacheService *cache.CacheService, minds *mindsdb.Client) map[string]handlers.Pinger {
	return map[string]handlers.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": cacheService.HealthCheck,
		"mindsdb": func(context.Context) error {
			if !minds.IsConnected() {
				return mindsdb.ErrUnavailable
			}
			return nil
		},
	}
}
