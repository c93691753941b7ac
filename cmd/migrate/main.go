// Command migrate applies or inspects the database schema outside the
// server process. Usage: migrate [up|down|status|cleanup-otps]
package main

import (
	"context"
	"os"
	"time"

	"wyse/internal/config"
	"wyse/internal/logger"
	"wyse/internal/repositories"
	"wyse/internal/repositories/migrations"
	"wyse/internal/services/otp"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	logger.Init(config.IsProduction())
	defer logger.Sync()
	if err != nil {
		logger.Log.Fatal("invalid configuration", zap.Error(err))
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	db, err := repositories.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			logger.Log.Warn("failed to close database connection", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if command == "cleanup-otps" {
		svc := otp.NewService(repositories.NewOTPRepository(db), otp.Config{
			Expiry:      time.Duration(cfg.OTPExpiryMinutes) * time.Minute,
			MaxAttempts: cfg.OTPMaxAttempts,
		})
		removed, err := svc.CleanupExpired(ctx)
		if err != nil {
			logger.Log.Fatal("otp cleanup failed", zap.Error(err))
		}
		logger.Log.Info("otp cleanup finished", zap.Int64("removed", removed))
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.Fatal("failed to get database instance", zap.Error(err))
	}
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Log.Fatal("failed to set dialect", zap.Error(err))
	}

	switch command {
	case "up":
		err = goose.UpContext(ctx, sqlDB, ".")
	case "down":
		err = goose.DownContext(ctx, sqlDB, ".")
	case "status":
		err = goose.StatusContext(ctx, sqlDB, ".")
	default:
		logger.Log.Fatal("unknown command", zap.String("command", command))
	}
	if err != nil {
		logger.Log.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
	logger.Log.Info("migration finished", zap.String("command", command))
}
