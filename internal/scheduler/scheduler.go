// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"wyse/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cleaner removes expired records and reports how many were deleted.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	otps     Cleaner
	schedule string
	timeout  time.Duration
}

func New(otps Cleaner, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Log))
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		otps:     otps,
		schedule: schedule,
		timeout:  time.Minute,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.CleanupOTPs); err != nil {
		logger.Log.Error("failed to schedule otp cleanup job", zap.String("schedule", s.schedule), zap.Error(err))
		return err
	}
	logger.Log.Info("scheduled otp cleanup job", zap.String("schedule", s.schedule))

	s.cron.Start()
	return nil
}

// CleanupOTPs deletes expired one-time codes. Expiry is already enforced at
// verification time, so this only reclaims space.
func (s *Scheduler) CleanupOTPs() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.otps.CleanupExpired(ctx)
	if err != nil {
		logger.Log.Error("otp cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Log.Info("expired otps removed", zap.Int64("count", n))
	}
}

// Stop stops the scheduler. The returned context is done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
