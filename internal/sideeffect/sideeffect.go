// Package sideeffect runs best-effort work whose failure must not fail the
// caller's request.
package sideeffect

import (
	"context"
	"fmt"
	"time"

	"wyse/internal/logger"

	"go.uber.org/zap"
)

// Attempt runs fn, logging and swallowing any error or panic. It reports
// whether fn succeeded.
func Attempt(ctx context.Context, name string, fn func(context.Context) error) (ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("side effect panicked",
				zap.String("effect", name),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()

	if err := fn(ctx); err != nil {
		logger.Log.Warn("side effect failed",
			zap.String("effect", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return false
	}
	return true
}

// AttemptEach runs fn for every item, continuing past failures. It returns
// how many items succeeded.
func AttemptEach[T any](ctx context.Context, name string, items []T, fn func(context.Context, T) error) int {
	succeeded := 0
	for i, item := range items {
		item := item
		if Attempt(ctx, fmt.Sprintf("%s[%d]", name, i), func(ctx context.Context) error { return fn(ctx, item) }) {
			succeeded++
		}
	}
	return succeeded
}
