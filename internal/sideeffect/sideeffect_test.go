package sideeffect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttempt(t *testing.T) {
	ctx := context.Background()

	assert.True(t, Attempt(ctx, "ok", func(context.Context) error { return nil }))
	assert.False(t, Attempt(ctx, "fails", func(context.Context) error { return errors.New("boom") }))
	assert.False(t, Attempt(ctx, "panics", func(context.Context) error { panic("boom") }))
}

func TestAttemptEach(t *testing.T) {
	var seen []int
	n := AttemptEach(context.Background(), "items", []int{1, 2, 3, 4}, func(_ context.Context, i int) error {
		seen = append(seen, i)
		if i%2 == 0 {
			return errors.New("even")
		}
		return nil
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}
