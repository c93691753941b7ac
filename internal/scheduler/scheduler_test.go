package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCleaner struct {
	mock.Mock
}

func (m *MockCleaner) CleanupExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestCleanupOTPs(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := new(MockCleaner)
		c.On("CleanupExpired", mock.Anything).Return(int64(3), nil).Once()

		New(c, "@every 1h").CleanupOTPs()
		c.AssertExpectations(t)
	})

	t.Run("failure is logged not raised", func(t *testing.T) {
		c := new(MockCleaner)
		c.On("CleanupExpired", mock.Anything).Return(int64(0), errors.New("db down")).Once()

		assert.NotPanics(t, func() { New(c, "@every 1h").CleanupOTPs() })
		c.AssertExpectations(t)
	})
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := New(new(MockCleaner), "not a schedule")
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := New(new(MockCleaner), "@every 15m")
	require.NoError(t, s.Start())
	<-s.Stop().Done()
}
