package user

import (
	"context"
	"testing"
	"time"

	"wyse/internal/models"
	"wyse/internal/repositories"
	"wyse/internal/repositories/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func seedUser(t *testing.T, store *memstore.Store) *models.User {
	t.Helper()
	u := models.NewUser("ada@example.com", "hash", time.Now().Add(-72*time.Hour))
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func TestService_UpdateProfileIsPartial(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	u := seedUser(t, store)
	svc := NewService(store.Users(), store.LinkedAccounts())

	got, err := svc.UpdateProfile(ctx, u.ID, ProfileUpdate{FirstName: strPtr("Ada"), Phone: strPtr("+2348012345678")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Profile.FirstName)

	got, err = svc.UpdateProfile(ctx, u.ID, ProfileUpdate{LastName: strPtr("Lovelace")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Profile.FirstName)
	assert.Equal(t, "Lovelace", got.Profile.LastName)
	assert.Equal(t, "+2348012345678", got.Profile.Phone)
}

func TestService_UpdatePreferences(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	u := seedUser(t, store)
	svc := NewService(store.Users(), store.LinkedAccounts())

	got, err := svc.UpdatePreferences(ctx, u.ID, PreferencesUpdate{NotifyPush: boolPtr(false), Theme: strPtr(models.ThemeLight)})
	require.NoError(t, err)
	assert.True(t, got.Preferences.Notifications.Email)
	assert.False(t, got.Preferences.Notifications.Push)
	assert.Equal(t, models.ThemeLight, got.Preferences.Theme)
	assert.Equal(t, "NGN", got.Preferences.Currency)
}

func TestService_DevicesAndStats(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	u := seedUser(t, store)
	svc := NewService(store.Users(), store.LinkedAccounts())

	now := time.Now()
	require.NoError(t, store.Users().UpsertDevice(ctx, models.NewDevice(u.ID, "1.1.1.1", "Desktop UA", now)))
	require.NoError(t, store.Users().UpsertDevice(ctx, models.NewDevice(u.ID, "2.2.2.2", "Phone Mobile UA", now)))

	stats, err := svc.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.AccountAge)
	assert.Equal(t, 2, stats.DevicesCount)
	assert.False(t, stats.IsLocked)

	remaining, err := svc.RemoveDevice(ctx, u.ID, "1.1.1.1-Desktop UA")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Mobile Device", remaining[0].DeviceName)

	_, err = svc.RemoveDevice(ctx, u.ID, "missing")
	assert.ErrorIs(t, err, repositories.ErrDeviceNotFound)
}
