package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_IsLocked(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.False(t, (&User{}).IsLocked(now))
	assert.True(t, (&User{LockUntil: &future}).IsLocked(now))
	assert.False(t, (&User{LockUntil: &past}).IsLocked(now))
	assert.False(t, (&User{LockUntil: &now}).IsLocked(now))
}

func TestUser_PasscodeNeverSerialized(t *testing.T) {
	u := NewUser("a@b.com", "$2a$12$hash", time.Now())

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "passcode")
	assert.NotContains(t, string(data), "$2a$12$hash")

	data, err = json.Marshal(u.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "passcode")
}

func TestNewUser_Defaults(t *testing.T) {
	u := NewUser("a@b.com", "hash", time.Now())

	assert.True(t, u.Preferences.Notifications.Email)
	assert.True(t, u.Preferences.Notifications.Push)
	assert.False(t, u.Preferences.Notifications.SMS)
	assert.Equal(t, ThemeDark, u.Preferences.Theme)
	assert.Equal(t, "NGN", u.Preferences.Currency)
	assert.NotEqual(t, uuid.Nil, u.ID)
}

func TestNewDevice(t *testing.T) {
	userID := uuid.New()
	now := time.Now()

	t.Run("desktop", func(t *testing.T) {
		d := NewDevice(userID, "10.0.0.1", "Mozilla/5.0 (X11; Linux x86_64)", now)
		assert.Equal(t, "10.0.0.1-Mozilla/5.0 (X11; Linux x86_64)", d.DeviceID)
		assert.Equal(t, "Desktop", d.DeviceName)
	})

	t.Run("mobile", func(t *testing.T) {
		d := NewDevice(userID, "10.0.0.1", "Mozilla/5.0 (iPhone) Mobile/15E148", now)
		assert.Equal(t, "Mobile Device", d.DeviceName)
	})

	t.Run("truncated fingerprint", func(t *testing.T) {
		d := NewDevice(userID, "10.0.0.1", strings.Repeat("x", 300), now)
		assert.Len(t, d.DeviceID, 100)
	})

	t.Run("truncation keeps whole runes", func(t *testing.T) {
		// "10.0.0.1-" is 9 bytes, so byte 100 falls inside a two-byte rune.
		d := NewDevice(userID, "10.0.0.1", strings.Repeat("é", 100), now)
		assert.True(t, utf8.ValidString(d.DeviceID))
		assert.Len(t, d.DeviceID, 99)
		assert.Equal(t, strings.Repeat("é", 45), strings.TrimPrefix(d.DeviceID, "10.0.0.1-"))
	})
}

func TestJSON_ScanAndValue(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan([]byte(`{"data_status":"AVAILABLE"}`)))
	assert.Equal(t, "AVAILABLE", j.String("data_status"))
	assert.Equal(t, "", j.String("missing"))

	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j)

	v, err := JSON(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}

func TestOTP_IsExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, (&OTP{ExpiresAt: now}).IsExpired(now))
	assert.False(t, (&OTP{ExpiresAt: now.Add(time.Second)}).IsExpired(now))
}
