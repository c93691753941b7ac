package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxDeviceIDLength = 100

// Device is a login fingerprint. (user_id, device_id) is unique.
type Device struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_devices_user_device" json:"-"`
	DeviceID   string    `gorm:"not null;uniqueIndex:idx_user_devices_user_device" json:"deviceId"`
	DeviceName string    `json:"deviceName"`
	LastUsed   time.Time `json:"lastUsed"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Device) TableName() string { return "user_devices" }

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// NewDevice derives a fingerprint from the client IP and user agent.
func NewDevice(userID uuid.UUID, ip, userAgent string, now time.Time) *Device {
	id := ip + "-" + userAgent
	if len(id) > maxDeviceIDLength {
		cut := maxDeviceIDLength
		for cut > 0 && !utf8.RuneStart(id[cut]) {
			cut--
		}
		id = id[:cut]
	}
	name := "Desktop"
	if strings.Contains(userAgent, "Mobile") {
		name = "Mobile Device"
	}
	return &Device{
		ID:         uuid.New(),
		UserID:     userID,
		DeviceID:   id,
		DeviceName: name,
		LastUsed:   now,
		IPAddress:  ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
	}
}
