package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTP purposes
const (
	OTPPurposeEmailVerification = "email_verification"
	OTPPurposePasswordReset     = "password_reset"
	OTPPurposeLogin             = "login"
)

type OTP struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email      string     `gorm:"not null;index:idx_otps_email_purpose"`
	Code       string     `gorm:"not null"`
	Purpose    string     `gorm:"not null;index:idx_otps_email_purpose"`
	IsUsed     bool       `gorm:"not null"`
	Attempts   int        `gorm:"not null"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	VerifiedAt *time.Time // set only by a successful verification
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
}

func (OTP) TableName() string { return "otps" }

func (o *OTP) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (o *OTP) IsExpired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}
