package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lockout policy
const (
	MaxLoginAttempts = 5
	LockDuration     = 2 * time.Hour
)

// Theme values accepted in preferences.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

type User struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Email              string      `gorm:"uniqueIndex;not null" json:"email"`
	Passcode           string      `gorm:"not null" json:"-"`
	IsEmailVerified    bool        `json:"isEmailVerified"`
	LoginAttempts      int         `json:"loginAttempts"`
	LockUntil          *time.Time  `json:"lockUntil,omitempty"`
	LastLoginAt        *time.Time  `json:"lastLoginAt,omitempty"`
	Profile            Profile     `gorm:"embedded" json:"profile"`
	Preferences        Preferences `gorm:"embedded" json:"preferences"`
	TwoFactorEnabled   bool        `json:"twoFactorEnabled"`
	LastPasscodeChange time.Time   `json:"lastPasscodeChange"`
	Devices            []Device    `gorm:"foreignKey:UserID" json:"devices,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

type Profile struct {
	FirstName   string     `json:"firstName,omitempty"`
	LastName    string     `json:"lastName,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
}

type Preferences struct {
	Notifications Notifications `gorm:"embedded;embeddedPrefix:notify_" json:"notifications"`
	Theme         string        `json:"theme"`
	Currency      string        `json:"currency"`
}

type Notifications struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `gorm:"column:sms" json:"sms"`
}

// NewUser returns a user with default preferences. passcodeHash must already be hashed.
func NewUser(email, passcodeHash string, now time.Time) *User {
	return &User{
		ID:              uuid.New(),
		Email:           email,
		Passcode:        passcodeHash,
		IsEmailVerified: true,
		Preferences: Preferences{
			Notifications: Notifications{Email: true, Push: true},
			Theme:         ThemeDark,
			Currency:      "NGN",
		},
		LastPasscodeChange: now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsLocked reports whether the lock is still in force at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// PublicUser is the outward representation of a user in auth responses.
type PublicUser struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Email:           u.Email,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
