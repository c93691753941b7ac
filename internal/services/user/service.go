package user

import (
	"context"
	"time"

	"wyse/internal/models"
	"wyse/internal/repositories"

	"github.com/google/uuid"
)

type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.User, error)
	UpdatePreferences(ctx context.Context, id uuid.UUID, update PreferencesUpdate) (*models.User, error)
	Devices(ctx context.Context, id uuid.UUID) ([]models.Device, error)
	RemoveDevice(ctx context.Context, id uuid.UUID, deviceID string) ([]models.Device, error)
	Stats(ctx context.Context, id uuid.UUID) (*Stats, error)
}

// ProfileUpdate changes only the non-nil fields.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	DateOfBirth *time.Time
}

// PreferencesUpdate changes only the non-nil fields.
type PreferencesUpdate struct {
	NotifyEmail *bool
	NotifyPush  *bool
	NotifySMS   *bool
	Theme       *string
	Currency    *string
}

type Stats struct {
	AccountAge      int        `json:"accountAge"`
	LastLogin       *time.Time `json:"lastLogin"`
	DevicesCount    int        `json:"devicesCount"`
	LinkedAccounts  int        `json:"linkedAccounts"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	LoginAttempts   int        `json:"loginAttempts"`
	IsLocked        bool       `json:"isLocked"`
}

type service struct {
	repo     repositories.UserRepository
	accounts repositories.LinkedAccountRepository
	now      func() time.Time
}

func NewService(repo repositories.UserRepository, accounts repositories.LinkedAccountRepository) Service {
	return &service{
		repo:     repo,
		accounts: accounts,
		now:      time.Now,
	}
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := user.Profile
	if update.FirstName != nil {
		p.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		p.LastName = *update.LastName
	}
	if update.Phone != nil {
		p.Phone = *update.Phone
	}
	if update.DateOfBirth != nil {
		p.DateOfBirth = update.DateOfBirth
	}

	if err := s.repo.UpdateProfile(ctx, id, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdatePreferences(ctx context.Context, id uuid.UUID, update PreferencesUpdate) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := user.Preferences
	if update.NotifyEmail != nil {
		p.Notifications.Email = *update.NotifyEmail
	}
	if update.NotifyPush != nil {
		p.Notifications.Push = *update.NotifyPush
	}
	if update.NotifySMS != nil {
		p.Notifications.SMS = *update.NotifySMS
	}
	if update.Theme != nil {
		p.Theme = *update.Theme
	}
	if update.Currency != nil {
		p.Currency = *update.Currency
	}

	if err := s.repo.UpdatePreferences(ctx, id, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) Devices(ctx context.Context, id uuid.UUID) ([]models.Device, error) {
	return s.repo.ListDevices(ctx, id)
}

// RemoveDevice deletes a device and returns the remaining ones.
func (s *service) RemoveDevice(ctx context.Context, id uuid.UUID, deviceID string) ([]models.Device, error) {
	if err := s.repo.DeleteDevice(ctx, id, deviceID); err != nil {
		return nil, err
	}
	return s.repo.ListDevices(ctx, id)
}

func (s *service) Stats(ctx context.Context, id uuid.UUID) (*Stats, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.ListDevices(ctx, id)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accounts.ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &Stats{
		AccountAge:      int(now.Sub(user.CreatedAt).Hours() / 24),
		LastLogin:       user.LastLoginAt,
		DevicesCount:    len(devices),
		LinkedAccounts:  len(accounts),
		IsEmailVerified: user.IsEmailVerified,
		LoginAttempts:   user.LoginAttempts,
		IsLocked:        user.IsLocked(now),
	}, nil
}
