// Package memstore implements the repository interfaces in memory with the
// same conflict semantics as the Postgres implementations. Used by tests
// and local runs without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"wyse/internal/models"
	"wyse/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*models.User
	devices      map[uuid.UUID][]models.Device
	otps         []*models.OTP
	accounts     []*models.LinkedAccount
	transactions []*models.Transaction
}

func New() *Store {
	return &Store{
		users:   map[uuid.UUID]*models.User{},
		devices: map[uuid.UUID][]models.Device{},
	}
}

func (s *Store) Users() repositories.UserRepository                   { return userRepo{s} }
func (s *Store) OTPs() repositories.OTPRepository                     { return otpRepo{s} }
func (s *Store) LinkedAccounts() repositories.LinkedAccountRepository { return accountRepo{s} }
func (s *Store) Transactions() repositories.TransactionRepository     { return txRepo{s} }

// OTPsFor returns copies of every stored code for email, oldest first.
func (s *Store) OTPsFor(email string) []models.OTP {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OTP
	for _, o := range s.otps {
		if o.Email == email {
			out = append(out, *o)
		}
	}
	return out
}

// TransactionCount returns the number of stored transactions.
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repositories.ErrEmailTaken
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r userRepo) SaveLoginState(_ context.Context, id uuid.UUID, expectedAttempts int, next repositories.LoginState, lastLoginAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.LoginAttempts != expectedAttempts {
		return repositories.ErrConcurrentUpdate
	}
	u.LoginAttempts = next.Attempts
	u.LockUntil = next.LockUntil
	if lastLoginAt != nil {
		t := *lastLoginAt
		u.LastLoginAt = &t
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (r userRepo) UpdateProfile(_ context.Context, id uuid.UUID, profile models.Profile) error {
	return r.mutate(id, func(u *models.User) { u.Profile = profile })
}

func (r userRepo) UpdatePreferences(_ context.Context, id uuid.UUID, prefs models.Preferences) error {
	return r.mutate(id, func(u *models.User) { u.Preferences = prefs })
}

func (r userRepo) UpdatePasscode(_ context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	return r.mutate(id, func(u *models.User) {
		u.Passcode = hash
		u.LastPasscodeChange = changedAt
		u.LoginAttempts = 0
		u.LockUntil = nil
	})
}

func (r userRepo) mutate(id uuid.UUID, fn func(*models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (r userRepo) UpsertDevice(_ context.Context, device *models.Device) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.devices[device.UserID]
	for i := range list {
		if list[i].DeviceID == device.DeviceID {
			list[i].LastUsed = device.LastUsed
			list[i].IPAddress = device.IPAddress
			list[i].UserAgent = device.UserAgent
			return nil
		}
	}
	r.s.devices[device.UserID] = append(list, *device)
	return nil
}

func (r userRepo) ListDevices(_ context.Context, userID uuid.UUID) ([]models.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]models.Device(nil), r.s.devices[userID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastUsed.After(out[j].LastUsed) })
	return out, nil
}

func (r userRepo) DeleteDevice(_ context.Context, userID uuid.UUID, deviceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.s.devices[userID]
	for i := range list {
		if list[i].DeviceID == deviceID {
			r.s.devices[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return repositories.ErrDeviceNotFound
}

type otpRepo struct{ s *Store }

func (r otpRepo) Create(_ context.Context, otp *models.OTP) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	cp := *otp
	r.s.otps = append(r.s.otps, &cp)
	return nil
}

func (r otpRepo) FindActive(_ context.Context, email, purpose string, now time.Time) ([]models.OTP, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.OTP
	for i := len(r.s.otps) - 1; i >= 0; i-- {
		o := r.s.otps[i]
		if o.Email == email && o.Purpose == purpose && !o.IsUsed && o.ExpiresAt.After(now) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r otpRepo) IncrementAttempts(_ context.Context, ids []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		for _, o := range r.s.otps {
			if o.ID == id {
				o.Attempts++
			}
		}
	}
	return nil
}

func (r otpRepo) MarkUsed(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.otps {
		if o.ID == id && !o.IsUsed {
			o.IsUsed = true
			t := now
			o.VerifiedAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (r otpRepo) HasRecentVerification(_ context.Context, email, purpose string, since time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.otps {
		if o.Email == email && o.Purpose == purpose && o.IsUsed && o.VerifiedAt != nil && !o.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r otpRepo) InvalidateAll(_ context.Context, email, purpose string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, o := range r.s.otps {
		if o.Email == email && o.Purpose == purpose && !o.IsUsed {
			o.IsUsed = true
			n++
		}
	}
	return n, nil
}

func (r otpRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.otps[:0]
	var n int64
	for _, o := range r.s.otps {
		if o.ExpiresAt.Before(now) {
			n++
			continue
		}
		kept = append(kept, o)
	}
	r.s.otps = kept
	return n, nil
}

type accountRepo struct{ s *Store }

func (r accountRepo) Link(_ context.Context, account *models.LinkedAccount) (*models.LinkedAccount, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.UserID == account.UserID && a.AccountID == account.AccountID {
			cp := *a
			return &cp, false, nil
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	cp := *account
	r.s.accounts = append(r.s.accounts, &cp)
	return account, true, nil
}

func (r accountRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.LinkedAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.LinkedAccount
	for _, a := range r.s.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r accountRepo) GetByAccountID(_ context.Context, userID uuid.UUID, accountID string) (*models.LinkedAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.UserID == userID && a.AccountID == accountID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repositories.ErrLinkedAccountNotFound
}

func (r accountRepo) MarkSynced(_ context.Context, id uuid.UUID, syncedAt time.Time, balance decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.accounts {
		if a.ID == id && (a.LastSyncedAt == nil || a.LastSyncedAt.Before(syncedAt)) {
			t := syncedAt
			a.LastSyncedAt = &t
			a.Balance = balance
		}
	}
	return nil
}

type txRepo struct{ s *Store }

func (r txRepo) UpsertMany(_ context.Context, txs []models.Transaction) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range txs {
		in := txs[i]
		in.LinkedAccount = nil
		replaced := false
		for j, existing := range r.s.transactions {
			if existing.MonoID == in.MonoID && existing.LinkedAccountID == in.LinkedAccountID {
				in.ID = existing.ID
				in.CreatedAt = existing.CreatedAt
				r.s.transactions[j] = &in
				replaced = true
				break
			}
		}
		if !replaced {
			if in.ID == uuid.Nil {
				in.ID = uuid.New()
			}
			r.s.transactions = append(r.s.transactions, &in)
		}
		n++
	}
	return n, nil
}

func (r txRepo) ListByUser(_ context.Context, userID uuid.UUID, offset, limit int) ([]models.Transaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.Transaction
	for _, t := range r.s.transactions {
		if t.UserID == userID {
			cp := *t
			for _, a := range r.s.accounts {
				if a.ID == t.LinkedAccountID {
					acc := *a
					cp.LinkedAccount = &acc
				}
			}
			all = append(all, cp)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Date.Equal(all[j].Date) {
			return all[i].MonoID < all[j].MonoID
		}
		return all[i].Date.After(all[j].Date)
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []models.Transaction{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}
