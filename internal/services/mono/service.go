// Package mono links bank accounts through Mono and keeps their transactions
// in sync.
package mono

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	monoclient "wyse/internal/clients/mono"
	"wyse/internal/events"
	"wyse/internal/logger"
	"wyse/internal/models"
	"wyse/internal/repositories"
	"wyse/internal/services/knowledge"
	"wyse/internal/sideeffect"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Aggregator is the subset of the Mono client used here.
type Aggregator interface {
	ExchangeToken(ctx context.Context, code string) (string, error)
	GetAccount(ctx context.Context, accountID string) (*monoclient.AccountDetails, error)
	GetTransactionsPage(ctx context.Context, accountID, pageURL string, opts monoclient.FetchOptions) (*monoclient.TransactionsPage, error)
	FetchTransactions(ctx context.Context, accountID string, opts monoclient.FetchOptions) ([]monoclient.Transaction, error)
}

// Mirror receives linked transactions for the knowledge base. Nil disables
// mirroring.
type Mirror interface {
	MirrorTransactions(ctx context.Context, userID uuid.UUID, account *models.LinkedAccount, txs []models.Transaction) (int, error)
	EnsureSyncJob(ctx context.Context, userID uuid.UUID) (*knowledge.Provisioned, error)
}

type Config struct {
	MaxPages int
}

type Service interface {
	Link(ctx context.Context, userID uuid.UUID, code string) ([]models.LinkedAccount, error)
	Sync(ctx context.Context, userID uuid.UUID, maxPages, offset, limit int) (*SyncResult, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.LinkedAccount, error)
	AccountData(ctx context.Context, userID uuid.UUID, accountID string) (*AccountData, error)
}

// AccountSyncStatus reports the outcome of syncing one linked account.
type AccountSyncStatus struct {
	AccountID string `json:"accountId"`
	Fetched   int    `json:"fetched"`
	Upserted  int64  `json:"upserted"`
	Error     string `json:"error,omitempty"`
}

type SyncResult struct {
	Transactions []models.Transaction `json:"transactions"`
	Total        int64                `json:"total"`
	Accounts     []AccountSyncStatus  `json:"accounts"`
}

// AccountData is the live upstream view of one linked account.
type AccountData struct {
	AccountInfo  json.RawMessage `json:"accountInfo"`
	Transactions json.RawMessage `json:"transactions"`
}

type Deps struct {
	Aggregator   Aggregator
	Accounts     repositories.LinkedAccountRepository
	Transactions repositories.TransactionRepository
	Mirror       Mirror
	Publisher    events.Publisher
}

type service struct {
	agg       Aggregator
	accounts  repositories.LinkedAccountRepository
	txs       repositories.TransactionRepository
	mirror    Mirror
	publisher events.Publisher
	cfg       Config
	now       func() time.Time
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(deps Deps, cfg Config, opts ...Option) Service {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 10
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.FallbackPublisher{}
	}
	s := &service{
		agg:       deps.Aggregator,
		accounts:  deps.Accounts,
		txs:       deps.Transactions,
		mirror:    deps.Mirror,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func upstream(err error) error {
	if errors.Is(err, monoclient.ErrMissingSecretKey) {
		return ErrNotConfigured
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

// Link exchanges a widget code, stores the account and its full history,
// then runs the best-effort follow-ups. It returns every account the user
// has linked.
func (s *service) Link(ctx context.Context, userID uuid.UUID, code string) ([]models.LinkedAccount, error) {
	accountID, err := s.agg.ExchangeToken(ctx, code)
	if err != nil {
		return nil, upstream(err)
	}
	details, err := s.agg.GetAccount(ctx, accountID)
	if err != nil {
		return nil, upstream(err)
	}
	history, err := s.agg.FetchTransactions(ctx, accountID, monoclient.FetchOptions{MaxPages: s.cfg.MaxPages})
	if err != nil {
		return nil, upstream(err)
	}

	now := s.now()
	account, created, err := s.accounts.Link(ctx, newLinkedAccount(userID, details, now))
	if err != nil {
		return nil, err
	}

	rows := toTransactions(userID, account.ID, history)
	if _, err := s.txs.UpsertMany(ctx, rows); err != nil {
		return nil, err
	}
	if err := s.accounts.MarkSynced(ctx, account.ID, now, details.Account.Balance); err != nil {
		return nil, err
	}

	logger.Log.Info("mono account linked",
		zap.String("user_id", userID.String()),
		zap.String("account_id", account.AccountID),
		zap.Bool("created", created),
		zap.Int("transactions", len(rows)),
	)

	s.mirrorTransactions(ctx, userID, account, rows)
	sideeffect.Attempt(ctx, "publish_account_linked", func(ctx context.Context) error {
		return s.publisher.Publish(ctx, events.KeyAccountLinked, events.AccountLinked{
			UserID:           userID,
			AccountID:        account.AccountID,
			Institution:      account.Institution.Name,
			TransactionCount: len(rows),
			Timestamp:        now,
		})
	})

	return s.accounts.ListByUser(ctx, userID)
}

func (s *service) mirrorTransactions(ctx context.Context, userID uuid.UUID, account *models.LinkedAccount, rows []models.Transaction) {
	if s.mirror == nil {
		return
	}
	mirrored := 0
	if !sideeffect.Attempt(ctx, "kb_mirror", func(ctx context.Context) error {
		n, err := s.mirror.MirrorTransactions(ctx, userID, account, rows)
		mirrored = n
		return err
	}) {
		return
	}
	if mirrored < len(rows) {
		logger.Log.Warn("some transactions were not mirrored", zap.Int("mirrored", mirrored), zap.Int("total", len(rows)))
	}

	sideeffect.Attempt(ctx, "kb_sync_job", func(ctx context.Context) error {
		_, err := s.mirror.EnsureSyncJob(ctx, userID)
		return err
	})
}

// Sync refreshes every linked account of the user, each in its own failure
// boundary, then returns a page of the user's transactions. maxPages never
// exceeds the configured cap.
func (s *service) Sync(ctx context.Context, userID uuid.UUID, maxPages, offset, limit int) (*SyncResult, error) {
	if maxPages < 1 || maxPages > s.cfg.MaxPages {
		maxPages = s.cfg.MaxPages
	}

	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]AccountSyncStatus, 0, len(accounts))
	for i := range accounts {
		statuses = append(statuses, s.syncAccount(ctx, userID, &accounts[i], maxPages))
	}

	txs, total, err := s.txs.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}

	sideeffect.Attempt(ctx, "publish_transactions_synced", func(ctx context.Context) error {
		results := make([]events.AccountResult, len(statuses))
		for i, st := range statuses {
			results[i] = events.AccountResult(st)
		}
		return s.publisher.Publish(ctx, events.KeyTransactionsSynced, events.TransactionsSynced{
			UserID:    userID,
			Accounts:  results,
			Timestamp: s.now(),
		})
	})

	return &SyncResult{Transactions: txs, Total: total, Accounts: statuses}, nil
}

func (s *service) syncAccount(ctx context.Context, userID uuid.UUID, account *models.LinkedAccount, maxPages int) AccountSyncStatus {
	status := AccountSyncStatus{AccountID: account.AccountID}
	now := s.now()

	opts := monoclient.FetchOptions{MaxPages: maxPages}
	if account.LastSyncedAt != nil {
		start := *account.LastSyncedAt
		opts.Start = &start
		opts.End = &now
	}

	fail := func(err error) AccountSyncStatus {
		status.Error = err.Error()
		logger.Log.Warn("account sync failed",
			zap.String("user_id", userID.String()),
			zap.String("account_id", account.AccountID),
			zap.Error(err),
		)
		return status
	}

	balance := account.Balance
	if details, err := s.agg.GetAccount(ctx, account.AccountID); err != nil {
		return fail(err)
	} else {
		balance = details.Account.Balance
	}

	fetched, err := s.agg.FetchTransactions(ctx, account.AccountID, opts)
	if err != nil {
		return fail(err)
	}
	status.Fetched = len(fetched)

	rows := toTransactions(userID, account.ID, fetched)
	n, err := s.txs.UpsertMany(ctx, rows)
	if err != nil {
		return fail(err)
	}
	status.Upserted = n

	if err := s.accounts.MarkSynced(ctx, account.ID, now, balance); err != nil {
		return fail(err)
	}
	if len(rows) > 0 {
		s.mirrorTransactions(ctx, userID, account, rows)
	}
	return status
}

func (s *service) ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.LinkedAccount, error) {
	return s.accounts.ListByUser(ctx, userID)
}

// AccountData fetches the account detail and first transactions page live
// from Mono, for accounts the user has linked.
func (s *service) AccountData(ctx context.Context, userID uuid.UUID, accountID string) (*AccountData, error) {
	if _, err := s.accounts.GetByAccountID(ctx, userID, accountID); err != nil {
		if errors.Is(err, repositories.ErrLinkedAccountNotFound) {
			return nil, ErrAccountNotLinked
		}
		return nil, err
	}

	details, err := s.agg.GetAccount(ctx, accountID)
	if err != nil {
		return nil, upstream(err)
	}
	page, err := s.agg.GetTransactionsPage(ctx, accountID, "", monoclient.FetchOptions{})
	if err != nil {
		return nil, upstream(err)
	}
	return &AccountData{AccountInfo: details.Raw, Transactions: page.Raw}, nil
}

func newLinkedAccount(userID uuid.UUID, details *monoclient.AccountDetails, now time.Time) *models.LinkedAccount {
	a := details.Account
	acct := &models.LinkedAccount{
		UserID:    userID,
		AccountID: a.ID,
		Institution: models.Institution{
			Name:     a.Institution.Name,
			BankCode: a.Institution.BankCode,
			Type:     a.Institution.Type,
		},
		AccountNumber: a.AccountNumber,
		Name:          a.Name,
		Balance:       a.Balance,
		AccountType:   a.Type,
		Currency:      a.Currency,
		LinkedAt:      now,
		Meta:          models.JSON(details.Meta),
	}
	if a.BVN != nil {
		acct.BVN = *a.BVN
	}
	if acct.Meta == nil {
		acct.Meta = models.JSON{}
	}
	return acct
}

func toTransactions(userID, linkedAccountID uuid.UUID, in []monoclient.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(in))
	for _, tx := range in {
		raw := models.JSON{}
		if len(tx.Raw) > 0 {
			if err := raw.UnmarshalJSON(tx.Raw); err != nil {
				logger.Log.Warn("unparsable raw transaction", zap.String("mono_id", tx.ID), zap.Error(err))
			}
		}
		var category *string
		if tx.Category != nil && *tx.Category != "" {
			c := *tx.Category
			category = &c
		}
		out = append(out, models.Transaction{
			ID:              models.TransactionID(linkedAccountID, tx.ID),
			MonoID:          tx.ID,
			LinkedAccountID: linkedAccountID,
			UserID:          userID,
			Narration:       tx.Narration,
			Amount:          tx.Amount,
			Type:            tx.Type,
			Category:        category,
			Currency:        tx.Currency,
			Balance:         tx.Balance,
			Date:            tx.Date,
			Raw:             raw,
		})
	}
	return out
}
