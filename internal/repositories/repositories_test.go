package repositories

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"wyse/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), models.NewUser("a@b.com", "hash", time.Now()))
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	_, err := repo.GetByEmail(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SaveLoginStateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectExec(`UPDATE "users" SET .*WHERE .*login_attempts = `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveLoginState(context.Background(), uuid.New(), 2, LoginState{Attempts: 3}, nil)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteDeviceMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectExec(`DELETE FROM "user_devices" WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteDevice(context.Background(), uuid.New(), "10.0.0.1-curl")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_MarkUsedLosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec(`UPDATE "otps" SET .*WHERE .*is_used = `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkUsed(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec(`DELETE FROM "otps" WHERE expires_at < \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_UpsertManyEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	n, err := repo.UpsertMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newTestTransaction(accountID, userID uuid.UUID, monoID, narration string) models.Transaction {
	return models.Transaction{
		ID:              models.TransactionID(accountID, monoID),
		MonoID:          monoID,
		LinkedAccountID: accountID,
		UserID:          userID,
		Narration:       narration,
		Amount:          decimal.NewFromInt(-1500),
		Type:            models.TransactionTypeDebit,
		Currency:        "NGN",
		Date:            time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		Raw:             models.JSON{"id": monoID},
	}
}

const upsertConflictClause = `ON CONFLICT \("mono_id","linked_account_id"\) DO UPDATE SET ` +
	`"user_id"="excluded"\."user_id","narration"="excluded"\."narration","amount"="excluded"\."amount",` +
	`"type"="excluded"\."type","category"="excluded"\."category","currency"="excluded"\."currency",` +
	`"balance"="excluded"\."balance","date"="excluded"\."date","raw"="excluded"\."raw",` +
	`"updated_at"="excluded"\."updated_at"`

func TestTransactionRepository_UpsertManyOverwritesOnConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	accountID, userID := uuid.New(), uuid.New()

	mock.ExpectExec(`INSERT INTO "transactions" .* VALUES \([^)]*\),\([^)]*\) ` + upsertConflictClause).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.UpsertMany(context.Background(), []models.Transaction{
		newTestTransaction(accountID, userID, "tx1", "coffee"),
		newTestTransaction(accountID, userID, "tx2", "salary"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_UpsertManyCollapsesRepeatedKeys(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	accountID, userID := uuid.New(), uuid.New()

	// One tuple only, carrying the later narration.
	args := make([]driver.Value, 14)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	args[4] = "coffee and cake"
	mock.ExpectExec(`INSERT INTO "transactions" .* VALUES \([^)]*\) ` + upsertConflictClause).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.UpsertMany(context.Background(), []models.Transaction{
		newTestTransaction(accountID, userID, "tx1", "coffee"),
		newTestTransaction(accountID, userID, "tx1", "coffee and cake"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUniqueByKey(t *testing.T) {
	acctA, acctB, userID := uuid.New(), uuid.New(), uuid.New()

	out := uniqueByKey([]models.Transaction{
		newTestTransaction(acctA, userID, "tx1", "first"),
		newTestTransaction(acctA, userID, "tx2", "other"),
		newTestTransaction(acctB, userID, "tx1", "same id, other account"),
		newTestTransaction(acctA, userID, "tx1", "last"),
	})

	require.Len(t, out, 3)
	assert.Equal(t, "last", out[0].Narration)
	assert.Equal(t, "other", out[1].Narration)
	assert.Equal(t, "same id, other account", out[2].Narration)
}

func TestLinkedAccountRepository_GetByAccountIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLinkedAccountRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "linked_accounts" WHERE user_id = \$1 AND account_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByAccountID(context.Background(), uuid.New(), "acc_1")
	assert.ErrorIs(t, err, ErrLinkedAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
