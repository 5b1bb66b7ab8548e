package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/domain/redemption/model"
	"github.com/manmiddle614-crypto/backend/pkg/meal"
	baseModel "github.com/manmiddle614-crypto/backend/pkg/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

func lunchCommand() RedeemCommand {
	at := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)
	return RedeemCommand{
		TenantID:       "tenant-1",
		SubscriptionID: "sub-1",
		MealType:       meal.Lunch,
		PerMeal:        true,
		At:             at,
		DuplicateFrom:  at.Add(-30 * time.Second),
		DuplicateTo:    at.Add(30 * time.Second),
		Txn: &model.MealTransaction{
			CustomerID: "cust-1",
			MealType:   meal.Lunch,
			Status:     model.TxnSuccess,
			Source:     model.SourceLive,
			ScannedAt:  at,
		},
	}
}

func TestRedeemDecrementsAndRecordsTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)
	cmd := lunchCommand()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "meal_subscriptions" SET`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "customer_id", "per_meal_tracking", "total_remaining", "lunch_remaining", "dinner_remaining", "is_active"}).
			AddRow("sub-1", "tenant-1", "cust-1", true, 4, 1, 3, true))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "meal_transactions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("txn-1"))
	mock.ExpectCommit()

	after, err := repo.Redeem(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 4, after.TotalRemaining)
	assert.Equal(t, 1, after.LunchRemaining)

	before := cmd.Txn.BalanceBefore.Data()
	assert.Equal(t, 5, before.Total)
	assert.Equal(t, 2, before.Lunch)
	assert.Equal(t, 3, before.Dinner, "other meal types are untouched")
	assert.Equal(t, 1, cmd.Txn.BalanceAfter.Data().Lunch)
	require.NotNil(t, cmd.Txn.SubscriptionID)
	assert.Equal(t, "sub-1", *cmd.Txn.SubscriptionID)
	assert.Equal(t, "tenant-1", cmd.Txn.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionRequiresTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	err := repo.Create(context.Background(), &model.MealTransaction{CustomerID: "cust-1", Status: model.TxnBlocked})
	assert.ErrorIs(t, err, baseModel.ErrMissingTenant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemReturnsConflictWhenNoRowMatches(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "meal_subscriptions" SET`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.Redeem(context.Background(), lunchCommand())
	assert.ErrorIs(t, err, ErrBalanceConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemRollsBackOnDuplicateClientScan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)
	cmd := lunchCommand()
	key := "scan-42"
	cmd.Txn.ClientScanID = &key

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "meal_subscriptions" SET`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total_remaining", "per_meal_tracking", "lunch_remaining"}).
			AddRow("sub-1", 2, true, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "meal_transactions"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	mock.ExpectRollback()

	_, err := repo.Redeem(context.Background(), cmd)
	assert.ErrorIs(t, err, ErrDuplicateClientScan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "meal_subscriptions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindActive(context.Background(), "tenant-1", "cust-1", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerGetByIDScopesTenant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "customers" WHERE (id = $1 AND tenant_id = $2)`)).
		WithArgs("cust-1", "tenant-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "is_active", "qr_id"}).
			AddRow("cust-1", "tenant-1", "Asha", true, "qr-7"))

	c, err := repo.GetByID(context.Background(), "tenant-1", "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "qr-7", c.QRID)
	assert.True(t, c.IsActive)
}

func TestDeactivateIfExhaustedCoversPerMealCounters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "meal_subscriptions" SET "is_active"=`) + ".*" +
		regexp.QuoteMeta(model.ExhaustedCondition)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.DeactivateIfExhausted(context.Background(), "tenant-1", "sub-1")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "meal_subscriptions"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.DeactivateIfExhausted(context.Background(), "tenant-1", "sub-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepDeactivatesLapsedSubscriptions(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	repo := NewSweepRepository(sqlx.NewDb(sqlDB, "pgx"))

	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("(?s)" + regexp.QuoteMeta("UPDATE meal_subscriptions") + ".*" +
		regexp.QuoteMeta("per_meal_tracking AND breakfast_remaining <= 0 AND lunch_remaining <= 0") + ".*" +
		regexp.QuoteMeta("OR valid_until < $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeactivateLapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT tenant_id, COUNT(*) AS active")).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "active"}).AddRow("t1", 4).AddRow("t2", 1))
	counts, err := repo.CountActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"t1": 4, "t2": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
