package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go-college/payment/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ order.Ledger = (*Ledger)(nil)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		sqlDB.Close()
	})
	return gdb
}

func newOrder(id, providerID, user string, created time.Time) *order.PaymentOrder {
	return &order.PaymentOrder{
		OrderID:         id,
		UserID:          user,
		ProviderOrderID: providerID,
		Amount:          10000,
		Currency:        "INR",
		Status:          order.StatusPending,
		Purpose:         order.PurposeSemester,
		Description:     "Semester 3 fee",
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

// ledgers runs a test against the SQL ledger and the in-memory one so both honour the same contract.
func ledgers(t *testing.T, fn func(t *testing.T, l order.Ledger)) {
	t.Run("gorm", func(t *testing.T) { fn(t, NewLedger(openTestDB(t))) })
	t.Run("memory", func(t *testing.T) { fn(t, order.NewMemoryLedger()) })
}

func TestLedgerInsertAndGet(t *testing.T) {
	ledgers(t, func(t *testing.T, l order.Ledger) {
		ctx := context.Background()
		require.NoError(t, l.Insert(ctx, newOrder("ORDER_1", "order_p1", "u1", time.Now())))

		got, err := l.Get(ctx, "ORDER_1")
		require.NoError(t, err)
		assert.Equal(t, "order_p1", got.ProviderOrderID)
		assert.Equal(t, order.StatusPending, got.Status)
		assert.Equal(t, int64(10000), got.Amount)
		assert.Equal(t, order.PurposeSemester, got.Purpose)

		byProvider, err := l.GetByProviderOrderID(ctx, "order_p1")
		require.NoError(t, err)
		assert.Equal(t, "ORDER_1", byProvider.OrderID)

		_, err = l.Get(ctx, "ORDER_404")
		assert.True(t, errors.Is(err, order.ErrOrderNotFound))
		_, err = l.GetByProviderOrderID(ctx, "order_404")
		assert.True(t, errors.Is(err, order.ErrOrderNotFound))
	})
}

func TestLedgerDuplicateInsert(t *testing.T) {
	ledgers(t, func(t *testing.T, l order.Ledger) {
		ctx := context.Background()
		require.NoError(t, l.Insert(ctx, newOrder("ORDER_1", "order_p1", "u1", time.Now())))

		err := l.Insert(ctx, newOrder("ORDER_1", "order_p9", "u1", time.Now()))
		assert.True(t, errors.Is(err, order.ErrDuplicateOrder), "got %v", err)
		err = l.Insert(ctx, newOrder("ORDER_9", "order_p1", "u1", time.Now()))
		assert.True(t, errors.Is(err, order.ErrDuplicateOrder), "got %v", err)
	})
}

func TestLedgerListByUserNewestFirst(t *testing.T) {
	ledgers(t, func(t *testing.T, l order.Ledger) {
		ctx := context.Background()
		base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		require.NoError(t, l.Insert(ctx, newOrder("ORDER_1", "order_p1", "u1", base)))
		require.NoError(t, l.Insert(ctx, newOrder("ORDER_2", "order_p2", "u2", base.Add(time.Minute))))
		require.NoError(t, l.Insert(ctx, newOrder("ORDER_3", "order_p3", "u1", base.Add(2*time.Minute))))

		orders, err := l.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "ORDER_3", orders[0].OrderID)
		assert.Equal(t, "ORDER_1", orders[1].OrderID)

		none, err := l.ListByUser(ctx, "u3")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestLedgerUpdate(t *testing.T) {
	ledgers(t, func(t *testing.T, l order.Ledger) {
		ctx := context.Background()
		require.NoError(t, l.Insert(ctx, newOrder("ORDER_1", "order_p1", "u1", time.Now())))

		updated, changed, err := l.Update(ctx, "ORDER_1", func(o *order.PaymentOrder) (bool, error) {
			o.Status = order.StatusCompleted
			o.ProviderPaymentID = "pay_1"
			o.UpdatedAt = time.Now()
			return true, nil
		})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, order.StatusCompleted, updated.Status)

		got, err := l.Get(ctx, "ORDER_1")
		require.NoError(t, err)
		assert.Equal(t, order.StatusCompleted, got.Status)
		assert.Equal(t, "pay_1", got.ProviderPaymentID)

		_, changed, err = l.Update(ctx, "ORDER_1", func(o *order.PaymentOrder) (bool, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.False(t, changed)

		_, _, err = l.Update(ctx, "ORDER_404", func(o *order.PaymentOrder) (bool, error) { return true, nil })
		assert.True(t, errors.Is(err, order.ErrOrderNotFound))
	})
}

func TestLedgerUpdateKeepsImmutableColumns(t *testing.T) {
	gdb := openTestDB(t)
	l := NewLedger(gdb)
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, newOrder("ORDER_1", "order_p1", "u1", time.Now())))

	_, _, err := l.Update(ctx, "ORDER_1", func(o *order.PaymentOrder) (bool, error) {
		o.Amount = 1
		o.Status = order.StatusProcessing
		return true, nil
	})
	require.NoError(t, err)

	got, err := l.Get(ctx, "ORDER_1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.Amount)
	assert.Equal(t, order.StatusProcessing, got.Status)
}

func TestServiceOverSQLLedger(t *testing.T) {
	l := NewLedger(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, newOrder("ORDER_1", "order_p1", "u1", time.Now())))

	svc := order.NewService(l, order.WithSecrets(order.Secrets{KeySecret: "ks"}))
	in := order.VerifyInput{
		ProviderOrderID:   "order_p1",
		ProviderPaymentID: "pay_1",
		Signature:         order.SignPayment("ks", "order_p1", "pay_1"),
	}
	first, err := svc.Verify(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, first.Status)

	second, err := svc.Verify(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", second.ProviderPaymentID)
	assert.Equal(t, order.StatusCompleted, second.Status)
}
