package order

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(id, providerID, user string, created time.Time) *PaymentOrder {
	return &PaymentOrder{
		OrderID:         id,
		UserID:          user,
		ProviderOrderID: providerID,
		Amount:          1000,
		Currency:        "INR",
		Status:          StatusPending,
		Purpose:         PurposeSemester,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func TestMemoryLedgerRejectsDuplicates(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.Insert(ctx, sampleOrder("ORDER_1", "order_p1", "u1", now)))
	err := l.Insert(ctx, sampleOrder("ORDER_1", "order_p2", "u1", now))
	assert.True(t, errors.Is(err, ErrDuplicateOrder))
	err = l.Insert(ctx, sampleOrder("ORDER_2", "order_p1", "u1", now))
	assert.True(t, errors.Is(err, ErrDuplicateOrder))

	_, err = l.Get(ctx, "ORDER_2")
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestMemoryLedgerReturnsCopies(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, sampleOrder("ORDER_1", "order_p1", "u1", time.Now())))

	o, err := l.GetByProviderOrderID(ctx, "order_p1")
	require.NoError(t, err)
	o.Status = StatusCompleted

	again, _ := l.Get(ctx, "ORDER_1")
	assert.Equal(t, StatusPending, again.Status)
}

func TestMemoryLedgerUpdateSkipsUnchanged(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, sampleOrder("ORDER_1", "order_p1", "u1", time.Now())))

	_, changed, err := l.Update(ctx, "ORDER_1", func(o *PaymentOrder) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.False(t, changed)

	boom := errors.New("boom")
	_, _, err = l.Update(ctx, "ORDER_1", func(o *PaymentOrder) (bool, error) {
		o.Status = StatusFailed
		return true, boom
	})
	assert.ErrorIs(t, err, boom)
	got, _ := l.Get(ctx, "ORDER_1")
	assert.Equal(t, StatusPending, got.Status)

	_, _, err = l.Update(ctx, "ORDER_nope", func(o *PaymentOrder) (bool, error) { return true, nil })
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestMemoryLedgerUpdateSerializesPerKey(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.Insert(ctx, sampleOrder("ORDER_1", "order_p1", "u1", time.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := l.Update(ctx, "ORDER_1", func(o *PaymentOrder) (bool, error) {
				o.Amount++
				return true, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, _ := l.Get(ctx, "ORDER_1")
	assert.Equal(t, int64(1050), got.Amount)
	assert.Empty(t, l.keys.locks)
}

func TestFileLedgerPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.json")
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	l, err := NewFileLedger(path)
	require.NoError(t, err)
	require.NoError(t, l.Insert(ctx, sampleOrder("ORDER_1", "order_p1", "u1", base)))
	require.NoError(t, l.Insert(ctx, sampleOrder("ORDER_2", "order_p2", "u1", base.Add(time.Hour))))
	_, _, err = l.Update(ctx, "ORDER_1", func(o *PaymentOrder) (bool, error) {
		return o.complete("pay_1", base.Add(2*time.Hour))
	})
	require.NoError(t, err)

	reopened, err := NewFileLedger(path)
	require.NoError(t, err)

	o, err := reopened.GetByProviderOrderID(ctx, "order_p1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, "pay_1", o.ProviderPaymentID)

	orders, err := reopened.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORDER_2", orders[0].OrderID)
}

func TestFileLedgerRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileLedger(path)
	assert.Error(t, err)
}

func TestFileLedgerRejectsUnknownStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"orderId":"ORDER_1","providerOrderId":"order_p1","status":"paid"}]`), 0o600))

	_, err := NewFileLedger(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"paid"`)
}
