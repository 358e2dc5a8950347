package order

import (
	"context"
	"sync"
)

// Mutation edits an order in place. It returns false when the order was left untouched,
// in which case the ledger skips the write.
type Mutation func(o *PaymentOrder) (bool, error)

// Ledger is the durable store of payment orders, keyed by OrderID.
//
// Update must serialize concurrent writers of the same order: fn sees the latest
// committed state and its result is committed before another Update of that order runs.
type Ledger interface {
	Insert(ctx context.Context, o *PaymentOrder) error
	Get(ctx context.Context, orderID string) (*PaymentOrder, error)
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*PaymentOrder, error)
	ListByUser(ctx context.Context, userID string) ([]PaymentOrder, error)
	Update(ctx context.Context, orderID string, fn Mutation) (*PaymentOrder, bool, error)
}

// keyedMutex hands out one mutex per key and drops it when nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
