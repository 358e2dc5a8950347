package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/btree"
)

// userEntry indexes orders per user, newest first.
type userEntry struct {
	userID    string
	createdAt time.Time
	orderID   string
}

func (a userEntry) Less(b btree.Item) bool {
	o := b.(userEntry)
	if a.userID != o.userID {
		return a.userID < o.userID
	}
	if !a.createdAt.Equal(o.createdAt) {
		return a.createdAt.After(o.createdAt)
	}
	return a.orderID < o.orderID
}

var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// MemoryLedger keeps orders in memory. When path is set, every write is also
// flushed to a JSON file so a restart picks the ledger back up.
type MemoryLedger struct {
	mu         sync.RWMutex
	orders     map[string]*PaymentOrder // OrderID → order
	byProvider map[string]string        // ProviderOrderID → OrderID
	byUser     *btree.BTree
	keys       *keyedMutex
	path       string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		orders:     make(map[string]*PaymentOrder),
		byProvider: make(map[string]string),
		byUser:     btree.New(2),
		keys:       newKeyedMutex(),
	}
}

// NewFileLedger returns a MemoryLedger backed by a JSON file, loading it if it exists.
func NewFileLedger(path string) (*MemoryLedger, error) {
	l := NewMemoryLedger()
	l.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	var orders []PaymentOrder
	if len(data) > 0 {
		if err := json.Unmarshal(data, &orders); err != nil {
			return nil, fmt.Errorf("parse ledger file %s: %w", path, err)
		}
	}
	for i := range orders {
		o := orders[i]
		if o.OrderID == "" || !o.Status.Valid() {
			return nil, fmt.Errorf("parse ledger file %s: entry %d has invalid order id or status %q", path, i, o.Status)
		}
		l.index(&o)
	}
	return l, nil
}

func (l *MemoryLedger) index(o *PaymentOrder) {
	l.orders[o.OrderID] = o
	if o.ProviderOrderID != "" {
		l.byProvider[o.ProviderOrderID] = o.OrderID
	}
	l.byUser.ReplaceOrInsert(userEntry{o.UserID, o.CreatedAt, o.OrderID})
}

func (l *MemoryLedger) Insert(ctx context.Context, o *PaymentOrder) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.orders[o.OrderID]; ok {
		return fmt.Errorf("%w: order id %s", ErrDuplicateOrder, o.OrderID)
	}
	if _, ok := l.byProvider[o.ProviderOrderID]; ok && o.ProviderOrderID != "" {
		return fmt.Errorf("%w: provider order id %s", ErrDuplicateOrder, o.ProviderOrderID)
	}

	cp := *o
	l.index(&cp)
	if err := l.flush(); err != nil {
		delete(l.orders, cp.OrderID)
		delete(l.byProvider, cp.ProviderOrderID)
		l.byUser.Delete(userEntry{cp.UserID, cp.CreatedAt, cp.OrderID})
		return err
	}
	return nil
}

func (l *MemoryLedger) Get(ctx context.Context, orderID string) (*PaymentOrder, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (l *MemoryLedger) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*PaymentOrder, error) {
	l.mu.RLock()
	id, ok := l.byProvider[providerOrderID]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrOrderNotFound
	}
	return l.Get(ctx, id)
}

func (l *MemoryLedger) ListByUser(ctx context.Context, userID string) ([]PaymentOrder, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	orders := []PaymentOrder{}
	l.byUser.AscendGreaterOrEqual(userEntry{userID: userID, createdAt: farFuture}, func(it btree.Item) bool {
		e := it.(userEntry)
		if e.userID != userID {
			return false
		}
		orders = append(orders, *l.orders[e.orderID])
		return true
	})
	return orders, nil
}

func (l *MemoryLedger) Update(ctx context.Context, orderID string, fn Mutation) (*PaymentOrder, bool, error) {
	unlock := l.keys.Lock(orderID)
	defer unlock()

	current, err := l.Get(ctx, orderID)
	if err != nil {
		return nil, false, err
	}

	changed, err := fn(current)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return current, false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.orders[orderID]
	cp := *current
	l.orders[orderID] = &cp
	if err := l.flush(); err != nil {
		l.orders[orderID] = prev
		return nil, false, err
	}
	return current, true, nil
}

// flush writes the whole ledger to disk. Caller holds l.mu.
func (l *MemoryLedger) flush() error {
	if l.path == "" {
		return nil
	}

	orders := make([]PaymentOrder, 0, len(l.orders))
	l.byUser.Ascend(func(it btree.Item) bool {
		orders = append(orders, *l.orders[it.(userEntry).orderID])
		return true
	})

	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("write ledger file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write ledger file: %w", err)
	}
	return os.Rename(tmp.Name(), l.path)
}
