package db

import (
	"context"
	"errors"
	"fmt"

	"go-college/payment/order"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger stores payment orders through gorm (MySQL in production, SQLite locally).
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Order{})
}

func (l *Ledger) Insert(ctx context.Context, o *order.PaymentOrder) error {
	row := fromDomain(o)
	err := l.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", order.ErrDuplicateOrder, o.OrderID)
	}
	return err
}

func (l *Ledger) first(tx *gorm.DB, query string, arg string) (*Order, error) {
	var row Order
	err := tx.Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (l *Ledger) Get(ctx context.Context, orderID string) (*order.PaymentOrder, error) {
	row, err := l.first(l.db.WithContext(ctx), "order_id = ?", orderID)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (l *Ledger) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*order.PaymentOrder, error) {
	row, err := l.first(l.db.WithContext(ctx), "provider_order_id = ?", providerOrderID)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (l *Ledger) ListByUser(ctx context.Context, userID string) ([]order.PaymentOrder, error) {
	var rows []Order
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	orders := make([]order.PaymentOrder, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, *r.toDomain())
	}
	return orders, nil
}

// Update locks the row for the transaction and writes only the mutable columns,
// guarded by the status it read.
func (l *Ledger) Update(ctx context.Context, orderID string, fn order.Mutation) (*order.PaymentOrder, bool, error) {
	var (
		result  *order.PaymentOrder
		changed bool
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := l.first(tx.Clauses(clause.Locking{Strength: "UPDATE"}), "order_id = ?", orderID)
		if err != nil {
			return err
		}

		cur := row.toDomain()
		changed, err = fn(cur)
		if err != nil {
			return err
		}
		result = cur
		if !changed {
			return nil
		}

		res := tx.Model(&Order{}).
			Where("id = ? AND status = ?", row.ID, row.Status).
			Updates(map[string]any{
				"provider_payment_id": cur.ProviderPaymentID,
				"status":              string(cur.Status),
				"refund_amount":       cur.RefundAmount,
				"refund_reason":       cur.RefundReason,
				"updated_at":          cur.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %s changed concurrently", order.ErrStateConflict, orderID)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}
