package db

import (
	"time"

	"go-college/payment/order"
)

// Order is the payment_orders row behind order.PaymentOrder.
type Order struct {
	ID                uint      `gorm:"primaryKey"`
	OrderID           string    `gorm:"uniqueIndex;size:64;not null"`
	UserID            string    `gorm:"index:idx_payment_orders_user_created,priority:1;size:64;not null"`
	ProviderOrderID   string    `gorm:"uniqueIndex;size:64;not null"`
	ProviderPaymentID string    `gorm:"index;size:64"` // empty until completed
	Amount            int64     `gorm:"not null"`      // minor units
	Currency          string    `gorm:"size:3;not null"`
	Status            string    `gorm:"size:16;index;not null"`
	Purpose           string    `gorm:"size:16;not null"`
	Description       string    `gorm:"size:500"`
	RefundAmount      int64     `gorm:"not null;default:0"`
	RefundReason      string    `gorm:"size:255"`
	CreatedAt         time.Time `gorm:"index:idx_payment_orders_user_created,priority:2"`
	UpdatedAt         time.Time
}

func (Order) TableName() string { return "payment_orders" }

func fromDomain(o *order.PaymentOrder) Order {
	return Order{
		OrderID:           o.OrderID,
		UserID:            o.UserID,
		ProviderOrderID:   o.ProviderOrderID,
		ProviderPaymentID: o.ProviderPaymentID,
		Amount:            o.Amount,
		Currency:          o.Currency,
		Status:            string(o.Status),
		Purpose:           string(o.Purpose),
		Description:       o.Description,
		RefundAmount:      o.RefundAmount,
		RefundReason:      o.RefundReason,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func (r Order) toDomain() *order.PaymentOrder {
	return &order.PaymentOrder{
		OrderID:           r.OrderID,
		UserID:            r.UserID,
		ProviderOrderID:   r.ProviderOrderID,
		ProviderPaymentID: r.ProviderPaymentID,
		Amount:            r.Amount,
		Currency:          r.Currency,
		Status:            order.Status(r.Status),
		Purpose:           order.Purpose(r.Purpose),
		Description:       r.Description,
		RefundAmount:      r.RefundAmount,
		RefundReason:      r.RefundReason,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
