package notify

import (
	"context"
	"fmt"

	"go-college/payment/order"
)

type ReceiptSender interface {
	SendPaymentReceipt(to, orderID, paymentID, purpose string, amount int64, currency string) error
}

// EmailLookup resolves the address receipts for a user are sent to.
type EmailLookup func(ctx context.Context, userID string) (string, error)

// Receipts mails the payer when an order completes. Other events are ignored.
type Receipts struct {
	sender ReceiptSender
	lookup EmailLookup
}

func NewReceipts(sender ReceiptSender, lookup EmailLookup) *Receipts {
	return &Receipts{sender: sender, lookup: lookup}
}

func (r *Receipts) Notify(ctx context.Context, ev order.Event) error {
	if ev.Order.Status != order.StatusCompleted {
		return nil
	}
	to, err := r.lookup(ctx, ev.Order.UserID)
	if err != nil {
		return fmt.Errorf("lookup receipt address for %s: %w", ev.Order.OrderID, err)
	}
	if to == "" {
		return nil
	}
	o := ev.Order
	return r.sender.SendPaymentReceipt(to, o.OrderID, o.ProviderPaymentID, string(o.Purpose), o.Amount, o.Currency)
}
