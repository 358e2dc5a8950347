package order

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// Settled reports whether money has moved for the order. Only refunds apply to
// a settled order, whether recorded by an admin or by a refund.processed event.
// A failed order is not settled: the student may retry on the same provider order.
func (s Status) Settled() bool {
	return s == StatusCompleted || s == StatusRefunded
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

type Purpose string

const (
	PurposeAdmission Purpose = "admission"
	PurposeSemester  Purpose = "semester"
	PurposeHostel    Purpose = "hostel"
	PurposeLibrary   Purpose = "library"
	PurposeOther     Purpose = "other"
)

func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(s); p {
	case PurposeAdmission, PurposeSemester, PurposeHostel, PurposeLibrary, PurposeOther:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown payment type %q", ErrValidation, s)
}

const DefaultCurrency = "INR"

// PaymentOrder is one ledger entry. Amounts are in minor currency units (paise for INR).
type PaymentOrder struct {
	OrderID           string    `json:"orderId"`
	UserID            string    `json:"userId"`
	ProviderOrderID   string    `json:"providerOrderId"`
	ProviderPaymentID string    `json:"providerPaymentId,omitempty"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Status            Status    `json:"status"`
	Purpose           Purpose   `json:"paymentType"`
	Description       string    `json:"description,omitempty"`
	RefundAmount      int64     `json:"refundAmount,omitempty"`
	RefundReason      string    `json:"refundReason,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// complete moves the order to completed. The bool result is false when nothing changed,
// which is the case for a replay of an already applied completion.
func (o *PaymentOrder) complete(paymentID string, now time.Time) (bool, error) {
	switch o.Status {
	case StatusCompleted:
		return false, nil
	case StatusPending, StatusProcessing, StatusFailed:
		o.ProviderPaymentID = paymentID
		o.Status = StatusCompleted
		o.UpdatedAt = now
		return true, nil
	}
	return false, fmt.Errorf("%w: order %s is %s", ErrStateConflict, o.OrderID, o.Status)
}

func (o *PaymentOrder) markProcessing(now time.Time) bool {
	if o.Status != StatusPending && o.Status != StatusFailed {
		return false
	}
	o.Status = StatusProcessing
	o.UpdatedAt = now
	return true
}

// markFailed records a failed payment attempt. A later successful attempt on the
// same order still completes it.
func (o *PaymentOrder) markFailed(now time.Time) bool {
	if o.Status.Settled() || o.Status == StatusFailed {
		return false
	}
	o.Status = StatusFailed
	o.UpdatedAt = now
	return true
}

func (o *PaymentOrder) refund(amount int64, reason string, now time.Time) (bool, error) {
	switch o.Status {
	case StatusRefunded:
		return false, nil
	case StatusCompleted:
	default:
		return false, fmt.Errorf("%w: order %s is %s, only completed orders can be refunded", ErrStateConflict, o.OrderID, o.Status)
	}
	if amount <= 0 || amount > o.Amount {
		return false, fmt.Errorf("%w: refund amount must be between 1 and %d", ErrValidation, o.Amount)
	}
	o.Status = StatusRefunded
	o.RefundAmount = amount
	o.RefundReason = reason
	o.UpdatedAt = now
	return true, nil
}

// recordProviderRefund applies the provider's cumulative refunded total. Replays
// and totals at or below what is already recorded change nothing.
func (o *PaymentOrder) recordProviderRefund(total int64, reason string, now time.Time) (bool, error) {
	if !o.Status.Settled() {
		return false, fmt.Errorf("%w: order %s is %s, only completed orders can be refunded", ErrStateConflict, o.OrderID, o.Status)
	}
	if total <= 0 || total > o.Amount {
		return false, fmt.Errorf("%w: refunded total %d outside 1..%d", ErrStateConflict, total, o.Amount)
	}
	if o.Status == StatusRefunded && total <= o.RefundAmount {
		return false, nil
	}
	o.Status = StatusRefunded
	o.RefundAmount = total
	o.RefundReason = reason
	o.UpdatedAt = now
	return true, nil
}
