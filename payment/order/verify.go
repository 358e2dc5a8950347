package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentFailed     = "payment.failed"
	EventOrderPaid         = "order.paid"
	EventRefundProcessed   = "refund.processed"
)

type VerifyInput struct {
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}

// Verify handles a client-side payment confirmation. The signature is checked
// before the ledger is read, so a bad signature never touches the ledger.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (*PaymentOrder, error) {
	if in.ProviderOrderID == "" || in.ProviderPaymentID == "" || in.Signature == "" {
		s.metrics.Verification("client", "invalid")
		return nil, fmt.Errorf("%w: providerOrderId, providerPaymentId and signature are required", ErrValidation)
	}

	if err := CheckPaymentSignature(in.ProviderOrderID, in.ProviderPaymentID, in.Signature, s.secrets.KeySecret); err != nil {
		s.metrics.Verification("client", outcome(err))
		s.logger.Warn("payment verification rejected",
			zap.String("provider_order_id", in.ProviderOrderID),
			zap.String("provider_payment_id", in.ProviderPaymentID),
			zap.Error(err))
		return nil, err
	}

	o, err := s.complete(ctx, in.ProviderOrderID, in.ProviderPaymentID, 0)
	s.metrics.Verification("client", outcome(err))
	return o, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSignatureMismatch):
		return "mismatch"
	case errors.Is(err, ErrConfigurationMissing):
		return "unconfigured"
	case errors.Is(err, ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, ErrStateConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "invalid"
	}
	return "error"
}

// complete is the one path to StatusCompleted. Callers must have verified a signature.
func (s *Service) complete(ctx context.Context, providerOrderID, paymentID string, amount int64) (*PaymentOrder, error) {
	found, err := s.ledger.GetByProviderOrderID(ctx, providerOrderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: unknown order %s", ErrOrderNotFound, providerOrderID)
		}
		return nil, err
	}

	now := s.now()
	o, changed, err := s.ledger.Update(ctx, found.OrderID, func(o *PaymentOrder) (bool, error) {
		if amount != 0 && amount != o.Amount {
			return false, fmt.Errorf("%w: captured amount %d does not match order amount %d", ErrValidation, amount, o.Amount)
		}
		if o.Status == StatusCompleted && o.ProviderPaymentID != paymentID {
			s.logger.Warn("order already completed by another payment",
				zap.String("order_id", o.OrderID),
				zap.String("recorded_payment_id", o.ProviderPaymentID),
				zap.String("provider_payment_id", paymentID))
		}
		return o.complete(paymentID, now)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("payment completed",
			zap.String("order_id", o.OrderID),
			zap.String("provider_payment_id", o.ProviderPaymentID))
		s.notify(ctx, *o)
	}
	return o, nil
}

// WebhookEnvelope is the provider's event body.
type WebhookEnvelope struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Payment *struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment,omitempty"`
	Refund *struct {
		Entity RefundEntity `json:"entity"`
	} `json:"refund,omitempty"`
}

type PaymentEntity struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"` // cumulative across refunds
	Currency       string `json:"currency"`
	Status         string `json:"status"`
}

type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

type WebhookResult struct {
	Event   string
	Handled bool
	Order   *PaymentOrder
}

// HandleWebhook verifies and applies a provider webhook. body must be the raw
// request bytes the provider signed.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if err := CheckWebhookSignature(body, signature, s.secrets.WebhookSecret); err != nil {
		s.metrics.Verification("webhook", outcome(err))
		s.logger.Warn("webhook rejected", zap.Error(err))
		return WebhookResult{}, err
	}

	var env WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.metrics.Verification("webhook", "invalid")
		return WebhookResult{}, fmt.Errorf("%w: malformed webhook body", ErrValidation)
	}
	res := WebhookResult{Event: env.Event}
	s.metrics.Webhook(env.Event)

	var (
		o   *PaymentOrder
		err error
	)
	switch env.Event {
	case EventPaymentCaptured, EventOrderPaid:
		var p PaymentEntity
		if p, err = env.payment(); err == nil {
			o, err = s.complete(ctx, p.OrderID, p.ID, p.Amount)
			if errors.Is(err, ErrStateConflict) {
				o, err = s.ignoreConflict(ctx, env.Event, p.OrderID, err)
			}
		}
	case EventPaymentAuthorized:
		o, err = s.applyEvent(ctx, env, func(o *PaymentOrder, _ PaymentEntity, now time.Time) (bool, error) {
			return o.markProcessing(now), nil
		})
	case EventPaymentFailed:
		o, err = s.applyEvent(ctx, env, func(o *PaymentOrder, _ PaymentEntity, now time.Time) (bool, error) {
			return o.markFailed(now), nil
		})
	case EventRefundProcessed:
		o, err = s.applyEvent(ctx, env, func(o *PaymentOrder, _ PaymentEntity, now time.Time) (bool, error) {
			return o.recordProviderRefund(env.refundedTotal(o), "refunded by provider", now)
		})
	default:
		s.logger.Info("webhook event ignored", zap.String("event", env.Event))
		s.metrics.Verification("webhook", "ignored")
		return res, nil
	}

	s.metrics.Verification("webhook", outcome(err))
	if err != nil {
		return res, err
	}
	res.Handled = true
	res.Order = o
	return res, nil
}

// refundedTotal is the cumulative refunded amount the event reports. The payment
// entity carries it directly; without it a first refund's own amount is used,
// and a bare event means a full refund.
func (env WebhookEnvelope) refundedTotal(o *PaymentOrder) int64 {
	if p := env.Payload.Payment; p != nil && p.Entity.AmountRefunded > 0 {
		return p.Entity.AmountRefunded
	}
	if r := env.Payload.Refund; r != nil && r.Entity.Amount > 0 {
		if o.Status == StatusRefunded {
			return o.RefundAmount
		}
		return r.Entity.Amount
	}
	return o.Amount
}

func (env WebhookEnvelope) payment() (PaymentEntity, error) {
	if env.Payload.Payment == nil || env.Payload.Payment.Entity.OrderID == "" || env.Payload.Payment.Entity.ID == "" {
		return PaymentEntity{}, fmt.Errorf("%w: %s event without payment entity", ErrValidation, env.Event)
	}
	return env.Payload.Payment.Entity, nil
}

// applyEvent runs a non-completing transition for a webhook event. Transitions that
// do not apply to the current status leave the order as it is.
func (s *Service) applyEvent(ctx context.Context, env WebhookEnvelope, fn func(*PaymentOrder, PaymentEntity, time.Time) (bool, error)) (*PaymentOrder, error) {
	p, err := env.payment()
	if err != nil {
		return nil, err
	}
	found, err := s.ledger.GetByProviderOrderID(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: unknown order %s", ErrOrderNotFound, p.OrderID)
		}
		return nil, err
	}

	now := s.now()
	o, changed, err := s.ledger.Update(ctx, found.OrderID, func(o *PaymentOrder) (bool, error) {
		return fn(o, p, now)
	})
	if errors.Is(err, ErrStateConflict) {
		return s.ignoreConflict(ctx, env.Event, p.OrderID, err)
	}
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("payment status changed",
			zap.String("order_id", o.OrderID),
			zap.String("status", string(o.Status)),
			zap.String("event", env.Event))
		s.notify(ctx, *o)
	}
	return o, nil
}

// ignoreConflict acknowledges a webhook whose transition no longer applies so the
// provider stops redelivering it.
func (s *Service) ignoreConflict(ctx context.Context, event, providerOrderID string, cause error) (*PaymentOrder, error) {
	s.logger.Warn("webhook transition not applicable",
		zap.String("event", event),
		zap.String("provider_order_id", providerOrderID),
		zap.Error(cause))
	return s.ledger.GetByProviderOrderID(ctx, providerOrderID)
}
