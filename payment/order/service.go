package order

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go-college/payment/metrics"

	"go.uber.org/zap"
)

const (
	defaultProviderTimeout = 5 * time.Second
	maxDescriptionLen      = 500
	orderIDAttempts        = 3
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Secrets holds the provider secrets. KeySecret signs client confirmations,
// WebhookSecret signs webhook bodies.
type Secrets struct {
	KeySecret     string
	WebhookSecret string
}

// Service runs order creation, verification and webhook handling against a Ledger.
type Service struct {
	ledger          Ledger
	provider        Provider // nil when the gateway is not configured
	secrets         Secrets
	notifier        Notifier
	metrics         *metrics.Metrics
	logger          *zap.Logger
	providerTimeout time.Duration
	currency        string
	now             func() time.Time
	newID           func(time.Time) string
}

type Option func(*Service)

func WithProvider(p Provider) Option { return func(s *Service) { s.provider = p } }

func WithSecrets(sec Secrets) Option { return func(s *Service) { s.secrets = sec } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.providerTimeout = d
		}
	}
}

func WithDefaultCurrency(c string) Option {
	return func(s *Service) {
		if c != "" {
			s.currency = c
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithOrderIDs(gen func(time.Time) string) Option { return func(s *Service) { s.newID = gen } }

func NewService(ledger Ledger, opts ...Option) *Service {
	s := &Service{
		ledger:          ledger,
		logger:          zap.NewNop(),
		providerTimeout: defaultProviderTimeout,
		currency:        DefaultCurrency,
		now:             time.Now,
		newID:           NewOrderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a provider client is wired in.
func (s *Service) Configured() bool { return s.provider != nil }

type CreateOrderInput struct {
	UserID      string
	Amount      int64
	Currency    string
	Purpose     string
	Description string
}

func (s *Service) validateCreate(in *CreateOrderInput) (Purpose, error) {
	if in.UserID == "" {
		return "", fmt.Errorf("%w: missing user", ErrValidation)
	}
	if in.Amount <= 0 {
		return "", fmt.Errorf("%w: amount must be a positive integer", ErrValidation)
	}
	if in.Currency == "" {
		in.Currency = s.currency
	}
	if !currencyPattern.MatchString(in.Currency) {
		return "", fmt.Errorf("%w: currency must be a 3 letter upper-case code", ErrValidation)
	}
	if len(in.Description) > maxDescriptionLen {
		return "", fmt.Errorf("%w: description longer than %d characters", ErrValidation, maxDescriptionLen)
	}
	return ParsePurpose(in.Purpose)
}

// CreateOrder registers a new order with the provider and stores it as pending.
// Nothing is written unless the provider accepted the order.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*PaymentOrder, error) {
	purpose, err := s.validateCreate(&in)
	if err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, fmt.Errorf("%w: please contact administrator", ErrConfigurationMissing)
	}

	orderID, err := s.mintOrderID(ctx)
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	start := time.Now()
	po, err := s.provider.CreateOrder(pctx, ProviderOrderRequest{
		Amount:   in.Amount,
		Currency: in.Currency,
		Receipt:  orderID,
		Notes: map[string]string{
			"userId":      in.UserID,
			"paymentType": string(purpose),
			"description": in.Description,
		},
	})
	s.metrics.ProviderCall(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("provider order registration failed",
			zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("%w: error creating order", ErrUpstreamProvider)
	}
	if po.ID == "" {
		s.logger.Error("provider returned an order without id", zap.String("order_id", orderID))
		return nil, fmt.Errorf("%w: error creating order", ErrUpstreamProvider)
	}

	now := s.now()
	o := &PaymentOrder{
		OrderID:         orderID,
		UserID:          in.UserID,
		ProviderOrderID: po.ID,
		Amount:          in.Amount,
		Currency:        in.Currency,
		Status:          StatusPending,
		Purpose:         purpose,
		Description:     in.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.ledger.Insert(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateOrder) {
			return nil, fmt.Errorf("%w: order %s already exists", ErrStateConflict, orderID)
		}
		return nil, fmt.Errorf("store order %s: %w", orderID, err)
	}

	s.metrics.OrderCreated(string(purpose))
	s.logger.Info("payment order created",
		zap.String("order_id", o.OrderID),
		zap.String("provider_order_id", o.ProviderOrderID),
		zap.String("user_id", o.UserID),
		zap.Int64("amount", o.Amount),
		zap.String("currency", o.Currency))
	return o, nil
}

func (s *Service) mintOrderID(ctx context.Context) (string, error) {
	for i := 0; i < orderIDAttempts; i++ {
		id := s.newID(s.now())
		_, err := s.ledger.Get(ctx, id)
		if errors.Is(err, ErrOrderNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check order id: %w", err)
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique order id", ErrStateConflict)
}

func (s *Service) Get(ctx context.Context, orderID string) (*PaymentOrder, error) {
	return s.ledger.Get(ctx, orderID)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]PaymentOrder, error) {
	return s.ledger.ListByUser(ctx, userID)
}

// Refund records an out-of-band refund of a completed order.
func (s *Service) Refund(ctx context.Context, orderID string, amount int64, reason string) (*PaymentOrder, error) {
	now := s.now()
	o, changed, err := s.ledger.Update(ctx, orderID, func(o *PaymentOrder) (bool, error) {
		return o.refund(amount, reason, now)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("payment refunded", zap.String("order_id", o.OrderID), zap.Int64("refund_amount", amount))
		s.notify(ctx, *o)
	}
	return o, nil
}

// notify dispatches a transition event. Delivery failures are logged only: the
// ledger is the record of truth and callers already got their answer.
func (s *Service) notify(ctx context.Context, o PaymentOrder) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), newEvent(o)); err != nil {
		s.logger.Warn("payment notification failed",
			zap.String("order_id", o.OrderID), zap.String("status", string(o.Status)), zap.Error(err))
	}
}
