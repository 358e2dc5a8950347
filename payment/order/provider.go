package order

import "context"

// ProviderOrderRequest registers an order with the payment provider.
type ProviderOrderRequest struct {
	Amount   int64             `json:"amount"` // minor units
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// ProviderOrder is the provider's view of a registered order.
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Provider is the external order-creation API.
type Provider interface {
	CreateOrder(ctx context.Context, req ProviderOrderRequest) (ProviderOrder, error)
}
