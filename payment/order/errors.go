package order

import "errors"

// Error kinds surfaced to callers. Wrap them with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrConfigurationMissing = errors.New("payment gateway not configured")
	ErrSignatureMismatch    = errors.New("invalid payment signature")
	ErrOrderNotFound        = errors.New("payment record not found")
	ErrUpstreamProvider     = errors.New("payment provider error")
	ErrValidation           = errors.New("invalid request")
	ErrStateConflict        = errors.New("payment state conflict")

	// ErrDuplicateOrder is returned by a Ledger when the order id or provider order id already exists.
	ErrDuplicateOrder = errors.New("duplicate payment order")
)
