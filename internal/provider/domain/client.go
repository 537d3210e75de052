package domain

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultListLimit  = 100
	DefaultRangeLimit = 1000
)

// Client is the narrow contract the engine uses to reach the billing provider.
// Implementations hold no per-call state and are safe for concurrent use.
type Client interface {
	ListCustomers(ctx context.Context, limit, offset int) (CustomerList, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	CreateCustomer(ctx context.Context, input CustomerInput) (Customer, error)
	ListPayments(ctx context.Context, query PaymentQuery) (PaymentList, error)
	ListPaymentsInRange(ctx context.Context, from, to Date, limit int) (PaymentList, error)
	CreatePayment(ctx context.Context, input PaymentInput) (Payment, error)
	Ping(ctx context.Context) error
}

// ClientConfig is handed to a provider factory when the client is built.
type ClientConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	// Location is the calendar used to reject past due dates. Defaults to UTC.
	Location *time.Location
}

var (
	ErrProviderUnavailable = errors.New("provider_unavailable")
	ErrNotFound            = errors.New("not_found")
	ErrValidation          = errors.New("validation_error")
	ErrProviderNotFound    = errors.New("provider_not_found")
	ErrInvalidConfig       = errors.New("invalid_provider_config")
)

// NormalizePage applies the default limit and clamps negative offsets.
func NormalizePage(limit, offset, def int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// EmptyRange reports whether from > to, in which case no provider call is made.
func EmptyRange(from, to Date) bool {
	if from.IsZero() || to.IsZero() {
		return false
	}
	return from.After(to)
}

// ClientFactory builds a Client for one named provider.
type ClientFactory interface {
	Provider() string
	NewClient(cfg ClientConfig) (Client, error)
}
