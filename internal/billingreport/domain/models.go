package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
)

const DefaultBoletoDescription = "Nova cobrança gerada via sistema"

var ErrInvalidPeriod = errors.New("invalid_period")

// OverdueEntry pairs a customer with its most overdue payment.
type OverdueEntry struct {
	Customer        provider.Customer `json:"customer"`
	Payment         provider.Payment  `json:"payment"`
	DaysOverdue     int               `json:"days_overdue"`
	OverduePayments int               `json:"overdue_payments"`
	OverdueTotal    decimal.Decimal   `json:"overdue_total"`
	AgingBucket     string            `json:"aging_bucket"`
}

// ReportStatus tells callers whether a zero-looking report is real.
// Degraded means a provider fetch failed and the figures were zeroed.
// Truncated means the provider holds more records than were aggregated.
type ReportStatus struct {
	Degraded  bool `json:"degraded"`
	Truncated bool `json:"truncated"`
}

type OverdueCustomersResponse struct {
	Data       []OverdueEntry `json:"data"`
	TotalCount int            `json:"total_count"`
	ReportStatus
}

// PeriodStats is the reduction of a payment set. Maps are keyed by the
// provider's status, billing type and YYYY-MM month tags.
type PeriodStats struct {
	PaymentCount        int                                        `json:"payment_count"`
	TotalValue          decimal.Decimal                            `json:"total_value"`
	TotalRevenue        decimal.Decimal                            `json:"total_revenue"`
	AverageTicket       decimal.Decimal                            `json:"average_ticket"`
	ConversionRate      decimal.Decimal                            `json:"conversion_rate"`
	CountsByStatus      map[provider.PaymentStatus]int             `json:"counts_by_status"`
	SumsByStatus        map[provider.PaymentStatus]decimal.Decimal `json:"sums_by_status"`
	CountsByBillingType map[provider.BillingType]int               `json:"counts_by_billing_type"`
	RevenueByMonth      map[string]decimal.Decimal                 `json:"revenue_by_month"`
}

type PeriodReport struct {
	From  provider.Date `json:"date_from"`
	To    provider.Date `json:"date_to"`
	Stats PeriodStats   `json:"stats"`
	ReportStatus
}

type MonthlyGrowth struct {
	Customers        decimal.Decimal `json:"customers"`
	Revenue          decimal.Decimal `json:"revenue"`
	PendingPayments  decimal.Decimal `json:"pending_payments"`
	ReceivedPayments decimal.Decimal `json:"received_payments"`
}

type DashboardStats struct {
	TotalCustomers   int             `json:"total_customers"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	PendingPayments  int             `json:"pending_payments"`
	ReceivedPayments int             `json:"received_payments"`
	MonthlyGrowth    MonthlyGrowth   `json:"monthly_growth"`
	ReportStatus
}

type RecentActivities struct {
	Data []provider.Payment `json:"data"`
	ReportStatus
}

// BoletoRequest asks for a new BOLETO charge on an existing customer.
type BoletoRequest struct {
	CustomerID  string          `json:"customer_id"`
	Value       decimal.Decimal `json:"value"`
	DueDate     provider.Date   `json:"due_date"`
	Description string          `json:"description"`
}

type ProviderStatus struct {
	Provider  string `json:"provider"`
	Reachable bool   `json:"reachable"`
}
