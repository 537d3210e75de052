package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type PersonType string

const (
	PersonTypeIndividual   PersonType = "INDIVIDUAL"
	PersonTypeOrganization PersonType = "ORGANIZATION"
)

// ParsePersonType normalizes provider tags (FISICA/JURIDICA) and engine tags.
func ParsePersonType(raw string) PersonType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "FISICA", string(PersonTypeIndividual):
		return PersonTypeIndividual
	case "JURIDICA", string(PersonTypeOrganization):
		return PersonTypeOrganization
	default:
		return ""
	}
}

type BillingType string

const (
	BillingTypeBoleto     BillingType = "BOLETO"
	BillingTypeCreditCard BillingType = "CREDIT_CARD"
	BillingTypeDebitCard  BillingType = "DEBIT_CARD"
	BillingTypeTransfer   BillingType = "TRANSFER"
	BillingTypeDeposit    BillingType = "DEPOSIT"
	BillingTypePix        BillingType = "PIX"
	BillingTypeUndefined  BillingType = "UNDEFINED"
)

type PaymentStatus string

const (
	StatusPending                    PaymentStatus = "PENDING"
	StatusReceived                   PaymentStatus = "RECEIVED"
	StatusConfirmed                  PaymentStatus = "CONFIRMED"
	StatusOverdue                    PaymentStatus = "OVERDUE"
	StatusRefunded                   PaymentStatus = "REFUNDED"
	StatusReceivedInCash             PaymentStatus = "RECEIVED_IN_CASH"
	StatusRefundRequested            PaymentStatus = "REFUND_REQUESTED"
	StatusRefundInProgress           PaymentStatus = "REFUND_IN_PROGRESS"
	StatusChargebackRequested        PaymentStatus = "CHARGEBACK_REQUESTED"
	StatusChargebackDispute          PaymentStatus = "CHARGEBACK_DISPUTE"
	StatusAwaitingChargebackReversal PaymentStatus = "AWAITING_CHARGEBACK_REVERSAL"
	StatusDunningRequested           PaymentStatus = "DUNNING_REQUESTED"
	StatusDunningReceived            PaymentStatus = "DUNNING_RECEIVED"
	StatusAwaitingRiskAnalysis       PaymentStatus = "AWAITING_RISK_ANALYSIS"
)

var knownStatuses = map[PaymentStatus]struct{}{
	StatusPending:                    {},
	StatusReceived:                   {},
	StatusConfirmed:                  {},
	StatusOverdue:                    {},
	StatusRefunded:                   {},
	StatusReceivedInCash:             {},
	StatusRefundRequested:            {},
	StatusRefundInProgress:           {},
	StatusChargebackRequested:        {},
	StatusChargebackDispute:          {},
	StatusAwaitingChargebackReversal: {},
	StatusDunningRequested:           {},
	StatusDunningReceived:            {},
	StatusAwaitingRiskAnalysis:       {},
}

func (s PaymentStatus) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// ParsePaymentStatus upper-cases raw and reports whether it is a known status.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return status, status.Valid()
}

type Customer struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	TaxID       string     `json:"tax_id,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	PersonType  PersonType `json:"person_type,omitempty"`
	DateCreated Date       `json:"date_created"`
	Deleted     bool       `json:"deleted,omitempty"`
}

type Payment struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	Value       decimal.Decimal `json:"value"`
	NetValue    decimal.Decimal `json:"net_value"`
	BillingType BillingType     `json:"billing_type"`
	Status      PaymentStatus   `json:"status"`
	DueDate     Date            `json:"due_date"`
	DateCreated Date            `json:"date_created"`
	PaymentDate *Date           `json:"payment_date,omitempty"`
	Description string          `json:"description,omitempty"`
	InvoiceURL  string          `json:"invoice_url,omitempty"`
	BankSlipURL string          `json:"bank_slip_url,omitempty"`
}

// SettledOn returns the payment date when present, otherwise the creation date.
func (p Payment) SettledOn() Date {
	if p.PaymentDate != nil && !p.PaymentDate.IsZero() {
		return *p.PaymentDate
	}
	return p.DateCreated
}

type CustomerList struct {
	Data       []Customer `json:"data"`
	TotalCount int        `json:"total_count"`
	HasMore    bool       `json:"has_more"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// Truncated reports whether the provider holds more records than were returned.
func (l CustomerList) Truncated() bool {
	return l.TotalCount > l.Offset+len(l.Data)
}

type PaymentList struct {
	Data       []Payment `json:"data"`
	TotalCount int       `json:"total_count"`
	HasMore    bool      `json:"has_more"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}

// Truncated reports whether the provider holds more records than were returned.
func (l PaymentList) Truncated() bool {
	return l.TotalCount > l.Offset+len(l.Data)
}

type PaymentQuery struct {
	Limit  int
	Offset int
	Status PaymentStatus
}

type CustomerInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"omitempty,email"`
	TaxID string `json:"tax_id" validate:"required,min=11,max=18"`
	Phone string `json:"phone" validate:"omitempty,max=20"`
}

type PaymentInput struct {
	CustomerID        string          `json:"customer_id" validate:"required"`
	BillingType       BillingType     `json:"billing_type" validate:"required,oneof=BOLETO CREDIT_CARD DEBIT_CARD TRANSFER DEPOSIT PIX UNDEFINED"`
	Value             decimal.Decimal `json:"value"`
	DueDate           Date            `json:"due_date"`
	Description       string          `json:"description" validate:"max=500"`
	ExternalReference string          `json:"external_reference" validate:"max=100"`
}
