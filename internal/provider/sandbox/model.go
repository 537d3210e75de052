package sandbox

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
)

// Calendar dates are stored as YYYY-MM-DD text so range filters compare
// lexicographically on both sqlite and postgres.

type customerRow struct {
	ID          string `gorm:"primaryKey;size:40"`
	Name        string `gorm:"size:255;not null"`
	Email       string `gorm:"size:255"`
	TaxID       string `gorm:"size:18;uniqueIndex"`
	Phone       string `gorm:"size:20"`
	PersonType  string `gorm:"size:16"`
	DateCreated string `gorm:"size:10;index"`
	Deleted     bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

func (customerRow) TableName() string { return "sandbox_customers" }

type paymentRow struct {
	ID                string          `gorm:"primaryKey;size:40"`
	CustomerID        string          `gorm:"size:40;index;not null"`
	Value             decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	NetValue          decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	BillingType       string          `gorm:"size:16;not null"`
	Status            string          `gorm:"size:32;index;not null"`
	DueDate           string          `gorm:"size:10"`
	DateCreated       string          `gorm:"size:10;index"`
	PaymentDate       *string         `gorm:"size:10"`
	Description       string          `gorm:"size:500"`
	ExternalReference string          `gorm:"size:100"`
	InvoiceURL        string          `gorm:"size:255"`
	BankSlipURL       string          `gorm:"size:255"`
	CreatedAt         time.Time
}

func (paymentRow) TableName() string { return "sandbox_payments" }

func (r customerRow) toDomain() domain.Customer {
	created, _ := domain.ParseDate(r.DateCreated)
	return domain.Customer{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		TaxID:       r.TaxID,
		Phone:       r.Phone,
		PersonType:  domain.ParsePersonType(r.PersonType),
		DateCreated: created,
		Deleted:     r.Deleted,
	}
}

func (r paymentRow) toDomain() domain.Payment {
	due, _ := domain.ParseDate(r.DueDate)
	created, _ := domain.ParseDate(r.DateCreated)
	var paid *domain.Date
	if r.PaymentDate != nil {
		if d, err := domain.ParseDate(*r.PaymentDate); err == nil && !d.IsZero() {
			paid = &d
		}
	}
	return domain.Payment{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		Value:       r.Value,
		NetValue:    r.NetValue,
		BillingType: domain.BillingType(r.BillingType),
		Status:      domain.PaymentStatus(r.Status),
		DueDate:     due,
		DateCreated: created,
		PaymentDate: paid,
		Description: r.Description,
		InvoiceURL:  r.InvoiceURL,
		BankSlipURL: r.BankSlipURL,
	}
}
