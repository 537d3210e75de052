package asaas

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
)

type customerPayload struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	CpfCnpj     string      `json:"cpfCnpj"`
	Phone       string      `json:"phone"`
	MobilePhone string      `json:"mobilePhone"`
	PersonType  string      `json:"personType"`
	DateCreated domain.Date `json:"dateCreated"`
	Deleted     bool        `json:"deleted"`
}

func (p customerPayload) toDomain() domain.Customer {
	phone := strings.TrimSpace(p.Phone)
	if phone == "" {
		phone = strings.TrimSpace(p.MobilePhone)
	}
	return domain.Customer{
		ID:          strings.TrimSpace(p.ID),
		Name:        strings.TrimSpace(p.Name),
		Email:       strings.TrimSpace(p.Email),
		TaxID:       strings.TrimSpace(p.CpfCnpj),
		Phone:       phone,
		PersonType:  domain.ParsePersonType(p.PersonType),
		DateCreated: p.DateCreated,
		Deleted:     p.Deleted,
	}
}

type paymentPayload struct {
	ID          string          `json:"id"`
	Customer    string          `json:"customer"`
	Value       decimal.Decimal `json:"value"`
	NetValue    decimal.Decimal `json:"netValue"`
	BillingType string          `json:"billingType"`
	Status      string          `json:"status"`
	DueDate     domain.Date     `json:"dueDate"`
	DateCreated domain.Date     `json:"dateCreated"`
	PaymentDate *domain.Date    `json:"paymentDate"`
	Description string          `json:"description"`
	InvoiceURL  string          `json:"invoiceUrl"`
	BankSlipURL string          `json:"bankSlipUrl"`
}

func (p paymentPayload) toDomain() domain.Payment {
	paymentDate := p.PaymentDate
	if paymentDate != nil && paymentDate.IsZero() {
		paymentDate = nil
	}
	return domain.Payment{
		ID:          strings.TrimSpace(p.ID),
		CustomerID:  strings.TrimSpace(p.Customer),
		Value:       p.Value,
		NetValue:    p.NetValue,
		BillingType: domain.BillingType(strings.ToUpper(strings.TrimSpace(p.BillingType))),
		Status:      domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(p.Status))),
		DueDate:     p.DueDate,
		DateCreated: p.DateCreated,
		PaymentDate: paymentDate,
		Description: strings.TrimSpace(p.Description),
		InvoiceURL:  strings.TrimSpace(p.InvoiceURL),
		BankSlipURL: strings.TrimSpace(p.BankSlipURL),
	}
}

type createCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	CpfCnpj string `json:"cpfCnpj"`
	Phone   string `json:"phone,omitempty"`
}

type createPaymentRequest struct {
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Value             float64 `json:"value"`
	DueDate           string  `json:"dueDate"`
	Description       string  `json:"description,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
}
