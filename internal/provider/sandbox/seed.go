package sandbox

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedCustomer struct {
	id, name, email, taxID, phone string
	createdDaysAgo                int
}

type seedPayment struct {
	id, customerID, description string
	value, fee                  string
	billingType                 domain.BillingType
	status                      domain.PaymentStatus
	createdDaysAgo, dueInDays   int
	paidDaysAgo                 *int
}

func daysAgo(n int) *int { return &n }

var seedCustomers = []seedCustomer{
	{"cus_000000000101", "Ana Beatriz Costa", "ana.costa@example.com", "24971563792", "11987654321", 120},
	{"cus_000000000102", "Carlos Eduardo Lima", "carlos.lima@example.com", "52998224725", "21998765432", 95},
	{"cus_000000000103", "Padaria Pao Dourado Ltda", "financeiro@paodourado.example.com", "11222333000181", "1133224455", 70},
	{"cus_000000000104", "Fernanda Rocha", "fernanda.rocha@example.com", "39053344705", "31991234567", 40},
	{"cus_000000000105", "Oficina Mecanica Avenida ME", "contato@oficinaavenida.example.com", "45723174000110", "4133557799", 25},
	{"cus_000000000106", "Joao Pedro Alves", "joao.alves@example.com", "15350946056", "51996543210", 8},
}

var seedPayments = []seedPayment{
	{"pay_000000001001", "cus_000000000101", "Mensalidade plano basico", "150.00", "2.99", domain.BillingTypeBoleto, domain.StatusReceived, 58, -48, daysAgo(50)},
	{"pay_000000001002", "cus_000000000101", "Mensalidade plano basico", "150.00", "2.99", domain.BillingTypeBoleto, domain.StatusReceived, 28, -18, daysAgo(19)},
	{"pay_000000001003", "cus_000000000102", "Consultoria fiscal", "480.00", "0.00", domain.BillingTypePix, domain.StatusConfirmed, 20, -10, daysAgo(12)},
	{"pay_000000001004", "cus_000000000102", "Consultoria fiscal", "480.00", "0.00", domain.BillingTypePix, domain.StatusPending, 3, 7, nil},
	{"pay_000000001005", "cus_000000000103", "Licenca anual", "1290.90", "25.00", domain.BillingTypeCreditCard, domain.StatusReceived, 15, -15, daysAgo(15)},
	{"pay_000000001006", "cus_000000000103", "Taxa de implantacao", "350.00", "2.99", domain.BillingTypeBoleto, domain.StatusOverdue, 50, -42, nil},
	{"pay_000000001007", "cus_000000000103", "Suporte estendido", "99.90", "2.99", domain.BillingTypeBoleto, domain.StatusOverdue, 20, -6, nil},
	{"pay_000000001008", "cus_000000000104", "Mensalidade plano pro", "249.00", "2.99", domain.BillingTypeBoleto, domain.StatusOverdue, 35, -21, nil},
	{"pay_000000001009", "cus_000000000105", "Revisao de frota", "780.00", "0.00", domain.BillingTypePix, domain.StatusReceived, 10, -5, daysAgo(6)},
	{"pay_000000001010", "cus_000000000105", "Pecas e servicos", "1120.50", "2.99", domain.BillingTypeBoleto, domain.StatusPending, 2, 12, nil},
	{"pay_000000001011", "cus_000000000106", "Mensalidade plano basico", "150.00", "2.99", domain.BillingTypeBoleto, domain.StatusPending, 1, 14, nil},
	{"pay_000000001012", "cus_000000000104", "Mensalidade plano pro", "249.00", "0.00", domain.BillingTypeCreditCard, domain.StatusRefunded, 45, -40, nil},
}

// Seed loads demo customers and payments dated relative to today.
// It is a no-op when the customer table already holds rows.
func (s *Store) Seed(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&customerRow{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	today := s.today()
	customers := make([]customerRow, 0, len(seedCustomers))
	for _, c := range seedCustomers {
		customers = append(customers, customerRow{
			ID:          c.id,
			Name:        c.name,
			Email:       c.email,
			TaxID:       c.taxID,
			Phone:       c.phone,
			PersonType:  string(personTypeFor(c.taxID)),
			DateCreated: today.AddDays(-c.createdDaysAgo).String(),
		})
	}

	payments := make([]paymentRow, 0, len(seedPayments))
	for _, p := range seedPayments {
		value := decimal.RequireFromString(p.value)
		row := paymentRow{
			ID:          p.id,
			CustomerID:  p.customerID,
			Value:       value,
			NetValue:    value.Sub(decimal.RequireFromString(p.fee)),
			BillingType: string(p.billingType),
			Status:      string(p.status),
			DueDate:     today.AddDays(p.dueInDays).String(),
			DateCreated: today.AddDays(-p.createdDaysAgo).String(),
			Description: p.description,
			InvoiceURL:  fmt.Sprintf("%s/i/%s", slipBaseURL, p.id),
		}
		if p.billingType == domain.BillingTypeBoleto {
			row.BankSlipURL = fmt.Sprintf("%s/b/%s", slipBaseURL, p.id)
		}
		if p.paidDaysAgo != nil {
			paid := today.AddDays(-*p.paidDaysAgo).String()
			row.PaymentDate = &paid
		}
		payments = append(payments, row)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&customers).Error; err != nil {
			return err
		}
		return tx.Create(&payments).Error
	})
	if err != nil {
		return err
	}

	s.log.Info("sandbox seeded",
		zap.Int("customers", len(customers)),
		zap.Int("payments", len(payments)),
	)
	return nil
}
