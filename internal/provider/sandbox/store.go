package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingpulse/internal/clock"
	"github.com/smallbiznis/billingpulse/internal/migration"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
	"github.com/smallbiznis/billingpulse/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const slipBaseURL = "https://sandbox.billingpulse.local"

// Store is a repository-backed provider used for development and demos.
// It honours the same contract and error taxonomy as the HTTP client.
type Store struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock clock.Clock
	loc   *time.Location
	log   *zap.Logger
}

func NewStore(conn *gorm.DB, node *snowflake.Node, clk clock.Clock, loc *time.Location, log *zap.Logger) *Store {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:    conn,
		node:  node,
		clock: clk,
		loc:   loc,
		log:   log.Named("provider.sandbox"),
	}
}

// Migrate applies the versioned schema on postgres and AutoMigrate elsewhere.
func (s *Store) Migrate(ctx context.Context) error {
	if s.db.Dialector.Name() == db.TypePostgres {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return migration.RunMigrations(sqlDB)
	}
	return s.db.WithContext(ctx).AutoMigrate(&customerRow{}, &paymentRow{})
}

func (s *Store) today() domain.Date {
	return domain.DateOf(s.clock.Now().In(s.loc))
}

func (s *Store) ListCustomers(ctx context.Context, limit, offset int) (domain.CustomerList, error) {
	limit, offset = domain.NormalizePage(limit, offset, domain.DefaultListLimit)

	var total int64
	base := s.db.WithContext(ctx).Model(&customerRow{}).Where("deleted = ?", false)
	if err := base.Count(&total).Error; err != nil {
		return domain.CustomerList{}, s.unavailable("count customers", err)
	}

	var rows []customerRow
	err := s.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("date_created DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return domain.CustomerList{}, s.unavailable("list customers", err)
	}

	customers := make([]domain.Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, row.toDomain())
	}
	return domain.CustomerList{
		Data:       customers,
		TotalCount: int(total),
		HasMore:    int(total) > offset+len(customers),
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, domain.ErrNotFound
	}

	var row customerRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Customer{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Customer{}, s.unavailable("get customer", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateCustomer(ctx context.Context, input domain.CustomerInput) (domain.Customer, error) {
	if err := domain.ValidateCustomerInput(input); err != nil {
		return domain.Customer{}, err
	}

	taxID := strings.TrimSpace(input.TaxID)
	row := customerRow{
		ID:          "cus_" + s.node.Generate().String(),
		Name:        strings.TrimSpace(input.Name),
		Email:       strings.TrimSpace(input.Email),
		TaxID:       taxID,
		Phone:       strings.TrimSpace(input.Phone),
		PersonType:  string(personTypeFor(taxID)),
		DateCreated: s.today().String(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.NewValidationError("tax_id", "duplicate", "a customer with this tax id already exists")
		}
		return domain.Customer{}, s.unavailable("create customer", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListPayments(ctx context.Context, q domain.PaymentQuery) (domain.PaymentList, error) {
	limit, offset := domain.NormalizePage(q.Limit, q.Offset, domain.DefaultListLimit)
	scope := func(tx *gorm.DB) *gorm.DB {
		if q.Status != "" {
			tx = tx.Where("status = ?", string(q.Status))
		}
		return tx
	}
	return s.listPayments(ctx, scope, limit, offset)
}

func (s *Store) ListPaymentsInRange(ctx context.Context, from, to domain.Date, limit int) (domain.PaymentList, error) {
	limit, _ = domain.NormalizePage(limit, 0, domain.DefaultRangeLimit)
	if domain.EmptyRange(from, to) {
		return domain.PaymentList{Data: []domain.Payment{}, Limit: limit}, nil
	}
	scope := func(tx *gorm.DB) *gorm.DB {
		if !from.IsZero() {
			tx = tx.Where("date_created >= ?", from.String())
		}
		if !to.IsZero() {
			tx = tx.Where("date_created <= ?", to.String())
		}
		return tx
	}
	return s.listPayments(ctx, scope, limit, 0)
}

func (s *Store) listPayments(ctx context.Context, scope func(*gorm.DB) *gorm.DB, limit, offset int) (domain.PaymentList, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&paymentRow{}).Scopes(scope).Count(&total).Error; err != nil {
		return domain.PaymentList{}, s.unavailable("count payments", err)
	}

	var rows []paymentRow
	err := s.db.WithContext(ctx).
		Scopes(scope).
		Order("date_created DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return domain.PaymentList{}, s.unavailable("list payments", err)
	}

	payments := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toDomain())
	}
	return domain.PaymentList{
		Data:       payments,
		TotalCount: int(total),
		HasMore:    int(total) > offset+len(payments),
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func (s *Store) CreatePayment(ctx context.Context, input domain.PaymentInput) (domain.Payment, error) {
	if err := domain.ValidatePaymentInput(input, s.today()); err != nil {
		return domain.Payment{}, err
	}

	customerID := strings.TrimSpace(input.CustomerID)
	var count int64
	if err := s.db.WithContext(ctx).Model(&customerRow{}).
		Where("id = ? AND deleted = ?", customerID, false).
		Count(&count).Error; err != nil {
		return domain.Payment{}, s.unavailable("lookup customer", err)
	}
	if count == 0 {
		return domain.Payment{}, domain.NewValidationError("customer_id", "invalid_customer", "customer does not exist")
	}

	id := "pay_" + s.node.Generate().String()
	value := input.Value.Round(2)
	row := paymentRow{
		ID:                id,
		CustomerID:        customerID,
		Value:             value,
		NetValue:          value,
		BillingType:       string(input.BillingType),
		Status:            string(domain.StatusPending),
		DueDate:           input.DueDate.String(),
		DateCreated:       s.today().String(),
		Description:       strings.TrimSpace(input.Description),
		ExternalReference: strings.TrimSpace(input.ExternalReference),
		InvoiceURL:        fmt.Sprintf("%s/i/%s", slipBaseURL, id),
	}
	if input.BillingType == domain.BillingTypeBoleto {
		row.BankSlipURL = fmt.Sprintf("%s/b/%s", slipBaseURL, id)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Payment{}, s.unavailable("create payment", err)
	}
	return row.toDomain(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.unavailable("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return s.unavailable("ping", err)
	}
	return nil
}

func (s *Store) unavailable(op string, err error) error {
	s.log.Warn("sandbox query failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: sandbox %s: %w", domain.ErrProviderUnavailable, op, err)
}

// personTypeFor infers the person type from the number of digits in a CPF/CNPJ.
func personTypeFor(taxID string) domain.PersonType {
	digits := 0
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits > 11 {
		return domain.PersonTypeOrganization
	}
	return domain.PersonTypeIndividual
}
