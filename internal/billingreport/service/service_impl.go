package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billingpulse/internal/billingreport/aggregate"
	billingreport "github.com/smallbiznis/billingpulse/internal/billingreport/domain"
	"github.com/smallbiznis/billingpulse/internal/billingreport/overdue"
	"github.com/smallbiznis/billingpulse/internal/clock"
	"github.com/smallbiznis/billingpulse/internal/config"
	obslogger "github.com/smallbiznis/billingpulse/internal/observability/logger"
	"github.com/smallbiznis/billingpulse/internal/observability/metrics"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const pingTimeout = 5 * time.Second

type Params struct {
	fx.In

	Client        provider.Client
	Clock         clock.Clock
	Config        config.Config
	Reports       *config.ReportConfigHolder
	Metrics       *metrics.Metrics       `optional:"true"`
	ReportMetrics *metrics.ReportMetrics `optional:"true"`
	Log           *zap.Logger
}

type Service struct {
	client        provider.Client
	clock         clock.Clock
	loc           *time.Location
	providerName  string
	reports       *config.ReportConfigHolder
	metrics       *metrics.Metrics
	reportMetrics *metrics.ReportMetrics
	log           *zap.Logger
}

func NewService(p Params) billingreport.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		client:        p.Client,
		clock:         clk,
		loc:           p.Config.Location(),
		providerName:  p.Config.Provider.Name,
		reports:       p.Reports,
		metrics:       p.Metrics,
		reportMetrics: p.ReportMetrics,
		log:           p.Log.Named("billingreport.service"),
	}
}

// today is the current calendar date in the reporting timezone.
func (s *Service) today() provider.Date {
	return provider.DateOf(s.clock.Now().In(s.loc))
}

func (s *Service) GetDashboardStats(ctx context.Context) billingreport.DashboardStats {
	cfg := s.reports.Get()
	today := s.today()
	from := today.AddDays(-cfg.WindowDays)
	prevTo := from.AddDays(-1)
	prevFrom := prevTo.AddDays(-cfg.WindowDays)

	var (
		customers provider.CustomerList
		pending   provider.PaymentList
		received  provider.PaymentList
		window    provider.PaymentList
		previous  provider.PaymentList
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		customers, err = s.client.ListCustomers(gctx, cfg.PageSize, 0)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.client.ListPayments(gctx, provider.PaymentQuery{Limit: cfg.PageSize, Status: provider.StatusPending})
		return err
	})
	g.Go(func() (err error) {
		received, err = s.client.ListPayments(gctx, provider.PaymentQuery{Limit: cfg.PageSize, Status: provider.StatusReceived})
		return err
	})
	g.Go(func() (err error) {
		window, err = s.client.ListPaymentsInRange(gctx, from, today, cfg.PageSize)
		return err
	})
	g.Go(func() (err error) {
		previous, err = s.client.ListPaymentsInRange(gctx, prevFrom, prevTo, cfg.PageSize)
		return err
	})
	if err := g.Wait(); err != nil {
		s.degraded(ctx, metrics.ReportDashboard, err)
		stats := zeroDashboard()
		stats.Degraded = true
		return stats
	}

	currentRevenue := aggregate.Aggregate(window.Data).TotalRevenue
	previousRevenue := aggregate.TotalRevenue(previous.Data)

	stats := billingreport.DashboardStats{
		TotalCustomers:   customers.TotalCount,
		TotalRevenue:     currentRevenue,
		PendingPayments:  pending.TotalCount,
		ReceivedPayments: received.TotalCount,
		MonthlyGrowth: billingreport.MonthlyGrowth{
			Customers: aggregate.Growth(
				countCreated(customers.Data, from, today),
				countCreated(customers.Data, prevFrom, prevTo),
			),
			Revenue: aggregate.Growth(currentRevenue, previousRevenue),
			PendingPayments: aggregate.Growth(
				decimal.NewFromInt(int64(aggregate.CountStatus(window.Data, provider.StatusPending))),
				decimal.NewFromInt(int64(aggregate.CountStatus(previous.Data, provider.StatusPending))),
			),
			ReceivedPayments: aggregate.Growth(
				decimal.NewFromInt(int64(aggregate.CountStatus(window.Data, provider.StatusReceived))),
				decimal.NewFromInt(int64(aggregate.CountStatus(previous.Data, provider.StatusReceived))),
			),
		},
	}
	stats.Truncated = customers.Truncated() || window.Truncated() || previous.Truncated()
	s.served(ctx, metrics.ReportDashboard, stats.ReportStatus)
	return stats
}

func (s *Service) GetOverdueCustomers(ctx context.Context) billingreport.OverdueCustomersResponse {
	cfg := s.reports.Get()
	empty := billingreport.OverdueCustomersResponse{Data: []billingreport.OverdueEntry{}}

	list, err := s.client.ListPayments(ctx, provider.PaymentQuery{Limit: cfg.PageSize, Status: provider.StatusOverdue})
	if err != nil {
		s.degraded(ctx, metrics.ReportOverdue, err)
		empty.Degraded = true
		return empty
	}

	resolver := overdue.NewResolver(s.client, overdue.Options{
		Concurrency: cfg.OverdueConcurrency,
		Bucket:      cfg.BucketFor,
	}, s.reportMetrics)
	entries, err := resolver.Resolve(ctx, list.Data, s.today())
	if err != nil {
		s.degraded(ctx, metrics.ReportOverdue, err)
		empty.Degraded = true
		return empty
	}

	for _, entry := range entries {
		s.metrics.RecordOverdueValue(ctx, entry.AgingBucket, entry.OverdueTotal.InexactFloat64())
	}
	resp := billingreport.OverdueCustomersResponse{
		Data:       entries,
		TotalCount: len(entries),
	}
	resp.Truncated = list.Truncated()
	s.served(ctx, metrics.ReportOverdue, resp.ReportStatus)
	return resp
}

func (s *Service) GetPeriodReport(ctx context.Context, from, to provider.Date) billingreport.PeriodReport {
	cfg := s.reports.Get()
	report := billingreport.PeriodReport{From: from, To: to}

	list, err := s.client.ListPaymentsInRange(ctx, from, to, cfg.PageSize)
	if err != nil {
		s.degraded(ctx, metrics.ReportPeriod, err)
		report.Stats = aggregate.Aggregate(nil)
		report.Degraded = true
		return report
	}

	report.Stats = aggregate.Aggregate(list.Data)
	report.Truncated = list.Truncated()
	s.served(ctx, metrics.ReportPeriod, report.ReportStatus)
	return report
}

func (s *Service) GetRecentActivities(ctx context.Context, limit int) billingreport.RecentActivities {
	if limit <= 0 {
		limit = s.reports.Get().RecentActivityLimit
	}

	list, err := s.client.ListPayments(ctx, provider.PaymentQuery{Limit: limit})
	if err != nil {
		s.degraded(ctx, metrics.ReportActivity, err)
		return billingreport.RecentActivities{
			Data:         []provider.Payment{},
			ReportStatus: billingreport.ReportStatus{Degraded: true},
		}
	}

	payments := append([]provider.Payment(nil), list.Data...)
	if payments == nil {
		payments = []provider.Payment{}
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].DateCreated.After(payments[j].DateCreated)
	})
	s.served(ctx, metrics.ReportActivity, billingreport.ReportStatus{})
	return billingreport.RecentActivities{Data: payments}
}

func (s *Service) CheckProviderStatus(ctx context.Context) billingreport.ProviderStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := billingreport.ProviderStatus{Provider: s.providerName}
	if err := s.client.Ping(ctx); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("provider unreachable", zap.Error(err))
		return status
	}
	status.Reachable = true
	return status
}

// GenerateBoletoForCustomer issues exactly one BOLETO charge. It is never retried.
func (s *Service) GenerateBoletoForCustomer(ctx context.Context, req billingreport.BoletoRequest) (provider.Payment, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = billingreport.DefaultBoletoDescription
	}
	input := provider.PaymentInput{
		CustomerID:  strings.TrimSpace(req.CustomerID),
		BillingType: provider.BillingTypeBoleto,
		Value:       req.Value,
		DueDate:     req.DueDate,
		Description: description,
	}
	if err := provider.ValidatePaymentInput(input, s.today()); err != nil {
		return provider.Payment{}, err
	}

	payment, err := s.client.CreatePayment(ctx, input)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Warn("boleto generation failed",
			zap.String("customer_id", input.CustomerID),
			zap.Error(err),
		)
		return provider.Payment{}, err
	}

	s.metrics.RecordBoleto(ctx, s.providerName)
	obslogger.WithContext(ctx, s.log).Info("boleto generated",
		zap.String("customer_id", input.CustomerID),
		zap.String("payment_id", payment.ID),
	)
	return payment, nil
}

func (s *Service) CreateCustomer(ctx context.Context, input provider.CustomerInput) (provider.Customer, error) {
	if err := provider.ValidateCustomerInput(input); err != nil {
		return provider.Customer{}, err
	}
	customer, err := s.client.CreateCustomer(ctx, input)
	if err != nil {
		return provider.Customer{}, err
	}
	obslogger.WithContext(ctx, s.log).Info("customer created", zap.String("customer_id", customer.ID))
	return customer, nil
}

func (s *Service) degraded(ctx context.Context, report string, err error) {
	obslogger.WithContext(ctx, s.log).Warn("report degraded",
		zap.String("report", report),
		zap.String("outcome", metrics.ClassifyProviderError(err)),
		zap.Error(err),
	)
	s.reportMetrics.IncDegraded(report)
	s.metrics.RecordReport(ctx, report, "degraded")
}

func (s *Service) served(ctx context.Context, report string, status billingreport.ReportStatus) {
	outcome := "ok"
	if status.Truncated {
		outcome = "truncated"
		s.reportMetrics.IncTruncated(report)
	}
	s.metrics.RecordReport(ctx, report, outcome)
}

func zeroDashboard() billingreport.DashboardStats {
	return billingreport.DashboardStats{
		TotalRevenue: decimal.Zero,
		MonthlyGrowth: billingreport.MonthlyGrowth{
			Customers:        decimal.Zero,
			Revenue:          decimal.Zero,
			PendingPayments:  decimal.Zero,
			ReceivedPayments: decimal.Zero,
		},
	}
}

func countCreated(customers []provider.Customer, from, to provider.Date) decimal.Decimal {
	n := 0
	for _, c := range customers {
		if c.DateCreated.IsZero() || c.DateCreated.Before(from) || c.DateCreated.After(to) {
			continue
		}
		n++
	}
	return decimal.NewFromInt(int64(n))
}
