package domain

import (
	"context"

	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
)

// Service is the reporting surface over the billing provider. Read methods
// never fail; they report problems through ReportStatus. Write methods
// propagate provider errors unchanged.
type Service interface {
	GetDashboardStats(ctx context.Context) DashboardStats
	GetOverdueCustomers(ctx context.Context) OverdueCustomersResponse
	GetPeriodReport(ctx context.Context, from, to provider.Date) PeriodReport
	GetRecentActivities(ctx context.Context, limit int) RecentActivities
	CheckProviderStatus(ctx context.Context) ProviderStatus

	GenerateBoletoForCustomer(ctx context.Context, req BoletoRequest) (provider.Payment, error)
	CreateCustomer(ctx context.Context, input provider.CustomerInput) (provider.Customer, error)
}
