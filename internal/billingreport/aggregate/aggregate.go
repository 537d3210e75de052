// Package aggregate reduces a payment set to period statistics. Everything
// here is pure: identical input yields identical output and nothing does I/O.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"
	billingreport "github.com/smallbiznis/billingpulse/internal/billingreport/domain"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
)

// Aggregate computes PeriodStats over payments. Only RECEIVED payments count
// as revenue; revenue months use the payment date, falling back to creation.
// An undated payment counts as revenue but lands in no month.
func Aggregate(payments []provider.Payment) billingreport.PeriodStats {
	stats := billingreport.PeriodStats{
		TotalValue:          decimal.Zero,
		TotalRevenue:        decimal.Zero,
		AverageTicket:       decimal.Zero,
		ConversionRate:      decimal.Zero,
		CountsByStatus:      map[provider.PaymentStatus]int{},
		SumsByStatus:        map[provider.PaymentStatus]decimal.Decimal{},
		CountsByBillingType: map[provider.BillingType]int{},
		RevenueByMonth:      map[string]decimal.Decimal{},
	}

	for _, p := range payments {
		stats.PaymentCount++
		stats.TotalValue = stats.TotalValue.Add(p.Value)
		stats.CountsByStatus[p.Status]++
		stats.SumsByStatus[p.Status] = sumOrZero(stats.SumsByStatus, p.Status).Add(p.Value)
		stats.CountsByBillingType[p.BillingType]++

		if p.Status == provider.StatusReceived {
			stats.TotalRevenue = stats.TotalRevenue.Add(p.Value)
			if settled := p.SettledOn(); !settled.IsZero() {
				month := settled.MonthKey()
				stats.RevenueByMonth[month] = sumOrZero(stats.RevenueByMonth, month).Add(p.Value)
			}
		}
	}

	if stats.PaymentCount > 0 {
		count := decimal.NewFromInt(int64(stats.PaymentCount))
		stats.AverageTicket = stats.TotalValue.Div(count)
		stats.ConversionRate = decimal.NewFromInt(int64(stats.CountsByStatus[provider.StatusReceived])).Div(count)
	}
	return stats
}

// TotalRevenue sums the value of RECEIVED payments.
func TotalRevenue(payments []provider.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == provider.StatusReceived {
			total = total.Add(p.Value)
		}
	}
	return total
}

// CountStatus counts payments carrying status.
func CountStatus(payments []provider.Payment, status provider.PaymentStatus) int {
	n := 0
	for _, p := range payments {
		if p.Status == status {
			n++
		}
	}
	return n
}

// SortedMonths returns the revenue months in chronological order.
func SortedMonths(stats billingreport.PeriodStats) []string {
	months := make([]string, 0, len(stats.RevenueByMonth))
	for month := range stats.RevenueByMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	return months
}

// Growth returns (current-previous)/previous as a percentage rounded to two
// places, or zero when there is no previous baseline.
func Growth(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
}

func sumOrZero[K comparable](m map[K]decimal.Decimal, key K) decimal.Decimal {
	if v, ok := m[key]; ok {
		return v
	}
	return decimal.Zero
}
