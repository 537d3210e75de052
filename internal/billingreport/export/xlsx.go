// Package export renders reports as downloadable documents.
package export

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/smallbiznis/billingpulse/internal/billingreport/aggregate"
	billingreport "github.com/smallbiznis/billingpulse/internal/billingreport/domain"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	summarySheet = "summary"
	statusSheet  = "by_status"
	monthSheet   = "by_month"
	billingSheet = "by_billing_type"
)

// PeriodReportXLSX renders a period report as a workbook with one summary sheet
// and one sheet per breakdown.
func PeriodReportXLSX(report billingreport.PeriodReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	for _, name := range []string{statusSheet, monthSheet, billingSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	stats := report.Stats
	summary := [][]any{
		{"Period report"},
		{},
		{"From", report.From.String()},
		{"To", report.To.String()},
		{"Payments", stats.PaymentCount},
		{"Total value", stats.TotalValue.Round(2).InexactFloat64()},
		{"Total revenue", stats.TotalRevenue.Round(2).InexactFloat64()},
		{"Average ticket", stats.AverageTicket.Round(2).InexactFloat64()},
		{"Conversion rate", stats.ConversionRate.Round(4).InexactFloat64()},
		{"Degraded", report.Degraded},
		{"Truncated", report.Truncated},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	statuses := make([]string, 0, len(stats.CountsByStatus))
	for status := range stats.CountsByStatus {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	rows := [][]any{{"Status", "Count", "Value"}}
	for _, status := range statuses {
		s := provider.PaymentStatus(status)
		rows = append(rows, []any{status, stats.CountsByStatus[s], stats.SumsByStatus[s].Round(2).InexactFloat64()})
	}
	if err := writeRows(f, statusSheet, rows); err != nil {
		return nil, err
	}

	rows = [][]any{{"Month", "Revenue"}}
	for _, month := range aggregate.SortedMonths(stats) {
		rows = append(rows, []any{month, stats.RevenueByMonth[month].Round(2).InexactFloat64()})
	}
	if err := writeRows(f, monthSheet, rows); err != nil {
		return nil, err
	}

	types := make([]string, 0, len(stats.CountsByBillingType))
	for billingType := range stats.CountsByBillingType {
		types = append(types, string(billingType))
	}
	sort.Strings(types)
	rows = [][]any{{"Billing type", "Count"}}
	for _, billingType := range types {
		rows = append(rows, []any{billingType, stats.CountsByBillingType[provider.BillingType(billingType)]})
	}
	if err := writeRows(f, billingSheet, rows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
