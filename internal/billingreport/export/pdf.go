package export

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	billingreport "github.com/smallbiznis/billingpulse/internal/billingreport/domain"
)

const PDFContentType = "application/pdf"

// OverdueReportPDF renders the ranked overdue customers as a single table.
func OverdueReportPDF(resp billingreport.OverdueCustomersResponse, generatedAt time.Time) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Overdue customers", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Generated "+generatedAt.Format("2006-01-02 15:04"), props.Text{
			Size:  9,
			Align: align.Right,
			Top:   4,
		}),
	)

	total := decimal.Zero
	for _, entry := range resp.Data {
		total = total.Add(entry.OverdueTotal)
	}
	m.AddRow(12,
		col.New(12).Add(
			text.New(fmt.Sprintf("Customers: %d", resp.TotalCount), props.Text{Size: 10}),
			text.New("Overdue total: "+money(total), props.Text{Size: 10, Top: 5}),
		),
	)
	if resp.Degraded {
		m.AddRow(8, text.NewCol(12, "Provider data unavailable, figures are incomplete.", props.Text{Size: 9, Style: fontstyle.Italic}))
	} else if resp.Truncated {
		m.AddRow(8, text.NewCol(12, "More overdue payments exist than were fetched.", props.Text{Size: 9, Style: fontstyle.Italic}))
	}

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(4, "Customer", header),
		text.NewCol(2, "Due date", header),
		text.NewCol(1, "Days", headerRight),
		text.NewCol(1, "Count", headerRight),
		text.NewCol(2, "Overdue total", headerRight),
		text.NewCol(2, "Bucket", headerRight),
	)

	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	for _, entry := range resp.Data {
		name := entry.Customer.Name
		if name == "" {
			name = entry.Customer.ID
		}
		m.AddRow(8,
			text.NewCol(4, name, cell),
			text.NewCol(2, entry.Payment.DueDate.String(), cell),
			text.NewCol(1, fmt.Sprintf("%d", entry.DaysOverdue), cellRight),
			text.NewCol(1, fmt.Sprintf("%d", entry.OverduePayments), cellRight),
			text.NewCol(2, money(entry.OverdueTotal), cellRight),
			text.NewCol(2, entry.AgingBucket, cellRight),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func money(v decimal.Decimal) string {
	return "R$ " + v.StringFixed(2)
}
