package overdue

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	billingreport "github.com/smallbiznis/billingpulse/internal/billingreport/domain"
	"github.com/smallbiznis/billingpulse/internal/observability/metrics"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 8

type Options struct {
	// Concurrency bounds in-flight customer lookups.
	Concurrency int
	// Bucket labels an entry by its days overdue. Optional.
	Bucket func(days int) string
}

// Resolver joins overdue payments to their customers and keeps the worst
// payment per customer. Lookups are deduplicated within one Resolve call only.
type Resolver struct {
	client  provider.Client
	opts    Options
	metrics *metrics.ReportMetrics
}

func NewResolver(client provider.Client, opts Options, m *metrics.ReportMetrics) *Resolver {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Resolver{client: client, opts: opts, metrics: m}
}

type candidate struct {
	customerID string
	worst      provider.Payment
	days       int
	count      int
	total      decimal.Decimal
}

// Resolve returns one entry per distinct customer ordered by days overdue,
// descending, with ties kept in the customer's first-seen order. Any failed
// lookup fails the whole call; no partial list is returned.
func (r *Resolver) Resolve(ctx context.Context, payments []provider.Payment, today provider.Date) ([]billingreport.OverdueEntry, error) {
	index := map[string]int{}
	candidates := make([]*candidate, 0)

	for _, p := range payments {
		days := today.DaysSince(p.DueDate)
		i, seen := index[p.CustomerID]
		if !seen {
			index[p.CustomerID] = len(candidates)
			candidates = append(candidates, &candidate{
				customerID: p.CustomerID,
				worst:      p,
				days:       days,
				count:      1,
				total:      p.Value,
			})
			continue
		}
		c := candidates[i]
		c.count++
		c.total = c.total.Add(p.Value)
		if days > c.days {
			c.worst = p
			c.days = days
		}
	}
	if len(candidates) == 0 {
		return []billingreport.OverdueEntry{}, nil
	}

	customers := make([]provider.Customer, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			customer, err := r.client.GetCustomer(gctx, c.customerID)
			if err != nil {
				return fmt.Errorf("resolve customer %s: %w", c.customerID, err)
			}
			customers[i] = customer
			return nil
		})
	}
	err := g.Wait()
	r.metrics.AddCustomerLookups(len(candidates))
	if err != nil {
		return nil, err
	}

	entries := make([]billingreport.OverdueEntry, 0, len(candidates))
	for i, c := range candidates {
		entry := billingreport.OverdueEntry{
			Customer:        customers[i],
			Payment:         c.worst,
			DaysOverdue:     c.days,
			OverduePayments: c.count,
			OverdueTotal:    c.total,
		}
		if r.opts.Bucket != nil {
			entry.AgingBucket = r.opts.Bucket(c.days)
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].DaysOverdue > entries[b].DaysOverdue
	})
	return entries, nil
}
