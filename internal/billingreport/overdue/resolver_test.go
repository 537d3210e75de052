package overdue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCustomers struct {
	provider.Client

	mu       sync.Mutex
	calls    map[string]int
	fail     map[string]error
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{calls: map[string]int{}, fail: map[string]error{}}
}

func (f *fakeCustomers) GetCustomer(ctx context.Context, id string) (provider.Customer, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls[id]++
	err := f.fail[id]
	f.mu.Unlock()
	if err != nil {
		return provider.Customer{}, err
	}
	return provider.Customer{ID: id, Name: "Customer " + id}, nil
}

var today = provider.NewDate(2024, 3, 15)

func overduePayment(id, customerID string, daysAgo int, value string) provider.Payment {
	return provider.Payment{
		ID:         id,
		CustomerID: customerID,
		Value:      decimal.RequireFromString(value),
		Status:     provider.StatusOverdue,
		DueDate:    today.AddDays(-daysAgo),
	}
}

func TestResolveKeepsWorstPaymentPerCustomer(t *testing.T) {
	client := newFakeCustomers()
	resolver := NewResolver(client, Options{}, nil)

	entries, err := resolver.Resolve(context.Background(), []provider.Payment{
		overduePayment("p1", "C1", 10, "100"),
		overduePayment("p2", "C1", 25, "50.5"),
	}, today)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "C1", entry.Customer.ID)
	assert.Equal(t, "p2", entry.Payment.ID)
	assert.Equal(t, 25, entry.DaysOverdue)
	assert.Equal(t, 2, entry.OverduePayments)
	assert.True(t, entry.OverdueTotal.Equal(decimal.RequireFromString("150.5")))
	assert.Equal(t, 1, client.calls["C1"])
}

func TestResolveOrdersByDaysOverdueThenFirstSeen(t *testing.T) {
	client := newFakeCustomers()
	resolver := NewResolver(client, Options{Concurrency: 2, Bucket: func(days int) string {
		if days > 30 {
			return "31+"
		}
		return "0-30"
	}}, nil)

	entries, err := resolver.Resolve(context.Background(), []provider.Payment{
		overduePayment("p1", "A", 5, "10"),
		overduePayment("p2", "B", 40, "10"),
		overduePayment("p3", "C", 5, "10"),
		overduePayment("p4", "D", 12, "10"),
		overduePayment("p5", "A", 5, "10"),
		overduePayment("p6", "E", 5, "10"),
	}, today)
	require.NoError(t, err)

	ids := make([]string, 0, len(entries))
	for i, e := range entries {
		ids = append(ids, e.Customer.ID)
		if i > 0 {
			assert.LessOrEqual(t, e.DaysOverdue, entries[i-1].DaysOverdue)
		}
	}
	assert.Equal(t, []string{"B", "D", "A", "C", "E"}, ids)
	assert.Equal(t, "p1", entries[2].Payment.ID, "tie keeps the first payment seen")
	assert.Equal(t, "31+", entries[0].AgingBucket)
	assert.Equal(t, "0-30", entries[1].AgingBucket)
}

func TestResolveDueTodayIsZeroDays(t *testing.T) {
	resolver := NewResolver(newFakeCustomers(), Options{}, nil)

	entries, err := resolver.Resolve(context.Background(), []provider.Payment{
		overduePayment("p1", "C1", 0, "10"),
	}, today)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].DaysOverdue)
}

func TestResolveEmptyInput(t *testing.T) {
	client := newFakeCustomers()
	entries, err := NewResolver(client, Options{}, nil).Resolve(context.Background(), nil, today)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.Empty(t, client.calls)
}

func TestResolveFailsClosed(t *testing.T) {
	client := newFakeCustomers()
	client.fail["C2"] = provider.ErrNotFound
	resolver := NewResolver(client, Options{}, nil)

	entries, err := resolver.Resolve(context.Background(), []provider.Payment{
		overduePayment("p1", "C1", 3, "10"),
		overduePayment("p2", "C2", 9, "10"),
	}, today)
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrNotFound))
	assert.Nil(t, entries)
}

func TestResolveDedupesAndBoundsConcurrency(t *testing.T) {
	client := newFakeCustomers()
	client.delay = 5 * time.Millisecond
	resolver := NewResolver(client, Options{Concurrency: 3}, nil)

	payments := make([]provider.Payment, 0, 40)
	for i := 0; i < 40; i++ {
		payments = append(payments, overduePayment(fmt.Sprintf("p%d", i), fmt.Sprintf("C%d", i%10), i, "1"))
	}

	entries, err := resolver.Resolve(context.Background(), payments, today)
	require.NoError(t, err)
	assert.Len(t, entries, 10)
	for id, n := range client.calls {
		assert.Equal(t, 1, n, "customer %s looked up more than once", id)
	}
	assert.LessOrEqual(t, client.peak.Load(), int32(3))
}
