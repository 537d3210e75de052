package service

import (
	"context"
	"sync"

	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
)

// fakeClient serves fixed records and lets tests fail individual operations.
type fakeClient struct {
	mu        sync.Mutex
	customers []provider.Customer
	payments  []provider.Payment
	fail      map[string]error
	created   []provider.PaymentInput
	queries   []provider.PaymentQuery
}

func newFakeClient() *fakeClient {
	return &fakeClient{fail: map[string]error{}}
}

func (f *fakeClient) err(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op]
}

func (f *fakeClient) ListCustomers(_ context.Context, limit, offset int) (provider.CustomerList, error) {
	if err := f.err("list_customers"); err != nil {
		return provider.CustomerList{}, err
	}
	limit, offset = provider.NormalizePage(limit, offset, provider.DefaultListLimit)
	data := page(f.customers, limit, offset)
	return provider.CustomerList{Data: data, TotalCount: len(f.customers), Limit: limit, Offset: offset}, nil
}

func (f *fakeClient) GetCustomer(_ context.Context, id string) (provider.Customer, error) {
	if err := f.err("get_customer"); err != nil {
		return provider.Customer{}, err
	}
	for _, c := range f.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return provider.Customer{}, provider.ErrNotFound
}

func (f *fakeClient) CreateCustomer(_ context.Context, input provider.CustomerInput) (provider.Customer, error) {
	if err := f.err("create_customer"); err != nil {
		return provider.Customer{}, err
	}
	return provider.Customer{ID: "cus_new", Name: input.Name, TaxID: input.TaxID}, nil
}

func (f *fakeClient) ListPayments(_ context.Context, q provider.PaymentQuery) (provider.PaymentList, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if err := f.err("list_payments:" + string(q.Status)); err != nil {
		return provider.PaymentList{}, err
	}
	limit, offset := provider.NormalizePage(q.Limit, q.Offset, provider.DefaultListLimit)
	var matched []provider.Payment
	for _, p := range f.payments {
		if q.Status == "" || p.Status == q.Status {
			matched = append(matched, p)
		}
	}
	return provider.PaymentList{Data: page(matched, limit, offset), TotalCount: len(matched), Limit: limit, Offset: offset}, nil
}

func (f *fakeClient) ListPaymentsInRange(_ context.Context, from, to provider.Date, limit int) (provider.PaymentList, error) {
	if err := f.err("list_payments_in_range"); err != nil {
		return provider.PaymentList{}, err
	}
	limit, _ = provider.NormalizePage(limit, 0, provider.DefaultRangeLimit)
	if provider.EmptyRange(from, to) {
		return provider.PaymentList{Data: []provider.Payment{}, Limit: limit}, nil
	}
	var matched []provider.Payment
	for _, p := range f.payments {
		if p.DateCreated.Before(from) || p.DateCreated.After(to) {
			continue
		}
		matched = append(matched, p)
	}
	return provider.PaymentList{Data: page(matched, limit, 0), TotalCount: len(matched), Limit: limit}, nil
}

func (f *fakeClient) CreatePayment(_ context.Context, input provider.PaymentInput) (provider.Payment, error) {
	f.mu.Lock()
	f.created = append(f.created, input)
	f.mu.Unlock()
	if err := f.err("create_payment"); err != nil {
		return provider.Payment{}, err
	}
	return provider.Payment{
		ID:          "pay_new",
		CustomerID:  input.CustomerID,
		Value:       input.Value,
		BillingType: input.BillingType,
		Status:      provider.StatusPending,
		DueDate:     input.DueDate,
		Description: input.Description,
	}, nil
}

func (f *fakeClient) Ping(context.Context) error {
	return f.err("ping")
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[offset:end]...)
}
