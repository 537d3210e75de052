package provider

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	obscontext "github.com/smallbiznis/billingpulse/internal/observability/context"
	"github.com/smallbiznis/billingpulse/internal/observability/metrics"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	domain.Client
	pingErr error
	lastCtx context.Context
}

func (s *stubClient) Ping(ctx context.Context) error {
	s.lastCtx = ctx
	return s.pingErr
}

func (s *stubClient) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	if id == "missing" {
		return domain.Customer{}, domain.ErrNotFound
	}
	return domain.Customer{ID: id}, nil
}

type stubFactory struct {
	name   string
	client domain.Client
	cfg    domain.ClientConfig
}

func (f *stubFactory) Provider() string { return f.name }

func (f *stubFactory) NewClient(cfg domain.ClientConfig) (domain.Client, error) {
	f.cfg = cfg
	return f.client, nil
}

func TestRegistryResolvesCaseInsensitively(t *testing.T) {
	client := &stubClient{}
	factory := &stubFactory{name: " Asaas ", client: client}
	registry := NewRegistry(nil, factory, &stubFactory{name: ""})

	assert.True(t, registry.ProviderExists("ASAAS"))
	assert.False(t, registry.ProviderExists("stripe"))

	got, err := registry.NewClient("asaas", domain.ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Same(t, client, got)
	assert.Equal(t, "k", factory.cfg.APIKey)

	_, err = registry.NewClient("stripe", domain.ClientConfig{})
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)

	var nilRegistry *Registry
	_, err = nilRegistry.NewClient("asaas", domain.ClientConfig{})
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestInstrumentedRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewReportMetrics(reg, metrics.Config{Environment: "test"})
	next := &stubClient{pingErr: domain.ErrProviderUnavailable}
	client := NewInstrumented(next, "asaas", m)

	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	require.NotNil(t, next.lastCtx)
	assert.Equal(t, "asaas", obscontext.ProviderFromContext(next.lastCtx))

	_, err = client.GetCustomer(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	customer, err := client.GetCustomer(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", customer.ID)

	// ping/unavailable, get_customer/not_found, get_customer/ok
	count, err := testutil.GatherAndCount(reg, "billingpulse_provider_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
