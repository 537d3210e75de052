package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/billingpulse/internal/billingreport/export"
	"github.com/smallbiznis/billingpulse/internal/billingreport/service"
	"github.com/smallbiznis/billingpulse/internal/clock"
	"github.com/smallbiznis/billingpulse/internal/config"
	"github.com/smallbiznis/billingpulse/internal/observability"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
	"github.com/smallbiznis/billingpulse/internal/provider/sandbox"
	"github.com/smallbiznis/billingpulse/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testNow = time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC)

// memoryGuard is an in-process stand-in for the redis guard.
type memoryGuard struct {
	mu   sync.Mutex
	held map[string]string
	fail error
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{held: map[string]string{}}
}

func (g *memoryGuard) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return "", false, g.fail
	}
	if _, ok := g.held[key]; ok {
		return "", false, nil
	}
	token := fmt.Sprintf("tok-%d", len(g.held)+1)
	g.held[key] = token
	return token, true, nil
}

func (g *memoryGuard) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] == token {
		delete(g.held, key)
	}
	return nil
}

func (g *memoryGuard) holds(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}

type testEnv struct {
	engine *gin.Engine
	guard  *memoryGuard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithClient(t, nil)
}

// newTestEnvWithClient lets a test decorate the seeded sandbox client.
func newTestEnvWithClient(t *testing.T, wrap func(provider.Client) provider.Client) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(testNow)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	factory := sandbox.NewFactory(db.Config{Type: db.TypeSQLite, Path: "file::memory:"}, true, node, clk, time.UTC, log)
	client, err := factory.NewClient(provider.ClientConfig{})
	require.NoError(t, err)
	if wrap != nil {
		client = wrap(client)
	}

	cfg := config.Config{
		Timezone: "UTC",
		Provider: config.ProviderConfig{Name: config.ProviderSandbox},
		Redis:    config.RedisConfig{IdempotencyTTL: time.Minute},
	}
	reports := service.NewService(service.Params{
		Client:  client,
		Clock:   clk,
		Config:  cfg,
		Reports: config.NewStaticReportConfigHolder(config.DefaultReportConfig()),
		Log:     log,
	})

	guard := newMemoryGuard()
	engine := NewEngine(observability.Config{Environment: "test"}, nil)
	NewServer(ServerParams{
		Gin:     engine,
		Cfg:     cfg,
		Reports: reports,
		Client:  client,
		Guard:   guard,
		Clock:   clk,
		Log:     log,
	})
	return &testEnv{engine: engine, guard: guard}
}

func (e *testEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return errBody["type"].(string)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/billing/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorType(t, rec))
}

func TestProviderStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/billing/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, true, data["reachable"])
	assert.Equal(t, "sandbox", data["provider"])
}

func TestDashboardStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/billing/dashboard-stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(6), data["total_customers"])
	assert.Equal(t, float64(3), data["pending_payments"])
	assert.Equal(t, false, data["degraded"])
	assert.Contains(t, data, "monthly_growth")
}

func TestCustomersEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/billing/customers?limit=2&offset=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.Len(t, list["data"], 2)
	assert.Equal(t, float64(6), list["total_count"])
	assert.Equal(t, true, list["has_more"])

	rec = env.do(http.MethodGet, "/api/billing/customers/cus_000000000103", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	customer := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "ORGANIZATION", customer["person_type"])

	rec = env.do(http.MethodGet, "/api/billing/customers/cus_missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorType(t, rec))
}

func TestCreateCustomerEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/billing/customers", map[string]any{
		"name":    "Mercado Boa Vista",
		"email":   "contato@boavista.example.com",
		"cpfCnpj": "60701190000104",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)["data"].(map[string]any)
	assert.True(t, strings.HasPrefix(created["id"].(string), "cus_"))

	rec = env.do(http.MethodPost, "/api/billing/customers", map[string]any{"email": "not-an-email"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode(t, rec)["error"].(map[string]any)
	assert.Equal(t, "validation_error", errBody["type"])
	assert.NotEmpty(t, errBody["errors"])
}

func TestListPaymentsRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/billing/payments?status=lost", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/billing/payments?status=overdue", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["total_count"])
}

func TestListPaymentsInRangeEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/billing/payments/date-range?dateFrom=2024-02-14&dateTo=2024-03-15", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(8), decode(t, rec)["total_count"])

	rec = env.do(http.MethodGet, "/api/billing/payments/date-range?dateFrom=2024-03-15&dateTo=2024-02-14", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["total_count"])

	rec = env.do(http.MethodGet, "/api/billing/payments/date-range?dateFrom=2024-02-14", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/billing/payments/date-range?dateFrom=yesterday&dateTo=2024-03-15", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverdueCustomersEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/billing/overdue-customers", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total_count"])
	entries := body["data"].([]any)
	first := entries[0].(map[string]any)
	assert.Equal(t, "cus_000000000103", first["customer"].(map[string]any)["id"])
	assert.Equal(t, float64(42), first["days_overdue"])
	assert.Equal(t, float64(2), first["overdue_payments"])
	assert.Equal(t, "31-60", first["aging_bucket"])
	second := entries[1].(map[string]any)
	assert.Equal(t, float64(21), second["days_overdue"])
}

func TestPeriodReportEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/billing/reports/period", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/billing/reports/period?dateFrom=2024-02-14&dateTo=2024-03-15", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "2024-02-14", body["date_from"])
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(8), stats["payment_count"])
}

func TestExports(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/billing/reports/period/export.xlsx?dateFrom=2024-02-14&dateTo=2024-03-15", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "period-report-2024-02-14-2024-03-15.xlsx")
	assert.NotZero(t, rec.Body.Len())

	rec = env.do(http.MethodGet, "/api/billing/overdue-customers/export.pdf", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.PDFContentType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestRecentActivitiesEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/billing/recent-activities?limit=3", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].([]any)
	require.Len(t, data, 3)
	assert.Equal(t, "pay_000000001011", data[0].(map[string]any)["id"])

	rec = env.do(http.MethodGet, "/api/billing/recent-activities?limit=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/billing/payments", map[string]any{
		"customer":    "cus_000000000101",
		"billingType": "pix",
		"value":       "89.90",
		"dueDate":     "2024-03-20",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payment := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "PIX", payment["billing_type"])
	assert.Equal(t, "PENDING", payment["status"])

	rec = env.do(http.MethodPost, "/api/billing/payments", map[string]any{
		"customer":    "cus_000000000101",
		"billingType": "CHEQUE",
		"value":       "89.90",
		"dueDate":     "2024-03-20",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateBoleto(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{
		"customerId": "cus_000000000104",
		"value":      "249.00",
		"dueDate":    "2024-03-22",
	}
	headers := map[string]string{IdempotencyKeyHeader: "boleto-104-march"}

	rec := env.do(http.MethodPost, "/api/billing/generate-boleto", body, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payment := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "BOLETO", payment["billing_type"])
	assert.Equal(t, "Nova cobrança gerada via sistema", payment["description"])
	assert.NotEmpty(t, payment["bank_slip_url"])

	rec = env.do(http.MethodPost, "/api/billing/generate-boleto", body, headers)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorType(t, rec))

	rec = env.do(http.MethodGet, "/api/billing/payments?status=PENDING", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), decode(t, rec)["total_count"], "only one charge issued")
}

func TestGenerateBoletoValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/billing/generate-boleto", map[string]any{
		"customerId": "cus_000000000104",
		"value":      "249.00",
		"dueDate":    "2024-03-01",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode(t, rec)["error"].(map[string]any)
	fields := errBody["errors"].([]any)
	assert.Equal(t, "due_date", fields[0].(map[string]any)["field"])
}

func TestGenerateBoletoReleasesKeyOnFailure(t *testing.T) {
	env := newTestEnv(t)
	headers := map[string]string{IdempotencyKeyHeader: "boleto-unknown"}

	rec := env.do(http.MethodPost, "/api/billing/generate-boleto", map[string]any{
		"customerId": "cus_unknown",
		"value":      "10.00",
		"dueDate":    "2024-03-22",
	}, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.guard.holds("boleto-unknown"))
}

// chargeThenTimeout creates the charge and then reports a deadline, as a
// provider does when the response is lost after the payment was persisted.
type chargeThenTimeout struct {
	provider.Client

	mu      sync.Mutex
	charges int
}

func (c *chargeThenTimeout) CreatePayment(ctx context.Context, input provider.PaymentInput) (provider.Payment, error) {
	if _, err := c.Client.CreatePayment(ctx, input); err != nil {
		return provider.Payment{}, err
	}
	c.mu.Lock()
	c.charges++
	c.mu.Unlock()
	return provider.Payment{}, fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, context.DeadlineExceeded)
}

func (c *chargeThenTimeout) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.charges
}

func TestGenerateBoletoKeepsKeyWhenOutcomeUnknown(t *testing.T) {
	var flaky *chargeThenTimeout
	env := newTestEnvWithClient(t, func(next provider.Client) provider.Client {
		flaky = &chargeThenTimeout{Client: next}
		return flaky
	})
	body := map[string]any{
		"customerId": "cus_000000000104",
		"value":      "249.00",
		"dueDate":    "2024-03-22",
	}
	headers := map[string]string{IdempotencyKeyHeader: "same-user-action"}

	rec := env.do(http.MethodPost, "/api/billing/generate-boleto", body, headers)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.True(t, env.guard.holds("same-user-action"))

	rec = env.do(http.MethodPost, "/api/billing/generate-boleto", body, headers)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, flaky.count())
}

func TestRejectedBeforeCharge(t *testing.T) {
	assert.True(t, rejectedBeforeCharge(provider.NewValidationError("value", "invalid_value", "bad")))
	assert.True(t, rejectedBeforeCharge(fmt.Errorf("get customer: %w", provider.ErrNotFound)))
	assert.False(t, rejectedBeforeCharge(fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, context.DeadlineExceeded)))
	assert.False(t, rejectedBeforeCharge(context.Canceled))
	assert.False(t, rejectedBeforeCharge(fmt.Errorf("boom")))
}

func TestGenerateBoletoGuardUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.guard.fail = fmt.Errorf("dial tcp: connection refused")

	rec := env.do(http.MethodPost, "/api/billing/generate-boleto", map[string]any{
		"customerId": "cus_000000000104",
		"value":      "10.00",
		"dueDate":    "2024-03-22",
	}, map[string]string{IdempotencyKeyHeader: "k"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{fmt.Errorf("list payments: %w", provider.ErrProviderUnavailable), http.StatusBadGateway, "provider_unavailable"},
		{provider.ErrNotFound, http.StatusNotFound, "not_found"},
		{provider.NewValidationError("value", "invalid_value", "bad"), http.StatusBadRequest, "validation_error"},
		{ErrConflict, http.StatusConflict, "conflict"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}
}
