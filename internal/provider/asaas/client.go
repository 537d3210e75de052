package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/billingpulse/internal/clock"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
	"go.uber.org/zap"
)

const (
	ProviderName   = "asaas"
	defaultTimeout = 15 * time.Second
	userAgent      = "billingpulse/asaas-client"
)

type Factory struct {
	clock clock.Clock
	log   *zap.Logger
}

func NewFactory(clk clock.Clock, log *zap.Logger) *Factory {
	return &Factory{clock: clk, log: log}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewClient(cfg domain.ClientConfig) (domain.Client, error) {
	return New(cfg, f.clock, f.log)
}

// Client talks to the Asaas v3 REST API with a static access token.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	clock   clock.Clock
	loc     *time.Location
	log     *zap.Logger
}

func New(cfg domain.ClientConfig, clk clock.Clock, log *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, domain.ErrInvalidConfig
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, domain.ErrInvalidConfig
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		clock:   clk,
		loc:     loc,
		log:     log.Named("provider.asaas"),
	}, nil
}

type listResponse[T any] struct {
	HasMore    bool `json:"hasMore"`
	TotalCount int  `json:"totalCount"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Data       []T  `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

func (c *Client) ListCustomers(ctx context.Context, limit, offset int) (domain.CustomerList, error) {
	limit, offset = domain.NormalizePage(limit, offset, domain.DefaultListLimit)
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var resp listResponse[customerPayload]
	if err := c.doRequest(ctx, http.MethodGet, "/customers", query, nil, &resp); err != nil {
		return domain.CustomerList{}, err
	}

	customers := make([]domain.Customer, 0, len(resp.Data))
	for _, item := range resp.Data {
		customers = append(customers, item.toDomain())
	}
	return domain.CustomerList{
		Data:       customers,
		TotalCount: resp.TotalCount,
		HasMore:    resp.HasMore,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, domain.ErrNotFound
	}

	var resp customerPayload
	if err := c.doRequest(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return domain.Customer{}, err
	}
	if strings.TrimSpace(resp.ID) == "" {
		return domain.Customer{}, domain.ErrNotFound
	}
	return resp.toDomain(), nil
}

func (c *Client) CreateCustomer(ctx context.Context, input domain.CustomerInput) (domain.Customer, error) {
	if err := domain.ValidateCustomerInput(input); err != nil {
		return domain.Customer{}, err
	}

	body := createCustomerRequest{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.TrimSpace(input.Email),
		CpfCnpj: strings.TrimSpace(input.TaxID),
		Phone:   strings.TrimSpace(input.Phone),
	}
	var resp customerPayload
	if err := c.doRequest(ctx, http.MethodPost, "/customers", nil, body, &resp); err != nil {
		return domain.Customer{}, err
	}
	return resp.toDomain(), nil
}

func (c *Client) ListPayments(ctx context.Context, q domain.PaymentQuery) (domain.PaymentList, error) {
	limit, offset := domain.NormalizePage(q.Limit, q.Offset, domain.DefaultListLimit)
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}
	return c.listPayments(ctx, query, limit, offset)
}

func (c *Client) ListPaymentsInRange(ctx context.Context, from, to domain.Date, limit int) (domain.PaymentList, error) {
	limit, _ = domain.NormalizePage(limit, 0, domain.DefaultRangeLimit)
	if domain.EmptyRange(from, to) {
		return domain.PaymentList{Data: []domain.Payment{}, Limit: limit}, nil
	}

	query := url.Values{}
	if !from.IsZero() {
		query.Set("dateCreated[ge]", from.String())
	}
	if !to.IsZero() {
		query.Set("dateCreated[le]", to.String())
	}
	query.Set("limit", strconv.Itoa(limit))
	return c.listPayments(ctx, query, limit, 0)
}

func (c *Client) listPayments(ctx context.Context, query url.Values, limit, offset int) (domain.PaymentList, error) {
	var resp listResponse[paymentPayload]
	if err := c.doRequest(ctx, http.MethodGet, "/payments", query, nil, &resp); err != nil {
		return domain.PaymentList{}, err
	}

	payments := make([]domain.Payment, 0, len(resp.Data))
	for _, item := range resp.Data {
		payments = append(payments, item.toDomain())
	}
	return domain.PaymentList{
		Data:       payments,
		TotalCount: resp.TotalCount,
		HasMore:    resp.HasMore,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// CreatePayment provisions a real charge. Input is checked before any request
// and the call is never retried here.
func (c *Client) CreatePayment(ctx context.Context, input domain.PaymentInput) (domain.Payment, error) {
	if err := domain.ValidatePaymentInput(input, domain.DateOf(c.clock.Now().In(c.loc))); err != nil {
		return domain.Payment{}, err
	}

	body := createPaymentRequest{
		Customer:          strings.TrimSpace(input.CustomerID),
		BillingType:       string(input.BillingType),
		Value:             input.Value.Round(2).InexactFloat64(),
		DueDate:           input.DueDate.String(),
		Description:       strings.TrimSpace(input.Description),
		ExternalReference: strings.TrimSpace(input.ExternalReference),
	}
	var resp paymentPayload
	if err := c.doRequest(ctx, http.MethodPost, "/payments", nil, body, &resp); err != nil {
		return domain.Payment{}, err
	}
	return resp.toDomain(), nil
}

func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")
	var resp listResponse[customerPayload]
	return c.doRequest(ctx, http.MethodGet, "/customers", query, nil, &resp)
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body any,
	out any,
) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.statusError(method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", domain.ErrProviderUnavailable, method, path, err)
	}
	return nil
}

func (c *Client) statusError(method, path string, resp *http.Response) error {
	var payload errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest && method == http.MethodPost:
		vErr := &domain.ValidationError{}
		for _, item := range payload.Errors {
			vErr.Fields = append(vErr.Fields, domain.FieldError{
				Field:   "provider",
				Code:    strings.TrimSpace(item.Code),
				Message: strings.TrimSpace(item.Description),
			})
		}
		if len(vErr.Fields) == 0 {
			vErr.Fields = append(vErr.Fields, domain.FieldError{Field: "provider", Code: "invalid_request", Message: "rejected by provider"})
		}
		return vErr
	default:
		c.log.Warn("provider request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: %s %s returned %d", domain.ErrProviderUnavailable, method, path, resp.StatusCode)
	}
}
