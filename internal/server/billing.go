package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	billingreport "github.com/smallbiznis/billingpulse/internal/billingreport/domain"
	obslogger "github.com/smallbiznis/billingpulse/internal/observability/logger"
	provider "github.com/smallbiznis/billingpulse/internal/provider/domain"
	"go.uber.org/zap"
)

const IdempotencyKeyHeader = "Idempotency-Key"

func (s *Server) GetProviderStatus(c *gin.Context) {
	status := s.reports.CheckProviderStatus(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": status})
}

func (s *Server) GetDashboardStats(c *gin.Context) {
	stats := s.reports.GetDashboardStats(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	limit, offset := query.normalize(provider.DefaultListLimit)
	resp, err := s.client.ListCustomers(c.Request.Context(), limit, offset)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.client.GetCustomer(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	TaxID string `json:"cpfCnpj"`
	Phone string `json:"phone"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reports.CreateCustomer(c.Request.Context(), provider.CustomerInput{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		TaxID: strings.TrimSpace(req.TaxID),
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	var query struct {
		pageQuery
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var status provider.PaymentStatus
	if strings.TrimSpace(query.Status) != "" {
		parsed, ok := provider.ParsePaymentStatus(query.Status)
		if !ok {
			AbortWithError(c, newValidationError("status", "invalid_status", "unknown payment status"))
			return
		}
		status = parsed
	}

	limit, offset := query.normalize(provider.DefaultListLimit)
	resp, err := s.client.ListPayments(c.Request.Context(), provider.PaymentQuery{
		Limit:  limit,
		Offset: offset,
		Status: status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListPaymentsInRange(c *gin.Context) {
	from, to, err := parseDateRange(c.Query("dateFrom"), c.Query("dateTo"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
		return
	}
	rangeLimit := provider.DefaultRangeLimit
	if limit != nil && *limit > 0 && *limit < rangeLimit {
		rangeLimit = *limit
	}

	resp, err := s.client.ListPaymentsInRange(c.Request.Context(), from, to, rangeLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type createPaymentRequest struct {
	CustomerID        string          `json:"customer"`
	BillingType       string          `json:"billingType"`
	Value             decimal.Decimal `json:"value"`
	DueDate           provider.Date   `json:"dueDate"`
	Description       string          `json:"description"`
	ExternalReference string          `json:"externalReference"`
}

// CreatePayment issues a charge of any billing type. Input is checked before
// the provider is contacted and the call is never retried.
func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	input := provider.PaymentInput{
		CustomerID:        strings.TrimSpace(req.CustomerID),
		BillingType:       provider.BillingType(strings.ToUpper(strings.TrimSpace(req.BillingType))),
		Value:             req.Value,
		DueDate:           req.DueDate,
		Description:       strings.TrimSpace(req.Description),
		ExternalReference: strings.TrimSpace(req.ExternalReference),
	}
	if err := provider.ValidatePaymentInput(input, s.today()); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.client.CreatePayment(c.Request.Context(), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetRecentActivities(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be an integer"))
		return
	}
	n := 0
	if limit != nil {
		n = min(*limit, maxPageLimit)
	}

	resp := s.reports.GetRecentActivities(c.Request.Context(), n)
	c.JSON(http.StatusOK, resp)
}

type generateBoletoRequest struct {
	CustomerID  string          `json:"customerId"`
	Value       decimal.Decimal `json:"value"`
	DueDate     provider.Date   `json:"dueDate"`
	Description string          `json:"description"`
}

// GenerateBoleto claims the Idempotency-Key header, when sent, until it
// expires. The key is released only when the charge was refused outright,
// so a retry after a timeout or transport failure gets 409 instead of
// issuing a second charge.
func (s *Server) GenerateBoleto(c *gin.Context) {
	var req generateBoletoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	var token string
	if key != "" {
		claimed, ok, err := s.guard.Acquire(ctx, key, s.cfg.Redis.IdempotencyTTL)
		if err != nil {
			obslogger.WithContext(ctx, s.log).Error("idempotency guard unavailable", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !ok {
			s.reportMetrics.IncDuplicateWrite()
			AbortWithError(c, ErrConflict)
			return
		}
		token = claimed
	}

	payment, err := s.reports.GenerateBoletoForCustomer(ctx, billingreport.BoletoRequest{
		CustomerID:  req.CustomerID,
		Value:       req.Value,
		DueDate:     req.DueDate,
		Description: req.Description,
	})
	if err != nil {
		if token != "" && rejectedBeforeCharge(err) {
			if releaseErr := s.guard.Release(ctx, key, token); releaseErr != nil {
				obslogger.WithContext(ctx, s.log).Warn("idempotency key release failed", zap.Error(releaseErr))
			}
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": payment})
}

// rejectedBeforeCharge reports whether err proves no charge was created.
// Unavailable, timed out or canceled calls may have reached the provider.
func rejectedBeforeCharge(err error) bool {
	switch {
	case errors.Is(err, provider.ErrProviderUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, provider.ErrValidation),
		errors.Is(err, provider.ErrNotFound):
		return true
	default:
		return false
	}
}
