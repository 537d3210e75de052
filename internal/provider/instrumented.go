package provider

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/billingpulse/internal/observability/context"
	"github.com/smallbiznis/billingpulse/internal/observability/metrics"
	"github.com/smallbiznis/billingpulse/internal/observability/tracing"
	"github.com/smallbiznis/billingpulse/internal/provider/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrumented decorates a Client with a span and a Prometheus observation per call.
type Instrumented struct {
	next    domain.Client
	name    string
	metrics *metrics.ReportMetrics
	tracer  trace.Tracer
}

var _ domain.Client = (*Instrumented)(nil)

func NewInstrumented(next domain.Client, name string, m *metrics.ReportMetrics) *Instrumented {
	return &Instrumented{
		next:    next,
		name:    name,
		metrics: m,
		tracer:  otel.Tracer("billingpulse/provider"),
	}
}

func (c *Instrumented) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx = obscontext.WithProvider(ctx, c.name)
	attrs = append(attrs, attribute.String("provider", c.name), attribute.String("provider.op", op))
	ctx, span := c.tracer.Start(ctx, "provider."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.SafeAttributes(attrs...)...),
	)
	begin := time.Now()
	return ctx, func(err error) {
		c.metrics.ObserveProviderCall(c.name, op, time.Since(begin), err)
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, metrics.ClassifyProviderError(err))
		}
		span.End()
	}
}

func (c *Instrumented) ListCustomers(ctx context.Context, limit, offset int) (domain.CustomerList, error) {
	ctx, done := c.start(ctx, "list_customers", attribute.Int("limit", limit), attribute.Int("offset", offset))
	list, err := c.next.ListCustomers(ctx, limit, offset)
	done(err)
	return list, err
}

func (c *Instrumented) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	ctx, done := c.start(ctx, "get_customer", attribute.String("customer.id", id))
	customer, err := c.next.GetCustomer(ctx, id)
	done(err)
	return customer, err
}

func (c *Instrumented) CreateCustomer(ctx context.Context, input domain.CustomerInput) (domain.Customer, error) {
	ctx, done := c.start(ctx, "create_customer")
	customer, err := c.next.CreateCustomer(ctx, input)
	done(err)
	return customer, err
}

func (c *Instrumented) ListPayments(ctx context.Context, q domain.PaymentQuery) (domain.PaymentList, error) {
	ctx, done := c.start(ctx, "list_payments", attribute.Int("limit", q.Limit), attribute.String("status", string(q.Status)))
	list, err := c.next.ListPayments(ctx, q)
	done(err)
	return list, err
}

func (c *Instrumented) ListPaymentsInRange(ctx context.Context, from, to domain.Date, limit int) (domain.PaymentList, error) {
	ctx, done := c.start(ctx, "list_payments_in_range",
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
		attribute.Int("limit", limit),
	)
	list, err := c.next.ListPaymentsInRange(ctx, from, to, limit)
	done(err)
	return list, err
}

func (c *Instrumented) CreatePayment(ctx context.Context, input domain.PaymentInput) (domain.Payment, error) {
	ctx, done := c.start(ctx, "create_payment",
		attribute.String("customer.id", input.CustomerID),
		attribute.String("billing_type", string(input.BillingType)),
	)
	payment, err := c.next.CreatePayment(ctx, input)
	done(err)
	return payment, err
}

func (c *Instrumented) Ping(ctx context.Context) error {
	ctx, done := c.start(ctx, "ping")
	err := c.next.Ping(ctx)
	done(err)
	return err
}
