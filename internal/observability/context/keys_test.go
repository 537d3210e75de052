package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))

	same := WithRequestID(ctx, "")
	assert.Equal(t, "req-1", RequestIDFromContext(same))
}

func TestProviderRoundTrip(t *testing.T) {
	ctx := WithProvider(context.Background(), "asaas")
	assert.Equal(t, "asaas", ProviderFromContext(ctx))
}
