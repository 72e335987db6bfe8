package transport_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/tournevent/parcelhub/pkg/shipper/internal/transport"
	"golang.org/x/time/rate"
)

func TestNewHTTPClient_DefaultTimeout(t *testing.T) {
	client := transport.NewHTTPClient(0)
	assert.Equal(t, transport.DefaultTimeout, client.Timeout)
	assert.NotNil(t, client.Transport)
}

func TestNewLimiter_Unlimited(t *testing.T) {
	limiter := transport.NewLimiter(0, 0)
	assert.Equal(t, rate.Inf, limiter.Limit())

	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow())
	}
}

func TestNewLimiter_Limited(t *testing.T) {
	limiter := transport.NewLimiter(1, 0)
	assert.Equal(t, rate.Limit(1), limiter.Limit())
	assert.Equal(t, 1, limiter.Burst())

	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestTracer_NilFallsBackToNoop(t *testing.T) {
	tracer := transport.Tracer(nil, "dhl")
	_, span := tracer.Start(context.Background(), "op")
	transport.EndSpan(span, errors.New("boom"))
	assert.False(t, span.SpanContext().IsValid())
}

func TestSleep_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := transport.Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, transport.Sleep(context.Background(), 0))
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
		cause     error
	}{
		{"unauthorized", http.StatusUnauthorized, false, shipper.ErrAuthenticationFailed},
		{"throttled", http.StatusTooManyRequests, true, shipper.ErrRateLimitExceeded},
		{"unavailable", http.StatusServiceUnavailable, true, shipper.ErrServiceUnavailable},
		{"bad gateway", http.StatusBadGateway, true, nil},
		{"bad request", http.StatusBadRequest, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transport.StatusError("ups", tt.status, "HTTP", "failed")
			assert.True(t, shipper.IsTransportError(err))
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.retryable, err.Retryable)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			} else {
				assert.NoError(t, err.Cause)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	err := transport.NetworkError("fedex", context.DeadlineExceeded)
	assert.True(t, shipper.IsTransportError(err))
	assert.True(t, shipper.IsRetryable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
