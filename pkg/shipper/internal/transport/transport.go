// Package transport holds the HTTP plumbing shared by carrier API clients.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/tournevent/parcelhub/pkg/shipper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

// DefaultTimeout is used when a carrier config leaves the timeout unset.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient returns an HTTP client whose transport emits OpenTelemetry
// client spans.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// NewLimiter returns a limiter allowing rps requests per second with the
// given burst. A non-positive rps means unlimited.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Tracer returns t, or a no-op tracer when t is nil.
func Tracer(t trace.Tracer, name string) trace.Tracer {
	if t != nil {
		return t
	}
	return noop.NewTracerProvider().Tracer(name)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StatusError builds a transport error for a non-success HTTP answer.
// Throttling and server-side failures are retryable.
func StatusError(carrier string, statusCode int, code, message string) *shipper.ShipperError {
	err := shipper.NewTransportError(carrier, code, message).
		WithStatusCode(statusCode).
		WithRetryable(statusCode == http.StatusTooManyRequests || statusCode >= 500)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		err.Cause = shipper.ErrAuthenticationFailed
	case http.StatusTooManyRequests:
		err.Cause = shipper.ErrRateLimitExceeded
	case http.StatusServiceUnavailable:
		err.Cause = shipper.ErrServiceUnavailable
	}
	return err
}

// NetworkError builds a transport error for a request that got no answer.
func NetworkError(carrier string, err error) *shipper.ShipperError {
	return shipper.NewTransportError(carrier, "NETWORK", "request failed").WithCause(err)
}
