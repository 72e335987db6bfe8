package shipper

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	compositeName = "composite"

	// batchConcurrency caps how many tracking numbers TrackBatch resolves at once.
	batchConcurrency = 8
)

// CompositeService fans read-only requests out to several carriers and
// merges their answers. Registration order decides result order and
// precedence, never completion order.
//
// A CompositeService is itself a Service, so it can be used wherever a
// single carrier is expected, including inside another CompositeService.
// It holds no per-call state and is safe for concurrent use.
type CompositeService struct {
	services []Service
}

// NewCompositeService creates a composite over services in precedence order.
func NewCompositeService(services ...Service) *CompositeService {
	return &CompositeService{
		services: append([]Service(nil), services...),
	}
}

// Name returns the composite identifier.
func (c *CompositeService) Name() string {
	return compositeName
}

// Services returns the composed carriers in precedence order.
func (c *CompositeService) Services() []Service {
	return append([]Service(nil), c.services...)
}

// CarrierOutcome is how one carrier fared in a fan-out. Err is nil when the
// carrier answered.
type CarrierOutcome struct {
	Carrier string
	Err     error
}

// QuoteReport is the detailed outcome of a quote fan-out.
type QuoteReport struct {
	Quotes []Quote
	// Carriers holds one outcome per composed carrier, in registration order.
	Carriers []CarrierOutcome
}

// Failed returns the outcomes of the carriers that failed.
func (r *QuoteReport) Failed() []CarrierOutcome {
	var failed []CarrierOutcome
	for _, o := range r.Carriers {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// result is the settled outcome of one carrier call.
type result[T any] struct {
	value T
	err   error
}

// GetQuotes asks every carrier for quotes concurrently and concatenates the
// successful answers in registration order. Failed carriers are dropped;
// when every carrier fails the result is empty and the error is nil.
func (c *CompositeService) GetQuotes(ctx context.Context, req *QuoteRequest) ([]Quote, error) {
	return c.GetQuotesDetailed(ctx, req).Quotes, nil
}

// GetQuotesDetailed performs the same fan-out as GetQuotes and also reports
// which carriers answered and which failed.
func (c *CompositeService) GetQuotesDetailed(ctx context.Context, req *QuoteRequest) *QuoteReport {
	results := make([]result[[]Quote], len(c.services))

	var g errgroup.Group
	for i, s := range c.services {
		g.Go(func() error {
			quotes, err := callQuotes(ctx, s, req)
			results[i] = result[[]Quote]{value: quotes, err: err}
			return nil // a failed carrier never fails the group
		})
	}
	_ = g.Wait()

	report := &QuoteReport{
		Quotes:   make([]Quote, 0),
		Carriers: make([]CarrierOutcome, len(results)),
	}
	for i, r := range results {
		report.Carriers[i] = CarrierOutcome{Carrier: c.services[i].Name(), Err: r.err}
		if r.err == nil {
			report.Quotes = append(report.Quotes, r.value...)
		}
	}
	return report
}

// GetTrackingStatus asks every carrier concurrently and returns the answer of
// the first carrier, in registration order, that tracked the number. It
// returns as soon as that carrier and all carriers registered before it have
// settled; later calls keep running and their results are discarded.
//
// When every carrier fails the error is an *AggregateError holding each
// failure in registration order.
func (c *CompositeService) GetTrackingStatus(ctx context.Context, trackingNumber string, opts TrackingOptions) (*Tracking, error) {
	if len(c.services) == 0 {
		return nil, &AggregateError{Operation: "GetTrackingStatus"}
	}

	// Buffered so abandoned calls can always deliver and exit.
	slots := make([]chan result[*Tracking], len(c.services))
	for i, s := range c.services {
		slots[i] = make(chan result[*Tracking], 1)
		go func() {
			tracking, err := callTracking(ctx, s, trackingNumber, opts)
			slots[i] <- result[*Tracking]{value: tracking, err: err}
		}()
	}

	return firstSuccess(ctx, slots)
}

// firstSuccess scans slots in order and returns the first successful value.
// A settled slot is always read before ctx is consulted, so an answer that
// has already arrived wins over cancellation.
func firstSuccess[T any](ctx context.Context, slots []chan result[T]) (T, error) {
	var zero T
	errs := make([]error, 0, len(slots))
	for _, slot := range slots {
		var r result[T]
		select {
		case r = <-slot:
		default:
			select {
			case r = <-slot:
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
		if r.err == nil {
			return r.value, nil
		}
		errs = append(errs, r.err)
	}
	return zero, &AggregateError{Operation: "GetTrackingStatus", Errors: errs}
}

// TrackBatch tracks several numbers with the GetTrackingStatus policy.
// Results are returned in input order; a number no carrier could track
// yields an ERROR result instead of failing the batch.
func (c *CompositeService) TrackBatch(ctx context.Context, trackingNumbers []string, opts TrackingOptions) []TrackingResult {
	results := make([]TrackingResult, len(trackingNumbers))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, number := range trackingNumbers {
		g.Go(func() error {
			tracking, err := c.GetTrackingStatus(ctx, number, opts)
			results[i] = newTrackingResult(number, tracking, err)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func newTrackingResult(number string, tracking *Tracking, err error) TrackingResult {
	if err != nil {
		return TrackingResult{Status: ResultError, TrackingNumber: number, Err: err}
	}
	return TrackingResult{
		Status:         ResultSuccess,
		TrackingNumber: number,
		Raw:            tracking.Raw,
		Tracking:       tracking,
	}
}

// callQuotes invokes one carrier, turning a panic into an error.
func callQuotes(ctx context.Context, s Service, req *QuoteRequest) (quotes []Quote, err error) {
	defer RecoverAsError(s.Name(), &err)
	quotes, err = s.GetQuotes(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return quotes, nil
}

// callTracking invokes one carrier, turning a panic into an error. A nil
// tracking without an error counts as a failure.
func callTracking(ctx context.Context, s Service, trackingNumber string, opts TrackingOptions) (tracking *Tracking, err error) {
	defer RecoverAsError(s.Name(), &err)
	tracking, err = s.GetTrackingStatus(ctx, trackingNumber, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	if tracking == nil {
		return nil, fmt.Errorf("%s: %w: %s", s.Name(), ErrTrackingNotFound, trackingNumber)
	}
	return tracking, nil
}

// RecoverAsError turns a panic in a carrier call into a service error with
// code PANIC. It must be deferred directly.
func RecoverAsError(carrier string, err *error) {
	if r := recover(); r != nil {
		*err = NewServiceError(carrier, "PANIC", fmt.Sprint(r))
	}
}

var _ Service = (*CompositeService)(nil)
