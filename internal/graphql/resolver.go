// Package graphql resolves the parcelhub GraphQL API onto the carrier
// registry.
package graphql

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tournevent/parcelhub/internal/telemetry"
	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidInput is wrapped by every argument validation failure.
var ErrInvalidInput = errors.New("invalid input")

// Resolver is the root resolver for the GraphQL schema.
// It holds dependencies needed by all resolvers.
type Resolver struct {
	Registry *shipper.Registry
	Logger   *otelzap.Logger
	Metrics  *telemetry.Metrics
	Version  string

	validate *validator.Validate
}

// NewResolver creates a new resolver with the given dependencies.
func NewResolver(registry *shipper.Registry, logger *otelzap.Logger, metrics *telemetry.Metrics) *Resolver {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Resolver{
		Registry: registry,
		Logger:   logger,
		Metrics:  metrics,
		validate: validate,
	}
}

// Query returns the query resolver.
func (r *Resolver) Query() *QueryResolver {
	return &QueryResolver{r}
}

// Mutation returns the mutation resolver.
func (r *Resolver) Mutation() *MutationResolver {
	return &MutationResolver{r}
}

// QueryResolver resolves read-only fields.
type QueryResolver struct{ *Resolver }

// MutationResolver resolves fields that commit to a carrier.
type MutationResolver struct{ *Resolver }

func (r *Resolver) validateInput(ctx context.Context, input any) error {
	if err := r.validate.StructCtx(ctx, input); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, validationMessage(err))
	}
	return nil
}

// record reports the outcome of a call to one carrier.
func (r *Resolver) record(operation, carrier string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		r.Metrics.RecordError(carrier, errorType(err))
	}
	r.Metrics.RecordRequest(operation, carrier, status, time.Since(start).Seconds())
}

// Health reports liveness and the registered carriers.
func (r *QueryResolver) Health(ctx context.Context) (*Health, error) {
	return &Health{
		Status:   "ok",
		Version:  r.Version,
		Carriers: r.Registry.Names(),
	}, nil
}

// Carriers lists registered carriers in precedence order.
func (r *QueryResolver) Carriers(ctx context.Context) ([]Carrier, error) {
	names := r.Registry.Names()
	carriers := make([]Carrier, len(names))
	for i, name := range names {
		carriers[i] = Carrier{Name: name, Position: i + 1}
	}
	return carriers, nil
}

// Quotes fans a quote request out to the selected carriers. Carriers that
// fail are reported in the payload, never as an error.
func (r *QueryResolver) Quotes(ctx context.Context, input QuoteInput) (*QuotesPayload, error) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := r.Logger.Ctx(ctx)
	reqField := zap.String("request_id", requestID)

	if err := r.validateInput(ctx, input); err != nil {
		return nil, err
	}
	req, err := quoteInputToModel(input)
	if err != nil {
		return nil, err
	}
	composite, err := r.Registry.Composite(input.Carriers...)
	if err != nil {
		return nil, err
	}

	logger.Info("Getting quotes",
		reqField,
		zap.String("origin_postal", req.Origin.PostalCode),
		zap.String("destination_postal", req.Destination.PostalCode),
		zap.Int("carrier_count", len(composite.Services())),
	)

	report := composite.GetQuotesDetailed(ctx, req)

	payload := &QuotesPayload{
		RequestID: requestID,
		Quotes:    make([]Quote, len(report.Quotes)),
		Carriers:  make([]CarrierStatus, len(report.Carriers)),
	}
	for i, q := range report.Quotes {
		payload.Quotes[i] = quoteToGraphQL(q)
	}
	failed := 0
	for i, o := range report.Carriers {
		r.record("quotes", o.Carrier, start, o.Err)
		if o.Err == nil {
			payload.Carriers[i] = CarrierStatus{Carrier: o.Carrier, Success: true}
			continue
		}
		failed++
		logger.Warn("Carrier failed to quote", reqField, zap.String("carrier", o.Carrier), zap.Error(o.Err))
		msg := o.Err.Error()
		payload.Carriers[i] = CarrierStatus{Carrier: o.Carrier, Error: &msg}
	}

	logger.Info("Quotes collected",
		reqField,
		zap.Int("quote_count", len(payload.Quotes)),
		zap.Int("failed_carriers", failed),
		zap.Duration("duration", time.Since(start)),
	)
	return payload, nil
}

// Track returns the tracking history of a number. With a carrier only that
// carrier is asked; otherwise the first carrier, in precedence order, that
// knows the number answers.
func (r *QueryResolver) Track(ctx context.Context, args TrackArgs) (*Tracking, error) {
	start := time.Now()
	if err := r.validateInput(ctx, args); err != nil {
		return nil, err
	}

	var tracker shipper.Service
	if args.Carrier != "" {
		s, err := r.Registry.Get(args.Carrier)
		if err != nil {
			return nil, err
		}
		tracker = s
	} else {
		composite, err := r.Registry.Composite()
		if err != nil {
			return nil, err
		}
		tracker = composite
	}

	opts := shipper.TrackingOptions{Language: args.Language, IncludeRaw: args.IncludeRaw}
	tracking, err := tracker.GetTrackingStatus(ctx, args.TrackingNumber, opts)
	r.record("track", tracker.Name(), start, err)
	if err != nil {
		r.Logger.Ctx(ctx).Warn("Tracking failed",
			zap.String("tracking_number", args.TrackingNumber),
			zap.String("carrier", tracker.Name()),
			zap.Error(err),
		)
		return nil, err
	}
	return trackingToGraphQL(tracking, args.IncludeRaw), nil
}

// TrackBatch tracks several numbers across every carrier. Numbers no
// carrier knows come back with an ERROR status.
func (r *QueryResolver) TrackBatch(ctx context.Context, args TrackBatchArgs) ([]TrackingResult, error) {
	start := time.Now()
	if err := r.validateInput(ctx, args); err != nil {
		return nil, err
	}
	composite, err := r.Registry.Composite()
	if err != nil {
		return nil, err
	}

	opts := shipper.TrackingOptions{Language: args.Language, IncludeRaw: args.IncludeRaw}
	results := composite.TrackBatch(ctx, args.TrackingNumbers, opts)

	out := make([]TrackingResult, len(results))
	failed := 0
	for i, res := range results {
		out[i] = trackingResultToGraphQL(res, args.IncludeRaw)
		if res.Err != nil {
			failed++
		}
	}
	r.Metrics.RecordRequest("track_batch", composite.Name(), "success", time.Since(start).Seconds())
	r.Logger.Ctx(ctx).Info("Batch tracked",
		zap.Int("count", len(results)),
		zap.Int("failed", failed),
	)
	return out, nil
}

// AvailableServices lists the services offered on a lane. Without a carrier
// every carrier is asked; carriers that fail are skipped.
func (r *QueryResolver) AvailableServices(ctx context.Context, input ServicesInput) ([]ServiceOption, error) {
	if err := r.validateInput(ctx, input); err != nil {
		return nil, err
	}
	req := &shipper.ServicesRequest{
		Origin:      addressInputToModel(input.Origin),
		Destination: addressInputToModel(input.Destination),
	}

	var shippers []shipper.Shipper
	if input.Carrier != "" {
		s, err := r.Registry.Get(input.Carrier)
		if err != nil {
			return nil, err
		}
		shippers = []shipper.Shipper{s}
	} else {
		shippers = r.Registry.All()
	}

	perCarrier := make([][]shipper.ServiceOption, len(shippers))
	var g errgroup.Group
	for i, s := range shippers {
		g.Go(func() error {
			start := time.Now()
			options, err := listServices(ctx, s, req)
			r.record("available_services", s.Name(), start, err)
			if err != nil {
				if input.Carrier != "" {
					return err
				}
				r.Logger.Ctx(ctx).Warn("Carrier failed to list services",
					zap.String("carrier", s.Name()), zap.Error(err))
				return nil
			}
			perCarrier[i] = options
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ServiceOption, 0)
	for _, options := range perCarrier {
		for _, o := range options {
			out = append(out, serviceOptionToGraphQL(o))
		}
	}
	return out, nil
}

// CreateShipment books a shipment with the selected carrier.
func (r *MutationResolver) CreateShipment(ctx context.Context, input CreateShipmentInput) (*Shipment, error) {
	start := time.Now()
	if err := r.validateInput(ctx, input); err != nil {
		return nil, err
	}
	s, err := r.Registry.Get(input.Carrier)
	if err != nil {
		return nil, err
	}
	shipDate, err := parseDate(input.ShipDate)
	if err != nil {
		return nil, err
	}

	shipment, err := s.CreateShipment(ctx, &shipper.ShipmentRequest{
		ServiceCode:      input.ServiceCode,
		Sender:           contactInputToModel(input.Sender),
		SenderAddress:    addressInputToModel(input.SenderAddress),
		Recipient:        contactInputToModel(input.Recipient),
		RecipientAddress: addressInputToModel(input.RecipientAddress),
		Packages:         packagesInputToModel(input.Packages),
		Reference:        input.Reference,
		LabelFormat:      labelFormatToModel(input.LabelFormat),
		ShipDate:         shipDate,
	})
	r.record("create_shipment", s.Name(), start, err)
	if err != nil {
		r.Logger.Ctx(ctx).Error("Shipment creation failed", zap.String("carrier", s.Name()), zap.Error(err))
		return nil, err
	}

	r.Logger.Ctx(ctx).Info("Shipment created",
		zap.String("carrier", s.Name()),
		zap.String("shipment_id", shipment.ShipmentID),
		zap.String("tracking_number", shipment.TrackingNumber),
	)
	return shipmentToGraphQL(shipment), nil
}

// CancelShipment cancels a shipment with the selected carrier.
func (r *MutationResolver) CancelShipment(ctx context.Context, input CancelShipmentInput) (*CancelShipmentPayload, error) {
	start := time.Now()
	if err := r.validateInput(ctx, input); err != nil {
		return nil, err
	}
	s, err := r.Registry.Get(input.Carrier)
	if err != nil {
		return nil, err
	}

	resp, err := s.CancelShipment(ctx, &shipper.CancelShipmentRequest{
		ShipmentID:     input.ShipmentID,
		TrackingNumber: input.TrackingNumber,
		Reason:         input.Reason,
	})
	r.record("cancel_shipment", s.Name(), start, err)
	if err != nil {
		r.Logger.Ctx(ctx).Error("Shipment cancellation failed", zap.String("carrier", s.Name()), zap.Error(err))
		return nil, err
	}

	return &CancelShipmentPayload{
		ShipmentID:         resp.ShipmentID,
		Status:             enum(resp.Status),
		ConfirmationNumber: resp.ConfirmationNumber,
	}, nil
}

// CreatePickup schedules a pickup with the selected carrier.
func (r *MutationResolver) CreatePickup(ctx context.Context, input CreatePickupInput) (*Pickup, error) {
	start := time.Now()
	if err := r.validateInput(ctx, input); err != nil {
		return nil, err
	}
	s, err := r.Registry.Get(input.Carrier)
	if err != nil {
		return nil, err
	}
	ready, err := parseTimestamp(input.ReadyTime)
	if err != nil {
		return nil, err
	}
	closing, err := parseTimestamp(input.CloseTime)
	if err != nil {
		return nil, err
	}
	if !closing.After(ready) {
		return nil, fmt.Errorf("%w: closeTime must be after readyTime", ErrInvalidInput)
	}

	pickup, err := s.CreatePickup(ctx, &shipper.PickupRequest{
		Address:         addressInputToModel(input.Address),
		Contact:         contactInputToModel(input.Contact),
		ReadyTime:       ready,
		CloseTime:       closing,
		Packages:        packagesInputToModel(input.Packages),
		TrackingNumbers: input.TrackingNumbers,
		Instructions:    input.Instructions,
	})
	r.record("create_pickup", s.Name(), start, err)
	if err != nil {
		r.Logger.Ctx(ctx).Error("Pickup creation failed", zap.String("carrier", s.Name()), zap.Error(err))
		return nil, err
	}
	return pickupToGraphQL(pickup), nil
}

// CancelPickup cancels a pickup with the selected carrier.
func (r *MutationResolver) CancelPickup(ctx context.Context, input CancelPickupInput) (*CancelPickupPayload, error) {
	start := time.Now()
	if err := r.validateInput(ctx, input); err != nil {
		return nil, err
	}
	s, err := r.Registry.Get(input.Carrier)
	if err != nil {
		return nil, err
	}
	scheduled, err := parseDate(input.ScheduledDate)
	if err != nil {
		return nil, err
	}

	req := &shipper.CancelPickupRequest{
		ConfirmationNumber: input.ConfirmationNumber,
		Reason:             input.Reason,
	}
	if scheduled != nil {
		req.ScheduledDate = *scheduled
	}

	resp, err := s.CancelPickup(ctx, req)
	r.record("cancel_pickup", s.Name(), start, err)
	if err != nil {
		r.Logger.Ctx(ctx).Error("Pickup cancellation failed", zap.String("carrier", s.Name()), zap.Error(err))
		return nil, err
	}
	return &CancelPickupPayload{
		ConfirmationNumber: resp.ConfirmationNumber,
		Cancelled:          resp.Cancelled,
	}, nil
}

// listServices asks one carrier for its services, turning a panic into an
// error so it cannot escape the fan-out goroutine.
func listServices(ctx context.Context, s shipper.Shipper, req *shipper.ServicesRequest) (options []shipper.ServiceOption, err error) {
	defer shipper.RecoverAsError(s.Name(), &err)
	return s.GetAvailableServices(ctx, req)
}
