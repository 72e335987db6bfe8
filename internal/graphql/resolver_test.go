package graphql_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/parcelhub/internal/graphql"
	"github.com/tournevent/parcelhub/internal/telemetry"
	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/tournevent/parcelhub/pkg/shipper/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestResolver(shippers ...shipper.Shipper) (*graphql.Resolver, *telemetry.Metrics) {
	registry := shipper.NewRegistry()
	if len(shippers) == 0 {
		shippers = []shipper.Shipper{mock.New("dhl"), mock.New("fedex"), mock.New("ups")}
	}
	for _, s := range shippers {
		registry.Register(s)
	}

	logger := otelzap.New(zap.NewNop())
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	return graphql.NewResolver(registry, logger, metrics), metrics
}

func address(city, postal, country string) graphql.AddressInput {
	return graphql.AddressInput{City: city, PostalCode: postal, CountryCode: country}
}

func quoteInput() graphql.QuoteInput {
	return graphql.QuoteInput{
		Origin:      address("Atlanta", "30301", "US"),
		Destination: address("Louisville", "40201", "US"),
		Packages:    []graphql.PackageInput{{Length: 30, Width: 20, Height: 10, Weight: 2.5}},
	}
}

func quote(vendor, code string, cents int64) shipper.Quote {
	return shipper.NewQuote(vendor, code, shipper.Money{Amount: cents, Currency: "USD"})
}

func TestQuery_Health(t *testing.T) {
	resolver, _ := newTestResolver()
	resolver.Version = "1.2.3"

	health, err := resolver.Query().Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, []string{"dhl", "fedex", "ups"}, health.Carriers)
}

func TestQuery_Carriers(t *testing.T) {
	resolver, _ := newTestResolver()

	carriers, err := resolver.Query().Carriers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []graphql.Carrier{
		{Name: "dhl", Position: 1},
		{Name: "fedex", Position: 2},
		{Name: "ups", Position: 3},
	}, carriers)
}

func TestQuery_Quotes_ConcatenatesInRegistrationOrder(t *testing.T) {
	resolver, metrics := newTestResolver(
		mock.New("dhl", mock.WithQuotes(quote("dhl", "P", 6420)), mock.WithDelay(20*time.Millisecond)),
		mock.New("fedex", mock.WithQuoteError(shipper.NewTransportError("fedex", "HTTP_503", "down"))),
		mock.New("ups", mock.WithQuotes(quote("ups", "03", 1627), quote("ups", "02", 4108))),
	)

	payload, err := resolver.Query().Quotes(context.Background(), quoteInput())

	require.NoError(t, err)
	assert.NotEmpty(t, payload.RequestID)
	require.Len(t, payload.Quotes, 3)
	assert.Equal(t, "dhl", payload.Quotes[0].Carrier)
	assert.Equal(t, "64.20", payload.Quotes[0].Amount.Amount)
	assert.Equal(t, "03", payload.Quotes[1].ServiceCode)
	assert.Equal(t, "02", payload.Quotes[2].ServiceCode)

	require.Len(t, payload.Carriers, 3)
	assert.Equal(t, graphql.CarrierStatus{Carrier: "dhl", Success: true}, payload.Carriers[0])
	assert.Equal(t, "fedex", payload.Carriers[1].Carrier)
	assert.False(t, payload.Carriers[1].Success)
	require.NotNil(t, payload.Carriers[1].Error)
	assert.Equal(t, graphql.CarrierStatus{Carrier: "ups", Success: true}, payload.Carriers[2])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CarrierErrors.WithLabelValues("fedex", "transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("quotes", "ups", "success")))
}

func TestQuery_Quotes_AllFailedIsEmpty(t *testing.T) {
	failure := errors.New("boom")
	resolver, _ := newTestResolver(
		mock.New("dhl", mock.WithQuoteError(failure)),
		mock.New("ups", mock.WithQuoteError(failure)),
	)

	payload, err := resolver.Query().Quotes(context.Background(), quoteInput())

	require.NoError(t, err)
	assert.NotNil(t, payload.Quotes)
	assert.Empty(t, payload.Quotes)
	assert.Len(t, payload.Carriers, 2)
}

func TestQuery_Quotes_CarrierSubset(t *testing.T) {
	dhl := mock.New("dhl")
	ups := mock.New("ups")
	resolver, _ := newTestResolver(dhl, ups)
	input := quoteInput()
	input.Carriers = []string{"ups"}

	payload, err := resolver.Query().Quotes(context.Background(), input)

	require.NoError(t, err)
	for _, q := range payload.Quotes {
		assert.Equal(t, "ups", q.Carrier)
	}
	assert.Zero(t, dhl.QuoteCalls())
	assert.Equal(t, int64(1), ups.QuoteCalls())
}

func TestQuery_Quotes_UnknownCarrier(t *testing.T) {
	resolver, _ := newTestResolver()
	input := quoteInput()
	input.Carriers = []string{"usps"}

	_, err := resolver.Query().Quotes(context.Background(), input)

	assert.ErrorIs(t, err, shipper.ErrCarrierNotFound)
}

func TestQuery_Quotes_DuplicateCarrier(t *testing.T) {
	dhl := mock.New("dhl")
	resolver, _ := newTestResolver(dhl, mock.New("ups"))
	input := quoteInput()
	input.Carriers = []string{"dhl", "dhl"}

	_, err := resolver.Query().Quotes(context.Background(), input)

	assert.ErrorIs(t, err, shipper.ErrDuplicateCarrier)
	assert.Equal(t, "BAD_USER_INPUT", graphql.ErrorCode(err))
	assert.Zero(t, dhl.QuoteCalls())
}

func TestQuery_Quotes_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*graphql.QuoteInput)
		message string
	}{
		{"no packages", func(in *graphql.QuoteInput) { in.Packages = nil }, "packages is required"},
		{"zero weight", func(in *graphql.QuoteInput) { in.Packages[0].Weight = 0 }, "packages[0].weight"},
		{"missing postal code", func(in *graphql.QuoteInput) { in.Origin.PostalCode = "" }, "origin.postalCode is required"},
		{"bad country", func(in *graphql.QuoteInput) { in.Destination.CountryCode = "USA" }, "destination.countryCode"},
		{"bad service type", func(in *graphql.QuoteInput) { in.ServiceTypes = []string{"TELEPORT"} }, "serviceTypes[0] must be one of"},
		{"bad ship date", func(in *graphql.QuoteInput) { in.ShipDate = "01/02/2030" }, "shipDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, _ := newTestResolver()
			input := quoteInput()
			tt.mutate(&input)

			_, err := resolver.Query().Quotes(context.Background(), input)

			require.Error(t, err)
			assert.ErrorIs(t, err, graphql.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestQuery_Quotes_ServiceTypeFilter(t *testing.T) {
	resolver, _ := newTestResolver(mock.New("dhl"))
	input := quoteInput()
	input.ServiceTypes = []string{"EXPRESS"}
	input.ShipDate = "2030-01-02"

	payload, err := resolver.Query().Quotes(context.Background(), input)

	require.NoError(t, err)
	// The mock ignores filters; the request is still accepted.
	assert.NotEmpty(t, payload.Quotes)
	assert.Equal(t, "STANDARD", payload.Quotes[0].ServiceType)
}

func TestQuery_Track_FirstCarrierWins(t *testing.T) {
	tracking := shipper.NewTracking("ups", "03", []shipper.TrackingActivity{
		{Status: shipper.ActivityDelivered, Description: "Delivered", Timestamp: time.Date(2030, 1, 3, 14, 0, 0, 0, time.UTC)},
		{Status: shipper.ActivityInTransit, Description: "Picked up", Timestamp: time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)},
	})
	tracking.Raw = `{"raw":true}`
	resolver, _ := newTestResolver(
		mock.New("dhl", mock.WithTrackingError(shipper.ErrTrackingNotFound)),
		mock.New("ups", mock.WithTracking(tracking)),
	)

	result, err := resolver.Query().Track(context.Background(), graphql.TrackArgs{TrackingNumber: "1Z", IncludeRaw: true})

	require.NoError(t, err)
	assert.Equal(t, "ups", result.Carrier)
	assert.Equal(t, "DELIVERED", result.Status)
	require.Len(t, result.Activities, 2)
	assert.Equal(t, "Delivered", result.Activities[0].Description)
	require.NotNil(t, result.Raw)
	assert.Equal(t, `{"raw":true}`, *result.Raw)
}

func TestQuery_Track_SingleCarrier(t *testing.T) {
	dhl := mock.New("dhl")
	ups := mock.New("ups")
	resolver, _ := newTestResolver(dhl, ups)

	result, err := resolver.Query().Track(context.Background(), graphql.TrackArgs{TrackingNumber: "1Z", Carrier: "ups"})

	require.NoError(t, err)
	assert.Equal(t, "ups", result.Carrier)
	assert.Nil(t, result.Raw)
	assert.Zero(t, dhl.TrackCalls())
}

func TestQuery_Track_AllFailed(t *testing.T) {
	resolver, _ := newTestResolver(
		mock.New("dhl", mock.WithTrackingError(errors.New("dhl down"))),
		mock.New("ups", mock.WithTrackingError(errors.New("ups down"))),
	)

	_, err := resolver.Query().Track(context.Background(), graphql.TrackArgs{TrackingNumber: "1Z"})

	require.Error(t, err)
	assert.ErrorIs(t, err, shipper.ErrAllCarriersFailed)
	assert.Equal(t, "ALL_CARRIERS_FAILED", graphql.ErrorCode(err))
}

func TestQuery_Track_RequiresNumber(t *testing.T) {
	resolver, _ := newTestResolver()

	_, err := resolver.Query().Track(context.Background(), graphql.TrackArgs{})

	assert.ErrorIs(t, err, graphql.ErrInvalidInput)
}

func TestQuery_TrackBatch(t *testing.T) {
	known := shipper.NewTracking("dhl", "P", []shipper.TrackingActivity{
		{Status: shipper.ActivityInTransit, Description: "In transit"},
	})
	resolver, _ := newTestResolver(mock.New("dhl", mock.WithTrackingFor("A", known)))

	results, err := resolver.Query().TrackBatch(context.Background(), graphql.TrackBatchArgs{
		TrackingNumbers: []string{"A", "B"},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "SUCCESS", results[0].Status)
	assert.Equal(t, "A", results[0].TrackingNumber)
	require.NotNil(t, results[0].Tracking)
	assert.Equal(t, "IN_TRANSIT", results[0].Tracking.Status)
	assert.Equal(t, "ERROR", results[1].Status)
	assert.Nil(t, results[1].Tracking)
	require.NotNil(t, results[1].Error)
}

func TestQuery_TrackBatch_Validation(t *testing.T) {
	resolver, _ := newTestResolver()

	_, err := resolver.Query().TrackBatch(context.Background(), graphql.TrackBatchArgs{TrackingNumbers: []string{"A", ""}})

	assert.ErrorIs(t, err, graphql.ErrInvalidInput)
}

func TestQuery_AvailableServices(t *testing.T) {
	resolver, _ := newTestResolver()

	services, err := resolver.Query().AvailableServices(context.Background(), graphql.ServicesInput{
		Origin:      address("Atlanta", "30301", "US"),
		Destination: address("Toronto", "M5V1A1", "CA"),
	})

	require.NoError(t, err)
	require.Len(t, services, 6)
	assert.Equal(t, "dhl", services[0].Carrier)
	assert.Equal(t, "STANDARD", services[0].Type)
	assert.Equal(t, "ups", services[5].Carrier)
}

func TestQuery_AvailableServices_OneCarrier(t *testing.T) {
	resolver, _ := newTestResolver()

	services, err := resolver.Query().AvailableServices(context.Background(), graphql.ServicesInput{
		Carrier:     "fedex",
		Origin:      address("Atlanta", "30301", "US"),
		Destination: address("Toronto", "M5V1A1", "CA"),
	})

	require.NoError(t, err)
	require.Len(t, services, 2)
	for _, s := range services {
		assert.Equal(t, "fedex", s.Carrier)
	}
}

func TestQuery_AvailableServices_RecoversCarrierPanic(t *testing.T) {
	resolver, _ := newTestResolver(mock.New("bad", mock.WithPanic("nil map")), mock.New("dhl"))
	input := graphql.ServicesInput{
		Origin:      address("Atlanta", "30301", "US"),
		Destination: address("Toronto", "M5V1A1", "CA"),
	}

	services, err := resolver.Query().AvailableServices(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "dhl", services[0].Carrier)

	input.Carrier = "bad"
	_, err = resolver.Query().AvailableServices(context.Background(), input)
	var shipperErr *shipper.ShipperError
	require.ErrorAs(t, err, &shipperErr)
	assert.Equal(t, "PANIC", shipperErr.Code)
	assert.Equal(t, "bad", shipperErr.Carrier)
	assert.Equal(t, "CARRIER_ERROR", graphql.ErrorCode(err))
}

func createShipmentInput() graphql.CreateShipmentInput {
	return graphql.CreateShipmentInput{
		Carrier:          "ups",
		ServiceCode:      "03",
		Sender:           graphql.ContactInput{Name: "Ada"},
		SenderAddress:    address("Atlanta", "30301", "US"),
		Recipient:        graphql.ContactInput{Name: "Grace", Email: "grace@example.com"},
		RecipientAddress: address("Louisville", "40201", "US"),
		Packages:         []graphql.PackageInput{{Weight: 2, WeightUnit: "LB"}},
		LabelFormat:      "ZPL",
	}
}

func TestMutation_CreateShipment(t *testing.T) {
	resolver, metrics := newTestResolver()

	shipment, err := resolver.Mutation().CreateShipment(context.Background(), createShipmentInput())

	require.NoError(t, err)
	assert.Equal(t, "ups", shipment.Carrier)
	assert.Equal(t, "CONFIRMED", shipment.Status)
	assert.Equal(t, "15.82", shipment.Charge.Amount)
	require.Len(t, shipment.Labels, 1)
	assert.Equal(t, "ZPL", shipment.Labels[0].Format)
	assert.NotNil(t, shipment.Labels[0].URL)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("create_shipment", "ups", "success")))
}

func TestMutation_CreateShipment_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*graphql.CreateShipmentInput)
	}{
		{"no carrier", func(in *graphql.CreateShipmentInput) { in.Carrier = "" }},
		{"no recipient name", func(in *graphql.CreateShipmentInput) { in.Recipient.Name = "" }},
		{"bad email", func(in *graphql.CreateShipmentInput) { in.Recipient.Email = "grace" }},
		{"bad label format", func(in *graphql.CreateShipmentInput) { in.LabelFormat = "GIF" }},
		{"bad weight unit", func(in *graphql.CreateShipmentInput) { in.Packages[0].WeightUnit = "STONE" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, _ := newTestResolver()
			input := createShipmentInput()
			tt.mutate(&input)

			_, err := resolver.Mutation().CreateShipment(context.Background(), input)

			assert.ErrorIs(t, err, graphql.ErrInvalidInput)
		})
	}
}

func TestMutation_CreateShipment_UnknownCarrier(t *testing.T) {
	resolver, _ := newTestResolver()
	input := createShipmentInput()
	input.Carrier = "usps"

	_, err := resolver.Mutation().CreateShipment(context.Background(), input)

	assert.ErrorIs(t, err, shipper.ErrCarrierNotFound)
	assert.Equal(t, "CARRIER_NOT_FOUND", graphql.ErrorCode(err))
}

func TestMutation_CancelShipment(t *testing.T) {
	resolver, _ := newTestResolver()

	resp, err := resolver.Mutation().CancelShipment(context.Background(), graphql.CancelShipmentInput{
		Carrier:    "dhl",
		ShipmentID: "dhl-ship-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "dhl-ship-1", resp.ShipmentID)
	assert.Equal(t, "CANCELLED", resp.Status)
}

func TestMutation_CreatePickup(t *testing.T) {
	resolver, _ := newTestResolver()

	pickup, err := resolver.Mutation().CreatePickup(context.Background(), graphql.CreatePickupInput{
		Carrier:   "fedex",
		Address:   address("Memphis", "38101", "US"),
		Contact:   graphql.ContactInput{Name: "Ada"},
		ReadyTime: "2030-01-02T09:00:00Z",
		CloseTime: "2030-01-02T17:00:00Z",
	})

	require.NoError(t, err)
	assert.Equal(t, "fedex", pickup.Carrier)
	assert.Equal(t, "Memphis", pickup.Location)
	assert.Equal(t, time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC), pickup.ScheduledDate)
}

func TestMutation_CreatePickup_CloseBeforeReady(t *testing.T) {
	resolver, _ := newTestResolver()

	_, err := resolver.Mutation().CreatePickup(context.Background(), graphql.CreatePickupInput{
		Carrier:   "fedex",
		Address:   address("Memphis", "38101", "US"),
		Contact:   graphql.ContactInput{Name: "Ada"},
		ReadyTime: "2030-01-02T17:00:00Z",
		CloseTime: "2030-01-02T09:00:00Z",
	})

	assert.ErrorIs(t, err, graphql.ErrInvalidInput)
}

func TestMutation_CancelPickup(t *testing.T) {
	resolver, _ := newTestResolver()

	resp, err := resolver.Mutation().CancelPickup(context.Background(), graphql.CancelPickupInput{
		Carrier:            "ups",
		ConfirmationNumber: "2929602E9CP",
		ScheduledDate:      "2030-01-02",
	})

	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
	assert.Equal(t, "2929602E9CP", resp.ConfirmationNumber)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{graphql.ErrInvalidInput, "BAD_USER_INPUT"},
		{fmt.Errorf("%w: dhl", shipper.ErrDuplicateCarrier), "BAD_USER_INPUT"},
		{shipper.ErrCarrierNotFound, "CARRIER_NOT_FOUND"},
		{shipper.NewServiceError("ups", "151044", "x").WithCause(shipper.ErrTrackingNotFound), "TRACKING_NOT_FOUND"},
		{&shipper.AggregateError{Operation: "GetTrackingStatus"}, "ALL_CARRIERS_FAILED"},
		{context.DeadlineExceeded, "TIMEOUT"},
		{shipper.NewTransportError("dhl", "HTTP_502", "bad gateway"), "CARRIER_UNAVAILABLE"},
		{shipper.NewServiceError("fedex", "ERROR", "bad address"), "CARRIER_ERROR"},
		{errors.New("boom"), "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, graphql.ErrorCode(tt.err))
		})
	}
}
