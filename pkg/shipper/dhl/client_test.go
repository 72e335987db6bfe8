package dhl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/tournevent/parcelhub/pkg/shipper/dhl"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *dhl.MockAPIClient) *dhl.Client {
	logger := otelzap.New(zap.NewNop())
	return dhl.NewWithAPIClient(
		dhl.Config{AccountNumber: "123456789"},
		mockClient,
		logger,
		nil,
	)
}

func quoteRequest() *shipper.QuoteRequest {
	return &shipper.QuoteRequest{
		Origin:      shipper.Address{City: "Leipzig", PostalCode: "04109", CountryCode: "DE"},
		Destination: shipper.Address{City: "New York", PostalCode: "10001", CountryCode: "US"},
		Packages:    []shipper.Package{{Length: 30, Width: 20, Height: 10, Weight: 2.5}},
	}
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, "dhl", newTestClient(dhl.NewMockAPIClient()).Name())
}

func TestClient_GetQuotes_Success(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())

	quotes, err := client.GetQuotes(context.Background(), quoteRequest())

	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "dhl", quotes[0].Vendor)
	assert.Equal(t, "P", quotes[0].ServiceCode)
	assert.Equal(t, shipper.Money{Amount: 6420, Currency: "EUR"}, quotes[0].Amount)
	assert.Equal(t, shipper.ServiceExpress, quotes[0].ServiceType)
	require.NotNil(t, quotes[0].EstimatedDelivery)
	assert.Equal(t, time.Date(2030, 1, 3, 0, 0, 0, 0, time.UTC), *quotes[0].EstimatedDelivery)
	assert.Equal(t, shipper.ServiceEconomy, quotes[1].ServiceType)
}

func TestClient_GetQuotes_FiltersServiceTypes(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())
	req := quoteRequest()
	req.ServiceTypes = []shipper.ServiceType{shipper.ServiceEconomy}

	quotes, err := client.GetQuotes(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "H", quotes[0].ServiceCode)
}

func TestClient_GetQuotes_SendsUnits(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	var captured *dhl.RatesRequest
	mockAPI.OnGetRates = func(ctx context.Context, req *dhl.RatesRequest) (*dhl.RatesResponse, error) {
		captured = req
		return &dhl.RatesResponse{}, nil
	}
	client := newTestClient(mockAPI)

	req := quoteRequest()
	req.Packages[0].WeightUnit = shipper.WeightLB
	req.Packages[0].DimensionUnit = shipper.DimensionIN
	quotes, err := client.GetQuotes(context.Background(), req)

	require.NoError(t, err)
	assert.Empty(t, quotes)
	require.NotNil(t, captured)
	assert.Equal(t, "123456789", captured.AccountNumber)
	assert.Equal(t, "LB", captured.WeightUnit)
	assert.Equal(t, "IN", captured.Units)
	assert.Equal(t, "DE", captured.Origin.CountryCode)
	require.Len(t, captured.Pieces, 1)
	assert.Equal(t, 1, captured.Pieces[0].PieceID)
}

func TestClient_GetQuotes_InvalidPrice(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, req *dhl.RatesRequest) (*dhl.RatesResponse, error) {
		return &dhl.RatesResponse{Products: []dhl.Product{
			{GlobalProductCode: "P", TotalPrice: dhl.Price{Currency: "EUR", Amount: "n/a"}},
		}}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.GetQuotes(context.Background(), quoteRequest())

	assert.True(t, shipper.IsServiceError(err))
}

func TestClient_GetQuotes_TransportError(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.GetQuotes(context.Background(), quoteRequest())

	require.Error(t, err)
	assert.True(t, shipper.IsTransportError(err))
	assert.True(t, shipper.IsRetryable(err))
}

func TestClient_GetQuotes_ServiceError(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, req *dhl.RatesRequest) (*dhl.RatesResponse, error) {
		return nil, &dhl.APIError{Code: "420505", Message: "The destination location is invalid"}
	}
	client := newTestClient(mockAPI)

	_, err := client.GetQuotes(context.Background(), quoteRequest())

	var shipperErr *shipper.ShipperError
	require.ErrorAs(t, err, &shipperErr)
	assert.Equal(t, shipper.KindService, shipperErr.Kind)
	assert.Equal(t, "420505", shipperErr.Code)
	assert.Equal(t, "dhl", shipperErr.Carrier)
}

func TestClient_GetQuotes_NetworkError(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.OnGetRates = func(ctx context.Context, req *dhl.RatesRequest) (*dhl.RatesResponse, error) {
		return nil, errors.New("connection reset by peer")
	}
	client := newTestClient(mockAPI)

	_, err := client.GetQuotes(context.Background(), quoteRequest())

	assert.True(t, shipper.IsTransportError(err))
}

func TestClient_GetTrackingStatus_Success(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())

	tracking, err := client.GetTrackingStatus(context.Background(), "1234567890", shipper.TrackingOptions{})

	require.NoError(t, err)
	assert.Equal(t, "dhl", tracking.Vendor)
	assert.Equal(t, "P", tracking.ServiceCode)
	require.Len(t, tracking.Activities, 2)

	// Most recent first.
	assert.Equal(t, "Arrived at DHL facility", tracking.Activities[0].Description)
	assert.Equal(t, "CINCINNATI HUB", tracking.Activities[0].Location.City)
	assert.Equal(t, time.Date(2030, 1, 2, 6, 40, 0, 0, time.UTC), tracking.Activities[0].Timestamp)
	assert.True(t, tracking.Activities[0].Timestamp.After(tracking.Activities[1].Timestamp))
	assert.Empty(t, tracking.Raw)
	require.NotNil(t, tracking.EstimatedDelivery)
}

func TestClient_GetTrackingStatus_IncludeRaw(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())

	tracking, err := client.GetTrackingStatus(context.Background(), "1234567890", shipper.TrackingOptions{IncludeRaw: true})

	require.NoError(t, err)
	assert.Contains(t, tracking.Raw, "1234567890")
}

func TestClient_GetTrackingStatus_StatusMapping(t *testing.T) {
	tests := []struct {
		code     string
		expected shipper.ActivityStatus
	}{
		{"OK", shipper.ActivityDelivered},
		{"OH", shipper.ActivityException},
		{"RT", shipper.ActivityException},
		{"PU", shipper.ActivityInTransit},
		{"WC", shipper.ActivityInTransit},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			mockAPI := dhl.NewMockAPIClient()
			mockAPI.OnGetTracking = func(ctx context.Context, req *dhl.TrackingRequest) (*dhl.TrackingResponse, error) {
				return &dhl.TrackingResponse{AWBInfo: []dhl.AWBInfo{{
					AWBNumber: req.AWBNumber,
					Status:    dhl.AWBStatus{ActionStatus: "success"},
					Events: []dhl.ShipmentEvent{
						{Date: "2030-01-01", Time: "10:00:00", Code: tt.code, Description: "event"},
					},
				}}}, nil
			}
			client := newTestClient(mockAPI)

			tracking, err := client.GetTrackingStatus(context.Background(), "1", shipper.TrackingOptions{})

			require.NoError(t, err)
			latest, ok := tracking.Latest()
			require.True(t, ok)
			assert.Equal(t, tt.expected, latest.Status)
		})
	}
}

func TestClient_GetTrackingStatus_NotFound(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.OnGetTracking = func(ctx context.Context, req *dhl.TrackingRequest) (*dhl.TrackingResponse, error) {
		return &dhl.TrackingResponse{AWBInfo: []dhl.AWBInfo{{
			AWBNumber: req.AWBNumber,
			Status: dhl.AWBStatus{
				ActionStatus: "No Shipments Found",
				Conditions:   []dhl.Condition{{Code: "101", Message: "No Shipments Found for AWBNumber"}},
			},
		}}}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.GetTrackingStatus(context.Background(), "0000000000", shipper.TrackingOptions{})

	require.Error(t, err)
	assert.True(t, shipper.IsServiceError(err))
	assert.ErrorIs(t, err, shipper.ErrTrackingNotFound)
	assert.Contains(t, err.Error(), "101")
}

func TestClient_GetTrackingStatus_Language(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	var language string
	mockAPI.OnGetTracking = func(ctx context.Context, req *dhl.TrackingRequest) (*dhl.TrackingResponse, error) {
		language = req.LanguageCode
		return &dhl.TrackingResponse{AWBInfo: []dhl.AWBInfo{{Status: dhl.AWBStatus{ActionStatus: "success"}}}}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.GetTrackingStatus(context.Background(), "1", shipper.TrackingOptions{Language: "de"})
	require.NoError(t, err)
	assert.Equal(t, "de", language)

	_, err = client.GetTrackingStatus(context.Background(), "1", shipper.TrackingOptions{})
	require.NoError(t, err)
	assert.Equal(t, "en", language)
}

func TestClient_GetTrackingStatus_ContextCancelled(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	mockAPI.SimulateLatency = time.Minute
	client := newTestClient(mockAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.GetTrackingStatus(ctx, "1", shipper.TrackingOptions{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, shipper.IsTransportError(err))
}

func TestClient_CreateShipment_Success(t *testing.T) {
	mockAPI := dhl.NewMockAPIClient()
	var captured *dhl.ShipmentRequest
	mockAPI.OnCreateShipment = func(ctx context.Context, req *dhl.ShipmentRequest) (*dhl.ShipmentResponse, error) {
		captured = req
		return &dhl.ShipmentResponse{
			AirwayBillNumber:  "1234567890",
			GlobalProductCode: req.GlobalProductCode,
			ShippingCharge:    dhl.Price{Currency: "EUR", Amount: "64.20"},
			LabelImage:        dhl.LabelImage{Format: req.LabelImageFormat, Image: "ZPLDATA"},
		}, nil
	}
	client := newTestClient(mockAPI)

	shipment, err := client.CreateShipment(context.Background(), &shipper.ShipmentRequest{
		ServiceCode:      "P",
		Sender:           shipper.Contact{Name: "Anna Schmidt", Phone: "+49 341 000000"},
		SenderAddress:    shipper.Address{Line1: "Hauptstr. 1", City: "Leipzig", PostalCode: "04109", CountryCode: "DE"},
		Recipient:        shipper.Contact{Name: "John Doe", Company: "Acme"},
		RecipientAddress: shipper.Address{Line1: "1 Main St", City: "New York", PostalCode: "10001", CountryCode: "US"},
		Packages:         []shipper.Package{{Weight: 2}},
		LabelFormat:      shipper.LabelZPL,
	})

	require.NoError(t, err)
	assert.Equal(t, "1234567890", shipment.TrackingNumber)
	assert.Equal(t, shipper.StatusConfirmed, shipment.Status)
	assert.Equal(t, shipper.Money{Amount: 6420, Currency: "EUR"}, shipment.Charge)
	require.Len(t, shipment.Labels, 1)
	assert.Equal(t, shipper.LabelZPL, shipment.Labels[0].Format)
	assert.Equal(t, "ZPLDATA", shipment.Labels[0].Data)

	require.NotNil(t, captured)
	assert.Equal(t, "ZPL2", captured.LabelImageFormat)
	assert.Equal(t, "Anna Schmidt", captured.Shipper.CompanyName)
	assert.Equal(t, "Acme", captured.Consignee.CompanyName)
}

func TestClient_CancelShipment(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())

	resp, err := client.CancelShipment(context.Background(), &shipper.CancelShipmentRequest{
		ShipmentID: "1234567890",
		Reason:     "customer request",
	})

	require.NoError(t, err)
	assert.Equal(t, "1234567890", resp.ShipmentID)
	assert.Equal(t, shipper.StatusCancelled, resp.Status)
}

func TestClient_CreatePickup(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())
	ready := time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC)

	pickup, err := client.CreatePickup(context.Background(), &shipper.PickupRequest{
		Address:   shipper.Address{City: "Leipzig", CountryCode: "DE"},
		Contact:   shipper.Contact{Name: "Anna Schmidt"},
		ReadyTime: ready,
		CloseTime: ready.Add(6 * time.Hour),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, pickup.ConfirmationNumber)
	assert.Equal(t, "dhl", pickup.Vendor)
	assert.Equal(t, "2030-01-02", pickup.ScheduledDate.Format("2006-01-02"))
	assert.Equal(t, "EUR", pickup.Charge.Currency)
}

func TestClient_CancelPickup(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())

	resp, err := client.CancelPickup(context.Background(), &shipper.CancelPickupRequest{ConfirmationNumber: "PRG123"})

	require.NoError(t, err)
	assert.Equal(t, "PRG123", resp.ConfirmationNumber)
	assert.True(t, resp.Cancelled)
}

func TestClient_GetAvailableServices(t *testing.T) {
	client := newTestClient(dhl.NewMockAPIClient())

	domestic, err := client.GetAvailableServices(context.Background(), &shipper.ServicesRequest{
		Origin:      shipper.Address{CountryCode: "DE"},
		Destination: shipper.Address{CountryCode: "DE"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, domestic)
	assert.Equal(t, "N", domestic[0].Code)

	international, err := client.GetAvailableServices(context.Background(), &shipper.ServicesRequest{
		Origin:      shipper.Address{CountryCode: "DE"},
		Destination: shipper.Address{CountryCode: "US"},
	})
	require.NoError(t, err)
	for _, s := range international {
		assert.NotEqual(t, "N", s.Code)
		assert.Equal(t, "dhl", s.Vendor)
	}
}
