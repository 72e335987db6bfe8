package ups

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/parcelhub/pkg/shipper/internal/transport"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnShop           func(ctx context.Context, req *RateRequest) (*RateResponse, error)
	OnTrack          func(ctx context.Context, inquiryNumber string, locale string) (*TrackResponse, error)
	OnShip           func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnVoid           func(ctx context.Context, shipmentID string) (*VoidResponse, error)
	OnSchedulePickup func(ctx context.Context, req *PickupRequest) (*PickupResponse, error)
	OnCancelPickup   func(ctx context.Context, prn string) (*CancelPickupResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate(ctx context.Context) error {
	if err := transport.Sleep(ctx, m.SimulateLatency); err != nil {
		return err
	}
	if m.SimulateErrors {
		return &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", StatusCode: 500}
	}
	return nil
}

// Shop returns mock UPS rates.
func (m *MockAPIClient) Shop(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnShop != nil {
		return m.OnShop(ctx, req)
	}

	return &RateResponse{
		RatedShipment: []RatedShipment{
			{
				Service:      Code{Code: "03"},
				TotalCharges: Charge{CurrencyCode: "USD", MonetaryValue: "16.27"},
				ArrivalDate:  "20300106",
			},
			{
				Service:            Code{Code: "02"},
				TotalCharges:       Charge{CurrencyCode: "USD", MonetaryValue: "41.08"},
				GuaranteedDelivery: &GuaranteedDelivery{BusinessDaysInTransit: "2", DeliveryByTime: "11:59 P.M."},
				ArrivalDate:        "20300103",
			},
		},
	}, nil
}

// Track returns a mock activity history, most recent first.
func (m *MockAPIClient) Track(ctx context.Context, inquiryNumber string, locale string) (*TrackResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrack != nil {
		return m.OnTrack(ctx, inquiryNumber, locale)
	}

	latest := Activity{
		Status: ActivityStatus{Type: "I", Code: "AR", Description: "Arrived at Facility"},
		Date:   "20300102",
		Time:   "211500",
	}
	latest.Location.Address.City = "Louisville"
	latest.Location.Address.StateProvince = "KY"
	latest.Location.Address.Country = "US"

	first := Activity{
		Status: ActivityStatus{Type: "P", Code: "XA", Description: "Picked up"},
		Date:   "20300101",
		Time:   "163000",
	}
	first.Location.Address.City = "Atlanta"
	first.Location.Address.StateProvince = "GA"
	first.Location.Address.Country = "US"

	return &TrackResponse{
		Shipments: []TrackShipment{
			{
				InquiryNumber: inquiryNumber,
				Packages: []TrackPackage{
					{
						TrackingNumber: inquiryNumber,
						Service:        TrackService{Code: "003", Description: "UPS Ground"},
						DeliveryDate:   []DeliveryDate{{Type: "SDD", Date: "20300106"}},
						Activity:       []Activity{latest, first},
					},
				},
			},
		},
		Raw: fmt.Sprintf(`{"trackResponse":{"shipment":[{"inquiryNumber":%q}]}}`, inquiryNumber),
	}, nil
}

// Ship creates a mock shipment.
func (m *MockAPIClient) Ship(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnShip != nil {
		return m.OnShip(ctx, req)
	}

	id := fmt.Sprintf("1Z999AA1%010d", uuid.New().ID())
	results := make([]PackageResult, len(req.Packages))
	for i := range results {
		results[i] = PackageResult{TrackingNumber: id, GraphicImage: "R0lGODlhAQABAAAAACw="}
	}
	return &ShipmentResponse{
		ShipmentIdentificationNumber: id,
		ShipmentCharges:              Charge{CurrencyCode: "USD", MonetaryValue: "16.27"},
		PackageResults:               results,
	}, nil
}

// Void cancels a mock shipment.
func (m *MockAPIClient) Void(ctx context.Context, shipmentID string) (*VoidResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnVoid != nil {
		return m.OnVoid(ctx, shipmentID)
	}

	return &VoidResponse{Status: Code{Code: "1", Description: "Voided"}}, nil
}

// SchedulePickup creates a mock pickup.
func (m *MockAPIClient) SchedulePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnSchedulePickup != nil {
		return m.OnSchedulePickup(ctx, req)
	}

	return &PickupResponse{
		PRN:        "2929" + uuid.New().String()[:6],
		RateResult: &Charge{CurrencyCode: "USD", MonetaryValue: "6.95"},
	}, nil
}

// CancelPickup cancels a mock pickup.
func (m *MockAPIClient) CancelPickup(ctx context.Context, prn string) (*CancelPickupResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancelPickup != nil {
		return m.OnCancelPickup(ctx, prn)
	}

	return &CancelPickupResponse{PRN: prn, Status: Code{Code: "1", Description: "Success"}}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
