package fedex

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

	OnGetRates        func(ctx context.Context, req *RateRequest) (*RateReply, error)
	OnTrack           func(ctx context.Context, req *TrackRequest) (*TrackReply, error)
	OnProcessShipment func(ctx context.Context, req *ShipmentRequest) (*ShipmentReply, error)
	OnDeleteShipment  func(ctx context.Context, req *DeleteShipmentRequest) (*DeleteShipmentReply, error)
	OnCreatePickup    func(ctx context.Context, req *PickupRequest) (*PickupReply, error)
	OnCancelPickup    func(ctx context.Context, req *CancelPickupRequest) (*CancelPickupReply, error)
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
		return &APIError{Code: "MOCK_ERROR", Message: "Simulated API error", StatusCode: 503}
	}
	return nil
}

// GetRates returns mock FedEx rates.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RateRequest) (*RateReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	return &RateReply{
		HighestSeverity: SeveritySuccess,
		RateReplyDetails: []RateReplyDetail{
			{
				ServiceType:       "FEDEX_GROUND",
				ServiceName:       "FedEx Ground",
				TransitTime:       "FIVE_DAYS",
				DeliveryTimestamp: "2030-01-06T20:00:00Z",
				TotalNetCharge:    Money{Currency: "USD", Amount: "18.41"},
			},
			{
				ServiceType:       "FEDEX_2_DAY",
				ServiceName:       "FedEx 2Day",
				TransitTime:       "TWO_DAYS",
				DeliveryTimestamp: "2030-01-03T20:00:00Z",
				TotalNetCharge:    Money{Currency: "USD", Amount: "34.17"},
			},
			{
				ServiceType:       "PRIORITY_OVERNIGHT",
				ServiceName:       "FedEx Priority Overnight",
				TransitTime:       "ONE_DAY",
				DeliveryTimestamp: "2030-01-02T15:30:00Z",
				TotalNetCharge:    Money{Currency: "USD", Amount: "71.90"},
			},
		},
	}, nil
}

// Track returns a mock scan history, most recent first.
func (m *MockAPIClient) Track(ctx context.Context, req *TrackRequest) (*TrackReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrack != nil {
		return m.OnTrack(ctx, req)
	}

	return &TrackReply{
		HighestSeverity: SeveritySuccess,
		TrackDetails: []TrackDetail{
			{
				Notification:               Notification{Severity: SeveritySuccess, Code: "0"},
				TrackingNumber:             req.TrackingNumber,
				ServiceType:                "FEDEX_GROUND",
				StatusCode:                 "IT",
				EstimatedDeliveryTimestamp: "2030-01-06T20:00:00Z",
				Events: []TrackEvent{
					{
						Timestamp:        "2030-01-02T09:30:00-06:00",
						EventType:        "DP",
						EventDescription: "Departed FedEx location",
						Address:          Address{City: "MEMPHIS", StateOrProvinceCode: "TN", PostalCode: "38118", CountryCode: "US"},
					},
					{
						Timestamp:        "2030-01-01T17:05:00-05:00",
						EventType:        "PU",
						EventDescription: "Picked up",
						Address:          Address{City: "NEW YORK", StateOrProvinceCode: "NY", PostalCode: "10001", CountryCode: "US"},
					},
				},
			},
		},
		Raw: fmt.Sprintf("<TrackReply><TrackingNumber>%s</TrackingNumber></TrackReply>", req.TrackingNumber),
	}, nil
}

// ProcessShipment creates a mock shipment.
func (m *MockAPIClient) ProcessShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnProcessShipment != nil {
		return m.OnProcessShipment(ctx, req)
	}

	return &ShipmentReply{
		HighestSeverity: SeveritySuccess,
		ServiceType:     req.ServiceType,
		TrackingNumber:  fmt.Sprintf("7%011d", uuid.New().ID()),
		Label:           "JVBERi0xLjQK",
		NetCharge:       Money{Currency: "USD", Amount: "18.41"},
		DeliveryDate:    "2030-01-06",
	}, nil
}

// DeleteShipment cancels a mock shipment.
func (m *MockAPIClient) DeleteShipment(ctx context.Context, req *DeleteShipmentRequest) (*DeleteShipmentReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnDeleteShipment != nil {
		return m.OnDeleteShipment(ctx, req)
	}

	return &DeleteShipmentReply{HighestSeverity: SeveritySuccess}, nil
}

// CreatePickup schedules a mock pickup.
func (m *MockAPIClient) CreatePickup(ctx context.Context, req *PickupRequest) (*PickupReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreatePickup != nil {
		return m.OnCreatePickup(ctx, req)
	}

	return &PickupReply{
		HighestSeverity:          SeveritySuccess,
		PickupConfirmationNumber: fmt.Sprintf("%d", 1000+uuid.New().ID()%9000),
		Location:                 "NQAA",
	}, nil
}

// CancelPickup cancels a mock pickup.
func (m *MockAPIClient) CancelPickup(ctx context.Context, req *CancelPickupRequest) (*CancelPickupReply, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancelPickup != nil {
		return m.OnCancelPickup(ctx, req)
	}

	return &CancelPickupReply{HighestSeverity: SeveritySuccess}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
