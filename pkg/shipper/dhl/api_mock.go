package dhl

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

	OnGetRates       func(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
	OnGetTracking    func(ctx context.Context, req *TrackingRequest) (*TrackingResponse, error)
	OnCreateShipment func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnDeleteShipment func(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error)
	OnBookPickup     func(ctx context.Context, req *PickupRequest) (*PickupResponse, error)
	OnCancelPickup   func(ctx context.Context, req *CancelPickupRequest) (*CancelPickupResponse, error)
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

// GetRates returns mock DHL products.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	currency := "EUR"
	if req.Origin.CountryCode == "US" {
		currency = "USD"
	}
	return &RatesResponse{
		Products: []Product{
			{
				GlobalProductCode: "P",
				ProductName:       "EXPRESS WORLDWIDE",
				TotalPrice:        Price{Currency: currency, Amount: "64.20"},
				TransitDays:       2,
				DeliveryDate:      "2030-01-03",
			},
			{
				GlobalProductCode: "H",
				ProductName:       "ECONOMY SELECT",
				TotalPrice:        Price{Currency: currency, Amount: "38.75"},
				TransitDays:       5,
				DeliveryDate:      "2030-01-06",
			},
		},
	}, nil
}

// GetTracking returns a mock checkpoint history, oldest event first.
func (m *MockAPIClient) GetTracking(ctx context.Context, req *TrackingRequest) (*TrackingResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, req)
	}

	return &TrackingResponse{
		AWBInfo: []AWBInfo{
			{
				AWBNumber:         req.AWBNumber,
				Status:            AWBStatus{ActionStatus: actionSuccess},
				ProductCode:       "P",
				EstimatedDelivery: "2030-01-03 18:00:00",
				Events: []ShipmentEvent{
					{
						Date:        "2030-01-01",
						Time:        "08:15:00",
						Code:        "PU",
						Description: "Shipment picked up",
						ServiceArea: ServiceArea{Code: "LEJ", Description: "LEIPZIG - GERMANY"},
					},
					{
						Date:        "2030-01-02",
						Time:        "06:40:00",
						Code:        "AF",
						Description: "Arrived at DHL facility",
						ServiceArea: ServiceArea{Code: "CVG", Description: "CINCINNATI HUB - USA"},
					},
				},
			},
		},
		Raw: fmt.Sprintf("<TrackingResponse><AWBInfo><AWBNumber>%s</AWBNumber></AWBInfo></TrackingResponse>", req.AWBNumber),
	}, nil
}

// CreateShipment creates a mock shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}

	return &ShipmentResponse{
		AirwayBillNumber:  fmt.Sprintf("%010d", uuid.New().ID()),
		GlobalProductCode: req.GlobalProductCode,
		ShippingCharge:    Price{Currency: "EUR", Amount: "64.20"},
		DeliveryDate:      "2030-01-03",
		LabelImage:        LabelImage{Format: req.LabelImageFormat, Image: "JVBERi0xLjQK"},
	}, nil
}

// DeleteShipment cancels a mock shipment.
func (m *MockAPIClient) DeleteShipment(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnDeleteShipment != nil {
		return m.OnDeleteShipment(ctx, req)
	}

	return &DeleteResponse{
		AirwayBillNumber: req.AirwayBillNumber,
		Status:           "deleted",
	}, nil
}

// BookPickup books a mock pickup.
func (m *MockAPIClient) BookPickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnBookPickup != nil {
		return m.OnBookPickup(ctx, req)
	}

	return &PickupResponse{
		ConfirmationNumber: "PRG" + uuid.New().String()[:8],
		PickupDate:         req.PickupDate,
		OriginSvcArea:      "LEJ",
		PickupCharge:       Price{Currency: "EUR", Amount: "0.00"},
	}, nil
}

// CancelPickup cancels a mock pickup.
func (m *MockAPIClient) CancelPickup(ctx context.Context, req *CancelPickupRequest) (*CancelPickupResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancelPickup != nil {
		return m.OnCancelPickup(ctx, req)
	}

	return &CancelPickupResponse{ConfirmationNumber: req.ConfirmationNumber}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
