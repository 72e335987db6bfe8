// Package shipper provides an abstraction layer for shipping carriers.
package shipper

import (
	"context"
)

// QuoteProvider returns shipping rate quotes.
type QuoteProvider interface {
	// GetQuotes returns zero or more quotes for a shipment.
	GetQuotes(ctx context.Context, req *QuoteRequest) ([]Quote, error)
}

// Tracker returns tracking information for a tracking number.
type Tracker interface {
	// GetTrackingStatus returns the tracking history for a tracking number.
	GetTrackingStatus(ctx context.Context, trackingNumber string, opts TrackingOptions) (*Tracking, error)
}

// Service is the read-only subset of the carrier capability set. It can be
// fanned out across several carriers, see CompositeService.
type Service interface {
	// Name returns the carrier identifier (e.g., "dhl", "fedex", "ups").
	Name() string

	QuoteProvider
	Tracker
}

// Shipper defines the interface that all shipping carriers must implement.
//
// Operations beyond Service commit the caller to a carrier, so they are
// invoked on one explicitly selected Shipper.
type Shipper interface {
	Service

	// CreateShipment books a shipment and returns its labels.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*Shipment, error)

	// CancelShipment cancels an existing shipment.
	CancelShipment(ctx context.Context, req *CancelShipmentRequest) (*CancelShipmentResponse, error)

	// CreatePickup schedules a courier pickup.
	CreatePickup(ctx context.Context, req *PickupRequest) (*Pickup, error)

	// CancelPickup cancels a scheduled pickup.
	CancelPickup(ctx context.Context, req *CancelPickupRequest) (*CancelPickupResponse, error)

	// GetAvailableServices lists the services the carrier offers for a lane.
	GetAvailableServices(ctx context.Context, req *ServicesRequest) ([]ServiceOption, error)
}
