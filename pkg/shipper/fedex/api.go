package fedex

import (
	"context"
	"fmt"
	"strings"
)

// APIClient defines the interface for FedEx Web Services operations.
// This abstraction allows for mock implementations during testing
// and real SOAP implementations in production.
type APIClient interface {
	// GetRates fetches rates via RateService
	GetRates(ctx context.Context, req *RateRequest) (*RateReply, error)

	// Track retrieves scan events via TrackService
	Track(ctx context.Context, req *TrackRequest) (*TrackReply, error)

	// ProcessShipment creates a shipment and its label via ShipService
	ProcessShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentReply, error)

	// DeleteShipment cancels a shipment via ShipService
	DeleteShipment(ctx context.Context, req *DeleteShipmentRequest) (*DeleteShipmentReply, error)

	// CreatePickup schedules a courier pickup via PickupService
	CreatePickup(ctx context.Context, req *PickupRequest) (*PickupReply, error)

	// CancelPickup cancels a pickup via PickupService
	CancelPickup(ctx context.Context, req *CancelPickupRequest) (*CancelPickupReply, error)
}

// ============================================================================
// API Request/Response Types (match FedEx SOAP structure)
// ============================================================================

// Severity levels FedEx reports in HighestSeverity.
const (
	SeveritySuccess = "SUCCESS"
	SeverityNote    = "NOTE"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
	SeverityFailure = "FAILURE"
)

// Notification is a FedEx reply message.
type Notification struct {
	Severity string `xml:"Severity"`
	Source   string `xml:"Source"`
	Code     string `xml:"Code"`
	Message  string `xml:"Message"`
}

// Address is a FedEx postal address.
type Address struct {
	StreetLines         []string `xml:"StreetLines"`
	City                string   `xml:"City"`
	StateOrProvinceCode string   `xml:"StateOrProvinceCode"`
	PostalCode          string   `xml:"PostalCode"`
	CountryCode         string   `xml:"CountryCode"`
	Residential         bool     `xml:"Residential"`
}

// Party is a shipper, recipient or pickup location.
type Party struct {
	PersonName  string
	CompanyName string
	PhoneNumber string
	Address     Address
}

// PackageLineItem is a single parcel.
type PackageLineItem struct {
	SequenceNumber int
	Weight         float64
	WeightUnits    string // "KG" or "LB"
	Length         int
	Width          int
	Height         int
	DimensionUnits string // "CM" or "IN"
}

// Money is a FedEx charge.
type Money struct {
	Currency string `xml:"Currency"`
	Amount   string `xml:"Amount"`
}

// RateRequest represents a FedEx rate request.
type RateRequest struct {
	AccountNumber string
	MeterNumber   string
	ShipTimestamp string
	Shipper       Address
	Recipient     Address
	Packages      []PackageLineItem
}

// RateReply represents the FedEx rate reply.
type RateReply struct {
	HighestSeverity  string            `xml:"HighestSeverity"`
	Notifications    []Notification    `xml:"Notifications"`
	RateReplyDetails []RateReplyDetail `xml:"RateReplyDetails"`
}

// RateReplyDetail is the quote for one service.
type RateReplyDetail struct {
	ServiceType       string `xml:"ServiceType"`
	ServiceName       string `xml:"ServiceDescription>Description"`
	DeliveryTimestamp string `xml:"DeliveryTimestamp"`
	TransitTime       string `xml:"TransitTime"` // e.g. "TWO_DAYS"
	TotalNetCharge    Money  `xml:"RatedShipmentDetails>ShipmentRateDetail>TotalNetCharge"`
}

// TrackRequest represents a FedEx track request.
type TrackRequest struct {
	AccountNumber        string
	MeterNumber          string
	TrackingNumber       string
	Language             string
	IncludeDetailedScans bool
}

// TrackReply represents the FedEx track reply.
type TrackReply struct {
	HighestSeverity string         `xml:"HighestSeverity"`
	Notifications   []Notification `xml:"Notifications"`
	TrackDetails    []TrackDetail  `xml:"CompletedTrackDetails>TrackDetails"`

	// Raw is the SOAP response body as received.
	Raw string `xml:"-"`
}

// TrackDetail is the scan history of one package.
type TrackDetail struct {
	Notification               Notification `xml:"Notification"`
	TrackingNumber             string       `xml:"TrackingNumber"`
	ServiceType                string       `xml:"Service>Type"`
	StatusCode                 string       `xml:"StatusDetail>Code"`
	EstimatedDeliveryTimestamp string       `xml:"EstimatedDeliveryTimestamp"`
	Events                     []TrackEvent `xml:"Events"`
}

// TrackEvent is a single scan. FedEx lists events most recent first.
type TrackEvent struct {
	Timestamp        string  `xml:"Timestamp"`
	EventType        string  `xml:"EventType"`
	EventDescription string  `xml:"EventDescription"`
	Address          Address `xml:"Address"`
}

// ShipmentRequest represents a FedEx process shipment request.
type ShipmentRequest struct {
	AccountNumber     string
	MeterNumber       string
	ShipTimestamp     string
	ServiceType       string
	Shipper           Party
	Recipient         Party
	Packages          []PackageLineItem
	CustomerReference string
	LabelImageType    string // "PDF", "PNG", "ZPLII"
}

// ShipmentReply represents the FedEx process shipment reply.
type ShipmentReply struct {
	HighestSeverity string         `xml:"HighestSeverity"`
	Notifications   []Notification `xml:"Notifications"`
	ServiceType     string         `xml:"CompletedShipmentDetail>ServiceTypeDescription"`
	TrackingNumber  string         `xml:"CompletedShipmentDetail>CompletedPackageDetails>TrackingIds>TrackingNumber"`
	Label           string         `xml:"CompletedShipmentDetail>CompletedPackageDetails>Label>Parts>Image"`
	NetCharge       Money          `xml:"CompletedShipmentDetail>ShipmentRating>ShipmentRateDetails>TotalNetCharge"`
	DeliveryDate    string         `xml:"CompletedShipmentDetail>OperationalDetail>DeliveryDate"`
}

// DeleteShipmentRequest represents a FedEx delete shipment request.
type DeleteShipmentRequest struct {
	AccountNumber  string
	MeterNumber    string
	TrackingNumber string
}

// DeleteShipmentReply represents the FedEx delete shipment reply.
type DeleteShipmentReply struct {
	HighestSeverity string         `xml:"HighestSeverity"`
	Notifications   []Notification `xml:"Notifications"`
}

// PickupRequest represents a FedEx create pickup request.
type PickupRequest struct {
	AccountNumber       string
	MeterNumber         string
	Location            Party
	ReadyTimestamp      string
	CompanyCloseTime    string // "15:04:05"
	PackageCount        int
	TotalWeight         float64
	CourierRemarks      string
	CarrierCode         string // "FDXE" or "FDXG"
	CountryRelationship string // "DOMESTIC" or "INTERNATIONAL"
}

// PickupReply represents the FedEx create pickup reply.
type PickupReply struct {
	HighestSeverity          string         `xml:"HighestSeverity"`
	Notifications            []Notification `xml:"Notifications"`
	PickupConfirmationNumber string         `xml:"PickupConfirmationNumber"`
	Location                 string         `xml:"Location"`
}

// CancelPickupRequest represents a FedEx cancel pickup request.
type CancelPickupRequest struct {
	AccountNumber            string
	MeterNumber              string
	PickupConfirmationNumber string
	ScheduledDate            string
	Location                 string
	Remarks                  string
}

// CancelPickupReply represents the FedEx cancel pickup reply.
type CancelPickupReply struct {
	HighestSeverity string         `xml:"HighestSeverity"`
	Notifications   []Notification `xml:"Notifications"`
}

// APIError represents an error from the FedEx API. A zero StatusCode means
// FedEx answered but reported a business error.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return e.Code + ": " + e.Message
}

// severityError returns an APIError for ERROR and FAILURE replies.
func severityError(severity string, notifications []Notification) error {
	if severity != SeverityError && severity != SeverityFailure {
		return nil
	}
	for _, n := range notifications {
		if n.Severity == SeverityError || n.Severity == SeverityFailure {
			return &APIError{Code: n.Code, Message: strings.TrimSpace(n.Message)}
		}
	}
	return &APIError{Code: severity, Message: "request failed"}
}
