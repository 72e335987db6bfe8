package dhl

import (
	"context"
	"encoding/xml"
	"fmt"
)

// APIClient defines the interface for DHL Express XML API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// GetRates fetches product quotes for a lane
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)

	// GetTracking retrieves the checkpoint history of an air waybill
	GetTracking(ctx context.Context, req *TrackingRequest) (*TrackingResponse, error)

	// CreateShipment books a shipment and returns its label
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// DeleteShipment cancels a shipment that has not been picked up
	DeleteShipment(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error)

	// BookPickup schedules a courier pickup
	BookPickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error)

	// CancelPickup cancels a booked pickup
	CancelPickup(ctx context.Context, req *CancelPickupRequest) (*CancelPickupResponse, error)
}

// ============================================================================
// API Request/Response Types (match DHL XML structure)
// ============================================================================

// Location is an origin or destination on a rate request.
type Location struct {
	CountryCode string `xml:"CountryCode"`
	PostalCode  string `xml:"Postalcode,omitempty"`
	City        string `xml:"City,omitempty"`
}

// Piece is a single parcel.
type Piece struct {
	PieceID int     `xml:"PieceID"`
	Weight  float64 `xml:"Weight"`
	Length  float64 `xml:"Depth,omitempty"`
	Width   float64 `xml:"Width,omitempty"`
	Height  float64 `xml:"Height,omitempty"`
}

// Price is an amount in a currency, e.g. <TotalPrice currency="EUR">12.50</TotalPrice>.
type Price struct {
	Currency string `xml:"currency,attr"`
	Amount   string `xml:",chardata"`
}

// Condition is a DHL error or warning note.
type Condition struct {
	Code    string `xml:"ConditionCode"`
	Message string `xml:"ConditionData"`
}

// RatesRequest represents a DHL rate quote request.
type RatesRequest struct {
	XMLName       xml.Name `xml:"RateRequest"`
	AccountNumber string   `xml:"PaymentAccountNumber"`
	Origin        Location `xml:"From"`
	Destination   Location `xml:"To"`
	ShipDate      string   `xml:"Date"`
	Units         string   `xml:"DimensionUnit"` // "CM" or "IN"
	WeightUnit    string   `xml:"WeightUnit"`    // "KG" or "LB"
	Pieces        []Piece  `xml:"Pieces>Piece"`
}

// RatesResponse represents the DHL rate quote response.
type RatesResponse struct {
	XMLName    xml.Name    `xml:"RateResponse"`
	Products   []Product   `xml:"Product"`
	Conditions []Condition `xml:"Note>Condition"`
}

// Product is a quoted DHL product.
type Product struct {
	GlobalProductCode string `xml:"GlobalProductCode"`
	ProductName       string `xml:"ProductShortName"`
	TotalPrice        Price  `xml:"ShippingCharge"`
	TransitDays       int    `xml:"TotalTransitDays"`
	DeliveryDate      string `xml:"DeliveryDate"`
}

// TrackingRequest represents a DHL known-tracking request.
type TrackingRequest struct {
	XMLName        xml.Name `xml:"KnownTrackingRequest"`
	LanguageCode   string   `xml:"LanguageCode"`
	AWBNumber      string   `xml:"AWBNumber"`
	LevelOfDetails string   `xml:"LevelOfDetails"`
}

// TrackingResponse represents DHL tracking information.
type TrackingResponse struct {
	XMLName xml.Name  `xml:"TrackingResponse"`
	AWBInfo []AWBInfo `xml:"AWBInfo"`

	// Raw is the response body as received.
	Raw string `xml:"-"`
}

// AWBInfo is the tracking state of one air waybill.
type AWBInfo struct {
	AWBNumber         string          `xml:"AWBNumber"`
	Status            AWBStatus       `xml:"Status"`
	ProductCode       string          `xml:"ShipmentInfo>GlobalProductCode"`
	EstimatedDelivery string          `xml:"ShipmentInfo>EstDlvyDate"`
	Events            []ShipmentEvent `xml:"ShipmentInfo>ShipmentEvent"`
}

// AWBStatus reports whether the waybill was found.
type AWBStatus struct {
	ActionStatus string      `xml:"ActionStatus"` // "success" or "No Shipments Found"
	Conditions   []Condition `xml:"Condition"`
}

// ShipmentEvent is a single checkpoint. DHL lists events oldest first.
type ShipmentEvent struct {
	Date        string      `xml:"Date"`
	Time        string      `xml:"Time"`
	Code        string      `xml:"ServiceEvent>EventCode"`
	Description string      `xml:"ServiceEvent>Description"`
	ServiceArea ServiceArea `xml:"ServiceArea"`
}

// ServiceArea is the DHL facility where an event happened.
type ServiceArea struct {
	Code        string `xml:"ServiceAreaCode"`
	Description string `xml:"Description"` // e.g. "LEIPZIG - GERMANY"
}

// Party is a shipper, consignee or pickup location.
type Party struct {
	CompanyName  string `xml:"CompanyName"`
	PersonName   string `xml:"Contact>PersonName"`
	PhoneNumber  string `xml:"Contact>PhoneNumber"`
	Email        string `xml:"Contact>Email,omitempty"`
	AddressLine1 string `xml:"AddressLine1"`
	AddressLine2 string `xml:"AddressLine2,omitempty"`
	City         string `xml:"City"`
	Division     string `xml:"DivisionCode,omitempty"`
	PostalCode   string `xml:"PostalCode"`
	CountryCode  string `xml:"CountryCode"`
}

// ShipmentRequest represents a DHL shipment validation request.
type ShipmentRequest struct {
	XMLName           xml.Name `xml:"ShipmentRequest"`
	AccountNumber     string   `xml:"Billing>ShipperAccountNumber"`
	GlobalProductCode string   `xml:"ShipmentDetails>GlobalProductCode"`
	ShipDate          string   `xml:"ShipmentDetails>Date"`
	Pieces            []Piece  `xml:"ShipmentDetails>Pieces>Piece"`
	Shipper           Party    `xml:"Shipper"`
	Consignee         Party    `xml:"Consignee"`
	Reference         string   `xml:"Reference>ReferenceID,omitempty"`
	LabelImageFormat  string   `xml:"LabelImageFormat"` // "PDF", "ZPL2", "PNG"
}

// ShipmentResponse represents the DHL shipment response.
type ShipmentResponse struct {
	XMLName           xml.Name    `xml:"ShipmentResponse"`
	AirwayBillNumber  string      `xml:"AirwayBillNumber"`
	GlobalProductCode string      `xml:"GlobalProductCode"`
	ShippingCharge    Price       `xml:"ShippingCharge"`
	DeliveryDate      string      `xml:"DeliveryDate"`
	LabelImage        LabelImage  `xml:"LabelImage"`
	Conditions        []Condition `xml:"Note>Condition"`
}

// LabelImage is a base64 encoded label.
type LabelImage struct {
	Format string `xml:"OutputFormat"`
	Image  string `xml:"OutputImage"`
}

// DeleteRequest represents a DHL shipment deletion request.
type DeleteRequest struct {
	XMLName          xml.Name `xml:"DeleteShipmentRequest"`
	AirwayBillNumber string   `xml:"AirwayBillNumber"`
	Reason           string   `xml:"Reason,omitempty"`
}

// DeleteResponse represents the DHL shipment deletion response.
type DeleteResponse struct {
	XMLName          xml.Name    `xml:"DeleteShipmentResponse"`
	AirwayBillNumber string      `xml:"AirwayBillNumber"`
	Status           string      `xml:"Status"` // "deleted"
	Conditions       []Condition `xml:"Note>Condition"`
}

// PickupRequest represents a DHL book pickup request.
type PickupRequest struct {
	XMLName       xml.Name `xml:"BookPURequest"`
	AccountNumber string   `xml:"Requestor>AccountNumber"`
	Place         Party    `xml:"Place"`
	PickupDate    string   `xml:"Pickup>PickupDate"`
	ReadyByTime   string   `xml:"Pickup>ReadyByTime"` // "15:04"
	CloseTime     string   `xml:"Pickup>CloseTime"`
	Pieces        int      `xml:"Pickup>Pieces"`
	Remarks       string   `xml:"Pickup>SpecialInstructions,omitempty"`
}

// PickupResponse represents the DHL book pickup response.
type PickupResponse struct {
	XMLName            xml.Name    `xml:"BookPUResponse"`
	ConfirmationNumber string      `xml:"ConfirmationNumber"`
	PickupDate         string      `xml:"NextPickupDate"`
	OriginSvcArea      string      `xml:"OriginSvcArea"`
	PickupCharge       Price       `xml:"PickupCharge"`
	Conditions         []Condition `xml:"Note>Condition"`
}

// CancelPickupRequest represents a DHL cancel pickup request.
type CancelPickupRequest struct {
	XMLName            xml.Name `xml:"CancelPURequest"`
	ConfirmationNumber string   `xml:"ConfirmationNumber"`
	PickupDate         string   `xml:"PickupDate"`
	Reason             string   `xml:"Reason"`
}

// CancelPickupResponse represents the DHL cancel pickup response.
type CancelPickupResponse struct {
	XMLName            xml.Name    `xml:"CancelPUResponse"`
	ConfirmationNumber string      `xml:"ConfirmationNumber"`
	Conditions         []Condition `xml:"Note>Condition"`
}

// APIError represents an error from the DHL API. A zero StatusCode means
// DHL answered but reported a business error.
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

// conditionsError turns DHL notes into an APIError, or nil.
func conditionsError(conditions []Condition) error {
	if len(conditions) == 0 {
		return nil
	}
	return &APIError{Code: conditions[0].Code, Message: conditions[0].Message}
}
