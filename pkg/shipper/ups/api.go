package ups

import (
	"context"
	"fmt"
)

// APIClient defines the interface for UPS REST API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// Shop fetches rates for every UPS service on a lane
	Shop(ctx context.Context, req *RateRequest) (*RateResponse, error)

	// Track retrieves the activity of an inquiry number
	Track(ctx context.Context, inquiryNumber string, locale string) (*TrackResponse, error)

	// Ship creates a shipment and its label
	Ship(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// Void cancels a shipment
	Void(ctx context.Context, shipmentID string) (*VoidResponse, error)

	// SchedulePickup creates a pickup request
	SchedulePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error)

	// CancelPickup cancels a pickup by its PRN
	CancelPickup(ctx context.Context, prn string) (*CancelPickupResponse, error)
}

// ============================================================================
// API Request/Response Types (match UPS REST JSON structure)
// ============================================================================

// Code is the UPS {"Code": "..."} object.
type Code struct {
	Code        string `json:"Code"`
	Description string `json:"Description,omitempty"`
}

// Address is a UPS address.
type Address struct {
	AddressLine       []string `json:"AddressLine,omitempty"`
	City              string   `json:"City,omitempty"`
	StateProvinceCode string   `json:"StateProvinceCode,omitempty"`
	PostalCode        string   `json:"PostalCode,omitempty"`
	CountryCode       string   `json:"CountryCode"`
	Residential       string   `json:"ResidentialAddressIndicator,omitempty"`
}

// Party is a shipper, ship-to or pickup contact.
type Party struct {
	Name          string  `json:"Name,omitempty"`
	AttentionName string  `json:"AttentionName,omitempty"`
	ShipperNumber string  `json:"ShipperNumber,omitempty"`
	Phone         *Phone  `json:"Phone,omitempty"`
	Address       Address `json:"Address"`
}

// Phone is a UPS phone number.
type Phone struct {
	Number string `json:"Number"`
}

// Package is a single parcel.
type Package struct {
	PackagingType Code        `json:"PackagingType"`
	Dimensions    *Dimensions `json:"Dimensions,omitempty"`
	PackageWeight Weight      `json:"PackageWeight"`
}

// Dimensions of a package. UPS sends numbers as strings.
type Dimensions struct {
	UnitOfMeasurement Code   `json:"UnitOfMeasurement"`
	Length            string `json:"Length"`
	Width             string `json:"Width"`
	Height            string `json:"Height"`
}

// Weight of a package.
type Weight struct {
	UnitOfMeasurement Code   `json:"UnitOfMeasurement"`
	Weight            string `json:"Weight"`
}

// Charge is a UPS monetary value.
type Charge struct {
	CurrencyCode  string `json:"CurrencyCode"`
	MonetaryValue string `json:"MonetaryValue"`
}

// RateRequest represents a UPS rating request.
type RateRequest struct {
	Shipper  Party     `json:"Shipper"`
	ShipTo   Party     `json:"ShipTo"`
	ShipFrom Party     `json:"ShipFrom"`
	Packages []Package `json:"Package"`
	// PickupDate is YYYYMMDD; it enables time-in-transit in the response.
	PickupDate string `json:"PickupDate,omitempty"`
}

// RateResponse represents the UPS rating response.
type RateResponse struct {
	RatedShipment []RatedShipment `json:"RatedShipment"`
}

// RatedShipment is the rate of one service.
type RatedShipment struct {
	Service            Code                `json:"Service"`
	TotalCharges       Charge              `json:"TotalCharges"`
	NegotiatedCharges  *Charge             `json:"NegotiatedCharges,omitempty"`
	GuaranteedDelivery *GuaranteedDelivery `json:"GuaranteedDelivery,omitempty"`
	ArrivalDate        string              `json:"ArrivalDate,omitempty"` // YYYYMMDD
}

// GuaranteedDelivery is the commitment of a guaranteed service.
type GuaranteedDelivery struct {
	BusinessDaysInTransit string `json:"BusinessDaysInTransit"`
	DeliveryByTime        string `json:"DeliveryByTime,omitempty"`
}

// TrackResponse represents the UPS tracking response.
type TrackResponse struct {
	Shipments []TrackShipment `json:"shipment"`

	// Raw is the response body as received.
	Raw string `json:"-"`
}

// TrackShipment is the tracking state of an inquiry number.
type TrackShipment struct {
	InquiryNumber string         `json:"inquiryNumber"`
	Warnings      []ErrorDetail  `json:"warnings,omitempty"`
	Packages      []TrackPackage `json:"package"`
}

// TrackPackage is the tracking state of one package.
type TrackPackage struct {
	TrackingNumber string         `json:"trackingNumber"`
	Service        TrackService   `json:"service"`
	DeliveryDate   []DeliveryDate `json:"deliveryDate,omitempty"`
	Activity       []Activity     `json:"activity"`
}

// TrackService is the service a package ships with.
type TrackService struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// DeliveryDate is a scheduled or actual delivery date.
type DeliveryDate struct {
	Type string `json:"type"` // "SDD" scheduled, "DEL" delivered
	Date string `json:"date"` // YYYYMMDD
}

// Activity is a single scan. UPS lists activity most recent first.
type Activity struct {
	Location ActivityLocation `json:"location"`
	Status   ActivityStatus   `json:"status"`
	Date     string           `json:"date"` // YYYYMMDD
	Time     string           `json:"time"` // HHMMSS
}

// ActivityLocation is where a scan happened.
type ActivityLocation struct {
	Address struct {
		City          string `json:"city"`
		StateProvince string `json:"stateProvince"`
		PostalCode    string `json:"postalCode"`
		Country       string `json:"countryCode"`
	} `json:"address"`
}

// ActivityStatus describes a scan.
type ActivityStatus struct {
	Type        string `json:"type"` // "D", "I", "X", "P", "M", "RS"
	Description string `json:"description"`
	Code        string `json:"code"`
}

// ShipmentRequest represents a UPS ship request.
type ShipmentRequest struct {
	Description string    `json:"Description,omitempty"`
	Shipper     Party     `json:"Shipper"`
	ShipTo      Party     `json:"ShipTo"`
	Service     Code      `json:"Service"`
	Packages    []Package `json:"Package"`
	Reference   string    `json:"ReferenceNumber,omitempty"`
	LabelFormat Code      `json:"LabelImageFormat"` // "GIF", "PNG", "ZPL"
}

// ShipmentResponse represents the UPS ship response.
type ShipmentResponse struct {
	ShipmentIdentificationNumber string          `json:"ShipmentIdentificationNumber"`
	ShipmentCharges              Charge          `json:"TotalCharges"`
	PackageResults               []PackageResult `json:"PackageResults"`
}

// PackageResult carries the tracking number and label of one package.
type PackageResult struct {
	TrackingNumber string `json:"TrackingNumber"`
	GraphicImage   string `json:"GraphicImage"` // base64
}

// VoidResponse represents the UPS void response.
type VoidResponse struct {
	Status Code `json:"Status"` // Code "1" on success
}

// PickupRequest represents a UPS pickup creation request.
type PickupRequest struct {
	Shipper             Party  `json:"Shipper"`
	PickupDate          string `json:"PickupDate"` // YYYYMMDD
	ReadyTime           string `json:"ReadyTime"`  // HHMM
	CloseTime           string `json:"CloseTime"`  // HHMM
	TotalWeight         Weight `json:"TotalWeight"`
	PackageCount        int    `json:"PackageCount"`
	SpecialInstructions string `json:"SpecialInstruction,omitempty"`
}

// PickupResponse represents the UPS pickup creation response.
type PickupResponse struct {
	PRN        string  `json:"PRN"`
	RateResult *Charge `json:"RateResult,omitempty"`
}

// CancelPickupResponse represents the UPS pickup cancellation response.
type CancelPickupResponse struct {
	PRN    string `json:"PRN"`
	Status Code   `json:"Status"`
}

// ErrorDetail is a UPS error or warning.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse is the JSON body UPS returns on failures.
type errorResponse struct {
	Response struct {
		Errors []ErrorDetail `json:"errors"`
	} `json:"response"`
}

// APIError represents an error from the UPS API. A zero StatusCode means
// UPS rejected the request for a business reason.
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
