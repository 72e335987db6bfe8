package shipper

import (
	"time"
)

// ShipmentStatus represents the normalized status of a shipment.
type ShipmentStatus string

const (
	StatusPending   ShipmentStatus = "pending"
	StatusConfirmed ShipmentStatus = "confirmed"
	StatusInTransit ShipmentStatus = "in_transit"
	StatusDelivered ShipmentStatus = "delivered"
	StatusCancelled ShipmentStatus = "cancelled"
	StatusException ShipmentStatus = "exception"
)

// ActivityStatus is the normalized status of a single tracking activity.
type ActivityStatus string

const (
	ActivityInTransit ActivityStatus = "IN_TRANSIT"
	ActivityDelivered ActivityStatus = "DELIVERED"
	ActivityException ActivityStatus = "EXCEPTION"
	ActivityError     ActivityStatus = "ERROR"
)

// ResultStatus tells whether a tracking number could be tracked.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "SUCCESS"
	ResultError   ResultStatus = "ERROR"
)

// ServiceType represents the shipping service type.
type ServiceType string

const (
	ServiceStandard  ServiceType = "standard"
	ServiceExpress   ServiceType = "express"
	ServicePriority  ServiceType = "priority"
	ServiceOvernight ServiceType = "overnight"
	ServiceEconomy   ServiceType = "economy"
	ServiceFreight   ServiceType = "freight"
)

// PackageType represents the type of package.
type PackageType string

const (
	PackageBox      PackageType = "box"
	PackageEnvelope PackageType = "envelope"
	PackageTube     PackageType = "tube"
	PackagePallet   PackageType = "pallet"
	PackageCustom   PackageType = "custom"
)

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightKG WeightUnit = "kg"
	WeightLB WeightUnit = "lb"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
	DimensionIN DimensionUnit = "in"
)

// LabelFormat represents the format of shipping labels.
type LabelFormat string

const (
	LabelPDF LabelFormat = "pdf"
	LabelPNG LabelFormat = "png"
	LabelZPL LabelFormat = "zpl"
)

// Address represents a shipping address.
type Address struct {
	Name          string `json:"name,omitempty"`
	Company       string `json:"company,omitempty"`
	Line1         string `json:"line1,omitempty"`
	Line2         string `json:"line2,omitempty"`
	City          string `json:"city,omitempty"`
	ProvinceCode  string `json:"provinceCode,omitempty"` // e.g., "ON", "NY", "BY"
	PostalCode    string `json:"postalCode,omitempty"`
	CountryCode   string `json:"countryCode,omitempty"` // ISO 3166-1 alpha-2
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	IsResidential bool   `json:"isResidential,omitempty"`
}

// Contact represents sender or recipient contact info.
type Contact struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	TaxID   string `json:"taxId,omitempty"` // For customs (international)
}

// Package represents a package to be shipped.
type Package struct {
	Length        float64       `json:"length"`
	Width         float64       `json:"width"`
	Height        float64       `json:"height"`
	DimensionUnit DimensionUnit `json:"dimensionUnit,omitempty"`
	Weight        float64       `json:"weight"`
	WeightUnit    WeightUnit    `json:"weightUnit,omitempty"`
	PackageType   PackageType   `json:"packageType,omitempty"`
	Description   string        `json:"description,omitempty"`
	DeclaredValue *Money        `json:"declaredValue,omitempty"`
}

// Quote is a carrier's price for one service on a lane.
type Quote struct {
	Vendor            string      `json:"vendor"`
	ServiceCode       string      `json:"serviceCode"`
	Amount            Money       `json:"amount"`
	ServiceName       string      `json:"serviceName,omitempty"`
	ServiceType       ServiceType `json:"serviceType,omitempty"`
	TransitDays       int         `json:"transitDays,omitempty"`
	EstimatedDelivery *time.Time  `json:"estimatedDelivery,omitempty"`
	Guaranteed        bool        `json:"guaranteed,omitempty"`
}

// NewQuote builds a quote with only the required fields set.
func NewQuote(vendor, serviceCode string, amount Money) Quote {
	return Quote{Vendor: vendor, ServiceCode: serviceCode, Amount: amount}
}

// Tracking is a carrier's tracking history for one tracking number.
// Activities are ordered most recent first.
type Tracking struct {
	Vendor            string             `json:"vendor"`
	ServiceCode       string             `json:"serviceCode"`
	Activities        []TrackingActivity `json:"activities"`
	EstimatedDelivery *time.Time         `json:"estimatedDelivery,omitempty"`
	Raw               string             `json:"-"`
}

// NewTracking builds a tracking value.
func NewTracking(vendor, serviceCode string, activities []TrackingActivity) *Tracking {
	return &Tracking{Vendor: vendor, ServiceCode: serviceCode, Activities: activities}
}

// Latest returns the most recent activity, if any.
func (t *Tracking) Latest() (TrackingActivity, bool) {
	if t == nil || len(t.Activities) == 0 {
		return TrackingActivity{}, false
	}
	return t.Activities[0], true
}

// TrackingActivity is a single scan or status change.
type TrackingActivity struct {
	Status      ActivityStatus `json:"status"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Location    Address        `json:"location"`
}

// TrackingOptions tunes a tracking lookup.
type TrackingOptions struct {
	Language   string // e.g. "en"; carriers fall back to their default
	IncludeRaw bool   // populate Tracking.Raw with the carrier payload
}

// TrackingResult is the outcome of tracking one number in a batch.
type TrackingResult struct {
	Status         ResultStatus `json:"status"`
	TrackingNumber string       `json:"trackingNumber"`
	Raw            string       `json:"-"`
	Tracking       *Tracking    `json:"tracking,omitempty"`
	Err            error        `json:"-"`
}

// Label represents a shipping label.
type Label struct {
	Format LabelFormat `json:"format"`
	Data   string      `json:"data,omitempty"` // Base64 encoded if inline
	URL    string      `json:"url,omitempty"`  // URL if hosted
}

// ServiceOption describes a service a carrier offers.
type ServiceOption struct {
	Vendor string      `json:"vendor"`
	Code   string      `json:"code"`
	Name   string      `json:"name"`
	Type   ServiceType `json:"type"`
}

// ============================================================================
// Request/Response Types
// ============================================================================

// QuoteRequest is the request for getting shipping quotes.
type QuoteRequest struct {
	Origin       Address
	Destination  Address
	Packages     []Package
	ServiceTypes []ServiceType // Empty = all services
	ShipDate     *time.Time
}

// Wants reports whether the request accepts quotes of service type t.
func (r *QuoteRequest) Wants(t ServiceType) bool {
	if len(r.ServiceTypes) == 0 {
		return true
	}
	for _, want := range r.ServiceTypes {
		if want == t {
			return true
		}
	}
	return false
}

// ShipmentRequest is the request for booking a shipment.
type ShipmentRequest struct {
	ServiceCode      string
	Sender           Contact
	SenderAddress    Address
	Recipient        Contact
	RecipientAddress Address
	Packages         []Package
	Reference        string
	LabelFormat      LabelFormat
	ShipDate         *time.Time
}

// Shipment is a booked shipment.
type Shipment struct {
	ShipmentID        string         `json:"shipmentId"`
	TrackingNumber    string         `json:"trackingNumber"`
	Vendor            string         `json:"vendor"`
	ServiceCode       string         `json:"serviceCode"`
	Status            ShipmentStatus `json:"status"`
	Charge            Money          `json:"charge"`
	Labels            []Label        `json:"labels"`
	EstimatedDelivery *time.Time     `json:"estimatedDelivery,omitempty"`
}

// CancelShipmentRequest is the request for cancelling a shipment.
type CancelShipmentRequest struct {
	ShipmentID     string
	TrackingNumber string
	Reason         string
}

// CancelShipmentResponse is the response from cancelling a shipment.
type CancelShipmentResponse struct {
	ShipmentID         string         `json:"shipmentId"`
	Status             ShipmentStatus `json:"status"`
	ConfirmationNumber string         `json:"confirmationNumber,omitempty"`
}

// PickupRequest is the request for scheduling a pickup.
type PickupRequest struct {
	Address         Address
	Contact         Contact
	ReadyTime       time.Time
	CloseTime       time.Time
	Packages        []Package
	TrackingNumbers []string
	Instructions    string
}

// Pickup is a scheduled pickup.
type Pickup struct {
	ConfirmationNumber string    `json:"confirmationNumber"`
	Vendor             string    `json:"vendor"`
	ScheduledDate      time.Time `json:"scheduledDate"`
	Location           string    `json:"location,omitempty"`
	Charge             Money     `json:"charge"`
}

// CancelPickupRequest is the request for cancelling a pickup.
type CancelPickupRequest struct {
	ConfirmationNumber string
	ScheduledDate      time.Time
	Reason             string
}

// CancelPickupResponse is the response from cancelling a pickup.
type CancelPickupResponse struct {
	ConfirmationNumber string `json:"confirmationNumber"`
	Cancelled          bool   `json:"cancelled"`
}

// ServicesRequest asks which services are available on a lane.
type ServicesRequest struct {
	Origin      Address
	Destination Address
}
