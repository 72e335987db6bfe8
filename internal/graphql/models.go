package graphql

import "time"

// ============================================================================
// Inputs
// ============================================================================

// AddressInput is a postal address.
type AddressInput struct {
	Name          string `json:"name"`
	Company       string `json:"company"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2"`
	City          string `json:"city" validate:"required"`
	ProvinceCode  string `json:"provinceCode"`
	PostalCode    string `json:"postalCode" validate:"required"`
	CountryCode   string `json:"countryCode" validate:"required,iso3166_1_alpha2"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	IsResidential bool   `json:"isResidential"`
}

// ContactInput is a sender or recipient.
type ContactInput struct {
	Name    string `json:"name" validate:"required"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	TaxID   string `json:"taxId"`
}

// PackageInput is one parcel. Units default to CM and KG.
type PackageInput struct {
	Length        float64 `json:"length" validate:"gte=0"`
	Width         float64 `json:"width" validate:"gte=0"`
	Height        float64 `json:"height" validate:"gte=0"`
	DimensionUnit string  `json:"dimensionUnit" validate:"omitempty,oneof=CM IN"`
	Weight        float64 `json:"weight" validate:"gt=0"`
	WeightUnit    string  `json:"weightUnit" validate:"omitempty,oneof=KG LB"`
	PackageType   string  `json:"packageType" validate:"omitempty,oneof=BOX ENVELOPE TUBE PALLET CUSTOM"`
	Description   string  `json:"description"`
}

// QuoteInput asks every carrier, or the listed ones, for quotes.
type QuoteInput struct {
	Origin       AddressInput   `json:"origin"`
	Destination  AddressInput   `json:"destination"`
	Packages     []PackageInput `json:"packages" validate:"required,min=1,dive"`
	Carriers     []string       `json:"carriers" validate:"dive,required"`
	ServiceTypes []string       `json:"serviceTypes" validate:"dive,oneof=STANDARD EXPRESS PRIORITY OVERNIGHT ECONOMY FREIGHT"`
	ShipDate     string         `json:"shipDate" validate:"omitempty,datetime=2006-01-02"`
}

// TrackArgs are the arguments of the track field. Without a carrier every
// registered carrier is asked.
type TrackArgs struct {
	TrackingNumber string `json:"trackingNumber" validate:"required"`
	Carrier        string `json:"carrier"`
	Language       string `json:"language"`
	IncludeRaw     bool   `json:"includeRaw"`
}

// TrackBatchArgs are the arguments of the trackBatch field.
type TrackBatchArgs struct {
	TrackingNumbers []string `json:"trackingNumbers" validate:"required,min=1,max=50,dive,required"`
	Language        string   `json:"language"`
	IncludeRaw      bool     `json:"includeRaw"`
}

// ServicesInput lists services on a lane, for one carrier or all of them.
type ServicesInput struct {
	Carrier     string       `json:"carrier"`
	Origin      AddressInput `json:"origin"`
	Destination AddressInput `json:"destination"`
}

// CreateShipmentInput books a shipment with one carrier.
type CreateShipmentInput struct {
	Carrier          string         `json:"carrier" validate:"required"`
	ServiceCode      string         `json:"serviceCode" validate:"required"`
	Sender           ContactInput   `json:"sender"`
	SenderAddress    AddressInput   `json:"senderAddress"`
	Recipient        ContactInput   `json:"recipient"`
	RecipientAddress AddressInput   `json:"recipientAddress"`
	Packages         []PackageInput `json:"packages" validate:"required,min=1,dive"`
	Reference        string         `json:"reference" validate:"max=35"`
	LabelFormat      string         `json:"labelFormat" validate:"omitempty,oneof=PDF PNG ZPL"`
	ShipDate         string         `json:"shipDate" validate:"omitempty,datetime=2006-01-02"`
}

// CancelShipmentInput cancels a shipment.
type CancelShipmentInput struct {
	Carrier        string `json:"carrier" validate:"required"`
	ShipmentID     string `json:"shipmentId" validate:"required"`
	TrackingNumber string `json:"trackingNumber"`
	Reason         string `json:"reason"`
}

// CreatePickupInput schedules a pickup. Times are RFC 3339.
type CreatePickupInput struct {
	Carrier         string         `json:"carrier" validate:"required"`
	Address         AddressInput   `json:"address"`
	Contact         ContactInput   `json:"contact"`
	ReadyTime       string         `json:"readyTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	CloseTime       string         `json:"closeTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Packages        []PackageInput `json:"packages" validate:"dive"`
	TrackingNumbers []string       `json:"trackingNumbers"`
	Instructions    string         `json:"instructions"`
}

// CancelPickupInput cancels a pickup.
type CancelPickupInput struct {
	Carrier            string `json:"carrier" validate:"required"`
	ConfirmationNumber string `json:"confirmationNumber" validate:"required"`
	ScheduledDate      string `json:"scheduledDate" validate:"omitempty,datetime=2006-01-02"`
	Reason             string `json:"reason"`
}

// ============================================================================
// Results
// ============================================================================

// Health reports service liveness.
type Health struct {
	Status   string   `json:"status"`
	Version  string   `json:"version"`
	Carriers []string `json:"carriers"`
}

// Carrier is a registered carrier and its precedence.
type Carrier struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Money is an amount in major units, e.g. "12.65".
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Quote is one carrier price.
type Quote struct {
	Carrier           string     `json:"carrier"`
	ServiceCode       string     `json:"serviceCode"`
	ServiceName       string     `json:"serviceName"`
	ServiceType       string     `json:"serviceType"`
	Amount            Money      `json:"amount"`
	TransitDays       *int       `json:"transitDays"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	Guaranteed        bool       `json:"guaranteed"`
}

// CarrierStatus tells whether a carrier answered a fan-out.
type CarrierStatus struct {
	Carrier string  `json:"carrier"`
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// QuotesPayload is the result of the quotes field.
type QuotesPayload struct {
	RequestID string          `json:"requestId"`
	Quotes    []Quote         `json:"quotes"`
	Carriers  []CarrierStatus `json:"carriers"`
}

// Location is where a tracking activity happened.
type Location struct {
	City         string `json:"city"`
	ProvinceCode string `json:"provinceCode"`
	PostalCode   string `json:"postalCode"`
	CountryCode  string `json:"countryCode"`
}

// TrackingActivity is one scan.
type TrackingActivity struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Location    Location  `json:"location"`
}

// Tracking is the history of a tracking number, most recent first.
type Tracking struct {
	Carrier           string             `json:"carrier"`
	ServiceCode       string             `json:"serviceCode"`
	Status            string             `json:"status"`
	Activities        []TrackingActivity `json:"activities"`
	EstimatedDelivery *time.Time         `json:"estimatedDelivery"`
	Raw               *string            `json:"raw"`
}

// TrackingResult is the outcome of one number in a batch.
type TrackingResult struct {
	Status         string    `json:"status"`
	TrackingNumber string    `json:"trackingNumber"`
	Tracking       *Tracking `json:"tracking"`
	Error          *string   `json:"error"`
}

// ServiceOption is a service offered by a carrier.
type ServiceOption struct {
	Carrier string `json:"carrier"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

// Label is a shipping label.
type Label struct {
	Format string  `json:"format"`
	Data   *string `json:"data"`
	URL    *string `json:"url"`
}

// Shipment is a booked shipment.
type Shipment struct {
	ShipmentID        string     `json:"shipmentId"`
	TrackingNumber    string     `json:"trackingNumber"`
	Carrier           string     `json:"carrier"`
	ServiceCode       string     `json:"serviceCode"`
	Status            string     `json:"status"`
	Charge            Money      `json:"charge"`
	Labels            []Label    `json:"labels"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

// CancelShipmentPayload is the result of cancelShipment.
type CancelShipmentPayload struct {
	ShipmentID         string `json:"shipmentId"`
	Status             string `json:"status"`
	ConfirmationNumber string `json:"confirmationNumber"`
}

// Pickup is a scheduled pickup.
type Pickup struct {
	ConfirmationNumber string    `json:"confirmationNumber"`
	Carrier            string    `json:"carrier"`
	ScheduledDate      time.Time `json:"scheduledDate"`
	Location           string    `json:"location"`
	Charge             Money     `json:"charge"`
}

// CancelPickupPayload is the result of cancelPickup.
type CancelPickupPayload struct {
	ConfirmationNumber string `json:"confirmationNumber"`
	Cancelled          bool   `json:"cancelled"`
}
