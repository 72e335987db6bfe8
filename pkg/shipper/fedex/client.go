// Package fedex provides integration with the FedEx Web Services SOAP API.
package fedex

import (
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/tournevent/parcelhub/pkg/shipper/internal/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "fedex"

// Config holds FedEx configuration.
type Config struct {
	Key           string
	Password      string
	AccountNumber string
	MeterNumber   string
	BaseURL       string
	UseMock       bool
	Timeout       time.Duration
	RateLimit     float64
	RateBurst     int
}

// Client is the FedEx shipper client.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new FedEx client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewSOAPAPIClient(SOAPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			Key:       cfg.Key,
			Password:  cfg.Password,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new FedEx client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    transport.Tracer(tracer, carrierName),
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// GetQuotes returns FedEx rates for the lane.
func (c *Client) GetQuotes(ctx context.Context, req *shipper.QuoteRequest) (quotes []shipper.Quote, err error) {
	ctx, span := c.tracer.Start(ctx, "fedex.GetQuotes")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting FedEx quotes",
		zap.String("origin_postal", req.Origin.PostalCode),
		zap.String("destination_postal", req.Destination.PostalCode),
		zap.Int("package_count", len(req.Packages)),
	)

	reply, err := c.apiClient.GetRates(ctx, &RateRequest{
		AccountNumber: c.config.AccountNumber,
		MeterNumber:   c.config.MeterNumber,
		ShipTimestamp: shipTimestamp(req.ShipDate),
		Shipper:       addressToAPI(req.Origin),
		Recipient:     addressToAPI(req.Destination),
		Packages:      packagesToAPI(req.Packages),
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("FedEx API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	quotes = make([]shipper.Quote, 0, len(reply.RateReplyDetails))
	for _, d := range reply.RateReplyDetails {
		serviceType := mapServiceType(d.ServiceType)
		if !req.Wants(serviceType) {
			continue
		}

		amount, err := shipper.ParseMoney(d.TotalNetCharge.Amount, d.TotalNetCharge.Currency)
		if err != nil {
			return nil, shipper.NewServiceError(carrierName, "INVALID_PRICE", "unparseable net charge").WithCause(err)
		}

		quote := shipper.NewQuote(carrierName, d.ServiceType, amount)
		quote.ServiceName = d.ServiceName
		quote.ServiceType = serviceType
		quote.TransitDays = transitDays[d.TransitTime]
		quote.EstimatedDelivery = parseTime(time.RFC3339, d.DeliveryTimestamp)
		quote.Guaranteed = serviceType != shipper.ServiceStandard && serviceType != shipper.ServiceEconomy
		quotes = append(quotes, quote)
	}

	span.SetAttributes(attribute.Int("quotes.count", len(quotes)))
	return quotes, nil
}

// GetTrackingStatus returns the scan history of a FedEx package, most
// recent first.
func (c *Client) GetTrackingStatus(ctx context.Context, trackingNumber string, opts shipper.TrackingOptions) (tracking *shipper.Tracking, err error) {
	ctx, span := c.tracer.Start(ctx, "fedex.GetTrackingStatus",
		trace.WithAttributes(attribute.String("tracking.number", trackingNumber)))
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting FedEx tracking", zap.String("tracking_number", trackingNumber))

	language := opts.Language
	if language == "" {
		language = "EN"
	}

	reply, err := c.apiClient.Track(ctx, &TrackRequest{
		AccountNumber:        c.config.AccountNumber,
		MeterNumber:          c.config.MeterNumber,
		TrackingNumber:       trackingNumber,
		Language:             language,
		IncludeDetailedScans: true,
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("FedEx API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	if len(reply.TrackDetails) == 0 {
		return nil, notFoundError(trackingNumber, Notification{})
	}
	detail := reply.TrackDetails[0]
	if sev := detail.Notification.Severity; sev == SeverityError || sev == SeverityFailure {
		return nil, notFoundError(trackingNumber, detail.Notification)
	}

	activities := make([]shipper.TrackingActivity, len(detail.Events))
	for i, e := range detail.Events {
		activities[i] = eventToActivity(e)
	}
	slices.SortStableFunc(activities, func(a, b shipper.TrackingActivity) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	tracking = shipper.NewTracking(carrierName, detail.ServiceType, activities)
	tracking.EstimatedDelivery = parseTime(time.RFC3339, detail.EstimatedDeliveryTimestamp)
	if opts.IncludeRaw {
		tracking.Raw = reply.Raw
	}
	return tracking, nil
}

// CreateShipment processes a FedEx shipment and returns its label inline.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (shipment *shipper.Shipment, err error) {
	ctx, span := c.tracer.Start(ctx, "fedex.CreateShipment")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Creating FedEx shipment",
		zap.String("service_code", req.ServiceCode),
		zap.String("recipient", req.Recipient.Name),
	)

	format := req.LabelFormat
	if format == "" {
		format = shipper.LabelPDF
	}

	reply, err := c.apiClient.ProcessShipment(ctx, &ShipmentRequest{
		AccountNumber:     c.config.AccountNumber,
		MeterNumber:       c.config.MeterNumber,
		ShipTimestamp:     shipTimestamp(req.ShipDate),
		ServiceType:       req.ServiceCode,
		Shipper:           partyToAPI(req.Sender, req.SenderAddress),
		Recipient:         partyToAPI(req.Recipient, req.RecipientAddress),
		Packages:          packagesToAPI(req.Packages),
		CustomerReference: req.Reference,
		LabelImageType:    labelFormatToAPI(format),
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("FedEx API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	charge, err := shipper.ParseMoney(reply.NetCharge.Amount, reply.NetCharge.Currency)
	if err != nil {
		return nil, shipper.NewServiceError(carrierName, "INVALID_PRICE", "unparseable net charge").WithCause(err)
	}

	return &shipper.Shipment{
		ShipmentID:        reply.TrackingNumber,
		TrackingNumber:    reply.TrackingNumber,
		Vendor:            carrierName,
		ServiceCode:       req.ServiceCode,
		Status:            shipper.StatusConfirmed,
		Charge:            charge,
		Labels:            []shipper.Label{{Format: format, Data: reply.Label}},
		EstimatedDelivery: parseTime(time.DateOnly, reply.DeliveryDate),
	}, nil
}

// CancelShipment deletes a FedEx shipment.
func (c *Client) CancelShipment(ctx context.Context, req *shipper.CancelShipmentRequest) (resp *shipper.CancelShipmentResponse, err error) {
	ctx, span := c.tracer.Start(ctx, "fedex.CancelShipment")
	defer func() { transport.EndSpan(span, err) }()

	trackingNumber := req.TrackingNumber
	if trackingNumber == "" {
		trackingNumber = req.ShipmentID
	}
	c.logger.Ctx(ctx).Info("Cancelling FedEx shipment",
		zap.String("tracking_number", trackingNumber),
		zap.String("reason", req.Reason),
	)

	if _, err := c.apiClient.DeleteShipment(ctx, &DeleteShipmentRequest{
		AccountNumber:  c.config.AccountNumber,
		MeterNumber:    c.config.MeterNumber,
		TrackingNumber: trackingNumber,
	}); err != nil {
		c.logger.Ctx(ctx).Error("FedEx API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	return &shipper.CancelShipmentResponse{
		ShipmentID:         req.ShipmentID,
		Status:             shipper.StatusCancelled,
		ConfirmationNumber: trackingNumber,
	}, nil
}

// CreatePickup schedules a FedEx courier pickup.
func (c *Client) CreatePickup(ctx context.Context, req *shipper.PickupRequest) (pickup *shipper.Pickup, err error) {
	ctx, span := c.tracer.Start(ctx, "fedex.CreatePickup")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Creating FedEx pickup",
		zap.String("postal_code", req.Address.PostalCode),
		zap.Time("ready_time", req.ReadyTime),
	)

	count := len(req.Packages)
	if count == 0 {
		count = 1
	}
	var weight float64
	for _, p := range req.Packages {
		weight += kilograms(p)
	}

	relationship := "DOMESTIC"
	if req.Address.CountryCode != "" && req.Address.CountryCode != "US" {
		relationship = "INTERNATIONAL"
	}

	reply, err := c.apiClient.CreatePickup(ctx, &PickupRequest{
		AccountNumber:       c.config.AccountNumber,
		MeterNumber:         c.config.MeterNumber,
		Location:            partyToAPI(req.Contact, req.Address),
		ReadyTimestamp:      req.ReadyTime.Format(time.RFC3339),
		CompanyCloseTime:    req.CloseTime.Format(time.TimeOnly),
		PackageCount:        count,
		TotalWeight:         weight,
		CourierRemarks:      req.Instructions,
		CarrierCode:         "FDXE",
		CountryRelationship: relationship,
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("FedEx API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	return &shipper.Pickup{
		ConfirmationNumber: reply.PickupConfirmationNumber,
		Vendor:             carrierName,
		ScheduledDate:      req.ReadyTime,
		Location:           reply.Location,
		Charge:             shipper.Money{Currency: "USD"},
	}, nil
}

// CancelPickup cancels a FedEx courier pickup.
func (c *Client) CancelPickup(ctx context.Context, req *shipper.CancelPickupRequest) (resp *shipper.CancelPickupResponse, err error) {
	ctx, span := c.tracer.Start(ctx, "fedex.CancelPickup")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling FedEx pickup", zap.String("confirmation_number", req.ConfirmationNumber))

	if _, err := c.apiClient.CancelPickup(ctx, &CancelPickupRequest{
		AccountNumber:            c.config.AccountNumber,
		MeterNumber:              c.config.MeterNumber,
		PickupConfirmationNumber: req.ConfirmationNumber,
		ScheduledDate:            req.ScheduledDate.Format(time.DateOnly),
		Remarks:                  req.Reason,
	}); err != nil {
		c.logger.Ctx(ctx).Error("FedEx API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	return &shipper.CancelPickupResponse{
		ConfirmationNumber: req.ConfirmationNumber,
		Cancelled:          true,
	}, nil
}

// GetAvailableServices lists the FedEx services offered on a lane.
func (c *Client) GetAvailableServices(ctx context.Context, req *shipper.ServicesRequest) ([]shipper.ServiceOption, error) {
	domestic := req.Origin.CountryCode == req.Destination.CountryCode

	options := make([]shipper.ServiceOption, 0, len(services))
	for _, s := range services {
		if s.domestic != domestic {
			continue
		}
		options = append(options, shipper.ServiceOption{
			Vendor: carrierName,
			Code:   s.code,
			Name:   s.name,
			Type:   mapServiceType(s.code),
		})
	}
	return options, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

type service struct {
	code     string
	name     string
	domestic bool
}

var services = []service{
	{code: "FEDEX_GROUND", name: "FedEx Ground", domestic: true},
	{code: "FEDEX_EXPRESS_SAVER", name: "FedEx Express Saver", domestic: true},
	{code: "FEDEX_2_DAY", name: "FedEx 2Day", domestic: true},
	{code: "STANDARD_OVERNIGHT", name: "FedEx Standard Overnight", domestic: true},
	{code: "PRIORITY_OVERNIGHT", name: "FedEx Priority Overnight", domestic: true},
	{code: "INTERNATIONAL_ECONOMY", name: "FedEx International Economy"},
	{code: "INTERNATIONAL_PRIORITY", name: "FedEx International Priority"},
}

var transitDays = map[string]int{
	"ONE_DAY":    1,
	"TWO_DAYS":   2,
	"THREE_DAYS": 3,
	"FOUR_DAYS":  4,
	"FIVE_DAYS":  5,
	"SIX_DAYS":   6,
	"SEVEN_DAYS": 7,
	"EIGHT_DAYS": 8,
	"NINE_DAYS":  9,
	"TEN_DAYS":   10,
}

func mapServiceType(code string) shipper.ServiceType {
	switch code {
	case "FEDEX_EXPRESS_SAVER", "FEDEX_2_DAY", "FEDEX_2_DAY_AM":
		return shipper.ServiceExpress
	case "STANDARD_OVERNIGHT", "PRIORITY_OVERNIGHT", "FIRST_OVERNIGHT":
		return shipper.ServiceOvernight
	case "INTERNATIONAL_PRIORITY", "INTERNATIONAL_FIRST":
		return shipper.ServicePriority
	case "INTERNATIONAL_ECONOMY":
		return shipper.ServiceEconomy
	case "FEDEX_1_DAY_FREIGHT", "FEDEX_2_DAY_FREIGHT", "FEDEX_FREIGHT_PRIORITY", "FEDEX_FREIGHT_ECONOMY":
		return shipper.ServiceFreight
	default:
		return shipper.ServiceStandard
	}
}

func mapEventStatus(eventType string) shipper.ActivityStatus {
	switch eventType {
	case "DL":
		return shipper.ActivityDelivered
	case "DE", "SE", "CA", "RS", "DY", "CD":
		return shipper.ActivityException
	default:
		return shipper.ActivityInTransit
	}
}

func eventToActivity(e TrackEvent) shipper.TrackingActivity {
	activity := shipper.TrackingActivity{
		Status:      mapEventStatus(e.EventType),
		Description: e.EventDescription,
		Location: shipper.Address{
			City:         e.Address.City,
			ProvinceCode: e.Address.StateOrProvinceCode,
			PostalCode:   e.Address.PostalCode,
			CountryCode:  e.Address.CountryCode,
		},
	}
	if t := parseTime(time.RFC3339, e.Timestamp); t != nil {
		activity.Timestamp = *t
	}
	return activity
}

func notFoundError(trackingNumber string, n Notification) error {
	err := shipper.NewServiceError(carrierName, "NOT_FOUND", "no record of "+trackingNumber).
		WithCause(shipper.ErrTrackingNotFound)
	if n.Code != "" {
		err.Code = n.Code
		err.Message = n.Message
	}
	return err
}

func addressToAPI(addr shipper.Address) Address {
	var lines []string
	for _, l := range []string{addr.Line1, addr.Line2} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return Address{
		StreetLines:         lines,
		City:                addr.City,
		StateOrProvinceCode: addr.ProvinceCode,
		PostalCode:          addr.PostalCode,
		CountryCode:         addr.CountryCode,
		Residential:         addr.IsResidential,
	}
}

func partyToAPI(contact shipper.Contact, addr shipper.Address) Party {
	phone := contact.Phone
	if phone == "" {
		phone = addr.Phone
	}
	company := contact.Company
	if company == "" {
		company = addr.Company
	}
	return Party{
		PersonName:  contact.Name,
		CompanyName: company,
		PhoneNumber: phone,
		Address:     addressToAPI(addr),
	}
}

func packagesToAPI(packages []shipper.Package) []PackageLineItem {
	items := make([]PackageLineItem, len(packages))
	for i, p := range packages {
		items[i] = PackageLineItem{
			SequenceNumber: i + 1,
			Weight:         p.Weight,
			WeightUnits:    "KG",
			Length:         int(math.Ceil(p.Length)),
			Width:          int(math.Ceil(p.Width)),
			Height:         int(math.Ceil(p.Height)),
			DimensionUnits: "CM",
		}
		if p.WeightUnit == shipper.WeightLB {
			items[i].WeightUnits = "LB"
		}
		if p.DimensionUnit == shipper.DimensionIN {
			items[i].DimensionUnits = "IN"
		}
	}
	return items
}

// kilograms returns the package weight in kilograms.
func kilograms(p shipper.Package) float64 {
	if p.WeightUnit == shipper.WeightLB {
		return p.Weight * 0.45359237
	}
	return p.Weight
}

func labelFormatToAPI(format shipper.LabelFormat) string {
	switch format {
	case shipper.LabelZPL:
		return "ZPLII"
	case shipper.LabelPNG:
		return "PNG"
	default:
		return "PDF"
	}
}

func shipTimestamp(t *time.Time) string {
	if t == nil {
		return time.Now().Format(time.RFC3339)
	}
	return t.Format(time.RFC3339)
}

func parseTime(layout, value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return nil
	}
	return &t
}

// toShipperError classifies an API client failure. HTTP and network
// failures are transport errors; FedEx notifications and SOAP faults are
// service errors.
func toShipperError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return transport.NetworkError(carrierName, err)
	}
	if apiErr.StatusCode != 0 {
		return transport.StatusError(carrierName, apiErr.StatusCode, apiErr.Code, apiErr.Message)
	}
	return shipper.NewServiceError(carrierName, apiErr.Code, apiErr.Message)
}

var _ shipper.Shipper = (*Client)(nil)
