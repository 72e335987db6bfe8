// Package ups provides integration with the UPS REST API.
package ups

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/tournevent/parcelhub/pkg/shipper/internal/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	carrierName = "ups"

	dateLayout     = "20060102"
	dateTimeLayout = "20060102150405"
)

// Config holds UPS configuration.
type Config struct {
	ClientID      string
	ClientSecret  string
	AccountNumber string
	BaseURL       string
	UseMock       bool
	Timeout       time.Duration
	RateLimit     float64
	RateBurst     int
}

// Client is the UPS shipper client.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new UPS client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:       cfg.BaseURL,
			ClientID:      cfg.ClientID,
			ClientSecret:  cfg.ClientSecret,
			AccountNumber: cfg.AccountNumber,
			Timeout:       cfg.Timeout,
			RateLimit:     cfg.RateLimit,
			RateBurst:     cfg.RateBurst,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new UPS client with a custom API client.
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

// GetQuotes returns UPS rates for the lane.
func (c *Client) GetQuotes(ctx context.Context, req *shipper.QuoteRequest) (quotes []shipper.Quote, err error) {
	ctx, span := c.tracer.Start(ctx, "ups.GetQuotes")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting UPS quotes",
		zap.String("origin_postal", req.Origin.PostalCode),
		zap.String("destination_postal", req.Destination.PostalCode),
		zap.Int("package_count", len(req.Packages)),
	)

	apiReq := &RateRequest{
		Shipper:  Party{ShipperNumber: c.config.AccountNumber, Address: addressToAPI(req.Origin)},
		ShipTo:   Party{Address: addressToAPI(req.Destination)},
		ShipFrom: Party{Address: addressToAPI(req.Origin)},
		Packages: packagesToAPI(req.Packages),
	}
	if req.ShipDate != nil {
		apiReq.PickupDate = req.ShipDate.Format(dateLayout)
	}

	apiResp, err := c.apiClient.Shop(ctx, apiReq)
	if err != nil {
		c.logger.Ctx(ctx).Error("UPS API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	quotes = make([]shipper.Quote, 0, len(apiResp.RatedShipment))
	for _, r := range apiResp.RatedShipment {
		serviceType := mapServiceType(r.Service.Code)
		if !req.Wants(serviceType) {
			continue
		}

		charge := r.TotalCharges
		if r.NegotiatedCharges != nil {
			charge = *r.NegotiatedCharges
		}
		amount, err := shipper.ParseMoney(charge.MonetaryValue, charge.CurrencyCode)
		if err != nil {
			return nil, shipper.NewServiceError(carrierName, "INVALID_PRICE", "unparseable total charges").WithCause(err)
		}

		quote := shipper.NewQuote(carrierName, r.Service.Code, amount)
		quote.ServiceName = serviceName(r.Service.Code)
		quote.ServiceType = serviceType
		quote.EstimatedDelivery = parseTime(dateLayout, r.ArrivalDate)
		if r.GuaranteedDelivery != nil {
			quote.Guaranteed = true
			quote.TransitDays, _ = strconv.Atoi(r.GuaranteedDelivery.BusinessDaysInTransit)
		}
		quotes = append(quotes, quote)
	}

	span.SetAttributes(attribute.Int("quotes.count", len(quotes)))
	return quotes, nil
}

// GetTrackingStatus returns the activity of a UPS package, most recent first.
func (c *Client) GetTrackingStatus(ctx context.Context, trackingNumber string, opts shipper.TrackingOptions) (tracking *shipper.Tracking, err error) {
	ctx, span := c.tracer.Start(ctx, "ups.GetTrackingStatus",
		trace.WithAttributes(attribute.String("tracking.number", trackingNumber)))
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting UPS tracking", zap.String("tracking_number", trackingNumber))

	apiResp, err := c.apiClient.Track(ctx, trackingNumber, locale(opts.Language))
	if err != nil {
		c.logger.Ctx(ctx).Error("UPS API error", zap.Error(err))
		return nil, trackingError(trackingNumber, toShipperError(err))
	}

	if len(apiResp.Shipments) == 0 || len(apiResp.Shipments[0].Packages) == 0 {
		var warning ErrorDetail
		if len(apiResp.Shipments) > 0 && len(apiResp.Shipments[0].Warnings) > 0 {
			warning = apiResp.Shipments[0].Warnings[0]
		}
		return nil, notFoundError(trackingNumber, warning)
	}
	pkg := apiResp.Shipments[0].Packages[0]

	activities := make([]shipper.TrackingActivity, len(pkg.Activity))
	for i, a := range pkg.Activity {
		activities[i] = activityToShipper(a)
	}

	tracking = shipper.NewTracking(carrierName, normalizeServiceCode(pkg.Service.Code), activities)
	for _, d := range pkg.DeliveryDate {
		if d.Type == "SDD" {
			tracking.EstimatedDelivery = parseTime(dateLayout, d.Date)
		}
	}
	if opts.IncludeRaw {
		tracking.Raw = apiResp.Raw
	}
	return tracking, nil
}

// CreateShipment creates a UPS shipment and returns its labels inline.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (shipment *shipper.Shipment, err error) {
	ctx, span := c.tracer.Start(ctx, "ups.CreateShipment")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Creating UPS shipment",
		zap.String("service_code", req.ServiceCode),
		zap.String("recipient", req.Recipient.Name),
	)

	format, apiFormat := labelFormat(req.LabelFormat)

	sender := partyToAPI(req.Sender, req.SenderAddress)
	sender.ShipperNumber = c.config.AccountNumber

	apiResp, err := c.apiClient.Ship(ctx, &ShipmentRequest{
		Description: req.Reference,
		Shipper:     sender,
		ShipTo:      partyToAPI(req.Recipient, req.RecipientAddress),
		Service:     Code{Code: req.ServiceCode},
		Packages:    packagesToAPI(req.Packages),
		Reference:   req.Reference,
		LabelFormat: Code{Code: apiFormat},
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("UPS API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	charge, err := shipper.ParseMoney(apiResp.ShipmentCharges.MonetaryValue, apiResp.ShipmentCharges.CurrencyCode)
	if err != nil {
		return nil, shipper.NewServiceError(carrierName, "INVALID_PRICE", "unparseable shipment charges").WithCause(err)
	}

	shipment = &shipper.Shipment{
		ShipmentID:     apiResp.ShipmentIdentificationNumber,
		TrackingNumber: apiResp.ShipmentIdentificationNumber,
		Vendor:         carrierName,
		ServiceCode:    req.ServiceCode,
		Status:         shipper.StatusConfirmed,
		Charge:         charge,
		Labels:         make([]shipper.Label, 0, len(apiResp.PackageResults)),
	}
	for _, p := range apiResp.PackageResults {
		shipment.Labels = append(shipment.Labels, shipper.Label{Format: format, Data: p.GraphicImage})
	}
	if len(apiResp.PackageResults) > 0 {
		shipment.TrackingNumber = apiResp.PackageResults[0].TrackingNumber
	}
	return shipment, nil
}

// CancelShipment voids a UPS shipment.
func (c *Client) CancelShipment(ctx context.Context, req *shipper.CancelShipmentRequest) (resp *shipper.CancelShipmentResponse, err error) {
	ctx, span := c.tracer.Start(ctx, "ups.CancelShipment")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling UPS shipment",
		zap.String("shipment_id", req.ShipmentID),
		zap.String("reason", req.Reason),
	)

	apiResp, err := c.apiClient.Void(ctx, req.ShipmentID)
	if err != nil {
		c.logger.Ctx(ctx).Error("UPS API error", zap.Error(err))
		return nil, toShipperError(err)
	}
	if apiResp.Status.Code != "1" {
		return nil, shipper.NewServiceError(carrierName, apiResp.Status.Code, apiResp.Status.Description).
			WithCause(shipper.ErrCancellationNotAllowed)
	}

	return &shipper.CancelShipmentResponse{
		ShipmentID:         req.ShipmentID,
		Status:             shipper.StatusCancelled,
		ConfirmationNumber: req.ShipmentID,
	}, nil
}

// CreatePickup schedules a UPS pickup.
func (c *Client) CreatePickup(ctx context.Context, req *shipper.PickupRequest) (pickup *shipper.Pickup, err error) {
	ctx, span := c.tracer.Start(ctx, "ups.CreatePickup")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Creating UPS pickup",
		zap.String("postal_code", req.Address.PostalCode),
		zap.Time("ready_time", req.ReadyTime),
	)

	count := len(req.Packages)
	if count == 0 {
		count = 1
	}
	var weight float64
	unit := "LBS"
	for _, p := range req.Packages {
		weight += p.Weight
		if p.WeightUnit == shipper.WeightKG {
			unit = "KGS"
		}
	}

	party := partyToAPI(req.Contact, req.Address)
	party.ShipperNumber = c.config.AccountNumber

	apiResp, err := c.apiClient.SchedulePickup(ctx, &PickupRequest{
		Shipper:    party,
		PickupDate: req.ReadyTime.Format(dateLayout),
		ReadyTime:  req.ReadyTime.Format("1504"),
		CloseTime:  req.CloseTime.Format("1504"),
		TotalWeight: Weight{
			UnitOfMeasurement: Code{Code: unit},
			Weight:            strconv.FormatFloat(weight, 'f', -1, 64),
		},
		PackageCount:        count,
		SpecialInstructions: req.Instructions,
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("UPS API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	pickup = &shipper.Pickup{
		ConfirmationNumber: apiResp.PRN,
		Vendor:             carrierName,
		ScheduledDate:      req.ReadyTime,
		Location:           req.Address.City,
	}
	if apiResp.RateResult != nil {
		if pickup.Charge, err = shipper.ParseMoney(apiResp.RateResult.MonetaryValue, apiResp.RateResult.CurrencyCode); err != nil {
			return nil, shipper.NewServiceError(carrierName, "INVALID_PRICE", "unparseable pickup charge").WithCause(err)
		}
	}
	return pickup, nil
}

// CancelPickup cancels a UPS pickup by its PRN.
func (c *Client) CancelPickup(ctx context.Context, req *shipper.CancelPickupRequest) (resp *shipper.CancelPickupResponse, err error) {
	ctx, span := c.tracer.Start(ctx, "ups.CancelPickup")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling UPS pickup", zap.String("prn", req.ConfirmationNumber))

	apiResp, err := c.apiClient.CancelPickup(ctx, req.ConfirmationNumber)
	if err != nil {
		c.logger.Ctx(ctx).Error("UPS API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	return &shipper.CancelPickupResponse{
		ConfirmationNumber: apiResp.PRN,
		Cancelled:          apiResp.Status.Code == "1",
	}, nil
}

// GetAvailableServices lists the UPS services offered on a lane.
func (c *Client) GetAvailableServices(ctx context.Context, req *shipper.ServicesRequest) ([]shipper.ServiceOption, error) {
	domestic := req.Origin.CountryCode == req.Destination.CountryCode

	codes := internationalServices
	if domestic {
		codes = domesticServices
	}

	options := make([]shipper.ServiceOption, len(codes))
	for i, code := range codes {
		options[i] = shipper.ServiceOption{
			Vendor: carrierName,
			Code:   code,
			Name:   serviceName(code),
			Type:   mapServiceType(code),
		}
	}
	return options, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

var (
	domesticServices      = []string{"03", "12", "02", "59", "13", "01", "14"}
	internationalServices = []string{"11", "08", "65", "07"}

	// notFoundCodes are the UPS codes for unknown inquiry numbers.
	notFoundCodes = map[string]bool{"TW0001": true, "151044": true, "TV1002": true}
)

var serviceNames = map[string]string{
	"01": "UPS Next Day Air",
	"02": "UPS 2nd Day Air",
	"03": "UPS Ground",
	"07": "UPS Worldwide Express",
	"08": "UPS Worldwide Expedited",
	"11": "UPS Standard",
	"12": "UPS 3 Day Select",
	"13": "UPS Next Day Air Saver",
	"14": "UPS Next Day Air Early",
	"59": "UPS 2nd Day Air A.M.",
	"65": "UPS Worldwide Saver",
}

func serviceName(code string) string {
	if name, ok := serviceNames[code]; ok {
		return name
	}
	return "UPS " + code
}

func mapServiceType(code string) shipper.ServiceType {
	switch code {
	case "01", "13", "14":
		return shipper.ServiceOvernight
	case "02", "12", "59", "08", "65":
		return shipper.ServiceExpress
	case "07":
		return shipper.ServicePriority
	default:
		return shipper.ServiceStandard
	}
}

// normalizeServiceCode turns tracking's three digit codes ("003") into
// rating's two digit codes ("03").
func normalizeServiceCode(code string) string {
	if len(code) == 3 && code[0] == '0' {
		return code[1:]
	}
	return code
}

func mapActivityStatus(statusType string) shipper.ActivityStatus {
	switch statusType {
	case "D":
		return shipper.ActivityDelivered
	case "X", "RS":
		return shipper.ActivityException
	default:
		return shipper.ActivityInTransit
	}
}

func activityToShipper(a Activity) shipper.TrackingActivity {
	activity := shipper.TrackingActivity{
		Status:      mapActivityStatus(a.Status.Type),
		Description: a.Status.Description,
		Location: shipper.Address{
			City:         a.Location.Address.City,
			ProvinceCode: a.Location.Address.StateProvince,
			PostalCode:   a.Location.Address.PostalCode,
			CountryCode:  a.Location.Address.Country,
		},
	}
	if t := parseTime(dateTimeLayout, a.Date+a.Time); t != nil {
		activity.Timestamp = *t
	}
	return activity
}

func locale(language string) string {
	switch {
	case language == "":
		return "en_US"
	case strings.Contains(language, "_"):
		return language
	default:
		return strings.ToLower(language) + "_US"
	}
}

func notFoundError(trackingNumber string, warning ErrorDetail) error {
	err := shipper.NewServiceError(carrierName, "NOT_FOUND", "no tracking information for "+trackingNumber).
		WithCause(shipper.ErrTrackingNotFound)
	if warning.Code != "" {
		err.Code = warning.Code
		err.Message = warning.Message
	}
	return err
}

// trackingError marks service errors carrying a not-found code.
func trackingError(trackingNumber string, err error) error {
	var shipperErr *shipper.ShipperError
	if errors.As(err, &shipperErr) && shipperErr.Kind == shipper.KindService && notFoundCodes[shipperErr.Code] {
		return notFoundError(trackingNumber, ErrorDetail{Code: shipperErr.Code, Message: shipperErr.Message})
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
	a := Address{
		AddressLine:       lines,
		City:              addr.City,
		StateProvinceCode: addr.ProvinceCode,
		PostalCode:        addr.PostalCode,
		CountryCode:       addr.CountryCode,
	}
	if addr.IsResidential {
		a.Residential = "Y"
	}
	return a
}

func partyToAPI(contact shipper.Contact, addr shipper.Address) Party {
	name := contact.Company
	if name == "" {
		name = contact.Name
	}
	party := Party{
		Name:          name,
		AttentionName: contact.Name,
		Address:       addressToAPI(addr),
	}
	phone := contact.Phone
	if phone == "" {
		phone = addr.Phone
	}
	if phone != "" {
		party.Phone = &Phone{Number: phone}
	}
	return party
}

func packagesToAPI(packages []shipper.Package) []Package {
	result := make([]Package, len(packages))
	for i, p := range packages {
		weightUnit, dimUnit := "KGS", "CM"
		if p.WeightUnit == shipper.WeightLB {
			weightUnit = "LBS"
		}
		if p.DimensionUnit == shipper.DimensionIN {
			dimUnit = "IN"
		}

		result[i] = Package{
			PackagingType: Code{Code: "02"}, // customer supplied package
			PackageWeight: Weight{
				UnitOfMeasurement: Code{Code: weightUnit},
				Weight:            strconv.FormatFloat(p.Weight, 'f', -1, 64),
			},
		}
		if p.Length > 0 {
			result[i].Dimensions = &Dimensions{
				UnitOfMeasurement: Code{Code: dimUnit},
				Length:            strconv.FormatFloat(p.Length, 'f', -1, 64),
				Width:             strconv.FormatFloat(p.Width, 'f', -1, 64),
				Height:            strconv.FormatFloat(p.Height, 'f', -1, 64),
			}
		}
	}
	return result
}

// labelFormat maps a requested label format to what UPS can print. UPS has
// no PDF labels, so PDF requests get PNG.
func labelFormat(format shipper.LabelFormat) (shipper.LabelFormat, string) {
	if format == shipper.LabelZPL {
		return shipper.LabelZPL, "ZPL"
	}
	return shipper.LabelPNG, "PNG"
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
// failures are transport errors; rejected requests are service errors.
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
