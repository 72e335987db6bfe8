// Package dhl provides integration with the DHL Express XML API.
package dhl

import (
	"context"
	"errors"
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
	carrierName = "dhl"

	actionSuccess = "success"

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Config holds DHL configuration.
type Config struct {
	APIKey        string
	APISecret     string
	AccountNumber string
	BaseURL       string
	UseMock       bool
	Timeout       time.Duration
	RateLimit     float64
	RateBurst     int
}

// Client is the DHL shipper client.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new DHL client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a new DHL client with a custom API client.
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

// GetQuotes returns DHL product quotes for the lane.
func (c *Client) GetQuotes(ctx context.Context, req *shipper.QuoteRequest) (quotes []shipper.Quote, err error) {
	ctx, span := c.tracer.Start(ctx, "dhl.GetQuotes")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting DHL quotes",
		zap.String("origin_country", req.Origin.CountryCode),
		zap.String("destination_country", req.Destination.CountryCode),
		zap.Int("package_count", len(req.Packages)),
	)

	apiReq := &RatesRequest{
		AccountNumber: c.config.AccountNumber,
		Origin:        locationToAPI(req.Origin),
		Destination:   locationToAPI(req.Destination),
		ShipDate:      shipDate(req.ShipDate),
		Units:         "CM",
		WeightUnit:    "KG",
		Pieces:        piecesToAPI(req.Packages),
	}
	if len(req.Packages) > 0 {
		if req.Packages[0].DimensionUnit == shipper.DimensionIN {
			apiReq.Units = "IN"
		}
		if req.Packages[0].WeightUnit == shipper.WeightLB {
			apiReq.WeightUnit = "LB"
		}
	}

	apiResp, err := c.apiClient.GetRates(ctx, apiReq)
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	quotes = make([]shipper.Quote, 0, len(apiResp.Products))
	for _, p := range apiResp.Products {
		serviceType := mapServiceType(p.GlobalProductCode)
		if !req.Wants(serviceType) {
			continue
		}

		amount, err := shipper.ParseMoney(p.TotalPrice.Amount, p.TotalPrice.Currency)
		if err != nil {
			return nil, shipper.NewServiceError(carrierName, "INVALID_PRICE", "unparseable product price").WithCause(err)
		}

		quote := shipper.NewQuote(carrierName, p.GlobalProductCode, amount)
		quote.ServiceName = p.ProductName
		quote.ServiceType = serviceType
		quote.TransitDays = p.TransitDays
		quote.EstimatedDelivery = parseTime(dateLayout, p.DeliveryDate)
		quote.Guaranteed = serviceType == shipper.ServicePriority
		quotes = append(quotes, quote)
	}

	span.SetAttributes(attribute.Int("quotes.count", len(quotes)))
	return quotes, nil
}

// GetTrackingStatus returns the checkpoint history of a DHL air waybill,
// most recent first.
func (c *Client) GetTrackingStatus(ctx context.Context, trackingNumber string, opts shipper.TrackingOptions) (tracking *shipper.Tracking, err error) {
	ctx, span := c.tracer.Start(ctx, "dhl.GetTrackingStatus",
		trace.WithAttributes(attribute.String("tracking.number", trackingNumber)))
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting DHL tracking", zap.String("tracking_number", trackingNumber))

	language := opts.Language
	if language == "" {
		language = "en"
	}

	apiResp, err := c.apiClient.GetTracking(ctx, &TrackingRequest{
		LanguageCode:   language,
		AWBNumber:      trackingNumber,
		LevelOfDetails: "ALL_CHECK_POINTS",
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	if len(apiResp.AWBInfo) == 0 || apiResp.AWBInfo[0].Status.ActionStatus != actionSuccess {
		return nil, notFoundError(trackingNumber, apiResp)
	}
	info := apiResp.AWBInfo[0]

	activities := make([]shipper.TrackingActivity, 0, len(info.Events))
	for i := len(info.Events) - 1; i >= 0; i-- {
		activities = append(activities, eventToActivity(info.Events[i]))
	}

	tracking = shipper.NewTracking(carrierName, info.ProductCode, activities)
	tracking.EstimatedDelivery = parseTime(dateTimeLayout, info.EstimatedDelivery)
	if opts.IncludeRaw {
		tracking.Raw = apiResp.Raw
	}
	return tracking, nil
}

// CreateShipment books a DHL shipment and returns its label inline.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (shipment *shipper.Shipment, err error) {
	ctx, span := c.tracer.Start(ctx, "dhl.CreateShipment")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Creating DHL shipment",
		zap.String("service_code", req.ServiceCode),
		zap.String("recipient", req.Recipient.Name),
	)

	format := req.LabelFormat
	if format == "" {
		format = shipper.LabelPDF
	}

	apiResp, err := c.apiClient.CreateShipment(ctx, &ShipmentRequest{
		AccountNumber:     c.config.AccountNumber,
		GlobalProductCode: req.ServiceCode,
		ShipDate:          shipDate(req.ShipDate),
		Pieces:            piecesToAPI(req.Packages),
		Shipper:           partyToAPI(req.Sender, req.SenderAddress),
		Consignee:         partyToAPI(req.Recipient, req.RecipientAddress),
		Reference:         req.Reference,
		LabelImageFormat:  labelFormatToAPI(format),
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	charge, err := shipper.ParseMoney(apiResp.ShippingCharge.Amount, apiResp.ShippingCharge.Currency)
	if err != nil {
		return nil, shipper.NewServiceError(carrierName, "INVALID_PRICE", "unparseable shipping charge").WithCause(err)
	}

	return &shipper.Shipment{
		ShipmentID:        apiResp.AirwayBillNumber,
		TrackingNumber:    apiResp.AirwayBillNumber,
		Vendor:            carrierName,
		ServiceCode:       apiResp.GlobalProductCode,
		Status:            shipper.StatusConfirmed,
		Charge:            charge,
		Labels:            []shipper.Label{{Format: format, Data: apiResp.LabelImage.Image}},
		EstimatedDelivery: parseTime(dateLayout, apiResp.DeliveryDate),
	}, nil
}

// CancelShipment deletes a DHL shipment.
func (c *Client) CancelShipment(ctx context.Context, req *shipper.CancelShipmentRequest) (resp *shipper.CancelShipmentResponse, err error) {
	ctx, span := c.tracer.Start(ctx, "dhl.CancelShipment")
	defer func() { transport.EndSpan(span, err) }()

	awb := req.TrackingNumber
	if awb == "" {
		awb = req.ShipmentID
	}
	c.logger.Ctx(ctx).Info("Cancelling DHL shipment",
		zap.String("awb", awb),
		zap.String("reason", req.Reason),
	)

	apiResp, err := c.apiClient.DeleteShipment(ctx, &DeleteRequest{AirwayBillNumber: awb, Reason: req.Reason})
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	status := shipper.StatusPending
	if strings.EqualFold(apiResp.Status, "deleted") {
		status = shipper.StatusCancelled
	}
	return &shipper.CancelShipmentResponse{
		ShipmentID:         req.ShipmentID,
		Status:             status,
		ConfirmationNumber: apiResp.AirwayBillNumber,
	}, nil
}

// CreatePickup books a DHL courier pickup.
func (c *Client) CreatePickup(ctx context.Context, req *shipper.PickupRequest) (pickup *shipper.Pickup, err error) {
	ctx, span := c.tracer.Start(ctx, "dhl.CreatePickup")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Creating DHL pickup",
		zap.String("city", req.Address.City),
		zap.Time("ready_time", req.ReadyTime),
	)

	pieces := len(req.Packages)
	if pieces == 0 {
		pieces = 1
	}

	apiResp, err := c.apiClient.BookPickup(ctx, &PickupRequest{
		AccountNumber: c.config.AccountNumber,
		Place:         partyToAPI(req.Contact, req.Address),
		PickupDate:    req.ReadyTime.Format(dateLayout),
		ReadyByTime:   req.ReadyTime.Format("15:04"),
		CloseTime:     req.CloseTime.Format("15:04"),
		Pieces:        pieces,
		Remarks:       req.Instructions,
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	scheduled := req.ReadyTime
	if t := parseTime(dateLayout, apiResp.PickupDate); t != nil {
		scheduled = *t
	}

	pickup = &shipper.Pickup{
		ConfirmationNumber: apiResp.ConfirmationNumber,
		Vendor:             carrierName,
		ScheduledDate:      scheduled,
		Location:           apiResp.OriginSvcArea,
	}
	if apiResp.PickupCharge.Currency != "" {
		if pickup.Charge, err = shipper.ParseMoney(apiResp.PickupCharge.Amount, apiResp.PickupCharge.Currency); err != nil {
			return nil, shipper.NewServiceError(carrierName, "INVALID_PRICE", "unparseable pickup charge").WithCause(err)
		}
	}
	return pickup, nil
}

// CancelPickup cancels a DHL courier pickup.
func (c *Client) CancelPickup(ctx context.Context, req *shipper.CancelPickupRequest) (resp *shipper.CancelPickupResponse, err error) {
	ctx, span := c.tracer.Start(ctx, "dhl.CancelPickup")
	defer func() { transport.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling DHL pickup", zap.String("confirmation_number", req.ConfirmationNumber))

	reason := req.Reason
	if reason == "" {
		reason = "001" // package not ready
	}

	apiResp, err := c.apiClient.CancelPickup(ctx, &CancelPickupRequest{
		ConfirmationNumber: req.ConfirmationNumber,
		PickupDate:         req.ScheduledDate.Format(dateLayout),
		Reason:             reason,
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL API error", zap.Error(err))
		return nil, toShipperError(err)
	}

	return &shipper.CancelPickupResponse{
		ConfirmationNumber: apiResp.ConfirmationNumber,
		Cancelled:          true,
	}, nil
}

// GetAvailableServices lists the DHL products offered on a lane.
func (c *Client) GetAvailableServices(ctx context.Context, req *shipper.ServicesRequest) ([]shipper.ServiceOption, error) {
	domestic := req.Origin.CountryCode != "" && req.Origin.CountryCode == req.Destination.CountryCode

	options := make([]shipper.ServiceOption, 0, len(products))
	for _, p := range products {
		if p.domestic != domestic {
			continue
		}
		options = append(options, shipper.ServiceOption{
			Vendor: carrierName,
			Code:   p.code,
			Name:   p.name,
			Type:   mapServiceType(p.code),
		})
	}
	return options, nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

type product struct {
	code     string
	name     string
	domestic bool
}

var products = []product{
	{code: "N", name: "DOMESTIC EXPRESS", domestic: true},
	{code: "T", name: "EXPRESS 12:00 DOMESTIC", domestic: true},
	{code: "P", name: "EXPRESS WORLDWIDE"},
	{code: "K", name: "EXPRESS 9:00"},
	{code: "H", name: "ECONOMY SELECT"},
	{code: "W", name: "ECONOMY SELECT NON-DOC"},
}

func mapServiceType(code string) shipper.ServiceType {
	switch code {
	case "N", "P", "D":
		return shipper.ServiceExpress
	case "T", "K", "Y":
		return shipper.ServicePriority
	case "H", "W":
		return shipper.ServiceEconomy
	default:
		return shipper.ServiceStandard
	}
}

func mapEventStatus(code string) shipper.ActivityStatus {
	switch code {
	case "OK":
		return shipper.ActivityDelivered
	case "OH", "CA", "RT", "NH", "BA", "MS", "CM":
		return shipper.ActivityException
	default:
		return shipper.ActivityInTransit
	}
}

func eventToActivity(e ShipmentEvent) shipper.TrackingActivity {
	activity := shipper.TrackingActivity{
		Status:      mapEventStatus(e.Code),
		Description: e.Description,
		Location:    shipper.Address{City: e.ServiceArea.Description},
	}
	if city, _, ok := strings.Cut(e.ServiceArea.Description, " - "); ok {
		activity.Location.City = city
	}
	if t := parseTime(dateTimeLayout, e.Date+" "+e.Time); t != nil {
		activity.Timestamp = *t
	}
	return activity
}

func notFoundError(trackingNumber string, resp *TrackingResponse) error {
	err := shipper.NewServiceError(carrierName, "NOT_FOUND", "no shipment found for "+trackingNumber).
		WithCause(shipper.ErrTrackingNotFound)
	if len(resp.AWBInfo) > 0 && len(resp.AWBInfo[0].Status.Conditions) > 0 {
		cond := resp.AWBInfo[0].Status.Conditions[0]
		err.Code = cond.Code
		err.Message = cond.Message
	}
	return err
}

func locationToAPI(addr shipper.Address) Location {
	return Location{
		CountryCode: addr.CountryCode,
		PostalCode:  addr.PostalCode,
		City:        addr.City,
	}
}

func partyToAPI(contact shipper.Contact, addr shipper.Address) Party {
	company := contact.Company
	if company == "" {
		company = addr.Company
	}
	if company == "" {
		company = contact.Name
	}
	phone := contact.Phone
	if phone == "" {
		phone = addr.Phone
	}
	return Party{
		CompanyName:  company,
		PersonName:   contact.Name,
		PhoneNumber:  phone,
		Email:        contact.Email,
		AddressLine1: addr.Line1,
		AddressLine2: addr.Line2,
		City:         addr.City,
		Division:     addr.ProvinceCode,
		PostalCode:   addr.PostalCode,
		CountryCode:  addr.CountryCode,
	}
}

func piecesToAPI(packages []shipper.Package) []Piece {
	pieces := make([]Piece, len(packages))
	for i, p := range packages {
		pieces[i] = Piece{
			PieceID: i + 1,
			Weight:  p.Weight,
			Length:  p.Length,
			Width:   p.Width,
			Height:  p.Height,
		}
	}
	return pieces
}

func labelFormatToAPI(format shipper.LabelFormat) string {
	switch format {
	case shipper.LabelZPL:
		return "ZPL2"
	case shipper.LabelPNG:
		return "PNG"
	default:
		return "PDF"
	}
}

func shipDate(t *time.Time) string {
	if t == nil {
		return time.Now().Format(dateLayout)
	}
	return t.Format(dateLayout)
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
// failures are transport errors; DHL conditions are service errors.
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
