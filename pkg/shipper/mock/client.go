// Package mock provides a mock shipper implementation for testing.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tournevent/parcelhub/pkg/shipper"
)

// Client is a mock shipper for testing. Without options it returns
// generated data derived from its name; options pin the quote and tracking
// answers so composites can be tested deterministically.
type Client struct {
	name string

	quotes     []shipper.Quote
	quotesSet  bool
	quoteErr   error
	tracking   *shipper.Tracking
	known      map[string]*shipper.Tracking
	trackErr   error
	delay      time.Duration
	panicValue any

	quoteCalls atomic.Int64
	trackCalls atomic.Int64
}

// Option configures a mock Client.
type Option func(*Client)

// WithQuotes makes GetQuotes return quotes.
func WithQuotes(quotes ...shipper.Quote) Option {
	return func(c *Client) {
		c.quotes = quotes
		c.quotesSet = true
	}
}

// WithQuoteError makes GetQuotes fail with err.
func WithQuoteError(err error) Option {
	return func(c *Client) { c.quoteErr = err }
}

// WithTracking makes GetTrackingStatus return t.
func WithTracking(t *shipper.Tracking) Option {
	return func(c *Client) { c.tracking = t }
}

// WithTrackingFor makes GetTrackingStatus return t for number only. Once
// set, unknown numbers fail with shipper.ErrTrackingNotFound.
func WithTrackingFor(number string, t *shipper.Tracking) Option {
	return func(c *Client) {
		if c.known == nil {
			c.known = make(map[string]*shipper.Tracking)
		}
		c.known[number] = t
	}
}

// WithTrackingError makes GetTrackingStatus fail with err.
func WithTrackingError(err error) Option {
	return func(c *Client) { c.trackErr = err }
}

// WithDelay delays quote and tracking answers by d, or until ctx is done.
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithPanic makes quote, tracking and service listing calls panic with v.
func WithPanic(v any) Option {
	return func(c *Client) { c.panicValue = v }
}

// New creates a new mock shipper.
func New(name string, opts ...Option) *Client {
	c := &Client{name: name}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// QuoteCalls returns how many times GetQuotes was called.
func (c *Client) QuoteCalls() int64 {
	return c.quoteCalls.Load()
}

// TrackCalls returns how many times GetTrackingStatus was called.
func (c *Client) TrackCalls() int64 {
	return c.trackCalls.Load()
}

func (c *Client) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetQuotes returns mock shipping quotes.
func (c *Client) GetQuotes(ctx context.Context, req *shipper.QuoteRequest) ([]shipper.Quote, error) {
	c.quoteCalls.Add(1)
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.panicValue != nil {
		panic(c.panicValue)
	}
	if c.quoteErr != nil {
		return nil, c.quoteErr
	}
	if c.quotesSet {
		return c.quotes, nil
	}

	estimatedDelivery := time.Date(2030, 1, 6, 17, 0, 0, 0, time.UTC)
	return []shipper.Quote{
		{
			Vendor:            c.name,
			ServiceCode:       "STANDARD",
			Amount:            shipper.Money{Amount: 1582, Currency: "USD"},
			ServiceName:       fmt.Sprintf("%s Standard", c.name),
			ServiceType:       shipper.ServiceStandard,
			TransitDays:       5,
			EstimatedDelivery: &estimatedDelivery,
		},
		{
			Vendor:      c.name,
			ServiceCode: "EXPRESS",
			Amount:      shipper.Money{Amount: 2995, Currency: "USD"},
			ServiceName: fmt.Sprintf("%s Express", c.name),
			ServiceType: shipper.ServiceExpress,
			TransitDays: 2,
			Guaranteed:  true,
		},
	}, nil
}

// GetTrackingStatus returns mock tracking.
func (c *Client) GetTrackingStatus(ctx context.Context, trackingNumber string, opts shipper.TrackingOptions) (*shipper.Tracking, error) {
	c.trackCalls.Add(1)
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.panicValue != nil {
		panic(c.panicValue)
	}
	if c.trackErr != nil {
		return nil, c.trackErr
	}
	if c.known != nil {
		if t, ok := c.known[trackingNumber]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("%w: %s", shipper.ErrTrackingNotFound, trackingNumber)
	}
	if c.tracking != nil {
		return c.tracking, nil
	}

	at := time.Date(2030, 1, 2, 9, 30, 0, 0, time.UTC)
	t := shipper.NewTracking(c.name, "STANDARD", []shipper.TrackingActivity{
		{
			Status:      shipper.ActivityInTransit,
			Description: "Departed facility",
			Timestamp:   at,
			Location:    shipper.Address{City: "Memphis", ProvinceCode: "TN", CountryCode: "US"},
		},
	})
	if opts.IncludeRaw {
		t.Raw = fmt.Sprintf(`{"carrier":%q,"trackingNumber":%q}`, c.name, trackingNumber)
	}
	return t, nil
}

// CreateShipment creates a mock shipment.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (*shipper.Shipment, error) {
	now := time.Now()
	shipmentID := fmt.Sprintf("%s-ship-%d", c.name, now.UnixNano())
	format := req.LabelFormat
	if format == "" {
		format = shipper.LabelPDF
	}

	return &shipper.Shipment{
		ShipmentID:     shipmentID,
		TrackingNumber: fmt.Sprintf("1Z%s%d", strings.ToUpper(c.name), now.UnixNano()%1000000000),
		Vendor:         c.name,
		ServiceCode:    req.ServiceCode,
		Status:         shipper.StatusConfirmed,
		Charge:         shipper.Money{Amount: 1582, Currency: "USD"},
		Labels: []shipper.Label{
			{Format: format, URL: fmt.Sprintf("https://labels.%s.mock/%s.%s", c.name, shipmentID, format)},
		},
	}, nil
}

// CancelShipment cancels a mock shipment.
func (c *Client) CancelShipment(ctx context.Context, req *shipper.CancelShipmentRequest) (*shipper.CancelShipmentResponse, error) {
	return &shipper.CancelShipmentResponse{
		ShipmentID:         req.ShipmentID,
		Status:             shipper.StatusCancelled,
		ConfirmationNumber: fmt.Sprintf("CANCEL-%d", time.Now().UnixNano()),
	}, nil
}

// CreatePickup schedules a mock pickup.
func (c *Client) CreatePickup(ctx context.Context, req *shipper.PickupRequest) (*shipper.Pickup, error) {
	return &shipper.Pickup{
		ConfirmationNumber: fmt.Sprintf("%s-PU-%d", strings.ToUpper(c.name), time.Now().UnixNano()%1000000),
		Vendor:             c.name,
		ScheduledDate:      req.ReadyTime,
		Location:           req.Address.City,
		Charge:             shipper.Money{Currency: "USD"},
	}, nil
}

// CancelPickup cancels a mock pickup.
func (c *Client) CancelPickup(ctx context.Context, req *shipper.CancelPickupRequest) (*shipper.CancelPickupResponse, error) {
	return &shipper.CancelPickupResponse{
		ConfirmationNumber: req.ConfirmationNumber,
		Cancelled:          true,
	}, nil
}

// GetAvailableServices lists mock services.
func (c *Client) GetAvailableServices(ctx context.Context, req *shipper.ServicesRequest) ([]shipper.ServiceOption, error) {
	if c.panicValue != nil {
		panic(c.panicValue)
	}
	return []shipper.ServiceOption{
		{Vendor: c.name, Code: "STANDARD", Name: fmt.Sprintf("%s Standard", c.name), Type: shipper.ServiceStandard},
		{Vendor: c.name, Code: "EXPRESS", Name: fmt.Sprintf("%s Express", c.name), Type: shipper.ServiceExpress},
	}, nil
}

var _ shipper.Shipper = (*Client)(nil)
