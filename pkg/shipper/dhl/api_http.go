package dhl

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tournevent/parcelhub/pkg/shipper/internal/transport"
	"golang.org/x/time/rate"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP/XML.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string // Password for Basic Auth
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 for unlimited
	RateBurst int
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	return &HTTPAPIClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: transport.NewHTTPClient(cfg.Timeout),
		limiter:    transport.NewLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

// errorResponse is the XML body DHL returns on failures.
type errorResponse struct {
	XMLName    xml.Name    `xml:"ErrorResponse"`
	Conditions []Condition `xml:"Response>Status>Condition"`
}

// GetRates fetches product quotes from the DHL API.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	var resp RatesResponse
	if _, err := c.post(ctx, "/rates", req, &resp); err != nil {
		return nil, err
	}
	if err := conditionsError(resp.Conditions); err != nil && len(resp.Products) == 0 {
		return nil, err
	}
	return &resp, nil
}

// GetTracking retrieves tracking information from the DHL API.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, req *TrackingRequest) (*TrackingResponse, error) {
	var resp TrackingResponse
	raw, err := c.post(ctx, "/tracking", req, &resp)
	if err != nil {
		return nil, err
	}
	resp.Raw = string(raw)
	return &resp, nil
}

// CreateShipment creates a new shipment via the DHL API.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var resp ShipmentResponse
	if _, err := c.post(ctx, "/shipments", req, &resp); err != nil {
		return nil, err
	}
	if resp.AirwayBillNumber == "" {
		if err := conditionsError(resp.Conditions); err != nil {
			return nil, err
		}
		return nil, &APIError{Code: "NO_AWB", Message: "shipment response carried no air waybill"}
	}
	return &resp, nil
}

// DeleteShipment cancels a shipment via the DHL API.
func (c *HTTPAPIClient) DeleteShipment(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error) {
	var resp DeleteResponse
	if _, err := c.post(ctx, "/shipments/delete", req, &resp); err != nil {
		return nil, err
	}
	if err := conditionsError(resp.Conditions); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BookPickup schedules a courier pickup via the DHL API.
func (c *HTTPAPIClient) BookPickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	var resp PickupResponse
	if _, err := c.post(ctx, "/pickups", req, &resp); err != nil {
		return nil, err
	}
	if resp.ConfirmationNumber == "" {
		if err := conditionsError(resp.Conditions); err != nil {
			return nil, err
		}
	}
	return &resp, nil
}

// CancelPickup cancels a pickup via the DHL API.
func (c *HTTPAPIClient) CancelPickup(ctx context.Context, req *CancelPickupRequest) (*CancelPickupResponse, error) {
	var resp CancelPickupResponse
	if _, err := c.post(ctx, "/pickups/cancel", req, &resp); err != nil {
		return nil, err
	}
	if err := conditionsError(resp.Conditions); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ============================================================================
// HTTP Helpers
// ============================================================================

// post sends body as XML and decodes the answer into out. It returns the
// raw response body.
func (c *HTTPAPIClient) post(ctx context.Context, path string, body, out any) ([]byte, error) {
	xmlBody, err := xml.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(append([]byte(xml.Header), xmlBody...)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, data)
	}

	if err := xml.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return data, nil
}

func parseError(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := xml.Unmarshal(body, &errResp); err == nil && len(errResp.Conditions) > 0 {
		return &APIError{
			Code:       errResp.Conditions[0].Code,
			Message:    errResp.Conditions[0].Message,
			StatusCode: statusCode,
		}
	}

	return &APIError{
		Code:       fmt.Sprintf("HTTP_%d", statusCode),
		Message:    string(body),
		StatusCode: statusCode,
	}
}

var _ APIClient = (*HTTPAPIClient)(nil)
