package ups

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tournevent/parcelhub/pkg/shipper/internal/transport"
	"golang.org/x/time/rate"
)

const apiVersion = "v2409"

// HTTPAPIClient is the production implementation of APIClient using
// JSON over HTTP with OAuth client credentials.
type HTTPAPIClient struct {
	baseURL       string
	clientID      string
	clientSecret  string
	accountNumber string
	httpClient    *http.Client
	limiter       *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	AccountNumber string
	Timeout       time.Duration
	RateLimit     float64 // requests per second, 0 for unlimited
	RateBurst     int
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	return &HTTPAPIClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		accountNumber: cfg.AccountNumber,
		httpClient:    transport.NewHTTPClient(cfg.Timeout),
		limiter:       transport.NewLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

// Shop fetches rates for every UPS service on a lane.
func (c *HTTPAPIClient) Shop(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	body := map[string]any{
		"RateRequest": map[string]any{
			"Request":  map[string]string{"RequestOption": "Shop"},
			"Shipment": req,
		},
	}
	var resp struct {
		RateResponse RateResponse `json:"RateResponse"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/rating/"+apiVersion+"/Shop", body, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.RateResponse, nil
}

// Track retrieves the activity of an inquiry number.
func (c *HTTPAPIClient) Track(ctx context.Context, inquiryNumber string, locale string) (*TrackResponse, error) {
	path := "/api/track/v1/details/" + url.PathEscape(inquiryNumber) + "?locale=" + url.QueryEscape(locale)
	headers := map[string]string{"transId": fmt.Sprintf("%d", time.Now().UnixNano()), "transactionSrc": "parcelhub"}

	var resp struct {
		TrackResponse TrackResponse `json:"trackResponse"`
	}
	raw, err := c.do(ctx, http.MethodGet, path, nil, &resp, headers)
	if err != nil {
		return nil, err
	}
	resp.TrackResponse.Raw = string(raw)
	return &resp.TrackResponse, nil
}

// Ship creates a shipment and its label.
func (c *HTTPAPIClient) Ship(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	body := map[string]any{
		"ShipmentRequest": map[string]any{"Shipment": req},
	}
	var resp struct {
		ShipmentResponse struct {
			ShipmentResults ShipmentResponse `json:"ShipmentResults"`
		} `json:"ShipmentResponse"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/shipments/"+apiVersion+"/ship", body, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.ShipmentResponse.ShipmentResults, nil
}

// Void cancels a shipment.
func (c *HTTPAPIClient) Void(ctx context.Context, shipmentID string) (*VoidResponse, error) {
	var resp struct {
		VoidShipmentResponse struct {
			SummaryResult VoidResponse `json:"SummaryResult"`
		} `json:"VoidShipmentResponse"`
	}
	path := "/api/shipments/" + apiVersion + "/void/cancel/" + url.PathEscape(shipmentID)
	if _, err := c.do(ctx, http.MethodDelete, path, nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.VoidShipmentResponse.SummaryResult, nil
}

// SchedulePickup creates a pickup request.
func (c *HTTPAPIClient) SchedulePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	body := map[string]any{"PickupCreationRequest": req}
	var resp struct {
		PickupCreationResponse PickupResponse `json:"PickupCreationResponse"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/pickupcreation/"+apiVersion+"/pickup", body, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.PickupCreationResponse, nil
}

// CancelPickup cancels a pickup by its PRN.
func (c *HTTPAPIClient) CancelPickup(ctx context.Context, prn string) (*CancelPickupResponse, error) {
	var resp struct {
		PickupCancelResponse CancelPickupResponse `json:"PickupCancelResponse"`
	}
	// CancelBy 02 cancels by PRN.
	if _, err := c.do(ctx, http.MethodDelete, "/api/shipments/"+apiVersion+"/pickup/02", nil, &resp, map[string]string{"Prn": prn}); err != nil {
		return nil, err
	}
	resp.PickupCancelResponse.PRN = prn
	return &resp.PickupCancelResponse, nil
}

// ============================================================================
// HTTP Helpers
// ============================================================================

// do performs an authenticated JSON request and decodes the answer into out.
// It returns the raw response body.
func (c *HTTPAPIClient) do(ctx context.Context, method, path string, body, out any, headers map[string]string) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

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
		if resp.StatusCode == http.StatusUnauthorized {
			c.resetToken()
		}
		return nil, parseError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return data, nil
}

// accessToken returns a cached OAuth token, fetching a new one when the
// cached token is missing or about to expire.
func (c *HTTPAPIClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/security/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-merchant-id", c.accountNumber)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp.StatusCode, data)
	}

	var tok struct {
		AccessToken string      `json:"access_token"`
		ExpiresIn   json.Number `json:"expires_in"`
	}
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	seconds, _ := tok.ExpiresIn.Int64()
	c.token = tok.AccessToken
	// Refresh a minute early.
	c.tokenExpiry = time.Now().Add(time.Duration(seconds)*time.Second - time.Minute)
	return c.token, nil
}

func (c *HTTPAPIClient) resetToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// parseError extracts error information from an HTTP response. UPS reports
// rejected requests as 400, 404 or 422 with an error body; those are
// business errors rather than transport failures.
func parseError(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Response.Errors) > 0 {
		apiErr := &APIError{
			Code:    errResp.Response.Errors[0].Code,
			Message: errResp.Response.Errors[0].Message,
		}
		switch statusCode {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		default:
			apiErr.StatusCode = statusCode
		}
		return apiErr
	}

	return &APIError{
		Code:       fmt.Sprintf("HTTP_%d", statusCode),
		Message:    string(body),
		StatusCode: statusCode,
	}
}

var _ APIClient = (*HTTPAPIClient)(nil)
