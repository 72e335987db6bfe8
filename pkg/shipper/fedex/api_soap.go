package fedex

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/tournevent/parcelhub/pkg/shipper/internal/transport"
	"golang.org/x/time/rate"
)

// SOAPAPIClient is the production implementation of APIClient using SOAP.
type SOAPAPIClient struct {
	baseURL    string
	key        string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// SOAPAPIClientConfig holds configuration for the SOAP client.
type SOAPAPIClientConfig struct {
	BaseURL   string
	Key       string
	Password  string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 for unlimited
	RateBurst int
}

// NewSOAPAPIClient creates a new SOAP-based API client for production use.
func NewSOAPAPIClient(cfg SOAPAPIClientConfig) *SOAPAPIClient {
	return &SOAPAPIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		key:        cfg.Key,
		password:   cfg.Password,
		httpClient: transport.NewHTTPClient(cfg.Timeout),
		limiter:    transport.NewLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

// GetRates fetches rates via RateService.
func (c *SOAPAPIClient) GetRates(ctx context.Context, req *RateRequest) (*RateReply, error) {
	var reply RateReply
	if _, err := c.call(ctx, "rate", rateTmpl, req, &reply); err != nil {
		return nil, err
	}
	if err := severityError(reply.HighestSeverity, reply.Notifications); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Track retrieves scan events via TrackService.
func (c *SOAPAPIClient) Track(ctx context.Context, req *TrackRequest) (*TrackReply, error) {
	var reply TrackReply
	raw, err := c.call(ctx, "track", trackTmpl, req, &reply)
	if err != nil {
		return nil, err
	}
	if err := severityError(reply.HighestSeverity, reply.Notifications); err != nil {
		return nil, err
	}
	reply.Raw = string(raw)
	return &reply, nil
}

// ProcessShipment creates a shipment via ShipService.
func (c *SOAPAPIClient) ProcessShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentReply, error) {
	var reply ShipmentReply
	if _, err := c.call(ctx, "ship", shipTmpl, req, &reply); err != nil {
		return nil, err
	}
	if err := severityError(reply.HighestSeverity, reply.Notifications); err != nil {
		return nil, err
	}
	return &reply, nil
}

// DeleteShipment cancels a shipment via ShipService.
func (c *SOAPAPIClient) DeleteShipment(ctx context.Context, req *DeleteShipmentRequest) (*DeleteShipmentReply, error) {
	var reply DeleteShipmentReply
	if _, err := c.call(ctx, "ship", deleteTmpl, req, &reply); err != nil {
		return nil, err
	}
	if err := severityError(reply.HighestSeverity, reply.Notifications); err != nil {
		return nil, err
	}
	return &reply, nil
}

// CreatePickup schedules a pickup via PickupService.
func (c *SOAPAPIClient) CreatePickup(ctx context.Context, req *PickupRequest) (*PickupReply, error) {
	var reply PickupReply
	if _, err := c.call(ctx, "pickup", pickupTmpl, req, &reply); err != nil {
		return nil, err
	}
	if err := severityError(reply.HighestSeverity, reply.Notifications); err != nil {
		return nil, err
	}
	return &reply, nil
}

// CancelPickup cancels a pickup via PickupService.
func (c *SOAPAPIClient) CancelPickup(ctx context.Context, req *CancelPickupRequest) (*CancelPickupReply, error) {
	var reply CancelPickupReply
	if _, err := c.call(ctx, "pickup", cancelPickupTmpl, req, &reply); err != nil {
		return nil, err
	}
	if err := severityError(reply.HighestSeverity, reply.Notifications); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ============================================================================
// SOAP Request Helpers
// ============================================================================

// envelopeData is the template input shared by every request.
type envelopeData struct {
	Key      string
	Password string
	Request  any
}

// call renders tmpl into a SOAP envelope, posts it to the service and
// decodes the reply body into out. It returns the raw response body.
func (c *SOAPAPIClient) call(ctx context.Context, service string, tmpl *template.Template, req, out any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, envelopeData{Key: c.key, Password: c.password, Request: req}); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/web-services/"+service, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", fmt.Sprintf("http://fedex.com/ws/%s", tmpl.Name()))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env soapEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: string(data), StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// A fault is FedEx refusing the request, not a transport failure.
	if env.Body.Fault != nil {
		return nil, &APIError{Code: env.Body.Fault.Code, Message: env.Body.Fault.String}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: http.StatusText(resp.StatusCode), StatusCode: resp.StatusCode}
	}

	if err := xml.Unmarshal(env.Body.Content, out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return data, nil
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Fault   *soapFault `xml:"Fault"`
	Content []byte     `xml:",innerxml"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// ============================================================================
// SOAP Request Templates
// ============================================================================

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func newTemplate(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(template.FuncMap{"x": xmlEscape}).Parse(
		envelopeHeader + body + envelopeFooter,
	))
}

const envelopeHeader = `<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:v="http://fedex.com/ws">
  <soapenv:Header/>
  <soapenv:Body>
    {{define "auth"}}<v:WebAuthenticationDetail>
        <v:UserCredential><v:Key>{{x .Key}}</v:Key><v:Password>{{x .Password}}</v:Password></v:UserCredential>
      </v:WebAuthenticationDetail>
      <v:ClientDetail>
        <v:AccountNumber>{{x .Request.AccountNumber}}</v:AccountNumber><v:MeterNumber>{{x .Request.MeterNumber}}</v:MeterNumber>
      </v:ClientDetail>{{end}}
    {{define "address"}}{{range .StreetLines}}<v:StreetLines>{{x .}}</v:StreetLines>{{end}}
          <v:City>{{x .City}}</v:City>
          <v:StateOrProvinceCode>{{x .StateOrProvinceCode}}</v:StateOrProvinceCode>
          <v:PostalCode>{{x .PostalCode}}</v:PostalCode>
          <v:CountryCode>{{x .CountryCode}}</v:CountryCode>
          <v:Residential>{{.Residential}}</v:Residential>{{end}}
    {{define "party"}}<v:Contact>
          <v:PersonName>{{x .PersonName}}</v:PersonName>
          <v:CompanyName>{{x .CompanyName}}</v:CompanyName>
          <v:PhoneNumber>{{x .PhoneNumber}}</v:PhoneNumber>
        </v:Contact>
        <v:Address>{{template "address" .Address}}</v:Address>{{end}}
    {{define "packages"}}{{range .}}<v:RequestedPackageLineItems>
          <v:SequenceNumber>{{.SequenceNumber}}</v:SequenceNumber>
          <v:Weight><v:Units>{{.WeightUnits}}</v:Units><v:Value>{{.Weight}}</v:Value></v:Weight>
          {{if .Length}}<v:Dimensions><v:Length>{{.Length}}</v:Length><v:Width>{{.Width}}</v:Width><v:Height>{{.Height}}</v:Height><v:Units>{{.DimensionUnits}}</v:Units></v:Dimensions>{{end}}
        </v:RequestedPackageLineItems>{{end}}{{end}}
`

const envelopeFooter = `
  </soapenv:Body>
</soapenv:Envelope>`

var (
	rateTmpl = newTemplate("rate/getRates", `<v:RateRequest>
      {{template "auth" .}}
      <v:Version><v:ServiceId>crs</v:ServiceId><v:Major>31</v:Major></v:Version>
      <v:ReturnTransitAndCommit>true</v:ReturnTransitAndCommit>
      <v:RequestedShipment>
        <v:ShipTimestamp>{{.Request.ShipTimestamp}}</v:ShipTimestamp>
        <v:DropoffType>REGULAR_PICKUP</v:DropoffType>
        <v:Shipper><v:Address>{{template "address" .Request.Shipper}}</v:Address></v:Shipper>
        <v:Recipient><v:Address>{{template "address" .Request.Recipient}}</v:Address></v:Recipient>
        <v:PackageCount>{{len .Request.Packages}}</v:PackageCount>
        {{template "packages" .Request.Packages}}
      </v:RequestedShipment>
    </v:RateRequest>`)

	trackTmpl = newTemplate("track/track", `<v:TrackRequest>
      {{template "auth" .}}
      <v:Version><v:ServiceId>trck</v:ServiceId><v:Major>19</v:Major></v:Version>
      <v:SelectionDetails>
        <v:PackageIdentifier><v:Type>TRACKING_NUMBER_OR_DOORTAG</v:Type><v:Value>{{x .Request.TrackingNumber}}</v:Value></v:PackageIdentifier>
      </v:SelectionDetails>
      {{if .Request.IncludeDetailedScans}}<v:ProcessingOptions>INCLUDE_DETAILED_SCANS</v:ProcessingOptions>{{end}}
      <v:Localization><v:LanguageCode>{{x .Request.Language}}</v:LanguageCode></v:Localization>
    </v:TrackRequest>`)

	shipTmpl = newTemplate("ship/processShipment", `<v:ProcessShipmentRequest>
      {{template "auth" .}}
      <v:Version><v:ServiceId>ship</v:ServiceId><v:Major>28</v:Major></v:Version>
      <v:RequestedShipment>
        <v:ShipTimestamp>{{.Request.ShipTimestamp}}</v:ShipTimestamp>
        <v:DropoffType>REGULAR_PICKUP</v:DropoffType>
        <v:ServiceType>{{x .Request.ServiceType}}</v:ServiceType>
        <v:PackagingType>YOUR_PACKAGING</v:PackagingType>
        <v:Shipper>{{template "party" .Request.Shipper}}</v:Shipper>
        <v:Recipient>{{template "party" .Request.Recipient}}</v:Recipient>
        <v:ShippingChargesPayment>
          <v:PaymentType>SENDER</v:PaymentType>
          <v:Payor><v:ResponsibleParty><v:AccountNumber>{{x .Request.AccountNumber}}</v:AccountNumber></v:ResponsibleParty></v:Payor>
        </v:ShippingChargesPayment>
        <v:LabelSpecification>
          <v:LabelFormatType>COMMON2D</v:LabelFormatType>
          <v:ImageType>{{.Request.LabelImageType}}</v:ImageType>
        </v:LabelSpecification>
        {{if .Request.CustomerReference}}<v:CustomerReferences><v:CustomerReferenceType>CUSTOMER_REFERENCE</v:CustomerReferenceType><v:Value>{{x .Request.CustomerReference}}</v:Value></v:CustomerReferences>{{end}}
        <v:PackageCount>{{len .Request.Packages}}</v:PackageCount>
        {{template "packages" .Request.Packages}}
      </v:RequestedShipment>
    </v:ProcessShipmentRequest>`)

	deleteTmpl = newTemplate("ship/deleteShipment", `<v:DeleteShipmentRequest>
      {{template "auth" .}}
      <v:Version><v:ServiceId>ship</v:ServiceId><v:Major>28</v:Major></v:Version>
      <v:TrackingId><v:TrackingIdType>FEDEX</v:TrackingIdType><v:TrackingNumber>{{x .Request.TrackingNumber}}</v:TrackingNumber></v:TrackingId>
      <v:DeletionControl>DELETE_ALL_PACKAGES</v:DeletionControl>
    </v:DeleteShipmentRequest>`)

	pickupTmpl = newTemplate("pickup/createPickup", `<v:CreatePickupRequest>
      {{template "auth" .}}
      <v:Version><v:ServiceId>disp</v:ServiceId><v:Major>22</v:Major></v:Version>
      <v:OriginDetail>
        <v:PickupLocation>{{template "party" .Request.Location}}</v:PickupLocation>
        <v:ReadyTimestamp>{{.Request.ReadyTimestamp}}</v:ReadyTimestamp>
        <v:CompanyCloseTime>{{.Request.CompanyCloseTime}}</v:CompanyCloseTime>
      </v:OriginDetail>
      <v:PackageCount>{{.Request.PackageCount}}</v:PackageCount>
      <v:TotalWeight><v:Units>KG</v:Units><v:Value>{{.Request.TotalWeight}}</v:Value></v:TotalWeight>
      <v:CarrierCode>{{.Request.CarrierCode}}</v:CarrierCode>
      <v:Remarks>{{x .Request.CourierRemarks}}</v:Remarks>
      <v:CountryRelationship>{{.Request.CountryRelationship}}</v:CountryRelationship>
    </v:CreatePickupRequest>`)

	cancelPickupTmpl = newTemplate("pickup/cancelPickup", `<v:CancelPickupRequest>
      {{template "auth" .}}
      <v:Version><v:ServiceId>disp</v:ServiceId><v:Major>22</v:Major></v:Version>
      <v:CarrierCode>FDXE</v:CarrierCode>
      <v:PickupConfirmationNumber>{{x .Request.PickupConfirmationNumber}}</v:PickupConfirmationNumber>
      <v:ScheduledDate>{{.Request.ScheduledDate}}</v:ScheduledDate>
      <v:Location>{{x .Request.Location}}</v:Location>
      <v:Remarks>{{x .Request.Remarks}}</v:Remarks>
    </v:CancelPickupRequest>`)
)

var _ APIClient = (*SOAPAPIClient)(nil)
