package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Carrier names, in default registration order.
const (
	CarrierDHL   = "dhl"
	CarrierFedEx = "fedex"
	CarrierUPS   = "ups"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// CORSAllowedOrigins defaults to any origin when empty.
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// CarrierOrder is the precedence of carriers in composed calls.
	CarrierOrder []string `envconfig:"CARRIER_ORDER" default:"dhl,fedex,ups"`

	// DHL
	DHLAPIKey        string        `envconfig:"DHL_API_KEY"`
	DHLAPISecret     string        `envconfig:"DHL_API_SECRET"`
	DHLAccountNumber string        `envconfig:"DHL_ACCOUNT_NUMBER"`
	DHLBaseURL       string        `envconfig:"DHL_BASE_URL" default:"https://xmlpi-ea.dhl.com/XMLShippingServlet"`
	DHLEnabled       bool          `envconfig:"DHL_ENABLED" default:"true"`
	DHLUseMock       bool          `envconfig:"DHL_USE_MOCK" default:"false"`
	DHLTimeout       time.Duration `envconfig:"DHL_TIMEOUT" default:"30s"`
	DHLRateLimit     float64       `envconfig:"DHL_RATE_LIMIT" default:"10"`
	DHLRateBurst     int           `envconfig:"DHL_RATE_BURST" default:"5"`

	// FedEx
	FedExKey           string        `envconfig:"FEDEX_KEY"`
	FedExPassword      string        `envconfig:"FEDEX_PASSWORD"`
	FedExAccountNumber string        `envconfig:"FEDEX_ACCOUNT_NUMBER"`
	FedExMeterNumber   string        `envconfig:"FEDEX_METER_NUMBER"`
	FedExBaseURL       string        `envconfig:"FEDEX_BASE_URL" default:"https://ws.fedex.com:443"`
	FedExEnabled       bool          `envconfig:"FEDEX_ENABLED" default:"true"`
	FedExUseMock       bool          `envconfig:"FEDEX_USE_MOCK" default:"false"`
	FedExTimeout       time.Duration `envconfig:"FEDEX_TIMEOUT" default:"30s"`
	FedExRateLimit     float64       `envconfig:"FEDEX_RATE_LIMIT" default:"10"`
	FedExRateBurst     int           `envconfig:"FEDEX_RATE_BURST" default:"5"`

	// UPS
	UPSClientID      string        `envconfig:"UPS_CLIENT_ID"`
	UPSClientSecret  string        `envconfig:"UPS_CLIENT_SECRET"`
	UPSAccountNumber string        `envconfig:"UPS_ACCOUNT_NUMBER"`
	UPSBaseURL       string        `envconfig:"UPS_BASE_URL" default:"https://onlinetools.ups.com"`
	UPSEnabled       bool          `envconfig:"UPS_ENABLED" default:"true"`
	UPSUseMock       bool          `envconfig:"UPS_USE_MOCK" default:"false"`
	UPSTimeout       time.Duration `envconfig:"UPS_TIMEOUT" default:"30s"`
	UPSRateLimit     float64       `envconfig:"UPS_RATE_LIMIT" default:"10"`
	UPSRateBurst     int           `envconfig:"UPS_RATE_BURST" default:"5"`

	// Telemetry
	OTELEnabled       bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint      string  `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	OTELSamplingRatio float64 `envconfig:"OTEL_SAMPLING_RATIO" default:"1"`
	Environment       string  `envconfig:"ENVIRONMENT" default:"development"`
	ServiceName       string  `envconfig:"SERVICE_NAME" default:"parcelhub"`
	Version           string  `envconfig:"SERVICE_VERSION" default:"0.1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validateOrder(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validateOrder() error {
	seen := make(map[string]bool, len(c.CarrierOrder))
	for i, name := range c.CarrierOrder {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case CarrierDHL, CarrierFedEx, CarrierUPS:
		default:
			return fmt.Errorf("CARRIER_ORDER: unknown carrier %q", name)
		}
		if seen[name] {
			return fmt.Errorf("CARRIER_ORDER: carrier %q listed twice", name)
		}
		seen[name] = true
		c.CarrierOrder[i] = name
	}
	return nil
}

// Enabled reports whether the named carrier is switched on.
func (c *Config) Enabled(carrier string) bool {
	switch carrier {
	case CarrierDHL:
		return c.DHLEnabled
	case CarrierFedEx:
		return c.FedExEnabled
	case CarrierUPS:
		return c.UPSEnabled
	default:
		return false
	}
}

// EnabledCarriers returns the enabled carriers in precedence order.
func (c *Config) EnabledCarriers() []string {
	var names []string
	for _, name := range c.CarrierOrder {
		if c.Enabled(name) {
			names = append(names, name)
		}
	}
	return names
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.StringSlice("carriers.order", c.CarrierOrder),
		attribute.Bool("dhl.enabled", c.DHLEnabled),
		attribute.Bool("fedex.enabled", c.FedExEnabled),
		attribute.Bool("ups.enabled", c.UPSEnabled),
	}
}
