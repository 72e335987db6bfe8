package main

import (
	"context"

	"github.com/tournevent/parcelhub/internal/config"
	"github.com/tournevent/parcelhub/internal/telemetry"
	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/tournevent/parcelhub/pkg/shipper/dhl"
	"github.com/tournevent/parcelhub/pkg/shipper/fedex"
	"github.com/tournevent/parcelhub/pkg/shipper/ups"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

// initTracer returns a nil tracer and a no-op shutdown when tracing is off.
// Carriers fall back to a no-op tracer in that case.
func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, func(context.Context) error { return nil }, nil
	}

	return telemetry.InitTracer(ctx, telemetry.TracingConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Endpoint:       cfg.OTELEndpoint,
		SamplingRatio:  cfg.OTELSamplingRatio,
		Environment:    cfg.Environment,
		Attributes:     cfg.Attributes(),
	})
}

// initShipperRegistry registers the enabled carriers in CARRIER_ORDER, which
// is the precedence of every composed call.
func initShipperRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) *shipper.Registry {
	registry := shipper.NewRegistry()

	for _, name := range cfg.EnabledCarriers() {
		switch name {
		case config.CarrierDHL:
			registry.Register(dhl.New(dhl.Config{
				APIKey:        cfg.DHLAPIKey,
				APISecret:     cfg.DHLAPISecret,
				AccountNumber: cfg.DHLAccountNumber,
				BaseURL:       cfg.DHLBaseURL,
				UseMock:       cfg.DHLUseMock,
				Timeout:       cfg.DHLTimeout,
				RateLimit:     cfg.DHLRateLimit,
				RateBurst:     cfg.DHLRateBurst,
			}, logger, tracer))

		case config.CarrierFedEx:
			registry.Register(fedex.New(fedex.Config{
				Key:           cfg.FedExKey,
				Password:      cfg.FedExPassword,
				AccountNumber: cfg.FedExAccountNumber,
				MeterNumber:   cfg.FedExMeterNumber,
				BaseURL:       cfg.FedExBaseURL,
				UseMock:       cfg.FedExUseMock,
				Timeout:       cfg.FedExTimeout,
				RateLimit:     cfg.FedExRateLimit,
				RateBurst:     cfg.FedExRateBurst,
			}, logger, tracer))

		case config.CarrierUPS:
			registry.Register(ups.New(ups.Config{
				ClientID:      cfg.UPSClientID,
				ClientSecret:  cfg.UPSClientSecret,
				AccountNumber: cfg.UPSAccountNumber,
				BaseURL:       cfg.UPSBaseURL,
				UseMock:       cfg.UPSUseMock,
				Timeout:       cfg.UPSTimeout,
				RateLimit:     cfg.UPSRateLimit,
				RateBurst:     cfg.UPSRateBurst,
			}, logger, tracer))
		}
	}

	logger.Info("Carriers registered", zap.Strings("carriers", registry.Names()))
	return registry
}
