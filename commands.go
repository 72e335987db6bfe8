package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tournevent/parcelhub/pkg/shipper"
)

type quoteFlags struct {
	fromPostal  string
	fromCountry string
	toPostal    string
	toCountry   string
	weight      float64
	weightUnit  string
	length      float64
	width       float64
	height      float64
	carriers    []string
}

func newQuoteCmd() *cobra.Command {
	var f quoteFlags
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Ask the configured carriers for quotes on a single parcel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.fromPostal, "from-postal", "", "origin postal code")
	cmd.Flags().StringVar(&f.fromCountry, "from-country", "US", "origin country (ISO 3166-1 alpha-2)")
	cmd.Flags().StringVar(&f.toPostal, "to-postal", "", "destination postal code")
	cmd.Flags().StringVar(&f.toCountry, "to-country", "US", "destination country (ISO 3166-1 alpha-2)")
	cmd.Flags().Float64Var(&f.weight, "weight", 0, "parcel weight")
	cmd.Flags().StringVar(&f.weightUnit, "weight-unit", "kg", "weight unit: kg or lb")
	cmd.Flags().Float64Var(&f.length, "length", 0, "parcel length in cm")
	cmd.Flags().Float64Var(&f.width, "width", 0, "parcel width in cm")
	cmd.Flags().Float64Var(&f.height, "height", 0, "parcel height in cm")
	cmd.Flags().StringSliceVar(&f.carriers, "carrier", nil, "carriers to ask, in order (default: all)")
	_ = cmd.MarkFlagRequired("from-postal")
	_ = cmd.MarkFlagRequired("to-postal")
	_ = cmd.MarkFlagRequired("weight")

	return cmd
}

func runQuote(cmd *cobra.Command, f quoteFlags) error {
	if f.weight <= 0 {
		return fmt.Errorf("--weight must be positive")
	}
	unit := shipper.WeightUnit(strings.ToLower(f.weightUnit))
	if unit != shipper.WeightKG && unit != shipper.WeightLB {
		return fmt.Errorf("--weight-unit must be kg or lb, got %q", f.weightUnit)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry := initShipperRegistry(cfg, logger, nil)
	composite, err := registry.Composite(f.carriers...)
	if err != nil {
		return err
	}

	report := composite.GetQuotesDetailed(cmd.Context(), &shipper.QuoteRequest{
		Origin:      shipper.Address{PostalCode: f.fromPostal, CountryCode: strings.ToUpper(f.fromCountry)},
		Destination: shipper.Address{PostalCode: f.toPostal, CountryCode: strings.ToUpper(f.toCountry)},
		Packages: []shipper.Package{{
			Length:        f.length,
			Width:         f.width,
			Height:        f.height,
			DimensionUnit: shipper.DimensionCM,
			Weight:        f.weight,
			WeightUnit:    unit,
			PackageType:   shipper.PackageBox,
		}},
	})

	out := quoteOutput{Quotes: make([]quoteLine, len(report.Quotes))}
	for i, q := range report.Quotes {
		out.Quotes[i] = quoteLine{
			Carrier:     q.Vendor,
			ServiceCode: q.ServiceCode,
			ServiceName: q.ServiceName,
			Amount:      q.Amount.String(),
			TransitDays: q.TransitDays,
		}
	}
	for _, failure := range report.Failed() {
		out.Failed = append(out.Failed, carrierError{Carrier: failure.Carrier, Error: failure.Err.Error()})
	}
	return printJSON(cmd.OutOrStdout(), out)
}

type quoteOutput struct {
	Quotes []quoteLine    `json:"quotes"`
	Failed []carrierError `json:"failed,omitempty"`
}

type quoteLine struct {
	Carrier     string `json:"carrier"`
	ServiceCode string `json:"serviceCode"`
	ServiceName string `json:"serviceName,omitempty"`
	Amount      string `json:"amount"`
	TransitDays int    `json:"transitDays,omitempty"`
}

type carrierError struct {
	Carrier string `json:"carrier"`
	Error   string `json:"error"`
}

func newTrackCmd() *cobra.Command {
	var language string
	var includeRaw bool
	cmd := &cobra.Command{
		Use:   "track TRACKING_NUMBER...",
		Short: "Track parcels across the configured carriers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := initLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			registry := initShipperRegistry(cfg, logger, nil)
			composite, err := registry.Composite()
			if err != nil {
				return err
			}

			results := composite.TrackBatch(cmd.Context(), args, shipper.TrackingOptions{
				Language:   language,
				IncludeRaw: includeRaw,
			})
			return printJSON(cmd.OutOrStdout(), trackOutput(results))
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "preferred language of event descriptions")
	cmd.Flags().BoolVar(&includeRaw, "raw", false, "include the carrier payload")

	return cmd
}

type trackLine struct {
	TrackingNumber string            `json:"trackingNumber"`
	Status         string            `json:"status"`
	Tracking       *shipper.Tracking `json:"tracking,omitempty"`
	Raw            any               `json:"raw,omitempty"`
	Error          string            `json:"error,omitempty"`
}

func trackOutput(results []shipper.TrackingResult) []trackLine {
	lines := make([]trackLine, len(results))
	for i, r := range results {
		lines[i] = trackLine{
			TrackingNumber: r.TrackingNumber,
			Status:         string(r.Status),
			Tracking:       r.Tracking,
		}
		switch {
		case r.Raw == "":
		case json.Valid([]byte(r.Raw)):
			lines[i].Raw = json.RawMessage(r.Raw)
		default:
			// XML payloads are emitted as a string.
			lines[i].Raw = r.Raw
		}
		if r.Err != nil {
			lines[i].Error = r.Err.Error()
		}
	}
	return lines
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
