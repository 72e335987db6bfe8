package graphql

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tournevent/parcelhub/pkg/shipper"
)

func addressInputToModel(input AddressInput) shipper.Address {
	return shipper.Address{
		Name:          input.Name,
		Company:       input.Company,
		Line1:         input.Line1,
		Line2:         input.Line2,
		City:          input.City,
		ProvinceCode:  strings.ToUpper(input.ProvinceCode),
		PostalCode:    input.PostalCode,
		CountryCode:   strings.ToUpper(input.CountryCode),
		Phone:         input.Phone,
		Email:         input.Email,
		IsResidential: input.IsResidential,
	}
}

func contactInputToModel(input ContactInput) shipper.Contact {
	return shipper.Contact{
		Name:    input.Name,
		Company: input.Company,
		Phone:   input.Phone,
		Email:   input.Email,
		TaxID:   input.TaxID,
	}
}

func packagesInputToModel(inputs []PackageInput) []shipper.Package {
	packages := make([]shipper.Package, len(inputs))
	for i, input := range inputs {
		pkg := shipper.Package{
			Length:        input.Length,
			Width:         input.Width,
			Height:        input.Height,
			Weight:        input.Weight,
			DimensionUnit: shipper.DimensionCM,
			WeightUnit:    shipper.WeightKG,
			PackageType:   shipper.PackageBox,
			Description:   input.Description,
		}
		if input.DimensionUnit != "" {
			pkg.DimensionUnit = shipper.DimensionUnit(strings.ToLower(input.DimensionUnit))
		}
		if input.WeightUnit != "" {
			pkg.WeightUnit = shipper.WeightUnit(strings.ToLower(input.WeightUnit))
		}
		if input.PackageType != "" {
			pkg.PackageType = shipper.PackageType(strings.ToLower(input.PackageType))
		}
		packages[i] = pkg
	}
	return packages
}

func quoteInputToModel(input QuoteInput) (*shipper.QuoteRequest, error) {
	req := &shipper.QuoteRequest{
		Origin:      addressInputToModel(input.Origin),
		Destination: addressInputToModel(input.Destination),
		Packages:    packagesInputToModel(input.Packages),
	}
	for _, st := range input.ServiceTypes {
		req.ServiceTypes = append(req.ServiceTypes, serviceTypeToModel(st))
	}
	shipDate, err := parseDate(input.ShipDate)
	if err != nil {
		return nil, err
	}
	req.ShipDate = shipDate
	return req, nil
}

func serviceTypeToModel(st string) shipper.ServiceType {
	return shipper.ServiceType(strings.ToLower(st))
}

func labelFormatToModel(lf string) shipper.LabelFormat {
	if lf == "" {
		return shipper.LabelPDF
	}
	return shipper.LabelFormat(strings.ToLower(lf))
}

// enum turns a domain constant into its GraphQL enum spelling.
func enum[T ~string](v T) string {
	return strings.ToUpper(string(v))
}

func moneyToGraphQL(m shipper.Money) Money {
	return Money{
		Amount:   m.Decimal().StringFixed(shipper.MinorUnitExponent(m.Currency)),
		Currency: m.Currency,
	}
}

func quoteToGraphQL(q shipper.Quote) Quote {
	quote := Quote{
		Carrier:           q.Vendor,
		ServiceCode:       q.ServiceCode,
		ServiceName:       q.ServiceName,
		ServiceType:       enum(q.ServiceType),
		Amount:            moneyToGraphQL(q.Amount),
		EstimatedDelivery: q.EstimatedDelivery,
		Guaranteed:        q.Guaranteed,
	}
	if q.TransitDays > 0 {
		days := q.TransitDays
		quote.TransitDays = &days
	}
	return quote
}

func trackingToGraphQL(t *shipper.Tracking, includeRaw bool) *Tracking {
	tracking := &Tracking{
		Carrier:           t.Vendor,
		ServiceCode:       t.ServiceCode,
		Activities:        make([]TrackingActivity, len(t.Activities)),
		EstimatedDelivery: t.EstimatedDelivery,
	}
	for i, a := range t.Activities {
		tracking.Activities[i] = TrackingActivity{
			Status:      enum(a.Status),
			Description: a.Description,
			Timestamp:   a.Timestamp,
			Location: Location{
				City:         a.Location.City,
				ProvinceCode: a.Location.ProvinceCode,
				PostalCode:   a.Location.PostalCode,
				CountryCode:  a.Location.CountryCode,
			},
		}
	}
	if latest, ok := t.Latest(); ok {
		tracking.Status = enum(latest.Status)
	}
	if includeRaw && t.Raw != "" {
		raw := t.Raw
		tracking.Raw = &raw
	}
	return tracking
}

func trackingResultToGraphQL(r shipper.TrackingResult, includeRaw bool) TrackingResult {
	result := TrackingResult{
		Status:         string(r.Status),
		TrackingNumber: r.TrackingNumber,
	}
	if r.Tracking != nil {
		result.Tracking = trackingToGraphQL(r.Tracking, includeRaw)
	}
	if r.Err != nil {
		msg := r.Err.Error()
		result.Error = &msg
	}
	return result
}

func serviceOptionToGraphQL(s shipper.ServiceOption) ServiceOption {
	return ServiceOption{
		Carrier: s.Vendor,
		Code:    s.Code,
		Name:    s.Name,
		Type:    enum(s.Type),
	}
}

func labelToGraphQL(l shipper.Label) Label {
	label := Label{Format: enum(l.Format)}
	if l.Data != "" {
		data := l.Data
		label.Data = &data
	}
	if l.URL != "" {
		url := l.URL
		label.URL = &url
	}
	return label
}

func shipmentToGraphQL(s *shipper.Shipment) *Shipment {
	shipment := &Shipment{
		ShipmentID:        s.ShipmentID,
		TrackingNumber:    s.TrackingNumber,
		Carrier:           s.Vendor,
		ServiceCode:       s.ServiceCode,
		Status:            enum(s.Status),
		Charge:            moneyToGraphQL(s.Charge),
		Labels:            make([]Label, len(s.Labels)),
		EstimatedDelivery: s.EstimatedDelivery,
	}
	for i, l := range s.Labels {
		shipment.Labels[i] = labelToGraphQL(l)
	}
	return shipment
}

func pickupToGraphQL(p *shipper.Pickup) *Pickup {
	return &Pickup{
		ConfirmationNumber: p.ConfirmationNumber,
		Carrier:            p.Vendor,
		ScheduledDate:      p.ScheduledDate,
		Location:           p.Location,
		Charge:             moneyToGraphQL(p.Charge),
	}
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q: %v", ErrInvalidInput, s, err)
	}
	return &t, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q: %v", ErrInvalidInput, s, err)
	}
	return t, nil
}

// errorType labels a carrier failure for metrics.
func errorType(err error) string {
	switch {
	case errors.Is(err, shipper.ErrTrackingNotFound):
		return "not_found"
	case shipper.IsTransportError(err):
		return "transport"
	case shipper.IsServiceError(err):
		return "service"
	default:
		return "unknown"
	}
}

// validationMessage lists the failing fields of a validator error by their
// JSON path, e.g. "origin.postalCode is required".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required":
			msgs[i] = field + " is required"
		case "oneof":
			msgs[i] = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		default:
			msgs[i] = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}
