package graphql

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/parcelhub/pkg/shipper"
)

func TestAddressInputToModel(t *testing.T) {
	input := AddressInput{
		Name:          "John Doe",
		Company:       "ACME Corp",
		Line1:         "123 Main St",
		Line2:         "Suite 100",
		City:          "Toronto",
		ProvinceCode:  "on",
		PostalCode:    "M5V1A1",
		CountryCode:   "ca",
		Phone:         "416-555-1234",
		Email:         "test@example.com",
		IsResidential: true,
	}

	result := addressInputToModel(input)

	assert.Equal(t, "John Doe", result.Name)
	assert.Equal(t, "ACME Corp", result.Company)
	assert.Equal(t, "123 Main St", result.Line1)
	assert.Equal(t, "Suite 100", result.Line2)
	assert.Equal(t, "Toronto", result.City)
	assert.Equal(t, "ON", result.ProvinceCode)
	assert.Equal(t, "M5V1A1", result.PostalCode)
	assert.Equal(t, "CA", result.CountryCode)
	assert.Equal(t, "test@example.com", result.Email)
	assert.True(t, result.IsResidential)
}

func TestPackagesInputToModel_Defaults(t *testing.T) {
	result := packagesInputToModel([]PackageInput{
		{Length: 30, Width: 20, Height: 10, Weight: 2.5},
		{Weight: 4, WeightUnit: "LB", DimensionUnit: "IN", PackageType: "ENVELOPE"},
	})

	require.Len(t, result, 2)
	assert.Equal(t, shipper.DimensionCM, result[0].DimensionUnit)
	assert.Equal(t, shipper.WeightKG, result[0].WeightUnit)
	assert.Equal(t, shipper.PackageBox, result[0].PackageType)
	assert.Equal(t, 2.5, result[0].Weight)

	assert.Equal(t, shipper.DimensionIN, result[1].DimensionUnit)
	assert.Equal(t, shipper.WeightLB, result[1].WeightUnit)
	assert.Equal(t, shipper.PackageEnvelope, result[1].PackageType)
}

func TestQuoteInputToModel(t *testing.T) {
	input := QuoteInput{
		Origin:       AddressInput{City: "Atlanta", PostalCode: "30301", CountryCode: "US"},
		Destination:  AddressInput{City: "Toronto", PostalCode: "M5V1A1", CountryCode: "CA"},
		Packages:     []PackageInput{{Weight: 1}},
		ServiceTypes: []string{"EXPRESS", "OVERNIGHT"},
		ShipDate:     "2030-01-02",
	}

	req, err := quoteInputToModel(input)

	require.NoError(t, err)
	assert.Equal(t, []shipper.ServiceType{shipper.ServiceExpress, shipper.ServiceOvernight}, req.ServiceTypes)
	require.NotNil(t, req.ShipDate)
	assert.Equal(t, time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC), *req.ShipDate)
	assert.True(t, req.Wants(shipper.ServiceExpress))
	assert.False(t, req.Wants(shipper.ServiceStandard))
}

func TestQuoteInputToModel_BadDate(t *testing.T) {
	_, err := quoteInputToModel(QuoteInput{ShipDate: "tomorrow"})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLabelFormatToModel(t *testing.T) {
	assert.Equal(t, shipper.LabelPDF, labelFormatToModel(""))
	assert.Equal(t, shipper.LabelZPL, labelFormatToModel("ZPL"))
	assert.Equal(t, shipper.LabelPNG, labelFormatToModel("PNG"))
}

func TestMoneyToGraphQL(t *testing.T) {
	tests := []struct {
		money    shipper.Money
		expected string
	}{
		{shipper.Money{Amount: 1265, Currency: "CAD"}, "12.65"},
		{shipper.Money{Amount: 5, Currency: "USD"}, "0.05"},
		{shipper.Money{Amount: 0, Currency: "EUR"}, "0.00"},
		{shipper.Money{Amount: 1500, Currency: "JPY"}, "1500"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := moneyToGraphQL(tt.money)
			assert.Equal(t, tt.expected, result.Amount)
			assert.Equal(t, tt.money.Currency, result.Currency)
		})
	}
}

func TestQuoteToGraphQL(t *testing.T) {
	eta := time.Date(2030, 1, 6, 0, 0, 0, 0, time.UTC)
	q := shipper.Quote{
		Vendor:            "ups",
		ServiceCode:       "02",
		Amount:            shipper.Money{Amount: 4108, Currency: "USD"},
		ServiceName:       "UPS 2nd Day Air",
		ServiceType:       shipper.ServiceExpress,
		TransitDays:       2,
		EstimatedDelivery: &eta,
		Guaranteed:        true,
	}

	result := quoteToGraphQL(q)

	assert.Equal(t, "ups", result.Carrier)
	assert.Equal(t, "EXPRESS", result.ServiceType)
	assert.Equal(t, "41.08", result.Amount.Amount)
	require.NotNil(t, result.TransitDays)
	assert.Equal(t, 2, *result.TransitDays)
	assert.Equal(t, &eta, result.EstimatedDelivery)
	assert.True(t, result.Guaranteed)

	q.TransitDays = 0
	assert.Nil(t, quoteToGraphQL(q).TransitDays)
}

func TestTrackingToGraphQL(t *testing.T) {
	tracking := shipper.NewTracking("dhl", "P", []shipper.TrackingActivity{
		{
			Status:      shipper.ActivityException,
			Description: "Address issue",
			Location:    shipper.Address{City: "Leipzig", CountryCode: "DE"},
		},
		{Status: shipper.ActivityInTransit, Description: "Processed"},
	})
	tracking.Raw = `{"shipments":[]}`

	result := trackingToGraphQL(tracking, false)

	assert.Equal(t, "dhl", result.Carrier)
	assert.Equal(t, "EXCEPTION", result.Status)
	require.Len(t, result.Activities, 2)
	assert.Equal(t, "Leipzig", result.Activities[0].Location.City)
	assert.Equal(t, "IN_TRANSIT", result.Activities[1].Status)
	assert.Nil(t, result.Raw)

	withRaw := trackingToGraphQL(tracking, true)
	require.NotNil(t, withRaw.Raw)
	assert.Equal(t, `{"shipments":[]}`, *withRaw.Raw)
}

func TestTrackingToGraphQL_NoActivities(t *testing.T) {
	result := trackingToGraphQL(shipper.NewTracking("ups", "03", nil), true)

	assert.Empty(t, result.Status)
	assert.Empty(t, result.Activities)
	assert.Nil(t, result.Raw)
}

func TestTrackingResultToGraphQL(t *testing.T) {
	failed := trackingResultToGraphQL(shipper.TrackingResult{
		Status:         shipper.ResultError,
		TrackingNumber: "X",
		Err:            errors.New("no carrier knows X"),
	}, false)

	assert.Equal(t, "ERROR", failed.Status)
	assert.Nil(t, failed.Tracking)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "no carrier knows X", *failed.Error)
}

func TestLabelToGraphQL(t *testing.T) {
	inline := labelToGraphQL(shipper.Label{Format: shipper.LabelPNG, Data: "aGVsbG8="})
	assert.Equal(t, "PNG", inline.Format)
	require.NotNil(t, inline.Data)
	assert.Nil(t, inline.URL)

	hosted := labelToGraphQL(shipper.Label{Format: shipper.LabelPDF, URL: "https://labels.example/1.pdf"})
	assert.Nil(t, hosted.Data)
	require.NotNil(t, hosted.URL)
	assert.Equal(t, "https://labels.example/1.pdf", *hosted.URL)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := parseTimestamp("2030-01-02T09:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 1, 2, 14, 0, 0, 0, time.UTC), ts.UTC())

	_, err = parseTimestamp("2030-01-02 09:00")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseDate_Empty(t *testing.T) {
	d, err := parseDate("")

	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "not_found", errorType(shipper.ErrTrackingNotFound))
	assert.Equal(t, "transport", errorType(shipper.NewTransportError("dhl", "NETWORK", "refused")))
	assert.Equal(t, "service", errorType(shipper.NewServiceError("dhl", "400", "bad")))
	assert.Equal(t, "unknown", errorType(errors.New("boom")))
}
