package graphql_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/parcelhub/internal/graphql"
	"github.com/tournevent/parcelhub/pkg/shipper"
	"github.com/tournevent/parcelhub/pkg/shipper/mock"
	"github.com/vektah/gqlparser/v2/ast"
)

func execute(t *testing.T, resolver *graphql.Resolver, query string, vars map[string]any) *graphql.Response {
	t.Helper()
	return resolver.Execute(context.Background(), graphql.Request{Query: query, Variables: vars})
}

func field(t *testing.T, obj graphql.Object, path ...string) any {
	t.Helper()
	var value any = obj
	for _, key := range path {
		o, ok := value.(graphql.Object)
		require.Truef(t, ok, "%s is not an object", key)
		value, ok = o.Get(key)
		require.Truef(t, ok, "missing %s", key)
	}
	return value
}

func TestExecute_Health(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `{ health { status carriers } }`, nil)

	require.Empty(t, resp.Errors)
	assert.Equal(t, "ok", field(t, resp.Data, "health", "status"))
	assert.Equal(t, []any{"dhl", "fedex", "ups"}, field(t, resp.Data, "health", "carriers"))
}

func TestExecute_KeepsSelectionOrder(t *testing.T) {
	resolver, _ := newTestResolver(mock.New("dhl"))

	resp := execute(t, resolver, `{ carriers { position name } h: health { status } }`, nil)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"carriers":[{"position":1,"name":"dhl"}],"h":{"status":"ok"}}}`, string(data))
}

func TestExecute_TypenameAndFragments(t *testing.T) {
	resolver, _ := newTestResolver(mock.New("dhl"))

	resp := execute(t, resolver, `
		query {
			__typename
			health { ...HealthFields }
			carriers { ... { name } }
		}
		fragment HealthFields on Health { status version }
	`, nil)

	require.Empty(t, resp.Errors)
	assert.Equal(t, "Query", field(t, resp.Data, "__typename"))
	assert.Equal(t, "ok", field(t, resp.Data, "health", "status"))
	carriers := field(t, resp.Data, "carriers").([]any)
	require.Len(t, carriers, 1)
	assert.Equal(t, graphql.Object{{Key: "name", Value: "dhl"}}, carriers[0])
}

func TestExecute_SkipAndInclude(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `
		query Q($skip: Boolean!) {
			health @skip(if: $skip) { status }
			carriers @include(if: false) { name }
			version: health { version }
		}
	`, map[string]any{"skip": true})

	require.Empty(t, resp.Errors)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "version", resp.Data[0].Key)
}

func TestExecute_Variables(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `
		query Track($number: String!, $carrier: String = "fedex") {
			track(trackingNumber: $number, carrier: $carrier) { carrier status activities { description } }
		}
	`, map[string]any{"number": "794698412345"})

	require.Empty(t, resp.Errors)
	assert.Equal(t, "fedex", field(t, resp.Data, "track", "carrier"))
	assert.Equal(t, "IN_TRANSIT", field(t, resp.Data, "track", "status"))
}

func TestExecute_MissingVariable(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `query ($number: String!) { track(trackingNumber: $number) { status } }`, nil)

	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, ast.Path{ast.PathName("variable"), ast.PathName("number")}, resp.Errors[0].Path)
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", resp.Errors[0].Extensions["code"])
}

func TestExecute_BadEnumVariable(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `query ($input: QuoteInput!) { quotes(input: $input) { requestId } }`, map[string]any{
		"input": map[string]any{
			"origin":      map[string]any{"city": "Bonn", "postalCode": "53113", "countryCode": "DE"},
			"destination": map[string]any{"city": "Paris", "postalCode": "75001", "countryCode": "FR"},
			"packages":    []any{map[string]any{"weight": 1.5, "weightUnit": "OZ"}},
		},
	})

	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "OZ is not a valid WeightUnit")
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", resp.Errors[0].Extensions["code"])
}

func TestExecute_RejectsFragmentCycle(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `query { ...A } fragment A on Query { health { status } ...A }`, nil)

	assert.Nil(t, resp.Data)
	require.NotEmpty(t, resp.Errors)
	var rules []string
	for _, err := range resp.Errors {
		assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", err.Extensions["code"])
		rules = append(rules, err.Rule)
	}
	assert.Contains(t, rules, "NoFragmentCycles")
}

func TestExecute_RepeatedFragmentCollectedOnce(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `
		query { ...H ...H carriers { name } }
		fragment H on Query { health { status } }
	`, nil)

	require.Empty(t, resp.Errors)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "health", resp.Data[0].Key)
	assert.Equal(t, "carriers", resp.Data[1].Key)
}

func TestExecute_ParseError(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `{ health { status }`, nil)

	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", resp.Errors[0].Extensions["code"])
}

func TestExecute_OperationName(t *testing.T) {
	resolver, _ := newTestResolver()
	doc := `query A { health { status } } query B { carriers { name } }`

	resp := resolver.Execute(context.Background(), graphql.Request{Query: doc})
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "operationName is required")

	resp = resolver.Execute(context.Background(), graphql.Request{Query: doc, OperationName: "B"})
	require.Empty(t, resp.Errors)
	_, ok := resp.Data.Get("carriers")
	assert.True(t, ok)

	resp = resolver.Execute(context.Background(), graphql.Request{Query: doc, OperationName: "C"})
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "unknown operation")
}

func TestExecute_SubscriptionRejected(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `subscription { health { status } }`, nil)

	assert.Nil(t, resp.Data)
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", resp.Errors[0].Extensions["code"])
}

func TestExecute_UnknownFieldRejected(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `{ rates { amount } health { status } }`, nil)

	assert.Nil(t, resp.Data)
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", resp.Errors[0].Extensions["code"])
	assert.Contains(t, resp.Errors[0].Message, `Cannot query field "rates" on type "Query"`)
	require.Len(t, resp.Errors[0].Locations, 1)
	assert.Equal(t, 1, resp.Errors[0].Locations[0].Line)
}

func TestExecute_UnknownArgument(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `{ track(trackingNumber: "1", colour: "red") { status } }`, nil)

	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "GRAPHQL_VALIDATION_FAILED", resp.Errors[0].Extensions["code"])
	assert.Contains(t, resp.Errors[0].Message, `Unknown argument "colour"`)
}

func TestExecute_IntrospectionNotServed(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `{ __schema { queryType { name } } health { status } }`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, ast.Path{ast.PathName("__schema")}, resp.Errors[0].Path)
	assert.Equal(t, "ok", field(t, resp.Data, "health", "status"))
}

func TestExecute_Quotes(t *testing.T) {
	resolver, _ := newTestResolver(
		mock.New("dhl", mock.WithQuotes(quote("dhl", "N", 2150))),
		mock.New("ups", mock.WithQuoteError(shipper.NewTransportError("ups", "HTTP_503", "unavailable"))),
	)

	resp := execute(t, resolver, `
		query ($input: QuoteInput!) {
			quotes(input: $input) {
				quotes { carrier serviceCode amount { amount currency } }
				carriers { carrier success }
			}
		}
	`, map[string]any{"input": map[string]any{
		"origin":      map[string]any{"city": "Bonn", "postalCode": "53113", "countryCode": "DE"},
		"destination": map[string]any{"city": "Paris", "postalCode": "75001", "countryCode": "FR"},
		"packages":    []any{map[string]any{"weight": 1.5}},
	}})

	require.Empty(t, resp.Errors)
	quotes := field(t, resp.Data, "quotes", "quotes").([]any)
	require.Len(t, quotes, 1)
	assert.Equal(t, graphql.Object{
		{Key: "carrier", Value: "dhl"},
		{Key: "serviceCode", Value: "N"},
		{Key: "amount", Value: graphql.Object{{Key: "amount", Value: "21.50"}, {Key: "currency", Value: "USD"}}},
	}, quotes[0])
	carriers := field(t, resp.Data, "quotes", "carriers").([]any)
	assert.Len(t, carriers, 2)
}

func TestExecute_QuotesValidationError(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `{
		quotes(input: {
			origin: {city: "Bonn", postalCode: "53113", countryCode: "DE"}
			destination: {city: "Paris", postalCode: "75001", countryCode: "FR"}
			packages: []
		}) { requestId }
	}`, nil)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "BAD_USER_INPUT", resp.Errors[0].Extensions["code"])
	assert.Contains(t, resp.Errors[0].Message, "packages")
}

func TestExecute_CarrierErrorExtensions(t *testing.T) {
	failure := shipper.NewTransportError("dhl", "HTTP_503", "down").WithRetryable(true)
	resolver, _ := newTestResolver(mock.New("dhl", mock.WithTrackingError(failure)))

	resp := execute(t, resolver, `{ track(trackingNumber: "JD014600006281230704", carrier: "dhl") { status } }`, nil)

	require.Len(t, resp.Errors, 1)
	ext := resp.Errors[0].Extensions
	assert.Equal(t, "CARRIER_UNAVAILABLE", ext["code"])
	assert.Equal(t, "dhl", ext["carrier"])
	assert.Equal(t, true, ext["retryable"])

	track, ok := resp.Data.Get("track")
	assert.True(t, ok)
	assert.Nil(t, track)
}

func TestExecute_TrackBatch(t *testing.T) {
	known := shipper.NewTracking("ups", "03", []shipper.TrackingActivity{{Status: shipper.ActivityDelivered}})
	resolver, _ := newTestResolver(mock.New("ups", mock.WithTrackingFor("1Z1", known)))

	resp := execute(t, resolver, `{ trackBatch(trackingNumbers: ["1Z1", "1Z2"]) { status trackingNumber tracking { status } } }`, nil)

	require.Empty(t, resp.Errors)
	results := field(t, resp.Data, "trackBatch").([]any)
	require.Len(t, results, 2)
	assert.Equal(t, graphql.Object{
		{Key: "status", Value: "SUCCESS"},
		{Key: "trackingNumber", Value: "1Z1"},
		{Key: "tracking", Value: graphql.Object{{Key: "status", Value: "DELIVERED"}}},
	}, results[0])
	assert.Equal(t, graphql.Object{
		{Key: "status", Value: "ERROR"},
		{Key: "trackingNumber", Value: "1Z2"},
		{Key: "tracking", Value: nil},
	}, results[1])
}

func TestExecute_Mutations(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `
		mutation {
			shipment: createShipment(input: {
				carrier: "dhl"
				serviceCode: "P"
				sender: {name: "Ada"}
				senderAddress: {city: "Bonn", postalCode: "53113", countryCode: "DE"}
				recipient: {name: "Grace"}
				recipientAddress: {city: "Paris", postalCode: "75001", countryCode: "FR"}
				packages: [{weight: 2}]
			}) { carrier status labels { format } }
			cancelled: cancelPickup(input: {carrier: "ups", confirmationNumber: "PRN1"}) { cancelled }
			__typename
		}
	`, nil)

	require.Empty(t, resp.Errors)
	assert.Equal(t, "dhl", field(t, resp.Data, "shipment", "carrier"))
	assert.Equal(t, "CONFIRMED", field(t, resp.Data, "shipment", "status"))
	assert.Equal(t, []any{graphql.Object{{Key: "format", Value: "PDF"}}}, field(t, resp.Data, "shipment", "labels"))
	assert.Equal(t, true, field(t, resp.Data, "cancelled", "cancelled"))
	assert.Equal(t, "Mutation", field(t, resp.Data, "__typename"))
}

func TestExecute_MutationFieldNotOnQuery(t *testing.T) {
	resolver, _ := newTestResolver()

	resp := execute(t, resolver, `{ cancelPickup(input: {carrier: "ups", confirmationNumber: "PRN1"}) { cancelled } }`, nil)

	assert.Nil(t, resp.Data)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, `Cannot query field "cancelPickup" on type "Query"`)
}
