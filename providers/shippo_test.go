package providers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"github.com/smarte-commerce/ecomm-shipping-sub000/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() models.RateRequest {
	return models.RateRequest{
		FromAddress:  models.Address{Name: "Warehouse", Street1: "1 Dock St", City: "San Francisco", State: "CA", PostalCode: "94105", Country: "US"},
		ToAddress:    models.Address{Name: "Jane", Street1: "5 Main St", City: "New York", State: "NY", PostalCode: "10001", Country: "US"},
		TotalWeight:  decimal.NewFromInt(3),
		TotalValue:   decimal.NewFromInt(120),
		PackageCount: 2,
	}
}

func TestShippo_GetShippingQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/shipments/", r.URL.Path)
		assert.Equal(t, "ShippoToken test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		parcels := body["parcels"].([]interface{})
		require.Len(t, parcels, 2)
		assert.Equal(t, "1.500", parcels[0].(map[string]interface{})["weight"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates":[
			{"object_id":"rate_1","provider":"USPS","servicelevel":{"name":"Priority","token":"usps_priority"},"amount":"7.35","currency":"USD","estimated_days":2,"attributes":["CHEAPEST"]},
			{"object_id":"rate_2","provider":"UPS","servicelevel":{"name":"Ground","token":"ups_ground"},"amount":"12.10","currency":"USD","estimated_days":null}
		]}`))
	}))
	defer srv.Close()

	p := providers.NewShippoProvider("test-key", srv.URL)
	opts, err := p.GetShippingQuotes(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Len(t, opts, 2)

	assert.Equal(t, "Shippo", opts[0].Provider)
	assert.Equal(t, "USPS", opts[0].Carrier)
	assert.Equal(t, "usps_priority", opts[0].ServiceCode)
	assert.Equal(t, "rate_1", opts[0].RateID)
	assert.True(t, opts[0].Cost.Equal(decimal.RequireFromString("7.35")))
	assert.Equal(t, 2, opts[0].EstimatedDays)
	assert.NotNil(t, opts[0].EstimatedDeliveryDate)
	assert.Equal(t, []string{"cheapest"}, opts[0].Features)
	assert.False(t, opts[0].TransitUnknown)
	assert.Nil(t, opts[1].EstimatedDeliveryDate)
	assert.True(t, opts[1].TransitUnknown, "null estimated_days is unknown transit, not same day")
}

func TestShippo_APIErrorIsRetryableFor5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()

	_, err := providers.NewShippoProvider("k", srv.URL).GetShippingQuotes(context.Background(), sampleRequest())
	require.Error(t, err)

	var apiErr *providers.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.True(t, providers.IsRetryable(err))
}

func TestShippo_InvalidAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates":[{"object_id":"r","provider":"USPS","amount":"n/a","currency":"USD"}]}`))
	}))
	defer srv.Close()

	_, err := providers.NewShippoProvider("k", srv.URL).GetShippingQuotes(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrInvalidResponse)
	assert.False(t, providers.IsRetryable(err))
}

func TestShippo_GetMultiVendorQuotesTagsVendors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates":[{"object_id":"r","provider":"USPS","servicelevel":{"name":"Ground","token":"usps_ground"},"amount":"5.00","currency":"USD","estimated_days":4}]}`))
	}))
	defer srv.Close()

	req := models.MultiVendorRateRequest{
		ToAddress: models.Address{Country: "US", PostalCode: "10001"},
		Vendors: []models.VendorPackage{
			{VendorID: "v1", FromAddress: models.Address{Country: "US"}, TotalWeight: decimal.NewFromInt(1), TotalValue: decimal.NewFromInt(10), PackageCount: 1},
			{VendorID: "v2", FromAddress: models.Address{Country: "US"}, TotalWeight: decimal.NewFromInt(2), TotalValue: decimal.NewFromInt(20), PackageCount: 1},
		},
	}
	out, err := providers.NewShippoProvider("k", srv.URL).GetMultiVendorQuotes(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "v1", out["v1"][0].VendorID)
	assert.Equal(t, "v2", out["v2"][0].VendorID)
}

func TestShippo_CreateLabelAndTrack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transactions/":
			_, _ = w.Write([]byte(`{"object_id":"tx_1","status":"SUCCESS","tracking_number":"TRK1","label_url":"https://label","tracking_url_provider":"https://track"}`))
		case "/tracks/usps/TRK1":
			_, _ = w.Write([]byte(`{"tracking_number":"TRK1","carrier":"usps","tracking_status":{"status":"TRANSIT","substatus":"in_transit","location":{"city":"Reno","state":"NV","country":"US"},"status_date":"2026-03-01T10:00:00Z"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := providers.NewShippoProvider("k", srv.URL)
	info, err := p.CreateLabel(context.Background(), models.CreateLabelRequest{RateID: "rate_1"})
	require.NoError(t, err)
	assert.Equal(t, "TRK1", info.TrackingCode)
	assert.Equal(t, "tx_1", info.ProviderObject)

	status, err := p.TrackShipment(context.Background(), "usps", "TRK1")
	require.NoError(t, err)
	assert.Equal(t, "TRANSIT", status.Status)
	assert.Equal(t, "Reno, NV, US", status.Location)
}

func TestShippo_Capabilities(t *testing.T) {
	p := providers.NewShippoProvider("", "")
	assert.False(t, p.IsAvailable())
	assert.True(t, p.SupportsRoute("us", "CA"))
	assert.False(t, p.SupportsRoute("US", "BR"))
	assert.True(t, p.MaxPackageWeight().IsPositive())
	assert.Contains(t, p.SupportedCountries(), "US")
}
