package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"github.com/smarte-commerce/ecomm-shipping-sub000/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEasyPost_GetShippingQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/shipments", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ep-key", user)

		var body struct {
			Shipment struct {
				Parcel struct {
					Weight string `json:"weight"`
				} `json:"parcel"`
				CustomsInfo *struct{} `json:"customs_info"`
			} `json:"shipment"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// 3kg in ounces
		assert.Equal(t, "105.8", body.Shipment.Parcel.Weight)
		assert.Nil(t, body.Shipment.CustomsInfo)

		_, _ = w.Write([]byte(`{"id":"shp_1","rates":[
			{"id":"rate_a","carrier":"FedEx","service":"FEDEX_GROUND","rate":"9.99","currency":"USD","delivery_days":3},
			{"id":"rate_b","carrier":"USPS","service":"Express","rate":"31.40","currency":"USD","delivery_days":null}
		]}`))
	}))
	defer srv.Close()

	p := providers.NewEasyPostProvider("ep-key", srv.URL)
	opts, err := p.GetShippingQuotes(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Len(t, opts, 2)

	assert.Equal(t, "EasyPost", opts[0].Provider)
	assert.Equal(t, "FedEx", opts[0].Carrier)
	assert.Equal(t, "FEDEX_GROUND", opts[0].ServiceCode)
	assert.True(t, opts[0].Cost.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 3, opts[0].EstimatedDays)
	assert.False(t, opts[0].TransitUnknown)
	assert.Equal(t, 0, opts[1].EstimatedDays)
	assert.True(t, opts[1].TransitUnknown)
	assert.Nil(t, opts[1].EstimatedDeliveryDate)
}

func TestEasyPost_InternationalAddsCustoms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Shipment struct {
				CustomsInfo *struct {
					Value string `json:"value"`
				} `json:"customs_info"`
			} `json:"shipment"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.Shipment.CustomsInfo)
		assert.Equal(t, "120.00", body.Shipment.CustomsInfo.Value)
		_, _ = w.Write([]byte(`{"rates":[]}`))
	}))
	defer srv.Close()

	req := sampleRequest()
	req.ToAddress = models.Address{Country: "CA", PostalCode: "M5V 2T6"}
	opts, err := providers.NewEasyPostProvider("k", srv.URL).GetShippingQuotes(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestEasyPost_ClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"code":"ADDRESS.VERIFY.FAILURE"}}`))
	}))
	defer srv.Close()

	_, err := providers.NewEasyPostProvider("k", srv.URL).GetShippingQuotes(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.False(t, providers.IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, providers.IsRetryable(nil))
	assert.False(t, providers.IsRetryable(context.Canceled))
	assert.False(t, providers.IsRetryable(context.DeadlineExceeded))
	assert.True(t, providers.IsRetryable(&providers.APIError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, providers.IsRetryable(&providers.APIError{StatusCode: http.StatusServiceUnavailable}))
	assert.False(t, providers.IsRetryable(&providers.APIError{StatusCode: http.StatusBadRequest}))
	assert.False(t, providers.IsRetryable(providers.ErrInvalidResponse))
}
