package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/controllers"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"github.com/smarte-commerce/ecomm-shipping-sub000/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mock implementing services.QuoteService ----

type mockQuoteSvc struct {
	quote       *models.AggregatedQuote
	err         *services.ServiceError
	lastReq     models.QuoteRequest
	allowCached *bool
	forceFresh  *bool
	maxOptions  int
}

func (m *mockQuoteSvc) Calculate(_ context.Context, req models.QuoteRequest) (*models.AggregatedQuote, *services.ServiceError) {
	m.lastReq = req
	return m.quote, m.err
}
func (m *mockQuoteSvc) ReviewCart(_ context.Context, req models.QuoteRequest, allowCached bool) (*models.AggregatedQuote, *services.ServiceError) {
	m.lastReq, m.allowCached = req, &allowCached
	return m.quote, m.err
}
func (m *mockQuoteSvc) CalculateCheckout(_ context.Context, req models.QuoteRequest, forceFresh bool) (*models.AggregatedQuote, *services.ServiceError) {
	m.lastReq, m.forceFresh = req, &forceFresh
	return m.quote, m.err
}
func (m *mockQuoteSvc) QuickEstimate(_ context.Context, req models.QuoteRequest, maxOptions int) (*models.AggregatedQuote, *services.ServiceError) {
	m.lastReq, m.maxOptions = req, maxOptions
	return m.quote, m.err
}
func (m *mockQuoteSvc) Providers() []models.ProviderInfo {
	return []models.ProviderInfo{{Name: "Shippo", Available: true}}
}
func (m *mockQuoteSvc) ProviderStatuses() []models.ProviderStatus {
	return []models.ProviderStatus{{Name: "Shippo", CircuitState: "closed"}}
}
func (m *mockQuoteSvc) TestConnectivity(context.Context) []models.ConnectivityResult {
	return []models.ConnectivityResult{{Provider: "Shippo", Reachable: true, OptionCount: 3}}
}
func (m *mockQuoteSvc) Validate(req models.QuoteRequest) models.ValidationResult {
	errs := services.ValidateQuoteRequest(req)
	return models.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ---- helpers ----

func setupQuoteRouter(svc services.QuoteService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	c := controllers.NewQuoteController(svc)

	quotes := r.Group("/quotes")
	quotes.POST("/calculate", c.Calculate)
	quotes.POST("/cart/review", c.ReviewCart)
	quotes.POST("/checkout/calculate", c.CalculateCheckout)
	quotes.POST("/quick-estimate", c.QuickEstimate)
	quotes.GET("/providers", c.Providers)
	quotes.GET("/providers/status", c.ProviderStatuses)
	quotes.POST("/providers/test-connectivity", c.TestConnectivity)
	quotes.POST("/validate", c.Validate)
	return r
}

const quoteBody = `{"to_address":{"country":"US","postal_code":"10001"},"total_weight":"2.5","total_value":"80","package_count":1}`

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleAggregatedQuote() *models.AggregatedQuote {
	opt := models.ShippingOption{Provider: "Shippo", Carrier: "USPS", ServiceCode: "usps_priority", Cost: decimal.RequireFromString("7.35"), Currency: "USD", EstimatedDays: 2}
	return &models.AggregatedQuote{
		QuoteID:           "q-1",
		RequestType:       models.RequestTypeSingleVendor,
		Options:           []models.ShippingOption{opt},
		CheapestOption:    &opt,
		FastestOption:     &opt,
		RecommendedOption: &opt,
	}
}

// ---- tests ----

func TestCalculate_Success(t *testing.T) {
	svc := &mockQuoteSvc{quote: sampleAggregatedQuote()}
	r := setupQuoteRouter(svc)

	w := postJSON(r, "/quotes/calculate", quoteBody)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		QuoteID        string `json:"quote_id"`
		CheapestOption struct {
			Cost string `json:"cost"`
		} `json:"cheapest_option"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "q-1", resp.QuoteID)
	assert.Equal(t, "7.35", resp.CheapestOption.Cost)
	assert.True(t, svc.lastReq.TotalWeight.Equal(decimal.RequireFromString("2.5")))
}

func TestCalculate_ServiceErrorRendersCode(t *testing.T) {
	svc := &mockQuoteSvc{err: &services.ServiceError{StatusCode: 400, Code: services.CodeZoneNotFound, Message: "No shipping zone serves the destination address"}}
	r := setupQuoteRouter(svc)

	w := postJSON(r, "/quotes/calculate", quoteBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, services.CodeZoneNotFound, resp["error"])
	assert.NotEmpty(t, resp["message"])
}

func TestCalculate_BadJSON(t *testing.T) {
	r := setupQuoteRouter(&mockQuoteSvc{})

	w := postJSON(r, "/quotes/calculate", "not-json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), services.CodeValidation)
}

func TestReviewCart_AllowCachedFlag(t *testing.T) {
	svc := &mockQuoteSvc{quote: sampleAggregatedQuote()}
	r := setupQuoteRouter(svc)

	postJSON(r, "/quotes/cart/review", quoteBody)
	require.NotNil(t, svc.allowCached)
	assert.True(t, *svc.allowCached)

	postJSON(r, "/quotes/cart/review?allowCached=false", quoteBody)
	assert.False(t, *svc.allowCached)

	postJSON(r, "/quotes/cart/review?allowCached=maybe", quoteBody)
	assert.True(t, *svc.allowCached)
}

func TestCalculateCheckout_ForceFreshFlag(t *testing.T) {
	svc := &mockQuoteSvc{quote: sampleAggregatedQuote()}
	r := setupQuoteRouter(svc)

	postJSON(r, "/quotes/checkout/calculate", quoteBody)
	require.NotNil(t, svc.forceFresh)
	assert.True(t, *svc.forceFresh)

	postJSON(r, "/quotes/checkout/calculate?forceFresh=false", quoteBody)
	assert.False(t, *svc.forceFresh)
}

func TestQuickEstimate_MaxProviders(t *testing.T) {
	svc := &mockQuoteSvc{quote: sampleAggregatedQuote()}
	r := setupQuoteRouter(svc)

	postJSON(r, "/quotes/quick-estimate", quoteBody)
	assert.Equal(t, services.DefaultQuickEstimateOptions, svc.maxOptions)

	postJSON(r, "/quotes/quick-estimate?maxProviders=5", quoteBody)
	assert.Equal(t, 5, svc.maxOptions)

	postJSON(r, "/quotes/quick-estimate?maxProviders=-2", quoteBody)
	assert.Equal(t, services.DefaultQuickEstimateOptions, svc.maxOptions)
}

func TestProviderEndpoints(t *testing.T) {
	r := setupQuoteRouter(&mockQuoteSvc{})

	for _, path := range []string{"/quotes/providers", "/quotes/providers/status"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), "Shippo", path)
	}

	w := postJSON(r, "/quotes/providers/test-connectivity", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reachable":true`)
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	r := setupQuoteRouter(&mockQuoteSvc{})

	w := postJSON(r, "/quotes/validate", `{"to_address":{"country":"USA"},"total_weight":"0","total_value":"10"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.Len(t, resp.Errors, 2)

	w = postJSON(r, "/quotes/validate", quoteBody)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
}
