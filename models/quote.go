package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request types of an aggregated quote.
const (
	RequestTypeSingleVendor = "SINGLE_VENDOR"
	RequestTypeMultiVendor  = "MULTI_VENDOR"
)

// Calculation methods reported in quote metadata.
const (
	CalculationExternalAPI = "EXTERNAL_API"
	CalculationInternal    = "INTERNAL_CALCULATION"
	CalculationHybrid      = "HYBRID"
)

// Provider error codes recorded in quote metadata.
const (
	ProviderErrTimeout         = "TIMEOUT"
	ProviderErrProvider        = "PROVIDER_ERROR"
	ProviderErrCircuitOpen     = "CIRCUIT_OPEN"
	ProviderErrInvalidResponse = "INVALID_RESPONSE"
)

// InternalProvider is the provider name of options priced by the rate engine.
const InternalProvider = "Internal"

// QuoteRequest is the body accepted by the quote endpoints. A non-empty
// Vendors list turns it into a multi-vendor request.
type QuoteRequest struct {
	FromAddress  Address         `json:"from_address"`
	ToAddress    Address         `json:"to_address"`
	TotalWeight  decimal.Decimal `json:"total_weight"`
	TotalValue   decimal.Decimal `json:"total_value"`
	PackageCount int             `json:"package_count"`
	Currency     string          `json:"currency,omitempty"`
	ServiceType  string          `json:"service_type,omitempty"`
	CarrierID    *uuid.UUID      `json:"carrier_id,omitempty"`
	Vendors      []VendorPackage `json:"vendors,omitempty"`
}

// IsMultiVendor reports whether the request carries vendor packages.
func (q QuoteRequest) IsMultiVendor() bool {
	return len(q.Vendors) > 0
}

// SingleVendor projects the request onto a single-vendor rate request.
func (q QuoteRequest) SingleVendor() RateRequest {
	return RateRequest{
		FromAddress:  q.FromAddress,
		ToAddress:    q.ToAddress,
		TotalWeight:  q.TotalWeight,
		TotalValue:   q.TotalValue,
		PackageCount: q.PackageCount,
		Currency:     q.Currency,
		ServiceType:  q.ServiceType,
		CarrierID:    q.CarrierID,
	}
}

// MultiVendor projects the request onto a multi-vendor rate request.
func (q QuoteRequest) MultiVendor() MultiVendorRateRequest {
	return MultiVendorRateRequest{
		ToAddress:   q.ToAddress,
		Currency:    q.Currency,
		ServiceType: q.ServiceType,
		CarrierID:   q.CarrierID,
		Vendors:     q.Vendors,
	}
}

// RateRequest describes one shipment to be priced.
type RateRequest struct {
	FromAddress  Address         `json:"from_address"`
	ToAddress    Address         `json:"to_address"`
	TotalWeight  decimal.Decimal `json:"total_weight"` // kg
	TotalValue   decimal.Decimal `json:"total_value"`
	PackageCount int             `json:"package_count"`
	Currency     string          `json:"currency,omitempty"`
	ServiceType  string          `json:"service_type,omitempty"`
	CarrierID    *uuid.UUID      `json:"carrier_id,omitempty"`
	VendorID     string          `json:"vendor_id,omitempty"`
}

// VendorPackage is the share of a multi-vendor order shipped by one vendor.
type VendorPackage struct {
	VendorID     string          `json:"vendor_id"`
	FromAddress  Address         `json:"from_address"`
	TotalWeight  decimal.Decimal `json:"total_weight"`
	TotalValue   decimal.Decimal `json:"total_value"`
	PackageCount int             `json:"package_count"`
}

// MultiVendorRateRequest prices several vendor packages sent to one destination.
type MultiVendorRateRequest struct {
	ToAddress   Address         `json:"to_address"`
	Currency    string          `json:"currency,omitempty"`
	ServiceType string          `json:"service_type,omitempty"`
	CarrierID   *uuid.UUID      `json:"carrier_id,omitempty"`
	Vendors     []VendorPackage `json:"vendors"`
}

// ForVendor builds the single-vendor request for one vendor package.
func (m MultiVendorRateRequest) ForVendor(v VendorPackage) RateRequest {
	return RateRequest{
		FromAddress:  v.FromAddress,
		ToAddress:    m.ToAddress,
		TotalWeight:  v.TotalWeight,
		TotalValue:   v.TotalValue,
		PackageCount: v.PackageCount,
		Currency:     m.Currency,
		ServiceType:  m.ServiceType,
		CarrierID:    m.CarrierID,
		VendorID:     v.VendorID,
	}
}

// RateQuote is one internally computed price for a shipping method.
// UnavailableReason is set iff IsAvailable is false.
type RateQuote struct {
	MethodID              uuid.UUID       `json:"method_id"`
	MethodCode            string          `json:"method_code"`
	MethodName            string          `json:"method_name"`
	CarrierID             uuid.UUID       `json:"carrier_id"`
	CarrierName           string          `json:"carrier_name"`
	ServiceType           string          `json:"service_type"`
	BaseRate              decimal.Decimal `json:"base_rate"`
	WeightRate            decimal.Decimal `json:"weight_rate"`
	ItemRate              decimal.Decimal `json:"item_rate"`
	InsuranceSurcharge    decimal.Decimal `json:"insurance_surcharge"`
	FuelSurcharge         decimal.Decimal `json:"fuel_surcharge"`
	TotalRate             decimal.Decimal `json:"total_rate"`
	Currency              string          `json:"currency"`
	EstimatedDaysMin      int             `json:"estimated_days_min"`
	EstimatedDaysMax      int             `json:"estimated_days_max"`
	EstimatedDeliveryDate time.Time       `json:"estimated_delivery_date"`
	IsAvailable           bool            `json:"is_available"`
	UnavailableReason     string          `json:"unavailable_reason,omitempty"`
}

// ShippingOption is one priced, timed choice presented to a caller.
type ShippingOption struct {
	Provider      string          `json:"provider"`
	Carrier       string          `json:"carrier"`
	ServiceName   string          `json:"service_name"`
	ServiceCode   string          `json:"service_code"`
	RateID        string          `json:"rate_id,omitempty"`
	Cost          decimal.Decimal `json:"cost"`
	Currency      string          `json:"currency"`
	EstimatedDays int             `json:"estimated_days"`
	// TransitUnknown marks options whose provider gave no transit time;
	// EstimatedDays is meaningless for them.
	TransitUnknown        bool       `json:"transit_unknown,omitempty"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date,omitempty"`
	Features              []string   `json:"features,omitempty"`
	Rating                *float64   `json:"rating,omitempty"`
	VendorID              string     `json:"vendor_id,omitempty"`
}

// ProviderError records why a provider contributed no options.
type ProviderError struct {
	Provider     string `json:"provider"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	FallbackUsed string `json:"fallback_used,omitempty"`
}

// QuoteMetadata describes how an aggregated quote was produced.
type QuoteMetadata struct {
	Origin               Address         `json:"origin"`
	Destination          Address         `json:"destination"`
	IsDomestic           bool            `json:"is_domestic"`
	RequiresCustoms      bool            `json:"requires_customs"`
	TotalWeight          decimal.Decimal `json:"total_weight"`
	TotalValue           decimal.Decimal `json:"total_value"`
	PackageCount         int             `json:"package_count"`
	VendorCount          int             `json:"vendor_count"`
	AvailableProviders   []string        `json:"available_providers"`
	UnavailableProviders []string        `json:"unavailable_providers"`
	ProviderErrors       []ProviderError `json:"provider_errors"`
	CalculationMethod    string          `json:"calculation_method"`
}

// AggregatedQuote is the ranked result of one aggregation call. It is
// cached as is and must not be mutated after construction.
type AggregatedQuote struct {
	QuoteID           string           `json:"quote_id"`
	QuotedAt          time.Time        `json:"quoted_at"`
	ExpiresAt         time.Time        `json:"expires_at"`
	RequestType       string           `json:"request_type"`
	Options           []ShippingOption `json:"options"`
	RecommendedOption *ShippingOption  `json:"recommended_option,omitempty"`
	CheapestOption    *ShippingOption  `json:"cheapest_option,omitempty"`
	FastestOption     *ShippingOption  `json:"fastest_option,omitempty"`
	Metadata          QuoteMetadata    `json:"metadata"`
}

// ProviderInfo describes the capabilities of a registered provider.
type ProviderInfo struct {
	Name               string          `json:"name"`
	Available          bool            `json:"available"`
	SupportedCountries []string        `json:"supported_countries"`
	MaxPackageWeight   decimal.Decimal `json:"max_package_weight"`
	MaxDeclaredValue   decimal.Decimal `json:"max_declared_value"`
}

// ProviderStatus is the runtime health of a provider.
type ProviderStatus struct {
	Name                string     `json:"name"`
	Available           bool       `json:"available"`
	CircuitState        string     `json:"circuit_state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	OpenUntil           *time.Time `json:"open_until,omitempty"`
}

// ConnectivityResult is the outcome of probing one provider.
type ConnectivityResult struct {
	Provider    string `json:"provider"`
	Reachable   bool   `json:"reachable"`
	OptionCount int    `json:"option_count"`
	LatencyMs   int64  `json:"latency_ms"`
	Error       string `json:"error,omitempty"`
}

// ValidationResult is returned by the validate endpoint.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
