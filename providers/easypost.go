package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
)

const (
	EasyPostName       = "EasyPost"
	defaultEasyPostURL = "https://api.easypost.com"
)

var ouncesPerKg = decimal.RequireFromString("35.27396195")

// EasyPostCapabilities are the limits EasyPost accepts for a single parcel.
var EasyPostCapabilities = Capabilities{
	Countries: []string{"US", "CA", "GB", "AU", "DE", "FR", "JP", "MX", "NL", "IE"},
	MaxWeight: decimal.NewFromInt(70),
	MaxValue:  decimal.NewFromInt(10000),
}

// EasyPostProvider implements QuoteProvider using the EasyPost API.
type EasyPostProvider struct {
	Capabilities
	apiKey string
	client jsonClient
}

// NewEasyPostProvider creates a new EasyPostProvider. An empty baseURL
// selects the public EasyPost endpoint.
func NewEasyPostProvider(apiKey, baseURL string) *EasyPostProvider {
	if baseURL == "" {
		baseURL = defaultEasyPostURL
	}
	return &EasyPostProvider{
		Capabilities: EasyPostCapabilities,
		apiKey:       apiKey,
		client: newJSONClient(EasyPostName, strings.TrimRight(baseURL, "/"), func(r *http.Request) {
			r.SetBasicAuth(apiKey, "")
		}),
	}
}

type easyPostAddress struct {
	Name    string `json:"name,omitempty"`
	Street1 string `json:"street1,omitempty"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
}

type easyPostParcel struct {
	Weight string `json:"weight"` // ounces
}

type easyPostCustomsInfo struct {
	ContentsType string `json:"contents_type"`
	Value        string `json:"value"`
}

type easyPostShipment struct {
	ToAddress   easyPostAddress      `json:"to_address"`
	FromAddress easyPostAddress      `json:"from_address"`
	Parcel      easyPostParcel       `json:"parcel"`
	CustomsInfo *easyPostCustomsInfo `json:"customs_info,omitempty"`
}

type easyPostShipmentRequest struct {
	Shipment easyPostShipment `json:"shipment"`
}

type easyPostRate struct {
	ID           string `json:"id"`
	Carrier      string `json:"carrier"`
	Service      string `json:"service"`
	Rate         string `json:"rate"`
	Currency     string `json:"currency"`
	DeliveryDays *int   `json:"delivery_days"`
	DeliveryDate string `json:"delivery_date"`
}

type easyPostShipmentResponse struct {
	ID    string         `json:"id"`
	Rates []easyPostRate `json:"rates"`
}

func (e *EasyPostProvider) Name() string { return EasyPostName }

func (e *EasyPostProvider) IsAvailable() bool { return e.apiKey != "" }

// GetShippingQuotes creates an EasyPost shipment and returns its rates.
func (e *EasyPostProvider) GetShippingQuotes(ctx context.Context, req models.RateRequest) ([]models.ShippingOption, error) {
	shipment := easyPostShipment{
		ToAddress:   toEasyPostAddress(req.ToAddress),
		FromAddress: toEasyPostAddress(req.FromAddress),
		Parcel:      easyPostParcel{Weight: req.TotalWeight.Mul(ouncesPerKg).StringFixed(1)},
	}
	if !strings.EqualFold(req.FromAddress.Country, req.ToAddress.Country) {
		shipment.CustomsInfo = &easyPostCustomsInfo{
			ContentsType: "merchandise",
			Value:        req.TotalValue.StringFixed(2),
		}
	}

	var resp easyPostShipmentResponse
	if err := e.client.doRequest(ctx, http.MethodPost, "/v2/shipments", easyPostShipmentRequest{Shipment: shipment}, &resp); err != nil {
		return nil, fmt.Errorf("easypost GetShippingQuotes: %w", err)
	}

	now := time.Now()
	options := make([]models.ShippingOption, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		amount, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return nil, fmt.Errorf("easypost GetShippingQuotes: %w: rate %q", ErrInvalidResponse, r.Rate)
		}
		opt := models.ShippingOption{
			Provider:    EasyPostName,
			Carrier:     r.Carrier,
			ServiceName: r.Carrier + " " + r.Service,
			ServiceCode: r.Service,
			RateID:      r.ID,
			Cost:        amount,
			Currency:    r.Currency,
		}
		if r.DeliveryDays != nil {
			opt.EstimatedDays = *r.DeliveryDays
			eta := now.AddDate(0, 0, *r.DeliveryDays)
			opt.EstimatedDeliveryDate = &eta
		} else {
			opt.TransitUnknown = true
		}
		if r.DeliveryDate != "" {
			if t, err := time.Parse(time.RFC3339, r.DeliveryDate); err == nil {
				opt.EstimatedDeliveryDate = &t
			}
		}
		options = append(options, opt)
	}
	return options, nil
}

// GetMultiVendorQuotes quotes each vendor package as its own EasyPost shipment.
func (e *EasyPostProvider) GetMultiVendorQuotes(ctx context.Context, req models.MultiVendorRateRequest) (map[string][]models.ShippingOption, error) {
	return quoteVendors(ctx, req, e.GetShippingQuotes)
}

func toEasyPostAddress(a models.Address) easyPostAddress {
	return easyPostAddress{
		Name:    a.Name,
		Street1: a.Street1,
		Street2: a.Street2,
		City:    a.City,
		State:   a.State,
		Zip:     a.PostalCode,
		Country: a.Country,
		Phone:   a.Phone,
	}
}
