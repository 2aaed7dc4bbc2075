package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
)

const (
	ShippoName          = "Shippo"
	defaultShippoURL    = "https://api.goshippo.com"
	shippoDefaultParcel = "10"
)

// ShippoCapabilities are the limits Shippo accepts for a single shipment.
var ShippoCapabilities = Capabilities{
	Countries: []string{"US", "CA", "GB", "AU", "DE", "FR", "NL", "ES", "IT", "MX"},
	MaxWeight: decimal.NewFromInt(68),
	MaxValue:  decimal.NewFromInt(50000),
}

// ShippoProvider implements QuoteProvider and LabelProvider using the Shippo API.
type ShippoProvider struct {
	Capabilities
	apiKey string
	client jsonClient
}

// NewShippoProvider creates a new ShippoProvider. An empty baseURL selects
// the public Shippo endpoint.
func NewShippoProvider(apiKey, baseURL string) *ShippoProvider {
	if baseURL == "" {
		baseURL = defaultShippoURL
	}
	return &ShippoProvider{
		Capabilities: ShippoCapabilities,
		apiKey:       apiKey,
		client: newJSONClient(ShippoName, strings.TrimRight(baseURL, "/"), func(r *http.Request) {
			r.Header.Set("Authorization", "ShippoToken "+apiKey)
		}),
	}
}

// ---- Shippo API request/response structs ----

type shippoAddress struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type shippoParcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

type shippoShipmentRequest struct {
	AddressFrom shippoAddress  `json:"address_from"`
	AddressTo   shippoAddress  `json:"address_to"`
	Parcels     []shippoParcel `json:"parcels"`
	Async       bool           `json:"async"`
}

type shippoRate struct {
	ObjectID     string `json:"object_id"`
	Provider     string `json:"provider"`
	ServiceLevel struct {
		Name  string `json:"name"`
		Token string `json:"token"`
	} `json:"servicelevel"`
	Amount        string   `json:"amount"`
	Currency      string   `json:"currency"`
	EstimatedDays *int     `json:"estimated_days"`
	Attributes    []string `json:"attributes"`
}

type shippoShipmentResponse struct {
	Rates []shippoRate `json:"rates"`
}

type shippoTransactionRequest struct {
	Rate          string `json:"rate"`
	Async         bool   `json:"async"`
	LabelFileType string `json:"label_file_type"`
}

type shippoTransactionResponse struct {
	ObjectID            string `json:"object_id"`
	Status              string `json:"status"`
	TrackingNumber      string `json:"tracking_number"`
	LabelURL            string `json:"label_url"`
	TrackingURLProvider string `json:"tracking_url_provider"`
	Messages            []struct {
		Text string `json:"text"`
	} `json:"messages"`
}

type shippoTrackResponse struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	TrackingStatus struct {
		Status    string `json:"status"`
		SubStatus string `json:"substatus"`
		Location  struct {
			City    string `json:"city"`
			State   string `json:"state"`
			Country string `json:"country"`
		} `json:"location"`
		StatusDate string `json:"status_date"`
	} `json:"tracking_status"`
}

// ---- QuoteProvider implementation ----

func (s *ShippoProvider) Name() string { return ShippoName }

func (s *ShippoProvider) IsAvailable() bool { return s.apiKey != "" }

// GetShippingQuotes creates a Shippo shipment and returns its rates.
func (s *ShippoProvider) GetShippingQuotes(ctx context.Context, req models.RateRequest) ([]models.ShippingOption, error) {
	reqBody := shippoShipmentRequest{
		AddressFrom: toShippoAddress(req.FromAddress),
		AddressTo:   toShippoAddress(req.ToAddress),
		Parcels:     shippoParcels(req.TotalWeight, req.PackageCount),
		Async:       false,
	}

	var resp shippoShipmentResponse
	if err := s.client.doRequest(ctx, http.MethodPost, "/shipments/", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("shippo GetShippingQuotes: %w", err)
	}

	now := time.Now()
	options := make([]models.ShippingOption, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("shippo GetShippingQuotes: %w: amount %q", ErrInvalidResponse, r.Amount)
		}
		opt := models.ShippingOption{
			Provider:    ShippoName,
			Carrier:     r.Provider,
			ServiceName: r.ServiceLevel.Name,
			ServiceCode: r.ServiceLevel.Token,
			RateID:      r.ObjectID,
			Cost:        amount,
			Currency:    r.Currency,
			Features:    lowerAll(r.Attributes),
		}
		if r.EstimatedDays != nil {
			opt.EstimatedDays = *r.EstimatedDays
			eta := now.AddDate(0, 0, *r.EstimatedDays)
			opt.EstimatedDeliveryDate = &eta
		} else {
			opt.TransitUnknown = true
		}
		options = append(options, opt)
	}
	return options, nil
}

// GetMultiVendorQuotes quotes each vendor package as its own Shippo shipment.
func (s *ShippoProvider) GetMultiVendorQuotes(ctx context.Context, req models.MultiVendorRateRequest) (map[string][]models.ShippingOption, error) {
	return quoteVendors(ctx, req, s.GetShippingQuotes)
}

// ---- LabelProvider implementation ----

// CreateLabel purchases the selected Shippo rate and returns tracking info.
func (s *ShippoProvider) CreateLabel(ctx context.Context, req models.CreateLabelRequest) (models.TrackingInfo, error) {
	txReq := shippoTransactionRequest{
		Rate:          req.RateID,
		Async:         false,
		LabelFileType: "PDF",
	}

	var resp shippoTransactionResponse
	if err := s.client.doRequest(ctx, http.MethodPost, "/transactions/", txReq, &resp); err != nil {
		return models.TrackingInfo{}, fmt.Errorf("shippo CreateLabel: %w", err)
	}

	if resp.Status != "SUCCESS" {
		msg := "label creation failed"
		if len(resp.Messages) > 0 {
			msg = resp.Messages[0].Text
		}
		return models.TrackingInfo{}, fmt.Errorf("shippo CreateLabel: %s", msg)
	}

	return models.TrackingInfo{
		TrackingCode:   resp.TrackingNumber,
		LabelURL:       resp.LabelURL,
		TrackingURL:    resp.TrackingURLProvider,
		ProviderObject: resp.ObjectID,
	}, nil
}

// TrackShipment retrieves the current tracking status from Shippo.
func (s *ShippoProvider) TrackShipment(ctx context.Context, carrier, trackingCode string) (models.TrackingStatus, error) {
	path := fmt.Sprintf("/tracks/%s/%s", url.PathEscape(carrier), url.PathEscape(trackingCode))

	var resp shippoTrackResponse
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return models.TrackingStatus{}, fmt.Errorf("shippo TrackShipment: %w", err)
	}

	updatedAt := time.Now()
	if resp.TrackingStatus.StatusDate != "" {
		if t, err := time.Parse(time.RFC3339, resp.TrackingStatus.StatusDate); err == nil {
			updatedAt = t
		}
	}

	location := ""
	if l := resp.TrackingStatus.Location; l.City != "" {
		location = fmt.Sprintf("%s, %s, %s", l.City, l.State, l.Country)
	}

	return models.TrackingStatus{
		TrackingCode: resp.TrackingNumber,
		Status:       resp.TrackingStatus.Status,
		SubStatus:    resp.TrackingStatus.SubStatus,
		Location:     location,
		UpdatedAt:    updatedAt,
		Carrier:      resp.Carrier,
	}, nil
}

// ---- Conversion helpers ----

func toShippoAddress(a models.Address) shippoAddress {
	return shippoAddress{
		Name:    a.Name,
		Street1: a.Street1,
		Street2: a.Street2,
		City:    a.City,
		State:   a.State,
		Zip:     a.PostalCode,
		Country: a.Country,
		Phone:   a.Phone,
		Email:   a.Email,
	}
}

// shippoParcels splits the total weight evenly across packages.
func shippoParcels(totalKg decimal.Decimal, packages int) []shippoParcel {
	if packages < 1 {
		packages = 1
	}
	each := totalKg.Div(decimal.NewFromInt(int64(packages))).StringFixed(3)
	parcels := make([]shippoParcel, packages)
	for i := range parcels {
		parcels[i] = shippoParcel{
			Length:       shippoDefaultParcel,
			Width:        shippoDefaultParcel,
			Height:       shippoDefaultParcel,
			DistanceUnit: "cm",
			Weight:       each,
			MassUnit:     "kg",
		}
	}
	return parcels
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
