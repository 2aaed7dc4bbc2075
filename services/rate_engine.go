package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
)

// RateEngineConfig holds the surcharge policy of the internal rate engine.
type RateEngineConfig struct {
	InsuranceThreshold decimal.Decimal
	InsuranceRate      decimal.Decimal
	FuelSurchargeRate  decimal.Decimal
	Currency           string
}

// DefaultRateEngineConfig returns the standard surcharge policy.
func DefaultRateEngineConfig() RateEngineConfig {
	return RateEngineConfig{
		InsuranceThreshold: decimal.NewFromInt(1000),
		InsuranceRate:      decimal.RequireFromString("0.01"),
		FuelSurchargeRate:  decimal.RequireFromString("0.10"),
		Currency:           "USD",
	}
}

// RateEngine prices shipments against a catalog of shipping methods.
// It performs no I/O.
type RateEngine struct {
	cfg RateEngineConfig
	now func() time.Time
}

// NewRateEngine creates a RateEngine. A nil clock defaults to time.Now.
func NewRateEngine(cfg RateEngineConfig, now func() time.Time) *RateEngine {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if now == nil {
		now = time.Now
	}
	return &RateEngine{cfg: cfg, now: now}
}

// Quote prices every applicable method. Available quotes come first in
// ascending total order; methods whose definition cannot be priced are
// returned after them as unavailable quotes.
func (e *RateEngine) Quote(req models.RateRequest, methods []models.ShippingMethod) []models.RateQuote {
	packages := req.PackageCount
	if packages < 1 {
		packages = 1
	}
	currency := req.Currency
	if currency == "" {
		currency = e.cfg.Currency
	}

	quotes := make([]models.RateQuote, 0, len(methods))
	for i := range methods {
		m := &methods[i]
		if !e.applicable(m, req) {
			continue
		}

		if err := validateMethod(m); err != nil {
			quotes = append(quotes, unavailableQuote(m, currency, err))
			continue
		}
		if !withinBounds(req.TotalWeight, m.MinWeight, m.MaxWeight) ||
			!withinBounds(req.TotalValue, m.MinOrderValue, m.MaxOrderValue) {
			continue
		}

		q, err := e.price(m, req, packages, currency)
		if err != nil {
			quotes = append(quotes, unavailableQuote(m, currency, err))
			continue
		}
		quotes = append(quotes, q)
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		if quotes[i].IsAvailable != quotes[j].IsAvailable {
			return quotes[i].IsAvailable
		}
		return quotes[i].TotalRate.LessThan(quotes[j].TotalRate)
	})
	return quotes
}

func (e *RateEngine) applicable(m *models.ShippingMethod, req models.RateRequest) bool {
	if !m.IsActive {
		return false
	}
	if m.Carrier.ID != uuid.Nil && !m.Carrier.IsActive {
		return false
	}
	if req.ServiceType != "" && !strings.EqualFold(m.ServiceType, req.ServiceType) {
		return false
	}
	if req.CarrierID != nil && m.CarrierID != *req.CarrierID {
		return false
	}
	return true
}

func (e *RateEngine) price(m *models.ShippingMethod, req models.RateRequest, packages int, currency string) (models.RateQuote, error) {
	weightRate := m.PerKgRate.Mul(req.TotalWeight)
	itemRate := m.PerItemRate.Mul(decimal.NewFromInt(int64(packages)))
	subtotal := m.BaseRate.Add(weightRate).Add(itemRate)

	insurance := decimal.Zero
	if req.TotalValue.GreaterThan(e.cfg.InsuranceThreshold) {
		insurance = req.TotalValue.Mul(e.cfg.InsuranceRate)
	}
	subtotal = subtotal.Add(insurance)
	fuel := subtotal.Mul(e.cfg.FuelSurchargeRate)

	total := subtotal.Add(fuel).Round(2)
	if total.IsNegative() {
		return models.RateQuote{}, fmt.Errorf("computed total %s is negative", total.StringFixed(2))
	}

	return models.RateQuote{
		MethodID:              m.ID,
		MethodCode:            m.Code,
		MethodName:            m.Name,
		CarrierID:             m.CarrierID,
		CarrierName:           m.Carrier.Name,
		ServiceType:           m.ServiceType,
		BaseRate:              m.BaseRate.Round(2),
		WeightRate:            weightRate.Round(2),
		ItemRate:              itemRate.Round(2),
		InsuranceSurcharge:    insurance.Round(2),
		FuelSurcharge:         fuel.Round(2),
		TotalRate:             total,
		Currency:              currency,
		EstimatedDaysMin:      m.EstimatedDaysMin,
		EstimatedDaysMax:      m.EstimatedDaysMax,
		EstimatedDeliveryDate: e.now().AddDate(0, 0, m.EstimatedDaysMax),
		IsAvailable:           true,
	}, nil
}

func validateMethod(m *models.ShippingMethod) error {
	if m.BaseRate.IsNegative() || m.PerKgRate.IsNegative() || m.PerItemRate.IsNegative() {
		return errors.New("method has a negative rate")
	}
	if m.MinWeight != nil && m.MaxWeight != nil && m.MinWeight.GreaterThan(*m.MaxWeight) {
		return errors.New("method weight bounds are inverted")
	}
	if m.MinOrderValue != nil && m.MaxOrderValue != nil && m.MinOrderValue.GreaterThan(*m.MaxOrderValue) {
		return errors.New("method order value bounds are inverted")
	}
	if m.EstimatedDaysMin < 0 || m.EstimatedDaysMax < m.EstimatedDaysMin {
		return fmt.Errorf("invalid transit days %d-%d", m.EstimatedDaysMin, m.EstimatedDaysMax)
	}
	return nil
}

func withinBounds(v decimal.Decimal, lo, hi *decimal.Decimal) bool {
	if lo != nil && v.LessThan(*lo) {
		return false
	}
	if hi != nil && v.GreaterThan(*hi) {
		return false
	}
	return true
}

func unavailableQuote(m *models.ShippingMethod, currency string, err error) models.RateQuote {
	return models.RateQuote{
		MethodID:          m.ID,
		MethodCode:        m.Code,
		MethodName:        m.Name,
		CarrierID:         m.CarrierID,
		CarrierName:       m.Carrier.Name,
		ServiceType:       m.ServiceType,
		Currency:          currency,
		EstimatedDaysMin:  m.EstimatedDaysMin,
		EstimatedDaysMax:  m.EstimatedDaysMax,
		IsAvailable:       false,
		UnavailableReason: err.Error(),
	}
}

// CheapestQuote returns the available quote with the lowest total.
func CheapestQuote(quotes []models.RateQuote) *models.RateQuote {
	var best *models.RateQuote
	for i := range quotes {
		if !quotes[i].IsAvailable {
			continue
		}
		if best == nil || quotes[i].TotalRate.LessThan(best.TotalRate) {
			best = &quotes[i]
		}
	}
	return best
}

// FastestQuote returns the available quote with the fewest maximum transit days.
func FastestQuote(quotes []models.RateQuote) *models.RateQuote {
	var best *models.RateQuote
	for i := range quotes {
		if !quotes[i].IsAvailable {
			continue
		}
		if best == nil || quotes[i].EstimatedDaysMax < best.EstimatedDaysMax {
			best = &quotes[i]
		}
	}
	return best
}

// QuoteToOption converts an available internal quote to a shipping option.
func QuoteToOption(q models.RateQuote) models.ShippingOption {
	delivery := q.EstimatedDeliveryDate
	opt := models.ShippingOption{
		Provider:              models.InternalProvider,
		Carrier:               q.CarrierName,
		ServiceName:           q.MethodName,
		ServiceCode:           q.MethodCode,
		RateID:                q.MethodID.String(),
		Cost:                  q.TotalRate,
		Currency:              q.Currency,
		EstimatedDays:         q.EstimatedDaysMax,
		EstimatedDeliveryDate: &delivery,
	}
	if q.ServiceType != "" {
		opt.Features = append(opt.Features, strings.ToLower(q.ServiceType))
	}
	if q.InsuranceSurcharge.IsPositive() {
		opt.Features = append(opt.Features, "insured")
	}
	return opt
}
