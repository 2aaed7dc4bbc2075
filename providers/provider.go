package providers

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"golang.org/x/sync/errgroup"
)

// QuoteProvider is an external rate source queried by the quote aggregator.
type QuoteProvider interface {
	// Name identifies the provider in options, metrics and errors.
	Name() string

	// IsAvailable reports whether the provider is configured to take calls.
	IsAvailable() bool

	// SupportsRoute reports whether the provider ships between the two countries.
	SupportsRoute(originCountry, destinationCountry string) bool

	// GetShippingQuotes prices a single-vendor shipment.
	GetShippingQuotes(ctx context.Context, req models.RateRequest) ([]models.ShippingOption, error)

	// GetMultiVendorQuotes prices every vendor package, keyed by vendor ID.
	GetMultiVendorQuotes(ctx context.Context, req models.MultiVendorRateRequest) (map[string][]models.ShippingOption, error)

	SupportedCountries() []string
	MaxPackageWeight() decimal.Decimal
	MaxDeclaredValue() decimal.Decimal
}

// LabelProvider buys labels and tracks shipments.
type LabelProvider interface {
	// CreateLabel purchases the selected rate and returns tracking + label info.
	CreateLabel(ctx context.Context, req models.CreateLabelRequest) (models.TrackingInfo, error)

	// TrackShipment returns the current tracking status for a given tracking code.
	TrackShipment(ctx context.Context, carrier, trackingCode string) (models.TrackingStatus, error)
}

// Capabilities describes the static limits of a provider.
// An empty Countries list means every country is served.
type Capabilities struct {
	Countries []string
	MaxWeight decimal.Decimal
	MaxValue  decimal.Decimal
}

func (c Capabilities) SupportedCountries() []string {
	out := make([]string, len(c.Countries))
	copy(out, c.Countries)
	return out
}

func (c Capabilities) MaxPackageWeight() decimal.Decimal { return c.MaxWeight }

func (c Capabilities) MaxDeclaredValue() decimal.Decimal { return c.MaxValue }

func (c Capabilities) SupportsRoute(originCountry, destinationCountry string) bool {
	if len(c.Countries) == 0 {
		return true
	}
	return c.serves(originCountry) && c.serves(destinationCountry)
}

func (c Capabilities) serves(country string) bool {
	country = strings.TrimSpace(country)
	for _, s := range c.Countries {
		if strings.EqualFold(s, country) {
			return true
		}
	}
	return false
}

// quoteVendors prices each vendor package through quote, a few at a time.
// The first failure cancels the rest.
func quoteVendors(ctx context.Context, req models.MultiVendorRateRequest,
	quote func(context.Context, models.RateRequest) ([]models.ShippingOption, error),
) (map[string][]models.ShippingOption, error) {
	results := make([][]models.ShippingOption, len(req.Vendors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, v := range req.Vendors {
		g.Go(func() error {
			opts, err := quote(gctx, req.ForVendor(v))
			if err != nil {
				return err
			}
			for j := range opts {
				opts[j].VendorID = v.VendorID
			}
			results[i] = opts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]models.ShippingOption, len(req.Vendors))
	for i, v := range req.Vendors {
		out[v.VendorID] = append(out[v.VendorID], results[i]...)
	}
	return out, nil
}
