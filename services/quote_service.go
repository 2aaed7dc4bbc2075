package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	aws_pkg "github.com/smarte-commerce/ecomm-shipping-sub000/pkg/aws"
	"go.uber.org/zap"
)

// DefaultQuickEstimateOptions is the option count of a quick estimate.
const DefaultQuickEstimateOptions = 3

// QuoteService exposes quote aggregation to the HTTP layer.
type QuoteService interface {
	Calculate(ctx context.Context, req models.QuoteRequest) (*models.AggregatedQuote, *ServiceError)
	ReviewCart(ctx context.Context, req models.QuoteRequest, allowCached bool) (*models.AggregatedQuote, *ServiceError)
	CalculateCheckout(ctx context.Context, req models.QuoteRequest, forceFresh bool) (*models.AggregatedQuote, *ServiceError)
	QuickEstimate(ctx context.Context, req models.QuoteRequest, maxOptions int) (*models.AggregatedQuote, *ServiceError)
	Providers() []models.ProviderInfo
	ProviderStatuses() []models.ProviderStatus
	TestConnectivity(ctx context.Context) []models.ConnectivityResult
	Validate(req models.QuoteRequest) models.ValidationResult
}

type quoteServiceImpl struct {
	aggregator *QuoteAggregator
	recorder   CountRecorder
	logger     *zap.Logger
}

// NewQuoteService creates a QuoteService backed by aggregator. recorder may be nil.
func NewQuoteService(aggregator *QuoteAggregator, recorder CountRecorder, logger *zap.Logger) QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &quoteServiceImpl{aggregator: aggregator, recorder: recorder, logger: logger}
}

func (s *quoteServiceImpl) aggregate(ctx context.Context, req models.QuoteRequest, useCache bool, flow string) (*models.AggregatedQuote, *ServiceError) {
	q, serr := s.aggregator.Aggregate(ctx, req, useCache)
	if serr == nil {
		recordCount(s.recorder, aws_pkg.MetricQuotesCalculated, map[string]string{
			"Flow":              flow,
			"CalculationMethod": q.Metadata.CalculationMethod,
		})
	}
	return q, serr
}

func (s *quoteServiceImpl) Calculate(ctx context.Context, req models.QuoteRequest) (*models.AggregatedQuote, *ServiceError) {
	return s.aggregate(ctx, req, true, "calculate")
}

// ReviewCart quotes a cart; with allowCached false the cache lookup is skipped.
func (s *quoteServiceImpl) ReviewCart(ctx context.Context, req models.QuoteRequest, allowCached bool) (*models.AggregatedQuote, *ServiceError) {
	return s.aggregate(ctx, req, allowCached, "cart_review")
}

// CalculateCheckout quotes at checkout. forceFresh always recomputes.
func (s *quoteServiceImpl) CalculateCheckout(ctx context.Context, req models.QuoteRequest, forceFresh bool) (*models.AggregatedQuote, *ServiceError) {
	q, serr := s.aggregate(ctx, req, !forceFresh, "checkout")
	if serr == nil {
		s.logger.Info("Checkout quote calculated",
			zap.String("quote_id", q.QuoteID),
			zap.Int("options", len(q.Options)),
			zap.Bool("force_fresh", forceFresh),
		)
	}
	return q, serr
}

// QuickEstimate returns at most maxOptions options; non-positive means the default.
func (s *quoteServiceImpl) QuickEstimate(ctx context.Context, req models.QuoteRequest, maxOptions int) (*models.AggregatedQuote, *ServiceError) {
	if maxOptions <= 0 {
		maxOptions = DefaultQuickEstimateOptions
	}
	q, serr := s.aggregate(ctx, req, true, "quick_estimate")
	if serr != nil {
		return nil, serr
	}
	return s.aggregator.Truncate(q, maxOptions), nil
}

func (s *quoteServiceImpl) Providers() []models.ProviderInfo {
	return s.aggregator.Providers()
}

func (s *quoteServiceImpl) ProviderStatuses() []models.ProviderStatus {
	return s.aggregator.ProviderStatuses()
}

// TestConnectivity probes every provider with a one kilogram domestic parcel
// shipped from the default origin.
func (s *quoteServiceImpl) TestConnectivity(ctx context.Context) []models.ConnectivityResult {
	origin := s.aggregator.cfg.DefaultOrigin
	if origin.IsZero() {
		origin = models.Address{Country: "US", State: "CA", PostalCode: "94105", City: "San Francisco"}
	}
	dest := models.Address{Country: origin.Country, PostalCode: origin.PostalCode, State: origin.State, City: origin.City}
	results := s.aggregator.TestConnectivity(ctx, models.RateRequest{
		FromAddress:  origin,
		ToAddress:    dest,
		TotalWeight:  decimal.NewFromInt(1),
		TotalValue:   decimal.NewFromInt(50),
		PackageCount: 1,
		Currency:     s.aggregator.cfg.DefaultCurrency,
	})
	for _, r := range results {
		if !r.Reachable {
			s.logger.Warn("Provider connectivity check failed", zap.String("provider", r.Provider), zap.String("error", r.Error))
		}
	}
	return results
}

func (s *quoteServiceImpl) Validate(req models.QuoteRequest) models.ValidationResult {
	errs := ValidateQuoteRequest(req)
	if errs == nil {
		errs = []string{}
	}
	return models.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
