package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/cache"
	"github.com/smarte-commerce/ecomm-shipping-sub000/metrics"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"github.com/smarte-commerce/ecomm-shipping-sub000/providers"
	"github.com/smarte-commerce/ecomm-shipping-sub000/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// AggregatorConfig tunes provider fan-out, caching and ranking.
type AggregatorConfig struct {
	MaxProviders    int
	ProviderTimeout time.Duration
	OverallTimeout  time.Duration
	Retry           RetryPolicy
	Breaker         BreakerConfig
	// ProviderRPS limits outbound calls per provider; 0 disables the limit.
	ProviderRPS float64
	CacheTTL    time.Duration
	// CostNormalizationFactor divides cost before adding transit days in
	// the recommended score.
	CostNormalizationFactor decimal.Decimal
	DefaultCurrency         string
	// DefaultOrigin is used when a request omits its from address.
	DefaultOrigin models.Address
}

// DefaultAggregatorConfig returns the standard aggregation policy.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		MaxProviders:            5,
		ProviderTimeout:         10 * time.Second,
		OverallTimeout:          30 * time.Second,
		Retry:                   DefaultRetryPolicy(),
		Breaker:                 DefaultBreakerConfig(),
		CacheTTL:                cache.DefaultTTL,
		CostNormalizationFactor: decimal.NewFromInt(10),
		DefaultCurrency:         "USD",
	}
}

// cacheWriteTimeout bounds a cache write after the quote is computed.
const cacheWriteTimeout = 2 * time.Second

// QuoteAggregator fans a rate request out to the registered providers,
// falls back to the internal rate engine and ranks the merged options.
type QuoteAggregator struct {
	guards  []*providerGuard
	catalog repository.CatalogRepository
	engine  *RateEngine
	cache   cache.QuoteCache
	cfg     AggregatorConfig
	logger  *zap.Logger
	now     func() time.Time
	group   singleflight.Group
}

// NewQuoteAggregator creates an aggregator over a static provider list.
// Provider order is the merge order. cache may be nil.
func NewQuoteAggregator(
	quoteProviders []providers.QuoteProvider,
	catalog repository.CatalogRepository,
	engine *RateEngine,
	quoteCache cache.QuoteCache,
	cfg AggregatorConfig,
	logger *zap.Logger,
) *QuoteAggregator {
	def := DefaultAggregatorConfig()
	if cfg.MaxProviders <= 0 {
		cfg.MaxProviders = def.MaxProviders
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = def.OverallTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if !cfg.CostNormalizationFactor.IsPositive() {
		cfg.CostNormalizationFactor = def.CostNormalizationFactor
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = def.DefaultCurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &QuoteAggregator{
		catalog: catalog,
		engine:  engine,
		cache:   quoteCache,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
	for _, p := range quoteProviders {
		a.guards = append(a.guards, newProviderGuard(p, cfg, a.clock))
	}
	return a
}

func (a *QuoteAggregator) clock() time.Time { return a.now() }

// Aggregate returns ranked shipping options for req. With useCache set a
// cached quote for the same normalized request is returned as is.
func (a *QuoteAggregator) Aggregate(ctx context.Context, req models.QuoteRequest, useCache bool) (*models.AggregatedQuote, *ServiceError) {
	if errs := ValidateQuoteRequest(req); len(errs) > 0 {
		return nil, validationError(strings.Join(errs, "; "))
	}
	req = a.normalize(req)

	if req.IsMultiVendor() {
		return a.cached(ctx, QuoteCacheKey(req), useCache, func(ctx context.Context) (*models.AggregatedQuote, *ServiceError) {
			return a.computeMultiVendor(ctx, req, useCache)
		})
	}
	return a.cached(ctx, QuoteCacheKey(req), useCache, func(ctx context.Context) (*models.AggregatedQuote, *ServiceError) {
		return a.computeSingle(ctx, req.SingleVendor())
	})
}

// Truncate returns a new quote holding the first n options with the
// selections recomputed over them. q is left untouched.
func (a *QuoteAggregator) Truncate(q *models.AggregatedQuote, n int) *models.AggregatedQuote {
	if q == nil {
		return nil
	}
	if n <= 0 || n > len(q.Options) {
		n = len(q.Options)
	}
	out := *q
	out.Options = append([]models.ShippingOption(nil), q.Options[:n]...)
	out.CheapestOption, out.FastestOption, out.RecommendedOption = selectOptions(out.Options, a.cfg.CostNormalizationFactor)
	return &out
}

// ---- cache state ----

func (a *QuoteAggregator) cached(
	ctx context.Context,
	key string,
	useCache bool,
	compute func(context.Context) (*models.AggregatedQuote, *ServiceError),
) (*models.AggregatedQuote, *ServiceError) {
	if !useCache {
		q, serr := compute(ctx)
		if serr != nil {
			return nil, serr
		}
		a.store(ctx, key, q)
		return q, nil
	}

	if q := a.lookup(ctx, key); q != nil {
		return q, nil
	}

	// Identical misses share one computation, which outlives any single caller.
	v, err, _ := a.group.Do(key, func() (interface{}, error) {
		q, serr := compute(context.WithoutCancel(ctx))
		if serr != nil {
			return nil, serr
		}
		a.store(ctx, key, q)
		return q, nil
	})
	if err != nil {
		var serr *ServiceError
		if errors.As(err, &serr) {
			return nil, serr
		}
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Code: CodeInternal, Message: err.Error(), Err: err}
	}
	return v.(*models.AggregatedQuote), nil
}

func (a *QuoteAggregator) lookup(ctx context.Context, key string) *models.AggregatedQuote {
	if a.cache == nil {
		return nil
	}
	q, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		metrics.IncCacheLookup("error")
		a.logger.Warn("Quote cache lookup failed, treating as miss", zap.Error(err))
		return nil
	}
	if !ok {
		metrics.IncCacheLookup("miss")
		return nil
	}
	metrics.IncCacheLookup("hit")
	return q
}

func (a *QuoteAggregator) store(ctx context.Context, key string, q *models.AggregatedQuote) {
	if a.cache == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	if err := a.cache.Set(wctx, key, q, a.cfg.CacheTTL); err != nil {
		a.logger.Warn("Failed to cache quote", zap.Error(err), zap.String("quote_id", q.QuoteID))
	}
}

// ---- single vendor ----

type providerResult struct {
	idx      int
	options  []models.ShippingOption
	err      error
	attempts int
	elapsed  time.Duration
}

func (a *QuoteAggregator) computeSingle(ctx context.Context, req models.RateRequest) (*models.AggregatedQuote, *ServiceError) {
	meta := a.baseMetadata(req)

	selected := a.selectProviders(req, &meta)
	options := a.fanOut(ctx, req, selected, &meta)
	meta.CalculationMethod = models.CalculationExternalAPI

	if len(options) == 0 {
		fallback, serr := a.fallback(ctx, req)
		if serr != nil {
			if serr.Code == CodeAggregationExhausted {
				a.logger.Error("Quote aggregation exhausted",
					zap.String("destination", req.ToAddress.Country),
					zap.Int("provider_errors", len(meta.ProviderErrors)),
				)
			}
			return nil, serr
		}
		for i := range meta.ProviderErrors {
			meta.ProviderErrors[i].FallbackUsed = models.CalculationInternal
		}
		options = fallback
		meta.CalculationMethod = models.CalculationInternal
	}

	metrics.IncAggregation(meta.CalculationMethod)
	return a.buildQuote(models.RequestTypeSingleVendor, options, meta), nil
}

// selectProviders returns the guards to call in registration order. Open
// circuits are reported as unavailable without calling the provider.
func (a *QuoteAggregator) selectProviders(req models.RateRequest, meta *models.QuoteMetadata) []*providerGuard {
	selected := make([]*providerGuard, 0, len(a.guards))
	for _, g := range a.guards {
		p := g.provider
		if !p.IsAvailable() {
			meta.UnavailableProviders = append(meta.UnavailableProviders, p.Name())
			continue
		}
		if !p.SupportsRoute(req.FromAddress.Country, req.ToAddress.Country) {
			continue
		}
		if exceeds(req.TotalWeight, p.MaxPackageWeight()) || exceeds(req.TotalValue, p.MaxDeclaredValue()) {
			continue
		}
		if len(selected) >= a.cfg.MaxProviders {
			break
		}
		if err := g.breaker.Allow(); err != nil {
			meta.UnavailableProviders = append(meta.UnavailableProviders, p.Name())
			meta.ProviderErrors = append(meta.ProviderErrors, models.ProviderError{
				Provider:     p.Name(),
				ErrorCode:    models.ProviderErrCircuitOpen,
				ErrorMessage: err.Error(),
			})
			metrics.ObserveProviderCall(p.Name(), "circuit_open", 0)
			continue
		}
		selected = append(selected, g)
	}
	return selected
}

// exceeds treats a non-positive limit as unlimited.
func exceeds(v, limit decimal.Decimal) bool {
	return limit.IsPositive() && v.GreaterThan(limit)
}

// fanOut calls every selected provider concurrently. Results travel over a
// channel to this goroutine only; anything arriving after the overall
// deadline is dropped.
func (a *QuoteAggregator) fanOut(ctx context.Context, req models.RateRequest, selected []*providerGuard, meta *models.QuoteMetadata) []models.ShippingOption {
	if len(selected) == 0 {
		return nil
	}

	overall, cancel := context.WithTimeout(ctx, a.cfg.OverallTimeout)
	defer cancel()

	results := make(chan providerResult, len(selected))
	for i, g := range selected {
		go func() {
			pctx, pcancel := context.WithTimeout(overall, a.cfg.ProviderTimeout)
			defer pcancel()

			start := time.Now()
			opts, attempts, err := g.call(pctx, a.cfg.Retry, func(c context.Context) ([]models.ShippingOption, error) {
				return g.provider.GetShippingQuotes(c, req)
			})
			results <- providerResult{idx: i, options: opts, err: err, attempts: attempts, elapsed: time.Since(start)}
		}()
	}

	collected := make([]*providerResult, len(selected))
	received := 0
collect:
	for received < len(selected) {
		select {
		case r := <-results:
			collected[r.idx] = &r
			received++
		case <-overall.Done():
			break collect
		}
	}

	var merged []models.ShippingOption
	for i, g := range selected {
		name := g.provider.Name()
		r := collected[i]
		if r == nil {
			a.recordProviderError(meta, name, models.ProviderErrTimeout, "no response before the overall deadline", 0, a.cfg.OverallTimeout)
			continue
		}
		if r.err != nil {
			a.recordProviderError(meta, name, classifyProviderError(r.err), r.err.Error(), r.attempts, r.elapsed)
			continue
		}
		metrics.ObserveProviderCall(name, "success", r.elapsed)
		meta.AvailableProviders = append(meta.AvailableProviders, name)
		merged = append(merged, a.sanitize(name, req, r.options)...)
	}
	return merged
}

func (a *QuoteAggregator) recordProviderError(meta *models.QuoteMetadata, provider, code, msg string, attempts int, elapsed time.Duration) {
	a.logger.Warn("Rate provider failed",
		zap.String("provider", provider),
		zap.String("code", code),
		zap.Int("attempts", attempts),
		zap.Duration("elapsed", elapsed),
		zap.String("error", msg),
	)
	metrics.ObserveProviderCall(provider, strings.ToLower(code), elapsed)
	meta.UnavailableProviders = append(meta.UnavailableProviders, provider)
	meta.ProviderErrors = append(meta.ProviderErrors, models.ProviderError{
		Provider:     provider,
		ErrorCode:    code,
		ErrorMessage: msg,
	})
}

func classifyProviderError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.ProviderErrTimeout
	case errors.Is(err, providers.ErrInvalidResponse):
		return models.ProviderErrInvalidResponse
	default:
		return models.ProviderErrProvider
	}
}

// sanitize drops unusable options and fills defaults the provider left out.
// Costs are only comparable in one currency, so options quoted in anything
// other than the request currency are dropped; no FX conversion is done.
func (a *QuoteAggregator) sanitize(provider string, req models.RateRequest, in []models.ShippingOption) []models.ShippingOption {
	out := make([]models.ShippingOption, 0, len(in))
	for _, o := range in {
		if o.Cost.IsNegative() || o.EstimatedDays < 0 {
			continue
		}
		if o.Provider == "" {
			o.Provider = provider
		}
		o.Currency = normalizeCode(o.Currency)
		if o.Currency == "" {
			o.Currency = req.Currency
		}
		if req.Currency != "" && o.Currency != req.Currency {
			a.logger.Warn("Dropping option in foreign currency",
				zap.String("provider", provider),
				zap.String("service", o.ServiceCode),
				zap.String("currency", o.Currency),
				zap.String("want", req.Currency),
			)
			continue
		}
		o.Cost = o.Cost.Round(2)
		out = append(out, o)
	}
	return out
}

// fallback prices the request with the internal rate engine.
func (a *QuoteAggregator) fallback(ctx context.Context, req models.RateRequest) ([]models.ShippingOption, *ServiceError) {
	if a.catalog == nil || a.engine == nil {
		return nil, exhaustedError()
	}

	zones, err := a.catalog.ActiveZones(ctx)
	if err != nil {
		a.logger.Error("Failed to load shipping zones", zap.Error(err))
		return nil, catalogError(err)
	}
	zone, err := ResolveZone(req.ToAddress.Country, req.ToAddress.State, req.ToAddress.PostalCode, zones)
	if err != nil {
		return nil, zoneNotFoundError(err)
	}

	methods, err := a.catalog.ActiveMethods(ctx, repository.MethodFilter{
		ZoneID:        zone.ID,
		CarrierID:     req.CarrierID,
		WeightKg:      &req.TotalWeight,
		DeclaredValue: &req.TotalValue,
	})
	if err != nil {
		a.logger.Error("Failed to load shipping methods", zap.Error(err), zap.String("zone", zone.Code))
		return nil, catalogError(err)
	}

	quotes := a.engine.Quote(req, methods)
	options := make([]models.ShippingOption, 0, len(quotes))
	for _, q := range quotes {
		if !q.IsAvailable {
			a.logger.Warn("Shipping method unavailable",
				zap.String("method", q.MethodCode),
				zap.String("reason", q.UnavailableReason),
			)
			continue
		}
		options = append(options, QuoteToOption(q))
	}
	if len(options) == 0 {
		return nil, exhaustedError()
	}
	return options, nil
}

// ---- multi vendor ----

func (a *QuoteAggregator) computeMultiVendor(ctx context.Context, req models.QuoteRequest, useCache bool) (*models.AggregatedQuote, *ServiceError) {
	mv := req.MultiVendor()
	results := make([]*models.AggregatedQuote, len(mv.Vendors))

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range mv.Vendors {
		g.Go(func() error {
			vreq := mv.ForVendor(v)
			key := QuoteCacheKey(singleVendorRequest(vreq))
			q, serr := a.cached(gctx, key, useCache, func(c context.Context) (*models.AggregatedQuote, *ServiceError) {
				return a.computeSingle(c, vreq)
			})
			if serr != nil {
				return serr
			}
			results[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var serr *ServiceError
		if errors.As(err, &serr) {
			return nil, serr
		}
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Code: CodeInternal, Message: err.Error(), Err: err}
	}

	meta := models.QuoteMetadata{
		Destination: mv.ToAddress,
		IsDomestic:  true,
		VendorCount: len(mv.Vendors),
	}
	var options []models.ShippingOption
	external, internal := false, false
	for i, v := range mv.Vendors {
		q := results[i]
		for _, o := range q.Options {
			o.VendorID = v.VendorID
			options = append(options, o)
		}

		vm := q.Metadata
		if i == 0 {
			meta.Origin = vm.Origin
		}
		meta.IsDomestic = meta.IsDomestic && vm.IsDomestic
		meta.TotalWeight = meta.TotalWeight.Add(vm.TotalWeight)
		meta.TotalValue = meta.TotalValue.Add(vm.TotalValue)
		meta.PackageCount += vm.PackageCount
		meta.AvailableProviders = appendUnique(meta.AvailableProviders, vm.AvailableProviders...)
		meta.UnavailableProviders = appendUnique(meta.UnavailableProviders, vm.UnavailableProviders...)
		meta.ProviderErrors = append(meta.ProviderErrors, vm.ProviderErrors...)

		switch vm.CalculationMethod {
		case models.CalculationInternal:
			internal = true
		case models.CalculationHybrid:
			internal, external = true, true
		default:
			external = true
		}
	}
	meta.RequiresCustoms = !meta.IsDomestic

	switch {
	case external && internal:
		meta.CalculationMethod = models.CalculationHybrid
	case internal:
		meta.CalculationMethod = models.CalculationInternal
	default:
		meta.CalculationMethod = models.CalculationExternalAPI
	}

	return a.buildQuote(models.RequestTypeMultiVendor, options, meta), nil
}

func singleVendorRequest(r models.RateRequest) models.QuoteRequest {
	return models.QuoteRequest{
		FromAddress:  r.FromAddress,
		ToAddress:    r.ToAddress,
		TotalWeight:  r.TotalWeight,
		TotalValue:   r.TotalValue,
		PackageCount: r.PackageCount,
		Currency:     r.Currency,
		ServiceType:  r.ServiceType,
		CarrierID:    r.CarrierID,
	}
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}

// ---- ranking ----

func (a *QuoteAggregator) buildQuote(requestType string, options []models.ShippingOption, meta models.QuoteMetadata) *models.AggregatedQuote {
	sortOptions(options)
	if meta.AvailableProviders == nil {
		meta.AvailableProviders = []string{}
	}
	if meta.UnavailableProviders == nil {
		meta.UnavailableProviders = []string{}
	}
	if meta.ProviderErrors == nil {
		meta.ProviderErrors = []models.ProviderError{}
	}

	quotedAt := a.now().UTC()
	q := &models.AggregatedQuote{
		QuoteID:     uuid.NewString(),
		QuotedAt:    quotedAt,
		ExpiresAt:   quotedAt.Add(a.cfg.CacheTTL),
		RequestType: requestType,
		Options:     options,
		Metadata:    meta,
	}
	q.CheapestOption, q.FastestOption, q.RecommendedOption = selectOptions(options, a.cfg.CostNormalizationFactor)
	return q
}

// sortOptions orders by cost, then transit days (unknown transit last),
// provider and service so the result never depends on provider arrival order.
func sortOptions(options []models.ShippingOption) {
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if c := a.Cost.Cmp(b.Cost); c != 0 {
			return c < 0
		}
		if a.TransitUnknown != b.TransitUnknown {
			return !a.TransitUnknown
		}
		if a.EstimatedDays != b.EstimatedDays {
			return a.EstimatedDays < b.EstimatedDays
		}
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.ServiceCode < b.ServiceCode
	})
}

// selectOptions returns copies of the cheapest, fastest and recommended
// options. recommended minimises cost/scale + days; ties keep the first.
// Options with unknown transit are only eligible as cheapest. fastest is
// nil when no option has a known transit time, and recommended then falls
// back to the cheapest.
func selectOptions(options []models.ShippingOption, scale decimal.Decimal) (cheapest, fastest, recommended *models.ShippingOption) {
	if len(options) == 0 {
		return nil, nil, nil
	}
	ci, fi := 0, -1
	var bestScore decimal.Decimal
	for i, o := range options {
		if o.Cost.LessThan(options[ci].Cost) {
			ci = i
		}
		if o.TransitUnknown {
			continue
		}
		s := balancedScore(o, scale)
		if fi < 0 {
			fi = i
			recommended, bestScore = &options[i], s
			continue
		}
		if o.EstimatedDays < options[fi].EstimatedDays {
			fi = i
		}
		if s.LessThan(bestScore) {
			recommended, bestScore = &options[i], s
		}
	}

	c := options[ci]
	cheapest = &c
	if fi >= 0 {
		f := options[fi]
		fastest = &f
	}
	if recommended == nil {
		r := c
		recommended = &r
	} else {
		r := *recommended
		recommended = &r
	}
	return cheapest, fastest, recommended
}

func balancedScore(o models.ShippingOption, scale decimal.Decimal) decimal.Decimal {
	return o.Cost.Div(scale).Add(decimal.NewFromInt(int64(o.EstimatedDays)))
}

// ---- request shaping ----

func (a *QuoteAggregator) normalize(req models.QuoteRequest) models.QuoteRequest {
	if req.FromAddress.IsZero() {
		req.FromAddress = a.cfg.DefaultOrigin
	}
	req.Currency = normalizeCode(req.Currency)
	if req.Currency == "" {
		req.Currency = strings.ToUpper(a.cfg.DefaultCurrency)
	}
	req.ServiceType = normalizeCode(req.ServiceType)
	if req.PackageCount == 0 {
		req.PackageCount = 1
	}
	if len(req.Vendors) > 0 {
		vendors := make([]models.VendorPackage, len(req.Vendors))
		for i, v := range req.Vendors {
			if v.FromAddress.IsZero() {
				v.FromAddress = a.cfg.DefaultOrigin
			}
			if v.PackageCount == 0 {
				v.PackageCount = 1
			}
			v.VendorID = strings.TrimSpace(v.VendorID)
			vendors[i] = v
		}
		req.Vendors = vendors
	}
	return req
}

func (a *QuoteAggregator) baseMetadata(req models.RateRequest) models.QuoteMetadata {
	domestic := strings.EqualFold(strings.TrimSpace(req.FromAddress.Country), strings.TrimSpace(req.ToAddress.Country))
	return models.QuoteMetadata{
		Origin:          req.FromAddress,
		Destination:     req.ToAddress,
		IsDomestic:      domestic,
		RequiresCustoms: !domestic,
		TotalWeight:     req.TotalWeight,
		TotalValue:      req.TotalValue,
		PackageCount:    req.PackageCount,
		VendorCount:     1,
	}
}

// ValidateQuoteRequest lists every problem with req; an empty result means
// the request can be quoted.
func ValidateQuoteRequest(req models.QuoteRequest) []string {
	var errs []string
	if len(strings.TrimSpace(req.ToAddress.Country)) != 2 {
		errs = append(errs, "to_address.country must be an ISO 3166-1 alpha-2 code")
	}
	if c := strings.TrimSpace(req.Currency); c != "" && len(c) != 3 {
		errs = append(errs, "currency must be an ISO 4217 code")
	}

	if !req.IsMultiVendor() {
		errs = append(errs, validatePackage("", req.TotalWeight, req.TotalValue, req.PackageCount)...)
		return errs
	}

	seen := make(map[string]bool, len(req.Vendors))
	for i, v := range req.Vendors {
		id := strings.TrimSpace(v.VendorID)
		prefix := fmt.Sprintf("vendors[%d].", i)
		if id == "" {
			errs = append(errs, prefix+"vendor_id is required")
		} else if seen[id] {
			errs = append(errs, prefix+"vendor_id is duplicated")
		}
		seen[id] = true
		errs = append(errs, validatePackage(prefix, v.TotalWeight, v.TotalValue, v.PackageCount)...)
	}
	return errs
}

func validatePackage(prefix string, weight, value decimal.Decimal, packages int) []string {
	var errs []string
	if !weight.IsPositive() {
		errs = append(errs, prefix+"total_weight must be greater than 0")
	}
	if !value.IsPositive() {
		errs = append(errs, prefix+"total_value must be greater than 0")
	}
	if packages < 0 {
		errs = append(errs, prefix+"package_count must not be negative")
	}
	return errs
}

// ---- provider inspection ----

// Providers describes the registered providers in registration order.
func (a *QuoteAggregator) Providers() []models.ProviderInfo {
	out := make([]models.ProviderInfo, 0, len(a.guards))
	for _, g := range a.guards {
		p := g.provider
		out = append(out, models.ProviderInfo{
			Name:               p.Name(),
			Available:          p.IsAvailable(),
			SupportedCountries: p.SupportedCountries(),
			MaxPackageWeight:   p.MaxPackageWeight(),
			MaxDeclaredValue:   p.MaxDeclaredValue(),
		})
	}
	return out
}

// ProviderStatuses reports availability and breaker state per provider.
func (a *QuoteAggregator) ProviderStatuses() []models.ProviderStatus {
	out := make([]models.ProviderStatus, 0, len(a.guards))
	for _, g := range a.guards {
		state, failures, openUntil := g.breaker.Status()
		status := models.ProviderStatus{
			Name:                g.provider.Name(),
			Available:           g.provider.IsAvailable() && state != CircuitOpen,
			CircuitState:        state.String(),
			ConsecutiveFailures: failures,
		}
		if state == CircuitOpen {
			until := openUntil
			status.OpenUntil = &until
		}
		out = append(out, status)
	}
	return out
}

// TestConnectivity calls every available provider once with req. Probes
// skip the breaker and retries so they reflect the provider itself.
func (a *QuoteAggregator) TestConnectivity(ctx context.Context, req models.RateRequest) []models.ConnectivityResult {
	results := make([]models.ConnectivityResult, len(a.guards))

	g, gctx := errgroup.WithContext(ctx)
	for i, guard := range a.guards {
		p := guard.provider
		results[i] = models.ConnectivityResult{Provider: p.Name()}
		if !p.IsAvailable() {
			results[i].Error = "provider not configured"
			continue
		}
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, a.cfg.ProviderTimeout)
			defer cancel()

			start := time.Now()
			opts, err := p.GetShippingQuotes(pctx, req)
			results[i].LatencyMs = time.Since(start).Milliseconds()
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Reachable = true
			results[i].OptionCount = len(opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
