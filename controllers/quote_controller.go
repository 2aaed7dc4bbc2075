package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"github.com/smarte-commerce/ecomm-shipping-sub000/services"
)

// QuoteController handles HTTP requests for shipping quotes.
type QuoteController struct {
	quoteService services.QuoteService
}

// NewQuoteController creates a new QuoteController.
func NewQuoteController(svc services.QuoteService) *QuoteController {
	return &QuoteController{quoteService: svc}
}

func bindQuoteRequest(ctx *gin.Context) (models.QuoteRequest, bool) {
	var req models.QuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": services.CodeValidation, "message": "Invalid request: " + err.Error()})
		return req, false
	}
	return req, true
}

func respondQuote(ctx *gin.Context, quote *models.AggregatedQuote, svcErr *services.ServiceError) {
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, quote)
}

// Calculate handles POST /quotes/calculate
func (qc *QuoteController) Calculate(ctx *gin.Context) {
	req, ok := bindQuoteRequest(ctx)
	if !ok {
		return
	}
	quote, svcErr := qc.quoteService.Calculate(ctx.Request.Context(), req)
	respondQuote(ctx, quote, svcErr)
}

// ReviewCart handles POST /quotes/cart/review?allowCached=bool
func (qc *QuoteController) ReviewCart(ctx *gin.Context) {
	req, ok := bindQuoteRequest(ctx)
	if !ok {
		return
	}
	quote, svcErr := qc.quoteService.ReviewCart(ctx.Request.Context(), req, parseBoolQuery(ctx, "allowCached", true))
	respondQuote(ctx, quote, svcErr)
}

// CalculateCheckout handles POST /quotes/checkout/calculate?forceFresh=bool
func (qc *QuoteController) CalculateCheckout(ctx *gin.Context) {
	req, ok := bindQuoteRequest(ctx)
	if !ok {
		return
	}
	quote, svcErr := qc.quoteService.CalculateCheckout(ctx.Request.Context(), req, parseBoolQuery(ctx, "forceFresh", true))
	respondQuote(ctx, quote, svcErr)
}

// QuickEstimate handles POST /quotes/quick-estimate?maxProviders=int
func (qc *QuoteController) QuickEstimate(ctx *gin.Context) {
	req, ok := bindQuoteRequest(ctx)
	if !ok {
		return
	}
	n := services.DefaultQuickEstimateOptions
	if v, err := strconv.Atoi(ctx.Query("maxProviders")); err == nil && v > 0 {
		n = v
	}
	quote, svcErr := qc.quoteService.QuickEstimate(ctx.Request.Context(), req, n)
	respondQuote(ctx, quote, svcErr)
}

// Providers handles GET /quotes/providers
func (qc *QuoteController) Providers(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"providers": qc.quoteService.Providers()})
}

// ProviderStatuses handles GET /quotes/providers/status
func (qc *QuoteController) ProviderStatuses(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"providers": qc.quoteService.ProviderStatuses()})
}

// TestConnectivity handles POST /quotes/providers/test-connectivity
func (qc *QuoteController) TestConnectivity(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"results": qc.quoteService.TestConnectivity(ctx.Request.Context())})
}

// Validate handles POST /quotes/validate. Violations are reported with 200.
func (qc *QuoteController) Validate(ctx *gin.Context) {
	req, ok := bindQuoteRequest(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, qc.quoteService.Validate(req))
}
