package controllers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarte-commerce/ecomm-shipping-sub000/middleware"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"github.com/smarte-commerce/ecomm-shipping-sub000/repository"
	"github.com/smarte-commerce/ecomm-shipping-sub000/services"
)

// ShippingController handles HTTP requests for shipment operations.
type ShippingController struct {
	shippingService services.ShippingService
}

// NewShippingController creates a new ShippingController.
func NewShippingController(svc services.ShippingService) *ShippingController {
	return &ShippingController{shippingService: svc}
}

// CreateLabel handles POST /shipping/labels
func (sc *ShippingController) CreateLabel(ctx *gin.Context) {
	var req models.CreateLabelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": services.CodeValidation, "message": err.Error()})
		return
	}

	shipment, svcErr := sc.shippingService.CreateLabel(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"shipment": shipment})
}

// TrackShipment handles GET /shipping/track/:tracking_code
func (sc *ShippingController) TrackShipment(ctx *gin.Context) {
	trackingCode := ctx.Param("tracking_code")
	if trackingCode == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": services.CodeValidation, "message": "Tracking code is required"})
		return
	}

	status, svcErr := sc.shippingService.TrackShipment(ctx.Request.Context(), trackingCode)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, status)
}

// ListShipments handles GET /shipping/shipments. Non-admin callers only see
// their own shipments.
func (sc *ShippingController) ListShipments(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)

	filter := repository.ShipmentFilter{Status: ctx.Query("status")}
	if ctx.GetString("role") != "admin" {
		userID, err := middleware.GetUserID(ctx)
		if err != nil {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED", "message": err.Error()})
			return
		}
		filter.UserID = userID
	} else {
		filter.UserID = ctx.Query("user_id")
	}

	shipments, total, svcErr := sc.shippingService.ListShipments(ctx.Request.Context(), filter, page, limit)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"shipments": shipments,
		"page":      page,
		"limit":     limit,
		"total":     total,
		"pages":     int(math.Ceil(float64(total) / float64(limit))),
	})
}
