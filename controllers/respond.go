package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smarte-commerce/ecomm-shipping-sub000/services"
)

// respondError renders a ServiceError as {"error": code, "message": text}.
func respondError(ctx *gin.Context, svcErr *services.ServiceError) {
	code := svcErr.Code
	if code == "" {
		code = services.CodeInternal
	}
	ctx.JSON(svcErr.StatusCode, gin.H{"error": code, "message": svcErr.Message})
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 10
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}

// parseBoolQuery reads a boolean query flag, falling back to def when the
// flag is missing or malformed.
func parseBoolQuery(ctx *gin.Context, key string, def bool) bool {
	raw, ok := ctx.GetQuery(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
