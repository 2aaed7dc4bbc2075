// Package cache stores aggregated shipping quotes for reuse within their TTL.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
)

// DefaultTTL is how long an aggregated quote stays reusable.
const DefaultTTL = 10 * time.Minute

// ErrUnavailable wraps failures of the underlying store.
var ErrUnavailable = errors.New("quote cache unavailable")

// QuoteCache is a key/value store with per-entry TTL. A miss is reported as
// (nil, false, nil); callers treat errors as misses.
type QuoteCache interface {
	Get(ctx context.Context, key string) (*models.AggregatedQuote, bool, error)
	Set(ctx context.Context, key string, quote *models.AggregatedQuote, ttl time.Duration) error
}
