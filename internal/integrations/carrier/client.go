package carrier

import (
	"context"

	"github.com/shipscope/shipscope/internal/models"
)

// Client turns an identifier into a normalized tracking result for one
// carrier. Implementations must return Activity in ascending chronological
// order with at least one event.
type Client interface {
	GetTracking(ctx context.Context, carrierCode, trackingNumber string) (models.TrackingResult, error)
}
