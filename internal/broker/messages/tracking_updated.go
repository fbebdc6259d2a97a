package messages

import (
	"time"

	"github.com/shipscope/shipscope/internal/models"
)

// TrackingUpdated is published after every fresh fetch (never for cache
// hits). OriginID carries the publishing instance id so consumers can skip
// their own messages and only re-broadcast updates from other instances.
type TrackingUpdated struct {
	OriginID       string                `json:"origin_id,omitempty"`
	TrackingNumber string                `json:"tracking_number"`
	Carrier        string                `json:"carrier"`
	CheckedAt      time.Time             `json:"checked_at"`
	Result         models.TrackingResult `json:"result"`
}
