package simulated

import (
	"context"
	"math/rand"
	"time"

	"github.com/shipscope/shipscope/internal/geo"
	"github.com/shipscope/shipscope/internal/models"
)

const estimateLayout = "Jan 2, 2006"

// Fixed route used for every simulated shipment. The final stop is decided
// per call: delivered now, or still out for delivery tomorrow.
var route = []struct {
	status   string
	location string
}{
	{"Shipment information received", "Shanghai, China"},
	{"Departed regional facility", "Memphis, TN"},
	{"Arrived at local facility", "Chicago, IL"},
}

// Client emulates a carrier for every tag without a dedicated integration.
// The shape is deterministic; only the delivered/in-transit outcome is
// drawn once per call.
type Client struct {
	now  func() time.Time
	roll func() bool
}

func New() *Client {
	return &Client{
		now:  time.Now,
		roll: func() bool { return rand.Intn(2) == 0 },
	}
}

// NewFixed pins the clock and the delivered outcome.
func NewFixed(now func() time.Time, delivered bool) *Client {
	return &Client{now: now, roll: func() bool { return delivered }}
}

func (c *Client) GetTracking(ctx context.Context, carrierCode, trackingNumber string) (models.TrackingResult, error) {
	now := c.now().UTC()
	delivered := c.roll()

	activity := make([]models.ActivityEvent, 0, len(route)+1)
	for i, stop := range route {
		activity = append(activity, models.ActivityEvent{
			Status:    stop.status,
			Location:  stop.location,
			Timestamp: now.Add(-time.Duration(len(route)-i) * 24 * time.Hour),
			Geo:       geo.LookupCity(stop.location),
		})
	}

	status := "In Transit"
	estimated := now.Add(24 * time.Hour).Format(estimateLayout)
	last := models.ActivityEvent{
		Status:    "Out for delivery",
		Location:  "Chicago, IL",
		Timestamp: now.Add(24 * time.Hour),
		Geo:       geo.LookupCity("Chicago, IL"),
	}
	if delivered {
		status = "Delivered"
		estimated = now.Format(estimateLayout)
		last = models.ActivityEvent{
			Status:    "Delivered",
			Location:  "Chicago, IL",
			Timestamp: now,
			Geo:       geo.LookupCity("Chicago, IL"),
		}
	}
	activity = append(activity, last)

	return models.TrackingResult{
		Carrier:           carrierCode,
		TrackingNumber:    trackingNumber,
		Status:            status,
		EstimatedDelivery: estimated,
		Activity:          activity,
	}, nil
}
