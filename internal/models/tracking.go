package models

import "time"

// Carrier tags recognized by the detector.
const (
	CarrierUPS     = "UPS"
	CarrierFedEx   = "FEDEX"
	CarrierDHL     = "DHL"
	CarrierUSPS    = "USPS"
	CarrierAmazon  = "AMAZON"
	CarrierUnknown = "UNKNOWN"
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type ActivityEvent struct {
	Status    string    `json:"status"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	Geo       *GeoPoint `json:"geo,omitempty"`
}

// TrackingResult is the normalized answer for one identifier. Activity is
// kept in ascending chronological order (oldest first) and holds at least
// one event. Status is carrier-specific free text, not a closed enum.
type TrackingResult struct {
	Carrier           string          `json:"carrier"`
	TrackingNumber    string          `json:"trackingNumber"`
	Status            string          `json:"status"`
	EstimatedDelivery string          `json:"estimatedDelivery"`
	Activity          []ActivityEvent `json:"activity"`
}
