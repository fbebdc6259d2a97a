package geo

import (
	"strings"

	"github.com/shipscope/shipscope/internal/models"
)

// Best-effort geocoding: a fixed table of known city substrings. Upstream
// location strings are free text ("Departed FedEx hub CHICAGO, IL"), so the
// lookup matches on substring, not equality. Unknown locations yield nil.
var cities = map[string]models.GeoPoint{
	"shanghai":      {Lat: 31.2304, Lon: 121.4737},
	"shenzhen":      {Lat: 22.5431, Lon: 114.0579},
	"hong kong":     {Lat: 22.3193, Lon: 114.1694},
	"anchorage":     {Lat: 61.2181, Lon: -149.9003},
	"memphis":       {Lat: 35.1495, Lon: -90.0490},
	"louisville":    {Lat: 38.2527, Lon: -85.7585},
	"chicago":       {Lat: 41.8781, Lon: -87.6298},
	"indianapolis":  {Lat: 39.7684, Lon: -86.1581},
	"new york":      {Lat: 40.7128, Lon: -74.0060},
	"newark":        {Lat: 40.7357, Lon: -74.1724},
	"los angeles":   {Lat: 34.0522, Lon: -118.2437},
	"san francisco": {Lat: 37.7749, Lon: -122.4194},
	"seattle":       {Lat: 47.6062, Lon: -122.3321},
	"dallas":        {Lat: 32.7767, Lon: -96.7970},
	"atlanta":       {Lat: 33.7490, Lon: -84.3880},
	"miami":         {Lat: 25.7617, Lon: -80.1918},
	"denver":        {Lat: 39.7392, Lon: -104.9903},
	"phoenix":       {Lat: 33.4484, Lon: -112.0740},
	"london":        {Lat: 51.5074, Lon: -0.1278},
	"leipzig":       {Lat: 51.3397, Lon: 12.3731},
	"frankfurt":     {Lat: 50.1109, Lon: 8.6821},
	"paris":         {Lat: 48.8566, Lon: 2.3522},
	"tokyo":         {Lat: 35.6762, Lon: 139.6503},
	"toronto":       {Lat: 43.6532, Lon: -79.3832},
}

// LookupCity returns coordinates for the first known city whose name occurs
// in location, or nil when nothing matches.
func LookupCity(location string) *models.GeoPoint {
	low := strings.ToLower(location)
	for name, pt := range cities {
		if strings.Contains(low, name) {
			p := pt
			return &p
		}
	}
	return nil
}
