package amazonweb

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shipscope/shipscope/internal/geo"
	"github.com/shipscope/shipscope/internal/models"
	"github.com/shipscope/shipscope/internal/trackerr"
)

// Credentials for the provider account. Absence is a ConfigurationError at
// fetch time, never at startup.
type Credentials struct {
	Email    string
	Password string
}

// Client tracks Amazon orders through the logged-in order pages. The
// session is process-wide: created lazily on the first fetch, reused while
// fresh, re-verified when older than maxSessionAge, and terminally failed
// on second-factor or bot-verification challenges.
type Client struct {
	baseURL string
	creds   Credentials
	httpc   *http.Client
	parser  PageParser
	now     func() time.Time

	mu            sync.Mutex
	state         sessionState
	loggedInAt    time.Time
	failure       error
	maxSessionAge time.Duration
}

func New(baseURL string, creds Credentials, parser PageParser) *Client {
	if baseURL == "" {
		baseURL = "https://www.amazon.com"
	}
	if parser == nil {
		parser = NewParser()
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpc: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
		parser:        parser,
		now:           time.Now,
		maxSessionAge: 30 * time.Minute,
	}
}

func (c *Client) GetTracking(ctx context.Context, carrierCode, trackingNumber string) (models.TrackingResult, error) {
	if err := c.ensureSession(ctx); err != nil {
		return models.TrackingResult{}, err
	}

	body, err := c.get(ctx, "/progress-tracker/package?orderId="+url.QueryEscape(trackingNumber))
	if err != nil {
		return models.TrackingResult{}, err
	}
	if err := detectChallenge(body); err != nil {
		return models.TrackingResult{}, err
	}

	page, err := c.parser.Parse(strings.NewReader(body))
	if err != nil {
		return models.TrackingResult{}, trackerr.Wrap(trackerr.KindUpstreamParse, err, "parse tracking page")
	}
	if len(page.Events) == 0 && page.Status == "" {
		return models.TrackingResult{}, trackerr.Newf(trackerr.KindUpstreamParse,
			"no recognizable tracking structure on page for %s", trackingNumber)
	}

	now := c.now().UTC()
	var activity []models.ActivityEvent
	if len(page.Events) == 0 {
		// Degraded but successful: the page had a top-level status only.
		activity = []models.ActivityEvent{{
			Status:    page.Status,
			Timestamp: now,
		}}
	} else {
		// Pages list scans newest-first; normalize to oldest-first.
		activity = make([]models.ActivityEvent, 0, len(page.Events))
		for i := len(page.Events) - 1; i >= 0; i-- {
			ev := page.Events[i]
			activity = append(activity, models.ActivityEvent{
				Status:    ev.Text,
				Location:  ev.Location,
				Timestamp: parseEventTime(ev.When, now),
				Geo:       geo.LookupCity(ev.Location),
			})
		}
	}

	status := page.Status
	if status == "" {
		status = activity[len(activity)-1].Status
	}

	return models.TrackingResult{
		Carrier:           models.CarrierAmazon,
		TrackingNumber:    trackingNumber,
		Status:            status,
		EstimatedDelivery: page.EstimatedDelivery,
		Activity:          activity,
	}, nil
}

var eventTimeLayouts = []string{
	"Monday, January 2 3:04 PM",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
	"Monday, January 2",
	"1/2/2006 3:04 PM",
}

// parseEventTime tries the known page date formats. Layouts without a year
// get the current one; anything unparseable falls back to now so an event
// is never dropped over its timestamp.
func parseEventTime(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	for _, layout := range eventTimeLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = t.AddDate(now.Year(), 0, 0)
		}
		return t
	}
	return now
}
