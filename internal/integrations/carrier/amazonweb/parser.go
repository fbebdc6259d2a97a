package amazonweb

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// ParsedEvent is one raw row lifted from a tracking page, before
// normalization (time parsing, geocoding) happens in the client.
type ParsedEvent struct {
	Text     string
	Location string
	When     string
}

// ParsedPage is what a tracking page yields. Amazon serves several page
// generations for the same order, so any field may be empty; the caller
// decides what an empty page means.
type ParsedPage struct {
	Status            string
	EstimatedDelivery string
	Events            []ParsedEvent
}

// PageParser extracts tracking data from a provider page. Injected so the
// client is testable against fixture pages instead of live markup.
type PageParser interface {
	Parse(body io.Reader) (ParsedPage, error)
}

// DOMParser runs an ordered list of extraction strategies over the page;
// the first strategy that yields content wins. Each strategy targets one
// known page layout.
type DOMParser struct{}

func NewParser() *DOMParser { return &DOMParser{} }

var eventStrategies = []func(*goquery.Document) []ParsedEvent{
	progressTrackerEvents,
	shipmentEventList,
}

var statusStrategies = []func(*goquery.Document) string{
	progressTrackerStatus,
	shipmentStatus,
}

func (p *DOMParser) Parse(body io.Reader) (ParsedPage, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return ParsedPage{}, errors.Wrap(err, "parse html")
	}

	var page ParsedPage
	for _, strat := range eventStrategies {
		if evs := strat(doc); len(evs) > 0 {
			page.Events = evs
			break
		}
	}
	for _, strat := range statusStrategies {
		if s := strat(doc); s != "" {
			page.Status = s
			break
		}
	}
	page.EstimatedDelivery = text(doc.Find("#primaryStatus .pt-promise-arrival").First())
	if page.EstimatedDelivery == "" {
		page.EstimatedDelivery = text(doc.Find(".js-shipment-info .promise-text").First())
	}
	return page, nil
}

// Current progress-tracker layout: one .tracking-event row per scan, date
// and time in separate spans.
func progressTrackerEvents(doc *goquery.Document) []ParsedEvent {
	var out []ParsedEvent
	doc.Find("#tracking-events-container .tracking-event").Each(func(_ int, row *goquery.Selection) {
		ev := ParsedEvent{
			Text:     text(row.Find(".tracking-event-message").First()),
			Location: text(row.Find(".tracking-event-location").First()),
		}
		date := text(row.Find(".tracking-event-date").First())
		clock := text(row.Find(".tracking-event-time").First())
		ev.When = strings.TrimSpace(date + " " + clock)
		if ev.Text != "" {
			out = append(out, ev)
		}
	})
	return out
}

// Older order-details layout: a flat list with combined date strings.
func shipmentEventList(doc *goquery.Document) []ParsedEvent {
	var out []ParsedEvent
	doc.Find("ul#shipment-events li").Each(func(_ int, li *goquery.Selection) {
		ev := ParsedEvent{
			Text:     text(li.Find(".event-text").First()),
			Location: text(li.Find(".event-location").First()),
			When:     text(li.Find(".event-date").First()),
		}
		if ev.Text != "" {
			out = append(out, ev)
		}
	})
	return out
}

func progressTrackerStatus(doc *goquery.Document) string {
	return text(doc.Find("#primaryStatus .pt-status-main").First())
}

func shipmentStatus(doc *goquery.Document) string {
	return text(doc.Find(".js-shipment-info .shipment-status").First())
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
