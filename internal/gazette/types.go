// Package gazette holds the canonical data model shared by every stage of
// the pipeline: the adapter set, the dispatcher, the crawl executor, and
// the analyzer all exchange values defined here.
package gazette

import (
	"encoding/json"
	"time"
)

// Power is the branch of government that published a Gazette.
type Power string

const (
	PowerExecutive            Power = "executive"
	PowerLegislative          Power = "legislative"
	PowerExecutiveLegislative Power = "executive_legislative"
)

// Valid reports whether p is one of the three recognized values.
func (p Power) Valid() bool {
	switch p {
	case PowerExecutive, PowerLegislative, PowerExecutiveLegislative:
		return true
	default:
		return false
	}
}

// Gazette is the canonical unit produced by any Spider implementation.
type Gazette struct {
	TerritoryID    string    `json:"territoryId"`
	Date           string    `json:"date"` // YYYY-MM-DD
	FileURL        string    `json:"fileUrl"`
	EditionNumber  string    `json:"editionNumber,omitempty"`
	IsExtraEdition bool      `json:"isExtraEdition"`
	Power          Power     `json:"power"`
	ScrapedAt      time.Time `json:"scrapedAt"`
	// PageHeader is a sanitized text snippet lifted from the index/detail
	// entry the paginated-HTML and form-post families scraped this
	// gazette from (the entry heading or row text, tag-stripped). It is
	// a page-header candidate an analyzer can consult before the OCR
	// pass resolves the document's own text.
	PageHeader string `json:"pageHeader,omitempty"`
}

// DateRange is an inclusive-inclusive calendar window.
type DateRange struct {
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`   // YYYY-MM-DD
}

const dateLayout = "2006-01-02"

// Parse returns the range bounds as time.Time (UTC midnight), for
// arithmetic that needs actual dates rather than string comparison.
func (d DateRange) Parse() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, d.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = time.Parse(dateLayout, d.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Valid reports start <= end using lexicographic comparison, which is
// correct for YYYY-MM-DD strings.
func (d DateRange) Valid() bool {
	return d.Start != "" && d.End != "" && d.Start <= d.End
}

// Contains reports whether date (YYYY-MM-DD) lies within [Start, End].
func (d DateRange) Contains(date string) bool {
	return date >= d.Start && date <= d.End
}

// CrawlStats summarizes one Spider invocation.
type CrawlStats struct {
	TotalFound       int       `json:"totalFound"`
	DateRange        DateRange `json:"dateRange"`
	RequestCount     int       `json:"requestCount"`
	ExecutionTimeMs  int64     `json:"executionTimeMs"`
}

// CrawlResult is the outcome the crawl executor records for one message.
type CrawlResult struct {
	SpiderID    string     `json:"spiderId"`
	TerritoryID string     `json:"territoryId"`
	Gazettes    []Gazette  `json:"gazettes"`
	Stats       CrawlStats `json:"stats"`
	Error       string     `json:"error,omitempty"`
}

// CrawlMessage is the self-describing payload placed on the crawl queue.
// An executor must be able to process it without consulting out-of-band
// state (e.g. re-querying the registry by id).
type CrawlMessage struct {
	SpiderID    string          `json:"spiderId"`
	TerritoryID string          `json:"territoryId"`
	SpiderType  SpiderType      `json:"spiderType"`
	Config      json.RawMessage `json:"config"`
	DateRange   DateRange       `json:"dateRange"`
}

// OCRMessage is the payload placed on the OCR queue for each gazette
// record a crawl produces.
type OCRMessage struct {
	Gazette  Gazette `json:"gazette"`
	SpiderID string  `json:"spiderId"`
}

// WebhookMessage is the payload placed on the webhook delivery queue.
type WebhookMessage struct {
	MessageID      string `json:"messageId"`
	SubscriptionID string `json:"subscriptionId"`
	Notification   any    `json:"notification"`
	Attempts       int    `json:"attempts,omitempty"`
}
