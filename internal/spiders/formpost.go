package spiders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// FormPostSpider implements the single-request-index family (aplus,
// diario-ba, administracao_publica, ptio): a single POST carrying the
// requested date range and tenant/slug, whose rendered listing is parsed
// with goquery. Grounded on the teacher's fetcher_colly.go collector
// construction (synchronous colly.Collector, Async=false, so the single
// request stays a cooperative suspension point per §5) and
// source_adapter.go's goquery row-scanning idiom.
type FormPostSpider struct {
	counter
	cfg       gazette.SpiderConfig
	variant   gazette.FormPostConfig
	dateRange gazette.DateRange
}

func NewFormPostSpider(cfg gazette.SpiderConfig, dateRange gazette.DateRange) (*FormPostSpider, error) {
	if cfg.Config.FormPost == nil {
		return nil, gazette.NewError("formPost.new", gazette.ErrInputInvalid,
			fmt.Errorf("spider %s: missing formPost config", cfg.ID))
	}
	return &FormPostSpider{cfg: cfg, variant: *cfg.Config.FormPost, dateRange: dateRange}, nil
}

func (s *FormPostSpider) Crawl(ctx context.Context) ([]gazette.Gazette, error) {
	const op = "formPost.crawl"

	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(30 * time.Second)

	var gazettes []gazette.Gazette
	var parseErr error

	c.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(r.Body)))
		if err != nil {
			parseErr = fmt.Errorf("parse listing: %w", err)
			return
		}
		gazettes = s.extractRows(doc)
	})

	c.OnError(func(r *colly.Response, err error) {
		parseErr = err
	})

	fields := make(map[string]string, len(s.variant.FormFields)+2)
	for k, v := range s.variant.FormFields {
		fields[k] = v
	}
	fields["startDate"] = s.dateRange.Start
	fields["endDate"] = s.dateRange.End

	s.inc()
	endpoint := s.variant.BaseURL + s.variant.EndpointPath
	if err := c.Post(endpoint, fields); err != nil {
		return nil, gazette.NewError(op, gazette.ErrNetworkFailure, err)
	}
	c.Wait()

	if parseErr != nil {
		if kind, ok := gazette.KindOf(parseErr); ok {
			return nil, gazette.NewError(op, kind, parseErr)
		}
		return nil, gazette.NewError(op, gazette.ErrParseFailure, parseErr)
	}

	return filterRange(gazettes, s.dateRange), nil
}

func (s *FormPostSpider) extractRows(doc *goquery.Document) []gazette.Gazette {
	var out []gazette.Gazette
	doc.Find(s.variant.RowSelector).Each(func(_ int, row *goquery.Selection) {
		dateText := strings.TrimSpace(row.Find(s.variant.DateSelector).Text())
		date, ok := parseBRDate(dateText)
		if !ok {
			return
		}
		link, exists := row.Find(s.variant.LinkSelector).Attr("href")
		if !exists || link == "" {
			return
		}
		editionID := extractEditionID(link)
		out = append(out, gazette.Gazette{
			TerritoryID:    s.cfg.TerritoryID,
			Date:           date,
			FileURL:        link,
			EditionNumber:  editionID,
			IsExtraEdition: strings.Contains(editionID, "-"),
			Power:          gazette.PowerExecutive,
			ScrapedAt:      time.Now().UTC(),
			PageHeader:     sanitizedHeader(row),
		})
	})
	return out
}

// parseBRDate converts a DD/MM/YYYY row-cell date to YYYY-MM-DD.
func parseBRDate(s string) (string, bool) {
	t, err := time.Parse("02/01/2006", strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// extractEditionID returns the PDF link's file name without its ".pdf"
// extension as the edition id; the form-post family encodes a trailing -N
// suffix there, which §4.A's "trailing -N in edition id" extra-edition
// rule checks.
func extractEditionID(link string) string {
	idx := strings.LastIndex(link, "/")
	name := link
	if idx >= 0 {
		name = link[idx+1:]
	}
	return strings.TrimSuffix(name, ".pdf")
}
