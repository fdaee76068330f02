package spiders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/httpfetch"
)

// headerPolicy strips every tag from an index/detail entry's raw HTML,
// leaving a plain page-header candidate safe to forward downstream.
var headerPolicy = bluemonday.StrictPolicy()

const defaultMaxPages = 50

// PaginatedHTMLSpider implements the paged-index, detail-follow family
// (doem, diof, instar, diario_oficial_br, modernizacao, atende-v2,
// municipio-online): it walks a paginated index page by page, and when
// the index shows titles only, follows each entry to resolve the PDF
// URL (§4.A "detail-follow"). Grounded on source_adapter.go's goquery
// attachment-link collection.
type PaginatedHTMLSpider struct {
	counter
	cfg       gazette.SpiderConfig
	variant   gazette.PaginatedHTMLConfig
	dateRange gazette.DateRange
	fetcher   *httpfetch.Fetcher
}

func NewPaginatedHTMLSpider(cfg gazette.SpiderConfig, dateRange gazette.DateRange, fetcher *httpfetch.Fetcher) (*PaginatedHTMLSpider, error) {
	if cfg.Config.PaginatedHTML == nil {
		return nil, gazette.NewError("paginatedHtml.new", gazette.ErrInputInvalid,
			fmt.Errorf("spider %s: missing paginatedHtml config", cfg.ID))
	}
	return &PaginatedHTMLSpider{cfg: cfg, variant: *cfg.Config.PaginatedHTML, dateRange: dateRange, fetcher: fetcher}, nil
}

func (s *PaginatedHTMLSpider) Crawl(ctx context.Context) ([]gazette.Gazette, error) {
	const op = "paginatedHtml.crawl"

	maxPages := s.variant.MaxPages
	if maxPages == 0 {
		maxPages = defaultMaxPages
	}

	var out []gazette.Gazette
	pageURL := s.variant.BaseURL + s.variant.IndexPath

	for page := 0; page < maxPages && pageURL != ""; page++ {
		doc, err := s.get(ctx, s.fetcher, pageURL)
		if err != nil {
			return nil, gazette.NewError(op, kindFromFetchErr(err), err)
		}
		htmlDoc, err := goquery.NewDocumentFromReader(strings.NewReader(string(doc.Body)))
		if err != nil {
			return nil, gazette.NewError(op, gazette.ErrParseFailure, fmt.Errorf("parse index page: %w", err))
		}

		entries, err := s.extractEntries(ctx, htmlDoc)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)

		next, hasNext := htmlDoc.Find(s.variant.NextSelector).Attr("href")
		if !hasNext || next == "" {
			break
		}
		pageURL = resolveURL(s.variant.BaseURL, next)

		// Stop walking once every entry on this page is already older
		// than the requested range, a cheap early-exit since most
		// platforms list newest-first.
		if allBefore(entries, s.dateRange.Start) {
			break
		}
	}

	return filterRange(out, s.dateRange), nil
}

func (s *PaginatedHTMLSpider) extractEntries(ctx context.Context, doc *goquery.Document) ([]gazette.Gazette, error) {
	const op = "paginatedHtml.crawl"
	var out []gazette.Gazette

	var extractErr error
	doc.Find(s.variant.EntrySelector).EachWithBreak(func(_ int, entry *goquery.Selection) bool {
		dateText := strings.TrimSpace(entry.Find(s.variant.DateSelector).Text())
		date, ok := parseFlexibleDate(dateText)
		if !ok {
			return true
		}

		fileURL := ""
		if s.variant.DetailFollow {
			detailHref, exists := entry.Attr("href")
			if !exists {
				detailHref, exists = entry.Find("a").Attr("href")
			}
			if !exists || detailHref == "" {
				return true
			}
			detailURL := resolveURL(s.variant.BaseURL, detailHref)
			detailDoc, err := s.get(ctx, s.fetcher, detailURL)
			if err != nil {
				extractErr = gazette.NewError(op, kindFromFetchErr(err), err)
				return false
			}
			parsed, err := goquery.NewDocumentFromReader(strings.NewReader(string(detailDoc.Body)))
			if err != nil {
				extractErr = gazette.NewError(op, gazette.ErrParseFailure, err)
				return false
			}
			href, exists := parsed.Find(s.variant.PDFLinkSelector).Attr("href")
			if !exists {
				return true
			}
			fileURL = resolveURL(s.variant.BaseURL, href)
		} else {
			href, exists := entry.Attr("href")
			if !exists {
				href, exists = entry.Find("a").Attr("href")
			}
			if !exists {
				return true
			}
			fileURL = resolveURL(s.variant.BaseURL, href)
		}

		text := strings.ToLower(entry.Text())
		isExtra := strings.Contains(text, "extra") || strings.Contains(text, "extraordinário") || strings.Contains(text, "extraordinario")

		out = append(out, gazette.Gazette{
			TerritoryID:    s.cfg.TerritoryID,
			Date:           date,
			FileURL:        fileURL,
			IsExtraEdition: isExtra,
			Power:          gazette.PowerExecutive,
			ScrapedAt:      time.Now().UTC(),
			PageHeader:     sanitizedHeader(entry),
		})
		return true
	})

	if extractErr != nil {
		return nil, extractErr
	}
	return out, nil
}

// sanitizedHeader strips entry's raw markup down to plain text, bounding
// it to a short snippet since it's a header candidate, not the document.
func sanitizedHeader(entry *goquery.Selection) string {
	raw, err := goquery.OuterHtml(entry)
	if err != nil {
		return ""
	}
	header := strings.TrimSpace(headerPolicy.Sanitize(raw))
	if len(header) > 200 {
		header = header[:200]
	}
	return header
}

func allBefore(entries []gazette.Gazette, cutoff string) bool {
	if len(entries) == 0 {
		return false
	}
	for _, e := range entries {
		if e.Date >= cutoff {
			return false
		}
	}
	return true
}

func resolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base = strings.TrimSuffix(base, "/")
	ref = strings.TrimPrefix(ref, "/")
	return base + "/" + ref
}

// parseFlexibleDate accepts either DD/MM/YYYY or YYYY-MM-DD, matching
// the "heading or URL fragment" date decoding this family uses (§4.A).
func parseFlexibleDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t.Format("2006-01-02"), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), true
	}
	return "", false
}
