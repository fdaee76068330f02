package spiders

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/httpfetch"
)

// CalendarJSONSpider implements the month-walk JSON/calendar family
// (barco_digital, sigpub, dom_sc, siganet, dioenet): it fetches one
// calendar/index JSON document per month in the requested range and
// filters the returned items to the precise day range (§4.A).
type CalendarJSONSpider struct {
	counter
	cfg       gazette.SpiderConfig
	variant   gazette.CalendarJSONConfig
	dateRange gazette.DateRange
	fetcher   *httpfetch.Fetcher
}

// calendarItem is the per-publication shape returned by the remote
// calendar endpoint.
type calendarItem struct {
	Date          string `json:"data"`
	FileURL       string `json:"arquivo"`
	EditionNumber string `json:"edicao"`
	Power         string `json:"poder"`
	TipoEdicaoID  int    `json:"tipo_edicao_id"`
}

// NewCalendarJSONSpider does no I/O (adapter invariant 4, §4.A).
func NewCalendarJSONSpider(cfg gazette.SpiderConfig, dateRange gazette.DateRange, fetcher *httpfetch.Fetcher) (*CalendarJSONSpider, error) {
	if cfg.Config.CalendarJSON == nil {
		return nil, gazette.NewError("calendarJson.new", gazette.ErrInputInvalid,
			fmt.Errorf("spider %s: missing calendarJson config", cfg.ID))
	}
	return &CalendarJSONSpider{
		cfg:       cfg,
		variant:   *cfg.Config.CalendarJSON,
		dateRange: dateRange,
		fetcher:   fetcher,
	}, nil
}

func (s *CalendarJSONSpider) Crawl(ctx context.Context) ([]gazette.Gazette, error) {
	const op = "calendarJson.crawl"

	start, err := effectiveStart(s.cfg.StartDate, mustParseDate(s.dateRange.Start))
	if err != nil {
		return nil, gazette.NewError(op, gazette.ErrInputInvalid, err)
	}
	end := mustParseDate(s.dateRange.End)
	if start.After(end) {
		return []gazette.Gazette{}, nil
	}

	var out []gazette.Gazette
	for _, ym := range monthWalk(start, end) {
		url := s.buildURL(ym.Year, ym.Month)
		doc, err := s.get(ctx, s.fetcher, url)
		if err != nil {
			return nil, gazette.NewError(op, kindFromFetchErr(err), err)
		}

		var items []calendarItem
		if err := json.Unmarshal(doc.Body, &items); err != nil {
			return nil, gazette.NewError(op, gazette.ErrParseFailure, fmt.Errorf("decode calendar payload: %w", err))
		}

		for _, item := range items {
			g, err := s.toGazette(item)
			if err != nil {
				continue // malformed individual item; skip rather than fail the whole month
			}
			out = append(out, g)
		}
	}

	return filterRange(out, s.dateRange), nil
}

func (s *CalendarJSONSpider) buildURL(year, month int) string {
	path := s.variant.CalendarPath
	path = strings.ReplaceAll(path, "{year}", strconv.Itoa(year))
	path = strings.ReplaceAll(path, "{month}", fmt.Sprintf("%02d", month))
	u := s.variant.BaseURL + path
	if s.variant.TenantParam != "" {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u = fmt.Sprintf("%s%s%s=%s", u, sep, s.variant.TenantParam, s.variant.TenantValue)
	}
	return u
}

func (s *CalendarJSONSpider) toGazette(item calendarItem) (gazette.Gazette, error) {
	if item.Date == "" || item.FileURL == "" {
		return gazette.Gazette{}, fmt.Errorf("item missing date or fileUrl")
	}
	isExtra := false
	if s.variant.ExtraEditionFlag != "" {
		isExtra = item.TipoEdicaoID != 1
	}
	power := gazette.Power(item.Power)
	if !power.Valid() {
		power = gazette.PowerExecutive
	}
	return gazette.Gazette{
		TerritoryID:    s.cfg.TerritoryID,
		Date:           item.Date,
		FileURL:        item.FileURL,
		EditionNumber:  item.EditionNumber,
		IsExtraEdition: isExtra,
		Power:          power,
		ScrapedAt:      time.Now().UTC(),
	}, nil
}

func mustParseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// kindFromFetchErr preserves a *gazette.Error's kind if fetcher.Get
// already produced one, otherwise classifies it as NetworkFailure.
func kindFromFetchErr(err error) gazette.ErrKind {
	if kind, ok := gazette.KindOf(err); ok {
		return kind
	}
	return gazette.ErrNetworkFailure
}
