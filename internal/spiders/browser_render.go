package spiders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/httpfetch"
)

// BrowserRenderSpider is the single adapter (adiarios_v2) that delegates
// to an out-of-process headless-rendering service, per §4.A
// "Headless-render" and §9's remote-browser-adapter design note: when the
// rendering service is unavailable it returns a typed Unavailable error
// so the validation harness marks the city skipped, not failed.
type BrowserRenderSpider struct {
	counter
	cfg       gazette.SpiderConfig
	variant   gazette.BrowserRenderConfig
	dateRange gazette.DateRange
	fetcher   *httpfetch.Fetcher
}

type renderedRow struct {
	Date    string `json:"date"`
	FileURL string `json:"fileUrl"`
	Extra   bool   `json:"isExtraEdition"`
}

type renderServiceResponse struct {
	Rows []renderedRow `json:"rows"`
}

func NewBrowserRenderSpider(cfg gazette.SpiderConfig, dateRange gazette.DateRange, fetcher *httpfetch.Fetcher) (*BrowserRenderSpider, error) {
	if cfg.Config.BrowserRender == nil {
		return nil, gazette.NewError("browserRender.new", gazette.ErrInputInvalid,
			fmt.Errorf("spider %s: missing browserRender config", cfg.ID))
	}
	return &BrowserRenderSpider{cfg: cfg, variant: *cfg.Config.BrowserRender, dateRange: dateRange, fetcher: fetcher}, nil
}

func (s *BrowserRenderSpider) Crawl(ctx context.Context) ([]gazette.Gazette, error) {
	const op = "browserRender.crawl"

	renderURL := fmt.Sprintf("%s/render?url=%s&selector=%s&startDate=%s&endDate=%s",
		s.variant.RenderServiceURL, s.variant.PageURL, s.variant.TableSelector,
		s.dateRange.Start, s.dateRange.End)

	doc, err := s.get(ctx, s.fetcher, renderURL)
	if err != nil {
		kind := kindFromFetchErr(err)
		if kind == gazette.ErrNetworkFailure {
			return nil, gazette.NewError(op, gazette.ErrUnavailable, fmt.Errorf("render service unreachable: %w", err))
		}
		return nil, gazette.NewError(op, kind, err)
	}

	var resp renderServiceResponse
	if err := json.Unmarshal(doc.Body, &resp); err != nil {
		return nil, gazette.NewError(op, gazette.ErrParseFailure, fmt.Errorf("decode render response: %w", err))
	}

	var out []gazette.Gazette
	for _, row := range resp.Rows {
		if row.Date == "" || row.FileURL == "" {
			continue
		}
		out = append(out, gazette.Gazette{
			TerritoryID:    s.cfg.TerritoryID,
			Date:           row.Date,
			FileURL:        row.FileURL,
			IsExtraEdition: row.Extra,
			Power:          gazette.PowerExecutive,
			ScrapedAt:      time.Now().UTC(),
		})
	}

	return filterRange(out, s.dateRange), nil
}
