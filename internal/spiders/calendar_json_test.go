package spiders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/httpfetch"
	"github.com/diariomunicipal/gazette-pipeline/internal/ratelimit"
)

func TestCalendarJSONSpiderFiltersOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"data":"2024-01-10","arquivo":"https://example.com/a.pdf","tipo_edicao_id":1},
			{"data":"2024-02-15","arquivo":"https://example.com/b.pdf","tipo_edicao_id":2}
		]`))
	}))
	defer srv.Close()

	cfg := gazette.SpiderConfig{
		ID:          "test_city",
		TerritoryID: "2900108",
		SpiderType:  gazette.SpiderBarcoDigital,
		StartDate:   "2020-01-01",
		Config: gazette.PlatformConfig{
			Kind: gazette.KindCalendarJSON,
			CalendarJSON: &gazette.CalendarJSONConfig{
				BaseURL:          srv.URL,
				CalendarPath:     "/api/calendario/{year}/{month}",
				ExtraEditionFlag: "tipo_edicao_id",
			},
		},
	}
	dateRange := gazette.DateRange{Start: "2024-01-01", End: "2024-01-31"}

	fetcher := httpfetch.New(ratelimit.New(nil))
	spider, err := NewCalendarJSONSpider(cfg, dateRange, fetcher)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	gazettes, err := spider.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(gazettes) != 1 {
		t.Fatalf("expected 1 gazette within range, got %d: %+v", len(gazettes), gazettes)
	}
	if gazettes[0].Date != "2024-01-10" {
		t.Errorf("unexpected date: %s", gazettes[0].Date)
	}
	if gazettes[0].IsExtraEdition {
		t.Errorf("expected tipo_edicao_id=1 to NOT be an extra edition")
	}
	if spider.RequestCount() < 1 {
		t.Errorf("expected requestCount >= 1, got %d", spider.RequestCount())
	}
}

func TestCalendarJSONSpiderConstructorDoesNoIO(t *testing.T) {
	cfg := gazette.SpiderConfig{
		ID:          "test_city",
		TerritoryID: "2900108",
		SpiderType:  gazette.SpiderSigpub,
		StartDate:   "2020-01-01",
		Config: gazette.PlatformConfig{
			Kind:         gazette.KindCalendarJSON,
			CalendarJSON: &gazette.CalendarJSONConfig{BaseURL: "http://127.0.0.1:1", CalendarPath: "/x"},
		},
	}
	fetcher := httpfetch.New(ratelimit.New(nil))
	spider, err := NewCalendarJSONSpider(cfg, gazette.DateRange{Start: "2024-01-01", End: "2024-01-02"}, fetcher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spider.RequestCount() != 0 {
		t.Fatalf("expected no requests before Crawl, got %d", spider.RequestCount())
	}
}
