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

func TestBrowserRenderSpiderCrawl(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rows":[{"date":"2024-04-01","fileUrl":"https://example.com/r.pdf","isExtraEdition":true}]}`))
	}))
	defer srv.Close()

	cfg := gazette.SpiderConfig{
		ID:          "adiarios_v2_city",
		TerritoryID: "2900108",
		SpiderType:  gazette.SpiderAdiariosV2,
		Config: gazette.PlatformConfig{
			Kind: gazette.KindBrowserRender,
			BrowserRender: &gazette.BrowserRenderConfig{
				RenderServiceURL: srv.URL,
				PageURL:          "https://city.gov.br/diario",
				TableSelector:    "table.diario",
			},
		},
	}
	dateRange := gazette.DateRange{Start: "2024-04-01", End: "2024-04-30"}

	fetcher := httpfetch.New(ratelimit.New(nil))
	spider, err := NewBrowserRenderSpider(cfg, dateRange, fetcher)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	gazettes, err := spider.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(gazettes) != 1 || !gazettes[0].IsExtraEdition {
		t.Fatalf("unexpected result: %+v", gazettes)
	}
}

func TestBrowserRenderSpiderUnavailable(t *testing.T) {
	cfg := gazette.SpiderConfig{
		ID:          "adiarios_v2_city",
		TerritoryID: "2900108",
		SpiderType:  gazette.SpiderAdiariosV2,
		Config: gazette.PlatformConfig{
			Kind: gazette.KindBrowserRender,
			BrowserRender: &gazette.BrowserRenderConfig{
				RenderServiceURL: "http://127.0.0.1:1", // nothing listening
				PageURL:          "https://city.gov.br/diario",
			},
		},
	}
	fetcher := httpfetch.New(ratelimit.New(nil), httpfetch.WithMaxRetries(0))
	spider, err := NewBrowserRenderSpider(cfg, gazette.DateRange{Start: "2024-01-01", End: "2024-01-02"}, fetcher)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	_, err = spider.Crawl(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if kind, ok := gazette.KindOf(err); !ok || kind != gazette.ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v ok=%v", kind, ok)
	}
}
