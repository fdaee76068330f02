package spiders

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

func TestFormPostSpiderExtractsRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		fmt.Fprint(w, `<html><body><table>
			<tr class="row"><td class="date">05/02/2024</td><td><a class="pdf" href="/pdfs/city-102.pdf">link</a></td></tr>
		</table></body></html>`)
	}))
	defer srv.Close()

	cfg := gazette.SpiderConfig{
		ID:          "aplus_city",
		TerritoryID: "2900108",
		SpiderType:  gazette.SpiderAplus,
		Config: gazette.PlatformConfig{
			Kind: gazette.KindFormPost,
			FormPost: &gazette.FormPostConfig{
				BaseURL:      srv.URL,
				EndpointPath: "/search",
				RowSelector:  "tr.row",
				DateSelector: "td.date",
				LinkSelector: "a.pdf",
			},
		},
	}
	dateRange := gazette.DateRange{Start: "2024-02-01", End: "2024-02-29"}

	spider, err := NewFormPostSpider(cfg, dateRange)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	gazettes, err := spider.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(gazettes) != 1 {
		t.Fatalf("expected 1 gazette, got %d: %+v", len(gazettes), gazettes)
	}
	if gazettes[0].EditionNumber != "city-102" {
		t.Errorf("expected edition id city-102, got %q", gazettes[0].EditionNumber)
	}
	if !gazettes[0].IsExtraEdition {
		t.Errorf("expected trailing -N edition id to mark extra edition")
	}
}
