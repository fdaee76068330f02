package crawlexec

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/queue"
	"github.com/diariomunicipal/gazette-pipeline/internal/registry"
)

// stubSpider lets tests control the crawl outcome precisely.
type stubSpider struct {
	gazettes []gazette.Gazette
	err      error
	calls    int
}

func (s *stubSpider) Crawl(ctx context.Context) ([]gazette.Gazette, error) {
	s.calls++
	return s.gazettes, s.err
}
func (s *stubSpider) RequestCount() int { return s.calls }

func buildRegistry(t *testing.T, factory gazette.Factory) *registry.Registry {
	t.Helper()
	entries := []gazette.SpiderConfig{{
		ID: "stub_city", TerritoryID: "2900108", SpiderType: gazette.SpiderDoem, StartDate: "2020-01-01",
		Config: gazette.PlatformConfig{
			Kind: gazette.KindPaginatedHTML,
			PaginatedHTML: &gazette.PaginatedHTMLConfig{
				BaseURL: "https://example.com", IndexPath: "/i", EntrySelector: "a", DateSelector: "b", NextSelector: "c",
			},
		},
	}}
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cities.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg, err := registry.Load(map[gazette.SpiderType]gazette.Factory{gazette.SpiderDoem: factory}, path)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return reg
}

func testMessage(t *testing.T, dateRange gazette.DateRange) gazette.CrawlMessage {
	t.Helper()
	cfgJSON, err := json.Marshal(gazette.PlatformConfig{
		Kind: gazette.KindPaginatedHTML,
		PaginatedHTML: &gazette.PaginatedHTMLConfig{
			BaseURL: "https://example.com", IndexPath: "/i", EntrySelector: "a", DateSelector: "b", NextSelector: "c",
		},
	})
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return gazette.CrawlMessage{
		SpiderID: "stub_city", TerritoryID: "2900108", SpiderType: gazette.SpiderDoem,
		Config: cfgJSON, DateRange: dateRange,
	}
}

func TestProcessMessageSucceedsAndForwardsToOCR(t *testing.T) {
	stub := &stubSpider{gazettes: []gazette.Gazette{
		{TerritoryID: "2900108", Date: "2024-01-05", FileURL: "https://x/a.pdf", Power: gazette.PowerExecutive},
	}}
	reg := buildRegistry(t, func(cfg gazette.SpiderConfig, dr gazette.DateRange) (gazette.Spider, error) { return stub, nil })
	ocr := queue.NewInMemory(nil)
	exec := New(reg, ocr, queue.NewDeadLetterRing(10))

	outcome := exec.ProcessMessage(context.Background(), testMessage(t, gazette.DateRange{Start: "2024-01-01", End: "2024-01-31"}))
	if outcome.State != StateSucceeded {
		t.Fatalf("expected succeeded, got %s (err=%v)", outcome.State, outcome.Err)
	}
	if outcome.Gazettes != 1 {
		t.Errorf("expected 1 gazette forwarded, got %d", outcome.Gazettes)
	}
	if ocr.Len() != 1 {
		t.Errorf("expected 1 OCR message, got %d", ocr.Len())
	}
}

func TestProcessMessageParseFailureIsTerminalNoRetry(t *testing.T) {
	stub := &stubSpider{err: gazette.NewError("stub.crawl", gazette.ErrParseFailure, fmt.Errorf("layout changed"))}
	reg := buildRegistry(t, func(cfg gazette.SpiderConfig, dr gazette.DateRange) (gazette.Spider, error) { return stub, nil })
	ocr := queue.NewInMemory(nil)
	dl := queue.NewDeadLetterRing(10)
	exec := New(reg, ocr, dl)

	outcome := exec.ProcessMessage(context.Background(), testMessage(t, gazette.DateRange{Start: "2024-01-01", End: "2024-01-31"}))
	if outcome.State != StateFailedTerminal {
		t.Fatalf("expected failed-terminal, got %s", outcome.State)
	}
	if outcome.Attempts != 1 {
		t.Errorf("expected exactly 1 attempt for a non-retryable kind, got %d", outcome.Attempts)
	}
	if stub.calls != 1 {
		t.Errorf("expected spider.Crawl called once, got %d", stub.calls)
	}
	if len(dl.SpiderIDs()) != 1 {
		t.Errorf("expected dead-letter entry recorded")
	}
}

func TestProcessMessageRetriesNetworkFailureThenDeadLetters(t *testing.T) {
	stub := &stubSpider{err: gazette.NewError("stub.crawl", gazette.ErrNetworkFailure, fmt.Errorf("conn reset"))}
	reg := buildRegistry(t, func(cfg gazette.SpiderConfig, dr gazette.DateRange) (gazette.Spider, error) { return stub, nil })
	ocr := queue.NewInMemory(nil)
	dl := queue.NewDeadLetterRing(10)
	exec := New(reg, ocr, dl)

	outcome := exec.ProcessMessage(context.Background(), testMessage(t, gazette.DateRange{Start: "2024-01-01", End: "2024-01-31"}))
	if outcome.State != StateFailedTerminal {
		t.Fatalf("expected failed-terminal after exhausting retries, got %s", outcome.State)
	}
	if outcome.Attempts != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, outcome.Attempts)
	}
	if stub.calls != maxAttempts {
		t.Errorf("expected spider.Crawl called %d times, got %d", maxAttempts, stub.calls)
	}
}

func TestProcessMessageRotatesToFallbackOnParseFailure(t *testing.T) {
	primaryBase := "https://primary.example.com"
	fallbackBase := "https://fallback.example.com"
	workingStub := &stubSpider{gazettes: []gazette.Gazette{
		{TerritoryID: "2900108", Date: "2024-01-05", FileURL: "https://x/a.pdf", Power: gazette.PowerExecutive},
	}}
	brokenStub := &stubSpider{err: gazette.NewError("stub.crawl", gazette.ErrParseFailure, fmt.Errorf("layout changed"))}

	factory := func(cfg gazette.SpiderConfig, dr gazette.DateRange) (gazette.Spider, error) {
		if cfg.Config.PaginatedHTML != nil && cfg.Config.PaginatedHTML.BaseURL == fallbackBase {
			return workingStub, nil
		}
		return brokenStub, nil
	}

	entries := []gazette.SpiderConfig{
		{
			ID: "stub_city", TerritoryID: "2900108", SpiderType: gazette.SpiderDoem, StartDate: "2020-01-01",
			Config: gazette.PlatformConfig{Kind: gazette.KindPaginatedHTML, PaginatedHTML: &gazette.PaginatedHTMLConfig{
				BaseURL: primaryBase, IndexPath: "/i", EntrySelector: "a", DateSelector: "b", NextSelector: "c",
			}},
		},
		{
			ID: "stub_city", TerritoryID: "2900108", SpiderType: gazette.SpiderDoem, StartDate: "2020-01-01",
			Config: gazette.PlatformConfig{Kind: gazette.KindPaginatedHTML, PaginatedHTML: &gazette.PaginatedHTMLConfig{
				BaseURL: fallbackBase, IndexPath: "/i", EntrySelector: "a", DateSelector: "b", NextSelector: "c",
			}},
		},
	}
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cities.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg, err := registry.Load(map[gazette.SpiderType]gazette.Factory{gazette.SpiderDoem: factory}, path)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	ocr := queue.NewInMemory(nil)
	dl := queue.NewDeadLetterRing(10)
	exec := New(reg, ocr, dl)

	outcome := exec.ProcessMessage(context.Background(), testMessage(t, gazette.DateRange{Start: "2024-01-01", End: "2024-01-31"}))
	if outcome.State != StateSucceeded {
		t.Fatalf("expected succeeded after fallback rotation, got %s (err=%v)", outcome.State, outcome.Err)
	}
	if outcome.Gazettes != 1 {
		t.Errorf("expected 1 gazette forwarded via fallback, got %d", outcome.Gazettes)
	}
	if len(dl.SpiderIDs()) != 0 {
		t.Errorf("expected no dead-letter entry once a fallback succeeded")
	}
}

func TestProcessMessageOCRForwardingFailureDoesNotFailCrawl(t *testing.T) {
	stub := &stubSpider{gazettes: []gazette.Gazette{
		{TerritoryID: "2900108", Date: "2024-01-05", FileURL: "https://x/a.pdf", Power: gazette.PowerExecutive},
	}}
	reg := buildRegistry(t, func(cfg gazette.SpiderConfig, dr gazette.DateRange) (gazette.Spider, error) { return stub, nil })
	rejectAll := queue.NewInMemory(func(msgs []json.RawMessage) bool { return true })
	exec := New(reg, rejectAll, queue.NewDeadLetterRing(10))

	outcome := exec.ProcessMessage(context.Background(), testMessage(t, gazette.DateRange{Start: "2024-01-01", End: "2024-01-31"}))
	if outcome.State != StateSucceeded {
		t.Fatalf("expected succeeded even though OCR forwarding failed, got %s", outcome.State)
	}
	if outcome.Gazettes != 0 {
		t.Errorf("expected 0 successfully-forwarded gazettes, got %d", outcome.Gazettes)
	}
}
