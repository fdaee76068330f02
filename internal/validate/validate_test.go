package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/registry"
)

type stubSpider struct {
	gazettes []gazette.Gazette
	err      error
	requests int
}

func (s *stubSpider) Crawl(ctx context.Context) ([]gazette.Gazette, error) { return s.gazettes, s.err }
func (s *stubSpider) RequestCount() int                                    { return s.requests }

func writeCities(t *testing.T, n int) string {
	t.Helper()
	entries := make([]gazette.SpiderConfig, n)
	for i := 0; i < n; i++ {
		entries[i] = gazette.SpiderConfig{
			ID: fmt.Sprintf("city_%03d", i), TerritoryID: fmt.Sprintf("29%05d", i),
			SpiderType: gazette.SpiderDoem, StartDate: "2020-01-01",
			Config: gazette.PlatformConfig{Kind: gazette.KindPaginatedHTML, PaginatedHTML: &gazette.PaginatedHTMLConfig{
				BaseURL: "https://example.com", IndexPath: "/i", EntrySelector: "a", DateSelector: "b", NextSelector: "c",
			}},
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cities.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func buildHarness(t *testing.T, n int, factory gazette.Factory) *Harness {
	t.Helper()
	path := writeCities(t, n)
	reg, err := registry.Load(map[gazette.SpiderType]gazette.Factory{gazette.SpiderDoem: factory}, path)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return New(reg)
}

func TestRunFullModeClassifiesPassAndFail(t *testing.T) {
	calls := 0
	h := buildHarness(t, 4, func(cfg gazette.SpiderConfig, dr gazette.DateRange) (gazette.Spider, error) {
		calls++
		if calls%2 == 0 {
			return &stubSpider{err: fmt.Errorf("boom")}, nil
		}
		return &stubSpider{requests: 1, gazettes: []gazette.Gazette{
			{TerritoryID: cfg.TerritoryID, Date: "2024-01-01", FileURL: "https://x/a.pdf", Power: gazette.PowerExecutive, ScrapedAt: time.Now()},
		}}, nil
	})

	report, err := h.Run(context.Background(), Options{Mode: ModeFull, InterBatchDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Total != 4 {
		t.Fatalf("total = %d, want 4", report.Total)
	}
	if report.Failed != 2 || report.Passed != 2 {
		t.Errorf("got passed=%d failed=%d, want 2/2", report.Passed, report.Failed)
	}
}

func TestRunSingleModeUnknownCityErrors(t *testing.T) {
	h := buildHarness(t, 1, func(cfg gazette.SpiderConfig, dr gazette.DateRange) (gazette.Spider, error) {
		return &stubSpider{}, nil
	})
	_, err := h.Run(context.Background(), Options{Mode: ModeSingle, CityIDs: []string{"does_not_exist"}})
	if err == nil {
		t.Fatalf("expected error for unknown city id")
	}
}

func TestValidateStructuralFlagsMissingFields(t *testing.T) {
	issues := validateStructural(gazette.Gazette{})
	if len(issues) == 0 {
		t.Fatalf("expected structural issues for an empty gazette")
	}
}

func TestValidatePerformanceFlagsSlowExecution(t *testing.T) {
	issues := validatePerformance(90*time.Second, 1, 1)
	if len(issues) == 0 {
		t.Fatalf("expected a warning for 90s execution time")
	}
}

func TestValidatePerformanceFlagsPoorEfficiency(t *testing.T) {
	issues := validatePerformance(time.Second, 12, 1)
	found := false
	for _, issue := range issues {
		if len(issue) >= 4 && issue[:4] == "fail" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a fail-level efficiency issue, got %v", issues)
	}
}

func TestReportRendersAllFiveFormats(t *testing.T) {
	report := Report{Mode: ModeFull, Total: 1, Passed: 1, ByPlatform: map[gazette.SpiderType]PlatformRollup{}, Results: []CityResult{
		{ID: "city_000", SpiderType: gazette.SpiderDoem, Status: StatusPass, GazetteCount: 1, RequestCount: 1},
	}}
	for _, format := range []Format{FormatJSON, FormatMarkdown, FormatHTML, FormatCSV, FormatConsole} {
		out, err := report.Render(format)
		if err != nil {
			t.Fatalf("render %s: %v", format, err)
		}
		if out == "" {
			t.Errorf("render %s produced empty output", format)
		}
	}
}
