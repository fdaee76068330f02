package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diariomunicipal/gazette-pipeline/internal/dispatch"
	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/queue"
	"github.com/diariomunicipal/gazette-pipeline/internal/registry"
)

func buildTestServer(t *testing.T) *Server {
	t.Helper()
	entries := []gazette.SpiderConfig{{
		ID: "city_a", TerritoryID: "2900108", SpiderType: gazette.SpiderDoem, StartDate: "2020-01-01",
		Config: gazette.PlatformConfig{Kind: gazette.KindPaginatedHTML, PaginatedHTML: &gazette.PaginatedHTMLConfig{
			BaseURL: "https://example.com", IndexPath: "/i", EntrySelector: "a", DateSelector: "b", NextSelector: "c",
		}},
	}}
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cities.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	factory := func(cfg gazette.SpiderConfig, dr gazette.DateRange) (gazette.Spider, error) { return nil, nil }
	reg, err := registry.Load(map[gazette.SpiderType]gazette.Factory{gazette.SpiderDoem: factory}, path)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	crawlQueue := queue.NewInMemory(nil)
	ocrQueue := queue.NewInMemory(nil)
	d := dispatch.New(reg, crawlQueue)
	return NewServer(d, crawlQueue, ocrQueue)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleRootReportsSpiderCount(t *testing.T) {
	s := buildTestServer(t)
	rec := doRequest(s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["spidersRegistered"].(float64) != 1 {
		t.Errorf("spidersRegistered = %v, want 1", body["spidersRegistered"])
	}
}

func TestHandleCrawlEnqueuesAllCities(t *testing.T) {
	s := buildTestServer(t)
	rec := doRequest(s, http.MethodPost, "/crawl", `{"cities":["city_a"],"startDate":"2024-01-01","endDate":"2024-01-31"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["tasksEnqueued"].(float64) != 1 {
		t.Errorf("tasksEnqueued = %v, want 1", body["tasksEnqueued"])
	}
}

func TestHandleCrawlUnknownCityReturnsBadRequest(t *testing.T) {
	s := buildTestServer(t)
	rec := doRequest(s, http.MethodPost, "/crawl", `{"cities":["does_not_exist"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSpidersFiltersByType(t *testing.T) {
	s := buildTestServer(t)
	rec := doRequest(s, http.MethodGet, "/spiders?type=doem", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["total"].(float64) != 1 {
		t.Errorf("total = %v, want 1", body["total"])
	}
}

func TestHandleHealthQueueReportsDepth(t *testing.T) {
	s := buildTestServer(t)
	s.crawlQueue.SendBatch(context.Background(), nil)
	rec := doRequest(s, http.MethodGet, "/health/queue", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["crawlQueueDepth"] != float64(0) {
		t.Errorf("crawlQueueDepth = %v, want 0", body["crawlQueueDepth"])
	}
}
