package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

func writeDoc(t *testing.T, dir, name string, entries []gazette.SpiderConfig) string {
	t.Helper()
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func cityEntry(id, territoryID, baseURL string) gazette.SpiderConfig {
	return gazette.SpiderConfig{
		ID:          id,
		TerritoryID: territoryID,
		SpiderType:  gazette.SpiderDoem,
		StartDate:   "2020-01-01",
		Config: gazette.PlatformConfig{
			Kind: gazette.KindPaginatedHTML,
			PaginatedHTML: &gazette.PaginatedHTMLConfig{
				BaseURL: baseURL, IndexPath: "/i", EntrySelector: "a", DateSelector: "b", NextSelector: "c",
			},
		},
	}
}

func noopFactory(cfg gazette.SpiderConfig, dr gazette.DateRange) (gazette.Spider, error) { return nil, nil }

func TestLoadDuplicateIDBecomesFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "cities.json", []gazette.SpiderConfig{
		cityEntry("city_a", "2900108", "https://primary.example.com"),
		cityEntry("city_a", "2900108", "https://fallback.example.com"),
	})

	reg, err := Load(map[gazette.SpiderType]gazette.Factory{gazette.SpiderDoem: noopFactory}, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(reg.All()) != 1 {
		t.Fatalf("All() len = %d, want 1 (duplicate id should not register twice)", len(reg.All()))
	}
	cfg, ok := reg.ByID("city_a")
	if !ok || cfg.Config.PaginatedHTML.BaseURL != "https://primary.example.com" {
		t.Fatalf("ByID returned %+v, want the first-loaded entry to win", cfg)
	}

	fb := reg.Fallbacks("2900108")
	if len(fb) != 1 || fb[0].Config.PaginatedHTML.BaseURL != "https://fallback.example.com" {
		t.Fatalf("Fallbacks(2900108) = %+v, want one fallback carrying the second entry", fb)
	}
}

func TestLoadRejectsMalformedTerritoryID(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "cities.json", []gazette.SpiderConfig{
		cityEntry("city_a", "29001", "https://example.com"),
	})

	if _, err := Load(map[gazette.SpiderType]gazette.Factory{gazette.SpiderDoem: noopFactory}, path); err == nil {
		t.Fatal("Load should reject a territoryId that isn't 7 digits")
	}
}

func TestLoadMergesMultipleDocumentsInOrder(t *testing.T) {
	dir := t.TempDir()
	pathA := writeDoc(t, dir, "a.json", []gazette.SpiderConfig{cityEntry("city_a", "2900108", "https://a.example.com")})
	pathB := writeDoc(t, dir, "b.json", []gazette.SpiderConfig{cityEntry("city_b", "3500105", "https://b.example.com")})

	reg, err := Load(map[gazette.SpiderType]gazette.Factory{gazette.SpiderDoem: noopFactory}, pathA, pathB)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	all := reg.All()
	if len(all) != 2 || all[0].ID != "city_a" || all[1].ID != "city_b" {
		t.Fatalf("All() = %+v, want [city_a, city_b] in load order", all)
	}
}

func TestByTypeFiltersEntries(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "cities.json", []gazette.SpiderConfig{cityEntry("city_a", "2900108", "https://a.example.com")})

	reg, err := Load(map[gazette.SpiderType]gazette.Factory{gazette.SpiderDoem: noopFactory}, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := reg.ByType(gazette.SpiderDoem); len(got) != 1 {
		t.Errorf("ByType(doem) len = %d, want 1", len(got))
	}
	if got := reg.ByType(gazette.SpiderType("browser_render")); len(got) != 0 {
		t.Errorf("ByType(browser_render) len = %d, want 0", len(got))
	}
}

func TestCreateSpiderUnknownTypeReturnsTypedError(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "cities.json", []gazette.SpiderConfig{cityEntry("city_a", "2900108", "https://a.example.com")})

	reg, err := Load(map[gazette.SpiderType]gazette.Factory{}, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	_, err = reg.CreateSpider(gazette.SpiderConfig{SpiderType: gazette.SpiderDoem}, gazette.DateRange{})
	if err == nil {
		t.Fatal("CreateSpider should fail when no factory is registered for the spiderType")
	}
	if kind, ok := gazette.KindOf(err); !ok || kind != gazette.ErrUnknownSpider {
		t.Errorf("KindOf(err) = %v, %v, want ErrUnknownSpider", kind, ok)
	}
}

func TestStatAndSortedTypes(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "cities.json", []gazette.SpiderConfig{
		cityEntry("city_a", "2900108", "https://a.example.com"),
		cityEntry("city_b", "3500105", "https://b.example.com"),
	})

	reg, err := Load(map[gazette.SpiderType]gazette.Factory{gazette.SpiderDoem: noopFactory}, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	stat := reg.Stat()
	if stat.Total != 2 || stat.ByPlatform[gazette.SpiderDoem] != 2 {
		t.Errorf("Stat() = %+v, want Total=2 ByPlatform[doem]=2", stat)
	}
	if types := reg.SortedTypes(); len(types) != 1 || types[0] != gazette.SpiderDoem {
		t.Errorf("SortedTypes() = %v, want [doem]", types)
	}
}
