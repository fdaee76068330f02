// Package registry is the process-initialized, read-only spider lookup
// (§4.B): id -> SpiderConfig, by-type, fallbacks-by-territory, and the
// createSpider factory. It is grounded on the teacher's
// internal/ingest/registry.go (embed + env-expand config loading) ported
// from YAML to JSON — spec.md §6 requires city configurations be loaded
// from JSON documents — and on internal/ingest/strategies.go's
// map-based StrategyFactory/GlobalStrategyFactory pattern, which is the
// direct ancestor of Factories/createSpider below.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

// Registry is immutable after Load returns; all reads are safe without
// locking (§9 Singleton registry design note — tests should construct
// their own Registry value rather than rely on a process global).
type Registry struct {
	byID      map[string]gazette.SpiderConfig
	byType    map[gazette.SpiderType][]gazette.SpiderConfig
	fallbacks map[string][]gazette.SpiderConfig // territoryId -> all configs beyond the first-wins primary
	order     []string                          // ids in load order, for deterministic All()
	factories map[gazette.SpiderType]gazette.Factory
}

// document is the on-disk shape of one registry JSON file: a flat array
// of entries matching §3's Spider configuration fields exactly.
type document []gazette.SpiderConfig

// Load reads one or more JSON documents (each a flat array of spider
// configuration entries) and builds an immutable Registry. Entries are
// processed in argument order, then array order within each file;
// duplicate ids resolve "first wins" with the remainder recorded as
// fallback configurations for the same territoryId (§4.B, and the Open
// Question decision in SPEC_FULL.md: fallback order = registry load
// order).
func Load(factories map[gazette.SpiderType]gazette.Factory, paths ...string) (*Registry, error) {
	r := &Registry{
		byID:      make(map[string]gazette.SpiderConfig),
		byType:    make(map[gazette.SpiderType][]gazette.SpiderConfig),
		fallbacks: make(map[string][]gazette.SpiderConfig),
		factories: factories,
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("registry: read %s: %w", path, err)
		}
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("registry: parse %s: %w", path, err)
		}
		for _, cfg := range doc {
			if err := validateConfig(cfg); err != nil {
				return nil, fmt.Errorf("registry: %s: %w", path, err)
			}
			if _, exists := r.byID[cfg.ID]; exists {
				r.fallbacks[cfg.TerritoryID] = append(r.fallbacks[cfg.TerritoryID], cfg)
				continue
			}
			r.byID[cfg.ID] = cfg
			r.order = append(r.order, cfg.ID)
			r.byType[cfg.SpiderType] = append(r.byType[cfg.SpiderType], cfg)
		}
	}

	return r, nil
}

func validateConfig(cfg gazette.SpiderConfig) error {
	if cfg.ID == "" {
		return gazette.NewError("registry.load", gazette.ErrInputInvalid, fmt.Errorf("entry missing id"))
	}
	if len(cfg.TerritoryID) != 7 {
		return gazette.NewError("registry.load", gazette.ErrInputInvalid,
			fmt.Errorf("entry %s: territoryId must be 7 digits, got %q", cfg.ID, cfg.TerritoryID))
	}
	return nil
}

// ByID looks up a single entry.
func (r *Registry) ByID(id string) (gazette.SpiderConfig, bool) {
	cfg, ok := r.byID[id]
	return cfg, ok
}

// ByType returns all entries whose SpiderType matches tag, in load order.
func (r *Registry) ByType(tag gazette.SpiderType) []gazette.SpiderConfig {
	out := make([]gazette.SpiderConfig, len(r.byType[tag]))
	copy(out, r.byType[tag])
	return out
}

// All returns every primary entry, in load order.
func (r *Registry) All() []gazette.SpiderConfig {
	out := make([]gazette.SpiderConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Fallbacks returns the alternate configurations recorded for
// territoryId beyond its first-wins primary, in load order.
func (r *Registry) Fallbacks(territoryID string) []gazette.SpiderConfig {
	out := make([]gazette.SpiderConfig, len(r.fallbacks[territoryID]))
	copy(out, r.fallbacks[territoryID])
	return out
}

// CreateSpider builds a Spider for cfg and dateRange via the factory
// registered for cfg.SpiderType. It returns a typed UnknownSpider error
// (never a panic) for an unimplemented spiderType.
func (r *Registry) CreateSpider(cfg gazette.SpiderConfig, dateRange gazette.DateRange) (gazette.Spider, error) {
	factory, ok := r.factories[cfg.SpiderType]
	if !ok {
		return nil, gazette.NewError("registry.createSpider", gazette.ErrUnknownSpider,
			fmt.Errorf("no factory registered for spiderType %q", cfg.SpiderType))
	}
	return factory(cfg, dateRange)
}

// Stats is the aggregate the dispatcher's `stats` operation (§4.C)
// returns.
type Stats struct {
	Total        int
	ByPlatform   map[gazette.SpiderType]int
}

// Stat computes the registry's aggregate counts.
func (r *Registry) Stat() Stats {
	s := Stats{ByPlatform: make(map[gazette.SpiderType]int)}
	for tag, entries := range r.byType {
		s.ByPlatform[tag] = len(entries)
		s.Total += len(entries)
	}
	return s
}

// SortedTypes returns the registered spiderType tags in lexicographic
// order, useful for deterministic listing/reporting.
func (r *Registry) SortedTypes() []gazette.SpiderType {
	types := make([]gazette.SpiderType, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
