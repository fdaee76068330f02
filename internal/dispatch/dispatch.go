// Package dispatch implements the Dispatcher (§4.C): it turns a request
// for a set of cities and a date window into a batched stream of crawl
// queue messages, degrading gracefully when the downstream queue rejects
// a submission. Grounded on the teacher's internal/ingest/pipeline.go
// IngestSource/IngestAll run-tracking bracket — a run record opened
// before work starts and closed (with counts) in a defer — generalized
// here from "ingest run" to "crawl run".
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/queue"
	"github.com/diariomunicipal/gazette-pipeline/internal/registry"
)

const defaultWindowDays = 30

// RunRecorder is the ambient run-bookkeeping hook (internal/store
// implements it); nil-able so the dispatcher works without a bookkeeping
// backend attached.
type RunRecorder interface {
	BeginRun(ctx context.Context, kind string) (runID string, err error)
	EndRun(ctx context.Context, runID string, enqueued, failed int, status queue.Status)
}

// Dispatcher implements the four public operations of §4.C.
type Dispatcher struct {
	reg    *registry.Registry
	q      queue.Queue
	runs   RunRecorder
	nowFn  func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRunRecorder attaches ambient run bookkeeping.
func WithRunRecorder(r RunRecorder) Option { return func(d *Dispatcher) { d.runs = r } }

// withClock overrides time.Now, for deterministic date-range tests.
func withClock(fn func() time.Time) Option { return func(d *Dispatcher) { d.nowFn = fn } }

// New constructs a Dispatcher over reg and q.
func New(reg *registry.Registry, q queue.Queue, opts ...Option) *Dispatcher {
	d := &Dispatcher{reg: reg, q: q, nowFn: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SubmitCrawlRequest is the input to SubmitCrawl.
type SubmitCrawlRequest struct {
	Cities    []string // city ids, or nil/["all"] for every registry entry
	StartDate string   // YYYY-MM-DD, optional
	EndDate   string   // YYYY-MM-DD, optional
}

// SubmitCrawlResult is the §4.C submitCrawl/submitTodayYesterday result.
type SubmitCrawlResult struct {
	Enqueued int
	Failed   int
	CityIDs  []string
	Status   queue.Status
	Error    string
}

func isAll(cities []string) bool {
	return len(cities) == 0 || (len(cities) == 1 && cities[0] == "all")
}

// resolveDateRange applies §4.C's defaulting rule: if both endpoints are
// unset, span = last 30 days ending today (UTC calendar date).
func (d *Dispatcher) resolveDateRange(req SubmitCrawlRequest) (gazette.DateRange, error) {
	if req.StartDate == "" && req.EndDate == "" {
		end := d.nowFn().UTC()
		start := end.AddDate(0, 0, -defaultWindowDays)
		return gazette.DateRange{
			Start: start.Format("2006-01-02"),
			End:   end.Format("2006-01-02"),
		}, nil
	}
	dr := gazette.DateRange{Start: req.StartDate, End: req.EndDate}
	if !dr.Valid() {
		return gazette.DateRange{}, gazette.NewError("dispatch.resolveDateRange", gazette.ErrInputInvalid,
			fmt.Errorf("invalid date range %+v", dr))
	}
	return dr, nil
}

// SubmitCrawl implements §4.C's submitCrawl operation.
func (d *Dispatcher) SubmitCrawl(ctx context.Context, req SubmitCrawlRequest) (SubmitCrawlResult, error) {
	dateRange, err := d.resolveDateRange(req)
	if err != nil {
		return SubmitCrawlResult{}, err
	}

	var configs []gazette.SpiderConfig
	if isAll(req.Cities) {
		configs = d.reg.All()
	} else {
		for _, id := range req.Cities {
			cfg, ok := d.reg.ByID(id)
			if !ok {
				return SubmitCrawlResult{}, gazette.NewError("dispatch.submitCrawl", gazette.ErrUnknownSpider,
					fmt.Errorf("unknown city id %q", id))
			}
			configs = append(configs, cfg)
		}
	}

	return d.dispatch(ctx, "crawl", configs, dateRange)
}

// SubmitTodayYesterdayRequest is the input to SubmitTodayYesterday.
type SubmitTodayYesterdayRequest struct {
	PlatformFilter gazette.SpiderType // optional; empty means all platforms
}

// SubmitTodayYesterday implements §4.C's submitTodayYesterday operation:
// a forced 2-day span regardless of the default-window rule.
func (d *Dispatcher) SubmitTodayYesterday(ctx context.Context, req SubmitTodayYesterdayRequest) (SubmitCrawlResult, error) {
	end := d.nowFn().UTC()
	start := end.AddDate(0, 0, -1)
	dateRange := gazette.DateRange{Start: start.Format("2006-01-02"), End: end.Format("2006-01-02")}

	var configs []gazette.SpiderConfig
	if req.PlatformFilter == "" {
		configs = d.reg.All()
	} else {
		configs = d.reg.ByType(req.PlatformFilter)
	}

	return d.dispatch(ctx, "today-yesterday", configs, dateRange)
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, configs []gazette.SpiderConfig, dateRange gazette.DateRange) (SubmitCrawlResult, error) {
	var runID string
	if d.runs != nil {
		id, err := d.runs.BeginRun(ctx, kind)
		if err != nil {
			log.Printf("[dispatcher] run bookkeeping failed to start: %v", err)
		} else {
			runID = id
		}
	}

	messages := make([]json.RawMessage, 0, len(configs))
	cityIDs := make([]string, 0, len(configs))
	for _, cfg := range configs {
		msg := gazette.CrawlMessage{
			SpiderID:    cfg.ID,
			TerritoryID: cfg.TerritoryID,
			SpiderType:  cfg.SpiderType,
			DateRange:   dateRange,
		}
		cfgJSON, err := json.Marshal(cfg.Config)
		if err != nil {
			return SubmitCrawlResult{}, gazette.NewError("dispatch.dispatch", gazette.ErrInputInvalid, err)
		}
		msg.Config = cfgJSON

		raw, err := json.Marshal(msg)
		if err != nil {
			return SubmitCrawlResult{}, gazette.NewError("dispatch.dispatch", gazette.ErrInputInvalid, err)
		}
		messages = append(messages, raw)
		cityIDs = append(cityIDs, cfg.ID)
	}

	batchResult := queue.BatchSubmit(ctx, d.q, messages)
	log.Printf("[dispatcher] kind=%s enqueued=%d failed=%d status=%s", kind, batchResult.Enqueued, batchResult.Failed, batchResult.Status())

	if d.runs != nil && runID != "" {
		d.runs.EndRun(ctx, runID, batchResult.Enqueued, batchResult.Failed, batchResult.Status())
	}

	return SubmitCrawlResult{
		Enqueued: batchResult.Enqueued,
		Failed:   batchResult.Failed,
		CityIDs:  cityIDs,
		Status:   batchResult.Status(),
	}, nil
}

// SpiderSummary is one row of the §4.C listSpiders result.
type SpiderSummary struct {
	ID          string
	Name        string
	TerritoryID string
	Type        gazette.SpiderType
	StartDate   string
}

// ListSpiders implements §4.C's listSpiders operation.
func (d *Dispatcher) ListSpiders(typeFilter gazette.SpiderType) []SpiderSummary {
	var configs []gazette.SpiderConfig
	if typeFilter == "" {
		configs = d.reg.All()
	} else {
		configs = d.reg.ByType(typeFilter)
	}
	out := make([]SpiderSummary, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, SpiderSummary{
			ID: cfg.ID, Name: cfg.Name, TerritoryID: cfg.TerritoryID,
			Type: cfg.SpiderType, StartDate: cfg.StartDate,
		})
	}
	return out
}

// StatsResult is the §4.C stats operation result.
type StatsResult struct {
	Total            int
	ByPlatform       map[gazette.SpiderType]int
	EstimatedBatches int
}

// Stats implements §4.C's stats operation.
func (d *Dispatcher) Stats() StatsResult {
	s := d.reg.Stat()
	batches := s.Total / 100
	if s.Total%100 != 0 {
		batches++
	}
	return StatsResult{Total: s.Total, ByPlatform: s.ByPlatform, EstimatedBatches: batches}
}

// NewRunID mints an identifier for ambient run bookkeeping.
func NewRunID() string { return uuid.NewString() }
