// Package validate implements the validation harness (§4.F): it drives
// the spider registry the same way the dispatcher and crawl executor do,
// but measures and reports rather than forwarding to the OCR queue.
// Grounded on the teacher's internal/ingest/pipeline.go batch-processing
// shape (RefineAllData/RecomputeStatuses — iterate every record, log
// running progress, tolerate per-record failure), generalized from a
// sequential DB scan to bounded-concurrency chunks over the registry via
// golang.org/x/sync/errgroup, per SPEC_FULL's DOMAIN STACK wiring.
package validate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/registry"
)

// Mode is one of §4.F's five selection modes.
type Mode string

const (
	ModeFull       Mode = "full"
	ModeSample     Mode = "sample"
	ModePlatform   Mode = "platform"
	ModeSingle     Mode = "single"
	ModeRegression Mode = "regression"
)

// Defaults per §4.F.
const (
	DefaultWorkers         = 10
	DefaultPerCityTimeout  = 60 * time.Second
	DefaultWindowDays      = 7
	DefaultInterBatchDelay = 500 * time.Millisecond
)

// Options configures one validation Run.
type Options struct {
	Mode            Mode
	Workers         int
	PerCityTimeout  time.Duration
	WindowDays      int
	InterBatchDelay time.Duration
	SamplePercent   int                // ModeSample
	PlatformFilter  gazette.SpiderType // ModePlatform
	CityIDs         []string           // ModeSingle / ModeRegression
	ProbeFileURLs   bool               // optional HEAD probe (content validator)
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.PerCityTimeout <= 0 {
		o.PerCityTimeout = DefaultPerCityTimeout
	}
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.InterBatchDelay <= 0 {
		o.InterBatchDelay = DefaultInterBatchDelay
	}
	return o
}

// Harness drives the registry for correctness tests.
type Harness struct {
	reg *registry.Registry
	now func() time.Time
}

// New constructs a Harness over reg.
func New(reg *registry.Registry) *Harness {
	return &Harness{reg: reg, now: time.Now}
}

// Run executes one validation pass and returns the aggregated Report.
func (h *Harness) Run(ctx context.Context, opts Options) (Report, error) {
	opts = opts.withDefaults()

	configs, err := h.selectConfigs(opts)
	if err != nil {
		return Report{}, err
	}

	dateRange := gazette.DateRange{
		Start: h.now().AddDate(0, 0, -opts.WindowDays).Format("2006-01-02"),
		End:   h.now().Format("2006-01-02"),
	}

	var results []CityResult
	for _, batch := range chunk(configs, opts.Workers) {
		batchResults, err := h.runChunk(ctx, batch, opts, dateRange)
		if err != nil {
			return Report{}, err
		}
		results = append(results, batchResults...)

		select {
		case <-ctx.Done():
			return Report{}, ctx.Err()
		case <-time.After(opts.InterBatchDelay):
		}
	}

	return buildReport(opts.Mode, results), nil
}

func (h *Harness) selectConfigs(opts Options) ([]gazette.SpiderConfig, error) {
	switch opts.Mode {
	case ModeFull:
		return h.reg.All(), nil
	case ModePlatform:
		return h.reg.ByType(opts.PlatformFilter), nil
	case ModeSingle, ModeRegression:
		out := make([]gazette.SpiderConfig, 0, len(opts.CityIDs))
		for _, id := range opts.CityIDs {
			cfg, ok := h.reg.ByID(id)
			if !ok {
				return nil, gazette.NewError("validate.selectConfigs", gazette.ErrInputInvalid,
					fmt.Errorf("unknown city id %q", id))
			}
			out = append(out, cfg)
		}
		return out, nil
	case ModeSample:
		all := h.reg.All()
		n := len(all) * opts.SamplePercent / 100
		if n == 0 && len(all) > 0 {
			n = 1
		}
		shuffled := make([]gazette.SpiderConfig, len(all))
		copy(shuffled, all)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if n > len(shuffled) {
			n = len(shuffled)
		}
		return shuffled[:n], nil
	default:
		return nil, gazette.NewError("validate.selectConfigs", gazette.ErrInputInvalid,
			fmt.Errorf("unknown validation mode %q", opts.Mode))
	}
}

// chunk partitions configs into fixed-size slices of size n (§4.F
// "cities are partitioned into chunks of size = parallelWorkers").
func chunk(configs []gazette.SpiderConfig, n int) [][]gazette.SpiderConfig {
	if n <= 0 {
		n = 1
	}
	var out [][]gazette.SpiderConfig
	for start := 0; start < len(configs); start += n {
		end := start + n
		if end > len(configs) {
			end = len(configs)
		}
		out = append(out, configs[start:end])
	}
	return out
}

// runChunk runs one bounded-concurrency batch to completion before the
// caller moves to the next (§4.F "each chunk runs to completion before
// the next").
func (h *Harness) runChunk(ctx context.Context, batch []gazette.SpiderConfig, opts Options, dateRange gazette.DateRange) ([]CityResult, error) {
	results := make([]CityResult, len(batch))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, cfg := range batch {
		i, cfg := i, cfg
		group.Go(func() error {
			results[i] = h.runOne(groupCtx, cfg, opts, dateRange)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runOne crawls one city under its own deadline and runs every
// validator against the result.
func (h *Harness) runOne(ctx context.Context, cfg gazette.SpiderConfig, opts Options, dateRange gazette.DateRange) CityResult {
	result := CityResult{ID: cfg.ID, TerritoryID: cfg.TerritoryID, SpiderType: cfg.SpiderType}

	spider, err := h.reg.CreateSpider(cfg, dateRange)
	if err != nil {
		result.Err = err
		result.Status = StatusFail
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.PerCityTimeout)
	defer cancel()

	start := h.now()
	gazettes, err := spider.Crawl(runCtx)
	result.Elapsed = h.now().Sub(start)
	result.RequestCount = spider.RequestCount()
	result.GazetteCount = len(gazettes)

	if err != nil {
		result.Err = err
		result.Status = StatusFail
		return result
	}

	for _, g := range gazettes {
		result.Structural = append(result.Structural, validateStructural(g)...)
	}
	result.Content = validateContent(ctx, cfg, gazettes, opts.ProbeFileURLs)
	result.Performance = validatePerformance(result.Elapsed, result.RequestCount, result.GazetteCount)

	result.Status = classifyStatus(result)
	return result
}

func classifyStatus(r CityResult) Status {
	if r.Err != nil {
		return StatusFail
	}
	if len(r.Structural) > 0 {
		return StatusFail
	}
	issues := append(append([]string{}, r.Performance...), r.Content...)
	for _, issue := range issues {
		if hasPrefix(issue, "fail:") {
			return StatusFail
		}
	}
	for _, issue := range issues {
		if hasPrefix(issue, "warn:") {
			return StatusWarn
		}
	}
	return StatusPass
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
