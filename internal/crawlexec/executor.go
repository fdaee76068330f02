// Package crawlexec implements the crawl executor (§4.D): it consumes
// one crawl message at a time, builds the named spider via the registry,
// runs it under a deadline, forwards produced gazettes to the OCR queue,
// and retries or dead-letters on typed failure. Grounded on the
// teacher's internal/ingest/pipeline.go retry/state bookkeeping and
// fetcher_http.go's exponential-backoff loop, generalized from "ingest a
// grant source" to "crawl one city".
package crawlexec

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
	"github.com/diariomunicipal/gazette-pipeline/internal/queue"
	"github.com/diariomunicipal/gazette-pipeline/internal/registry"
)

const (
	defaultDeadline     = 60 * time.Second
	browserDeadline     = 120 * time.Second
	maxAttempts         = 3
)

// State is one point in §4.D's per-message state machine.
type State string

const (
	StateReceived       State = "received"
	StateRunning        State = "running"
	StateSucceeded      State = "succeeded"
	StateFailedRetryable State = "failed-retryable"
	StateFailedTerminal State = "failed-terminal"
)

// Outcome is what ProcessMessage reports about one message.
type Outcome struct {
	State     State
	Attempts  int
	Gazettes  int
	Err       error
}

// Executor drains crawl messages and forwards gazettes to the OCR queue.
type Executor struct {
	reg        *registry.Registry
	ocrQueue   queue.Queue
	deadLetter *queue.DeadLetterRing
}

// New constructs an Executor.
func New(reg *registry.Registry, ocrQueue queue.Queue, deadLetter *queue.DeadLetterRing) *Executor {
	return &Executor{reg: reg, ocrQueue: ocrQueue, deadLetter: deadLetter}
}

func deadlineFor(spiderType gazette.SpiderType) time.Duration {
	if spiderType == gazette.SpiderAdiariosV2 {
		return browserDeadline
	}
	return defaultDeadline
}

// ProcessMessage runs the full state machine for one decoded crawl
// message, retrying up to maxAttempts times on a retryable error kind
// with exponential backoff. A terminal failure (e.g. ErrParseFailure), or
// an ErrHTTPStatus that persists through every attempt, first rotates
// through the registry's recorded fallback configurations for the same
// territory before dead-lettering — the same "try an
// alternative before giving up" shape the teacher applies when a primary
// lookup comes back empty.
func (e *Executor) ProcessMessage(ctx context.Context, msg gazette.CrawlMessage) Outcome {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * time.Second
			select {
			case <-ctx.Done():
				return Outcome{State: StateFailedTerminal, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		cfg, err := decodeConfig(msg)
		if err != nil {
			return Outcome{State: StateFailedTerminal, Attempts: attempt, Err: err}
		}
		spiderCfg := gazette.SpiderConfig{
			ID: msg.SpiderID, TerritoryID: msg.TerritoryID, SpiderType: msg.SpiderType, Config: cfg,
		}

		result, err := e.attempt(ctx, spiderCfg, msg.DateRange)
		if err == nil {
			return Outcome{State: StateSucceeded, Attempts: attempt, Gazettes: result}
		}
		lastErr = err

		kind, _ := gazette.KindOf(err)
		if !kind.Retryable() {
			if result, fbErr, tried := e.tryFallbacks(ctx, msg); tried {
				if fbErr == nil {
					return Outcome{State: StateSucceeded, Attempts: attempt, Gazettes: result}
				}
				lastErr = fbErr
			}
			e.deadLetter.Add(queue.DeadLetterEntry{
				SpiderID: msg.SpiderID, Reason: lastErr.Error(), Attempts: attempt, Timestamp: time.Now(),
			})
			return Outcome{State: StateFailedTerminal, Attempts: attempt, Err: lastErr}
		}
		log.Printf("[executor] spiderId=%s attempt=%d retryable failure: %v", msg.SpiderID, attempt, err)
	}

	if kind, _ := gazette.KindOf(lastErr); kind == gazette.ErrHTTPStatus {
		if result, fbErr, tried := e.tryFallbacks(ctx, msg); tried {
			if fbErr == nil {
				return Outcome{State: StateSucceeded, Attempts: maxAttempts, Gazettes: result}
			}
			lastErr = fbErr
		}
	}

	e.deadLetter.Add(queue.DeadLetterEntry{
		SpiderID: msg.SpiderID, Reason: lastErr.Error(), Attempts: maxAttempts, Timestamp: time.Now(),
	})
	return Outcome{State: StateFailedTerminal, Attempts: maxAttempts, Err: lastErr}
}

func decodeConfig(msg gazette.CrawlMessage) (gazette.PlatformConfig, error) {
	var cfg gazette.PlatformConfig
	if err := json.Unmarshal(msg.Config, &cfg); err != nil {
		return cfg, gazette.NewError("executor.decodeConfig", gazette.ErrInputInvalid, fmt.Errorf("decode config: %w", err))
	}
	return cfg, nil
}

// tryFallbacks rotates through the registry's recorded fallback configs for
// msg.TerritoryID, one single-shot attempt each (no per-fallback retry
// loop), stopping at the first success. tried reports whether any fallback
// configuration existed to try at all.
func (e *Executor) tryFallbacks(ctx context.Context, msg gazette.CrawlMessage) (gazettes int, err error, tried bool) {
	fallbacks := e.reg.Fallbacks(msg.TerritoryID)
	if len(fallbacks) == 0 {
		return 0, nil, false
	}

	var lastErr error
	for _, fb := range fallbacks {
		log.Printf("[executor] spiderId=%s territoryId=%s rotating to fallback spiderId=%s", msg.SpiderID, msg.TerritoryID, fb.ID)
		result, attemptErr := e.attempt(ctx, fb, msg.DateRange)
		if attemptErr == nil {
			return result, nil, true
		}
		lastErr = attemptErr
	}
	return 0, lastErr, true
}

// attempt runs one received->running->(succeeded|failed) cycle for a
// single spider configuration and returns the number of gazettes forwarded
// on success.
func (e *Executor) attempt(ctx context.Context, spiderCfg gazette.SpiderConfig, dateRange gazette.DateRange) (int, error) {
	const op = "executor.attempt"

	spider, err := e.reg.CreateSpider(spiderCfg, dateRange)
	if err != nil {
		return 0, err // already a typed *gazette.Error (ErrUnknownSpider)
	}

	deadline := deadlineFor(spiderCfg.SpiderType)
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	gazettes, err := spider.Crawl(runCtx)
	if err != nil {
		if runCtx.Err() != nil {
			return 0, gazette.NewError(op, gazette.ErrTimeout, fmt.Errorf("deadline %s exceeded: %w", deadline, err))
		}
		return 0, err
	}

	forwarded := 0
	for _, g := range gazettes {
		if fwdErr := e.forwardToOCR(ctx, g, spiderCfg.ID); fwdErr != nil {
			// OCR-forwarding failures are logged and counted but never
			// fail the crawl ack (§4.D rule 5) — the crawl itself is
			// authoritative.
			log.Printf("[executor] spiderId=%s ocr forward failed for %s: %v", spiderCfg.ID, g.FileURL, fwdErr)
			continue
		}
		forwarded++
	}

	return forwarded, nil
}

func (e *Executor) forwardToOCR(ctx context.Context, g gazette.Gazette, spiderID string) error {
	msg := gazette.OCRMessage{Gazette: g, SpiderID: spiderID}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return e.ocrQueue.Send(ctx, raw)
}
