// Package queue provides the durable-queue abstraction the dispatcher
// and crawl executor sit on either side of (§2, §4.C, §4.D), plus the
// batched-submit-with-fallback helper and the dead-letter ring that
// backs validation's "regression" mode. Grounded on the worker/queue
// dependency-injection shape in the example pack's
// other_examples ASX-announcements worker (queue.Manager passed into a
// worker, jobs logged via AddJobLog) — generalized here to a small
// interface any real broker client can satisfy.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/diariomunicipal/gazette-pipeline/internal/gazette"
)

const maxBatchSize = 100

// Queue is the minimal durable-queue contract every stage depends on.
// SendBatch enforces no batch-size limit itself; callers must respect
// maxBatchSize via BatchSubmit.
type Queue interface {
	SendBatch(ctx context.Context, messages []json.RawMessage) error
	Send(ctx context.Context, message json.RawMessage) error
}

// BatchResult is the per-batch outcome BatchSubmit aggregates across all
// batches of one dispatch.
type BatchResult struct {
	Enqueued int
	Failed   int
}

// Status mirrors §4.C's three-way dispatcher outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

func (r BatchResult) Status() Status {
	switch {
	case r.Failed == 0:
		return StatusSuccess
	case r.Enqueued > 0:
		return StatusPartial
	default:
		return StatusFailure
	}
}

// BatchSubmit submits messages in fixed batches of maxBatchSize. For each
// batch it attempts a bulk SendBatch; on failure it falls back to
// per-message Send and counts per-message failures (§4.C "Fan-out").
func BatchSubmit(ctx context.Context, q Queue, messages []json.RawMessage) BatchResult {
	var result BatchResult

	for start := 0; start < len(messages); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(messages) {
			end = len(messages)
		}
		batch := messages[start:end]

		if err := q.SendBatch(ctx, batch); err == nil {
			result.Enqueued += len(batch)
			continue
		}

		// Bulk submit rejected: fall back to per-message submission.
		for _, msg := range batch {
			if err := q.Send(ctx, msg); err != nil {
				result.Failed++
				continue
			}
			result.Enqueued++
		}
	}

	return result
}

// InMemory is a process-local Queue implementation: the default backend
// for tests and for running the pipeline without a real broker attached.
// Every message handed to it is appended to an internal slice that a test
// or a local worker can drain.
type InMemory struct {
	mu       sync.Mutex
	messages []json.RawMessage
	reject   func([]json.RawMessage) bool // optional hook for fallback testing
}

// NewInMemory constructs an empty in-memory queue. reject, if non-nil, is
// consulted by SendBatch to simulate bulk-submit rejection (used by the
// dispatcher's bulk-fallback property tests).
func NewInMemory(reject func([]json.RawMessage) bool) *InMemory {
	return &InMemory{reject: reject}
}

func (q *InMemory) SendBatch(ctx context.Context, messages []json.RawMessage) error {
	if q.reject != nil && q.reject(messages) {
		return gazette.NewError("queue.sendBatch", gazette.ErrQueueEnqueueFailure, fmt.Errorf("bulk submit rejected"))
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, messages...)
	return nil
}

func (q *InMemory) Send(ctx context.Context, message json.RawMessage) error {
	if q.reject != nil && q.reject([]json.RawMessage{message}) {
		return gazette.NewError("queue.send", gazette.ErrQueueEnqueueFailure, fmt.Errorf("submit rejected"))
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, message)
	return nil
}

// Drain returns and clears all messages received so far, for tests and
// for a local single-process consumer loop.
func (q *InMemory) Drain() []json.RawMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.messages
	q.messages = nil
	return out
}

// Len reports how many undrained messages are queued.
func (q *InMemory) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}
