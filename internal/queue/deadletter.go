package queue

import (
	"sync"
	"time"
)

const defaultRingSize = 1000

// DeadLetterEntry records one message the crawl executor gave up on
// after exhausting retries (§4.D state machine's failed-terminal branch).
type DeadLetterEntry struct {
	SpiderID  string
	Reason    string
	Attempts  int
	Timestamp time.Time
}

// DeadLetterRing is a bounded, queryable sink — the SUPPLEMENTED FEATURES
// surface in SPEC_FULL.md giving the validation harness's "regression"
// mode something concrete to read previously-failed ids from, rather
// than only a log line.
type DeadLetterRing struct {
	mu      sync.Mutex
	entries []DeadLetterEntry
	size    int
}

// NewDeadLetterRing constructs a ring capped at size entries (oldest
// dropped first). size<=0 uses defaultRingSize.
func NewDeadLetterRing(size int) *DeadLetterRing {
	if size <= 0 {
		size = defaultRingSize
	}
	return &DeadLetterRing{size: size}
}

// Add records a terminal failure, evicting the oldest entry if full.
func (r *DeadLetterRing) Add(entry DeadLetterEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.size {
		r.entries = r.entries[len(r.entries)-r.size:]
	}
}

// SpiderIDs returns the distinct spider ids currently recorded, most
// recent first — the input to validation's regression mode.
func (r *DeadLetterRing) SpiderIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for i := len(r.entries) - 1; i >= 0; i-- {
		id := r.entries[i].SpiderID
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Entries returns a copy of all recorded entries.
func (r *DeadLetterRing) Entries() []DeadLetterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DeadLetterEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
