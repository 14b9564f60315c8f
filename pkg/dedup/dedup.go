// Package dedup drops QoS-1 redeliveries. The AI service publishes forecasts
// and schedule plans at QoS 1, so after a flaky ack the broker may deliver the
// exact same payload twice; ingestors hash the payload and ask here first.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// ShouldProcess reports whether this payload has not been seen within the TTL
// and records it. First caller wins; redeliveries inside the window lose.
func (d *Deduper) ShouldProcess(payload []byte) bool {
	h := sha256.Sum256(payload)
	key := hex.EncodeToString(h[:])

	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false
	}
	d.seen[key] = now.Add(d.ttl)

	// Prune only when over capacity; expired entries go first and the loop
	// stops as soon as the map is back under the cap.
	if len(d.seen) > d.max {
		for k, exp := range d.seen {
			if now.After(exp) {
				delete(d.seen, k)
			}
			if len(d.seen) <= d.max {
				break
			}
		}
	}
	return true
}
