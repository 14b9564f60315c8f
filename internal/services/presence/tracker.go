package presence

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/smartfarm-iot/irrigation-server/internal/metrics"
	"github.com/smartfarm-iot/irrigation-server/internal/services/realtime"
)

type Config struct {
	SweepPeriod time.Duration // default 30s
	Timeout     time.Duration // default 75s; must exceed SweepPeriod
}

// CountUpdate is the payload of the devices/count realtime event.
type CountUpdate struct {
	Count int `json:"count"`
}

// Tracker keeps the set of online device ids from heartbeat messages. It is
// the one piece of shared mutable state in the pipeline: heartbeats arrive on
// worker goroutines while the sweep ticks on its own, so every access goes
// through the mutex. Count events fire only on actual transitions; N
// heartbeats from an already-online device emit nothing.
type Tracker struct {
	cfg Config
	bc  realtime.Broadcaster

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func NewTracker(cfg Config, bc realtime.Broadcaster) *Tracker {
	if cfg.SweepPeriod <= 0 {
		cfg.SweepPeriod = 30 * time.Second
	}
	if cfg.Timeout <= cfg.SweepPeriod {
		cfg.Timeout = 75 * time.Second
	}
	return &Tracker{
		cfg:      cfg,
		bc:       bc,
		lastSeen: make(map[string]time.Time),
	}
}

// HandleHeartbeat processes one devices/status/+ message. "1" or "online"
// marks the device alive; anything else ("0", "offline", an LWT blank) drops
// it immediately without waiting for the sweep.
func (t *Tracker) HandleHeartbeat(deviceID, payload string) {
	if deviceID == "" {
		return
	}
	alive := payload == "1" || strings.EqualFold(payload, "online")

	t.mu.Lock()
	_, known := t.lastSeen[deviceID]
	var transition bool
	var count int
	if alive {
		t.lastSeen[deviceID] = time.Now()
		transition = !known
	} else {
		delete(t.lastSeen, deviceID)
		transition = known
	}
	count = len(t.lastSeen)
	t.mu.Unlock()

	if transition {
		if alive {
			log.Printf("presence: device [%s] connected (online)", deviceID)
		} else {
			log.Printf("presence: device [%s] disconnected (offline)", deviceID)
		}
		t.publishCount(count)
	}
}

// Run fires the liveness sweep until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.SweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweep(time.Now())
		}
	}
}

// sweep drops every device silent for longer than the timeout. One event per
// tick at most, no matter how many devices expired together.
func (t *Tracker) sweep(now time.Time) {
	t.mu.Lock()
	expired := make([]string, 0)
	for id, seen := range t.lastSeen {
		if now.Sub(seen) > t.cfg.Timeout {
			expired = append(expired, id)
			delete(t.lastSeen, id)
		}
	}
	count := len(t.lastSeen)
	t.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	for _, id := range expired {
		log.Printf("presence: device [%s] timed out (no heartbeat for > %s)", id, t.cfg.Timeout)
	}
	t.publishCount(count)
}

func (t *Tracker) publishCount(count int) {
	metrics.OnlineDevices.Set(float64(count))
	log.Printf("presence: online devices: %d", count)
	if t.bc != nil {
		t.bc.Broadcast(realtime.EventDeviceCount, CountUpdate{Count: count})
	}
}

// Count returns the current cardinality. Callers get a snapshot; the value
// may be stale by the time it is read, which is acceptable.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}
