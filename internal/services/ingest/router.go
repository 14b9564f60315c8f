package ingest

import (
	"context"
	"log"
	"strings"

	"github.com/smartfarm-iot/irrigation-server/internal/metrics"
)

// Handler processes one bus message. wildcards holds the topic segments
// matched by '+' in the route pattern, in order.
type Handler func(ctx context.Context, topic string, wildcards []string, payload []byte)

type route struct {
	pattern string
	handler Handler
}

type job struct {
	topic   string
	payload []byte
}

// Router matches incoming topics against registered patterns and runs the
// handler on a worker pool behind a bounded queue, so a slow database write
// never blocks the bus client's read loop. When the queue is full the message
// is dropped with a warning; backpressure is explicit, not implicit.
type Router struct {
	routes  []route
	queue   chan job
	workers int
}

func NewRouter(queueSize, workers int) *Router {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	return &Router{
		queue:   make(chan job, queueSize),
		workers: workers,
	}
}

// Handle registers a topic pattern. Patterns support '+' as a single-segment
// wildcard (devices/status/+). Registration order is match order.
func (r *Router) Handle(pattern string, h Handler) {
	r.routes = append(r.routes, route{pattern: pattern, handler: h})
}

// Topics returns the patterns to subscribe on the broker.
func (r *Router) Topics() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt.pattern)
	}
	return out
}

// Dispatch enqueues one message. Called from the paho delivery goroutine;
// must never block.
func (r *Router) Dispatch(topic string, payload []byte) {
	select {
	case r.queue <- job{topic: topic, payload: payload}:
		metrics.QueueDepth.Set(float64(len(r.queue)))
	default:
		log.Printf("router: queue full, dropping message on %s", topic)
		metrics.DroppedTotal.WithLabelValues("router", "queue_full").Inc()
	}
}

// Run blocks until ctx is cancelled, serving the queue with the worker pool.
func (r *Router) Run(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < r.workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-r.queue:
					metrics.QueueDepth.Set(float64(len(r.queue)))
					r.route(ctx, j)
				}
			}
		}()
	}
	for i := 0; i < r.workers; i++ {
		<-done
	}
}

func (r *Router) route(ctx context.Context, j job) {
	for _, rt := range r.routes {
		if wilds, ok := MatchTopic(rt.pattern, j.topic); ok {
			rt.handler(ctx, j.topic, wilds, j.payload)
			return
		}
	}
	log.Printf("router: no handler for topic: %s", j.topic)
}

// MatchTopic reports whether topic matches pattern and returns the segments
// captured by '+' wildcards. Segment counts must agree; '+' matches exactly
// one non-empty segment.
func MatchTopic(pattern, topic string) ([]string, bool) {
	ps := strings.Split(pattern, "/")
	ts := strings.Split(topic, "/")
	if len(ps) != len(ts) {
		return nil, false
	}
	var wilds []string
	for i := range ps {
		if ps[i] == "+" {
			if ts[i] == "" {
				return nil, false
			}
			wilds = append(wilds, ts[i])
			continue
		}
		if ps[i] != ts[i] {
			return nil, false
		}
	}
	return wilds, true
}
