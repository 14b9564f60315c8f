package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		pattern string
		topic   string
		wilds   []string
		ok      bool
	}{
		{"sensor/data/push", "sensor/data/push", nil, true},
		{"sensor/data/push", "sensor/data/pull", nil, false},
		{"devices/status/+", "devices/status/esp32-001", []string{"esp32-001"}, true},
		{"devices/status/+", "devices/status", nil, false},
		{"devices/status/+", "devices/status/a/b", nil, false},
		{"devices/status/+", "devices/status/", nil, false},
		{"+/+/pump", "device/control/pump", []string{"device", "control"}, true},
	}
	for _, c := range cases {
		wilds, ok := MatchTopic(c.pattern, c.topic)
		assert.Equal(t, c.ok, ok, "%s vs %s", c.pattern, c.topic)
		if c.ok {
			assert.Equal(t, c.wilds, wilds)
		}
	}
}

func TestRouterDeliversToMatchingHandler(t *testing.T) {
	r := NewRouter(8, 2)

	var mu sync.Mutex
	var got []string
	r.Handle("devices/status/+", func(_ context.Context, _ string, wilds []string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, wilds[0]+":"+string(payload))
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Run(ctx)
	}()

	r.Dispatch("devices/status/esp32-001", []byte("1"))
	r.Dispatch("sensor/data/push", []byte("{}")) // no route, logged and dropped

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"esp32-001:1"}, got)
}

func TestRouterFirstRegisteredRouteWins(t *testing.T) {
	r := NewRouter(8, 1)

	var hits int32
	r.Handle("ai/forecast/rain", func(context.Context, string, []string, []byte) {
		atomic.AddInt32(&hits, 1)
	})
	r.Handle("ai/+/rain", func(context.Context, string, []string, []byte) {
		t.Error("broader route should not shadow the exact one")
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Run(ctx)
	}()

	r.Dispatch("ai/forecast/rain", []byte("{}"))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&hits) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestRouterDropsWhenQueueFull(t *testing.T) {
	// No worker running: everything past the queue capacity must be dropped
	// without blocking the caller.
	r := NewRouter(2, 1)
	r.Handle("sensor/data/push", func(context.Context, string, []string, []byte) {})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			r.Dispatch("sensor/data/push", []byte("{}"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
	assert.Len(t, r.queue, 2)
}

func TestRouterTopics(t *testing.T) {
	r := NewRouter(1, 1)
	r.Handle("sensor/data/push", nil)
	r.Handle("devices/status/+", nil)
	assert.Equal(t, []string{"sensor/data/push", "devices/status/+"}, r.Topics())
}
