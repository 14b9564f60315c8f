package dedup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFirstDeliveryWinsRedeliveryLoses(t *testing.T) {
	d := New(time.Minute, 100)

	payload := []byte(`{"timestamp":"2025-12-09T06:50:00"}`)
	assert.True(t, d.ShouldProcess(payload))
	assert.False(t, d.ShouldProcess(payload))
	assert.False(t, d.ShouldProcess(payload))
}

func TestDifferentPayloadsAreIndependent(t *testing.T) {
	d := New(time.Minute, 100)

	assert.True(t, d.ShouldProcess([]byte("a")))
	assert.True(t, d.ShouldProcess([]byte("b")))
	assert.False(t, d.ShouldProcess([]byte("a")))
}

func TestExpiredEntryProcessesAgain(t *testing.T) {
	d := New(10*time.Millisecond, 100)

	assert.True(t, d.ShouldProcess([]byte("x")))
	time.Sleep(25 * time.Millisecond)
	assert.True(t, d.ShouldProcess([]byte("x")))
}

func TestCapacityPruneDropsExpiredEntries(t *testing.T) {
	d := New(time.Nanosecond, 5)

	for i := 0; i < 50; i++ {
		d.ShouldProcess([]byte(fmt.Sprintf("payload-%d", i)))
		time.Sleep(time.Microsecond)
	}
	assert.LessOrEqual(t, len(d.seen), 6, "map must stay near the cap")
}

func TestZeroConfigGetsDefaults(t *testing.T) {
	d := New(0, 0)
	assert.Equal(t, 10*time.Minute, d.ttl)
	assert.Equal(t, 10000, d.max)
}
