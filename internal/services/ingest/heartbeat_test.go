package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sinkCall struct {
	deviceID string
	payload  string
}

type fakeSink struct {
	calls []sinkCall
}

func (f *fakeSink) HandleHeartbeat(deviceID, payload string) {
	f.calls = append(f.calls, sinkCall{deviceID: deviceID, payload: payload})
}

func TestHeartbeatDeviceIDFromWildcard(t *testing.T) {
	sink := &fakeSink{}
	ing := NewHeartbeatIngestor(sink)

	ing.Handle(context.Background(), "devices/status/esp32-001", []string{"esp32-001"}, []byte("1"))

	assert.Equal(t, []sinkCall{{deviceID: "esp32-001", payload: "1"}}, sink.calls)
}

func TestHeartbeatDeviceIDFromTopicFallback(t *testing.T) {
	sink := &fakeSink{}
	ing := NewHeartbeatIngestor(sink)

	ing.Handle(context.Background(), "devices/status/esp32-007", nil, []byte("online"))

	assert.Equal(t, []sinkCall{{deviceID: "esp32-007", payload: "online"}}, sink.calls)
}

func TestHeartbeatPayloadTrimmed(t *testing.T) {
	sink := &fakeSink{}
	ing := NewHeartbeatIngestor(sink)

	ing.Handle(context.Background(), "devices/status/esp32-001", []string{"esp32-001"}, []byte(" 1\n"))

	assert.Equal(t, "1", sink.calls[0].payload)
}

func TestHeartbeatWithoutDeviceIDIgnored(t *testing.T) {
	sink := &fakeSink{}
	ing := NewHeartbeatIngestor(sink)

	ing.Handle(context.Background(), "devices/status", nil, []byte("1"))

	assert.Empty(t, sink.calls)
}
