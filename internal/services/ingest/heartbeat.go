package ingest

import (
	"context"
	"strings"

	"github.com/smartfarm-iot/irrigation-server/internal/metrics"
)

type PresenceSink interface {
	HandleHeartbeat(deviceID, payload string)
}

// HeartbeatIngestor forwards devices/status/+ messages to the presence
// tracker; the device id is the wildcard segment of the topic.
type HeartbeatIngestor struct {
	sink PresenceSink
}

func NewHeartbeatIngestor(sink PresenceSink) *HeartbeatIngestor {
	return &HeartbeatIngestor{sink: sink}
}

func (h *HeartbeatIngestor) Handle(_ context.Context, topic string, wildcards []string, payload []byte) {
	var deviceID string
	if len(wildcards) > 0 {
		deviceID = wildcards[0]
	} else if parts := strings.Split(topic, "/"); len(parts) >= 3 {
		deviceID = parts[2]
	}
	if deviceID == "" {
		return
	}
	h.sink.HandleHeartbeat(deviceID, strings.TrimSpace(string(payload)))
	metrics.IngestedTotal.WithLabelValues("heartbeat").Inc()
}
