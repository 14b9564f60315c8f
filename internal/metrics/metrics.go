package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide counters for the ingestion pipeline, exposed on /metrics by
// the query HTTP server. kind is the ingestor name (telemetry, forecast,
// schedule, heartbeat).
var (
	IngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_messages_total",
		Help: "Messages accepted and fully processed, per ingestor.",
	}, []string{"kind"})

	DroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_messages_dropped_total",
		Help: "Messages dropped, per ingestor and reason.",
	}, []string{"kind", "reason"})

	OnlineDevices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_online_devices",
		Help: "Devices currently considered online.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingest_queue_depth",
		Help: "Messages waiting in the dispatch queue.",
	})
)
