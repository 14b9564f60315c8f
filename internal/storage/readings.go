package storage

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/smartfarm-iot/irrigation-server/internal/model"
)

type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string // default "sensor_reading"
}

// ReadingWriter persists telemetry samples to InfluxDB. Readings are
// independent append-only events, so the blocking write API is enough; a
// failed write drops that one sample and the next is unaffected.
type ReadingWriter struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
}

func NewReadingWriter(cfg InfluxConfig) (*ReadingWriter, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx config incomplete")
	}
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "sensor_reading"
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &ReadingWriter{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: measurement,
	}, nil
}

func (w *ReadingWriter) WriteReading(ctx context.Context, r model.SensorReading) error {
	fields := map[string]interface{}{
		"temperature":   r.Temperature,
		"humidity":      r.Humidity,
		"soil_moisture": r.SoilMoisture,
		"pressure_hpa":  r.Pressure,
		"received_at":   r.ReceivedAt.UnixMilli(),
	}
	// Point time is the producer capture time, not arrival time.
	point := influxdb2.NewPoint(w.measurement, map[string]string{}, fields, r.CapturedAt)
	if err := w.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

func (w *ReadingWriter) Close() {
	w.client.Close()
}
