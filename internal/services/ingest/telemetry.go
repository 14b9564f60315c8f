package ingest

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/smartfarm-iot/irrigation-server/internal/metrics"
	"github.com/smartfarm-iot/irrigation-server/internal/model"
	"github.com/smartfarm-iot/irrigation-server/internal/model/messages"
	"github.com/smartfarm-iot/irrigation-server/internal/services/realtime"
)

// emitTimeLayout matches what the dashboard already renders: local
// "dd/MM/yyyy HH:mm:ss".
const emitTimeLayout = "02/01/2006 15:04:05"

type ReadingStore interface {
	WriteReading(ctx context.Context, r model.SensorReading) error
}

// TelemetryIngestor validates, normalizes and persists sensor samples, then
// pushes the normalized record to connected dashboards. Failures drop the
// single message; readings are independent events and the next one is
// unaffected.
type TelemetryIngestor struct {
	store    ReadingStore
	bc       realtime.Broadcaster
	loc      *time.Location
	validate *validator.Validate
}

func NewTelemetryIngestor(store ReadingStore, bc realtime.Broadcaster, loc *time.Location) *TelemetryIngestor {
	return &TelemetryIngestor{
		store:    store,
		bc:       bc,
		loc:      loc,
		validate: validator.New(),
	}
}

// sensorEmit is the realtime payload; field names are what the dashboard
// binds to.
type sensorEmit struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	PressureHpa  float64 `json:"pressureHpa"`
	SoilMoisture float64 `json:"soilMoisture"`
	Timestamp    string  `json:"timestamp"`
}

func (i *TelemetryIngestor) Handle(ctx context.Context, _ string, _ []string, payload []byte) {
	var m messages.SensorData
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("telemetry: bad payload: %v", err)
		metrics.DroppedTotal.WithLabelValues("telemetry", "malformed").Inc()
		return
	}
	if err := i.validate.Struct(m); err != nil {
		log.Printf("telemetry: missing required fields: %v", err)
		metrics.DroppedTotal.WithLabelValues("telemetry", "malformed").Inc()
		return
	}
	for _, v := range []float64{*m.Temperature, *m.Humidity, *m.Pressure, *m.SoilMoisture} {
		if !isFinite(v) {
			log.Printf("telemetry: non-finite numeric field, dropping message")
			metrics.DroppedTotal.WithLabelValues("telemetry", "malformed").Inc()
			return
		}
	}

	capturedAt, err := parseTimestamp(m.Timestamp, i.loc)
	if err != nil {
		log.Printf("telemetry: bad timestamp %q: %v", m.Timestamp, err)
		metrics.DroppedTotal.WithLabelValues("telemetry", "malformed").Inc()
		return
	}

	reading := model.SensorReading{
		Temperature:  roundTwo(*m.Temperature),
		Humidity:     roundTwo(*m.Humidity),
		Pressure:     roundTwo(*m.Pressure),
		SoilMoisture: roundTwo(*m.SoilMoisture),
		CapturedAt:   capturedAt,
		ReceivedAt:   time.Now(),
	}

	if err := i.store.WriteReading(ctx, reading); err != nil {
		// Drop the whole message's side effects: no broadcast either.
		log.Printf("telemetry: write error: %v", err)
		metrics.DroppedTotal.WithLabelValues("telemetry", "persistence").Inc()
		return
	}

	emit := sensorEmit{
		Temperature:  reading.Temperature,
		Humidity:     reading.Humidity,
		PressureHpa:  reading.Pressure,
		SoilMoisture: reading.SoilMoisture,
		Timestamp:    capturedAt.In(i.loc).Format(emitTimeLayout),
	}
	if i.bc != nil {
		i.bc.Broadcast(realtime.EventSensorData, emit)
	}
	metrics.IngestedTotal.WithLabelValues("telemetry").Inc()
}
