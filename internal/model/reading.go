package model

import "time"

// SensorReading is one normalized telemetry sample. Immutable once persisted.
type SensorReading struct {
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	SoilMoisture float64   `json:"soilMoisture"`
	Pressure     float64   `json:"pressure"` // hPa
	CapturedAt   time.Time `json:"captured_at"`
	ReceivedAt   time.Time `json:"received_at"`
}
