package model

import "time"

// ForecastRecord stores one AI rain nowcast, one row per forecast message.
type ForecastRecord struct {
	EffectiveAt     time.Time `json:"effective_at"`
	RainProbability float64   `json:"rain_probability"` // [0,1]
	Reason          string    `json:"reason"`
	ShouldIrrigate  bool      `json:"should_irrigate"`
}
