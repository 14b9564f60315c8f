package messages

// RainForecast mirrors the nowcast payload the AI publishes on
// ai/forecast/rain.
type RainForecast struct {
	Timestamp   string      `json:"timestamp" validate:"required"`
	Predictions Predictions `json:"predictions"`

	Recommendation Recommendation `json:"recommendation"`
}

type Predictions struct {
	Rain60Min RainPrediction `json:"rain_60min"`
}

type RainPrediction struct {
	Probability *float64 `json:"probability" validate:"required"`
	Label       string   `json:"label"`
}

type Recommendation struct {
	ShouldIrrigate bool   `json:"should_irrigate"`
	Reason         string `json:"reason"`
}
