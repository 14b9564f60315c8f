package messages

// SensorData is the raw payload the field device pushes on sensor/data/push.
// Numeric fields are pointers so a missing field is distinguishable from a
// legitimate zero; the validator rejects the absent ones.
type SensorData struct {
	Temperature  *float64 `json:"temperature" validate:"required"`
	Humidity     *float64 `json:"humidity" validate:"required"`
	Pressure     *float64 `json:"pressure_hpa" validate:"required"`
	SoilMoisture *float64 `json:"soilMoisture" validate:"required"`
	Timestamp    string   `json:"timestamp" validate:"required"`
}
