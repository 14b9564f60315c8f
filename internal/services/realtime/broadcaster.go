package realtime

// Broadcaster is the push channel to connected dashboard sessions. Ingestors
// and the presence tracker only depend on this; the websocket hub is one
// implementation, tests plug in a recorder.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Event names the dashboard listens on.
const (
	EventSensorData  = "sensor/data/push"
	EventForecast    = "ai/forecast/rain"
	EventDeviceCount = "devices/count"
	EventSchedule    = "schedule/update"
)
