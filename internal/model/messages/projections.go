package messages

// Dashboard and hardware projections of a merged schedule. Both group slots
// per calendar date, sorted by date then start time, but the shapes differ:
// the dashboard gets HH:mm strings and a nullable decision, the pump
// controller gets full local timestamps and never sees "undecided".

type DaySchedule struct {
	Date  string          `json:"date"` // "2025-12-09"
	Slots []DashboardSlot `json:"slots"`
}

type DashboardSlot struct {
	Start       string `json:"start"` // "07:00"
	End         string `json:"end"`   // "07:20"
	DurationMin int    `json:"durationMin"`
	Decision    *bool  `json:"decision"` // null = not evaluated yet
	Note        string `json:"note,omitempty"`
}

// ScheduleUpdate is the realtime event envelope for schedule/update.
type ScheduleUpdate struct {
	Data []DaySchedule `json:"data"`
}

type HardwareDay struct {
	Date  string         `json:"date"`
	Slots []HardwareSlot `json:"slots"`
}

type HardwareSlot struct {
	StartTS     string `json:"start_ts"` // "2025-12-09T07:00:00" local
	EndTS       string `json:"end_ts"`
	DurationMin int    `json:"duration_min"`
	Decision    bool   `json:"decision"`
}

// HardwarePlan is what gets republished on device/control/pump.
type HardwarePlan struct {
	Days []HardwareDay `json:"days"`
}
