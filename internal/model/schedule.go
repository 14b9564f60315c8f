package model

import "time"

// DateKeyLayout is the local calendar date a slot belongs to ("2025-12-09").
const DateKeyLayout = "2006-01-02"

// ScheduleSlot is one planned irrigation window. Slots for a date are wholly
// replaced whenever a new AI plan mentions that date; slots for untouched
// dates survive.
type ScheduleSlot struct {
	StartAt         time.Time `json:"start_at"` // wall-clock in deployment zone
	EndAt           time.Time `json:"end_at"`
	DurationMinutes int       `json:"duration_min"`
	DateKey         string    `json:"date"`
	Decision        Decision  `json:"-"`
	Note            string    `json:"note"`
}

// DecisionRecord is the append-only audit trail: one entry per slot whose
// incoming payload carried an explicit decision evaluation.
type DecisionRecord struct {
	DecidedAt time.Time `json:"decided_at"`
	Irrigate  bool      `json:"irrigate"`
	Reason    string    `json:"reason"`
}
