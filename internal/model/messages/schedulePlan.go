package messages

// SchedulePlan is the irrigation plan the AI publishes on
// ai/schedule/irrigation. Slot timestamps come WITHOUT a UTC offset and are
// wall-clock time in the deployment zone; the scheduler and this server have
// to agree on that or every displayed time shifts by the zone offset.
type SchedulePlan struct {
	Timestamp string     `json:"timestamp"`
	Slots     []PlanSlot `json:"slots" validate:"required"`
}

type PlanSlot struct {
	StartTS     string `json:"start_ts"`
	EndTS       string `json:"end_ts"`
	DurationMin int    `json:"duration_min"`
	Note        string `json:"note"`

	// Present only when the AI evaluated the slot at generation time.
	Decision          string `json:"decision,omitempty"`
	DecisionReason    string `json:"decision_reason,omitempty"`
	DecisionTimestamp string `json:"decision_timestamp,omitempty"`
}
