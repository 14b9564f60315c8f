package storage

import (
	"time"

	"github.com/smartfarm-iot/irrigation-server/internal/model"
)

// Row types for the relational collections. Sensor readings are not here:
// they are raw time-series and go to InfluxDB (see readings.go).

type ForecastRow struct {
	ID              uint      `gorm:"primaryKey"`
	EffectiveAt     time.Time `gorm:"index"`
	RainProbability float64
	Reason          string
	ShouldIrrigate  bool
	CreatedAt       time.Time
}

func (ForecastRow) TableName() string { return "forecasts" }

// ScheduleSlotRow persists a slot. Decision is a nullable bool: nil means
// the AI has not evaluated the slot, which is distinct from false (rejected).
type ScheduleSlotRow struct {
	ID          uint      `gorm:"primaryKey"`
	StartAt     time.Time `gorm:"index"`
	EndAt       time.Time
	DurationMin int
	DateKey     string `gorm:"size:10;index"`
	Decision    *bool
	Note        string
	CreatedAt   time.Time
}

func (ScheduleSlotRow) TableName() string { return "schedule_slots" }

type DecisionRow struct {
	ID        uint      `gorm:"primaryKey"`
	DecidedAt time.Time `gorm:"index"`
	Irrigate  bool
	Reason    string
	CreatedAt time.Time
}

func (DecisionRow) TableName() string { return "decision_records" }

func slotRowFrom(s model.ScheduleSlot) ScheduleSlotRow {
	return ScheduleSlotRow{
		StartAt:     s.StartAt,
		EndAt:       s.EndAt,
		DurationMin: s.DurationMinutes,
		DateKey:     s.DateKey,
		Decision:    s.Decision.Dashboard(),
		Note:        s.Note,
	}
}

func (r ScheduleSlotRow) toModel() model.ScheduleSlot {
	d := model.Undecided
	if r.Decision != nil {
		if *r.Decision {
			d = model.Confirmed
		} else {
			d = model.Rejected
		}
	}
	return model.ScheduleSlot{
		StartAt:         r.StartAt,
		EndAt:           r.EndAt,
		DurationMinutes: r.DurationMin,
		DateKey:         r.DateKey,
		Decision:        d,
		Note:            r.Note,
	}
}
