package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/smartfarm-iot/irrigation-server/internal/metrics"
	"github.com/smartfarm-iot/irrigation-server/internal/model"
	"github.com/smartfarm-iot/irrigation-server/internal/model/messages"
	"github.com/smartfarm-iot/irrigation-server/internal/services/realtime"
	"github.com/smartfarm-iot/irrigation-server/pkg/dedup"
	"github.com/smartfarm-iot/irrigation-server/pkg/mqttbus"
)

const hhmm = "15:04"

type ScheduleStore interface {
	ReplaceSlots(ctx context.Context, dates []string, slots []model.ScheduleSlot, decisions []model.DecisionRecord) error
}

// ScheduleIngestor merges an incoming AI plan into the slot store and emits
// the two projections: HH:mm groups for the dashboard, full local timestamps
// for the pump controller. The incoming plan is authoritative for every date
// it mentions; slots for other dates are untouched. Nothing is published
// unless the replace transaction commits.
type ScheduleIngestor struct {
	store         ScheduleStore
	bc            realtime.Broadcaster
	pub           mqttbus.IPublisher
	loc           *time.Location
	hardwareTopic string
	deduper       *dedup.Deduper
}

func NewScheduleIngestor(store ScheduleStore, bc realtime.Broadcaster, pub mqttbus.IPublisher, loc *time.Location, hardwareTopic string) *ScheduleIngestor {
	return &ScheduleIngestor{
		store:         store,
		bc:            bc,
		pub:           pub,
		loc:           loc,
		hardwareTopic: hardwareTopic,
		deduper:       dedup.New(10*time.Minute, 20000),
	}
}

func (i *ScheduleIngestor) Handle(ctx context.Context, _ string, _ []string, payload []byte) {
	// Plans arrive at QoS 1; a redelivered identical plan must not run the
	// replace twice.
	if !i.deduper.ShouldProcess(payload) {
		return
	}

	var plan messages.SchedulePlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		log.Printf("schedule: bad payload: %v", err)
		metrics.DroppedTotal.WithLabelValues("schedule", "malformed").Inc()
		return
	}
	if plan.Slots == nil {
		log.Printf("schedule: payload has no slots array, skipping")
		metrics.DroppedTotal.WithLabelValues("schedule", "malformed").Inc()
		return
	}

	slots, decisions := i.parseSlots(plan.Slots)
	if len(slots) == 0 {
		log.Printf("schedule: no valid slots in batch of %d, nothing to do", len(plan.Slots))
		metrics.DroppedTotal.WithLabelValues("schedule", "empty").Inc()
		return
	}

	dates := distinctDates(slots)

	// Replace-by-date, atomically. Abort the whole batch on failure: a
	// half-replaced day must never reach the dashboard or the hardware.
	if err := i.store.ReplaceSlots(ctx, dates, slots, decisions); err != nil {
		log.Printf("schedule: replace error: %v", err)
		metrics.DroppedTotal.WithLabelValues("schedule", "persistence").Inc()
		return
	}
	log.Printf("schedule: replaced %d date(s) with %d slot(s), %d decision record(s)",
		len(dates), len(slots), len(decisions))

	dashboard, hardware := i.project(slots)

	if i.bc != nil {
		i.bc.Broadcast(realtime.EventSchedule, messages.ScheduleUpdate{Data: dashboard})
	}

	// Best-effort republish for the actuator network. A failure here does
	// not roll back the committed replace; that inconsistency window is
	// accepted and logged.
	b, err := json.Marshal(messages.HardwarePlan{Days: hardware})
	if err == nil {
		err = i.pub.Publish(i.hardwareTopic, 1, false, b)
	}
	if err != nil {
		log.Printf("schedule: hardware republish error: %v", err)
	}

	metrics.IngestedTotal.WithLabelValues("schedule").Inc()
}

// parseSlots validates slot descriptors one at a time: a bad slot is skipped
// with a warning, the rest of the batch survives. Timestamps without an
// offset are wall-clock in the deployment zone.
func (i *ScheduleIngestor) parseSlots(in []messages.PlanSlot) ([]model.ScheduleSlot, []model.DecisionRecord) {
	slots := make([]model.ScheduleSlot, 0, len(in))
	decisions := make([]model.DecisionRecord, 0)

	for _, raw := range in {
		start, err := time.ParseInLocation(localLayout, raw.StartTS, i.loc)
		if err != nil {
			log.Printf("schedule: slot has invalid start_ts %q, skipping", raw.StartTS)
			continue
		}
		end, err := time.ParseInLocation(localLayout, raw.EndTS, i.loc)
		if err != nil {
			log.Printf("schedule: slot has invalid end_ts %q, skipping", raw.EndTS)
			continue
		}

		durationMin := raw.DurationMin
		if durationMin <= 0 {
			durationMin = int(end.Sub(start).Minutes())
		}

		decision := model.ParseDecision(raw.Decision)

		note := raw.Note
		if note == "" {
			note = fmt.Sprintf("Irrigate %d min [%s to %s]",
				durationMin, start.Format(hhmm), end.Format(hhmm))
		}

		slots = append(slots, model.ScheduleSlot{
			StartAt:         start,
			EndAt:           end,
			DurationMinutes: durationMin,
			DateKey:         start.Format(model.DateKeyLayout),
			Decision:        decision,
			Note:            note,
		})

		// One audit entry per slot the AI actually evaluated.
		if raw.DecisionTimestamp != "" {
			decidedAt, err := parseTimestamp(raw.DecisionTimestamp, i.loc)
			if err != nil {
				log.Printf("schedule: slot has invalid decision_timestamp %q, audit entry skipped", raw.DecisionTimestamp)
				continue
			}
			decisions = append(decisions, model.DecisionRecord{
				DecidedAt: decidedAt,
				Irrigate:  decision == model.Confirmed,
				Reason:    raw.DecisionReason,
			})
		}
	}
	return slots, decisions
}

// project builds both per-date groupings in one pass: date ascending, slots
// by start time within each date.
func (i *ScheduleIngestor) project(slots []model.ScheduleSlot) ([]messages.DaySchedule, []messages.HardwareDay) {
	byDate := make(map[string][]model.ScheduleSlot)
	for _, s := range slots {
		byDate[s.DateKey] = append(byDate[s.DateKey], s)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	dashboard := make([]messages.DaySchedule, 0, len(dates))
	hardware := make([]messages.HardwareDay, 0, len(dates))
	for _, d := range dates {
		group := byDate[d]
		sort.Slice(group, func(a, b int) bool { return group[a].StartAt.Before(group[b].StartAt) })

		day := messages.DaySchedule{Date: d, Slots: make([]messages.DashboardSlot, 0, len(group))}
		hwDay := messages.HardwareDay{Date: d, Slots: make([]messages.HardwareSlot, 0, len(group))}
		for _, s := range group {
			day.Slots = append(day.Slots, messages.DashboardSlot{
				Start:       s.StartAt.Format(hhmm),
				End:         s.EndAt.Format(hhmm),
				DurationMin: s.DurationMinutes,
				Decision:    s.Decision.Dashboard(),
				Note:        s.Note,
			})
			hwDay.Slots = append(hwDay.Slots, messages.HardwareSlot{
				StartTS:     s.StartAt.Format(localLayout),
				EndTS:       s.EndAt.Format(localLayout),
				DurationMin: s.DurationMinutes,
				Decision:    s.Decision.Hardware(),
			})
		}
		dashboard = append(dashboard, day)
		hardware = append(hardware, hwDay)
	}
	return dashboard, hardware
}

func distinctDates(slots []model.ScheduleSlot) []string {
	seen := make(map[string]struct{}, len(slots))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, ok := seen[s.DateKey]; ok {
			continue
		}
		seen[s.DateKey] = struct{}{}
		out = append(out, s.DateKey)
	}
	sort.Strings(out)
	return out
}
