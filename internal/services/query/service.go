package query

import (
	"context"
	"encoding/json"
	"time"

	"github.com/smartfarm-iot/irrigation-server/internal/model"
)

const hhmm = "15:04"

type ScheduleReader interface {
	SlotsForDate(ctx context.Context, dateKey string) ([]model.ScheduleSlot, error)
	RecentDecisions(ctx context.Context, limit int) ([]model.DecisionRecord, error)
}

// Service answers the external API layer's two questions: today's schedule
// and the recent AI decision trail.
type Service struct {
	store ScheduleReader
	loc   *time.Location
}

func NewService(store ScheduleReader, loc *time.Location) *Service {
	return &Service{store: store, loc: loc}
}

type TodayResponse struct {
	Date  string      `json:"date"`
	Slots []TodaySlot `json:"slots"`
}

// TodaySlot hides the decision for future slots the dashboard is not allowed
// to see yet; revealed tracks whether the field appears at all, decision is
// its (possibly null) value once revealed.
type TodaySlot struct {
	Start       string
	End         string
	DurationMin int
	Note        string

	revealed bool
	decision *bool
}

func (s TodaySlot) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"start":       s.Start,
		"end":         s.End,
		"durationMin": s.DurationMin,
	}
	if s.Note != "" {
		m["note"] = s.Note
	}
	if s.revealed {
		m["decision"] = s.decision
	}
	return json.Marshal(m)
}

// DecisionRevealed is a test hook; the JSON shape is the contract.
func (s TodaySlot) DecisionRevealed() (bool, *bool) {
	return s.revealed, s.decision
}

// TodaySchedule returns today's slots with the decision-eligibility rule: a
// slot's decision is visible once its start time has passed, and the single
// slot nearest to now stays explainable even before it starts. Every other
// future slot omits the field entirely. Ties on distance go to the first
// slot in store order.
func (s *Service) TodaySchedule(ctx context.Context, now time.Time) (TodayResponse, error) {
	now = now.In(s.loc)
	dateKey := now.Format(model.DateKeyLayout)

	slots, err := s.store.SlotsForDate(ctx, dateKey)
	if err != nil {
		return TodayResponse{}, err
	}

	nearest := -1
	var nearestDiff time.Duration
	for idx, sl := range slots {
		diff := sl.StartAt.Sub(now)
		if diff < 0 {
			diff = -diff
		}
		if nearest == -1 || diff < nearestDiff {
			nearest = idx
			nearestDiff = diff
		}
	}

	out := TodayResponse{Date: dateKey, Slots: make([]TodaySlot, 0, len(slots))}
	for idx, sl := range slots {
		t := TodaySlot{
			Start:       sl.StartAt.In(s.loc).Format(hhmm),
			End:         sl.EndAt.In(s.loc).Format(hhmm),
			DurationMin: sl.DurationMinutes,
			Note:        sl.Note,
		}
		if !sl.StartAt.After(now) || idx == nearest {
			t.revealed = true
			t.decision = sl.Decision.Dashboard()
		}
		out.Slots = append(out.Slots, t)
	}
	return out, nil
}

func (s *Service) RecentDecisions(ctx context.Context, limit int) ([]model.DecisionRecord, error) {
	return s.store.RecentDecisions(ctx, limit)
}
