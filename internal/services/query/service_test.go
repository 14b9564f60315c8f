package query

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfarm-iot/irrigation-server/internal/model"
)

var testZone = time.FixedZone("ICT", 7*3600)

type fakeReader struct {
	slots     []model.ScheduleSlot
	decisions []model.DecisionRecord
	err       error

	gotDate  string
	gotLimit int
}

func (f *fakeReader) SlotsForDate(_ context.Context, dateKey string) ([]model.ScheduleSlot, error) {
	f.gotDate = dateKey
	return f.slots, f.err
}

func (f *fakeReader) RecentDecisions(_ context.Context, limit int) ([]model.DecisionRecord, error) {
	f.gotLimit = limit
	return f.decisions, f.err
}

func at(hour, min int) time.Time {
	return time.Date(2025, 12, 9, hour, min, 0, 0, testZone)
}

func slot(start, end time.Time, d model.Decision) model.ScheduleSlot {
	return model.ScheduleSlot{
		StartAt:         start,
		EndAt:           end,
		DurationMinutes: int(end.Sub(start).Minutes()),
		DateKey:         start.Format(model.DateKeyLayout),
		Decision:        d,
	}
}

func TestTodayScheduleRevealsPastAndNearestOnly(t *testing.T) {
	reader := &fakeReader{slots: []model.ScheduleSlot{
		slot(at(7, 0), at(7, 30), model.Confirmed),
		slot(at(12, 0), at(12, 20), model.Undecided),
		slot(at(18, 0), at(18, 30), model.Rejected),
	}}
	svc := NewService(reader, testZone)

	resp, err := svc.TodaySchedule(context.Background(), at(11, 50))
	require.NoError(t, err)
	assert.Equal(t, "2025-12-09", resp.Date)
	assert.Equal(t, "2025-12-09", reader.gotDate)
	require.Len(t, resp.Slots, 3)

	// 07:00 already started: decision visible (true).
	revealed, dec := resp.Slots[0].DecisionRevealed()
	assert.True(t, revealed)
	require.NotNil(t, dec)
	assert.True(t, *dec)

	// 12:00 is the nearest upcoming slot: visible, and undecided maps to null.
	revealed, dec = resp.Slots[1].DecisionRevealed()
	assert.True(t, revealed)
	assert.Nil(t, dec)

	// 18:00 is a far future slot: the field is withheld entirely.
	revealed, _ = resp.Slots[2].DecisionRevealed()
	assert.False(t, revealed)
}

func TestTodaySlotJSONShape(t *testing.T) {
	reader := &fakeReader{slots: []model.ScheduleSlot{
		slot(at(7, 0), at(7, 30), model.Confirmed),
		slot(at(12, 0), at(12, 20), model.Undecided),
		slot(at(18, 0), at(18, 30), model.Rejected),
	}}
	svc := NewService(reader, testZone)

	resp, err := svc.TodaySchedule(context.Background(), at(11, 50))
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Slots []map[string]json.RawMessage `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Slots, 3)

	assert.JSONEq(t, "true", string(decoded.Slots[0]["decision"]))
	assert.JSONEq(t, "null", string(decoded.Slots[1]["decision"]))
	_, present := decoded.Slots[2]["decision"]
	assert.False(t, present, "withheld decision must not appear as null")

	assert.JSONEq(t, `"07:00"`, string(decoded.Slots[0]["start"]))
	assert.JSONEq(t, `"07:30"`, string(decoded.Slots[0]["end"]))
	assert.JSONEq(t, "30", string(decoded.Slots[0]["durationMin"]))
}

func TestTodayScheduleEquidistantTieGoesToFirstSlot(t *testing.T) {
	reader := &fakeReader{slots: []model.ScheduleSlot{
		slot(at(11, 0), at(11, 20), model.Confirmed),
		slot(at(13, 0), at(13, 20), model.Confirmed),
	}}
	svc := NewService(reader, testZone)

	// 11:00 and 13:00 are both an hour from now; the earlier one is nearest,
	// so 13:00 stays withheld.
	resp, err := svc.TodaySchedule(context.Background(), at(12, 0))
	require.NoError(t, err)
	require.Len(t, resp.Slots, 2)

	revealed, _ := resp.Slots[0].DecisionRevealed()
	assert.True(t, revealed)
	revealed, _ = resp.Slots[1].DecisionRevealed()
	assert.False(t, revealed)
}

func TestTodayScheduleSingleFutureSlotRevealed(t *testing.T) {
	reader := &fakeReader{slots: []model.ScheduleSlot{
		slot(at(18, 0), at(18, 30), model.Undecided),
	}}
	svc := NewService(reader, testZone)

	resp, err := svc.TodaySchedule(context.Background(), at(6, 0))
	require.NoError(t, err)
	require.Len(t, resp.Slots, 1)

	revealed, dec := resp.Slots[0].DecisionRevealed()
	assert.True(t, revealed)
	assert.Nil(t, dec)
}

func TestTodayScheduleEmptyDay(t *testing.T) {
	reader := &fakeReader{}
	svc := NewService(reader, testZone)

	resp, err := svc.TodaySchedule(context.Background(), at(9, 0))
	require.NoError(t, err)
	assert.NotNil(t, resp.Slots)
	assert.Empty(t, resp.Slots)
}

func TestTodayScheduleStoreError(t *testing.T) {
	reader := &fakeReader{err: fmt.Errorf("db down")}
	svc := NewService(reader, testZone)

	_, err := svc.TodaySchedule(context.Background(), at(9, 0))
	assert.Error(t, err)
}

func TestRecentDecisionsPassThrough(t *testing.T) {
	reader := &fakeReader{decisions: []model.DecisionRecord{
		{DecidedAt: at(6, 45), Irrigate: true, Reason: "dry soil"},
	}}
	svc := NewService(reader, testZone)

	recs, err := svc.RecentDecisions(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, reader.gotLimit)
	require.Len(t, recs, 1)
	assert.Equal(t, "dry soil", recs[0].Reason)
}
