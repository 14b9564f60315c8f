package ingest

import (
	"context"
	"sync"

	"github.com/smartfarm-iot/irrigation-server/internal/model"
)

// In-memory doubles shared by the ingestor tests.

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastCall
}

type broadcastCall struct {
	event   string
	payload interface{}
}

func (f *fakeBroadcaster) Broadcast(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastCall{event: event, payload: payload})
}

func (f *fakeBroadcaster) calls() []broadcastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]broadcastCall, len(f.events))
	copy(out, f.events)
	return out
}

type fakeReadingStore struct {
	mu       sync.Mutex
	readings []model.SensorReading
	err      error
}

func (f *fakeReadingStore) WriteReading(_ context.Context, r model.SensorReading) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, r)
	return nil
}

type fakeForecastStore struct {
	mu        sync.Mutex
	forecasts []model.ForecastRecord
	err       error
}

func (f *fakeForecastStore) SaveForecast(_ context.Context, rec model.ForecastRecord) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forecasts = append(f.forecasts, rec)
	return nil
}

type replaceCall struct {
	dates     []string
	slots     []model.ScheduleSlot
	decisions []model.DecisionRecord
}

// fakeScheduleStore keeps a real slot map keyed by date so the replace-by-date
// property can be asserted end to end.
type fakeScheduleStore struct {
	mu     sync.Mutex
	byDate map[string][]model.ScheduleSlot
	calls  []replaceCall
	err    error
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{byDate: make(map[string][]model.ScheduleSlot)}
}

func (f *fakeScheduleStore) ReplaceSlots(_ context.Context, dates []string, slots []model.ScheduleSlot, decisions []model.DecisionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range dates {
		delete(f.byDate, d)
	}
	for _, s := range slots {
		f.byDate[s.DateKey] = append(f.byDate[s.DateKey], s)
	}
	f.calls = append(f.calls, replaceCall{dates: dates, slots: slots, decisions: decisions})
	return nil
}

type publishCall struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, publishCall{topic: topic, qos: qos, payload: payload})
	return nil
}

func (f *fakePublisher) Close() {}
