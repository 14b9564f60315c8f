package ingest

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/smartfarm-iot/irrigation-server/internal/metrics"
	"github.com/smartfarm-iot/irrigation-server/internal/model"
	"github.com/smartfarm-iot/irrigation-server/internal/model/messages"
	"github.com/smartfarm-iot/irrigation-server/internal/services/realtime"
	"github.com/smartfarm-iot/irrigation-server/pkg/dedup"
)

type ForecastStore interface {
	SaveForecast(ctx context.Context, f model.ForecastRecord) error
}

// ForecastIngestor persists AI rain nowcasts and fans them out to the
// dashboard. Same drop-on-error policy as telemetry.
type ForecastIngestor struct {
	store    ForecastStore
	bc       realtime.Broadcaster
	loc      *time.Location
	validate *validator.Validate
	deduper  *dedup.Deduper
}

func NewForecastIngestor(store ForecastStore, bc realtime.Broadcaster, loc *time.Location) *ForecastIngestor {
	return &ForecastIngestor{
		store:    store,
		bc:       bc,
		loc:      loc,
		validate: validator.New(),
		deduper:  dedup.New(10*time.Minute, 20000),
	}
}

func (i *ForecastIngestor) Handle(ctx context.Context, _ string, _ []string, payload []byte) {
	// Forecasts arrive at QoS 1; identical redeliveries are dropped here.
	if !i.deduper.ShouldProcess(payload) {
		return
	}

	var m messages.RainForecast
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("forecast: bad payload: %v", err)
		metrics.DroppedTotal.WithLabelValues("forecast", "malformed").Inc()
		return
	}
	if err := i.validate.Struct(m); err != nil {
		log.Printf("forecast: missing required fields: %v", err)
		metrics.DroppedTotal.WithLabelValues("forecast", "malformed").Inc()
		return
	}

	prob := *m.Predictions.Rain60Min.Probability
	if !isFinite(prob) || prob < 0 || prob > 1 {
		log.Printf("forecast: probability out of range: %v", prob)
		metrics.DroppedTotal.WithLabelValues("forecast", "malformed").Inc()
		return
	}

	effectiveAt, err := parseTimestamp(m.Timestamp, i.loc)
	if err != nil {
		log.Printf("forecast: bad timestamp %q: %v", m.Timestamp, err)
		metrics.DroppedTotal.WithLabelValues("forecast", "malformed").Inc()
		return
	}

	record := model.ForecastRecord{
		EffectiveAt:     effectiveAt,
		RainProbability: prob,
		Reason:          m.Recommendation.Reason,
		ShouldIrrigate:  m.Recommendation.ShouldIrrigate,
	}

	if err := i.store.SaveForecast(ctx, record); err != nil {
		log.Printf("forecast: write error: %v", err)
		metrics.DroppedTotal.WithLabelValues("forecast", "persistence").Inc()
		return
	}

	if i.bc != nil {
		i.bc.Broadcast(realtime.EventForecast, record)
	}
	metrics.IngestedTotal.WithLabelValues("forecast").Inc()
}
