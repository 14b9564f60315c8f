package query

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"github.com/smartfarm-iot/irrigation-server/internal/services/realtime"
)

func mkCB(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  10 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})
}

// NewHTTPMux wires the collaborator-facing endpoints. Store reads sit behind
// a circuit breaker so a dead database answers fast with a 503 instead of
// piling up blocked requests.
func NewHTTPMux(svc *Service, hub *realtime.Hub, mqttClient mqtt.Client) *http.ServeMux {
	scheduleCB := mkCB("schedule-query")
	decisionsCB := mkCB("decisions-query")

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status        string `json:"status"`
			MQTTConnected bool   `json:"mqtt_connected"`
			WSClients     int    `json:"ws_clients"`
		}
		st := status{
			MQTTConnected: mqttClient != nil && mqttClient.IsConnectionOpen(),
			WSClients:     hub.ClientCount(),
		}
		if st.MQTTConnected {
			st.Status = "ok"
		} else {
			st.Status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ready := mqttClient != nil && mqttClient.IsConnectionOpen()
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ready": ready})
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/ws", hub.ServeWS)

	// GET /schedule/today
	mux.HandleFunc("/schedule/today", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		res, err := scheduleCB.Execute(func() (any, error) {
			return svc.TodaySchedule(r.Context(), time.Now())
		})
		if err != nil {
			writeUnavailable(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
		log.Printf("GET /schedule/today [%dms] cb=%v", time.Since(start).Milliseconds(), scheduleCB.State())
	})

	// GET /decisions/recent?limit=20
	mux.HandleFunc("/decisions/recent", func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		res, err := decisionsCB.Execute(func() (any, error) {
			return svc.RecentDecisions(r.Context(), limit)
		})
		if err != nil {
			writeUnavailable(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	})

	return mux
}

func writeUnavailable(w http.ResponseWriter, err error) {
	log.Printf("query: store unavailable: %v", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "store unavailable"})
}
