package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/smartfarm-iot/irrigation-server/internal/services/ingest"
	"github.com/smartfarm-iot/irrigation-server/internal/services/presence"
	"github.com/smartfarm-iot/irrigation-server/internal/services/query"
	"github.com/smartfarm-iot/irrigation-server/internal/services/realtime"
	"github.com/smartfarm-iot/irrigation-server/internal/storage"
	"github.com/smartfarm-iot/irrigation-server/pkg/mqttbus"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

const defaultTZ = "Asia/Ho_Chi_Minh"

func main() {
	// === Config ===
	cfg := struct {
		Bus mqttbus.Config

		Influx   storage.InfluxConfig
		Postgres storage.PostgresConfig

		TopicSensor    string
		TopicHeartbeat string
		TopicForecast  string
		TopicSchedule  string
		TopicHardware  string

		QueueSize int
		Workers   int

		SweepPeriod time.Duration
		Timeout     time.Duration

		HTTPPort      int
		ShutdownGrace time.Duration
	}{
		Bus: mqttbus.Config{
			Host:          envStr("MQTT_HOST", "localhost"),
			Port:          envInt("MQTT_PORT", 1883),
			User:          envStr("MQTT_USER", ""),
			Password:      envStr("MQTT_PASSWORD", ""),
			ClientID:      envStr("HOSTNAME", "irrigation-server"),
			RetryInterval: time.Duration(envInt("MQTT_RETRY_SEC", 5)) * time.Second,
			MaxRetries:    envInt("MQTT_MAX_RETRIES", 5),
		},

		Influx: storage.InfluxConfig{
			URL:    envStr("INFLUX_URL", "http://localhost:8086"),
			Token:  os.Getenv("INFLUX_TOKEN"),
			Org:    envStr("INFLUX_ORG", "smartfarm"),
			Bucket: envStr("INFLUX_BUCKET", "telemetry"),
		},
		Postgres: storage.PostgresConfig{
			Host:     envStr("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			User:     envStr("POSTGRES_USER", "smartfarm"),
			Password: envStr("POSTGRES_PASSWORD", "smartfarm"),
			DBName:   envStr("POSTGRES_DB", "smartfarm"),
			SSLMode:  envStr("POSTGRES_SSLMODE", "disable"),
		},

		TopicSensor:    envStr("TOPIC_SENSOR", "sensor/data/push"),
		TopicHeartbeat: envStr("TOPIC_HEARTBEAT", "devices/status/+"),
		TopicForecast:  envStr("TOPIC_FORECAST", "ai/forecast/rain"),
		TopicSchedule:  envStr("TOPIC_SCHEDULE", "ai/schedule/irrigation"),
		TopicHardware:  envStr("TOPIC_HARDWARE", "device/control/pump"),

		QueueSize: envInt("DISPATCH_QUEUE_SIZE", 256),
		Workers:   envInt("DISPATCH_WORKERS", 4),

		SweepPeriod: time.Duration(envInt("PRESENCE_SWEEP_SEC", 30)) * time.Second,
		Timeout:     time.Duration(envInt("PRESENCE_TIMEOUT_SEC", 75)) * time.Second,

		HTTPPort:      envInt("HTTP_PORT", 8080),
		ShutdownGrace: 5 * time.Second,
	}

	// timezone: slot timestamps are wall-clock in this zone
	tzName := strings.TrimSpace(os.Getenv("TZ"))
	if tzName == "" {
		tzName = defaultTZ
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Printf("WARN: invalid TZ=%q, falling back to local: %v", tzName, err)
		loc = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Stores ===
	store, err := storage.NewStore(cfg.Postgres)
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer store.Close()
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	readings, err := storage.NewReadingWriter(cfg.Influx)
	if err != nil {
		log.Fatalf("influx config error: %v", err)
	}
	defer readings.Close()

	// === Realtime hub & presence ===
	hub := realtime.NewHub()
	defer hub.Shutdown()

	tracker := presence.NewTracker(presence.Config{
		SweepPeriod: cfg.SweepPeriod,
		Timeout:     cfg.Timeout,
	}, hub)

	// === MQTT ===
	// The consumer is created after the connection; on every reconnect the
	// OnConnect handler re-issues the subscriptions.
	var consumer *mqttbus.MultiConsumer
	onConnect := func(_ mqtt.Client) {
		if consumer != nil {
			log.Printf("server: reconnected, re-issuing subscriptions")
			consumer.Subscribe()
		}
	}
	mqttClient, err := mqttbus.NewConn(&cfg.Bus, ctx, onConnect)
	if err != nil {
		log.Fatalf("mqtt connection error: %v", err)
	}
	defer mqttbus.CloseConn(mqttClient)

	publisher := mqttbus.NewPublisher(mqttClient)

	// === Router & ingestors ===
	router := ingest.NewRouter(cfg.QueueSize, cfg.Workers)
	router.Handle(cfg.TopicSensor, ingest.NewTelemetryIngestor(readings, hub, loc).Handle)
	router.Handle(cfg.TopicHeartbeat, ingest.NewHeartbeatIngestor(tracker).Handle)
	router.Handle(cfg.TopicForecast, ingest.NewForecastIngestor(store, hub, loc).Handle)
	router.Handle(cfg.TopicSchedule, ingest.NewScheduleIngestor(store, hub, publisher, loc, cfg.TopicHardware).Handle)

	consumer = mqttbus.NewMultiConsumer(mqttClient, router.Topics(), func(topic string, msg mqtt.Message) error {
		router.Dispatch(msg.Topic(), msg.Payload())
		return nil
	})

	// === HTTP (query API + websocket + health + metrics) ===
	mux := query.NewHTTPMux(query.NewService(store, loc), hub, mqttClient)
	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		router.Run(gctx)
		return nil
	})
	g.Go(func() error {
		tracker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		consumer.ConsumeMessage(gctx)
		return nil
	})
	g.Go(func() error {
		log.Printf("server: HTTP listening on :%d", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// === Wait for signal ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Printf("server: shutting down...")
	case <-gctx.Done():
	}
	cancel()

	shCtx, shCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shCancel()
	_ = hs.Shutdown(shCtx)

	if err := g.Wait(); err != nil {
		log.Printf("server: exit error: %v", err)
	}
}
