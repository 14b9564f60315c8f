package mqttbus

import (
	"context"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IConsumer subscribes a set of topic filters and funnels every delivery into
// a single handler. Handler errors are logged, never propagated to paho.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	Subscribe()
	SetHandler(handler func(topic string, message mqtt.Message) error)
}

// qosFor: the AI publishes forecasts and schedules at QoS 1 (redeliveries are
// possible, the ingestors dedup by payload hash); telemetry and heartbeats
// stay at QoS 0.
func qosFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "ai/forecast") ||
		strings.HasPrefix(t, "ai/schedule") {
		return 1
	}
	return 0
}

type MultiConsumer struct {
	client  mqtt.Client
	topics  []string
	handler func(topic string, message mqtt.Message) error
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler func(topic string, message mqtt.Message) error) *MultiConsumer {
	return &MultiConsumer{
		client:  client,
		topics:  topics,
		handler: handler,
	}
}

func (m *MultiConsumer) SetHandler(handler func(topic string, message mqtt.Message) error) {
	m.handler = handler
}

// Subscribe issues all subscriptions. Safe to call again from an OnConnect
// handler: a clean-session reconnect forgets server-side state, so the
// subscriptions have to be re-issued every time the link comes back.
func (m *MultiConsumer) Subscribe() {
	for _, topic := range m.topics {
		topic := topic
		token := m.client.Subscribe(
			topic,
			qosFor(topic),
			func(_ mqtt.Client, msg mqtt.Message) {
				if m.handler == nil {
					log.Printf("mqttbus: no handler set for topic %s", topic)
					return
				}
				if err := m.handler(msg.Topic(), msg); err != nil {
					log.Printf("mqttbus: error handling message on %s: %v", msg.Topic(), err)
				}
			},
		)
		token.Wait()
		if token.Error() != nil {
			log.Printf("mqttbus: error subscribing to topic %s: %v", topic, token.Error())
		} else {
			log.Printf("mqttbus: subscribed to topic %s", topic)
		}
	}
}

// ConsumeMessage subscribes and blocks until the context is cancelled.
func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	m.Subscribe()

	<-ctx.Done()

	for _, topic := range m.topics {
		m.client.Unsubscribe(topic)
	}
}
