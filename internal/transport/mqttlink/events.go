package mqttlink

import (
	"encoding/json"

	"github.com/nerrad567/gray-logic-av/internal/dispatch"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/mqtt"
)

// Publisher is the publish half of Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// EventPublisher mirrors dispatcher events to graylogic/av/event/{device_id}
// at QoS 0. It implements dispatch.Observer.
type EventPublisher struct {
	client Publisher
	logger Logger
}

// NewEventPublisher returns an observer publishing through client.
func NewEventPublisher(client Publisher, logger Logger) *EventPublisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &EventPublisher{client: client, logger: logger}
}

// OnEvent implements dispatch.Observer.
func (p *EventPublisher) OnEvent(e dispatch.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Warn("encoding event", "error", err)
		return
	}
	if err := p.client.Publish(mqtt.Topics{}.Event(e.DeviceID), data, 0, false); err != nil {
		p.logger.Debug("event not published", "device_id", e.DeviceID, "type", string(e.Type), "error", err)
	}
}
