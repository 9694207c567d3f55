package dispatch

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/command"
	"github.com/nerrad567/gray-logic-av/internal/gating"
)

// Request is one command handed to a transport.
type Request struct {
	// ID correlates the request with its asynchronous result.
	ID string

	// DeviceID is the target device.
	DeviceID string

	// Command is the dispatcher's private copy of the descriptor.
	// Transports must treat it as read-only.
	Command *command.Descriptor
}

// Result is the asynchronous outcome of a transport send.
type Result struct {
	OK       bool
	Err      error
	Response []byte
}

// Transport delivers commands to a physical device.
//
// Send must not block on the device. It returns an error only when the
// request could not be started; otherwise done is called exactly once, from
// any goroutine, possibly before Send returns.
type Transport interface {
	Name() string
	Send(ctx context.Context, req Request, done func(Result)) error
	Close() error
}

// EventType classifies dispatcher events.
type EventType string

// Dispatcher event types.
const (
	EventSent             EventType = "sent"
	EventQueued           EventType = "queued"
	EventDropped          EventType = "dropped"
	EventQueueOverflow    EventType = "queue_overflow"
	EventWithdrawn        EventType = "withdrawn"
	EventCompleted        EventType = "completed"
	EventFailed           EventType = "failed"
	EventPowerChanged     EventType = "power_changed"
	EventWarmupStarted    EventType = "warmup_started"
	EventWarmupFinished   EventType = "warmup_finished"
	EventCooldownStarted  EventType = "cooldown_started"
	EventCooldownFinished EventType = "cooldown_finished"
)

// Event describes something the dispatcher did. Fields that do not apply to
// a type are left zero.
type Event struct {
	Type      EventType        `json:"type"`
	DeviceID  string           `json:"device_id"`
	RequestID string           `json:"request_id,omitempty"`
	Command   string           `json:"command,omitempty"`
	Priority  command.Priority `json:"priority"`
	Reason    gating.Reason    `json:"reason,omitempty"`
	QueueLen  int              `json:"queue_len"`
	HasPower  bool             `json:"has_power"`
	Error     string           `json:"error,omitempty"`
	Time      time.Time        `json:"time"`
}

// Observer receives dispatcher events. OnEvent is called without any
// dispatcher lock held and must not block for long.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

// OnEvent implements Observer.
func (m MultiObserver) OnEvent(e Event) {
	for _, o := range m {
		if o != nil {
			o.OnEvent(e)
		}
	}
}
