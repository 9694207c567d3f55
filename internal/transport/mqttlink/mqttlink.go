// Package mqttlink sends device commands over MQTT to a device bridge and
// completes them when the bridge replies.
//
// Each transport serves one device. Requests are published as
// CommandMessage JSON and correlated with ResponseMessage replies by id.
// A request with no reply inside the timeout completes with ErrTimeout.
package mqttlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-av/internal/dispatch"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/mqtt"
)

// Name is the transport name reported in status snapshots.
const Name = "mqtt"

const (
	defaultQoS     = 1
	defaultTimeout = 10 * time.Second
)

var (
	// ErrTimeout completes a request the bridge never answered.
	ErrTimeout = errors.New("mqttlink: no response from bridge")

	// ErrClosed is returned by Send after Close, and completes requests
	// still outstanding at Close.
	ErrClosed = errors.New("mqttlink: closed")

	// ErrDeviceError wraps an error string reported by the bridge.
	ErrDeviceError = errors.New("mqttlink: device error")
)

// Client is the subset of *mqtt.Client the transport needs.
type Client interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the logging interface used by the transport.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Transport.
type Options struct {
	QoS     byte
	Timeout time.Duration
	Logger  Logger
}

type outstanding struct {
	done  func(dispatch.Result)
	timer *time.Timer
}

// Transport implements dispatch.Transport over MQTT.
//
// Thread Safety: All methods are safe for concurrent use.
type Transport struct {
	client   Client
	deviceID string
	qos      byte
	timeout  time.Duration
	logger   Logger

	commandTopic  string
	responseTopic string

	mu      sync.Mutex
	pending map[string]*outstanding
	closed  bool

	now func() time.Time
}

// New subscribes to the device's response topic and returns a transport.
func New(client Client, deviceID string, opts Options) (*Transport, error) {
	if opts.QoS == 0 {
		opts.QoS = defaultQoS
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	topics := mqtt.Topics{}
	t := &Transport{
		client:        client,
		deviceID:      deviceID,
		qos:           opts.QoS,
		timeout:       opts.Timeout,
		logger:        opts.Logger,
		commandTopic:  topics.Command(deviceID),
		responseTopic: topics.Response(deviceID),
		pending:       make(map[string]*outstanding),
		now:           time.Now,
	}

	if err := client.Subscribe(t.responseTopic, t.qos, t.handleResponse); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", t.responseTopic, err)
	}
	return t, nil
}

// Name implements dispatch.Transport.
func (t *Transport) Name() string { return Name }

// Send publishes the command and registers done for the reply.
func (t *Transport) Send(ctx context.Context, req dispatch.Request, done func(dispatch.Result)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	data, err := json.Marshal(CommandMessage{
		ID:        id,
		DeviceID:  t.deviceID,
		Command:   req.Command.Name,
		Group:     req.Command.Group,
		Polling:   req.Command.IsPolling,
		Payload:   req.Command.Payload,
		Timestamp: t.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	o := &outstanding{done: done}
	o.timer = time.AfterFunc(t.timeout, func() { t.expire(id) })
	t.pending[id] = o
	t.mu.Unlock()

	if err := t.client.Publish(t.commandTopic, data, t.qos, false); err != nil {
		t.take(id)
		return fmt.Errorf("publishing command: %w", err)
	}

	t.logger.Debug("command published", "device_id", t.deviceID, "command", req.Command.Name, "request_id", id)
	return nil
}

// take removes and returns the outstanding request for id.
func (t *Transport) take(id string) *outstanding {
	t.mu.Lock()
	defer t.mu.Unlock()

	o, ok := t.pending[id]
	if !ok {
		return nil
	}
	delete(t.pending, id)
	o.timer.Stop()
	return o
}

func (t *Transport) expire(id string) {
	if o := t.take(id); o != nil {
		t.logger.Warn("bridge did not respond", "device_id", t.deviceID, "request_id", id)
		o.done(dispatch.Result{Err: ErrTimeout})
	}
}

// handleResponse completes the request named in a bridge reply. Replies for
// unknown or expired ids are ignored.
func (t *Transport) handleResponse(_ string, payload []byte) error {
	var msg ResponseMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if msg.ID == "" {
		return errors.New("response without id")
	}

	o := t.take(msg.ID)
	if o == nil {
		t.logger.Debug("response for unknown request", "device_id", t.deviceID, "request_id", msg.ID)
		return nil
	}

	result := dispatch.Result{OK: msg.OK, Response: []byte(msg.Response)}
	if msg.Error != "" {
		result.OK = false
		result.Err = fmt.Errorf("%w: %s", ErrDeviceError, msg.Error)
	}
	o.done(result)
	return nil
}

// Outstanding returns the number of requests awaiting a reply.
func (t *Transport) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close unsubscribes and completes every outstanding request with ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	pending := t.pending
	t.pending = make(map[string]*outstanding)
	t.mu.Unlock()

	for _, o := range pending {
		o.timer.Stop()
		o.done(dispatch.Result{Err: ErrClosed})
	}

	if err := t.client.Unsubscribe(t.responseTopic); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
		return fmt.Errorf("unsubscribing %s: %w", t.responseTopic, err)
	}
	return nil
}
