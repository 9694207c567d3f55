package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-av/internal/command"
	"github.com/nerrad567/gray-logic-av/internal/gating"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-av/internal/queue"
)

// Dispatcher defaults.
const (
	defaultQueueCapacity   = 32
	defaultTickInterval    = 250 * time.Millisecond
	defaultResponseTimeout = 5 * time.Second
)

// Options configures a Dispatcher.
type Options struct {
	// DeviceID identifies the device. Required.
	DeviceID string

	// Table is the device's command vocabulary. Required.
	Table *command.Table

	// Transport delivers commands. Required.
	Transport Transport

	// QueueMode selects the queued flow with one outstanding request.
	QueueMode bool

	// QueueCapacity bounds the command queue. Zero uses the default.
	QueueCapacity int

	// SupportsLocalTimer enables local warm-up and cool-down timers.
	SupportsLocalTimer bool

	// Warmup and Cooldown are the local transition windows.
	Warmup   time.Duration
	Cooldown time.Duration

	// TickInterval is how often the queue is re-evaluated.
	TickInterval time.Duration

	// ResponseTimeout clears a pending request that never completes.
	ResponseTimeout time.Duration

	// PollInterval submits the table's power poll command periodically.
	// Zero disables polling.
	PollInterval time.Duration

	// PowerOnResponse and PowerOffResponse are matched against power poll
	// replies to learn the device's power state. Empty disables matching.
	PowerOnResponse  []byte
	PowerOffResponse []byte

	// InitialPower seeds the power state.
	InitialPower bool

	Observer Observer
	Logger   *logging.Logger
}

// pendingRequest is the single in-flight command.
type pendingRequest struct {
	id     string
	cmd    *command.Descriptor
	sentAt time.Time
}

// Dispatcher owns one device's runtime state, command queue and transport.
// Every submitted command is run through gating.Decide and then sent, queued
// or dropped. Queued commands are re-evaluated on every tick and whenever a
// request completes.
//
// Thread Safety: All methods are safe for concurrent use.
type Dispatcher struct {
	id        string
	table     *command.Table
	transport Transport
	observer  Observer
	logger    *logging.Logger

	queueMode          bool
	supportsLocalTimer bool
	warmup             time.Duration
	cooldown           time.Duration
	tickInterval       time.Duration
	responseTimeout    time.Duration
	pollInterval       time.Duration
	powerOnResponse    []byte
	powerOffResponse   []byte

	mu           sync.Mutex
	canSend      bool
	driverLoaded bool
	hasPower     bool
	warmingUp    bool
	coolingDown  bool
	pending      *pendingRequest
	queue        *queue.Queue[*command.Descriptor]
	seq          queue.Sequence
	timer        *time.Timer
	closed       bool

	kick chan struct{}
	now  func() time.Time
}

// New creates a dispatcher for one device.
func New(opts Options) (*Dispatcher, error) {
	if opts.DeviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidOptions)
	}
	if opts.Table == nil {
		return nil, fmt.Errorf("%w: command table is required", ErrInvalidOptions)
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrInvalidOptions)
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = defaultQueueCapacity
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = defaultResponseTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	return &Dispatcher{
		id:                 opts.DeviceID,
		table:              opts.Table,
		transport:          opts.Transport,
		observer:           opts.Observer,
		logger:             opts.Logger.ForDevice("dispatch", opts.DeviceID),
		queueMode:          opts.QueueMode,
		supportsLocalTimer: opts.SupportsLocalTimer,
		warmup:             opts.Warmup,
		cooldown:           opts.Cooldown,
		tickInterval:       opts.TickInterval,
		responseTimeout:    opts.ResponseTimeout,
		pollInterval:       opts.PollInterval,
		powerOnResponse:    opts.PowerOnResponse,
		powerOffResponse:   opts.PowerOffResponse,
		canSend:            true,
		driverLoaded:       true,
		hasPower:           opts.InitialPower,
		queue:              queue.New[*command.Descriptor](opts.QueueCapacity),
		kick:               make(chan struct{}, 1),
		now:                time.Now,
	}, nil
}

// DeviceID returns the device this dispatcher drives.
func (d *Dispatcher) DeviceID() string { return d.id }

// Table returns the device's command table.
func (d *Dispatcher) Table() *command.Table { return d.table }

// Outcome is the result of a submission.
type Outcome struct {
	// Decision is the gating decision, including any priority override.
	Decision gating.Decision

	// RequestID is set when the command went to the transport.
	RequestID string

	// Priority is the priority the command carried after the decision.
	Priority command.Priority

	// Overflow is true when the decision was to queue but the queue was full.
	Overflow bool
}

// Submit looks up name in the command table and submits a copy of it.
func (d *Dispatcher) Submit(ctx context.Context, name string) (Outcome, error) {
	cmd, err := d.table.Get(name)
	if err != nil {
		return Outcome{}, err
	}
	return d.SubmitDescriptor(ctx, cmd)
}

// SubmitDescriptor gates cmd and sends, queues or drops it. The dispatcher
// takes ownership of cmd.
func (d *Dispatcher) SubmitDescriptor(ctx context.Context, cmd *command.Descriptor) (Outcome, error) {
	if cmd == nil {
		return Outcome{}, fmt.Errorf("%w: nil descriptor", command.ErrInvalidCommand)
	}

	var events []Event

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Outcome{}, ErrClosed
	}

	d.attachTimerLocked(cmd)
	decision := gating.Decide(d.stateLocked(), cmd)
	decision.Apply(cmd)

	out := Outcome{Decision: decision, Priority: cmd.Priority}

	switch {
	case decision.SendToTransport:
		out.RequestID = d.markPendingLocked(cmd)
		events = append(events, d.eventLocked(EventSent, cmd, decision.Reason, out.RequestID))
	case decision.SendToQueue:
		if d.queue.Add(cmd, int(cmd.Priority), d.seq.Next()) {
			events = append(events, d.eventLocked(EventQueued, cmd, decision.Reason, ""))
		} else {
			out.Overflow = true
			events = append(events, d.eventLocked(EventQueueOverflow, cmd, decision.Reason, ""))
		}
	default:
		events = append(events, d.eventLocked(EventDropped, cmd, decision.Reason, ""))
	}
	d.mu.Unlock()

	d.logDecision(cmd, out)
	d.emit(events...)

	if decision.SendToTransport {
		d.transmit(ctx, out.RequestID, cmd)
	}
	return out, nil
}

func (d *Dispatcher) logDecision(cmd *command.Descriptor, out Outcome) {
	switch {
	case out.Overflow:
		d.logger.Warn("queue full, command ignored",
			"command", cmd.Name, "priority", cmd.Priority.String())
	case out.Decision.Dropped():
		d.logger.Info("command dropped",
			"command", cmd.Name, "reason", string(out.Decision.Reason))
	default:
		d.logger.Debug("command accepted",
			"command", cmd.Name,
			"reason", string(out.Decision.Reason),
			"queued", out.Decision.SendToQueue,
			"priority", cmd.Priority.String())
	}
}

// attachTimerLocked runs the warm-up/cool-down arbiter for power commands.
func (d *Dispatcher) attachTimerLocked(cmd *command.Descriptor) {
	ts := gating.TimerState{
		SupportsLocalTimer: d.supportsLocalTimer,
		HasPower:           d.hasPower,
	}
	switch d.table.Role(cmd.Name) {
	case command.RolePowerOn:
		ts.Callback = d.warmupElapsed
		gating.HandleWarmupCallback(ts, cmd)
	case command.RolePowerOff:
		ts.Callback = d.cooldownElapsed
		gating.HandleCooldownCallback(ts, cmd)
	default:
		cmd.Callback = nil
	}
}

func (d *Dispatcher) stateLocked() *gating.State {
	var pending *command.Descriptor
	if d.pending != nil {
		pending = d.pending.cmd
	}
	return &gating.State{
		CanSendCommands:  d.canSend,
		HasPower:         d.hasPower,
		WarmingUp:        d.warmingUp,
		CoolingDown:      d.coolingDown,
		DriverLoaded:     d.driverLoaded,
		QueueModeEnabled: d.queueMode,
		PendingRequest:   pending,
	}
}

func (d *Dispatcher) markPendingLocked(cmd *command.Descriptor) string {
	id := uuid.NewString()
	d.pending = &pendingRequest{id: id, cmd: cmd, sentAt: d.now()}
	return id
}

// transmit hands cmd to the transport. It must be called without d.mu held.
func (d *Dispatcher) transmit(ctx context.Context, id string, cmd *command.Descriptor) {
	req := Request{ID: id, DeviceID: d.id, Command: cmd}
	var once sync.Once
	done := func(r Result) {
		once.Do(func() { d.complete(id, cmd, r) })
	}
	if err := d.transport.Send(ctx, req, done); err != nil {
		done(Result{Err: err})
	}
}

// complete records the result of a transport send.
func (d *Dispatcher) complete(id string, cmd *command.Descriptor, r Result) {
	var events []Event

	d.mu.Lock()
	if d.pending != nil && d.pending.id == id {
		d.pending = nil
	}

	if r.OK && r.Err == nil {
		events = append(events, d.applyResultLocked(cmd, r.Response)...)
		events = append(events, d.eventLocked(EventCompleted, cmd, "", id))
	} else {
		err := r.Err
		if err == nil {
			err = fmt.Errorf("dispatch: %s rejected by device", cmd.Name)
		}
		e := d.eventLocked(EventFailed, cmd, "", id)
		e.Error = err.Error()
		events = append(events, e)
	}
	d.mu.Unlock()

	if !r.OK || r.Err != nil {
		d.logger.Warn("command failed", "command", cmd.Name, "request_id", id, "error", events[len(events)-1].Error)
	}
	d.emit(events...)
	d.signal()
}

// applyResultLocked updates power and transition state after a successful
// send.
func (d *Dispatcher) applyResultLocked(cmd *command.Descriptor, response []byte) []Event {
	var events []Event

	switch d.table.Role(cmd.Name) {
	case command.RolePowerOn:
		if d.hasPower {
			return nil
		}
		d.hasPower = true
		d.coolingDown = false
		events = append(events, d.eventLocked(EventPowerChanged, cmd, "", ""))
		if cmd.Callback != nil && d.warmup > 0 {
			d.warmingUp = true
			d.startTimerLocked(d.warmup, cmd.Callback, cmd.Name)
			events = append(events, d.eventLocked(EventWarmupStarted, cmd, "", ""))
		}
	case command.RolePowerOff:
		if !d.hasPower {
			return nil
		}
		d.hasPower = false
		d.warmingUp = false
		events = append(events, d.eventLocked(EventPowerChanged, cmd, "", ""))
		if cmd.Callback != nil && d.cooldown > 0 {
			d.coolingDown = true
			d.startTimerLocked(d.cooldown, cmd.Callback, cmd.Name)
			events = append(events, d.eventLocked(EventCooldownStarted, cmd, "", ""))
		}
	default:
		if cmd.Group == command.GroupPower && cmd.IsPolling && len(response) > 0 {
			if power, ok := d.matchPower(response); ok && power != d.hasPower {
				d.hasPower = power
				events = append(events, d.eventLocked(EventPowerChanged, cmd, "", ""))
			}
		}
	}
	return events
}

func (d *Dispatcher) matchPower(response []byte) (power, ok bool) {
	switch {
	case len(d.powerOnResponse) > 0 && bytes.Contains(response, d.powerOnResponse):
		return true, true
	case len(d.powerOffResponse) > 0 && bytes.Contains(response, d.powerOffResponse):
		return false, true
	default:
		return false, false
	}
}

func (d *Dispatcher) startTimerLocked(after time.Duration, cb command.Callback, name string) {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(after, func() { cb(name) })
}

// warmupElapsed is the local warm-up timer callback.
func (d *Dispatcher) warmupElapsed(name string) {
	d.mu.Lock()
	if !d.warmingUp {
		d.mu.Unlock()
		return
	}
	d.warmingUp = false
	e := d.eventLocked(EventWarmupFinished, &command.Descriptor{Name: name}, "", "")
	d.mu.Unlock()

	d.logger.Info("warm-up finished", "command", name)
	d.emit(e)
	d.signal()
}

// cooldownElapsed is the local cool-down timer callback.
func (d *Dispatcher) cooldownElapsed(name string) {
	d.mu.Lock()
	if !d.coolingDown {
		d.mu.Unlock()
		return
	}
	d.coolingDown = false
	e := d.eventLocked(EventCooldownFinished, &command.Descriptor{Name: name}, "", "")
	d.mu.Unlock()

	d.logger.Info("cool-down finished", "command", name)
	d.emit(e)
	d.signal()
}

// signal wakes Run without waiting for the next tick.
func (d *Dispatcher) signal() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run re-evaluates the queue on every tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	var pollC <-chan time.Time
	pollName, canPoll := d.table.PollCommand()
	if d.pollInterval > 0 && canPoll {
		poll := time.NewTicker(d.pollInterval)
		defer poll.Stop()
		pollC = poll.C
	}

	d.logger.Info("dispatcher started",
		"transport", d.transport.Name(),
		"queue_mode", d.queueMode,
		"queue_capacity", d.queue.Cap(),
		"poll_interval", d.pollInterval)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return nil
		case <-ticker.C:
			d.expirePending()
			d.Drain(ctx)
		case <-d.kick:
			d.Drain(ctx)
		case <-pollC:
			if _, err := d.Submit(ctx, pollName); err != nil {
				d.logger.Warn("power poll failed", "command", pollName, "error", err)
			}
		}
	}
}

// Drain re-evaluates queued commands in priority order. It stops at the
// first command that is sent or must stay queued, dropping any before it
// that are no longer allowed. A command that must stay queued keeps its
// place.
func (d *Dispatcher) Drain(ctx context.Context) {
	for {
		var events []Event

		d.mu.Lock()
		if d.closed || d.queue.Len() == 0 {
			d.mu.Unlock()
			return
		}
		head, err := d.queue.Peek()
		if err != nil {
			d.mu.Unlock()
			return
		}

		decision := gating.Decide(d.stateLocked(), head)
		if decision.SendToQueue {
			// Still blocked; it keeps its place.
			d.mu.Unlock()
			return
		}

		cmd, _ := d.queue.ExtractMin()
		decision.Apply(cmd)

		var id string
		if decision.SendToTransport {
			// Power state may have changed since the command was queued.
			d.attachTimerLocked(cmd)
			id = d.markPendingLocked(cmd)
			events = append(events, d.eventLocked(EventSent, cmd, decision.Reason, id))
		} else {
			events = append(events, d.eventLocked(EventDropped, cmd, decision.Reason, ""))
		}
		d.mu.Unlock()

		d.emit(events...)
		if decision.SendToTransport {
			d.logger.Debug("queued command sent", "command", cmd.Name, "request_id", id)
			d.transmit(ctx, id, cmd)
			return
		}
		d.logger.Info("queued command dropped", "command", cmd.Name, "reason", string(decision.Reason))
	}
}

// expirePending clears a pending request older than the response timeout.
func (d *Dispatcher) expirePending() {
	d.mu.Lock()
	p := d.pending
	if p == nil || d.now().Sub(p.sentAt) < d.responseTimeout {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	e := d.eventLocked(EventFailed, p.cmd, "", p.id)
	e.Error = ErrResponseTimeout.Error()
	d.mu.Unlock()

	d.logger.Warn("response timeout", "command", p.cmd.Name, "request_id", p.id)
	d.emit(e)
}

// RemoveQueued withdraws the queued command named name that would be sent
// first: the most urgent, and among equals the oldest.
func (d *Dispatcher) RemoveQueued(name string) error {
	d.mu.Lock()
	index, ok := d.queue.Find(func(v *command.Descriptor) bool { return v.Name == name })
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotQueued, name)
	}
	cmd, err := d.queue.RemoveAt(index)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	e := d.eventLocked(EventWithdrawn, cmd, "", "")
	d.mu.Unlock()

	d.emit(e)
	return nil
}

// ClearQueue drops every queued command and returns how many were removed.
func (d *Dispatcher) ClearQueue() int {
	d.mu.Lock()
	values := d.queue.Values()
	d.queue.Clear()
	events := make([]Event, 0, len(values))
	for _, v := range values {
		events = append(events, d.eventLocked(EventWithdrawn, v, "", ""))
	}
	d.mu.Unlock()

	d.emit(events...)
	return len(values)
}

// SetCanSend toggles the global send permission.
func (d *Dispatcher) SetCanSend(v bool) {
	d.mu.Lock()
	d.canSend = v
	d.mu.Unlock()
	d.signal()
}

// SetDriverLoaded marks the driver as resolved or not.
func (d *Dispatcher) SetDriverLoaded(v bool) {
	d.mu.Lock()
	d.driverLoaded = v
	d.mu.Unlock()
	d.signal()
}

// SetPower records a power state reported from outside the dispatcher, for
// example by a status feed.
func (d *Dispatcher) SetPower(v bool) {
	d.mu.Lock()
	if d.hasPower == v {
		d.mu.Unlock()
		return
	}
	d.hasPower = v
	e := d.eventLocked(EventPowerChanged, nil, "", "")
	d.mu.Unlock()

	d.emit(e)
	d.signal()
}

// Close stops timers and closes the transport. Further submissions fail
// with ErrClosed.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	return d.transport.Close()
}

func (d *Dispatcher) eventLocked(t EventType, cmd *command.Descriptor, reason gating.Reason, requestID string) Event {
	e := Event{
		Type:      t,
		DeviceID:  d.id,
		RequestID: requestID,
		Reason:    reason,
		QueueLen:  d.queue.Len(),
		HasPower:  d.hasPower,
		Time:      d.now().UTC(),
	}
	if cmd != nil {
		e.Command = cmd.Name
		e.Priority = cmd.Priority
	}
	return e
}

func (d *Dispatcher) emit(events ...Event) {
	if d.observer == nil {
		return
	}
	for _, e := range events {
		d.observer.OnEvent(e)
	}
}
