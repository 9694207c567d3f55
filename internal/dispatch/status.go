package dispatch

import "github.com/nerrad567/gray-logic-av/internal/command"

// QueuedCommand is a command as seen in a status snapshot.
type QueuedCommand struct {
	Name      string           `json:"name"`
	Group     command.Group    `json:"group"`
	Priority  command.Priority `json:"priority"`
	IsPolling bool             `json:"is_polling"`
	RequestID string           `json:"request_id,omitempty"`
}

// Status is a point-in-time view of a dispatcher.
type Status struct {
	DeviceID      string          `json:"device_id"`
	Transport     string          `json:"transport"`
	CanSend       bool            `json:"can_send"`
	DriverLoaded  bool            `json:"driver_loaded"`
	HasPower      bool            `json:"has_power"`
	WarmingUp     bool            `json:"warming_up"`
	CoolingDown   bool            `json:"cooling_down"`
	QueueMode     bool            `json:"queue_mode"`
	QueueCapacity int             `json:"queue_capacity"`
	Pending       *QueuedCommand  `json:"pending,omitempty"`
	Queue         []QueuedCommand `json:"queue"`
}

// Snapshot returns the current status. Queue is in the order Drain would
// consider it.
func (d *Dispatcher) Snapshot() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Status{
		DeviceID:      d.id,
		Transport:     d.transport.Name(),
		CanSend:       d.canSend,
		DriverLoaded:  d.driverLoaded,
		HasPower:      d.hasPower,
		WarmingUp:     d.warmingUp,
		CoolingDown:   d.coolingDown,
		QueueMode:     d.queueMode,
		QueueCapacity: d.queue.Cap(),
		Queue:         make([]QueuedCommand, 0, d.queue.Len()),
	}
	if d.pending != nil {
		p := toQueued(d.pending.cmd)
		p.RequestID = d.pending.id
		s.Pending = &p
	}
	for _, v := range d.queue.Ordered() {
		s.Queue = append(s.Queue, toQueued(v))
	}
	return s
}

func toQueued(cmd *command.Descriptor) QueuedCommand {
	return QueuedCommand{
		Name:      cmd.Name,
		Group:     cmd.Group,
		Priority:  cmd.Priority,
		IsPolling: cmd.IsPolling,
	}
}
