package gating

import (
	"github.com/nerrad567/gray-logic-av/internal/command"
)

// State is a snapshot of a device's runtime state taken for one decision.
type State struct {
	// CanSendCommands is the global send permission for the device.
	CanSendCommands bool

	// HasPower is the last known power state.
	HasPower bool

	// WarmingUp is true while the device is inside its power-on window.
	WarmingUp bool

	// CoolingDown is true while the device is inside its power-off window.
	CoolingDown bool

	// DriverLoaded is false until the device's driver has been resolved.
	DriverLoaded bool

	// QueueModeEnabled selects the queued, one-outstanding-request flow.
	QueueModeEnabled bool

	// PendingRequest is the single in-flight command, or nil.
	PendingRequest *command.Descriptor
}

// Reason names the rule that produced a decision.
type Reason string

// Decision reasons, one per terminal branch of the decision table.
const (
	ReasonNotLoaded       Reason = "not_loaded"
	ReasonSendBlocked     Reason = "send_blocked"
	ReasonPowerOverride   Reason = "power_override"
	ReasonDirect          Reason = "direct"
	ReasonUnpowered       Reason = "unpowered"
	ReasonTransitionPoll  Reason = "transition_poll"
	ReasonWarmupInput     Reason = "warmup_input"
	ReasonWarmupBlocked   Reason = "warmup_blocked"
	ReasonCooldownBlocked Reason = "cooldown_blocked"
	ReasonIdle            Reason = "idle"
	ReasonBusy            Reason = "busy"
)

// Decision is the outcome for one command. SendToTransport and SendToQueue
// are never both true; both false means the command is dropped.
type Decision struct {
	SendToTransport bool
	SendToQueue     bool

	// Priority, when non-nil, is the priority the command must carry before
	// it is queued.
	Priority *command.Priority

	Reason Reason
}

// Dropped reports whether the command is neither sent nor queued.
func (d Decision) Dropped() bool {
	return !d.SendToTransport && !d.SendToQueue
}

// Apply writes any priority override into cmd. It is a no-op when the
// decision carries no override.
func (d Decision) Apply(cmd *command.Descriptor) {
	if d.Priority != nil && cmd != nil {
		cmd.Priority = *d.Priority
	}
}

func send(reason Reason) Decision {
	return Decision{SendToTransport: true, Reason: reason}
}

func enqueue(reason Reason) Decision {
	return Decision{SendToQueue: true, Reason: reason}
}

func drop(reason Reason) Decision {
	return Decision{Reason: reason}
}

// escalate queues a command at the highest priority.
func escalate(reason Reason) Decision {
	p := command.PriorityHighest
	return Decision{SendToQueue: true, Priority: &p, Reason: reason}
}

// Decide returns the gating decision for cmd given state.
//
// A nil state is treated as a driver that is not loaded. cmd must not be nil.
func Decide(state *State, cmd *command.Descriptor) Decision {
	if state == nil || !state.DriverLoaded {
		return drop(ReasonNotLoaded)
	}

	isPower := cmd.IsPower()

	if !state.CanSendCommands {
		if isPower {
			return send(ReasonPowerOverride)
		}
		return drop(ReasonSendBlocked)
	}

	if !state.QueueModeEnabled {
		if state.HasPower || isPower {
			return send(ReasonDirect)
		}
		return drop(ReasonUnpowered)
	}

	if (state.WarmingUp || state.CoolingDown) && isPower && cmd.IsPolling {
		return send(ReasonTransitionPoll)
	}

	switch {
	case state.WarmingUp:
		// Identical for powered and unpowered devices.
		return decideWarmup(cmd)
	case state.CoolingDown:
		return drop(ReasonCooldownBlocked)
	case state.HasPower:
		if state.PendingRequest == nil {
			return send(ReasonIdle)
		}
		return enqueue(ReasonBusy)
	case isPower:
		return send(ReasonIdle)
	default:
		return drop(ReasonUnpowered)
	}
}

// decideWarmup lets non-polling input selections through to the queue at
// the highest priority so they run as soon as the device is ready.
func decideWarmup(cmd *command.Descriptor) Decision {
	if cmd.Group == command.GroupInput && !cmd.IsPolling {
		return escalate(ReasonWarmupInput)
	}
	return drop(ReasonWarmupBlocked)
}
