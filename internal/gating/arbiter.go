package gating

import "github.com/nerrad567/gray-logic-av/internal/command"

// TimerState is the input to the warm-up/cool-down arbiter.
type TimerState struct {
	// SupportsLocalTimer is true when the driver times transitions itself
	// instead of polling the device.
	SupportsLocalTimer bool

	// HasPower is the power state before the command is sent.
	HasPower bool

	// Callback is the hook to attach. A nil callback is never attached.
	Callback command.Callback
}

// HandleWarmupCallback attaches state.Callback to cmd when a local warm-up
// timer applies: the driver supports local timers and the device is off.
// Otherwise it clears cmd.Callback. It reports whether a callback is attached.
func HandleWarmupCallback(state TimerState, cmd *command.Descriptor) bool {
	return attach(state.SupportsLocalTimer && !state.HasPower, state.Callback, cmd)
}

// HandleCooldownCallback attaches state.Callback to cmd when a local
// cool-down timer applies: the driver supports local timers and the device
// is on. Otherwise it clears cmd.Callback. It reports whether a callback is
// attached.
func HandleCooldownCallback(state TimerState, cmd *command.Descriptor) bool {
	return attach(state.SupportsLocalTimer && state.HasPower, state.Callback, cmd)
}

func attach(applies bool, cb command.Callback, cmd *command.Descriptor) bool {
	if applies && cb != nil {
		cmd.Callback = cb
		return true
	}
	cmd.Callback = nil
	return false
}
