package gating

import (
	"testing"

	"github.com/nerrad567/gray-logic-av/internal/command"
)

func TestHandleWarmupCallback(t *testing.T) {
	called := ""
	cb := func(name string) { called = name }

	tests := []struct {
		name         string
		state        TimerState
		wantAttached bool
	}{
		{name: "local timer, unpowered", state: TimerState{SupportsLocalTimer: true, HasPower: false, Callback: cb}, wantAttached: true},
		{name: "local timer, powered", state: TimerState{SupportsLocalTimer: true, HasPower: true, Callback: cb}},
		{name: "no local timer", state: TimerState{SupportsLocalTimer: false, HasPower: false, Callback: cb}},
		{name: "nil callback", state: TimerState{SupportsLocalTimer: true, HasPower: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := powerOn()
			// A stale callback must always be replaced or cleared.
			cmd.Callback = func(string) { t.Error("stale callback invoked") }

			got := HandleWarmupCallback(tt.state, cmd)
			if got != tt.wantAttached {
				t.Fatalf("HandleWarmupCallback() = %v, want %v", got, tt.wantAttached)
			}
			if (cmd.Callback != nil) != tt.wantAttached {
				t.Fatalf("Callback set = %v, want %v", cmd.Callback != nil, tt.wantAttached)
			}
			if tt.wantAttached {
				cmd.Callback("PowerOn")
				if called != "PowerOn" {
					t.Errorf("attached callback not the state callback")
				}
			}
		})
	}
}

func TestHandleCooldownCallback(t *testing.T) {
	cb := func(string) {}

	tests := []struct {
		name         string
		state        TimerState
		wantAttached bool
	}{
		{name: "local timer, powered", state: TimerState{SupportsLocalTimer: true, HasPower: true, Callback: cb}, wantAttached: true},
		{name: "local timer, unpowered", state: TimerState{SupportsLocalTimer: true, HasPower: false, Callback: cb}},
		{name: "no local timer", state: TimerState{SupportsLocalTimer: false, HasPower: true, Callback: cb}},
		{name: "nil callback", state: TimerState{SupportsLocalTimer: true, HasPower: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := powerOff()
			got := HandleCooldownCallback(tt.state, cmd)
			if got != tt.wantAttached {
				t.Fatalf("HandleCooldownCallback() = %v, want %v", got, tt.wantAttached)
			}
			if (cmd.Callback != nil) != tt.wantAttached {
				t.Fatalf("Callback set = %v, want %v", cmd.Callback != nil, tt.wantAttached)
			}
		})
	}
}

func TestArbiter_IsIdempotent(t *testing.T) {
	cb := func(string) {}
	cmd := &command.Descriptor{Name: "PowerOn", Group: command.GroupPower}

	on := TimerState{SupportsLocalTimer: true, HasPower: false, Callback: cb}
	off := TimerState{SupportsLocalTimer: true, HasPower: true, Callback: cb}

	if !HandleWarmupCallback(on, cmd) || !HandleWarmupCallback(on, cmd) {
		t.Fatal("repeated warmup call should stay attached")
	}
	if HandleWarmupCallback(off, cmd) {
		t.Fatal("warmup should detach once the device is powered")
	}
	if cmd.Callback != nil {
		t.Fatal("callback not cleared")
	}
}
