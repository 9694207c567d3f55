package command

import (
	"errors"
	"testing"
)

func testEntries() []Entry {
	return []Entry{
		{Descriptor: Descriptor{Name: "PowerOn", Group: GroupPower, Priority: PriorityHigh, Payload: []byte("PWR01")}, Role: RolePowerOn},
		{Descriptor: Descriptor{Name: "PowerOff", Group: GroupPower, Priority: PriorityHigh, Payload: []byte("PWR00")}, Role: RolePowerOff},
		{Descriptor: Descriptor{Name: "PowerPoll", Group: GroupPower, Priority: PriorityLow, IsPolling: true}},
		{Descriptor: Descriptor{Name: "Hdmi1", Group: GroupInput, Priority: PriorityNormal}},
	}
}

func TestNewTable(t *testing.T) {
	table, err := NewTable(testEntries())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	if table.Len() != 4 {
		t.Errorf("Len() = %d, want 4", table.Len())
	}

	names := table.Names()
	want := []string{"Hdmi1", "PowerOff", "PowerOn", "PowerPoll"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if table.Role("PowerOn") != RolePowerOn {
		t.Errorf("Role(PowerOn) = %q", table.Role("PowerOn"))
	}
	if table.Role("Hdmi1") != RoleNone {
		t.Errorf("Role(Hdmi1) = %q", table.Role("Hdmi1"))
	}

	poll, ok := table.PollCommand()
	if !ok || poll != "PowerPoll" {
		t.Errorf("PollCommand() = %q, %v", poll, ok)
	}
}

func TestNewTable_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr error
	}{
		{
			name:    "empty name",
			entries: []Entry{{Descriptor: Descriptor{Group: GroupPower}}},
			wantErr: ErrInvalidCommand,
		},
		{
			name: "duplicate",
			entries: []Entry{
				{Descriptor: Descriptor{Name: "A", Group: GroupOther}},
				{Descriptor: Descriptor{Name: "A", Group: GroupOther}},
			},
			wantErr: ErrDuplicateCommand,
		},
		{
			name:    "unknown group",
			entries: []Entry{{Descriptor: Descriptor{Name: "A", Group: "lasers"}}},
			wantErr: ErrInvalidCommand,
		},
		{
			name:    "bad priority",
			entries: []Entry{{Descriptor: Descriptor{Name: "A", Group: GroupOther, Priority: 9}}},
			wantErr: ErrInvalidPriority,
		},
		{
			name:    "power role on input",
			entries: []Entry{{Descriptor: Descriptor{Name: "A", Group: GroupInput}, Role: RolePowerOn}},
			wantErr: ErrInvalidCommand,
		},
		{
			name:    "unknown role",
			entries: []Entry{{Descriptor: Descriptor{Name: "A", Group: GroupPower}, Role: "reboot"}},
			wantErr: ErrInvalidCommand,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.entries)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewTable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTable_GetReturnsClone(t *testing.T) {
	table, err := NewTable(testEntries())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	first, err := table.Get("Hdmi1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	first.Priority = PriorityHighest
	first.Callback = func(string) {}

	second, err := table.Get("Hdmi1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if second.Priority != PriorityNormal {
		t.Errorf("Priority = %v, want normal (table must not be mutated)", second.Priority)
	}
	if second.Callback != nil {
		t.Error("Callback leaked into table")
	}
}

func TestTable_GetUnknown(t *testing.T) {
	table, err := NewTable(testEntries())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	if _, err := table.Get("Eject"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Get(Eject) error = %v, want ErrUnknownCommand", err)
	}
	if table.Has("Eject") {
		t.Error("Has(Eject) = true")
	}
}

func TestTable_DoesNotKeepCallerPayload(t *testing.T) {
	entries := testEntries()
	table, err := NewTable(entries)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	entries[0].Descriptor.Payload[0] = 'X'

	d, _ := table.Get("PowerOn")
	if string(d.Payload) != "PWR01" {
		t.Errorf("Payload = %q, want PWR01", d.Payload)
	}
}
