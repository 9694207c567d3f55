package command

import (
	"fmt"
	"sort"
)

// Role marks commands whose successful delivery changes the device power
// state. The dispatcher uses it to drive warm-up and cool-down.
type Role string

// Command roles.
const (
	RoleNone     Role = ""
	RolePowerOn  Role = "power_on"
	RolePowerOff Role = "power_off"
)

// Entry pairs a descriptor with its role when building a Table.
type Entry struct {
	Descriptor Descriptor
	Role       Role
}

// Table is an immutable, name-keyed set of command descriptors for one
// device. It is built once when a driver is loaded and shared read-only
// between the dispatcher and the API.
type Table struct {
	byName map[string]Entry
	names  []string
}

// NewTable builds a Table from entries.
//
// It rejects empty names, duplicate names, unknown groups, invalid
// priorities and roles attached to non-power commands.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{
		byName: make(map[string]Entry, len(entries)),
		names:  make([]string, 0, len(entries)),
	}

	for _, e := range entries {
		d := e.Descriptor
		if d.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidCommand)
		}
		if _, exists := t.byName[d.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCommand, d.Name)
		}
		if !d.Group.Valid() {
			return nil, fmt.Errorf("%w: %s has group %q", ErrInvalidCommand, d.Name, d.Group)
		}
		if !d.Priority.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPriority, d.Name)
		}
		switch e.Role {
		case RoleNone:
		case RolePowerOn, RolePowerOff:
			if d.Group != GroupPower {
				return nil, fmt.Errorf("%w: %s has role %s outside the power group", ErrInvalidCommand, d.Name, e.Role)
			}
		default:
			return nil, fmt.Errorf("%w: %s has unknown role %q", ErrInvalidCommand, d.Name, e.Role)
		}

		// Keep our own copy of the payload and never store callbacks.
		stored := *d.Clone()
		stored.Callback = nil
		t.byName[d.Name] = Entry{Descriptor: stored, Role: e.Role}
		t.names = append(t.names, d.Name)
	}

	sort.Strings(t.names)
	return t, nil
}

// Get returns a fresh clone of the named descriptor.
func (t *Table) Get(name string) (*Descriptor, error) {
	e, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return e.Descriptor.Clone(), nil
}

// Role returns the power role of the named command, or RoleNone.
func (t *Table) Role(name string) Role {
	return t.byName[name].Role
}

// Has reports whether the table contains the named command.
func (t *Table) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Names returns the command names in sorted order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Len returns the number of commands.
func (t *Table) Len() int {
	return len(t.names)
}

// Descriptors returns clones of every descriptor in name order.
func (t *Table) Descriptors() []*Descriptor {
	out := make([]*Descriptor, 0, len(t.names))
	for _, name := range t.names {
		d := t.byName[name].Descriptor
		out = append(out, d.Clone())
	}
	return out
}

// PollCommand returns the first polling command in the power group, if any.
// Drivers use it to refresh power state during transitions.
func (t *Table) PollCommand() (string, bool) {
	for _, name := range t.names {
		d := t.byName[name].Descriptor
		if d.Group == GroupPower && d.IsPolling {
			return name, true
		}
	}
	return "", false
}
