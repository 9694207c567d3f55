package command

import (
	"fmt"
	"strings"
)

// Group is the coarse classification of a command used by the gating rules.
type Group string

// Command groups. Only GroupPower and GroupInput are interpreted by the core.
const (
	GroupPower   Group = "power"
	GroupInput   Group = "input"
	GroupVolume  Group = "volume"
	GroupAudio   Group = "audio"
	GroupPicture Group = "picture"
	GroupMenu    Group = "menu"
	GroupOther   Group = "other"
)

// AllGroups lists every recognised group.
var AllGroups = []Group{
	GroupPower,
	GroupInput,
	GroupVolume,
	GroupAudio,
	GroupPicture,
	GroupMenu,
	GroupOther,
}

// Valid reports whether g is a recognised group.
func (g Group) Valid() bool {
	for _, known := range AllGroups {
		if g == known {
			return true
		}
	}
	return false
}

// Priority orders queued commands. Lower values are extracted first.
type Priority int

// Command priorities, most urgent first.
const (
	PriorityHighest Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

var priorityNames = [...]string{
	PriorityHighest: "highest",
	PriorityHigh:    "high",
	PriorityNormal:  "normal",
	PriorityLow:     "low",
}

// String returns the manifest name of the priority.
func (p Priority) String() string {
	if p < PriorityHighest || p > PriorityLow {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityHighest && p <= PriorityLow
}

// ParsePriority converts a manifest string ("highest", "high", "normal",
// "low") to a Priority. Matching is case-insensitive.
func ParsePriority(s string) (Priority, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, candidate := range priorityNames {
		if candidate == name {
			return Priority(i), nil
		}
	}
	return PriorityNormal, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// MarshalText implements encoding.TextMarshaler so priorities appear by
// name in JSON and YAML.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Callback is invoked when a local warm-up or cool-down timer attached to a
// command expires. The argument is the command name.
type Callback func(name string)

// Descriptor is a single schedulable unit of device control.
//
// Priority and Callback are the only fields the dispatch path changes, and it
// only ever changes them on a clone obtained from a Table.
type Descriptor struct {
	Name        string
	Description string
	Group       Group
	Priority    Priority
	IsPolling   bool
	Callback    Callback
	Payload     []byte
}

// Clone returns an independent copy of the descriptor. The payload slice is
// copied so the clone can be handed to a transport without aliasing.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := *d
	if d.Payload != nil {
		c.Payload = append([]byte(nil), d.Payload...)
	}
	return &c
}

// IsPower reports whether the command belongs to the power group.
func (d *Descriptor) IsPower() bool {
	return d.Group == GroupPower
}

// String returns a short identifier for logs.
func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%s/%s)", d.Name, d.Group, d.Priority)
}
