// Package command defines the vocabulary shared by every AV driver: what a
// command is, how it is grouped, and how urgent it is.
//
// A Descriptor is a single schedulable unit of device control ("PowerOn",
// "InputHdmi1", "VolumeUp"). Descriptors are built once per device from the
// driver manifest and held in an immutable Table. Every dispatch works on a
// clone, so priority overrides applied while gating never leak back into the
// table.
//
// # Priorities
//
// Priority is ordered so that a lower numeric value is more urgent:
//
//	PriorityHighest < PriorityHigh < PriorityNormal < PriorityLow
//
// The queue package uses the value directly as its min-heap key.
//
// # Groups
//
// Only GroupPower and GroupInput carry meaning for the gating rules. The
// remaining groups exist so manifests and the API can classify commands.
package command
