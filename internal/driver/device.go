package driver

import (
	"time"

	"github.com/nerrad567/gray-logic-av/internal/command"
)

// Device is a resolved manifest: its class, effective settings and command
// table. It is immutable once resolved.
type Device struct {
	Manifest *Manifest
	Class    Capability
	Settings Profile
	Table    *command.Table
}

// ID returns the device id.
func (d *Device) ID() string { return d.Manifest.DeviceID }

// Name returns the display name.
func (d *Device) Name() string { return d.Manifest.Name }

// QueueCapacity returns the manifest capacity, or fallback when unset.
func (d *Device) QueueCapacity(fallback int) int {
	if d.Manifest.QueueCapacity > 0 {
		return d.Manifest.QueueCapacity
	}
	return fallback
}

// ResponseTimeout returns the manifest timeout, or fallback when unset.
func (d *Device) ResponseTimeout(fallback time.Duration) time.Duration {
	if d.Manifest.ResponseTimeout > 0 {
		return d.Manifest.ResponseTimeout
	}
	return fallback
}

// PowerOnResponse returns the bytes that mark a powered poll reply.
func (d *Device) PowerOnResponse() []byte {
	if d.Manifest.PowerStates.On == "" {
		return nil
	}
	return []byte(d.Manifest.PowerStates.On)
}

// PowerOffResponse returns the bytes that mark an unpowered poll reply.
func (d *Device) PowerOffResponse() []byte {
	if d.Manifest.PowerStates.Off == "" {
		return nil
	}
	return []byte(d.Manifest.PowerStates.Off)
}

// Info is the JSON view of a device for the API.
type Info struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Manufacturer string       `json:"manufacturer,omitempty"`
	Model        string       `json:"model,omitempty"`
	Class        Capability   `json:"class"`
	Capabilities []Capability `json:"capabilities"`
	Transport    string       `json:"transport"`
	Commands     int          `json:"commands"`
}

// Info returns the API view of the device.
func (d *Device) Info() Info {
	return Info{
		ID:           d.Manifest.DeviceID,
		Name:         d.Manifest.Name,
		Manufacturer: d.Manifest.Manufacturer,
		Model:        d.Manifest.Model,
		Class:        d.Class,
		Capabilities: append([]Capability(nil), d.Manifest.Capabilities...),
		Transport:    d.Manifest.Transport.Kind,
		Commands:     d.Table.Len(),
	}
}
