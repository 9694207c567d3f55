package driver

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Capability is a device class tag listed in a manifest.
type Capability string

// Built-in capability tags.
const (
	CapabilityProjector Capability = "projector"
	CapabilityDisplay   Capability = "display"
	CapabilityReceiver  Capability = "receiver"
	CapabilityIRBlaster Capability = "ir_blaster"
	CapabilityGeneric   Capability = "generic"
)

// Profile holds the class defaults a factory contributes for a device.
type Profile struct {
	QueueMode          bool
	SupportsLocalTimer bool
	Warmup             time.Duration
	Cooldown           time.Duration
	PollInterval       time.Duration
}

// Factory validates a manifest against a device class and returns the
// class defaults. It returns an error wrapping ErrUnsupported when the
// manifest cannot be driven as that class.
type Factory func(m *Manifest) (Profile, error)

// Registry maps capability tags to factories. It replaces any lookup by
// type name: a manifest's class is whatever its first registered tag says.
//
// Thread Safety: All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[Capability]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Capability]Factory)}
}

// DefaultRegistry returns a registry with the built-in device classes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for tag, f := range builtins() {
		// Tags are unique in the map.
		_ = r.Register(tag, f)
	}
	return r
}

// Register adds a factory for tag.
func (r *Registry) Register(tag Capability, f Factory) error {
	if tag == "" || f == nil {
		return fmt.Errorf("%w: empty tag or nil factory", ErrUnknownCapability)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("%w: %s", ErrCapabilityExists, tag)
	}
	r.factories[tag] = f
	return nil
}

// Tags returns the registered tags, sorted.
func (r *Registry) Tags() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]Capability, 0, len(r.factories))
	for t := range r.factories {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Resolve turns a manifest into a Device. Every capability must be
// registered; the first one selects the factory. Manifest settings override
// the class profile.
func (r *Registry) Resolve(m *Manifest) (*Device, error) {
	if len(m.Capabilities) == 0 {
		return nil, fmt.Errorf("%w: %s has no capabilities", ErrInvalidManifest, m.DeviceID)
	}

	r.mu.RLock()
	for _, tag := range m.Capabilities {
		if _, ok := r.factories[tag]; !ok {
			r.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s (device %s)", ErrUnknownCapability, tag, m.DeviceID)
		}
	}
	class := m.Capabilities[0]
	factory := r.factories[class]
	r.mu.RUnlock()

	profile, err := factory(m)
	if err != nil {
		return nil, fmt.Errorf("device %s as %s: %w", m.DeviceID, class, err)
	}

	table, err := m.Table()
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", m.DeviceID, err)
	}

	return &Device{
		Manifest: m,
		Class:    class,
		Settings: mergeProfile(profile, m),
		Table:    table,
	}, nil
}

// ResolveAll resolves every manifest, stopping at the first failure.
func (r *Registry) ResolveAll(manifests []*Manifest) ([]*Device, error) {
	devices := make([]*Device, 0, len(manifests))
	for _, m := range manifests {
		d, err := r.Resolve(m)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func mergeProfile(p Profile, m *Manifest) Profile {
	if m.QueueMode != nil {
		p.QueueMode = *m.QueueMode
	}
	if m.SupportsLocalTimer != nil {
		p.SupportsLocalTimer = *m.SupportsLocalTimer
	}
	if m.Warmup > 0 {
		p.Warmup = m.Warmup
	}
	if m.Cooldown > 0 {
		p.Cooldown = m.Cooldown
	}
	if m.PollInterval > 0 {
		p.PollInterval = m.PollInterval
	}
	return p
}

func builtins() map[Capability]Factory {
	return map[Capability]Factory{
		CapabilityProjector: fixedProfile(Profile{
			QueueMode:          true,
			SupportsLocalTimer: true,
			Warmup:             30 * time.Second,
			Cooldown:           60 * time.Second,
			PollInterval:       10 * time.Second,
		}),
		CapabilityDisplay: fixedProfile(Profile{
			QueueMode:          true,
			SupportsLocalTimer: true,
			Warmup:             8 * time.Second,
			Cooldown:           3 * time.Second,
			PollInterval:       15 * time.Second,
		}),
		CapabilityReceiver: fixedProfile(Profile{
			QueueMode:    true,
			PollInterval: 15 * time.Second,
		}),
		CapabilityIRBlaster: irBlaster,
		CapabilityGeneric:   fixedProfile(Profile{}),
	}
}

func fixedProfile(p Profile) Factory {
	return func(*Manifest) (Profile, error) { return p, nil }
}

// irBlaster drives one-way devices. There is no reply to poll, so power
// state comes from local timers only.
func irBlaster(m *Manifest) (Profile, error) {
	for _, c := range m.Commands {
		if c.Polling {
			return Profile{}, fmt.Errorf("%w: ir_blaster cannot poll (%s)", ErrUnsupported, c.Name)
		}
	}
	if m.PollInterval > 0 {
		return Profile{}, fmt.Errorf("%w: ir_blaster cannot poll", ErrUnsupported)
	}
	return Profile{
		QueueMode:          true,
		SupportsLocalTimer: true,
		Warmup:             10 * time.Second,
		Cooldown:           10 * time.Second,
	}, nil
}
