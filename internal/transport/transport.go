package transport

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-av/internal/dispatch"
	"github.com/nerrad567/gray-logic-av/internal/driver"
)

// Transport kinds understood by the service.
const (
	KindLoopback = "loopback"
	KindMQTT     = "mqtt"
)

var (
	// ErrUnknownKind is returned when a manifest names an unregistered kind.
	ErrUnknownKind = errors.New("transport: unknown kind")

	// ErrKindExists is returned when registering a kind twice.
	ErrKindExists = errors.New("transport: kind already registered")
)

// Builder creates the transport for one device.
type Builder func(dev *driver.Device) (dispatch.Transport, error)

// Factory maps manifest transport kinds to builders.
//
// Thread Safety: All methods are safe for concurrent use.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]Builder
	override string
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{builders: make(map[string]Builder)}
}

// Register adds a builder for kind.
func (f *Factory) Register(kind string, b Builder) error {
	if kind == "" || b == nil {
		return fmt.Errorf("%w: empty kind or nil builder", ErrUnknownKind)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.builders[kind]; exists {
		return fmt.Errorf("%w: %s", ErrKindExists, kind)
	}
	f.builders[kind] = b
	return nil
}

// ForceKind makes Build ignore the manifest kind and always use kind. It is
// how dev mode routes every device to the loopback transport.
func (f *Factory) ForceKind(kind string) {
	f.mu.Lock()
	f.override = kind
	f.mu.Unlock()
}

// Kinds returns the registered kinds, sorted.
func (f *Factory) Kinds() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	kinds := make([]string, 0, len(f.builders))
	for k := range f.builders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build creates the transport for dev.
func (f *Factory) Build(dev *driver.Device) (dispatch.Transport, error) {
	f.mu.RLock()
	kind := dev.Manifest.Transport.Kind
	if f.override != "" {
		kind = f.override
	}
	b, ok := f.builders[kind]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (device %s)", ErrUnknownKind, kind, dev.ID())
	}
	t, err := b(dev)
	if err != nil {
		return nil, fmt.Errorf("building %s transport for %s: %w", kind, dev.ID(), err)
	}
	return t, nil
}
