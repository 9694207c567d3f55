package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager holds one dispatcher per device.
//
// Thread Safety: All methods are safe for concurrent use.
type Manager struct {
	mu          sync.RWMutex
	dispatchers map[string]*Dispatcher
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{dispatchers: make(map[string]*Dispatcher)}
}

// Add registers d. Device ids must be unique.
func (m *Manager) Add(d *Dispatcher) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.dispatchers[d.DeviceID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDevice, d.DeviceID())
	}
	m.dispatchers[d.DeviceID()] = d
	return nil
}

// Get returns the dispatcher for deviceID.
func (m *Manager) Get(deviceID string) (*Dispatcher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.dispatchers[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	return d, nil
}

// IDs returns the registered device ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.dispatchers))
	for id := range m.dispatchers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of dispatchers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dispatchers)
}

// Submit routes a named command to a device's dispatcher.
func (m *Manager) Submit(ctx context.Context, deviceID, name string) (Outcome, error) {
	d, err := m.Get(deviceID)
	if err != nil {
		return Outcome{}, err
	}
	return d.Submit(ctx, name)
}

// RunAll runs every dispatcher until ctx is cancelled or one fails.
func (m *Manager) RunAll(ctx context.Context) error {
	m.mu.RLock()
	all := make([]*Dispatcher, 0, len(m.dispatchers))
	for _, d := range m.dispatchers {
		all = append(all, d)
	}
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range all {
		d := d
		g.Go(func() error {
			return d.Run(gctx)
		})
	}
	return g.Wait()
}

// Close closes every dispatcher and joins their errors.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, d := range m.dispatchers {
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
