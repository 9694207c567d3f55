package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/infrastructure/logging"
)

func newManagerDispatcher(t *testing.T, id string, tr *fakeTransport) *Dispatcher {
	t.Helper()
	d, err := New(Options{
		DeviceID:     id,
		Table:        testTable(t),
		Transport:    tr,
		TickInterval: 10 * time.Millisecond,
		Logger:       logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

func TestManager_AddGet(t *testing.T) {
	m := NewManager()
	d := newManagerDispatcher(t, "tv-1", &fakeTransport{})

	if err := m.Add(d); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := m.Add(d); !errors.Is(err, ErrDuplicateDevice) {
		t.Errorf("second Add() error = %v, want ErrDuplicateDevice", err)
	}

	got, err := m.Get("tv-1")
	if err != nil || got != d {
		t.Errorf("Get(tv-1) = %v, %v", got, err)
	}
	if _, err := m.Get("missing"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Get(missing) error = %v, want ErrUnknownDevice", err)
	}
}

func TestManager_IDsSorted(t *testing.T) {
	m := NewManager()
	for _, id := range []string{"tv-2", "amp-1", "tv-1"} {
		if err := m.Add(newManagerDispatcher(t, id, &fakeTransport{})); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}

	want := []string{"amp-1", "tv-1", "tv-2"}
	got := m.IDs()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

func TestManager_Submit(t *testing.T) {
	m := NewManager()
	tr := &fakeTransport{auto: true, result: Result{OK: true}}
	if err := m.Add(newManagerDispatcher(t, "tv-1", tr)); err != nil {
		t.Fatal(err)
	}

	out, err := m.Submit(context.Background(), "tv-1", "power_on")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !out.Decision.SendToTransport {
		t.Errorf("decision = %+v, want sent", out.Decision)
	}
	if _, err := m.Submit(context.Background(), "nope", "power_on"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Submit(nope) error = %v, want ErrUnknownDevice", err)
	}
}

func TestManager_RunAllAndClose(t *testing.T) {
	m := NewManager()
	transports := []*fakeTransport{{}, {}}
	for i, id := range []string{"tv-1", "tv-2"} {
		if err := m.Add(newManagerDispatcher(t, id, transports[i])); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.RunAll(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("RunAll() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunAll() did not return after cancel")
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	for i, tr := range transports {
		if !tr.closed {
			t.Errorf("transport %d not closed", i)
		}
	}
}
