package history

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/command"
	"github.com/nerrad567/gray-logic-av/internal/dispatch"
	"github.com/nerrad567/gray-logic-av/internal/gating"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-av/migrations"
)

func newTestRecorder(t *testing.T) (*Recorder, *database.DB) {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewRecorder(db.DB, nil), db
}

type warnLogger struct {
	mu    sync.Mutex
	warns []string
	infos []string
}

func (l *warnLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *warnLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	l.infos = append(l.infos, msg)
	l.mu.Unlock()
}

func TestRecordAndList(t *testing.T) {
	r, _ := newTestRecorder(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	events := []dispatch.Event{
		{Type: dispatch.EventSent, DeviceID: "lounge-projector", RequestID: "r1", Command: "power_on",
			Priority: command.PriorityHighest, Reason: gating.ReasonPowerOverride, Time: base},
		{Type: dispatch.EventQueued, DeviceID: "lounge-projector", Command: "input_hdmi1",
			Priority: command.PriorityNormal, Reason: gating.ReasonWarmupBlocked, QueueLen: 1, Time: base.Add(time.Second)},
		{Type: dispatch.EventFailed, DeviceID: "lounge-projector", RequestID: "r1", Command: "power_on",
			Error: "timeout", Time: base.Add(2 * time.Second)},
		{Type: dispatch.EventSent, DeviceID: "lounge-amp", Command: "volume_up", HasPower: true, Time: base.Add(3 * time.Second)},
	}
	for _, e := range events {
		if err := r.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s) error = %v", e.Type, err)
		}
	}

	t.Run("one device newest first", func(t *testing.T) {
		got, err := r.List(ctx, "lounge-projector", 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		if got[0].Event != dispatch.EventFailed || got[0].Error != "timeout" {
			t.Errorf("newest = %+v", got[0])
		}
		last := got[2]
		if last.Command != "power_on" || last.Reason != gating.ReasonPowerOverride ||
			last.Priority != command.PriorityHighest || !last.CreatedAt.Equal(base) {
			t.Errorf("oldest = %+v", last)
		}
		if got[1].QueueLen != 1 {
			t.Errorf("queued entry QueueLen = %d", got[1].QueueLen)
		}
	})

	t.Run("all devices", func(t *testing.T) {
		got, err := r.List(ctx, "", 10)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 4 || got[0].DeviceID != "lounge-amp" || !got[0].HasPower {
			t.Errorf("List(all) = %+v", got)
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := r.List(ctx, "lounge-projector", 1)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("len = %d, want 1", len(got))
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		got, err := r.List(ctx, "garage-tv", 5)
		if err != nil || len(got) != 0 {
			t.Errorf("List() = %v, %v", got, err)
		}
	})
}

func TestRecordValidation(t *testing.T) {
	r, _ := newTestRecorder(t)
	tests := []struct {
		name string
		e    dispatch.Event
	}{
		{"missing device", dispatch.Event{Type: dispatch.EventSent}},
		{"missing type", dispatch.Event{DeviceID: "lounge-amp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Record(context.Background(), tt.e); err == nil {
				t.Error("Record() succeeded")
			}
		})
	}
}

func TestRecordDefaultsTime(t *testing.T) {
	r, _ := newTestRecorder(t)
	fixed := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.OnEvent(dispatch.Event{Type: dispatch.EventPowerChanged, DeviceID: "lounge-amp", HasPower: true})

	got, err := r.List(context.Background(), "lounge-amp", 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("List() = %v, %v", got, err)
	}
	if !got[0].CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, fixed)
	}
}

func TestOnEventLogsFailures(t *testing.T) {
	r, db := newTestRecorder(t)
	logger := &warnLogger{}
	r.logger = logger
	_ = db.Close()

	r.OnEvent(dispatch.Event{Type: dispatch.EventSent, DeviceID: "lounge-amp"})

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one", logger.warns)
	}
}

func TestPrune(t *testing.T) {
	r, _ := newTestRecorder(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for _, age := range []time.Duration{time.Hour, 47 * time.Hour, 49 * time.Hour, 30 * 24 * time.Hour} {
		e := dispatch.Event{Type: dispatch.EventSent, DeviceID: "lounge-amp", Time: now.Add(-age)}
		if err := r.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	if _, err := r.Prune(ctx, 0); !errors.Is(err, ErrInvalidRetention) {
		t.Errorf("Prune(0) error = %v, want ErrInvalidRetention", err)
	}

	n, err := r.Prune(ctx, 48*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	left, _ := r.List(ctx, "lounge-amp", 0)
	if len(left) != 2 {
		t.Errorf("remaining = %d, want 2", len(left))
	}
}

func TestRunPruner(t *testing.T) {
	r, _ := newTestRecorder(t)
	now := time.Now().UTC()
	if err := r.Record(context.Background(), dispatch.Event{
		Type: dispatch.EventSent, DeviceID: "lounge-amp", Time: now.Add(-72 * time.Hour),
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	logger := &warnLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunPruner(ctx, 24*time.Hour, time.Hour, logger) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		left, _ := r.List(context.Background(), "lounge-amp", 0)
		if len(left) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("initial sweep did not prune")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("RunPruner() error = %v", err)
	}

	if err := r.RunPruner(context.Background(), 0, 0, logger); err != nil {
		t.Errorf("RunPruner(disabled) error = %v", err)
	}
}
