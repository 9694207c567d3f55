package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-av/internal/command"
	"github.com/nerrad567/gray-logic-av/internal/dispatch"
	"github.com/nerrad567/gray-logic-av/internal/gating"
	"github.com/nerrad567/gray-logic-av/internal/infrastructure/config"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
	errs    chan error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{errs: make(chan error)}
}

func (w *fakeWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	w.points = append(w.points, p)
	w.mu.Unlock()
}

func (w *fakeWriter) Flush() {
	w.mu.Lock()
	w.flushes++
	w.mu.Unlock()
}

func (w *fakeWriter) Errors() <-chan error { return w.errs }

func (w *fakeWriter) written() []*write.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*write.Point(nil), w.points...)
}

func tagsOf(p *write.Point) map[string]string {
	m := make(map[string]string)
	for _, t := range p.TagList() {
		m[t.Key] = t.Value
	}
	return m
}

func fieldsOf(p *write.Point) map[string]any {
	m := make(map[string]any)
	for _, f := range p.FieldList() {
		m[f.Key] = f.Value
	}
	return m
}

func newTestClient(t *testing.T) (*Client, *fakeWriter) {
	t.Helper()
	w := newFakeWriter()
	c := newClient(w)
	c.now = func() time.Time { return time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC) }
	t.Cleanup(func() {
		_ = c.Close()
		close(w.errs)
	})
	return c, w
}

func TestConnectDisabled(t *testing.T) {
	c, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if c != nil {
		t.Error("Connect() returned a client when disabled")
	}
}

func TestConnectUnreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Org:     "graylogic",
		Bucket:  "av",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteCommandEvent(t *testing.T) {
	c, w := newTestClient(t)
	at := time.Date(2026, 6, 1, 18, 30, 0, 0, time.UTC)

	c.WriteCommandEvent(dispatch.Event{
		Type:     dispatch.EventQueued,
		DeviceID: "lounge-projector",
		Command:  "input_hdmi1",
		Priority: command.PriorityHigh,
		Reason:   gating.ReasonWarmupBlocked,
		QueueLen: 2,
		HasPower: true,
		Time:     at,
	})

	points := w.written()
	if len(points) != 1 {
		t.Fatalf("wrote %d points, want 1", len(points))
	}
	p := points[0]
	if p.Name() != MeasurementCommands || !p.Time().Equal(at) {
		t.Errorf("point %s at %v", p.Name(), p.Time())
	}
	wantTags := map[string]string{
		"device_id": "lounge-projector",
		"event":     "queued",
		"command":   "input_hdmi1",
		"priority":  command.PriorityHigh.String(),
		"reason":    "warmup_blocked",
	}
	tags := tagsOf(p)
	for k, v := range wantTags {
		if tags[k] != v {
			t.Errorf("tag %s = %q, want %q", k, tags[k], v)
		}
	}
	fields := fieldsOf(p)
	if fields["queue_len"] != int64(2) || fields["has_power"] != true || fields["count"] != int64(1) {
		t.Errorf("fields = %v", fields)
	}
}

func TestWriteCommandEventOmitsEmptyTags(t *testing.T) {
	c, w := newTestClient(t)

	c.WriteCommandEvent(dispatch.Event{Type: dispatch.EventPowerChanged, DeviceID: "lounge-amp"})

	p := w.written()[0]
	tags := tagsOf(p)
	if _, ok := tags["command"]; ok {
		t.Errorf("command tag present for power event: %v", tags)
	}
	if _, ok := tags["reason"]; ok {
		t.Errorf("reason tag present: %v", tags)
	}
	if !p.Time().Equal(c.now()) {
		t.Errorf("zero event time not defaulted: %v", p.Time())
	}
}

func TestOnEvent(t *testing.T) {
	tests := []struct {
		event      dispatch.EventType
		wantPoints int
	}{
		{dispatch.EventQueued, 2},
		{dispatch.EventSent, 2},
		{dispatch.EventWithdrawn, 2},
		{dispatch.EventQueueOverflow, 2},
		{dispatch.EventCompleted, 1},
		{dispatch.EventWarmupStarted, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			c, w := newTestClient(t)
			c.OnEvent(dispatch.Event{Type: tt.event, DeviceID: "lounge-projector", QueueLen: 3})

			points := w.written()
			if len(points) != tt.wantPoints {
				t.Fatalf("wrote %d points, want %d", len(points), tt.wantPoints)
			}
			if tt.wantPoints == 2 {
				depth := points[1]
				if depth.Name() != MeasurementQueueDepth || fieldsOf(depth)["depth"] != int64(3) {
					t.Errorf("depth point = %s %v", depth.Name(), fieldsOf(depth))
				}
			}
		})
	}
}

func TestWriteQueueDepth(t *testing.T) {
	c, w := newTestClient(t)
	c.WriteQueueDepth("lounge-amp", 4)

	p := w.written()[0]
	if p.Name() != MeasurementQueueDepth || tagsOf(p)["device_id"] != "lounge-amp" || fieldsOf(p)["depth"] != int64(4) {
		t.Errorf("point = %s %v %v", p.Name(), tagsOf(p), fieldsOf(p))
	}
}

func TestCloseStopsWrites(t *testing.T) {
	c, w := newTestClient(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}

	c.WritePoint("av_test", nil, map[string]any{"v": 1})
	c.Flush()
	if len(w.written()) != 0 {
		t.Error("point written after Close")
	}
	w.mu.Lock()
	flushes := w.flushes
	w.mu.Unlock()
	if flushes != 1 {
		t.Errorf("flushes = %d, want 1 (from Close only)", flushes)
	}

	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestSetOnError(t *testing.T) {
	c, w := newTestClient(t)
	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	w.errs <- errors.New("bucket not found")

	select {
	case err := <-got:
		if !errors.Is(err, ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error callback not invoked")
	}
}
