package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/command"
	"github.com/nerrad567/gray-logic-av/internal/dispatch"
	"github.com/nerrad567/gray-logic-av/internal/gating"
)

const (
	// DefaultLimit is used when List is called with a non-positive limit.
	DefaultLimit = 50

	// MaxLimit caps List.
	MaxLimit = 200

	// timestampLayout is fixed width so created_at sorts as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"

	recordTimeout = 2 * time.Second
)

// ErrInvalidRetention is returned by Prune for a non-positive duration.
var ErrInvalidRetention = errors.New("history: retention must be positive")

// Entry is one stored dispatcher event.
type Entry struct {
	ID        int64              `json:"id"`
	DeviceID  string             `json:"device_id"`
	RequestID string             `json:"request_id,omitempty"`
	Command   string             `json:"command,omitempty"`
	Event     dispatch.EventType `json:"event"`
	Reason    gating.Reason      `json:"reason,omitempty"`
	Priority  command.Priority   `json:"priority"`
	QueueLen  int                `json:"queue_len"`
	HasPower  bool               `json:"has_power"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// Logger is the subset of the application logger the recorder uses.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder stores dispatcher events in the command_history table. It
// implements dispatch.Observer.
//
// Thread Safety: All methods are safe for concurrent use.
type Recorder struct {
	db     *sql.DB
	logger Logger
	now    func() time.Time
}

// NewRecorder returns a recorder writing to db. The schema comes from the
// command_history migration.
func NewRecorder(db *sql.DB, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{db: db, logger: logger, now: time.Now}
}

// OnEvent implements dispatch.Observer. Write failures are logged and
// otherwise ignored so a full disk never stalls command dispatch.
func (r *Recorder) OnEvent(e dispatch.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.Record(ctx, e); err != nil {
		r.logger.Warn("recording command history failed",
			"device_id", e.DeviceID,
			"event", string(e.Type),
			"error", err,
		)
	}
}

// Record inserts one event. A zero event time is replaced by the current
// time.
func (r *Recorder) Record(ctx context.Context, e dispatch.Event) error {
	if e.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if e.Type == "" {
		return fmt.Errorf("event type is required")
	}
	at := e.Time
	if at.IsZero() {
		at = r.now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_history
		 (device_id, request_id, command, event, reason, priority, queue_len, has_power, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.DeviceID,
		e.RequestID,
		e.Command,
		string(e.Type),
		string(e.Reason),
		int(e.Priority),
		e.QueueLen,
		e.HasPower,
		e.Error,
		at.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting command history: %w", err)
	}
	return nil
}

// List returns the newest entries first. An empty deviceID lists every
// device. limit defaults to DefaultLimit and is capped at MaxLimit.
func (r *Recorder) List(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	query := `SELECT id, device_id, request_id, command, event, reason, priority, queue_len, has_power, error, created_at
		FROM command_history`
	args := []any{}
	if deviceID != "" {
		query += " WHERE device_id = ?"
		args = append(args, deviceID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying command history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e         Entry
			event     string
			reason    string
			priority  int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.RequestID, &e.Command, &event, &reason,
			&priority, &e.QueueLen, &e.HasPower, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command history: %w", err)
		}
		e.Event = dispatch.EventType(event)
		e.Reason = gating.Reason(reason)
		e.Priority = command.Priority(priority)

		ts, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = ts
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than olderThan and returns how many went.
func (r *Recorder) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := r.now().UTC().Add(-olderThan).Format(timestampLayout)
	result, err := r.db.ExecContext(ctx, "DELETE FROM command_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting command history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	ts, err := time.Parse(timestampLayout, value)
	if err == nil {
		return ts, nil
	}
	if fallback, ferr := time.Parse(time.RFC3339Nano, value); ferr == nil {
		return fallback, nil
	}
	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
