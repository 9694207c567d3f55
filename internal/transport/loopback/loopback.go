// Package loopback is an in-process transport. Every command succeeds after
// an optional delay unless it is configured to fail, and replies are taken
// from a fixed table. It backs dev mode and tests.
package loopback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-av/internal/dispatch"
)

// Name is the transport name reported in status snapshots.
const Name = "loopback"

// Settings keys understood by FromSettings.
const (
	settingDelay       = "delay"
	settingFail        = "fail"
	settingReplyPrefix = "reply."
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("loopback: closed")

	// ErrRejected is the result error for commands configured to fail.
	ErrRejected = errors.New("loopback: command rejected")
)

// Options configures a loopback transport.
type Options struct {
	// Delay before a result is delivered. Zero delivers synchronously.
	Delay time.Duration

	// Replies maps a command name to its response bytes.
	Replies map[string][]byte

	// Fail lists command names that complete with ErrRejected.
	Fail map[string]bool
}

// Transport implements dispatch.Transport in memory.
//
// Thread Safety: All methods are safe for concurrent use.
type Transport struct {
	opts Options

	mu     sync.Mutex
	sent   []dispatch.Request
	timers map[*time.Timer]struct{}
	closed bool
}

// New returns a loopback transport.
func New(opts Options) *Transport {
	return &Transport{opts: opts, timers: make(map[*time.Timer]struct{})}
}

// FromSettings builds a transport from manifest transport settings:
//
//	delay: 150ms
//	fail: "input_hdmi4,menu"
//	reply.power_query: "POWR=1"
func FromSettings(settings map[string]string) (*Transport, error) {
	opts := Options{
		Replies: make(map[string][]byte),
		Fail:    make(map[string]bool),
	}
	for key, value := range settings {
		switch {
		case key == settingDelay:
			d, err := time.ParseDuration(value)
			if err != nil || d < 0 {
				return nil, fmt.Errorf("loopback: invalid delay %q", value)
			}
			opts.Delay = d
		case key == settingFail:
			for _, name := range strings.Split(value, ",") {
				if name = strings.TrimSpace(name); name != "" {
					opts.Fail[name] = true
				}
			}
		case strings.HasPrefix(key, settingReplyPrefix):
			opts.Replies[strings.TrimPrefix(key, settingReplyPrefix)] = []byte(value)
		default:
			return nil, fmt.Errorf("loopback: unknown setting %q", key)
		}
	}
	return New(opts), nil
}

// Name implements dispatch.Transport.
func (t *Transport) Name() string { return Name }

// Send implements dispatch.Transport.
func (t *Transport) Send(ctx context.Context, req dispatch.Request, done func(dispatch.Result)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.sent = append(t.sent, req)

	name := req.Command.Name
	result := dispatch.Result{OK: true, Response: t.opts.Replies[name]}
	if t.opts.Fail[name] {
		result = dispatch.Result{Err: fmt.Errorf("%w: %s", ErrRejected, name)}
	}

	if t.opts.Delay <= 0 {
		t.mu.Unlock()
		done(result)
		return nil
	}

	var timer *time.Timer
	timer = time.AfterFunc(t.opts.Delay, func() {
		t.mu.Lock()
		delete(t.timers, timer)
		t.mu.Unlock()
		done(result)
	})
	t.timers[timer] = struct{}{}
	t.mu.Unlock()
	return nil
}

// Sent returns a copy of every request accepted so far.
func (t *Transport) Sent() []dispatch.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]dispatch.Request(nil), t.sent...)
}

// Close stops pending deliveries. Their done callbacks are never called.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	for timer := range t.timers {
		timer.Stop()
	}
	clear(t.timers)
	return nil
}
