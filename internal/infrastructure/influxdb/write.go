package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-av/internal/dispatch"
)

// Measurement names.
const (
	MeasurementCommands   = "av_commands"
	MeasurementQueueDepth = "av_queue"
)

// WriteCommandEvent records one dispatcher event. Tags carry device,
// command, event, reason and priority; fields carry the queue length and
// power state at the time of the event.
func (c *Client) WriteCommandEvent(e dispatch.Event) {
	at := e.Time
	if at.IsZero() {
		at = c.now()
	}

	tags := map[string]string{
		"device_id": e.DeviceID,
		"event":     string(e.Type),
	}
	if e.Command != "" {
		tags["command"] = e.Command
		tags["priority"] = e.Priority.String()
	}
	if e.Reason != "" {
		tags["reason"] = string(e.Reason)
	}

	c.WritePointWithTime(MeasurementCommands, tags, map[string]any{
		"count":     1,
		"queue_len": e.QueueLen,
		"has_power": e.HasPower,
	}, at)
}

// WriteQueueDepth records the current queue length of a device.
func (c *Client) WriteQueueDepth(deviceID string, depth int) {
	c.WritePointWithTime(MeasurementQueueDepth,
		map[string]string{"device_id": deviceID},
		map[string]any{"depth": depth},
		c.now(),
	)
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, c.now())
}

// WritePointWithTime writes a custom point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
