package influxdb

import "github.com/nerrad567/gray-logic-av/internal/dispatch"

// OnEvent implements dispatch.Observer. Every event becomes an av_commands
// point; events that change the queue also refresh av_queue.
func (c *Client) OnEvent(e dispatch.Event) {
	if e.Time.IsZero() {
		e.Time = c.now()
	}
	c.WriteCommandEvent(e)

	switch e.Type {
	case dispatch.EventQueued, dispatch.EventSent, dispatch.EventWithdrawn, dispatch.EventQueueOverflow:
		c.WritePointWithTime(MeasurementQueueDepth,
			map[string]string{"device_id": e.DeviceID},
			map[string]any{"depth": e.QueueLen},
			e.Time,
		)
	}
}
