// Package influxdb writes Gray Logic AV dispatcher metrics to InfluxDB v2.
//
// The Client is a dispatch.Observer: attached to the dispatchers, it turns
// each event into an av_commands point (tagged by device, command, event,
// reason and priority) and tracks per-device queue depth in av_queue.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics off
//	}
//	defer client.Close()
//
// Writes go through the library's batching write API (batch_size and
// flush_interval in config.yaml) and never block the caller. Write errors
// are delivered to the SetOnError callback.
package influxdb
