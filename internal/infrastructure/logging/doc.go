// Package logging builds the service's slog logger.
//
// Records are JSON (or text) on stdout or stderr and always carry service
// and version. Subsystems log through a component child logger, and
// dispatchers through a per-device one, so a single device can be traced
// with a filter on device_id:
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  components:
//	    dispatch: "debug"   # gating decisions for every device
//	    mqtt: "warn"
//
// Command payloads may carry device PINs for some projectors; log command
// names, never payload bytes.
package logging
