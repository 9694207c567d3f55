// Package driver loads AV device manifests and resolves them into devices.
//
// A manifest is a YAML file describing one device: its id, transport,
// capability tags and command vocabulary. Example:
//
//	device_id: lounge-projector
//	name: Lounge Projector
//	transport:
//	  kind: mqtt
//	capabilities: [projector]
//	power_states: {on: "POWR=1", off: "POWR=0"}
//	commands:
//	  - {name: power_on, group: power, priority: highest, role: power_on, payload: "%1POWR 1\r"}
//	  - {name: power_off, group: power, priority: highest, role: power_off, payload: "%1POWR 0\r"}
//	  - {name: power_query, group: power, priority: low, polling: true, payload: "%1POWR ?\r"}
//	  - {name: input_hdmi1, group: input, payload: "%1INPT 31\r"}
//
// The Registry maps capability tags to factories. The first tag selects the
// device class, whose Profile supplies queue mode, local timer support and
// transition windows unless the manifest overrides them.
package driver
