// Package dispatch drives AV devices: one Dispatcher per device owns the
// runtime state, the bounded priority queue and the transport.
//
// Each submitted command goes through gating.Decide. The Dispatcher applies
// the decision: it hands the command to the Transport, adds it to the queue,
// or drops it. Power-on and power-off commands first pass through the
// warm-up/cool-down arbiter, which attaches a local timer callback when the
// driver times transitions itself.
//
// Queued commands are re-evaluated in priority order on every tick of Run
// and whenever a request completes or a transition ends.
//
// Everything the dispatcher does is reported as an Event to an Observer.
// The history recorder, the InfluxDB writer and the WebSocket hub are all
// observers; MultiObserver fans out to them.
//
// Manager holds the dispatchers for all configured devices and runs them
// together under one errgroup.
package dispatch
