// Package gating decides what happens to each outbound AV command.
//
// Two pure, synchronous functions live here:
//
//   - Decide maps a runtime state snapshot and a command descriptor to a
//     Decision: send to the transport, put in the queue, or drop.
//   - HandleWarmupCallback / HandleCooldownCallback decide whether a local
//     warm-up or cool-down timer callback is attached to a command.
//
// Neither function performs I/O, blocks, or retains state between calls.
// The caller (the dispatch package) builds a fresh State for every call
// under its own lock and acts on the result.
//
// # Decision Table
//
// Rules are evaluated top to bottom, first match wins:
//
//	no state, or driver not loaded        drop
//	sending disabled                      send power commands, drop the rest
//	queue mode off                        send if powered or a power command, else drop
//	transition and power polling command  send
//	warming up                            queue non-polling input at highest priority, else drop
//	cooling down                          drop
//	powered and steady                    send if nothing is pending, else queue
//	unpowered and steady                  send power commands, drop the rest
//
// When WarmingUp and CoolingDown are both set, the warm-up branch wins
// because it is evaluated first.
//
// Decide never mutates the descriptor. A priority escalation is carried in
// Decision.Priority and applied with Decision.Apply.
package gating
