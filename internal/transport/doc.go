// Package transport builds dispatch.Transport values from device manifests.
//
// Implementations live in subpackages:
//
//   - loopback: in-process, for dev mode and tests
//   - mqttlink: request/reply over the MQTT broker to a device bridge
//
// The Factory picks one per device from the manifest's transport.kind.
package transport
