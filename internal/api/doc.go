// Package api implements the HTTP REST API and WebSocket server for Gray
// Logic AV.
//
// Wall panels, scripts and the admin UI use it to list devices, send named
// commands, inspect and edit the per-device queues and read command history.
// Dispatcher events are pushed to WebSocket clients in real time.
//
// # Security
//
// Every route except /health needs a bearer token minted by
// graylogic-av --issue-token. The token's role (viewer, operator or admin)
// decides which routes it may call. WebSocket connections authenticate with
// a single-use ticket from POST /auth/ws-ticket so tokens never appear in
// URLs.
//
// # Status codes for commands
//
// POST /devices/{id}/commands/{name} answers 200 when the command went
// straight to the device, 202 when it was queued, 409 when the gate dropped
// it and 429 when the queue was full.
package api
