// Package history keeps an audit trail of dispatcher activity in SQLite.
//
// A Recorder is attached to each dispatcher as an observer; every event
// (sent, queued, dropped, completed and so on) becomes a row in
// command_history. The API reads it back newest first, and RunPruner
// enforces the configured retention.
package history
