// Package audit implements async dispatch of login and verification audit events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, logrus, no-op, fan-out).
//   - [Dispatcher]: buffered async relay on top of internal/dispatch.
//   - [Event]: structured audit record with timestamp, type, user, masked identifier, IP.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit. That belongs to the Engine and flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goVerify.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
