// Package dispatch implements the bounded async queue used for fire-and-forget work:
// code delivery and login audit events.
//
// # Components
//
//   - [Dispatcher]: buffered relay with drop-if-full / block-if-full semantics, a
//     dropped counter, and a Close that drains queued items before returning.
//
// # Architecture boundaries
//
// This package owns buffering and worker lifecycle. It does NOT decide what to enqueue
// or how failures of the handler are reported; handlers log their own errors.
//
// # What this package must NOT do
//
//   - Import goVerify or any sibling package.
//   - Retry handler work.
package dispatch
