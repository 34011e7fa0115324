// Package internal contains helpers that are private to goVerify: secure numeric code
// generation, random token suffixes and identifier masking for logs.
//
// # Sub-packages
//
//   - audit: login audit event model and sinks
//   - dispatch: bounded async queue for delivery and audit
//   - flows: orchestration functions behind every Engine operation
//   - httpapi: chi handlers for the reference server
//   - limiters: send-code throttles (Redis fixed window, in-process token bucket)
//   - rate: Redis fixed-window failed-login counters
//   - validate: validator/v10 singleton and identifier classification
//
// # What this package must NOT do
//
//   - Export types that appear in the public goVerify API.
//   - Log or return generated codes.
package internal
