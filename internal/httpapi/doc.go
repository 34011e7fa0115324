// Package httpapi is the reference JSON API over goVerify.Engine, used by
// cmd/goverify-server.
//
// Every response is an envelope {"code", "message", "data"}; code is a
// stable machine-readable string and the HTTP status follows the error
// taxonomy of the root package.
//
// # Architecture boundaries
//
// Handlers decode requests, call one Engine operation and encode the
// result. Token checks go through the middleware package.
//
// # What this package must NOT do
//
//   - Talk to Redis, SQLite or delivery providers directly.
//   - Expose the issued verification code unless the engine returned it.
package httpapi
