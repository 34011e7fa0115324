// Package middleware exposes HTTP middleware built on goVerify.Engine token
// validation.
//
// # Guards
//
//   - [RequireToken] rejects requests without a valid, unrevoked bearer token.
//   - [OptionalToken] attaches claims when a valid token is present and
//     passes everything else through.
//   - [ClientInfo] records the caller IP and User-Agent for throttling and audit.
//
// Guards read the Authorization header, call Engine.ValidateToken, and put the
// validated claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; every decision is delegated to
// ValidateToken.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from ValidateToken.
package middleware
