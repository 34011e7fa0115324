// Package limiters provides the send-code throttles plugged into codes.Manager.
//
// # Limiters
//
//   - [SendCode]: Redis cooldown per (purpose, identifier) plus fixed windows
//     per identifier and per client IP.
//   - [Local]: in-process token bucket per (purpose, identifier).
//
// Both return *codes.ThrottleError on rejection and wrap backend failures in
// [ErrLimiterUnavailable], which the code manager reports as store unavailability.
//
// # What this package must NOT do
//
//   - Import goVerify or any sibling internal package.
//   - Decide what a rejection means for the caller. Flows map it to RateLimited.
package limiters
