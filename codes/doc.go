// Package codes implements the verification-code lifecycle: issue, check and
// delete short numeric codes scoped to a (purpose, channel identifier) pair.
//
// # Architecture boundaries
//
// Codes live in a [kvstore.KeyedTTLStore] under keys of the form
// "<domain>:<purpose>:<identifier>", where domain is "sms_code" or
// "email_code" depending on the identifier channel. A resend before expiry
// returns the same code and refreshes its TTL.
//
// Delivery is delegated to a [Sender]. By default deliveries run on a bounded
// background dispatcher so Send never waits on email or SMS transports.
// Throttling is delegated to a [Throttle]; the default allows every send.
//
// # What this package must NOT do
//
//   - Delete a code after a successful Check. Consumption belongs to the caller.
//   - Treat a store failure as a verdict. Check returns ErrStoreUnavailable.
//   - Un-store a code because delivery failed.
package codes
