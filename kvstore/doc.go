// Package kvstore provides the keyed TTL store that backs verification codes and the
// token blacklist.
//
// # Contract
//
// [KeyedTTLStore] exposes Get, SetWithTTL and Delete over namespaced keys of the form
// "<domain>:<purpose>:<identifier>" (see [Key]). Every operation is idempotent; deleting
// an absent key is not an error. Single-key operations are atomic. Multi-key sequences
// such as check-then-delete are not, and callers must tolerate that.
//
// # Implementations
//
//   - [Redis]: go-redis UniversalClient with an optional key prefix.
//   - [Memory]: mutex-guarded map with an injectable clock, used in tests and local tools.
//
// # What this package must NOT do
//
//   - Import goVerify, codes, or jwt (no upward imports).
//   - Interpret stored values.
//   - Swallow backend errors: every backend failure wraps [ErrUnavailable].
package kvstore
