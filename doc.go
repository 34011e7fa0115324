// Package goVerify provides code-verified account flows: send a one-time
// verification code to a phone number or email address, then register,
// reset a password or change an identifier against it, and log in with a
// signed session token that can be revoked before it expires.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goVerify is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserProvider] contract and value types ([Account], [LoginResult],
// [SendCodeResult], [MetricsSnapshot]). Flow orchestration, throttles,
// validation and audit dispatch live under internal/ and are never exported.
// Codes and the token blacklist are stored through [kvstore.KeyedTTLStore];
// accounts through the caller's UserProvider.
//
// # What this package must NOT do
//
//   - Expose Redis clients, stored codes or password hashes in its public API.
//     SendCodeResult.DebugCode is the single, config-gated exception.
//   - Consume a verification code before the mutation it guards succeeded.
//   - Treat a store outage as "code wrong" or "token not revoked".
//   - Import any sub-package that re-imports goVerify (no import cycles).
//
// # Performance contract
//
// ValidateToken is the hot path: one signature check and one blacklist
// lookup. SendVerifyCode never waits on the email or SMS transport unless
// Delivery.Synchronous is set.
package goVerify
