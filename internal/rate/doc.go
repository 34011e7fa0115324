// Package rate implements the Redis fixed-window failure counter that guards
// password login.
//
// # Window semantics
//
// INCR, then EXPIRE on the first hit only. Checks read every applicable
// counter in one pipeline. Key layout:
//   - <prefix>:login:id:<identifier hash>  failed logins per identifier
//   - <prefix>:login:ip:<ip>               failed logins per client IP
//
// # What this package must NOT do
//
//   - Implement send-code throttling (that lives in internal/limiters).
//   - Be imported outside the goVerify module.
package rate
