// Package jwt issues and parses signed session tokens and tracks revoked
// token ids in an expiring blacklist.
//
// Parse is a pure signature and time-window check. Revocation is a separate
// lookup through [Blacklist] so callers decide when to pay for the store round trip.
package jwt
