// Package password hashes account passwords with argon2id and verifies
// legacy bcrypt hashes carried over from older deployments.
//
// # Output format
//
// New hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsUpgrade] is true for bcrypt hashes and for argon2id hashes made
// with weaker parameters, so callers can re-hash after a successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (allowed
// characters, length range) is enforced before a password reaches it.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goVerify package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
