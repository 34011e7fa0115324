// Package sqlite is a goVerify.UserProvider over a single SQLite file.
//
// # Architecture boundaries
//
// The users table keeps mobile and email in separate unique columns; an
// account is found by whichever one matches the identifier. Schema changes
// ship as embedded migrations applied by [Open].
//
// # What this package must NOT do
//
//   - Hash or verify passwords. It stores the hash it is given.
//   - Return driver errors for duplicates. Unique violations map to
//     goVerify.ErrProviderDuplicateIdentifier.
package sqlite
