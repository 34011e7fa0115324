// Package validate wraps a single go-playground validator instance with the
// input checks the engine and the HTTP layer share.
//
// The "identifier" struct tag accepts an email address or an E.164 phone
// number, mirroring [Identifier].
package validate
