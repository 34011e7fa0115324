// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunSendCode, RunRegister, RunLogin, ...) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. Flows can be tested exhaustively with fake dependencies and
// the Engine type stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate the code manager, token issuer, password hasher,
// login limiter, audit and metrics. They do NOT own any of these resources;
// ownership stays with the Engine. Every mutating flow runs verify, then
// mutate, then delete the code, strictly in that order.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goVerify (to avoid import cycles).
//   - Perform I/O directly. All I/O goes through dependency funcs.
//   - Log codes or password material.
package flows
