// Package envconfig loads goVerify and server settings from the process
// environment and prepares the shared logrus logger.
//
// An optional .env file in the working directory is read first; variables
// already present in the environment win over it. Every variable carries
// the GOVERIFY_ prefix, e.g. GOVERIFY_CODE_TTL=15m.
//
// # Architecture boundaries
//
// envconfig only translates strings into [goVerify.Config] and
// [ServerConfig]. Validation of the resulting engine config stays in
// goVerify.Config.Validate, which Builder.Build runs.
//
// # What this package must NOT do
//
//   - Open network connections or files other than .env and key files.
//   - Build an Engine.
package envconfig
