// Package prometheus renders goVerify engine metrics in Prometheus text
// exposition format.
//
// Counters are named goverify_*_total; the single histogram is
// goverify_validate_latency_seconds. Mount [Exporter.Handler] on /metrics.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
