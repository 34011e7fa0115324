package internaldefs

import (
	goVerify "github.com/MrEthical07/goVerify"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goVerify.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goVerify.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported engine counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goVerify.MetricCodeSent, Name: "goverify_code_sent_total", Help: "Verification codes created and handed to delivery."},
	{ID: goVerify.MetricCodeReused, Name: "goverify_code_reused_total", Help: "Resends that reused an unexpired code."},
	{ID: goVerify.MetricCodeThrottled, Name: "goverify_code_throttled_total", Help: "Send requests rejected by a throttle."},
	{ID: goVerify.MetricCodeDelivered, Name: "goverify_code_delivered_total", Help: "Codes accepted by a delivery provider."},
	{ID: goVerify.MetricCodeDeliveryFailed, Name: "goverify_code_delivery_failed_total", Help: "Codes a delivery provider failed to send."},
	{ID: goVerify.MetricCodeCheckFailure, Name: "goverify_code_check_failure_total", Help: "Mutations blocked by a wrong or expired code."},
	{ID: goVerify.MetricRegisterSuccess, Name: "goverify_register_success_total", Help: "Accounts created."},
	{ID: goVerify.MetricRegisterDuplicate, Name: "goverify_register_duplicate_total", Help: "Registrations rejected because the identifier is taken."},
	{ID: goVerify.MetricLoginSuccess, Name: "goverify_login_success_total", Help: "Successful password logins."},
	{ID: goVerify.MetricLoginFailure, Name: "goverify_login_failure_total", Help: "Failed password logins."},
	{ID: goVerify.MetricLoginRateLimited, Name: "goverify_login_rate_limited_total", Help: "Logins rejected by the attempt limiter."},
	{ID: goVerify.MetricPasswordUpgraded, Name: "goverify_password_upgraded_total", Help: "Stored hashes rehashed with current parameters on login."},
	{ID: goVerify.MetricPasswordResetSuccess, Name: "goverify_password_reset_success_total", Help: "Completed password resets."},
	{ID: goVerify.MetricPasswordResetFailure, Name: "goverify_password_reset_failure_total", Help: "Failed password resets."},
	{ID: goVerify.MetricIdentifierChanged, Name: "goverify_identifier_changed_total", Help: "Completed mobile or email changes."},
	{ID: goVerify.MetricLogout, Name: "goverify_logout_total", Help: "Logout requests."},
	{ID: goVerify.MetricTokenRevoked, Name: "goverify_token_revoked_total", Help: "Tokens written to the blacklist."},
	{ID: goVerify.MetricValidateSuccess, Name: "goverify_validate_success_total", Help: "Tokens that validated."},
	{ID: goVerify.MetricValidateFailure, Name: "goverify_validate_failure_total", Help: "Tokens rejected as invalid or expired."},
	{ID: goVerify.MetricValidateRevoked, Name: "goverify_validate_revoked_total", Help: "Tokens rejected as revoked."},
}

// HistogramDefs lists the exported engine histograms.
var HistogramDefs = []HistogramDef{
	{ID: goVerify.MetricValidateLatency, Name: "goverify_validate_latency_seconds", Help: "ValidateToken latency."},
}

// Dropped counters are read from the engine directly, not from the snapshot.
const (
	AuditDroppedName    = "goverify_audit_dropped_total"
	AuditDroppedHelp    = "Audit events dropped because the dispatcher buffer was full."
	DeliveryDroppedName = "goverify_delivery_dropped_total"
	DeliveryDroppedHelp = "Code deliveries dropped because the delivery queue was full."
)

// HistogramBounds are the Prometheus "le" labels, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
