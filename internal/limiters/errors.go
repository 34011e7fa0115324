package limiters

import "errors"

// ErrLimiterUnavailable wraps Redis failures. It is never a throttle verdict.
var ErrLimiterUnavailable = errors.New("send-code limiter unavailable")

// Rejection reasons carried by codes.ThrottleError.
const (
	ReasonCooldown         = "cooldown"
	ReasonIdentifierWindow = "identifier_window"
	ReasonIPWindow         = "ip_window"
	ReasonLocalRate        = "local_rate"
)
