package delivery

import (
	"context"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/internal"
	"github.com/sirupsen/logrus"
)

// LogSender writes deliveries to a logger instead of sending them. It is the
// development default when no provider is configured.
type LogSender struct {
	Logger logrus.FieldLogger
	// RevealCode includes the code itself in the entry. Never set it in production.
	RevealCode bool
}

func (s LogSender) Deliver(_ context.Context, d codes.Delivery) error {
	log := s.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	fields := logrus.Fields{
		"delivery_id": d.ID,
		"purpose":     d.Purpose,
		"channel":     d.Channel,
		"identifier":  internal.MaskIdentifier(d.Identifier),
		"ttl":         d.TTL.String(),
	}
	if s.RevealCode {
		fields["code"] = d.Code
	}
	log.WithFields(fields).Info("verification code delivered to log")
	return nil
}
