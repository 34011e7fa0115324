package delivery

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goVerify/codes"
)

// Router sends email deliveries to Email and SMS deliveries to SMS.
type Router struct {
	Email codes.Sender
	SMS   codes.Sender
}

func (r Router) Deliver(ctx context.Context, d codes.Delivery) error {
	var s codes.Sender
	switch d.Channel {
	case codes.ChannelEmail:
		s = r.Email
	case codes.ChannelSMS:
		s = r.SMS
	}
	if s == nil {
		return fmt.Errorf("%w: %q", ErrNoSender, d.Channel)
	}
	return s.Deliver(ctx, d)
}
