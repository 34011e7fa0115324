package delivery

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is the part of the Twilio REST API the sender uses.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioConfig authenticates and addresses outgoing SMS.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromPhone  string
}

// TwilioSender delivers SMS codes through Twilio.
type TwilioSender struct {
	api       MessageCreator
	from      string
	templates *Templates
}

func NewTwilioSender(cfg TwilioConfig, templates *Templates) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewTwilioSenderWithAPI(client.Api, cfg.FromPhone, templates)
}

func NewTwilioSenderWithAPI(api MessageCreator, from string, templates *Templates) *TwilioSender {
	if templates == nil {
		templates = NewTemplates("", "")
	}
	return &TwilioSender{api: api, from: from, templates: templates}
}

// Deliver ignores ctx cancellation once the request is sent; the Twilio
// client has no context-aware call.
func (s *TwilioSender) Deliver(ctx context.Context, d codes.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(d.Identifier)
	params.SetFrom(s.from)
	params.SetBody(s.templates.SMSText(d))

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	return nil
}
