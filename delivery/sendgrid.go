package delivery

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailClient is the part of *sendgrid.Client the sender uses.
type EmailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridConfig addresses outgoing code emails.
type SendGridConfig struct {
	APIKey    string
	FromName  string
	FromEmail string
	// SandboxMode asks SendGrid to validate without delivering.
	SandboxMode bool
}

// SendGridSender delivers email codes through SendGrid.
type SendGridSender struct {
	client    EmailClient
	cfg       SendGridConfig
	templates *Templates
}

// NewSendGridSender builds a sender on sendgrid.NewSendClient(cfg.APIKey).
func NewSendGridSender(cfg SendGridConfig, templates *Templates) *SendGridSender {
	return NewSendGridSenderWithClient(sendgrid.NewSendClient(cfg.APIKey), cfg, templates)
}

func NewSendGridSenderWithClient(client EmailClient, cfg SendGridConfig, templates *Templates) *SendGridSender {
	if templates == nil {
		templates = NewTemplates(cfg.FromName, "")
	}
	return &SendGridSender{client: client, cfg: cfg, templates: templates}
}

func (s *SendGridSender) Deliver(ctx context.Context, d codes.Delivery) error {
	html, err := s.templates.EmailHTML(d)
	if err != nil {
		return err
	}

	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	to := mail.NewEmail("", d.Identifier)
	msg := mail.NewSingleEmail(from, s.templates.Subject(d), to, s.templates.EmailText(d), html)
	if s.cfg.SandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return fmt.Errorf("%w: sendgrid status %d", ErrProviderRejected, resp.StatusCode)
	}
	return nil
}
