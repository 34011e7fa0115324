package delivery

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/MrEthical07/goVerify/codes"
)

const defaultEmailHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>{{.Title}}</h2>
  <p>Your verification code is:</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</p>
  <p>The code expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>
  {{if .SiteURL}}<p><a href="{{.SiteURL}}">{{.ServiceName}}</a></p>{{end}}
  <p style="color: #999; font-size: 12px;">&copy; {{.Year}} {{.ServiceName}}</p>
</body>
</html>`

// Templates renders the email and SMS text for a delivery.
type Templates struct {
	ServiceName string
	SiteURL     string
	html        *template.Template
}

type emailData struct {
	Title       string
	Code        string
	Minutes     int
	ServiceName string
	SiteURL     string
	Year        int
}

// NewTemplates parses the built-in email body. serviceName signs the
// messages; siteURL, when set, is linked from the email footer.
func NewTemplates(serviceName, siteURL string) *Templates {
	return &Templates{
		ServiceName: serviceName,
		SiteURL:     siteURL,
		html:        template.Must(template.New("email").Parse(defaultEmailHTML)),
	}
}

// WithHTML replaces the email body template. The template sees Title, Code,
// Minutes, ServiceName, SiteURL and Year.
func (t *Templates) WithHTML(body string) (*Templates, error) {
	tpl, err := template.New("email").Parse(body)
	if err != nil {
		return nil, err
	}
	out := *t
	out.html = tpl
	return &out, nil
}

// Subject is "<title>(verification code)".
func (t *Templates) Subject(d codes.Delivery) string {
	return d.Title + "(verification code)"
}

func (t *Templates) EmailHTML(d codes.Delivery) (string, error) {
	var buf bytes.Buffer
	err := t.html.Execute(&buf, emailData{
		Title:       d.Title,
		Code:        d.Code,
		Minutes:     minutes(d.TTL),
		ServiceName: t.ServiceName,
		SiteURL:     t.SiteURL,
		Year:        issuedYear(d),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (t *Templates) EmailText(d codes.Delivery) string {
	return fmt.Sprintf("Your %s verification code is %s. It expires in %d minutes.", d.Title, d.Code, minutes(d.TTL))
}

// SMSText is short enough for a single GSM segment with typical titles.
func (t *Templates) SMSText(d codes.Delivery) string {
	if t.ServiceName != "" {
		return fmt.Sprintf("[%s] %s code: %s, valid for %d min.", t.ServiceName, d.Title, d.Code, minutes(d.TTL))
	}
	return fmt.Sprintf("%s code: %s, valid for %d min.", d.Title, d.Code, minutes(d.TTL))
}

func minutes(ttl time.Duration) int {
	m := int((ttl + time.Minute - 1) / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}

func issuedYear(d codes.Delivery) int {
	if d.IssuedAt.IsZero() {
		return time.Now().Year()
	}
	return d.IssuedAt.Year()
}
