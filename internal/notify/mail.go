package notify

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"
)

// Sender delivers prepared messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// NewDialer returns an SMTP dialer.
func NewDialer(host string, port int, username, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, username, password)
}

// Mailer e-mails the dealer inbox when a financing request arrives.
type Mailer struct {
	sender Sender
	from   string
	to     string
}

// NewMailer sends from one address to the dealer inbox.
func NewMailer(sender Sender, from, to string) *Mailer {
	return &Mailer{sender: sender, from: from, to: to}
}

var financingMail = template.Must(template.New("financing").Parse(`<p>A new financing request was submitted.</p>
<ul>
<li><strong>Request:</strong> {{.RequestID}}</li>
<li><strong>Applicant:</strong> {{.FullName}}</li>
<li><strong>E-mail:</strong> {{.Email}}</li>
<li><strong>Phone:</strong> {{.Phone}}</li>
<li><strong>Vehicle:</strong> {{.CarBrand}} {{.CarModel}}</li>
<li><strong>Received:</strong> {{.SubmittedAt.Format "02/01/2006 15:04"}}</li>
</ul>`))

func (m *Mailer) FinancingSubmitted(_ context.Context, e FinancingEvent) error {
	var body strings.Builder
	if err := financingMail.Execute(&body, e); err != nil {
		return fmt.Errorf("render financing mail: %w", err)
	}

	msg := gomail.NewMessage(gomail.SetEncoding(gomail.Unencoded))
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	if e.Email != "" {
		msg.SetHeader("Reply-To", e.Email)
	}
	msg.SetHeader("Subject", fmt.Sprintf("New financing request: %s", e.FullName))
	msg.SetBody("text/html", body.String())

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send financing mail: %w", err)
	}
	return nil
}

// ListingCreated sends nothing; listings are created by the dealer.
func (m *Mailer) ListingCreated(context.Context, ListingEvent) error {
	return nil
}
